package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

var ErrStorageDisabled = errors.New("media: no storage bucket configured")

// MediaUploader stores complaint attachments and returns their URL.
type MediaUploader interface {
	Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}

type BucketUploader struct {
	client     *storage.Client
	bucketName string
}

func NewBucketUploader(client *storage.Client, bucketName string) *BucketUploader {
	return &BucketUploader{client: client, bucketName: bucketName}
}

func (u *BucketUploader) Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := u.client.Bucket(u.bucketName).Object(key).NewWriter(ctx)
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(key))
	}
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return PublicURL(u.bucketName, key), nil
}

func PublicURL(bucket, key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, key)
}

// ObjectKey places an upload under its complaint: complaints/<id>/<unixnano>_<name>.
func ObjectKey(complaintID, filename string, now time.Time) string {
	name := sanitizeFilename(filename)
	if name == "" {
		name = uuid.NewString()
	}
	return fmt.Sprintf("complaints/%s/%d_%s", complaintID, now.UnixNano(), name)
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// MediaKind reduces a MIME type (or a bare "image"/"video" label) to the
// kind stored on the complaint.
func MediaKind(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	for _, kind := range []string{"image", "video", "audio"} {
		if ct == kind || strings.HasPrefix(ct, kind+"/") {
			return kind
		}
	}
	return "file"
}

// ErrMediaURLNotAllowed is returned for URLs outside the fetcher's allowed
// prefixes.
var ErrMediaURLNotAllowed = errors.New("media: url not allowed")

// MediaFetcher downloads already-uploaded media for analysis. Only URLs under
// one of its allowed prefixes are fetched, redirects included.
type MediaFetcher struct {
	client   *http.Client
	maxBytes int64
	allowed  []*url.URL
}

func NewMediaFetcher(client *http.Client, maxBytes int64, allowedPrefixes ...string) *MediaFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	f := &MediaFetcher{maxBytes: maxBytes}
	for _, p := range allowedPrefixes {
		u, err := url.Parse(p)
		if err != nil || u.Host == "" {
			continue
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		f.allowed = append(f.allowed, u)
	}

	c := *client
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 5 {
			return errors.New("media: too many redirects")
		}
		if !f.Allowed(req.URL.String()) {
			return ErrMediaURLNotAllowed
		}
		return nil
	}
	f.client = &c
	return f
}

// BucketURLPrefixes lists the public URL prefixes objects in bucket are
// served from.
func BucketURLPrefixes(bucket string) []string {
	if bucket == "" {
		return nil
	}
	return []string{
		"https://storage.googleapis.com/" + bucket + "/",
		"https://firebasestorage.googleapis.com/v0/b/" + bucket + "/",
	}
}

// Allowed reports whether raw falls under one of the allowed prefixes.
func (f *MediaFetcher) Allowed(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.User != nil || u.Host == "" {
		return false
	}
	p := path.Clean("/" + u.Path)
	for _, a := range f.allowed {
		if !strings.EqualFold(u.Scheme, a.Scheme) || !strings.EqualFold(u.Host, a.Host) {
			continue
		}
		if strings.HasPrefix(p+"/", a.Path) && p+"/" != a.Path {
			return true
		}
	}
	return false
}

func (f *MediaFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	if !f.Allowed(rawURL) {
		return nil, "", fmt.Errorf("fetch %s: %w", rawURL, ErrMediaURLNotAllowed)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", rawURL, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, "", fmt.Errorf("fetch %s: larger than %d bytes", rawURL, f.maxBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mt
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}
