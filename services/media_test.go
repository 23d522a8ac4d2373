package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	now := time.Unix(0, 1700000000123456789)
	assert.Equal(t, "complaints/c1/1700000000123456789_photo_1.jpg", ObjectKey("c1", "photo 1.jpg", now))
	assert.Equal(t, "complaints/c1/1700000000123456789_passwd", ObjectKey("c1", "../../etc/passwd", now))
	assert.Equal(t, "complaints/c1/1700000000123456789_clip.webm", ObjectKey("c1", `C:\Users\me\clip.webm`, now))

	key := ObjectKey("c1", "", now)
	assert.True(t, strings.HasPrefix(key, "complaints/c1/1700000000123456789_"))
	assert.Greater(t, len(key), len("complaints/c1/1700000000123456789_"))
}

func TestMediaKind(t *testing.T) {
	assert.Equal(t, "image", MediaKind("image/jpeg"))
	assert.Equal(t, "image", MediaKind("image"))
	assert.Equal(t, "video", MediaKind("Video/MP4"))
	assert.Equal(t, "audio", MediaKind("audio/webm"))
	assert.Equal(t, "file", MediaKind("application/pdf"))
	assert.Equal(t, "file", MediaKind("imagery"))
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://storage.googleapis.com/civic-bucket/complaints/c1/1_a.png", PublicURL("civic-bucket", "complaints/c1/1_a.png"))
}

func TestMediaFetcher(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000000000")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/typed.jpg":
			w.Header().Set("Content-Type", "image/jpeg; charset=binary")
			_, _ = w.Write([]byte("jpegdata"))
		case "/sniffed":
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write(png)
		case "/big":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	f := NewMediaFetcher(ts.Client(), 32, ts.URL)
	ctx := context.Background()

	data, ct, err := f.Fetch(ctx, ts.URL+"/typed.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", ct)
	assert.Equal(t, []byte("jpegdata"), data)

	_, ct, err = f.Fetch(ctx, ts.URL+"/sniffed")
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)

	_, _, err = f.Fetch(ctx, ts.URL+"/big")
	assert.ErrorContains(t, err, "larger than")

	_, _, err = f.Fetch(ctx, ts.URL+"/missing")
	assert.ErrorContains(t, err, "status 404")
}

func TestMediaFetcherAllowed(t *testing.T) {
	f := NewMediaFetcher(nil, 0, BucketURLPrefixes("civic.appspot.com")...)

	for raw, want := range map[string]bool{
		"https://storage.googleapis.com/civic.appspot.com/complaints/c1/1_a.png":          true,
		"https://firebasestorage.googleapis.com/v0/b/civic.appspot.com/o/a.png?alt=media": true,
		"https://STORAGE.googleapis.com/civic.appspot.com/a.png":                          true,
		"https://storage.googleapis.com/civic.appspot.com/":                               false,
		"https://storage.googleapis.com/civic.appspot.com/../other/a.png":                 false,
		"https://storage.googleapis.com/other/a.png":                                      false,
		"http://storage.googleapis.com/civic.appspot.com/a.png":                           false,
		"https://user@storage.googleapis.com/civic.appspot.com/a.png":                     false,
		"https://storage.googleapis.com.evil.example/civic.appspot.com/a.png":             false,
		"http://169.254.169.254/computeMetadata/v1/":                                      false,
		"not a url":                                                                       false,
	} {
		assert.Equal(t, want, f.Allowed(raw), raw)
	}

	assert.False(t, NewMediaFetcher(nil, 0).Allowed("https://storage.googleapis.com/x/a.png"))
	assert.Nil(t, BucketURLPrefixes(""))
}

func TestMediaFetcherRejectsForeignURLs(t *testing.T) {
	var hits atomic.Int32
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("secret"))
	}))
	defer internal.Close()

	public := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, internal.URL+"/secret", http.StatusFound)
	}))
	defer public.Close()

	f := NewMediaFetcher(nil, 0, public.URL+"/media/")
	ctx := context.Background()

	_, _, err := f.Fetch(ctx, internal.URL+"/secret")
	assert.ErrorIs(t, err, ErrMediaURLNotAllowed)

	_, _, err = f.Fetch(ctx, public.URL+"/media/a.png")
	assert.ErrorIs(t, err, ErrMediaURLNotAllowed)
	assert.Zero(t, hits.Load())
}
