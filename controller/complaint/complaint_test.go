package complaint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"civicvoice/controller"
	"civicvoice/logger"
	"civicvoice/model"
	"civicvoice/realtime"
	"civicvoice/services"
	"civicvoice/store"
	"civicvoice/store/storetest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubGenerator struct {
	reply string
	err   error
}

func (s stubGenerator) Generate(context.Context, services.GenerateRequest) (string, error) {
	return s.reply, s.err
}

type memUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
	// failAfter rejects every upload once this many objects are stored.
	failAfter int
}

func (u *memUploader) Upload(_ context.Context, key, _ string, r io.Reader) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return "", u.err
	}
	if u.failAfter > 0 && len(u.objects) >= u.failAfter {
		return "", errors.New("quota exceeded")
	}
	b, _ := io.ReadAll(r)
	u.objects[key] = b
	return services.PublicURL("test-bucket", key), nil
}

type fixture struct {
	router *gin.Engine
	deps   *controller.Deps
	store  store.Store
	events chan model.Event
}

func newFixture(t *testing.T, gen services.ContentGenerator) *fixture {
	t.Helper()
	st := storetest.SQLite(t)
	bus := realtime.NewLocalBus()
	events := make(chan model.Event, 16)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, bus.StartForwarder(ctx, func(ev model.Event) { events <- ev }))

	classifier := services.NewClassifier(gen, nil)
	d := &controller.Deps{
		Log:        logger.Nop(),
		Store:      st,
		Classifier: classifier,
		Analyzer:   services.NewAnalyzer(st, classifier, bus, nil, 5*time.Second, nil),
		Events:     bus,
	}
	r := gin.New()
	api := r.Group("/api")
	ComplaintController(api, d)
	MediaController(api, d)
	return &fixture{router: r, deps: d, store: st, events: events}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestSubmitComplaintAnalyzesInBackground(t *testing.T) {
	f := newFixture(t, stubGenerator{reply: "Priority: HIGH\nCategory: Road\nAnalysis: Deep pothole near a school."})

	w := f.do(t, http.MethodPost, "/api/submit-complaint", map[string]any{
		"description": "  Huge pothole on Main St  ",
		"category":    "road",
		"location":    map[string]float64{"lat": 12.5, "lng": 77.1},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)

	f.deps.Analyzer.Wait()

	got, err := f.store.GetComplaint(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Huge pothole on Main St", got.Description)
	assert.Equal(t, model.CategoryRoad, got.Category)
	assert.Equal(t, model.AnonymousUser, got.UserID)
	assert.Equal(t, model.StatusAnalyzed, got.Status)
	assert.Equal(t, model.PriorityHigh, got.Priority)
	assert.Equal(t, "Deep pothole near a school.", got.AIAnalysis)
	require.NotNil(t, got.Location)

	first := <-f.events
	assert.Equal(t, model.EventComplaintCreated, first.Type)
	second := <-f.events
	assert.Equal(t, model.EventComplaintAnalyzed, second.Type)
	assert.Equal(t, id, second.ComplaintID)
}

func TestSubmitComplaintAnalysisFailure(t *testing.T) {
	f := newFixture(t, stubGenerator{err: errors.New("model unavailable")})

	w := f.do(t, http.MethodPost, "/api/submit-complaint", map[string]any{
		"description":    "Stray dogs near the park",
		"category":       "Other",
		"customCategory": "Animals",
		"userId":         "citizen-7",
	})
	require.Equal(t, http.StatusOK, w.Code)
	id := decode(t, w)["id"].(string)
	f.deps.Analyzer.Wait()

	got, err := f.store.GetComplaint(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAnalysisFailed, got.Status)
	assert.Equal(t, model.PriorityMedium, got.Priority)
	assert.Equal(t, services.AnalysisFailedText, got.AIAnalysis)
	assert.Equal(t, "Animals", got.CustomCategory)
	assert.Equal(t, "citizen-7", got.UserID)
}

func TestSubmitComplaintValidation(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodPost, "/api/submit-complaint", map[string]any{"description": "   ", "category": "Road"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])

	w = f.do(t, http.MethodPost, "/api/submit-complaint", map[string]any{"description": "Trees fell", "category": "Parks"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/submit-complaint", map[string]any{"description": "x", "location": map[string]float64{"lat": 200}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	list, err := f.store.ListComplaints(context.Background(), store.ComplaintFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListAndGetComplaints(t *testing.T) {
	f := newFixture(t, nil)
	for _, desc := range []string{"first issue", "second issue"} {
		w := f.do(t, http.MethodPost, "/api/submit-complaint", map[string]any{"description": desc, "category": "Water", "userId": "u1"})
		require.Equal(t, http.StatusOK, w.Code)
		time.Sleep(2 * time.Millisecond)
	}
	f.deps.Analyzer.Wait()

	w := f.do(t, http.MethodGet, "/api/complaints/u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listResp struct {
		Success    bool              `json:"success"`
		Complaints []model.Complaint `json:"complaints"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResp))
	require.Len(t, listResp.Complaints, 2)
	assert.Equal(t, "second issue", listResp.Complaints[0].Description)

	w = f.do(t, http.MethodGet, "/api/complaints/nobody", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{}, decode(t, w)["complaints"])

	w = f.do(t, http.MethodGet, "/api/complaint/"+listResp.Complaints[1].ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "first issue")

	w = f.do(t, http.MethodGet, "/api/complaint/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTestEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, http.MethodGet, "/api/test", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "API is working!", decode(t, w)["message"])
}

func createComplaint(t *testing.T, st store.Store) string {
	t.Helper()
	id, err := st.CreateComplaint(context.Background(), &model.Complaint{
		Description: "Overflowing bin",
		Category:    model.CategoryGarbage,
		UserID:      model.AnonymousUser,
		Status:      model.StatusSubmitted,
		Priority:    model.PriorityMedium,
		Media:       []model.Media{},
		CreatedAt:   time.Now().UTC(),
	})
	require.NoError(t, err)
	return id
}

func TestUpdateMedia(t *testing.T) {
	f := newFixture(t, nil)
	id := createComplaint(t, f.store)

	w := f.do(t, http.MethodPost, "/api/upload-media", map[string]any{
		"id":    id,
		"media": []map[string]string{{"url": "https://cdn.example/a.jpg", "type": "image"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got, err := f.store.GetComplaint(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []model.Media{{URL: "https://cdn.example/a.jpg", Type: "image"}}, got.Media)

	select {
	case ev := <-f.events:
		assert.Equal(t, model.EventComplaintMedia, ev.Type)
		assert.Equal(t, id, ev.ComplaintID)
		assert.Equal(t, model.StatusSubmitted, ev.Status)
		assert.Equal(t, model.PriorityMedium, ev.Priority)
	case <-time.After(2 * time.Second):
		t.Fatal("no media event published")
	}

	w = f.do(t, http.MethodPost, "/api/upload-media", map[string]any{"id": id})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/upload-media", map[string]any{"id": "missing", "media": []map[string]string{}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	parts := make([]formFile, 0, len(files))
	for name, content := range files {
		parts = append(parts, formFile{field: "files", name: name, content: content})
	}
	return multipartParts(t, parts...)
}

type formFile struct {
	field, name, content string
}

func multipartParts(t *testing.T, parts ...formFile) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		fw, err := mw.CreateFormFile(p.field, p.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(p.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (f *fixture) upload(t *testing.T, id string, body *bytes.Buffer, ct string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/complaint/"+id+"/media", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestUploadMediaFiles(t *testing.T) {
	f := newFixture(t, nil)
	up := &memUploader{objects: map[string][]byte{}}
	f.deps.Uploader = up
	id := createComplaint(t, f.store)

	body, ct := multipartBody(t, map[string]string{"photo.jpg": "jpeg-bytes"})
	req := httptest.NewRequest(http.MethodPost, "/api/complaint/"+id+"/media", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Len(t, up.objects, 1)
	for key, data := range up.objects {
		assert.Regexp(t, `^complaints/`+id+`/\d+_photo\.jpg$`, key)
		assert.Equal(t, []byte("jpeg-bytes"), data)
	}

	got, err := f.store.GetComplaint(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, got.Media, 1)
	assert.Contains(t, got.Media[0].URL, "https://storage.googleapis.com/test-bucket/complaints/"+id)
}

func TestUploadMediaFilesErrors(t *testing.T) {
	f := newFixture(t, nil)
	id := createComplaint(t, f.store)

	body, ct := multipartBody(t, map[string]string{"a.png": "x"})
	req := httptest.NewRequest(http.MethodPost, "/api/complaint/"+id+"/media", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	f.deps.Uploader = &memUploader{objects: map[string][]byte{}}
	body, ct = multipartBody(t, map[string]string{"a.png": "x"})
	req = httptest.NewRequest(http.MethodPost, "/api/complaint/missing/media", body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	f.deps.Uploader = &memUploader{err: errors.New("bucket down")}
	body, ct = multipartBody(t, map[string]string{"a.png": "x"})
	req = httptest.NewRequest(http.MethodPost, "/api/complaint/"+id+"/media", body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestUploadMediaFilesBothFieldNames(t *testing.T) {
	f := newFixture(t, nil)
	up := &memUploader{objects: map[string][]byte{}}
	f.deps.Uploader = up
	id := createComplaint(t, f.store)

	body, ct := multipartParts(t,
		formFile{field: "files", name: "a.jpg", content: "a"},
		formFile{field: "files[]", name: "b.jpg", content: "b"},
		formFile{field: "files[]", name: "c.mp4", content: "c"},
	)
	w := f.upload(t, id, body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, up.objects, 3)

	got, err := f.store.GetComplaint(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, got.Media, 3)
	assert.Contains(t, got.Media[0].URL, "a.jpg")
}

func TestUploadMediaFilesRecordsPartialSuccess(t *testing.T) {
	f := newFixture(t, nil)
	up := &memUploader{objects: map[string][]byte{}, failAfter: 1}
	f.deps.Uploader = up
	id := createComplaint(t, f.store)

	body, ct := multipartParts(t,
		formFile{field: "files", name: "first.jpg", content: "1"},
		formFile{field: "files", name: "second.jpg", content: "2"},
	)
	w := f.upload(t, id, body, ct)
	require.Equal(t, http.StatusBadGateway, w.Code, w.Body.String())
	resp := decode(t, w)
	assert.Equal(t, false, resp["success"])
	uploaded, _ := resp["uploaded"].([]any)
	assert.Len(t, uploaded, 1)

	got, err := f.store.GetComplaint(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, got.Media, 1)
	assert.Contains(t, got.Media[0].URL, "first.jpg")
}

func TestUploadMediaFilesConcurrent(t *testing.T) {
	f := newFixture(t, nil)
	f.deps.Uploader = &memUploader{objects: map[string][]byte{}}
	id := createComplaint(t, f.store)

	const uploads = 4
	codes := make([]int, uploads)
	var wg sync.WaitGroup
	for i := 0; i < uploads; i++ {
		body, ct := multipartParts(t, formFile{field: "files", name: fmt.Sprintf("p%d.jpg", i), content: "x"})
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/complaint/"+id+"/media", body)
			req.Header.Set("Content-Type", ct)
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, req)
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
	got, err := f.store.GetComplaint(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, got.Media, uploads)
}
