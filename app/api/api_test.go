package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/truthlens/app/analysis"
	"github.com/lysyi3m/truthlens/app/database"
	"github.com/lysyi3m/truthlens/app/evidence"
	"github.com/lysyi3m/truthlens/app/feed"
	"github.com/lysyi3m/truthlens/app/tasks"
)

type fakeRunner struct {
	mu   sync.Mutex
	reqs []analysis.Request
	err  error
}

func (f *fakeRunner) Analyze(_ context.Context, req analysis.Request) (*analysis.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &analysis.Report{
		IsMisinformation: true,
		Verdict:          "FALSE",
		ConfidenceScore:  71.5,
		Report:           "The claim is contradicted by official records.",
		Citations:        []string{"https://www.reuters.com/a"},
		Evidence: []evidence.Item{
			{URL: "https://www.reuters.com/a", Title: "Records", Content: "No such ban was passed.", Source: evidence.SourceWeb},
		},
	}, nil
}

func (f *fakeRunner) last() analysis.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[len(f.reqs)-1]
}

type fakeScheduler struct {
	queued []tasks.TaskInterface
	err    error
}

func (s *fakeScheduler) Start() {}
func (s *fakeScheduler) Stop()  {}

func (s *fakeScheduler) EnqueueTask(task tasks.TaskInterface) error {
	if s.err != nil {
		return s.err
	}
	s.queued = append(s.queued, task)
	return nil
}

type testEnv struct {
	router    *gin.Engine
	runner    *fakeRunner
	scheduler *fakeScheduler
	feedRepo  *database.FeedRepo
	trendRepo *database.TrendRepo
	images    *httptest.Server
}

const testKey = "secret"

func newTestEnv(t *testing.T, apiKey string) *testEnv {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, _, err = database.RunMigrations(db)
	require.NoError(t, err)

	feedsDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(feedsDir, "world.yml"), []byte(`
url: "https://example.com/world.xml"
settings:
  enabled: true
  max_items: 10
  verify: true
`), 0644))
	configCache := feed.NewConfigCache(feedsDir)
	require.NoError(t, configCache.Run())

	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/photo.jpg" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("jpeg-bytes"))
	}))
	t.Cleanup(images.Close)

	runner := &fakeRunner{}
	scheduler := &fakeScheduler{}
	feedRepo := database.NewFeedRepository(db)
	trendRepo := database.NewTrendRepository(db)
	service := analysis.NewService(runner, database.NewAnalysisRepository(db), nil)

	handler := NewHandler(service, configCache, feedRepo, trendRepo,
		feed.NewGenerator("http://localhost:8080", "test"), feed.NewFilterer(), scheduler,
		NewImageFetcher(images.Client(), "truthlens-test", time.Second, 1<<20),
		Options{MaxUploadSize: 64, Version: "test"})

	return &testEnv{
		router:    NewServer(handler, apiKey),
		runner:    runner,
		scheduler: scheduler,
		feedRepo:  feedRepo,
		trendRepo: trendRepo,
		images:    images,
	}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, path string, body any) *http.Request {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestAPIAnalyze_Text(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(t, jsonRequest(http.MethodPost, "/api/analyze", gin.H{
		"text":           "The city council banned bicycles on every street last week.",
		"embedded_posts": []string{"https://x.com/someone/status/1"},
	}))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, "FALSE", body["verdict"])
	assert.Equal(t, true, body["is_misinformation"])
	assert.Equal(t, 71.5, body["confidence_score"])
	assert.NotEmpty(t, body["id"])

	req := env.runner.last()
	assert.Equal(t, []string{"https://x.com/someone/status/1"}, req.EmbeddedPosts)
	assert.Nil(t, req.Image)
}

func TestAPIAnalyze_NoInput(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(t, jsonRequest(http.MethodPost, "/api/analyze", gin.H{"text": "   "}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.runner.reqs)
}

func TestAPIAnalyze_RunnerFailure(t *testing.T) {
	env := newTestEnv(t, "")
	env.runner.err = errors.New("model unavailable")

	w := env.do(t, jsonRequest(http.MethodPost, "/api/analyze", gin.H{"text": "Some claim worth checking."}))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	id, _ := decode(t, w)["id"].(string)
	require.NotEmpty(t, id)

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/analyses/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "failed", body["status"])
	assert.Contains(t, body["error"], "model unavailable")
}

func multipartRequest(t *testing.T, fields map[string]string, file []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		part, err := mw.CreateFormFile("image", "upload.png")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestAPIAnalyze_ImageUpload(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(t, multipartRequest(t, map[string]string{"text": "caption"}, []byte("png-bytes")))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	req := env.runner.last()
	assert.Equal(t, []byte("png-bytes"), req.Image)
	assert.Equal(t, "upload.png", req.ImageName)
	assert.Equal(t, "caption", req.Text)
}

func TestAPIAnalyze_ImageTooLarge(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(t, multipartRequest(t, nil, bytes.Repeat([]byte("x"), 65)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, env.runner.reqs)
}

func TestAPIAnalyze_ImageURL(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(t, jsonRequest(http.MethodPost, "/api/analyze", gin.H{"image_url": env.images.URL + "/photo.jpg"}))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	req := env.runner.last()
	assert.Equal(t, []byte("jpeg-bytes"), req.Image)
	assert.Equal(t, "photo.jpg", req.ImageName)
	assert.Equal(t, env.images.URL+"/photo.jpg", req.SourceURL)
}

func TestAPIAnalyze_ImageURLFailureFallsBackToText(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(t, jsonRequest(http.MethodPost, "/api/analyze", gin.H{
		"text":      "A claim that still deserves a check.",
		"image_url": env.images.URL + "/missing.jpg",
	}))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	req := env.runner.last()
	assert.Nil(t, req.Image)
	assert.Equal(t, "A claim that still deserves a check.", req.Text)
}

func TestAPI_Auth(t *testing.T) {
	env := newTestEnv(t, testKey)
	body := gin.H{"text": "Some claim worth checking."}

	w := env.do(t, jsonRequest(http.MethodPost, "/api/analyze", body))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := jsonRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("X-API-Key", "wrong")
	assert.Equal(t, http.StatusUnauthorized, env.do(t, req).Code)

	req = jsonRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Authorization", "Bearer "+testKey)
	assert.Equal(t, http.StatusOK, env.do(t, req).Code)

	req = jsonRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("X-API-Key", testKey)
	assert.Equal(t, http.StatusOK, env.do(t, req).Code)

	// Health stays public.
	assert.Equal(t, http.StatusOK, env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
}

func TestAPISubmitAnalysis_RunsThroughTask(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(t, jsonRequest(http.MethodPost, "/api/analyses", gin.H{"text": "Some claim worth checking."}))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "pending", body["status"])
	id := body["id"].(string)

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/analyses/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending", decode(t, w)["status"])

	require.Len(t, env.scheduler.queued, 1)
	task := env.scheduler.queued[0]
	assert.Equal(t, tasks.TaskTypeAnalyze, task.GetType())
	require.NoError(t, task.Execute(context.Background()))

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/analyses/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, "FALSE", body["verdict"])
	sources := body["sources"].([]any)
	require.Len(t, sources, 1)
	assert.Equal(t, 100.0, sources[0].(map[string]any)["credibility"])
}

func TestAPISubmitAnalysis_QueueFull(t *testing.T) {
	env := newTestEnv(t, "")
	env.scheduler.err = errors.New("task queue is full")

	w := env.do(t, jsonRequest(http.MethodPost, "/api/analyses", gin.H{"text": "Some claim worth checking."}))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAPIGetAnalysis_NotFound(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/analyses/does-not-exist", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func seedTrends(t *testing.T, env *testEnv) {
	t.Helper()

	require.NoError(t, env.feedRepo.UpsertFeed("world", "https://example.com/world.xml", true))
	now := time.Now().UTC()
	require.NoError(t, env.feedRepo.UpdateFeedMetadata("world", "World News", "https://example.com", "", "en", nil, now.Add(time.Hour)))

	require.NoError(t, env.trendRepo.UpsertTrend("world", database.TrendItem{
		GUID: "1", Link: "https://example.com/1", Title: "Bridge collapses", ContentHash: "h1", PublishedAt: now,
	}))
	require.NoError(t, env.trendRepo.UpsertTrend("world", database.TrendItem{
		GUID: "2", Link: "https://example.com/2", Title: "Sponsored post", ContentHash: "h2", PublishedAt: now,
		IsFiltered: true, FilterReason: "filtered",
	}))

	pending, err := env.trendRepo.GetTrendsForVerification("world", 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.NoError(t, env.trendRepo.UpdateVerification(pending[0].ID, database.Verification{
		Status: database.VerificationVerified, IsMisinformation: true, Verdict: "FALSE", Confidence: 80, Result: "No collapse occurred.",
	}))
}

func TestGetFeed_RSS(t *testing.T) {
	env := newTestEnv(t, "")
	seedTrends(t, env)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/feeds/world", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-Feed-Items"))
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "application/xml"))
	assert.Contains(t, w.Body.String(), "[FALSE] Bridge collapses")
	assert.NotContains(t, w.Body.String(), "Sponsored post")

	assert.Equal(t, http.StatusNotFound, env.do(t, httptest.NewRequest(http.MethodGet, "/feeds/unknown", nil)).Code)
}

func TestAPIListTrends(t *testing.T) {
	env := newTestEnv(t, "")
	seedTrends(t, env)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/trends?limit=500", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, 1.0, body["total"])
	trend := body["trends"].([]any)[0].(map[string]any)
	assert.Equal(t, "verified", trend["verification_status"])
	assert.Equal(t, "FALSE", trend["verdict"])

	assert.Equal(t, http.StatusBadRequest, env.do(t, httptest.NewRequest(http.MethodGet, "/api/trends?limit=abc", nil)).Code)
}

func TestAPIFeeds(t *testing.T) {
	env := newTestEnv(t, "")
	seedTrends(t, env)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/feeds", nil))
	require.Equal(t, http.StatusOK, w.Code)
	feeds := decode(t, w)["feeds"].([]any)
	require.Len(t, feeds, 1)
	assert.Equal(t, "World News", feeds[0].(map[string]any)["title"])

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/feeds/world/details", nil))
	require.Equal(t, http.StatusOK, w.Code)
	trends := decode(t, w)["trends"].(map[string]any)
	assert.Equal(t, 2.0, trends["total"])
	assert.Equal(t, 1.0, trends["visible"])
	assert.Equal(t, 1.0, trends["verified"])

	w = env.do(t, httptest.NewRequest(http.MethodPost, "/api/feeds/world/reload", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, env.scheduler.queued, 2)
	assert.Equal(t, tasks.TaskTypeSyncFeedConfig, env.scheduler.queued[0].GetType())
	assert.Equal(t, tasks.TaskTypeRefilterFeed, env.scheduler.queued[1].GetType())

	assert.Equal(t, http.StatusNotFound, env.do(t, httptest.NewRequest(http.MethodPost, "/api/feeds/nope/reload", nil)).Code)
}
