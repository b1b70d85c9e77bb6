package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/auth/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/events"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/frequency"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/indexing"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/keywords"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/search"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/spelling"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/stopwords"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/store"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/blobstore"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/metrics"
	pkgmw "github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/middleware"
)

const testKey = "test-key"

func newTestServer(t *testing.T, uploadsPerMinute int) *httptest.Server {
	t.Helper()
	ex := &keywords.Extractor{
		Stop:      stopwords.New("le", "la", "un", "sur"),
		Corrector: spelling.NewCorrector(frequency.New(map[string]uint64{"chat": 40, "souris": 10}), nil),
	}
	st := store.NewMemory()
	searchSvc := search.New(st, ex, nil, config.SearchConfig{DefaultLimit: 10, MaxResults: 100}, nil)
	indexSvc := indexing.New(st, blobstore.NewMemory(), events.NewLocalPublisher(searchSvc), ex,
		config.IndexerConfig{MaxUploadSize: 1 << 10}, nil)

	limiter := ratelimit.New(time.Minute)
	t.Cleanup(limiter.Stop)

	h := NewHandler(indexSvc, st, searchSvc, 1<<10)
	srv := httptest.NewServer(NewRouter(h, Options{
		Validator:        apikey.NewValidator([]string{testKey}),
		Limiter:          limiter,
		UploadsPerMinute: uploadsPerMinute,
		Metrics:          metrics.NewUnregistered(),
		Health:           health.NewChecker(0),
		RequestTimeout:   5 * time.Second,
		Tracing:          true,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

var authed = map[string]string{"Authorization": "Bearer " + testKey, "Content-Type": "text/plain"}

func TestUploadSearchAndBrowse(t *testing.T) {
	srv := newTestServer(t, 0)

	resp := do(t, http.MethodPost, srv.URL+"/api/v1/docs/file/chat.txt?title=Chat",
		"Le chat dort sur la chaise", authed)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	receipt := decode[indexing.Receipt](t, resp)
	assert.NotEmpty(t, resp.Header.Get(pkgmw.RequestIDHeader))

	resp = do(t, http.MethodGet, srv.URL+"/api/v1/search?q=chta", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[search.Result](t, resp)
	assert.True(t, res.UsingSuggestion)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, receipt.StorageKey, res.Hits[0].StorageKey)

	resp = do(t, http.MethodGet, srv.URL+"/api/v1/docs/"+receipt.StorageKey+"/keywords", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	kws := decode[struct {
		Keywords []keywords.KeywordRecord `json:"keywords"`
	}](t, resp)
	require.NotEmpty(t, kws.Keywords)
	assert.Equal(t, "chat", kws.Keywords[0].Word)
	assert.Equal(t, uint64(3), kws.Keywords[0].Occurrences)

	resp = do(t, http.MethodGet, srv.URL+"/api/v1/docs/"+receipt.StorageKey+"/content", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Le chat dort sur la chaise", string(body))

	resp = do(t, http.MethodGet, srv.URL+"/api/v1/docs", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[struct {
		Count int `json:"count"`
	}](t, resp)
	assert.Equal(t, 1, list.Count)

	resp = do(t, http.MethodDelete, srv.URL+"/api/v1/docs/"+receipt.StorageKey, "", authed)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/v1/docs/"+receipt.StorageKey, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpload_Errors(t *testing.T) {
	srv := newTestServer(t, 0)

	resp := do(t, http.MethodPost, srv.URL+"/api/v1/docs/file/a.txt", "texte", map[string]string{"Content-Type": "text/plain"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/v1/docs/file/a.txt", "texte", map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/v1/docs/file/a.txt", strings.Repeat("a", 2048), authed)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/v1/docs/file/a.pdf", "%PDF-1.4", map[string]string{
		"X-API-Key": testKey, "Content-Type": "application/pdf",
	})
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/v1/docs/file/a.txt", "un texte", authed)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = do(t, http.MethodPost, srv.URL+"/api/v1/docs/file/b.txt", "un texte", authed)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestIndexText_Validation(t *testing.T) {
	srv := newTestServer(t, 0)

	resp := do(t, http.MethodPost, srv.URL+"/api/v1/docs", `{"body":"du texte"}`, authed)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[struct {
		Fields map[string]string `json:"fields"`
	}](t, resp)
	assert.Contains(t, body.Fields, "filename")

	resp = do(t, http.MethodPost, srv.URL+"/api/v1/docs", `{`, authed)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/v1/docs", `{"name":"n","body":"la souris"}`, authed)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestSpellingAndSearchErrors(t *testing.T) {
	srv := newTestServer(t, 0)

	resp := do(t, http.MethodGet, srv.URL+"/api/v1/spelling/soursi", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sp := decode[search.Spelling](t, resp)
	assert.Equal(t, "souris", sp.Correction)

	resp = do(t, http.MethodGet, srv.URL+"/api/v1/search?q=", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, 1)

	resp := do(t, http.MethodPost, srv.URL+"/api/v1/docs/file/a.txt", "premier texte", authed)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = do(t, http.MethodPost, srv.URL+"/api/v1/docs/file/b.txt", "second texte", authed)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))

	resp = do(t, http.MethodGet, srv.URL+"/api/v1/search?q=texte", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, 0)
	resp := do(t, http.MethodOptions, srv.URL+"/api/v1/search", "", map[string]string{"Origin": "https://example.org"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://example.org", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, 0)
	resp := do(t, http.MethodGet, srv.URL+"/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
