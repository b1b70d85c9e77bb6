package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error   { return nil }
func fail(context.Context) error { return errors.New("connection refused") }

func hang(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRun_AggregatesWorstStatus(t *testing.T) {
	c := NewChecker(0)
	c.Add("postgres", ok, true)
	c.Add("redis", fail, false)

	report := c.Run(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, StatusUp, report.Components["postgres"].Status)
	assert.True(t, report.Components["postgres"].Required)
	assert.Equal(t, "connection refused", report.Components["redis"].Message)

	c.Add("blobstore", fail, true)
	assert.Equal(t, StatusDown, c.Run(context.Background()).Status)
}

func TestRun_SlowDependencyTimesOut(t *testing.T) {
	c := NewChecker(20 * time.Millisecond)
	c.Add("blobstore", hang, true)

	start := time.Now()
	report := c.Run(context.Background())
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StatusDown, report.Status)
	assert.Contains(t, report.Components["blobstore"].Message, "no answer within 20ms")
}

func TestDictionary_MissingDegrades(t *testing.T) {
	c := NewChecker(0)
	c.Add("postgres", ok, true)
	c.Dictionary("stopwords", true, "512 words")
	c.Dictionary("lemmas", false, "lemmatisation disabled")

	report := c.Run(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, StatusUp, report.Components["stopwords"].Status)
	assert.Equal(t, "lemmatisation disabled", report.Components["lemmas"].Message)
	assert.NotEmpty(t, report.Uptime)
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker(0)
	c.Add("redis", fail, false)

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "degraded is still ready")

	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, StatusDegraded, report.Status)

	c.Add("postgres", fail, true)
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLiveHandler(t *testing.T) {
	c := NewChecker(0)
	c.Add("postgres", fail, true)

	rec := httptest.NewRecorder()
	c.LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "alive", body["status"])
}
