package loadtest

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(5), percentile(sorted, 50))
	assert.Equal(t, time.Duration(9), percentile(sorted, 90))
	assert.Equal(t, time.Duration(10), percentile(sorted, 99))
	assert.Equal(t, time.Duration(1), percentile(sorted, 0))
	assert.Zero(t, percentile(nil, 50))
}

func TestStats_Report(t *testing.T) {
	s := NewStats()
	s.Record(10*time.Millisecond, http.StatusOK, searchOutcome{Cached: true}, nil)
	s.Record(30*time.Millisecond, http.StatusOK, searchOutcome{UsingSuggestion: true}, nil)
	s.Record(20*time.Millisecond, http.StatusBadRequest, searchOutcome{}, nil)

	r := s.Report(time.Second)
	assert.Equal(t, int64(3), r.Total)
	assert.Equal(t, int64(2), r.Success)
	assert.Equal(t, int64(1), r.Errors)
	assert.Equal(t, int64(1), r.CacheHits)
	assert.Equal(t, int64(1), r.Suggestions)
	assert.Equal(t, 10*time.Millisecond, r.Min)
	assert.Equal(t, 20*time.Millisecond, r.Avg)
	assert.Equal(t, 30*time.Millisecond, r.Max)
	assert.Equal(t, map[int]int64{200: 2, 400: 1}, r.StatusCodes)

	var buf bytes.Buffer
	r.Write(&buf)
	assert.Contains(t, buf.String(), "Total Requests:  3")
	assert.Contains(t, buf.String(), "  400: 1")
}

func TestRun(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/search", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("q"))
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if n%2 == 0 {
			w.Write([]byte(`{"cached":true}`))
			return
		}
		w.Write([]byte(`{"cached":false}`))
	}))
	defer srv.Close()

	r, err := Run(context.Background(), Config{
		BaseURL:     srv.URL,
		Concurrency: 2,
		Duration:    200 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Positive(t, r.Total)
	assert.Equal(t, r.Total, r.Success)
	assert.Positive(t, r.CacheHits)
	assert.Zero(t, r.Errors)
}

func TestRun_BadURL(t *testing.T) {
	_, err := Run(context.Background(), Config{BaseURL: "://bad", Duration: time.Millisecond})
	require.Error(t, err)
}
