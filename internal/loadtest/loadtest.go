// Package loadtest replays search queries against a running server and
// summarizes latency, status codes and cache behavior.
package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultQueries is a French query mix with a few misspellings so the
// suggestion path is exercised too.
var DefaultQueries = []string{
	"recherche documentaire",
	"index des mots-clés",
	"correcteur orthographique",
	"rapport annuel",
	"résultats financiers",
	"contrat de travail",
	"facture électronique",
	"documnet",
	"recherhce",
	"dictionnaire des lemmes",
	"empreinte du contenu",
	"mots vides",
}

// Config drives one run.
type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Queries     []string
	Limit       int
}

// Stats collects outcomes from concurrent workers.
type Stats struct {
	total       atomic.Int64
	success     atomic.Int64
	errors      atomic.Int64
	cacheHits   atomic.Int64
	suggestions atomic.Int64

	mu          sync.Mutex
	latencies   []time.Duration
	statusCodes map[int]int64
}

// NewStats returns empty stats.
func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 4096),
		statusCodes: make(map[int]int64),
	}
}

// searchOutcome is the part of a search response the report cares about.
type searchOutcome struct {
	Cached          bool `json:"cached"`
	UsingSuggestion bool `json:"using_suggestion"`
}

// Record adds one request.
func (s *Stats) Record(d time.Duration, status int, out searchOutcome, err error) {
	s.total.Add(1)
	if err != nil {
		s.errors.Add(1)
		return
	}
	if status >= 200 && status < 300 {
		s.success.Add(1)
		if out.Cached {
			s.cacheHits.Add(1)
		}
		if out.UsingSuggestion {
			s.suggestions.Add(1)
		}
	} else {
		s.errors.Add(1)
	}

	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.statusCodes[status]++
	s.mu.Unlock()
}

// Run issues search requests from cfg.Concurrency workers until
// cfg.Duration elapses or ctx is cancelled.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if len(cfg.Queries) == 0 {
		cfg.Queries = DefaultQueries
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	base = base.JoinPath("/api/v1/search")

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	stats := NewStats()
	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Concurrency; w++ {
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i++ {
				u := *base
				u.RawQuery = url.Values{
					"q":     {cfg.Queries[i%len(cfg.Queries)]},
					"limit": {fmt.Sprint(cfg.Limit)},
				}.Encode()
				query(ctx, client, u.String(), stats)
			}
			return nil
		})
	}
	_ = g.Wait()

	return stats.Report(time.Since(start)), nil
}

func query(ctx context.Context, client *http.Client, target string, stats *Stats) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		stats.Record(0, 0, searchOutcome{}, err)
		return
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		// The deadline ending the run is not a failure.
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return
		}
		stats.Record(time.Since(start), 0, searchOutcome{}, err)
		return
	}
	defer resp.Body.Close()

	var out searchOutcome
	if resp.StatusCode == http.StatusOK {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	io.Copy(io.Discard, resp.Body)
	stats.Record(time.Since(start), resp.StatusCode, out, nil)
}

// Report is the summary of a run.
type Report struct {
	Elapsed     time.Duration
	Total       int64
	Success     int64
	Errors      int64
	CacheHits   int64
	Suggestions int64
	Min         time.Duration
	Avg         time.Duration
	P50         time.Duration
	P90         time.Duration
	P99         time.Duration
	Max         time.Duration
	StdDev      time.Duration
	StatusCodes map[int]int64
}

// Report summarizes the stats collected over elapsed.
func (s *Stats) Report(elapsed time.Duration) *Report {
	r := &Report{
		Elapsed:     elapsed,
		Total:       s.total.Load(),
		Success:     s.success.Load(),
		Errors:      s.errors.Load(),
		CacheHits:   s.cacheHits.Load(),
		Suggestions: s.suggestions.Load(),
		StatusCodes: make(map[int]int64),
	}

	s.mu.Lock()
	latencies := slices.Clone(s.latencies)
	for code, n := range s.statusCodes {
		r.StatusCodes[code] = n
	}
	s.mu.Unlock()

	if len(latencies) == 0 {
		return r
	}
	slices.Sort(latencies)

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	r.Avg = sum / time.Duration(len(latencies))
	r.Min = latencies[0]
	r.Max = latencies[len(latencies)-1]
	r.P50 = percentile(latencies, 50)
	r.P90 = percentile(latencies, 90)
	r.P99 = percentile(latencies, 99)

	var sq float64
	for _, l := range latencies {
		diff := float64(l - r.Avg)
		sq += diff * diff
	}
	r.StdDev = time.Duration(math.Sqrt(sq / float64(len(latencies))))
	return r
}

// Write prints the report in a fixed text layout.
func (r *Report) Write(w io.Writer) {
	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", r.Total)
	fmt.Fprintf(w, "Successful:      %d\n", r.Success)
	fmt.Fprintf(w, "Errors:          %d\n", r.Errors)
	fmt.Fprintf(w, "Cache Hits:      %d\n", r.CacheHits)
	fmt.Fprintf(w, "Suggestions:     %d\n", r.Suggestions)
	if r.Total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(r.Errors)/float64(r.Total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(r.Total)/r.Elapsed.Seconds())
	}

	if r.Max > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", r.Min)
		fmt.Fprintf(w, "Avg:    %s\n", r.Avg)
		fmt.Fprintf(w, "P50:    %s\n", r.P50)
		fmt.Fprintf(w, "P90:    %s\n", r.P90)
		fmt.Fprintf(w, "P99:    %s\n", r.P99)
		fmt.Fprintf(w, "Max:    %s\n", r.Max)
		fmt.Fprintf(w, "StdDev: %s\n", r.StdDev)
	}

	codes := make([]int, 0, len(r.StatusCodes))
	for code := range r.StatusCodes {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, r.StatusCodes[code])
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
