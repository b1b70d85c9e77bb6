package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StartServer serves /metrics for g on port in the background and returns
// its shutdown func.
func StartServer(port int, g prometheus.Gatherer) (shutdown func(context.Context) error) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", Handler(g))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("metrics server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	}()

	return server.Shutdown
}
