// Package status exposes live run progress over HTTP while an enrichment
// run is in flight.
package status

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/listings-cli/internal/enrich"
)

// NewRouter builds the status API: GET /healthz and GET /progress.
func NewRouter(progress *enrich.Progress) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	r.Get("/progress", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, progress.Snapshot())
	})

	return r
}

// Serve runs the status server until ctx is cancelled, then shuts it down
// gracefully. Intended to run in a goroutine alongside the scheduler.
func Serve(ctx context.Context, addr string, progress *enrich.Progress) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(progress),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("status server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "status: server listen")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
