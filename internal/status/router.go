// Package status exposes a small read-only HTTP surface for operators and
// health probes. It never touches lobby state directly; everything it reports
// comes from a point-in-time snapshot.
package status

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mcoot/flightlobby/internal/middleware"
	"github.com/mcoot/flightlobby/internal/model"
	"github.com/mcoot/flightlobby/internal/server"
	"github.com/mcoot/flightlobby/internal/storage"
)

// Provider supplies server state snapshots for the status surface.
type Provider interface {
	Snapshot() server.Snapshot
}

// RouterConfig holds configuration for the status router
type RouterConfig struct {
	Logger      *slog.Logger
	Provider    Provider
	Transcripts storage.Storage
}

// statusResponse is the JSON shape of GET /status.
type statusResponse struct {
	UptimeSeconds float64 `json:"uptime_seconds"`
	Players       int     `json:"players"`
	Rooms         int     `json:"rooms"`
	Games         int     `json:"games"`
	State         string  `json:"state"`
}

// NewRouter creates the status router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		snap := cfg.Provider.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(statusResponse{
			UptimeSeconds: snap.Uptime.Seconds(),
			Players:       snap.Players,
			Rooms:         snap.Rooms,
			Games:         snap.Games,
			State:         snap.State.String(),
		})
	}).Methods(http.MethodGet)

	r.HandleFunc("/transcript", func(w http.ResponseWriter, req *http.Request) {
		day := time.Now()
		if q := req.URL.Query().Get("day"); q != "" {
			parsed, err := time.Parse("2006-01-02", q)
			if err != nil {
				http.Error(w, "day must be formatted YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			day = parsed
		}

		records, err := cfg.Transcripts.ChatForDay(req.Context(), day)
		if err != nil {
			if errors.Is(err, model.ErrNoTranscript) {
				http.Error(w, "no transcript for that day", http.StatusNotFound)
				return
			}
			cfg.Logger.Error("transcript read failed", slog.String("error", err.Error()))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(records)
	}).Methods(http.MethodGet)

	return r
}
