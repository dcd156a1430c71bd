package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/nri-news/brief-cli/internal/config"
	"github.com/nri-news/brief-cli/internal/model"
	"github.com/nri-news/brief-cli/internal/runlog"
	"github.com/nri-news/brief-cli/internal/store"
)

// Server exposes the bulletin store and run log read-only over HTTP so a
// presentation layer can consume persisted documents without touching the
// filesystem. It never writes anything.
type Server struct {
	store *store.Store
	log   runlog.Store
	cfg   config.ServerConfig
}

// New creates a Server over the given store and run log.
func New(st *store.Store, log runlog.Store, cfg config.ServerConfig) *Server {
	return &Server{store: st, log: log, cfg: cfg}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/index", s.handleIndex)
	r.Get("/api/bulletins/{region}/{date}/{period}", s.handleBulletin)
	r.Get("/api/outcomes/{region}/{period}", s.handleOutcomes)

	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	idx, err := s.store.ReadIndex()
	if err != nil {
		zap.L().Error("server: read index", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "index unavailable")
		return
	}
	writeJSON(w, http.StatusOK, idx)
}

func (s *Server) handleBulletin(w http.ResponseWriter, r *http.Request) {
	period, err := model.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid period")
		return
	}
	key := model.Key{
		Region: chi.URLParam(r, "region"),
		Date:   chi.URLParam(r, "date"),
		Period: period,
	}
	if err := key.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid bulletin key")
		return
	}

	b, err := s.store.Get(key)
	if err != nil {
		if errors.Is(err, store.ErrNotPublished) {
			writeError(w, http.StatusNotFound, "not published")
			return
		}
		zap.L().Error("server: read bulletin", zap.String("key", key.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "bulletin unavailable")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleOutcomes(w http.ResponseWriter, r *http.Request) {
	period, err := model.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid period")
		return
	}
	if s.log == nil {
		writeError(w, http.StatusNotFound, "run log not configured")
		return
	}

	outcomes, err := s.log.LastN(r.Context(), chi.URLParam(r, "region"), period, 10)
	if err != nil {
		zap.L().Error("server: read outcomes", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "outcomes unavailable")
		return
	}
	if outcomes == nil {
		outcomes = []model.Outcome{}
	}
	writeJSON(w, http.StatusOK, outcomes)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
