package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/conorfennell/lingoreview/internal/domain"
	"github.com/conorfennell/lingoreview/internal/storage"
	"github.com/conorfennell/lingoreview/internal/study"
	"github.com/conorfennell/lingoreview/internal/sync"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	engine *study.Engine
	store  storage.Store
	log    *slog.Logger
	router *http.ServeMux
}

// NewServer creates and configures a new server. store must route both scope
// kinds; migrations read from and write to it.
func NewServer(engine *study.Engine, store storage.Store, log *slog.Logger) *Server {
	s := &Server{
		engine: engine,
		store:  store,
		log:    log,
		router: http.NewServeMux(),
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.HandleFunc("GET /healthz", s.handleHealth())
	s.router.HandleFunc("POST /reviews", s.handlePostReview())
	s.router.HandleFunc("GET /deck", s.handleGetDeck())
	s.router.HandleFunc("GET /progress", s.handleGetProgress())
	s.router.HandleFunc("GET /lessons/{id}/stats", s.handleGetLessonStats())
	s.router.HandleFunc("POST /migrations", s.handlePostMigration())
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// handlePostReview applies one rating and returns the new review state.
func (s *Server) handlePostReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ev study.RatingEvent
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			s.writeError(w, domain.Invalid("body", err.Error()))
			return
		}
		state, err := s.engine.Rate(r.Context(), ev)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, state)
	}
}

// handleGetDeck returns the next study queue for a scope.
func (s *Server) handleGetDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		req := study.DeckRequest{
			LessonID: q.Get("lesson"),
			Type:     domain.ItemType(q.Get("type")),
		}
		var err error
		if req.FreshLimit, err = intParam(q.Get("fresh_limit"), "fresh_limit"); err != nil {
			s.writeError(w, err)
			return
		}
		if req.MaxSize, err = intParam(q.Get("max"), "max"); err != nil {
			s.writeError(w, err)
			return
		}

		d, err := s.engine.Deck(r.Context(), scopeParam(r), req)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, d)
	}
}

// handleGetProgress returns lesson and course stats for a scope.
func (s *Server) handleGetProgress() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := s.engine.Progress(r.Context(), scopeParam(r))
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, report)
	}
}

func (s *Server) handleGetLessonStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := s.engine.Lesson(r.Context(), scopeParam(r), r.PathValue("id"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, report)
	}
}

type migrationRequest struct {
	DeviceID  string `json:"device_id"`
	LearnerID string `json:"learner_id"`
}

// handlePostMigration promotes a device's history into a learner account.
func (s *Server) handlePostMigration() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req migrationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, domain.Invalid("body", err.Error()))
			return
		}
		device := domain.Scope{Kind: domain.ScopeDevice, ID: req.DeviceID}
		learner := domain.LearnerScope(req.LearnerID)
		for _, sc := range []domain.Scope{device, learner} {
			if err := sc.Validate(); err != nil {
				s.writeError(w, domain.Invalid(string(sc.Kind)+"_id", err.Error()))
				return
			}
		}

		res, err := sync.Promote(r.Context(), s.log, s.store, s.store, device, learner)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, res)
	}
}

func scopeParam(r *http.Request) domain.Scope {
	q := r.URL.Query()
	return domain.Scope{Kind: domain.ScopeKind(q.Get("kind")), ID: q.Get("scope")}
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.Invalid(name, "must be a non-negative integer")
	}
	return n, nil
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// writeError maps validation failures to 400, scopes this process does not
// hold to 404 and backend failures to 503.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Field: verr.Field})
	case errors.Is(err, storage.ErrScopeMismatch):
		s.writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case storage.IsAdapterError(err):
		s.log.Error("progress store failure", "error", err)
		s.writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "progress store unavailable"})
	default:
		s.log.Error("request failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to write response", "error", err)
	}
}
