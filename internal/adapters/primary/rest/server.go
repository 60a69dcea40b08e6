package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jupiterclapton/cenackle/services/board-service/internal/core/domain"
	"github.com/jupiterclapton/cenackle/services/board-service/internal/core/ports"
)

var pagesServed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "board_feed_pages_served_total",
	Help: "Page slices served, by listing and strategy.",
}, []string{"listing", "strategy"})

type Options struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	Auth           *Authenticator // nil disables bearer validation
}

type Server struct {
	service ports.FeedService
}

func NewServer(service ports.FeedService) *Server {
	return &Server{service: service}
}

// Router builds the HTTP surface: JSON API under /api/v1, plus /healthz and /metrics.
func (s *Server) Router(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/posts", func(r chi.Router) {
		if opts.RequestTimeout > 0 {
			r.Use(middleware.Timeout(opts.RequestTimeout))
		}
		if opts.Auth != nil {
			r.Use(opts.Auth.Middleware)
		}
		r.Get("/", s.listPosts)
		r.Get("/{postID}", s.getPost)
		r.Get("/{postID}/comments", s.listComments)
	})

	return otelhttp.NewHandler(r, "board-service",
		otelhttp.WithFilter(func(req *http.Request) bool {
			return req.URL.Path != "/healthz" && req.URL.Path != "/metrics"
		}))
}

// --- Handlers ---

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	strategy, err := domain.ParseStrategy(r.URL.Query().Get("strategy"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	page, err := s.service.ListPosts(r.Context(), ViewerFromContext(r.Context()), strategy, r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	pagesServed.WithLabelValues("posts", string(strategy)).Inc()
	writeJSON(w, http.StatusOK, toPageResponse(page, toFeedItemDTO))
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	postID, err := postIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	detail, err := s.service.GetPost(r.Context(), ViewerFromContext(r.Context()), postID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPostDetailDTO(detail))
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	postID, err := postIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	page, err := s.service.ListComments(r.Context(), postID, r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	pagesServed.WithLabelValues("comments", string(domain.StrategyRecent)).Inc()
	writeJSON(w, http.StatusOK, toPageResponse(page, toCommentDTO))
}

// --- Helpers ---

// postIDParam reads the route's post id. A value that is not a UUID cannot name a post.
func postIDParam(r *http.Request) (string, error) {
	id, err := uuid.Parse(chi.URLParam(r, "postID"))
	if err != nil {
		return "", domain.ErrPostNotFound
	}
	return id.String(), nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("❌ Failed to write response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// writeError maps domain errors to status codes. Internal causes are logged, never returned.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCursor):
		writeJSONError(w, http.StatusBadRequest, "invalid_cursor", err.Error())
	case errors.Is(err, domain.ErrInvalidStrategy):
		writeJSONError(w, http.StatusBadRequest, "invalid_strategy", err.Error())
	case errors.Is(err, domain.ErrPostNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", "post not found")
	case r.Context().Err() != nil:
		// Deadline: middleware.Timeout answers 504. Client gone: nobody to answer.
		slog.Debug("request aborted", "path", r.URL.Path, "error", err)
	default:
		slog.Error("❌ Request failed",
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}
