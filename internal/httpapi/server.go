package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"modelgate/internal/lifecycle"
	"modelgate/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Route(ctx context.Context, req types.ChatRequest) types.RoutingDecision
	Status() types.StatusResponse
	Stats() types.RoutingStats
	Models() types.ModelsResponse
	Unload(ctx context.Context, name string) error
	Health(ctx context.Context) types.HealthResponse
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	r.Use(MetricsMiddleware)

	r.With(RateLimitMiddleware).Post("/route", func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(req.Message) == "" && req.ExplicitMode == "" && req.ExplicitModel == "" {
			writeJSONError(w, http.StatusBadRequest, "message is required")
			return
		}
		if req.Timestamp.IsZero() {
			req.Timestamp = time.Now()
		}

		start := time.Now()
		lvl := requestLogLevel(r)
		if lvl >= LevelDebug && zlog != nil {
			z := zlog.Debug().Str("path", r.URL.Path).Str("mode", req.ExplicitMode).Str("model", req.ExplicitModel)
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				z = z.Str("request_id", rid)
			}
			z.Msg("route start")
		}
		ctx, cancel := handlerContext(r)
		defer cancel()
		dec := svc.Route(ctx, req)
		// Client gone or server shutting down: nobody to answer.
		if ctx.Err() != nil {
			return
		}
		if lvl >= LevelInfo && zlog != nil {
			z := zlog.Info().Str("model", dec.Model).Bool("fallback", dec.IsFallback).Dur("dur", time.Since(start))
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				z = z.Str("request_id", rid)
			}
			z.Msg("route end")
		}
		writeJSON(w, http.StatusOK, dec)
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Stats())
	})

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Models())
	})

	r.Delete("/models/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		ctx, cancel := handlerContext(r)
		defer cancel()
		if err := svc.Unload(ctx, name); err != nil {
			switch {
			case lifecycle.IsModelNotFound(err):
				writeJSONError(w, http.StatusNotFound, err.Error())
			case lifecycle.IsNotResident(err):
				writeJSONError(w, http.StatusConflict, err.Error())
			default:
				if he, ok := err.(HTTPError); ok {
					writeJSONError(w, he.StatusCode(), he.Error())
					return
				}
				writeJSONError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"unloaded": name})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		h := svc.Health(r.Context())
		status := http.StatusOK
		if h.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, h)
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}
