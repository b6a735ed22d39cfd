package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/liveprobe/internal/conn"
	"github.com/hamed0406/liveprobe/internal/domain"
	apimw "github.com/hamed0406/liveprobe/internal/httpapi/middleware"
	"github.com/hamed0406/liveprobe/internal/probe"
	"github.com/hamed0406/liveprobe/internal/repo"
)

type Server struct {
	Logger   *zap.Logger
	Targets  repo.TargetStore
	Statuses repo.StatusStore
	Checker  probe.Checker
	Defaults probe.ConnectionSettings
	// ProbeTimeout bounds the synchronous probes run by the API.
	ProbeTimeout time.Duration
	// Supports rejects targets no adapter can probe.
	Supports func(target string) error
}

func NewServer(l *zap.Logger, ts repo.TargetStore, ss repo.StatusStore, c probe.Checker) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{
		Logger:       l,
		Targets:      ts,
		Statuses:     ss,
		Checker:      c,
		Defaults:     probe.DefaultSettings(),
		ProbeTimeout: 10 * time.Second,
		Supports:     conn.Supports,
	}
}

// Router wires the routes. Reads need any key, writes an admin key; each
// group has its own per-IP rate limit. An empty corsOrigins allows all.
func (s *Server) Router(keys apimw.Keys, corsOrigins []string, readRPM, readBurst, writeRPM, writeBurst int) http.Handler {
	r := chi.NewRouter()
	if len(corsOrigins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(apimw.RateLimit(readRPM, readBurst), apimw.RequireAny(keys))
			r.Get("/targets", s.handleListTargets)
			r.Get("/status", s.handleStatus)
		})
		r.Group(func(r chi.Router) {
			r.Use(apimw.RateLimit(writeRPM, writeBurst), apimw.RequireAdmin(keys))
			r.Post("/targets", s.handleAddTarget)
			r.Delete("/targets/{id}", s.handleDeleteTarget)
			r.Post("/targets/{id}/probe", s.handleProbeTarget)
		})
	})

	return r
}

type addPayload struct {
	URL          string `json:"url"`
	Name         string `json:"name"`
	Login        string `json:"login"`
	Password     string `json:"password"`
	RetryLimit   *int   `json:"retry_limit"`
	RetryDelayMS *int64 `json:"retry_delay_ms"`
}

func (s *Server) handleAddTarget(w http.ResponseWriter, r *http.Request) {
	var p addPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}

	t := &domain.Target{
		Name:         strings.TrimSpace(p.Name),
		URL:          normalizeTarget(p.URL),
		Login:        p.Login,
		Password:     p.Password,
		RetryLimit:   p.RetryLimit,
		RetryDelayMS: p.RetryDelayMS,
	}
	cfg, err := t.ProbeConfig(s.Defaults)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.Supports(cfg.Target); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.Targets.Add(r.Context(), t); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.Logger.Error("add_target_error", zap.String("url", cfg.Redacted()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not add")
		return
	}

	// Run a single check synchronously for immediate feedback
	st := s.probe(r.Context(), t, cfg)

	// If the probe fails, say whether the host even resolves
	if !st.Status.Up() && st.Status != probe.StatusCanceled {
		dns := probe.DiagnoseDNS(r.Context(), cfg.Target)
		s.Logger.Info("dns_check",
			zap.String("domain", dns.Domain),
			zap.String("class", dns.Class),
			zap.Bool("has_a_or_aaaa", dns.HasAOrAAAA),
			zap.Strings("nameservers", dns.Nameservers),
			zap.String("cname", dns.CNAME),
			zap.String("resolver_error", dns.ResolverError),
		)
		st.Description = strings.TrimSpace(st.Description + " dns=" + dns.Class)
	}
	s.record(r.Context(), st)

	s.Logger.Info("added_target",
		zap.String("target_id", string(t.ID)),
		zap.String("url", cfg.Redacted()),
		zap.String("status", string(st.Status)),
		zap.Float64("latency_ms", st.LatencyMS),
	)

	writeJSON(w, http.StatusCreated, map[string]any{
		"target": t, "status": st,
	})
}

func (s *Server) handleDeleteTarget(w http.ResponseWriter, r *http.Request) {
	id := domain.TargetID(chi.URLParam(r, "id"))
	err := s.Targets.Delete(r.Context(), id)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, "target not found")
	case err != nil:
		s.Logger.Error("delete_target_error", zap.String("target_id", string(id)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not delete")
	default:
		s.Logger.Info("deleted_target", zap.String("target_id", string(id)))
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleProbeTarget probes a registered target right away. Dropping the
// request cancels the probe.
func (s *Server) handleProbeTarget(w http.ResponseWriter, r *http.Request) {
	id := domain.TargetID(chi.URLParam(r, "id"))
	t, err := s.Targets.Get(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "target not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup error")
		return
	}
	cfg, err := t.ProbeConfig(s.Defaults)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	st := s.probe(r.Context(), t, cfg)
	s.record(r.Context(), st)
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	ts, err := s.Targets.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list error")
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	rows, err := s.Statuses.Latest(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "status error")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) probe(ctx context.Context, t *domain.Target, cfg probe.Config) *domain.TargetStatus {
	if s.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.ProbeTimeout)
		defer cancel()
	}
	res := s.Checker.Check(ctx, cfg)
	return domain.NewTargetStatus(t, res, time.Now().UTC())
}

func (s *Server) record(ctx context.Context, st *domain.TargetStatus) {
	// the request may be gone by now; the status is still worth keeping
	if err := s.Statuses.Set(context.WithoutCancel(ctx), st); err != nil {
		s.Logger.Warn("status_store_error", zap.String("target_id", string(st.TargetID)), zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
