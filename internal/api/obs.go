package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/arencloud/cloudgate/internal/logging"
	"github.com/go-chi/chi/v5"
)

type metrics struct {
	started         time.Time
	totalRequests   atomic.Uint64
	total4xx        atomic.Uint64
	total5xx        atomic.Uint64
	bytesIn         atomic.Uint64
	bytesOut        atomic.Uint64
	totalDurationNs atomic.Uint64
}

func newMetrics() *metrics { return &metrics{started: time.Now()} }

func (m *metrics) observe(t *Trace) {
	m.totalRequests.Add(1)
	if t.ReqBytes > 0 {
		m.bytesIn.Add(uint64(t.ReqBytes))
	}
	if t.RespBytes > 0 {
		m.bytesOut.Add(uint64(t.RespBytes))
	}
	m.totalDurationNs.Add(uint64(t.Duration))
	if t.Status >= 500 {
		m.total5xx.Add(1)
	} else if t.Status >= 400 {
		m.total4xx.Add(1)
	}
}

func (s *Server) registerObs(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(s.requireObsToken)
		r.Get("/obs/metrics", s.metricsHandler)
		r.Get("/trace/recent", s.traceRecent)
		r.Get("/trace/{id}", s.traceGet)
		r.Get("/logs/recent", logsRecent)
		r.Get("/logs/download", logsDownload)
		r.Get("/logs/level", logsGetLevel)
		r.Put("/logs/level", logsSetLevel)
	})
}

// requireObsToken admits requests carrying "Authorization: Bearer OBS_TOKEN".
// Without a configured token the endpoints are closed.
func (s *Server) requireObsToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.ObsToken == "" {
			respondError(w, r, http.StatusForbidden, "forbidden")
			return
		}
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.ObsToken)) != 1 {
			respondError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptime := time.Since(s.metrics.started)
	tr := s.metrics.totalRequests.Load()
	avgMs := 0.0
	if tr > 0 {
		avgMs = float64(s.metrics.totalDurationNs.Load()) / float64(tr) / 1e6
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"uptimeSec":      uptime.Seconds(),
		"uptimeHuman":    uptime.Truncate(time.Second).String(),
		"startedAt":      s.metrics.started.Format(time.RFC3339),
		"goroutines":     runtime.NumGoroutine(),
		"heapAlloc":      m.HeapAlloc,
		"activeSessions": s.sessions.count(),
		"activeStreams":  s.sessions.streams(),
		"totalRequests":  tr,
		"total4xx":       s.metrics.total4xx.Load(),
		"total5xx":       s.metrics.total5xx.Load(),
		"bytesIn":        s.metrics.bytesIn.Load(),
		"bytesOut":       s.metrics.bytesOut.Load(),
		"avgDurationMs":  avgMs,
	})
}

func limitParam(r *http.Request, def int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return def
}

// logsRecent returns recent structured logs, newest first.
func logsRecent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, logging.Recent(limitParam(r, 200)))
}

// logsDownload returns recent logs as NDJSON for easy download
func logsDownload(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-store")
	enc := json.NewEncoder(w)
	for _, e := range logging.Recent(limitParam(r, 1000)) {
		_ = enc.Encode(e)
	}
}

func logsGetLevel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"level": logging.GetLevel()})
}

// logsSetLevel updates global log level
func logsSetLevel(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Level string `json:"level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if in.Level == "" {
		respondError(w, r, http.StatusBadRequest, "level required")
		return
	}
	logging.SetLevel(in.Level)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "level": logging.GetLevel()})
}
