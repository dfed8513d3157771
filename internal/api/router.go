package api

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/arencloud/cloudgate/internal/clipboard"
	"github.com/arencloud/cloudgate/internal/config"
	"github.com/arencloud/cloudgate/internal/db"
	"github.com/arencloud/cloudgate/internal/logging"
	"github.com/arencloud/cloudgate/internal/notify"
	"github.com/arencloud/cloudgate/internal/onboarding"
	"github.com/arencloud/cloudgate/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

type statusRecorder struct {
	http.ResponseWriter
	code  int
	bytes int64
}

func (sr *statusRecorder) WriteHeader(statusCode int) {
	sr.code = statusCode
	sr.ResponseWriter.WriteHeader(statusCode)
}
func (sr *statusRecorder) Write(b []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += int64(n)
	return n, err
}

// Flush lets the notification stream push events through the recorder.
func (sr *statusRecorder) Flush() {
	if fl, ok := sr.ResponseWriter.(http.Flusher); ok {
		fl.Flush()
	}
}

// Server hosts onboarding sessions over HTTP. store may be nil, which
// disables the handoff and trace persistence.
type Server struct {
	cfg      *config.Config
	logger   logging.Logger
	store    *db.Store
	sessions *sessionStore
	traces   *traceStore
	metrics  *metrics
}

func NewServer(cfg *config.Config, logger logging.Logger, store *db.Store) *Server {
	s := &Server{cfg: cfg, logger: logger, store: store, traces: newTraceStore(1000), metrics: newMetrics()}
	s.sessions = newSessionStore(cfg.SessionSecret, cfg.SessionTTL, s.newSession)
	return s
}

func (s *Server) newSession(feed *notify.Feed, clip clipboard.Clipboard) *onboarding.Session {
	var h onboarding.Handoff
	if s.cfg.HandoffEnabled && s.store != nil {
		h = s.store
	}
	return onboarding.FromConfig(s.cfg, notify.Multi(feed, notify.Log(s.logger)), clip, h, s.logger)
}

func Router(cfg *config.Config, logger logging.Logger, store *db.Store) http.Handler {
	return NewServer(cfg, logger, store).Handler()
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}, AllowedHeaders: []string{"*"}}))
	r.Use(s.trace)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("ok")) })

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"name": "cloudgate", "version": version.Version})
		})
		r.Route("/v1", func(r chi.Router) {
			s.registerProviders(r)
			s.registerOnboarding(r)
			s.registerObs(r)
		})
	})

	// Static from disk (no embed). If not found, serve index.html for SPA routing
	if s.cfg.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.cfg.StaticDir))
		r.Handle("/*", spaHandler(s.cfg.StaticDir, fs))
	}
	return r
}

// trace records every request into the ring buffer and the trace table and
// emits one structured log line.
func (s *Server) trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := newTraceID()
		t := &Trace{ID: id, Method: r.Method, Path: r.URL.Path, Started: time.Now(), Events: []TraceEvent{}}
		t.UserAgent = r.UserAgent()
		if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
			t.RemoteIP = ip
		} else {
			t.RemoteIP = r.RemoteAddr
		}
		if r.ContentLength > 0 {
			t.ReqBytes = r.ContentLength
		}
		w.Header().Set("X-Trace-Id", id)
		w.Header().Set("X-Request-Id", id)
		r = r.WithContext(withTraceCtx(r.Context(), t))
		addEvent(r, "request.start", map[string]any{"method": r.Method, "path": r.URL.Path})
		rec := &statusRecorder{ResponseWriter: w, code: 200}
		next.ServeHTTP(rec, r)
		t.Status = rec.code
		t.Ended = time.Now()
		t.Duration = t.Ended.Sub(t.Started)
		t.RespBytes = rec.bytes
		addEvent(r, "request.end", map[string]any{"status": rec.code, "respBytes": rec.bytes})
		s.metrics.observe(t)
		s.traces.add(t)
		s.persistTrace(t)
		s.logger.Info("http_request",
			"method", t.Method,
			"path", t.Path,
			"status", t.Status,
			"durationMs", float64(t.Duration)/1e6,
			"session", t.SessionID,
			"traceId", t.ID,
			"bytesIn", t.ReqBytes,
			"bytesOut", t.RespBytes,
		)
	})
}

type spa struct {
	dir  string
	next http.Handler
}

func spaHandler(dir string, next http.Handler) http.Handler {
	return &spa{dir: dir, next: next}
}

func (s *spa) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := filepath.Join(s.dir, filepath.Clean("/"+r.URL.Path))
	if info, err := os.Stat(p); err == nil && !info.IsDir() {
		s.next.ServeHTTP(w, r)
		return
	}
	// fallback to index.html
	http.ServeFile(w, r, filepath.Join(s.dir, "index.html"))
}
