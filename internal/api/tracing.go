package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"fmt"
	"sync"
	"time"

	"github.com/arencloud/cloudgate/internal/apperr"
	"github.com/arencloud/cloudgate/internal/models"
	"github.com/go-chi/chi/v5"
)

// A Trace follows one request: timing, size, the session it touched and the
// events handlers record along the way.

type TraceEvent struct {
	Time   time.Time      `json:"time"`
	Name   string         `json:"name"`
	Fields map[string]any `json:"fields,omitempty"`
}

type Trace struct {
	ID        string        `json:"id"`
	Method    string        `json:"method"`
	Path      string        `json:"path"`
	Status    int           `json:"status"`
	SessionID string        `json:"sessionId,omitempty"`
	UserAgent string        `json:"userAgent,omitempty"`
	RemoteIP  string        `json:"remoteIp,omitempty"`
	ReqBytes  int64         `json:"reqBytes,omitempty"`
	RespBytes int64         `json:"respBytes,omitempty"`
	Started   time.Time     `json:"started"`
	Ended     time.Time     `json:"ended"`
	Duration  time.Duration `json:"duration"`
	Events    []TraceEvent  `json:"events"`
}

type traceStore struct {
	mu   sync.RWMutex
	buf  []*Trace
	next int
	size int
}

func newTraceStore(size int) *traceStore {
	return &traceStore{buf: make([]*Trace, size), size: size}
}

func (s *traceStore) add(t *Trace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf[s.next] = t
	s.next = (s.next + 1) % s.size
}

func (s *traceStore) all(limit int) []*Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > s.size {
		limit = s.size
	}
	out := make([]*Trace, 0, limit)
	// walk ring newest-first
	idx := (s.next - 1 + s.size) % s.size
	for i := 0; i < s.size && len(out) < limit; i++ {
		if s.buf[idx] != nil {
			out = append(out, s.buf[idx])
		}
		idx = (idx - 1 + s.size) % s.size
	}
	return out
}

func (s *traceStore) get(id string) *Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.buf {
		if t != nil && t.ID == id {
			return t
		}
	}
	return nil
}

// persistTrace writes the finished trace to the store, when there is one.
func (s *Server) persistTrace(t *Trace) {
	if t == nil || s.store == nil {
		return
	}
	row, evs := t.rows()
	if err := s.store.SaveTrace(context.Background(), row, evs); err != nil {
		s.logger.Error("persist trace", "traceId", t.ID, "error", err.Error())
	}
}

func (t *Trace) rows() (models.TraceRow, []models.TraceEventRow) {
	row := models.TraceRow{
		ID: t.ID, Method: t.Method, Path: t.Path, Status: t.Status, SessionID: t.SessionID,
		UserAgent: t.UserAgent, RemoteIP: t.RemoteIP, ReqBytes: t.ReqBytes, RespBytes: t.RespBytes,
		Started: t.Started, Ended: t.Ended, DurationNs: int64(t.Duration),
	}
	evs := make([]models.TraceEventRow, 0, len(t.Events))
	for _, ev := range t.Events {
		b, _ := json.Marshal(ev.Fields)
		evs = append(evs, models.TraceEventRow{Time: ev.Time, Name: ev.Name, Fields: string(b)})
	}
	return row, evs
}

// traceOf rebuilds a trace from stored rows.
func traceOf(row models.TraceRow, evs []models.TraceEventRow) *Trace {
	t := &Trace{
		ID: row.ID, Method: row.Method, Path: row.Path, Status: row.Status, SessionID: row.SessionID,
		UserAgent: row.UserAgent, RemoteIP: row.RemoteIP, ReqBytes: row.ReqBytes, RespBytes: row.RespBytes,
		Started: row.Started, Ended: row.Ended, Duration: time.Duration(row.DurationNs),
		Events: make([]TraceEvent, 0, len(evs)),
	}
	for _, e := range evs {
		var f map[string]any
		if e.Fields != "" {
			_ = json.Unmarshal([]byte(e.Fields), &f)
		}
		t.Events = append(t.Events, TraceEvent{Time: e.Time, Name: e.Name, Fields: f})
	}
	return t
}

// Context helpers

type ctxKey int

const traceKey ctxKey = 1

func traceFrom(ctx context.Context) *Trace {
	if v := ctx.Value(traceKey); v != nil {
		if t, ok := v.(*Trace); ok {
			return t
		}
	}
	return nil
}

func withTraceCtx(ctx context.Context, t *Trace) context.Context {
	return context.WithValue(ctx, traceKey, t)
}

func newTraceID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }

func addEvent(r *http.Request, name string, fields map[string]any) {
	if t := traceFrom(r.Context()); t != nil {
		t.Events = append(t.Events, TraceEvent{Time: time.Now(), Name: name, Fields: fields})
	}
}

type errorBody struct {
	Error   apperr.Code    `json:"error"`
	Title   string         `json:"title,omitempty"`
	Message string         `json:"message"`
	Issues  []apperr.Issue `json:"issues,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError records an error event into the current trace and writes an HTTP error.
func respondError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	addEvent(r, "error", map[string]any{"code": code, "message": msg})
	writeJSON(w, code, errorBody{Error: apperr.CodeUnknown, Message: msg})
}

// respondErr maps a core error onto a status code and a coded body.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	var remote *apperr.RemoteError
	if errors.As(err, &remote) {
		addEvent(r, "error", map[string]any{"code": http.StatusBadGateway, "message": err.Error()})
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "REMOTE_ERROR", Title: "Connection failed", Message: err.Error()})
		return
	}
	var e *apperr.Error
	if !errors.As(err, &e) {
		respondError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	code := http.StatusBadRequest
	switch e.Code {
	case apperr.CodeWrongStep, apperr.CodeNoProviders, apperr.CodeDialogBusy, apperr.CodeDialogClosed:
		code = http.StatusConflict
	case apperr.CodeNoDialog:
		code = http.StatusNotFound
	}
	addEvent(r, "error", map[string]any{"code": code, "error": string(e.Code), "message": e.Message})
	writeJSON(w, code, errorBody{Error: e.Code, Title: e.Title, Message: e.Message, Issues: e.Issues})
}

// traceRecent lists recent traces, from the store when there is one.
func (s *Server) traceRecent(w http.ResponseWriter, r *http.Request) {
	limit := limitParam(r, 200)
	if s.store == nil {
		writeJSON(w, http.StatusOK, s.traces.all(limit))
		return
	}
	rows, err := s.store.RecentTraces(r.Context(), limit)
	if err != nil {
		respondErr(w, r, fmt.Errorf("recent traces: %w", err))
		return
	}
	out := make([]*Trace, 0, len(rows))
	for _, row := range rows {
		out = append(out, traceOf(row, nil))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) traceGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if t := s.traces.get(id); t != nil {
		writeJSON(w, http.StatusOK, t)
		return
	}
	if s.store != nil {
		if row, evs, err := s.store.Trace(r.Context(), id); err == nil {
			writeJSON(w, http.StatusOK, traceOf(row, evs))
			return
		}
	}
	respondError(w, r, http.StatusNotFound, "trace "+id+" not found")
}
