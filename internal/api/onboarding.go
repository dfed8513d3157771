package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/arencloud/cloudgate/internal/apperr"
	"github.com/arencloud/cloudgate/internal/catalog"
	"github.com/arencloud/cloudgate/internal/credentials"
	"github.com/arencloud/cloudgate/internal/notify"
	"github.com/arencloud/cloudgate/internal/registration"
	"github.com/go-chi/chi/v5"
)

func (s *Server) registerOnboarding(r chi.Router) {
	r.Route("/onboarding", func(r chi.Router) {
		r.Get("/", s.locked(s.getState))
		r.Post("/signup", s.locked(s.signup))
		r.Route("/dialog", func(r chi.Router) {
			r.Get("/", s.locked(s.getDialog))
			r.Post("/", s.locked(s.openDialog))
			r.Delete("/", s.locked(s.cancelDialog))
			r.Put("/fields", s.locked(s.updateFields))
			r.Post("/regions", s.locked(s.updateRegions))
			r.Post("/external-id/copy", s.locked(s.copyExternalID))
			r.Post("/submit", s.submit)
		})
		r.Post("/complete", s.locked(s.complete))
		r.Get("/summary", s.locked(s.summary))
		r.Get("/notifications", s.notifications)
		r.Get("/notifications/stream", s.notificationStream)
	})
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session)

// locked resolves the caller's session and runs h while holding its lock.
func (s *Server) locked(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := s.sessions.ensure(w, r)
		if t := traceFrom(r.Context()); t != nil {
			t.SessionID = sess.id
		}
		sess.mu.Lock()
		defer sess.mu.Unlock()
		h(w, r, sess)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request, sess *session) {
	writeJSON(w, http.StatusOK, sess.onb.State())
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request, sess *session) {
	addEvent(r, "onboarding.signup", nil)
	var f registration.Form
	if !decode(w, r, &f) {
		return
	}
	if _, err := sess.onb.Signup(f); err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.onb.State())
}

func (s *Server) getDialog(w http.ResponseWriter, r *http.Request, sess *session) {
	d, err := sess.onb.Dialog()
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d.View())
}

func (s *Server) openDialog(w http.ResponseWriter, r *http.Request, sess *session) {
	var in struct {
		Provider string `json:"provider"`
	}
	if !decode(w, r, &in) {
		return
	}
	kind, err := catalog.ParseKind(in.Provider)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	addEvent(r, "dialog.open", map[string]any{"provider": kind.String()})
	d, err := sess.onb.OpenDialog(kind)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d.View())
}

func (s *Server) cancelDialog(w http.ResponseWriter, r *http.Request, sess *session) {
	if !sess.onb.CancelDialog() {
		respondErr(w, r, apperr.New(apperr.CodeNoDialog, "No dialog", "no connection form is open"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// updateFields applies a partial update: the handle, provider inputs by
// catalog key and the advanced options. Inputs are applied in key order and
// the first failure stops the update.
func (s *Server) updateFields(w http.ResponseWriter, r *http.Request, sess *session) {
	d, err := sess.onb.Dialog()
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var in struct {
		Handle  *string              `json:"handle"`
		Fields  map[string]string    `json:"fields"`
		Options *credentials.Options `json:"options"`
	}
	if !decode(w, r, &in) {
		return
	}
	if in.Handle != nil {
		if err := d.SetHandle(*in.Handle); err != nil {
			respondErr(w, r, err)
			return
		}
	}
	keys := make([]string, 0, len(in.Fields))
	for k := range in.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := d.SetField(k, in.Fields[k]); err != nil {
			respondErr(w, r, err)
			return
		}
	}
	if in.Options != nil {
		if err := d.SetOptions(*in.Options); err != nil {
			respondErr(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, d.View())
}

func (s *Server) updateRegions(w http.ResponseWriter, r *http.Request, sess *session) {
	d, err := sess.onb.Dialog()
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var in struct {
		Action string `json:"action"`
		Region string `json:"region"`
	}
	if !decode(w, r, &in) {
		return
	}
	switch in.Action {
	case "toggle":
		err = d.ToggleRegion(in.Region)
	case "all":
		err = d.SelectAllRegions()
	case "clear":
		err = d.ClearRegions()
	default:
		respondError(w, r, http.StatusBadRequest, "action must be toggle, all or clear")
		return
	}
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d.View())
}

// copyExternalID records the copy server side and returns the value; the
// browser owns the real clipboard.
func (s *Server) copyExternalID(w http.ResponseWriter, r *http.Request, sess *session) {
	d, err := sess.onb.Dialog()
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if err := d.CopyExternalID(); err != nil {
		respondErr(w, r, err)
		return
	}
	value, copies := sess.clip.Last()
	writeJSON(w, http.StatusOK, map[string]any{"externalId": value, "copies": copies})
}

// submit holds the session lock only to start and to finish the attempt, so
// the dialog can be read or cancelled while the connector runs.
func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.ensure(w, r)
	if t := traceFrom(r.Context()); t != nil {
		t.SessionID = sess.id
	}
	sess.mu.Lock()
	task, d, err := sess.onb.BeginSubmit(r.Context())
	sess.mu.Unlock()
	if err != nil {
		respondErr(w, r, err)
		return
	}
	addEvent(r, "dialog.submit", map[string]any{"provider": d.Kind().String()})
	<-task.Done()

	sess.mu.Lock()
	defer sess.mu.Unlock()
	res, err := sess.onb.FinishSubmit(d)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": res, "state": sess.onb.State()})
}

func (s *Server) complete(w http.ResponseWriter, r *http.Request, sess *session) {
	addEvent(r, "onboarding.complete", nil)
	sum, err := sess.onb.Complete(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request, sess *session) {
	sum, ok := sess.onb.Summary()
	if !ok {
		respondErr(w, r, apperr.New(apperr.CodeWrongStep, "Not available", "onboarding is not complete"))
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// notifications lists retained notifications after the given sequence number.
// It does not take the session lock, so polling works during a connect.
func (s *Server) notifications(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.ensure(w, r)
	var after uint64
	if v := r.URL.Query().Get("after"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "after must be a sequence number")
			return
		}
		after = n
	}
	writeJSON(w, http.StatusOK, sess.feed.Since(after))
}

// notificationStream streams notifications via Server-Sent Events
func (s *Server) notificationStream(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.ensure(w, r)
	fl, ok := w.(http.Flusher)
	if !ok {
		respondError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "keep-alive")
	write := func(n notify.Notification) {
		b, _ := json.Marshal(n)
		w.Write([]byte("id: " + strconv.FormatUint(n.Seq, 10) + "\ndata: "))
		w.Write(b)
		w.Write([]byte("\n\n"))
		fl.Flush()
	}
	ch, cancel := sess.feed.Subscribe()
	defer cancel()
	// send the backlog first
	var last uint64
	if v := r.Header.Get("Last-Event-ID"); v != "" {
		last, _ = strconv.ParseUint(v, 10, 64)
	}
	for _, n := range sess.feed.Since(last) {
		write(n)
		last = n.Seq
	}
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			if n.Seq > last {
				write(n)
				last = n.Seq
			}
		}
	}
}
