package api

import (
	"net/http"

	"github.com/arencloud/cloudgate/internal/catalog"
	"github.com/go-chi/chi/v5"
)

type providerView struct {
	catalog.Descriptor
	Connected bool `json:"connected"`
}

func (s *Server) registerProviders(r chi.Router) {
	r.Get("/providers", s.listProviders)
	r.Get("/providers/{kind}", s.getProvider)
}

// connectedSet reads the caller's connected providers without starting a session.
func (s *Server) connectedSet(r *http.Request) map[catalog.Kind]bool {
	out := map[catalog.Kind]bool{}
	sess := s.sessions.lookup(r)
	if sess == nil {
		return out
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	for _, k := range sess.onb.Connected() {
		out[k] = true
	}
	return out
}

func (s *Server) listProviders(w http.ResponseWriter, r *http.Request) {
	connected := s.connectedSet(r)
	items := make([]providerView, 0, catalog.Size())
	for _, d := range catalog.All() {
		items = append(items, providerView{Descriptor: d, Connected: connected[d.Kind]})
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) getProvider(w http.ResponseWriter, r *http.Request) {
	kind, err := catalog.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, providerView{Descriptor: catalog.MustLookup(kind), Connected: s.isConnected(r, kind)})
}

func (s *Server) isConnected(r *http.Request, kind catalog.Kind) bool {
	sess := s.sessions.lookup(r)
	if sess == nil {
		return false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.onb.IsConnected(kind)
}
