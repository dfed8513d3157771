package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/arencloud/cloudgate/internal/clipboard"
	"github.com/arencloud/cloudgate/internal/notify"
	"github.com/arencloud/cloudgate/internal/onboarding"
	"github.com/google/uuid"
)

const sessionCookie = "cgsess"

// session is one browser's onboarding run. mu serializes every request that
// touches onb; feed is safe on its own.
type session struct {
	mu       sync.Mutex
	id       string
	onb      *onboarding.Session
	feed     *notify.Feed
	clip     *clipboard.Memory
	lastSeen time.Time
}

// very small in-memory session store
type sessionStore struct {
	mu     sync.Mutex
	items  map[string]*session
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	build  func(feed *notify.Feed, clip clipboard.Clipboard) *onboarding.Session
}

func newSessionStore(secret string, ttl time.Duration, build func(*notify.Feed, clipboard.Clipboard) *onboarding.Session) *sessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &sessionStore{items: map[string]*session{}, secret: []byte(secret), ttl: ttl, now: time.Now, build: build}
}

func (s *sessionStore) sign(value string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func (s *sessionStore) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id + "." + s.sign(id),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  s.now().Add(s.ttl),
	})
}

// lookup returns the session named by a validly signed cookie.
func (s *sessionStore) lookup(r *http.Request) *session {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}
	id, sig, ok := strings.Cut(c.Value, ".")
	if !ok || id == "" || !hmac.Equal([]byte(sig), []byte(s.sign(id))) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.items[id]
	if !ok {
		return nil
	}
	if s.now().Sub(sess.lastSeen) > s.ttl {
		delete(s.items, id)
		return nil
	}
	sess.lastSeen = s.now()
	return sess
}

// ensure returns the caller's session, starting a new one if needed.
func (s *sessionStore) ensure(w http.ResponseWriter, r *http.Request) *session {
	if sess := s.lookup(r); sess != nil {
		return sess
	}
	feed := notify.NewFeed(100)
	clip := &clipboard.Memory{}
	sess := &session{id: uuid.NewString(), feed: feed, clip: clip, lastSeen: s.now()}
	sess.onb = s.build(feed, clip)
	s.mu.Lock()
	s.sweep()
	s.items[sess.id] = sess
	s.mu.Unlock()
	s.setCookie(w, sess.id)
	return sess
}

// sweep drops idle sessions. Callers hold mu.
func (s *sessionStore) sweep() {
	now := s.now()
	for id, sess := range s.items {
		if now.Sub(sess.lastSeen) > s.ttl {
			delete(s.items, id)
		}
	}
}

func (s *sessionStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// streams counts open notification streams across sessions.
func (s *sessionStore) streams() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sess := range s.items {
		n += sess.feed.Subscribers()
	}
	return n
}
