package notify

import (
	"sync"
	"time"
)

// Feed keeps the last notifications of one session in a ring buffer and
// streams new ones to subscribers.
type Feed struct {
	mu   sync.RWMutex
	buf  []*Notification
	next int
	seq  uint64
	now  func() time.Time

	subMu sync.RWMutex
	subs  map[chan Notification]struct{}
}

// NewFeed returns a feed retaining up to size notifications.
func NewFeed(size int) *Feed {
	if size <= 0 {
		size = 100
	}
	return &Feed{buf: make([]*Notification, size), now: time.Now, subs: map[chan Notification]struct{}{}}
}

func (f *Feed) Notify(kind Kind, title, message string) {
	f.mu.Lock()
	f.seq++
	n := &Notification{Seq: f.seq, Time: f.now(), Kind: kind, Title: title, Message: message}
	f.buf[f.next] = n
	f.next = (f.next + 1) % len(f.buf)
	f.mu.Unlock()

	f.subMu.RLock()
	defer f.subMu.RUnlock()
	for ch := range f.subs {
		select {
		case ch <- *n:
		default: // drop if slow
		}
	}
}

// Since returns retained notifications with Seq > after, oldest first.
func (f *Feed) Since(after uint64) []Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := []Notification{}
	size := len(f.buf)
	for i := 0; i < size; i++ {
		n := f.buf[(f.next+i)%size]
		if n != nil && n.Seq > after {
			out = append(out, *n)
		}
	}
	return out
}

// Last returns the most recent notification, if any.
func (f *Feed) Last() (Notification, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := f.buf[(f.next-1+len(f.buf))%len(f.buf)]
	if n == nil {
		return Notification{}, false
	}
	return *n, true
}

// Subscribe returns a channel receiving new notifications. Call cancel to unsubscribe.
func (f *Feed) Subscribe() (<-chan Notification, func()) {
	ch := make(chan Notification, 16)
	f.subMu.Lock()
	f.subs[ch] = struct{}{}
	f.subMu.Unlock()
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.subMu.Lock()
			delete(f.subs, ch)
			close(ch)
			f.subMu.Unlock()
		})
	}
	return ch, cancel
}

func (f *Feed) Subscribers() int {
	f.subMu.Lock()
	defer f.subMu.Unlock()
	return len(f.subs)
}
