package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/arencloud/cloudgate/internal/config"
	"github.com/arencloud/cloudgate/internal/notify"
)

type sseEvent struct {
	id uint64
	n  notify.Notification
}

// openStream starts a notification stream for c's session. Cancel the
// returned context to disconnect.
func openStream(t *testing.T, c *client, lastID string) (*bufio.Reader, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req, _ := http.NewRequestWithContext(ctx, "GET", c.base+"/onboarding/notifications/stream", nil)
	if lastID != "" {
		req.Header.Set("Last-Event-ID", lastID)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		t.Fatal(err)
	}
	t.Cleanup(func() {
		cancel()
		resp.Body.Close()
	})
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type=%q", ct)
	}
	return bufio.NewReader(resp.Body), cancel
}

func readEvent(t *testing.T, rd *bufio.Reader) sseEvent {
	t.Helper()
	var ev sseEvent
	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			t.Fatalf("read event: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			return ev
		case strings.HasPrefix(line, "id: "):
			ev.id, _ = strconv.ParseUint(strings.TrimPrefix(line, "id: "), 10, 64)
		case strings.HasPrefix(line, "data: "):
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev.n); err != nil {
				t.Fatalf("data: %v", err)
			}
		}
	}
}

func TestNotificationStream(t *testing.T) {
	ts, _ := setupTestServer(t)
	c := newClient(t, ts.URL)
	c.do("POST", "/onboarding/signup", johnForm, nil)
	c.do("POST", "/onboarding/complete", nil, nil)

	rd, cancel := openStream(t, c, "")
	first, second := readEvent(t, rd), readEvent(t, rd)
	if first.n.Title != "Account created!" || second.n.Title != "No providers connected" {
		t.Fatalf("backlog=%+v %+v", first.n, second.n)
	}
	if first.id != first.n.Seq || second.id <= first.id {
		t.Fatalf("ids %d %d", first.id, second.id)
	}

	c.do("POST", "/onboarding/dialog", map[string]string{"provider": "aws"}, nil)
	c.do("PUT", "/onboarding/dialog/fields", map[string]any{"handle": "my-aws"}, nil)
	c.do("POST", "/onboarding/dialog/submit", nil, nil)
	live := readEvent(t, rd)
	if live.id <= second.id || live.n.Title != "Connection successful!" {
		t.Fatalf("live=%d %+v", live.id, live.n)
	}

	obs := newClient(t, ts.URL)
	obs.bearer = obsToken
	streams := func() int {
		var m struct {
			ActiveStreams int `json:"activeStreams"`
		}
		obs.do("GET", "/obs/metrics", nil, &m)
		return m.ActiveStreams
	}
	if n := streams(); n != 1 {
		t.Fatalf("open streams=%d", n)
	}
	cancel()
	eventually(t, func() bool { return streams() == 0 })

	resumed, _ := openStream(t, c, strconv.FormatUint(first.id, 10))
	if ev := readEvent(t, resumed); ev.id != second.id {
		t.Fatalf("resume after %d delivered %d", first.id, ev.id)
	}
}

func TestSubmitReleasesSession(t *testing.T) {
	ts, _ := setupTestServer(t, func(cfg *config.Config) {
		cfg.ConnectDelay = time.Minute
		cfg.ConnectTimeout = 2 * time.Minute
	})
	c := newClient(t, ts.URL)
	c.do("POST", "/onboarding/signup", johnForm, nil)
	c.do("POST", "/onboarding/dialog", map[string]string{"provider": "azure"}, nil)
	c.do("PUT", "/onboarding/dialog/fields", map[string]any{"handle": "my-azure"}, nil)

	type outcome struct {
		code int
		body errorBody
	}
	done := make(chan outcome, 1)
	go func() {
		var o outcome
		o.code = c.do("POST", "/onboarding/dialog/submit", nil, &o.body)
		done <- o
	}()

	eventually(t, func() bool {
		var view struct {
			State string `json:"state"`
		}
		c.do("GET", "/onboarding/dialog", nil, &view)
		return view.State == "submitting"
	})
	var e errorBody
	if code := c.do("POST", "/onboarding/dialog", map[string]string{"provider": "gcp"}, &e); code != 409 || e.Error != "DIALOG_BUSY" {
		t.Fatalf("open while connecting: %d %+v", code, e)
	}
	if code := c.do("PUT", "/onboarding/dialog/fields", map[string]any{"handle": "other"}, &e); code != 409 || e.Error != "DIALOG_BUSY" {
		t.Fatalf("edit while connecting: %d %+v", code, e)
	}
	if code := c.do("DELETE", "/onboarding/dialog", nil, nil); code != 204 {
		t.Fatalf("cancel: %d", code)
	}
	select {
	case o := <-done:
		if o.code != 502 || o.body.Error != "REMOTE_ERROR" {
			t.Fatalf("submit after cancel: %d %+v", o.code, o.body)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("submit did not return after cancel")
	}
	var one providerView
	if c.do("GET", "/providers/azure", nil, &one); one.Connected {
		t.Fatal("a cancelled attempt must not connect")
	}
}
