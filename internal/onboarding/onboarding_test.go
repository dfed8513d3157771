package onboarding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arencloud/cloudgate/internal/apperr"
	"github.com/arencloud/cloudgate/internal/catalog"
	"github.com/arencloud/cloudgate/internal/credentials"
	"github.com/arencloud/cloudgate/internal/notify"
	"github.com/arencloud/cloudgate/internal/registration"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/crypto/bcrypt"
)

var john = registration.Form{FirstName: "John", Email: "j@x.com", Password: "p1", ConfirmPassword: "p1", AgreeToTerms: true}

type recorder struct {
	titles []string
}

func (r *recorder) Notify(_ notify.Kind, title, _ string) { r.titles = append(r.titles, title) }

func newSession(t *testing.T, n notify.Notifier, h Handoff) *Session {
	t.Helper()
	return New(Config{
		Collector: registration.New(n, registration.WithBcryptCost(bcrypt.MinCost)),
		Dialog:    credentials.Config{Connector: credentials.Simulated{}},
		Notifier:  n,
		Handoff:   h,
	})
}

func connect(t *testing.T, s *Session, kind catalog.Kind) {
	t.Helper()
	d, err := s.OpenDialog(kind)
	if err != nil {
		t.Fatalf("open %s: %v", kind, err)
	}
	if err := d.SetHandle("my-" + kind.String() + "-connection"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatalf("submit %s: %v", kind, err)
	}
}

func TestProgressFormula(t *testing.T) {
	if Progress(Signup, 0, 4) != 0 || Progress(Complete, 0, 4) != 100 {
		t.Fatal("terminal steps must map to 0 and 100")
	}
	for n := 1; n <= 6; n++ {
		for k := 0; k <= n; k++ {
			want := 50 + 40*float64(k)/float64(n)
			if got := Progress(ConnectProviders, k, n); got != want {
				t.Fatalf("Progress(providers, %d, %d)=%v want %v", k, n, got, want)
			}
		}
	}
}

func TestEndToEnd(t *testing.T) {
	rec := &recorder{}
	var handed []Summary
	s := newSession(t, rec, HandoffFunc(func(_ context.Context, sum Summary) error {
		handed = append(handed, sum)
		return nil
	}))
	if s.Step() != Signup || s.Progress() != 0 {
		t.Fatalf("initial state %s %v", s.Step(), s.Progress())
	}
	if _, err := s.Signup(john); err != nil {
		t.Fatal(err)
	}
	if s.Step() != ConnectProviders || s.Progress() != 50 {
		t.Fatalf("after signup: %s %v", s.Step(), s.Progress())
	}

	connect(t, s, catalog.AWS)
	if diff := cmp.Diff([]catalog.Kind{catalog.AWS}, s.Connected()); diff != "" {
		t.Fatalf("connected:\n%s", diff)
	}
	if s.Progress() != 60 {
		t.Fatalf("progress=%v want 60", s.Progress())
	}

	for _, k := range []catalog.Kind{catalog.Azure, catalog.GCP, catalog.Oracle} {
		connect(t, s, k)
	}
	if len(s.Connected()) != 4 || s.Progress() != 90 {
		t.Fatalf("connected=%v progress=%v", s.Connected(), s.Progress())
	}

	sum, err := s.Complete(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if s.Step() != Complete || s.Progress() != 100 {
		t.Fatalf("after complete: %s %v", s.Step(), s.Progress())
	}
	if sum.ConnectedCount != 4 || sum.Registration.FirstName != "John" || len(handed) != 1 {
		t.Fatalf("summary=%+v handoffs=%d", sum, len(handed))
	}
	want := []string{
		"Account created!",
		"Connection successful!", "Amazon Web Services Connected!",
		"Connection successful!", "Microsoft Azure Connected!",
		"Connection successful!", "Google Cloud Platform Connected!",
		"Connection successful!", "Oracle Cloud Connected!",
		"Setup Complete!",
	}
	if diff := cmp.Diff(want, rec.titles); diff != "" {
		t.Fatalf("notifications (-want +got):\n%s", diff)
	}
	if _, err := s.Complete(context.Background()); apperr.CodeOf(err) != apperr.CodeWrongStep || len(handed) != 1 {
		t.Fatalf("second completion must be rejected, got %v", err)
	}
}

func TestInvalidSignupKeepsStep(t *testing.T) {
	s := newSession(t, nil, nil)
	bad := john
	bad.ConfirmPassword = "p2"
	if _, err := s.Signup(bad); !errors.Is(err, registration.ErrPasswordMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if s.Step() != Signup {
		t.Fatalf("step=%s", s.Step())
	}
	if _, err := s.OpenDialog(catalog.AWS); apperr.CodeOf(err) != apperr.CodeWrongStep {
		t.Fatalf("dialogs need the providers step, got %v", err)
	}
}

func TestCompleteRequiresProvider(t *testing.T) {
	rec := &recorder{}
	s := newSession(t, rec, nil)
	_, _ = s.Signup(john)
	before := s.State()
	if _, err := s.Complete(context.Background()); apperr.CodeOf(err) != apperr.CodeNoProviders {
		t.Fatalf("expected no providers, got %v", err)
	}
	if diff := cmp.Diff(before, s.State()); diff != "" {
		t.Fatalf("rejected completion changed state:\n%s", diff)
	}
	if rec.titles[len(rec.titles)-1] != "No providers connected" {
		t.Fatalf("titles=%v", rec.titles)
	}
}

func TestDuplicateConnectKeepsSetSemantics(t *testing.T) {
	s := newSession(t, nil, nil)
	_, _ = s.Signup(john)
	connect(t, s, catalog.GCP)
	first, _ := s.Connection(catalog.GCP)
	connect(t, s, catalog.GCP)
	if len(s.Connected()) != 1 || s.Progress() != 60 {
		t.Fatalf("connected=%v progress=%v", s.Connected(), s.Progress())
	}
	if got, _ := s.Connection(catalog.GCP); got.Handle != first.Handle {
		t.Fatal("the first connection result is kept")
	}
}

func TestEmptyHandleLeavesDialogOpen(t *testing.T) {
	s := newSession(t, nil, nil)
	_, _ = s.Signup(john)
	d, _ := s.OpenDialog(catalog.Azure)
	if _, err := s.Submit(context.Background()); apperr.CodeOf(err) != apperr.CodeHandleRequired {
		t.Fatalf("expected handle required, got %v", err)
	}
	open, err := s.Dialog()
	if err != nil || open != d || d.State() != credentials.Editing {
		t.Fatalf("dialog must stay open in editing: %v", err)
	}
	if len(s.Connected()) != 0 {
		t.Fatal("nothing may be connected")
	}
}

func TestConnectFailureLeavesSetUntouched(t *testing.T) {
	s := New(Config{
		Collector: registration.New(nil, registration.WithBcryptCost(bcrypt.MinCost)),
		Dialog:    credentials.Config{Connector: credentials.Simulated{Delay: time.Second}, Timeout: 5 * time.Millisecond},
	})
	_, _ = s.Signup(john)
	d, _ := s.OpenDialog(catalog.AWS)
	_ = d.SetHandle("aws")
	_, err := s.Submit(context.Background())
	var remote *apperr.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected remote error, got %v", err)
	}
	if d.State() != credentials.Failure || len(s.Connected()) != 0 || s.Step() != ConnectProviders {
		t.Fatalf("state=%s connected=%v step=%s", d.State(), s.Connected(), s.Step())
	}
}

func TestOpenDialogReplacesAndCancel(t *testing.T) {
	s := newSession(t, nil, nil)
	_, _ = s.Signup(john)
	_, _ = s.OpenDialog(catalog.AWS)
	d, _ := s.OpenDialog(catalog.Oracle)
	if cur, _ := s.Dialog(); cur != d || cur.Kind() != catalog.Oracle {
		t.Fatal("opening a dialog replaces the open one")
	}
	if !s.CancelDialog() || s.CancelDialog() {
		t.Fatal("cancel reports whether a dialog was open")
	}
	if _, err := s.Submit(context.Background()); apperr.CodeOf(err) != apperr.CodeNoDialog {
		t.Fatalf("expected no dialog, got %v", err)
	}
}

func TestCancelDuringConnect(t *testing.T) {
	s := New(Config{
		Collector: registration.New(nil, registration.WithBcryptCost(bcrypt.MinCost)),
		Dialog:    credentials.Config{Connector: credentials.Simulated{Delay: time.Minute}},
	})
	_, _ = s.Signup(john)
	d, _ := s.OpenDialog(catalog.GCP)
	_ = d.SetHandle("gcp")
	task, started, err := s.BeginSubmit(context.Background())
	if err != nil || started != d {
		t.Fatalf("begin: %v", err)
	}
	if _, err := s.OpenDialog(catalog.AWS); apperr.CodeOf(err) != apperr.CodeDialogBusy {
		t.Fatalf("open while connecting: %v", err)
	}
	if !s.CancelDialog() {
		t.Fatal("cancel must report the open dialog")
	}
	select {
	case <-task.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("cancel did not stop the connector")
	}
	_, err = s.FinishSubmit(d)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if s.IsConnected(catalog.GCP) || len(s.Connected()) != 0 {
		t.Fatal("a cancelled attempt must not connect")
	}
	if _, err := s.OpenDialog(catalog.AWS); err != nil {
		t.Fatalf("reopen after cancel: %v", err)
	}
}

func TestHandoffFailureStillCompletes(t *testing.T) {
	rec := &recorder{}
	s := newSession(t, rec, HandoffFunc(func(context.Context, Summary) error { return errors.New("db down") }))
	_, _ = s.Signup(john)
	connect(t, s, catalog.AWS)
	if _, err := s.Complete(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.Step() != Complete {
		t.Fatalf("step=%s", s.Step())
	}
	if rec.titles[len(rec.titles)-1] != "Handoff failed" {
		t.Fatalf("titles=%v", rec.titles)
	}
	if _, ok := s.Summary(); !ok {
		t.Fatal("summary must be available")
	}
}
