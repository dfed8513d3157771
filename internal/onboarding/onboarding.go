// Package onboarding drives a session through signup, provider connection and
// completion, and keeps the set of connected providers.
package onboarding

import (
	"context"
	"fmt"
	"time"

	"github.com/arencloud/cloudgate/internal/apperr"
	"github.com/arencloud/cloudgate/internal/catalog"
	"github.com/arencloud/cloudgate/internal/credentials"
	"github.com/arencloud/cloudgate/internal/logging"
	"github.com/arencloud/cloudgate/internal/notify"
	"github.com/arencloud/cloudgate/internal/registration"
)

type Step int

const (
	Signup Step = iota
	ConnectProviders
	Complete
)

// Steps is the number of steps shown to the user.
const Steps = 3

func (s Step) String() string {
	switch s {
	case Signup:
		return "signup"
	case ConnectProviders:
		return "providers"
	case Complete:
		return "complete"
	}
	return "unknown"
}

func (s Step) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Step) UnmarshalText(b []byte) error {
	for _, v := range []Step{Signup, ConnectProviders, Complete} {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown step %q", b)
}

// Title is the heading of the step.
func (s Step) Title() string {
	switch s {
	case Signup:
		return "Account Setup"
	case ConnectProviders:
		return "Connect Providers"
	}
	return "Setup Complete"
}

// Number is the 1-based position of the step.
func (s Step) Number() int { return int(s) + 1 }

// Progress maps a step and k of n connected providers onto 0..100.
func Progress(step Step, k, n int) float64 {
	switch step {
	case Signup:
		return 0
	case Complete:
		return 100
	}
	if n <= 0 {
		return 50
	}
	return 50 + 40*float64(k)/float64(n)
}

// Summary is handed once to the next stage when onboarding completes.
type Summary struct {
	Registration   registration.Record  `json:"registration"`
	ConnectedCount int                  `json:"connectedCount"`
	Providers      []catalog.Kind       `json:"providers"`
	Connections    []credentials.Result `json:"connections"`
	CompletedAt    time.Time            `json:"completedAt"`
}

// Handoff receives the completion summary.
type Handoff interface {
	Accept(ctx context.Context, s Summary) error
}

type HandoffFunc func(ctx context.Context, s Summary) error

func (f HandoffFunc) Accept(ctx context.Context, s Summary) error { return f(ctx, s) }

// State is a snapshot of a session.
type State struct {
	Step         Step                 `json:"step"`
	StepNumber   int                  `json:"stepNumber"`
	StepTitle    string               `json:"stepTitle"`
	Registration *registration.Record `json:"registration,omitempty"`
	Connected    []catalog.Kind       `json:"connected"`
	Total        int                  `json:"total"`
	Progress     float64              `json:"progress"`
	Dialog       *credentials.View    `json:"dialog,omitempty"`
}

// Config wires a session. Dialog is the template for every dialog the session
// opens; its Notifier defaults to the session notifier.
type Config struct {
	Collector *registration.Collector
	Dialog    credentials.Config
	Notifier  notify.Notifier
	Handoff   Handoff
	Logger    logging.Logger
	Now       func() time.Time
}

// Session is one onboarding run. It is not safe for concurrent use; callers
// sharing a session across goroutines must serialize access.
type Session struct {
	cfg       Config
	step      Step
	record    *registration.Record
	connected map[catalog.Kind]credentials.Result
	dialog    *credentials.Dialog
	summary   *Summary
}

func New(cfg Config) *Session {
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Discard
	}
	if cfg.Collector == nil {
		cfg.Collector = registration.New(cfg.Notifier)
	}
	if cfg.Dialog.Notifier == nil {
		cfg.Dialog.Notifier = cfg.Notifier
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Session{cfg: cfg, connected: map[catalog.Kind]credentials.Result{}}
}

func (s *Session) Step() Step { return s.step }

func wrongStep(want, got Step) error {
	return apperr.New(apperr.CodeWrongStep, "Not available",
		fmt.Sprintf("this action needs step %q, session is at %q", want, got))
}

// Signup validates the form and moves to ConnectProviders. A rejected form
// leaves the session untouched.
func (s *Session) Signup(f registration.Form) (registration.Record, error) {
	if s.step != Signup {
		return registration.Record{}, wrongStep(Signup, s.step)
	}
	rec, err := s.cfg.Collector.Collect(f)
	if err != nil {
		return registration.Record{}, err
	}
	s.record = &rec
	s.step = ConnectProviders
	s.cfg.Logger.Info("signup complete", "email", rec.Email)
	return rec, nil
}

// Record returns the registration record once signup succeeded.
func (s *Session) Record() (registration.Record, bool) {
	if s.record == nil {
		return registration.Record{}, false
	}
	return *s.record, true
}

// OpenDialog opens the connection form for kind. Any open dialog is discarded.
func (s *Session) OpenDialog(kind catalog.Kind) (*credentials.Dialog, error) {
	if s.step != ConnectProviders {
		return nil, wrongStep(ConnectProviders, s.step)
	}
	if s.dialog != nil && s.dialog.State() == credentials.Submitting {
		return nil, apperr.New(apperr.CodeDialogBusy, "Connecting", "a connection attempt is in progress")
	}
	d, err := credentials.Open(kind, s.cfg.Dialog)
	if err != nil {
		return nil, err
	}
	s.dialog = d
	s.cfg.Logger.Debug("dialog opened", "provider", kind.String())
	return d, nil
}

// Dialog returns the open dialog.
func (s *Session) Dialog() (*credentials.Dialog, error) {
	if s.dialog == nil {
		return nil, apperr.New(apperr.CodeNoDialog, "No dialog", "no connection form is open")
	}
	return s.dialog, nil
}

// CancelDialog closes the open dialog without connecting, aborting a running
// connection attempt. It reports whether a dialog was open.
func (s *Session) CancelDialog() bool {
	if s.dialog == nil {
		return false
	}
	if s.dialog.Cancel() {
		s.cfg.Logger.Debug("connect cancelled", "provider", s.dialog.Kind().String())
	}
	s.dialog = nil
	return true
}

// Submit runs the open dialog and records a successful connection. On error
// the dialog stays open and the connected set is unchanged.
func (s *Session) Submit(ctx context.Context) (credentials.Result, error) {
	t, d, err := s.BeginSubmit(ctx)
	if err != nil {
		return credentials.Result{}, err
	}
	<-t.Done()
	return s.FinishSubmit(d)
}

// BeginSubmit starts connecting the open dialog. The caller waits on the task
// and then passes the returned dialog to FinishSubmit. Other session methods
// may run in between.
func (s *Session) BeginSubmit(ctx context.Context) (*credentials.Task, *credentials.Dialog, error) {
	d, err := s.Dialog()
	if err != nil {
		return nil, nil, err
	}
	if s.step != ConnectProviders {
		return nil, nil, wrongStep(ConnectProviders, s.step)
	}
	t, err := d.Begin(ctx)
	if err != nil {
		s.cfg.Logger.Debug("connect rejected", "provider", d.Kind().String(), "error", err.Error())
		return nil, nil, err
	}
	return t, d, nil
}

// FinishSubmit records the outcome of a connection started by BeginSubmit.
// A dialog that was cancelled or replaced meanwhile never joins the
// connected set.
func (s *Session) FinishSubmit(d *credentials.Dialog) (credentials.Result, error) {
	res, err := d.Finish()
	if err != nil {
		s.cfg.Logger.Debug("connect failed", "provider", d.Kind().String(), "error", err.Error())
		return credentials.Result{}, err
	}
	if s.dialog != d {
		return credentials.Result{}, &apperr.RemoteError{Provider: d.Kind().String(), Err: context.Canceled}
	}
	s.dialog = nil
	if !s.IsConnected(res.Kind) {
		s.connected[res.Kind] = res
	}
	name := d.Descriptor().Name
	s.cfg.Notifier.Notify(notify.Info, name+" Connected!", "Successfully connected your cloud account.")
	s.cfg.Logger.Info("provider connected", "provider", res.Kind.String(), "handle", res.Handle, "connected", len(s.connected))
	return res, nil
}

// Connected lists connected providers in catalog order.
func (s *Session) Connected() []catalog.Kind {
	out := make([]catalog.Kind, 0, len(s.connected))
	for _, k := range catalog.Kinds() {
		if _, ok := s.connected[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// IsConnected reports whether kind is in the connected set.
func (s *Session) IsConnected(kind catalog.Kind) bool {
	_, ok := s.connected[kind]
	return ok
}

// Connection returns the result recorded for kind.
func (s *Session) Connection(kind catalog.Kind) (credentials.Result, bool) {
	r, ok := s.connected[kind]
	return r, ok
}

func (s *Session) Progress() float64 {
	return Progress(s.step, len(s.connected), catalog.Size())
}

// Complete finishes onboarding. It needs at least one connected provider.
// The handoff runs once; its failure is reported but does not undo completion.
func (s *Session) Complete(ctx context.Context) (Summary, error) {
	if s.step != ConnectProviders {
		return Summary{}, wrongStep(ConnectProviders, s.step)
	}
	if len(s.connected) == 0 {
		e := apperr.New(apperr.CodeNoProviders, "No providers connected", "Connect at least one provider to continue.")
		s.cfg.Notifier.Notify(notify.Error, e.Title, e.Message)
		return Summary{}, e
	}
	kinds := s.Connected()
	sum := Summary{
		Registration:   *s.record,
		ConnectedCount: len(kinds),
		Providers:      kinds,
		Connections:    make([]credentials.Result, 0, len(kinds)),
		CompletedAt:    s.cfg.Now().UTC(),
	}
	for _, k := range kinds {
		sum.Connections = append(sum.Connections, s.connected[k])
	}
	s.step = Complete
	s.CancelDialog()
	s.summary = &sum
	s.cfg.Notifier.Notify(notify.Info, "Setup Complete!", "Your platform is ready to use.")
	s.cfg.Logger.Info("onboarding complete", "email", sum.Registration.Email, "connected", sum.ConnectedCount)

	if s.cfg.Handoff != nil {
		if err := s.cfg.Handoff.Accept(ctx, sum); err != nil {
			s.cfg.Logger.Error("handoff failed", "error", err.Error())
			s.cfg.Notifier.Notify(notify.Error, "Handoff failed", "Your setup is complete but the dashboard could not be prepared.")
		}
	}
	return sum, nil
}

// Summary is available once the session is Complete.
func (s *Session) Summary() (Summary, bool) {
	if s.summary == nil {
		return Summary{}, false
	}
	return *s.summary, true
}

func (s *Session) State() State {
	st := State{
		Step:       s.step,
		StepNumber: s.step.Number(),
		StepTitle:  s.step.Title(),
		Connected:  s.Connected(),
		Total:      catalog.Size(),
		Progress:   s.Progress(),
	}
	if s.record != nil {
		rec := *s.record
		st.Registration = &rec
	}
	if s.dialog != nil {
		v := s.dialog.View()
		st.Dialog = &v
	}
	return st
}
