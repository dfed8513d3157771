// Package credentials is the per-provider connection form: it collects the
// provider-specific inputs, manages the region selection and runs the connect
// handshake through a Connector.
package credentials

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/arencloud/cloudgate/internal/apperr"
	"github.com/arencloud/cloudgate/internal/catalog"
	"github.com/arencloud/cloudgate/internal/clipboard"
	"github.com/arencloud/cloudgate/internal/notify"
)

type State int

const (
	Editing State = iota
	Submitting
	Success
	Failure
)

func (s State) String() string {
	switch s {
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	case Failure:
		return "failure"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for _, v := range []State{Editing, Submitting, Success, Failure} {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown dialog state %q", b)
}

// Options are the advanced connection toggles.
type Options struct {
	AutoSync           bool `json:"autoSync"`
	CostOptimization   bool `json:"costOptimization"`
	SecurityMonitoring bool `json:"securityMonitoring"`
}

func DefaultOptions() Options {
	return Options{CostOptimization: true, SecurityMonitoring: true}
}

// Result is produced once per successful submission.
type Result struct {
	Kind        catalog.Kind `json:"provider"`
	Handle      string       `json:"handle"`
	Regions     []string     `json:"regions"`
	Options     Options      `json:"options"`
	ConnectedAt time.Time    `json:"connectedAt"`
}

// Config wires a dialog to its collaborators. Zero values get defaults.
type Config struct {
	Connector Connector
	Timeout   time.Duration
	// Strict blocks submission on missing or malformed provider fields, not
	// only on an empty handle.
	Strict    bool
	Tokens    TokenSource
	Notifier  notify.Notifier
	Clipboard clipboard.Clipboard
	Now       func() time.Time
}

// Dialog is one open connection form.
type Dialog struct {
	desc    catalog.Descriptor
	handle  string
	regions Regions
	fields  Fields
	options Options
	state   State
	result  *Result
	lastErr error
	task    *Task
	cfg     Config
}

// Open starts a dialog for kind in the Editing state.
func Open(kind catalog.Kind, cfg Config) (*Dialog, error) {
	desc, ok := catalog.Lookup(kind)
	if !ok {
		return nil, apperr.New(apperr.CodeUnknownProvider, "Unknown provider", "unsupported provider "+kind.String())
	}
	if cfg.Connector == nil {
		cfg.Connector = Simulated{}
	}
	if cfg.Tokens == nil {
		cfg.Tokens = RandomExternalID
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Discard
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	externalID := ""
	if kind == catalog.AWS {
		externalID = cfg.Tokens()
	}
	fields, err := NewFields(kind, externalID)
	if err != nil {
		return nil, err
	}
	return &Dialog{
		desc:    desc,
		regions: newRegions(desc),
		fields:  fields,
		options: DefaultOptions(),
		cfg:     cfg,
	}, nil
}

func (d *Dialog) Kind() catalog.Kind             { return d.desc.Kind }
func (d *Dialog) Descriptor() catalog.Descriptor { return d.desc }
func (d *Dialog) State() State                   { return d.state }
func (d *Dialog) Handle() string                 { return d.handle }
func (d *Dialog) Regions() []string              { return d.regions.List() }
func (d *Dialog) Options() Options               { return d.options }

// Fields exposes the provider variant for read access.
func (d *Dialog) Fields() Fields { return d.fields }

// Err is the error of the last failed submission.
func (d *Dialog) Err() error { return d.lastErr }

// Result is set once the dialog reached Success.
func (d *Dialog) Result() (Result, bool) {
	if d.result == nil {
		return Result{}, false
	}
	return *d.result, true
}

// editable moves a failed dialog back to Editing and rejects edits otherwise.
func (d *Dialog) editable() error {
	switch d.state {
	case Editing:
		return nil
	case Failure:
		d.state = Editing
		d.lastErr = nil
		return nil
	case Submitting:
		return apperr.New(apperr.CodeDialogBusy, "Connecting", "a connection attempt is in progress")
	}
	return apperr.New(apperr.CodeDialogClosed, "Dialog closed", "this connection was already submitted")
}

func (d *Dialog) SetHandle(handle string) error {
	if err := d.editable(); err != nil {
		return err
	}
	d.handle = strings.TrimSpace(handle)
	return nil
}

// SetField assigns a provider input by catalog key. Choice inputs select a region.
func (d *Dialog) SetField(key, value string) error {
	if err := d.editable(); err != nil {
		return err
	}
	if key == "handle" {
		d.handle = strings.TrimSpace(value)
		return nil
	}
	if f, ok := d.desc.Field(key); ok && f.Kind == catalog.FieldChoice {
		if value == "" {
			d.regions.Clear()
			return nil
		}
		return d.regions.Choose(value)
	}
	return d.fields.Set(key, value)
}

// Field reads a provider input by catalog key.
func (d *Dialog) Field(key string) (string, bool) {
	if key == "handle" {
		return d.handle, true
	}
	if f, ok := d.desc.Field(key); ok && f.Kind == catalog.FieldChoice {
		if l := d.regions.List(); len(l) > 0 {
			return l[0], true
		}
		return "", true
	}
	return d.fields.Get(key)
}

func (d *Dialog) SetOptions(o Options) error {
	if err := d.editable(); err != nil {
		return err
	}
	d.options = o
	return nil
}

func (d *Dialog) ToggleRegion(region string) error {
	if err := d.editable(); err != nil {
		return err
	}
	return d.regions.Toggle(region)
}

func (d *Dialog) SelectAllRegions() error {
	if err := d.editable(); err != nil {
		return err
	}
	return d.regions.SelectAll()
}

func (d *Dialog) ClearRegions() error {
	if err := d.editable(); err != nil {
		return err
	}
	d.regions.Clear()
	return nil
}

// RegionSummary is the selector label for the current selection.
func (d *Dialog) RegionSummary() string { return d.regions.Summary() }

// ExternalID is the AWS trust token, empty for other providers.
func (d *Dialog) ExternalID() string {
	v, _ := d.fields.Get("externalId")
	return v
}

// CopyExternalID hands the trust token to the clipboard and reports the outcome.
func (d *Dialog) CopyExternalID() error {
	id := d.ExternalID()
	if id == "" {
		return apperr.New(apperr.CodeUnknownField, "Unknown field", d.desc.Name+" has no external id")
	}
	if d.cfg.Clipboard == nil {
		d.cfg.Notifier.Notify(notify.Error, "Copy failed", "No clipboard is available.")
		return clipboard.ErrUnsupported
	}
	if err := d.cfg.Clipboard.CopyText(id); err != nil {
		d.cfg.Notifier.Notify(notify.Error, "Copy failed", err.Error())
		return err
	}
	d.cfg.Notifier.Notify(notify.Info, "Copied to clipboard", "External ID has been copied to your clipboard.")
	return nil
}

// Issues lists every problem with the draft: the handle, provider inputs and
// a missing single-choice region.
func (d *Dialog) Issues() []apperr.Issue {
	var out []apperr.Issue
	if d.handle == "" {
		out = append(out, apperr.Issue{Field: "handle", Message: "Handle is required"})
	}
	out = append(out, d.fields.Validate()...)
	for _, f := range d.desc.Fields {
		if f.Kind == catalog.FieldChoice && f.Required && d.regions.Len() == 0 {
			out = append(out, apperr.Issue{Field: f.Key, Message: f.Label + " is required"})
		}
	}
	return out
}

// guard rejects a submission and leaves the dialog in Editing.
func (d *Dialog) guard() error {
	if d.handle == "" {
		return apperr.New(apperr.CodeHandleRequired, "Handle required", "Please provide a handle for this connection.")
	}
	if !d.cfg.Strict {
		return nil
	}
	if issues := d.Issues(); len(issues) > 0 {
		e := apperr.New(apperr.CodeInvalidCredentials, "Invalid credentials", issues[0].Message)
		e.Issues = issues
		return e
	}
	return nil
}

// Submit runs the connect handshake to the end. Validation failures keep the
// dialog in Editing; a connector failure moves it to Failure and returns
// *apperr.RemoteError.
func (d *Dialog) Submit(ctx context.Context) (Result, error) {
	t, err := d.Begin(ctx)
	if err != nil {
		return Result{}, err
	}
	<-t.Done()
	return d.Finish()
}

// Begin validates the draft, moves the dialog to Submitting and starts the
// connector in the background. Complete the submission with Finish once the
// task is done.
func (d *Dialog) Begin(ctx context.Context) (*Task, error) {
	if err := d.editable(); err != nil {
		return nil, err
	}
	if err := d.guard(); err != nil {
		e := err.(*apperr.Error)
		d.cfg.Notifier.Notify(notify.Error, e.Title, e.Message)
		return nil, err
	}
	d.state = Submitting
	d.task = Start(ctx, d.cfg.Connector, Request{
		Kind:        d.desc.Kind,
		Handle:      d.handle,
		Regions:     d.regions.List(),
		Credentials: d.fields.Credentials(),
		Options:     d.options,
	}, d.cfg.Timeout)
	return d.task, nil
}

// Cancel aborts an in-flight submission. It reports whether one was running;
// the dialog still reaches Failure through Finish.
func (d *Dialog) Cancel() bool {
	if d.state != Submitting || d.task == nil {
		return false
	}
	d.task.Cancel()
	return true
}

// Finish records the outcome of the task started by Begin.
func (d *Dialog) Finish() (Result, error) {
	if d.state != Submitting || d.task == nil {
		return Result{}, apperr.New(apperr.CodeWrongStep, "Not connecting", "no connection attempt is in progress")
	}
	select {
	case <-d.task.Done():
	default:
		return Result{}, apperr.New(apperr.CodeDialogBusy, "Connecting", "a connection attempt is in progress")
	}
	err := d.task.Wait()
	d.task = nil
	if err != nil {
		d.state = Failure
		d.lastErr = &apperr.RemoteError{Provider: d.desc.Kind.String(), Err: err}
		d.cfg.Notifier.Notify(notify.Error, "Connection failed", d.desc.Name+" could not be connected.")
		return Result{}, d.lastErr
	}
	d.state = Success
	d.result = &Result{
		Kind:        d.desc.Kind,
		Handle:      d.handle,
		Regions:     d.regions.List(),
		Options:     d.options,
		ConnectedAt: d.cfg.Now().UTC(),
	}
	d.cfg.Notifier.Notify(notify.Info, "Connection successful!", d.desc.Name+" has been connected successfully.")
	return *d.result, nil
}

// View is a serializable snapshot of the dialog.
type View struct {
	Provider      catalog.Kind      `json:"provider"`
	Name          string            `json:"name"`
	State         State             `json:"state"`
	Handle        string            `json:"handle"`
	Regions       []string          `json:"regions"`
	RegionSummary string            `json:"regionSummary"`
	Fields        map[string]string `json:"fields"`
	Options       Options           `json:"options"`
	ExternalID    string            `json:"externalId,omitempty"`
	Issues        []apperr.Issue    `json:"issues"`
}

func (d *Dialog) View() View {
	issues := d.Issues()
	if issues == nil {
		issues = []apperr.Issue{}
	}
	return View{
		Provider:      d.desc.Kind,
		Name:          d.desc.Name,
		State:         d.state,
		Handle:        d.handle,
		Regions:       d.regions.List(),
		RegionSummary: d.regions.Summary(),
		Fields:        d.fields.Payload(),
		Options:       d.options,
		ExternalID:    d.ExternalID(),
		Issues:        issues,
	}
}
