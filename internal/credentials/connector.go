package credentials

import (
	"context"
	"time"

	"github.com/arencloud/cloudgate/internal/catalog"
	"github.com/google/uuid"
)

// PlaceholderExternalID is the static trust token used when EXTERNAL_ID_MODE=fixed.
const PlaceholderExternalID = "cs-ext-12345678-abcd-1234-efgh-123456789012"

// TokenSource issues the AWS external id for a newly opened dialog.
type TokenSource func() string

// RandomExternalID issues a fresh, unique external id per dialog.
func RandomExternalID() string { return "cs-ext-" + uuid.NewString() }

// FixedExternalID always issues value.
func FixedExternalID(value string) TokenSource {
	return func() string { return value }
}

// Request is what a connector receives on submit. Credentials are not
// redacted; do not log them.
type Request struct {
	Kind        catalog.Kind
	Handle      string
	Regions     []string
	Credentials map[string]string
	Options     Options
}

// Connector performs the provider handshake. Implementations must honour ctx.
type Connector interface {
	Connect(ctx context.Context, req Request) error
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context, req Request) error

func (f ConnectorFunc) Connect(ctx context.Context, req Request) error { return f(ctx, req) }

// Simulated stands in for a real handshake: it waits Delay and succeeds.
type Simulated struct {
	Delay time.Duration
}

func (s Simulated) Connect(ctx context.Context, _ Request) error {
	if s.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.Delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Task is one in-flight connect operation.
type Task struct {
	done   chan struct{}
	err    error
	cancel context.CancelFunc
}

// Start runs c in the background. A positive timeout bounds the operation.
func Start(ctx context.Context, c Connector, req Request, timeout time.Duration) *Task {
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	t := &Task{done: make(chan struct{}), cancel: cancel}
	go func() {
		defer close(t.done)
		defer cancel()
		t.err = c.Connect(ctx, req)
	}()
	return t
}

// Done is closed when the connector returned.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task finishes and returns its outcome.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}

// Cancel asks the connector to stop. The outcome is still read through Wait.
func (t *Task) Cancel() { t.cancel() }
