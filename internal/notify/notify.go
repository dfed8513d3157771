// Package notify carries user-visible success and error messages out of the
// onboarding core. How they reach the user is up to the adapter.
package notify

import (
	"time"

	"github.com/arencloud/cloudgate/internal/logging"
)

type Kind string

const (
	Info  Kind = "info"
	Error Kind = "error"
)

// Notification is one delivered message.
type Notification struct {
	Seq     uint64    `json:"seq"`
	Time    time.Time `json:"time"`
	Kind    Kind      `json:"kind"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
}

type Notifier interface {
	Notify(kind Kind, title, message string)
}

// Func adapts a plain function to Notifier.
type Func func(kind Kind, title, message string)

func (f Func) Notify(kind Kind, title, message string) { f(kind, title, message) }

// Discard drops every notification.
var Discard Notifier = Func(func(Kind, string, string) {})

type logNotifier struct {
	l logging.Logger
}

// Log writes notifications to the structured log.
func Log(l logging.Logger) Notifier { return &logNotifier{l: l} }

func (n *logNotifier) Notify(kind Kind, title, message string) {
	if kind == Error {
		n.l.Error("notify", "title", title, "message", message)
		return
	}
	n.l.Info("notify", "title", title, "message", message)
}

type multi []Notifier

// Multi fans a notification out to every non-nil notifier in order.
func Multi(ns ...Notifier) Notifier {
	out := make(multi, 0, len(ns))
	for _, n := range ns {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (m multi) Notify(kind Kind, title, message string) {
	for _, n := range m {
		n.Notify(kind, title, message)
	}
}
