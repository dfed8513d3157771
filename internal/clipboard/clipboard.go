// Package clipboard lets the user copy values such as the AWS external id.
package clipboard

import (
	"errors"
	"sync"

	"github.com/atotto/clipboard"
)

type Clipboard interface {
	CopyText(value string) error
}

var ErrUnsupported = errors.New("clipboard: not available on this system")

// System writes to the desktop clipboard of the machine running the process.
type System struct{}

func (System) CopyText(value string) error {
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	return clipboard.WriteAll(value)
}

// Memory holds the last copied value; the HTTP API returns it to the browser,
// which owns the real clipboard.
type Memory struct {
	mu   sync.Mutex
	last string
	n    int
}

func (m *Memory) CopyText(value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = value
	m.n++
	return nil
}

// Last returns the last copied value and how many copies happened.
func (m *Memory) Last() (string, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.n
}
