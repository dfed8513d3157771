package clipboard

import "testing"

func TestMemoryKeepsLastValue(t *testing.T) {
	var m Memory
	if v, n := m.Last(); v != "" || n != 0 {
		t.Fatalf("fresh clipboard: %q %d", v, n)
	}
	_ = m.CopyText("one")
	_ = m.CopyText("two")
	if v, n := m.Last(); v != "two" || n != 2 {
		t.Fatalf("got %q %d", v, n)
	}
}

var _ Clipboard = System{}
var _ Clipboard = (*Memory)(nil)
