package logging

import "testing"

func TestLoggerLevelsAndRecent(t *testing.T) {
	t.Setenv("LOG_JSON", "true")
	SetLevel("debug")
	l := New("test")
	l.Info("hello", "k", 1)
	l.Debug("dbg", "a", 2)
	l.Error("oops")
	items := Recent(3)
	if len(items) != 3 {
		t.Fatalf("expected 3 recent entries, got %d", len(items))
	}
	// newest-first
	if items[0].Msg != "oops" || items[2].Msg != "hello" {
		t.Fatalf("unexpected ordering: %q .. %q", items[0].Msg, items[2].Msg)
	}
}

func TestSetLevelFiltersDebug(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	l := New("test")
	if GetLevel() != "error" {
		t.Fatalf("expected error level, got %s", GetLevel())
	}
	l.Info("filtered-info")
	for _, e := range Recent(5) {
		if e.Msg == "filtered-info" {
			t.Fatal("info entry should be filtered at error level")
		}
	}
	SetLevel("bogus")
	if GetLevel() != "info" {
		t.Fatalf("unknown level falls back to info, got %s", GetLevel())
	}
}
