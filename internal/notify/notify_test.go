package notify

import (
	"testing"
	"time"
)

func TestFeedSinceAndWrap(t *testing.T) {
	f := NewFeed(3)
	for _, title := range []string{"a", "b", "c", "d"} {
		f.Notify(Info, title, "")
	}
	got := f.Since(0)
	if len(got) != 3 {
		t.Fatalf("expected 3 retained, got %d", len(got))
	}
	if got[0].Title != "b" || got[2].Title != "d" {
		t.Fatalf("expected oldest-first b..d, got %s..%s", got[0].Title, got[2].Title)
	}
	if tail := f.Since(got[1].Seq); len(tail) != 1 || tail[0].Title != "d" {
		t.Fatalf("unexpected tail %#v", tail)
	}
	last, ok := f.Last()
	if !ok || last.Title != "d" {
		t.Fatalf("last=%#v", last)
	}
}

func TestFeedSubscribe(t *testing.T) {
	f := NewFeed(10)
	ch, cancel := f.Subscribe()
	defer cancel()
	if f.Subscribers() != 1 {
		t.Fatalf("subscribers=%d", f.Subscribers())
	}
	f.Notify(Error, "Terms required", "Please agree to the terms and conditions.")
	select {
	case n := <-ch:
		if n.Kind != Error || n.Title != "Terms required" {
			t.Fatalf("unexpected notification %#v", n)
		}
	case <-time.After(time.Second):
		t.Fatal("no notification received via subscription")
	}
	cancel()
	cancel() // idempotent
	if f.Subscribers() != 0 {
		t.Fatalf("subscribers after cancel=%d", f.Subscribers())
	}
}

func TestMultiSkipsNil(t *testing.T) {
	var got []string
	rec := Func(func(k Kind, title, _ string) { got = append(got, string(k)+":"+title) })
	Multi(nil, rec, rec).Notify(Info, "x", "")
	if len(got) != 2 || got[0] != "info:x" {
		t.Fatalf("unexpected fan-out %v", got)
	}
}
