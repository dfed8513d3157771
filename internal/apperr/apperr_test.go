package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("signup: %w", New(CodeTermsRequired, "Terms required", "agree first"))
	if !errors.Is(err, &Error{Code: CodeTermsRequired}) {
		t.Fatal("expected wrapped error to match by code")
	}
	if errors.Is(err, &Error{Code: CodePasswordMismatch}) {
		t.Fatal("different code must not match")
	}
	if CodeOf(err) != CodeTermsRequired {
		t.Fatalf("CodeOf=%s", CodeOf(err))
	}
	if CodeOf(errors.New("plain")) != CodeUnknown {
		t.Fatal("plain errors have unknown code")
	}
}

func TestRemoteErrorUnwraps(t *testing.T) {
	err := &RemoteError{Provider: "aws", Err: context.DeadlineExceeded}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("expected deadline to unwrap")
	}
	if err.Error() != "connect aws: context deadline exceeded" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
