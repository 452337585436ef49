package bridgeerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := Newf(CodeNoAccounts, "handshake returned %d accounts", 0)
	if !errors.Is(err, ErrNoAccounts) {
		t.Fatalf("expected errors.Is to match NO_ACCOUNTS, got %v", err)
	}
	if errors.Is(err, ErrNoHost) {
		t.Fatalf("NO_ACCOUNTS must not match NO_HOST")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(CodeHostError, cause, "")
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be reachable via errors.Is")
	}
	if err.Message() != AttributesOf(CodeHostError).Message {
		t.Fatalf("empty message should fall back to registered default, got %q", err.Message())
	}
}

func TestCodeOfWalksCauseChain(t *testing.T) {
	inner := New(CodeUserRejected, "")
	outer := fmt.Errorf("request failed: %w", inner)
	if got := CodeOf(outer); got != CodeUserRejected {
		t.Fatalf("CodeOf = %s, want %s", got, CodeUserRejected)
	}
	if got := CodeOf(errors.New("plain")); got != CodeHostError {
		t.Fatalf("plain errors should report %s, got %s", CodeHostError, got)
	}
}
