package resilience

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestIsTransient_ExplicitTransientError(t *testing.T) {
	err := NewTransientError(errors.New("server overloaded"))
	if !IsTransient(err) {
		t.Error("expected TransientError to be transient")
	}
}

func TestIsTransient_WrappedTransientError(t *testing.T) {
	inner := NewTransientError(errors.New("connection dropped"))
	wrapped := fmt.Errorf("store ping failed: %w", inner)
	if !IsTransient(wrapped) {
		t.Error("expected wrapped TransientError to be transient")
	}
}

func TestIsTransient_NilError(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil error should not be transient")
	}
}

func TestIsTransient_ConnectionRefused(t *testing.T) {
	if !IsTransient(syscall.ECONNREFUSED) {
		t.Error("expected ECONNREFUSED to be transient")
	}
}

func TestIsTransient_PatternMatch(t *testing.T) {
	cases := []string{
		"read tcp: connection reset by peer",
		"dial tcp: i/o timeout",
		"FATAL: the database system is starting up",
		"FATAL: too many connections for role",
	}
	for _, msg := range cases {
		if !IsTransient(errors.New(msg)) {
			t.Errorf("expected %q to be transient", msg)
		}
	}
}

func TestIsTransient_PermanentError(t *testing.T) {
	cases := []string{
		"password authentication failed",
		"relation \"channel_did\" does not exist",
		"syntax error at or near SELECT",
	}
	for _, msg := range cases {
		if IsTransient(errors.New(msg)) {
			t.Errorf("expected %q to be permanent", msg)
		}
	}
}
