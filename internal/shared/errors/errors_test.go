package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidation(t *testing.T) {
	err := Validation("selection", "select at least one office before starting", "country", "netherlands")

	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %T", err)
	}
	if got := Message(err); got != "select at least one office before starting" {
		t.Fatalf("unexpected message %q", got)
	}

	wrapped := fmt.Errorf("start: %w", err)
	if !IsValidation(wrapped) {
		t.Fatal("wrapping must preserve the validation kind")
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain", err: ErrAlreadyRunning, want: "monitoring is already running"},
		{name: "validation without field", err: &ValidationError{Message: "missing Telegram credentials"}, want: "missing Telegram credentials"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Message(tt.err); got != tt.want {
				t.Fatalf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationErrorString(t *testing.T) {
	err := &ValidationError{Field: "scan_interval", Message: "must be between 60 and 3600 seconds"}
	if got := err.Error(); got != "scan_interval: must be between 60 and 3600 seconds" {
		t.Fatalf("unexpected error string %q", got)
	}
	if IsValidation(errors.New("boom")) {
		t.Fatal("plain error must not be a validation error")
	}
}
