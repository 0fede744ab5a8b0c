package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want MediaError
	}{
		{"bare kind", ErrNotFound, ErrNotFound},
		{"wrapped kind", fmt.Errorf("fetch album: %w", ErrInvalidCredentials), ErrInvalidCredentials},
		{"double wrapped", fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", ErrAlreadyExists)), ErrAlreadyExists},
		{"context canceled", context.Canceled, ErrCancelled},
		{"deadline exceeded", context.DeadlineExceeded, ErrCancelled},
		{"wrapped cancellation", fmt.Errorf("request: %w", context.Canceled), ErrCancelled},
		{"plain error", errors.New("boom"), ErrIO},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := KindOf(test.err); got != test.want {
				t.Errorf("KindOf(%v) = %v, want %v", test.err, got, test.want)
			}
		})
	}
}

func TestKindWinsOverCancellation(t *testing.T) {
	// An explicit kind anywhere in the chain takes precedence over the
	// cancellation sentinels wrapped alongside it
	err := fmt.Errorf("%w: %s", ErrDeserialization, context.Canceled)
	if got := KindOf(err); got != ErrDeserialization {
		t.Errorf("KindOf = %v, want %v", got, ErrDeserialization)
	}
}

func TestFailureOf(t *testing.T) {
	cause := fmt.Errorf("list playlists: %w", ErrAuthenticationRequired)
	status := FailureOf[[]Playlist](cause)

	if !status.IsError() {
		t.Fatalf("status state = %v, want error", status.State)
	}
	if status.Err != ErrAuthenticationRequired {
		t.Errorf("status.Err = %v, want %v", status.Err, ErrAuthenticationRequired)
	}
	if status.Cause != cause {
		t.Errorf("status.Cause = %v, want original error", status.Cause)
	}
}

func TestLoadingProgress(t *testing.T) {
	if p := Loading[int]().Progress; p != -1 {
		t.Errorf("Loading progress = %d, want -1", p)
	}
	if p := LoadingProgress[int](60).Progress; p != 60 {
		t.Errorf("LoadingProgress(60) = %d, want 60", p)
	}
}
