package services_test

import (
	"errors"
	"strings"
	"testing"

	"turnstile/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("connection reset")
	err := services.Wrap(services.ErrTransient, "sheets", "append row", "request failed", base)

	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient classification, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatal("expected wrapped cause to remain reachable")
	}
	if !strings.Contains(err.Error(), "sheets: append row") {
		t.Fatalf("expected component context in message, got %q", err.Error())
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !services.IsTransient(err) {
		t.Fatalf("nil marker should default to transient, got %v", err)
	}
	if err.Error() != "transient failure: service failure" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		expect bool
	}{
		{"transient", services.Wrap(services.ErrTransient, "a", "b", "", nil), true},
		{"permanent", services.Wrap(services.ErrPermanent, "a", "b", "", nil), false},
		{"validation", services.Wrap(services.ErrValidation, "a", "b", "", nil), false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := services.IsTransient(tc.err); got != tc.expect {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.expect, got)
		}
	}
}
