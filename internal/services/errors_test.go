package services_test

import (
	"errors"
	"strings"
	"testing"

	"streamguide/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternal, "watchmode", "lookup", "request failed", base)
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"watchmode", "lookup", "request failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestOutcomeAndFatal(t *testing.T) {
	cfgErr := services.Wrap(services.ErrConfiguration, "pipeline", "open", "missing key", nil)
	if !services.IsFatal(cfgErr) {
		t.Fatal("expected configuration error to be fatal")
	}
	if services.Outcome(cfgErr) != "config" {
		t.Fatalf("unexpected outcome %q", services.Outcome(cfgErr))
	}

	transient := services.Wrap(services.ErrTransient, "metadata", "fetch", "429", nil)
	if services.IsFatal(transient) {
		t.Fatal("expected transient error to be non-fatal")
	}
	if services.Outcome(transient) != "transient" {
		t.Fatalf("unexpected outcome %q", services.Outcome(transient))
	}
	if services.Outcome(nil) != "ok" {
		t.Fatal("expected ok for nil error")
	}
	if !services.IsTransient(transient) {
		t.Fatal("expected IsTransient to recognise the marker")
	}
}
