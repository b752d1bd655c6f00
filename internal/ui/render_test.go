package ui

import (
	"strings"
	"testing"

	"github.com/deskshell/reasoncore/internal/bus"
)

func TestStatusFor_KnownStages(t *testing.T) {
	for stage := range stageEmoji {
		if got := statusFor(bus.Event{Stage: stage}); got == "" {
			t.Errorf("expected a non-empty status for stage %s", stage)
		}
	}
}

func TestStatusFor_UnknownStage(t *testing.T) {
	if got := statusFor(bus.Event{Stage: bus.Stage("unknown")}); got != "" {
		t.Errorf("expected empty status for an unknown stage, got %q", got)
	}
}

func TestClip_ShortStringUnchanged(t *testing.T) {
	if got := clip("short", 10); got != "short" {
		t.Errorf("expected unchanged string, got %q", got)
	}
}

func TestClip_LongStringTruncated(t *testing.T) {
	got := clip("this is a very long detail string", 10)
	if len(got) != 10 || !strings.HasSuffix(got, "...") {
		t.Errorf("expected a 10-cell clipped string ending in ..., got %q (%d)", got, len(got))
	}
}

func TestDisplay_ResumeEnqueuesResumeSignal(t *testing.T) {
	d := New(make(chan bus.Event))
	d.mu.Lock()
	d.suppressed = true
	d.mu.Unlock()

	d.Resume()
	select {
	case <-d.resumeCh:
	default:
		t.Fatal("expected Resume to enqueue a resume signal")
	}
}

func TestDisplay_WaitTaskCloseReturnsImmediatelyWhenIdle(t *testing.T) {
	d := New(make(chan bus.Event))
	d.WaitTaskClose(0) // taskDone is nil; must not block
}
