package tasklog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deskshell/reasoncore/internal/bus"
)

// readEvents parses all JSONL lines from a file into a slice of Events.
func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("readEvents: %v", err)
	}
	var events []Event
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		var e Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("readEvents: unmarshal %q: %v", line, err)
		}
		events = append(events, e)
	}
	return events
}

func TestRegistry_Open_WritesRequestBegin(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(filepath.Join(dir, "requests"))
	rl := r.Open("req1", "open chrome")
	if rl == nil {
		t.Fatal("expected non-nil RequestLog")
	}
	r.Close("req1", "success")

	events := readEvents(t, filepath.Join(dir, "requests", "req1.jsonl"))
	if len(events) < 2 {
		t.Fatalf("expected begin and end events, got %d", len(events))
	}
	if events[0].Kind != KindRequestBegin || events[0].Utterance != "open chrome" {
		t.Errorf("first event = %+v, want request_begin with utterance", events[0])
	}
	last := events[len(events)-1]
	if last.Kind != KindRequestEnd || last.Status != "success" {
		t.Errorf("last event = %+v, want request_end with status success", last)
	}
}

func TestRegistry_Open_IsIdempotentPerRequestID(t *testing.T) {
	r := NewRegistry(t.TempDir())
	a := r.Open("req1", "x")
	b := r.Open("req1", "x")
	if a != b {
		t.Error("expected Open to return the existing log for a known requestID")
	}
}

func TestRegistry_Get_UnknownIDReturnsNil(t *testing.T) {
	r := NewRegistry(t.TempDir())
	if rl := r.Get("nope"); rl != nil {
		t.Errorf("expected nil, got %v", rl)
	}
}

func TestRegistry_Close_UnknownIDIsNoOp(t *testing.T) {
	r := NewRegistry(t.TempDir())
	r.Close("nope", "success") // must not panic
}

func TestRequestLog_NilReceiverIsSafe(t *testing.T) {
	var rl *RequestLog
	rl.StageEvent("QueryClassifier", "emit", "single") // must not panic
}

func TestRegistry_StageEventsLandInCurrentLog(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(dir)
	rl := r.Open("req1", "open chrome and open spotify")
	rl.StageEvent("QueryClassifier", "emit", "deterministic")
	r.Close("req1", "success")

	events := readEvents(t, filepath.Join(dir, "req1.jsonl"))
	found := false
	for _, e := range events {
		if e.Kind == KindStage && e.Stage == "QueryClassifier" {
			found = true
		}
	}
	if !found {
		t.Error("expected a stage event for QueryClassifier in the trace")
	}
}

func TestRegistry_Run_DrainsTapIntoCurrentLog(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(dir)
	b := bus.New()
	tap := b.NewTap()
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		r.Run(tap, done)
		close(finished)
	}()

	r.Open("req1", "test")
	b.Publish(bus.Event{Stage: bus.StageToolResolver, Kind: "resolve", Detail: "tool=browser.navigate"})

	// Give the drain goroutine a chance to consume the event, then stop it
	// before reading the file.
	for i := 0; i < 100; i++ {
		events := readEvents(t, filepath.Join(dir, "req1.jsonl"))
		if len(events) >= 2 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	close(done)
	<-finished
	r.Close("req1", "success")

	events := readEvents(t, filepath.Join(dir, "req1.jsonl"))
	found := false
	for _, e := range events {
		if e.Kind == KindStage && e.Stage == string(bus.StageToolResolver) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the published bus event in the trace, got %+v", events)
	}
}
