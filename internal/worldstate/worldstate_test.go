package worldstate

import (
	"context"
	"reflect"
	"testing"

	"github.com/deskshell/reasoncore/internal/types"
)

// fakeSnapshotter returns a Snapshotter whose process-list probe serves
// from a mutable string, standing in for ambient OS state that changes
// between snapshots.
func fakeSnapshotter(processList *string) *Snapshotter {
	return &Snapshotter{
		runScript: func(ctx context.Context, script string) (string, error) {
			return *processList, nil
		},
		runShell: func(ctx context.Context, cmd string) (string, string, error) {
			return "", "", nil
		},
	}
}

func TestParseProcessList(t *testing.T) {
	got := parseProcessList("Finder, Safari,  Mail ")
	want := []string{"Finder", "Safari", "Mail"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if parseProcessList("") != nil {
		t.Error("expected nil for empty probe output")
	}
}

func TestAnyBrowser(t *testing.T) {
	if !anyBrowser([]string{"Finder", "Google Chrome"}) {
		t.Error("expected a known browser to be detected")
	}
	if anyBrowser([]string{"Finder", "Mail"}) {
		t.Error("expected no browser among non-browser apps")
	}
}

func TestSnapshot_ReflectsAmbientChange(t *testing.T) {
	processes := "Finder, Mail"
	s := fakeSnapshotter(&processes)

	first, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if first.BrowserSessionPresent {
		t.Error("no browser running yet, session should be absent")
	}

	processes = "Finder, Mail, Safari"
	second, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !second.BrowserSessionPresent {
		t.Error("browser launched between snapshots, second snapshot should see it")
	}
	if reflect.DeepEqual(first.RunningApplications, second.RunningApplications) {
		t.Error("snapshots across an ambient change should differ")
	}
}

func TestSnapshot_UtteranceWorldIsFrozen(t *testing.T) {
	// An utterance captures the snapshot taken at request entry; later
	// ambient changes and re-snapshots must not alter it.
	processes := "Finder"
	s := fakeSnapshotter(&processes)

	world, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	utt := types.Utterance{Text: "open chrome", World: world}

	processes = "Finder, Google Chrome"
	if _, err := s.Snapshot(context.Background()); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if utt.World.BrowserSessionPresent {
		t.Error("utterance's world state changed after construction")
	}
	if got := utt.World.RunningApplications; len(got) != 1 || got[0] != "Finder" {
		t.Errorf("utterance's running applications changed after construction: %v", got)
	}
}
