// Package worldstate is the concrete adapter behind the core's external
// WorldState provider: snapshot() -> WorldState, called once at request
// entry and frozen from that point on. It shells out through the same
// shell/applescript primitives internal/tools already exposes, rather
// than duplicating process-listing or window-query logic.
package worldstate

import (
	"context"
	"strings"

	"github.com/deskshell/reasoncore/internal/tools"
	"github.com/deskshell/reasoncore/internal/types"
)

// knownBrowsers are the applications whose presence among the running
// processes counts as an existing browser session.
var knownBrowsers = map[string]bool{
	"Safari":         true,
	"Google Chrome":  true,
	"Firefox":        true,
	"Microsoft Edge": true,
	"Arc":            true,
}

// Snapshotter implements WorldState capture. The probe funcs default to
// the real OS primitives and exist so tests can substitute canned output;
// Snapshot is safe to call concurrently.
type Snapshotter struct {
	runScript func(ctx context.Context, script string) (string, error)
	runShell  func(ctx context.Context, cmd string) (stdout, stderr string, err error)
}

// New builds a Snapshotter over the real OS probes.
func New() *Snapshotter {
	return &Snapshotter{runScript: tools.RunAppleScript, runShell: tools.RunShell}
}

// Snapshot queries ambient OS state once and returns an immutable
// WorldState. A failing sub-probe degrades to its zero value rather than
// failing the whole snapshot — a missing clipboard probe shouldn't block
// every request.
func (s *Snapshotter) Snapshot(ctx context.Context) (types.WorldState, error) {
	apps := s.runningApplications(ctx)
	return types.WorldState{
		RunningApplications:   apps,
		FocusedWindow:         s.focusedWindow(ctx),
		BrowserSessionPresent: anyBrowser(apps),
		ClipboardAvailable:    s.clipboardAvailable(ctx),
	}, nil
}

func (s *Snapshotter) runningApplications(ctx context.Context) []string {
	out, _ := s.runScript(ctx, `tell application "System Events" to get name of every process whose background only is false`)
	return parseProcessList(out)
}

// parseProcessList splits osascript's comma-separated process listing into
// trimmed application names.
func parseProcessList(out string) []string {
	if out == "" {
		return nil
	}
	parts := strings.Split(out, ", ")
	apps := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			apps = append(apps, p)
		}
	}
	return apps
}

func (s *Snapshotter) focusedWindow(ctx context.Context) string {
	out, err := s.runScript(ctx, `tell application "System Events" to get name of first process whose frontmost is true`)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// anyBrowser reports whether a known browser is among the running
// applications — the only signal the core needs to decide whether a
// browser.navigate goal can reuse an existing window.
func anyBrowser(apps []string) bool {
	for _, a := range apps {
		if knownBrowsers[a] {
			return true
		}
	}
	return false
}

func (s *Snapshotter) clipboardAvailable(ctx context.Context) bool {
	out, _, err := s.runShell(ctx, "pbpaste 2>/dev/null | head -c1")
	return err == nil && out != ""
}
