// Package ui renders a live pipeline visualization to stdout. It taps
// the bus read-only — no bearing on any stage's behavior — and renders
// bus.Event stage transitions over the five core stages; the terminal
// box closes on a PlanExecutor "final" event.
package ui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/deskshell/reasoncore/internal/bus"
)

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiCyan   = "\033[36m"
	ansiYellow = "\033[33m"
	ansiGreen  = "\033[32m"
	ansiRed    = "\033[31m"
	ansiBlue   = "\033[34m"
)

var stageEmoji = map[bus.Stage]string{
	bus.StageQueryClassifier:  "🔎",
	bus.StageIntentClassifier: "🧭",
	bus.StageGoalInterpreter:  "🧩",
	bus.StageGoalPlanner:      "📐",
	bus.StageGoalOrchestrator: "🗺️ ",
	bus.StageToolResolver:     "🔧",
	bus.StagePlanExecutor:     "⚙️ ",
}

var stageColor = map[bus.Stage]string{
	bus.StageQueryClassifier:  ansiCyan,
	bus.StageIntentClassifier: ansiBlue,
	bus.StageGoalInterpreter:  ansiBlue,
	bus.StageGoalPlanner:      ansiYellow,
	bus.StageGoalOrchestrator: ansiYellow,
	bus.StageToolResolver:     ansiGreen,
	bus.StagePlanExecutor:     ansiGreen,
}

var spinRunes = []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")

// Display renders a live pipeline visualization reading from a bus tap.
type Display struct {
	tap        <-chan bus.Event
	abortCh    chan struct{}
	resumeCh   chan struct{}
	mu         sync.Mutex
	status     string
	started    time.Time
	inTask     bool
	spinIdx    int
	suppressed bool
	taskDone   chan struct{}
}

// New creates a Display reading from tap.
func New(tap <-chan bus.Event) *Display {
	return &Display{tap: tap, abortCh: make(chan struct{}, 1), resumeCh: make(chan struct{}, 1)}
}

// Abort closes the current pipeline box immediately and suppresses any
// subsequent stale events until Resume() is called.
func (d *Display) Abort() {
	select {
	case d.abortCh <- struct{}{}:
	default:
	}
}

// Resume lifts the post-abort suppression before the next request starts.
func (d *Display) Resume() {
	select {
	case d.resumeCh <- struct{}{}:
	default:
	}
}

// Run is the display's main goroutine. All terminal writes happen in this
// one goroutine, so no extra locking is needed for I/O.
func (d *Display) Run(ctx context.Context) {
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Print("\r\033[K")
			return

		case <-d.abortCh:
			if d.inTask {
				fmt.Print("\r\033[K")
				d.endTask(false)
			}
			d.mu.Lock()
			d.suppressed = true
			d.mu.Unlock()

		case <-d.resumeCh:
			d.mu.Lock()
			d.suppressed = false
			d.mu.Unlock()

		case evt, ok := <-d.tap:
			if !ok {
				return
			}
			if !d.inTask {
				d.mu.Lock()
				sup := d.suppressed
				d.mu.Unlock()
				if sup {
					continue
				}
				d.startTask()
			}
			fmt.Print("\r\033[K")
			d.printFlow(evt)
			d.setStatus(statusFor(evt))
			if evt.Stage == bus.StagePlanExecutor && evt.Kind == "final" {
				failed := strings.HasPrefix(evt.Detail, "failed") || strings.HasPrefix(evt.Detail, "blocked")
				d.endTask(!failed)
			}

		case <-ticker.C:
			if !d.inTask {
				continue
			}
			frame := spinRunes[d.spinIdx%len(spinRunes)]
			d.spinIdx++
			d.mu.Lock()
			status := d.status
			d.mu.Unlock()
			fmt.Printf("\r\033[K%s%s%s %s", ansiCyan, string(frame), ansiReset, status)
		}
	}
}

// WaitTaskClose blocks until the current pipeline box closes, or timeout
// elapses. Call after receiving the terminal Result but before printing it.
func (d *Display) WaitTaskClose(timeout time.Duration) {
	d.mu.Lock()
	ch := d.taskDone
	d.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case <-ch:
	case <-time.After(timeout):
	}
}

func (d *Display) startTask() {
	d.mu.Lock()
	d.taskDone = make(chan struct{})
	d.mu.Unlock()
	d.started = time.Now()
	d.inTask = true
	d.setStatus("classifying...")
	fmt.Printf("\n%s┌─── ⚡ reasoncore pipeline %s%s\n", ansiDim, strings.Repeat("─", 36), ansiReset)
}

func (d *Display) endTask(success bool) {
	d.inTask = false
	elapsed := time.Since(d.started).Round(time.Millisecond)
	icon := "✅"
	if !success {
		icon = "❌"
	}
	fmt.Printf("\r\033[K%s└─── %s  %v %s%s\n", ansiDim, icon, elapsed, strings.Repeat("─", 35), ansiReset)
	d.mu.Lock()
	ch := d.taskDone
	d.taskDone = nil
	d.mu.Unlock()
	if ch != nil {
		close(ch)
	}
}

func (d *Display) setStatus(s string) {
	d.mu.Lock()
	d.status = s
	d.mu.Unlock()
}

func (d *Display) printFlow(evt bus.Event) {
	if evt.Stage == bus.StagePlanExecutor && evt.Kind == "final" {
		return // surfaced via endTask, not a flow line
	}

	emoji := stageEmoji[evt.Stage]
	color := stageColor[evt.Stage]
	if color == "" {
		color = ansiDim
	}

	label := string(evt.Stage) + "." + evt.Kind
	if evt.Detail != "" {
		label += ": " + clip(evt.Detail, 90)
	}

	fmt.Printf("%s  %s %s%s%s\n", ansiDim, emoji, color, label, ansiReset)
}

func statusFor(evt bus.Event) string {
	switch evt.Stage {
	case bus.StageQueryClassifier:
		return "🔎 classifying query..."
	case bus.StageIntentClassifier:
		return "🧭 classifying intent..."
	case bus.StageGoalInterpreter:
		return "🧩 interpreting goal..."
	case bus.StageGoalPlanner:
		return "📐 planning actions..."
	case bus.StageGoalOrchestrator:
		return "🗺️  assembling plan graph..."
	case bus.StageToolResolver:
		return "🔧 resolving tools..."
	case bus.StagePlanExecutor:
		return "⚙️  executing plan..."
	default:
		return ""
	}
}

// clip truncates s to at most n terminal columns, using display width
// rather than byte or rune count so CJK/wide-glyph detail text (file
// paths, search queries) doesn't blow out the flow line's alignment.
func clip(s string, n int) string {
	if runewidth.StringWidth(s) <= n {
		return s
	}
	return runewidth.Truncate(s, n, "...")
}
