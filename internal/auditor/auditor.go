// Package auditor observes the pipeline's single-authority invariants:
// it taps the bus read-only and checks structural invariants on each
// stage's emitted value (DAG validity, path authority, and ToolResolver
// resolutions that found no tool). It is observability over the core, not a sixth stage; nothing
// downstream depends on it running.
package auditor

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/deskshell/reasoncore/internal/bus"
	"github.com/deskshell/reasoncore/internal/types"
)

// Violation is one detected breach of a core invariant, tied to the stage
// whose emitted event triggered the check.
type Violation struct {
	Timestamp time.Time `json:"timestamp"`
	Stage     bus.Stage `json:"stage"`
	Rule      string    `json:"rule"`
	Detail    string    `json:"detail"`
}

// Auditor taps every stage's bus events and checks them against the
// pipeline's structural and single-authority invariants. It never
// mutates what it observes.
type Auditor struct {
	tap     <-chan bus.Event
	logPath string

	mu         sync.Mutex
	logFile    *os.File
	violations []Violation
}

// New builds an Auditor reading from tap (a dedicated bus.NewTap()) and
// appending one JSON line per detected violation to logPath. logPath may
// be empty to skip persistence (violations are still kept in memory and
// logged via the standard logger).
func New(tap <-chan bus.Event, logPath string) *Auditor {
	a := &Auditor{tap: tap, logPath: logPath}
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.Printf("auditor: could not open log %s: %v", logPath, err)
		} else {
			a.logFile = f
		}
	}
	return a
}

// Run drains the tap until done is closed (or the tap closes), checking each
// event as it arrives. Intended to run in its own goroutine for the
// lifetime of the process.
func (a *Auditor) Run(done <-chan struct{}) {
	for {
		select {
		case evt, ok := <-a.tap:
			if !ok {
				return
			}
			a.check(evt)
		case <-done:
			return
		}
	}
}

// Violations returns a snapshot of every violation observed so far.
func (a *Auditor) Violations() []Violation {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Violation(nil), a.violations...)
}

func (a *Auditor) check(evt bus.Event) {
	switch evt.Stage {
	case bus.StageGoalInterpreter:
		if meta, ok := evt.Payload.(types.MetaGoal); ok {
			if err := meta.Validate(); err != nil {
				a.record(evt.Stage, "metagoal_dag", err.Error())
			}
		}
	case bus.StageGoalOrchestrator:
		if result, ok := evt.Payload.(types.OrchestrationResult); ok && result.Graph != nil {
			if err := result.Graph.Validate(); err != nil {
				a.record(evt.Stage, "plangraph_dag", err.Error())
			}
			checkPathAuthority(*result.Graph, a)
		}
	case bus.StageToolResolver:
		if strings.Contains(evt.Detail, "via=no_tool") {
			a.record(evt.Stage, "no_tool", evt.Detail)
		}
	}
}

// checkPathAuthority verifies every file-domain action's args.path is
// non-empty and absolute-looking (no raw, untouched identity string
// sneaking through without the PathResolver's involvement). This is a
// cheap structural proxy, not a full re-derivation of the path — the
// orchestrator already owns that computation.
func checkPathAuthority(graph types.PlanGraph, a *Auditor) {
	for id, action := range graph.Nodes {
		if action.Intent != types.IntentFileOperation {
			continue
		}
		path, hasPath := action.Args["path"]
		if !hasPath {
			continue
		}
		if path == "" || !looksAbsolute(path) {
			a.record(bus.StageGoalOrchestrator, "path_authority",
				fmt.Sprintf("action %s carries a non-absolute path %q", id, path))
		}
	}
}

func looksAbsolute(path string) bool {
	if len(path) == 0 {
		return false
	}
	if path[0] == '/' {
		return true
	}
	// Windows drive-letter absolute form, e.g. "D:\alex".
	return len(path) > 2 && path[1] == ':' && (path[2] == '\\' || path[2] == '/')
}

func (a *Auditor) record(stage bus.Stage, rule, detail string) {
	v := Violation{Timestamp: time.Now(), Stage: stage, Rule: rule, Detail: detail}
	a.mu.Lock()
	a.violations = append(a.violations, v)
	a.mu.Unlock()

	log.Printf("auditor: VIOLATION stage=%s rule=%s detail=%s", stage, rule, detail)
	a.writeEvent(v)
}

func (a *Auditor) writeEvent(v Violation) {
	if a.logFile == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(a.logFile, "%s\n", data)
}
