package auditor

import (
	"testing"

	"github.com/deskshell/reasoncore/internal/bus"
	"github.com/deskshell/reasoncore/internal/types"
)

func newTestAuditor() *Auditor {
	return &Auditor{}
}

func TestCheck_MetaGoalDAGViolation(t *testing.T) {
	a := newTestAuditor()
	meta := types.MetaGoal{
		MetaType: types.MetaDependentMulti,
		Goals: []types.Goal{
			{GoalID: "g0", Domain: "files", Verb: "create", Scope: "root"},
			{GoalID: "g1", Domain: "files", Verb: "move", Scope: "root"},
		},
		Dependencies: map[int][]int{1: {5}}, // forward reference to a goal index that doesn't exist
	}
	a.check(bus.Event{Stage: bus.StageGoalInterpreter, Kind: "emit", Payload: meta})

	if len(a.Violations()) == 0 {
		t.Error("expected a metagoal_dag violation for an edge referencing an unknown goal")
	}
}

func TestCheck_MetaGoalValidSingleNoViolation(t *testing.T) {
	a := newTestAuditor()
	meta := types.MetaGoal{
		MetaType: types.MetaSingle,
		Goals:    []types.Goal{{GoalID: "g0", Domain: "files", Verb: "create", Scope: "root"}},
	}
	a.check(bus.Event{Stage: bus.StageGoalInterpreter, Kind: "emit", Payload: meta})

	if len(a.Violations()) != 0 {
		t.Errorf("expected no violations for a valid single goal, got %v", a.Violations())
	}
}

func TestCheck_PathAuthorityRejectsRelativePath(t *testing.T) {
	a := newTestAuditor()
	graph := types.PlanGraph{
		Nodes: map[string]types.PlannedAction{
			"g0_a1": {
				ActionID: "g0_a1",
				Intent:   types.IntentFileOperation,
				Args:     map[string]string{"path": "relative/untouched.txt"},
			},
		},
		ExecutionOrder: []string{"g0_a1"},
	}
	result := types.OrchestrationResult{Status: types.OrchestrationSuccess, Graph: &graph}
	a.check(bus.Event{Stage: bus.StageGoalOrchestrator, Kind: "emit", Payload: result})

	violations := a.Violations()
	found := false
	for _, v := range violations {
		if v.Rule == "path_authority" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a path_authority violation for a relative path, got %v", violations)
	}
}

func TestCheck_PathAuthorityAcceptsAbsolutePath(t *testing.T) {
	a := newTestAuditor()
	graph := types.PlanGraph{
		Nodes: map[string]types.PlannedAction{
			"g0_a1": {
				ActionID: "g0_a1",
				Intent:   types.IntentFileOperation,
				Args:     map[string]string{"path": "/Users/alex/Desktop/report.txt"},
			},
		},
		ExecutionOrder: []string{"g0_a1"},
	}
	result := types.OrchestrationResult{Status: types.OrchestrationSuccess, Graph: &graph}
	a.check(bus.Event{Stage: bus.StageGoalOrchestrator, Kind: "emit", Payload: result})

	for _, v := range a.Violations() {
		if v.Rule == "path_authority" {
			t.Errorf("unexpected path_authority violation for an absolute path: %v", v)
		}
	}
}

func TestCheck_NoToolResolutionRecorded(t *testing.T) {
	a := newTestAuditor()
	a.check(bus.Event{
		Stage:  bus.StageToolResolver,
		Kind:   "resolve",
		Detail: "intent=input_control action=g0_a1 via=no_tool",
	})

	violations := a.Violations()
	if len(violations) != 1 || violations[0].Rule != "no_tool" {
		t.Errorf("expected exactly one no_tool violation, got %v", violations)
	}
}

func TestCheck_SuccessfulResolutionNotRecorded(t *testing.T) {
	a := newTestAuditor()
	a.check(bus.Event{
		Stage:  bus.StageToolResolver,
		Kind:   "resolve",
		Detail: "intent=file_operation action=g0_a1 via=direct tool=files.create_file",
	})

	if len(a.Violations()) != 0 {
		t.Errorf("expected no violations for a resolved tool, got %v", a.Violations())
	}
}

func TestLooksAbsolute(t *testing.T) {
	cases := map[string]bool{
		"":                       false,
		"/Users/alex/file.txt":   true,
		"relative/file.txt":      false,
		`D:\alex\file.txt`:       true,
		"D:":                     false,
	}
	for path, want := range cases {
		if got := looksAbsolute(path); got != want {
			t.Errorf("looksAbsolute(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestWriteEvent_NilLogFileIsNoop(t *testing.T) {
	a := newTestAuditor()
	// logFile is nil; this must not panic.
	a.writeEvent(Violation{Rule: "test"})
}

func TestNew_EmptyLogPathSkipsPersistence(t *testing.T) {
	tap := make(chan bus.Event)
	a := New(tap, "")
	if a.logFile != nil {
		t.Error("expected no log file to be opened when logPath is empty")
	}
}

func TestRun_StopsOnDone(t *testing.T) {
	tap := make(chan bus.Event)
	a := New(tap, "")
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		a.Run(done)
		close(finished)
	}()
	close(done)
	<-finished
}

