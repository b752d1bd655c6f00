package executor

import (
	"context"
	"testing"

	"github.com/deskshell/reasoncore/internal/types"
)

// fakeResolver maps every action's ActionID to a fixed tool name.
type fakeResolver struct {
	toolByAction map[string]string
}

func (f *fakeResolver) Resolve(intent types.Intent, action types.PlannedAction) (string, error) {
	name, ok := f.toolByAction[action.ActionID]
	if !ok {
		name = "noop.tool"
	}
	return name, nil
}

// fakeTools is a minimal in-memory ToolExecutor for tests.
type fakeTools struct {
	caps    map[string]types.Capability
	fail    map[string]bool
	execLog []string
}

func (f *fakeTools) Get(name string) (types.Capability, bool) {
	c, ok := f.caps[name]
	return c, ok
}

func (f *fakeTools) Execute(ctx context.Context, name string, args map[string]string) (map[string]any, error) {
	f.execLog = append(f.execLog, name)
	if f.fail[name] {
		return map[string]any{"status": "error", "error": "boom"}, nil
	}
	return map[string]any{"status": "success"}, nil
}

func newFakeTools() *fakeTools {
	return &fakeTools{
		caps: map[string]types.Capability{
			"noop.tool": {ToolName: "noop.tool"},
		},
		fail: map[string]bool{},
	}
}

func TestExecute_AllSucceedYieldsSuccess(t *testing.T) {
	graph := types.PlanGraph{
		Nodes: map[string]types.PlannedAction{
			"a": {ActionID: "a", Intent: types.IntentFileOperation},
			"b": {ActionID: "b", Intent: types.IntentFileOperation},
		},
		Edges:          map[string][]string{"b": {"a"}},
		ExecutionOrder: []string{"a", "b"},
	}
	resolver := &fakeResolver{toolByAction: map[string]string{"a": "noop.tool", "b": "noop.tool"}}
	tools := newFakeTools()

	e := New(resolver, tools, nil, nil, nil)
	result := e.Execute(context.Background(), graph, types.WorldState{})

	if result.FinalStatus != types.FinalSuccess {
		t.Fatalf("got final status %v, want success", result.FinalStatus)
	}
	if len(result.Outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(result.Outcomes))
	}
}

func TestExecute_DependencyFailurePropagates(t *testing.T) {
	graph := types.PlanGraph{
		Nodes: map[string]types.PlannedAction{
			"a": {ActionID: "a", Intent: types.IntentFileOperation},
			"b": {ActionID: "b", Intent: types.IntentFileOperation},
		},
		Edges:          map[string][]string{"b": {"a"}},
		ExecutionOrder: []string{"a", "b"},
	}
	resolver := &fakeResolver{toolByAction: map[string]string{"a": "noop.tool", "b": "noop.tool"}}
	tools := newFakeTools()
	tools.fail["noop.tool"] = true

	e := New(resolver, tools, nil, nil, nil)
	result := e.Execute(context.Background(), graph, types.WorldState{})

	if result.FinalStatus != types.FinalFailed {
		t.Fatalf("got final status %v, want failed", result.FinalStatus)
	}
	var bOutcome types.ActionOutcome
	for _, o := range result.Outcomes {
		if o.ActionID == "b" {
			bOutcome = o
		}
	}
	if bOutcome.Status != "skipped" || bOutcome.Reason != "dependency_failed" {
		t.Errorf("got b outcome %+v, want skipped/dependency_failed", bOutcome)
	}
	// b's tool must never have been invoked.
	for _, name := range tools.execLog {
		if name == "noop.tool" && len(tools.execLog) > 1 {
			t.Fatalf("expected only one invocation of noop.tool (for a), got log %v", tools.execLog)
		}
	}
}

func TestExecute_PreconditionUnmetFailsAction(t *testing.T) {
	graph := types.PlanGraph{
		Nodes: map[string]types.PlannedAction{
			"a": {ActionID: "a", Intent: types.IntentWindowManagement},
		},
		ExecutionOrder: []string{"a"},
	}
	resolver := &fakeResolver{toolByAction: map[string]string{"a": "window.focus"}}
	tools := newFakeTools()
	tools.caps["window.focus"] = types.Capability{
		ToolName:              "window.focus",
		RequiredPreconditions: []string{"requires_active_app"},
	}

	e := New(resolver, tools, nil, nil, nil)
	result := e.Execute(context.Background(), graph, types.WorldState{}) // no running apps

	if result.FinalStatus != types.FinalFailed {
		t.Fatalf("got final status %v, want failed", result.FinalStatus)
	}
	if result.Outcomes[0].Status != "error" {
		t.Errorf("got outcome status %q, want error", result.Outcomes[0].Status)
	}
}

func TestExecute_DestructiveActionDeniedWithoutConfirm(t *testing.T) {
	graph := types.PlanGraph{
		Nodes: map[string]types.PlannedAction{
			"a": {ActionID: "a", Intent: types.IntentFileOperation},
		},
		ExecutionOrder: []string{"a"},
	}
	resolver := &fakeResolver{toolByAction: map[string]string{"a": "files.move"}}
	tools := newFakeTools()
	tools.caps["files.move"] = types.Capability{ToolName: "files.move", IsDestructive: true}

	e := New(resolver, tools, nil, nil, nil) // nil confirm denies all destructive actions
	result := e.Execute(context.Background(), graph, types.WorldState{})

	if result.Outcomes[0].Status != "error" {
		t.Errorf("got outcome status %q, want error (destructive action must be denied by default)", result.Outcomes[0].Status)
	}
}

func TestExecute_ContextOnlyActionSucceedsWithoutTool(t *testing.T) {
	graph := types.PlanGraph{
		Nodes: map[string]types.PlannedAction{
			"a": {ActionID: "a", Intent: types.IntentAutomation, ContextOnly: true},
		},
		ExecutionOrder: []string{"a"},
	}
	tools := newFakeTools()
	// A resolver with no entry for "a" would return noop.tool; the
	// context-only action must never consult it or dispatch anything.
	e := New(&fakeResolver{}, tools, nil, nil, nil)
	result := e.Execute(context.Background(), graph, types.WorldState{})

	if result.FinalStatus != types.FinalSuccess {
		t.Fatalf("got final status %v, want success", result.FinalStatus)
	}
	if len(tools.execLog) != 0 {
		t.Errorf("context-only action dispatched a tool: %v", tools.execLog)
	}
}

func TestExecute_EmptyGraphIsBlocked(t *testing.T) {
	e := New(&fakeResolver{}, newFakeTools(), nil, nil, nil)
	result := e.Execute(context.Background(), types.PlanGraph{}, types.WorldState{})
	if result.FinalStatus != types.FinalBlocked {
		t.Fatalf("got final status %v, want blocked", result.FinalStatus)
	}
}
