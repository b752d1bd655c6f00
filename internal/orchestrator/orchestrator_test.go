package orchestrator

import (
	"testing"

	"github.com/deskshell/reasoncore/internal/goalplanner"
	"github.com/deskshell/reasoncore/internal/types"
)

func newOrchestrator(workspace string) *Orchestrator {
	return New(goalplanner.New(), NewPathResolver(workspace), nil)
}

func TestOrchestrate_IndependentMultiProducesTwoNodesZeroEdges(t *testing.T) {
	// "open chrome and open spotify"
	meta := types.MetaGoal{
		MetaType: types.MetaIndependentMulti,
		Goals: []types.Goal{
			{GoalID: "g0", Domain: "app", Verb: "launch", Params: map[string]string{"app_name": "chrome"}, Scope: "root"},
			{GoalID: "g1", Domain: "app", Verb: "launch", Params: map[string]string{"app_name": "spotify"}, Scope: "root"},
		},
		Dependencies: map[int][]int{},
	}
	o := newOrchestrator("/tmp/workspace")
	res := o.Orchestrate(meta, types.WorldState{})
	if res.Status != types.OrchestrationSuccess {
		t.Fatalf("got %v, want success (failed: %v)", res.Status, res.FailedGoals)
	}
	if len(res.Graph.Nodes) != 2 {
		t.Errorf("expected 2 nodes, got %d", len(res.Graph.Nodes))
	}
	for id, parents := range res.Graph.Edges {
		if len(parents) != 0 {
			t.Errorf("expected zero edges, found parents for %s: %v", id, parents)
		}
	}
	if err := res.Graph.Validate(); err != nil {
		t.Errorf("graph invariant violated: %v", err)
	}
}

func TestOrchestrate_ContainmentResolvesSequentialPaths(t *testing.T) {
	// "create folder alex on D drive and create presentation.pptx inside it"
	meta := types.MetaGoal{
		MetaType: types.MetaDependentMulti,
		Goals: []types.Goal{
			{GoalID: "g0", Domain: "file", Verb: "create_folder", Object: "alex", Scope: "drive:D"},
			{GoalID: "g1", Domain: "file", Verb: "create_file", Object: "presentation.pptx", Scope: "inside:alex"},
		},
		Dependencies: map[int][]int{1: {0}},
	}
	o := newOrchestrator("/tmp/workspace")
	res := o.Orchestrate(meta, types.WorldState{})
	if res.Status != types.OrchestrationSuccess {
		t.Fatalf("got %v, want success (failed: %v)", res.Status, res.FailedGoals)
	}

	var folderAction, fileAction types.PlannedAction
	for _, id := range res.Graph.ExecutionOrder {
		a := res.Graph.Nodes[id]
		if a.GoalIndex == 0 {
			folderAction = a
		} else {
			fileAction = a
		}
	}
	if folderAction.Args["path"] != `D:\alex` {
		t.Errorf("got folder path %q, want D:\\alex", folderAction.Args["path"])
	}
	if fileAction.Args["path"] != `D:\alex\presentation.pptx` {
		t.Errorf("got file path %q, want D:\\alex\\presentation.pptx", fileAction.Args["path"])
	}
	if res.Graph.ExecutionOrder[0] != folderAction.ActionID {
		t.Errorf("expected folder creation to execute before file creation")
	}
	if err := res.Graph.Validate(); err != nil {
		t.Errorf("graph invariant violated: %v", err)
	}
}

func TestOrchestrate_NoCapabilityBlocksSingleGoal(t *testing.T) {
	// "schedule a recurring task every Monday at 9am" — no rule covers it
	meta := types.MetaGoal{
		MetaType:     types.MetaSingle,
		Goals:        []types.Goal{{GoalID: "g0", Domain: "system", Verb: "schedule_task", Scope: "root"}},
		Dependencies: map[int][]int{},
	}
	o := newOrchestrator("/tmp/workspace")
	res := o.Orchestrate(meta, types.WorldState{})
	if res.Status != types.OrchestrationBlocked {
		t.Errorf("got %v, want blocked", res.Status)
	}
	if len(res.Graph.Nodes) != 0 {
		t.Errorf("expected no tool invocation attempted, got %d nodes", len(res.Graph.Nodes))
	}
}

func TestOrchestrate_FailedGoalTransitivelyFailsDescendant(t *testing.T) {
	meta := types.MetaGoal{
		MetaType: types.MetaDependentMulti,
		Goals: []types.Goal{
			{GoalID: "g0", Domain: "system", Verb: "schedule_task", Scope: "root"}, // no rule -> NoCapability
			{GoalID: "g1", Domain: "file", Verb: "create_file", Object: "x.txt", Scope: "inside:g0"},
		},
		Dependencies: map[int][]int{1: {0}},
	}
	o := newOrchestrator("/tmp/workspace")
	res := o.Orchestrate(meta, types.WorldState{})
	if res.Status != types.OrchestrationBlocked {
		t.Errorf("got %v, want blocked (both goals should fail)", res.Status)
	}
	if len(res.FailedGoals) != 2 {
		t.Errorf("expected both goals marked failed, got %v", res.FailedGoals)
	}
}

func TestOrchestrate_PartialSuccessWhenOneOfTwoIndependentGoalsFails(t *testing.T) {
	meta := types.MetaGoal{
		MetaType: types.MetaIndependentMulti,
		Goals: []types.Goal{
			{GoalID: "g0", Domain: "app", Verb: "launch", Params: map[string]string{"app_name": "chrome"}, Scope: "root"},
			{GoalID: "g1", Domain: "system", Verb: "schedule_task", Scope: "root"},
		},
		Dependencies: map[int][]int{},
	}
	o := newOrchestrator("/tmp/workspace")
	res := o.Orchestrate(meta, types.WorldState{})
	if res.Status != types.OrchestrationPartial {
		t.Errorf("got %v, want partial", res.Status)
	}
}
