package types

import "testing"

func TestMetaGoalValidate_SingleShape(t *testing.T) {
	m := MetaGoal{MetaType: MetaSingle, Goals: []Goal{{GoalID: "g0"}}}
	if err := m.Validate(); err != nil {
		t.Errorf("valid single metagoal rejected: %v", err)
	}

	m = MetaGoal{MetaType: MetaSingle, Goals: []Goal{{GoalID: "g0"}, {GoalID: "g1"}}}
	if err := m.Validate(); err == nil {
		t.Error("expected rejection: Single with two goals")
	}
}

func TestMetaGoalValidate_SelfDependencyRejected(t *testing.T) {
	m := MetaGoal{
		MetaType:     MetaDependentMulti,
		Goals:        []Goal{{GoalID: "g0"}, {GoalID: "g1"}},
		Dependencies: map[int][]int{1: {1}},
	}
	if err := m.Validate(); err == nil {
		t.Error("expected rejection: goal depending on itself")
	}
}

func TestMetaGoalValidate_ForwardReferenceRejected(t *testing.T) {
	m := MetaGoal{
		MetaType:     MetaDependentMulti,
		Goals:        []Goal{{GoalID: "g0"}, {GoalID: "g1"}},
		Dependencies: map[int][]int{0: {1}},
	}
	if err := m.Validate(); err == nil {
		t.Error("expected rejection: forward reference")
	}
}

func TestMetaGoalValidate_OutOfRangeChildRejected(t *testing.T) {
	m := MetaGoal{
		MetaType:     MetaDependentMulti,
		Goals:        []Goal{{GoalID: "g0"}},
		Dependencies: map[int][]int{4: {0}},
	}
	if err := m.Validate(); err == nil {
		t.Error("expected rejection: dependency child index out of range")
	}
}

func TestMetaGoalValidate_ValidChain(t *testing.T) {
	m := MetaGoal{
		MetaType:     MetaDependentMulti,
		Goals:        []Goal{{GoalID: "g0"}, {GoalID: "g1"}, {GoalID: "g2"}},
		Dependencies: map[int][]int{1: {0}, 2: {1}},
	}
	if err := m.Validate(); err != nil {
		t.Errorf("valid dependency chain rejected: %v", err)
	}
}

func TestPlanValidate(t *testing.T) {
	p := Plan{
		Actions:        []PlannedAction{{ActionID: "g0_a1"}},
		GoalAchievedBy: "g0_a1",
		TotalActions:   1,
	}
	if err := p.Validate(); err != nil {
		t.Errorf("valid plan rejected: %v", err)
	}

	p.TotalActions = 2
	if err := p.Validate(); err == nil {
		t.Error("expected rejection: total_actions mismatch")
	}

	p.TotalActions = 1
	p.GoalAchievedBy = "missing"
	if err := p.Validate(); err == nil {
		t.Error("expected rejection: goal_achieved_by not among actions")
	}
}

func TestPlanGraphValidate(t *testing.T) {
	g := PlanGraph{
		Nodes: map[string]PlannedAction{
			"a": {ActionID: "a"},
			"b": {ActionID: "b"},
		},
		Edges:          map[string][]string{"b": {"a"}},
		ExecutionOrder: []string{"a", "b"},
	}
	if err := g.Validate(); err != nil {
		t.Errorf("valid graph rejected: %v", err)
	}

	g.ExecutionOrder = []string{"b", "a"}
	if err := g.Validate(); err == nil {
		t.Error("expected rejection: execution_order places child before parent")
	}

	g.ExecutionOrder = []string{"a"}
	if err := g.Validate(); err == nil {
		t.Error("expected rejection: execution_order not covering every node")
	}

	g.ExecutionOrder = []string{"a", "b"}
	g.Edges["b"] = []string{"ghost"}
	if err := g.Validate(); err == nil {
		t.Error("expected rejection: edge parent that is not a node")
	}
}

func TestWithResolvedPathReturnsCopy(t *testing.T) {
	orig := Goal{GoalID: "g0", Domain: "file"}
	resolved := orig.WithResolvedPath(`D:\alex`)
	if orig.ResolvedPath != "" {
		t.Error("WithResolvedPath mutated its receiver")
	}
	if resolved.ResolvedPath != `D:\alex` {
		t.Errorf("got %q, want the attached path", resolved.ResolvedPath)
	}
}
