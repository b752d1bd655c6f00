package goalplanner

import (
	"testing"

	"github.com/deskshell/reasoncore/internal/types"
)

func TestPlan_NoCapabilityForUnknownRule(t *testing.T) {
	p := New()
	goal := types.Goal{GoalID: "g0", Domain: "system", Verb: "schedule_task"}
	res := p.Plan(goal, types.WorldState{}, nil)
	if res.Status != StatusNoCapability {
		t.Errorf("got %v, want StatusNoCapability", res.Status)
	}
}

func TestPlan_ValidationFailedOnMissingRequiredParam(t *testing.T) {
	p := New()
	goal := types.Goal{GoalID: "g0", Domain: "browser", Verb: "navigate", Params: map[string]string{}}
	res := p.Plan(goal, types.WorldState{}, nil)
	if res.Status != StatusValidationFailed {
		t.Errorf("got %v, want StatusValidationFailed", res.Status)
	}
}

func TestPlan_EmitsOneActionAndProducesContext(t *testing.T) {
	p := New()
	goal := types.Goal{
		GoalID: "g0", Domain: "browser", Verb: "navigate",
		Params: map[string]string{"url": "https://example.com"},
	}
	res := p.Plan(goal, types.WorldState{}, nil)
	if res.Status != StatusOK {
		t.Fatalf("got %v, want StatusOK (reason: %s)", res.Status, res.Reason)
	}
	if err := res.Plan.Validate(); err != nil {
		t.Errorf("plan invariant violated: %v", err)
	}
	if got := res.Plan.Actions[0].Description; got != "navigate:https://example.com" {
		t.Errorf("got description %q", got)
	}
	if res.Produced == nil || res.Produced.Data["url"] != "https://example.com" {
		t.Errorf("expected produced context frame carrying url, got %+v", res.Produced)
	}
}

func TestPlan_SearchQueryComputesResultsURL(t *testing.T) {
	// "open youtube and search nvidia": the query param alone must yield
	// the full search-results URL in both the description and the args.
	p := New()
	goal := types.Goal{
		GoalID: "g0", Domain: "browser", Verb: "search",
		Params: map[string]string{"query": "nvidia"},
	}
	res := p.Plan(goal, types.WorldState{}, nil)
	if res.Status != StatusOK {
		t.Fatalf("got %v, want StatusOK (reason: %s)", res.Status, res.Reason)
	}
	const wantURL = "https://www.youtube.com/results?search_query=nvidia"
	if got := res.Plan.Actions[0].Args["url"]; got != wantURL {
		t.Errorf("got url %q, want %q", got, wantURL)
	}
	if got := res.Plan.Actions[0].Description; got != "navigate:"+wantURL {
		t.Errorf("got description %q, want %q", got, "navigate:"+wantURL)
	}
}

func TestPlan_ExplicitURLWinsOverComputation(t *testing.T) {
	p := New()
	goal := types.Goal{
		GoalID: "g0", Domain: "browser", Verb: "search",
		Params: map[string]string{"query": "nvidia", "url": "https://explicit.example"},
	}
	res := p.Plan(goal, types.WorldState{}, nil)
	if got := res.Plan.Actions[0].Args["url"]; got != "https://explicit.example" {
		t.Errorf("explicit param should win over the computed value, got %q", got)
	}
}

func TestPlan_ContextConsumptionFillsMissingParam(t *testing.T) {
	p := New()
	frames := []types.ContextFrame{
		{ProducedBy: "g0_a1", Domain: "clipboard", Data: map[string]string{"text": "copied earlier"}},
	}
	goal := types.Goal{GoalID: "g1", Domain: "clipboard", Verb: "paste", Params: map[string]string{}}
	res := p.Plan(goal, types.WorldState{}, frames)
	if res.Status != StatusOK {
		t.Fatalf("got %v, want StatusOK (reason: %s)", res.Status, res.Reason)
	}
	if got := res.Plan.Actions[0].Args["text"]; got != "copied earlier" {
		t.Errorf("expected text filled from context frame, got %q", got)
	}
}

func TestPlan_ExplicitParamWinsOverContext(t *testing.T) {
	p := New()
	frames := []types.ContextFrame{
		{ProducedBy: "g0_a1", Domain: "clipboard", Data: map[string]string{"text": "copied earlier"}},
	}
	goal := types.Goal{
		GoalID: "g1", Domain: "clipboard", Verb: "paste",
		Params: map[string]string{"text": "explicit"},
	}
	res := p.Plan(goal, types.WorldState{}, frames)
	if got := res.Plan.Actions[0].Args["text"]; got != "explicit" {
		t.Errorf("explicit param should win, got %q", got)
	}
}

// fakeFacts is a FactSource stub for the fact-store-fallback path.
type fakeFacts struct {
	byDomain map[string][]string
}

func (f *fakeFacts) RecentFacts(domain string) []string { return f.byDomain[domain] }

func TestPlan_FactStoreFillsParamWhenNoFrameMatches(t *testing.T) {
	p := New().WithFacts(&fakeFacts{byDomain: map[string][]string{
		"clipboard": {"remembered text", "older text"},
	}})
	goal := types.Goal{GoalID: "g0", Domain: "clipboard", Verb: "paste", Params: map[string]string{}}
	res := p.Plan(goal, types.WorldState{}, nil)
	if res.Status != StatusOK {
		t.Fatalf("got %v, want StatusOK (reason: %s)", res.Status, res.Reason)
	}
	if got := res.Plan.Actions[0].Args["text"]; got != "remembered text" {
		t.Errorf("expected the newest fact to fill the param, got %q", got)
	}
}

func TestPlan_FrameAndExplicitParamBothBeatFactStore(t *testing.T) {
	facts := &fakeFacts{byDomain: map[string][]string{"clipboard": {"from facts"}}}
	p := New().WithFacts(facts)

	frames := []types.ContextFrame{
		{ProducedBy: "g0_a1", Domain: "clipboard", Data: map[string]string{"text": "from frame"}},
	}
	res := p.Plan(types.Goal{GoalID: "g1", Domain: "clipboard", Verb: "paste"}, types.WorldState{}, frames)
	if got := res.Plan.Actions[0].Args["text"]; got != "from frame" {
		t.Errorf("same-request frame should beat the fact store, got %q", got)
	}

	goal := types.Goal{
		GoalID: "g2", Domain: "clipboard", Verb: "paste",
		Params: map[string]string{"text": "explicit"},
	}
	res = p.Plan(goal, types.WorldState{}, frames)
	if got := res.Plan.Actions[0].Args["text"]; got != "explicit" {
		t.Errorf("explicit param should beat frame and fact store, got %q", got)
	}
}

func TestPlan_AllowSemanticOnlySkipsMissingRequiredCheck(t *testing.T) {
	p := New()
	goal := types.Goal{GoalID: "g0", Domain: "note", Verb: "jot", Params: map[string]string{}}
	res := p.Plan(goal, types.WorldState{}, nil)
	if res.Status != StatusOK {
		t.Fatalf("got %v, want StatusOK (reason: %s)", res.Status, res.Reason)
	}
	if res.Plan.Actions[0].ActionClass != types.ActionObserve {
		t.Errorf("expected an Observe action for a semantic-only rule")
	}
	if !res.Plan.Actions[0].ContextOnly {
		t.Errorf("expected a semantic-only rule to mark its action context-only")
	}
}

func TestPlan_ResolvedPathSatisfiesRequiredPathParam(t *testing.T) {
	p := New()
	goal := types.Goal{
		GoalID: "g0", Domain: "file", Verb: "create_folder",
		Object: "alex", ResolvedPath: `D:\alex`,
	}
	res := p.Plan(goal, types.WorldState{}, nil)
	if res.Status != StatusOK {
		t.Fatalf("got %v, want StatusOK (reason: %s)", res.Status, res.Reason)
	}
	if got := res.Plan.Actions[0].Args["path"]; got != `D:\alex` {
		t.Errorf("got path %q, want the resolver-attached absolute path", got)
	}
}

func TestRequiresDownstreamConsumer(t *testing.T) {
	if !RequiresDownstreamConsumer("note") {
		t.Errorf("expected note domain to have a downstream consumer (notification rule)")
	}
	if RequiresDownstreamConsumer("no-such-domain") {
		t.Errorf("expected no consumer for a made-up domain")
	}
}
