package goalinterpreter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/deskshell/reasoncore/internal/llmprovider"
	"github.com/deskshell/reasoncore/internal/types"
)

// newTestClient stands up a fake chat-completions endpoint that always
// replies with content, and points a fresh Client at it via the shared
// environment variables.
func newTestClient(t *testing.T, content string) *llmprovider.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	t.Setenv("OPENAI_BASE_URL", srv.URL)
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_MODEL", "test-model")
	return llmprovider.New()
}

func TestInterpretSingle_FusesClausesIntoOneGoal(t *testing.T) {
	in := New(newTestClient(t, `{"domain":"browser","verb":"search","params":{"query":"nvidia"}}`), nil)
	goal, ok := in.InterpretSingle(context.Background(),
		types.Utterance{Text: "open youtube and search nvidia"}, types.IntentBrowserControl)
	if !ok {
		t.Fatal("expected a goal from a well-formed response")
	}
	if goal.GoalID != "g0" || goal.Scope != "root" {
		t.Errorf("got id=%q scope=%q, want g0/root", goal.GoalID, goal.Scope)
	}
	if goal.Domain != "browser" || goal.Verb != "search" || goal.Params["query"] != "nvidia" {
		t.Errorf("got %+v, want a browser/search goal carrying the query", goal)
	}
}

func TestInterpretSingle_MalformedResponseReportsFailure(t *testing.T) {
	in := New(newTestClient(t, `not a goal`), nil)
	if _, ok := in.InterpretSingle(context.Background(),
		types.Utterance{Text: "do something"}, types.IntentUnknown); ok {
		t.Error("expected failure on a schema-invalid response")
	}
}

func TestDeriveDependencies_ContainmentScenario(t *testing.T) {
	// "create folder alex on D drive and create presentation.pptx inside it"
	goals := []types.Goal{
		{GoalID: "g0", Domain: "file", Verb: "create_folder", Object: "alex", Scope: "drive:D"},
		{GoalID: "g1", Domain: "file", Verb: "create_file", Object: "presentation.pptx", Scope: "inside:alex"},
	}
	deps := deriveDependencies(goals)
	want := map[int][]int{1: {0}}
	if !reflect.DeepEqual(deps, want) {
		t.Errorf("got %v, want %v", deps, want)
	}
}

func TestDeriveDependencies_IndependentGoalsEmptyMap(t *testing.T) {
	// "open chrome and open spotify"
	goals := []types.Goal{
		{GoalID: "g0", Domain: "app", Verb: "launch", Object: "chrome", Scope: "root"},
		{GoalID: "g1", Domain: "app", Verb: "launch", Object: "spotify", Scope: "root"},
	}
	deps := deriveDependencies(goals)
	if len(deps) != 0 {
		t.Errorf("expected no dependencies, got %v", deps)
	}
}

func TestDeriveDependencies_AfterVerbBindsMostRecentMatch(t *testing.T) {
	goals := []types.Goal{
		{GoalID: "g0", Domain: "browser", Verb: "navigate", Scope: "root"},
		{GoalID: "g1", Domain: "browser", Verb: "search", Scope: "after:navigate"},
	}
	deps := deriveDependencies(goals)
	want := map[int][]int{1: {0}}
	if !reflect.DeepEqual(deps, want) {
		t.Errorf("got %v, want %v", deps, want)
	}
}

func TestDeriveDependencies_ForwardReferenceDropped(t *testing.T) {
	goals := []types.Goal{
		{GoalID: "g0", Domain: "file", Verb: "create_folder", Scope: "after:g1"},
		{GoalID: "g1", Domain: "file", Verb: "create_file", Scope: "root"},
	}
	deps := deriveDependencies(goals)
	if len(deps) != 0 {
		t.Errorf("expected forward reference to be dropped, got %v", deps)
	}
}

func TestDeriveDependencies_ContainerStackBindsMostRecentContainer(t *testing.T) {
	// Two containers opened, then an anaphoric "inside it" with no direct
	// object match should bind to the most recently opened container.
	goals := []types.Goal{
		{GoalID: "g0", Domain: "file", Verb: "create_folder", Object: "alex", Scope: "drive:D"},
		{GoalID: "g1", Domain: "file", Verb: "create_folder", Object: "reports", Scope: "inside:alex"},
		{GoalID: "g2", Domain: "file", Verb: "create_file", Object: "q1.docx", Scope: "inside:it"},
	}
	deps := deriveDependencies(goals)
	if got := deps[2]; len(got) != 1 || got[0] != 1 {
		t.Errorf("expected g2 to depend on the most recently opened container (index 1), got %v", deps)
	}
}

func TestDeriveDependencies_InsideIgnoresNonFileGoalsWithMatchingObject(t *testing.T) {
	// An earlier app goal sharing the target's name must not become the
	// containment parent; the file goal that actually opened the
	// container wins.
	goals := []types.Goal{
		{GoalID: "g0", Domain: "app", Verb: "launch", Object: "reports", Scope: "root"},
		{GoalID: "g1", Domain: "file", Verb: "create_folder", Object: "reports", Scope: "root"},
		{GoalID: "g2", Domain: "file", Verb: "create_file", Object: "q1.docx", Scope: "inside:reports"},
	}
	deps := deriveDependencies(goals)
	if got := deps[2]; len(got) != 1 || got[0] != 1 {
		t.Errorf("expected g2 to depend on the file goal (index 1), got %v", deps)
	}
}

func TestClassifyMetaType(t *testing.T) {
	cases := []struct {
		name  string
		goals []types.Goal
		deps  map[int][]int
		want  types.MetaType
	}{
		{"single", []types.Goal{{}}, map[int][]int{}, types.MetaSingle},
		{"independent", []types.Goal{{}, {}}, map[int][]int{}, types.MetaIndependentMulti},
		{"dependent", []types.Goal{{}, {}}, map[int][]int{1: {0}}, types.MetaDependentMulti},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyMetaType(tc.goals, tc.deps); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}
