// Package goalinterpreter implements stage (B2): turning a Multi-routed
// utterance into a MetaGoal — an ordered tuple of parametric goals plus a
// dependency DAG derived locally, never by the LLM.
package goalinterpreter

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/deskshell/reasoncore/internal/bus"
	"github.com/deskshell/reasoncore/internal/llmprovider"
	"github.com/deskshell/reasoncore/internal/types"
)

const systemPrompt = `You decompose a desktop automation request into an
ordered list of goals. Each goal has:
  domain   - e.g. "browser", "file", "app", "system"
  verb     - e.g. "navigate", "create_folder", "create_file", "launch"
  params   - a flat object of string key/value pairs (e.g. {"url": "..."})
  object   - optional short identity name for the thing this goal acts on
  scope    - one of:
               "root"                 (independent goal)
               "after:<verb>"         (must run after the most recent goal with that verb)
               "after:<goal_id>"      (must run after a specific earlier goal id, e.g. "after:g0")
               "inside:<target>"      (contained within an earlier goal's object/target)
               a base-anchor token: "drive:D", "drive:C", "desktop", "documents",
               "downloads", "workspace" (sets this goal's root location)

Do not compute dependency indices yourself — scope strings are enough; the
caller derives the dependency graph. Emit goals in the order a human would
naturally perform them. Respond with a JSON array of goal objects only.`

const singleSystemPrompt = `You extract exactly ONE goal from a desktop
automation request. The request expresses a single atomic action; any later
clause describes a property of that SAME action (a destination, a search
query, a target), never an independent effect — fuse it into the one goal's
params.

Each goal has:
  domain - e.g. "browser", "file", "app", "system"
  verb   - e.g. "navigate", "search", "launch", "create_folder"
  params - a flat object of string key/value pairs. For a browser search,
           emit {"query": "<the search terms>"} (and "base" only when the
           user names a non-default site's search URL prefix).
  object - optional short identity name for the thing acted on

Examples:
  "open youtube and search nvidia"
    -> {"domain":"browser","verb":"search","params":{"query":"nvidia"}}
  "open spotify"
    -> {"domain":"app","verb":"launch","params":{"app_name":"spotify"}}
  "turn the volume to 40"
    -> {"domain":"system","verb":"volume","params":{"level":"40"}}

Respond with a single JSON goal object only.`

var singleGoalSchema = &jsonschema.Schema{
	Type:     "object",
	Required: []string{"domain", "verb"},
	Properties: map[string]*jsonschema.Schema{
		"domain": {Type: "string"},
		"verb":   {Type: "string"},
		"object": {Type: "string"},
		"params": {Type: "object"},
	},
}

var goalArraySchema = &jsonschema.Schema{
	Type: "array",
	Items: &jsonschema.Schema{
		Type:     "object",
		Required: []string{"domain", "verb", "scope"},
		Properties: map[string]*jsonschema.Schema{
			"domain": {Type: "string"},
			"verb":   {Type: "string"},
			"object": {Type: "string"},
			"scope":  {Type: "string"},
			"params": {Type: "object"},
		},
	},
}

type rawGoal struct {
	Domain string            `json:"domain"`
	Verb   string            `json:"verb"`
	Object string            `json:"object"`
	Scope  string            `json:"scope"`
	Params map[string]string `json:"params"`
}

// anchorTokens are the recognized base-anchor scope values. A scope
// equal to one of these (or prefixed "drive:") sets the goal's anchor
// and implies no dependency by itself.
var anchorTokens = map[string]bool{
	"desktop":   true,
	"documents": true,
	"downloads": true,
	"workspace": true,
}

func isAnchor(scope string) bool {
	return anchorTokens[scope] || strings.HasPrefix(scope, "drive:")
}

// Interpreter implements the LLM-decomposition-plus-local-dependency-
// derivation algorithm.
type Interpreter struct {
	llm *llmprovider.Client
	bus *bus.Bus
}

// New builds an Interpreter. b may be nil to skip event publication.
func New(llm *llmprovider.Client, b *bus.Bus) *Interpreter {
	return &Interpreter{llm: llm, bus: b}
}

// Interpret turns utt into a MetaGoal. On a schema violation it falls
// back to a synthetic Single meta-goal with an unknown-domain goal, which
// the planner will reject downstream.
func (in *Interpreter) Interpret(ctx context.Context, utt types.Utterance) types.MetaGoal {
	var raw []rawGoal
	if err := in.llm.Generate(ctx, systemPrompt, utt.Text, goalArraySchema, &raw); err != nil || len(raw) == 0 {
		return in.fallback()
	}

	goals := make([]types.Goal, len(raw))
	for i, rg := range raw {
		goals[i] = types.Goal{
			GoalID: goalID(i),
			Domain: rg.Domain,
			Verb:   rg.Verb,
			Object: rg.Object,
			Scope:  rg.Scope,
			Params: rg.Params,
		}
	}

	deps := deriveDependencies(goals)
	meta := types.MetaGoal{Goals: goals, Dependencies: deps, MetaType: classifyMetaType(goals, deps)}
	in.publish(meta)
	return meta
}

func goalID(i int) string {
	return "g" + strconv.Itoa(i)
}

// InterpretSingle extracts the one goal a Single-routed utterance
// expresses. Unlike Interpret, it never decomposes: trailing clauses are
// fused into the single goal's params ("open youtube and search nvidia"
// yields one browser/search goal carrying the query, not a navigate plus
// a search). intent is the IntentClassifier's already-decided tag, passed
// as a hint so the extraction agrees with the routing decision.
func (in *Interpreter) InterpretSingle(ctx context.Context, utt types.Utterance, intent types.Intent) (types.Goal, bool) {
	var rg rawGoal
	user := "intent: " + string(intent) + "\nutterance: " + utt.Text
	if err := in.llm.Generate(ctx, singleSystemPrompt, user, singleGoalSchema, &rg); err != nil {
		return types.Goal{}, false
	}
	goal := types.Goal{
		GoalID: "g0",
		Domain: rg.Domain,
		Verb:   rg.Verb,
		Object: rg.Object,
		Scope:  "root",
		Params: rg.Params,
	}
	in.publish(types.MetaGoal{MetaType: types.MetaSingle, Goals: []types.Goal{goal}})
	return goal, true
}

// deriveDependencies is the single local authority for turning each goal's
// scope string into a dependency-map entry. It maintains an implicit
// container stack so that an anaphoric "inside:<target>" binds to the most
// recently opened container when the target doesn't name an earlier goal
// directly — an explicit base-anchor scope always resets/overrides the
// stack rather than being overridden by it.
func deriveDependencies(goals []types.Goal) map[int][]int {
	deps := make(map[int][]int)
	var containerStack []int // indices of goals that opened a container, most-recent last

	for i, g := range goals {
		switch {
		case g.Scope == "" || g.Scope == "root":
			// independent; nothing pushed unless this goal itself is a container-opening verb

		case isAnchor(g.Scope):
			// Explicit anchor: resets scope, no dependency of its own.
			containerStack = nil

		case strings.HasPrefix(g.Scope, "after:"):
			target := strings.TrimPrefix(g.Scope, "after:")
			if parent, ok := resolveAfter(goals, i, target); ok {
				addDep(deps, i, parent)
			}

		case strings.HasPrefix(g.Scope, "inside:"):
			target := strings.TrimPrefix(g.Scope, "inside:")
			if parent, ok := resolveInside(goals, i, target, containerStack); ok {
				addDep(deps, i, parent)
			}
		}

		if isContainerOpening(g) {
			containerStack = append(containerStack, i)
		}
	}
	return deps
}

func addDep(deps map[int][]int, child, parent int) {
	if parent == child || parent >= child {
		log.Printf("goalinterpreter: dropping invalid dependency %d -> %d (self or forward reference)", child, parent)
		return
	}
	deps[child] = append(deps[child], parent)
}

// resolveAfter finds the dependency target for "after:<verb>" (most recent
// earlier goal with that verb) or "after:<goal_id>" (that exact earlier
// goal).
func resolveAfter(goals []types.Goal, i int, target string) (int, bool) {
	if strings.HasPrefix(target, "g") {
		for j := 0; j < i; j++ {
			if goals[j].GoalID == target {
				return j, true
			}
		}
		return 0, false
	}
	for j := i - 1; j >= 0; j-- {
		if goals[j].Verb == target {
			return j, true
		}
	}
	return 0, false
}

// resolveInside finds the containment parent for "inside:<target>": the
// earliest earlier file-operation goal whose object matches target; absent
// a direct match, the most recently opened container on the stack. Only
// file-domain goals can contain things — a non-file goal that happens to
// share the target's name never becomes the parent.
func resolveInside(goals []types.Goal, i int, target string, stack []int) (int, bool) {
	for j := 0; j < i; j++ {
		if goals[j].Domain != "file" {
			continue
		}
		if goals[j].Object == target || goals[j].GoalID == target {
			return j, true
		}
	}
	if len(stack) > 0 {
		return stack[len(stack)-1], true
	}
	return 0, false
}

// isContainerOpening reports whether g's verb creates something that a
// later goal could anaphorically refer to ("inside it").
func isContainerOpening(g types.Goal) bool {
	switch g.Verb {
	case "create_folder", "open_folder", "create_directory":
		return true
	default:
		return false
	}
}

func classifyMetaType(goals []types.Goal, deps map[int][]int) types.MetaType {
	if len(goals) == 1 && len(deps) == 0 {
		return types.MetaSingle
	}
	if len(deps) == 0 {
		return types.MetaIndependentMulti
	}
	return types.MetaDependentMulti
}

func (in *Interpreter) fallback() types.MetaGoal {
	meta := types.MetaGoal{
		MetaType: types.MetaSingle,
		Goals:    []types.Goal{{GoalID: "g0", Domain: "unknown", Verb: "unknown", Scope: "root"}},
	}
	in.publish(meta)
	return meta
}

func (in *Interpreter) publish(m types.MetaGoal) {
	if in.bus == nil {
		return
	}
	in.bus.Publish(bus.Event{Timestamp: time.Now(), Stage: bus.StageGoalInterpreter, Kind: "emit", Payload: m})
}
