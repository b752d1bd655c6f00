// Package types holds the immutable value types that cross stage
// boundaries in the reasoning-and-planning core: Utterance through
// PlanGraph. Every type here is built once by its owning stage and never
// mutated afterward; later stages only read.
package types

import "fmt"

// Classification is the output of the QueryClassifier: exactly one tag,
// never a payload.
type Classification string

const (
	ClassSingle Classification = "single"
	ClassMulti  Classification = "multi"
)

// Intent is a tag drawn from a closed set of categories. New tags are a
// deliberate, reviewed change — callers must not invent one on the fly.
type Intent string

const (
	IntentApplicationLaunch Intent = "application_launch"
	IntentFileOperation     Intent = "file_operation"
	IntentSystemControl     Intent = "system_control"
	IntentBrowserControl    Intent = "browser_control"
	IntentInformationQuery  Intent = "information_query"
	IntentInputControl      Intent = "input_control"
	IntentMediaControl      Intent = "media_control"
	IntentWindowManagement  Intent = "window_management"
	IntentClipboardControl  Intent = "clipboard_control"
	IntentNetworkControl    Intent = "network_control"
	IntentSchedule          Intent = "schedule_control"
	IntentSearch            Intent = "search"
	IntentNotification      Intent = "notification"
	IntentAutomation        Intent = "automation"
	IntentUnknown           Intent = "unknown"
)

// AllIntents lists every closed intent tag, in declaration order — used by
// classifier prompts that must enumerate the full set and by tests that
// assert exhaustive handling.
var AllIntents = []Intent{
	IntentApplicationLaunch, IntentFileOperation, IntentSystemControl,
	IntentBrowserControl, IntentInformationQuery, IntentInputControl,
	IntentMediaControl, IntentWindowManagement, IntentClipboardControl,
	IntentNetworkControl, IntentSchedule, IntentSearch, IntentNotification,
	IntentAutomation, IntentUnknown,
}

// Decision is the Act-vs-Ask outcome of the IntentClassifier. Ask is a
// hard terminal state: no tool resolution may follow it.
type Decision string

const (
	DecisionAct Decision = "act"
	DecisionAsk Decision = "ask"
)

// IntentResult is the single-path IntentClassifier's output.
type IntentResult struct {
	Decision   Decision
	Intent     Intent
	Confidence float64 // [0, 1]
	Question   string  // set only when Decision == DecisionAsk
}

// MetaType classifies a MetaGoal's dependency shape.
type MetaType string

const (
	MetaSingle           MetaType = "single"
	MetaIndependentMulti MetaType = "independent_multi"
	MetaDependentMulti   MetaType = "dependent_multi"
)

// ActionClass distinguishes actions that change world state from ones that
// merely observe or produce context for later goals.
type ActionClass string

const (
	ActionActuate ActionClass = "actuate"
	ActionObserve ActionClass = "observe"
)

// WorldState is a frozen snapshot of ambient OS/session state, taken once
// at request entry. Nothing downstream may mutate it.
type WorldState struct {
	RunningApplications   []string
	FocusedWindow         string
	BrowserSessionPresent bool
	ClipboardAvailable    bool
	RecentFacts           []string
}

// Utterance is the raw user request plus the state it was issued against.
type Utterance struct {
	Text      string
	SessionID string
	World     WorldState
}

// Goal is one parametric desired effect. Params is treated as read-only by
// every consumer; GoalInterpreter is the only writer.
type Goal struct {
	GoalID       string
	Domain       string
	Verb         string
	Params       map[string]string
	Object       string
	Scope        string
	ResolvedPath string // filled by the orchestrator's PathResolver for file-domain goals
}

// WithResolvedPath returns a copy of g with ResolvedPath set. Goals are
// treated as immutable once produced by the interpreter; the orchestrator
// never mutates a Goal in place.
func (g Goal) WithResolvedPath(path string) Goal {
	g.ResolvedPath = path
	return g
}

// MetaGoal is the interpreter's output: an ordered tuple of goals plus a
// dependency DAG over their indices. Dependencies maps a child index to
// the tuple of parent indices it must wait on.
type MetaGoal struct {
	MetaType     MetaType
	Goals        []Goal
	Dependencies map[int][]int
}

// Validate checks the DAG invariants: acyclic, no
// self-dependency, no forward reference, and the Single-shape constraint.
func (m MetaGoal) Validate() error {
	if m.MetaType == MetaSingle {
		if len(m.Goals) != 1 || len(m.Dependencies) != 0 {
			return fmt.Errorf("metagoal: Single requires exactly one goal and no dependencies")
		}
	}
	for child, parents := range m.Dependencies {
		if child < 0 || child >= len(m.Goals) {
			return fmt.Errorf("metagoal: dependency child index %d out of range", child)
		}
		for _, p := range parents {
			if p == child {
				return fmt.Errorf("metagoal: goal %d depends on itself", child)
			}
			if p >= child {
				return fmt.Errorf("metagoal: goal %d has a forward reference to %d", child, p)
			}
		}
	}
	return acyclic(m.Dependencies, len(m.Goals))
}

func acyclic(deps map[int][]int, n int) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, n)
	var visit func(int) error
	visit = func(i int) error {
		color[i] = gray
		for _, p := range deps[i] {
			switch color[p] {
			case gray:
				return fmt.Errorf("metagoal: dependency cycle involving goal %d", p)
			case white:
				if err := visit(p); err != nil {
					return err
				}
			}
		}
		color[i] = black
		return nil
	}
	for i := 0; i < n; i++ {
		if color[i] == white {
			if err := visit(i); err != nil {
				return err
			}
		}
	}
	return nil
}

// Capability describes one registered tool, as drawn from the external
// ToolRegistry (internal/tools.Registry implements the consumer side).
type Capability struct {
	ToolName              string
	IntentTags            []Intent
	RequiredPreconditions []string
	Effects               []string
	Schema                map[string]any // JSON-schema-shaped description of args
	RequiresSession       bool
	IsDestructive         bool
}

// PlannedAction is one validated, parameter-authoritative step emitted by
// a GoalPlanner. Args is the final parameter set; no downstream stage may
// add, remove, or rewrite a key already present.
type PlannedAction struct {
	ActionID    string
	GoalIndex   int
	Intent      Intent
	Description string
	Args        map[string]string
	ActionClass ActionClass
	// ContextOnly marks an action that exists to carry a ContextFrame to a
	// later goal and dispatches no tool. The executor records it as
	// succeeded without consulting the resolver.
	ContextOnly bool
}

// Plan is one goal's planner output.
type Plan struct {
	Actions        []PlannedAction
	GoalAchievedBy string // an action id in Actions
	TotalActions   int
}

// Validate checks that TotalActions matches the action count and that
// GoalAchievedBy names one of the plan's actions.
func (p Plan) Validate() error {
	if p.TotalActions != len(p.Actions) {
		return fmt.Errorf("plan: total_actions %d != len(actions) %d", p.TotalActions, len(p.Actions))
	}
	for _, a := range p.Actions {
		if a.ActionID == p.GoalAchievedBy {
			return nil
		}
	}
	return fmt.Errorf("plan: goal_achieved_by %q is not among the plan's action ids", p.GoalAchievedBy)
}

// ContextFrame is small typed data threaded between planners via declared
// consumption/production rules. ProducedBy is an action id.
type ContextFrame struct {
	ProducedBy string
	Domain     string
	Data       map[string]string
}

// PlanGraph is the assembled DAG over all planned actions in a MetaGoal.
type PlanGraph struct {
	Nodes          map[string]PlannedAction
	Edges          map[string][]string // action id -> parent action ids
	ExecutionOrder []string            // valid topological order covering every node
	GoalMap        map[int][]string    // goal index -> its action ids
}

// Validate checks that every edge endpoint is a node and that
// ExecutionOrder is a valid topological sort covering every node.
func (g PlanGraph) Validate() error {
	for id, parents := range g.Edges {
		if _, ok := g.Nodes[id]; !ok {
			return fmt.Errorf("plangraph: edge child %q is not a node", id)
		}
		for _, p := range parents {
			if _, ok := g.Nodes[p]; !ok {
				return fmt.Errorf("plangraph: edge parent %q is not a node", p)
			}
		}
	}
	if len(g.ExecutionOrder) != len(g.Nodes) {
		return fmt.Errorf("plangraph: execution_order has %d entries, want %d", len(g.ExecutionOrder), len(g.Nodes))
	}
	position := make(map[string]int, len(g.ExecutionOrder))
	for i, id := range g.ExecutionOrder {
		if _, ok := g.Nodes[id]; !ok {
			return fmt.Errorf("plangraph: execution_order entry %q is not a node", id)
		}
		position[id] = i
	}
	for id, parents := range g.Edges {
		for _, p := range parents {
			if position[p] >= position[id] {
				return fmt.Errorf("plangraph: execution_order places %q before its parent %q", id, p)
			}
		}
	}
	return nil
}

// OrchestrationStatus is the top-level outcome of assembling a MetaGoal
// into a PlanGraph.
type OrchestrationStatus string

const (
	OrchestrationSuccess OrchestrationStatus = "success"
	OrchestrationPartial OrchestrationStatus = "partial"
	OrchestrationBlocked OrchestrationStatus = "blocked"
)

// OrchestrationResult is the GoalOrchestrator's output.
type OrchestrationResult struct {
	Status      OrchestrationStatus
	Graph       *PlanGraph
	FailedGoals []int
}

// FinalStatus is the terminal state of one plan execution.
type FinalStatus string

const (
	FinalSuccess FinalStatus = "success"
	FinalPartial FinalStatus = "partial"
	FinalFailed  FinalStatus = "failed"
	FinalBlocked FinalStatus = "blocked"
)

// ActionOutcome records one action's terminal status after execution.
type ActionOutcome struct {
	ActionID string
	Status   string // "success" | "error" | "skipped"
	Output   any
	Reason   string
}

// Result is the CLI-facing outcome of one processed request.
type Result struct {
	FinalStatus FinalStatus
	Outcomes    []ActionOutcome
	Summary     string
}
