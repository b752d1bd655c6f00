// Package executor implements stage (F): driving a PlanGraph against
// resolved tools in topological order, with plan-scoped session lifecycle
// and precondition enforcement. One Executor value is built fresh per
// plan execution and discarded at the end; it is never reused across
// requests. Independent actions within a wave dispatch concurrently;
// every dependency edge completes before its child starts.
package executor

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deskshell/reasoncore/internal/bus"
	"github.com/deskshell/reasoncore/internal/errkind"
	"github.com/deskshell/reasoncore/internal/types"
)

// Resolver is the external ToolResolver collaborator (stage E).
type Resolver interface {
	Resolve(intent types.Intent, action types.PlannedAction) (string, error)
}

// ToolExecutor is the external ToolRegistry collaborator's dispatch side.
// internal/tools.Registry implements it.
type ToolExecutor interface {
	Get(name string) (types.Capability, bool)
	Execute(ctx context.Context, name string, args map[string]string) (map[string]any, error)
}

// PreconditionChecker answers whether a named precondition currently
// holds, given the frozen WorldState for this request. The executor
// enforces these, never an LLM prompt.
type PreconditionChecker func(world types.WorldState, precondition string) bool

// ConfirmDestructive is the explicit confirmation channel a destructive
// action's precondition requires. A nil ConfirmDestructive denies every
// destructive action (fail-safe default).
type ConfirmDestructive func(action types.PlannedAction) bool

// destructiveCooldown is the wait every confirmed destructive action
// serves before it runs; the waits are serialized, so concurrent
// destructive actions start at least this far apart.
const destructiveCooldown = 250 * time.Millisecond

// Executor drives exactly one PlanGraph to completion. Build a new value
// per request via New; never reuse one across plans.
type Executor struct {
	resolver   Resolver
	tools      ToolExecutor
	bus        *bus.Bus
	checkPre   PreconditionChecker
	confirm    ConfirmDestructive
	precheck   func(types.PlannedAction, types.WorldState) (bool, error) // goal-satisfaction hook; Execute does not call it
	sessionID  string
	mu         sync.Mutex
	pressedMod []string
}

// New builds an Executor for one plan run. checkPre and confirm may be
// nil; nil checkPre treats every precondition as satisfied (useful for
// tests and Observe-only plans), nil confirm denies all destructive
// actions.
func New(resolver Resolver, tools ToolExecutor, b *bus.Bus, checkPre PreconditionChecker, confirm ConfirmDestructive) *Executor {
	return &Executor{resolver: resolver, tools: tools, bus: b, checkPre: checkPre, confirm: confirm}
}

// WithPrecheck stores a goal-satisfaction hook (is the effect already
// true before execution?). Execute does not call the stored hook, and no
// component sets one.
func (e *Executor) WithPrecheck(f func(types.PlannedAction, types.WorldState) (bool, error)) *Executor {
	e.precheck = f
	return e
}

// Execute drives graph to completion against world, honoring ctx
// cancellation. Independent actions (no unresolved parent) may run
// concurrently; every dependency edge completes before its child starts.
func (e *Executor) Execute(ctx context.Context, graph types.PlanGraph, world types.WorldState) types.Result {
	if needsSession(graph, e.tools, e.resolver) {
		e.sessionID = uuid.NewString()
		e.publish("session_acquire", e.sessionID)
	}
	defer e.releaseModifiers(context.Background())

	outcomes := make(map[string]types.ActionOutcome, len(graph.Nodes))
	var mu sync.Mutex

	remaining := make(map[string]int, len(graph.Nodes)) // unresolved parent count
	children := make(map[string][]string)                // parent id -> dependent child ids
	for id, parents := range graph.Edges {
		remaining[id] = len(parents)
		for _, p := range parents {
			children[p] = append(children[p], id)
		}
	}
	for id := range graph.Nodes {
		if _, ok := remaining[id]; !ok {
			remaining[id] = 0
		}
	}

	var ready []string
	for id, n := range remaining {
		if n == 0 {
			ready = append(ready, id)
		}
	}

	cancelled := false
	for len(ready) > 0 {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		batch := ready
		ready = nil

		var wg sync.WaitGroup
		var destructiveGate sync.Mutex
		for _, id := range batch {
			action := graph.Nodes[id]
			parents := graph.Edges[id]
			if parentFailed(parents, outcomes) {
				mu.Lock()
				outcomes[id] = types.ActionOutcome{ActionID: id, Status: "skipped", Reason: "dependency_failed"}
				mu.Unlock()
				e.publish("skip", id+" dependency_failed")
				continue
			}

			wg.Add(1)
			go func(action types.PlannedAction) {
				defer wg.Done()
				outcome := e.runOne(ctx, action, world, &destructiveGate)
				mu.Lock()
				outcomes[outcome.ActionID] = outcome
				mu.Unlock()
			}(action)
		}
		wg.Wait()

		for _, id := range batch {
			for _, child := range children[id] {
				remaining[child]--
				if remaining[child] == 0 {
					ready = append(ready, child)
				}
			}
		}
	}

	return e.aggregate(graph, outcomes, cancelled)
}

func parentFailed(parents []string, outcomes map[string]types.ActionOutcome) bool {
	for _, p := range parents {
		if o, ok := outcomes[p]; ok && o.Status != "success" {
			return true
		}
	}
	return false
}

// runOne invokes exactly one action: precondition checks, tool resolution
// is already done upstream of dispatch semantics but re-resolved here
// since the resolver is a pure lookup with no side effects worth caching
// across goroutines.
func (e *Executor) runOne(ctx context.Context, action types.PlannedAction, world types.WorldState, destructiveGate *sync.Mutex) types.ActionOutcome {
	if action.ContextOnly {
		// The action's whole effect was the ContextFrame its planner emitted
		// at planning time; there is no tool to dispatch.
		e.publish("success", action.ActionID+" context_only")
		return types.ActionOutcome{ActionID: action.ActionID, Status: "success", Reason: "context_only"}
	}

	toolName, err := e.resolver.Resolve(action.Intent, action)
	if err != nil {
		e.publish("error", action.ActionID+": "+err.Error())
		return types.ActionOutcome{ActionID: action.ActionID, Status: "error", Reason: err.Error()}
	}

	capability, _ := e.tools.Get(toolName)

	for _, pre := range capability.RequiredPreconditions {
		if !e.satisfied(world, pre) {
			reason := errkind.New("executor", errkind.PreconditionUnmet, fmt.Errorf("%s unmet for %s", pre, toolName)).Error()
			e.publish("error", action.ActionID+": "+reason)
			return types.ActionOutcome{ActionID: action.ActionID, Status: "error", Reason: reason}
		}
	}
	if capability.IsDestructive {
		if e.confirm == nil || !e.confirm(action) {
			reason := errkind.New("executor", errkind.PreconditionUnmet, fmt.Errorf("destructive action %s not confirmed", toolName)).Error()
			e.publish("error", action.ActionID+": "+reason)
			return types.ActionOutcome{ActionID: action.ActionID, Status: "error", Reason: reason}
		}
		destructiveGate.Lock()
		time.Sleep(destructiveCooldown)
		destructiveGate.Unlock()
	}

	args := action.Args
	if capability.RequiresSession && e.sessionID != "" {
		args = withSession(args, e.sessionID)
	}
	e.trackModifiers(toolName, args)

	result, err := e.tools.Execute(ctx, toolName, args)
	if err != nil {
		reason := errkind.New("executor", errkind.ToolFailure, err).Error()
		e.publish("error", action.ActionID+": "+reason)
		e.releaseModifiers(ctx)
		return types.ActionOutcome{ActionID: action.ActionID, Status: "error", Reason: reason}
	}

	status, _ := result["status"].(string)
	if status == "error" {
		reason, _ := result["error"].(string)
		e.publish("error", action.ActionID+": "+reason)
		e.releaseModifiers(ctx)
		return types.ActionOutcome{ActionID: action.ActionID, Status: "error", Output: result, Reason: reason}
	}

	e.publish("success", action.ActionID+" via "+toolName)
	return types.ActionOutcome{ActionID: action.ActionID, Status: "success", Output: result}
}

func (e *Executor) satisfied(world types.WorldState, precondition string) bool {
	if e.checkPre != nil {
		return e.checkPre(world, precondition)
	}
	switch precondition {
	case "requires_active_app":
		return world.FocusedWindow != "" || len(world.RunningApplications) > 0
	case "requires_focus":
		return world.FocusedWindow != ""
	case "requires_unlocked_screen", "path_exists":
		return true
	default:
		return true
	}
}

// trackModifiers registers a key_press action's modifier keys so a later
// failure can force their release.
func (e *Executor) trackModifiers(toolName string, args map[string]string) {
	if toolName != "system.input.key_press" {
		return
	}
	mods := args["modifiers"]
	if mods == "" {
		return
	}
	e.mu.Lock()
	e.pressedMod = append(e.pressedMod, strings.Split(mods, ",")...)
	e.mu.Unlock()
}

func (e *Executor) releaseModifiers(ctx context.Context) {
	e.mu.Lock()
	mods := e.pressedMod
	e.pressedMod = nil
	e.mu.Unlock()
	if len(mods) == 0 {
		return
	}
	log.Printf("executor: releasing held modifier keys: %v", mods)
	if e.tools != nil {
		_, _ = e.tools.Execute(ctx, "system.input.key_press", map[string]string{"key": "release:" + strings.Join(mods, "+")})
	}
}

func withSession(args map[string]string, sessionID string) map[string]string {
	out := make(map[string]string, len(args)+1)
	for k, v := range args {
		out[k] = v
	}
	out["session_id"] = sessionID
	return out
}

// needsSession reports whether any node in graph resolves to a
// RequiresSession capability, so the session is acquired exactly once at
// plan start rather than by whichever action happens to run first.
func needsSession(graph types.PlanGraph, tools ToolExecutor, resolver Resolver) bool {
	for _, action := range graph.Nodes {
		if action.ContextOnly {
			continue
		}
		name, err := resolver.Resolve(action.Intent, action)
		if err != nil {
			continue
		}
		if capability, ok := tools.Get(name); ok && capability.RequiresSession {
			return true
		}
	}
	return false
}

// aggregate rolls per-action outcomes up into the terminal Result.
func (e *Executor) aggregate(graph types.PlanGraph, outcomes map[string]types.ActionOutcome, cancelled bool) types.Result {
	list := make([]types.ActionOutcome, 0, len(graph.Nodes))
	succeeded, failed := 0, 0
	for _, id := range graph.ExecutionOrder {
		o, ok := outcomes[id]
		if !ok {
			o = types.ActionOutcome{ActionID: id, Status: "skipped", Reason: "not_reached"}
		}
		list = append(list, o)
		switch o.Status {
		case "success":
			succeeded++
		default:
			failed++
		}
	}

	var final types.FinalStatus
	switch {
	case len(list) == 0:
		final = types.FinalBlocked
	case cancelled:
		final = types.FinalPartial
	case succeeded == len(list):
		final = types.FinalSuccess
	case succeeded == 0:
		final = types.FinalFailed
	default:
		final = types.FinalPartial
	}

	summary := fmt.Sprintf("%d/%d actions succeeded", succeeded, len(list))
	e.publish("final", string(final)+" "+summary)
	return types.Result{FinalStatus: final, Outcomes: list, Summary: summary}
}

func (e *Executor) publish(kind, detail string) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(bus.Event{Timestamp: time.Now(), Stage: bus.StagePlanExecutor, Kind: kind, Detail: detail})
}
