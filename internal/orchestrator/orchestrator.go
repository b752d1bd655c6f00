// Package orchestrator implements stage (C): assembling per-goal Plans
// into one PlanGraph, resolving filesystem paths authoritatively via
// PathResolver, and threading ContextFrames between goals. It is a pure
// function of its inputs — MetaGoal and WorldState are never mutated.
package orchestrator

import (
	"log"
	"strconv"
	"time"

	"github.com/deskshell/reasoncore/internal/bus"
	"github.com/deskshell/reasoncore/internal/goalplanner"
	"github.com/deskshell/reasoncore/internal/types"
)

// Orchestrator assembles a MetaGoal into a PlanGraph.
type Orchestrator struct {
	planner *goalplanner.Planner
	paths   *PathResolver
	bus     *bus.Bus
}

// New builds an Orchestrator. b may be nil to skip event publication.
func New(planner *goalplanner.Planner, paths *PathResolver, b *bus.Bus) *Orchestrator {
	return &Orchestrator{planner: planner, paths: paths, bus: b}
}

// Orchestrate assembles meta into a PlanGraph against world.
//
// Because MetaGoal.Validate forbids forward references, every dependency
// parent index is strictly less than its child — so iterating goal
// indices in ascending order is already a valid topological schedule; no
// separate sort step is needed.
func (o *Orchestrator) Orchestrate(meta types.MetaGoal, world types.WorldState) types.OrchestrationResult {
	n := len(meta.Goals)
	failed := make([]bool, n)
	resolvedPath := make([]string, n)
	lastActionOf := make(map[int]string, n)

	nodes := make(map[string]types.PlannedAction)
	edges := make(map[string][]string)
	goalMap := make(map[int][]string)
	var execOrder []string
	var failedGoals []int
	var frames []types.ContextFrame

	for gi := 0; gi < n; gi++ {
		goal := meta.Goals[gi]

		if parentFailed(meta.Dependencies[gi], failed) {
			failed[gi] = true
			failedGoals = append(failedGoals, gi)
			continue
		}

		if goal.Domain == "file" {
			parentPath := ""
			for _, p := range meta.Dependencies[gi] {
				if resolvedPath[p] != "" {
					parentPath = resolvedPath[p]
				}
			}
			abs := o.paths.Resolve(goal.Scope, identityOf(goal), parentPath)
			resolvedPath[gi] = abs
			goal = goal.WithResolvedPath(abs)
		}

		result := o.planner.Plan(goal, world, frames)
		if result.Status != goalplanner.StatusOK {
			failed[gi] = true
			failedGoals = append(failedGoals, gi)
			continue
		}

		if rule, ok := goalplanner.LookupRule(goal.Domain, goal.Verb); ok && rule.AllowSemanticOnly && rule.ContextProduction != nil {
			if !goalplanner.RequiresDownstreamConsumer(rule.ContextProduction.Domain) {
				log.Printf("orchestrator: goal %s produces context for domain %q with no declared consumer; marking failed rather than inventing a tool", goal.GoalID, rule.ContextProduction.Domain)
				failed[gi] = true
				failedGoals = append(failedGoals, gi)
				continue
			}
		}

		for _, action := range result.Plan.Actions {
			action.GoalIndex = gi
			nodes[action.ActionID] = action
			goalMap[gi] = append(goalMap[gi], action.ActionID)
			execOrder = append(execOrder, action.ActionID)
			lastActionOf[gi] = action.ActionID
		}
		if result.Produced != nil {
			frames = append(frames, *result.Produced)
		}

		for _, p := range meta.Dependencies[gi] {
			parentLast, ok := lastActionOf[p]
			if !ok {
				continue
			}
			for _, childID := range goalMap[gi] {
				edges[childID] = append(edges[childID], parentLast)
			}
		}
	}

	graph := types.PlanGraph{Nodes: nodes, Edges: edges, ExecutionOrder: execOrder, GoalMap: goalMap}
	status := aggregateStatus(n, failedGoals)
	result := types.OrchestrationResult{Status: status, Graph: &graph, FailedGoals: failedGoals}
	o.publish(result)
	return result
}

func parentFailed(parents []int, failed []bool) bool {
	for _, p := range parents {
		if failed[p] {
			return true
		}
	}
	return false
}

// identityOf returns the name a goal acts on, for path combination: the
// explicit Object if the interpreter set one, else a path/target param.
func identityOf(goal types.Goal) string {
	if goal.Object != "" {
		return goal.Object
	}
	if v, ok := goal.Params["path"]; ok {
		return v
	}
	return goal.Params["target"]
}

// aggregateStatus implements the partial-success rule: Success iff every
// goal planned; Blocked iff none did; Partial otherwise.
func aggregateStatus(total int, failedGoals []int) types.OrchestrationStatus {
	switch {
	case len(failedGoals) == 0:
		return types.OrchestrationSuccess
	case len(failedGoals) == total:
		return types.OrchestrationBlocked
	default:
		return types.OrchestrationPartial
	}
}

func (o *Orchestrator) publish(r types.OrchestrationResult) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(bus.Event{
		Timestamp: time.Now(),
		Stage:     bus.StageGoalOrchestrator,
		Kind:      "emit",
		Detail:    "status=" + string(r.Status) + " failed_goals=" + strconv.Itoa(len(r.FailedGoals)),
		Payload:   r,
	})
}
