// Package goalplanner implements stage (D): turning one parametric Goal
// plus WorldState and the PlannerRules table into a minimal Plan. The
// planner body is table-driven — it reads Rule fields, it never
// special-cases by domain or verb name — and is a pure function of its
// inputs: WorldState is read, never mutated.
package goalplanner

import (
	"strconv"
	"strings"

	"github.com/deskshell/reasoncore/internal/types"
)

// Status is the outcome of planning one goal.
type Status string

const (
	StatusOK               Status = "ok"
	StatusNoCapability     Status = "no_capability"
	StatusValidationFailed Status = "validation_failed"
)

// Result is the GoalPlanner's output for one goal.
type Result struct {
	Status   Status
	Plan     types.Plan
	Produced *types.ContextFrame // non-nil when the rule declares context_production
	Reason   string               // populated on StatusNoCapability and StatusValidationFailed
}

// FactSource is the optional, swappable fallback behind a rule's
// context_consumption entry when no ContextFrame produced earlier in this
// request satisfies it. internal/factstore.Store implements it. Explicit
// goal.Params and same-request ContextFrames always take precedence over
// it.
type FactSource interface {
	RecentFacts(domain string) []string
}

// Planner looks up (domain, verb) in PlannerRules and validates/formats
// exactly one PlannedAction per goal.
type Planner struct {
	facts FactSource
}

// New builds a Planner with no fact-store fallback. The rules table is
// package-level configuration data, not a dependency.
func New() *Planner { return &Planner{} }

// WithFacts returns a Planner that additionally falls back to facts for
// any context_consumption entry left unfilled by this request's own
// ContextFrames.
func (p *Planner) WithFacts(facts FactSource) *Planner {
	return &Planner{facts: facts}
}

// Plan produces a minimal Plan for goal, given the ContextFrames produced
// by earlier goals in the same request (for context_consumption fallback).
func (p *Planner) Plan(goal types.Goal, world types.WorldState, frames []types.ContextFrame) Result {
	rule, ok := PlannerRules[ruleKey{goal.Domain, goal.Verb}]
	if !ok {
		return Result{Status: StatusNoCapability, Reason: "no rule for (" + goal.Domain + ", " + goal.Verb + ")"}
	}

	params := mergeParams(rule, goal, frames, p.facts)

	// If resolved_path was set by the orchestrator's PathResolver, it is
	// the authoritative value for the action's "path" param — attached
	// before validation so a file goal identified only by its object name
	// still satisfies a required "path".
	if goal.ResolvedPath != "" {
		params["path"] = goal.ResolvedPath
	}

	missing := missingRequired(rule, params)
	if len(missing) > 0 && !rule.AllowSemanticOnly {
		return Result{
			Status: StatusValidationFailed,
			Reason: "missing required params: " + strings.Join(missing, ", "),
		}
	}
	if err := checkAllowedValues(rule, params); err != "" {
		return Result{Status: StatusValidationFailed, Reason: err}
	}

	actionID := goal.GoalID + "_a1"
	action := types.PlannedAction{
		ActionID:    actionID,
		GoalIndex:   0, // filled in by the orchestrator, which knows the goal's index
		Intent:      types.Intent(rule.Intent),
		Description: formatDescription(rule.DescriptionTemplate, params),
		Args:        params,
		ActionClass: types.ActionClass(rule.ActionClass),
		ContextOnly: rule.AllowSemanticOnly,
	}

	var produced *types.ContextFrame
	if rule.ContextProduction != nil {
		data := make(map[string]string, len(rule.ContextProduction.Keys))
		for _, k := range rule.ContextProduction.Keys {
			data[k] = params[k]
		}
		produced = &types.ContextFrame{ProducedBy: actionID, Domain: rule.ContextProduction.Domain, Data: data}
	}

	plan := types.Plan{Actions: []types.PlannedAction{action}, GoalAchievedBy: actionID, TotalActions: 1}
	return Result{Status: StatusOK, Plan: plan, Produced: produced}
}

// mergeParams applies default_params under goal.Params, then fills any
// still-missing context_consumption key from the most recent matching ContextFrame,
// falling back to facts when no frame from this request satisfies it, and
// finally derives any declared computed params from what is now present.
// Explicit user params always win over defaults, context, and computation.
func mergeParams(rule Rule, goal types.Goal, frames []types.ContextFrame, facts FactSource) map[string]string {
	merged := make(map[string]string, len(rule.DefaultParams)+len(goal.Params))
	for k, v := range rule.DefaultParams {
		merged[k] = v
	}
	for k, v := range goal.Params {
		merged[k] = v
	}
	for param, src := range rule.ContextConsumption {
		if _, present := merged[param]; present {
			continue
		}
		if v, ok := latestFrameValue(frames, src); ok {
			merged[param] = v
			continue
		}
		if facts == nil {
			continue
		}
		if recent := facts.RecentFacts(src.Domain); len(recent) > 0 {
			merged[param] = recent[0]
		}
	}
	for param, template := range rule.ComputedParams {
		if _, present := merged[param]; present {
			continue
		}
		merged[param] = formatDescription(template, merged)
	}
	return merged
}

// latestFrameValue scans frames in reverse (most recently produced first)
// for one matching src.Domain and carrying src.Key.
func latestFrameValue(frames []types.ContextFrame, src ContextSource) (string, bool) {
	for i := len(frames) - 1; i >= 0; i-- {
		f := frames[i]
		if f.Domain != src.Domain {
			continue
		}
		if v, ok := f.Data[src.Key]; ok {
			return v, true
		}
	}
	return "", false
}

func missingRequired(rule Rule, params map[string]string) []string {
	var missing []string
	for _, key := range rule.RequiredParams {
		if v, ok := params[key]; !ok || v == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

func checkAllowedValues(rule Rule, params map[string]string) string {
	for key, allowed := range rule.AllowedValues {
		v, ok := params[key]
		if !ok {
			continue
		}
		valid := false
		for _, a := range allowed {
			if a == v {
				valid = true
				break
			}
		}
		if !valid {
			return "invalid value for " + key + ": " + strconv.Quote(v)
		}
	}
	return ""
}

func formatDescription(template string, params map[string]string) string {
	out := template
	for k, v := range params {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}

// LookupRule exposes the table lookup for callers (the orchestrator) that
// need to inspect a rule's shape — e.g. AllowSemanticOnly and its
// ContextProduction domain — without re-planning the goal.
func LookupRule(domain, verb string) (Rule, bool) {
	r, ok := PlannerRules[ruleKey{domain, verb}]
	return r, ok
}

// RequiresDownstreamConsumer reports whether any rule in the table
// declares a context_consumption entry for the given domain — used by the
// orchestrator to reject a context-only goal whose frame nothing
// downstream reads, rather than fabricating a tool for it.
func RequiresDownstreamConsumer(domain string) bool {
	for _, rule := range PlannerRules {
		for _, src := range rule.ContextConsumption {
			if src.Domain == domain {
				return true
			}
		}
	}
	return false
}
