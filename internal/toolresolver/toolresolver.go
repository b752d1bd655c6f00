// Package toolresolver implements stage (E): choosing exactly one
// registered tool for a PlannedAction, locked to the domains its intent
// is allowed to touch. It never edits Args — ToolResolver owns tool
// choice and nothing else.
package toolresolver

import (
	"log"
	"sort"
	"strings"
	"time"

	"github.com/deskshell/reasoncore/internal/bus"
	"github.com/deskshell/reasoncore/internal/errkind"
	"github.com/deskshell/reasoncore/internal/types"
)

// Registry is the external ToolRegistry collaborator. internal/tools.Registry
// implements it.
type Registry interface {
	Has(name string) bool
	Get(name string) (types.Capability, bool)
	ListByPrefix(prefix string) []types.Capability
	ListAll() []types.Capability
}

// Resolver picks one tool name per PlannedAction.
type Resolver struct {
	registry Registry
	bus      *bus.Bus
}

// New builds a Resolver. b may be nil to skip event publication.
func New(registry Registry, b *bus.Bus) *Resolver {
	return &Resolver{registry: registry, bus: b}
}

// Resolve picks a tool name for action under intent. It never widens the
// search beyond intent's own domain tables, even when Stage 1 and Stage 2
// both come up empty.
func (r *Resolver) Resolve(intent types.Intent, action types.PlannedAction) (string, error) {
	if name, ok := r.directLookup(intent, action.Description); ok {
		r.publish(intent, action, name, "direct")
		return name, nil
	}

	if name, ok := r.similarityFallback(intent, action.Description); ok {
		r.publish(intent, action, name, "fallback")
		return name, nil
	}

	err := errkind.New("toolresolver", errkind.NoTool, nil)
	r.publish(intent, action, "", "no_tool")
	return "", err
}

// directLookup is Stage 1: a literal table match (see directLookup in
// domains.go) restricted to intent's preferred domains and gated against
// intent's disallowed domains, then checked against the live registry.
func (r *Resolver) directLookup(intent types.Intent, description string) (string, bool) {
	for prefix, toolName := range directLookup {
		if !strings.HasPrefix(description, prefix) {
			continue
		}
		if !inAnyPrefix(toolName, IntentToolDomains[intent]) {
			continue
		}
		if inAnyPrefix(toolName, IntentDisallowedDomains[intent]) {
			continue
		}
		if r.registry.Has(toolName) {
			return toolName, true
		}
	}
	return "", false
}

// similarityFallback is Stage 2: restricted to intent's (stricter)
// IntentAllowedDomains, excluding IntentDisallowedDomains, ranked by
// shared-token overlap between description and the candidate's tool name.
// A raw-input tool like system.input.* is never reachable here for any
// intent but input_control, because it is never in IntentAllowedDomains
// for any other intent.
func (r *Resolver) similarityFallback(intent types.Intent, description string) (string, bool) {
	allowed := IntentAllowedDomains[intent]
	if len(allowed) == 0 {
		return "", false
	}
	disallowed := IntentDisallowedDomains[intent]

	descTokens := tokenize(description)
	type scored struct {
		name  string
		score int
	}
	var candidates []scored
	for _, prefix := range allowed {
		for _, cap := range r.registry.ListByPrefix(prefix) {
			if inAnyPrefix(cap.ToolName, disallowed) {
				continue
			}
			score := overlap(descTokens, tokenize(cap.ToolName))
			if score > 0 {
				candidates = append(candidates, scored{cap.ToolName, score})
			}
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	return candidates[0].name, true
}

func inAnyPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func tokenize(s string) map[string]bool {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == '_' || r == ':' || r == ' ' || r == '{' || r == '}'
	})
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f != "" {
			set[strings.ToLower(f)] = true
		}
	}
	return set
}

func overlap(a, b map[string]bool) int {
	n := 0
	for k := range a {
		if b[k] {
			n++
		}
	}
	return n
}

func (r *Resolver) publish(intent types.Intent, action types.PlannedAction, toolName, via string) {
	if r.bus == nil {
		return
	}
	detail := "intent=" + string(intent) + " action=" + action.ActionID + " via=" + via
	if toolName != "" {
		detail += " tool=" + toolName
	}
	r.bus.Publish(bus.Event{
		Timestamp: time.Now(),
		Stage:     bus.StageToolResolver,
		Kind:      "resolve",
		Detail:    detail,
	})
	if via == "no_tool" {
		log.Printf("toolresolver: no tool satisfies intent=%s action=%s within its locked domains", intent, action.ActionID)
	}
}
