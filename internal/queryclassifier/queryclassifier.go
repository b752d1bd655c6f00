// Package queryclassifier implements stage (A): deciding whether an
// utterance expresses one atomic goal or several, and routing accordingly.
// The classifier is stateless and never inspects WorldState.
package queryclassifier

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/deskshell/reasoncore/internal/bus"
	"github.com/deskshell/reasoncore/internal/types"
)

// Generator is the subset of llmprovider.Client the classifier needs. It
// exists so the LLM-fallback path can be exercised with a fake in tests
// without standing up a real provider.
type Generator interface {
	GenerateText(ctx context.Context, system, user string) (string, error)
}

const systemPrompt = `You are a query router for a desktop automation assistant.
Given one user utterance, decide whether it expresses exactly one goal or
more than one goal. Multiple clauses that describe properties of the SAME
action (a destination, a search query, a target) are still ONE goal. Two
independent launch/open actions, or any utterance with an explicit
ordering or containment reference ("then", "after that", "inside it",
"into it"), are MULTIPLE goals.
Respond with exactly one word: "single" or "multi". No punctuation, no
explanation.`

var dependencyMarkers = []*regexp.Regexp{
	regexp.MustCompile(`\binside\s+(it|that|the)\b`),
	regexp.MustCompile(`\binto\s+(it|that|the)\b`),
	regexp.MustCompile(`\bto\s+(it|that|the)\b`),
	regexp.MustCompile(`\bthen\b`),
	regexp.MustCompile(`\bafter\s+that\b`),
}

// launchVerbs are the verbs recognized by the independent-multi pattern
// family ("<verb> X and <verb> Y"). Kept narrow and explicit rather than a
// generic verb list, since only launch/open clauses count as independent
// effects under the tie-break policy.
var launchVerbs = map[string]bool{
	"open":   true,
	"launch": true,
	"start":  true,
	"run":    true,
}

var independentMultiPattern = regexp.MustCompile(`\b(open|launch|start|run)\s+\S+(?:\s+\S+){0,3}?\s+and\s+(open|launch|start|run)\s+\S+`)

// Classifier implements the deterministic-then-LLM two-phase algorithm.
type Classifier struct {
	llm Generator
	bus *bus.Bus
}

// New builds a Classifier. b may be nil to skip event publication.
func New(llm Generator, b *bus.Bus) *Classifier {
	return &Classifier{llm: llm, bus: b}
}

// Classify decides Single or Multi for utt. It never mutates utt.
func (c *Classifier) Classify(ctx context.Context, utt types.Utterance) types.Classification {
	folded := strings.ToLower(utt.Text)

	if cls, matched := deterministic(folded); matched {
		c.publish(cls, "deterministic")
		return cls
	}

	cls := c.llmFallback(ctx, utt.Text)
	c.publish(cls, "llm_fallback")
	return cls
}

func deterministic(folded string) (types.Classification, bool) {
	for _, re := range dependencyMarkers {
		if re.MatchString(folded) {
			return types.ClassMulti, true
		}
	}
	if m := independentMultiPattern.FindStringSubmatch(folded); m != nil {
		if launchVerbs[m[1]] && launchVerbs[m[2]] {
			return types.ClassMulti, true
		}
	}
	return "", false
}

// llmFallback asks the provider and falls back to Multi (the richer
// pipeline handles both shapes safely) on any provider failure.
func (c *Classifier) llmFallback(ctx context.Context, text string) types.Classification {
	if c.llm == nil {
		return types.ClassMulti
	}
	out, err := c.llm.GenerateText(ctx, systemPrompt, text)
	if err != nil {
		return types.ClassMulti
	}
	switch strings.ToLower(strings.TrimSpace(out)) {
	case "single":
		return types.ClassSingle
	case "multi":
		return types.ClassMulti
	default:
		return types.ClassMulti
	}
}

func (c *Classifier) publish(cls types.Classification, via string) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(bus.Event{Timestamp: time.Now(), Stage: bus.StageQueryClassifier, Kind: "emit", Detail: via, Payload: cls})
}
