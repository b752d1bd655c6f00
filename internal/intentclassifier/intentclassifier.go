// Package intentclassifier implements stage (B1): classifying a
// Single-routed utterance into one of the closed intent tags and deciding
// Act vs Ask using WorldState. This is the single-path sibling of
// internal/goalinterpreter; once it runs, downstream stages must not
// re-classify.
package intentclassifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/deskshell/reasoncore/internal/bus"
	"github.com/deskshell/reasoncore/internal/llmprovider"
	"github.com/deskshell/reasoncore/internal/types"
)

const systemPrompt = `You classify a single-goal desktop automation request.

Closed intent tags: application_launch, file_operation, system_control,
browser_control, information_query, input_control, media_control,
window_management, clipboard_control, network_control, schedule_control,
search, notification, automation, unknown.

Decide "act" if the utterance and the given world state give you enough to
proceed, or "ask" if something essential is missing or ambiguous (e.g. "close
it" with no known focused window). When you decide "ask", write one short
clarifying question.

Respond with a single JSON object:
{"decision": "act"|"ask", "intent": "<tag>", "confidence": 0.0-1.0, "question": "<string, only when ask>"}`

var resultSchema = &jsonschema.Schema{
	Type:     "object",
	Required: []string{"decision", "intent", "confidence"},
	Properties: map[string]*jsonschema.Schema{
		"decision":   {Type: "string", Enum: []any{"act", "ask"}},
		"intent":     {Type: "string"},
		"confidence": {Type: "number"},
		"question":   {Type: "string"},
	},
}

var validIntents = func() map[string]bool {
	m := make(map[string]bool, len(types.AllIntents))
	for _, i := range types.AllIntents {
		m[string(i)] = true
	}
	return m
}()

type rawResult struct {
	Decision   string  `json:"decision"`
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Question   string  `json:"question"`
}

// Classifier implements the single-path intent classification algorithm.
type Classifier struct {
	llm *llmprovider.Client
	bus *bus.Bus
}

// New builds a Classifier. b may be nil to skip event publication.
func New(llm *llmprovider.Client, b *bus.Bus) *Classifier {
	return &Classifier{llm: llm, bus: b}
}

// Classify returns the Act/Ask decision, intent tag, confidence, and an
// optional clarification question for utt.
//
// Schema-invalid output or an unrecognized intent tag yields
// {intent: unknown, confidence: 0}, routed by the caller to fallback
// free-form handling.
func (c *Classifier) Classify(ctx context.Context, utt types.Utterance) types.IntentResult {
	var raw rawResult
	userPrompt := buildUserPrompt(utt)
	if err := c.llm.Generate(ctx, systemPrompt, userPrompt, resultSchema, &raw); err != nil {
		c.publish(types.IntentResult{Decision: types.DecisionAct, Intent: types.IntentUnknown})
		return types.IntentResult{Decision: types.DecisionAct, Intent: types.IntentUnknown, Confidence: 0}
	}

	if !validIntents[raw.Intent] {
		result := types.IntentResult{Decision: types.DecisionAct, Intent: types.IntentUnknown, Confidence: 0}
		c.publish(result)
		return result
	}

	result := types.IntentResult{
		Intent:     types.Intent(raw.Intent),
		Confidence: raw.Confidence,
	}
	if raw.Decision == "ask" {
		result.Decision = types.DecisionAsk
		result.Question = raw.Question
	} else {
		result.Decision = types.DecisionAct
	}
	c.publish(result)
	return result
}

func buildUserPrompt(utt types.Utterance) string {
	worldJSON, _ := json.Marshal(utt.World)
	return "utterance: " + utt.Text + "\nworld_state: " + string(worldJSON)
}

func (c *Classifier) publish(r types.IntentResult) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(bus.Event{Timestamp: time.Now(), Stage: bus.StageIntentClassifier, Kind: "emit", Payload: r})
}
