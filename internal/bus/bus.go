// Package bus is a small observable event bus. The five core stages never
// communicate over it — they are pure functions called directly by the
// top-level orchestrator — but every stage except GoalPlanner emits a read-only Event onto it
// so that internal/auditor and internal/ui can observe traffic without
// being wired into the call path itself.
package bus

import (
	"log"
	"sync"
	"time"
)

const (
	subscriberBufSize = 64
	tapBufSize        = 256
)

// Stage names one of the five core stages or the top-level orchestrator,
// for event attribution.
type Stage string

const (
	StageQueryClassifier  Stage = "QueryClassifier"
	StageIntentClassifier Stage = "IntentClassifier"
	StageGoalInterpreter  Stage = "GoalInterpreter"
	StageGoalPlanner      Stage = "GoalPlanner"
	StageGoalOrchestrator Stage = "GoalOrchestrator"
	StageToolResolver     Stage = "ToolResolver"
	StagePlanExecutor     Stage = "PlanExecutor"
)

// Event is the envelope published for every stage transition.
type Event struct {
	Timestamp time.Time
	Stage     Stage
	Kind      string // "emit", "resolve", "success", "error", "skip", "final", ...
	Detail    string
	Payload   any
}

// Bus is the observable bus. Multiple consumers (Auditor, UI) each get
// their own tap channel via NewTap.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Stage][]chan Event
	taps        []chan Event
}

// New creates a new Bus.
func New() *Bus {
	return &Bus{subscribers: make(map[Stage][]chan Event)}
}

// Publish fans out evt to all subscribers of evt.Stage and to every tap.
// Non-blocking: a full channel drops the message with a warning.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	subs := b.subscribers[evt.Stage]
	taps := b.taps
	b.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
			log.Printf("[bus] WARNING: subscriber channel full for stage=%s — event dropped", evt.Stage)
		}
	}
	for _, tap := range taps {
		select {
		case tap <- evt:
		default:
			log.Printf("[bus] WARNING: tap channel full — event dropped stage=%s", evt.Stage)
		}
	}
}

// Subscribe returns a receive-only channel delivering events from Stage s.
func (b *Bus) Subscribe(s Stage) <-chan Event {
	ch := make(chan Event, subscriberBufSize)
	b.mu.Lock()
	b.subscribers[s] = append(b.subscribers[s], ch)
	b.mu.Unlock()
	return ch
}

// NewTap registers and returns a new read-only tap channel that receives
// every published event regardless of stage.
func (b *Bus) NewTap() <-chan Event {
	ch := make(chan Event, tapBufSize)
	b.mu.Lock()
	b.taps = append(b.taps, ch)
	b.mu.Unlock()
	return ch
}
