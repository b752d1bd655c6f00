// Package tasklog writes one JSONL trace file per processed request. Each
// request gets a file named <request_id>.jsonl under a configurable
// directory, capturing the utterance, every stage event published on the
// bus while the request was live, and the terminal status. The trace is
// the raw material for diagnosing a misrouted or misplanned request after
// the fact, without rerunning it.
//
// Design constraints:
//   - All RequestLog methods are nil-safe (no-op on nil receiver) so the
//     driver doesn't need nil checks when a log file failed to open.
//   - Registry is the sole owner of JSONL persistence; stages never open
//     files, they only publish bus events.
//   - Requests are processed one at a time, so Registry tracks a single
//     "current" log that its bus-tap drain writes into.
package tasklog

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/deskshell/reasoncore/internal/bus"
)

// EventKind labels a single structured event in the request trace.
type EventKind string

const (
	KindRequestBegin EventKind = "request_begin"
	KindRequestEnd   EventKind = "request_end"
	KindStage        EventKind = "stage"
)

// Event is one JSONL line in the request trace.
// Fields are omitempty so each event only serialises relevant data.
type Event struct {
	Kind      EventKind `json:"kind"`
	Timestamp string    `json:"ts"`

	// request_begin / request_end
	RequestID string `json:"request_id,omitempty"`
	Utterance string `json:"utterance,omitempty"`
	Status    string `json:"status,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms,omitempty"`

	// stage
	Stage  string `json:"stage,omitempty"`
	Action string `json:"action,omitempty"` // the stage's event kind: "emit", "resolve", "success", ...
	Detail string `json:"detail,omitempty"`
}

// RequestLog is a handle for writing structured events for one request.
type RequestLog struct {
	requestID string
	started   time.Time
	mu        sync.Mutex
	f         *os.File
}

// Registry maps request IDs to open RequestLogs. It is the sole authority
// for creating and closing trace files.
type Registry struct {
	dir     string
	mu      sync.Mutex
	logs    map[string]*RequestLog
	current *RequestLog
}

// NewRegistry creates a Registry that writes one JSONL file per request
// under dir.
func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir, logs: make(map[string]*RequestLog)}
}

// Open creates a new RequestLog for requestID, writes a request_begin
// event, registers it, and makes it the current target for Run's bus
// drain. Calling Open twice for the same requestID returns the existing
// log without re-opening it.
func (r *Registry) Open(requestID, utterance string) *RequestLog {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if rl, ok := r.logs[requestID]; ok {
		return rl
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		log.Printf("[TASKLOG] could not create dir %s: %v", r.dir, err)
		return nil
	}
	path := filepath.Join(r.dir, requestID+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("[TASKLOG] could not open %s: %v", path, err)
		return nil
	}

	rl := &RequestLog{requestID: requestID, started: time.Now(), f: f}
	r.logs[requestID] = rl
	r.current = rl
	rl.write(Event{
		Kind:      KindRequestBegin,
		RequestID: requestID,
		Utterance: utterance,
	})
	return rl
}

// Get returns the RequestLog for requestID, or nil if not found. Nil is
// safe to pass to all RequestLog methods.
func (r *Registry) Get(requestID string) *RequestLog {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logs[requestID]
}

// Close writes a request_end event with the terminal status and elapsed
// time, flushes and closes the file, and removes the entry from the
// registry. Safe to call on a nil *Registry or an unknown requestID.
func (r *Registry) Close(requestID, status string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	rl, ok := r.logs[requestID]
	if ok {
		delete(r.logs, requestID)
		if r.current == rl {
			r.current = nil
		}
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	rl.mu.Lock()
	elapsed := time.Since(rl.started).Milliseconds()
	rl.mu.Unlock()

	rl.write(Event{
		Kind:      KindRequestEnd,
		RequestID: requestID,
		Status:    status,
		ElapsedMs: elapsed,
	})

	rl.mu.Lock()
	if rl.f != nil {
		_ = rl.f.Close()
		rl.f = nil
	}
	rl.mu.Unlock()
}

// Run drains tap until done closes, appending each bus event to the
// currently open request log. Events arriving between requests (no
// current log) are dropped — they belong to no trace.
func (r *Registry) Run(tap <-chan bus.Event, done <-chan struct{}) {
	if r == nil {
		return
	}
	for {
		select {
		case evt, ok := <-tap:
			if !ok {
				return
			}
			r.mu.Lock()
			rl := r.current
			r.mu.Unlock()
			rl.StageEvent(string(evt.Stage), evt.Kind, evt.Detail)
		case <-done:
			return
		}
	}
}

// StageEvent writes one stage event line.
func (rl *RequestLog) StageEvent(stage, action, detail string) {
	if rl == nil {
		return
	}
	rl.write(Event{
		Kind:   KindStage,
		Stage:  stage,
		Action: action,
		Detail: detail,
	})
}

func (rl *RequestLog) write(e Event) {
	if rl == nil {
		return
	}
	e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.f == nil {
		return
	}
	_, _ = rl.f.Write(append(data, '\n'))
}
