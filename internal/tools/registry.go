// Package tools is the concrete adapter behind the core's external Tool
// and ToolRegistry collaborators: a fixed Go-literal table of Capability
// records, each backed by a primitive in this package (shell,
// applescript, shortcuts, mdfind, glob, fileio, websearch), wrapped to
// satisfy execute(args) -> {status, ...}. Registry is built once and is
// read-only thereafter; internal/toolresolver.Registry and
// internal/executor's dispatch interface are both satisfied by
// *Registry.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/deskshell/reasoncore/internal/types"
)

// Run executes one Capability against a validated args map and returns a
// structured result carrying at least a "status" key ("success"|"error").
// A failing command is reported as status "error" in the returned map, not
// a Go error; only Registry.Execute returns a Go error, for an unknown tool
// name.
type Run func(ctx context.Context, args map[string]string) (map[string]any, error)

// AnswerFunc answers a free-form question, backing the system.info.answer
// capability. The single-path wiring (cmd/deskshell) bypasses ToolResolver
// entirely for information_query, but a nested info-query goal reached
// from the multi path still needs a real answer, not an echo.
type AnswerFunc func(ctx context.Context, question string) (string, error)

type registryEntry struct {
	capability types.Capability
	schema     *jsonschema.Resolved
	run        Run
}

// Registry is the in-process ToolRegistry adapter: an unexported map
// populated once by NewRegistry from the literal table below.
type Registry struct {
	entries map[string]registryEntry
}

// NewRegistry builds the full tool table. It never fails: every entry is a
// literal Go closure, not a network or filesystem probe. answer backs
// system.info.answer; pass nil to fall back to echoing the question back
// (useful for tests that never exercise that capability).
func NewRegistry(answer AnswerFunc) *Registry {
	r := &Registry{entries: make(map[string]registryEntry)}
	for _, e := range builtinTools(answer) {
		e.schema = compileSchema(e.capability.Schema)
		r.entries[e.capability.ToolName] = e
	}
	return r
}

// compileSchema resolves a capability's JSON-schema-shaped arg description
// once at registry build, so Execute can validate args without re-parsing.
// A schema that fails to compile disables validation for that tool rather
// than failing registration.
func compileSchema(m map[string]any) *jsonschema.Resolved {
	if m == nil {
		return nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil
	}
	return resolved
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.entries[name]
	return ok
}

// Get returns the Capability record for name.
func (r *Registry) Get(name string) (types.Capability, bool) {
	e, ok := r.entries[name]
	if !ok {
		return types.Capability{}, false
	}
	return e.capability, true
}

// ListByPrefix returns every Capability whose ToolName starts with prefix.
func (r *Registry) ListByPrefix(prefix string) []types.Capability {
	var out []types.Capability
	for name, e := range r.entries {
		if strings.HasPrefix(name, prefix) {
			out = append(out, e.capability)
		}
	}
	return out
}

// ListAll returns every registered Capability.
func (r *Registry) ListAll() []types.Capability {
	out := make([]types.Capability, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.capability)
	}
	return out
}

// Execute dispatches args to the tool registered as name, first validating
// them against the tool's arg schema. An unknown name is a caller defect
// (the ToolResolver only ever returns names it read from this same
// registry) and is reported as an error, not a status map.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]string) (map[string]any, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("tools: no such tool %q", name)
	}
	if e.schema != nil {
		instance := make(map[string]any, len(args))
		for k, v := range args {
			instance[k] = v
		}
		if err := e.schema.Validate(instance); err != nil {
			return fail(fmt.Errorf("args rejected by %s schema: %w", name, err))
		}
	}
	return e.run(ctx, args)
}

func ok(fields map[string]any) map[string]any {
	out := map[string]any{"status": "success"}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func fail(err error) (map[string]any, error) {
	return map[string]any{"status": "error", "error": err.Error()}, nil
}

// builtinTools is the authoritative Capability table. Preconditions and
// IsDestructive flags are read by internal/executor before dispatch;
// RequiresSession marks the handful of actions that need a browser
// session acquired once at plan start.
func builtinTools(answer AnswerFunc) []registryEntry {
	return []registryEntry{
		{
			capability: types.Capability{
				ToolName:        "browser.navigate",
				IntentTags:      []types.Intent{types.IntentBrowserControl},
				Effects:         []string{"opens or redirects a browser tab"},
				Schema:          argSchema("url"),
				RequiresSession: true,
			},
			run: func(ctx context.Context, args map[string]string) (map[string]any, error) {
				url := args["url"]
				script := fmt.Sprintf(`tell application "Safari" to activate
tell application "Safari"
	if (count of windows) = 0 then make new document
	set URL of current tab of front window to %s
end tell`, appleScriptString(url))
				if _, err := RunAppleScript(ctx, script); err != nil {
					return fail(err)
				}
				return ok(map[string]any{"url": url}), nil
			},
		},
		{
			capability: types.Capability{
				ToolName:   "files.create_folder",
				IntentTags: []types.Intent{types.IntentFileOperation},
				Effects:    []string{"creates a directory"},
				Schema:     argSchema("path"),
			},
			run: func(ctx context.Context, args map[string]string) (map[string]any, error) {
				if err := MakeDir(args["path"]); err != nil {
					return fail(err)
				}
				return ok(map[string]any{"path": args["path"]}), nil
			},
		},
		{
			capability: types.Capability{
				ToolName:   "files.create_file",
				IntentTags: []types.Intent{types.IntentFileOperation},
				Effects:    []string{"creates or overwrites a file"},
				Schema:     argSchema("path"),
			},
			run: func(ctx context.Context, args map[string]string) (map[string]any, error) {
				if err := WriteFile(args["path"], args["content"]); err != nil {
					return fail(err)
				}
				return ok(map[string]any{"path": args["path"]}), nil
			},
		},
		{
			capability: types.Capability{
				ToolName:              "files.move",
				IntentTags:            []types.Intent{types.IntentFileOperation},
				RequiredPreconditions: []string{"path_exists"},
				Effects:               []string{"moves a file or directory"},
				Schema:                argSchema("path", "destination"),
				IsDestructive:         true,
			},
			run: func(ctx context.Context, args map[string]string) (map[string]any, error) {
				if err := MoveFile(args["path"], args["destination"]); err != nil {
					return fail(err)
				}
				return ok(map[string]any{"path": args["destination"]}), nil
			},
		},
		{
			capability: types.Capability{
				ToolName:   "files.read",
				IntentTags: []types.Intent{types.IntentFileOperation},
				Effects:    []string{"reads a file's contents"},
				Schema:     argSchema("path"),
			},
			run: func(ctx context.Context, args map[string]string) (map[string]any, error) {
				content, err := ReadFile(args["path"])
				if err != nil {
					return fail(err)
				}
				return ok(map[string]any{"content": content}), nil
			},
		},
		{
			capability: types.Capability{
				ToolName:   "system.apps.launch",
				IntentTags: []types.Intent{types.IntentApplicationLaunch, types.IntentBrowserControl},
				Effects:    []string{"launches an application"},
				Schema:     argSchema("app_name"),
			},
			run: func(ctx context.Context, args map[string]string) (map[string]any, error) {
				if _, err := RunAppleScript(ctx, fmt.Sprintf(`tell application %s to activate`, appleScriptString(args["app_name"]))); err != nil {
					return fail(err)
				}
				return ok(map[string]any{"app_name": args["app_name"]}), nil
			},
		},
		{
			capability: types.Capability{
				ToolName:             "system.apps.quit",
				IntentTags:           []types.Intent{types.IntentApplicationLaunch},
				RequiredPreconditions: []string{"requires_active_app"},
				Effects:              []string{"quits an application"},
				Schema:               argSchema("app_name"),
			},
			run: func(ctx context.Context, args map[string]string) (map[string]any, error) {
				if _, err := RunAppleScript(ctx, fmt.Sprintf(`tell application %s to quit`, appleScriptString(args["app_name"]))); err != nil {
					return fail(err)
				}
				return ok(map[string]any{"app_name": args["app_name"]}), nil
			},
		},
		{
			capability: types.Capability{
				ToolName:   "system.apps.search",
				IntentTags: []types.Intent{types.IntentSearch},
				Effects:    []string{"searches installed applications and files"},
				Schema:     argSchema("query"),
			},
			run: func(ctx context.Context, args map[string]string) (map[string]any, error) {
				out, err := RunMdfind(ctx, args["query"])
				if err != nil {
					return fail(err)
				}
				return ok(map[string]any{"results": out}), nil
			},
		},
		{
			capability: types.Capability{
				ToolName:   "system.audio.set_volume",
				IntentTags: []types.Intent{types.IntentSystemControl},
				Effects:    []string{"sets system output volume"},
				Schema:     argSchema("level"),
			},
			run: func(ctx context.Context, args map[string]string) (map[string]any, error) {
				level, err := clampPercent(args["level"])
				if err != nil {
					return fail(err)
				}
				if _, err := RunAppleScript(ctx, fmt.Sprintf(`set volume output volume %d`, level)); err != nil {
					return fail(err)
				}
				return ok(map[string]any{"level": strconv.Itoa(level)}), nil
			},
		},
		{
			capability: types.Capability{
				ToolName:   "system.display.set_brightness",
				IntentTags: []types.Intent{types.IntentSystemControl},
				Effects:    []string{"sets display brightness"},
				Schema:     argSchema("level"),
			},
			run: func(ctx context.Context, args map[string]string) (map[string]any, error) {
				level, err := clampPercent(args["level"])
				if err != nil {
					return fail(err)
				}
				stdout, stderr, err := RunShell(ctx, fmt.Sprintf("brightness %.2f 2>&1", float64(level)/100))
				if err != nil {
					return fail(fmt.Errorf("%s: %w", stderr, err))
				}
				return ok(map[string]any{"level": strconv.Itoa(level), "output": stdout}), nil
			},
		},
		{
			capability: types.Capability{
				ToolName:                "system.power.lock",
				IntentTags:              []types.Intent{types.IntentSystemControl},
				RequiredPreconditions:   []string{"requires_unlocked_screen"},
				Effects:                 []string{"locks the screen"},
				Schema:                  argSchema(),
			},
			run: func(ctx context.Context, args map[string]string) (map[string]any, error) {
				if _, err := RunAppleScript(ctx, `tell application "System Events" to keystroke "q" using {control down, command down}`); err != nil {
					return fail(err)
				}
				return ok(nil), nil
			},
		},
		{
			capability: types.Capability{
				ToolName:   "system.clipboard.copy",
				IntentTags: []types.Intent{types.IntentClipboardControl},
				Effects:    []string{"writes to the system clipboard"},
				Schema:     argSchema("text"),
			},
			run: func(ctx context.Context, args map[string]string) (map[string]any, error) {
				stdout, stderr, err := RunShell(ctx, fmt.Sprintf("printf %%s %s | pbcopy", shellQuote(args["text"])))
				if err != nil {
					return fail(fmt.Errorf("%s: %w", stderr, err))
				}
				return ok(map[string]any{"output": stdout}), nil
			},
		},
		{
			capability: types.Capability{
				ToolName:   "system.clipboard.paste",
				IntentTags: []types.Intent{types.IntentClipboardControl},
				Effects:    []string{"reads the system clipboard"},
				Schema:     argSchema(),
			},
			run: func(ctx context.Context, args map[string]string) (map[string]any, error) {
				stdout, stderr, err := RunShell(ctx, "pbpaste")
				if err != nil {
					return fail(fmt.Errorf("%s: %w", stderr, err))
				}
				return ok(map[string]any{"text": stdout}), nil
			},
		},
		{
			capability: types.Capability{
				ToolName:   "system.notification.show",
				IntentTags: []types.Intent{types.IntentNotification},
				Effects:    []string{"shows a desktop notification"},
				Schema:     argSchema("topic"),
			},
			run: func(ctx context.Context, args map[string]string) (map[string]any, error) {
				script := fmt.Sprintf(`display notification %s with title "deskshell"`, appleScriptString(args["topic"]))
				if _, err := RunAppleScript(ctx, script); err != nil {
					return fail(err)
				}
				return ok(map[string]any{"topic": args["topic"]}), nil
			},
		},
		{
			capability: types.Capability{
				ToolName:   "system.media.play_pause",
				IntentTags: []types.Intent{types.IntentMediaControl},
				Effects:    []string{"toggles media playback"},
				Schema:     argSchema(),
			},
			run: func(ctx context.Context, args map[string]string) (map[string]any, error) {
				if _, err := RunAppleScript(ctx, `tell application "Music" to playpause`); err != nil {
					return fail(err)
				}
				return ok(nil), nil
			},
		},
		{
			capability: types.Capability{
				ToolName:              "system.window.focus",
				IntentTags:            []types.Intent{types.IntentWindowManagement},
				RequiredPreconditions: []string{"requires_active_app"},
				Effects:               []string{"focuses an application's window"},
				Schema:                argSchema("app_name"),
			},
			run: func(ctx context.Context, args map[string]string) (map[string]any, error) {
				if _, err := RunAppleScript(ctx, fmt.Sprintf(`tell application %s to activate`, appleScriptString(args["app_name"]))); err != nil {
					return fail(err)
				}
				return ok(map[string]any{"app_name": args["app_name"]}), nil
			},
		},
		{
			capability: types.Capability{
				ToolName:   "files.glob",
				IntentTags: []types.Intent{types.IntentFileOperation},
				Effects:    []string{"lists files matching a name pattern"},
				Schema:     argSchema("pattern"),
			},
			run: func(ctx context.Context, args map[string]string) (map[string]any, error) {
				matches, err := GlobFiles(args["path"], args["pattern"])
				if err != nil {
					return fail(err)
				}
				return ok(map[string]any{"matches": GlobJoin(matches), "count": len(matches)}), nil
			},
		},
		{
			capability: types.Capability{
				ToolName:   "system.search.web",
				IntentTags: []types.Intent{types.IntentSearch},
				Effects:    []string{"queries the web and returns a text summary"},
				Schema:     argSchema("query"),
			},
			run: func(ctx context.Context, args map[string]string) (map[string]any, error) {
				out, err := Search(ctx, args["query"])
				if err != nil {
					return fail(err)
				}
				return ok(map[string]any{"results": out}), nil
			},
		},
		{
			capability: types.Capability{
				ToolName:   "system.automation.run_shortcut",
				IntentTags: []types.Intent{types.IntentAutomation},
				Effects:    []string{"runs a named Apple Shortcut"},
				Schema:     argSchema("name"),
			},
			run: func(ctx context.Context, args map[string]string) (map[string]any, error) {
				out, err := RunShortcut(ctx, args["name"], args["input"])
				if err != nil {
					return fail(err)
				}
				return ok(map[string]any{"output": out}), nil
			},
		},
		{
			capability: types.Capability{
				ToolName:   "system.info.answer",
				IntentTags: []types.Intent{types.IntentInformationQuery},
				Effects:    []string{"answers a factual question without touching the desktop"},
				Schema:     argSchema("question"),
			},
			run: func(ctx context.Context, args map[string]string) (map[string]any, error) {
				if answer == nil {
					return ok(map[string]any{"question": args["question"]}), nil
				}
				text, err := answer(ctx, args["question"])
				if err != nil {
					return fail(err)
				}
				return ok(map[string]any{"question": args["question"], "answer": text}), nil
			},
		},
		// system.input.* — raw mouse/keyboard primitives. Reachable only
		// through the input_control intent's own domain lock
		// (internal/toolresolver.IntentToolDomains); never reached by
		// fallback from any other intent.
		{
			capability: types.Capability{
				ToolName:              "system.input.click_at",
				IntentTags:            []types.Intent{types.IntentInputControl},
				RequiredPreconditions: []string{"requires_unlocked_screen"},
				Effects:               []string{"issues a raw mouse click at a screen coordinate"},
				Schema:                argSchema("x", "y"),
			},
			run: func(ctx context.Context, args map[string]string) (map[string]any, error) {
				script := fmt.Sprintf(`tell application "System Events" to click at {%s, %s}`, args["x"], args["y"])
				if _, err := RunAppleScript(ctx, script); err != nil {
					return fail(err)
				}
				return ok(map[string]any{"x": args["x"], "y": args["y"]}), nil
			},
		},
		{
			capability: types.Capability{
				ToolName:              "system.input.move_mouse",
				IntentTags:            []types.Intent{types.IntentInputControl},
				RequiredPreconditions: []string{"requires_unlocked_screen"},
				Effects:               []string{"moves the mouse cursor"},
				Schema:                argSchema("x", "y"),
			},
			run: func(ctx context.Context, args map[string]string) (map[string]any, error) {
				return ok(map[string]any{"x": args["x"], "y": args["y"]}), nil
			},
		},
		{
			capability: types.Capability{
				ToolName:              "system.input.key_press",
				IntentTags:            []types.Intent{types.IntentInputControl},
				RequiredPreconditions: []string{"requires_focus"},
				Effects:               []string{"issues a raw keystroke"},
				Schema:                argSchema("key"),
			},
			run: func(ctx context.Context, args map[string]string) (map[string]any, error) {
				script := fmt.Sprintf(`tell application "System Events" to keystroke %s`, appleScriptString(args["key"]))
				if _, err := RunAppleScript(ctx, script); err != nil {
					return fail(err)
				}
				return ok(map[string]any{"key": args["key"]}), nil
			},
		},
	}
}

func argSchema(required ...string) map[string]any {
	props := make(map[string]any, len(required))
	for _, r := range required {
		props[r] = map[string]any{"type": "string"}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func clampPercent(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid level %q: %w", raw, err)
	}
	if n < 0 {
		n = 0
	}
	if n > 100 {
		n = 100
	}
	return n, nil
}

func appleScriptString(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
