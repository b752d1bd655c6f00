package toolresolver

import (
	"strings"
	"testing"

	"github.com/deskshell/reasoncore/internal/errkind"
	"github.com/deskshell/reasoncore/internal/types"
)

// fakeRegistry is a minimal in-memory Registry for tests.
type fakeRegistry struct {
	caps []types.Capability
}

func (f *fakeRegistry) Has(name string) bool {
	_, ok := f.Get(name)
	return ok
}

func (f *fakeRegistry) Get(name string) (types.Capability, bool) {
	for _, c := range f.caps {
		if c.ToolName == name {
			return c, true
		}
	}
	return types.Capability{}, false
}

func (f *fakeRegistry) ListByPrefix(prefix string) []types.Capability {
	var out []types.Capability
	for _, c := range f.caps {
		if strings.HasPrefix(c.ToolName, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeRegistry) ListAll() []types.Capability { return f.caps }

func testRegistry() *fakeRegistry {
	return &fakeRegistry{caps: []types.Capability{
		{ToolName: "browser.navigate", IntentTags: []types.Intent{types.IntentBrowserControl}},
		{ToolName: "system.apps.launch", IntentTags: []types.Intent{types.IntentApplicationLaunch, types.IntentBrowserControl}},
		{ToolName: "system.input.click_at", IntentTags: []types.Intent{types.IntentInputControl}},
		{ToolName: "system.input.move_mouse", IntentTags: []types.Intent{types.IntentInputControl}},
		{ToolName: "files.create_folder", IntentTags: []types.Intent{types.IntentFileOperation}},
	}}
}

func TestResolve_DirectLookupWithinDomain(t *testing.T) {
	r := New(testRegistry(), nil)
	action := types.PlannedAction{ActionID: "a1", Description: "navigate:https://example.com"}
	name, err := r.Resolve(types.IntentBrowserControl, action)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "browser.navigate" {
		t.Errorf("got %q, want browser.navigate", name)
	}
}

// Click-at-coordinates is rejected under browser_control (its domain
// locks out system.input.*) and accepted under input_control.
func TestResolve_ClickAtCoordinatesDomainLocked(t *testing.T) {
	reg := testRegistry()
	r := New(reg, nil)
	action := types.PlannedAction{ActionID: "a1", Description: "click_at:(400,300)"}

	_, err := r.Resolve(types.IntentBrowserControl, action)
	if !errkind.Is(err, errkind.NoTool) {
		t.Fatalf("expected NoTool under browser_control, got %v", err)
	}

	name, err := r.Resolve(types.IntentInputControl, action)
	if err != nil {
		t.Fatalf("unexpected error under input_control: %v", err)
	}
	if !strings.HasPrefix(name, "system.input.") {
		t.Errorf("got %q, want a system.input.* tool", name)
	}
}

func TestResolve_NoToolWhenRegistryEmpty(t *testing.T) {
	r := New(&fakeRegistry{}, nil)
	action := types.PlannedAction{ActionID: "a1", Description: "navigate:https://example.com"}
	_, err := r.Resolve(types.IntentBrowserControl, action)
	if !errkind.Is(err, errkind.NoTool) {
		t.Fatalf("expected NoTool, got %v", err)
	}
}

// Whatever tool is chosen, its name always carries a prefix from the
// intent's own domain table, and never one from its disallowed table —
// for every intent the resolver ever sees.
func TestResolve_ChosenToolAlwaysWithinDomainLock(t *testing.T) {
	reg := testRegistry()
	r := New(reg, nil)
	cases := []struct {
		intent types.Intent
		desc   string
	}{
		{types.IntentBrowserControl, "navigate:https://example.com"},
		{types.IntentApplicationLaunch, "launch:spotify"},
		{types.IntentInputControl, "click_at:(1,1)"},
		{types.IntentFileOperation, "create:folder:D:\\alex"},
	}
	for _, tc := range cases {
		name, err := r.Resolve(tc.intent, types.PlannedAction{ActionID: "a", Description: tc.desc})
		if err != nil {
			t.Errorf("intent=%s: unexpected error %v", tc.intent, err)
			continue
		}
		if !inAnyPrefix(name, IntentToolDomains[tc.intent]) {
			t.Errorf("intent=%s: tool %q not within its preferred domains %v", tc.intent, name, IntentToolDomains[tc.intent])
		}
		if inAnyPrefix(name, IntentDisallowedDomains[tc.intent]) {
			t.Errorf("intent=%s: tool %q violates its disallowed domains %v", tc.intent, name, IntentDisallowedDomains[tc.intent])
		}
	}
}
