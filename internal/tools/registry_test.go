package tools

import (
	"context"
	"path/filepath"
	"testing"
)

func TestRegistryListAllIsNonEmptyAndConsistentWithGet(t *testing.T) {
	r := NewRegistry(nil)
	all := r.ListAll()
	if len(all) == 0 {
		t.Fatal("expected at least one registered tool")
	}
	for _, c := range all {
		if !r.Has(c.ToolName) {
			t.Errorf("ListAll returned %q but Has reports false", c.ToolName)
		}
		got, ok := r.Get(c.ToolName)
		if !ok || got.ToolName != c.ToolName {
			t.Errorf("Get(%q) = %v, %v", c.ToolName, got, ok)
		}
	}
}

func TestRegistryListByPrefix(t *testing.T) {
	r := NewRegistry(nil)
	files := r.ListByPrefix("files.")
	if len(files) == 0 {
		t.Fatal("expected at least one files.* tool")
	}
	for _, c := range files {
		if got := c.ToolName[:6]; got != "files." {
			t.Errorf("ListByPrefix(\"files.\") returned %q", c.ToolName)
		}
	}
}

func TestRegistryExecuteUnknownToolIsError(t *testing.T) {
	r := NewRegistry(nil)
	if _, err := r.Execute(context.Background(), "no.such.tool", nil); err == nil {
		t.Error("expected an error executing an unregistered tool name")
	}
}

func TestRegistryExecuteFilesCreateFolderAndFile(t *testing.T) {
	r := NewRegistry(nil)
	dir := t.TempDir()

	folder := filepath.Join(dir, "alex")
	result, err := r.Execute(context.Background(), "files.create_folder", map[string]string{"path": folder})
	if err != nil {
		t.Fatalf("Execute create_folder: %v", err)
	}
	if result["status"] != "success" {
		t.Fatalf("got status %v, want success", result["status"])
	}

	file := filepath.Join(folder, "presentation.pptx")
	result, err = r.Execute(context.Background(), "files.create_file", map[string]string{"path": file, "content": "deck"})
	if err != nil {
		t.Fatalf("Execute create_file: %v", err)
	}
	if result["status"] != "success" {
		t.Fatalf("got status %v, want success", result["status"])
	}

	result, err = r.Execute(context.Background(), "files.read", map[string]string{"path": file})
	if err != nil {
		t.Fatalf("Execute read: %v", err)
	}
	if result["content"] != "deck" {
		t.Errorf("got content %v, want %q", result["content"], "deck")
	}
}

func TestRegistryExecuteInfoAnswerUsesInjectedAnswerFunc(t *testing.T) {
	r := NewRegistry(func(ctx context.Context, question string) (string, error) {
		return "42", nil
	})
	result, err := r.Execute(context.Background(), "system.info.answer", map[string]string{"question": "what is six by seven"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result["status"] != "success" || result["answer"] != "42" {
		t.Errorf("got %v, want status success and answer 42", result)
	}
}

func TestRegistryExecuteInfoAnswerWithoutAnswerFuncEchoes(t *testing.T) {
	r := NewRegistry(nil)
	result, err := r.Execute(context.Background(), "system.info.answer", map[string]string{"question": "what time is it"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result["question"] != "what time is it" {
		t.Errorf("got %v, want the question echoed back", result)
	}
}

func TestRegistryExecuteRejectsArgsMissingRequiredKey(t *testing.T) {
	r := NewRegistry(nil)
	// system.apps.launch requires app_name; the schema check must reject
	// the call before the underlying command ever runs.
	result, err := r.Execute(context.Background(), "system.apps.launch", map[string]string{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result["status"] != "error" {
		t.Errorf("got status %v, want error for schema-invalid args", result["status"])
	}
}

func TestInputToolsRequireInputControlIntent(t *testing.T) {
	r := NewRegistry(nil)
	for _, name := range []string{"system.input.click_at", "system.input.move_mouse", "system.input.key_press"} {
		cap, ok := r.Get(name)
		if !ok {
			t.Fatalf("missing tool %q", name)
		}
		if len(cap.IntentTags) != 1 || cap.IntentTags[0] != "input_control" {
			t.Errorf("%s IntentTags = %v, want only input_control", name, cap.IntentTags)
		}
	}
}
