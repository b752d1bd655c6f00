package orchestrator

import (
	"os"
	"path/filepath"
	"strings"
)

// PathResolver is the sole component that combines a base anchor with a
// per-goal identity into an absolute path. Planners and tools never
// perform this combination themselves.
type PathResolver struct {
	workspaceRoot string // the session cwd captured once at request start
}

// NewPathResolver builds a resolver rooted at workspaceRoot, the session
// cwd captured once at request start — never a live process-cwd read at
// call time.
func NewPathResolver(workspaceRoot string) *PathResolver {
	return &PathResolver{workspaceRoot: workspaceRoot}
}

// baseFor returns the absolute base directory for a scope's anchor token,
// and whether the scope names a recognized anchor at all.
func (r *PathResolver) baseFor(anchor string) (string, bool) {
	switch {
	case strings.HasPrefix(anchor, "drive:"):
		letter := strings.TrimPrefix(anchor, "drive:")
		return letter + `:\`, true
	case anchor == "desktop":
		return filepath.Join(homeDir(), "Desktop"), true
	case anchor == "documents":
		return filepath.Join(homeDir(), "Documents"), true
	case anchor == "downloads":
		return filepath.Join(homeDir(), "Downloads"), true
	case anchor == "workspace":
		return r.workspaceRoot, true
	default:
		return "", false
	}
}

func homeDir() string {
	home, _ := os.UserHomeDir()
	return home
}

// combine appends identity under base. Drive-letter bases and paths under
// them use Windows backslash joining (D:\alex, D:\alex\presentation.pptx);
// every other base uses filepath.Join.
func combine(base, identity string) string {
	if identity == "" {
		return base
	}
	if len(base) >= 2 && base[1] == ':' {
		return strings.TrimSuffix(base, `\`) + `\` + identity
	}
	return filepath.Join(base, identity)
}

// Resolve computes goal's absolute path. anchor is the goal's own scope
// (if it names a base anchor); parentPath is the already-resolved path of
// its containment parent, if any ("" when there is none).
//
//   - An explicit base anchor in scope always wins and computes a fresh base.
//   - Absent that, a containment dependency inherits the parent's resolved path.
//   - Absent both, the default base is WORKSPACE.
func (r *PathResolver) Resolve(scope, identity, parentPath string) string {
	if base, ok := r.baseFor(scope); ok {
		return combine(base, identity)
	}
	if parentPath != "" {
		return combine(parentPath, identity)
	}
	workspaceBase, _ := r.baseFor("workspace")
	return combine(workspaceBase, identity)
}
