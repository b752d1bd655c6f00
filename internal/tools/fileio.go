package tools

import (
	"fmt"
	"os"
	"path/filepath"
)

// ReadFile reads the file at path and returns its contents as a string.
// path is expected to already be the PathResolver's authoritative
// absolute path — this package never combines a base with an identity.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteFile writes content to the file at path, creating any missing
// parent directories first so files.create_file succeeds even when its
// containing folder goal ran in the same plan but hasn't synced to disk
// metadata the OS caches eagerly.
func WriteFile(path, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("write_file: %w", err)
		}
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// MakeDir creates path and any missing parents, for files.create_folder.
func MakeDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create_folder: %w", err)
	}
	return nil
}

// MoveFile renames path to destination, creating destination's parent
// directory if needed, for files.move.
func MoveFile(path, destination string) error {
	if dir := filepath.Dir(destination); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("move: %w", err)
		}
	}
	if err := os.Rename(path, destination); err != nil {
		return fmt.Errorf("move: %w", err)
	}
	return nil
}
