package factstore

import (
	"path/filepath"
	"testing"
)

func TestWriteAndRecent(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "facts.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.Write("browser", "visited youtube"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Write("browser", "searched nvidia"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Write("file", "created alex folder"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	facts, err := s.Recent("browser", 5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(facts) != 2 {
		t.Fatalf("got %d facts, want 2", len(facts))
	}
	if facts[0].Text != "searched nvidia" {
		t.Errorf("got newest-first %q, want %q", facts[0].Text, "searched nvidia")
	}
}

func TestRecentRespectsLimit(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "facts.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	for i := 0; i < 10; i++ {
		if err := s.Write("space", "fact"); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	facts, err := s.Recent("space", 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(facts) != 3 {
		t.Errorf("got %d facts, want 3", len(facts))
	}
}

func TestRecentFactsUnknownSpaceIsEmpty(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "facts.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if got := s.RecentFacts("nothing-here"); len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}
