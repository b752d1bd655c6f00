// Package factstore is a single recency-ranked table of short-lived
// facts, backed by LevelDB. The core's only use for it is GoalPlanner's
// optional context_consumption fallback when no ContextFrame from the
// current request satisfies a rule's declared source. It is never on the
// path of any core-stage invariant and is fully swappable with a no-op
// store.
package factstore

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const keyPrefix = "f|"

// Fact is one recorded (space, text) observation, timestamped at write.
type Fact struct {
	ID        string    `json:"id"`
	Space     string    `json:"space"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is a single-table, append-only fact cache backed by LevelDB.
type Store struct {
	db *leveldb.DB
}

// Open opens (or creates) a LevelDB database at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Write appends one fact to space. Facts are never mutated or merged —
// only appended and, eventually, superseded by recency ranking at query
// time.
func (s *Store) Write(space, text string) error {
	f := Fact{ID: uuid.NewString(), Space: space, Text: text, CreatedAt: time.Now().UTC()}
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return s.db.Put([]byte(keyPrefix+space+"|"+f.ID), data, nil)
}

// Recent returns up to limit facts for space, most recently written first.
func (s *Store) Recent(space string, limit int) ([]Fact, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(keyPrefix+space+"|")), nil)
	defer iter.Release()

	var facts []Fact
	for iter.Next() {
		var f Fact
		if err := json.Unmarshal(iter.Value(), &f); err == nil {
			facts = append(facts, f)
		}
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	sort.Slice(facts, func(i, j int) bool { return facts[i].CreatedAt.After(facts[j].CreatedAt) })
	if limit > 0 && len(facts) > limit {
		facts = facts[:limit]
	}
	return facts, nil
}

// RecentFacts adapts Recent into the plain []string shape
// internal/goalplanner.FactSource expects, newest first.
func (s *Store) RecentFacts(space string) []string {
	facts, err := s.Recent(space, 5)
	if err != nil {
		return nil
	}
	out := make([]string, len(facts))
	for i, f := range facts {
		out[i] = f.Text
	}
	return out
}
