// Package harvesttest provides a deterministic ContentSource for tests.
package harvesttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/topic-harvester/internal/harvest"
)

// Entry scripts the response for one identifier.
type Entry struct {
	Page  harvest.Page
	Err   error
	Panic bool
}

// Source is a scripted harvest.ContentSource. Unknown identifiers fail with
// harvest.ErrNotFound. It is safe for concurrent use.
type Source struct {
	Results []string
	Entries map[string]Entry

	mu      sync.Mutex
	fetches map[string]int
}

// New builds a Source whose search results are the given identifiers.
func New(results []string, entries map[string]Entry) *Source {
	return &Source{
		Results: results,
		Entries: entries,
		fetches: make(map[string]int),
	}
}

// Scenario returns the canonical three-item batch: A succeeds with two
// references, B times out, C succeeds with no references.
func Scenario() *Source {
	return New([]string{"A", "B", "C"}, map[string]Entry{
		"A": {Page: harvest.Page{Title: "A", References: []string{"r1", "r2"}}},
		"B": {Err: fmt.Errorf("fetch B: %w", harvest.ErrTimeout)},
		"C": {Page: harvest.Page{Title: "C", References: []string{}}},
	})
}

// Batch extends Scenario with a name needing sanitisation, an ambiguous
// title, a missing page and two titles that share a canonical name.
func Batch() *Source {
	s := Scenario()
	s.Results = append(s.Results, "AC/DC", "Mercury", "Missing", "Dup one", "Dup two")
	s.Entries["AC/DC"] = Entry{Page: harvest.Page{Title: "AC/DC", References: []string{"https://acdc.example"}}}
	s.Entries["Mercury"] = Entry{Err: fmt.Errorf("Mercury: %w", harvest.ErrAmbiguous)}
	s.Entries["Dup one"] = Entry{Page: harvest.Page{Title: "Dup", References: []string{"same"}}}
	s.Entries["Dup two"] = Entry{Page: harvest.Page{Title: "Dup", References: []string{"same"}}}
	return s
}

// Search returns at most limit scripted results.
func (s *Source) Search(_ context.Context, _ string, limit int) ([]string, error) {
	if limit <= 0 {
		return []string{}, nil
	}
	if limit > len(s.Results) {
		limit = len(s.Results)
	}
	return append([]string(nil), s.Results[:limit]...), nil
}

// Fetch returns the scripted entry for identifier.
func (s *Source) Fetch(_ context.Context, identifier string) (harvest.Page, error) {
	s.mu.Lock()
	if s.fetches == nil {
		s.fetches = make(map[string]int)
	}
	s.fetches[identifier]++
	s.mu.Unlock()

	entry, ok := s.Entries[identifier]
	if !ok {
		return harvest.Page{}, fmt.Errorf("%q: %w", identifier, harvest.ErrNotFound)
	}
	if entry.Panic {
		panic("scripted panic for " + identifier)
	}
	if entry.Err != nil {
		return harvest.Page{}, entry.Err
	}
	return entry.Page, nil
}

// Fetches reports how many times identifier was fetched.
func (s *Source) Fetches(identifier string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches[identifier]
}
