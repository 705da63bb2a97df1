// Package ahocorasick implements ports.PatternMatcher with an Aho-Corasick
// automaton. It wraps the petar-dambovaliev/aho-corasick library for
// O(n + m + z) presence checks over binary signatures.
package ahocorasick

import (
	aho "github.com/petar-dambovaliev/aho-corasick"
)

// Prefilter reports which signatures of a fixed set occur in a buffer.
// It is immutable after construction and safe for concurrent use.
type Prefilter struct {
	automaton aho.AhoCorasick
	index     []int // automaton pattern id -> caller's pattern index
	total     int
}

// NewPrefilter builds the automaton over patterns. Empty patterns are never
// reported as present.
func NewPrefilter(patterns [][]byte) *Prefilter {
	keys := make([]string, 0, len(patterns))
	index := make([]int, 0, len(patterns))
	for i, p := range patterns {
		if len(p) == 0 {
			continue
		}
		keys = append(keys, string(p))
		index = append(index, i)
	}

	pf := &Prefilter{index: index, total: len(patterns)}
	if len(keys) > 0 {
		builder := aho.NewAhoCorasickBuilder(aho.Opts{
			DFA: true,
		})
		pf.automaton = builder.Build(keys)
	}
	return pf
}

// Present returns the ascending indexes of the patterns found in data.
// Iteration is overlapping so a signature contained in another is still seen.
func (p *Prefilter) Present(data []byte) []int {
	if len(p.index) == 0 || len(data) == 0 {
		return nil
	}

	seen := make([]bool, len(p.index))
	remaining := len(p.index)
	iter := p.automaton.IterOverlappingByte(data)
	for next := iter.Next(); next != nil && remaining > 0; next = iter.Next() {
		id := next.Pattern()
		if !seen[id] {
			seen[id] = true
			remaining--
		}
	}

	var out []int
	for id, ok := range seen {
		if ok {
			out = append(out, p.index[id])
		}
	}
	return out
}

// Len returns the number of patterns the prefilter was built from.
func (p *Prefilter) Len() int {
	return p.total
}
