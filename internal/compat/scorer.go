// Package compat scores how well two partner-preference answer sets overlap.
package compat

import (
	"math/rand/v2"
	"sync"

	"matchchat/backend/internal/config"
	"matchchat/backend/internal/preferences"
)

// Source yields a uniform integer in [0, n).
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// Result is the overlap of two answer sets and its banded score.
type Result struct {
	MatchCount int `json:"matchCount"`
	Score      int `json:"score"`
}

// Qualifies reports whether the pair is a compatibility candidate.
func (r Result) Qualifies() bool { return r.MatchCount >= config.MinMatchCount }

type band struct {
	minCount int
	base     int
	span     int
}

// Bands in descending order of match count. Score = base + IntN(span).
var bands = []band{
	{minCount: 12, base: 80, span: 16},                   // [80, 95]
	{minCount: 10, base: 70, span: 10},                   // [70, 80)
	{minCount: config.MinMatchCount, base: 50, span: 20}, // [50, 70)
}

// Scorer is safe for concurrent use.
type Scorer struct {
	mu  sync.Mutex
	src Source
}

// NewScorer returns a scorer drawing from src, or from the process-wide
// generator when src is nil.
func NewScorer(src Source) *Scorer {
	if src == nil {
		src = globalSource{}
	}
	return &Scorer{src: src}
}

// Score compares self with candidate.
func (s *Scorer) Score(self, candidate preferences.Map) Result {
	count := preferences.Keywords(self).Intersect(preferences.Keywords(candidate))
	return Result{MatchCount: count, Score: s.Band(count)}
}

// Band maps a match count onto its score band.
func (s *Scorer) Band(matchCount int) int {
	for _, b := range bands {
		if matchCount >= b.minCount {
			return b.base + s.draw(b.span)
		}
	}
	return 0
}

func (s *Scorer) draw(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.IntN(n)
}
