// Package citation decides which retrieved chunk, if any, grounds a
// generated answer and renders it as a reference.
package citation

import (
	"cmp"
	"slices"
	"strings"

	"github.com/kxddry/hr-rag/internal/config"
	"github.com/kxddry/hr-rag/internal/domain"
)

// Candidate is a retrieved chunk scored against the answer and the question.
type Candidate struct {
	Doc              domain.RetrievedDoc
	ResponseEvidence float64
	QuestionSupport  float64
	FinalScore       float64
	Breakdown        EvidenceBreakdown
}

// Scorer computes attribution scores. Weights and thresholds come from the
// citation config.
type Scorer struct {
	cfg config.CitationConfig
}

func NewScorer(cfg config.CitationConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score rates every non-empty chunk and returns the candidates ordered by
// descending final score. Ties keep retrieval order.
func (s *Scorer) Score(docs []domain.RetrievedDoc, response, question string) []Candidate {
	out := make([]Candidate, 0, len(docs))
	for _, d := range docs {
		if strings.TrimSpace(d.Chunk.Text) == "" || sourceName(d) == "" {
			continue
		}
		evidence, breakdown := s.Evidence(d.Chunk.Text, response)
		support := s.Support(d.Chunk.Text, question)
		out = append(out, Candidate{
			Doc:              d,
			ResponseEvidence: evidence,
			QuestionSupport:  support,
			FinalScore:       evidence*s.cfg.EvidenceWeight + support*s.cfg.SupportWeight,
			Breakdown:        breakdown,
		})
	}
	slices.SortStableFunc(out, func(a, b Candidate) int { return cmp.Compare(b.FinalScore, a.FinalScore) })
	return out
}

// Threshold is the adaptive cut applied to the top final score. ranked must
// be ordered by descending final score.
func (s *Scorer) Threshold(ranked []Candidate) float64 {
	if len(ranked) == 1 {
		return s.cfg.SingleThreshold
	}
	top := ranked[0]
	switch {
	case top.ResponseEvidence > s.cfg.StrongEvidence:
		return s.cfg.StrongThreshold
	case top.FinalScore-ranked[1].FinalScore > s.cfg.GapMinimum:
		return s.cfg.GapThreshold
	}
	return s.cfg.DefaultThreshold
}

// Select picks the grounding candidate: the top one when it clears the
// adaptive threshold, else the one with the most response evidence when
// that evidence is meaningful. Candidates scoring zero are never selected.
func (s *Scorer) Select(ranked []Candidate) (Candidate, bool) {
	if len(ranked) == 0 {
		return Candidate{}, false
	}
	top := ranked[0]
	if top.FinalScore > 0 && top.FinalScore >= s.Threshold(ranked) {
		return top, true
	}
	best := ranked[0]
	for _, c := range ranked[1:] {
		if c.ResponseEvidence > best.ResponseEvidence {
			best = c
		}
	}
	if best.ResponseEvidence > s.cfg.FallbackEvidence {
		return best, true
	}
	return Candidate{}, false
}

// sourceName is the file name a chunk is traced back to.
func sourceName(d domain.RetrievedDoc) string {
	if d.Chunk.Source != "" {
		return d.Chunk.Source
	}
	return d.Source
}
