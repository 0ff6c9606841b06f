// Package summarizer compresses conversation history for classification.
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/kxddry/hr-rag/internal/config"
	"github.com/kxddry/hr-rag/internal/domain"
	"github.com/kxddry/hr-rag/internal/textnorm"
)

// Summarizer ranks sentences by word frequency (stopwords filtered).
type Summarizer struct {
	tokenPattern    *regexp.Regexp
	sentencePattern *regexp.Regexp
	stopwords       map[string]struct{}
	maxSentences    int
}

func New(cfg config.SummarizerConfig) *Summarizer {
	n := cfg.MaxSentences
	if n <= 0 {
		n = 3
	}
	return &Summarizer{
		tokenPattern:    regexp.MustCompile(`[\p{L}\p{M}]+(?:['’][\p{L}\p{M}]+)*`),
		sentencePattern: regexp.MustCompile(`[^.!?]+[.!?]+`),
		stopwords:       defaultStopwords(),
		maxSentences:    n,
	}
}

// Summarize keeps the highest ranked sentences of text in their original
// order. Text with no more sentences than the limit is returned trimmed.
func (s *Summarizer) Summarize(text string) string {
	sentences := s.sentences(text)
	if len(sentences) <= s.maxSentences {
		return strings.TrimSpace(text)
	}
	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range s.tokens(sent) {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = max(maxF, v)
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}
	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(sentences))
	for i, sent := range sentences {
		toks := s.tokens(sent)
		score := 0.0
		for _, tok := range toks {
			score += freq[tok]
		}
		// Normalize by sentence length to avoid bias
		if l := float64(len(toks)); l > 0 {
			score /= math.Sqrt(l)
		}
		scores[i] = pair{i, score}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	// Keep original order among selected
	selected := make([]int, s.maxSentences)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, 0, len(selected))
	for _, idx := range selected {
		out = append(out, sentences[idx])
	}
	return strings.Join(out, " ")
}

// Digest renders the turns as "U: ..." / "A: ..." lines, summarizing long
// turns.
func (s *Summarizer) Digest(turns []domain.ChatTurn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		prefix := "A: "
		if t.Role == domain.RoleUser {
			prefix = "U: "
		}
		content := textnorm.CollapseSpaces(s.Summarize(t.Content))
		if content == "" {
			continue
		}
		lines = append(lines, prefix+content)
	}
	return strings.Join(lines, "\n")
}

func (s *Summarizer) sentences(text string) []string {
	var out []string
	last := 0
	for _, loc := range s.sentencePattern.FindAllStringIndex(text, -1) {
		if sent := strings.TrimSpace(text[loc[0]:loc[1]]); sent != "" {
			out = append(out, sent)
		}
		last = loc[1]
	}
	if tail := strings.TrimSpace(text[last:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

func (s *Summarizer) tokens(text string) []string {
	raw := s.tokenPattern.FindAllString(textnorm.Lower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, stop := s.stopwords[t]; !stop {
			out = append(out, t)
		}
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "it", "this", "that", "from", "so", "can", "will", "just", "should",
		"là", "và", "của", "có", "các", "những", "được", "cho", "với", "trong", "thì", "này", "khi", "sẽ", "đã", "đang", "như", "về", "từ", "bị", "mà", "gì", "nào", "không", "tôi", "bạn", "em", "anh", "chị", "ạ", "nhé", "vậy", "thế", "một",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
