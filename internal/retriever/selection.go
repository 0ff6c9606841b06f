package retriever

import (
	"sort"

	"github.com/kxddry/hr-rag/internal/domain"
	"github.com/kxddry/hr-rag/internal/textnorm"
)

// Policy names the candidate selection strategy.
type Policy string

const (
	// PolicyAll searches every registered document, up to the quota.
	PolicyAll Policy = "all"
	// PolicySmart favours documents whose name shares a keyword with the question.
	PolicySmart Policy = "smart"
)

// Selector picks the documents whose indices are searched for a question.
type Selector struct {
	MaxFiles         int
	Keywords         []string
	OverviewTriggers []string
}

// Policy returns PolicyAll for overview questions and PolicySmart otherwise.
func (s Selector) Policy(question string) Policy {
	if textnorm.ContainsAny(textnorm.Lower(question), s.OverviewTriggers) {
		return PolicyAll
	}
	return PolicySmart
}

// Select applies the policy for question to the registry entries.
func (s Selector) Select(question string, entries []domain.RegistryEntry) []domain.RegistryEntry {
	quota := s.MaxFiles
	if quota <= 0 {
		quota = 20
	}
	if len(entries) == 0 {
		return nil
	}
	if s.Policy(question) == PolicyAll {
		return head(entries, quota)
	}

	q := textnorm.FoldLower(question)
	var relevant, others []domain.RegistryEntry
	for _, e := range entries {
		if s.relevant(q, normalizeFilename(displayName(e))) {
			relevant = append(relevant, e)
		} else {
			others = append(others, e)
		}
	}
	out := head(relevant, quota/2)
	sort.SliceStable(others, func(i, j int) bool { return others[i].Timestamp > others[j].Timestamp })
	return append(out, head(others, quota-len(out))...)
}

func (s Selector) relevant(question, filename string) bool {
	for _, kw := range s.Keywords {
		k := textnorm.FoldLower(kw)
		if k == "" {
			continue
		}
		if contains(question, k) && contains(filename, k) {
			return true
		}
	}
	return false
}

type priorityGroup struct {
	question []string
	filename string
}

// only the first group whose question words match is applied
var priorityGroups = []priorityGroup{
	{[]string{"bảo hiểm", "bhxh", "bhyt", "bhtn", "insurance"}, "bao hiem"},
	{[]string{"lương", "thưởng", "phúc lợi", "phụ cấp", "salary", "bonus"}, "luong"},
	{[]string{"nghỉ phép", "nghỉ thai sản", "leave", "holiday"}, "nghi"},
}

// Prioritize moves documents whose name matches the question's HR topic to
// the front. Nothing is dropped and relative order is kept within each part.
func Prioritize(question string, entries []domain.RegistryEntry) []domain.RegistryEntry {
	q := textnorm.Lower(question)
	for _, g := range priorityGroups {
		if !textnorm.ContainsAny(q, g.question) {
			continue
		}
		front := make([]domain.RegistryEntry, 0, len(entries))
		var back []domain.RegistryEntry
		for _, e := range entries {
			if contains(normalizeFilename(displayName(e)), g.filename) {
				front = append(front, e)
			} else {
				back = append(back, e)
			}
		}
		return append(front, back...)
	}
	return entries
}

func displayName(e domain.RegistryEntry) string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	return e.DocumentID
}

func normalizeFilename(name string) string {
	return textnorm.CollapseSpaces(replaceSeparators(textnorm.FoldLower(name)))
}

func head(entries []domain.RegistryEntry, n int) []domain.RegistryEntry {
	if n < 0 {
		n = 0
	}
	if len(entries) > n {
		entries = entries[:n]
	}
	return append([]domain.RegistryEntry(nil), entries...)
}
