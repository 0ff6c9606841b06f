package retriever

import (
	"strings"

	"github.com/kxddry/hr-rag/internal/chunker"
	"github.com/kxddry/hr-rag/internal/domain"
)

// UnknownSection labels chunks without any recoverable heading.
const UnknownSection = "Unknown"

// SectionOf recovers the section a chunk belongs to: the stored section,
// else a numbered heading on the first line, else the first line itself.
func SectionOf(c domain.Chunk) string {
	if s := strings.TrimSpace(c.Section); s != "" {
		return s
	}
	text := strings.TrimSpace(c.Text)
	if text == "" {
		return UnknownSection
	}
	first := strings.TrimSpace(strings.SplitN(text, "\n", 2)[0])
	if chunker.IsHeading(first) {
		return truncate(first, 150)
	}
	return truncate(first, 100)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func contains(s, sub string) bool { return strings.Contains(s, sub) }

func replaceSeparators(s string) string {
	return strings.NewReplacer("_", " ", "-", " ").Replace(s)
}
