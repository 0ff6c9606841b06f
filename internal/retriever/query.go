package retriever

import (
	"math"
	"strings"

	"github.com/kxddry/hr-rag/internal/domain"
	"github.com/kxddry/hr-rag/internal/hrterms"
	"github.com/kxddry/hr-rag/internal/textnorm"
)

// ContextAnalysis is the cheap lexical reading of a question used to widen
// the search query.
type ContextAnalysis struct {
	Entities   []string
	Topics     []string
	Sentiment  string
	Confidence float64
}

var (
	hrEntities       = []string{"lương", "thưởng", "nghỉ phép", "bảo hiểm", "hợp đồng", "kpi", "đánh giá"}
	locationEntities = []string{"việt nam", "singapore", "hà nội", "tp hcm", "đà nẵng"}

	topicWords = []struct {
		topic string
		words []string
	}{
		{"salary", []string{"lương", "thưởng", "salary", "bonus"}},
		{"leave", []string{"nghỉ", "phép", "leave", "holiday"}},
		{"insurance", []string{"bảo hiểm", "insurance"}},
		{"contract", []string{"hợp đồng", "contract"}},
		{"training", []string{"đào tạo", "training"}},
	}

	positiveWords = []string{"tốt", "hay", "thích", "hài lòng", "tuyệt vời", "cảm ơn"}
	negativeWords = []string{"xấu", "tệ", "không thích", "không hài lòng", "lỗi", "vấn đề"}

	followUpIndicators = []string{"chi tiết hơn", "thêm thông tin", "cụ thể hơn", "rõ ràng hơn", "more details", "more info"}
)

// AnalyzeContext extracts entities, topics and sentiment from question.
func AnalyzeContext(question string) ContextAnalysis {
	q := textnorm.Lower(question)
	var a ContextAnalysis
	for _, e := range append(append([]string(nil), hrEntities...), locationEntities...) {
		if strings.Contains(q, e) {
			a.Entities = append(a.Entities, e)
		}
	}
	for _, t := range topicWords {
		if textnorm.ContainsAny(q, t.words) {
			a.Topics = append(a.Topics, t.topic)
		}
	}
	pos, neg := count(q, positiveWords), count(q, negativeWords)
	switch {
	case pos > neg:
		a.Sentiment = "positive"
	case neg > pos:
		a.Sentiment = "negative"
	default:
		a.Sentiment = "neutral"
	}
	a.Confidence = math.Min(0.9, 0.5+0.1*float64(len(a.Entities))+0.1*float64(len(a.Topics)))
	return a
}

// ExpandQuery builds the search query: the classifier's rewrite and
// keywords, then the context hints, then the fixed enhancement rules.
func ExpandQuery(question string, cls domain.ClassificationResult, analysis ContextAnalysis, history []domain.ChatTurn) string {
	q := WithKeywords(question, cls)
	q = WithContext(q, analysis, history)
	return Enhance(q)
}

// WithKeywords prefers the classifier's processed question and appends its
// keywords.
func WithKeywords(question string, cls domain.ClassificationResult) string {
	q := question
	if cls.ProcessedQuestion != "" {
		q = cls.ProcessedQuestion
	}
	if len(cls.Keywords) > 0 {
		q += " " + strings.Join(cls.Keywords, " ")
	}
	return q
}

// WithContext appends entities, topics and HR keywords of recent user turns.
// Follow-up questions also get the last two turns as context.
func WithContext(question string, a ContextAnalysis, history []domain.ChatTurn) string {
	parts := []string{question}
	parts = append(parts, a.Entities...)
	parts = append(parts, a.Topics...)

	var recent []string
	for _, turn := range tail(history, 3) {
		if turn.Role != domain.RoleUser {
			continue
		}
		content := textnorm.Lower(turn.Content)
		for _, kw := range hrterms.HR[:10] {
			if strings.Contains(content, kw) {
				recent = append(recent, kw)
			}
		}
	}
	if len(recent) > 3 {
		recent = recent[:3]
	}
	parts = append(parts, recent...)

	if IsFollowUp(question) && len(history) > 0 {
		var lines []string
		for _, turn := range tail(history, 4) {
			switch turn.Role {
			case domain.RoleUser:
				lines = append(lines, "User: "+turn.Content)
			case domain.RoleAssistant:
				lines = append(lines, "Assistant: "+turn.Content)
			}
		}
		if len(lines) > 0 {
			parts = append(parts, "Context: "+strings.Join(tailStrings(lines, 2), " | "))
		}
	}
	return strings.Join(parts, " ")
}

// IsFollowUp reports whether the question asks to elaborate on a previous answer.
func IsFollowUp(question string) bool {
	return textnorm.ContainsAny(textnorm.Lower(question), followUpIndicators)
}

// Enhance appends synonyms for the phrasings the handbooks word differently.
// At most one rule applies.
func Enhance(question string) string {
	q := textnorm.Lower(question)
	switch {
	case strings.Contains(q, "nghỉ việc") && !strings.Contains(q, "nghỉ phép"):
		return question + " thôi việc từ chức chấm dứt hợp đồng"
	case strings.Contains(q, "e-learning") || strings.Contains(q, "elearning"):
		return question + " đào tạo online platform học tập"
	case strings.Contains(q, "địa chỉ") || strings.Contains(q, "address"):
		return question + " văn phòng location địa điểm"
	case strings.Contains(q, "trợ cấp"):
		return question + " compensation benefit phúc lợi"
	case strings.Contains(q, "ngày lễ") || strings.Contains(q, "ngày nghỉ"):
		return question + " holiday public holiday nghỉ lễ"
	}
	return question
}

// WithMemory attaches a digest of recent turns to the question. It is used
// for classification only.
func WithMemory(question, digest string) string {
	if strings.TrimSpace(digest) == "" {
		return question
	}
	return question + " | Context: " + digest
}

func count(s string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(s, w) {
			n++
		}
	}
	return n
}

func tail(turns []domain.ChatTurn, n int) []domain.ChatTurn {
	if len(turns) > n {
		return turns[len(turns)-n:]
	}
	return turns
}

func tailStrings(s []string, n int) []string {
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}
