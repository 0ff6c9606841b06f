package classifier

import (
	"github.com/kxddry/hr-rag/internal/domain"
	"github.com/kxddry/hr-rag/internal/textnorm"
)

// Precedence holds the confidence gates of the unified classification.
type Precedence struct {
	LLMHigh   float64
	Embedding float64
	LLMLow    float64
	Fallback  float64
}

// DefaultPrecedence returns the 0.7 / 0.6 / 0.5 / 0.4 gates.
func DefaultPrecedence() Precedence {
	return Precedence{LLMHigh: 0.7, Embedding: 0.6, LLMLow: 0.5, Fallback: 0.4}
}

// Signals are the independent readings the unified classification combines.
type Signals struct {
	LLM      Analysis
	LLMErr   error
	Match    EmbeddingMatch
	Matched  bool
	MatchErr error
}

// Resolve combines the signals. A confident LLM reading wins; otherwise a
// confident embedding match with a canned answer; otherwise a moderately
// confident LLM reading; otherwise the general fallback.
func Resolve(s Signals, p Precedence) domain.ClassificationResult {
	switch {
	case s.LLMErr == nil && s.LLM.Confidence >= p.LLMHigh:
		return fromAnalysis(s.LLM)
	case s.Matched && s.Match.Response != "" && s.Match.Confidence >= p.Embedding:
		return domain.ClassificationResult{
			Path:           domain.PathCached,
			QuestionType:   s.Match.QuestionType,
			Confidence:     s.Match.Confidence,
			Method:         domain.MethodEmbeddingCache,
			Topic:          s.Match.Category,
			Intent:         "predefined",
			CachedResponse: s.Match.Response,
		}
	case s.LLMErr == nil && s.LLM.Confidence >= p.LLMLow:
		return fromAnalysis(s.LLM)
	case s.LLMErr != nil && s.MatchErr != nil:
		return domain.ClassificationResult{
			Path:         domain.PathRAG,
			QuestionType: domain.QuestionGeneral,
			Method:       domain.MethodError,
			Intent:       "unknown",
		}
	}
	return domain.ClassificationResult{
		Path:         domain.PathRAG,
		QuestionType: domain.QuestionGeneral,
		Confidence:   p.Fallback,
		Method:       domain.MethodFallback,
		Intent:       "unknown",
	}
}

func fromAnalysis(a Analysis) domain.ClassificationResult {
	method := domain.MethodLLM
	if a.TopicFromCache {
		method = domain.MethodKeywordCache
	}
	return domain.ClassificationResult{
		Path:              domain.PathRAG,
		QuestionType:      a.QuestionType,
		Confidence:        a.Confidence,
		Method:            method,
		Topic:             a.Topic,
		Intent:            a.Intent,
		Keywords:          a.Keywords,
		ProcessedQuestion: a.ProcessedQuestion,
	}
}

var followUpIndicators = []string{
	"chi tiết hơn", "thêm thông tin", "cụ thể hơn", "còn gì nữa không", "rõ ràng hơn", "more details", "more info",
}

// FollowUp forces short follow-ups such as "more details" to the general
// RAG route so they are never answered as small talk or from the cache.
func FollowUp(question string, r domain.ClassificationResult) domain.ClassificationResult {
	if !textnorm.ContainsAny(textnorm.Lower(question), followUpIndicators) {
		return r
	}
	r.QuestionType = domain.QuestionGeneral
	r.Method = domain.MethodFollowUp
	r.Path = domain.PathRAG
	r.CachedResponse = ""
	return r
}
