package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kxddry/hr-rag/internal/domain"
)

// TopicOther is the topic assigned when nothing better is known.
const TopicOther = "khác"

// Analysis is the LLM reading of a question.
type Analysis struct {
	ProcessedQuestion string
	QuestionType      domain.QuestionType
	Keywords          []string
	Intent            string
	Confidence        float64
	Topic             string
	// TopicFromCache is set when the topic came from the keyword table.
	TopicFromCache bool
}

// LLMClassifier asks the generator for structured JSON readings.
type LLMClassifier struct {
	gen             domain.Generator
	topicConfidence float64
}

func NewLLMClassifier(gen domain.Generator, topicConfidence float64) *LLMClassifier {
	if topicConfidence <= 0 {
		topicConfidence = 0.6
	}
	return &LLMClassifier{gen: gen, topicConfidence: topicConfidence}
}

// Analyze classifies the question. The topic comes from the keyword table
// when it is confident enough, else from a second LLM call. Failures yield
// a general reading with zero confidence and the error.
func (c *LLMClassifier) Analyze(ctx context.Context, question, lang string) (Analysis, error) {
	a, err := c.process(ctx, question, lang)
	if err != nil {
		return fallbackAnalysis(question), err
	}
	if m, ok := KeywordTopic(question); ok && m.Confidence >= c.topicConfidence {
		a.Topic, a.TopicFromCache = m.Topic, true
		return a, nil
	}
	topic, err := c.Topic(ctx, question, lang)
	if err != nil {
		topic = TopicOther
	}
	a.Topic = topic
	return a, nil
}

func (c *LLMClassifier) process(ctx context.Context, question, lang string) (Analysis, error) {
	if c.gen == nil {
		return Analysis{}, ErrNoGenerator
	}
	out, err := c.gen.Generate(ctx, analysisPrompt(question, lang))
	if err != nil {
		return Analysis{}, fmt.Errorf("classifier: analyze question: %w", err)
	}
	doc, ok := jsonObject(out)
	if !ok {
		return fallbackAnalysis(question), nil
	}
	a := Analysis{
		ProcessedQuestion: doc.Get("processed_question").String(),
		QuestionType:      questionType(doc.Get("question_type").String()),
		Intent:            doc.Get("intent").String(),
		Confidence:        confidence(doc.Get("confidence")),
	}
	if a.ProcessedQuestion == "" {
		a.ProcessedQuestion = question
	}
	if a.Intent == "" {
		a.Intent = "unknown"
	}
	for _, k := range doc.Get("keywords").Array() {
		if s := strings.TrimSpace(k.String()); s != "" {
			a.Keywords = append(a.Keywords, s)
		}
	}
	return a, nil
}

// Topic asks the LLM for the main topic of the question.
func (c *LLMClassifier) Topic(ctx context.Context, question, lang string) (string, error) {
	if c.gen == nil {
		return TopicOther, ErrNoGenerator
	}
	out, err := c.gen.Generate(ctx, topicPrompt(question, lang))
	if err != nil {
		return TopicOther, fmt.Errorf("classifier: classify topic: %w", err)
	}
	doc, ok := jsonObject(out)
	if !ok {
		return TopicOther, nil
	}
	if t := strings.TrimSpace(doc.Get("topic").String()); t != "" {
		return t, nil
	}
	return TopicOther, nil
}

// Intent asks the LLM what the user wants to do.
func (c *LLMClassifier) Intent(ctx context.Context, question, lang string) (string, error) {
	if c.gen == nil {
		return "unknown", ErrNoGenerator
	}
	out, err := c.gen.Generate(ctx, intentPrompt(question, lang))
	if err != nil {
		return "unknown", fmt.Errorf("classifier: analyze intent: %w", err)
	}
	doc, ok := jsonObject(out)
	if !ok {
		return "unknown", nil
	}
	if intent := strings.TrimSpace(doc.Get("intent").String()); intent != "" {
		return intent, nil
	}
	return "unknown", nil
}

func fallbackAnalysis(question string) Analysis {
	return Analysis{
		ProcessedQuestion: question,
		QuestionType:      domain.QuestionGeneral,
		Intent:            "unknown",
		Topic:             TopicOther,
	}
}

// jsonObject extracts the first JSON object of an LLM reply, tolerating
// code fences and surrounding prose.
func jsonObject(s string) (gjson.Result, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return gjson.Result{}, false
	}
	raw := s[start : end+1]
	if !gjson.Valid(raw) {
		return gjson.Result{}, false
	}
	return gjson.Parse(raw), true
}

func confidence(v gjson.Result) float64 {
	if v.Type != gjson.Number {
		return 0
	}
	f := v.Float()
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

func questionType(s string) domain.QuestionType {
	switch domain.QuestionType(strings.TrimSpace(s)) {
	case domain.QuestionHR:
		return domain.QuestionHR
	case domain.QuestionChitchat:
		return domain.QuestionChitchat
	}
	return domain.QuestionGeneral
}
