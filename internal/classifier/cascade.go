// Package classifier routes a question to a canned answer, the email
// workflow, small talk or the RAG path through an ordered cascade of
// strategies, cheapest first.
package classifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/kxddry/hr-rag/internal/config"
	"github.com/kxddry/hr-rag/internal/domain"
	"github.com/kxddry/hr-rag/internal/logger"
)

// ErrNoGenerator is returned by LLM backed signals when no generator is wired.
var ErrNoGenerator = errors.New("classifier: no generator configured")

var hrIntents = map[string]bool{"hr_inquiry": true, "hr_partner": true, "policy_inquiry": true}

// Input is one question to classify.
type Input struct {
	Question string
	Lang     string
	UserID   string
	// Contextual is the question with a digest of recent turns. Only the
	// topic signals read it. Empty means Question.
	Contextual string
}

// State is shared by the strategies of one Classify call.
type State struct {
	Input
	Intent   string
	Signals  Signals
	Resolved domain.ClassificationResult
}

// Strategy is one step of the cascade. It returns done when its result is
// final.
type Strategy struct {
	Name string
	Run  func(ctx context.Context, s *State) (result domain.ClassificationResult, done bool, err error)
}

// Cascade evaluates its strategies in order until one is final.
type Cascade struct {
	data       *Dataset
	fast       *FastMatcher
	embeddings *EmbeddingClassifier
	llm        *LLMClassifier
	gen        domain.Generator
	email      domain.EmailWorkflow
	precedence Precedence
	chatCached float64
	strategies []Strategy
}

// Deps are the collaborators of the cascade. Embedder, Generator and Email
// are optional; the signals they back are skipped when nil.
type Deps struct {
	Data      *Dataset
	Embedder  domain.Embedder
	Generator domain.Generator
	Email     domain.EmailWorkflow
}

func New(cfg config.ClassifierConfig, deps Deps) (*Cascade, error) {
	data := deps.Data
	if data == nil {
		var err error
		if data, err = LoadDataset(cfg.DataPath); err != nil {
			return nil, err
		}
	}
	c := &Cascade{
		data: data,
		fast: NewFastMatcher(data, cfg.ChitchatThreshold, cfg.HRThreshold),
		llm:  NewLLMClassifier(deps.Generator, cfg.TopicConfidence),
		gen:  deps.Generator,
		precedence: Precedence{
			LLMHigh:   orDefault(cfg.LLMHighConfidence, 0.7),
			Embedding: orDefault(cfg.EmbeddingConfidence, 0.6),
			LLMLow:    orDefault(cfg.LLMLowConfidence, 0.5),
			Fallback:  orDefault(cfg.FallbackConfidence, 0.4),
		},
		chatCached: orDefault(cfg.ChitchatCachedMinimum, 0.6),
		email:      deps.Email,
	}
	if deps.Embedder != nil {
		c.embeddings = NewEmbeddingClassifier(deps.Embedder, data, cfg.EmbeddingThreshold, cfg.EmbeddingMinimum)
	}
	c.strategies = []Strategy{
		{Name: "guardrail", Run: c.guardrail},
		{Name: "fast_cache", Run: c.fastCache},
		{Name: "intent", Run: c.intent},
		{Name: "email", Run: c.emailRequest},
		{Name: "topic", Run: c.topic},
		{Name: "chitchat", Run: c.chitchat},
		{Name: "rag", Run: c.rag},
	}
	return c, nil
}

// Strategies returns the strategy names in evaluation order.
func (c *Cascade) Strategies() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name
	}
	return names
}

// Data returns the curated sets the cascade matches against.
func (c *Cascade) Data() *Dataset { return c.data }

// Classify runs the cascade. Results with a CachedResponse outside the RAG
// path carry the final answer.
func (c *Cascade) Classify(ctx context.Context, in Input) (domain.ClassificationResult, error) {
	if in.Lang == "" {
		in.Lang = "vi"
	}
	if in.Contextual == "" {
		in.Contextual = in.Question
	}
	log := logger.FromContext(ctx).With("component", "classifier")
	st := &State{Input: in, Intent: "unknown"}
	for _, s := range c.strategies {
		res, done, err := s.Run(ctx, st)
		if err != nil {
			return domain.ClassificationResult{}, fmt.Errorf("classifier: %s: %w", s.Name, err)
		}
		if done {
			if res.Intent == "" || res.Intent == "unknown" {
				res.Intent = st.Intent
			}
			log.Debug("question classified", "strategy", s.Name, "path", res.Path, "method", res.Method, "confidence", res.Confidence)
			return res, nil
		}
	}
	return st.Resolved, nil
}

func (c *Cascade) guardrail(_ context.Context, s *State) (domain.ClassificationResult, bool, error) {
	if !IsOffensive(s.Question) {
		return domain.ClassificationResult{}, false, nil
	}
	return domain.ClassificationResult{
		Path:           domain.PathGuardrail,
		QuestionType:   domain.QuestionGeneral,
		Confidence:     1,
		Method:         domain.MethodGuardrail,
		CachedResponse: Refusal(s.Lang),
	}, true, nil
}

func (c *Cascade) fastCache(_ context.Context, s *State) (domain.ClassificationResult, bool, error) {
	if resp, score, ok := c.fast.Chitchat(s.Question); ok {
		return cached(domain.QuestionChitchat, score, resp), true, nil
	}
	if resp, score, ok := c.fast.HR(s.Question, false); ok {
		return cached(domain.QuestionHR, score, resp), true, nil
	}
	return domain.ClassificationResult{}, false, nil
}

// intent asks the LLM what the question is about. An HR intent retries the
// HR answers without the keyword gate; the keyword gate alone only records
// the intent since the gated lookup already ran.
func (c *Cascade) intent(ctx context.Context, s *State) (domain.ClassificationResult, bool, error) {
	if c.gen != nil {
		intent, err := c.llm.Intent(ctx, s.Question, s.Lang)
		if err != nil {
			logger.FromContext(ctx).Warn("intent analysis failed", "error", err)
		}
		s.Intent = intent
	}
	if hrIntents[s.Intent] {
		if resp, score, ok := c.fast.HR(s.Question, true); ok {
			return cached(domain.QuestionHR, score, resp), true, nil
		}
		return domain.ClassificationResult{}, false, nil
	}
	if ContainsHRKeywords(s.Question) {
		s.Intent = "hr_inquiry"
	}
	return domain.ClassificationResult{}, false, nil
}

func (c *Cascade) emailRequest(ctx context.Context, s *State) (domain.ClassificationResult, bool, error) {
	if c.email == nil {
		return domain.ClassificationResult{}, false, nil
	}
	kind, requested := DetectEmail(s.Question)
	if !requested && !c.email.InConversation(ctx, s.UserID) {
		return domain.ClassificationResult{}, false, nil
	}
	resp, err := c.email.Handle(ctx, s.Question, s.UserID, s.Lang)
	if err != nil || resp == "" {
		logger.FromContext(ctx).Warn("email workflow failed", "error", err)
		c.email.Reset(ctx, s.UserID)
		return domain.ClassificationResult{}, false, nil
	}
	intent := string(kind)
	if intent == "" {
		intent = s.Intent
	}
	return domain.ClassificationResult{
		Path:           domain.PathEmail,
		QuestionType:   domain.QuestionHR,
		Confidence:     1,
		Method:         domain.MethodEmail,
		Intent:         intent,
		CachedResponse: resp,
	}, true, nil
}

func (c *Cascade) topic(ctx context.Context, s *State) (domain.ClassificationResult, bool, error) {
	log := logger.FromContext(ctx)
	s.Signals.LLM, s.Signals.LLMErr = c.llm.Analyze(ctx, s.Contextual, s.Lang)
	if s.Signals.LLMErr != nil && !errors.Is(s.Signals.LLMErr, ErrNoGenerator) {
		log.Warn("llm classification failed", "error", s.Signals.LLMErr)
	}
	if c.embeddings != nil {
		s.Signals.Match, s.Signals.Matched, s.Signals.MatchErr = c.embeddings.Classify(ctx, s.Contextual)
		if s.Signals.MatchErr != nil {
			log.Warn("embedding classification failed", "error", s.Signals.MatchErr)
		}
	} else {
		s.Signals.MatchErr = errors.New("classifier: no embedder configured")
	}
	s.Resolved = FollowUp(s.Question, Resolve(s.Signals, c.precedence))
	return s.Resolved, s.Resolved.Terminal(), nil
}

func (c *Cascade) chitchat(ctx context.Context, s *State) (domain.ClassificationResult, bool, error) {
	if !ShouldChitchat(s.Resolved, s.Question) {
		return domain.ClassificationResult{}, false, nil
	}
	var match EmbeddingMatch
	if s.Signals.Matched {
		match = s.Signals.Match
	}
	reply, err := c.chitchatReply(ctx, s.Question, s.Lang, match)
	if err != nil {
		return domain.ClassificationResult{}, false, err
	}
	res := s.Resolved
	res.Path = domain.PathChitchat
	res.QuestionType = domain.QuestionChitchat
	res.CachedResponse = reply
	return res, true, nil
}

// SmallTalk replies conversationally. It backs the RAG path when no
// document could be searched.
func (c *Cascade) SmallTalk(ctx context.Context, question, lang string) (string, error) {
	var match EmbeddingMatch
	if c.embeddings != nil {
		m, ok, err := c.embeddings.Classify(ctx, question)
		if err != nil {
			logger.FromContext(ctx).Warn("embedding classification failed", "error", err)
		} else if ok {
			match = m
		}
	}
	return c.chitchatReply(ctx, question, lang, match)
}

// chitchatReply prefers a confident curated answer, then the quick pairs,
// then a short LLM reply.
func (c *Cascade) chitchatReply(ctx context.Context, question, lang string, match EmbeddingMatch) (string, error) {
	if match.Response != "" && match.Confidence > c.chatCached {
		return match.Response, nil
	}
	if IsQuickChitchat(question) {
		if answer := QuickAnswer(c.data, question); answer != "" {
			return answer, nil
		}
	}
	if c.gen == nil {
		return "", ErrNoGenerator
	}
	return c.gen.Generate(ctx, ChitchatPrompt(question, lang))
}

func (c *Cascade) rag(_ context.Context, s *State) (domain.ClassificationResult, bool, error) {
	res := s.Resolved
	res.Path = domain.PathRAG
	res.CachedResponse = ""
	return res, true, nil
}

func cached(t domain.QuestionType, score float64, resp string) domain.ClassificationResult {
	return domain.ClassificationResult{
		Path:           domain.PathCached,
		QuestionType:   t,
		Confidence:     score,
		Method:         domain.MethodFastCache,
		CachedResponse: resp,
	}
}

func orDefault(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}
