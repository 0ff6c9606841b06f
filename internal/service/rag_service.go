// Package service sequences classification, retrieval, generation and
// attribution for one question, in batch or streaming mode.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/kxddry/hr-rag/internal/citation"
	"github.com/kxddry/hr-rag/internal/classifier"
	"github.com/kxddry/hr-rag/internal/config"
	"github.com/kxddry/hr-rag/internal/conversation"
	"github.com/kxddry/hr-rag/internal/domain"
	"github.com/kxddry/hr-rag/internal/logger"
	"github.com/kxddry/hr-rag/internal/metrics"
	"github.com/kxddry/hr-rag/internal/prompt"
	"github.com/kxddry/hr-rag/internal/response"
	"github.com/kxddry/hr-rag/internal/retriever"
	"github.com/kxddry/hr-rag/internal/summarizer"
)

var (
	// ErrCancelled is returned when the caller's predicate stopped the request.
	ErrCancelled   = errors.New("service: request cancelled")
	ErrNoQuestion  = errors.New("service: empty question")
	ErrNoGenerator = errors.New("service: no generator configured")
)

// Request is one question of a user.
type Request struct {
	Question       string
	UserID         string
	ConversationID string
	// History overrides the turns read from conversation memory.
	History []domain.ChatTurn
	K       int
	RerankK int
	// Cancelled is polled before generation and before every streamed delta.
	Cancelled func() bool
}

func (r Request) cancelled() bool { return r.Cancelled != nil && r.Cancelled() }

// Answer is the outcome of a request.
type Answer struct {
	Response       string
	References     []domain.Reference
	Classification domain.ClassificationResult
	Lang           string
}

// Deps are the collaborators of the service. Generator, Memory, Log and
// Metrics are optional.
type Deps struct {
	Chunker    domain.Chunker
	Embedder   domain.Embedder
	Store      domain.IndexStore
	Registry   domain.Registry
	Classifier *classifier.Cascade
	Generator  domain.Generator
	Attributor *citation.Attributor
	Summarizer *summarizer.Summarizer
	Memory     *conversation.Memory
	// Log receives answered turns. It defaults to Memory.
	Log     domain.ConversationLog
	Metrics *metrics.Recorder
}

// RAGService answers HR questions from the registered documents.
type RAGService struct {
	deps      Deps
	retriever *retriever.Retriever
	selector  retriever.Selector
	cfg       config.AppConfig
}

func NewRAGService(cfg config.AppConfig, deps Deps) (*RAGService, error) {
	switch {
	case deps.Chunker == nil, deps.Embedder == nil, deps.Store == nil, deps.Registry == nil:
		return nil, errors.New("service: chunker, embedder, store and registry are required")
	case deps.Classifier == nil, deps.Attributor == nil:
		return nil, errors.New("service: classifier and attributor are required")
	}
	if deps.Summarizer == nil {
		deps.Summarizer = summarizer.New(cfg.Summarizer)
	}
	if deps.Log == nil && deps.Memory != nil {
		deps.Log = deps.Memory
	}
	return &RAGService{
		deps:      deps,
		retriever: retriever.New(deps.Store, deps.Embedder, 0),
		selector: retriever.Selector{
			MaxFiles:         cfg.Retrieval.MaxFilesToLoad,
			Keywords:         cfg.Retrieval.SmartKeywords,
			OverviewTriggers: cfg.Retrieval.OverviewTriggers,
		},
		cfg: cfg,
	}, nil
}

// Classify routes the question, consulting the recent turns of the
// conversation.
func (s *RAGService) Classify(ctx context.Context, req Request) (domain.ClassificationResult, error) {
	if req.Question == "" {
		return domain.ClassificationResult{}, ErrNoQuestion
	}
	return s.classify(ctx, req, response.DetectLanguage(req.Question)), nil
}

// classify never fails: a broken cascade degrades to the RAG path.
func (s *RAGService) classify(ctx context.Context, req Request, lang string) domain.ClassificationResult {
	digest := s.deps.Summarizer.Digest(s.recent(ctx, req, s.cfg.Conversation.Window))
	res, err := s.deps.Classifier.Classify(ctx, classifier.Input{
		Question:   req.Question,
		Lang:       lang,
		UserID:     req.UserID,
		Contextual: retriever.WithMemory(req.Question, digest),
	})
	if err != nil {
		logger.FromContext(ctx).With("component", "service").Warn("classification failed, answering from documents", "error", err)
		res = domain.ClassificationResult{
			Path:         domain.PathRAG,
			QuestionType: domain.QuestionGeneral,
			Method:       domain.MethodError,
		}
	}
	s.deps.Metrics.Classified(res.Method, res.Path)
	return res
}

// Answer runs the whole pipeline and returns the final answer. Failures of
// collaborators are turned into localized messages; only cancellation and
// an empty question are returned as errors.
func (s *RAGService) Answer(ctx context.Context, req Request) (Answer, error) {
	if req.Question == "" {
		return Answer{}, ErrNoQuestion
	}
	start := time.Now()
	defer func() { s.deps.Metrics.Observe("batch", time.Since(start)) }()

	lang := response.DetectLanguage(req.Question)
	cls := s.classify(ctx, req, lang)
	out := Answer{Classification: cls, Lang: lang}
	if cls.Terminal() {
		out.Response = cls.CachedResponse
		s.record(ctx, req, out.Response)
		return out, nil
	}

	plan := s.prepare(ctx, req, cls, lang)
	if plan.canned != "" {
		out.Response = plan.canned
		s.record(ctx, req, out.Response)
		return out, nil
	}
	if req.cancelled() {
		return Answer{}, ErrCancelled
	}
	if s.deps.Generator == nil {
		out.Response = response.SystemError(lang, ErrNoGenerator)
		return out, nil
	}
	text, err := s.deps.Generator.Generate(ctx, plan.prompt)
	if err != nil {
		if ctx.Err() != nil {
			return Answer{}, ctx.Err()
		}
		logger.FromContext(ctx).With("component", "service").Error("generation failed", "error", err)
		out.Response = response.SystemError(lang, err)
		return out, nil
	}
	out.Response, out.References = s.finish(ctx, plan, text, lang)
	s.record(ctx, req, out.Response)
	return out, nil
}

// plan is a prepared RAG request: either a canned reply or the prompt and
// the documents it was built from.
type plan struct {
	question string
	canned   string
	prompt   string
	docs     []domain.RetrievedDoc
}

func (s *RAGService) prepare(ctx context.Context, req Request, cls domain.ClassificationResult, lang string) plan {
	log := logger.FromContext(ctx).With("component", "service")
	p := plan{question: req.Question}

	entries, err := s.deps.Registry.List(ctx)
	if err != nil {
		log.Error("registry unavailable", "error", err)
	}
	selected := s.selector.Select(req.Question, entries)
	if len(selected) == 0 {
		p.canned = response.NoDocuments(lang)
		return p
	}
	if cls.QuestionType == domain.QuestionHR {
		selected = retriever.Prioritize(req.Question, selected)
	}

	sources := s.retriever.Load(ctx, selected)
	if len(sources) == 0 {
		p.canned = s.smallTalk(ctx, req.Question, lang)
		return p
	}

	history := s.history(ctx, req)
	query := retriever.ExpandQuery(req.Question, cls, retriever.AnalyzeContext(req.Question), history)
	k := firstPositive(req.K, s.cfg.Retrieval.K)
	docs, err := s.retriever.SearchChecked(ctx, sources, query, req.Question, k)
	if err != nil {
		log.Error("retrieval failed", "error", err)
	}
	if rk := firstPositive(req.RerankK, s.cfg.Retrieval.RerankK); len(docs) > rk {
		docs = docs[:rk]
	}
	if len(docs) == 0 {
		p.canned = s.smallTalk(ctx, req.Question, lang)
		return p
	}
	log.Debug("documents retrieved", "sources", len(sources), "hits", len(docs))
	p.docs = docs
	p.prompt = prompt.Build(prompt.BuildContext(docs), req.Question, lang, history)
	return p
}

// finish validates the generated text and attributes it. Rejected text is
// replaced by the no-answer message and carries no references.
func (s *RAGService) finish(ctx context.Context, p plan, text, lang string) (string, []domain.Reference) {
	if !response.Valid(text) {
		return response.NoAnswer(lang), nil
	}
	refs := s.deps.Attributor.Attribute(ctx, p.docs, text, p.question)
	s.deps.Metrics.Cited(len(refs) > 0)
	if s.cfg.Citation.FormatFooter {
		text = citation.FormatReferences(text, refs, s.cfg.Citation.MinResponseWords)
	}
	return text, refs
}

func (s *RAGService) smallTalk(ctx context.Context, question, lang string) string {
	reply, err := s.deps.Classifier.SmallTalk(ctx, question, lang)
	if err != nil || reply == "" {
		logger.FromContext(ctx).With("component", "service").Warn("no searchable documents and no small talk reply", "error", err)
		return response.NoDocuments(lang)
	}
	return reply
}

func (s *RAGService) history(ctx context.Context, req Request) []domain.ChatTurn {
	if req.History != nil {
		return req.History
	}
	return s.recent(ctx, req, s.cfg.Summarizer.HistoryTurns)
}

func (s *RAGService) recent(ctx context.Context, req Request, n int) []domain.ChatTurn {
	if req.History != nil {
		if len(req.History) > n {
			return req.History[len(req.History)-n:]
		}
		return req.History
	}
	if s.deps.Memory == nil {
		return nil
	}
	return s.deps.Memory.Recent(ctx, req.UserID, req.ConversationID, n)
}

// record logs the answered turn. Logging failures never fail the request.
func (s *RAGService) record(ctx context.Context, req Request, answer string) {
	if s.deps.Log == nil || (req.UserID == "" && req.ConversationID == "") {
		return
	}
	for _, t := range []domain.ChatTurn{
		{Role: domain.RoleUser, Content: req.Question},
		{Role: domain.RoleAssistant, Content: answer},
	} {
		if err := s.deps.Log.Append(ctx, req.UserID, req.ConversationID, t); err != nil {
			logger.FromContext(ctx).With("component", "service").Warn("conversation log failed", "error", err)
			return
		}
	}
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 5
}
