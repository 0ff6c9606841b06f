package classifier

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/kxddry/hr-rag/internal/domain"
	"github.com/kxddry/hr-rag/internal/vectorstore/memory"
)

// EmbeddingMatch is the nearest curated example for a question.
type EmbeddingMatch struct {
	QuestionType domain.QuestionType
	Category     string
	Response     string
	Confidence   float64
}

// EmbeddingClassifier compares questions with the curated HR and chitchat
// examples in embedding space. The example indices are built on first use.
type EmbeddingClassifier struct {
	embedder  domain.Embedder
	data      *Dataset
	threshold float64
	minimum   float64

	mu       sync.Mutex
	hr       exampleIndex
	chitchat exampleIndex
}

type exampleIndex struct {
	index    *memory.Index
	examples []QA
}

func NewEmbeddingClassifier(embedder domain.Embedder, data *Dataset, threshold, minimum float64) *EmbeddingClassifier {
	if threshold <= 0 {
		threshold = 1.0
	}
	if minimum <= 0 {
		minimum = 0.4
	}
	return &EmbeddingClassifier{embedder: embedder, data: data, threshold: threshold, minimum: minimum}
}

// Classify returns the HR match when it is confident and beats the chitchat
// match, else the chitchat match when it is confident. ok is false when
// neither clears the minimum confidence.
func (c *EmbeddingClassifier) Classify(ctx context.Context, question string) (EmbeddingMatch, bool, error) {
	if err := c.build(ctx); err != nil {
		return EmbeddingMatch{}, false, err
	}
	vec, err := c.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return EmbeddingMatch{}, false, fmt.Errorf("classifier: embed question: %w", err)
	}
	hr, err := c.nearest(ctx, c.hr, vec)
	if err != nil {
		return EmbeddingMatch{}, false, err
	}
	chat, err := c.nearest(ctx, c.chitchat, vec)
	if err != nil {
		return EmbeddingMatch{}, false, err
	}
	if hr.Response != "" && hr.Confidence > c.minimum && hr.Confidence > chat.Confidence {
		hr.QuestionType = domain.QuestionHR
		return hr, true, nil
	}
	if chat.Response != "" && chat.Confidence > c.minimum {
		chat.QuestionType = domain.QuestionChitchat
		return chat, true, nil
	}
	return EmbeddingMatch{}, false, nil
}

// nearest maps the distance d of the closest example to the confidence
// max(0, (threshold - d) / threshold). Examples at or past the threshold
// do not match.
func (c *EmbeddingClassifier) nearest(ctx context.Context, idx exampleIndex, vec []float32) (EmbeddingMatch, error) {
	if idx.index == nil {
		return EmbeddingMatch{}, nil
	}
	hits, err := idx.index.Search(ctx, vec, 1)
	if err != nil {
		return EmbeddingMatch{}, fmt.Errorf("classifier: search examples: %w", err)
	}
	if len(hits) == 0 || hits[0].Distance >= c.threshold {
		return EmbeddingMatch{}, nil
	}
	qa := idx.examples[hits[0].Chunk.Index]
	return EmbeddingMatch{
		Category:   qa.Category,
		Response:   qa.Response,
		Confidence: math.Max(0, (c.threshold-hits[0].Distance)/c.threshold),
	}, nil
}

func (c *EmbeddingClassifier) build(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hr.index != nil || c.chitchat.index != nil {
		return nil
	}
	hr, err := c.index(ctx, "hr_examples", c.data.HRExamples(), true)
	if err != nil {
		return err
	}
	chat, err := c.index(ctx, "chitchat_examples", c.data.Chitchat, false)
	if err != nil {
		return err
	}
	c.hr, c.chitchat = hr, chat
	return nil
}

// index embeds each curated entry the way it is phrased in the data files:
// category, question and response on separate lines.
func (c *EmbeddingClassifier) index(ctx context.Context, name string, set []QA, withCategory bool) (exampleIndex, error) {
	if len(set) == 0 {
		return exampleIndex{}, nil
	}
	texts := make([]string, len(set))
	chunks := make([]domain.Chunk, len(set))
	for i, qa := range set {
		text := "Question: " + qa.Question + "\nResponse: " + qa.Response
		if withCategory {
			text = "Category: " + qa.Category + "\n" + text
		}
		texts[i] = text
		chunks[i] = domain.Chunk{
			ID:         fmt.Sprintf("%s-%d", name, i),
			DocumentID: name,
			Index:      i,
			Text:       qa.Question,
		}
	}
	vectors, err := c.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return exampleIndex{}, fmt.Errorf("classifier: embed %s: %w", name, err)
	}
	idx, err := memory.NewIndex(name, chunks, vectors)
	if err != nil {
		return exampleIndex{}, err
	}
	return exampleIndex{index: idx, examples: set}, nil
}
