package domain

import "context"

// Embedder converts free text into a numeric vector representation.
// The same embedder must be used for indexing and querying.
type Embedder interface {
	Name() string
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Chunker splits the pages of one document into retrievable chunks.
type Chunker interface {
	Chunk(documentID, filename string, pages []Page) ([]Chunk, error)
}

// Index is the immutable embedding index of a single document.
type Index interface {
	DocumentID() string
	Len() int
	// Search returns up to k hits ordered by ascending distance.
	Search(ctx context.Context, query []float32, k int) ([]RetrievedDoc, error)
}

// IndexStore persists one Index per document.
type IndexStore interface {
	// Create stores the index for documentID. It is a no-op returning the
	// existing index id when one is already present.
	Create(ctx context.Context, documentID string, chunks []Chunk, vectors [][]float32) (string, error)
	Load(ctx context.Context, documentID string) (Index, error)
	Exists(ctx context.Context, documentID string) (bool, error)
	Delete(ctx context.Context, documentID string) error
}

// Registry is the catalog of uploaded documents.
type Registry interface {
	List(ctx context.Context) ([]RegistryEntry, error)
	Append(ctx context.Context, entry RegistryEntry) error
	Remove(ctx context.Context, documentID string) error
}

// Generator produces text from a prompt, either at once or as deltas.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	// Stream calls onDelta for every text delta. Returning an error from
	// onDelta aborts the stream with that error.
	Stream(ctx context.Context, prompt string, onDelta func(delta string) error) error
}

// ConversationLog persists answered turns. Cancelled turns are never logged.
type ConversationLog interface {
	Append(ctx context.Context, userID, conversationID string, turn ChatTurn) error
}

// EmailWorkflow is the external slot-filling dialogue that drafts HR emails.
type EmailWorkflow interface {
	InConversation(ctx context.Context, userID string) bool
	Handle(ctx context.Context, question, userID, lang string) (string, error)
	Reset(ctx context.Context, userID string)
}
