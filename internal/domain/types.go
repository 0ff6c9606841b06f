package domain

import "time"

// Page is the extracted text of one page of an uploaded document.
type Page struct {
	Number int
	Text   string
}

// Chunk is a heading-scoped span of a document used for retrieval.
type Chunk struct {
	ID           string `json:"id"`
	DocumentID   string `json:"document_id"`
	Source       string `json:"source"`
	Index        int    `json:"index"`
	Text         string `json:"text"`
	Section      string `json:"section"`
	HeadingLevel int    `json:"heading_level"`
	Page         int    `json:"page"`
	Category     string `json:"category"`
}

// RegistryEntry describes one uploaded document. JSON names follow the
// on-disk registry layout shared with the upload tooling.
type RegistryEntry struct {
	DocumentID  string  `json:"unique_filename"`
	DisplayName string  `json:"original_filename"`
	RequestID   string  `json:"request_id,omitempty"`
	Timestamp   float64 `json:"timestamp"`
	UploadDate  string  `json:"upload_date,omitempty"`
	IndexKey    string  `json:"index_key,omitempty"`
	URL         string  `json:"file_url,omitempty"`
}

// CreatedAt converts the unix timestamp of the upload.
func (e RegistryEntry) CreatedAt() time.Time {
	sec := int64(e.Timestamp)
	nsec := int64((e.Timestamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

// RetrievedDoc is a single hit returned by an index search.
type RetrievedDoc struct {
	Chunk Chunk
	// Source is the document id of the index that produced the hit.
	Source string
	// Distance is the squared L2 distance to the query. Lower is closer.
	Distance float64
}

// Path is the terminal route chosen for a request.
type Path string

const (
	PathGuardrail Path = "guardrail"
	PathCached    Path = "cached"
	PathEmail     Path = "email"
	PathChitchat  Path = "chitchat"
	PathRAG       Path = "rag"
)

// Method identifies the signal that produced a classification.
type Method string

const (
	MethodLLM            Method = "llm"
	MethodKeywordCache   Method = "keyword_cache"
	MethodEmbeddingCache Method = "embedding_cache"
	MethodFallback       Method = "fallback"
	MethodFollowUp       Method = "follow_up"
	MethodFastCache      Method = "fast_cache"
	MethodGuardrail      Method = "guardrail"
	MethodEmail          Method = "email"
	MethodError          Method = "error"
)

// QuestionType is the coarse label produced by topic classification.
type QuestionType string

const (
	QuestionHR       QuestionType = "hr_question"
	QuestionChitchat QuestionType = "chitchat"
	QuestionGeneral  QuestionType = "general"
)

// ClassificationResult is the outcome of running the classifier cascade.
type ClassificationResult struct {
	Path              Path         `json:"path"`
	QuestionType      QuestionType `json:"question_type"`
	Confidence        float64      `json:"confidence"`
	Method            Method       `json:"method"`
	Topic             string       `json:"topic,omitempty"`
	Intent            string       `json:"intent,omitempty"`
	Keywords          []string     `json:"keywords,omitempty"`
	ProcessedQuestion string       `json:"processed_question,omitempty"`
	CachedResponse    string       `json:"cached_response,omitempty"`
}

// Terminal reports whether the result already carries the final answer.
func (r ClassificationResult) Terminal() bool {
	return r.CachedResponse != "" && r.Path != PathRAG
}

// Reference is a grounding citation attached to an answer.
type Reference struct {
	FileName         string  `json:"file_name"`
	FileURL          string  `json:"file_url"`
	Section          string  `json:"section"`
	SimilarityScore  float64 `json:"similarity_score"`
	ResponseEvidence float64 `json:"response_evidence"`
	FinalScore       float64 `json:"final_score"`
	CitationHTML     string  `json:"citation_html"`
}

// ChatTurn is one message of the conversation history.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
