package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. HRRAG_CHUNKER_CHUNK_SIZE.
const EnvPrefix = "HRRAG_"

// LogConfig controls the process logger.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// OpenAIConfig holds connection settings for an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
	MaxRetries  int    `yaml:"max_retries"`
}

// EmbedderConfig selects and configures the text embedder implementation.
// Type is one of hashing, openai or langchain.
type EmbedderConfig struct {
	Type       string       `yaml:"type"`
	Dimensions int          `yaml:"dimensions"`
	CacheSize  int          `yaml:"cache_size"`
	OpenAI     OpenAIConfig `yaml:"openai"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	ChunkSize     int `yaml:"chunk_size"`
	Overlap       int `yaml:"overlap"`
	MinSpanChars  int `yaml:"min_span_chars"`
	MinChunkChars int `yaml:"min_chunk_chars"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL              string `yaml:"url"`
	APIKey           string `yaml:"api_key"`
	CollectionPrefix string `yaml:"collection_prefix"`
	TimeoutSecs      int    `yaml:"timeout_secs"`
}

// PostgresConfig contains connection details for the pgvector store.
type PostgresConfig struct {
	DSN        string `yaml:"dsn"`
	Table      string `yaml:"table"`
	Dimensions int    `yaml:"dimensions"`
}

// VectorStoreConfig selects the per-document index store.
// Type is one of memory, filesystem, qdrant or pgvector.
type VectorStoreConfig struct {
	Type      string         `yaml:"type"`
	Dir       string         `yaml:"dir"`
	CacheCost int64          `yaml:"cache_cost"`
	Qdrant    QdrantConfig   `yaml:"qdrant"`
	Postgres  PostgresConfig `yaml:"postgres"`
}

// RegistryConfig selects the document catalog backend.
// Type is one of file, sqlite or redis.
type RegistryConfig struct {
	Type         string `yaml:"type"`
	Path         string `yaml:"path"`
	RedisAddr    string `yaml:"redis_addr"`
	RedisKey     string `yaml:"redis_key"`
	CacheTTLSecs int    `yaml:"cache_ttl_secs"`
}

// RetrievalConfig controls candidate selection and search fan-out.
type RetrievalConfig struct {
	K                int      `yaml:"k"`
	RerankK          int      `yaml:"rerank_k"`
	MaxFilesToLoad   int      `yaml:"max_files_to_load"`
	SmartKeywords    []string `yaml:"smart_keywords"`
	OverviewTriggers []string `yaml:"overview_triggers"`
}

// ClassifierConfig holds the cascade thresholds.
type ClassifierConfig struct {
	ChitchatThreshold     float64 `yaml:"chitchat_threshold"`
	HRThreshold           float64 `yaml:"hr_threshold"`
	LLMHighConfidence     float64 `yaml:"llm_high_confidence"`
	EmbeddingConfidence   float64 `yaml:"embedding_confidence"`
	LLMLowConfidence      float64 `yaml:"llm_low_confidence"`
	FallbackConfidence    float64 `yaml:"fallback_confidence"`
	EmbeddingThreshold    float64 `yaml:"embedding_threshold"`
	EmbeddingMinimum      float64 `yaml:"embedding_minimum"`
	ChitchatCachedMinimum float64 `yaml:"chitchat_cached_minimum"`
	TopicConfidence       float64 `yaml:"topic_confidence"`
	DataPath              string  `yaml:"data_path"`
}

// LLMConfig configures generation.
type LLMConfig struct {
	BaseURL       string  `yaml:"base_url"`
	APIKeyEnv     string  `yaml:"api_key_env"`
	PrimaryModel  string  `yaml:"primary_model"`
	FallbackModel string  `yaml:"fallback_model"`
	Temperature   float64 `yaml:"temperature"`
	MaxTokens     int     `yaml:"max_tokens"`
}

// SectionPage maps a handbook section heading to its page.
type SectionPage struct {
	Section string `yaml:"section"`
	Page    int    `yaml:"page"`
}

// CitationConfig holds the attribution weights and thresholds.
type CitationConfig struct {
	EvidenceWeight   float64       `yaml:"evidence_weight"`
	SupportWeight    float64       `yaml:"support_weight"`
	ExactWeight      float64       `yaml:"exact_weight"`
	ConceptWeight    float64       `yaml:"concept_weight"`
	NumericWeight    float64       `yaml:"numeric_weight"`
	TermWeight       float64       `yaml:"term_weight"`
	StrongEvidence   float64       `yaml:"strong_evidence"`
	StrongThreshold  float64       `yaml:"strong_threshold"`
	GapMinimum       float64       `yaml:"gap_minimum"`
	GapThreshold     float64       `yaml:"gap_threshold"`
	DefaultThreshold float64       `yaml:"default_threshold"`
	SingleThreshold  float64       `yaml:"single_threshold"`
	FallbackEvidence float64       `yaml:"fallback_evidence"`
	MinResponseWords int           `yaml:"min_response_words"`
	LinkStyle        string        `yaml:"link_style"`
	SectionPages     []SectionPage `yaml:"section_pages"`
	DocumentBaseURL  string        `yaml:"document_base_url"`
	FormatFooter     bool          `yaml:"format_footer"`
}

// SummarizerConfig configures history compression.
type SummarizerConfig struct {
	MaxSentences int `yaml:"max_sentences"`
	HistoryTurns int `yaml:"history_turns"`
}

// ConversationConfig configures the conversation memory. Without a Redis
// address turns are kept in process only.
type ConversationConfig struct {
	Size      int    `yaml:"size"`
	MaxTurns  int    `yaml:"max_turns"`
	Window    int    `yaml:"window"`
	RedisAddr string `yaml:"redis_addr"`
	KeyPrefix string `yaml:"key_prefix"`
	TTLSecs   int    `yaml:"ttl_secs"`
}

// MetricsConfig configures the prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Log          LogConfig          `yaml:"log"`
	Embedder     EmbedderConfig     `yaml:"embedder"`
	Chunker      ChunkerConfig      `yaml:"chunker"`
	VectorStore  VectorStoreConfig  `yaml:"vector_store"`
	Registry     RegistryConfig     `yaml:"registry"`
	Retrieval    RetrievalConfig    `yaml:"retrieval"`
	Classifier   ClassifierConfig   `yaml:"classifier"`
	LLM          LLMConfig          `yaml:"llm"`
	Citation     CitationConfig     `yaml:"citation"`
	Summarizer   SummarizerConfig   `yaml:"summarizer"`
	Conversation ConversationConfig `yaml:"conversation"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/hrrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/hrrag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ApplyEnv overlays HRRAG_* variables from environ on top of cfg. Every key
// of the config tree has a variable named after its path, so
// vector_store.qdrant.url is HRRAG_VECTOR_STORE_QDRANT_URL. Section page
// tables can only be set from YAML.
func ApplyEnv(cfg *AppConfig, environ []string) (*AppConfig, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(cfg, "yaml"), nil); err != nil {
		return nil, fmt.Errorf("config: load base layer: %w", err)
	}

	envToPath := make(map[string]string, len(k.Keys()))
	for _, key := range k.Keys() {
		envToPath[envName(key)] = key
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			name := strings.TrimPrefix(key, EnvPrefix)
			path, ok := envToPath[name]
			if !ok {
				return "", nil
			}
			if isListKey(k, path) {
				return path, splitList(value)
			}
			return path, value
		},
		EnvironFunc: func() []string { return environ },
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	out := &AppConfig{}
	if err := k.UnmarshalWithConf("", out, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	out.Citation.SectionPages = cfg.Citation.SectionPages
	applyConfigDefaults(out)
	return out, nil
}

func envName(path string) string {
	return strings.ToUpper(strings.ReplaceAll(path, ".", "_"))
}

func isListKey(k *koanf.Koanf, path string) bool {
	switch k.Get(path).(type) {
	case []string, []any:
		return true
	}
	return false
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "hrrag", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	cfg := &AppConfig{
		Log:      LogConfig{Level: "info"},
		Embedder: EmbedderConfig{Type: "hashing", Dimensions: 512, CacheSize: 1024},
		Chunker: ChunkerConfig{
			ChunkSize:     300,
			Overlap:       50,
			MinSpanChars:  30,
			MinChunkChars: 50,
		},
		VectorStore: VectorStoreConfig{Type: "filesystem", Dir: "data/indices", CacheCost: 64},
		Registry:    RegistryConfig{Type: "file", Path: "data/registry.json", RedisKey: "hrrag:registry", CacheTTLSecs: 60},
		Retrieval: RetrievalConfig{
			K:                5,
			RerankK:          5,
			MaxFilesToLoad:   20,
			SmartKeywords:    []string{"lương", "bảo hiểm", "nghỉ phép", "tuyển dụng"},
			OverviewTriggers: []string{"tất cả", "tổng hợp", "tổng quan", "overview", "summary"},
		},
		Classifier: ClassifierConfig{
			ChitchatThreshold:     0.8,
			HRThreshold:           0.5,
			LLMHighConfidence:     0.7,
			EmbeddingConfidence:   0.6,
			LLMLowConfidence:      0.5,
			FallbackConfidence:    0.4,
			EmbeddingThreshold:    1.0,
			EmbeddingMinimum:      0.4,
			ChitchatCachedMinimum: 0.6,
			TopicConfidence:       0.6,
		},
		LLM: LLMConfig{
			BaseURL:       "https://api.openai.com/v1",
			APIKeyEnv:     "OPENAI_API_KEY",
			PrimaryModel:  "gpt-4o-mini",
			FallbackModel: "gpt-3.5-turbo",
			Temperature:   0.7,
			MaxTokens:     1000,
		},
		Citation: CitationConfig{
			EvidenceWeight:   0.8,
			SupportWeight:    0.2,
			ExactWeight:      0.5,
			ConceptWeight:    0.3,
			NumericWeight:    0.15,
			TermWeight:       0.05,
			StrongEvidence:   0.3,
			StrongThreshold:  0.1,
			GapMinimum:       0.15,
			GapThreshold:     0.05,
			DefaultThreshold: 0.2,
			SingleThreshold:  0.15,
			FallbackEvidence: 0.1,
			MinResponseWords: 30,
			LinkStyle:        "query",
			FormatFooter:     true,
		},
		Summarizer:   SummarizerConfig{MaxSentences: 3, HistoryTurns: 3},
		Conversation: ConversationConfig{Size: 1024, MaxTurns: 50, Window: 5, KeyPrefix: "hrrag:conversation:", TTLSecs: 86400},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Chunker.ChunkSize <= 0 {
		cfg.Chunker.ChunkSize = 300
	}
	if cfg.Chunker.Overlap < 0 {
		cfg.Chunker.Overlap = 0
	}
	if cfg.Embedder.Dimensions <= 0 {
		cfg.Embedder.Dimensions = 512
	}
	if cfg.Embedder.Type == "openai" || cfg.Embedder.Type == "langchain" {
		o := &cfg.Embedder.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "text-embedding-3-small"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
		if o.BatchSize == 0 {
			o.BatchSize = 32
		}
		if o.MaxRetries == 0 {
			o.MaxRetries = 3
		}
	}
	if cfg.VectorStore.Type == "qdrant" {
		q := &cfg.VectorStore.Qdrant
		if q.URL == "" {
			q.URL = "http://localhost:6333"
		}
		if q.CollectionPrefix == "" {
			q.CollectionPrefix = "hrrag_"
		}
		if q.TimeoutSecs == 0 {
			q.TimeoutSecs = 15
		}
	}
	if cfg.VectorStore.Type == "pgvector" && cfg.VectorStore.Postgres.Table == "" {
		cfg.VectorStore.Postgres.Table = "hrrag_chunks"
	}
	if cfg.Registry.Type == "redis" && cfg.Registry.RedisAddr == "" {
		cfg.Registry.RedisAddr = "localhost:6379"
	}
	if cfg.Retrieval.K <= 0 {
		cfg.Retrieval.K = 5
	}
	if cfg.Retrieval.RerankK <= 0 {
		cfg.Retrieval.RerankK = cfg.Retrieval.K
	}
	if cfg.Retrieval.MaxFilesToLoad <= 0 {
		cfg.Retrieval.MaxFilesToLoad = 20
	}
	if cfg.Citation.LinkStyle == "" {
		cfg.Citation.LinkStyle = "query"
	}
	if cfg.Citation.MinResponseWords <= 0 {
		cfg.Citation.MinResponseWords = 30
	}
	if cfg.Summarizer.HistoryTurns <= 0 {
		cfg.Summarizer.HistoryTurns = 3
	}
	if cfg.Conversation.MaxTurns <= 0 {
		cfg.Conversation.MaxTurns = 50
	}
	if cfg.Conversation.Window <= 0 {
		cfg.Conversation.Window = 5
	}
}
