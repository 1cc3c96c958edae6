// Package config handles Fortitude configuration loading and management.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	if path == "~" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return homeDir
	}
	return path
}

// Config holds all Fortitude configuration.
type Config struct {
	DataDir   string `mapstructure:"data_dir"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	Classifier ClassifierConfig `mapstructure:"classifier"`
	Provider   ProviderConfig   `mapstructure:"provider"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Research   ResearchConfig   `mapstructure:"research"`
	Quality    QualityConfig    `mapstructure:"quality"`
	Feedback   FeedbackConfig   `mapstructure:"feedback"`
}

// ClassifierConfig tunes the keyword-rule classifier (§4.1).
type ClassifierConfig struct {
	// FallbackConfidenceCap bounds the confidence reported when no rule
	// matches and the fallback policy kicks in.
	FallbackConfidenceCap float64 `mapstructure:"fallback_confidence_cap"`

	// MinConfidence below which a classification is considered ambiguous.
	MinConfidence float64 `mapstructure:"min_confidence"`

	// FoldDiacritics enables accent-insensitive keyword matching.
	FoldDiacritics bool `mapstructure:"fold_diacritics"`
}

// ProviderConfig holds fallback-engine and per-provider configuration.
type ProviderConfig struct {
	// Strategy selects among "round_robin", "health_based",
	// "performance_based", "priority".
	Strategy string `mapstructure:"strategy"`

	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	MaxRetries     int `mapstructure:"max_retries"`

	// BackoffBase and BackoffMax bound the jittered exponential backoff
	// between retries.
	BackoffBase time.Duration `mapstructure:"backoff_base"`
	BackoffMax  time.Duration `mapstructure:"backoff_max"`

	// JitterFactor bounds the randomized spread applied to each backoff
	// delay: delay = nominal*(1 ± JitterFactor*rand). 0 disables jitter
	// entirely, producing a deterministic backoff schedule.
	JitterFactor float64 `mapstructure:"jitter_factor"`

	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`

	Ollama OllamaProviderConfig `mapstructure:"ollama"`
}

// CircuitBreakerConfig tunes the Closed/Open/HalfOpen automaton (§4.2, §9).
type CircuitBreakerConfig struct {
	FailureThreshold    int           `mapstructure:"failure_threshold"`
	SuccessThreshold    int           `mapstructure:"success_threshold"`
	OpenTimeout         time.Duration `mapstructure:"open_timeout"`
	HalfOpenMaxRequests int           `mapstructure:"half_open_max_requests"`

	// MaxOpenTimeout bounds the exponentially doubled reopen duration
	// (OpenTimeout*2^reopenCount) after repeated HalfOpen->Open transitions.
	MaxOpenTimeout time.Duration `mapstructure:"max_open_timeout"`
}

// OllamaProviderConfig configures the Ollama-backed research provider.
type OllamaProviderConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

// RetrievalConfig tunes hybrid retrieval (§4.3).
type RetrievalConfig struct {
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Qdrant    QdrantConfig    `mapstructure:"qdrant"`
	Keyword   KeywordConfig   `mapstructure:"keyword"`

	// MinScore filters low-relevance results after fusion.
	MinScore float64 `mapstructure:"min_score"`

	// SemanticWeight balances semantic vs keyword scores in WeightedSum fusion.
	SemanticWeight float64 `mapstructure:"semantic_weight"`

	EnableMMR    bool    `mapstructure:"enable_mmr"`
	MMRLambda    float64 `mapstructure:"mmr_lambda"`
	EnableRerank bool    `mapstructure:"enable_rerank"`
	RerankTopN   int     `mapstructure:"rerank_top_n"`
	RerankKeep   int     `mapstructure:"rerank_keep"`
	DefaultLimit int     `mapstructure:"default_limit"`
}

// EmbeddingConfig configures the embedding service and its bounded cache.
type EmbeddingConfig struct {
	OllamaHost  string        `mapstructure:"ollama_host"`
	Model       string        `mapstructure:"model"`
	Dimension   int           `mapstructure:"dimension"`
	BatchSize   int           `mapstructure:"batch_size"`
	CacheSize   int           `mapstructure:"cache_size"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	KeyStrategy string        `mapstructure:"key_strategy"` // "hash", "length_hash", "prefix_hash"
}

// QdrantConfig configures the vector store backend.
type QdrantConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	CollectionName string `mapstructure:"collection_name"`
}

// KeywordConfig configures the FTS5 keyword index.
type KeywordConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

// ResearchConfig mirrors the original `ClaudeResearchConfig` knobs (§4.4,
// SPEC_FULL.md §4).
type ResearchConfig struct {
	MaxTokens                 int           `mapstructure:"max_tokens"`
	Temperature                float64       `mapstructure:"temperature"`
	MaxProcessingTime          time.Duration `mapstructure:"max_processing_time"`
	EnableQualityValidation    bool          `mapstructure:"enable_quality_validation"`
	MinQualityScore            float64       `mapstructure:"min_quality_score"`
	SystemPrompt               string        `mapstructure:"system_prompt"`
	EnableVectorSearch         bool          `mapstructure:"enable_vector_search"`
	MaxContextDocuments        int           `mapstructure:"max_context_documents"`
	ContextRelevanceThreshold  float64       `mapstructure:"context_relevance_threshold"`
}

// QualityConfig tunes the composite weight table (§4.5) and the
// cross-provider anomaly advisory (SPEC_FULL.md §5).
type QualityConfig struct {
	Weights                map[string]float64 `mapstructure:"weights"`
	PerformanceBudgetMS    int                `mapstructure:"performance_budget_ms"`
	PerformanceBudgetBytes int64              `mapstructure:"performance_budget_bytes"`
	EnableCrossValidation  bool               `mapstructure:"enable_cross_validation"`
	AnomalyThreshold       float64            `mapstructure:"anomaly_threshold"`
}

// FeedbackConfig tunes the adaptive weight learning schedule (§4.6).
type FeedbackConfig struct {
	LearningRate          float64       `mapstructure:"learning_rate"`
	AdaptationInterval    time.Duration `mapstructure:"adaptation_interval"`
	AdaptationThreshold   float64       `mapstructure:"adaptation_threshold"`
	MinFeedbackThreshold  int           `mapstructure:"min_feedback_threshold"`
	AutoApplyAdaptations  bool          `mapstructure:"auto_apply_adaptations"`
	RedisAddr             string        `mapstructure:"redis_addr"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".fortitude")

	return &Config{
		DataDir:   dataDir,
		LogLevel:  "info",
		LogFormat: "json",

		Classifier: ClassifierConfig{
			FallbackConfidenceCap: 0.5,
			MinConfidence:         0.3,
			FoldDiacritics:        true,
		},

		Provider: ProviderConfig{
			Strategy:       "health_based",
			TimeoutSeconds: 120,
			MaxRetries:     3,
			BackoffBase:    200 * time.Millisecond,
			BackoffMax:     10 * time.Second,
			JitterFactor:   0.2,
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold:    5,
				SuccessThreshold:    2,
				OpenTimeout:         30 * time.Second,
				HalfOpenMaxRequests: 1,
				MaxOpenTimeout:      10 * time.Minute,
			},
			Ollama: OllamaProviderConfig{
				Endpoint: "http://localhost:11434",
				Model:    "qwen2.5-coder:7b",
			},
		},

		Retrieval: RetrievalConfig{
			Embedding: EmbeddingConfig{
				OllamaHost:  "http://localhost:11434",
				Model:       "nomic-embed-text",
				Dimension:   768,
				BatchSize:   10,
				CacheSize:   2048,
				CacheTTL:    1 * time.Hour,
				KeyStrategy: "hash",
			},
			Qdrant: QdrantConfig{
				Host:           "localhost",
				Port:           6334,
				CollectionName: "fortitude_kb",
			},
			Keyword: KeywordConfig{
				DatabasePath: filepath.Join(dataDir, "fortitude.db"),
			},
			MinScore:       0.0,
			SemanticWeight: 0.5,
			EnableMMR:      true,
			MMRLambda:      0.7,
			EnableRerank:   true,
			RerankTopN:     30,
			RerankKeep:     10,
			DefaultLimit:   10,
		},

		Research: ResearchConfig{
			MaxTokens:                 4096,
			Temperature:               0.3,
			MaxProcessingTime:         60 * time.Second,
			EnableQualityValidation:   true,
			MinQualityScore:           0.5,
			SystemPrompt:              "You are a research assistant that answers with an Answer, Evidence, and Implementation section.",
			EnableVectorSearch:        true,
			MaxContextDocuments:       5,
			ContextRelevanceThreshold: 0.3,
		},

		Quality: QualityConfig{
			Weights: map[string]float64{
				"relevance":    0.25,
				"accuracy":     0.20,
				"completeness": 0.15,
				"clarity":      0.15,
				"credibility":  0.10,
				"timeliness":   0.05,
				"specificity":  0.10,
			},
			PerformanceBudgetMS:    100,
			PerformanceBudgetBytes: 10 * 1024 * 1024,
			EnableCrossValidation:  true,
			AnomalyThreshold:       0.3,
		},

		Feedback: FeedbackConfig{
			LearningRate:         0.05,
			AdaptationInterval:   1 * time.Hour,
			AdaptationThreshold:  0.1,
			MinFeedbackThreshold: 10,
			AutoApplyAdaptations: false,
			RedisAddr:            "localhost:6379",
		},
	}
}

// Load loads configuration from files and environment.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("fortitude")
	v.SetConfigType("yaml")

	homeDir, _ := os.UserHomeDir()
	v.AddConfigPath(filepath.Join(homeDir, ".fortitude"))
	v.AddConfigPath("/etc/fortitude")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FORTITUDE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	cfg.DataDir = expandPath(cfg.DataDir)
	cfg.Retrieval.Keyword.DatabasePath = expandPath(cfg.Retrieval.Keyword.DatabasePath)

	return cfg, nil
}

// DatabasePath returns the path to the SQLite result-cache database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "fortitude.db")
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.DataDir,
		filepath.Join(c.DataDir, "cache"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}
	return nil
}
