package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}
	if cfg.DataDir == "" {
		t.Error("DataDir should not be empty")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel should be 'info', got %s", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat should be 'json', got %s", cfg.LogFormat)
	}
}

func TestDefaultConfig_ClassifierDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Classifier.FallbackConfidenceCap != 0.5 {
		t.Errorf("FallbackConfidenceCap should be 0.5, got %f", cfg.Classifier.FallbackConfidenceCap)
	}
	if !cfg.Classifier.FoldDiacritics {
		t.Error("FoldDiacritics should default to true")
	}
}

func TestDefaultConfig_ProviderDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Provider.Strategy != "health_based" {
		t.Errorf("Strategy should be 'health_based', got %s", cfg.Provider.Strategy)
	}
	if cfg.Provider.MaxRetries != 3 {
		t.Errorf("MaxRetries should be 3, got %d", cfg.Provider.MaxRetries)
	}
	if cfg.Provider.CircuitBreaker.FailureThreshold != 5 {
		t.Errorf("FailureThreshold should be 5, got %d", cfg.Provider.CircuitBreaker.FailureThreshold)
	}
	if cfg.Provider.CircuitBreaker.OpenTimeout != 30*time.Second {
		t.Errorf("OpenTimeout should be 30s, got %v", cfg.Provider.CircuitBreaker.OpenTimeout)
	}
}

func TestDefaultConfig_RetrievalDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Retrieval.Embedding.Dimension != 768 {
		t.Errorf("Embedding dimension should be 768, got %d", cfg.Retrieval.Embedding.Dimension)
	}
	if cfg.Retrieval.Embedding.CacheSize != 2048 {
		t.Errorf("CacheSize should be 2048, got %d", cfg.Retrieval.Embedding.CacheSize)
	}
	if cfg.Retrieval.MMRLambda != 0.7 {
		t.Errorf("MMRLambda should be 0.7, got %f", cfg.Retrieval.MMRLambda)
	}
	if cfg.Retrieval.RerankTopN != 30 {
		t.Errorf("RerankTopN should be 30, got %d", cfg.Retrieval.RerankTopN)
	}
}

func TestDefaultConfig_ResearchDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Research.MaxTokens != 4096 {
		t.Errorf("MaxTokens should be 4096, got %d", cfg.Research.MaxTokens)
	}
	if !cfg.Research.EnableQualityValidation {
		t.Error("EnableQualityValidation should default to true")
	}
	if cfg.Research.MaxContextDocuments != 5 {
		t.Errorf("MaxContextDocuments should be 5, got %d", cfg.Research.MaxContextDocuments)
	}
}

func TestDefaultConfig_QualityWeightsSumToOne(t *testing.T) {
	cfg := DefaultConfig()

	var sum float64
	for _, w := range cfg.Quality.Weights {
		sum += w
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("quality weights should sum to ~1.0, got %f", sum)
	}
	if cfg.Quality.PerformanceBudgetMS != 100 {
		t.Errorf("PerformanceBudgetMS should be 100, got %d", cfg.Quality.PerformanceBudgetMS)
	}
}

func TestDefaultConfig_FeedbackDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Feedback.LearningRate != 0.05 {
		t.Errorf("LearningRate should be 0.05, got %f", cfg.Feedback.LearningRate)
	}
	if cfg.Feedback.AutoApplyAdaptations {
		t.Error("AutoApplyAdaptations should default to false")
	}
	if cfg.Feedback.MinFeedbackThreshold != 10 {
		t.Errorf("MinFeedbackThreshold should be 10, got %d", cfg.Feedback.MinFeedbackThreshold)
	}
}

func TestConfig_DatabasePath(t *testing.T) {
	cfg := DefaultConfig()

	dbPath := cfg.DatabasePath()
	if !strings.HasSuffix(dbPath, "fortitude.db") {
		t.Errorf("DatabasePath should end with 'fortitude.db', got %s", dbPath)
	}
	if !strings.Contains(dbPath, cfg.DataDir) {
		t.Errorf("DatabasePath should be within DataDir")
	}
}

func TestConfig_EnsureDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := &Config{DataDir: tmpDir}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	expectedDirs := []string{tmpDir, filepath.Join(tmpDir, "cache")}
	for _, dir := range expectedDirs {
		info, err := os.Stat(dir)
		if err != nil {
			t.Errorf("Directory %s not created: %v", dir, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}
}

func TestConfig_EnsureDirectories_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Permission test not applicable on Windows")
	}

	tmpDir := t.TempDir()
	cfg := &Config{DataDir: tmpDir}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(tmpDir, "cache"))
	if err != nil {
		t.Fatalf("Failed to stat cache dir: %v", err)
	}

	perm := info.Mode().Perm()
	if perm&0077 != 0 {
		t.Errorf("cache directory should not be world-readable, got %o", perm)
	}
}

func TestLoad_DefaultsWhenNoConfig(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.LogLevel == "" {
		t.Error("LogLevel should have default value")
	}
}

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot determine home directory")
	}

	tests := []struct {
		input    string
		expected string
	}{
		{"~/.fortitude", filepath.Join(homeDir, ".fortitude")},
		{"~/", homeDir},
		{"~", homeDir},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
		{"", ""},
	}

	for _, tt := range tests {
		result := expandPath(tt.input)
		if result != tt.expected {
			t.Errorf("expandPath(%q) = %q, expected %q", tt.input, result, tt.expected)
		}
	}
}
