// Package main is the entry point for the Fortitude CLI: a thin process
// that wires configuration, logging, and the five subsystems together and
// exercises them directly (no daemon, no HTTP/MCP transport — those
// surfaces are external collaborators per spec.md §1).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fortitude-ai/fortitude/internal/api"
	"github.com/fortitude-ai/fortitude/internal/classifier"
	"github.com/fortitude-ai/fortitude/internal/config"
	"github.com/fortitude-ai/fortitude/internal/observability"
	"github.com/fortitude-ai/fortitude/internal/provider"
	"github.com/fortitude-ai/fortitude/internal/quality"
	"github.com/fortitude-ai/fortitude/internal/research"
	"github.com/fortitude-ai/fortitude/internal/retrieval"
	"github.com/fortitude-ai/fortitude/internal/store"
	"github.com/fortitude-ai/fortitude/pkg/models"
)

var (
	// Version is set at build time.
	Version = "dev"
	// BuildTime is set at build time.
	BuildTime = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fortitude",
		Short: "Fortitude - classified, quality-scored AI research",
		Long: `Fortitude classifies a research query, dispatches it through a
provider fallback engine with hybrid-retrieval context, scores the result
on seven quality dimensions, and learns from feedback over time.`,
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
	}

	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(researchCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(providersCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	observability.SetupLogging(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	return cfg, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// classifyCmd runs the keyword-rule classifier over a single query.
func classifyCmd() *cobra.Command {
	var domain string

	cmd := &cobra.Command{
		Use:   "classify <query>",
		Short: "Classify a research query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			c := classifier.New(cfg.Classifier)
			result, err := c.Classify(models.ClassifiedRequest{
				Query:           args[0],
				TechnicalDomain: domain,
			})
			if err != nil {
				return renderError(err)
			}
			return printJSON(api.ClassifyResponse{Classification: *result})
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "technical domain hint")
	return cmd
}

// researchCmd classifies a query then runs it through the research engine:
// provider fallback dispatch with hybrid-retrieval context and quality
// scoring.
func researchCmd() *cobra.Command {
	var (
		researchType string
		audience     string
		params       []string
		skipRetrieval bool
	)

	cmd := &cobra.Command{
		Use:   "research <query>",
		Short: "Run a query through the research engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("prepare data directory: %w", err)
			}

			fallback := provider.NewFallbackEngine(cfg.Provider)
			ollama, err := provider.NewOllamaProvider(cfg.Provider.Ollama)
			if err != nil {
				return fmt.Errorf("construct ollama provider: %w", err)
			}
			fallback.Register(ollama)

			var retriever *retrieval.Service
			if !skipRetrieval && cfg.Research.EnableVectorSearch {
				retriever, err = retrieval.NewService(cfg.Retrieval)
				if err != nil {
					observability.LogError(observability.Logger("cmd.research"), err,
						"retrieval unavailable, continuing without context", nil)
					retriever = nil
				}
			}

			var validator research.QualityValidator
			if cfg.Research.EnableQualityValidation {
				scorer, err := quality.NewScorer(cfg.Quality)
				if err != nil {
					return fmt.Errorf("construct quality scorer: %w", err)
				}
				validator = scorer
			}

			cache, err := store.New(cfg.DatabasePath())
			if err != nil {
				observability.LogError(observability.Logger("cmd.research"), err,
					"result cache unavailable, continuing without it", nil)
				cache = nil
			} else {
				defer cache.Close()
			}

			engine := research.NewEngine(fallback, retriever, validator, cache, cfg.Research)

			templateParams, err := parseParams(params)
			if err != nil {
				return err
			}

			result, err := engine.Research(context.Background(), research.Request{
				Query:          args[0],
				ResearchType:   models.ResearchType(researchType),
				AudienceLevel:  models.AudienceLevel(audience),
				TemplateParams: templateParams,
			})
			if err != nil {
				return renderError(err)
			}
			return printJSON(api.ResearchResponse{Result: *result, CorrelationID: result.CorrelationID})
		},
	}

	cmd.Flags().StringVar(&researchType, "type", string(models.ResearchLearning), "research type: learning|implementation|troubleshooting|decision|validation")
	cmd.Flags().StringVar(&audience, "audience", string(models.AudienceIntermediate), "audience level: beginner|intermediate|advanced")
	cmd.Flags().StringArrayVar(&params, "param", nil, "template parameter as key=value, repeatable")
	cmd.Flags().BoolVar(&skipRetrieval, "no-context", false, "skip hybrid-retrieval context discovery")
	return cmd
}

// searchCmd runs a standalone hybrid_search call.
func searchCmd() *cobra.Command {
	var (
		strategy string
		fusion   string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a hybrid semantic+keyword search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			svc, err := retrieval.NewService(cfg.Retrieval)
			if err != nil {
				return fmt.Errorf("construct retrieval service: %w", err)
			}
			defer svc.Close()

			resp, err := svc.Search(context.Background(), retrieval.Request{
				Query:    args[0],
				Strategy: retrieval.Strategy(strategy),
				Fusion:   retrieval.Fusion(fusion),
				Limit:    limit,
			})
			if err != nil {
				return renderError(err)
			}
			return printJSON(api.HybridSearchResponse{
				Results: resp.Results,
				ExecutionStats: api.ExecutionStats{
					SemanticHits:  resp.Stats.SemanticHits,
					KeywordHits:   resp.Stats.KeywordHits,
					FusedHits:     resp.Stats.FusedHits,
					SearchTimeMS:  resp.Stats.SearchTimeMS,
					Degraded:      resp.Stats.Degraded,
					DegradeReason: resp.Stats.DegradeReason,
				},
			})
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", string(retrieval.StrategyBalanced), "Balanced|SemanticFocus|KeywordFocus")
	cmd.Flags().StringVar(&fusion, "fusion", string(retrieval.FusionRRF), "ReciprocalRankFusion|WeightedSum")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum results")
	return cmd
}

// providersCmd reports registered providers' static metadata and live
// health.
func providersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Show provider metadata and health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fallback := provider.NewFallbackEngine(cfg.Provider)
			ollama, err := provider.NewOllamaProvider(cfg.Provider.Ollama)
			if err != nil {
				return fmt.Errorf("construct ollama provider: %w", err)
			}
			fallback.Register(ollama)

			metaResp := api.ProvidersMetadataResponse{Providers: []models.ProviderMetadata{ollama.Metadata()}}
			healthResp := api.ProvidersHealthResponse{Providers: map[string]models.HealthMetrics{}}
			for _, h := range fallback.Health() {
				healthResp.Providers[h.Provider] = h
			}

			return printJSON(struct {
				Metadata api.ProvidersMetadataResponse `json:"metadata"`
				Health   api.ProvidersHealthResponse   `json:"health"`
			}{metaResp, healthResp})
		},
	}
	return cmd
}

func parseParams(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --param %q, expected key=value", p)
		}
		out[k] = v
	}
	return out, nil
}

func renderError(err error) error {
	if fortitudeErr, ok := err.(*models.Error); ok {
		env := api.NewErrorEnvelope(fortitudeErr)
		if encodeErr := printJSON(env); encodeErr != nil {
			return encodeErr
		}
		return fmt.Errorf("%s", env.Message)
	}
	return err
}
