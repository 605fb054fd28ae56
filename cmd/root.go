package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codectx/codectx/code_scanner"
	summarizer "github.com/codectx/codectx/code_summarizer"
	summarizer_contracts "github.com/codectx/codectx/code_summarizer/contracts"
	"github.com/codectx/codectx/config"
	"github.com/codectx/codectx/constants/lipgloss"
	"github.com/codectx/codectx/context_cache"
	"github.com/codectx/codectx/context_generator"
	"github.com/codectx/codectx/token_management"
	token_contracts "github.com/codectx/codectx/token_management/contracts"
)

// RootDependencies holds the dependencies needed for the root command
type RootDependencies struct {
	Config          *config.Config
	Cwd             string
	Scanner         *code_scanner.Scanner
	Cache           *context_cache.Cache
	Summarizer      summarizer_contracts.ISummarizer
	TokenManagement token_contracts.ITokenManagement
	Generator       *context_generator.Generator
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "codectx",
	Short: "codectx keeps a machine-readable context document for your project up to date.",
	Long: `codectx scans a project tree, summarizes each file, and assembles a
PROJECT_CONTEXT document an AI assistant can consume instead of reading
the whole codebase. Summaries are cached by content, so repeated runs
only pay for what changed.`,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Println(config.DefaultConfig.Version)
			return
		}
		_ = cmd.Help()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(lipgloss.Red(fmt.Sprintf("%v", err)))
		os.Exit(1)
	}
}

func init() {
	config.InitFlags(rootCmd)
}

// handleRootCommand wires the shared dependency graph for subcommands.
func handleRootCommand(cmd *cobra.Command) *RootDependencies {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Println(lipgloss.Red(fmt.Sprintf("Error getting current directory: %v", err)))
		return nil
	}

	cfg := config.LoadConfigWithCache(cmd.Root(), cwd)

	deps := &RootDependencies{
		Config:          cfg,
		Cwd:             cwd,
		TokenManagement: token_management.NewTokenManager(),
	}

	deps.Scanner = code_scanner.NewScanner(code_scanner.ScannerConfig{
		ExtraExcludes: []string{"/" + cfg.OutputFile, "/" + cfg.CacheDir + "/"},
		HashWorkers:   cfg.HashWorkers,
	})

	if cfg.EnableCache {
		cache, err := context_cache.NewCache(context_cache.CacheConfig{Dir: cfg.CacheDir})
		if err != nil {
			fmt.Println(lipgloss.Yellow(fmt.Sprintf("Cache disabled: %v", err)))
		} else {
			deps.Cache = cache
		}
	}

	deps.Summarizer = newSummarizer(cfg)
	deps.Generator = context_generator.NewGenerator(deps.TokenManagement)
	return deps
}

func newSummarizer(cfg *config.Config) summarizer_contracts.ISummarizer {
	switch cfg.Summarizer.Backend {
	case "ollama":
		return summarizer.NewOllamaSummarizer(summarizer.OllamaConfig{
			BaseURL:     cfg.Summarizer.BaseURL,
			Model:       cfg.Summarizer.Model,
			Temperature: cfg.Summarizer.Temperature,
		})
	default:
		return summarizer.NewHeuristicSummarizer()
	}
}
