package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/codectx/codectx/constants/lipgloss"
	"github.com/codectx/codectx/context_cache"
	"github.com/codectx/codectx/context_generator"
	"github.com/codectx/codectx/utils"
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Scan the project and write the context document",
	Long: `The 'generate' command walks the project tree, summarizes every file
that is not excluded by ignore rules, and writes the assembled context
document. Summaries are served from the content-addressed cache when the
file, the prompt template, and the backend are all unchanged.`,
	Run: func(cmd *cobra.Command, args []string) {
		asJSON, _ := cmd.Flags().GetBool("json")
		toStdout, _ := cmd.Flags().GetBool("stdout")
		noCache, _ := cmd.Flags().GetBool("no-cache")

		rootDependencies := handleRootCommand(cmd)
		if rootDependencies == nil {
			return
		}
		handleGenerateCommand(rootDependencies, asJSON, toStdout, noCache)
	},
}

func init() {
	generateCmd.Flags().Bool("json", false, "Write the document as JSON instead of markdown")
	generateCmd.Flags().Bool("stdout", false, "Print the document instead of writing the output file")
	generateCmd.Flags().Bool("no-cache", false, "Summarize every file even when a cached summary exists")

	rootCmd.AddCommand(generateCmd)
}

func handleGenerateCommand(rootDependencies *RootDependencies, asJSON bool, toStdout bool, noCache bool) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgLightBlue)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100).WithRemoveWhenDone(true)

	spinnerInstance, _ := spinner.Start("Generating project context...")

	doc, err := buildDocument(ctx, rootDependencies, noCache)
	if err != nil {
		spinnerInstance.Stop()
		fmt.Print("\r")
		fmt.Println(lipgloss.Red(fmt.Sprintf("%v", err)))
		return
	}

	var output []byte
	outputFile := rootDependencies.Config.OutputFile
	if asJSON {
		output, err = rootDependencies.Generator.RenderJSON(doc)
		if err != nil {
			spinnerInstance.Stop()
			fmt.Print("\r")
			fmt.Println(lipgloss.Red(fmt.Sprintf("%v", err)))
			return
		}
		outputFile = jsonOutputName(outputFile)
	} else {
		output = []byte(rootDependencies.Generator.RenderMarkdown(doc))
	}

	spinnerInstance.Stop()
	fmt.Print("\r")

	if toStdout {
		fmt.Print(string(output))
		return
	}

	if err := utils.AtomicWriteFile(filepath.Join(rootDependencies.Cwd, outputFile), output, 0644); err != nil {
		fmt.Println(lipgloss.Red(fmt.Sprintf("Error writing %s: %v", outputFile, err)))
		return
	}

	fmt.Println(lipgloss.Green(fmt.Sprintf("✓ %s written (%d files, scan %s)", outputFile, len(doc.Files), doc.ScanHash)))
	for _, warning := range doc.Warnings {
		fmt.Println(lipgloss.Yellow("Warning: " + warning))
	}
	rootDependencies.TokenManagement.DisplayTokens(rootDependencies.Summarizer.BackendID(), doc.TokenBudget)
}

// buildDocument runs the scan-summarize-assemble pipeline shared by the
// generate and watch commands.
func buildDocument(ctx context.Context, rootDependencies *RootDependencies, noCache bool) (*context_generator.Document, error) {
	scanResult, err := rootDependencies.Scanner.Scan(rootDependencies.Cwd)
	if err != nil {
		return nil, err
	}

	doc := &context_generator.Document{
		Root:          rootDependencies.Cwd,
		GeneratedAt:   time.Now().UTC(),
		BackendID:     rootDependencies.Summarizer.BackendID(),
		PriorityPaths: scanResult.PriorityPaths,
		TokenBudget:   rootDependencies.Config.TokenBudget,
		Warnings:      scanResult.Warnings,
	}
	for _, scanErr := range scanResult.Errors {
		doc.Warnings = append(doc.Warnings, scanErr.Error())
	}

	promptHash := rootDependencies.Summarizer.PromptHash()
	backendID := rootDependencies.Summarizer.BackendID()
	cache := rootDependencies.Cache

	for _, file := range scanResult.Files {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		key := context_cache.CacheKey{
			ContentHash: file.ContentHash,
			PromptHash:  promptHash,
			BackendID:   backendID,
		}

		if cache != nil && !noCache {
			entry, hit, lookupErr := cache.Lookup(key)
			if lookupErr != nil {
				doc.Warnings = append(doc.Warnings, lookupErr.Error())
			}
			if hit {
				rootDependencies.TokenManagement.SavedTokens(entry.ApproxTokens)
				doc.Files = append(doc.Files, context_generator.FileEntry{
					Path:        file.RelativePath,
					SizeBytes:   file.SizeBytes,
					ContentHash: file.ContentHash,
					Summary:     entry.Summary,
					FromCache:   true,
				})
				continue
			}
		}

		content, readErr := os.ReadFile(file.AbsolutePath)
		if readErr != nil {
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("could not read %s: %v", file.RelativePath, readErr))
			continue
		}

		summary, sumErr := rootDependencies.Summarizer.Summarize(ctx, file.RelativePath, content)
		if sumErr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("could not summarize %s: %v", file.RelativePath, sumErr))
			continue
		}

		if cache != nil && !summary.Excluded {
			approx := rootDependencies.TokenManagement.EstimateTokens(summary.Summary)
			storeErr := cache.Store(key, context_cache.CacheEntry{
				Path:         file.RelativePath,
				Summary:      summary,
				ApproxTokens: approx,
			})
			if storeErr != nil {
				doc.Warnings = append(doc.Warnings, storeErr.Error())
			}
		}

		doc.Files = append(doc.Files, context_generator.FileEntry{
			Path:        file.RelativePath,
			SizeBytes:   file.SizeBytes,
			ContentHash: file.ContentHash,
			Summary:     summary,
		})
	}

	if cache != nil {
		doc.CacheStats = cache.Stats()
	}
	doc.ScanHash = context_generator.ScanHash(doc.Files)
	return doc, nil
}

func jsonOutputName(outputFile string) string {
	ext := filepath.Ext(outputFile)
	if ext == "" {
		return outputFile + ".json"
	}
	return outputFile[:len(outputFile)-len(ext)] + ".json"
}
