package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/codectx/codectx/constants/lipgloss"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the cache store and output document state",
	Long: `The 'status' command reports the configured output file, whether it
exists and when it was last written, and the state of the summary cache
store, without scanning or summarizing anything.`,
	Run: func(cmd *cobra.Command, args []string) {
		rootDependencies := handleRootCommand(cmd)
		if rootDependencies == nil {
			return
		}
		handleStatusCommand(rootDependencies)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func handleStatusCommand(rootDependencies *RootDependencies) {
	fmt.Println(lipgloss.Info("Project Context Status:"))

	if scanResult, err := rootDependencies.Scanner.Scan(rootDependencies.Cwd); err == nil {
		fmt.Printf("  Scanned Files: %d (%d priority)\n", len(scanResult.Files), len(scanResult.PriorityPaths))
		for _, scanErr := range scanResult.Errors {
			fmt.Println(lipgloss.Yellow("  Warning: " + scanErr.Error()))
		}
	} else {
		fmt.Println(lipgloss.Red(fmt.Sprintf("  Scan failed: %v", err)))
	}

	outputPath := filepath.Join(rootDependencies.Cwd, rootDependencies.Config.OutputFile)
	if info, err := os.Stat(outputPath); err == nil {
		fmt.Printf("  Output: %s (%d bytes, written %s)\n",
			rootDependencies.Config.OutputFile, info.Size(), info.ModTime().Format("2006-01-02 15:04:05"))
	} else {
		fmt.Printf("  Output: %s (not generated yet)\n", rootDependencies.Config.OutputFile)
	}

	fmt.Printf("  Backend: %s\n", rootDependencies.Summarizer.BackendID())
	fmt.Printf("  Token Budget: %d\n", rootDependencies.Config.TokenBudget)

	if rootDependencies.Cache == nil {
		fmt.Println("  Cache: disabled")
		return
	}

	meta := rootDependencies.Cache.Meta()
	fmt.Printf("  Cache Directory: %s\n", rootDependencies.Cache.Dir())
	fmt.Printf("  Cached Summaries: %d\n", meta.EntryCount)
	if !meta.LastUpdated.IsZero() {
		fmt.Printf("  Last Updated: %s\n", meta.LastUpdated.Local().Format("2006-01-02 15:04:05"))
	}
}
