package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/codectx/codectx/constants/lipgloss"
	"github.com/codectx/codectx/utils"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Render the generated context document in the terminal",
	Long: `The 'show' command prints the generated context document with syntax
highlighting. It never regenerates anything; run 'generate' first.`,
	Run: func(cmd *cobra.Command, args []string) {
		rootDependencies := handleRootCommand(cmd)
		if rootDependencies == nil {
			return
		}
		handleShowCommand(rootDependencies)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func handleShowCommand(rootDependencies *RootDependencies) {
	outputPath := filepath.Join(rootDependencies.Cwd, rootDependencies.Config.OutputFile)
	content, err := os.ReadFile(outputPath)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println(lipgloss.Yellow(fmt.Sprintf("%s not found. Run 'codectx generate' first.", rootDependencies.Config.OutputFile)))
			return
		}
		fmt.Println(lipgloss.Red(fmt.Sprintf("Error reading %s: %v", rootDependencies.Config.OutputFile, err)))
		return
	}

	if err := utils.RenderMarkdown(string(content), rootDependencies.Config.Theme); err != nil {
		// Highlighting is cosmetic; fall back to plain text.
		fmt.Print(string(content))
	}
}
