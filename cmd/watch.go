package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/codectx/codectx/constants/lipgloss"
	"github.com/codectx/codectx/utils"
)

// debounceInterval batches bursts of filesystem events (editor saves,
// git checkouts) into a single regeneration.
const debounceInterval = 2 * time.Second

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate the context document when project files change",
	Long: `The 'watch' command keeps the context document current: it watches the
project tree and re-runs generation after changes settle. Events under
the cache directory and for the output file itself are ignored so a
regeneration never triggers another one.`,
	Run: func(cmd *cobra.Command, args []string) {
		rootDependencies := handleRootCommand(cmd)
		if rootDependencies == nil {
			return
		}
		handleWatchCommand(rootDependencies)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func handleWatchCommand(rootDependencies *RootDependencies) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Println(lipgloss.Red(fmt.Sprintf("Error creating watcher: %v", err)))
		return
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, rootDependencies); err != nil {
		fmt.Println(lipgloss.Red(fmt.Sprintf("Error watching project: %v", err)))
		return
	}

	regenerate := func() {
		doc, err := buildDocument(ctx, rootDependencies, false)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			fmt.Println(lipgloss.Red(fmt.Sprintf("%v", err)))
			return
		}
		output := rootDependencies.Generator.RenderMarkdown(doc)
		outputPath := filepath.Join(rootDependencies.Cwd, rootDependencies.Config.OutputFile)
		if err := utils.AtomicWriteFile(outputPath, []byte(output), 0644); err != nil {
			fmt.Println(lipgloss.Red(fmt.Sprintf("Error writing %s: %v", rootDependencies.Config.OutputFile, err)))
			return
		}
		fmt.Println(lipgloss.Green(fmt.Sprintf("✓ %s updated (%d files, scan %s)",
			rootDependencies.Config.OutputFile, len(doc.Files), doc.ScanHash)))
	}

	fmt.Println(lipgloss.Info(fmt.Sprintf("Watching %s (Ctrl+C to stop)", rootDependencies.Cwd)))
	regenerate()

	var debounce *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			fmt.Println(lipgloss.Yellow("\n🔄 Exiting..."))
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ignoreWatchEvent(event, rootDependencies) {
				continue
			}
			// New directories need their own watch.
			if event.Op.Has(fsnotify.Create) {
				_ = addWatchDirs(watcher, rootDependencies)
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceInterval, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			fmt.Println(lipgloss.Yellow(fmt.Sprintf("Watch error: %v", err)))

		case <-pending:
			regenerate()
		}
	}
}

// addWatchDirs registers the project directories that survive the ignore
// rules. fsnotify watches are not recursive, so every directory needs
// its own entry.
func addWatchDirs(watcher *fsnotify.Watcher, rootDependencies *RootDependencies) error {
	return filepath.WalkDir(rootDependencies.Cwd, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(rootDependencies.Cwd, path)
		if relErr != nil {
			return nil
		}
		if rel != "." && skipWatchDir(rel, rootDependencies) {
			return filepath.SkipDir
		}
		_ = watcher.Add(path)
		return nil
	})
}

func skipWatchDir(rel string, rootDependencies *RootDependencies) bool {
	base := filepath.Base(rel)
	if base == ".git" || base == "node_modules" || base == "__pycache__" {
		return true
	}
	return strings.HasPrefix(filepath.ToSlash(rel), rootDependencies.Config.CacheDir)
}

func ignoreWatchEvent(event fsnotify.Event, rootDependencies *RootDependencies) bool {
	rel, err := filepath.Rel(rootDependencies.Cwd, event.Name)
	if err != nil {
		return true
	}
	rel = filepath.ToSlash(rel)
	if rel == rootDependencies.Config.OutputFile || rel == jsonOutputName(rootDependencies.Config.OutputFile) {
		return true
	}
	if strings.HasPrefix(rel, rootDependencies.Config.CacheDir+"/") || rel == rootDependencies.Config.CacheDir {
		return true
	}
	if strings.HasPrefix(rel, ".git/") {
		return true
	}
	// Editors write through temp files; the rename to the real name
	// still produces an event for the final path.
	if strings.HasSuffix(rel, "~") || strings.HasSuffix(rel, ".swp") || strings.HasSuffix(rel, ".tmp") {
		return true
	}
	return false
}
