package context_generator

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/codectx/codectx/code_summarizer/models"
	"github.com/codectx/codectx/context_cache"
	"github.com/codectx/codectx/token_management/contracts"
)

// keyFileThreshold is the priority score above which a file gets its own
// section instead of a table row.
const keyFileThreshold = 5

// otherFileSummaryWidth truncates table summaries so rows stay readable.
const otherFileSummaryWidth = 60

// FileEntry pairs a scanned file with its summary for rendering.
type FileEntry struct {
	Path        string         `json:"path"`
	SizeBytes   int64          `json:"size_bytes"`
	ContentHash string         `json:"content_hash"`
	Summary     models.Summary `json:"summary"`
	FromCache   bool           `json:"from_cache"`
}

// Document is everything the renderers need to produce the context file.
type Document struct {
	Root          string                   `json:"root"`
	GeneratedAt   time.Time                `json:"generated_at"`
	BackendID     string                   `json:"backend_id"`
	ScanHash      string                   `json:"scan_hash"`
	Files         []FileEntry              `json:"files"`
	PriorityPaths []string                 `json:"priority_paths,omitempty"`
	CacheStats    context_cache.CacheStats `json:"cache_stats"`
	Warnings      []string                 `json:"warnings,omitempty"`
	TokenEstimate int                      `json:"token_estimate"`
	TokenBudget   int                      `json:"token_budget"`
}

// Generator renders the project context document in markdown and JSON.
type Generator struct {
	tokenManagement contracts.ITokenManagement
}

func NewGenerator(tokenManagement contracts.ITokenManagement) *Generator {
	return &Generator{tokenManagement: tokenManagement}
}

// ScanHash fingerprints a scan: the digest of every (path, content hash)
// pair in walk order. Two runs over identical trees produce the same
// hash, so the document header doubles as a change detector.
func ScanHash(files []FileEntry) string {
	h := sha256.New()
	for _, f := range files {
		fmt.Fprintf(h, "%s\x00%s\n", f.Path, f.ContentHash)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// RenderMarkdown produces the PROJECT_CONTEXT document and records its
// token estimate. Over-budget documents get a warning, never truncation.
func (g *Generator) RenderMarkdown(doc *Document) string {
	markdown := g.renderMarkdown(doc)
	doc.TokenEstimate = g.tokenManagement.EstimateTokens(markdown)
	g.tokenManagement.UsedTokens(doc.TokenEstimate)
	if g.tokenManagement.OverBudget(doc.TokenBudget) {
		doc.Warnings = append(doc.Warnings, fmt.Sprintf(
			"document is ~%d tokens, over the %d token budget", doc.TokenEstimate, doc.TokenBudget))
		markdown = g.renderMarkdown(doc)
	}
	return markdown
}

func (g *Generator) renderMarkdown(doc *Document) string {
	var sb strings.Builder

	sb.WriteString("# Project Context\n\n")
	sb.WriteString(fmt.Sprintf("> Generated %s | %d files | scan %s | backend %s\n",
		doc.GeneratedAt.Format("2006-01-02 15:04:05 MST"), len(doc.Files), doc.ScanHash, doc.BackendID))
	total := doc.CacheStats.Hits + doc.CacheStats.Misses
	if total > 0 {
		sb.WriteString(fmt.Sprintf("> Cache: %d/%d hits (%d tokens saved)\n",
			doc.CacheStats.Hits, total, doc.CacheStats.TokensSaved))
	}
	sb.WriteString("\n")

	sb.WriteString("## Directory Structure\n\n```\n")
	sb.WriteString(renderTree(doc.Files))
	sb.WriteString("```\n\n")

	key, other := g.splitByPriority(doc)

	if len(key) > 0 {
		sb.WriteString("## Key Files\n\n")
		for _, entry := range key {
			writeKeyFileSection(&sb, entry)
		}
	}

	if len(other) > 0 {
		sb.WriteString("## Other Files\n\n")
		sb.WriteString("| Path | Role | Summary |\n")
		sb.WriteString("|------|------|---------|\n")
		for _, entry := range other {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n",
				entry.Path, entry.Summary.Role, truncate(tableSafe(entry.Summary.Summary), otherFileSummaryWidth)))
		}
		sb.WriteString("\n")
	}

	if len(doc.Warnings) > 0 {
		sb.WriteString("## Warnings\n\n")
		for _, w := range doc.Warnings {
			sb.WriteString("- " + w + "\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderJSON produces the machine-readable form of the same document.
func (g *Generator) RenderJSON(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode context document: %w", err)
	}
	return append(data, '\n'), nil
}

func writeKeyFileSection(sb *strings.Builder, entry FileEntry) {
	sb.WriteString(fmt.Sprintf("### %s\n\n", entry.Path))

	meta := []string{"**Role:** " + entry.Summary.Role}
	if entry.Summary.Language != "" {
		meta = append(meta, "**Language:** "+entry.Summary.Language)
	}
	sb.WriteString(strings.Join(meta, " | ") + "\n\n")

	if entry.Summary.Summary != "" {
		sb.WriteString(entry.Summary.Summary + "\n\n")
	}
	if len(entry.Summary.PublicSymbols) > 0 {
		sb.WriteString("**Provides:** `" + strings.Join(entry.Summary.PublicSymbols, "`, `") + "`\n\n")
	}
	if len(entry.Summary.ImportDeps) > 0 {
		sb.WriteString("**Imports:** " + strings.Join(entry.Summary.ImportDeps, ", ") + "\n\n")
	}
	for _, ep := range entry.Summary.Entrypoints {
		sb.WriteString(fmt.Sprintf("**Entrypoint:** line %d (%s)\n\n", ep.Line, ep.Evidence))
	}
	if entry.Summary.RedactionCount > 0 {
		sb.WriteString(fmt.Sprintf("_%d secret-looking values redacted._\n\n", entry.Summary.RedactionCount))
	}
}

// splitByPriority orders entries by descending score then path, and
// splits at the key-file threshold. Excluded files always land in the
// table regardless of score.
func (g *Generator) splitByPriority(doc *Document) (key []FileEntry, other []FileEntry) {
	priority := map[string]bool{}
	for _, p := range doc.PriorityPaths {
		priority[p] = true
	}

	type scored struct {
		entry FileEntry
		score int
	}
	entries := make([]scored, 0, len(doc.Files))
	for _, entry := range doc.Files {
		entries = append(entries, scored{entry, priorityScore(entry, priority[entry.Path])})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].entry.Path < entries[j].entry.Path
	})

	for _, s := range entries {
		if s.score >= keyFileThreshold && !s.entry.Summary.Excluded {
			key = append(key, s.entry)
		} else {
			other = append(other, s.entry)
		}
	}
	return key, other
}

var keyFileNames = regexp.MustCompile(`(?i)^(readme(\..*)?|main\.[a-z]+|app\.[a-z]+|index\.[a-z]+|__init__\.py|setup\.py|pyproject\.toml|package\.json|go\.mod|cargo\.toml|makefile|dockerfile|claude\.md)$`)

// priorityScore weights the signals that make a file worth a full
// section: entrypoints dominate, then config, docs, well-known names.
func priorityScore(entry FileEntry, onPriorityPath bool) int {
	score := 0
	switch entry.Summary.Role {
	case models.RoleEntrypoint:
		score += 10
	case models.RoleConfig:
		score += 5
	case models.RoleDocs:
		score += 3
	}
	if keyFileNames.MatchString(filepath.Base(entry.Path)) {
		score += 3
	}
	if onPriorityPath {
		score += 2
	}
	if len(entry.Summary.Entrypoints) > 0 {
		score += 1
	}
	return score
}

// renderTree draws the scanned paths as an indented directory listing.
func renderTree(files []FileEntry) string {
	type node struct {
		name     string
		children map[string]*node
		isFile   bool
	}
	root := &node{children: map[string]*node{}}

	for _, f := range files {
		current := root
		parts := strings.Split(f.Path, "/")
		for i, part := range parts {
			child, ok := current.children[part]
			if !ok {
				child = &node{name: part, children: map[string]*node{}}
				current.children[part] = child
			}
			if i == len(parts)-1 {
				child.isFile = true
			}
			current = child
		}
	}

	var sb strings.Builder
	var render func(n *node, depth int)
	render = func(n *node, depth int) {
		names := make([]string, 0, len(n.children))
		for name := range n.children {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			child := n.children[name]
			suffix := ""
			if !child.isFile {
				suffix = "/"
			}
			sb.WriteString(strings.Repeat("  ", depth) + name + suffix + "\n")
			render(child, depth+1)
		}
	}
	render(root, 0)
	return sb.String()
}

func tableSafe(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	return s[:width-3] + "..."
}
