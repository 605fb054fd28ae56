package code_summarizer

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/codectx/codectx/code_summarizer/models"
)

type languageSpec struct {
	lang        *sitter.Language
	symbolQuery string
	importQuery string
	isPublic    func(name string) bool
}

var languageSpecs = map[string]languageSpec{
	"go": {
		lang: golang.GetLanguage(),
		symbolQuery: `[
			(function_declaration name: (identifier) @name)
			(method_declaration name: (field_identifier) @name)
			(type_declaration (type_spec name: (type_identifier) @name))
		]`,
		importQuery: `(import_spec path: (interpreted_string_literal) @path)`,
		isPublic:    isExportedGo,
	},
	"python": {
		lang: python.GetLanguage(),
		symbolQuery: `[
			(function_definition name: (identifier) @name)
			(class_definition name: (identifier) @name)
		]`,
		importQuery: `[
			(import_statement name: (dotted_name) @path)
			(import_from_statement module_name: (dotted_name) @path)
		]`,
		isPublic: func(name string) bool { return !strings.HasPrefix(name, "_") },
	},
	"javascript": {
		lang: javascript.GetLanguage(),
		symbolQuery: `[
			(function_declaration name: (identifier) @name)
			(class_declaration name: (identifier) @name)
		]`,
		importQuery: `(import_statement source: (string) @path)`,
		isPublic:    func(string) bool { return true },
	},
	"typescript": {
		lang: typescript.GetLanguage(),
		symbolQuery: `[
			(function_declaration name: (identifier) @name)
			(class_declaration name: (identifier) @name)
		]`,
		importQuery: `(import_statement source: (string) @path)`,
		isPublic:    func(string) bool { return true },
	},
}

func specForFile(relPath string) (languageSpec, bool) {
	switch strings.ToLower(filepath.Ext(relPath)) {
	case ".go":
		spec, ok := languageSpecs["go"]
		return spec, ok
	case ".py":
		spec, ok := languageSpecs["python"]
		return spec, ok
	case ".js", ".jsx", ".mjs":
		spec, ok := languageSpecs["javascript"]
		return spec, ok
	case ".ts", ".tsx":
		spec, ok := languageSpecs["typescript"]
		return spec, ok
	}
	return languageSpec{}, false
}

// extractStructure pulls public symbols and import dependencies out of a
// source file, using tree-sitter for the supported languages and regex
// fallbacks elsewhere.
func extractStructure(relPath, text string) structureInfo {
	var info structureInfo

	if spec, ok := specForFile(relPath); ok {
		source := []byte(text)
		parser := sitter.NewParser()
		parser.SetLanguage(spec.lang)
		tree := parser.Parse(nil, source)
		if tree != nil {
			defer tree.Close()
			info.PublicSymbols = runCaptureQuery(spec, spec.symbolQuery, tree, source, spec.isPublic)
			imports := runCaptureQuery(spec, spec.importQuery, tree, source, nil)
			info.ImportDeps = normalizeImports(imports)
		}
		info.DocText = leadingDocText(relPath, text)
		info.Entrypoints = findEntrypoints(relPath, text)
		return info
	}

	info.Entrypoints = findEntrypoints(relPath, text)
	return info
}

// runCaptureQuery executes a tree-sitter query and collects capture text,
// deduplicated, in first-appearance order.
func runCaptureQuery(spec languageSpec, queryStr string, tree *sitter.Tree, source []byte, filter func(string) bool) []string {
	query, err := sitter.NewQuery([]byte(queryStr), spec.lang)
	if err != nil {
		return nil
	}
	defer query.Close()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(query, tree.RootNode())

	seen := map[string]bool{}
	var out []string
	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}
		for _, capture := range match.Captures {
			name := strings.Trim(capture.Node.Content(source), `"'`)
			if name == "" || seen[name] {
				continue
			}
			if filter != nil && !filter(name) {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// normalizeImports keeps the top-level module of each import, sorted and
// deduplicated, matching how import dependencies read in the document.
func normalizeImports(imports []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, imp := range imports {
		top := imp
		if i := strings.IndexAny(top, "/."); i > 0 {
			top = top[:i]
		}
		if top == "" || seen[top] {
			continue
		}
		seen[top] = true
		out = append(out, top)
	}
	sort.Strings(out)
	return out
}

func isExportedGo(name string) bool {
	if name == "" {
		return false
	}
	r := rune(name[0])
	return r >= 'A' && r <= 'Z'
}

var pyDocstringPattern = regexp.MustCompile(`(?s)^\s*(?:"""(.*?)"""|'''(.*?)''')`)

// leadingDocText returns a module docstring or package doc comment.
func leadingDocText(relPath, text string) string {
	switch strings.ToLower(filepath.Ext(relPath)) {
	case ".py":
		if m := pyDocstringPattern.FindStringSubmatch(text); m != nil {
			doc := m[1]
			if doc == "" {
				doc = m[2]
			}
			return strings.TrimSpace(doc)
		}
	case ".go":
		var doc []string
		for _, line := range strings.Split(text, "\n") {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "//") {
				doc = append(doc, strings.TrimSpace(strings.TrimPrefix(trimmed, "//")))
				continue
			}
			break
		}
		return strings.Join(doc, " ")
	}
	return ""
}

// findEntrypoints records line-level evidence that a file starts a program.
func findEntrypoints(_ string, text string) []models.Entrypoint {
	var eps []models.Entrypoint
	for i, line := range strings.Split(text, "\n") {
		switch {
		case strings.Contains(line, "if __name__"):
			eps = append(eps, models.Entrypoint{
				Line:       i + 1,
				Evidence:   `if __name__ == "__main__"`,
				Confidence: 0.95,
			})
		case strings.HasPrefix(strings.TrimSpace(line), "func main("):
			eps = append(eps, models.Entrypoint{
				Line:       i + 1,
				Evidence:   "func main()",
				Confidence: 0.9,
			})
		}
	}
	return eps
}
