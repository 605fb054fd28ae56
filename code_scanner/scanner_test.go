package code_scanner

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codectx/codectx/code_scanner/models"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func relPaths(result *models.ScanResult) []string {
	paths := make([]string, 0, len(result.Files))
	for _, f := range result.Files {
		paths = append(paths, f.RelativePath)
	}
	return paths
}

func TestScanner_BuiltinExclusions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/a.py", "print('hello')\n")
	writeFile(t, root, ".env", "SECRET=1\n")
	writeFile(t, root, "build/out.bin", "binary\n")

	result, err := NewScanner(ScannerConfig{}).Scan(root)
	require.NoError(t, err)

	// Only src/a.py survives: .env and build/ are builtin exclusions.
	assert.Equal(t, []string{"src/a.py"}, relPaths(result))
	assert.Empty(t, result.Errors)
}

func TestScanner_Determinism(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b.go", "package b\n")
	writeFile(t, root, "a/x.go", "package a\n")
	writeFile(t, root, "a/y.go", "package a\n")
	writeFile(t, root, "c/z.txt", "text\n")

	scanner := NewScanner(ScannerConfig{})
	first, err := scanner.Scan(root)
	require.NoError(t, err)
	second, err := scanner.Scan(root)
	require.NoError(t, err)

	// Unchanged tree, identical ordered output.
	assert.Equal(t, first.Files, second.Files)
	assert.Equal(t, []string{"a/x.go", "a/y.go", "b.go", "c/z.txt"}, relPaths(first))
}

func TestScanner_ContentHash(t *testing.T) {
	root := t.TempDir()
	content := "the same bytes\n"
	writeFile(t, root, "one.txt", content)
	writeFile(t, root, "two.txt", content)

	result, err := NewScanner(ScannerConfig{}).Scan(root)
	require.NoError(t, err)
	require.Len(t, result.Files, 2)

	sum := sha256.Sum256([]byte(content))
	expected := hex.EncodeToString(sum[:])
	assert.Equal(t, expected, result.Files[0].ContentHash)
	assert.Equal(t, expected, result.Files[1].ContentHash)
	assert.Equal(t, int64(len(content)), result.Files[0].SizeBytes)
}

func TestScanner_MissingRoot(t *testing.T) {
	_, err := NewScanner(ScannerConfig{}).Scan(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)

	var scanErr *models.ScanError
	require.True(t, errors.As(err, &scanErr))
	assert.Equal(t, models.ScanPathNotFound, scanErr.Reason)
}

func TestScanner_IgnoreFileLayering(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "*.txt\n")
	writeFile(t, root, ".contextignore", "!keep.txt\n")
	writeFile(t, root, "keep.txt", "kept\n")
	writeFile(t, root, "drop.txt", "dropped\n")
	writeFile(t, root, "code.go", "package code\n")

	result, err := NewScanner(ScannerConfig{}).Scan(root)
	require.NoError(t, err)

	// .contextignore is the last layer, so its negation wins over
	// .gitignore's blanket exclusion.
	assert.Equal(t, []string{".contextignore", ".gitignore", "code.go", "keep.txt"}, relPaths(result))
}

func TestScanner_ExtraExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "PROJECT_CONTEXT.md", "# generated\n")
	writeFile(t, root, "README.md", "# readme\n")

	result, err := NewScanner(ScannerConfig{
		ExtraExcludes: []string{"/PROJECT_CONTEXT.md"},
	}).Scan(root)
	require.NoError(t, err)

	assert.Equal(t, []string{"README.md"}, relPaths(result))
}

func TestScanner_SubmoduleSkipped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "vendor_lib/.git", "gitdir: ../.git/modules/vendor_lib\n")
	writeFile(t, root, "vendor_lib/lib.go", "package lib\n")

	result, err := NewScanner(ScannerConfig{}).Scan(root)
	require.NoError(t, err)

	assert.Equal(t, []string{"main.go"}, relPaths(result))
}

func TestScanner_PriorityPaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", "# project\n")
	writeFile(t, root, "main.py", "print('x')\n")
	writeFile(t, root, "lib/helper.py", "def f(): pass\n")

	result, err := NewScanner(ScannerConfig{}).Scan(root)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"README.md", "main.py"}, result.PriorityPaths)
}

func TestScanner_MalformedPatternIsWarning(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".contextignore", "[\n*.log\n")
	writeFile(t, root, "app.log", "log\n")
	writeFile(t, root, "app.go", "package app\n")

	result, err := NewScanner(ScannerConfig{}).Scan(root)
	require.NoError(t, err)

	// The bad pattern is surfaced, the good one still applies.
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "malformed")
	assert.Equal(t, []string{".contextignore", "app.go"}, relPaths(result))
}
