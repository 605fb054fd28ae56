package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codectx/codectx/code_scanner"
	summarizer "github.com/codectx/codectx/code_summarizer"
	"github.com/codectx/codectx/config"
	"github.com/codectx/codectx/context_cache"
	"github.com/codectx/codectx/context_generator"
	"github.com/codectx/codectx/token_management"
)

func testDependencies(t *testing.T, root string) *RootDependencies {
	t.Helper()

	cfg := config.DefaultConfig
	cfg.CacheDir = filepath.Join(root, ".context-cache")

	cache, err := context_cache.NewCache(context_cache.CacheConfig{Dir: cfg.CacheDir})
	require.NoError(t, err)

	tokenManagement := token_management.NewTokenManager()
	return &RootDependencies{
		Config:          &cfg,
		Cwd:             root,
		Scanner:         code_scanner.NewScanner(code_scanner.ScannerConfig{ExtraExcludes: []string{"/" + cfg.OutputFile}}),
		Cache:           cache,
		Summarizer:      summarizer.NewHeuristicSummarizer(),
		TokenManagement: tokenManagement,
		Generator:       context_generator.NewGenerator(tokenManagement),
	}
}

func TestBuildDocument_ScanAndCache(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "build"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "a.py"), []byte("def run(): pass\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("SECRET=1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "build", "out.bin"), []byte("bin\n"), 0644))

	deps := testDependencies(t, root)

	first, err := buildDocument(context.Background(), deps, false)
	require.NoError(t, err)

	// Only src/a.py survives the ignore layers; first run is all misses.
	require.Len(t, first.Files, 1)
	assert.Equal(t, "src/a.py", first.Files[0].Path)
	assert.False(t, first.Files[0].FromCache)
	assert.Equal(t, 0, first.CacheStats.Hits)

	second, err := buildDocument(context.Background(), deps, false)
	require.NoError(t, err)

	// Unchanged tree: identical scan hash, and the one file is a hit.
	require.Len(t, second.Files, 1)
	assert.True(t, second.Files[0].FromCache)
	assert.Equal(t, 1, second.CacheStats.Hits)
	assert.Equal(t, first.ScanHash, second.ScanHash)
	assert.Equal(t, first.Files[0].Summary, second.Files[0].Summary)
}

func TestBuildDocument_NoCacheBypassesLookup(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\n"), 0644))

	deps := testDependencies(t, root)

	_, err := buildDocument(context.Background(), deps, false)
	require.NoError(t, err)

	doc, err := buildDocument(context.Background(), deps, true)
	require.NoError(t, err)

	require.Len(t, doc.Files, 1)
	assert.False(t, doc.Files[0].FromCache)
	assert.Equal(t, 0, doc.CacheStats.Hits)
}

func TestBuildDocument_ContentChangeInvalidates(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package a\n"), 0644))

	deps := testDependencies(t, root)

	first, err := buildDocument(context.Background(), deps, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("package a // changed\n"), 0644))

	second, err := buildDocument(context.Background(), deps, false)
	require.NoError(t, err)

	// New content hash, new key: the old entry cannot be served.
	require.Len(t, second.Files, 1)
	assert.False(t, second.Files[0].FromCache)
	assert.NotEqual(t, first.ScanHash, second.ScanHash)
	assert.Equal(t, 0, second.CacheStats.Hits)
}
