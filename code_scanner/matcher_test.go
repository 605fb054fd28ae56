package code_scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codectx/codectx/code_scanner/models"
)

func compile(t *testing.T, lines []string, source models.RuleSource) *Matcher {
	t.Helper()
	matcher, errs := CompileRules(ParseIgnoreLines(lines, source))
	require.Empty(t, errs)
	return matcher
}

func TestParseIgnoreLines(t *testing.T) {
	rules := ParseIgnoreLines([]string{
		"# comment",
		"",
		"*.log",
		"!important.log",
		"build/",
		"/dist",
		"src/generated",
		"   ",
	}, models.SourceGit)

	require.Len(t, rules, 5)

	assert.Equal(t, "*.log", rules[0].Pattern)
	assert.False(t, rules[0].Negated)
	assert.False(t, rules[0].AnchoredToRoot)

	assert.Equal(t, "important.log", rules[1].Pattern)
	assert.True(t, rules[1].Negated)

	assert.Equal(t, "build", rules[2].Pattern)
	assert.True(t, rules[2].DirectoryOnly)

	assert.Equal(t, "dist", rules[3].Pattern)
	assert.True(t, rules[3].AnchoredToRoot)

	// An inner slash anchors the pattern to the root, as in git.
	assert.Equal(t, "src/generated", rules[4].Pattern)
	assert.True(t, rules[4].AnchoredToRoot)

	for _, rule := range rules {
		assert.Equal(t, models.SourceGit, rule.Source)
	}
}

func TestMatcher_LastMatchWinsAcrossSources(t *testing.T) {
	// BUILTIN excludes all logs, CONTEXTIGNORE re-includes one of them.
	rules := ParseIgnoreLines([]string{"*.log"}, models.SourceBuiltin)
	rules = append(rules, ParseIgnoreLines([]string{"!important.log"}, models.SourceContextIgnore)...)
	matcher, errs := CompileRules(rules)
	require.Empty(t, errs)

	assert.True(t, matcher.IsExcluded("debug.log", false))
	assert.True(t, matcher.IsExcluded("logs/debug.log", false))
	assert.False(t, matcher.IsExcluded("important.log", false))
	assert.False(t, matcher.IsExcluded("logs/important.log", false))

	// The reverse order re-excludes: the later broad rule wins.
	matcher = compile(t, []string{"!important.log", "*.log"}, models.SourceGit)
	assert.True(t, matcher.IsExcluded("important.log", false))
}

func TestMatcher_Anchoring(t *testing.T) {
	matcher := compile(t, []string{"/dist"}, models.SourceGit)

	assert.True(t, matcher.IsExcluded("dist", false))
	assert.False(t, matcher.IsExcluded("src/dist", false))

	// Unanchored patterns match at any depth.
	matcher = compile(t, []string{"dist"}, models.SourceGit)
	assert.True(t, matcher.IsExcluded("dist", false))
	assert.True(t, matcher.IsExcluded("src/dist", false))
}

func TestMatcher_DirectoryOnly(t *testing.T) {
	matcher := compile(t, []string{"build/"}, models.SourceBuiltin)

	assert.True(t, matcher.IsExcluded("build", true))
	assert.True(t, matcher.IsExcluded("build/out.bin", false))
	assert.True(t, matcher.IsExcluded("sub/build", true))

	// A plain file named "build" is not a directory match.
	assert.False(t, matcher.IsExcluded("build", false))
}

func TestMatcher_Globs(t *testing.T) {
	matcher := compile(t, []string{"*.tmp"}, models.SourceGit)
	assert.True(t, matcher.IsExcluded("a.tmp", false))
	assert.True(t, matcher.IsExcluded("deep/nested/a.tmp", false))
	assert.False(t, matcher.IsExcluded("a.tmpx", false))

	// `*` does not cross path separators.
	matcher = compile(t, []string{"/src/*.py"}, models.SourceGit)
	assert.True(t, matcher.IsExcluded("src/a.py", false))
	assert.False(t, matcher.IsExcluded("src/sub/a.py", false))

	// `**` does.
	matcher = compile(t, []string{"src/**/*.py"}, models.SourceGit)
	assert.True(t, matcher.IsExcluded("src/sub/a.py", false))
	assert.True(t, matcher.IsExcluded("src/a/b/c.py", false))

	matcher = compile(t, []string{"file?.txt"}, models.SourceGit)
	assert.True(t, matcher.IsExcluded("file1.txt", false))
	assert.False(t, matcher.IsExcluded("file12.txt", false))
}

func TestMatcher_MalformedPattern(t *testing.T) {
	rules := ParseIgnoreLines([]string{"[", "*.log"}, models.SourceContextIgnore)
	matcher, errs := CompileRules(rules)

	// The malformed rule is reported and skipped; the rest still apply.
	require.Len(t, errs, 1)
	assert.Equal(t, "[", errs[0].Pattern)
	assert.Equal(t, models.SourceContextIgnore, errs[0].Source)

	assert.True(t, matcher.IsExcluded("debug.log", false))
	assert.False(t, matcher.IsExcluded("keep.txt", false))
}

func TestMatcher_EmptyRuleSet(t *testing.T) {
	matcher, errs := CompileRules(nil)
	require.Empty(t, errs)
	assert.False(t, matcher.IsExcluded("anything.go", false))
}
