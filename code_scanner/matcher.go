package code_scanner

import (
	"regexp"
	"strings"

	"github.com/codectx/codectx/code_scanner/models"
)

// compiledRule pairs a parsed rule with its path regex.
type compiledRule struct {
	rule models.IgnoreRule
	re   *regexp.Regexp
}

// Matcher evaluates layered ignore rules against relative paths.
// Rules are checked in order and the last matching rule wins, which
// reproduces conventional ignore-file precedence: later, more specific
// rules override earlier, broader ones.
//
// Deliberate deviation from full re-inclusion semantics: a directory
// matched as excluded is never descended into by the scanner, so a
// negation rule can not re-include a path beneath an excluded directory.
// This matches git's own documented behavior.
type Matcher struct {
	rules []compiledRule
}

// ParseIgnoreLines parses gitignore-style lines into ordered rules.
// Comment lines and blank lines are dropped; trailing whitespace is
// stripped. A pattern containing a non-trailing slash is anchored to the
// root, as in git.
func ParseIgnoreLines(lines []string, source models.RuleSource) []models.IgnoreRule {
	var rules []models.IgnoreRule
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rule := models.IgnoreRule{Source: source}
		if strings.HasPrefix(line, "!") {
			rule.Negated = true
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			rule.DirectoryOnly = true
			line = strings.TrimSuffix(line, "/")
		}
		if strings.HasPrefix(line, "/") {
			rule.AnchoredToRoot = true
			line = line[1:]
		} else if strings.Contains(line, "/") {
			rule.AnchoredToRoot = true
		}
		if line == "" {
			continue
		}
		rule.Pattern = line
		rules = append(rules, rule)
	}
	return rules
}

// CompileRules compiles rules into a Matcher. Malformed patterns are
// skipped and reported; compilation never fails outright.
func CompileRules(rules []models.IgnoreRule) (*Matcher, []*models.PatternError) {
	m := &Matcher{}
	var errs []*models.PatternError
	for _, rule := range rules {
		re, err := regexp.Compile("^" + patternToRegex(rule.Pattern) + "$")
		if err != nil {
			errs = append(errs, &models.PatternError{Pattern: rule.Pattern, Source: rule.Source, Err: err})
			continue
		}
		m.rules = append(m.rules, compiledRule{rule: rule, re: re})
	}
	return m, errs
}

// IsExcluded reports whether relPath is excluded by the rule set.
// Paths must be slash-separated and relative to the scan root.
// Matching is case-sensitive.
func (m *Matcher) IsExcluded(relPath string, isDir bool) bool {
	relPath = strings.Trim(strings.ReplaceAll(relPath, "\\", "/"), "/")
	if relPath == "" || relPath == "." {
		return false
	}

	excluded := false
	for _, cr := range m.rules {
		if cr.matches(relPath, isDir) {
			excluded = !cr.rule.Negated
		}
	}
	return excluded
}

func (cr *compiledRule) matches(relPath string, isDir bool) bool {
	if cr.rule.DirectoryOnly {
		return cr.matchesDir(relPath, isDir)
	}
	return cr.matchesPath(relPath)
}

// matchesDir applies a trailing-slash rule: it matches the directory
// itself and everything beneath it, but never a plain file of the same
// name.
func (cr *compiledRule) matchesDir(relPath string, isDir bool) bool {
	segs := strings.Split(relPath, "/")

	if isDir && cr.re.MatchString(relPath) {
		return true
	}
	// An ancestor directory of relPath matches.
	for i := 1; i < len(segs); i++ {
		if cr.re.MatchString(strings.Join(segs[:i], "/")) {
			return true
		}
	}
	if !cr.rule.AnchoredToRoot {
		for i, seg := range segs {
			if i == len(segs)-1 && !isDir {
				break
			}
			if cr.re.MatchString(seg) {
				return true
			}
		}
	}
	return false
}

func (cr *compiledRule) matchesPath(relPath string) bool {
	if cr.re.MatchString(relPath) {
		return true
	}
	if cr.rule.AnchoredToRoot {
		return false
	}
	// Unanchored patterns can match at any depth.
	segs := strings.Split(relPath, "/")
	for i := 1; i < len(segs); i++ {
		if cr.re.MatchString(strings.Join(segs[i:], "/")) {
			return true
		}
	}
	return false
}

// patternToRegex translates a gitignore glob into a regular expression:
// `*` matches within a segment, `**` across segments, `?` a single
// non-separator character. Character classes pass through.
func patternToRegex(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				if i+2 < len(pattern) && pattern[i+2] == '/' {
					b.WriteString("(?:.*/)?")
					i += 2
				} else {
					b.WriteString(".*")
					i++
				}
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		case '[', ']':
			b.WriteByte(c)
		case '\\':
			if i+1 < len(pattern) {
				b.WriteString(regexp.QuoteMeta(string(pattern[i+1])))
				i++
			} else {
				b.WriteString(`\\`)
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return b.String()
}
