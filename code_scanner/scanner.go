package code_scanner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"

	"github.com/codectx/codectx/code_scanner/models"
)

// DefaultIgnorePatterns is the built-in exclusion list applied before any
// project ignore files: VCS metadata, dependency and build trees, logs,
// and env/secret material.
var DefaultIgnorePatterns = []string{
	".git/",
	".svn/",
	".hg/",
	".idea/",
	".vscode/",
	"node_modules/",
	"__pycache__/",
	".venv/",
	"venv/",
	".tox/",
	"dist/",
	"build/",
	"target/",
	"out/",
	"bin/",
	"obj/",
	".cache/",
	".context-cache/",
	"*.log",
	".env",
	".env.*",
	"*.pem",
	"*.key",
	"*.p12",
	"*.exe",
	"*.dll",
	"*.so",
	"*.dylib",
	"*.o",
	"*.pyc",
	".DS_Store",
}

// priorityPatterns flag files the generator should consider first when
// picking key files for the document.
var priorityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^README`),
	regexp.MustCompile(`(?i)^CLAUDE\.md$`),
	regexp.MustCompile(`(?i)^package\.json$`),
	regexp.MustCompile(`(?i)^Cargo\.toml$`),
	regexp.MustCompile(`(?i)^go\.mod$`),
	regexp.MustCompile(`(?i)^pyproject\.toml$`),
	regexp.MustCompile(`(?i)^setup\.py$`),
	regexp.MustCompile(`(?i)^main\.(py|js|ts|go|rs|scala)$`),
	regexp.MustCompile(`(?i)^app\.(py|js|ts)$`),
	regexp.MustCompile(`(?i)^index\.(py|js|ts)$`),
	regexp.MustCompile(`(?i)^__main__\.py$`),
	regexp.MustCompile(`(?i)^config\.(yaml|yml|json|toml)$`),
	regexp.MustCompile(`(?i)^settings\.(py|yaml|yml|json)$`),
	regexp.MustCompile(`(?i)^Makefile$`),
	regexp.MustCompile(`(?i)^Dockerfile$`),
}

// ScannerConfig carries everything the scanner needs explicitly, so the
// core stays testable against an injected root with no ambient state.
type ScannerConfig struct {
	GitIgnoreFile     string   // name of the git ignore file, default ".gitignore"
	ContextIgnoreFile string   // name of the project override file, default ".contextignore"
	BuiltinPatterns   []string // defaults to DefaultIgnorePatterns when nil
	ExtraExcludes     []string // appended to the builtin layer (e.g. the output document)
	HashWorkers       int      // concurrent content hashers, defaults to GOMAXPROCS
}

// Scanner walks a project tree and yields the included file set with
// content hashes, applying layered ignore sources in priority order.
type Scanner struct {
	cfg ScannerConfig
}

// NewScanner creates a Scanner from an explicit configuration.
func NewScanner(cfg ScannerConfig) *Scanner {
	if cfg.GitIgnoreFile == "" {
		cfg.GitIgnoreFile = ".gitignore"
	}
	if cfg.ContextIgnoreFile == "" {
		cfg.ContextIgnoreFile = ".contextignore"
	}
	if cfg.BuiltinPatterns == nil {
		cfg.BuiltinPatterns = DefaultIgnorePatterns
	}
	if cfg.HashWorkers <= 0 {
		cfg.HashWorkers = runtime.GOMAXPROCS(0)
	}
	return &Scanner{cfg: cfg}
}

// Scan walks root depth-first in lexicographic order and returns the
// ordered FileRecord sequence. Two scans over an unchanged tree produce
// identical sequences. Per-path failures are collected in the result and
// never abort the walk.
func (s *Scanner) Scan(root string) (*models.ScanResult, error) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}
	info, err := os.Stat(rootAbs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &models.ScanError{Reason: models.ScanPathNotFound, Path: root, Err: err}
		}
		return nil, fmt.Errorf("failed to stat root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", root)
	}

	result := &models.ScanResult{}
	matcher := s.buildMatcher(rootAbs, result)

	type candidate struct {
		rel  string
		abs  string
		size int64
	}
	var candidates []candidate

	walkErr := filepath.WalkDir(rootAbs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, walkError(path, err))
			return nil
		}
		if path == rootAbs {
			return nil
		}

		rel, relErr := filepath.Rel(rootAbs, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			// Excluded directories short-circuit the walk: descendants
			// are never individually tested.
			if matcher.IsExcluded(rel, true) || isSubmoduleDir(path) {
				return filepath.SkipDir
			}
			return nil
		}

		// Skip symlinks, device files and other non-regular entries.
		if !d.Type().IsRegular() {
			return nil
		}
		if matcher.IsExcluded(rel, false) {
			return nil
		}

		fi, infoErr := d.Info()
		if infoErr != nil {
			result.Errors = append(result.Errors, walkError(path, infoErr))
			return nil
		}
		candidates = append(candidates, candidate{rel: rel, abs: path, size: fi.Size()})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", rootAbs, walkErr)
	}

	// Hash candidates concurrently; each hash depends only on that
	// file's bytes, so the output order stays the walk order.
	records := make([]*models.FileRecord, len(candidates))
	hashErrs := make([]*models.ScanError, len(candidates))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < s.cfg.HashWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				c := candidates[i]
				hash, hashErr := hashFile(c.abs)
				if hashErr != nil {
					hashErrs[i] = walkError(c.abs, hashErr)
					continue
				}
				records[i] = &models.FileRecord{
					RelativePath: c.rel,
					AbsolutePath: c.abs,
					SizeBytes:    c.size,
					ContentHash:  hash,
				}
			}
		}()
	}
	for i := range candidates {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i, rec := range records {
		if rec == nil {
			result.Errors = append(result.Errors, hashErrs[i])
			continue
		}
		result.Files = append(result.Files, *rec)
		if isPriorityFile(filepath.Base(rec.RelativePath)) {
			result.PriorityPaths = append(result.PriorityPaths, rec.RelativePath)
		}
	}

	return result, nil
}

// buildMatcher layers the ignore sources: builtin defaults, then
// .gitignore, then .contextignore. Malformed patterns become warnings.
func (s *Scanner) buildMatcher(rootAbs string, result *models.ScanResult) *Matcher {
	rules := ParseIgnoreLines(append(append([]string{}, s.cfg.BuiltinPatterns...), s.cfg.ExtraExcludes...), models.SourceBuiltin)
	rules = append(rules, ParseIgnoreLines(readIgnoreFile(filepath.Join(rootAbs, s.cfg.GitIgnoreFile)), models.SourceGit)...)
	rules = append(rules, ParseIgnoreLines(readIgnoreFile(filepath.Join(rootAbs, s.cfg.ContextIgnoreFile)), models.SourceContextIgnore)...)

	matcher, patternErrs := CompileRules(rules)
	for _, perr := range patternErrs {
		result.Warnings = append(result.Warnings, perr.Error())
	}
	return matcher
}

func walkError(path string, err error) *models.ScanError {
	reason := models.ScanPermissionDenied
	if os.IsNotExist(err) {
		reason = models.ScanPathNotFound
	}
	return &models.ScanError{Reason: reason, Path: path, Err: err}
}

// readIgnoreFile returns the raw lines of an ignore file, or nil when the
// file does not exist.
func readIgnoreFile(path string) []string {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return strings.Split(string(content), "\n")
}

// isSubmoduleDir reports whether dir is a git submodule root, marked by a
// .git file holding a gitdir pointer.
func isSubmoduleDir(dir string) bool {
	gitPath := filepath.Join(dir, ".git")
	fi, err := os.Lstat(gitPath)
	if err != nil || fi.IsDir() {
		return false
	}
	content, err := os.ReadFile(gitPath)
	if err != nil {
		return false
	}
	return strings.HasPrefix(strings.TrimSpace(string(content)), "gitdir:")
}

func isPriorityFile(name string) bool {
	for _, re := range priorityPatterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// hashFile computes the SHA-256 digest of a file's bytes as lowercase hex.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
