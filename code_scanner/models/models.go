package models

import "fmt"

// RuleSource identifies which layer an ignore rule came from. Layers are
// evaluated in order: BUILTIN, then .gitignore, then .contextignore.
type RuleSource int

const (
	SourceBuiltin RuleSource = iota
	SourceGit
	SourceContextIgnore
)

func (s RuleSource) String() string {
	switch s {
	case SourceBuiltin:
		return "builtin"
	case SourceGit:
		return "gitignore"
	case SourceContextIgnore:
		return "contextignore"
	default:
		return "unknown"
	}
}

// IgnoreRule is a single parsed ignore pattern. Immutable once parsed.
type IgnoreRule struct {
	Pattern        string
	Source         RuleSource
	Negated        bool
	AnchoredToRoot bool
	DirectoryOnly  bool
}

// FileRecord describes one file that survived the ignore pipeline.
// Records are regenerated on every scan pass and never persisted.
type FileRecord struct {
	RelativePath string
	AbsolutePath string
	SizeBytes    int64
	ContentHash  string
}

// ScanResult is the ordered output of a scan pass.
type ScanResult struct {
	Files         []FileRecord
	PriorityPaths []string
	Errors        []*ScanError
	Warnings      []string
}

// ScanError reason codes.
const (
	ScanPermissionDenied = "PERMISSION_DENIED"
	ScanPathNotFound     = "PATH_NOT_FOUND"
)

// ScanError is a per-path failure collected during a walk. The walk
// continues past the offending path; partial results remain valid.
type ScanError struct {
	Reason string
	Path   string
	Err    error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %s", e.Path, e.Reason)
}

func (e *ScanError) Unwrap() error { return e.Err }

// PatternError reports a single malformed ignore pattern. The rule is
// skipped with a warning; the rest of the pipeline continues.
type PatternError struct {
	Pattern string
	Source  RuleSource
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("malformed %s pattern %q: %v", e.Source, e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }
