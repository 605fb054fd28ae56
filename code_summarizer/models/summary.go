package models

// File roles used for document layout and key-file scoring.
const (
	RoleEntrypoint = "entrypoint"
	RoleLibrary    = "library"
	RoleTest       = "test"
	RoleConfig     = "config"
	RoleDocs       = "docs"
	RoleOther      = "other"
)

// Exclusion reasons reported when a file is summarized but its content
// was withheld from the backend.
const (
	ExclusionBinary       = "binary_file"
	ExclusionTooLarge     = "file_too_large"
	ExclusionPrivateKey   = "private_key_block"
	ExclusionReadError    = "read_error"
	ExclusionFileNotFound = "file_not_found"
)

// Entrypoint records evidence that a file is a program entry point.
type Entrypoint struct {
	Path       string  `json:"path"`
	Line       int     `json:"line"`
	Evidence   string  `json:"evidence"`
	Confidence float64 `json:"confidence"`
}

// Summary is the per-file output of a summarizer backend.
type Summary struct {
	Summary         string       `json:"summary"`
	Role            string       `json:"role"`
	Language        string       `json:"language,omitempty"`
	PublicSymbols   []string     `json:"public_symbols,omitempty"`
	ImportDeps      []string     `json:"import_deps,omitempty"`
	Provides        []string     `json:"provides,omitempty"`
	Consumes        []string     `json:"consumes,omitempty"`
	Entrypoints     []Entrypoint `json:"entrypoints,omitempty"`
	Excluded        bool         `json:"excluded,omitempty"`
	ExclusionReason string       `json:"exclusion_reason,omitempty"`
	RedactionCount  int          `json:"redaction_count,omitempty"`
	IsBinary        bool         `json:"is_binary,omitempty"`
	DecodeLossy     bool         `json:"decode_lossy,omitempty"`
}
