// Package pipeline defines the core types shared across the processing stages
// and implements the per-document result processor and safety gate.
package pipeline

import "time"

// Output formats selectable on the command line. The extension picked by the
// output writer follows the same precedence order.
const (
	FormatText   = "txt"
	FormatXML    = "xml"
	FormatXMLTEI = "xmltei"
	FormatCSV    = "csv"
	FormatJSON   = "json"
)

// Options is the bundle handed to the extraction collaborator for every document.
type Options struct {
	Fast           bool   `json:"fast"`
	Comments       bool   `json:"comments"`
	Tables         bool   `json:"tables"`
	Formatting     bool   `json:"formatting"`
	WithMetadata   bool   `json:"with_metadata"`
	OutputFormat   string `json:"output_format"`
	Validate       bool   `json:"validate"`
	TargetLanguage string `json:"target_language"`
	Deduplicate    bool   `json:"deduplicate"`
}

// Config gathers the per-run knobs the result processor needs.
type Config struct {
	// OutputDir is where results are written; empty means stdout.
	OutputDir string
	// BackupDir enables raw document backups when non-empty.
	BackupDir string
	// InputDir anchors relative paths in directory-mirroring mode.
	InputDir string
	// KeepDirs mirrors the input directory structure under OutputDir.
	KeepDirs bool
	// HashAsName derives output file names from a content fingerprint.
	HashAsName bool
	// MinSize and MaxSize bound accepted document sizes in bytes.
	MinSize int
	MaxSize int
	// Timeout caps a single extraction call; zero disables the deadline.
	Timeout time.Duration
	Options Options
}
