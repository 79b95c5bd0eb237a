// Package output assigns destination paths and writes results and backups.
//
// File names come from one of three sources: a truncated content fingerprint,
// the mirrored input path, or a freshly generated random slug placed in a
// numbered shard directory. Directory creation is idempotent and write
// failures are reported without failing the surrounding batch.
package output

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const (
	defaultShardSize  = 1000
	defaultNameLength = 8

	nameAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// fingerprintNameLen bounds hash-derived file names.
	fingerprintNameLen = 27
)

// Fingerprinter computes a stable digest of result content.
type Fingerprinter interface {
	Fingerprint(data []byte) string
}

// Config captures the path-assignment knobs for one run.
type Config struct {
	// OutputDir is the output root; empty routes results to stdout.
	OutputDir string
	// BackupDir is the root for raw document backups.
	BackupDir string
	// InputDir anchors relative paths when KeepDirs is set.
	InputDir string
	// KeepDirs mirrors the input tree under OutputDir instead of sharding.
	KeepDirs bool
	// HashAsName derives file names from the content fingerprint.
	HashAsName bool
	// Format selects the file extension (xml/xmltei > csv > json > txt).
	Format string
	// ShardSize bounds the number of files per shard directory.
	ShardSize int
	// NameLength is the length of generated random file names.
	NameLength int
}

// Writer assigns destination paths and performs the writes.
type Writer struct {
	cfg    Config
	fp     Fingerprinter
	stdout io.Writer
	logger *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewWriter builds a Writer. The random source is injectable so tests can
// fix generated names; it is guarded internally, so concurrent writers may
// share one Writer.
func NewWriter(cfg Config, fp Fingerprinter, rng *rand.Rand, stdout io.Writer, logger *zap.Logger) *Writer {
	if cfg.ShardSize <= 0 {
		cfg.ShardSize = defaultShardSize
	}
	if cfg.NameLength <= 0 {
		cfg.NameLength = defaultNameLength
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	return &Writer{
		cfg:    cfg,
		fp:     fp,
		stdout: stdout,
		logger: logger,
		rng:    rng,
	}
}

// Extension maps an output format to a file extension, in selection order
// XML/TEI-XML, CSV, JSON, plain text.
func Extension(format string) string {
	switch format {
	case "xml", "xmltei":
		return ".xml"
	case "csv":
		return ".csv"
	case "json":
		return ".json"
	default:
		return ".txt"
	}
}

// ShardDir returns the destination directory for the given counter state.
func (w *Writer) ShardDir(base string, counter *Counter) string {
	if counter == nil {
		return base
	}
	return filepath.Join(base, strconv.Itoa(counter.Value()/w.cfg.ShardSize+1))
}

// WriteResult routes a non-empty result to stdout or to its assigned path.
// The slug, when non-empty, pins the file name (it comes from an earlier
// backup write so both copies share a name).
func (w *Writer) WriteResult(result, origPath string, counter *Counter, slug string) {
	if result == "" {
		return
	}
	if w.cfg.OutputDir == "" {
		fmt.Fprintln(w.stdout, result)
		return
	}

	ext := Extension(w.cfg.Format)
	if w.cfg.HashAsName && w.fp != nil {
		slug = fingerprintName(w.fp.Fingerprint([]byte(result)))
	}

	if w.cfg.KeepDirs {
		w.writeMirrored(result, origPath, ext)
		return
	}

	dest := w.ShardDir(w.cfg.OutputDir, counter)
	if !w.ensureDir(dest) {
		return
	}
	if slug != "" {
		w.writeFile(filepath.Join(dest, slug+ext), result)
		return
	}
	f, _, err := w.createExclusive(dest, ext)
	if err != nil {
		w.logger.Warn("output write skipped", zap.String("dir", dest), zap.Error(err))
		return
	}
	defer f.Close()
	if _, err := f.WriteString(result); err != nil {
		w.logger.Warn("output write failed", zap.String("path", f.Name()), zap.Error(err))
	}
}

// ArchiveRaw writes a verbatim copy of the document under the backup root and
// returns the generated file slug, or "" when the backup could not be written.
func (w *Writer) ArchiveRaw(document []byte, counter *Counter) string {
	dest := w.ShardDir(w.cfg.BackupDir, counter)
	if !w.ensureDir(dest) {
		return ""
	}
	f, slug, err := w.createExclusive(dest, ".html")
	if err != nil {
		w.logger.Warn("backup write skipped", zap.String("dir", dest), zap.Error(err))
		return ""
	}
	defer f.Close()
	if _, err := f.Write(document); err != nil {
		w.logger.Warn("backup write failed", zap.String("path", f.Name()), zap.Error(err))
		return ""
	}
	return slug
}

// writeMirrored reuses the original relative path, swapping the extension.
func (w *Writer) writeMirrored(result, origPath, ext string) {
	rel, err := filepath.Rel(w.cfg.InputDir, origPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(origPath)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	target := filepath.Join(w.cfg.OutputDir, rel+ext)
	if !w.ensureDir(filepath.Dir(target)) {
		return
	}
	w.writeFile(target, result)
}

func (w *Writer) writeFile(path, result string) {
	if err := os.WriteFile(path, []byte(result), 0o600); err != nil {
		w.logger.Warn("output write failed", zap.String("path", path), zap.Error(err))
	}
}

func (w *Writer) ensureDir(dir string) bool {
	if dir == "" {
		return false
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		w.logger.Warn("destination directory cannot be created", zap.String("dir", dir), zap.Error(err))
		return false
	}
	return true
}

// createExclusive generates random names until an unused path is claimed.
// O_EXCL makes the claim atomic, so concurrent writers cannot race on the
// same slug. Collisions are astronomically rare given the alphabet and
// length, so the loop is expected to run once.
func (w *Writer) createExclusive(dir, ext string) (*os.File, string, error) {
	for {
		name := w.randomName()
		f, err := os.OpenFile(filepath.Join(dir, name+ext), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			return f, name, nil
		}
		if !os.IsExist(err) {
			return nil, "", fmt.Errorf("create %s%s: %w", name, ext, err)
		}
	}
}

func (w *Writer) randomName() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	b := make([]byte, w.cfg.NameLength)
	for i := range b {
		b[i] = nameAlphabet[w.rng.Intn(len(nameAlphabet))]
	}
	return string(b)
}

// fingerprintName truncates a digest and rewrites characters disallowed in
// file paths.
func fingerprintName(digest string) string {
	if len(digest) > fingerprintNameLen {
		digest = digest[:fingerprintNameLen]
	}
	return strings.ReplaceAll(digest, "/", "-")
}
