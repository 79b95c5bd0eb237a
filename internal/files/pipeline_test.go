package files

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/EiffelFly/trafilatura/internal/output"
	"github.com/EiffelFly/trafilatura/internal/pipeline"
)

type passthroughExtractor struct{}

func (passthroughExtractor) Extract(_ context.Context, document []byte, _ string, _ pipeline.Options) (string, error) {
	return string(document), nil
}

type panickyExtractor struct{}

func (panickyExtractor) Extract(_ context.Context, _ []byte, _ string, _ pipeline.Options) (string, error) {
	panic("malformed document")
}

func makeInputTree(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < n; i++ {
		sub := filepath.Join(dir, fmt.Sprintf("sub%d", i%5))
		require.NoError(t, os.MkdirAll(sub, 0o750))
		path := filepath.Join(sub, fmt.Sprintf("doc%04d.html", i))
		require.NoError(t, os.WriteFile(path, []byte("<html>document content</html>"), 0o600))
	}
	return dir
}

func newFilePipeline(t *testing.T, outDir string, extractor pipeline.Extractor, workers, shardSize int) *Pipeline {
	t.Helper()
	writer := output.NewWriter(output.Config{
		OutputDir: outDir,
		ShardSize: shardSize,
	}, nil, rand.New(rand.NewSource(1)), nil, zap.NewNop())
	processor := pipeline.NewProcessor(pipeline.Config{
		OutputDir: outDir,
		MinSize:   1,
	}, extractor, writer, zap.NewNop())
	return NewPipeline(workers, shardSize, processor, zap.NewNop())
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)
	n := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			n++
		}
	}
	return n
}

func TestRunProcessesEveryFile(t *testing.T) {
	inputDir := makeInputTree(t, 42)
	outDir := t.TempDir()

	p := newFilePipeline(t, outDir, passthroughExtractor{}, 4, 100)
	require.NoError(t, p.Run(context.Background(), inputDir))

	// 42 files stay under the shard threshold: flat output, no shard dirs.
	require.Equal(t, 42, countFiles(t, outDir))
}

func TestRunShardsOverflowingBatches(t *testing.T) {
	inputDir := makeInputTree(t, 250)
	outDir := t.TempDir()

	p := newFilePipeline(t, outDir, passthroughExtractor{}, 4, 200)
	require.NoError(t, p.Run(context.Background(), inputDir))

	// Two dispatch rounds: 200 files into shard 1, 50 into shard 2.
	require.Equal(t, 200, countFiles(t, filepath.Join(outDir, "1")))
	require.Equal(t, 50, countFiles(t, filepath.Join(outDir, "2")))
	require.Zero(t, countFiles(t, outDir), "no files outside shard directories")
}

func TestRunSurvivesPanickingTask(t *testing.T) {
	inputDir := makeInputTree(t, 8)
	outDir := t.TempDir()

	p := newFilePipeline(t, outDir, panickyExtractor{}, 2, 100)
	require.NoError(t, p.Run(context.Background(), inputDir), "a panicking file must not abort the batch")
	require.Zero(t, countFiles(t, outDir))
}

func TestRunEmptyTree(t *testing.T) {
	p := newFilePipeline(t, t.TempDir(), passthroughExtractor{}, 2, 100)
	require.NoError(t, p.Run(context.Background(), t.TempDir()))
}

func TestRunMissingDirFails(t *testing.T) {
	p := newFilePipeline(t, t.TempDir(), passthroughExtractor{}, 2, 100)
	require.Error(t, p.Run(context.Background(), filepath.Join(t.TempDir(), "missing")))
}
