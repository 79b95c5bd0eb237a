package cmd

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	goqueryextract "github.com/EiffelFly/trafilatura/internal/extract/goquery"
	"github.com/EiffelFly/trafilatura/internal/files"
	"github.com/EiffelFly/trafilatura/internal/hash/sha256"
	"github.com/EiffelFly/trafilatura/internal/output"
	"github.com/EiffelFly/trafilatura/internal/pipeline"
)

var (
	flagInputDir string
	flagKeepDirs bool
)

func newFilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Extract every file under a directory tree",
		Long: `Walks an input directory tree and runs every file through the safety
gate, the extractor, and the output writer, dispatching bounded batches to a
worker pool so memory use and files per output directory stay bounded.`,
		RunE: runFilesCommand,
	}
	cmd.Flags().StringVar(&flagInputDir, "input-dir", "", "directory tree to process")
	cmd.Flags().BoolVar(&flagKeepDirs, "keep-dirs", false, "mirror the input directory structure under the output root")
	_ = cmd.MarkFlagRequired("input-dir")
	return cmd
}

func runFilesCommand(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	if info, err := os.Stat(flagInputDir); err != nil || !info.IsDir() {
		return fmt.Errorf("input dir %s is not a readable directory", flagInputDir)
	}

	writer := output.NewWriter(output.Config{
		OutputDir:  flagOutputDir,
		InputDir:   flagInputDir,
		KeepDirs:   flagKeepDirs,
		HashAsName: flagHashAsName,
		Format:     flagOutputFormat,
		ShardSize:  rt.cfg.Output.ShardSize,
		NameLength: rt.cfg.Output.FilenameLength,
	}, sha256.New(), rand.New(rand.NewSource(nameSeed)), os.Stdout, rt.logger)

	cfg := processorConfig(rt, flagInputDir)
	cfg.KeepDirs = flagKeepDirs
	cfg.BackupDir = ""
	processor := pipeline.NewProcessor(cfg, goqueryextract.New(), writer, rt.logger)

	workers := rt.cfg.Files.Workers
	if flagParallel > 0 {
		workers = flagParallel
	}
	p := files.NewPipeline(workers, rt.cfg.Output.ShardSize, processor, rt.logger)
	if err := p.Run(cmd.Context(), flagInputDir); err != nil {
		return fmt.Errorf("process files: %w", err)
	}
	return nil
}
