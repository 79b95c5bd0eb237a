package cmd

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/EiffelFly/trafilatura/internal/clock/system"
	"github.com/EiffelFly/trafilatura/internal/executor"
	goqueryextract "github.com/EiffelFly/trafilatura/internal/extract/goquery"
	collyfetcher "github.com/EiffelFly/trafilatura/internal/fetcher/colly"
	"github.com/EiffelFly/trafilatura/internal/hash/sha256"
	"github.com/EiffelFly/trafilatura/internal/input"
	"github.com/EiffelFly/trafilatura/internal/output"
	"github.com/EiffelFly/trafilatura/internal/pipeline"
	"github.com/EiffelFly/trafilatura/internal/scheduler"
	"github.com/EiffelFly/trafilatura/internal/urlutil"
)

// nameSeed makes generated file names reproducible across runs.
const nameSeed = 345

// sequentialDomainCutoff keeps small domain pools on the sequential path.
const sequentialDomainCutoff = 5

var (
	flagInputFile string
	flagBlacklist string
	flagBackupDir string
	flagListOnly  bool
	flagArchived  bool
)

func newURLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "urls",
		Short: "Download and extract a list of URLs",
		Long: `Reads a URL list, groups it into per-domain queues, and fetches every
URL while respecting a politeness interval per domain. Fetched documents run
through the safety gate, the extractor, and the output writer. Failed URLs
can optionally be retried once through the Internet Archive.`,
		RunE: runURLsCommand,
	}
	cmd.Flags().StringVarP(&flagInputFile, "input-file", "i", "", "file with one URL per line")
	cmd.Flags().StringVar(&flagBlacklist, "blacklist", "", "file with URLs to exclude")
	cmd.Flags().StringVar(&flagBackupDir, "backup-dir", "", "directory for verbatim copies of fetched documents")
	cmd.Flags().BoolVar(&flagListOnly, "list", false, "print the cleaned URL list without fetching")
	cmd.Flags().BoolVar(&flagArchived, "archived", false, "retry failed URLs once through the Internet Archive")
	_ = cmd.MarkFlagRequired("input-file")
	return cmd
}

func runURLsCommand(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()
	ctx := cmd.Context()
	logger := rt.logger

	urls, err := loadInputURLs(logger)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(nameSeed))
	writer := output.NewWriter(output.Config{
		OutputDir:  flagOutputDir,
		BackupDir:  flagBackupDir,
		HashAsName: flagHashAsName,
		Format:     flagOutputFormat,
		ShardSize:  rt.cfg.Output.ShardSize,
		NameLength: rt.cfg.Output.FilenameLength,
	}, sha256.New(), rng, os.Stdout, logger)

	if flagListOnly {
		for _, url := range urls {
			writer.WriteResult(url, "", nil, "")
		}
		return nil
	}
	if len(urls) == 0 {
		return nil
	}

	// Sharding only pays off once the output would overflow one directory.
	var counter *output.Counter
	if len(urls) > rt.cfg.Output.ShardSize {
		counter = output.NewCounter(0)
	}

	sched := scheduler.New(rt.cfg.Sleep(), rand.New(rand.NewSource(time.Now().UnixNano())), system.New(), logger)
	sched.Partition(urls, urlutil.Domain)

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: rt.cfg.Download.UserAgent,
		Timeout:   rt.cfg.FetchTimeout(),
		MaxRPS:    rt.cfg.Download.MaxRPS,
	})
	processor := pipeline.NewProcessor(processorConfig(rt, ""), goqueryextract.New(), writer, logger)
	seq := executor.NewSequential(fetcher, processor, logger)

	threads := rt.cfg.Download.Threads
	if flagParallel > 0 {
		threads = flagParallel
	}

	var errs []string
	if sched.Domains() <= sequentialDomainCutoff {
		errs = seq.Run(ctx, sched, counter)
	} else {
		errs = executor.NewConcurrent(threads, fetcher, processor, logger).Run(ctx, sched, counter)
	}
	logger.Info("download pass finished",
		zap.Int("urls", len(urls)),
		zap.Int("failed", len(errs)),
	)

	if flagArchived && len(errs) > 0 {
		newSched := func() *scheduler.Scheduler {
			return scheduler.New(rt.cfg.Sleep(), rand.New(rand.NewSource(time.Now().UnixNano())), system.New(), logger)
		}
		executor.RetryArchived(ctx, errs, seq, newSched, counter, logger)
	}
	return nil
}

// loadInputURLs reads and cleans the URL list. Unreadable or undecodable
// input is fatal; per-line problems are logged and skipped.
func loadInputURLs(logger *zap.Logger) ([]string, error) {
	f, err := os.Open(flagInputFile)
	if err != nil {
		return nil, fmt.Errorf("open url list: %w", err)
	}
	defer f.Close()
	urls, err := input.LoadURLs(f, logger)
	if err != nil {
		return nil, fmt.Errorf("load url list: %w", err)
	}

	blacklist := map[string]struct{}{}
	if flagBlacklist != "" {
		bf, err := os.Open(flagBlacklist)
		if err != nil {
			return nil, fmt.Errorf("open blacklist: %w", err)
		}
		defer bf.Close()
		if blacklist, err = input.LoadBlacklist(bf); err != nil {
			return nil, fmt.Errorf("load blacklist: %w", err)
		}
	}
	return input.FilterAndDedupe(urls, blacklist, urlutil.Validate, logger), nil
}

// processorConfig assembles the per-document configuration shared by both
// pipelines.
func processorConfig(rt *runtime, inputDir string) pipeline.Config {
	cfg := pipeline.Config{
		OutputDir:  flagOutputDir,
		BackupDir:  flagBackupDir,
		InputDir:   inputDir,
		HashAsName: flagHashAsName,
		MinSize:    rt.cfg.Document.MinSize,
		MaxSize:    rt.cfg.Document.MaxSize,
		Options: pipeline.Options{
			Fast:           flagFast,
			Comments:       !flagNoComments,
			Tables:         !flagNoTables,
			Formatting:     flagFormatting,
			WithMetadata:   flagWithMetadata,
			OutputFormat:   flagOutputFormat,
			Validate:       flagValidate,
			TargetLanguage: flagTargetLang,
			Deduplicate:    flagDeduplicate,
		},
	}
	if flagTimeout {
		cfg.Timeout = rt.cfg.ProcessingTimeout()
	}
	return cfg
}
