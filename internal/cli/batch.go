package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"topicseg/internal/adapter/fs"
	"topicseg/internal/adapter/store"
	"topicseg/internal/usecase"
)

var (
	batchWorkers       int
	batchNoIncremental bool
	batchJSON          bool
	batchOutDir        string
	batchNoEnrich      bool
	batchQuiet         bool
)

var batchCmd = &cobra.Command{
	Use:   "batch [dir]",
	Short: "Segment every transcript under a directory",
	Long: `Segment all matching transcripts under a directory with a worker pool.
Segments are stored in .topicseg/segments.db so they can be searched and
shown later. Unchanged files are skipped unless --no-incremental is set.

A file that fails to parse or embed is reported and skipped; the rest of the
run continues. Ctrl-C stops starting new files and saves the partial run.

Examples:
  topicseg batch .                     # Segment the current directory
  topicseg batch ./podcasts --json     # Also write <name>.segments.json files`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 0, "number of parallel workers (default from config)")
	batchCmd.Flags().BoolVar(&batchNoIncremental, "no-incremental", false, "reprocess unchanged files")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "write a .segments.json file per transcript")
	batchCmd.Flags().StringVar(&batchOutDir, "out-dir", "", "directory for JSON output (default next to each source)")
	batchCmd.Flags().BoolVar(&batchNoEnrich, "no-enrich", false, "skip summaries, keywords and sentiment")
	batchCmd.Flags().BoolVarP(&batchQuiet, "quiet", "q", false, "hide the progress bar")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	cfg := GetConfig()

	st, err := openStores(cfg, path, true)
	if err != nil {
		return err
	}
	defer st.Close()

	segUC, err := newSegmentUseCase(cfg, newEmbedder(cfg), !batchNoEnrich)
	if err != nil {
		return err
	}

	opts := usecase.BatchOptions{
		Workers:     cfg.Batch.Workers,
		Incremental: cfg.Batch.Incremental && !batchNoIncremental,
		WriteJSON:   batchJSON,
		OutDir:      batchOutDir,
	}
	if batchWorkers > 0 {
		opts.Workers = batchWorkers
	}

	batchUC := usecase.NewBatchUseCase(
		segUC,
		newReader(cfg),
		fs.NewWalker(cfg.Batch.Includes, cfg.Batch.Excludes),
		st.segments,
		st.vectors,
		store.ComputeConfigHash(cfg),
		opts,
		logger,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Scanning %s...\n", path)

	var progress usecase.ProgressFunc
	if !batchQuiet {
		progress = newProgress("Segmenting")
	}

	run, err := batchUC.Run(ctx, path, progress)
	if run == nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	fmt.Printf("\nBatch complete:\n")
	fmt.Printf("  Run:        %s\n", run.ID)
	fmt.Printf("  Processed:  %d\n", run.Processed)
	fmt.Printf("  Skipped:    %d (unchanged)\n", run.Skipped)
	fmt.Printf("  Failed:     %d\n", run.Failed)
	fmt.Printf("  Segments:   %d\n", run.Segments)
	fmt.Printf("  Elapsed:    %s\n", formatDuration(run.Finished.Sub(run.StartedAt)))

	if len(run.Errors) > 0 {
		fmt.Printf("\nErrors:\n")
		for _, e := range run.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	fmt.Printf("\nSegments stored at: %s\n", cfg.StorePath(path))

	if errors.Is(err, context.Canceled) {
		fmt.Println("Run interrupted; remaining files were not processed.")
		return nil
	}
	return err
}

// newProgress returns a progress callback that lazily creates a bar once the
// total is known and shows an ETA.
func newProgress(label string) usecase.ProgressFunc {
	var (
		bar       *progressbar.ProgressBar
		mu        sync.Mutex
		startTime time.Time
	)

	return func(done, total int, _ string) {
		mu.Lock()
		defer mu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]"+label+"[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		_ = bar.Set(done)

		elapsed := time.Since(startTime)
		if done > 0 && elapsed > 0 {
			rate := float64(done) / elapsed.Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-done)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]%s[reset] ETA: %s", label, formatDuration(eta)))
			}
		}
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
