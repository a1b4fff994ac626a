package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"topicseg/internal/adapter/output"
	"topicseg/internal/adapter/store"
	"topicseg/internal/adapter/transcript"
	"topicseg/internal/domain"
	"topicseg/internal/port"
)

// BatchOptions tunes a directory run.
type BatchOptions struct {
	Workers     int
	Incremental bool   // skip files whose mod time and config hash are unchanged
	WriteJSON   bool   // write <name>.segments.json for each processed file
	OutDir      string // where JSON goes, next to the source when empty
}

// ProgressFunc is called after each file finishes, from a single goroutine.
type ProgressFunc func(done, total int, path string)

// BatchUseCase segments every transcript under a root with a bounded worker
// pool. A failing document is logged and recorded; the others continue.
type BatchUseCase struct {
	segment    *SegmentUseCase
	reader     port.TranscriptReader
	walker     port.FileWalker
	store      port.SegmentStore
	vectors    port.VectorStore
	configHash string
	opts       BatchOptions
	logger     *slog.Logger
}

// NewBatchUseCase creates a batch use case. vectors may be nil to skip
// search indexing.
func NewBatchUseCase(
	segment *SegmentUseCase,
	reader port.TranscriptReader,
	walker port.FileWalker,
	segStore port.SegmentStore,
	vectors port.VectorStore,
	configHash string,
	opts BatchOptions,
	logger *slog.Logger,
) *BatchUseCase {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchUseCase{
		segment:    segment,
		reader:     reader,
		walker:     walker,
		store:      segStore,
		vectors:    vectors,
		configHash: configHash,
		opts:       opts,
		logger:     logger,
	}
}

type fileResult struct {
	path     string
	segments int
	skipped  bool
	err      error
}

// Run processes root and persists a run summary. On cancellation no new files
// are started; files in flight finish, and the partial run is saved and
// returned together with ctx.Err().
func (u *BatchUseCase) Run(ctx context.Context, root string, progress ProgressFunc) (*domain.Run, error) {
	run := &domain.Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Root:      root,
	}

	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	existing, err := u.existingDocs()
	if err != nil {
		return nil, err
	}

	jobs := make(chan port.FileInfo)
	results := make(chan fileResult)

	var wg sync.WaitGroup
	for i := 0; i < u.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range jobs {
				results <- u.processFile(ctx, file, existing[DocID(file.Path)], run.ID)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, file := range files {
			select {
			case <-ctx.Done():
				return
			case jobs <- file:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	done := 0
	for r := range results {
		done++
		switch {
		case r.err != nil:
			run.Failed++
			run.Errors = append(run.Errors, fmt.Sprintf("%s: %v", r.path, r.err))
			u.logger.Error("document failed", "path", r.path, "error", r.err)
		case r.skipped:
			run.Skipped++
		default:
			run.Processed++
			run.Segments += r.segments
		}
		if progress != nil {
			progress(done, len(files), r.path)
		}
	}

	if ctx.Err() == nil {
		u.removeStale(root, existing, files)
	}

	run.Finished = time.Now()
	if err := u.store.PutRun(*run); err != nil {
		u.logger.Warn("failed to save run summary", "run", run.ID, "error", err)
	}

	u.logger.Info("batch finished",
		"run", run.ID,
		"processed", run.Processed,
		"skipped", run.Skipped,
		"failed", run.Failed,
		"segments", run.Segments,
		"elapsed", run.Finished.Sub(run.StartedAt).Round(time.Millisecond),
	)

	return run, ctx.Err()
}

func (u *BatchUseCase) existingDocs() (map[string]domain.Document, error) {
	docs, err := u.store.ListDocuments()
	if err != nil {
		return nil, fmt.Errorf("failed to list existing documents: %w", err)
	}
	m := make(map[string]domain.Document, len(docs))
	for _, d := range docs {
		m[d.ID] = d
	}
	return m, nil
}

func (u *BatchUseCase) processFile(ctx context.Context, file port.FileInfo, prev domain.Document, runID string) fileResult {
	res := fileResult{path: file.Path}

	if ctx.Err() != nil {
		res.err = ctx.Err()
		return res
	}

	if u.opts.Incremental && prev.ID != "" &&
		prev.ModTime.UnixNano() == file.ModTime && prev.ConfigHash == u.configHash {
		u.logger.Debug("unchanged, skipping", "path", file.Path)
		res.skipped = true
		return res
	}

	units, err := u.reader.Read(file.Path)
	if err != nil {
		res.err = err
		return res
	}

	result, err := u.segment.Segment(ctx, units)
	if err != nil {
		res.err = err
		return res
	}

	doc := domain.Document{
		ID:         DocID(file.Path),
		Path:       file.Path,
		ModTime:    time.Unix(0, file.ModTime),
		Format:     transcript.Format(file.Path),
		UnitCount:  len(units),
		ConfigHash: u.configHash,
		RunID:      runID,
	}
	// The document record is committed last: incremental runs trust it, so
	// it must only exist once vectors and JSON output are in place.
	if u.vectors != nil {
		if err := IndexSegmentVectors(u.vectors, doc, result); err != nil {
			res.err = err
			return res
		}
	}

	if u.opts.WriteJSON {
		path := output.SegmentsPath(file.Path, u.opts.OutDir)
		if err := output.WriteJSONFile(path, output.NewDocument(file.Path, result.Segments)); err != nil {
			res.err = err
			return res
		}
	}

	if err := u.store.PutDocument(doc, result.Segments); err != nil {
		if u.vectors != nil {
			if derr := u.vectors.DeleteDocument(doc.ID); derr != nil {
				u.logger.Warn("failed to drop vectors of unsaved document", "path", file.Path, "error", derr)
			}
		}
		res.err = fmt.Errorf("failed to store segments: %w", err)
		return res
	}

	u.logger.Debug("document segmented", "path", file.Path, "units", len(units), "segments", len(result.Segments))
	res.segments = len(result.Segments)
	return res
}

// IndexSegmentVectors replaces the stored segment vectors of doc with the
// mean unit vector of each segment in result.
func IndexSegmentVectors(vectors port.VectorStore, doc domain.Document, result *domain.SegmentationResult) error {
	if err := vectors.DeleteDocument(doc.ID); err != nil {
		return fmt.Errorf("failed to drop old vectors: %w", err)
	}
	if len(result.Segments) == 0 {
		return nil
	}

	means := SegmentVectors(result)
	items := make([]port.VectorItem, len(result.Segments))
	for i, s := range result.Segments {
		items[i] = port.VectorItem{
			ID:     store.VectorID(doc.ID, s.SegmentID),
			Vector: means[i],
			Metadata: map[string]string{
				store.MetaDocID:     doc.ID,
				store.MetaSegmentID: strconv.Itoa(s.SegmentID),
				store.MetaPath:      doc.Path,
			},
		}
	}
	if err := vectors.Upsert(items); err != nil {
		return fmt.Errorf("failed to store vectors: %w", err)
	}
	return nil
}

// removeStale deletes stored documents under root whose file is gone.
func (u *BatchUseCase) removeStale(root string, existing map[string]domain.Document, files []port.FileInfo) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return
	}

	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[DocID(f.Path)] = true
	}

	for id, doc := range existing {
		if present[id] || !within(absRoot, doc.Path) {
			continue
		}
		if err := u.store.DeleteDocument(id); err != nil {
			u.logger.Warn("failed to delete stale document", "path", doc.Path, "error", err)
			continue
		}
		if u.vectors != nil {
			if err := u.vectors.DeleteDocument(id); err != nil {
				u.logger.Warn("failed to delete stale vectors", "path", doc.Path, "error", err)
			}
		}
		u.logger.Info("removed stale document", "path", doc.Path)
	}
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// DocID derives a stable document id from its path.
func DocID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}
