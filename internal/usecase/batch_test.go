package usecase

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"topicseg/internal/adapter/fs"
	"topicseg/internal/adapter/output"
	"topicseg/internal/adapter/store"
	"topicseg/internal/adapter/transcript"
)

type batchEnv struct {
	root    string
	store   *store.BoltStore
	vectors *store.BoltVectorStore
	batch   *BatchUseCase
	search  *SearchUseCase
}

func writeTranscript(t *testing.T, path string, texts ...string) {
	t.Helper()
	type seg struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	}
	segs := make([]seg, len(texts))
	for i, text := range texts {
		segs[i] = seg{Start: float64(i), End: float64(i) + 1, Text: text}
	}
	data, err := json.Marshal(map[string]any{"segments": segs})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func newBatchEnv(t *testing.T, opts BatchOptions) *batchEnv {
	t.Helper()
	root := t.TempDir()

	st, err := store.NewBoltStore(filepath.Join(t.TempDir(), "segments.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	vs, err := store.NewBoltVectorStore(st.DB(), 0)
	if err != nil {
		t.Fatal(err)
	}

	emb := &clusterEmbedder{}
	seg := newTestSegmenter(t, emb)
	reader := transcript.NewReader(transcript.Options{})
	walker := fs.NewWalker([]string{"**/*.json"}, []string{"**/*.segments.json"})

	return &batchEnv{
		root:    root,
		store:   st,
		vectors: vs,
		batch:   NewBatchUseCase(seg, reader, walker, st, vs, "hash-v1", opts, nil),
		search:  NewSearchUseCase(emb, vs, st),
	}
}

func TestBatchLogAndSkip(t *testing.T) {
	env := newBatchEnv(t, BatchOptions{Workers: 3, Incremental: true, WriteJSON: true})

	writeTranscript(t, filepath.Join(env.root, "ep1.json"), "A1", "A2", "A3", "A4", "B1", "B2", "B3", "B4", "C1", "C2", "C3", "C4")
	writeTranscript(t, filepath.Join(env.root, "ep2.json"), "Dogs", "Dig", "Deep", "Elephants", "Eat", "Everything")
	if err := os.WriteFile(filepath.Join(env.root, "broken.json"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}

	var calls int
	run, err := env.batch.Run(context.Background(), env.root, func(done, total int, path string) {
		calls++
		if total != 3 {
			t.Errorf("expected total 3, got %d", total)
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	if run.Processed != 2 || run.Failed != 1 || run.Skipped != 0 {
		t.Errorf("unexpected run: %+v", run)
	}
	if run.Segments != 5 {
		t.Errorf("expected 3+2 segments, got %d", run.Segments)
	}
	if len(run.Errors) != 1 || run.ID == "" {
		t.Errorf("expected one recorded error and a run id, got %+v", run)
	}
	if calls != 3 {
		t.Errorf("expected progress for each file, got %d", calls)
	}

	doc, err := output.ReadJSONFile(filepath.Join(env.root, "ep1.segments.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Segments) != 3 || doc.Segments[2].Text != "C1 C2 C3 C4" || *doc.Segments[2].Start != 8 || *doc.Segments[2].End != 12 {
		t.Errorf("unexpected JSON output: %+v", doc.Segments)
	}

	runs, _ := env.store.ListRuns()
	if len(runs) != 1 || runs[0].ID != run.ID {
		t.Errorf("expected run persisted, got %+v", runs)
	}
}

func TestBatchIncremental(t *testing.T) {
	env := newBatchEnv(t, BatchOptions{Workers: 2, Incremental: true})
	writeTranscript(t, filepath.Join(env.root, "ep1.json"), "A1", "A2", "A3", "B1", "B2", "B3")

	if _, err := env.batch.Run(context.Background(), env.root, nil); err != nil {
		t.Fatal(err)
	}
	run, err := env.batch.Run(context.Background(), env.root, nil)
	if err != nil {
		t.Fatal(err)
	}
	if run.Skipped != 1 || run.Processed != 0 {
		t.Errorf("expected unchanged file skipped, got %+v", run)
	}

	// A different config hash forces reprocessing.
	env.batch.configHash = "hash-v2"
	run, _ = env.batch.Run(context.Background(), env.root, nil)
	if run.Processed != 1 {
		t.Errorf("expected reprocessing after config change, got %+v", run)
	}
}

func TestBatchFailedOutputIsRetried(t *testing.T) {
	env := newBatchEnv(t, BatchOptions{Workers: 1, Incremental: true, WriteJSON: true})
	writeTranscript(t, filepath.Join(env.root, "ep1.json"), "A1", "A2", "A3", "B1", "B2", "B3")

	// A regular file where the output directory should be.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	env.batch.opts.OutDir = filepath.Join(blocker, "out")

	run, err := env.batch.Run(context.Background(), env.root, nil)
	if err != nil {
		t.Fatal(err)
	}
	if run.Failed != 1 {
		t.Fatalf("expected the JSON write to fail, got %+v", run)
	}
	if docs, _ := env.store.ListDocuments(); len(docs) != 0 {
		t.Errorf("expected no document record after a failed run, got %+v", docs)
	}

	outDir := filepath.Join(t.TempDir(), "out")
	env.batch.opts.OutDir = outDir
	run, err = env.batch.Run(context.Background(), env.root, nil)
	if err != nil {
		t.Fatal(err)
	}
	if run.Processed != 1 || run.Skipped != 0 {
		t.Errorf("expected the file reprocessed, got %+v", run)
	}
	if _, err := output.ReadJSONFile(filepath.Join(outDir, "ep1.segments.json")); err != nil {
		t.Errorf("expected JSON output on retry: %v", err)
	}
	if n, _ := env.vectors.Count(); n != 2 {
		t.Errorf("expected 2 segment vectors, got %d", n)
	}
}

func TestBatchRemovesStaleDocuments(t *testing.T) {
	env := newBatchEnv(t, BatchOptions{Workers: 1})
	path := filepath.Join(env.root, "gone.json")
	writeTranscript(t, path, "A1", "A2", "A3")

	if _, err := env.batch.Run(context.Background(), env.root, nil); err != nil {
		t.Fatal(err)
	}
	if n, _ := env.vectors.Count(); n != 1 {
		t.Fatalf("expected 1 segment vector, got %d", n)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if _, err := env.batch.Run(context.Background(), env.root, nil); err != nil {
		t.Fatal(err)
	}

	docs, _ := env.store.ListDocuments()
	if len(docs) != 0 {
		t.Errorf("expected stale document removed, got %+v", docs)
	}
	if n, _ := env.vectors.Count(); n != 0 {
		t.Errorf("expected stale vectors removed, got %d", n)
	}
}

func TestBatchCancelled(t *testing.T) {
	env := newBatchEnv(t, BatchOptions{Workers: 2})
	writeTranscript(t, filepath.Join(env.root, "ep1.json"), "A1", "A2", "A3")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := env.batch.Run(ctx, env.root, nil)
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if run == nil || run.Processed != 0 {
		t.Errorf("expected nothing processed, got %+v", run)
	}
}

func TestSearchSegments(t *testing.T) {
	env := newBatchEnv(t, BatchOptions{Workers: 2})
	writeTranscript(t, filepath.Join(env.root, "ep1.json"), "A1", "A2", "A3", "A4", "B1", "B2", "B3", "B4", "C1", "C2", "C3", "C4")

	if _, err := env.batch.Run(context.Background(), env.root, nil); err != nil {
		t.Fatal(err)
	}

	hits, err := env.search.Search(context.Background(), "Bees", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Segment.Text != "B1 B2 B3 B4" || hits[0].Score < 0.99 {
		t.Errorf("expected the B segment first, got %+v", hits[0])
	}
	if hits[0].Path != filepath.Join(env.root, "ep1.json") {
		t.Errorf("unexpected path %s", hits[0].Path)
	}
}

func TestDocIDStable(t *testing.T) {
	if DocID("/a/b.srt") != DocID("/a/b.srt") || DocID("/a/b.srt") == DocID("/a/c.srt") {
		t.Error("expected stable, path-specific ids")
	}
}
