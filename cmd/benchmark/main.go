package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"topicseg/config"
	"topicseg/internal/adapter/embedding"
	"topicseg/internal/adapter/segmenter"
	"topicseg/internal/domain"
	"topicseg/internal/port"
	"topicseg/internal/usecase"
)

// labelled is one reference document: its units and the unit indices where
// a human placed topic boundaries.
type labelled struct {
	Name       string   `json:"name"`
	Units      []string `json:"units"`
	Boundaries []int    `json:"boundaries"`
}

func main() {
	fixtures := flag.String("fixtures", "cmd/benchmark/testdata/fixtures.json", "Labelled documents")
	dir := flag.String("dir", ".", "Directory holding topicseg.yaml")
	mock := flag.Bool("mock", false, "Use the hashing mock embedder instead of the configured provider")
	flag.Parse()

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	docs, err := loadFixtures(*fixtures)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading fixtures: %v\n", err)
		os.Exit(1)
	}

	var emb port.Embedder
	if *mock {
		emb = embedding.NewMockEmbedder(cfg.Embedding.Dimension)
	} else {
		emb, err = embedding.NewOpenAIEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model, cfg.Embedding.BatchSize)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Embedding not available: %v (try -mock)\n", err)
			os.Exit(1)
		}
	}

	uc, err := usecase.NewSegmentUseCase(emb, cfg.SegmenterConfig(), nil, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid segment config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("SEGMENTATION BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Model: %s\n", emb.ModelName())
	fmt.Printf("Policy: %s  window=%d  min_units=%d  min_segment_units=%d\n",
		cfg.Segment.Policy, cfg.Segment.WindowSize, cfg.Segment.MinUnits, cfg.Segment.MinSegmentUnits)
	fmt.Println(strings.Repeat("-", 70))
	fmt.Printf("%-24s %6s %6s %8s %8s\n", "document", "ref", "hyp", "Pk", "WinDiff")

	var totalPk, totalWD float64
	ctx := context.Background()
	for _, d := range docs {
		units := make([]domain.TextUnit, len(d.Units))
		for i, text := range d.Units {
			units[i] = domain.TextUnit{Index: i, Text: text}
		}

		result, err := uc.Segment(ctx, units)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", d.Name, err)
			os.Exit(1)
		}

		hyp := make([]int, 0, len(result.Segments))
		for _, s := range result.Segments {
			if s.StartUnit > 0 {
				hyp = append(hyp, s.StartUnit)
			}
		}

		scores := segmenter.Evaluate(len(units), d.Boundaries, hyp)
		totalPk += scores.Pk
		totalWD += scores.WindowDiff
		fmt.Printf("%-24s %6d %6d %8.3f %8.3f\n", d.Name, scores.Reference, scores.Hypothesis, scores.Pk, scores.WindowDiff)
	}

	fmt.Println(strings.Repeat("-", 70))
	n := float64(len(docs))
	fmt.Printf("%-24s %6s %6s %8.3f %8.3f\n", "mean", "", "", totalPk/n, totalWD/n)
}

func loadFixtures(path string) ([]labelled, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var docs []labelled
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents in %s", path)
	}
	return docs, nil
}
