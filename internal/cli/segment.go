package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"topicseg/internal/adapter/output"
	"topicseg/internal/adapter/transcript"
	"topicseg/internal/domain"
)

var (
	segmentOut      string
	segmentFormat   string
	segmentProfile  bool
	segmentInput    string
	segmentNoEnrich bool
)

var segmentCmd = &cobra.Command{
	Use:   "segment <file>",
	Short: "Segment a single transcript",
	Long: `Segment one transcript and print the segments.

Supported inputs: whisper-style JSON, SRT/VTT subtitles, plain text, markdown
and PDF. Use "-" to read plain text from stdin.

Examples:
  topicseg segment episode.json
  topicseg segment talk.srt --format markdown --out talk.md
  cat notes.txt | topicseg segment - --input text`,
	Args: cobra.ExactArgs(1),
	RunE: runSegment,
}

func init() {
	segmentCmd.Flags().StringVarP(&segmentOut, "out", "o", "", "write output to file instead of stdout")
	segmentCmd.Flags().StringVarP(&segmentFormat, "format", "f", "json", "output format: json or markdown")
	segmentCmd.Flags().BoolVar(&segmentProfile, "profile", false, "print the similarity profile and threshold to stderr")
	segmentCmd.Flags().StringVar(&segmentInput, "input", "", "input format override: json, srt, text, markdown")
	segmentCmd.Flags().BoolVar(&segmentNoEnrich, "no-enrich", false, "skip summaries, keywords and sentiment")
	rootCmd.AddCommand(segmentCmd)
}

func runSegment(cmd *cobra.Command, args []string) error {
	if segmentFormat != "json" && segmentFormat != "markdown" {
		return fmt.Errorf("unknown output format %q", segmentFormat)
	}

	cfg := GetConfig()
	reader := newReader(cfg)

	source := args[0]
	units, err := readUnits(reader, source, segmentInput, cmd.InOrStdin())
	if err != nil {
		return err
	}

	uc, err := newSegmentUseCase(cfg, newEmbedder(cfg), !segmentNoEnrich)
	if err != nil {
		return err
	}

	result, err := uc.Segment(cmd.Context(), units)
	if err != nil {
		return fmt.Errorf("segmentation failed: %w", err)
	}

	if segmentProfile {
		fmt.Fprintf(os.Stderr, "threshold: %.4f\n", result.Threshold)
		for i, v := range result.Profile {
			marker := ""
			if v < result.Threshold {
				marker = " <"
			}
			fmt.Fprintf(os.Stderr, "%4d %.4f%s\n", i+1, v, marker)
		}
	}

	var w io.Writer = cmd.OutOrStdout()
	if segmentOut != "" {
		f, err := os.Create(segmentOut)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if segmentFormat == "markdown" {
		_, err = io.WriteString(w, output.RenderMarkdown(output.Metadata{
			Title:     output.DocumentName(source),
			Source:    source,
			Model:     cfg.Embedding.Provider + ":" + cfg.Embedding.Model,
			Generated: time.Now().Format(time.RFC3339),
		}, result.Segments))
		return err
	}
	return output.WriteJSON(w, output.NewDocument(source, result.Segments))
}

// readUnits reads source, or stdin for "-", honouring a format override.
func readUnits(reader *transcript.Reader, source, format string, stdin io.Reader) ([]domain.TextUnit, error) {
	if source != "-" && format == "" {
		units, err := reader.Read(source)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", source, err)
		}
		return units, nil
	}

	var (
		data []byte
		err  error
	)
	if source == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source, err)
	}
	if format == "" {
		format = "text"
	}
	units, err := reader.ReadString(format, string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s as %s: %w", source, format, err)
	}
	return units, nil
}
