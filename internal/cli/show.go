package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"topicseg/internal/adapter/output"
	"topicseg/internal/adapter/store"
	"topicseg/internal/domain"
)

var (
	showMarkdown bool
	showRuns     bool
	showJSON     bool
)

var showCmd = &cobra.Command{
	Use:   "show [document]",
	Short: "List processed documents or print a document's segments",
	Long: `Without arguments, list every document in the segment database.
With a document id or path, print its stored segments.

Examples:
  topicseg show
  topicseg show 3fa1c2d4e5f60718
  topicseg show ./podcasts/ep1.srt --markdown
  topicseg show --runs`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showMarkdown, "markdown", false, "render segments as markdown")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print segments as JSON")
	showCmd.Flags().BoolVar(&showRuns, "runs", false, "list batch runs instead of documents")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	st, err := openStores(cfg, GetRootDir(), false)
	if err != nil {
		return err
	}
	defer st.Close()

	w := cmd.OutOrStdout()

	if showRuns {
		runs, err := st.segments.ListRuns()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tSTARTED\tPROCESSED\tSKIPPED\tFAILED\tSEGMENTS")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\n",
				r.ID, r.StartedAt.Format(time.DateTime), r.Processed, r.Skipped, r.Failed, r.Segments)
		}
		return tw.Flush()
	}

	if len(args) == 0 {
		docs, err := st.segments.ListDocuments()
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			fmt.Fprintln(w, "No documents. Run 'topicseg batch' first.")
			return nil
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tFORMAT\tUNITS\tMODIFIED\tPATH")
		for _, d := range docs {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
				d.ID, d.Format, d.UnitCount, d.ModTime.Format(time.DateTime), d.Path)
		}
		return tw.Flush()
	}

	doc, err := findDocument(st.segments, args[0])
	if err != nil {
		return err
	}
	segments, err := st.segments.GetSegments(doc.ID)
	if err != nil {
		return err
	}

	switch {
	case showJSON:
		return output.WriteJSON(w, output.NewDocument(doc.Path, segments))
	case showMarkdown:
		fmt.Fprint(w, output.RenderMarkdown(output.Metadata{
			Title:     output.DocumentName(doc.Path),
			Source:    doc.Path,
			Model:     cfg.Embedding.Provider + ":" + cfg.Embedding.Model,
			Generated: doc.ModTime.Format(time.RFC3339),
		}, segments))
		return nil
	}

	fmt.Fprintf(w, "%s (%d units, %d segments)\n\n", doc.Path, doc.UnitCount, len(segments))
	for _, s := range segments {
		fmt.Fprintf(w, "#%d units [%d, %d)%s %s\n", s.SegmentID, s.StartUnit, s.EndUnit, timeSuffix(s), s.Sentiment)
		if len(s.Keywords) > 0 {
			fmt.Fprintf(w, "   keywords: %s\n", strings.Join(s.Keywords, ", "))
		}
		if s.Summary != "" {
			fmt.Fprintf(w, "   %s\n", s.Summary)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// findDocument resolves an id, falling back to a path or path suffix match.
func findDocument(st *store.BoltStore, ref string) (domain.Document, error) {
	doc, err := st.GetDocument(ref)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.Document{}, err
	}

	docs, err := st.ListDocuments()
	if err != nil {
		return domain.Document{}, err
	}
	var matches []domain.Document
	for _, d := range docs {
		if d.Path == ref || strings.HasSuffix(d.Path, "/"+strings.TrimPrefix(ref, "./")) {
			matches = append(matches, d)
		}
	}
	switch len(matches) {
	case 0:
		return domain.Document{}, fmt.Errorf("document %q: %w", ref, store.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return domain.Document{}, fmt.Errorf("%q matches %d documents; use the id", ref, len(matches))
	}
}
