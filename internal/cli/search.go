package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"topicseg/internal/adapter/output"
	"topicseg/internal/domain"
	"topicseg/internal/usecase"
)

var (
	searchQuery string
	searchTopK  int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find stored segments about a topic",
	Long: `Embed a query and rank stored segments by cosine similarity to their
mean unit embedding. Run 'topicseg batch' first.

Examples:
  topicseg search -q "launch delays"
  topicseg search -q "hiring" -k 5 --json`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "search query (required)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 10, "number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	st, err := openStores(cfg, GetRootDir(), false)
	if err != nil {
		return err
	}
	defer st.Close()

	uc := usecase.NewSearchUseCase(newEmbedder(cfg), st.vectors, st.segments)
	results, err := uc.Search(cmd.Context(), searchQuery, searchTopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No matching segments.")
		return nil
	}
	for i, r := range results {
		printScored(cmd, i+1, r)
	}
	return nil
}

func printScored(cmd *cobra.Command, rank int, r domain.ScoredSegment) {
	w := cmd.OutOrStdout()
	s := r.Segment
	fmt.Fprintf(w, "%d. %s #%d (score %.3f)%s\n", rank, r.Path, s.SegmentID, r.Score, timeSuffix(s))
	if len(s.Keywords) > 0 {
		fmt.Fprintf(w, "   keywords: %s\n", strings.Join(s.Keywords, ", "))
	}
	text := s.Summary
	if text == "" {
		text = s.Text
	}
	fmt.Fprintf(w, "   %s\n\n", preview(text, 200))
}

func timeSuffix(s domain.Segment) string {
	if s.Start == nil || s.End == nil {
		return ""
	}
	return fmt.Sprintf(" [%s-%s]", output.SecToTS(*s.Start), output.SecToTS(*s.End))
}

func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}
