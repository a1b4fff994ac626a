package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"topicseg/internal/adapter/memstore"
	"topicseg/internal/adapter/store"
	"topicseg/internal/mcp"
	"topicseg/internal/port"
	"topicseg/internal/usecase"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server on stdio",
	Long: `Run topicseg as an MCP (Model Context Protocol) server so LLM agents can
segment text and query the segment database in the root directory. Without a
database, named segment_text results are kept in memory for the session.

Configure in an MCP client:
  {
    "mcpServers": {
      "topicseg": {
        "command": "topicseg",
        "args": ["mcp", "-d", "/path/to/transcripts"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	emb := newEmbedder(cfg)

	segUC, err := newSegmentUseCase(cfg, emb, true)
	if err != nil {
		return err
	}

	var (
		segStore port.SegmentStore
		vectors  port.VectorStore
		searchUC *usecase.SearchUseCase
	)
	st, err := openStores(cfg, GetRootDir(), false)
	if err != nil {
		logger.Warn("segment database unavailable; using an in-memory session store", "error", err)
		segStore = memstore.NewMemoryStore()
	} else {
		defer st.Close()
		segStore = st.segments
		vectors = st.vectors
		searchUC = usecase.NewSearchUseCase(emb, st.vectors, st.segments)
	}

	server := mcpserver.NewMCPServer("topicseg", "0.1.0")
	mcp.RegisterTools(server, segUC, newReader(cfg), segStore, vectors, searchUC, store.ComputeConfigHash(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("MCP server starting on stdio")

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}
	return nil
}
