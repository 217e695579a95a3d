package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewGroupMCPServer creates an MCP server with the group index tools registered.
func NewGroupMCPServer(svc *GroupService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "treeterminus",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "lookup_transcript",
		Description: "Find transcripts whose name contains the query and list every per-sample group and merged super-group they belong to.",
	}, svc.LookupTranscript)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_group",
		Description: "Return a group by id with its Newick tree and member transcripts. Give a sample name for a per-sample group, omit it for a merged super-group.",
	}, svc.GetGroup)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_stats",
		Description: "Count the transcripts, sample groups, merged groups and edges in the group index.",
	}, svc.IndexStats)

	return server
}

// RunStdio runs server on stdio, blocking until stdin is closed or ctx is
// cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves server over streamable HTTP on addr until ctx is cancelled.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
