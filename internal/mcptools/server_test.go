package mcptools

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupServerClient wires an MCP server and client together using in-memory
// transports.
func setupServerClient(t *testing.T) *mcp.ClientSession {
	t.Helper()

	server := NewGroupMCPServer(NewGroupService(newTestStore(t)))
	st, ct := mcp.NewInMemoryTransports()
	ctx := context.Background()

	_, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		session.Close()
	})
	return session
}

// decode re-marshals the structured content of a tool result into out.
func decode(t *testing.T, result *mcp.CallToolResult, out any) {
	t.Helper()
	require.NotNil(t, result.StructuredContent, "expected structured content")
	raw, err := json.Marshal(result.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func TestMCPListTools(t *testing.T) {
	session := setupServerClient(t)

	result, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	names := make([]string, len(result.Tools))
	for i, tool := range result.Tools {
		names[i] = tool.Name
	}
	sort.Strings(names)
	assert.Equal(t, []string{"get_group", "index_stats", "lookup_transcript"}, names)
}

func TestMCPLookupTranscript(t *testing.T) {
	session := setupServerClient(t)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "lookup_transcript",
		Arguments: LookupTranscriptInput{Query: "MYC-201"},
	})
	require.NoError(t, err)
	require.False(t, result.IsError, "lookup_transcript should not return an error")

	var out LookupTranscriptOutput
	decode(t, result, &out)
	require.Equal(t, 1, out.Total)
	require.Len(t, out.Matches[0].Groups, 2)
	assert.Equal(t, "brain/4_5", out.Matches[0].Groups[0].Key)
	assert.Equal(t, "merged:4_5", out.Matches[0].Groups[1].Key)
}

func TestMCPGetGroup(t *testing.T) {
	session := setupServerClient(t)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "get_group",
		Arguments: GetGroupInput{ID: "0_1", Sample: "liver"},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out GetGroupOutput
	decode(t, result, &out)
	assert.Equal(t, "(0,1);", out.Group.Newick)
	assert.Len(t, out.Members, 2)
}

func TestMCPIndexStats(t *testing.T) {
	session := setupServerClient(t)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "index_stats",
		Arguments: map[string]any{},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out IndexStatsOutput
	decode(t, result, &out)
	assert.Equal(t, 2, out.Stats.MergedGroupCount)
}

// The SDK may report a failing handler at the protocol level or set IsError
// on the result. Accept either behavior.
func TestMCPGetGroup_NotFound(t *testing.T) {
	session := setupServerClient(t)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "get_group",
		Arguments: GetGroupInput{ID: "9_10"},
	})
	if err != nil {
		return
	}
	require.NotNil(t, result)
	assert.True(t, result.IsError, "a missing group should set IsError")
}

func TestMCPCallUnknownTool(t *testing.T) {
	session := setupServerClient(t)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "nonexistent_tool",
		Arguments: map[string]any{},
	})
	if err != nil {
		return
	}
	require.NotNil(t, result)
	assert.True(t, result.IsError, "calling an unknown tool should set IsError")
}
