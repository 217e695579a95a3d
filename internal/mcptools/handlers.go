// Package mcptools exposes the group index as MCP tools.
package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/treeterminus/internal/index"
)

// GroupService holds the index store used by MCP tool handlers.
type GroupService struct {
	store index.Store
}

// NewGroupService creates a GroupService over store.
func NewGroupService(store index.Store) *GroupService {
	return &GroupService{store: store}
}

// LookupTranscript finds transcripts by name and lists their groups.
func (s *GroupService) LookupTranscript(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input LookupTranscriptInput,
) (*mcp.CallToolResult, LookupTranscriptOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, LookupTranscriptOutput{}, fmt.Errorf("query is required")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	transcripts, err := s.store.QueryTranscripts(ctx, input.Query, limit)
	if err != nil {
		return nil, LookupTranscriptOutput{}, fmt.Errorf("query transcripts: %w", err)
	}
	out := LookupTranscriptOutput{Matches: make([]TranscriptMatch, 0, len(transcripts))}
	for _, t := range transcripts {
		groups, err := s.store.GroupsOf(ctx, t.Index)
		if err != nil {
			return nil, LookupTranscriptOutput{}, fmt.Errorf("groups of %s: %w", t.Name, err)
		}
		if groups == nil {
			groups = []index.GroupNode{}
		}
		out.Matches = append(out.Matches, TranscriptMatch{Transcript: t, Groups: groups})
	}
	out.Total = len(out.Matches)
	return nil, out, nil
}

// GetGroup returns one group with its member transcripts.
func (s *GroupService) GetGroup(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetGroupInput,
) (*mcp.CallToolResult, GetGroupOutput, error) {
	if input.ID == "" {
		return nil, GetGroupOutput{}, fmt.Errorf("id is required")
	}
	key := index.MergedKey(input.ID)
	if input.Sample != "" {
		key = index.GroupKey(input.Sample, input.ID)
	}

	g, err := s.store.GetGroup(ctx, key)
	if err != nil {
		return nil, GetGroupOutput{}, fmt.Errorf("get group: %w", err)
	}
	if g == nil {
		return nil, GetGroupOutput{}, fmt.Errorf("group %s not found", key)
	}
	members, err := s.store.Members(ctx, key)
	if err != nil {
		return nil, GetGroupOutput{}, fmt.Errorf("members of %s: %w", key, err)
	}

	out := GetGroupOutput{Group: *g, Members: make([]index.TranscriptNode, 0, len(members))}
	for _, m := range members {
		t, err := s.store.GetTranscript(ctx, m)
		if err != nil {
			return nil, GetGroupOutput{}, fmt.Errorf("transcript %d: %w", m, err)
		}
		if t != nil {
			out.Members = append(out.Members, *t)
		}
	}
	return nil, out, nil
}

// IndexStats reports node and edge counts.
func (s *GroupService) IndexStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ IndexStatsInput,
) (*mcp.CallToolResult, IndexStatsOutput, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return nil, IndexStatsOutput{}, fmt.Errorf("stats: %w", err)
	}
	return nil, IndexStatsOutput{Stats: *st}, nil
}
