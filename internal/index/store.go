// Package index stores transcripts, their groups and the super-groups they
// merge into as a queryable graph.
package index

import (
	"context"
	"io"
)

// Store is the interface for the group index backend.
// Implementations: KuzuStore (on-disk, cgo), MemStore (default).
type Store interface {
	io.Closer

	// Schema setup, called once before any data is inserted.
	InitSchema(ctx context.Context) error
	// Reset removes every node and edge.
	Reset(ctx context.Context) error

	AddTranscript(ctx context.Context, node TranscriptNode) error
	AddGroup(ctx context.Context, node GroupNode) error
	AddEdge(ctx context.Context, edge Edge) error

	// GetTranscript returns nil when the index holds no such transcript.
	GetTranscript(ctx context.Context, index int) (*TranscriptNode, error)
	// GetGroup returns nil when key is unknown.
	GetGroup(ctx context.Context, key string) (*GroupNode, error)
	// Members lists the transcript indices of a group, ascending.
	Members(ctx context.Context, key string) ([]int, error)
	// GroupsOf lists every group holding transcript, ordered by key.
	GroupsOf(ctx context.Context, transcript int) ([]GroupNode, error)
	// QueryTranscripts returns transcripts whose name contains query,
	// ordered by index. A limit <= 0 returns all matches.
	QueryTranscripts(ctx context.Context, query string, limit int) ([]TranscriptNode, error)

	Stats(ctx context.Context) (*IndexStats, error)
}
