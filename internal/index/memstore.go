package index

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu          sync.RWMutex
	transcripts map[int]TranscriptNode
	groups      map[string]GroupNode
	edges       []Edge
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		transcripts: make(map[int]TranscriptNode),
		groups:      make(map[string]GroupNode),
	}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// Reset drops all nodes and edges.
func (m *MemStore) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.transcripts)
	clear(m.groups)
	m.edges = nil
	return nil
}

// AddTranscript stores a transcript keyed by its index.
func (m *MemStore) AddTranscript(_ context.Context, node TranscriptNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcripts[node.Index] = node
	return nil
}

// AddGroup stores a group keyed by its key.
func (m *MemStore) AddGroup(_ context.Context, node GroupNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[node.Key] = node
	return nil
}

// AddEdge appends an edge after checking both endpoints exist.
func (m *MemStore) AddEdge(_ context.Context, edge Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch edge.Kind {
	case EdgeKindMemberOf:
		t, err := strconv.Atoi(edge.SourceID)
		if err != nil {
			return fmt.Errorf("memstore: bad transcript key %q", edge.SourceID)
		}
		if _, ok := m.transcripts[t]; !ok {
			return fmt.Errorf("memstore: unknown transcript %d", t)
		}
	case EdgeKindMergedInto:
		if _, ok := m.groups[edge.SourceID]; !ok {
			return fmt.Errorf("memstore: unknown group %q", edge.SourceID)
		}
	default:
		return fmt.Errorf("memstore: unsupported edge kind: %s", edge.Kind)
	}
	if _, ok := m.groups[edge.TargetID]; !ok {
		return fmt.Errorf("memstore: unknown group %q", edge.TargetID)
	}
	m.edges = append(m.edges, edge)
	return nil
}

// GetTranscript returns the transcript at index, or nil if not found.
func (m *MemStore) GetTranscript(_ context.Context, index int) (*TranscriptNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.transcripts[index]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// GetGroup returns the group with key, or nil if not found.
func (m *MemStore) GetGroup(_ context.Context, key string) (*GroupNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.groups[key]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

// Members returns the transcripts linked to key by MEMBER_OF edges.
func (m *MemStore) Members(_ context.Context, key string) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []int
	for _, e := range m.edges {
		if e.Kind == EdgeKindMemberOf && e.TargetID == key {
			t, _ := strconv.Atoi(e.SourceID)
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return out, nil
}

// GroupsOf returns the groups transcript is a member of.
func (m *MemStore) GroupsOf(_ context.Context, transcript int) ([]GroupNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := TranscriptKey(transcript)
	var out []GroupNode
	for _, e := range m.edges {
		if e.Kind == EdgeKindMemberOf && e.SourceID == src {
			out = append(out, m.groups[e.TargetID])
		}
	}
	slices.SortFunc(out, func(a, b GroupNode) int { return cmp.Compare(a.Key, b.Key) })
	return out, nil
}

// QueryTranscripts returns transcripts whose name contains query
// (case-insensitive), up to limit results.
func (m *MemStore) QueryTranscripts(_ context.Context, query string, limit int) ([]TranscriptNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lowerQuery := strings.ToLower(query)
	var results []TranscriptNode
	for _, t := range m.transcripts {
		if strings.Contains(strings.ToLower(t.Name), lowerQuery) {
			results = append(results, t)
		}
	}
	slices.SortFunc(results, func(a, b TranscriptNode) int { return cmp.Compare(a.Index, b.Index) })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Stats returns counts of all node and edge types in the index.
func (m *MemStore) Stats(_ context.Context) (*IndexStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := &IndexStats{
		TranscriptCount: len(m.transcripts),
		EdgeCount:       len(m.edges),
	}
	for _, g := range m.groups {
		if g.Kind == GroupKindMerged {
			st.MergedGroupCount++
		} else {
			st.SampleGroupCount++
		}
	}
	return st, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}
