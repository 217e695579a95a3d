//go:build cgo

package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements the Store interface using KuzuDB as the graph backend.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given directory path. KuzuDB creates the leaf directory itself.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(path string) (*KuzuStore, error) {
	db, err := kuzu.OpenDatabase(path, kuzu.DefaultSystemConfig())
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database %s: %w", path, err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements defines the Cypher DDL executed by InitSchema.
// Node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Transcript(
		idx INT64,
		name STRING,
		PRIMARY KEY(idx)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS TxGroup(
		uid STRING,
		id STRING,
		sample STRING,
		kind STRING,
		nmembers INT64,
		newick STRING,
		PRIMARY KEY(uid)
	)`,
	`CREATE REL TABLE IF NOT EXISTS MEMBER_OF(FROM Transcript TO TxGroup)`,
	`CREATE REL TABLE IF NOT EXISTS MERGED_INTO(FROM TxGroup TO TxGroup)`,
}

// InitSchema creates all node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// Reset deletes every node together with its relationships.
func (s *KuzuStore) Reset(_ context.Context) error {
	for _, cypher := range []string{
		"MATCH (t:Transcript) DETACH DELETE t",
		"MATCH (g:TxGroup) DETACH DELETE g",
	} {
		if err := s.exec(cypher, nil); err != nil {
			return err
		}
	}
	return nil
}

// ---------- Write operations ----------

// AddTranscript inserts a Transcript node.
func (s *KuzuStore) AddTranscript(_ context.Context, node TranscriptNode) error {
	return s.exec(
		"CREATE (t:Transcript {idx: $idx, name: $name})",
		map[string]any{
			"idx":  int64(node.Index),
			"name": node.Name,
		},
	)
}

// AddGroup inserts a TxGroup node.
func (s *KuzuStore) AddGroup(_ context.Context, node GroupNode) error {
	return s.exec(
		`CREATE (g:TxGroup {
			uid: $uid,
			id: $id,
			sample: $sample,
			kind: $kind,
			nmembers: $n,
			newick: $nwk
		})`,
		map[string]any{
			"uid":    node.Key,
			"id":     node.ID,
			"sample": node.Sample,
			"kind":   string(node.Kind),
			"n":      int64(node.Size),
			"nwk":    node.Newick,
		},
	)
}

// AddEdge inserts a relationship between two existing nodes.
func (s *KuzuStore) AddEdge(_ context.Context, edge Edge) error {
	switch edge.Kind {
	case EdgeKindMemberOf:
		t, err := strconv.ParseInt(edge.SourceID, 10, 64)
		if err != nil {
			return fmt.Errorf("kuzu: bad transcript key %q", edge.SourceID)
		}
		return s.exec(
			`MATCH (a:Transcript {idx: $src}), (b:TxGroup {uid: $dst})
			 CREATE (a)-[:MEMBER_OF]->(b)`,
			map[string]any{"src": t, "dst": edge.TargetID},
		)
	case EdgeKindMergedInto:
		return s.exec(
			`MATCH (a:TxGroup {uid: $src}), (b:TxGroup {uid: $dst})
			 CREATE (a)-[:MERGED_INTO]->(b)`,
			map[string]any{"src": edge.SourceID, "dst": edge.TargetID},
		)
	default:
		return fmt.Errorf("kuzu: unsupported edge kind: %s", edge.Kind)
	}
}

// ---------- Read operations ----------

const groupColumns = "g.uid, g.id, g.sample, g.kind, g.nmembers, g.newick"

// GetTranscript retrieves a Transcript node by index, or nil if not found.
func (s *KuzuStore) GetTranscript(_ context.Context, index int) (*TranscriptNode, error) {
	rows, err := s.query(
		"MATCH (t:Transcript {idx: $idx}) RETURN t.idx, t.name",
		map[string]any{"idx": int64(index)},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	t := rowToTranscript(rows[0])
	return &t, nil
}

// GetGroup retrieves a TxGroup node by key, or nil if not found.
func (s *KuzuStore) GetGroup(_ context.Context, key string) (*GroupNode, error) {
	rows, err := s.query(
		"MATCH (g:TxGroup {uid: $uid}) RETURN "+groupColumns,
		map[string]any{"uid": key},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	g := rowToGroup(rows[0])
	return &g, nil
}

// Members follows MEMBER_OF edges into the group with key.
func (s *KuzuStore) Members(_ context.Context, key string) ([]int, error) {
	rows, err := s.query(
		`MATCH (t:Transcript)-[:MEMBER_OF]->(g:TxGroup {uid: $uid})
		 RETURN t.idx ORDER BY t.idx`,
		map[string]any{"uid": key},
	)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(rows))
	for _, r := range rows {
		out = append(out, toInt(r[0]))
	}
	return out, nil
}

// GroupsOf follows MEMBER_OF edges out of transcript.
func (s *KuzuStore) GroupsOf(_ context.Context, transcript int) ([]GroupNode, error) {
	rows, err := s.query(
		`MATCH (t:Transcript {idx: $idx})-[:MEMBER_OF]->(g:TxGroup)
		 RETURN `+groupColumns+` ORDER BY g.uid`,
		map[string]any{"idx": int64(transcript)},
	)
	if err != nil {
		return nil, err
	}
	out := make([]GroupNode, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowToGroup(r))
	}
	return out, nil
}

// QueryTranscripts returns transcripts whose name contains the query string,
// ignoring case.
func (s *KuzuStore) QueryTranscripts(_ context.Context, queryStr string, limit int) ([]TranscriptNode, error) {
	cypher := `MATCH (t:Transcript) WHERE lower(t.name) CONTAINS lower($q)
		 RETURN t.idx, t.name ORDER BY t.idx`
	params := map[string]any{"q": queryStr}
	if limit > 0 {
		cypher += " LIMIT $lim"
		params["lim"] = int64(limit)
	}
	rows, err := s.query(cypher, params)
	if err != nil {
		return nil, err
	}
	out := make([]TranscriptNode, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowToTranscript(r))
	}
	return out, nil
}

// ---------- Stats ----------

// Stats returns counts of all node and edge tables.
func (s *KuzuStore) Stats(_ context.Context) (*IndexStats, error) {
	count := func(cypher string, params map[string]any) (int, error) {
		rows, err := s.query(cypher, params)
		if err != nil {
			return 0, err
		}
		if len(rows) == 0 || len(rows[0]) == 0 {
			return 0, nil
		}
		return toInt(rows[0][0]), nil
	}
	var st IndexStats
	var err error
	if st.TranscriptCount, err = count("MATCH (t:Transcript) RETURN count(t)", nil); err != nil {
		return nil, err
	}
	kindCount := "MATCH (g:TxGroup) WHERE g.kind = $kind RETURN count(g)"
	if st.SampleGroupCount, err = count(kindCount, map[string]any{"kind": string(GroupKindSample)}); err != nil {
		return nil, err
	}
	if st.MergedGroupCount, err = count(kindCount, map[string]any{"kind": string(GroupKindMerged)}); err != nil {
		return nil, err
	}
	for _, rel := range []EdgeKind{EdgeKindMemberOf, EdgeKindMergedInto} {
		// Table name is a fixed internal constant, not user input.
		n, err := count(fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r)", rel), nil)
		if err != nil {
			return nil, err
		}
		st.EdgeCount += n
	}
	return &st, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	if len(params) == 0 {
		res, err := s.conn.Query(cypher)
		if err != nil {
			return fmt.Errorf("kuzu: execute: %w", err)
		}
		res.Close()
		return nil
	}
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// rowToTranscript converts an (idx, name) row.
func rowToTranscript(r []any) TranscriptNode {
	return TranscriptNode{Index: toInt(r[0]), Name: toString(r[1])}
}

// rowToGroup converts a row in groupColumns order.
func rowToGroup(r []any) GroupNode {
	return GroupNode{
		Key:    toString(r[0]),
		ID:     toString(r[1]),
		Sample: toString(r[2]),
		Kind:   GroupKind(toString(r[3])),
		Size:   toInt(r[4]),
		Newick: toString(r[5]),
	}
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, float64, bool, string).

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
