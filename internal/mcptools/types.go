package mcptools

import "github.com/dusk-indust/treeterminus/internal/index"

// --- MCP Tool Input Types ---
// The MCP Go SDK generates JSON schemas from these struct tags.

// LookupTranscriptInput is the input for the lookup_transcript MCP tool.
type LookupTranscriptInput struct {
	Query string `json:"query" jsonschema:"substring of the transcript name, case-insensitive"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of transcripts (default: 20)"`
}

// TranscriptMatch is one transcript with every group it belongs to.
type TranscriptMatch struct {
	Transcript index.TranscriptNode `json:"transcript"`
	Groups     []index.GroupNode    `json:"groups"`
}

// LookupTranscriptOutput is the result of the lookup_transcript MCP tool.
type LookupTranscriptOutput struct {
	Matches []TranscriptMatch `json:"matches"`
	Total   int               `json:"total"`
}

// GetGroupInput is the input for the get_group MCP tool.
type GetGroupInput struct {
	ID     string `json:"id" jsonschema:"group id, e.g. 1_2_3"`
	Sample string `json:"sample,omitempty" jsonschema:"sample name; omit for a merged super-group"`
}

// GetGroupOutput is the result of the get_group MCP tool.
type GetGroupOutput struct {
	Group   index.GroupNode        `json:"group"`
	Members []index.TranscriptNode `json:"members"`
}

// IndexStatsInput is the input for the index_stats MCP tool.
type IndexStatsInput struct{}

// IndexStatsOutput is the result of the index_stats MCP tool.
type IndexStatsOutput struct {
	Stats index.IndexStats `json:"stats"`
}
