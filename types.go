package retrievex

import "context"

// Embedder converts text to a vector. Implementations must be deterministic
// for a fixed configuration and return vectors of the configured dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Mode selects the retrieval strategy.
type Mode string

// Search modes.
const (
	Lexical  Mode = "lexical"
	Semantic Mode = "semantic"
	Hybrid   Mode = "hybrid"
)

// Fusion selects how hybrid search combines lexical and semantic scores.
type Fusion string

// Fusion strategies.
const (
	FusionWeighted Fusion = "weighted"
	FusionRRF      Fusion = "rrf"
)

// FieldType is the index type of a filterable metadata field.
type FieldType string

// Filterable field types.
const (
	FieldTag     FieldType = "tag"
	FieldNumeric FieldType = "numeric"
)

// Item is a text to ingest with its optional metadata.
type Item struct {
	Text     string
	Metadata map[string]any
}

// Document is a stored text.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]any
}

// Update changes a stored document. A nil Text keeps the current text and
// skips re-embedding. Metadata replaces the current metadata unless Partial
// is set, in which case keys are merged and a nil value deletes the key.
type Update struct {
	Text     *string
	Metadata map[string]any
	Partial  bool
}

// Query is a search request. TopK 0 means 5.
type Query struct {
	Text    string
	Mode    Mode
	TopK    int
	Filters Filters
	// Vector replaces query embedding in semantic mode.
	Vector []float32
}

// Hit is a ranked search result.
type Hit struct {
	ID       string
	Score    float64
	Text     string
	Metadata map[string]any
}

// Filters restricts results by metadata: every Must condition holds, at least
// one Should condition holds when any are given, and no MustNot condition holds.
type Filters struct {
	Must    []Condition
	Should  []Condition
	MustNot []Condition
}

// Condition is a tag match or a numeric range on one metadata key.
type Condition struct {
	Key   string
	Match string
	Range *Range
}

// Range bounds a numeric field. gt/gte and lt/lte are mutually exclusive.
type Range struct {
	GT, GTE, LT, LTE *float64
}

// Match returns a tag equality condition.
func Match(key, value string) Condition {
	return Condition{Key: key, Match: value}
}

// Between returns an inclusive numeric range condition.
func Between(key string, from, to float64) Condition {
	return Condition{Key: key, Range: &Range{GTE: &from, LTE: &to}}
}

// AtLeast returns a numeric lower-bound condition.
func AtLeast(key string, from float64) Condition {
	return Condition{Key: key, Range: &Range{GTE: &from}}
}

// Below returns a numeric strict upper-bound condition.
func Below(key string, to float64) Condition {
	return Condition{Key: key, Range: &Range{LT: &to}}
}

// HealthReport describes store and provider availability.
type HealthReport struct {
	OK     bool
	Checks map[string]string
}
