package mode

// Mode is the retrieval strategy.
type Mode string

// Search mode constants.
const (
	// Lexical scores documents by term match (BM25) over the text field.
	Lexical Mode = "lexical"
	// Semantic scores documents by vector similarity to the query embedding.
	Semantic Mode = "semantic"
	// Hybrid fuses normalized lexical and semantic scores.
	Hybrid Mode = "hybrid"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Lexical || m == Semantic || m == Hybrid
}

// NeedsQuery reports whether the mode requires non-empty query text.
func (m Mode) NeedsQuery() bool {
	return m == Lexical || m == Hybrid
}

// NeedsTextSearch reports whether the mode issues a lexical sub-query.
func (m Mode) NeedsTextSearch() bool {
	return m == Lexical || m == Hybrid
}
