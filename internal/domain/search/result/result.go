package result

// Result is a single search hit.
type Result struct {
	id       string
	score    float64
	text     string
	metadata map[string]any
}

// New creates a search result.
func New(id string, score float64, text string, metadata map[string]any) Result {
	return Result{id: id, score: score, text: text, metadata: metadata}
}

// ID returns the document identifier.
func (r *Result) ID() string { return r.id }

// Score returns the relevance score. Its scale depends on the search mode.
func (r *Result) Score() float64 { return r.score }

// Text returns the document text.
func (r *Result) Text() string { return r.text }

// Metadata returns the document metadata.
func (r *Result) Metadata() map[string]any { return r.metadata }

// WithScore returns a copy carrying a different score.
func (r *Result) WithScore(score float64) Result {
	return Result{id: r.id, score: score, text: r.text, metadata: r.metadata}
}
