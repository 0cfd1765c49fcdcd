package document

import (
	"strings"

	"github.com/kailas-cloud/retrievex/internal/domain"
)

// MaxContentSize is the maximum document text size in bytes.
const MaxContentSize = 163840 // 160KB

// Document is the document aggregate (immutable value object).
// The id is assigned by the store layer on first write.
type Document struct {
	id       string
	text     string
	metadata map[string]any
	vector   []float32
}

// New validates and creates a Document without an id.
// Text: not blank, max 160KB. Metadata: scalar values only.
func New(text string, metadata map[string]any) (Document, error) {
	if err := ValidateText(text); err != nil {
		return Document{}, err
	}
	meta, err := NormalizeMetadata(metadata)
	if err != nil {
		return Document{}, err
	}
	return Document{text: text, metadata: meta}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(id, text string, metadata map[string]any, vector []float32) Document {
	return Document{id: id, text: text, metadata: metadata, vector: vector}
}

// ValidateText checks the text constraints shared by creation and update.
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return domain.Invalid("text is required")
	}
	if len(text) > MaxContentSize {
		return domain.Invalid("text too large (max %d bytes)", MaxContentSize)
	}
	return nil
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Text returns the document text.
func (d *Document) Text() string { return d.text }

// Metadata returns the metadata map.
func (d *Document) Metadata() map[string]any { return d.metadata }

// Vector returns the embedding vector.
func (d *Document) Vector() []float32 { return d.vector }

// WithID returns a copy carrying the given id.
func (d *Document) WithID(id string) Document {
	return Document{id: id, text: d.text, metadata: d.metadata, vector: d.vector}
}

// WithText returns a copy with new text. The vector is kept; callers re-embed.
func (d *Document) WithText(text string) Document {
	return Document{id: d.id, text: text, metadata: d.metadata, vector: d.vector}
}

// WithMetadata returns a copy with the metadata replaced.
func (d *Document) WithMetadata(m map[string]any) Document {
	return Document{id: d.id, text: d.text, metadata: cloneMetadata(m), vector: d.vector}
}

// SetVector sets the vector in place (mutation).
func (d *Document) SetVector(v []float32) { d.vector = v }
