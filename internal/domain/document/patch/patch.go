package patch

import (
	"github.com/kailas-cloud/retrievex/internal/domain"
	"github.com/kailas-cloud/retrievex/internal/domain/document"
)

// Patch is a document update.
// A nil text leaves the text unchanged. Metadata is replaced wholesale unless
// the patch is partial, in which case supplied keys are merged and a nil value
// deletes that key.
type Patch struct {
	text     *string
	metadata map[string]any
	hasMeta  bool
	partial  bool
}

// New validates and creates a Patch. At least one of text or metadata must be provided.
// A non-nil empty metadata map with partial=false clears all metadata.
func New(text *string, metadata map[string]any, partial bool) (Patch, error) {
	if text == nil && metadata == nil {
		return Patch{}, domain.Invalid("at least one of text or metadata must be provided")
	}
	if text != nil {
		if err := document.ValidateText(*text); err != nil {
			return Patch{}, err
		}
	}
	if metadata != nil {
		scalars := make(map[string]any, len(metadata))
		for k, v := range metadata {
			if v == nil {
				if !partial {
					return Patch{}, domain.Invalid("metadata %q: null values are only allowed in a partial update", k)
				}
				continue
			}
			scalars[k] = v
		}
		normalized, err := document.NormalizeMetadata(scalars)
		if err != nil {
			return Patch{}, err
		}
		for k, v := range metadata {
			if v == nil {
				normalized[k] = nil
			}
		}
		metadata = normalized
	}
	return Patch{text: text, metadata: metadata, hasMeta: metadata != nil, partial: partial}, nil
}

// Text returns the new text, or nil if unchanged.
func (p Patch) Text() *string { return p.text }

// HasText reports whether the patch includes a text value.
func (p Patch) HasText() bool { return p.text != nil }

// HasMetadata reports whether the patch touches metadata.
func (p Patch) HasMetadata() bool { return p.hasMeta }

// Partial reports whether metadata is merged rather than replaced.
func (p Patch) Partial() bool { return p.partial }

// ApplyMetadata returns the metadata that results from applying the patch to current.
// current is never mutated. A partial merge is validated as a whole, so it cannot
// grow the document past MaxMetadataKeys.
func (p Patch) ApplyMetadata(current map[string]any) (map[string]any, error) {
	if !p.hasMeta {
		return current, nil
	}
	if !p.partial {
		out := make(map[string]any, len(p.metadata))
		for k, v := range p.metadata {
			out[k] = v
		}
		return out, nil
	}
	out := make(map[string]any, len(current)+len(p.metadata))
	for k, v := range current {
		out[k] = v
	}
	for k, v := range p.metadata {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return document.NormalizeMetadata(out)
}
