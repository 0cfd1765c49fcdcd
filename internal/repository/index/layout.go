package index

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/retrievex/internal/db"
	"github.com/kailas-cloud/retrievex/internal/domain/search/filter"
)

// Reserved hash fields. Filterable metadata fields are stored beside them under their own names.
const (
	FieldContent = "__content"
	FieldVector  = "__vector"
	FieldMeta    = "__meta"
	VectorAlias  = "vector"
)

// HNSWConfig holds HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Layout describes where documents live in the keyspace and how they are indexed.
type Layout struct {
	KeyPrefix  string
	Name       string
	Dimensions int
	Algorithm  db.VectorAlgorithm
	HNSW       HNSWConfig
	Fields     filter.Schema
}

// IndexName returns the FT index name: "<prefix><name>:idx".
func (l Layout) IndexName() string { return l.KeyPrefix + l.Name + ":idx" }

// DocPrefix returns the key prefix shared by all documents.
func (l Layout) DocPrefix() string { return l.KeyPrefix + l.Name + ":" }

// DocKey returns the hash key of a document.
func (l Layout) DocKey(id string) string { return l.DocPrefix() + id }

// IDFromKey strips the document prefix from a hash key.
func (l Layout) IDFromKey(key string) string { return strings.TrimPrefix(key, l.DocPrefix()) }

// Validate checks field names against reserved names and query syntax.
func (l Layout) Validate() error {
	if l.Name == "" {
		return fmt.Errorf("index name is required")
	}
	if l.Dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive")
	}
	for name, kind := range l.Fields {
		if strings.HasPrefix(name, "__") {
			return fmt.Errorf("field %q: names starting with __ are reserved", name)
		}
		if !db.IsValidIdentifier(name) || strings.Contains(name, ":") {
			return fmt.Errorf("field %q: must match [a-zA-Z0-9_-]+", name)
		}
		if kind != filter.KindTag && kind != filter.KindNumeric {
			return fmt.Errorf("field %q: unknown kind %q", name, kind)
		}
	}
	return nil
}

// Definition builds the FT index definition. The TEXT field is added only when
// the backend supports text search; it is unstemmed and keeps stopwords, so
// lexical matching works on the words as written.
func (l Layout) Definition(textSearch bool) (*db.IndexDefinition, error) {
	b := db.NewIndex(l.IndexName()).Prefix(l.DocPrefix())
	if textSearch {
		b = b.NoStopwords().VerbatimText(FieldContent)
	}

	names := make([]string, 0, len(l.Fields))
	for name := range l.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		switch l.Fields[name] {
		case filter.KindTag:
			b = b.Tag(name)
		case filter.KindNumeric:
			b = b.Numeric(name)
		}
	}

	algo := l.Algorithm
	if algo == "" {
		algo = db.VectorHNSW
	}
	b = b.Vector(FieldVector, VectorAlias, l.Dimensions, algo, db.DistanceCosine, l.HNSW.M, l.HNSW.EFConstruct)

	def, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	return def, nil
}

// EFRuntime returns the HNSW query-time candidate count for k results:
// twenty candidates per requested hit, never fewer than 100.
func (l Layout) EFRuntime(k int) int {
	if l.Algorithm == db.VectorFlat {
		return 0
	}
	return max(k*20, 100)
}
