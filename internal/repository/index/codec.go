package index

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/kailas-cloud/retrievex/internal/domain/document"
	"github.com/kailas-cloud/retrievex/internal/domain/search/filter"
)

// Encode converts a document into hash fields. Metadata is kept whole as JSON in
// __meta; filterable keys are also written as top-level fields for the index.
func (l Layout) Encode(doc document.Document) (map[string]string, error) {
	fields := map[string]string{
		FieldContent: doc.Text(),
	}
	if v := doc.Vector(); len(v) > 0 {
		fields[FieldVector] = vectorToBytes(v)
	}

	meta := doc.Metadata()
	if meta == nil {
		meta = map[string]any{}
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	fields[FieldMeta] = string(data)

	for name, kind := range l.Fields {
		v, ok := meta[name]
		if !ok {
			continue
		}
		if s, ok := flatten(kind, v); ok {
			fields[name] = s
		}
	}
	return fields, nil
}

// flatten renders a metadata value for a filterable field. Values whose type does not
// fit the field kind are kept in __meta only.
func flatten(kind filter.FieldKind, v any) (string, bool) {
	switch kind {
	case filter.KindTag:
		switch x := v.(type) {
		case string:
			return x, x != ""
		case bool:
			return strconv.FormatBool(x), true
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64), true
		}
	case filter.KindNumeric:
		if f, ok := v.(float64); ok {
			return strconv.FormatFloat(f, 'f', -1, 64), true
		}
	}
	return "", false
}

// Decode rebuilds a document from hash fields.
func (l Layout) Decode(id string, fields map[string]string) (document.Document, error) {
	var meta map[string]any
	if raw := fields[FieldMeta]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			return document.Document{}, fmt.Errorf("unmarshal metadata for %s: %w", id, err)
		}
	}

	var vec []float32
	if raw, ok := fields[FieldVector]; ok {
		vec = bytesToVector(raw)
	}

	return document.Reconstruct(id, fields[FieldContent], meta, vec), nil
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
