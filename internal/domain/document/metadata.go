package document

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/retrievex/internal/domain"
)

// MaxMetadataKeys bounds the number of metadata entries per document.
const MaxMetadataKeys = 64

// NormalizeMetadata validates an open metadata map and converts numbers to float64.
// Values must be strings, numbers or booleans. Nested objects and arrays are rejected.
func NormalizeMetadata(m map[string]any) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}
	if len(m) > MaxMetadataKeys {
		return nil, domain.Invalid("too many metadata keys (max %d)", MaxMetadataKeys)
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if k == "" {
			return nil, domain.Invalid("metadata key must not be empty")
		}
		nv, err := normalizeValue(v)
		if err != nil {
			return nil, domain.Invalid("metadata %q: %v", k, err)
		}
		out[k] = nv
	}
	return out, nil
}

func normalizeValue(v any) (any, error) {
	switch x := v.(type) {
	case string, bool, float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", x.String())
		}
		return f, nil
	case nil:
		return nil, fmt.Errorf("null value not allowed")
	default:
		return nil, fmt.Errorf("unsupported value type %T (want string, number or bool)", v)
	}
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
