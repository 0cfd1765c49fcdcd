package filter

import "github.com/kailas-cloud/retrievex/internal/domain"

// MaxConditionsPerGroup is the maximum number of conditions per filter group.
const MaxConditionsPerGroup = 32

// FieldKind is the index type of a filterable metadata field.
type FieldKind string

// Filterable field kinds.
const (
	KindTag     FieldKind = "tag"
	KindNumeric FieldKind = "numeric"
)

// Schema maps filterable metadata keys to their index kind.
type Schema map[string]FieldKind

// Expression is a structured metadata filter with must/should/must_not semantics.
type Expression struct {
	must    []Condition
	should  []Condition
	mustNot []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must, should, mustNot []Condition) (Expression, error) {
	if len(must) > MaxConditionsPerGroup {
		return Expression{}, domain.Invalid("too many must conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(should) > MaxConditionsPerGroup {
		return Expression{}, domain.Invalid("too many should conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(mustNot) > MaxConditionsPerGroup {
		return Expression{}, domain.Invalid("too many must_not conditions (max %d)", MaxConditionsPerGroup)
	}
	return Expression{must: must, should: should, mustNot: mustNot}, nil
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// Should returns the should conditions.
func (e Expression) Should() []Condition { return e.should }

// MustNot returns the must-not conditions.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.should) == 0 && len(e.mustNot) == 0
}

// Validate checks that every condition targets a known field of the matching kind.
// Only fields declared in the index schema can be pre-filtered by the store.
func (e Expression) Validate(schema Schema) error {
	for _, group := range [][]Condition{e.must, e.should, e.mustNot} {
		for _, c := range group {
			kind, ok := schema[c.key]
			if !ok {
				return domain.Invalid("unknown filter field %q", c.key)
			}
			if c.IsMatch() && kind != KindTag {
				return domain.Invalid("field %q is %s, match requires a tag field", c.key, kind)
			}
			if c.IsRange() && kind != KindNumeric {
				return domain.Invalid("field %q is %s, range requires a numeric field", c.key, kind)
			}
		}
	}
	return nil
}

// Condition is a single filter clause: either a tag match or a numeric range.
type Condition struct {
	key       string
	match     string
	rangeExpr *Range
}

// NewMatch creates an exact tag match condition.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, domain.Invalid("filter key is required")
	}
	if match == "" {
		return Condition{}, domain.Invalid("match value is required for key %q", key)
	}
	return Condition{key: key, match: match}, nil
}

// NewRange creates a numeric range condition.
func NewRange(key string, r Range) (Condition, error) {
	if key == "" {
		return Condition{}, domain.Invalid("filter key is required")
	}
	return Condition{key: key, rangeExpr: &r}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }

// Range returns the numeric range expression.
func (c Condition) Range() *Range { return c.rangeExpr }

// IsMatch reports whether this is a match condition.
func (c Condition) IsMatch() bool { return c.match != "" }

// IsRange reports whether this is a range condition.
func (c Condition) IsRange() bool { return c.rangeExpr != nil }

// Range is a numeric range with gt/gte/lt/lte boundaries.
type Range struct {
	gt  *float64
	gte *float64
	lt  *float64
	lte *float64
}

// NewRangeFilter validates and creates a Range.
// At least one boundary required. gt/gte and lt/lte are mutually exclusive.
func NewRangeFilter(gt, gte, lt, lte *float64) (Range, error) {
	if gt == nil && gte == nil && lt == nil && lte == nil {
		return Range{}, domain.Invalid("at least one range boundary is required")
	}
	if gt != nil && gte != nil {
		return Range{}, domain.Invalid("cannot specify both gt and gte")
	}
	if lt != nil && lte != nil {
		return Range{}, domain.Invalid("cannot specify both lt and lte")
	}
	return Range{gt: gt, gte: gte, lt: lt, lte: lte}, nil
}

// GT returns the lower exclusive bound.
func (r Range) GT() *float64 { return r.gt }

// GTE returns the lower inclusive bound.
func (r Range) GTE() *float64 { return r.gte }

// LT returns the upper exclusive bound.
func (r Range) LT() *float64 { return r.lt }

// LTE returns the upper inclusive bound.
func (r Range) LTE() *float64 { return r.lte }
