package chi

import (
	"fmt"

	"github.com/kailas-cloud/retrievex/internal/domain"
	domdoc "github.com/kailas-cloud/retrievex/internal/domain/document"
	"github.com/kailas-cloud/retrievex/internal/domain/search/filter"
	"github.com/kailas-cloud/retrievex/internal/domain/search/result"
	"github.com/kailas-cloud/retrievex/internal/usecase/ingest"
)

type documentRequest struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type batchRequest struct {
	Items []documentRequest `json:"items"`
}

// ingestRequest carries several texts that share one metadata map.
type ingestRequest struct {
	Texts    []string       `json:"texts"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type updateRequest struct {
	Text     *string        `json:"text,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Partial  bool           `json:"partial,omitempty"`
}

type searchRequest struct {
	Query   string         `json:"query"`
	Mode    string         `json:"mode,omitempty"`
	TopK    *int           `json:"top_k,omitempty"`
	Filters *filterRequest `json:"filters,omitempty"`
	Vector  []float32      `json:"vector,omitempty"`
}

type filterRequest struct {
	Must    []conditionRequest `json:"must,omitempty"`
	Should  []conditionRequest `json:"should,omitempty"`
	MustNot []conditionRequest `json:"must_not,omitempty"`
}

type conditionRequest struct {
	Key   string        `json:"key"`
	Match *string       `json:"match,omitempty"`
	Range *rangeRequest `json:"range,omitempty"`
}

type rangeRequest struct {
	GT  *float64 `json:"gt,omitempty"`
	GTE *float64 `json:"gte,omitempty"`
	LT  *float64 `json:"lt,omitempty"`
	LTE *float64 `json:"lte,omitempty"`
}

type documentResponse struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

type batchResponse struct {
	Count     int                `json:"count"`
	Documents []documentResponse `json:"documents"`
}

type ingestResponse struct {
	InsertedCount int      `json:"inserted_count"`
	IDs           []string `json:"ids"`
}

type searchHit struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

type searchResponse struct {
	Mode    string      `json:"mode"`
	Results []searchHit `json:"results"`
}

type indexResponse struct {
	Name       string `json:"name"`
	Dimensions int    `json:"dimensions"`
	Documents  *int   `json:"documents,omitempty"`
	TextSearch bool   `json:"text_search"`
	Created    *bool  `json:"created,omitempty"`
}

type healthResponse struct {
	Status     string            `json:"status"`
	Checks     map[string]string `json:"checks"`
	Index      string            `json:"index"`
	Dimensions int               `json:"dimensions"`
	Provider   string            `json:"embedding_provider"`
	Fusion     string            `json:"fusion"`
	TextSearch bool              `json:"text_search"`
}

func (d documentRequest) toItem() ingest.Item {
	return ingest.Item{Text: d.Text, Metadata: d.Metadata}
}

func documentToResponse(doc domdoc.Document) documentResponse {
	meta := doc.Metadata()
	if meta == nil {
		meta = map[string]any{}
	}
	return documentResponse{ID: doc.ID(), Text: doc.Text(), Metadata: meta}
}

func resultsToResponse(results []result.Result) []searchHit {
	hits := make([]searchHit, 0, len(results))
	for i := range results {
		meta := results[i].Metadata()
		if meta == nil {
			meta = map[string]any{}
		}
		hits = append(hits, searchHit{
			ID:       results[i].ID(),
			Score:    results[i].Score(),
			Text:     results[i].Text(),
			Metadata: meta,
		})
	}
	return hits
}

func (f *filterRequest) toExpression() (filter.Expression, error) {
	if f == nil {
		return filter.Expression{}, nil
	}
	must, err := conditionsFromRequest(f.Must)
	if err != nil {
		return filter.Expression{}, err
	}
	should, err := conditionsFromRequest(f.Should)
	if err != nil {
		return filter.Expression{}, err
	}
	mustNot, err := conditionsFromRequest(f.MustNot)
	if err != nil {
		return filter.Expression{}, err
	}
	return filter.NewExpression(must, should, mustNot)
}

func conditionsFromRequest(cs []conditionRequest) ([]filter.Condition, error) {
	if len(cs) == 0 {
		return nil, nil
	}
	out := make([]filter.Condition, 0, len(cs))
	for _, c := range cs {
		cond, err := c.toCondition()
		if err != nil {
			return nil, err
		}
		out = append(out, cond)
	}
	return out, nil
}

func (c conditionRequest) toCondition() (filter.Condition, error) {
	switch {
	case c.Match != nil && c.Range != nil:
		return filter.Condition{},
			domain.Invalid("filter condition for %q must have match or range, not both", c.Key)
	case c.Match != nil:
		cond, err := filter.NewMatch(c.Key, *c.Match)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("match filter: %w", err)
		}
		return cond, nil
	case c.Range != nil:
		rf, err := filter.NewRangeFilter(c.Range.GT, c.Range.GTE, c.Range.LT, c.Range.LTE)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("range filter: %w", err)
		}
		cond, err := filter.NewRange(c.Key, rf)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("range condition: %w", err)
		}
		return cond, nil
	default:
		return filter.Condition{}, domain.Invalid("filter condition for %q must have either match or range", c.Key)
	}
}
