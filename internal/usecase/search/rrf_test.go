package search

import (
	"math"
	"slices"
	"testing"

	"github.com/kailas-cloud/retrievex/internal/domain/search/result"
)

func TestFuseRRF_DisjointLists(t *testing.T) {
	lex := []result.Result{hit("a", 0), hit("b", 0)}
	sem := []result.Result{hit("c", 0), hit("d", 0)}

	results := fuseRRF(lex, sem, 10)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	// Equal ranks tie and fall back to id order.
	if !slices.Equal(ids(results), []string{"a", "c", "b", "d"}) {
		t.Fatalf("expected [a c b d], got %v", ids(results))
	}
}

func TestFuseRRF_OverlappingLists(t *testing.T) {
	lex := []result.Result{hit("a", 0), hit("b", 0), hit("c", 0)}
	sem := []result.Result{hit("b", 0), hit("d", 0), hit("a", 0)}

	results := fuseRRF(lex, sem, 10)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}

	// "a": 1/61 + 1/63 ; "b": 1/62 + 1/61
	if results[0].ID() != "b" || results[1].ID() != "a" {
		t.Fatalf("expected b then a, got %v", ids(results))
	}
	want := 1.0/61 + 1.0/62
	if math.Abs(results[0].Score()-want) > 1e-12 {
		t.Errorf("expected score %v, got %v", want, results[0].Score())
	}
}

func TestFuseRRF_TopK(t *testing.T) {
	lex := []result.Result{hit("a", 0), hit("b", 0), hit("c", 0)}
	results := fuseRRF(lex, nil, 2)
	if !slices.Equal(ids(results), []string{"a", "b"}) {
		t.Fatalf("expected [a b], got %v", ids(results))
	}
}

func TestFuseRRF_Empty(t *testing.T) {
	results := fuseRRF(nil, nil, 5)
	if results == nil || len(results) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", results)
	}
}
