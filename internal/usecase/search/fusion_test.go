package search

import (
	"slices"
	"testing"

	"github.com/kailas-cloud/retrievex/internal/domain/search/result"
)

func TestNormalize(t *testing.T) {
	got := normalize([]result.Result{hit("a", 10), hit("b", 5), hit("c", 0)})
	want := map[string]float64{"a": 1, "b": 0.5, "c": 0}
	for id, w := range want {
		if got[id] != w {
			t.Errorf("normalize[%s] = %v, want %v", id, got[id], w)
		}
	}
}

func TestNormalize_AllEqual(t *testing.T) {
	got := normalize([]result.Result{hit("a", 0.3), hit("b", 0.3)})
	if got["a"] != 1 || got["b"] != 1 {
		t.Fatalf("equal scores must normalize to 1.0, got %v", got)
	}
}

func TestNormalize_Empty(t *testing.T) {
	if got := normalize(nil); len(got) != 0 {
		t.Fatalf("expected empty map, got %v", got)
	}
}

func TestFuseWeighted_ScaleInvariant(t *testing.T) {
	lex := []result.Result{hit("a", 1000), hit("b", 500)}
	sem := []result.Result{hit("b", 0.002), hit("a", 0.001)}

	results := fuseWeighted(lex, sem, 0.7, 0.3, 10)
	// a: 0.7*1 + 0.3*0 = 0.7 ; b: 0.7*0 + 0.3*1 = 0.3
	if !slices.Equal(ids(results), []string{"a", "b"}) {
		t.Fatalf("expected [a b], got %v", ids(results))
	}
	if results[0].Score() != 0.7 {
		t.Errorf("expected 0.7, got %v", results[0].Score())
	}
}

func TestFuseWeighted_SingleListEligible(t *testing.T) {
	results := fuseWeighted(nil, []result.Result{hit("x", 0.4)}, 0.5, 0.5, 5)
	if len(results) != 1 || results[0].ID() != "x" || results[0].Score() != 0.5 {
		t.Fatalf("unexpected results %v", results)
	}
}

func TestFuseWeighted_KeepsHitPayload(t *testing.T) {
	lex := []result.Result{result.New("a", 2, "lexical text", map[string]any{"type": "animal"})}
	results := fuseWeighted(lex, nil, 0.5, 0.5, 5)
	if results[0].Text() != "lexical text" || results[0].Metadata()["type"] != "animal" {
		t.Fatalf("payload lost: %+v", results[0])
	}
}

func TestFuseWeighted_Truncates(t *testing.T) {
	lex := []result.Result{hit("a", 3), hit("b", 2), hit("c", 1)}
	if got := fuseWeighted(lex, nil, 0.5, 0.5, 2); len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
}

func TestRank_Deterministic(t *testing.T) {
	in := []result.Result{hit("d", 1), hit("b", 2), hit("a", 1), hit("c", 2)}
	got := rank(in, 10)
	if !slices.Equal(ids(got), []string{"b", "c", "a", "d"}) {
		t.Fatalf("expected [b c a d], got %v", ids(got))
	}
}
