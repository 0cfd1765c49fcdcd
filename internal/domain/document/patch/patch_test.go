package patch

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kailas-cloud/retrievex/internal/domain"
	"github.com/kailas-cloud/retrievex/internal/domain/document"
)

func strPtr(s string) *string { return &s }

func TestNew_TextOnly(t *testing.T) {
	p, err := New(strPtr("new text"), nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.HasText() {
		t.Error("HasText() = false, want true")
	}
	if *p.Text() != "new text" {
		t.Errorf("Text() = %q", *p.Text())
	}
	if p.HasMetadata() {
		t.Error("HasMetadata() = true, want false")
	}
}

func TestNew_Empty(t *testing.T) {
	if _, err := New(nil, nil, false); err == nil {
		t.Fatal("expected error for empty patch")
	}
}

func TestNew_InvalidText(t *testing.T) {
	if _, err := New(strPtr(""), nil, false); err == nil {
		t.Fatal("expected error for empty text")
	}
	_, err := New(strPtr(strings.Repeat("x", 163841)), nil, false)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("expected too large error, got %v", err)
	}
}

func TestNew_NullRequiresPartial(t *testing.T) {
	if _, err := New(nil, map[string]any{"k": nil}, false); err == nil {
		t.Fatal("expected error for null in full replace")
	}
	if _, err := New(nil, map[string]any{"k": nil}, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_NestedRejected(t *testing.T) {
	if _, err := New(nil, map[string]any{"k": []any{"a"}}, true); err == nil {
		t.Fatal("expected error for array value")
	}
}

func TestApplyMetadata_FullReplace(t *testing.T) {
	p, err := New(nil, map[string]any{"b": "2"}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := p.ApplyMetadata(map[string]any{"a": "1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got["b"] != "2" {
		t.Errorf("ApplyMetadata() = %v, want only b", got)
	}
}

func TestApplyMetadata_FullReplaceClears(t *testing.T) {
	p, err := New(nil, map[string]any{}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, err := p.ApplyMetadata(map[string]any{"a": "1"}); err != nil || len(got) != 0 {
		t.Errorf("ApplyMetadata() = %v, want empty", got)
	}
}

func TestApplyMetadata_Partial(t *testing.T) {
	p, err := New(nil, map[string]any{"b": 3, "a": nil}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	current := map[string]any{"a": "1", "c": true}
	got, err := p.ApplyMetadata(current)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := got["a"]; ok {
		t.Error("a should be deleted")
	}
	if got["b"] != float64(3) {
		t.Errorf("b = %#v", got["b"])
	}
	if got["c"] != true {
		t.Error("c should be kept")
	}
	if current["a"] != "1" {
		t.Error("current must not be mutated")
	}
}

func TestApplyMetadata_Untouched(t *testing.T) {
	p, _ := New(strPtr("t"), nil, false)
	current := map[string]any{"a": "1"}
	if got, err := p.ApplyMetadata(current); err != nil || got["a"] != "1" {
		t.Errorf("ApplyMetadata() = %v", got)
	}
}

func TestApplyMetadata_PartialMergeOverKeyLimit(t *testing.T) {
	current := make(map[string]any, document.MaxMetadataKeys)
	for i := range document.MaxMetadataKeys {
		current[fmt.Sprintf("k%d", i)] = i
	}
	p, err := New(nil, map[string]any{"extra": "x"}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = p.ApplyMetadata(current)
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}

	// Deleting one key in the same patch keeps the merge within the limit.
	p, err = New(nil, map[string]any{"extra": "x", "k0": nil}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := p.ApplyMetadata(current)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != document.MaxMetadataKeys {
		t.Errorf("len = %d, want %d", len(got), document.MaxMetadataKeys)
	}
}
