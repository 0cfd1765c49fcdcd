package redis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/retrievex/internal/db"
)

func testIndex(t *testing.T) *db.IndexDefinition {
	t.Helper()
	idx, err := db.NewIndex("phrases").
		Prefix("retrievex:phrases:").
		NoStopwords().
		VerbatimText("__content").
		Tag("lang").
		Vector("__vector", "vector", 64, db.VectorHNSW, db.DistanceCosine, 16, 200).
		Build()
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	return idx
}

func TestBuildCreateArgs(t *testing.T) {
	args, err := BuildCreateArgs(testIndex(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "phrases ON HASH PREFIX 1 retrievex:phrases: STOPWORDS 0 SCHEMA __content TEXT NOSTEM lang TAG " +
		"__vector AS vector VECTOR HNSW 10 TYPE FLOAT32 DIM 64 DISTANCE_METRIC COSINE M 16 EF_CONSTRUCTION 200"
	if got := strings.Join(args, " "); got != want {
		t.Errorf("args =\n%s\nwant\n%s", got, want)
	}
}

func TestBuildCreateArgs_Validation(t *testing.T) {
	if _, err := BuildCreateArgs(&db.IndexDefinition{}); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := BuildCreateArgs(&db.IndexDefinition{Name: "x"}); err == nil {
		t.Error("expected error for no fields")
	}
}

func TestBuildCreateArgs_FlatDefaults(t *testing.T) {
	args, err := BuildCreateArgs(&db.IndexDefinition{
		Name:   "idx",
		Fields: []db.IndexField{{Name: "v", Type: db.IndexFieldVector, VectorDim: 8, VectorBlockSize: 512}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "idx ON HASH SCHEMA v VECTOR FLAT 8 TYPE FLOAT32 DIM 8 DISTANCE_METRIC COSINE BLOCK_SIZE 512"
	if got := strings.Join(args, " "); got != want {
		t.Errorf("args =\n%s\nwant\n%s", got, want)
	}

	_, err = BuildCreateArgs(&db.IndexDefinition{
		Name:   "idx",
		Fields: []db.IndexField{{Name: "v", Type: db.IndexFieldVector}},
	})
	if err == nil || !strings.Contains(err.Error(), `field "v"`) {
		t.Errorf("expected DIM error naming the field, got %v", err)
	}
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.Result(mock.RedisError("Index already exists")))

	s := NewStoreForTest(c)
	err := s.CreateIndex(context.Background(), testIndex(t))
	if !errors.Is(err, db.ErrIndexExists) {
		t.Errorf("expected ErrIndexExists, got %v", err)
	}
}

func TestDropIndex_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.DROPINDEX", "phrases")).
		Return(mock.Result(mock.RedisError("Unknown Index name")))

	s := NewStoreForTest(c)
	if err := s.DropIndex(context.Background(), "phrases"); !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestIndexExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "phrases")).
		Return(mock.Result(mock.RedisArray(mock.RedisString("index_name"), mock.RedisString("phrases"))))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "missing")).
		Return(mock.Result(mock.RedisError("Unknown index name")))

	s := NewStoreForTest(c)
	if ok, err := s.IndexExists(context.Background(), "phrases"); err != nil || !ok {
		t.Errorf("IndexExists(phrases) = %v, %v", ok, err)
	}
	if ok, err := s.IndexExists(context.Background(), "missing"); err != nil || ok {
		t.Errorf("IndexExists(missing) = %v, %v", ok, err)
	}
}

func TestSupportsTextSearch(t *testing.T) {
	if !NewStoreForTest(nil).SupportsTextSearch(context.Background()) {
		t.Error("redis supports text search")
	}
}
