package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/retrievex/internal/db"
)

// CreateIndex runs FT.CREATE for def. An existing index is db.ErrIndexExists.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := BuildCreateArgs(def)
	if err != nil {
		return err
	}

	err = s.do(ctx, s.b().Arbitrary("FT.CREATE").Args(args...).Build()).Error()
	switch {
	case err == nil:
		return nil
	case isRedisErr(err, "index already exists"):
		return db.ErrIndexExists
	default:
		return WrapErr(db.OpCreateIndex, err)
	}
}

// DropIndex runs FT.DROPINDEX without DD: the document hashes stay in the keyspace.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	err := s.do(ctx, s.b().Arbitrary("FT.DROPINDEX").Args(name).Build()).Error()
	switch {
	case err == nil:
		return nil
	case isRedisErr(err, "unknown index name"):
		return db.ErrIndexNotFound
	default:
		return WrapErr(db.OpDropIndex, err)
	}
}

// IndexExists probes the index with FT.INFO.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	err := s.do(ctx, s.b().Arbitrary("FT.INFO").Args(name).Build()).Error()
	switch {
	case err == nil:
		return true, nil
	case isRedisErr(err, "unknown index name"):
		return false, nil
	default:
		return false, WrapErr(db.OpIndexInfo, err)
	}
}

// SupportsTextSearch reports TEXT field and BM25 support, always true on Redis 8+.
func (s *Store) SupportsTextSearch(_ context.Context) bool {
	return true
}

// BuildCreateArgs renders def as FT.CREATE arguments:
// name ON HASH [PREFIX n p...] [STOPWORDS 0] SCHEMA field...
func BuildCreateArgs(def *db.IndexDefinition) ([]string, error) {
	if def.Name == "" {
		return nil, errors.New("index name is required")
	}
	if len(def.Fields) == 0 {
		return nil, errors.New("at least one field is required")
	}

	storage := def.StorageType
	if storage == "" {
		storage = db.StorageHash
	}
	args := []string{def.Name, "ON", string(storage)}
	if n := len(def.Prefixes); n > 0 {
		args = append(args, "PREFIX", strconv.Itoa(n))
		args = append(args, def.Prefixes...)
	}
	if def.NoStopwords {
		args = append(args, "STOPWORDS", "0")
	}

	args = append(args, "SCHEMA")
	for i := range def.Fields {
		var err error
		if args, err = appendField(args, &def.Fields[i]); err != nil {
			return nil, fmt.Errorf("field %q: %w", def.Fields[i].Name, err)
		}
	}
	return args, nil
}

func appendField(args []string, f *db.IndexField) ([]string, error) {
	if f.Name == "" {
		return nil, errors.New("field name is required")
	}
	args = append(args, f.Name)
	if f.Alias != "" {
		args = append(args, "AS", f.Alias)
	}

	switch f.Type {
	case db.IndexFieldText:
		args = append(args, "TEXT")
		if f.TextNoStem {
			args = append(args, "NOSTEM")
		}
	case db.IndexFieldTag:
		args = append(args, "TAG")
		if f.TagSeparator != "" {
			args = append(args, "SEPARATOR", f.TagSeparator)
		}
		if f.TagCaseSensitive {
			args = append(args, "CASESENSITIVE")
		}
	case db.IndexFieldNumeric:
		args = append(args, "NUMERIC")
	case db.IndexFieldVector:
		attrs, err := vectorAttrs(f)
		if err != nil {
			return nil, err
		}
		args = append(args, "VECTOR", string(vectorAlgo(f)), strconv.Itoa(len(attrs)))
		args = append(args, attrs...)
	default:
		return nil, fmt.Errorf("unknown field type %d", f.Type)
	}
	return args, nil
}

func vectorAlgo(f *db.IndexField) db.VectorAlgorithm {
	if f.VectorAlgo == "" {
		return db.VectorFlat
	}
	return f.VectorAlgo
}

// vectorAttrs returns the attribute pairs that follow the attribute count.
// Stored vectors are FLOAT32 and compared by cosine distance unless set otherwise.
func vectorAttrs(f *db.IndexField) ([]string, error) {
	if f.VectorDim <= 0 {
		return nil, errors.New("vector DIM must be positive")
	}
	distance := f.VectorDistance
	if distance == "" {
		distance = db.DistanceCosine
	}

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(f.VectorDim),
		"DISTANCE_METRIC", string(distance),
	}
	optional := func(name string, v int) {
		if v > 0 {
			attrs = append(attrs, name, strconv.Itoa(v))
		}
	}
	switch vectorAlgo(f) {
	case db.VectorHNSW:
		optional("M", f.VectorM)
		optional("EF_CONSTRUCTION", f.VectorEFConstruct)
	case db.VectorFlat:
		optional("BLOCK_SIZE", f.VectorBlockSize)
	}
	return attrs, nil
}
