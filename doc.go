// Package retrievex is an embeddable retrieval client over Redis or Valkey
// with the search module.
//
// Texts are stored with their embedding and optional metadata, then found by
// lexical (BM25), semantic (KNN) or hybrid search. Hybrid runs both
// sub-queries concurrently and fuses min-max normalized scores with
// configurable weights; ties are broken by ascending id.
//
//	client, err := retrievex.New(ctx,
//	    retrievex.WithRedis("localhost:6379", ""),
//	    retrievex.WithOpenAI(os.Getenv("OPENAI_API_KEY"), "text-embedding-3-small"),
//	    retrievex.WithDimensions(1536),
//	    retrievex.WithFilterField("lang", retrievex.FieldTag),
//	)
//	defer client.Close()
//
//	_, _ = client.IngestBatch(ctx, []retrievex.Item{
//	    {Text: "the cat sat on the mat", Metadata: map[string]any{"lang": "en"}},
//	    {Text: "a feline rested", Metadata: map[string]any{"lang": "en"}},
//	})
//	hits, _ := client.Search(ctx, retrievex.Query{
//	    Text:    "cat",
//	    Mode:    retrievex.Hybrid,
//	    TopK:    5,
//	    Filters: retrievex.Filters{Must: []retrievex.Condition{retrievex.Match("lang", "en")}},
//	})
//
// Without WithOpenAI or WithEmbedder the client uses a deterministic hash
// embedder, which is useful for tests and local development but carries no
// semantics.
package retrievex
