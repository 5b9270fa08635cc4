// Package searcher answers queries over indexed SDK documentation by
// fusing two independent scoring paths.
//
// The lexical path runs the query through an in-memory bleve full-text
// index and normalizes BM25 scores against the top hit. The semantic
// path embeds the query and ranks stored chunk vectors by cosine
// similarity. Both paths run concurrently and their scores combine as
//
//	fused = lexical*lexicalWeight + semantic*semanticWeight
//
// with weights summing to 1.0. A chunk found by only one path keeps
// that path's weighted score. Critical and high importance chunks get
// a small deterministic boost, capped so every score stays in [0,1].
//
// # Degradation
//
// When one path fails mid-query, the searcher logs a warning and ranks
// from the surviving path alone; only both paths failing surfaces an
// error. Constructing the service without an embedding service runs
// every search lexical-only, which keeps the server useful before any
// embeddings exist or when no provider is configured.
//
// # Consistency
//
// Reindex rebuilds the full in-memory state from the store and swaps
// it atomically, so queries observe either the old index or the new
// one, never a mix. Responses are cached per normalized request with a
// TTL; the cache is purged on every reindex.
//
// # Basic Usage
//
//	svc := searcher.NewService(store, emb, cfg.Search, log)
//	if err := svc.Reindex(ctx); err != nil {
//		return err
//	}
//	res, err := svc.Search(ctx, searcher.Request{
//		Query:    "join a channel",
//		Semantic: true,
//		Filters:  searcher.Filters{Namespace: "messaging"},
//	})
package searcher
