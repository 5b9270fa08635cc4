// Package embedder generates vector embeddings for documentation chunks.
//
// A Provider turns batches of text into vectors; the Service owns
// batching, pacing, retry, caching, and progress tracking on top of
// whichever provider is configured.
//
// # Basic Usage
//
//	provider, err := embedder.NewFromEnv(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svc := embedder.NewService(provider, tracker, cfg.Embedding, logger)
//	defer svc.Close()
//
//	report, err := svc.GenerateEmbeddings(ctx, result.NeedsEmbedding())
//	if err != nil {
//	    log.Fatal(err) // tracker failure or cancellation, never a provider error
//	}
//	fmt.Printf("embedded %d chunks, %d tokens\n", len(report.Results), report.TotalTokens)
//
// # Failure Model
//
// Provider calls retry with exponential backoff. A batch that exhausts
// its retries is marked failed in the tracker, listed in the Report, and
// the run continues with the next batch: one bad batch never discards
// the rest of the run. Chunks in successful batches are marked completed
// the moment their batch lands, so an interrupted run resumes from the
// tracker instead of starting over. The only errors GenerateEmbeddings
// returns are tracker persistence failures and context cancellation.
//
// # Provider Selection
//
// The factory selects a provider from the environment:
//
//  1. If SDKDOCS_EMBEDDING_PROVIDER is set, use that provider
//  2. Else if OPENAI_API_KEY is set, use OpenAI
//  3. Else if GEMINI_API_KEY is set, use Gemini
//  4. Else fall back to the local provider (offline mode)
//
// The local provider derives deterministic vectors from content hashes.
// They carry no semantic meaning, but they make offline runs and tests
// reproducible end to end.
//
// # Embedding Input
//
// Chunk content is prefixed with its metadata (type, namespace, class,
// method) before embedding, so vectors encode where content lives as
// well as what it says. Inputs are truncated to the model budget using
// the chars/4 token approximation.
package embedder
