package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/dshills/sdkdocs-mcp/internal/indexer"
	"github.com/dshills/sdkdocs-mcp/internal/storage"
	"github.com/dshills/sdkdocs-mcp/pkg/types"
)

// IndexingTestSuite exercises the full ingest pipeline against the SDK
// documentation fixtures: parse, chunk, synchronize, embed, persist.
type IndexingTestSuite struct {
	suite.Suite
	pipe        *pipeline
	fixturesDir string
	ctx         context.Context
}

// SetupSuite runs once before all tests
func (s *IndexingTestSuite) SetupSuite() {
	s.ctx = context.Background()

	wd, err := os.Getwd()
	s.Require().NoError(err)
	s.fixturesDir = filepath.Join(filepath.Dir(wd), "testdata", "fixtures")

	_, err = os.Stat(s.fixturesDir)
	s.Require().NoError(err, "fixtures directory should exist")
}

// SetupTest runs before each test
func (s *IndexingTestSuite) SetupTest() {
	pipe, err := newPipeline(":memory:")
	s.Require().NoError(err)
	s.pipe = pipe
}

// TearDownTest runs after each test
func (s *IndexingTestSuite) TearDownTest() {
	if s.pipe != nil {
		s.pipe.close()
	}
}

// TestFullIndexing runs the pipeline over the fixture tree and checks
// the summary against the stored state.
func (s *IndexingTestSuite) TestFullIndexing() {
	docs, err := indexer.LoadDirectory(s.fixturesDir)
	s.Require().NoError(err)
	s.Require().Len(docs, 4)
	s.Equal("auth-api.json", docs[0].ID)
	s.Equal("guides/webhooks.md", docs[3].ID)

	summary, err := s.pipe.indexer.Run(s.ctx, docs)
	s.Require().NoError(err)

	s.Equal(4, summary.DocumentsParsed)
	s.Zero(summary.Skipped)
	s.Zero(summary.UnitsInvalid)
	s.Empty(summary.Errors)
	s.Greater(summary.ChunksCreated, 15, "two specs and two guides produce a sizable chunk set")
	s.Equal(summary.ChunksCreated, summary.Indexed, "every chunk needs an embedding on the first run")
	s.Zero(summary.Updated)
	s.Zero(summary.Unchanged)
	s.Zero(summary.Orphaned)
	s.Zero(summary.EmbeddingsFailed)

	chunks, err := s.pipe.store.Scan(s.ctx, storage.PrefixChunk)
	s.Require().NoError(err)
	s.Len(chunks, summary.ChunksCreated)

	stored, err := s.pipe.store.Scan(s.ctx, storage.PrefixDoc)
	s.Require().NoError(err)
	s.Len(stored, 4)

	stats, err := s.pipe.tracker.Status(s.ctx)
	s.Require().NoError(err)
	s.Equal(summary.ChunksCreated, stats.Completed)
	s.Zero(stats.Pending)
	s.Zero(stats.Failed)

	s.Equal(summary.ChunksCreated, s.pipe.searcher.ChunkCount())
}

// TestChunkIdentity checks stable keys and derived metadata for known
// fixture content.
func (s *IndexingTestSuite) TestChunkIdentity() {
	docs, err := indexer.LoadDirectory(s.fixturesDir)
	s.Require().NoError(err)
	_, err = s.pipe.indexer.Run(s.ctx, docs)
	s.Require().NoError(err)

	send, ok := s.pipe.searcher.GetChunk("method:messaging:chatclient:sendmessage")
	s.Require().True(ok)
	s.Equal(types.ImportanceHigh, send.Metadata.Importance)
	s.Contains(send.Metadata.Dependencies, "connect", "messaging methods depend on an open connection")
	s.Contains(send.Content, "payload size limit")

	create, ok := s.pipe.searcher.GetChunk("method:auth:tokenprovider:createtoken")
	s.Require().True(ok)
	s.Equal(types.ImportanceCritical, create.Metadata.Importance)

	raw, ok := s.pipe.searcher.GetChunk("method:messaging:chatclient:sendraw")
	s.Require().True(ok)
	s.True(raw.Metadata.HasTag("deprecated"))

	_, ok = s.pipe.searcher.GetChunk("class:messaging:chatclient")
	s.True(ok, "class overviews index as their own chunks")

	receipt, ok := s.pipe.searcher.GetChunk("type:messaging:receipt")
	s.Require().True(ok)
	s.Equal(types.ContentTypeDef, receipt.Metadata.Type)

	workflow, ok := s.pipe.searcher.GetChunk("example:guides:webhook-event-delivery")
	s.Require().True(ok)
	s.Equal(types.ImportanceHigh, workflow.Metadata.Importance)
	s.True(workflow.Metadata.HasTag("workflow"))

	section, ok := s.pipe.searcher.GetChunk("example:guides:connecting")
	s.Require().True(ok)
	s.True(section.Metadata.HasTag("guide"))
	s.True(section.Metadata.HasTag("quickstart"))
}

// TestIncrementalRun verifies the unchanged-document short circuit.
func (s *IndexingTestSuite) TestIncrementalRun() {
	docs, err := indexer.LoadDirectory(s.fixturesDir)
	s.Require().NoError(err)

	first, err := s.pipe.indexer.Run(s.ctx, docs)
	s.Require().NoError(err)

	second, err := s.pipe.indexer.Run(s.ctx, docs)
	s.Require().NoError(err)
	s.Zero(second.DocumentsParsed, "unchanged documents skip parsing")
	s.Equal(4, second.Skipped)
	s.Zero(second.Indexed)
	s.Zero(second.Updated)
	s.Equal(first.ChunksCreated, second.Unchanged)
	s.Zero(second.Orphaned)
}

// TestModifiedDocumentReindexes appends a paragraph to one guide and
// checks that exactly the touched chunk is re-embedded.
func (s *IndexingTestSuite) TestModifiedDocumentReindexes() {
	tempDir := s.T().TempDir()
	s.Require().NoError(copyFixtures(s.fixturesDir, tempDir))

	docs, err := indexer.LoadDirectory(tempDir)
	s.Require().NoError(err)
	first, err := s.pipe.indexer.Run(s.ctx, docs)
	s.Require().NoError(err)

	guide := filepath.Join(tempDir, "guides", "getting-started.md")
	content, err := os.ReadFile(guide)
	s.Require().NoError(err)
	content = append(content, []byte("\nRetryable codes are listed in the error reference.\n")...)
	s.Require().NoError(os.WriteFile(guide, content, 0o644))

	docs, err = indexer.LoadDirectory(tempDir)
	s.Require().NoError(err)
	second, err := s.pipe.indexer.Run(s.ctx, docs)
	s.Require().NoError(err)

	s.Equal(1, second.DocumentsParsed, "only the modified document reparses")
	s.Equal(3, second.Skipped)
	s.Equal(1, second.Updated, "the appended paragraph lands in one section chunk")
	s.Equal(first.ChunksCreated-1, second.Unchanged)
	s.Zero(second.Indexed)
	s.Zero(second.Orphaned)
	s.Zero(second.EmbeddingsFailed)

	chunk, ok := s.pipe.searcher.GetChunk("example:guides:handling-failures")
	s.Require().True(ok)
	s.Contains(chunk.Content, "error reference")
}

// TestRemovedDocumentOrphansChunks deletes a source document and checks
// that its chunks leave the store and the search index.
func (s *IndexingTestSuite) TestRemovedDocumentOrphansChunks() {
	tempDir := s.T().TempDir()
	s.Require().NoError(copyFixtures(s.fixturesDir, tempDir))

	docs, err := indexer.LoadDirectory(tempDir)
	s.Require().NoError(err)
	first, err := s.pipe.indexer.Run(s.ctx, docs)
	s.Require().NoError(err)

	s.Require().NoError(os.Remove(filepath.Join(tempDir, "auth-api.json")))

	docs, err = indexer.LoadDirectory(tempDir)
	s.Require().NoError(err)
	second, err := s.pipe.indexer.Run(s.ctx, docs)
	s.Require().NoError(err)

	s.Equal(5, second.Orphaned, "the auth class, its three methods, and one type def")
	s.Equal(3, second.Skipped)

	_, ok := s.pipe.searcher.GetChunk("method:auth:tokenprovider:createtoken")
	s.False(ok, "orphaned chunks leave the search index")

	stored, err := s.pipe.store.Scan(s.ctx, storage.PrefixDoc)
	s.Require().NoError(err)
	s.Len(stored, 3, "the removed document's record is dropped")

	s.Equal(first.ChunksCreated-5, s.pipe.searcher.ChunkCount())
}

// TestParseFailureKeepsLastGoodChunks corrupts a spec and checks the
// previous good state stays indexed.
func (s *IndexingTestSuite) TestParseFailureKeepsLastGoodChunks() {
	tempDir := s.T().TempDir()
	s.Require().NoError(copyFixtures(s.fixturesDir, tempDir))

	docs, err := indexer.LoadDirectory(tempDir)
	s.Require().NoError(err)
	first, err := s.pipe.indexer.Run(s.ctx, docs)
	s.Require().NoError(err)

	spec := filepath.Join(tempDir, "chat-api.json")
	s.Require().NoError(os.WriteFile(spec, []byte("{ this is not json"), 0o644))

	docs, err = indexer.LoadDirectory(tempDir)
	s.Require().NoError(err)
	second, err := s.pipe.indexer.Run(s.ctx, docs)
	s.Require().NoError(err, "per-document failures never abort the run")

	s.Require().Len(second.Errors, 1)
	s.Contains(second.Errors[0], "chat-api.json")
	s.Zero(second.DocumentsParsed)
	s.Equal(3, second.Skipped)
	s.Zero(second.Orphaned, "the failed document's stored chunks stay indexed")
	s.Equal(first.ChunksCreated, second.Unchanged)

	_, ok := s.pipe.searcher.GetChunk("method:messaging:chatclient:sendmessage")
	s.True(ok, "last good chunks remain searchable until the source is fixed")
}

// TestConcurrentRunsRejected drives two simultaneous runs at one
// indexer and checks the loser fails fast.
func (s *IndexingTestSuite) TestConcurrentRunsRejected() {
	docs, err := indexer.LoadDirectory(s.fixturesDir)
	s.Require().NoError(err)

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := s.pipe.indexer.Run(s.ctx, docs)
			results <- err
		}()
	}

	var success, busy int
	timeout := time.NewTimer(30 * time.Second)
	defer timeout.Stop()
	for i := 0; i < 2; i++ {
		select {
		case err := <-results:
			switch {
			case err == nil:
				success++
			case errors.Is(err, indexer.ErrIndexInProgress):
				busy++
			default:
				s.Failf("unexpected error", "%v", err)
			}
		case <-timeout.C:
			s.FailNow("timed out waiting for concurrent runs")
		}
	}

	s.GreaterOrEqual(success, 1, "at least one run acquires the lock")
	s.Equal(2, success+busy)
}

// TestPersistenceAcrossReopen indexes into a file-backed store, reopens
// it, and checks both search state and the incremental short circuit
// survive.
func (s *IndexingTestSuite) TestPersistenceAcrossReopen() {
	dbPath := filepath.Join(s.T().TempDir(), "sdkdocs.db")
	pipe, err := newPipeline(dbPath)
	s.Require().NoError(err)

	docs, err := indexer.LoadDirectory(s.fixturesDir)
	s.Require().NoError(err)
	first, err := pipe.indexer.Run(s.ctx, docs)
	s.Require().NoError(err)
	pipe.close()

	reopened, err := newPipeline(dbPath)
	s.Require().NoError(err)
	defer reopened.close()

	s.Require().NoError(reopened.searcher.Reindex(s.ctx))
	s.Equal(first.ChunksCreated, reopened.searcher.ChunkCount())

	chunk, ok := reopened.searcher.GetChunk("method:messaging:chatclient:connect")
	s.Require().True(ok)
	s.NotEmpty(chunk.Content)

	summary, err := reopened.indexer.Run(s.ctx, docs)
	s.Require().NoError(err)
	s.Equal(4, summary.Skipped, "document hashes survive the reopen")
	s.Zero(summary.Indexed)
}

// TestEmptyDirectory indexes nothing and succeeds.
func (s *IndexingTestSuite) TestEmptyDirectory() {
	docs, err := indexer.LoadDirectory(s.T().TempDir())
	s.Require().NoError(err)
	s.Empty(docs)

	summary, err := s.pipe.indexer.Run(s.ctx, docs)
	s.Require().NoError(err)
	s.Zero(summary.DocumentsParsed)
	s.Zero(summary.ChunksCreated)
}

// TestIndexingTestSuite runs the suite
func TestIndexingTestSuite(t *testing.T) {
	suite.Run(t, new(IndexingTestSuite))
}
