// Package storage persists chunks, embeddings, and synchronization state
// behind a key-value contract.
//
// The pipeline consumes only the Store interface (Get, Put, Delete, Scan,
// and transactional Update), so the concrete engine is swappable. Two
// implementations ship: SQLiteStore (a single kv table with WAL and
// semver-gated migrations) and MemoryStore (tests and ephemeral runs).
//
// # Key Namespaces
//
// Records are namespaced by key prefix and enumerated by prefix scan:
//
//	chunk:<stablekey>      serialized DocumentChunk
//	embedding:<stablekey>  serialized EmbeddingRecord
//	sync:<stablekey>       serialized SyncState
//	doc:<docid>            source document content hash
//	meta:<name>            store-level metadata
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStore("sdkdocs.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	err = storage.PutJSON(ctx, store, storage.ChunkKey(chunk.StableKey()), chunk)
//
//	states, err := store.Scan(ctx, storage.PrefixSync)
//
// # Drivers
//
// The SQLite driver is selected at build time: modernc.org/sqlite (pure Go,
// default) or mattn/go-sqlite3 (CGO, -tags sqlite_cgo).
package storage
