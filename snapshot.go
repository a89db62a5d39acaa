// ═══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT STORE: Durable Save/Restore Contract
// ═══════════════════════════════════════════════════════════════════════════════
// Two backends implement this contract: MemoryStore (process-local map, the
// default) and BoltStore (go.etcd.io/bbolt, standing in for a browser's
// IndexedDB). BoltStore keeps two buckets, "searchIndices" (blobs keyed by
// id, each stamped with its write timestamp) and "metadata" (one record
// carrying lastUpdated); MemoryStore keeps a plain map and one metadata
// record. Neither backend indexes lastUpdated, and no method of this
// contract looks entries up by timestamp.
// ═══════════════════════════════════════════════════════════════════════════════
package blaze

import "context"

// IndexMetadata is the record stored alongside a snapshot: the config that
// produced it and when it was last updated.
type IndexMetadata struct {
	ID          string      `json:"id"`
	Config      IndexConfig `json:"config"`
	LastUpdated int64       `json:"lastUpdated"`
}

// SnapshotStore is the durable persistence contract for index snapshots.
// Implementations must make Initialize idempotent and Close safe to call
// multiple times.
type SnapshotStore interface {
	Initialize(ctx context.Context) error
	StoreIndex(ctx context.Context, key string, blob []byte) error
	GetIndex(ctx context.Context, key string) ([]byte, error) // nil, nil on miss
	UpdateMetadata(ctx context.Context, meta IndexMetadata) error
	GetMetadata(ctx context.Context) (*IndexMetadata, error) // nil, nil on miss
	ClearIndices(ctx context.Context) error
	DeleteIndex(ctx context.Context, key string) error
	Close() error
}
