package blaze

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"go.etcd.io/bbolt"
)

var (
	searchIndicesBucket = []byte("searchIndices")
	metadataBucket      = []byte("metadata")
	metadataKey         = []byte("metadata")
)

// boltIndexRecord is what actually lives in searchIndicesBucket: the blob
// plus its write timestamp, so the timestamp secondary index can be
// rebuilt from a bucket scan after a restart.
type boltIndexRecord struct {
	Blob      []byte `json:"blob"`
	Timestamp int64  `json:"timestamp"`
}

// BoltStore is the durable SnapshotStore backend, embedding bbolt as the
// stand-in for a browser's IndexedDB. bbolt has no native secondary index,
// so the searchIndices keys are mirrored in an in-memory sidecar sorted by
// timestamp, rebuilt at Initialize and kept current on every write. There
// is no lastUpdated sidecar, and no method reads the timestamp one.
type BoltStore struct {
	db *bbolt.DB

	mu         sync.RWMutex
	byTimestamp []timestampEntry // sorted ascending by Timestamp
}

type timestampEntry struct {
	Key       string
	Timestamp int64
}

// NewBoltStore opens (creating if absent) a bbolt database at path with
// the two buckets this store needs.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(searchIndicesBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(metadataBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, &StorageError{Op: "create buckets", Err: err}
	}
	return &BoltStore{db: db}, nil
}

// Initialize rebuilds the in-memory timestamp sidecar from the on-disk
// bucket contents.
func (s *BoltStore) Initialize(ctx context.Context) error {
	var entries []timestampEntry
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(searchIndicesBucket)
		return b.ForEach(func(k, v []byte) error {
			var rec boltIndexRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			entries = append(entries, timestampEntry{Key: string(k), Timestamp: rec.Timestamp})
			return nil
		})
	})
	if err != nil {
		return &StorageError{Op: "initialize", Err: err}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Timestamp < entries[j].Timestamp })

	s.mu.Lock()
	s.byTimestamp = entries
	s.mu.Unlock()
	return nil
}

// StoreIndex writes blob under key, stamping it with the current time and
// updating the timestamp sidecar.
func (s *BoltStore) StoreIndex(ctx context.Context, key string, blob []byte) error {
	rec := boltIndexRecord{Blob: blob, Timestamp: nowMillis()}
	data, err := json.Marshal(rec)
	if err != nil {
		return &StorageError{Op: "storeIndex", Err: err}
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(searchIndicesBucket).Put([]byte(key), data)
	})
	if err != nil {
		return &StorageError{Op: "storeIndex", Err: err}
	}

	s.mu.Lock()
	s.upsertTimestampLocked(key, rec.Timestamp)
	s.mu.Unlock()
	return nil
}

func (s *BoltStore) upsertTimestampLocked(key string, ts int64) {
	for i, e := range s.byTimestamp {
		if e.Key == key {
			s.byTimestamp = append(s.byTimestamp[:i], s.byTimestamp[i+1:]...)
			break
		}
	}
	idx := sort.Search(len(s.byTimestamp), func(i int) bool { return s.byTimestamp[i].Timestamp >= ts })
	s.byTimestamp = append(s.byTimestamp, timestampEntry{})
	copy(s.byTimestamp[idx+1:], s.byTimestamp[idx:])
	s.byTimestamp[idx] = timestampEntry{Key: key, Timestamp: ts}
}

// GetIndex returns the blob for key, or (nil, nil) if absent.
func (s *BoltStore) GetIndex(ctx context.Context, key string) ([]byte, error) {
	var result []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(searchIndicesBucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		var rec boltIndexRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return err
		}
		result = rec.Blob
		return nil
	})
	if err != nil {
		return nil, &StorageError{Op: "getIndex", Err: err}
	}
	return result, nil
}

// UpdateMetadata replaces the stored config/lastUpdated record.
func (s *BoltStore) UpdateMetadata(ctx context.Context, meta IndexMetadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return &StorageError{Op: "updateMetadata", Err: err}
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(metadataBucket).Put(metadataKey, data)
	})
	if err != nil {
		return &StorageError{Op: "updateMetadata", Err: err}
	}
	return nil
}

// GetMetadata returns the stored metadata record, or (nil, nil) if unset.
func (s *BoltStore) GetMetadata(ctx context.Context) (*IndexMetadata, error) {
	var meta *IndexMetadata
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(metadataBucket).Get(metadataKey)
		if v == nil {
			return nil
		}
		var m IndexMetadata
		if err := json.Unmarshal(v, &m); err != nil {
			return err
		}
		meta = &m
		return nil
	})
	if err != nil {
		return nil, &StorageError{Op: "getMetadata", Err: err}
	}
	return meta, nil
}

// ClearIndices empties the searchIndices bucket and its sidecar.
func (s *BoltStore) ClearIndices(ctx context.Context) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(searchIndicesBucket); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket(searchIndicesBucket)
		return err
	})
	if err != nil {
		return &StorageError{Op: "clearIndices", Err: err}
	}
	s.mu.Lock()
	s.byTimestamp = nil
	s.mu.Unlock()
	return nil
}

// DeleteIndex removes a single blob by key, from both bucket and sidecar.
func (s *BoltStore) DeleteIndex(ctx context.Context, key string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(searchIndicesBucket).Delete([]byte(key))
	})
	if err != nil {
		return &StorageError{Op: "deleteIndex", Err: err}
	}
	s.mu.Lock()
	for i, e := range s.byTimestamp {
		if e.Key == key {
			s.byTimestamp = append(s.byTimestamp[:i], s.byTimestamp[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	return nil
}

// Close releases the underlying bbolt file handle.
func (s *BoltStore) Close() error { return s.db.Close() }
