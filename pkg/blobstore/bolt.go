package blobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/jacktea/mofs/pkg/native"
)

var (
	bucketData = []byte("blob_data")
	bucketMeta = []byte("blob_meta")
)

// BoltConfig configures the BoltDB-backed store.
type BoltConfig struct {
	Path    string
	NoSync  bool
	Timeout time.Duration
}

// BoltStore persists blobs in BoltDB so ids stay resolvable across
// goroutines and restarts until deleted.
type BoltStore struct {
	cfg BoltConfig
	db  *bolt.DB
	Now func() time.Time
}

// NewBolt opens or creates the database at cfg.Path.
func NewBolt(cfg BoltConfig) (*BoltStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("blobstore: path is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 1 * time.Second
	}
	db, err := bolt.Open(cfg.Path, 0o600, &bolt.Options{Timeout: cfg.Timeout, NoSync: cfg.NoSync})
	if err != nil {
		return nil, fmt.Errorf("blobstore: open: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketData, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("blobstore: create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{cfg: cfg, db: db, Now: time.Now}, nil
}

func (b *BoltStore) Put(ctx context.Context, data []byte, meta Meta) (string, error) {
	meta.Size = int64(len(data))
	if meta.Created.IsZero() {
		meta.Created = b.Now()
	}
	enc, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	id := NewID()
	err = b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketData).Put([]byte(id), data); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put([]byte(id), enc)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (b *BoltStore) Stat(ctx context.Context, id string) (Meta, error) {
	var meta Meta
	err := b.db.View(func(tx *bolt.Tx) error {
		var err error
		meta, err = getMeta(tx, id)
		return err
	})
	return meta, err
}

func (b *BoltStore) ReadRange(ctx context.Context, id string, offset, size int64) ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketMeta).Get([]byte(id)) == nil {
			return native.ErrNotFound
		}
		data := tx.Bucket(bucketData).Get([]byte(id))
		// data is only valid inside the transaction; clip copies.
		var err error
		out, err = clip(data, offset, size)
		return err
	})
	return out, err
}

func (b *BoltStore) Delete(ctx context.Context, id string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		key := []byte(id)
		if tx.Bucket(bucketMeta).Get(key) == nil {
			return native.ErrNotFound
		}
		if err := tx.Bucket(bucketData).Delete(key); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Delete(key)
	})
}

// Close releases the underlying BoltDB.
func (b *BoltStore) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

func getMeta(tx *bolt.Tx, id string) (Meta, error) {
	data := tx.Bucket(bucketMeta).Get([]byte(id))
	if data == nil {
		return Meta{}, native.ErrNotFound
	}
	return decodeMeta(data)
}

func decodeMeta(data []byte) (Meta, error) {
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, err
	}
	return meta, nil
}
