package storage

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// openTimeout bounds the wait for the file lock held by another process
const openTimeout = time.Second

// BboltBackend persists buckets to a single bbolt file
type BboltBackend struct {
	db *bolt.DB
}

func NewBboltBackend(dbPath string) (*BboltBackend, error) {
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt database %s: %w", dbPath, err)
	}

	return &BboltBackend{db: db}, nil
}

func (b *BboltBackend) CreateBucket(name string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(name))
		return err
	})
}

func bucketOf(tx *bolt.Tx, name string) (*bolt.Bucket, error) {
	bkt := tx.Bucket([]byte(name))
	if bkt == nil {
		return nil, fmt.Errorf("%w: %s", ErrBucketNotFound, name)
	}
	return bkt, nil
}

func (b *BboltBackend) Put(bucket, key string, value []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt, err := bucketOf(tx, bucket)
		if err != nil {
			return err
		}
		return bkt.Put([]byte(key), value)
	})
}

func (b *BboltBackend) Get(bucket, key string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt, err := bucketOf(tx, bucket)
		if err != nil {
			return err
		}

		v := bkt.Get([]byte(key))
		if v == nil {
			return fmt.Errorf("%w: %s/%s", ErrKeyNotFound, bucket, key)
		}
		// v is only valid inside the transaction
		value = make([]byte, len(v))
		copy(value, v)

		return nil
	})

	return value, err
}

func (b *BboltBackend) ForEach(bucket string, fn func(key string, value []byte) error) error {
	return b.db.View(func(tx *bolt.Tx) error {
		bkt, err := bucketOf(tx, bucket)
		if err != nil {
			return err
		}
		return bkt.ForEach(func(k, v []byte) error {
			return fn(string(k), v)
		})
	})
}

func (b *BboltBackend) Close() error {
	return b.db.Close()
}
