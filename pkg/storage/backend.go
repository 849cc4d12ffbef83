// Package storage is a small bucketed key-value layer. Keys iterate in
// ascending byte order on every backend.
package storage

import "errors"

var (
	ErrBucketNotFound = errors.New("bucket not found")
	ErrKeyNotFound    = errors.New("key not found")
)

// Backend stores raw values in named buckets
type Backend interface {
	// CreateBucket is idempotent
	CreateBucket(name string) error

	Put(bucket, key string, value []byte) error

	// Get returns ErrKeyNotFound when the bucket has no such key
	Get(bucket, key string) ([]byte, error)

	// ForEach visits every pair in ascending key order. Values are only
	// valid for the duration of fn.
	ForEach(bucket string, fn func(key string, value []byte) error) error

	Close() error
}
