package storage

import (
	"encoding/json"
	"fmt"
)

// PutJSON encodes v as JSON and stores it under key
func PutJSON[T any](b Backend, bucket, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", bucket, key, err)
	}

	return b.Put(bucket, key, data)
}

// GetJSON loads and decodes the value under key
func GetJSON[T any](b Backend, bucket, key string) (T, error) {
	var v T

	data, err := b.Get(bucket, key)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("failed to decode %s/%s: %w", bucket, key, err)
	}

	return v, nil
}

// ListJSON decodes every value in bucket, in key order
func ListJSON[T any](b Backend, bucket string) ([]T, error) {
	var out []T
	err := b.ForEach(bucket, func(key string, data []byte) error {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("failed to decode %s/%s: %w", bucket, key, err)
		}
		out = append(out, v)
		return nil
	})

	return out, err
}
