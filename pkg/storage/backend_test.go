package storage

import (
	"errors"
	"testing"
)

// backendTestSuite runs the same checks against any Backend implementation
func backendTestSuite(t *testing.T, newBackend func(t *testing.T) Backend) {
	t.Run("CreateBucketIsIdempotent", func(t *testing.T) {
		backend := newBackend(t)

		for range 2 {
			if err := backend.CreateBucket("runs"); err != nil {
				t.Fatalf("CreateBucket failed: %v", err)
			}
		}
	})

	t.Run("PutAndGet", func(t *testing.T) {
		backend := newBackend(t)
		backend.CreateBucket("runs")

		if err := backend.Put("runs", "a", []byte("one")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		got, err := backend.Get("runs", "a")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got) != "one" {
			t.Errorf("Get returned %q, want %q", got, "one")
		}

		if err := backend.Put("runs", "a", []byte("two")); err != nil {
			t.Fatalf("overwrite failed: %v", err)
		}
		got, _ = backend.Get("runs", "a")
		if string(got) != "two" {
			t.Errorf("Get after overwrite returned %q, want %q", got, "two")
		}
	})

	t.Run("MissingKey", func(t *testing.T) {
		backend := newBackend(t)
		backend.CreateBucket("runs")

		_, err := backend.Get("runs", "nope")
		if !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("Get error = %v, want ErrKeyNotFound", err)
		}
	})

	t.Run("MissingBucket", func(t *testing.T) {
		backend := newBackend(t)

		if err := backend.Put("nope", "k", nil); !errors.Is(err, ErrBucketNotFound) {
			t.Errorf("Put error = %v, want ErrBucketNotFound", err)
		}
		if _, err := backend.Get("nope", "k"); !errors.Is(err, ErrBucketNotFound) {
			t.Errorf("Get error = %v, want ErrBucketNotFound", err)
		}
		err := backend.ForEach("nope", func(string, []byte) error { return nil })
		if !errors.Is(err, ErrBucketNotFound) {
			t.Errorf("ForEach error = %v, want ErrBucketNotFound", err)
		}
	})

	t.Run("ForEachIsKeyOrdered", func(t *testing.T) {
		backend := newBackend(t)
		backend.CreateBucket("runs")

		for _, k := range []string{"c", "a", "b"} {
			backend.Put("runs", k, []byte(k+k))
		}

		var keys []string
		err := backend.ForEach("runs", func(k string, v []byte) error {
			if string(v) != k+k {
				t.Errorf("value for %s = %q", k, v)
			}
			keys = append(keys, k)
			return nil
		})
		if err != nil {
			t.Fatalf("ForEach failed: %v", err)
		}

		want := []string{"a", "b", "c"}
		if len(keys) != len(want) {
			t.Fatalf("ForEach visited %v, want %v", keys, want)
		}
		for i := range want {
			if keys[i] != want[i] {
				t.Errorf("ForEach visited %v, want %v", keys, want)
				break
			}
		}
	})

	t.Run("ForEachStopsOnError", func(t *testing.T) {
		backend := newBackend(t)
		backend.CreateBucket("runs")
		backend.Put("runs", "a", nil)
		backend.Put("runs", "b", nil)

		stop := errors.New("stop")
		visited := 0
		err := backend.ForEach("runs", func(string, []byte) error {
			visited++
			return stop
		})
		if !errors.Is(err, stop) || visited != 1 {
			t.Errorf("ForEach = %v after %d visits, want stop after 1", err, visited)
		}
	})

	t.Run("JSONHelpers", func(t *testing.T) {
		type record struct {
			Name  string `json:"name"`
			Count int    `json:"count"`
		}

		backend := newBackend(t)
		backend.CreateBucket("records")

		for i, name := range []string{"beta", "alpha"} {
			if err := PutJSON(backend, "records", name, record{Name: name, Count: i}); err != nil {
				t.Fatalf("PutJSON failed: %v", err)
			}
		}

		got, err := GetJSON[record](backend, "records", "beta")
		if err != nil {
			t.Fatalf("GetJSON failed: %v", err)
		}
		if got != (record{Name: "beta", Count: 0}) {
			t.Errorf("GetJSON = %+v", got)
		}

		all, err := ListJSON[record](backend, "records")
		if err != nil {
			t.Fatalf("ListJSON failed: %v", err)
		}
		if len(all) != 2 || all[0].Name != "alpha" || all[1].Name != "beta" {
			t.Errorf("ListJSON = %+v, want alpha then beta", all)
		}

		backend.Put("records", "broken", []byte("{"))
		if _, err := GetJSON[record](backend, "records", "broken"); err == nil {
			t.Error("GetJSON should fail on malformed data")
		}
	})
}
