package metadata

import (
	bolt "go.etcd.io/bbolt"
)

// Each location owns a nested bucket keyed by its URI.

// Get returns the value stored for key on uri, or "" when unset.
func (s *Store) Get(uri, key string) string {
	var value string
	err := s.view(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketMetadata)).Bucket([]byte(uri))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			value = string(v)
		}
		return nil
	})
	if err != nil {
		s.log.Warn("read %s of %s: %v", key, uri, err)
	}
	return value
}

// Set stores value for key on uri. An empty value deletes the key.
func (s *Store) Set(uri, key, value string) error {
	return s.update(func(tx *bolt.Tx) error {
		root := tx.Bucket([]byte(bucketMetadata))
		if value == "" {
			b := root.Bucket([]byte(uri))
			if b == nil {
				return nil
			}
			return b.Delete([]byte(key))
		}
		b, err := root.CreateBucketIfNotExists([]byte(uri))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), []byte(value))
	})
}

// All returns every key stored for uri.
func (s *Store) All(uri string) (map[string]string, error) {
	values := make(map[string]string)
	err := s.view(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketMetadata)).Bucket([]byte(uri))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			values[string(k)] = string(v)
			return nil
		})
	})
	return values, err
}

// Forget drops all metadata stored for uri.
func (s *Store) Forget(uri string) error {
	return s.update(func(tx *bolt.Tx) error {
		err := tx.Bucket([]byte(bucketMetadata)).DeleteBucket([]byte(uri))
		if err == bolt.ErrBucketNotFound {
			return nil
		}
		return err
	})
}
