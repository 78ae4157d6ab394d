package metadata

import (
	"sort"
	"strconv"

	bolt "go.etcd.io/bbolt"
)

// The recent bucket maps a URI to the time it was last used, in Unix
// nanoseconds.

func marshalStamp(ns int64) []byte {
	return []byte(strconv.FormatInt(ns, 10))
}

func unmarshalStamp(data []byte) int64 {
	n, _ := strconv.ParseInt(string(data), 10, 64)
	return n
}

type recentEntry struct {
	uri   string
	stamp int64
}

func sortedRecents(b *bolt.Bucket) []recentEntry {
	var entries []recentEntry
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		entries = append(entries, recentEntry{uri: string(k), stamp: unmarshalStamp(v)})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].stamp > entries[j].stamp
	})
	return entries
}

// AddRecent moves uri to the front of the recent files list, dropping the
// oldest entries beyond the configured maximum.
func (s *Store) AddRecent(uri string) error {
	if uri == "" {
		return nil
	}
	return s.update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketRecent))
		stamp := s.now().UnixNano()
		for _, e := range sortedRecents(b) {
			if e.uri != uri && e.stamp >= stamp {
				stamp = e.stamp + 1
			}
		}
		if err := b.Put([]byte(uri), marshalStamp(stamp)); err != nil {
			return err
		}
		entries := sortedRecents(b)
		for _, e := range entries[min(len(entries), s.maxRecents):] {
			if err := b.Delete([]byte(e.uri)); err != nil {
				return err
			}
		}
		return nil
	})
}

// RemoveRecent removes uri from the recent files list.
func (s *Store) RemoveRecent(uri string) error {
	return s.update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketRecent)).Delete([]byte(uri))
	})
}

// Recent returns the recent files, most recently used first.
func (s *Store) Recent() ([]string, error) {
	var uris []string
	err := s.view(func(tx *bolt.Tx) error {
		for _, e := range sortedRecents(tx.Bucket([]byte(bucketRecent))) {
			uris = append(uris, e.uri)
		}
		return nil
	})
	return uris, err
}

// SetMaxRecents changes the list bound and trims the list to it.
func (s *Store) SetMaxRecents(n int) error {
	if n <= 0 {
		return nil
	}
	s.maxRecents = n
	return s.update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketRecent))
		entries := sortedRecents(b)
		for _, e := range entries[min(len(entries), n):] {
			if err := b.Delete([]byte(e.uri)); err != nil {
				return err
			}
		}
		return nil
	})
}
