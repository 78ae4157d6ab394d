// Package metadata persists per-location document metadata and the
// recently used files list in a bbolt database.
package metadata

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/dshills/quire/internal/logging"
)

// DefaultFileName is the database file name inside the config directory.
const DefaultFileName = "metadata.db"

const (
	bucketMetadata = "metadata"
	bucketRecent   = "recent"
)

// DefaultMaxRecents bounds the recent files list.
const DefaultMaxRecents = 10

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("metadata store closed")

var initDB = map[string]func(*bolt.Tx) error{
	"initialize metadata table": func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketMetadata))
		return err
	},
	"initialize recent files table": func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketRecent))
		return err
	},
}

// Store is the persistent metadata store.
type Store struct {
	db         *bolt.DB
	maxRecents int
	now        func() time.Time
	log        *logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithMaxRecents sets the maximum length of the recent files list.
func WithMaxRecents(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxRecents = n
		}
	}
}

// WithClock sets the time source used to order recent files.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) Option {
	return func(s *Store) { s.log = log.WithComponent("metadata") }
}

// Open opens or creates the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create metadata dir: %w", err)
	}
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open metadata db %s: %w", path, err)
	}

	s := &Store{
		db:         db,
		maxRecents: DefaultMaxRecents,
		now:        time.Now,
		log:        logging.NullLogger,
	}
	for _, opt := range opts {
		opt(s)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for name, fn := range initDB {
			if err := fn(tx); err != nil {
				return fmt.Errorf("failed to %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.db.Path() }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) update(fn func(tx *bolt.Tx) error) error {
	err := s.db.Update(fn)
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return ErrClosed
	}
	return err
}

func (s *Store) view(fn func(tx *bolt.Tx) error) error {
	err := s.db.View(fn)
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return ErrClosed
	}
	return err
}
