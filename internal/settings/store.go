package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/quire/internal/logging"
)

// Store owns the current preferences.
//
// Store is safe for concurrent use. Observers run on the goroutine that
// applied the change.
type Store struct {
	mu      sync.Mutex
	path    string
	current Settings

	notifier *notifier
	log      *logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) Option {
	return func(s *Store) { s.log = log.WithComponent("settings") }
}

// New creates an in-memory store holding initial. Updates are not
// persisted.
func New(initial Settings, opts ...Option) *Store {
	s := &Store{
		current:  initial.Clone(),
		notifier: newNotifier(),
		log:      logging.NullLogger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open loads path over the defaults. A missing file is not an error; it is
// created on the first update.
func Open(path string, opts ...Option) (*Store, error) {
	s := New(Defaults(), opts...)
	s.path = path

	loaded, err := readFile(path)
	if err != nil {
		return nil, err
	}
	s.current = loaded
	return s, nil
}

// readFile decodes path over the defaults.
func readFile(path string) (Settings, error) {
	settings := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, fmt.Errorf("reading settings file %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &settings); err != nil {
		return settings, &ParseError{Path: path, Err: err}
	}
	if err := settings.Validate(); err != nil {
		return settings, &ParseError{Path: path, Err: err}
	}
	return settings, nil
}

// Path returns the backing file, or "" for an in-memory store.
func (s *Store) Path() string { return s.path }

// Get returns a copy of the current preferences.
func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Update applies fn to a copy of the preferences, validates and persists the
// result, then notifies observers of every changed key.
func (s *Store) Update(fn func(*Settings)) error {
	s.mu.Lock()
	next := s.current.Clone()
	fn(&next)
	if err := next.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.persist(next); err != nil {
		s.mu.Unlock()
		return err
	}
	prev := s.current
	s.current = next
	s.mu.Unlock()

	s.dispatch(prev, next, ChangeSet, "update")
	return nil
}

// Reload re-reads the backing file and notifies observers of keys that
// differ from the current preferences.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	loaded, err := readFile(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	prev := s.current
	s.current = loaded
	s.mu.Unlock()

	s.dispatch(prev, loaded, ChangeReload, s.path)
	return nil
}

// Subscribe registers observer for changes to path or any key below it.
// An empty path observes everything.
func (s *Store) Subscribe(path string, observer Observer) *Subscription {
	return s.notifier.subscribe(path, observer)
}

func (s *Store) persist(settings Settings) error {
	if s.path == "" {
		return nil
	}
	data, err := toml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

func (s *Store) dispatch(prev, next Settings, typ ChangeType, source string) {
	changes, err := Diff(prev, next)
	if err != nil {
		s.log.Error("diff settings: %v", err)
		return
	}
	for _, c := range changes {
		c.Type = typ
		c.Source = source
		s.log.Debug("setting %s changed (%s)", c.Path, source)
		s.notifier.notify(c)
	}
}

// Diff lists the dotted keys whose values differ between a and b, sorted by
// key.
func Diff(a, b Settings) ([]Change, error) {
	fa, err := flatten(a)
	if err != nil {
		return nil, err
	}
	fb, err := flatten(b)
	if err != nil {
		return nil, err
	}

	var changes []Change
	for key, nv := range fb {
		ov, ok := fa[key]
		if !ok || !reflect.DeepEqual(ov, nv) {
			changes = append(changes, Change{Path: key, OldValue: ov, NewValue: nv})
		}
	}
	for key, ov := range fa {
		if _, ok := fb[key]; !ok {
			changes = append(changes, Change{Path: key, OldValue: ov})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes, nil
}

// flatten round-trips settings through TOML into dotted keys.
func flatten(settings Settings) (map[string]any, error) {
	data, err := toml.Marshal(settings)
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	out := make(map[string]any)
	flattenInto(out, "", tree)
	return out, nil
}

func flattenInto(out map[string]any, prefix string, tree map[string]any) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flattenInto(out, key, sub)
			continue
		}
		out[key] = v
	}
}
