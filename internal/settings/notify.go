package settings

import (
	"strings"
	"sync"
)

// ChangeType represents the kind of settings change.
type ChangeType int

const (
	// ChangeSet indicates a value was set or updated.
	ChangeSet ChangeType = iota

	// ChangeReload indicates the value changed because the file was
	// re-read from disk.
	ChangeReload
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeSet:
		return "set"
	case ChangeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Change describes one modified key.
type Change struct {
	// Path is the dotted key.
	Path     string
	Type     ChangeType
	OldValue any
	NewValue any
	// Source names the origin of the change, e.g. "update" or the file path.
	Source string
}

// Observer is called after a change has been applied.
type Observer func(change Change)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	notifier *notifier
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s != nil && s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

type pathObserver struct {
	path     string
	observer Observer
}

// notifier fans changes out to path observers. Observers run synchronously
// on the goroutine that applied the change, outside the lock.
type notifier struct {
	mu        sync.RWMutex
	observers map[uint64]pathObserver
	nextID    uint64
}

func newNotifier() *notifier {
	return &notifier{observers: make(map[uint64]pathObserver)}
}

// subscribe registers observer for path and everything below it. An empty
// path receives all changes.
func (n *notifier) subscribe(path string, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.observers[id] = pathObserver{path: path, observer: observer}
	return &Subscription{id: id, notifier: n}
}

func (n *notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.observers, id)
}

func (n *notifier) notify(change Change) {
	n.mu.RLock()
	var matched []Observer
	for _, po := range n.observers {
		if po.path == "" || isParentPath(po.path, change.Path) {
			matched = append(matched, po.observer)
		}
	}
	n.mu.RUnlock()

	for _, obs := range matched {
		obs(change)
	}
}

// isParentPath reports whether parent equals child or is a dotted prefix
// of it.
func isParentPath(parent, child string) bool {
	return parent == child || strings.HasPrefix(child, parent+".")
}
