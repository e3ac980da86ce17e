// Package state provides a serialized key/value store with per-key change
// observers, plus a generic single-value cell. Callers use the store instead
// of ad hoc shared variables; no external locking is needed.
package state

import (
	"sync"
)

// Change describes a single mutation of a key. HadOld/HasNew distinguish
// absence from a stored nil.
type Change struct {
	Key    string
	Old    interface{}
	New    interface{}
	HadOld bool
	HasNew bool
}

// Handler receives changes for one observed key. Handlers run on a dedicated
// goroutine per registration: a single handler sees a key's mutations as a
// linear stream, in mutation order, but mutators never wait for it.
type Handler func(change Change)

// Token identifies an observer registration; it is only useful for removal.
type Token struct {
	key string
	id  uint64
}

type observer struct {
	handler Handler

	mu     sync.Mutex
	queue  []Change
	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newObserver(handler Handler) *observer {
	o := &observer{
		handler: handler,
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go o.run()
	return o
}

// dispatch enqueues a change without blocking. Called with the store lock
// held so the queue order matches the store's mutation order.
func (o *observer) dispatch(change Change) {
	o.mu.Lock()
	o.queue = append(o.queue, change)
	o.mu.Unlock()
	select {
	case o.notify <- struct{}{}:
	default:
	}
}

func (o *observer) run() {
	for {
		select {
		case <-o.done:
			return
		case <-o.notify:
		}
		for {
			o.mu.Lock()
			if len(o.queue) == 0 {
				o.mu.Unlock()
				break
			}
			change := o.queue[0]
			o.queue = o.queue[1:]
			o.mu.Unlock()
			o.handler(change)
		}
	}
}

func (o *observer) stop() {
	o.once.Do(func() { close(o.done) })
}

// Store is an isolated key/value map. All operations on one instance are
// serialized against each other.
type Store struct {
	mu        sync.Mutex
	values    map[string]interface{}
	observers map[string]map[uint64]*observer
	nextToken uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		values:    make(map[string]interface{}),
		observers: make(map[string]map[uint64]*observer),
	}
}

// Set stores value under key, notifying the key's observers with the
// previous and new value.
func (s *Store) Set(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(key, value)
}

func (s *Store) setLocked(key string, value interface{}) {
	old, hadOld := s.values[key]
	s.values[key] = value
	s.notifyLocked(Change{Key: key, Old: old, New: value, HadOld: hadOld, HasNew: true})
}

// Get returns the value stored under key and whether it was present.
func (s *Store) Get(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	return value, ok
}

// GetTyped returns the value under key as T. The second result is false when
// the key is absent or holds a value of a different type; no panic, no
// nullable cast.
func GetTyped[T any](s *Store, key string) (T, bool) {
	var zero T
	value, ok := s.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := value.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Remove deletes key, notifying its observers. Removing an absent key is a
// no-op and produces no notification.
func (s *Store) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, hadOld := s.values[key]
	if !hadOld {
		return
	}
	delete(s.values, key)
	s.notifyLocked(Change{Key: key, Old: old, HadOld: true})
}

// SetMultiple stores all entries in one serialized operation. Observers are
// notified per key.
func (s *Store) SetMultiple(entries map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range entries {
		s.setLocked(key, value)
	}
}

// GetMultiple returns the present subset of the requested keys.
func (s *Store) GetMultiple(keys ...string) map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make(map[string]interface{}, len(keys))
	for _, key := range keys {
		if value, ok := s.values[key]; ok {
			result[key] = value
		}
	}
	return result
}

// Clear removes every key and every observer registration. Subsequent calls
// observe an empty store.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, byToken := range s.observers {
		for _, o := range byToken {
			o.stop()
		}
	}
	s.values = make(map[string]interface{})
	s.observers = make(map[string]map[uint64]*observer)
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

// Keys returns a snapshot of the stored keys, in no particular order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.values))
	for key := range s.values {
		keys = append(keys, key)
	}
	return keys
}

// AddObserver registers handler for mutations of key. The returned token is
// opaque; pass it to RemoveObserver to unregister.
func (s *Store) AddObserver(key string, handler Handler) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextToken++
	token := Token{key: key, id: s.nextToken}
	byToken, ok := s.observers[key]
	if !ok {
		byToken = make(map[uint64]*observer)
		s.observers[key] = byToken
	}
	byToken[token.id] = newObserver(handler)
	return token
}

// RemoveObserver unregisters a previously added observer. Unknown tokens are
// ignored.
func (s *Store) RemoveObserver(token Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byToken, ok := s.observers[token.key]
	if !ok {
		return
	}
	if o, ok := byToken[token.id]; ok {
		o.stop()
		delete(byToken, token.id)
	}
	if len(byToken) == 0 {
		delete(s.observers, token.key)
	}
}

func (s *Store) notifyLocked(change Change) {
	for _, o := range s.observers[change.Key] {
		o.dispatch(change)
	}
}
