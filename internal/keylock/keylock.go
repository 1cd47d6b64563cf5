// Package keylock provides reader/writer locks keyed by arbitrary comparable
// values. Locks for distinct keys never contend with each other, and an entry
// only lives in the map while someone holds or waits on it.
package keylock

import "sync"

type Map[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*entry
}

type entry struct {
	rw   sync.RWMutex
	refs int
}

func New[K comparable]() *Map[K] {
	return &Map[K]{locks: make(map[K]*entry)}
}

// Lock acquires the exclusive lock for key and returns its release func.
func (m *Map[K]) Lock(key K) func() {
	e := m.acquire(key)
	e.rw.Lock()
	return func() {
		e.rw.Unlock()
		m.release(key, e)
	}
}

// RLock acquires the shared lock for key and returns its release func.
func (m *Map[K]) RLock(key K) func() {
	e := m.acquire(key)
	e.rw.RLock()
	return func() {
		e.rw.RUnlock()
		m.release(key, e)
	}
}

// Len reports how many keys currently have holders or waiters.
func (m *Map[K]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

func (m *Map[K]) acquire(key K) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.locks[key]
	if !ok {
		e = &entry{}
		m.locks[key] = e
	}
	e.refs++
	return e
}

func (m *Map[K]) release(key K, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(m.locks, key)
	}
}
