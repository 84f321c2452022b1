package keylock

import "sync"

// Mutex is a set of mutexes addressed by key.
// Entries are dropped once nobody holds or waits for them.
type Mutex[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New creates an empty keyed mutex
func New[K comparable]() *Mutex[K] {
	return &Mutex[K]{locks: make(map[K]*entry)}
}

// Lock acquires the mutex for key and returns its unlock function
func (m *Mutex[K]) Lock(key K) func() {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		e = &entry{}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()

			m.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(m.locks, key)
			}
			m.mu.Unlock()
		})
	}
}

// Len returns the number of keys currently held or awaited
func (m *Mutex[K]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
