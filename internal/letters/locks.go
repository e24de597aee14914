package letters

import "sync"

// recordLocks serializes read-modify-write cycles per record handle.
type recordLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newRecordLocks() *recordLocks {
	return &recordLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *recordLocks) lock(handle string) func() {
	l.mu.Lock()
	m, ok := l.locks[handle]
	if !ok {
		m = &sync.Mutex{}
		l.locks[handle] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
