package service

import "sync"

type lockRef struct {
	mu   sync.Mutex
	refs int
}

// userLocks serializes cart work per user id. Entries are dropped once no
// goroutine holds or waits on them.
type userLocks struct {
	mu sync.Mutex
	m  map[uint]*lockRef
}

func (l *userLocks) Lock(userID uint) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[uint]*lockRef)
	}
	ref, ok := l.m[userID]
	if !ok {
		ref = &lockRef{}
		l.m[userID] = ref
	}
	ref.refs++
	l.mu.Unlock()

	ref.mu.Lock()
	return func() {
		ref.mu.Unlock()

		l.mu.Lock()
		ref.refs--
		if ref.refs == 0 {
			delete(l.m, userID)
		}
		l.mu.Unlock()
	}
}
