package bot

import "sync"

// userLocks serializes update processing per telegram user, so two rapid
// messages from the same user cannot both read the pre-update state and
// clobber each other's writes. Different users proceed in parallel.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[int64]*userLock)}
}

// lock acquires the per-user mutex and returns its release function.
func (l *userLocks) lock(telegramID int64) func() {
	l.mu.Lock()
	entry, ok := l.locks[telegramID]
	if !ok {
		entry = &userLock{}
		l.locks[telegramID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, telegramID)
		}
		l.mu.Unlock()
	}
}
