package chat

import "sync"

// keyedMutex serializes mutations per conversation key so two concurrent
// sends to the same conversation can never lose an unread increment, while
// sends to different conversations proceed in parallel. Entries are
// refcounted and reclaimed once the last holder releases, so the map only
// ever holds the conversations with a mutation in flight.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyLock)}
}

// Lock blocks until the key is held and returns the release function. Every
// Lock must be paired with exactly one call to the returned release.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
