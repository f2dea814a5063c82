package engine

import "sync"

// keyedMutex serializes work per key (user+unit, user+challenge,
// user+badge) without blocking unrelated keys. Mutexes are retained
// for the life of the process; the key space is bounded by what users
// actually touch.
type keyedMutex struct {
	locks sync.Map // string -> *sync.Mutex
}

// lock acquires the mutex for key and returns its unlock func.
func (k *keyedMutex) lock(key string) func() {
	v, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
