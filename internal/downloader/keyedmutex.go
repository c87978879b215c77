package downloader

import "sync"

// keyedMutex hands out one *sync.Mutex per key, so concurrent downloads of
// different documents never block each other while same-document downloads
// serialize. Grounded on the teacher's visitTracker sync.Map idiom.
type keyedMutex struct {
	locks sync.Map // string -> *sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	value, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
