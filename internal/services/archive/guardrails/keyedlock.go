package guardrails

import (
	"context"
	"sync"
)

// KeyedLock hands out one exclusive scope per key
// entries are reference counted and dropped once nobody holds or waits on them
type KeyedLock struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{} // buffered 1, a token in the channel means free
	refs int
}

// NewKeyedLock returns an empty lock table
func NewKeyedLock() *KeyedLock {
	return &KeyedLock{slots: map[string]*slot{}}
}

// Lock blocks until key is free or ctx is done
// on success the returned func releases the key and must be called exactly once
func (k *KeyedLock) Lock(ctx context.Context, key string) (func(), error) {
	s := k.acquire(key)
	select {
	case <-s.ch:
		var once sync.Once
		return func() {
			once.Do(func() {
				s.ch <- struct{}{}
				k.release(key, s)
			})
		}, nil
	case <-ctx.Done():
		k.release(key, s)
		return nil, ctx.Err()
	}
}

// Len is the number of keys currently held or waited on
func (k *KeyedLock) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.slots)
}

func (k *KeyedLock) acquire(key string) *slot {
	k.mu.Lock()
	defer k.mu.Unlock()
	s, ok := k.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		s.ch <- struct{}{}
		k.slots[key] = s
	}
	s.refs++
	return s
}

func (k *KeyedLock) release(key string, s *slot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(k.slots, key)
	}
}
