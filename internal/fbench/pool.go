package fbench

import "sync"

// Pool is a typed wrapper around sync.Pool.
type Pool[T any] struct {
	syncPool sync.Pool
}

func NewPool[T any](newFn func() T) *Pool[T] {
	return &Pool[T]{
		syncPool: sync.Pool{
			New: func() any { return newFn() },
		},
	}
}

// Get returns an arbitrary item from the pool.
func (p *Pool[T]) Get() T {
	return p.syncPool.Get().(T)
}

// Put places an item in the pool.
func (p *Pool[T]) Put(value T) {
	p.syncPool.Put(value)
}
