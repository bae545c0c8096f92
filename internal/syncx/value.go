// Package syncx provides extended synchronization primitives
package syncx

import "sync"

// Value is a lock-protected value published by one owner and read by many.
// Readers get copies; T should be a value type or treated as immutable.
type Value[T any] struct {
	mu      sync.RWMutex
	value   T
	version uint64
}

// NewValue creates a published value.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{value: initial}
}

// Load returns the current value.
func (v *Value[T]) Load() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Version returns how many times the value has been replaced.
func (v *Value[T]) Version() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.version
}

// Store replaces the value and returns the new version.
func (v *Value[T]) Store(val T) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.value = val
	v.version++
	return v.version
}

// Update applies fn to the current value under the write lock.
func (v *Value[T]) Update(fn func(T) T) T {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.value = fn(v.value)
	v.version++
	return v.value
}
