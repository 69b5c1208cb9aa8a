package core

import "sync"

// Mailbox is a single-slot handoff between one producer and one consumer.
//
// At most one item is pending. TryPut is the non-blocking "submit only if
// empty" path used for frames; Put blocks until the slot drains and is used
// for result batches. Close is the shutdown sentinel: a blocked Take wakes
// and reports ok=false, and every later put is rejected.
type Mailbox[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	item   T
	full   bool
	closed bool
	drops  uint64
}

// NewMailbox returns an empty, open mailbox.
func NewMailbox[T any]() *Mailbox[T] {
	m := &Mailbox[T]{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// TryPut stores v only if the slot is empty. It never blocks. A rejected
// item stays with the caller, and the pending item is left untouched.
func (m *Mailbox[T]) TryPut(v T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}
	if m.full {
		m.drops++
		return false
	}

	m.item = v
	m.full = true
	m.cond.Broadcast()
	return true
}

// Put blocks until the slot is empty, then stores v. It returns false if
// the mailbox is closed before v could be stored.
func (m *Mailbox[T]) Put(v T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.full && !m.closed {
		m.cond.Wait()
	}
	if m.closed {
		return false
	}

	m.item = v
	m.full = true
	m.cond.Broadcast()
	return true
}

// Take blocks until an item is available or the mailbox is closed.
func (m *Mailbox[T]) Take() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for !m.full && !m.closed {
		m.cond.Wait()
	}
	if m.closed {
		var zero T
		return zero, false
	}
	return m.takeLocked(), true
}

// TryTake returns the pending item if there is one. It never blocks.
func (m *Mailbox[T]) TryTake() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || !m.full {
		var zero T
		return zero, false
	}
	return m.takeLocked(), true
}

func (m *Mailbox[T]) takeLocked() T {
	v := m.item
	var zero T
	m.item = zero
	m.full = false
	m.cond.Broadcast()
	return v
}

// Empty reports whether no item is pending.
func (m *Mailbox[T]) Empty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.full
}

// Closed reports whether Close has been called.
func (m *Mailbox[T]) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Drops counts TryPut calls rejected because the slot was occupied.
func (m *Mailbox[T]) Drops() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drops
}

// Close shuts the mailbox and wakes any blocked caller. If an item was
// pending it is handed back so the caller can release it. Only the first
// Close returns a pending item.
func (m *Mailbox[T]) Close() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	if m.closed {
		return zero, false
	}

	m.closed = true
	v, ok := m.item, m.full
	m.item = zero
	m.full = false
	m.cond.Broadcast()
	return v, ok
}
