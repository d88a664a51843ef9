// Package pool provides a fixed-capacity bump allocator.
//
// A StackPool hands out slots from a preallocated slice by advancing a
// cursor. Slots can only be returned in reverse allocation order, or all at
// once with Reset. Handles are plain slot indices; they stay valid until the
// next Reset or ResetSize.
package pool

// StackPool is a bump allocator over a fixed slice of T.
type StackPool[T any] struct {
	items []T
	next  int
}

// NewStackPool creates a pool holding size slots
func NewStackPool[T any](size int) *StackPool[T] {
	if size < 0 {
		size = 0
	}
	return &StackPool[T]{items: make([]T, size)}
}

// GetFirst hands out the next free slot. ok is false once the pool is
// exhausted; the caller is expected to fall back to its own storage.
func (p *StackPool[T]) GetFirst() (index int, item *T, ok bool) {
	if p.next >= len(p.items) {
		return -1, nil, false
	}
	index = p.next
	p.next++
	return index, &p.items[index], true
}

// FreeLast returns the most recently allocated slot. It does nothing on an
// empty pool.
func (p *StackPool[T]) FreeLast() {
	if p.next > 0 {
		p.next--
	}
}

// Reset marks every slot free. Slot contents are kept so callers can reuse
// buffers hanging off them.
func (p *StackPool[T]) Reset() {
	p.next = 0
}

// ResetSize marks every slot free and resizes the backing storage. Existing
// contents survive when the pool grows within its capacity or shrinks.
func (p *StackPool[T]) ResetSize(size int) {
	if size < 0 {
		size = 0
	}
	p.next = 0
	if size <= cap(p.items) {
		p.items = p.items[:size]
		return
	}
	grown := make([]T, size)
	copy(grown, p.items)
	p.items = grown
}

// Get returns the slot at index, or nil when index was never handed out
// since the last reset.
func (p *StackPool[T]) Get(index int) *T {
	if index < 0 || index >= p.next {
		return nil
	}
	return &p.items[index]
}

// Len returns the number of slots in use
func (p *StackPool[T]) Len() int {
	return p.next
}

// Cap returns the number of slots the pool can hand out
func (p *StackPool[T]) Cap() int {
	return len(p.items)
}
