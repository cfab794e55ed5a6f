package recordstore

import (
	"context"
	"sync"
)

// Call is one operation observed by a MemoryCollection.
type Call struct {
	Collection string
	Op         string
	ID         string
}

// Operation names used in Call.Op and by InstrumentedCollection.
const (
	OpFind   = "find"
	OpDelete = "delete"
	OpCount  = "count"
)

// MemoryCollection is an in-memory Collection. It keeps insertion order,
// can inject failures, and reports every call to an optional hook.
// It is exported so that tests in other packages can use it.
type MemoryCollection[T Record] struct {
	mu        sync.Mutex
	name      string
	records   []T
	closed    bool
	findErr   error
	countErr  error
	deleteErr map[string]error
	hook      func(Call)
}

// NewMemoryCollection creates an empty collection named name.
func NewMemoryCollection[T Record](name string, records ...T) *MemoryCollection[T] {
	m := &MemoryCollection[T]{
		name:      name,
		deleteErr: make(map[string]error),
	}
	m.records = append(m.records, records...)
	return m
}

// Insert appends records.
func (m *MemoryCollection[T]) Insert(records ...T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
}

// Get returns the record with id, if present.
func (m *MemoryCollection[T]) Get(id string) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.RecordID() == id {
			return r, true
		}
	}
	var zero T
	return zero, false
}

// Len returns the number of stored records.
func (m *MemoryCollection[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// FailFind makes every Find return err. Pass nil to clear.
func (m *MemoryCollection[T]) FailFind(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findErr = err
}

// FailCount makes every Count return err. Pass nil to clear.
func (m *MemoryCollection[T]) FailCount(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countErr = err
}

// FailDelete makes DeleteByID(id) return err. Pass nil to clear.
func (m *MemoryCollection[T]) FailDelete(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.deleteErr, id)
		return
	}
	m.deleteErr[id] = err
}

// SetHook installs a function called on every operation, before the
// operation takes effect. The hook must not call back into the collection.
func (m *MemoryCollection[T]) SetHook(fn func(Call)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hook = fn
}

// Close makes all later operations fail with ErrStoreClosed.
func (m *MemoryCollection[T]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemoryCollection[T]) notify(op, id string) {
	if m.hook != nil {
		m.hook(Call{Collection: m.name, Op: op, ID: id})
	}
}

// Find returns matching records in insertion order.
func (m *MemoryCollection[T]) Find(ctx context.Context, filter Filter) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.notify(OpFind, "")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.closed {
		return nil, ErrStoreClosed
	}
	if m.findErr != nil {
		return nil, &RecordError{Op: OpFind, Collection: m.name, Err: m.findErr}
	}

	var out []T
	for _, r := range m.records {
		ok, err := filter.Matches(r)
		if err != nil {
			return nil, &RecordError{Op: OpFind, Collection: m.name, Err: err}
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// DeleteByID removes the record with id.
func (m *MemoryCollection[T]) DeleteByID(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.notify(OpDelete, id)
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.closed {
		return ErrStoreClosed
	}
	if err := m.deleteErr[id]; err != nil {
		return &RecordError{Op: OpDelete, Collection: m.name, ID: id, Err: err}
	}

	for i, r := range m.records {
		if r.RecordID() == id {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return nil
		}
	}
	return &RecordError{Op: OpDelete, Collection: m.name, ID: id, Err: ErrNotFound}
}

// Count returns the number of matching records.
func (m *MemoryCollection[T]) Count(ctx context.Context, filter Filter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.notify(OpCount, "")
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if m.closed {
		return 0, ErrStoreClosed
	}
	if m.countErr != nil {
		return 0, &RecordError{Op: OpCount, Collection: m.name, Err: m.countErr}
	}

	var n int64
	for _, r := range m.records {
		ok, err := filter.Matches(r)
		if err != nil {
			return 0, &RecordError{Op: OpCount, Collection: m.name, Err: err}
		}
		if ok {
			n++
		}
	}
	return n, nil
}
