package mediastore

import (
	"context"
	"strings"
	"sync"

	"github.com/makwanagautam41/SnapLink-sub001/internal/model"
)

// Deletion is one DeleteObject call observed by MockStore.
type Deletion struct {
	ExternalID string
	Kind       model.MediaKind
}

// MockStore is an in-memory Store for tests. Objects are tracked by
// resolved key; deleting an absent object succeeds like a real store.
type MockStore struct {
	mu       sync.Mutex
	prefixes Prefixes
	objects  map[string]struct{}
	failures map[string]error
	calls    []Deletion
	hook     func(Deletion)
	closed   bool
}

// NewMockStore creates an empty MockStore with the default prefixes.
func NewMockStore() *MockStore {
	return &MockStore{
		prefixes: DefaultPrefixes(),
		objects:  make(map[string]struct{}),
		failures: make(map[string]error),
	}
}

// Put adds an object.
func (s *MockStore) Put(externalID string, kind model.MediaKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[ObjectKey(s.prefixes, externalID, kind)] = struct{}{}
}

// Has reports whether the object exists.
func (s *MockStore) Has(externalID string, kind model.MediaKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[ObjectKey(s.prefixes, externalID, kind)]
	return ok
}

// Len returns the number of stored objects.
func (s *MockStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// Keys returns every stored key with the given prefix.
func (s *MockStore) Keys(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Fail makes DeleteObject(externalID, ...) return err. Pass nil to clear.
func (s *MockStore) Fail(externalID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, externalID)
		return
	}
	s.failures[externalID] = err
}

// SetHook installs a function called on every DeleteObject before it takes
// effect. The hook must not call back into the store.
func (s *MockStore) SetHook(fn func(Deletion)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = fn
}

// Calls returns every DeleteObject call in order.
func (s *MockStore) Calls() []Deletion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Deletion(nil), s.calls...)
}

func (s *MockStore) DeleteObject(ctx context.Context, externalID string, kind model.MediaKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := Deletion{ExternalID: externalID, Kind: kind}
	s.calls = append(s.calls, d)
	if s.hook != nil {
		s.hook(d)
	}

	key := ObjectKey(s.prefixes, externalID, kind)
	if err := ctx.Err(); err != nil {
		return &ObjectError{Op: "Delete", Key: key, Err: err}
	}
	if s.closed {
		return ErrStoreClosed
	}
	if externalID == "" {
		return &ObjectError{Op: "Delete", Key: key, Err: ErrInvalidID}
	}
	if err := s.failures[externalID]; err != nil {
		return &ObjectError{Op: "Delete", Key: key, Err: err}
	}
	delete(s.objects, key)
	return nil
}

func (s *MockStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
