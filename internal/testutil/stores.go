package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/alexanderramin/tasksync/internal/domain"
	"github.com/alexanderramin/tasksync/internal/repository"
)

// ErrInjected is the error returned by FailingStore for failed methods.
var ErrInjected = errors.New("injected store failure")

// FailingStore wraps a TaskStore and fails the named methods. Method names
// match the TaskStore interface: "Insert", "Update", "Delete",
// "SelectByOwner", "BatchSetOrder".
type FailingStore struct {
	repository.TaskStore

	mu    sync.Mutex
	fail  map[string]bool
	calls map[string]int
}

func NewFailingStore(inner repository.TaskStore, methods ...string) *FailingStore {
	s := &FailingStore{TaskStore: inner, fail: map[string]bool{}, calls: map[string]int{}}
	for _, m := range methods {
		s.fail[m] = true
	}
	return s
}

// Calls reports how many times method was invoked.
func (s *FailingStore) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *FailingStore) check(method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[method]++
	if s.fail[method] {
		return ErrInjected
	}
	return nil
}

func (s *FailingStore) Insert(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	if err := s.check("Insert"); err != nil {
		return nil, err
	}
	return s.TaskStore.Insert(ctx, t)
}

func (s *FailingStore) Update(ctx context.Context, ownerID, id string, patch domain.TaskPatch) (*domain.Task, error) {
	if err := s.check("Update"); err != nil {
		return nil, err
	}
	return s.TaskStore.Update(ctx, ownerID, id, patch)
}

func (s *FailingStore) Delete(ctx context.Context, ownerID string, ids []string) error {
	if err := s.check("Delete"); err != nil {
		return err
	}
	return s.TaskStore.Delete(ctx, ownerID, ids)
}

func (s *FailingStore) SelectByOwner(ctx context.Context, ownerID string, filter repository.TaskFilter) ([]*domain.Task, error) {
	if err := s.check("SelectByOwner"); err != nil {
		return nil, err
	}
	return s.TaskStore.SelectByOwner(ctx, ownerID, filter)
}

func (s *FailingStore) BatchSetOrder(ctx context.Context, ownerID string, entries []domain.OrderEntry) error {
	if err := s.check("BatchSetOrder"); err != nil {
		return err
	}
	return s.TaskStore.BatchSetOrder(ctx, ownerID, entries)
}

// BlockingStore holds Update, Delete and BatchSetOrder calls until Release
// is called, so tests can run a refresh while a mutation is in flight.
type BlockingStore struct {
	repository.TaskStore

	// only limits holding to the named methods; empty holds all three.
	only map[string]bool

	// Entered receives one value each time a held call starts waiting.
	Entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func NewBlockingStore(inner repository.TaskStore, methods ...string) *BlockingStore {
	s := &BlockingStore{
		TaskStore: inner,
		only:      map[string]bool{},
		Entered:   make(chan struct{}, 8),
		release:   make(chan struct{}),
	}
	for _, m := range methods {
		s.only[m] = true
	}
	return s
}

// Release lets every held and future call through.
func (s *BlockingStore) Release() {
	s.once.Do(func() { close(s.release) })
}

func (s *BlockingStore) hold(ctx context.Context, method string) error {
	if len(s.only) > 0 && !s.only[method] {
		return nil
	}
	s.Entered <- struct{}{}
	select {
	case <-s.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *BlockingStore) Update(ctx context.Context, ownerID, id string, patch domain.TaskPatch) (*domain.Task, error) {
	if err := s.hold(ctx, "Update"); err != nil {
		return nil, err
	}
	return s.TaskStore.Update(ctx, ownerID, id, patch)
}

func (s *BlockingStore) BatchSetOrder(ctx context.Context, ownerID string, entries []domain.OrderEntry) error {
	if err := s.hold(ctx, "BatchSetOrder"); err != nil {
		return err
	}
	return s.TaskStore.BatchSetOrder(ctx, ownerID, entries)
}

func (s *BlockingStore) Delete(ctx context.Context, ownerID string, ids []string) error {
	if err := s.hold(ctx, "Delete"); err != nil {
		return err
	}
	return s.TaskStore.Delete(ctx, ownerID, ids)
}
