package widget

import (
	"context"
	"sync"

	"github.com/kalambet/tally/internal/signal"
)

// Store is the part of counter.Store the view model drives.
type Store interface {
	Counter
	Reset() (int, error)
	Refresh() int
}

// ViewModel holds the copy of the counter a presentation layer renders from.
// The copy can go stale while another process writes; Refresh reconciles it.
type ViewModel struct {
	store Store

	mu     sync.RWMutex
	value  int
	loaded bool
}

// NewViewModel creates a ViewModel. The value is loaded on first access.
func NewViewModel(store Store) *ViewModel {
	return &ViewModel{store: store}
}

// Value returns the cached value, loading it on first use.
func (vm *ViewModel) Value() int {
	vm.mu.RLock()
	if vm.loaded {
		v := vm.value
		vm.mu.RUnlock()
		return v
	}
	vm.mu.RUnlock()
	return vm.Refresh()
}

// Refresh re-reads the persisted value into the cache.
func (vm *ViewModel) Refresh() int {
	v := vm.store.Refresh()
	vm.set(v)
	return v
}

func (vm *ViewModel) Increment() (int, error) {
	return vm.apply(vm.store.Increment)
}

func (vm *ViewModel) Decrement() (int, error) {
	return vm.apply(vm.store.Decrement)
}

func (vm *ViewModel) Reset() (int, error) {
	return vm.apply(vm.store.Reset)
}

// Watch refreshes the cache on every event until ctx is cancelled or the
// channel is closed. onChange, if non-nil, is called with each refreshed value.
func (vm *ViewModel) Watch(ctx context.Context, events <-chan signal.Event, onChange func(int)) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			v := vm.Refresh()
			if onChange != nil {
				onChange(v)
			}
		}
	}
}

func (vm *ViewModel) apply(op func() (int, error)) (int, error) {
	v, err := op()
	if err != nil {
		return vm.Value(), err
	}
	vm.set(v)
	return v, nil
}

func (vm *ViewModel) set(v int) {
	vm.mu.Lock()
	vm.value = v
	vm.loaded = true
	vm.mu.Unlock()
}
