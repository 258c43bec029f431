package inmemory

import (
	"context"
	"slices"
	"sync"

	"github.com/sharetube/camwall/internal/repository/store"
)

type watcher struct {
	keys []string
	ch   chan store.Change
}

// repo is a Durable Store for a single process: tests and deployments where the
// player and its observers share one binary.
type repo struct {
	mu       sync.RWMutex
	values   map[string][]byte
	watchers map[*watcher]struct{}
}

func NewRepo() *repo {
	return &repo{
		values:   make(map[string][]byte),
		watchers: make(map[*watcher]struct{}),
	}
}

func (r *repo) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	value, ok := r.values[key]
	if !ok {
		return nil, store.ErrNotFound
	}

	return slices.Clone(value), nil
}

func (r *repo) Set(_ context.Context, key string, value []byte) error {
	r.mu.Lock()
	r.values[key] = slices.Clone(value)
	r.mu.Unlock()

	r.notify(key)
	return nil
}

func (r *repo) Del(_ context.Context, keys ...string) error {
	r.mu.Lock()
	for _, key := range keys {
		delete(r.values, key)
	}
	r.mu.Unlock()

	for _, key := range keys {
		r.notify(key)
	}
	return nil
}

func (r *repo) Watch(ctx context.Context, keys ...string) (<-chan store.Change, error) {
	w := &watcher{keys: keys, ch: make(chan store.Change, 16)}

	r.mu.Lock()
	r.watchers[w] = struct{}{}
	r.mu.Unlock()

	go func() {
		<-ctx.Done()

		r.mu.Lock()
		delete(r.watchers, w)
		close(w.ch)
		r.mu.Unlock()
	}()

	return w.ch, nil
}

func (r *repo) notify(key string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for w := range r.watchers {
		if len(w.keys) > 0 && !slices.Contains(w.keys, key) {
			continue
		}

		select {
		case w.ch <- store.Change{Key: key}:
		default:
		}
	}
}
