package inmemory

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/sharetube/camwall/internal/repository/bus"
)

type subscriber struct {
	channels []string
	ch       chan bus.Message
}

// repo is a process-local Bus. Publishing never blocks: a subscriber whose buffer
// is full misses the message and the drop is counted.
type repo struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
	buffer      int
	dropped     atomic.Uint64
}

func NewRepo(buffer int) *repo {
	if buffer < 1 {
		buffer = 1
	}

	return &repo{
		subscribers: make(map[*subscriber]struct{}),
		buffer:      buffer,
	}
}

func (r *repo) Publish(_ context.Context, channel string, payload []byte) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for sub := range r.subscribers {
		if !slices.Contains(sub.channels, channel) {
			continue
		}

		select {
		case sub.ch <- bus.Message{Channel: channel, Payload: slices.Clone(payload)}:
		default:
			r.dropped.Add(1)
		}
	}

	return nil
}

func (r *repo) Subscribe(ctx context.Context, channels ...string) (<-chan bus.Message, error) {
	sub := &subscriber{channels: channels, ch: make(chan bus.Message, r.buffer)}

	r.mu.Lock()
	r.subscribers[sub] = struct{}{}
	r.mu.Unlock()

	go func() {
		<-ctx.Done()

		r.mu.Lock()
		delete(r.subscribers, sub)
		close(sub.ch)
		r.mu.Unlock()
	}()

	return sub.ch, nil
}

func (r *repo) Dropped() uint64 {
	return r.dropped.Load()
}
