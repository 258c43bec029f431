package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/camwall/internal/repository/store"
)

// repo is a Durable Store on plain redis strings. Every write is followed, in the
// same transaction, by a publish of the key on eventsChannel so other processes
// observe it as a discrete change.
type repo struct {
	rc            *redis.Client
	eventsChannel string
	logger        *slog.Logger
}

func NewRepo(rc *redis.Client, eventsChannel string, logger *slog.Logger) *repo {
	return &repo{
		rc:            rc,
		eventsChannel: eventsChannel,
		logger:        logger,
	}
}

func (r repo) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.rc.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}

		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}

	return value, nil
}

func (r repo) Set(ctx context.Context, key string, value []byte) error {
	pipe := r.rc.TxPipeline()
	pipe.Set(ctx, key, value, 0)
	pipe.Publish(ctx, r.eventsChannel, key)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	return nil
}

func (r repo) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	pipe := r.rc.TxPipeline()
	pipe.Del(ctx, keys...)
	for _, key := range keys {
		pipe.Publish(ctx, r.eventsChannel, key)
	}

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}

	return nil
}

// Watch delivers changes of the given keys until ctx is done. Slow readers lose
// notifications rather than block the subscription.
func (r repo) Watch(ctx context.Context, keys ...string) (<-chan store.Change, error) {
	sub := r.rc.Subscribe(ctx, r.eventsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe to store events: %w", err)
	}

	out := make(chan store.Change, 16)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				if len(keys) > 0 && !slices.Contains(keys, msg.Payload) {
					continue
				}

				select {
				case out <- store.Change{Key: msg.Payload}:
				default:
					r.logger.Debug("store change dropped", "key", msg.Payload)
				}
			}
		}
	}()

	return out, nil
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}

		return err
	}

	return nil
}
