package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/camwall/internal/repository/bus"
)

type repo struct {
	rc     *redis.Client
	logger *slog.Logger
}

func NewRepo(rc *redis.Client, logger *slog.Logger) *repo {
	return &repo{
		rc:     rc,
		logger: logger,
	}
}

func (r repo) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := r.rc.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}

	return nil
}

// Subscribe delivers messages from channels until ctx is done. Messages are
// dropped when the reader falls behind.
func (r repo) Subscribe(ctx context.Context, channels ...string) (<-chan bus.Message, error) {
	sub := r.rc.Subscribe(ctx, channels...)
	for range channels {
		if _, err := sub.Receive(ctx); err != nil {
			sub.Close()
			return nil, fmt.Errorf("failed to subscribe: %w", err)
		}
	}

	out := make(chan bus.Message, 64)
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

				select {
				case out <- bus.Message{Channel: msg.Channel, Payload: []byte(msg.Payload)}:
				default:
					r.logger.Debug("bus message dropped", "channel", msg.Channel)
				}
			}
		}
	}()

	return out, nil
}
