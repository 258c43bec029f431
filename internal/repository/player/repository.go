package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sharetube/camwall/internal/protocol"
	"github.com/sharetube/camwall/internal/repository/store"
)

var ErrPlayerNotFound = errors.New("player not found")

type iStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, keys ...string) error
}

// repo maps the player keyspace onto the Durable Store. Every key exists as a
// namespaced variant and a legacy variant; writes go to both.
type repo struct {
	store iStore
	ns    protocol.Namespace
}

func NewRepo(s iStore, ns protocol.Namespace) *repo {
	return &repo{
		store: s,
		ns:    ns,
	}
}

func (r repo) keys(name string) []string {
	return protocol.ChannelNames(r.ns.Names(name))
}

func (r repo) setAll(ctx context.Context, name string, value []byte) error {
	var errs []error
	for _, key := range r.keys(name) {
		if err := r.store.Set(ctx, key, value); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// readAll returns the values present under every variant of name, authoritative first.
func (r repo) readAll(ctx context.Context, name string) ([]Raw, error) {
	var raws []Raw
	for _, ch := range r.ns.Names(name) {
		value, err := r.store.Get(ctx, ch.Name)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}

			return nil, err
		}

		raws = append(raws, Raw{Key: ch.Name, Legacy: ch.Legacy, Value: value})
	}

	return raws, nil
}

func (r repo) GetFailures(ctx context.Context) (map[string]int64, error) {
	raws, err := r.readAll(ctx, protocol.KeyFailures)
	if err != nil {
		return nil, fmt.Errorf("failed to read failures: %w", err)
	}

	merged := make(map[string]int64)
	for _, raw := range raws {
		var failures map[string]int64
		if err := json.Unmarshal(raw.Value, &failures); err != nil {
			continue
		}

		for id, until := range failures {
			if until > merged[id] {
				merged[id] = until
			}
		}
	}

	return merged, nil
}

func (r repo) SetFailure(ctx context.Context, params *SetFailureParams) error {
	var errs []error
	for _, key := range r.keys(protocol.KeyFailures) {
		failures := make(map[string]int64)
		if value, err := r.store.Get(ctx, key); err == nil {
			_ = json.Unmarshal(value, &failures)
			if failures == nil {
				failures = make(map[string]int64)
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			errs = append(errs, err)
			continue
		}

		failures[params.CamID] = params.Until.UnixMilli()

		value, err := json.Marshal(failures)
		if err != nil {
			return fmt.Errorf("failed to marshal failures: %w", err)
		}

		if err := r.store.Set(ctx, key, value); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to set failure: %w", err)
	}

	return nil
}

func (r repo) ClearFailures(ctx context.Context) error {
	if err := r.store.Del(ctx, r.keys(protocol.KeyFailures)...); err != nil {
		return fmt.Errorf("failed to clear failures: %w", err)
	}

	return nil
}

func (r repo) GetBans(ctx context.Context) ([]string, error) {
	raws, err := r.readAll(ctx, protocol.KeyBans)
	if err != nil {
		return nil, fmt.Errorf("failed to read bans: %w", err)
	}

	seen := make(map[string]struct{})
	var bans []string
	for _, raw := range raws {
		var ids []string
		if err := json.Unmarshal(raw.Value, &ids); err != nil {
			continue
		}

		for _, id := range ids {
			if _, ok := seen[id]; ok || id == "" {
				continue
			}
			seen[id] = struct{}{}
			bans = append(bans, id)
		}
	}

	return bans, nil
}

func (r repo) AddBan(ctx context.Context, camID string) error {
	bans, err := r.GetBans(ctx)
	if err != nil {
		return err
	}

	for _, id := range bans {
		if id == camID {
			return nil
		}
	}

	value, err := json.Marshal(append(bans, camID))
	if err != nil {
		return fmt.Errorf("failed to marshal bans: %w", err)
	}

	if err := r.setAll(ctx, protocol.KeyBans, value); err != nil {
		return fmt.Errorf("failed to add ban: %w", err)
	}

	return nil
}

func (r repo) ClearBans(ctx context.Context) error {
	if err := r.store.Del(ctx, r.keys(protocol.KeyBans)...); err != nil {
		return fmt.Errorf("failed to clear bans: %w", err)
	}

	return nil
}

func (r repo) GetPlayer(ctx context.Context) (Player, error) {
	raws, err := r.readAll(ctx, protocol.KeyPlayer)
	if err != nil {
		return Player{}, fmt.Errorf("failed to read player: %w", err)
	}

	for _, raw := range raws {
		var p Player
		if err := json.Unmarshal(raw.Value, &p); err == nil {
			return p, nil
		}
	}

	return Player{}, ErrPlayerNotFound
}

func (r repo) SetPlayer(ctx context.Context, p *Player) error {
	value, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal player: %w", err)
	}

	if err := r.setAll(ctx, protocol.KeyPlayer, value); err != nil {
		return fmt.Errorf("failed to set player: %w", err)
	}

	return nil
}

func (r repo) ClearPlayer(ctx context.Context) error {
	if err := r.store.Del(ctx, r.keys(protocol.KeyPlayer)...); err != nil {
		return fmt.Errorf("failed to clear player: %w", err)
	}

	return nil
}
