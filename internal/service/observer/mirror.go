package observer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sharetube/camwall/internal/protocol"
	"github.com/sharetube/camwall/internal/repository/bus"
	"github.com/sharetube/camwall/internal/repository/store"
)

type iSubscriber interface {
	Subscribe(ctx context.Context, channels ...string) (<-chan bus.Message, error)
}

type iReader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

type MirrorParams struct {
	Namespace    protocol.Namespace
	Bus          iSubscriber
	Store        iReader
	PollInterval time.Duration
	OnState      func(protocol.State)
	Logger       *slog.Logger
}

// Mirror keeps a read-only copy of the player's snapshot. Bus snapshots are
// applied as they arrive; polled ones only when the cam changed.
type Mirror struct {
	ns           protocol.Namespace
	bus          iSubscriber
	store        iReader
	pollInterval time.Duration
	onState      func(protocol.State)
	logger       *slog.Logger

	mu      sync.RWMutex
	current protocol.State
	seen    bool
}

func NewMirror(params *MirrorParams) *Mirror {
	return &Mirror{
		ns:           params.Namespace,
		bus:          params.Bus,
		store:        params.Store,
		pollInterval: params.PollInterval,
		onState:      params.OnState,
		logger:       params.Logger,
	}
}

func (m *Mirror) Current() (protocol.State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.current, m.seen
}

func (m *Mirror) decode(ch protocol.Channel, data []byte) (protocol.State, bool) {
	st, err := protocol.DecodeState(data)
	if err != nil {
		return protocol.State{}, false
	}

	if !m.ns.Trust(ch, st.Key) {
		m.logger.Debug("untrusted snapshot", "channel", ch.Name)
		return protocol.State{}, false
	}

	return st, true
}

// HandleBus applies a snapshot received on a bus channel.
func (m *Mirror) HandleBus(ch protocol.Channel, data []byte) bool {
	st, ok := m.decode(ch, data)
	if !ok {
		return false
	}

	m.apply(st)
	return true
}

// HandlePolled applies a snapshot read from the store when its cam differs from
// the last one seen.
func (m *Mirror) HandlePolled(ch protocol.Channel, data []byte) bool {
	st, ok := m.decode(ch, data)
	if !ok {
		return false
	}

	m.mu.RLock()
	same := m.seen && m.current.CamID() == st.CamID()
	m.mu.RUnlock()
	if same {
		return false
	}

	m.apply(st)
	return true
}

func (m *Mirror) apply(st protocol.State) {
	m.mu.Lock()
	m.current = st
	m.seen = true
	m.mu.Unlock()

	if m.onState != nil {
		m.onState(st)
	}
}

func (m *Mirror) Run(ctx context.Context) error {
	busChannels := m.ns.BusChannels()

	var messages <-chan bus.Message
	if m.bus != nil {
		var err error
		messages, err = m.bus.Subscribe(ctx, protocol.ChannelNames(busChannels)...)
		if err != nil {
			return fmt.Errorf("failed to subscribe to bus: %w", err)
		}
	}

	stateKeys := m.ns.Names(protocol.KeyState)
	m.poll(ctx, stateKeys)

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				messages = nil
				continue
			}
			for _, ch := range busChannels {
				if ch.Name == msg.Channel {
					m.HandleBus(ch, msg.Payload)
				}
			}
		case <-ticker.C:
			m.poll(ctx, stateKeys)
		}
	}
}

// poll reads the authoritative key first and stops at the first trusted snapshot.
func (m *Mirror) poll(ctx context.Context, keys []protocol.Channel) {
	for _, ch := range keys {
		data, err := m.store.Get(ctx, ch.Name)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				m.logger.WarnContext(ctx, "failed to read state", "key", ch.Name, "error", err)
			}
			continue
		}

		if _, ok := m.decode(ch, data); ok {
			m.HandlePolled(ch, data)
			return
		}
	}
}
