package publisher

import (
	"context"

	"github.com/sharetube/camwall/internal/protocol"
)

// Sink is one destination of a published snapshot.
type Sink interface {
	Name() string
	Send(ctx context.Context, payload []byte) error
}

// trustedSink is implemented by sinks behind the shared secret. Only they
// receive snapshots carrying the key; every other sink gets the public encoding.
type trustedSink interface {
	Trusted() bool
}

func isTrusted(sink Sink) bool {
	t, ok := sink.(trustedSink)
	return ok && t.Trusted()
}

type iBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type iStore interface {
	Set(ctx context.Context, key string, value []byte) error
}

type busSink struct {
	bus     iBus
	channel string
}

func (s busSink) Name() string {
	return "bus:" + s.channel
}

func (busSink) Trusted() bool {
	return true
}

func (s busSink) Send(ctx context.Context, payload []byte) error {
	return s.bus.Publish(ctx, s.channel, payload)
}

type storeSink struct {
	store iStore
	key   string
}

func (s storeSink) Name() string {
	return "store:" + s.key
}

func (storeSink) Trusted() bool {
	return true
}

func (s storeSink) Send(ctx context.Context, payload []byte) error {
	return s.store.Set(ctx, s.key, payload)
}

// BusSinks returns a sink per bus channel of ns, authoritative first.
func BusSinks(bus iBus, ns protocol.Namespace) []Sink {
	chs := ns.BusChannels()
	sinks := make([]Sink, 0, len(chs))
	for _, ch := range chs {
		sinks = append(sinks, busSink{bus: bus, channel: ch.Name})
	}

	return sinks
}

// StoreSinks returns a sink per variant of the state key.
func StoreSinks(store iStore, ns protocol.Namespace) []Sink {
	chs := ns.Names(protocol.KeyState)
	sinks := make([]Sink, 0, len(chs))
	for _, ch := range chs {
		sinks = append(sinks, storeSink{store: store, key: ch.Name})
	}

	return sinks
}
