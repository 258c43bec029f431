package observer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sharetube/camwall/internal/protocol"
	"github.com/sharetube/camwall/pkg/clock"
)

type iPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type iWriter interface {
	Set(ctx context.Context, key string, value []byte) error
}

// Sender writes commands to every bus channel and every command key. Either
// path alone is enough for the player to receive it.
type Sender struct {
	ns    protocol.Namespace
	bus   iPublisher
	store iWriter
	clock clock.Clock

	mu     sync.Mutex
	lastTS int64
}

func NewSender(ns protocol.Namespace, bus iPublisher, st iWriter, c clock.Clock) *Sender {
	return &Sender{
		ns:    ns,
		bus:   bus,
		store: st,
		clock: c,
	}
}

func (s *Sender) nextTS() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastTS = max(clock.UnixMilli(s.clock), s.lastTS+1)
	return s.lastTS
}

func (s *Sender) Send(ctx context.Context, kind protocol.CommandKind, payload any) (protocol.Command, error) {
	cmd, err := protocol.NewCommand(kind, payload, s.nextTS())
	if err != nil {
		return protocol.Command{}, err
	}
	cmd.Key = s.ns.Secret()

	data, err := protocol.EncodeCommand(cmd)
	if err != nil {
		return protocol.Command{}, fmt.Errorf("failed to encode command: %w", err)
	}

	var errs []error
	delivered := 0
	if s.bus != nil {
		for _, ch := range s.ns.BusChannels() {
			if err := s.bus.Publish(ctx, ch.Name, data); err != nil {
				errs = append(errs, err)
				continue
			}
			delivered++
		}
	}
	for _, ch := range s.ns.Names(protocol.KeyCommand) {
		if err := s.store.Set(ctx, ch.Name, data); err != nil {
			errs = append(errs, err)
			continue
		}
		delivered++
	}

	if delivered == 0 {
		return cmd, fmt.Errorf("failed to send command: %w", errors.Join(errs...))
	}

	return cmd, nil
}
