package receiver

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
	"github.com/sharetube/camwall/pkg/clock"
	"golang.org/x/time/rate"
)

type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeUntrusted Outcome = "untrusted"
	OutcomeMalformed Outcome = "malformed"
	OutcomeRejected  Outcome = "rejected"
	OutcomeIgnored   Outcome = "ignored"
)

type iScheduler interface {
	Apply(ctx context.Context, cmd protocol.Command) error
}

type iBus interface {
	Subscribe(ctx context.Context, channels ...string) (<-chan bus.Message, error)
}

type iStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Watch(ctx context.Context, keys ...string) (<-chan store.Change, error)
}

type iMetrics interface {
	IncCommands(outcome string)
}

type Params struct {
	Namespace    protocol.Namespace
	Scheduler    iScheduler
	Bus          iBus
	Store        iStore
	PollInterval time.Duration
	Clock        clock.Clock
	Metrics      iMetrics
	Logger       *slog.Logger
}

type service struct {
	ns           protocol.Namespace
	scheduler    iScheduler
	bus          iBus
	store        iStore
	pollInterval time.Duration
	clock        clock.Clock
	metrics      iMetrics
	logger       *slog.Logger
	dropLog      *rate.Limiter

	mu     sync.Mutex
	lastTS int64
}

func NewService(params *Params) *service {
	return &service{
		ns:           params.Namespace,
		scheduler:    params.Scheduler,
		bus:          params.Bus,
		store:        params.Store,
		pollInterval: params.PollInterval,
		clock:        params.Clock,
		metrics:      params.Metrics,
		logger:       params.Logger,
		dropLog:      rate.NewLimiter(rate.Every(10*time.Second), 5),
	}
}

// Prime marks the newest stored command as already applied so a restart does
// not replay it.
func (s *service) Prime(ctx context.Context) {
	for _, ch := range s.ns.Names(protocol.KeyCommand) {
		data, err := s.store.Get(ctx, ch.Name)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				s.logger.WarnContext(ctx, "failed to read stored command", "key", ch.Name, "error", err)
			}
			continue
		}

		cmd, err := protocol.DecodeCommand(data)
		if err != nil {
			continue
		}

		s.mu.Lock()
		s.lastTS = max(s.lastTS, cmd.TS)
		s.mu.Unlock()
	}
}

// NextTS returns a timestamp newer than anything applied so far, for commands
// that arrive without one.
func (s *service) NextTS() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return max(clock.UnixMilli(s.clock), s.lastTS+1)
}

// Handle decodes, authenticates and deduplicates one raw message from ch and
// applies it when it is a new command.
func (s *service) Handle(ctx context.Context, ch protocol.Channel, data []byte) (Outcome, error) {
	typ, err := protocol.PeekType(data)
	if err != nil {
		return s.drop(ctx, OutcomeMalformed, ch, err), nil
	}
	if typ != protocol.TypeCommand {
		return OutcomeIgnored, nil
	}

	cmd, err := protocol.DecodeCommand(data)
	if err != nil {
		return s.drop(ctx, OutcomeMalformed, ch, err), nil
	}

	return s.Accept(ctx, ch, cmd)
}

// Accept runs the trust and dedup checks on an already decoded command.
func (s *service) Accept(ctx context.Context, ch protocol.Channel, cmd protocol.Command) (Outcome, error) {
	if !s.ns.Trust(ch, cmd.Key) {
		return s.drop(ctx, OutcomeUntrusted, ch, nil), nil
	}

	s.mu.Lock()
	if cmd.TS <= s.lastTS {
		s.mu.Unlock()
		s.count(OutcomeDuplicate)
		return OutcomeDuplicate, nil
	}
	s.lastTS = cmd.TS
	s.mu.Unlock()

	if err := s.scheduler.Apply(ctx, cmd); err != nil {
		s.count(OutcomeRejected)
		s.logger.DebugContext(ctx, "command not applied", "cmd", cmd.Kind, "ts", cmd.TS, "error", err)
		return OutcomeRejected, fmt.Errorf("failed to apply %s: %w", cmd.Kind, err)
	}

	s.count(OutcomeApplied)
	s.logger.InfoContext(ctx, "command applied", "cmd", cmd.Kind, "ts", cmd.TS, "channel", ch.Name)
	return OutcomeApplied, nil
}

func (s *service) drop(ctx context.Context, outcome Outcome, ch protocol.Channel, err error) Outcome {
	s.count(outcome)
	if s.dropLog.Allow() {
		s.logger.DebugContext(ctx, "dropping message", "outcome", outcome, "channel", ch.Name, "error", err)
	}

	return outcome
}

func (s *service) count(outcome Outcome) {
	if s.metrics != nil {
		s.metrics.IncCommands(string(outcome))
	}
}

// Run listens on the bus channels, watches the stored command keys and polls
// them until ctx is done.
func (s *service) Run(ctx context.Context) error {
	s.Prime(ctx)

	busChannels := s.ns.BusChannels()

	var messages <-chan bus.Message
	if s.bus != nil {
		var err error
		messages, err = s.bus.Subscribe(ctx, protocol.ChannelNames(busChannels)...)
		if err != nil {
			return fmt.Errorf("failed to subscribe to bus: %w", err)
		}
	}

	cmdKeys := s.ns.Names(protocol.KeyCommand)
	changes, err := s.store.Watch(ctx, protocol.ChannelNames(cmdKeys)...)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to watch command keys, relying on polling", "error", err)
	}

	poll := time.NewTicker(s.pollInterval)
	defer poll.Stop()

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
					s.handleLogged(ctx, ch, msg.Payload)
				}
			}
		case change, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			if ch, ok := s.ns.Lookup(protocol.KeyCommand, change.Key); ok {
				s.readKey(ctx, ch)
			}
		case <-poll.C:
			for _, ch := range cmdKeys {
				s.readKey(ctx, ch)
			}
		}
	}
}

func (s *service) readKey(ctx context.Context, ch protocol.Channel) {
	data, err := s.store.Get(ctx, ch.Name)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) && s.dropLog.Allow() {
			s.logger.WarnContext(ctx, "failed to read command key", "key", ch.Name, "error", err)
		}
		return
	}

	s.handleLogged(ctx, ch, data)
}

func (s *service) handleLogged(ctx context.Context, ch protocol.Channel, data []byte) {
	if _, err := s.Handle(ctx, ch, data); err != nil {
		s.logger.InfoContext(ctx, "command rejected", "channel", ch.Name, "error", err)
	}
}
