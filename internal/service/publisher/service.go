package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sharetube/camwall/internal/protocol"
	"github.com/sharetube/camwall/pkg/clock"
)

type iMetrics interface {
	IncPublishErrors(sink string)
}

type Params struct {
	Namespace protocol.Namespace
	Sinks     []Sink
	Clock     clock.Clock
	Metrics   iMetrics
	Logger    *slog.Logger
}

type service struct {
	ns      protocol.Namespace
	clock   clock.Clock
	metrics iMetrics
	logger  *slog.Logger

	mu     sync.RWMutex
	sinks  []Sink
	last   protocol.State
	hasAny bool
}

func NewService(params *Params) *service {
	return &service{
		ns:      params.Namespace,
		sinks:   params.Sinks,
		clock:   params.Clock,
		metrics: params.Metrics,
		logger:  params.Logger,
	}
}

func (s *service) AddSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sinks = append(s.sinks, sink)
}

// Publish stamps the snapshot and sends it to every sink. Only trusted sinks
// see the shared secret. A failing sink does not stop the others; the joined
// errors are returned.
func (s *service) Publish(ctx context.Context, st protocol.State) error {
	s.mu.Lock()
	st.Type = protocol.TypeState
	st.TS = max(clock.UnixMilli(s.clock), s.last.TS+1)
	st.Key = s.ns.Secret()
	s.last = st.Public()
	s.hasAny = true
	sinks := s.sinks
	s.mu.Unlock()

	keyed, err := protocol.EncodeState(st)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	public, err := protocol.EncodeState(st.Public())
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	var errs []error
	for _, sink := range sinks {
		payload := public
		if isTrusted(sink) {
			payload = keyed
		}

		if err := sink.Send(ctx, payload); err != nil {
			s.logger.WarnContext(ctx, "failed to publish state", "sink", sink.Name(), "error", err)
			if s.metrics != nil {
				s.metrics.IncPublishErrors(sink.Name())
			}
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}

	return errors.Join(errs...)
}

// Last returns the most recently published snapshot without the shared secret.
func (s *service) Last() (protocol.State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.last, s.hasAny
}
