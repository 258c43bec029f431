package scheduler

import (
	"context"

	"github.com/sharetube/camwall/internal/catalog"
)

func (s *service) updateCatalog(ctx context.Context, cams []catalog.Cam) error {
	wasStopped := s.stopped()
	s.raw = cams

	if !wasStopped {
		return s.refilter(ctx, ReasonCatalog)
	}

	s.rebuild(ctx)
	if s.stopped() {
		s.stop(ctx)
		return nil
	}

	s.logger.InfoContext(ctx, "catalog has playable cams again")
	s.jump(ctx, 0, ReasonCatalog, false)
	return nil
}
