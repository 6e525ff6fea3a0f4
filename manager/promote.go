package manager

import (
	"context"
	"time"

	"github.com/quay/zlog"

	"github.com/larchio/larch"
	"github.com/larchio/larch/internal/tier"
)

// schedulePromotion launches TryPromote in the background with a context
// detached from the request that triggered it: tracing and logging values
// carry over, but request cancellation does not. The promotion must be
// allowed to finish even if the client that caused it disconnects.
func (mgr *Manager) schedulePromotion(ctx context.Context, name larch.LayerName) {
	detached := context.WithoutCancel(ctx)
	go mgr.TryPromote(detached, name)
}

// TryPromote copies name from the primary tier to the local tier via
// scratch, deduplicating against any promotion of the same name already in
// flight in this process. It is a plain blocking call — callers that want
// fire-and-forget semantics spawn it themselves, as [Manager.schedulePromotion]
// does — which keeps it independently testable.
//
// All failures are logged and swallowed: promotion is best-effort, and the
// next request for name will simply retry it.
func (mgr *Manager) TryPromote(ctx context.Context, name larch.LayerName) {
	ctx, span := tracer.Start(ctx, "Manager.TryPromote")
	defer span.End()

	if mgr.local.Exists(name) {
		return
	}

	_ = mgr.ws.Do(name, func() error {
		if mgr.local.Exists(name) {
			return nil
		}
		start := time.Now()
		err := mgr.promote(name)
		mgr.m.promoteDur.Observe(time.Since(start).Seconds())
		if err != nil {
			mgr.m.promotions.WithLabelValues("failed").Inc()
			zlog.Error(ctx).
				Str("layer", name.String()).
				Err(err).
				Msg("promotion failed")
			return err
		}
		mgr.m.promotions.WithLabelValues("succeeded").Inc()
		return nil
	})
}

// promote performs the copy-then-rename: primary to scratch, then scratch
// to local. The two-hop path keeps a half-written file from ever being
// visible at local's canonical path.
func (mgr *Manager) promote(name larch.LayerName) error {
	if err := mgr.scratch.CopyLayer(mgr.primary, name); err != nil {
		return err
	}
	if err := mgr.local.PublishLayer(mgr.scratch, mgr.scratch.Resolve(name), name); err != nil {
		return err
	}
	return nil
}
