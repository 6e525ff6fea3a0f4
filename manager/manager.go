// Package manager implements the Layer Manager façade: the public surface
// the rest of a running process talks to in order to read, upload, and
// inspect layers, and the Promotion Coordinator that moves layers from the
// primary tier onto local storage in the background.
//
// A cross-mount rename is the central hazard this package guards against.
// Promotion publishes by renaming a file from scratch onto local; if those
// two tiers are not co-mounted, the rename fails with syscall.EXDEV instead
// of completing atomically, and falling back to a non-atomic copy would let
// a concurrent reader observe a torn file. Deployments must co-mount
// scratch and local; [CheckMount] lets a process verify this once at
// startup instead of discovering it layer by layer.
package manager

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/larchio/larch"
	"github.com/larchio/larch/internal/tier"
	"github.com/larchio/larch/internal/workset"
)

// Manager is the Layer Manager façade. It is long-lived and safe for
// concurrent use by every request handler in the process; background
// promotions it spawns hold a reference to the same Manager and outlive
// the request that triggered them.
type Manager struct {
	primary *tier.Root
	local   *tier.Root
	scratch *tier.Root
	upload  *tier.Root

	parser larch.HeaderParser
	ws     *workset.WorkSet
	m      *metrics
}

// New constructs a Manager over the four already-opened tier roots and a
// header parser for the archive format in use.
func New(primary, local, scratch, upload *tier.Root, parser larch.HeaderParser, reg *prometheus.Registry) *Manager {
	return &Manager{
		primary: primary,
		local:   local,
		scratch: scratch,
		upload:  upload,
		parser:  parser,
		ws:      workset.New(),
		m:       newMetrics(reg),
	}
}

// GetLayer resolves name to a readable stream, consulting local first and
// falling back to primary. A primary hit schedules a background promotion
// before returning; the caller's stream is unaffected by it either way.
func (mgr *Manager) GetLayer(ctx context.Context, name larch.LayerName) (size int64, stream io.ReadCloser, ok bool, err error) {
	ctx, span := tracer.Start(ctx, "Manager.GetLayer")
	defer span.End()

	size, stream, err = mgr.local.OpenLayer(name)
	switch {
	case err == nil:
		mgr.m.tierHits.WithLabelValues("local", "hit").Inc()
		return size, stream, true, nil
	case tier.Absent(err):
		mgr.m.tierHits.WithLabelValues("local", "miss").Inc()
	default:
		mgr.m.tierHits.WithLabelValues("local", "error").Inc()
		return 0, nil, false, fmt.Errorf("manager: get layer: local tier: %w", err)
	}

	size, stream, err = mgr.primary.OpenLayer(name)
	switch {
	case err == nil:
		mgr.m.tierHits.WithLabelValues("primary", "hit").Inc()
		mgr.schedulePromotion(ctx, name)
		return size, stream, true, nil
	case tier.Absent(err):
		mgr.m.tierHits.WithLabelValues("primary", "miss").Inc()
		return 0, nil, false, nil
	default:
		mgr.m.tierHits.WithLabelValues("primary", "error").Inc()
		return 0, nil, false, fmt.Errorf("manager: get layer: primary tier: %w", err)
	}
}
