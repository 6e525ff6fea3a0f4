package manager

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/larchio/larch"
)

// UploadLayer ingests body as a new layer under name: the bytes are
// streamed to a fresh temp file under the upload tier, then that file is
// atomically moved into the primary tier. The temp file is never linked
// into primary under any name but name's final one.
func (mgr *Manager) UploadLayer(ctx context.Context, name larch.LayerName, body io.Reader) error {
	ctx, span := tracer.Start(ctx, "Manager.UploadLayer")
	defer span.End()

	tmp, err := mgr.upload.CreateTemp()
	if err != nil {
		return fmt.Errorf("manager: upload layer: %w", err)
	}

	n, err := io.Copy(tmp, body)
	if err != nil {
		tmp.Discard()
		return &larch.Error{Kind: larch.ErrUpstreamStream, Op: "manager.UploadLayer", Inner: err}
	}

	if err := tmp.Publish(mgr.primary, name); err != nil {
		tmp.Discard()
		return fmt.Errorf("manager: upload layer: publish: %w", err)
	}

	mgr.m.uploadSize.Add(float64(n))
	mgr.schedulePromotion(ctx, name)
	return nil
}

// MoveUploadedOutsideLayer moves a file an upstream component has already
// spooled to disk into the primary tier as name, without the Manager
// having streamed the bytes itself.
//
// externalPath is untrusted: the only thing proving it was meant for this
// purpose is the caller's word. The Manager refuses any path whose
// canonicalized parent directory is not exactly the canonicalized upload
// root, closing off both ".." traversal and symlink tricks that would
// otherwise let an upstream move an arbitrary file into primary storage.
// The check compares the parent, not externalPath itself, because the
// file may not exist yet in a form EvalSymlinks can canonicalize, and
// checks for equality rather than a path prefix so a sibling directory
// whose name merely starts with the upload root's can't slip through.
func (mgr *Manager) MoveUploadedOutsideLayer(ctx context.Context, name larch.LayerName, externalPath string) error {
	ctx, span := tracer.Start(ctx, "Manager.MoveUploadedOutsideLayer")
	defer span.End()

	uploadRoot, err := filepath.EvalSymlinks(mgr.upload.Name())
	if err != nil {
		return &larch.Error{Kind: larch.ErrFilesystem, Op: "manager.MoveUploadedOutsideLayer", Message: "resolve upload root", Inner: err}
	}

	parent, err := filepath.EvalSymlinks(filepath.Dir(externalPath))
	if err != nil {
		return &larch.Error{Kind: larch.ErrBadPath, Op: "manager.MoveUploadedOutsideLayer", Message: "resolve parent of " + externalPath, Inner: err}
	}
	if parent != uploadRoot {
		return &larch.Error{
			Kind:    larch.ErrBadPath,
			Op:      "manager.MoveUploadedOutsideLayer",
			Message: fmt.Sprintf("parent %q is not the upload root %q", parent, uploadRoot),
		}
	}

	rel, err := filepath.Rel(mgr.upload.Name(), externalPath)
	if err != nil {
		return &larch.Error{Kind: larch.ErrBadPath, Op: "manager.MoveUploadedOutsideLayer", Inner: err}
	}
	if err := mgr.primary.PublishLayer(mgr.upload, rel, name); err != nil {
		return fmt.Errorf("manager: move uploaded outside layer: %w", err)
	}

	mgr.schedulePromotion(ctx, name)
	return nil
}
