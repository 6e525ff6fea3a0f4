package tier

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/larchio/larch"
)

// rename atomically renames oldRel to newRel, both relative to r's own
// root. Used for the tmp-then-link pattern within a single tier.
func (r *Root) rename(oldRel, newRel string) error {
	oldPath := filepath.Join(r.Name(), oldRel)
	newPath := filepath.Join(r.Name(), newRel)
	if err := os.Rename(oldPath, newPath); err != nil {
		return &larch.Error{Kind: larch.ErrFilesystem, Op: "tier.rename", Message: newRel, Inner: err}
	}
	return nil
}

// PublishLayer renames srcRel, a path relative to src's root, onto r as
// name via a plain filesystem rename, creating r's fan-out directory first
// if needed.
//
// This is the scratch-to-local publish step of promotion,
// where srcRel is src.Resolve(name), and the upload-to-primary publish step
// of an upload, where srcRel is the upload tier's generated temp
// name. It requires src and r to share a filesystem; see [IsCrossDevice]
// for detecting the deployment-misconfiguration case where they don't.
func (r *Root) PublishLayer(src *Root, srcRel string, name larch.LayerName) error {
	if err := r.EnsureFanoutDir(name); err != nil {
		return err
	}
	return r.RenameFrom(src, srcRel, r.Resolve(name))
}

// RenameFrom renames srcRel, relative to src's root, onto dstRel, relative
// to r's root, via a plain filesystem rename. Unlike PublishLayer it makes
// no assumption about the fan-out scheme and creates no directories; it is
// the primitive PublishLayer and the startup mount check are both built on.
func (r *Root) RenameFrom(src *Root, srcRel, dstRel string) error {
	oldPath := filepath.Join(src.Name(), srcRel)
	newPath := filepath.Join(r.Name(), dstRel)
	if err := os.Rename(oldPath, newPath); err != nil {
		return &larch.Error{
			Kind:    larch.ErrFilesystem,
			Op:      "tier.RenameFrom",
			Message: fmt.Sprintf("rename %s -> %s tier", src.Kind(), r.Kind()),
			Inner:   err,
		}
	}
	return nil
}

// Remove deletes rel, relative to r's root. Used to clean up artifacts
// that don't go through the copy-then-rename path, such as the startup
// mount check's probe file.
func (r *Root) Remove(rel string) error {
	if err := r.root.Remove(rel); err != nil {
		return &larch.Error{Kind: larch.ErrFilesystem, Op: "tier.Remove", Message: rel, Inner: err}
	}
	return nil
}

// IsCrossDevice reports whether err is the "invalid cross-device link"
// failure a rename produces when its two paths aren't on the same mounted
// filesystem. A deployment that trips this has broken the scratch-and-local
// co-mount invariant.
func IsCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return errors.Is(linkErr.Err, syscall.EXDEV)
	}
	return errors.Is(err, syscall.EXDEV)
}
