package tier

import (
	"errors"
	"io/fs"
	"os"

	"github.com/google/uuid"

	"github.com/larchio/larch"
)

// TempFile is a freshly created, uniquely-named file under the upload tier.
// The caller never chooses its name; it streams a request body into
// one, then publishes it into the primary tier by name.
type TempFile struct {
	*os.File
	root *Root
	rel  string
}

// CreateTemp creates a new, empty file with a generated name, retrying on
// the (vanishingly unlikely) collision. Valid on the upload and scratch
// tiers, the two flat (non-fan-out) tiers that exist purely to stage
// in-flight writes under a name nothing else will guess.
//
// The name is random and the file is opened exclusively, so a collision is
// detected rather than silently overwriting another in-flight upload.
func (r *Root) CreateTemp() (*TempFile, error) {
	if r.kind.fanout() {
		panic("tier: CreateTemp called on a fan-out tier")
	}
	for {
		rel := "tmp-" + uuid.NewString()
		f, err := r.root.OpenFile(rel, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
		switch {
		case err == nil:
			return &TempFile{File: f, root: r, rel: rel}, nil
		case errors.Is(err, fs.ErrExist):
			continue
		default:
			return nil, &larch.Error{Kind: larch.ErrFilesystem, Op: "tier.CreateTemp", Inner: err}
		}
	}
}

// Discard closes and removes the temp file without publishing it. Used on
// any error path between creation and the final rename.
func (t *TempFile) Discard() error {
	err := t.File.Close()
	if rmErr := t.root.root.Remove(t.rel); rmErr != nil && err == nil {
		err = rmErr
	}
	return err
}

// Publish renames the temp file into dst under name, creating dst's
// fan-out directory first if needed. The temp file is closed either way;
// on success it is no longer reachable at its upload-tier path.
func (t *TempFile) Publish(dst *Root, name larch.LayerName) error {
	closeErr := t.File.Close()
	if err := dst.PublishLayer(t.root, t.rel, name); err != nil {
		return err
	}
	return closeErr
}
