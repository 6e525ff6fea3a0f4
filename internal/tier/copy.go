package tier

import (
	"fmt"
	"io"
	"os"

	"github.com/larchio/larch"
)

// CopyLayer copies name's file from src to r (the destination tier) as a
// plain byte copy. Used by the Promotion Coordinator to stage a primary
// layer into scratch before the atomic publish rename.
//
// The destination is written to a temporary name and only linked into its
// final path on success, so a reader can never observe a partial file at
// name's resolved path.
func (r *Root) CopyLayer(src *Root, name larch.LayerName) (err error) {
	_, in, err := src.OpenLayer(name)
	if err != nil {
		return fmt.Errorf("tier: copy %s: open source: %w", name, err)
	}
	defer in.Close()

	rel := r.Resolve(name)
	tmp := rel + ".tmp"
	out, err := r.root.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return &larch.Error{Kind: larch.ErrFilesystem, Op: "tier.CopyLayer", Message: "create " + tmp, Inner: err}
	}
	ok := false
	defer func() {
		if !ok {
			out.Close()
			r.root.Remove(tmp)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return &larch.Error{Kind: larch.ErrFilesystem, Op: "tier.CopyLayer", Message: "copy body", Inner: err}
	}
	if err := out.Close(); err != nil {
		return &larch.Error{Kind: larch.ErrFilesystem, Op: "tier.CopyLayer", Message: "flush " + tmp, Inner: err}
	}
	if err := r.rename(tmp, rel); err != nil {
		return err
	}
	ok = true
	return nil
}
