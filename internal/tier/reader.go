package tier

import (
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/larchio/larch"
)

// OpenLayer stats and opens name's
// file on this tier, distinguishing "not present" from a real I/O failure.
//
// size is taken from Stat, not from the returned stream, because callers
// need it to set Content-Length before any bytes flow.
func (r *Root) OpenLayer(name larch.LayerName) (size int64, stream io.ReadCloser, err error) {
	return r.open(r.Resolve(name))
}

func (r *Root) open(rel string) (size int64, stream io.ReadCloser, err error) {
	fi, err := r.root.Stat(rel)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		return 0, nil, &larch.Error{Kind: larch.ErrAbsent, Op: "tier.Open", Message: rel}
	default:
		return 0, nil, &larch.Error{Kind: larch.ErrFilesystem, Op: "tier.Open", Message: "stat " + rel, Inner: err}
	}

	f, err := r.root.OpenFile(rel, os.O_RDONLY, 0)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		// Raced with a concurrent delete between Stat and Open.
		return 0, nil, &larch.Error{Kind: larch.ErrAbsent, Op: "tier.Open", Message: rel}
	default:
		return 0, nil, &larch.Error{Kind: larch.ErrFilesystem, Op: "tier.Open", Message: "open " + rel, Inner: err}
	}
	return fi.Size(), f, nil
}

// Exists reports whether name's file is present on this tier.
//
// A stat failure other than not-found is treated pessimistically as
// "exists" (the caller is expected to be the Promotion Coordinator's
// admission check, which must avoid stampeding a sick filesystem).
func (r *Root) Exists(name larch.LayerName) bool {
	_, err := r.root.Stat(r.Resolve(name))
	if err == nil {
		return true
	}
	return !errors.Is(err, fs.ErrNotExist)
}

// Absent reports whether err represents a definitive not-found answer from
// this package, as opposed to a real filesystem failure.
func Absent(err error) bool {
	return errors.Is(err, larch.ErrAbsent)
}
