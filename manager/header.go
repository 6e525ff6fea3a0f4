package manager

import (
	"context"
	"fmt"
	"io"

	"github.com/larchio/larch"
)

// GetLayerHeader resolves name exactly as [Manager.GetLayer] does, then
// parses the archive header from the resulting stream. On success the
// returned stream is positioned immediately after the header bytes, ready
// for a caller to read the archive body, as [Manager.GetLayerFile] does.
//
// A parse failure is surfaced as an error, not folded into ok=false: an
// unparseable header on a layer that does exist is a real failure, distinct
// from the layer simply not being present anywhere.
func (mgr *Manager) GetLayerHeader(ctx context.Context, name larch.LayerName) (hdr larch.ArchiveHeader, stream io.ReadCloser, ok bool, err error) {
	ctx, span := tracer.Start(ctx, "Manager.GetLayerHeader")
	defer span.End()

	_, stream, ok, err = mgr.GetLayer(ctx, name)
	if err != nil || !ok {
		return nil, nil, ok, err
	}

	hdr, err = mgr.parser.ParseHeader(stream)
	if err != nil {
		stream.Close()
		return nil, nil, false, fmt.Errorf("manager: get layer header: %w", err)
	}
	return hdr, stream, true, nil
}

// GetLayerFile returns a length-bounded stream over a single named
// sub-file within name's layer. If the header does not describe tag at
// all, ok is false and no error is returned.
func (mgr *Manager) GetLayerFile(ctx context.Context, name larch.LayerName, tag larch.SubFileTag) (size int64, stream io.ReadCloser, ok bool, err error) {
	ctx, span := tracer.Start(ctx, "Manager.GetLayerFile")
	defer span.End()

	hdr, body, ok, err := mgr.GetLayerHeader(ctx, name)
	if err != nil || !ok {
		return 0, nil, ok, err
	}

	rng, ok := hdr.RangeFor(tag)
	if !ok {
		body.Close()
		return 0, nil, false, nil
	}
	if err := discard(body, rng.Start); err != nil {
		body.Close()
		return 0, nil, false, fmt.Errorf("manager: get layer file: seek to %s: %w", tag, err)
	}
	limited := &io.LimitedReader{R: body, N: rng.Len()}
	return rng.Len(), subFileStream{LimitedReader: limited, closer: body}, true, nil
}

// GetLayerFileRange resolves tag's byte range within name's layer to
// absolute file coordinates, for a caller that wants to arrange its own
// range read (e.g. handing the range to a sidecar static file server)
// instead of streaming through the Manager.
func (mgr *Manager) GetLayerFileRange(ctx context.Context, name larch.LayerName, tag larch.SubFileTag) (r larch.Range, ok bool, err error) {
	ctx, span := tracer.Start(ctx, "Manager.GetLayerFileRange")
	defer span.End()

	hdr, body, ok, err := mgr.GetLayerHeader(ctx, name)
	if err != nil || !ok {
		return larch.Range{}, ok, err
	}
	defer body.Close()

	bodyStart, err := streamPos(body)
	if err != nil {
		return larch.Range{}, false, fmt.Errorf("manager: get layer file range: %w", err)
	}

	rng, ok := hdr.RangeFor(tag)
	if !ok {
		return larch.Range{}, false, nil
	}
	return larch.Range{Start: bodyStart + rng.Start, End: bodyStart + rng.End}, true, nil
}

// discard reads and throws away n bytes from r, the seek-forward primitive
// for streams that aren't guaranteed to be io.Seeker (the local and
// primary tiers hand back a plain *os.File wrapped behind io.ReadCloser, so
// this stays generic over the interface rather than type-asserting).
func discard(r io.Reader, n int64) error {
	_, err := io.CopyN(io.Discard, r, n)
	return err
}

// streamPos reports how many bytes have been read from the start of the
// tier file underlying stream so far, by asking it to seek relative to the
// current position. Implementations that don't support seeking (none in
// this repository) would need a different approach; every tier reader
// returns a seekable *os.File.
func streamPos(stream io.ReadCloser) (int64, error) {
	seeker, ok := stream.(io.Seeker)
	if !ok {
		return 0, fmt.Errorf("stream does not support seeking")
	}
	return seeker.Seek(0, io.SeekCurrent)
}

// subFileStream bounds a sub-file's body with io.LimitReader while still
// closing the underlying tier file on Close.
type subFileStream struct {
	*io.LimitedReader
	closer io.Closer
}

func (s subFileStream) Close() error { return s.closer.Close() }
