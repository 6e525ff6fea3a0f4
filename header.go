package larch

import "io"

// Range is a half-open byte interval, [Start, End).
type Range struct {
	Start int64
	End   int64
}

// Len returns the number of bytes in r.
func (r Range) Len() int64 { return r.End - r.Start }

// ArchiveHeader is the contract the core relies on to locate a layer's
// sub-files without parsing the whole archive.
//
// An ArchiveHeader is produced by parsing a prefix of an open layer stream.
// After a successful parse, the stream passed to the parser is positioned
// immediately past the header; every Range returned by RangeFor is relative
// to that position, not to the start of the file.
//
// The core treats this as an oracle: it never inspects header internals
// beyond this interface. See internal/archive for the bundled reference
// implementation.
type ArchiveHeader interface {
	// RangeFor returns the byte range occupied by the named sub-file,
	// relative to the end of the header, and whether that sub-file is
	// present at all.
	RangeFor(tag SubFileTag) (Range, bool)
}

// HeaderParser parses an ArchiveHeader from the start of r, consuming
// exactly the header's bytes and leaving r positioned at the start of the
// archive body.
//
// Implementations must not read past the header; the core depends on the
// reader's position after a successful call to translate sub-file ranges
// into absolute offsets.
type HeaderParser interface {
	ParseHeader(r io.Reader) (ArchiveHeader, error)
}
