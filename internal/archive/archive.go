// Package archive implements the ".larch" reference container format: the
// concrete [larch.HeaderParser] / [larch.ArchiveHeader] pair the rest of the
// repository builds and parses layers against.
//
// The Layer Manager never imports this package directly for its own
// operation; it depends only on the larch.ArchiveHeader and HeaderParser
// interfaces. cmd/larchd wires a Codec in as the concrete implementation.
package archive

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/larchio/larch"
)

const (
	magic          = "LARC"
	formatVersion  = uint16(1)
	tableEntrySize = 24
)

// tagCode is the static, bijective mapping between a larch.SubFileTag and
// its on-the-wire uint16 code. The mapping is the tag's index in
// larch.SubFileTags(), so it is stable as long as that slice's order never
// changes.
var (
	tagCode map[larch.SubFileTag]uint16
	codeTag map[uint16]larch.SubFileTag
)

func init() {
	tags := larch.SubFileTags()
	tagCode = make(map[larch.SubFileTag]uint16, len(tags))
	codeTag = make(map[uint16]larch.SubFileTag, len(tags))
	for i, t := range tags {
		tagCode[t] = uint16(i)
		codeTag[uint16(i)] = t
	}
}

// Header is the reference implementation of larch.ArchiveHeader: an
// in-memory table of sub-file ranges parsed from a .larch container's
// fixed-size prefix.
type Header struct {
	version uint16
	ranges  map[larch.SubFileTag]larch.Range
}

var _ larch.ArchiveHeader = (*Header)(nil)

// RangeFor implements larch.ArchiveHeader.
func (h *Header) RangeFor(tag larch.SubFileTag) (larch.Range, bool) {
	r, ok := h.ranges[tag]
	return r, ok
}

// Version reports the container format version the header was parsed as.
func (h *Header) Version() uint16 { return h.version }

// Codec implements larch.HeaderParser for the .larch container format.
type Codec struct{}

var _ larch.HeaderParser = Codec{}

// ParseHeader implements larch.HeaderParser. It reads the fixed-size magic,
// version, and sub-file table from r, leaving r positioned at the start of
// the archive body.
//
// r is read with exact-size [io.ReadFull] calls only, never through a
// buffering reader: a buffered reader would pull ahead into the archive
// body, and the post-header stream position is part of this method's
// contract (see larch.HeaderParser).
func (Codec) ParseHeader(r io.Reader) (larch.ArchiveHeader, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, headerErr("read magic", err)
	}
	if string(buf[:]) != magic {
		return nil, headerErr("bad magic", fmt.Errorf("got %q, want %q", buf, magic))
	}

	version, err := readUint16(r)
	if err != nil {
		return nil, headerErr("read version", err)
	}
	if version != formatVersion {
		return nil, headerErr("unsupported version", fmt.Errorf("got %d, want %d", version, formatVersion))
	}

	count, err := readUint16(r)
	if err != nil {
		return nil, headerErr("read sub-file count", err)
	}

	h := &Header{version: version, ranges: make(map[larch.SubFileTag]larch.Range, count)}
	entry := make([]byte, tableEntrySize)
	for i := 0; i < int(count); i++ {
		if _, err := io.ReadFull(r, entry); err != nil {
			return nil, headerErr("read sub-file table entry", err)
		}
		code := binary.LittleEndian.Uint16(entry[0:2])
		start := binary.LittleEndian.Uint64(entry[2:10])
		end := binary.LittleEndian.Uint64(entry[10:18])

		tag, ok := codeTag[code]
		if !ok {
			return nil, headerErr("unknown sub-file code", fmt.Errorf("code %d", code))
		}
		rng := larch.Range{Start: int64(start), End: int64(end)}
		if rng.End < rng.Start {
			return nil, headerErr("invalid range", fmt.Errorf("tag %s: end %d < start %d", tag, end, start))
		}
		h.ranges[tag] = rng
	}
	return h, nil
}

func readUint16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func headerErr(op string, inner error) error {
	return &larch.Error{Kind: larch.ErrHeaderParse, Op: "archive.ParseHeader", Message: op, Inner: inner}
}
