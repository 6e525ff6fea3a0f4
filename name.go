// Package larch implements a read-through, write-back gateway in front of a
// slow "primary" object store for immutable, content-addressed archive files
// called layers.
//
// The [LayerName] type, the [Error] taxonomy, and the [ArchiveHeader]
// contract live at this package's root because they're shared between the
// manager, the tier implementation, and the HTTP front door. The actual
// gateway logic lives in the manager package.
package larch

import (
	"encoding/hex"
	"fmt"
)

// LayerName is a content-addressable identifier for a layer: five 32-bit
// words, rendered canonically as 40 lowercase hex characters.
//
// Names are opaque. The gateway never interprets the bits; it only stores,
// compares, and hashes them.
type LayerName [5]uint32

// nameHexLen is the length, in bytes, of a LayerName's canonical textual
// form.
const nameHexLen = 40

// String renders n in its canonical 40-character lowercase hex form.
func (n LayerName) String() string {
	var buf [nameHexLen]byte
	for i, w := range n {
		hex.Encode(buf[i*8:i*8+8], []byte{
			byte(w >> 24), byte(w >> 16), byte(w >> 8), byte(w),
		})
	}
	return string(buf[:])
}

// Prefix returns the first three characters of n's canonical hex form, used
// by fan-out tiers to pick a parent directory.
func (n LayerName) Prefix() string {
	return n.String()[:3]
}

// MarshalText implements encoding.TextMarshaler.
func (n LayerName) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *LayerName) UnmarshalText(t []byte) error {
	v, err := ParseLayerName(string(t))
	if err != nil {
		return err
	}
	*n = v
	return nil
}

// ParseLayerName parses s as a canonical 40-character hex layer name.
//
// The returned error is of [ErrorKind] [ErrBadName].
func ParseLayerName(s string) (LayerName, error) {
	if len(s) != nameHexLen {
		return LayerName{}, &Error{
			Kind:    ErrBadName,
			Op:      "ParseLayerName",
			Message: fmt.Sprintf("want %d hex characters, got %d", nameHexLen, len(s)),
		}
	}
	var buf [nameHexLen / 2]byte
	if _, err := hex.Decode(buf[:], []byte(s)); err != nil {
		return LayerName{}, &Error{
			Kind:    ErrBadName,
			Op:      "ParseLayerName",
			Message: "not valid hex",
			Inner:   err,
		}
	}
	var n LayerName
	for i := range n {
		n[i] = uint32(buf[i*4])<<24 | uint32(buf[i*4+1])<<16 | uint32(buf[i*4+2])<<8 | uint32(buf[i*4+3])
	}
	return n, nil
}

// MustParseLayerName works like [ParseLayerName] but panics if s is not a
// well-formed layer name.
//
// Intended for tests and for constructing static tables, not for handling
// request input.
func MustParseLayerName(s string) LayerName {
	n, err := ParseLayerName(s)
	if err != nil {
		panic(fmt.Sprintf("larch: layer name %q could not be parsed: %v", s, err))
	}
	return n
}
