package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/larchio/larch"
)

// Build assembles a complete .larch container in memory from a set of named
// sub-file bodies, laid out in the stable order of [larch.SubFileTags]
// whatever the map's iteration order. It exists for tests and
// for any tool that needs to manufacture fixture layers; production uploads
// never construct a container this way, they just move opaque bytes.
func Build(subfiles map[larch.SubFileTag][]byte) ([]byte, error) {
	order := make([]larch.SubFileTag, 0, len(subfiles))
	for _, t := range larch.SubFileTags() {
		if _, ok := subfiles[t]; ok {
			order = append(order, t)
		}
	}
	if len(order) != len(subfiles) {
		return nil, fmt.Errorf("archive: subfiles contains an unknown tag")
	}

	var body bytes.Buffer
	type entry struct {
		code       uint16
		start, end int64
	}
	entries := make([]entry, 0, len(order))
	var pos int64
	for _, tag := range order {
		b := subfiles[tag]
		start := pos
		body.Write(b)
		pos += int64(len(b))
		entries = append(entries, entry{code: tagCode[tag], start: start, end: pos})
	}

	var out bytes.Buffer
	out.WriteString(magic)
	writeUint16(&out, formatVersion)
	writeUint16(&out, uint16(len(entries)))
	for _, e := range entries {
		var buf [tableEntrySize]byte
		binary.LittleEndian.PutUint16(buf[0:2], e.code)
		binary.LittleEndian.PutUint64(buf[2:10], uint64(e.start))
		binary.LittleEndian.PutUint64(buf[10:18], uint64(e.end))
		out.Write(buf[:])
	}
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

func writeUint16(b *bytes.Buffer, v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	b.Write(buf[:])
}
