// Package wire frames cached read entries: the generation observed when the
// read was taken, when it was stored, and the codec payload.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const (
	version   byte = 1
	kindEntry byte = 1

	// magic(4) | ver(1) | kind(1) | gen(u64 be) | storedAt(i64 be, unix nanos) | vlen(u32 be)
	headerLen = 4 + 1 + 1 + 8 + 8 + 4
)

var (
	ErrCorrupt = errors.New("pathmut: corrupt cache entry")
	magic4     = [...]byte{'P', 'M', 'Q', 'C'}
)

// Entry is one cached read.
type Entry struct {
	Gen      uint64
	StoredAt time.Time
	Payload  []byte
}

// Encode frames e. A zero StoredAt is stored as 0.
func Encode(e Entry) []byte {
	var buf bytes.Buffer
	buf.Grow(headerLen + len(e.Payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindEntry)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], e.Gen)
	buf.Write(u8[:])

	var at int64
	if !e.StoredAt.IsZero() {
		at = e.StoredAt.UnixNano()
	}
	binary.BigEndian.PutUint64(u8[:], uint64(at))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(e.Payload)))
	buf.Write(u4[:])

	buf.Write(e.Payload)
	return buf.Bytes()
}

// Decode parses a framed entry. Payload aliases b.
func Decode(b []byte) (Entry, error) {
	if len(b) < headerLen || !bytes.Equal(b[:4], magic4[:]) || b[4] != version || b[5] != kindEntry {
		return Entry{}, ErrCorrupt
	}
	off := 6

	gen := binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	at := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen != len(b)-off {
		return Entry{}, ErrCorrupt
	}

	e := Entry{Gen: gen, Payload: b[off:]}
	if at != 0 {
		e.StoredAt = time.Unix(0, at)
	}
	return e, nil
}
