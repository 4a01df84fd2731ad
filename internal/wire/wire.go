package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const version byte = 1

var (
	ErrCorrupt = errors.New("herdcache: corrupt entry")
	magic4     = [...]byte{'H', 'E', 'R', 'D'}
)

const hdrLen = 4 + 1 + 8 + 8 + 8 + 4

// Header is the cache metadata stored in front of every value payload.
// All timestamps are unix milliseconds; LastAttemptMs == 0 means absent.
type Header struct {
	CachedAtMs    int64
	TTLMs         int64
	LastAttemptMs int64
}

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Entry: magic(4) | ver(1) | cachedAt(i64 be) | ttl(i64 be) | lastAttempt(i64 be) | vlen(u32 be) | payload(vlen)
func EncodeEntry(h Header, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(hdrLen + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], uint64(h.CachedAtMs))
	buf.Write(u8[:])
	binary.BigEndian.PutUint64(u8[:], uint64(h.TTLMs))
	buf.Write(u8[:])
	binary.BigEndian.PutUint64(u8[:], uint64(h.LastAttemptMs))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// DecodeEntry parses an entry produced by EncodeEntry. Anything else,
// including payloads written before this framing existed, is ErrCorrupt.
func DecodeEntry(b []byte) (Header, []byte, error) {
	if len(b) < hdrLen || !hasMagic(b) || b[4] != version {
		return Header{}, nil, ErrCorrupt
	}

	off := 5
	h := Header{
		CachedAtMs:    int64(binary.BigEndian.Uint64(b[off : off+8])),
		TTLMs:         int64(binary.BigEndian.Uint64(b[off+8 : off+16])),
		LastAttemptMs: int64(binary.BigEndian.Uint64(b[off+16 : off+24])),
	}
	off += 24

	if h.TTLMs < 0 || h.LastAttemptMs < 0 {
		return Header{}, nil, ErrCorrupt
	}

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen != len(b)-off { // exact framing, no trailing bytes
		return Header{}, nil, ErrCorrupt
	}

	return h, b[off:], nil
}
