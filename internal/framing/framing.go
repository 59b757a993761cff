// Package framing packs and unpacks the per-frame shard header: the 52-byte
// little-endian record that carries a shard's erasure-coding coordinates
// and integrity digest inside a frame-payload buffer (spec.md §3, §4.7).
package framing

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/pkg/errors"
)

// HeaderSizeBytes is the fixed on-image size of Header.
const HeaderSizeBytes = 52

// Header is the per-frame shard header. Field order and widths are fixed
// by spec.md §3 and must not change without bumping the manifest version.
type Header struct {
	GroupIndex      uint32
	ShardIndex      uint16
	ShardLen        uint16
	OrigTotalBytes  uint64
	ShardSHA256     [32]byte
	HeaderCRC32     uint32
}

// Encode serializes h to exactly HeaderSizeBytes bytes, computing
// HeaderCRC32 over the first 48 bytes as it goes.
func (h Header) Encode() []byte {
	buf := new(bytes.Buffer)
	buf.Grow(HeaderSizeBytes)
	binary.Write(buf, binary.LittleEndian, h.GroupIndex)
	binary.Write(buf, binary.LittleEndian, h.ShardIndex)
	binary.Write(buf, binary.LittleEndian, h.ShardLen)
	binary.Write(buf, binary.LittleEndian, h.OrigTotalBytes)
	buf.Write(h.ShardSHA256[:])

	crc := crc32.ChecksumIEEE(buf.Bytes())
	binary.Write(buf, binary.LittleEndian, crc)
	return buf.Bytes()
}

// Decode parses a HeaderSizeBytes-long slice into a Header. It does not
// itself verify HeaderCRC32; call VerifyCRC for that (spec.md §4.7: a CRC
// failure discards the whole frame, it is not a decode error).
func Decode(data []byte) (Header, error) {
	var h Header
	if len(data) < HeaderSizeBytes {
		return h, errors.Errorf("framing: header needs %d bytes, got %d", HeaderSizeBytes, len(data))
	}
	r := bytes.NewReader(data[:HeaderSizeBytes])
	binary.Read(r, binary.LittleEndian, &h.GroupIndex)
	binary.Read(r, binary.LittleEndian, &h.ShardIndex)
	binary.Read(r, binary.LittleEndian, &h.ShardLen)
	binary.Read(r, binary.LittleEndian, &h.OrigTotalBytes)
	io.ReadFull(r, h.ShardSHA256[:])
	binary.Read(r, binary.LittleEndian, &h.HeaderCRC32)
	return h, nil
}

// VerifyCRC reports whether h.HeaderCRC32 matches the CRC32 of the first 48
// encoded bytes. Callers should discard the frame entirely on failure.
func (h Header) VerifyCRC() bool {
	encoded := h.Encode()
	return binary.LittleEndian.Uint32(encoded[HeaderSizeBytes-4:]) == h.HeaderCRC32
}

// VerifyShard reports whether shard hashes to h.ShardSHA256.
func (h Header) VerifyShard(shard []byte) bool {
	sum := sha256.Sum256(shard)
	return sum == h.ShardSHA256
}

// NewHeader builds a Header for one shard, computing its SHA-256 and CRC32.
func NewHeader(groupIndex uint32, shardIndex uint16, shard []byte, origTotalBytes uint64) Header {
	h := Header{
		GroupIndex:     groupIndex,
		ShardIndex:     shardIndex,
		ShardLen:       uint16(len(shard)),
		OrigTotalBytes: origTotalBytes,
		ShardSHA256:    sha256.Sum256(shard),
	}
	encoded := h.Encode()
	h.HeaderCRC32 = binary.LittleEndian.Uint32(encoded[HeaderSizeBytes-4:])
	return h
}

// PackFramePayload assembles header ‖ shard ‖ zero-pad into a buffer of
// exactly frameBytes length. It fails if the header plus shard overflow
// the frame's capacity.
func PackFramePayload(h Header, shard []byte, frameBytes int) ([]byte, error) {
	need := HeaderSizeBytes + len(shard)
	if need > frameBytes {
		return nil, errors.Errorf("framing: header+shard (%d) exceeds frame payload capacity (%d)", need, frameBytes)
	}
	buf := make([]byte, frameBytes)
	copy(buf, h.Encode())
	copy(buf[HeaderSizeBytes:], shard)
	return buf, nil
}

// UnpackFramePayload parses a frame-payload buffer back into a Header and
// the raw shard bytes (length ShardLen).
// It returns ok=false (never an error) when the header CRC fails: per
// spec.md §4.7 that frame must simply be discarded, not treated as fatal.
func UnpackFramePayload(buf []byte) (h Header, shard []byte, ok bool, err error) {
	h, err = Decode(buf)
	if err != nil {
		return Header{}, nil, false, err
	}
	if !h.VerifyCRC() {
		return h, nil, false, nil
	}
	end := HeaderSizeBytes + int(h.ShardLen)
	if end > len(buf) {
		return h, nil, false, nil
	}
	shard = buf[HeaderSizeBytes:end]
	return h, shard, true, nil
}
