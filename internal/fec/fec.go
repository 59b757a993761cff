// Package fec is the erasure-coding layer: Reed-Solomon over GF(256) with
// fixed-size shards, grouped so any data_shards survivors of a group
// recover it in full (spec.md §4.6).
package fec

import (
	"crypto/sha256"

	"github.com/klauspost/reedsolomon"
	"github.com/pkg/errors"

	"sllv/internal/config"
)

// ErrUnrecoverable is returned when a group has fewer than data_shards
// intact shards and cannot be reconstructed.
var ErrUnrecoverable = errors.New("fec: group has insufficient intact shards to reconstruct")

// ShardPacket is one erasure-coded shard, tagged with its group/shard
// coordinates and digest, ready to be carried inside a frame payload.
type ShardPacket struct {
	GroupIndex uint32
	ShardIndex uint16
	Data       []byte
	SHA256     [32]byte
}

// Encode partitions input into groups of params.GroupDataBytes(), zero-
// padding the final group, and Reed-Solomon encodes each group into
// params.TotalShards() shards of params.ShardBytes, in ascending
// (group_index, shard_index) order.
func Encode(input []byte, params config.FecParams) ([]ShardPacket, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	enc, err := reedsolomon.New(params.DataShards, params.ParityShards)
	if err != nil {
		return nil, errors.Wrap(err, "fec: failed to construct reed-solomon encoder")
	}

	groupDataBytes := params.GroupDataBytes()
	numGroups := (len(input) + groupDataBytes - 1) / groupDataBytes
	if numGroups == 0 {
		numGroups = 1
	}

	var packets []ShardPacket
	for g := 0; g < numGroups; g++ {
		start := g * groupDataBytes
		end := start + groupDataBytes
		group := make([]byte, groupDataBytes)
		if start < len(input) {
			copy(group, input[start:min(end, len(input))])
		}

		shards := make([][]byte, params.TotalShards())
		for i := 0; i < params.DataShards; i++ {
			shards[i] = group[i*params.ShardBytes : (i+1)*params.ShardBytes]
		}
		for i := params.DataShards; i < params.TotalShards(); i++ {
			shards[i] = make([]byte, params.ShardBytes)
		}

		if err := enc.Encode(shards); err != nil {
			return nil, errors.Wrapf(err, "fec: encode failed for group %d", g)
		}

		for i, shard := range shards {
			packets = append(packets, ShardPacket{
				GroupIndex: uint32(g),
				ShardIndex: uint16(i),
				Data:       shard,
				SHA256:     sha256.Sum256(shard),
			})
		}
	}
	return packets, nil
}

// Decode bins packets by group, reconstructs any group with at least
// data_shards intact shards, and concatenates the recovered data shards
// in ascending group order, truncated to totalBytes. Packets whose
// SHA256 field does not match their Data are treated as missing, per
// spec.md §4.6 step 1.
func Decode(packets []ShardPacket, params config.FecParams, totalBytes uint64) ([]byte, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	enc, err := reedsolomon.New(params.DataShards, params.ParityShards)
	if err != nil {
		return nil, errors.Wrap(err, "fec: failed to construct reed-solomon encoder")
	}

	groups := make(map[uint32][][]byte)
	for _, p := range packets {
		if sha256.Sum256(p.Data) != p.SHA256 {
			continue // corrupted shard, treated as missing
		}
		if int(p.ShardIndex) >= params.TotalShards() {
			continue
		}
		shards, ok := groups[p.GroupIndex]
		if !ok {
			shards = make([][]byte, params.TotalShards())
			groups[p.GroupIndex] = shards
		}
		shards[p.ShardIndex] = p.Data
	}

	// Iterate the groups totalBytes says must exist, not just the ones
	// that happen to appear in groups: a group with zero surviving
	// shards never gets a map entry, and skipping it silently would
	// shift later groups' bytes into its place instead of failing
	// explicitly for that group.
	groupDataBytes := params.GroupDataBytes()
	expectedGroups := int((totalBytes + uint64(groupDataBytes) - 1) / uint64(groupDataBytes))
	if expectedGroups == 0 {
		expectedGroups = 1
	}

	out := make([]byte, 0, expectedGroups*groupDataBytes)
	for g := 0; g < expectedGroups; g++ {
		shards, ok := groups[uint32(g)]
		if !ok {
			shards = make([][]byte, params.TotalShards())
		}
		intact := 0
		for _, s := range shards {
			if s != nil {
				intact++
			}
		}
		if intact < params.DataShards {
			return nil, errors.Wrapf(ErrUnrecoverable, "group %d has %d/%d intact shards", g, intact, params.DataShards)
		}
		if err := enc.Reconstruct(shards); err != nil {
			return nil, errors.Wrapf(ErrUnrecoverable, "group %d: reconstruct failed: %v", g, err)
		}
		for i := 0; i < params.DataShards; i++ {
			out = append(out, shards[i]...)
		}
	}

	if uint64(len(out)) < totalBytes {
		return nil, errors.Wrapf(ErrUnrecoverable, "reconstructed %d bytes, want at least %d", len(out), totalBytes)
	}
	return out[:totalBytes], nil
}
