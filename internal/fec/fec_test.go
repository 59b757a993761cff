package fec

import (
	"bytes"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"sllv/internal/config"
)

func testParams() config.FecParams {
	return config.FecParams{DataShards: 10, ParityShards: 4, ShardBytes: 128}
}

func randomInput(n int, seed int64) []byte {
	r := rand.New(rand.NewSource(seed))
	buf := make([]byte, n)
	r.Read(buf)
	return buf
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	params := testParams()
	input := randomInput(5000, 0xDEADBEEF)

	packets, err := Encode(input, params)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := Decode(packets, params, uint64(len(input)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got, input) {
		t.Fatal("Decode(Encode(input)) != input")
	}
}

func TestDecodeSurvivesParityLossUpToParityShards(t *testing.T) {
	params := testParams()
	input := randomInput(5000, 1)

	packets, err := Encode(input, params)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Drop shard indices 0, 4, 8 and 12 of every group: 4 of 14 shards,
	// exactly parity_shards per group.
	var survivors []ShardPacket
	for _, p := range packets {
		if p.ShardIndex%4 == 0 {
			continue
		}
		survivors = append(survivors, p)
	}

	got, err := Decode(survivors, params, uint64(len(input)))
	if err != nil {
		t.Fatalf("Decode with partial loss: %v", err)
	}
	if !bytes.Equal(got, input) {
		t.Fatal("Decode with recoverable loss != input")
	}
}

func TestDecodeFailsWhenGroupUnrecoverable(t *testing.T) {
	params := testParams()
	input := randomInput(5000, 2)

	packets, err := Encode(input, params)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Drop more than parity_shards packets from group 0.
	var survivors []ShardPacket
	dropped := 0
	for _, p := range packets {
		if p.GroupIndex == 0 && dropped <= params.ParityShards {
			dropped++
			continue
		}
		survivors = append(survivors, p)
	}

	if _, err := Decode(survivors, params, uint64(len(input))); err == nil {
		t.Fatal("Decode should fail when a group loses more than parity_shards shards")
	}
}

func TestDecodeDropsShardsWithBadSHA256(t *testing.T) {
	params := testParams()
	input := randomInput(2000, 3)

	packets, err := Encode(input, params)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Tamper with one data shard's payload without updating its SHA256;
	// it should be treated as missing, not as the wrong bytes.
	packets[0].Data = append([]byte(nil), packets[0].Data...)
	packets[0].Data[0] ^= 0xFF

	got, err := Decode(packets, params, uint64(len(input)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got, input) {
		t.Fatal("Decode should reconstruct around a shard with a mismatched SHA256")
	}
}

func TestDecodeFailsWhenMiddleGroupEntirelyLost(t *testing.T) {
	params := testParams()
	groupBytes := params.GroupDataBytes()
	// Enough input to span at least three groups.
	input := randomInput(groupBytes*3-17, 4)

	packets, err := Encode(input, params)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Drop every shard belonging to group 1 (the middle group), leaving
	// groups 0 and 2 fully intact.
	var survivors []ShardPacket
	for _, p := range packets {
		if p.GroupIndex == 1 {
			continue
		}
		survivors = append(survivors, p)
	}

	_, err = Decode(survivors, params, uint64(len(input)))
	if err == nil {
		t.Fatal("Decode should fail when a middle group has zero surviving shards")
	}
	if !errors.Is(err, ErrUnrecoverable) {
		t.Fatalf("Decode error = %v, want wrapping ErrUnrecoverable", err)
	}
	if !strings.Contains(err.Error(), "group 1") {
		t.Fatalf("Decode error = %v, want it to name group 1", err)
	}
}

func TestEncodeRejectsInvalidParams(t *testing.T) {
	bad := config.FecParams{DataShards: 0, ParityShards: 4, ShardBytes: 128}
	if _, err := Encode([]byte("x"), bad); err == nil {
		t.Fatal("Encode should reject invalid fec params")
	}
}
