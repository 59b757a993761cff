package bitpack

import "testing"

func TestWriteReadRoundTrip(t *testing.T) {
	buf := make([]byte, 4)
	for i, sym := range []uint8{0, 1, 7, 3, 5, 2, 6, 4} {
		Write3(buf, i*3, sym)
	}
	for i, want := range []uint8{0, 1, 7, 3, 5, 2, 6, 4} {
		if got := Read3(buf, i*3); got != want {
			t.Fatalf("Read3 at symbol %d = %d, want %d", i, got, want)
		}
	}
}

func TestReadPastEndIsZero(t *testing.T) {
	buf := make([]byte, 1)
	if got := Read3(buf, 100); got != 0 {
		t.Fatalf("Read3 past end = %d, want 0", got)
	}
}

func TestWritePastEndIsNoop(t *testing.T) {
	buf := make([]byte, 1)
	Write3(buf, 100, 7) // must not panic
	if buf[0] != 0 {
		t.Fatalf("in-range byte mutated by out-of-range write: %v", buf)
	}
}

func TestWriteMasksToThreeBits(t *testing.T) {
	buf := make([]byte, 1)
	Write3(buf, 0, 0xFF)
	if got := Read3(buf, 0); got != 7 {
		t.Fatalf("Write3 did not mask to 3 bits: got %d, want 7", got)
	}
}
