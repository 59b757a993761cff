package checksum

import "testing"

func TestVerifySHA256(t *testing.T) {
	data := []byte("hello world")
	sum := SHA256(data)
	if !VerifySHA256(data, sum) {
		t.Fatal("VerifySHA256 should accept the data's own digest")
	}
	if VerifySHA256([]byte("tampered"), sum) {
		t.Fatal("VerifySHA256 should reject mismatched data")
	}
}

func TestVerifyCRC32(t *testing.T) {
	data := []byte("shard payload")
	crc := CRC32(data)
	if !VerifyCRC32(data, crc) {
		t.Fatal("VerifyCRC32 should accept the data's own checksum")
	}
	if VerifyCRC32(data, crc^0xFFFFFFFF) {
		t.Fatal("VerifyCRC32 should reject a wrong checksum")
	}
}

func TestSHA256Hex(t *testing.T) {
	got := SHA256Hex([]byte("hello world"))
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde"
	if got != want {
		t.Fatalf("SHA256Hex(%q) = %q, want %q", "hello world", got, want)
	}
}
