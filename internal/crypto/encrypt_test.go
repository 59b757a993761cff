package crypto

import "testing"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte("the quick brown fox jumps over the lazy dog")
	ciphertext, err := EncryptWithHash(plaintext, "correct horse battery staple")
	if err != nil {
		t.Fatalf("EncryptWithHash: %v", err)
	}

	got, err := DecryptWithHash(ciphertext, "correct horse battery staple")
	if err != nil {
		t.Fatalf("DecryptWithHash: %v", err)
	}
	if string(got) != string(plaintext) {
		t.Fatalf("DecryptWithHash() = %q, want %q", got, plaintext)
	}
}

func TestDecryptRejectsWrongPassword(t *testing.T) {
	ciphertext, err := EncryptWithHash([]byte("secret data"), "right-password")
	if err != nil {
		t.Fatalf("EncryptWithHash: %v", err)
	}
	if _, err := DecryptWithHash(ciphertext, "wrong-password"); err == nil {
		t.Fatal("DecryptWithHash should reject the wrong password")
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	ciphertext, err := EncryptWithHash([]byte("secret data"), "password")
	if err != nil {
		t.Fatalf("EncryptWithHash: %v", err)
	}
	ciphertext[len(ciphertext)-1] ^= 0xFF

	if _, err := DecryptWithHash(ciphertext, "password"); err == nil {
		t.Fatal("DecryptWithHash should reject tampered ciphertext")
	}
}

func TestDecryptRejectsTruncatedInput(t *testing.T) {
	if _, err := DecryptWithHash([]byte{1, 2, 3}, "password"); err == nil {
		t.Fatal("DecryptWithHash should reject input shorter than the salt")
	}
}

func TestEnvelopeHeaderRoundTrip(t *testing.T) {
	h := envelopeHeader{magic: envelopeMagic, archiveSize: 1234}
	decoded, err := decodeEnvelopeHeader(h.encode())
	if err != nil {
		t.Fatalf("decodeEnvelopeHeader: %v", err)
	}
	if decoded.magic != h.magic || decoded.archiveSize != h.archiveSize {
		t.Fatalf("decoded header = %+v, want %+v", decoded, h)
	}
}

func TestDecodeEnvelopeHeaderRejectsShortInput(t *testing.T) {
	if _, err := decodeEnvelopeHeader(make([]byte, envelopeHeaderSize-1)); err == nil {
		t.Fatal("decodeEnvelopeHeader should reject a buffer shorter than envelopeHeaderSize")
	}
}
