// Package crypto is an optional outer collaborator: it seals a packed
// archive before it reaches the frame codec, and opens it after the frame
// codec has reconstructed it. Nothing in internal/pipeline imports this
// package — encryption is a cmd/sllv concern layered outside the
// encode/decode core, never a property of a frame or the manifest.
package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// archiveAAD binds the AEAD seal to this package's wire format so a
// ciphertext produced by some other sealer can't be mistaken for a packed
// sllv archive even if it happens to decrypt under the same password.
var archiveAAD = []byte("sllv-archive-v1")

// saltSize is the random Argon2id salt prepended to every sealed archive.
const saltSize = 16

// envelopeHeaderSize is the size of the authenticated header bound ahead of
// the archive bytes inside the AEAD-sealed plaintext: magic (4) + archive
// size (8) + archive HMAC (32) + reserved (4).
const envelopeHeaderSize = 48

var envelopeMagic = [4]byte{'S', 'L', 'V', '1'}

// envelopeHeader travels inside the AEAD-sealed plaintext (so tampering
// with it is caught by the AEAD tag), ahead of the archive bytes. The
// content HMAC is a belt-and-suspenders check independent of the AEAD tag,
// keyed from a separate Argon2id output so a tag forgery alone can't pass it.
type envelopeHeader struct {
	magic       [4]byte
	archiveSize uint64
	archiveHMAC [32]byte
	reserved    [4]byte
}

func (h envelopeHeader) encode() []byte {
	buf := make([]byte, envelopeHeaderSize)
	copy(buf[0:4], h.magic[:])
	binary.BigEndian.PutUint64(buf[4:12], h.archiveSize)
	copy(buf[12:44], h.archiveHMAC[:])
	copy(buf[44:48], h.reserved[:])
	return buf
}

func decodeEnvelopeHeader(data []byte) (envelopeHeader, error) {
	var h envelopeHeader
	if len(data) < envelopeHeaderSize {
		return h, io.ErrUnexpectedEOF
	}
	copy(h.magic[:], data[0:4])
	h.archiveSize = binary.BigEndian.Uint64(data[4:12])
	copy(h.archiveHMAC[:], data[12:44])
	copy(h.reserved[:], data[44:48])
	return h, nil
}

// deriveKeys stretches password+salt via Argon2id into an AEAD key and an
// independent HMAC key: 6 iterations, 128 MiB, 4 lanes, 64 bytes of output
// split into 32 (AEAD) + 32 (HMAC).
func deriveKeys(password string, salt []byte) (encKey, hmacKey []byte) {
	keyMaterial := argon2.IDKey([]byte(password), salt, 6, 128*1024, 4, 64)
	return keyMaterial[:32], keyMaterial[32:]
}

// EncryptWithHash seals a packed archive for storage alongside (or instead
// of) plaintext frames: it derives an AEAD key and an HMAC key from
// password via Argon2id, binds an archive-size-and-HMAC header ahead of the
// archive bytes, and seals the combination with ChaCha20-Poly1305 under the
// fixed archive AAD. The salt is prepended to the returned ciphertext.
func EncryptWithHash(archive []byte, password string) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	encKey, hmacKey := deriveKeys(password, salt)

	mac := hmac.New(sha256.New, hmacKey)
	mac.Write(archive)

	var hmacArr [32]byte
	copy(hmacArr[:], mac.Sum(nil))

	header := envelopeHeader{
		magic:       envelopeMagic,
		archiveSize: uint64(len(archive)),
		archiveHMAC: hmacArr,
	}
	plaintext := append(header.encode(), archive...)

	aead, err := chacha20poly1305.New(encKey)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	ciphertext := aead.Seal(nonce, nonce, plaintext, archiveAAD)
	return append(salt, ciphertext...), nil
}

// DecryptWithHash reverses EncryptWithHash, rejecting the input on any
// wrong password, truncation, tamper, or header mismatch with a single
// generic error to avoid leaking which check failed.
func DecryptWithHash(sealed []byte, password string) ([]byte, error) {
	if len(sealed) < saltSize {
		return nil, errDecrypt
	}
	salt, ciphertext := sealed[:saltSize], sealed[saltSize:]
	encKey, hmacKey := deriveKeys(password, salt)

	aead, err := chacha20poly1305.New(encKey)
	if err != nil {
		return nil, errDecrypt
	}
	if len(ciphertext) < aead.NonceSize() {
		return nil, errDecrypt
	}

	nonce, ciphertext := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, archiveAAD)
	if err != nil {
		return nil, errDecrypt
	}
	if len(plaintext) < envelopeHeaderSize {
		return nil, errDecrypt
	}

	header, err := decodeEnvelopeHeader(plaintext[:envelopeHeaderSize])
	if err != nil {
		return nil, errDecrypt
	}
	if header.magic != envelopeMagic {
		return nil, errDecrypt
	}

	archive := plaintext[envelopeHeaderSize:]
	if uint64(len(archive)) != header.archiveSize {
		return nil, errDecrypt
	}

	mac := hmac.New(sha256.New, hmacKey)
	mac.Write(archive)
	if subtle.ConstantTimeCompare(mac.Sum(nil), header.archiveHMAC[:]) != 1 {
		return nil, errDecrypt
	}

	return archive, nil
}

var errDecrypt = errors.New("crypto: invalid password or corrupted archive")
