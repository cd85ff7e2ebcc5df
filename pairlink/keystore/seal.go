package keystore

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/pairlink/go-pairlink/pairlink/encoding"
)

const (
	kdfName  = "argon2id"
	saltSize = 16

	// Argon2id parameters per the RFC 9106 low-memory recommendation. A
	// parameter change needs a version bump: the file does not record them.
	argonTime    = 3
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 4
)

// aad binds the sealed blob to this file format and version, so a blob
// cannot be replayed into a future format that happens to share the layout.
const aad = "pairlink-keystore-v1"

// blob is the on-disk file body. Salt and nonce are standard base64.
type blob struct {
	Version    int    `json:"v"`
	KDF        string `json:"kdf"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// deriveKEK stretches the passphrase into the key-encryption key.
func deriveKEK(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
}

func seal(passphrase string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	kek := deriveKEK(passphrase, salt)
	defer wipe(kek)
	aead, err := chacha20poly1305.NewX(kek)
	if err != nil {
		return nil, err
	}
	ciphertext := aead.Seal(nil, nonce, plaintext, []byte(aad))

	return json.Marshal(blob{
		Version:    Version,
		KDF:        kdfName,
		Salt:       encoding.EncodeBytes(salt),
		Nonce:      encoding.EncodeBytes(nonce),
		Ciphertext: encoding.EncodeBytes(ciphertext),
	})
}

func open(passphrase string, data []byte) ([]byte, error) {
	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptKeystore, err)
	}
	if b.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptKeystore, b.Version)
	}
	if b.KDF != kdfName {
		return nil, fmt.Errorf("%w: unsupported kdf %q", ErrCorruptKeystore, b.KDF)
	}
	salt, err := encoding.DecodeBytes(b.Salt)
	if err != nil || len(salt) != saltSize {
		return nil, ErrCorruptKeystore
	}
	nonce, err := encoding.DecodeBytes(b.Nonce)
	if err != nil || len(nonce) != chacha20poly1305.NonceSizeX {
		return nil, ErrCorruptKeystore
	}
	ciphertext, err := encoding.DecodeBytes(b.Ciphertext)
	if err != nil || len(ciphertext) < chacha20poly1305.Overhead {
		return nil, ErrCorruptKeystore
	}

	kek := deriveKEK(passphrase, salt)
	defer wipe(kek)
	aead, err := chacha20poly1305.NewX(kek)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(aad))
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return plaintext, nil
}

// wipe zeroes key-bearing buffers once they are no longer needed.
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
