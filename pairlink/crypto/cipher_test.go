package crypto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/pairlink/go-pairlink/pairlink/identity"
)

func testCipher(t testing.TB) *Cipher {
	t.Helper()
	a, err := identity.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := identity.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	key, err := DeriveSessionKey(a.Private, b.Public)
	if err != nil {
		t.Fatalf("DeriveSessionKey: %v", err)
	}
	c, err := NewCipher(key)
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	return c
}

func TestCipherRoundTrip(t *testing.T) {
	c := testCipher(t)

	plaintexts := [][]byte{
		{},
		[]byte("a"),
		[]byte(`{"type":"ping"}`),
		bytes.Repeat([]byte{0x42}, 4096),
	}
	for _, pt := range plaintexts {
		nonce, ct, err := c.Seal(pt)
		if err != nil {
			t.Fatalf("Seal(%d bytes): %v", len(pt), err)
		}
		if len(ct) != len(pt)+Overhead {
			t.Fatalf("ciphertext length = %d, want %d", len(ct), len(pt)+Overhead)
		}
		got, err := c.Open(nonce, ct)
		if err != nil {
			t.Fatalf("Open(%d bytes): %v", len(pt), err)
		}
		if !bytes.Equal(got, pt) {
			t.Fatalf("round trip mismatch for %d bytes", len(pt))
		}
	}
}

// Every single-bit flip in either the nonce or the ciphertext must fail
// authentication. The message is small enough to try all of them.
func TestCipherTamperDetection(t *testing.T) {
	c := testCipher(t)

	nonce, ct, err := c.Seal([]byte("attack at dawn"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	for i := 0; i < len(ct)*8; i++ {
		tampered := make([]byte, len(ct))
		copy(tampered, ct)
		tampered[i/8] ^= 1 << (i % 8)
		if _, err := c.Open(nonce, tampered); !errors.Is(err, ErrAuthenticationFailed) {
			t.Fatalf("ciphertext bit %d flip not detected: err=%v", i, err)
		}
	}

	for i := 0; i < len(nonce)*8; i++ {
		var tampered [NonceSize]byte
		copy(tampered[:], nonce[:])
		tampered[i/8] ^= 1 << (i % 8)
		if _, err := c.Open(tampered, ct); !errors.Is(err, ErrAuthenticationFailed) {
			t.Fatalf("nonce bit %d flip not detected: err=%v", i, err)
		}
	}
}

func TestCipherWrongKey(t *testing.T) {
	c1 := testCipher(t)
	c2 := testCipher(t)

	nonce, ct, err := c1.Seal([]byte("for the right key only"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := c2.Open(nonce, ct); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("wrong key accepted: err=%v", err)
	}
}

func TestCipherNonceUniqueness(t *testing.T) {
	c := testCipher(t)

	const n = 10000
	seen := make(map[[NonceSize]byte]struct{}, n)
	for i := 0; i < n; i++ {
		nonce, _, err := c.Seal(nil)
		if err != nil {
			t.Fatalf("Seal %d: %v", i, err)
		}
		if _, dup := seen[nonce]; dup {
			t.Fatalf("nonce repeated after %d seals", i)
		}
		seen[nonce] = struct{}{}
	}
}

func TestCipherOpenTooShort(t *testing.T) {
	c := testCipher(t)
	var nonce [NonceSize]byte
	if _, err := c.Open(nonce, make([]byte, Overhead-1)); !errors.Is(err, ErrCiphertextTooShort) {
		t.Fatalf("want ErrCiphertextTooShort, got %v", err)
	}
}

func BenchmarkCipherSeal(b *testing.B) {
	c := testCipher(b)
	plaintext := make([]byte, 64*1024) // 64 KB
	b.SetBytes(int64(len(plaintext)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = c.Seal(plaintext)
	}
}

func BenchmarkCipherOpen(b *testing.B) {
	c := testCipher(b)
	plaintext := make([]byte, 64*1024)
	nonce, ct, _ := c.Seal(plaintext)
	b.SetBytes(int64(len(plaintext)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Open(nonce, ct)
	}
}
