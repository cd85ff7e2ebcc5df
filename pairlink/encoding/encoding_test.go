package encoding

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestKeyRoundTrip(t *testing.T) {
	var key [KeySize]byte
	for i := range key {
		key[i] = byte(i * 7)
	}

	s := EncodeKey(key)
	got, err := DecodeKey(s)
	if err != nil {
		t.Fatalf("DecodeKey: %v", err)
	}
	if got != key {
		t.Fatal("decoded key differs from original")
	}
}

func TestDecodeKeyRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"not base64", "!!!not-base64!!!"},
		{"empty", ""},
		{"too short", EncodeBytes(make([]byte, 16))},
		{"too long", EncodeBytes(make([]byte, 33))},
		{"url-safe alphabet", strings.ReplaceAll(EncodeBytes(bytes.Repeat([]byte{0xfb}, 32)), "+", "-")},
	}
	for _, tc := range cases {
		if _, err := DecodeKey(tc.in); !errors.Is(err, ErrInvalidKeyFormat) {
			t.Errorf("%s: want ErrInvalidKeyFormat, got %v", tc.name, err)
		}
	}
}

func TestBytesRoundTrip(t *testing.T) {
	payloads := [][]byte{
		nil,
		{},
		{0x00},
		bytes.Repeat([]byte{0xff}, 100),
	}
	for _, p := range payloads {
		got, err := DecodeBytes(EncodeBytes(p))
		if err != nil {
			t.Fatalf("DecodeBytes: %v", err)
		}
		if !bytes.Equal(got, p) {
			t.Fatalf("round trip mismatch for %d bytes", len(p))
		}
	}
}

func TestFingerprintHex(t *testing.T) {
	sum := []byte{0xde, 0xad, 0xbe, 0xef}
	s := EncodeFingerprint(sum)
	if s != "deadbeef" {
		t.Fatalf("EncodeFingerprint = %q, want %q", s, "deadbeef")
	}
	got, err := DecodeFingerprint(s)
	if err != nil {
		t.Fatalf("DecodeFingerprint: %v", err)
	}
	if !bytes.Equal(got, sum) {
		t.Fatal("fingerprint round trip mismatch")
	}
}
