package identity

import (
	"fmt"
	"strings"
	"testing"

	"golang.org/x/crypto/curve25519"
)

func TestGenerate(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// Clamped per RFC 7748.
	if kp.Private[0]&7 != 0 {
		t.Error("low 3 bits of private key not cleared")
	}
	if kp.Private[31]&128 != 0 {
		t.Error("top bit of private key not cleared")
	}
	if kp.Private[31]&64 == 0 {
		t.Error("bit 254 of private key not set")
	}

	var pub [KeySize]byte
	curve25519.ScalarBaseMult(&pub, (*[KeySize]byte)(&kp.Private))
	if pub != [KeySize]byte(kp.Public) {
		t.Error("public key is not the base-point multiple of the private key")
	}
}

func TestGenerateDistinct(t *testing.T) {
	a, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if a.Private == b.Private {
		t.Fatal("two generated private keys are identical")
	}
	if a.Public == b.Public {
		t.Fatal("two generated public keys are identical")
	}
}

func TestFromPrivate(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	rebuilt := FromPrivate(kp.Private)
	if rebuilt.Public != kp.Public {
		t.Fatal("FromPrivate derived a different public key")
	}
	if rebuilt.Private != kp.Private {
		t.Fatal("FromPrivate changed an already clamped private key")
	}
}

func TestFingerprint(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	fp := Fingerprint(kp.Public)
	if len(fp) != 64 {
		t.Fatalf("fingerprint length = %d, want 64 hex chars", len(fp))
	}
	if fp != Fingerprint(kp.Public) {
		t.Fatal("fingerprint not deterministic")
	}

	other, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if fp == Fingerprint(other.Public) {
		t.Fatal("distinct keys share a fingerprint")
	}
}

func TestPrivateKeyRedacted(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, s := range []string{
		fmt.Sprintf("%v", kp.Private),
		fmt.Sprintf("%s", kp.Private),
		fmt.Sprintf("%#v", kp.Private),
	} {
		if !strings.Contains(s, "redacted") {
			t.Errorf("private key formatting leaked: %q", s)
		}
	}
}

func TestDeviceIDValidate(t *testing.T) {
	if err := DeviceID("desktop").Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := DeviceID("").Validate(); err == nil {
		t.Fatal("empty device ID accepted")
	}
}
