package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pairlink/go-pairlink/pairlink/identity"
)

func TestDeriveSessionKeySymmetry(t *testing.T) {
	a, err := identity.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := identity.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	ka, err := DeriveSessionKey(a.Private, b.Public)
	if err != nil {
		t.Fatalf("DeriveSessionKey a: %v", err)
	}
	kb, err := DeriveSessionKey(b.Private, a.Public)
	if err != nil {
		t.Fatalf("DeriveSessionKey b: %v", err)
	}
	if ka != kb {
		t.Fatal("both sides derived different session keys")
	}
}

func TestDeriveSessionKeyDeterministic(t *testing.T) {
	a, _ := identity.Generate()
	b, _ := identity.Generate()

	k1, err := DeriveSessionKey(a.Private, b.Public)
	if err != nil {
		t.Fatalf("DeriveSessionKey: %v", err)
	}
	k2, err := DeriveSessionKey(a.Private, b.Public)
	if err != nil {
		t.Fatalf("DeriveSessionKey: %v", err)
	}
	if k1 != k2 {
		t.Fatal("derivation is not deterministic")
	}
}

func TestDeriveSessionKeyDistinctPairs(t *testing.T) {
	a, _ := identity.Generate()
	b, _ := identity.Generate()
	c, _ := identity.Generate()

	kab, err := DeriveSessionKey(a.Private, b.Public)
	if err != nil {
		t.Fatalf("DeriveSessionKey: %v", err)
	}
	kac, err := DeriveSessionKey(a.Private, c.Public)
	if err != nil {
		t.Fatalf("DeriveSessionKey: %v", err)
	}
	if kab == kac {
		t.Fatal("distinct peers derived the same session key")
	}
}

func TestDeriveSessionKeyRejectsLowOrderPoints(t *testing.T) {
	kp, err := identity.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// Known low-order u-coordinates on Curve25519. Clamped scalars are
	// multiples of 8, so each maps to the identity and must be refused.
	lowOrder := []string{
		"0000000000000000000000000000000000000000000000000000000000000000",
		"0100000000000000000000000000000000000000000000000000000000000000",
		"e0eb7a7c3b41b8ae1656e3faf19fc46ada098deb9c32b1fd866205165f49b800",
		"5f9c95bca3508c24b1d0b1559c83ef5b04445cc4581c8e86d8224eddd09f1157",
		"ecffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff7f",
	}
	for _, h := range lowOrder {
		raw, err := hex.DecodeString(h)
		if err != nil {
			t.Fatalf("bad test vector %q: %v", h, err)
		}
		var peer identity.PublicKey
		copy(peer[:], raw)

		if _, err := DeriveSessionKey(kp.Private, peer); !errors.Is(err, ErrInvalidPublicKey) {
			t.Errorf("low-order point %s... accepted: err=%v", h[:8], err)
		}
	}
}

func TestSessionKeyRedacted(t *testing.T) {
	a, _ := identity.Generate()
	b, _ := identity.Generate()
	key, err := DeriveSessionKey(a.Private, b.Public)
	if err != nil {
		t.Fatalf("DeriveSessionKey: %v", err)
	}
	for _, s := range []string{
		fmt.Sprintf("%v", key),
		fmt.Sprintf("%s", key),
		fmt.Sprintf("%#v", key),
	} {
		if !strings.Contains(s, "redacted") {
			t.Errorf("session key formatting leaked: %q", s)
		}
	}
}
