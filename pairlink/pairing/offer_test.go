package pairing

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/pairlink/go-pairlink/pairlink/encoding"
	"github.com/pairlink/go-pairlink/pairlink/identity"
)

func TestOfferRoundTrip(t *testing.T) {
	kp, err := identity.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	offer := NewOffer("desktop", kp.Public)
	decoded, err := DecodeOffer(offer.Encode())
	if err != nil {
		t.Fatalf("DecodeOffer: %v", err)
	}
	if decoded != offer {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", decoded, offer)
	}

	key, err := decoded.Key()
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if key != kp.Public {
		t.Fatal("offered key differs from original")
	}

	fp, err := decoded.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if fp != identity.Fingerprint(kp.Public) {
		t.Fatal("offer fingerprint differs from identity fingerprint")
	}
}

func TestDecodeOfferRejectsBadInput(t *testing.T) {
	kp, _ := identity.Generate()

	encode := func(o Offer) string {
		data, _ := json.Marshal(o)
		return base64.StdEncoding.EncodeToString(data)
	}

	if _, err := DecodeOffer("%%%not-base64%%%"); !errors.Is(err, ErrMalformedOffer) {
		t.Errorf("not base64: %v", err)
	}
	if _, err := DecodeOffer(base64.StdEncoding.EncodeToString([]byte("not json"))); !errors.Is(err, ErrMalformedOffer) {
		t.Errorf("not json: %v", err)
	}
	if _, err := DecodeOffer(encode(Offer{Version: 9, DeviceID: "x", PublicKey: ExportKey(kp.Public)})); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("future version: %v", err)
	}
	if _, err := DecodeOffer(encode(Offer{Version: Version, DeviceID: "", PublicKey: ExportKey(kp.Public)})); !errors.Is(err, ErrMalformedOffer) {
		t.Errorf("empty device ID: %v", err)
	}
	if _, err := DecodeOffer(encode(Offer{Version: Version, DeviceID: "x", PublicKey: "short"})); !errors.Is(err, encoding.ErrInvalidKeyFormat) {
		t.Errorf("bad key: %v", err)
	}
}

func TestImportKey(t *testing.T) {
	kp, err := identity.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	got, err := ImportKey(ExportKey(kp.Public))
	if err != nil {
		t.Fatalf("ImportKey: %v", err)
	}
	if got != kp.Public {
		t.Fatal("imported key differs from exported")
	}

	for _, bad := range []string{"", "!!!", ExportKey(kp.Public)[:10]} {
		if _, err := ImportKey(bad); !errors.Is(err, encoding.ErrInvalidKeyFormat) {
			t.Errorf("ImportKey(%q): want ErrInvalidKeyFormat, got %v", bad, err)
		}
	}
}
