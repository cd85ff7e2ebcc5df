// Package pairing implements the out-of-band introduction between two
// devices: exporting the local identity as a compact offer string (shown as
// a QR code or pasted by hand) and importing and validating the peer's.
// An offer carries no secrets; trust is established by comparing key
// fingerprints out of band.
package pairing

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pairlink/go-pairlink/pairlink/encoding"
	"github.com/pairlink/go-pairlink/pairlink/identity"
)

// Version is the current offer format version. Decoding refuses other
// versions instead of guessing.
const Version = 1

var (
	ErrMalformedOffer     = errors.New("pairing: malformed offer")
	ErrUnsupportedVersion = errors.New("pairing: unsupported offer version")
)

// Offer is the pairing payload a device presents to a peer.
type Offer struct {
	Version   int    `json:"v"`
	DeviceID  string `json:"device_id"`
	PublicKey string `json:"public_key"`
}

// NewOffer builds the local device's offer from its identity.
func NewOffer(id identity.DeviceID, pub identity.PublicKey) Offer {
	return Offer{
		Version:   Version,
		DeviceID:  string(id),
		PublicKey: encoding.EncodeKey(pub),
	}
}

// Encode renders the offer as base64-wrapped JSON, a single printable token
// that fits in a QR code.
func (o Offer) Encode() string {
	data, _ := json.Marshal(o)
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeOffer parses and validates an encoded offer. The key itself is
// validated too, so a decoded offer always carries a well-formed key.
func DecodeOffer(s string) (Offer, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Offer{}, ErrMalformedOffer
	}
	var o Offer
	if err := json.Unmarshal(data, &o); err != nil {
		return Offer{}, fmt.Errorf("%w: %v", ErrMalformedOffer, err)
	}
	if o.Version != Version {
		return Offer{}, ErrUnsupportedVersion
	}
	if identity.DeviceID(o.DeviceID).Validate() != nil {
		return Offer{}, ErrMalformedOffer
	}
	if _, err := encoding.DecodeKey(o.PublicKey); err != nil {
		return Offer{}, err
	}
	return o, nil
}

// Key returns the offered public key.
func (o Offer) Key() (identity.PublicKey, error) {
	raw, err := encoding.DecodeKey(o.PublicKey)
	if err != nil {
		return identity.PublicKey{}, err
	}
	return identity.PublicKey(raw), nil
}

// Fingerprint returns the offered key's SHA-256 fingerprint for the manual
// out-of-band comparison step.
func (o Offer) Fingerprint() (string, error) {
	key, err := o.Key()
	if err != nil {
		return "", err
	}
	return identity.Fingerprint(key), nil
}

// ExportKey renders a bare public key as base64 for channels that exchange
// keys without the offer wrapper.
func ExportKey(pub identity.PublicKey) string {
	return encoding.EncodeKey(pub)
}

// ImportKey parses and validates a bare base64 public key.
func ImportKey(s string) (identity.PublicKey, error) {
	raw, err := encoding.DecodeKey(s)
	if err != nil {
		return identity.PublicKey{}, err
	}
	return identity.PublicKey(raw), nil
}
