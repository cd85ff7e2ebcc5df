package identity

import "errors"

// DeviceID is the logical identifier a device announces to the relay and
// writes into envelope routing fields. It is an opaque label chosen at setup
// time (for example "desktop" or "mobile"), not a secret and not
// authenticated by itself; trust comes from the paired public key.
type DeviceID string

var ErrEmptyDeviceID = errors.New("identity: empty device ID")

// Validate rejects IDs that cannot be routed.
func (id DeviceID) Validate() error {
	if id == "" {
		return ErrEmptyDeviceID
	}
	return nil
}

func (id DeviceID) String() string { return string(id) }
