package channel

import (
	"time"

	"github.com/pairlink/go-pairlink/pairlink/crypto"
)

// replayCache tracks nonces of recently accepted envelopes. A nonce is only
// recorded after its envelope authenticates, so a forged envelope cannot
// poison the cache and block the genuine one. Expired entries are evicted
// inline on record. The channel's lock guards all access.
type replayCache struct {
	entries map[[crypto.NonceSize]byte]time.Time
	ttl     time.Duration
	clock   Clock
}

func newReplayCache(ttl time.Duration, clock Clock) *replayCache {
	return &replayCache{
		entries: make(map[[crypto.NonceSize]byte]time.Time),
		ttl:     ttl,
		clock:   clock,
	}
}

// seen reports whether nonce was already accepted within the TTL.
func (rc *replayCache) seen(nonce [crypto.NonceSize]byte) bool {
	at, ok := rc.entries[nonce]
	if !ok {
		return false
	}
	if at.Before(rc.clock.Now().Add(-rc.ttl)) {
		delete(rc.entries, nonce)
		return false
	}
	return true
}

// record marks nonce as accepted and evicts expired entries.
func (rc *replayCache) record(nonce [crypto.NonceSize]byte) {
	now := rc.clock.Now()
	cutoff := now.Add(-rc.ttl)
	for k, v := range rc.entries {
		if v.Before(cutoff) {
			delete(rc.entries, k)
		}
	}
	rc.entries[nonce] = now
}
