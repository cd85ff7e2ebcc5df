package transfer

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/reedsolomon"
)

var (
	ErrMalformedPart  = errors.New("transfer: malformed part")
	ErrTooManyLost    = errors.New("transfer: too many parts lost, cannot recover")
	ErrDigestMismatch = errors.New("transfer: payload digest mismatch")
)

// Clock abstracts time so eviction is testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Stats counts what the collector has seen.
type Stats struct {
	PartsReceived atomic.Int64
	Duplicates    atomic.Int64
	Completed     atomic.Int64
	Expired       atomic.Int64
	BytesOut      atomic.Int64
}

// pending is a transfer still waiting for enough parts.
type pending struct {
	meta    Part // first part's metadata; all others must match
	shards  [][]byte
	have    int
	started time.Time
}

// Collector reassembles transfers from parts arriving in any order, with
// duplicates, across interleaved transfers. A transfer completes as soon as
// any DataShards of its parts have arrived. Incomplete transfers are
// evicted after the TTL; completed transfer IDs are remembered for the
// same TTL so stragglers cannot deliver a payload twice.
type Collector struct {
	mu        sync.Mutex
	ttl       time.Duration
	clock     Clock
	transfers map[uuid.UUID]*pending
	completed map[uuid.UUID]time.Time
	stats     Stats
}

// NewCollector creates a collector. A zero ttl defaults to 5 minutes and a
// nil clock to the system clock.
func NewCollector(ttl time.Duration, clock Clock) *Collector {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if clock == nil {
		clock = systemClock{}
	}
	return &Collector{
		ttl:       ttl,
		clock:     clock,
		transfers: make(map[uuid.UUID]*pending),
		completed: make(map[uuid.UUID]time.Time),
	}
}

// Stats returns the collector's counters.
func (c *Collector) Stats() *Stats { return &c.stats }

// Pending returns the number of incomplete transfers being tracked.
func (c *Collector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.transfers)
}

// Add feeds one received part in. When the part completes its transfer the
// reassembled payload is returned with done=true and the transfer's state
// is released. Duplicates and parts of already-completed transfers are
// ignored with done=false.
func (c *Collector) Add(p Part) ([]byte, bool, error) {
	if err := p.validate(); err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.evict()
	c.stats.PartsReceived.Add(1)

	if _, done := c.completed[p.TransferID]; done {
		c.stats.Duplicates.Add(1)
		return nil, false, nil
	}

	tr := c.transfers[p.TransferID]
	if tr == nil {
		tr = &pending{
			meta:    p,
			shards:  make([][]byte, p.total()),
			started: c.clock.Now(),
		}
		c.transfers[p.TransferID] = tr
	} else if !tr.meta.sameTransfer(p) {
		return nil, false, ErrMalformedPart
	}

	if tr.shards[p.Index] != nil {
		c.stats.Duplicates.Add(1)
		return nil, false, nil
	}
	tr.shards[p.Index] = p.Shard
	tr.have++

	if tr.have < p.DataShards {
		return nil, false, nil
	}

	payload, err := reassemble(tr)
	delete(c.transfers, p.TransferID)
	if err != nil {
		return nil, false, err
	}
	c.completed[p.TransferID] = c.clock.Now()
	c.stats.Completed.Add(1)
	c.stats.BytesOut.Add(int64(len(payload)))
	return payload, true, nil
}

// evict drops incomplete transfers and completed IDs older than the TTL.
// Caller holds the lock.
func (c *Collector) evict() {
	cutoff := c.clock.Now().Add(-c.ttl)
	for id, tr := range c.transfers {
		if tr.started.Before(cutoff) {
			delete(c.transfers, id)
			c.stats.Expired.Add(1)
		}
	}
	for id, at := range c.completed {
		if at.Before(cutoff) {
			delete(c.completed, id)
		}
	}
}

func reassemble(tr *pending) ([]byte, error) {
	enc, err := reedsolomon.New(tr.meta.DataShards, tr.meta.ParityShards)
	if err != nil {
		return nil, err
	}
	if err := enc.ReconstructData(tr.shards); err != nil {
		if errors.Is(err, reedsolomon.ErrTooFewShards) {
			return nil, ErrTooManyLost
		}
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(tr.meta.PayloadSize)
	if err := enc.Join(&buf, tr.shards, tr.meta.PayloadSize); err != nil {
		return nil, err
	}
	payload := buf.Bytes()

	if tr.meta.Compressed {
		payload, err = Decompress(payload)
		if err != nil {
			return nil, err
		}
	}

	sum := sha256.Sum256(payload)
	if hex.EncodeToString(sum[:]) != tr.meta.Digest {
		return nil, ErrDigestMismatch
	}
	return payload, nil
}
