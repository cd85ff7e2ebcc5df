package transfer

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/klauspost/reedsolomon"
)

const (
	// MaxShardSize bounds a single shard so a part still fits a relay
	// frame after JSON, base64 and AEAD overhead.
	MaxShardSize = 700 * 1024
)

var (
	ErrInvalidConfig   = errors.New("transfer: invalid data/parity configuration")
	ErrEmptyPayload    = errors.New("transfer: empty payload")
	ErrPayloadTooLarge = errors.New("transfer: payload too large for shard layout")
)

// Config configures how a payload is split into parts.
type Config struct {
	DataShards   int              // shards required to reconstruct (default: 8)
	ParityShards int              // extra shards; up to this many may be lost (default: 2)
	Compression  CompressionLevel // compression level for the payload
}

// DefaultConfig returns defaults suited to state snapshots of a few
// megabytes over a relay that occasionally drops envelopes.
func DefaultConfig() Config {
	return Config{
		DataShards:   8,
		ParityShards: 2,
		Compression:  CompressionFast,
	}
}

func (c Config) validate() error {
	if c.DataShards <= 0 || c.ParityShards <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Part is one shard of a transfer. Parts are self-describing: any
// DataShards of them carry everything needed to reconstruct the payload.
// The caller seals each part into its own envelope.
type Part struct {
	TransferID   uuid.UUID `json:"transfer_id"`
	Index        int       `json:"index"`
	DataShards   int       `json:"data_shards"`
	ParityShards int       `json:"parity_shards"`
	PayloadSize  int       `json:"payload_size"`  // bytes after optional compression
	OriginalSize int       `json:"original_size"` // bytes before compression
	Compressed   bool      `json:"compressed"`
	Digest       string    `json:"digest"` // hex SHA-256 of the original payload
	Shard        []byte    `json:"shard"`
}

func (p Part) total() int { return p.DataShards + p.ParityShards }

func (p Part) validate() error {
	if p.DataShards <= 0 || p.ParityShards <= 0 {
		return ErrMalformedPart
	}
	if p.Index < 0 || p.Index >= p.total() {
		return ErrMalformedPart
	}
	if p.PayloadSize <= 0 || p.OriginalSize <= 0 || len(p.Shard) == 0 {
		return ErrMalformedPart
	}
	if _, err := hex.DecodeString(p.Digest); err != nil || p.Digest == "" {
		return ErrMalformedPart
	}
	return nil
}

// sameTransfer reports whether q's metadata is consistent with p's.
func (p Part) sameTransfer(q Part) bool {
	return p.TransferID == q.TransferID &&
		p.DataShards == q.DataShards &&
		p.ParityShards == q.ParityShards &&
		p.PayloadSize == q.PayloadSize &&
		p.OriginalSize == q.OriginalSize &&
		p.Compressed == q.Compressed &&
		p.Digest == q.Digest &&
		len(p.Shard) == len(q.Shard)
}

// Split compresses payload when beneficial, erasure-codes it and returns
// DataShards+ParityShards parts. Losing up to ParityShards of them is
// recoverable without retransmission.
func Split(payload []byte, cfg Config) ([]Part, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}

	digest := sha256.Sum256(payload)

	data := payload
	compressed := false
	if c, err := Compress(payload, cfg.Compression); err == nil && len(c) < len(payload) {
		data = c
		compressed = true
	}

	if (len(data)+cfg.DataShards-1)/cfg.DataShards > MaxShardSize {
		return nil, fmt.Errorf("%w: %d bytes over %d data shards", ErrPayloadTooLarge, len(data), cfg.DataShards)
	}

	enc, err := reedsolomon.New(cfg.DataShards, cfg.ParityShards)
	if err != nil {
		return nil, err
	}
	shards, err := enc.Split(data)
	if err != nil {
		return nil, err
	}
	if err := enc.Encode(shards); err != nil {
		return nil, err
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}

	parts := make([]Part, 0, len(shards))
	for i, shard := range shards {
		parts = append(parts, Part{
			TransferID:   id,
			Index:        i,
			DataShards:   cfg.DataShards,
			ParityShards: cfg.ParityShards,
			PayloadSize:  len(data),
			OriginalSize: len(payload),
			Compressed:   compressed,
			Digest:       hex.EncodeToString(digest[:]),
			Shard:        shard,
		})
	}
	return parts, nil
}
