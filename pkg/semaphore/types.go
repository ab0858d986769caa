package semaphore

import (
	"encoding/hex"
	"fmt"

	"github.com/sabrinahirani/semaphore-stark/internal/semaphore/core"
	"github.com/sabrinahirani/semaphore-stark/internal/semaphore/prover"
	"github.com/sabrinahirani/semaphore-stark/internal/semaphore/utils"
)

// KeySize is the byte length of public and private keys: four 8-byte field
// elements, little-endian each.
const KeySize = 32

// FieldElement is the public alias for field elements used throughout the core
type FieldElement = core.FieldElement

// Field is the public alias for the finite field
type Field = core.Field

// Config is the public alias for the protocol configuration
type Config = utils.Config

// Backend is the public alias for the proof backend interface
type Backend = prover.Backend

// DefaultConfig returns the protocol default configuration
func DefaultConfig() *Config {
	return utils.DefaultConfig()
}

// PubKey is a member's public key: the Rescue digest of the private key
type PubKey struct {
	raw []byte
}

// PrivKey is a member's private key
type PrivKey struct {
	raw []byte
}

// ParsePubKey parses a hex-encoded 32-byte public key
func ParsePubKey(s string) (*PubKey, error) {
	raw, err := parseKeyHex(s)
	if err != nil {
		return nil, err
	}
	return &PubKey{raw: raw}, nil
}

// ParsePrivKey parses a hex-encoded 32-byte private key
func ParsePrivKey(s string) (*PrivKey, error) {
	raw, err := parseKeyHex(s)
	if err != nil {
		return nil, err
	}
	return &PrivKey{raw: raw}, nil
}

func parseKeyHex(s string) ([]byte, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, newError(ErrInvalidKey, "key is not valid hex", err)
	}
	if len(raw) != KeySize {
		return nil, newError(ErrInvalidKey,
			fmt.Sprintf("key must be %d bytes, got %d", KeySize, len(raw)), nil)
	}
	return raw, nil
}

// Hex returns the hex encoding of the public key
func (k *PubKey) Hex() string {
	return hex.EncodeToString(k.raw)
}

// Bytes returns a copy of the raw key bytes
func (k *PubKey) Bytes() []byte {
	result := make([]byte, len(k.raw))
	copy(result, k.raw)
	return result
}

// Hex returns the hex encoding of the private key
func (k *PrivKey) Hex() string {
	return hex.EncodeToString(k.raw)
}

// Bytes returns a copy of the raw key bytes
func (k *PrivKey) Bytes() []byte {
	result := make([]byte, len(k.raw))
	copy(result, k.raw)
	return result
}

// Signal is the public artifact of one signaling act: the topic, the
// nullifier that makes a second signal on the same topic detectable, the
// Merkle root the membership proof is bound to, and the proof itself.
// A Signal is immutable once created.
type Signal struct {
	Topic     string
	Nullifier string
	Root      string
	Proof     []byte
}

// digestToBytes concatenates the canonical encodings of a digest's elements
func digestToBytes(digest []*core.FieldElement) []byte {
	var result []byte
	for _, e := range digest {
		result = append(result, e.Bytes()...)
	}
	return result
}

// digestToHex returns the hex encoding of a digest
func digestToHex(digest []*core.FieldElement) string {
	return hex.EncodeToString(digestToBytes(digest))
}

// digestFromBytes splits raw bytes into digestSize field elements
func digestFromBytes(field *core.Field, raw []byte, digestSize int) ([]*core.FieldElement, error) {
	elementSize := field.ElementSize()
	if len(raw) != digestSize*elementSize {
		return nil, fmt.Errorf("digest must be %d bytes, got %d", digestSize*elementSize, len(raw))
	}
	digest := make([]*core.FieldElement, digestSize)
	for i := 0; i < digestSize; i++ {
		digest[i] = field.NewElementFromBytes(raw[i*elementSize : (i+1)*elementSize])
	}
	return digest, nil
}

// digestFromHex parses a hex-encoded digest
func digestFromHex(field *core.Field, s string, digestSize int) ([]*core.FieldElement, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("digest is not valid hex: %w", err)
	}
	return digestFromBytes(field, raw, digestSize)
}
