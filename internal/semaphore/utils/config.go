package utils

import (
	"fmt"
	"math/big"
)

// Config represents the protocol parameters for the Semaphore STARK core
type Config struct {
	// Field parameters
	FieldModulus *big.Int

	// Permutation parameters
	StateWidth    int // Width of the Rescue state
	CapacityWidth int // Number of capacity elements
	Rounds        int // Number of Rescue rounds

	// Access-set parameters
	TreeDepth int // Merkle tree depth (capacity = 2^TreeDepth members)
}

// CycleLength is the number of trace rows per permutation invocation: one
// initialization row plus one row per round.
const CycleLength = 8

// DefaultConfig returns the protocol defaults: the Goldilocks field with a
// 12-element state (capacity 4), 7 rounds, and a depth-3 member tree.
func DefaultConfig() *Config {
	return &Config{
		FieldModulus:  new(big.Int).SetUint64(18446744069414584321), // 2^64 - 2^32 + 1
		StateWidth:    12,
		CapacityWidth: 4,
		Rounds:        7,
		TreeDepth:     3,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.FieldModulus == nil || c.FieldModulus.Cmp(big.NewInt(2)) <= 0 {
		return fmt.Errorf("field modulus must be greater than 2")
	}

	if c.StateWidth <= 0 || c.CapacityWidth <= 0 || c.CapacityWidth >= c.StateWidth {
		return fmt.Errorf("invalid state geometry: width %d, capacity %d",
			c.StateWidth, c.CapacityWidth)
	}

	if (c.StateWidth-c.CapacityWidth)%2 != 0 {
		return fmt.Errorf("rate %d must be even to form digests", c.StateWidth-c.CapacityWidth)
	}

	if c.Rounds != CycleLength-1 {
		return fmt.Errorf("round count must be %d to fill a trace cycle, got %d",
			CycleLength-1, c.Rounds)
	}

	if c.TreeDepth <= 0 {
		return fmt.Errorf("tree depth must be positive")
	}

	// A STARK backend interpolates trace columns over a multiplicative
	// subgroup, so the row count must be a power of two.
	if !IsPowerOfTwo(CycleLength * (c.TreeDepth + 1)) {
		return fmt.Errorf("trace length %d is not a power of two; tree depth must be 2^k - 1",
			CycleLength*(c.TreeDepth+1))
	}

	return nil
}

// WithFieldModulus sets the field modulus
func (c *Config) WithFieldModulus(modulus *big.Int) *Config {
	c.FieldModulus = new(big.Int).Set(modulus)
	return c
}

// WithTreeDepth sets the Merkle tree depth
func (c *Config) WithTreeDepth(depth int) *Config {
	c.TreeDepth = depth
	return c
}

// WithRounds sets the number of Rescue rounds
func (c *Config) WithRounds(rounds int) *Config {
	c.Rounds = rounds
	return c
}
