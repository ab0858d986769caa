package utils

import (
	"math/big"
	"testing"
)

// TestDefaultConfig tests the DefaultConfig function
func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config == nil {
		t.Fatal("DefaultConfig() returned nil")
	}

	if config.FieldModulus.Cmp(big.NewInt(0)) <= 0 {
		t.Error("FieldModulus should be positive")
	}

	if config.StateWidth != 12 {
		t.Errorf("StateWidth should be 12, got %d", config.StateWidth)
	}

	if config.CapacityWidth != 4 {
		t.Errorf("CapacityWidth should be 4, got %d", config.CapacityWidth)
	}

	if config.Rounds != CycleLength-1 {
		t.Errorf("Rounds should fill a cycle, got %d", config.Rounds)
	}

	if config.TreeDepth <= 0 {
		t.Error("TreeDepth should be positive")
	}

	// Validate the default config
	if err := config.Validate(); err != nil {
		t.Errorf("DefaultConfig() should be valid: %v", err)
	}
}

// TestConfigValidate tests the Validate method
func TestConfigValidate(t *testing.T) {
	goldilocks := new(big.Int).SetUint64(18446744069414584321)

	tests := []struct {
		name      string
		config    *Config
		expectErr bool
	}{
		{
			name:      "valid default config",
			config:    DefaultConfig(),
			expectErr: false,
		},
		{
			name:      "valid deeper tree",
			config:    DefaultConfig().WithTreeDepth(7),
			expectErr: false,
		},
		{
			name: "invalid field modulus (too small)",
			config: &Config{
				FieldModulus:  big.NewInt(2),
				StateWidth:    12,
				CapacityWidth: 4,
				Rounds:        7,
				TreeDepth:     3,
			},
			expectErr: true,
		},
		{
			name: "nil field modulus",
			config: &Config{
				StateWidth:    12,
				CapacityWidth: 4,
				Rounds:        7,
				TreeDepth:     3,
			},
			expectErr: true,
		},
		{
			name: "capacity fills state",
			config: &Config{
				FieldModulus:  goldilocks,
				StateWidth:    12,
				CapacityWidth: 12,
				Rounds:        7,
				TreeDepth:     3,
			},
			expectErr: true,
		},
		{
			name: "odd rate",
			config: &Config{
				FieldModulus:  goldilocks,
				StateWidth:    12,
				CapacityWidth: 5,
				Rounds:        7,
				TreeDepth:     3,
			},
			expectErr: true,
		},
		{
			name:      "round count does not fill a cycle",
			config:    DefaultConfig().WithRounds(5),
			expectErr: true,
		},
		{
			name:      "zero tree depth",
			config:    DefaultConfig().WithTreeDepth(0),
			expectErr: true,
		},
		{
			name:      "trace length not a power of two",
			config:    DefaultConfig().WithTreeDepth(4),
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expectErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestConfigBuilders(t *testing.T) {
	config := DefaultConfig().
		WithFieldModulus(big.NewInt(97)).
		WithTreeDepth(7).
		WithRounds(7)

	if config.FieldModulus.Cmp(big.NewInt(97)) != 0 {
		t.Error("WithFieldModulus should set the modulus")
	}
	if config.TreeDepth != 7 {
		t.Error("WithTreeDepth should set the depth")
	}
	if config.Rounds != 7 {
		t.Error("WithRounds should set the round count")
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	tests := []struct {
		n        int
		expected bool
	}{
		{1, true}, {2, true}, {32, true}, {1024, true},
		{0, false}, {-2, false}, {3, false}, {24, false},
	}
	for _, tt := range tests {
		if got := IsPowerOfTwo(tt.n); got != tt.expected {
			t.Errorf("IsPowerOfTwo(%d) = %v, expected %v", tt.n, got, tt.expected)
		}
	}
}

func TestLog2(t *testing.T) {
	tests := []struct {
		n        int
		expected int
	}{
		{1, 0}, {2, 1}, {32, 5}, {1024, 10}, {0, -1}, {3, -1},
	}
	for _, tt := range tests {
		if got := Log2(tt.n); got != tt.expected {
			t.Errorf("Log2(%d) = %d, expected %d", tt.n, got, tt.expected)
		}
	}
}
