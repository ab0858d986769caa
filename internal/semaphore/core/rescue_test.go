package core

import (
	"fmt"
	"testing"
)

func defaultParams(t *testing.T) *RescueParams {
	t.Helper()
	params, err := DefaultRescueParams()
	if err != nil {
		t.Fatalf("failed to create default parameters: %v", err)
	}
	return params
}

// toyParams is a deliberately tiny instantiation (p=13, width 3, capacity 1,
// 2 rounds) whose full state space can be enumerated.
func toyParams(t *testing.T) *RescueParams {
	t.Helper()
	field, err := NewFieldFromUint64(13)
	if err != nil {
		t.Fatalf("failed to create toy field: %v", err)
	}
	params, err := NewRescueParams(field, 3, 1, 2)
	if err != nil {
		t.Fatalf("failed to create toy parameters: %v", err)
	}
	return params
}

func randomState(t *testing.T, params *RescueParams) []*FieldElement {
	t.Helper()
	state := make([]*FieldElement, params.Width())
	for i := range state {
		e, err := params.Field().RandomElement()
		if err != nil {
			t.Fatalf("failed to draw random element: %v", err)
		}
		state[i] = e
	}
	return state
}

func TestNewRescueParams(t *testing.T) {
	field := testField(t)

	tests := []struct {
		name      string
		width     int
		capacity  int
		rounds    int
		expectErr bool
	}{
		{name: "default geometry", width: 12, capacity: 4, rounds: 7, expectErr: false},
		{name: "toy geometry", width: 3, capacity: 1, rounds: 2, expectErr: false},
		{name: "zero width", width: 0, capacity: 4, rounds: 7, expectErr: true},
		{name: "capacity fills state", width: 12, capacity: 12, rounds: 7, expectErr: true},
		{name: "odd rate", width: 12, capacity: 5, rounds: 7, expectErr: true},
		{name: "zero rounds", width: 12, capacity: 4, rounds: 0, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRescueParams(field, tt.width, tt.capacity, tt.rounds)
			if tt.expectErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestRescueGeometry(t *testing.T) {
	params := defaultParams(t)

	if params.Width() != 12 {
		t.Errorf("expected width 12, got %d", params.Width())
	}
	if params.CapacityWidth() != 4 {
		t.Errorf("expected capacity 4, got %d", params.CapacityWidth())
	}
	if params.RateWidth() != 8 {
		t.Errorf("expected rate 8, got %d", params.RateWidth())
	}
	if params.DigestSize() != 4 {
		t.Errorf("expected digest size 4, got %d", params.DigestSize())
	}
	if params.Rounds() != 7 {
		t.Errorf("expected 7 rounds, got %d", params.Rounds())
	}
}

func TestSBoxInverse(t *testing.T) {
	params := defaultParams(t)
	e, err := params.Field().RandomElement()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !params.InvSBox(params.SBox(e)).Equal(e) {
		t.Error("inverse S-box should undo the S-box")
	}
	if !params.SBox(params.InvSBox(e)).Equal(e) {
		t.Error("S-box should undo the inverse S-box")
	}
}

func TestMDSInverse(t *testing.T) {
	params := defaultParams(t)
	state := randomState(t, params)
	if !ElementsEqual(params.MulInvMDS(params.MulMDS(state)), state) {
		t.Error("inverse MDS should undo the MDS mix")
	}
}

func TestHalfRoundsMeetInTheMiddle(t *testing.T) {
	params := defaultParams(t)
	state := randomState(t, params)

	for round := 0; round < params.Rounds(); round++ {
		next := params.ApplyRound(state, round)
		fwd := params.HalfRoundForward(state, round)
		bwd := params.HalfRoundBackward(next, round)
		if !ElementsEqual(fwd, bwd) {
			t.Errorf("round %d: forward and backward halves disagree", round)
		}
		state = next
	}
}

func TestPermuteInvertRoundtrip(t *testing.T) {
	params := defaultParams(t)
	state := randomState(t, params)

	permuted, err := params.Permute(state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	restored, err := params.Invert(permuted)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ElementsEqual(restored, state) {
		t.Error("inverting the permutation should restore the input")
	}
	if ElementsEqual(permuted, state) {
		t.Error("permutation should not be the identity")
	}
}

func TestPermuteWidthMismatch(t *testing.T) {
	params := defaultParams(t)
	if _, err := params.Permute(make([]*FieldElement, 3)); err == nil {
		t.Error("expected error for wrong state width")
	}
	if _, err := params.Invert(make([]*FieldElement, 3)); err == nil {
		t.Error("expected error for wrong state width")
	}
}

// TestPermuteBijective enumerates every state of the toy instantiation and
// checks that no two states map to the same output.
func TestPermuteBijective(t *testing.T) {
	params := toyParams(t)
	field := params.Field()

	seen := make(map[string]string)
	for a := uint64(0); a < 13; a++ {
		for b := uint64(0); b < 13; b++ {
			for c := uint64(0); c < 13; c++ {
				state := []*FieldElement{
					field.NewElementFromUint64(a),
					field.NewElementFromUint64(b),
					field.NewElementFromUint64(c),
				}
				out, err := params.Permute(state)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				key := fmt.Sprintf("%s,%s,%s", out[0], out[1], out[2])
				in := fmt.Sprintf("%d,%d,%d", a, b, c)
				if prev, ok := seen[key]; ok {
					t.Fatalf("states %s and %s collide on output %s", prev, in, key)
				}
				seen[key] = in
			}
		}
	}
	if len(seen) != 13*13*13 {
		t.Errorf("expected %d distinct outputs, got %d", 13*13*13, len(seen))
	}
}

func TestHashElements(t *testing.T) {
	params := defaultParams(t)
	field := params.Field()

	input := []*FieldElement{
		field.NewElementFromUint64(1),
		field.NewElementFromUint64(2),
		field.NewElementFromUint64(3),
		field.NewElementFromUint64(4),
	}

	t.Run("DigestSize", func(t *testing.T) {
		digest, err := params.HashElements(input)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(digest) != params.DigestSize() {
			t.Errorf("expected %d digest elements, got %d", params.DigestSize(), len(digest))
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		a, err := params.HashElements(input)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b, err := params.HashElements(input)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ElementsEqual(a, b) {
			t.Error("hashing the same input twice should give the same digest")
		}
	})

	t.Run("InputSensitive", func(t *testing.T) {
		a, err := params.HashElements(input)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		changed := CloneElements(input)
		changed[0] = field.NewElementFromUint64(99)
		b, err := params.HashElements(changed)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ElementsEqual(a, b) {
			t.Error("different inputs should give different digests")
		}
	})

	t.Run("LengthSeparated", func(t *testing.T) {
		// Zero-padding alone must not make a shorter input collide with a
		// longer one; the capacity constant separates them.
		a, err := params.HashElements(input)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		padded := append(CloneElements(input), field.Zero())
		b, err := params.HashElements(padded)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ElementsEqual(a, b) {
			t.Error("inputs of different lengths should give different digests")
		}
	})

	t.Run("EmptyInput", func(t *testing.T) {
		if _, err := params.HashElements(nil); err == nil {
			t.Error("expected error for empty input")
		}
	})
}

func TestMergeDigests(t *testing.T) {
	params := defaultParams(t)
	field := params.Field()

	left := make([]*FieldElement, params.DigestSize())
	right := make([]*FieldElement, params.DigestSize())
	for i := range left {
		left[i] = field.NewElementFromUint64(uint64(i + 1))
		right[i] = field.NewElementFromUint64(uint64(i + 10))
	}

	merged, err := params.MergeDigests(left, right)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	swapped, err := params.MergeDigests(right, left)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ElementsEqual(merged, swapped) {
		t.Error("merge should be order-sensitive")
	}

	if _, err := params.MergeDigests(left[:2], right); err == nil {
		t.Error("expected error for undersized digest")
	}
}

func TestHashBytes(t *testing.T) {
	params := defaultParams(t)

	t.Run("Deterministic", func(t *testing.T) {
		a, err := params.HashBytes([]byte("proposal-42"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b, err := params.HashBytes([]byte("proposal-42"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ElementsEqual(a, b) {
			t.Error("hashing the same bytes twice should give the same digest")
		}
	})

	t.Run("InputSensitive", func(t *testing.T) {
		a, err := params.HashBytes([]byte("proposal-42"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b, err := params.HashBytes([]byte("proposal-43"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ElementsEqual(a, b) {
			t.Error("different topics should give different digests")
		}
	})

	t.Run("LongInput", func(t *testing.T) {
		long := make([]byte, 1000)
		for i := range long {
			long[i] = byte(i)
		}
		digest, err := params.HashBytes(long)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(digest) != params.DigestSize() {
			t.Errorf("expected %d digest elements, got %d", params.DigestSize(), len(digest))
		}
	})

	t.Run("EmptyInput", func(t *testing.T) {
		if _, err := params.HashBytes(nil); err == nil {
			t.Error("expected error for empty input")
		}
	})
}

func TestRoundConstantsReproducible(t *testing.T) {
	a := defaultParams(t)
	b := defaultParams(t)

	for round := 0; round < a.Rounds(); round++ {
		if !ElementsEqual(a.RoundConstants1(round), b.RoundConstants1(round)) {
			t.Errorf("round %d: first constant vector differs between instantiations", round)
		}
		if !ElementsEqual(a.RoundConstants2(round), b.RoundConstants2(round)) {
			t.Errorf("round %d: second constant vector differs between instantiations", round)
		}
	}

	// A different geometry must reseed the whole schedule
	toy := toyParams(t)
	if ElementsEqual(a.RoundConstants1(0)[:1], toy.RoundConstants1(0)[:1]) {
		t.Error("different parameter sets should derive different constants")
	}
}
