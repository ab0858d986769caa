package core

import (
	"fmt"
	"math/big"

	"golang.org/x/crypto/sha3"
)

// RescueParams holds a fixed instantiation of the Rescue-Prime permutation:
// a width-w state over a prime field, split into a capacity part (never
// exposed as output) and a rate part (absorbs input, yields output).
//
// One round applies, in order:
//
//	S-box (x^alpha) -> MDS mix -> add ARK1 -> inverse S-box -> MDS mix -> add ARK2
//
// The inverse S-box keeps the permutation invertible while the forward/backward
// half-round split keeps every round expressible as degree-alpha constraints
// (see the air package). Round constants are derived from a SHAKE256 stream
// seeded by the parameter set; the MDS matrix uses a Cauchy construction.
type RescueParams struct {
	field    *Field
	width    int
	capacity int
	rounds   int

	alpha    uint64
	alphaInv *big.Int

	mds    [][]*FieldElement
	invMDS [][]*FieldElement
	ark1   [][]*FieldElement
	ark2   [][]*FieldElement
}

// RescueAlpha is the S-box exponent. It must be coprime with p-1 so that
// x^alpha is a field automorphism.
const RescueAlpha uint64 = 7

// NewRescueParams creates a Rescue-Prime instantiation over the given field.
func NewRescueParams(field *Field, width, capacity, rounds int) (*RescueParams, error) {
	if width <= 0 || capacity <= 0 || capacity >= width {
		return nil, fmt.Errorf("invalid state geometry: width=%d capacity=%d", width, capacity)
	}
	if (width-capacity)%2 != 0 {
		return nil, fmt.Errorf("rate %d must be even to form digests", width-capacity)
	}
	if rounds <= 0 {
		return nil, fmt.Errorf("round count must be positive, got %d", rounds)
	}

	pMinusOne := new(big.Int).Sub(field.Modulus(), big.NewInt(1))
	alphaInv := new(big.Int).ModInverse(new(big.Int).SetUint64(RescueAlpha), pMinusOne)
	if alphaInv == nil {
		return nil, fmt.Errorf("s-box exponent %d is not invertible modulo p-1", RescueAlpha)
	}

	mds, err := generateCauchyMDS(field, width)
	if err != nil {
		return nil, fmt.Errorf("failed to generate MDS matrix: %w", err)
	}
	invMDS, err := invertMatrix(field, mds)
	if err != nil {
		return nil, fmt.Errorf("failed to invert MDS matrix: %w", err)
	}

	ark1, ark2 := generateRoundConstants(field, width, capacity, rounds)

	return &RescueParams{
		field:    field,
		width:    width,
		capacity: capacity,
		rounds:   rounds,
		alpha:    RescueAlpha,
		alphaInv: alphaInv,
		mds:      mds,
		invMDS:   invMDS,
		ark1:     ark1,
		ark2:     ark2,
	}, nil
}

// DefaultRescueParams returns the protocol instantiation: Goldilocks field,
// state width 12 (capacity 4, rate 8), 7 rounds.
func DefaultRescueParams() (*RescueParams, error) {
	return NewRescueParams(DefaultPrimeField, 12, 4, 7)
}

// Field returns the underlying prime field
func (p *RescueParams) Field() *Field {
	return p.field
}

// Width returns the state width
func (p *RescueParams) Width() int {
	return p.width
}

// CapacityWidth returns the number of capacity elements
func (p *RescueParams) CapacityWidth() int {
	return p.capacity
}

// RateWidth returns the number of rate elements
func (p *RescueParams) RateWidth() int {
	return p.width - p.capacity
}

// DigestSize returns the number of elements in a sponge digest (half the rate)
func (p *RescueParams) DigestSize() int {
	return p.RateWidth() / 2
}

// Rounds returns the number of rounds in the permutation
func (p *RescueParams) Rounds() int {
	return p.rounds
}

// SBox raises an element to the S-box exponent
func (p *RescueParams) SBox(x *FieldElement) *FieldElement {
	return x.ExpUint64(p.alpha)
}

// InvSBox raises an element to the inverse S-box exponent
func (p *RescueParams) InvSBox(x *FieldElement) *FieldElement {
	return x.Exp(p.alphaInv)
}

// MulMDS multiplies the state vector by the MDS matrix
func (p *RescueParams) MulMDS(state []*FieldElement) []*FieldElement {
	return p.mulMatrix(p.mds, state)
}

// MulInvMDS multiplies the state vector by the inverse MDS matrix
func (p *RescueParams) MulInvMDS(state []*FieldElement) []*FieldElement {
	return p.mulMatrix(p.invMDS, state)
}

func (p *RescueParams) mulMatrix(m [][]*FieldElement, state []*FieldElement) []*FieldElement {
	result := make([]*FieldElement, p.width)
	for i := 0; i < p.width; i++ {
		acc := p.field.Zero()
		for j := 0; j < p.width; j++ {
			acc = acc.Add(m[i][j].Mul(state[j]))
		}
		result[i] = acc
	}
	return result
}

// HalfRoundForward applies the first half of a round to a copy of the state:
// S-box, MDS mix, add ARK1. The air package evaluates the same function
// against trace rows, so the trace builder and the constraint system cannot
// drift apart.
func (p *RescueParams) HalfRoundForward(state []*FieldElement, round int) []*FieldElement {
	mid := make([]*FieldElement, p.width)
	for i, s := range state {
		mid[i] = p.SBox(s)
	}
	mid = p.MulMDS(mid)
	for i := range mid {
		mid[i] = mid[i].Add(p.ark1[round][i])
	}
	return mid
}

// HalfRoundBackward undoes the second half of a round on a copy of the state:
// subtract ARK2, inverse MDS mix, then re-apply the S-box to cancel the
// round's inverse S-box. Both halves meet at the same mid-round state, which
// keeps the round checkable at degree alpha in both row variables.
func (p *RescueParams) HalfRoundBackward(state []*FieldElement, round int) []*FieldElement {
	mid := make([]*FieldElement, p.width)
	for i, s := range state {
		mid[i] = s.Sub(p.ark2[round][i])
	}
	mid = p.MulInvMDS(mid)
	for i := range mid {
		mid[i] = p.SBox(mid[i])
	}
	return mid
}

// ApplyRound applies one full Rescue round to a copy of the state
func (p *RescueParams) ApplyRound(state []*FieldElement, round int) []*FieldElement {
	mid := p.HalfRoundForward(state, round)
	next := make([]*FieldElement, p.width)
	for i, m := range mid {
		next[i] = p.InvSBox(m)
	}
	next = p.MulMDS(next)
	for i := range next {
		next[i] = next[i].Add(p.ark2[round][i])
	}
	return next
}

// Permute applies the full permutation to a copy of the state
func (p *RescueParams) Permute(state []*FieldElement) ([]*FieldElement, error) {
	if len(state) != p.width {
		return nil, fmt.Errorf("state width mismatch: expected %d, got %d", p.width, len(state))
	}
	result := CloneElements(state)
	for round := 0; round < p.rounds; round++ {
		result = p.ApplyRound(result, round)
	}
	return result, nil
}

// Invert applies the inverse permutation to a copy of the state. The inverse
// never appears in traces or constraints; it exists so that tests can mount
// the preimage-forging attack the constraint system must reject.
func (p *RescueParams) Invert(state []*FieldElement) ([]*FieldElement, error) {
	if len(state) != p.width {
		return nil, fmt.Errorf("state width mismatch: expected %d, got %d", p.width, len(state))
	}
	result := CloneElements(state)
	for round := p.rounds - 1; round >= 0; round-- {
		for i := range result {
			result[i] = result[i].Sub(p.ark2[round][i])
		}
		result = p.MulInvMDS(result)
		for i := range result {
			result[i] = p.SBox(result[i])
		}
		for i := range result {
			result[i] = result[i].Sub(p.ark1[round][i])
		}
		result = p.MulInvMDS(result)
		for i := range result {
			result[i] = p.InvSBox(result[i])
		}
	}
	return result, nil
}

// HashElements absorbs the inputs into a fresh sponge state and returns the
// digest (the first half of the rate). The first capacity element is set to
// the number of absorbed elements, which domain-separates inputs of
// different lengths; the remaining capacity elements stay zero.
func (p *RescueParams) HashElements(inputs []*FieldElement) ([]*FieldElement, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("cannot hash empty input")
	}

	state := make([]*FieldElement, p.width)
	for i := range state {
		state[i] = p.field.Zero()
	}
	state[0] = p.field.NewElementFromInt64(int64(len(inputs)))

	rate := p.RateWidth()
	for start := 0; start < len(inputs); start += rate {
		end := start + rate
		if end > len(inputs) {
			end = len(inputs)
		}
		for i, in := range inputs[start:end] {
			state[p.capacity+i] = in
		}
		// Zero-pad a final partial block
		for i := end - start; i < rate; i++ {
			state[p.capacity+i] = p.field.Zero()
		}
		var err error
		state, err = p.Permute(state)
		if err != nil {
			return nil, err
		}
	}

	return state[p.capacity : p.capacity+p.DigestSize()], nil
}

// MergeDigests hashes two digests into one, as done at every internal node
// of the access set's Merkle tree.
func (p *RescueParams) MergeDigests(left, right []*FieldElement) ([]*FieldElement, error) {
	if len(left) != p.DigestSize() || len(right) != p.DigestSize() {
		return nil, fmt.Errorf("digest size mismatch: expected %d, got %d and %d",
			p.DigestSize(), len(left), len(right))
	}
	inputs := make([]*FieldElement, 0, 2*p.DigestSize())
	inputs = append(inputs, left...)
	inputs = append(inputs, right...)
	return p.HashElements(inputs)
}

// HashBytes hashes an arbitrary byte string (such as a signal topic) by
// packing it into field elements and absorbing them.
func (p *RescueParams) HashBytes(data []byte) ([]*FieldElement, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot hash empty input")
	}

	// One byte fewer than the element size, so every chunk stays below the
	// modulus and the packing is injective.
	chunk := p.field.ElementSize() - 1
	if chunk < 1 {
		chunk = 1
	}

	var inputs []*FieldElement
	for start := 0; start < len(data); start += chunk {
		end := start + chunk
		if end > len(data) {
			end = len(data)
		}
		inputs = append(inputs, p.field.NewElementFromBytes(data[start:end]))
	}
	return p.HashElements(inputs)
}

// RoundConstants1 returns the first additive constant vector of a round
func (p *RescueParams) RoundConstants1(round int) []*FieldElement {
	return CloneElements(p.ark1[round])
}

// RoundConstants2 returns the second additive constant vector of a round
func (p *RescueParams) RoundConstants2(round int) []*FieldElement {
	return CloneElements(p.ark2[round])
}

// CloneElements returns a shallow copy of a slice of field elements.
// Elements themselves are immutable.
func CloneElements(elements []*FieldElement) []*FieldElement {
	result := make([]*FieldElement, len(elements))
	copy(result, elements)
	return result
}

// ElementsEqual compares two slices of field elements for equality
func ElementsEqual(a, b []*FieldElement) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// generateCauchyMDS builds a width x width Cauchy matrix M[i][j] = 1/(x_i + y_j)
// with x_i = i+1 and y_j = width+j+1. Cauchy matrices over a prime field are
// MDS whenever all x_i and y_j are distinct and all sums are nonzero.
func generateCauchyMDS(field *Field, width int) ([][]*FieldElement, error) {
	matrix := make([][]*FieldElement, width)
	for i := 0; i < width; i++ {
		matrix[i] = make([]*FieldElement, width)
		for j := 0; j < width; j++ {
			sum := field.NewElementFromInt64(int64(i + 1)).Add(field.NewElementFromInt64(int64(width + j + 1)))
			inv, err := sum.Inv()
			if err != nil {
				return nil, fmt.Errorf("degenerate Cauchy entry at (%d,%d): %w", i, j, err)
			}
			matrix[i][j] = inv
		}
	}
	return matrix, nil
}

// invertMatrix computes the inverse of a square matrix over the field using
// Gauss-Jordan elimination on [M | I].
func invertMatrix(field *Field, m [][]*FieldElement) ([][]*FieldElement, error) {
	n := len(m)
	work := make([][]*FieldElement, n)
	inverse := make([][]*FieldElement, n)
	for i := 0; i < n; i++ {
		work[i] = CloneElements(m[i])
		inverse[i] = make([]*FieldElement, n)
		for j := 0; j < n; j++ {
			if i == j {
				inverse[i][j] = field.One()
			} else {
				inverse[i][j] = field.Zero()
			}
		}
	}

	for col := 0; col < n; col++ {
		// Find a pivot row
		pivot := -1
		for row := col; row < n; row++ {
			if !work[row][col].IsZero() {
				pivot = row
				break
			}
		}
		if pivot < 0 {
			return nil, fmt.Errorf("matrix is singular at column %d", col)
		}
		work[col], work[pivot] = work[pivot], work[col]
		inverse[col], inverse[pivot] = inverse[pivot], inverse[col]

		pivotInv, err := work[col][col].Inv()
		if err != nil {
			return nil, fmt.Errorf("failed to invert pivot: %w", err)
		}
		for j := 0; j < n; j++ {
			work[col][j] = work[col][j].Mul(pivotInv)
			inverse[col][j] = inverse[col][j].Mul(pivotInv)
		}

		for row := 0; row < n; row++ {
			if row == col || work[row][col].IsZero() {
				continue
			}
			factor := work[row][col]
			for j := 0; j < n; j++ {
				work[row][j] = work[row][j].Sub(factor.Mul(work[col][j]))
				inverse[row][j] = inverse[row][j].Sub(factor.Mul(inverse[col][j]))
			}
		}
	}

	return inverse, nil
}

// generateRoundConstants derives the two per-round constant vectors from a
// SHAKE256 stream seeded by the full parameter set. The constants are public
// and reproducible; changing any parameter changes the whole schedule.
func generateRoundConstants(field *Field, width, capacity, rounds int) ([][]*FieldElement, [][]*FieldElement) {
	seed := fmt.Sprintf("rescue-prime(%s,%d,%d,%d,%d)",
		field.Modulus().String(), width, capacity, rounds, RescueAlpha)
	shake := sha3.NewShake256()
	shake.Write([]byte(seed))

	// Oversample by 8 bytes per constant so the modular reduction bias is
	// negligible.
	buf := make([]byte, field.ElementSize()+8)
	draw := func() *FieldElement {
		if _, err := shake.Read(buf); err != nil {
			// sha3.ShakeHash.Read never fails
			panic(fmt.Sprintf("shake read failed: %v", err))
		}
		return field.NewElement(new(big.Int).SetBytes(buf))
	}

	ark1 := make([][]*FieldElement, rounds)
	ark2 := make([][]*FieldElement, rounds)
	for round := 0; round < rounds; round++ {
		ark1[round] = make([]*FieldElement, width)
		ark2[round] = make([]*FieldElement, width)
		for i := 0; i < width; i++ {
			ark1[round][i] = draw()
		}
		for i := 0; i < width; i++ {
			ark2[round][i] = draw()
		}
	}
	return ark1, ark2
}
