// Package air defines the execution-trace layout and the constraint system
// for the Semaphore STARK core. The constraints are the soundness boundary of
// the whole protocol: they force the trace to be an honest unrolling of the
// Rescue permutation across both hash lanes, pin every cycle's capacity
// registers to the protocol constants, and tie the nullifier input to the
// private key whose derived public key is proved to be in the access set.
package air

import (
	"errors"
	"fmt"

	"github.com/sabrinahirani/semaphore-stark/internal/semaphore/core"
)

// Trace column layout. The trace carries two Rescue lanes side by side plus
// one selector column:
//
//	 0- 3  Merkle-lane capacity
//	 4- 7  Merkle-lane rate, low half (accumulated digest)
//	 8-11  Merkle-lane rate, high half (sibling digest)
//	12-15  nullifier-lane capacity
//	16-19  nullifier-lane rate, low half (private key, then nullifier)
//	20-23  nullifier-lane rate, high half (topic hash)
//	24     Merkle index bit for the current level
const (
	NumColumns  = 25
	CycleLength = 8

	MerkleCapCol     = 0
	MerkleRateCol    = 4
	MerkleSiblingCol = 8
	NullifierCapCol  = 12
	NullifierRateCol = 16
	TopicHashCol     = 20
	IndexBitCol      = 24

	laneWidth = 12
)

// ErrUnsatisfied reports that a trace does not satisfy the constraint
// system. It deliberately carries no detail about which constraint failed:
// a verifier that narrows down the failing check leaks oracle information to
// a forger probing the system.
var ErrUnsatisfied = errors.New("execution trace does not satisfy the constraint system")

// PublicInputs are the values a signal exposes to the verifier
type PublicInputs struct {
	Root      []*core.FieldElement
	TopicHash []*core.FieldElement
	Nullifier []*core.FieldElement
}

// TransitionConstraint describes one transition-constraint slot: its
// aggregation index, a human-readable name, and the degree bound the backend
// needs to size the composition polynomial.
type TransitionConstraint struct {
	Index  int
	Name   string
	Degree int
}

// ValueAssertion pins one trace cell to a fixed or public value
type ValueAssertion struct {
	Index  int
	Name   string
	Row    int
	Column int
	Value  *core.FieldElement
}

// EqualityAssertion pins two trace cells of the same row to each other. It
// is the cross-lane binding primitive: the private key is one value shared
// by both lanes, not two separately claimed values.
type EqualityAssertion struct {
	Index   int
	Name    string
	Row     int
	ColumnA int
	ColumnB int
}

// Air is the constraint system for a Semaphore trace over a tree of the
// given depth.
type Air struct {
	params *core.RescueParams
	depth  int
	alloc  *Allocator

	transitions []TransitionConstraint
	// aggregation slots, grouped by role
	merkleRoundIdx    []int
	nullifierRoundIdx []int
	handOffIdx        []int
	bitBooleanIdx     int

	fixedAssertions []ValueAssertion
	equalities      []EqualityAssertion
	topicIdx        []int
	nullifierIdx    []int
	rootIdx         []int
}

// New creates the constraint system. The layout is fixed at 25 columns, so
// the permutation must have width 12 with capacity 4, and its round count
// must fill a cycle (one init row plus one row per round).
func New(params *core.RescueParams, depth int) (*Air, error) {
	if params.Width() != laneWidth || params.CapacityWidth() != 4 {
		return nil, fmt.Errorf("layout requires a 12-wide permutation with capacity 4, got %d/%d",
			params.Width(), params.CapacityWidth())
	}
	if params.Rounds() != CycleLength-1 {
		return nil, fmt.Errorf("layout requires %d rounds per cycle, got %d",
			CycleLength-1, params.Rounds())
	}
	if depth <= 0 {
		return nil, fmt.Errorf("tree depth must be positive, got %d", depth)
	}

	a := &Air{
		params: params,
		depth:  depth,
		alloc:  NewAllocator(),
	}
	a.registerTransitions()
	a.registerAssertions()
	return a, nil
}

// TraceLength returns the required number of trace rows: one cycle for the
// leaf derivation plus one per tree level.
func (a *Air) TraceLength() int {
	return CycleLength * (a.depth + 1)
}

// TraceWidth returns the required number of trace columns
func (a *Air) TraceWidth() int {
	return NumColumns
}

// Depth returns the access-set tree depth the system was built for
func (a *Air) Depth() int {
	return a.depth
}

// Params returns the permutation instantiation the constraints encode
func (a *Air) Params() *core.RescueParams {
	return a.params
}

// NumConstraints returns the total number of aggregation slots issued
func (a *Air) NumConstraints() int {
	return a.alloc.Issued()
}

// NumTransitionConstraints returns the number of transition slots
func (a *Air) NumTransitionConstraints() int {
	return len(a.transitions)
}

// Transitions returns the transition-constraint descriptors
func (a *Air) Transitions() []TransitionConstraint {
	result := make([]TransitionConstraint, len(a.transitions))
	copy(result, a.transitions)
	return result
}

// LeafHashCapacity is the capacity constant for the leaf-derivation cycle:
// the sponge absorbs the four private-key elements.
func (a *Air) LeafHashCapacity() []*core.FieldElement {
	return a.capacityConstant(a.params.DigestSize())
}

// MerkleMergeCapacity is the capacity constant for the digest-merge cycles:
// the sponge absorbs two four-element digests.
func (a *Air) MerkleMergeCapacity() []*core.FieldElement {
	return a.capacityConstant(2 * a.params.DigestSize())
}

// NullifierCapacity is the capacity constant for the nullifier cycle: the
// sponge absorbs the private key and the topic hash.
func (a *Air) NullifierCapacity() []*core.FieldElement {
	return a.capacityConstant(2 * a.params.DigestSize())
}

func (a *Air) capacityConstant(absorbed int) []*core.FieldElement {
	field := a.params.Field()
	c := make([]*core.FieldElement, a.params.CapacityWidth())
	c[0] = field.NewElementFromInt64(int64(absorbed))
	for i := 1; i < len(c); i++ {
		c[i] = field.Zero()
	}
	return c
}

func (a *Air) registerTransitions() {
	alpha := int(core.RescueAlpha)

	register := func(name string, degree int) int {
		index := a.alloc.Next(name)
		a.transitions = append(a.transitions, TransitionConstraint{
			Index:  index,
			Name:   name,
			Degree: degree,
		})
		return index
	}

	a.merkleRoundIdx = make([]int, laneWidth)
	for i := 0; i < laneWidth; i++ {
		a.merkleRoundIdx[i] = register(fmt.Sprintf("merkle-round-state-%d", i), alpha)
	}
	a.nullifierRoundIdx = make([]int, laneWidth)
	for i := 0; i < laneWidth; i++ {
		a.nullifierRoundIdx[i] = register(fmt.Sprintf("nullifier-round-state-%d", i), alpha)
	}
	a.handOffIdx = make([]int, a.params.DigestSize())
	for i := 0; i < a.params.DigestSize(); i++ {
		a.handOffIdx[i] = register(fmt.Sprintf("merkle-hand-off-%d", i), 2)
	}
	a.bitBooleanIdx = register("index-bit-boolean", 2)
}

func (a *Air) registerAssertions() {
	digestSize := a.params.DigestSize()
	field := a.params.Field()

	pin := func(name string, row, col int, value *core.FieldElement) {
		a.fixedAssertions = append(a.fixedAssertions, ValueAssertion{
			Index:  a.alloc.Next(name),
			Name:   name,
			Row:    row,
			Column: col,
			Value:  value,
		})
	}

	// Capacity pinning. Every cycle start of both lanes gets its domain
	// constant asserted; an unpinned capacity register lets a forger feed
	// the permutation an initial state of their choosing.
	leafCap := a.LeafHashCapacity()
	for i := 0; i < a.params.CapacityWidth(); i++ {
		pin(fmt.Sprintf("leaf-hash-capacity-%d", i), 0, MerkleCapCol+i, leafCap[i])
	}
	mergeCap := a.MerkleMergeCapacity()
	for cycle := 1; cycle <= a.depth; cycle++ {
		for i := 0; i < a.params.CapacityWidth(); i++ {
			pin(fmt.Sprintf("merkle-merge-capacity-c%d-%d", cycle, i),
				cycle*CycleLength, MerkleCapCol+i, mergeCap[i])
		}
	}
	nullifierCap := a.NullifierCapacity()
	for i := 0; i < a.params.CapacityWidth(); i++ {
		pin(fmt.Sprintf("nullifier-capacity-%d", i), 0, NullifierCapCol+i, nullifierCap[i])
	}

	// The leaf derivation absorbs exactly the private key; the upper rate
	// half must be zero padding.
	for i := 0; i < digestSize; i++ {
		pin(fmt.Sprintf("leaf-hash-padding-%d", i), 0, MerkleSiblingCol+i, field.Zero())
	}

	// Cross-lane binding: the nullifier lane's rate input is the same trace
	// value as the private key whose hash becomes the membership leaf. This
	// removes the forger's freedom to explain a chosen nullifier with an
	// unrelated permutation preimage.
	for i := 0; i < digestSize; i++ {
		name := fmt.Sprintf("private-key-binding-%d", i)
		a.equalities = append(a.equalities, EqualityAssertion{
			Index:   a.alloc.Next(name),
			Name:    name,
			Row:     0,
			ColumnA: NullifierRateCol + i,
			ColumnB: MerkleRateCol + i,
		})
	}

	// Public-input slots; values are filled in per signal.
	a.topicIdx = make([]int, digestSize)
	for i := 0; i < digestSize; i++ {
		a.topicIdx[i] = a.alloc.Next(fmt.Sprintf("topic-hash-%d", i))
	}
	a.nullifierIdx = make([]int, digestSize)
	for i := 0; i < digestSize; i++ {
		a.nullifierIdx[i] = a.alloc.Next(fmt.Sprintf("nullifier-output-%d", i))
	}
	a.rootIdx = make([]int, digestSize)
	for i := 0; i < digestSize; i++ {
		a.rootIdx[i] = a.alloc.Next(fmt.Sprintf("merkle-root-%d", i))
	}
}

// Assertions returns every boundary assertion for the given public inputs:
// the fixed capacity and padding pins, the cross-lane key binding, and the
// public-value pins for topic hash, nullifier and root.
func (a *Air) Assertions(pub *PublicInputs) ([]ValueAssertion, []EqualityAssertion, error) {
	digestSize := a.params.DigestSize()
	if pub == nil {
		return nil, nil, fmt.Errorf("public inputs are required")
	}
	if len(pub.Root) != digestSize || len(pub.TopicHash) != digestSize || len(pub.Nullifier) != digestSize {
		return nil, nil, fmt.Errorf("public input digests must have %d elements", digestSize)
	}

	values := make([]ValueAssertion, 0, len(a.fixedAssertions)+3*digestSize)
	values = append(values, a.fixedAssertions...)

	lastRow := a.TraceLength() - 1
	for i := 0; i < digestSize; i++ {
		values = append(values, ValueAssertion{
			Index:  a.topicIdx[i],
			Name:   fmt.Sprintf("topic-hash-%d", i),
			Row:    0,
			Column: TopicHashCol + i,
			Value:  pub.TopicHash[i],
		})
	}
	for i := 0; i < digestSize; i++ {
		values = append(values, ValueAssertion{
			Index:  a.nullifierIdx[i],
			Name:   fmt.Sprintf("nullifier-output-%d", i),
			Row:    CycleLength - 1,
			Column: NullifierRateCol + i,
			Value:  pub.Nullifier[i],
		})
	}
	for i := 0; i < digestSize; i++ {
		values = append(values, ValueAssertion{
			Index:  a.rootIdx[i],
			Name:   fmt.Sprintf("merkle-root-%d", i),
			Row:    lastRow,
			Column: MerkleRateCol + i,
			Value:  pub.Root[i],
		})
	}

	equalities := make([]EqualityAssertion, len(a.equalities))
	copy(equalities, a.equalities)
	return values, equalities, nil
}

// EvaluateTransition evaluates every transition constraint for the step from
// row `cur` to row `next`, writing one value per aggregation slot into out.
// All values must be zero for a valid trace.
//
// Activity per step within a cycle of length 8:
//
//	step mod 8 in [0,6]: Rescue round (step mod 8) on the Merkle lane; the
//	                     nullifier lane additionally runs during the first
//	                     cycle only (step < 7)
//	step mod 8 == 7:     cycle hand-off: the next row's bit-selected rate
//	                     half must carry the accumulated digest, and the
//	                     index bit must be boolean
func (a *Air) EvaluateTransition(step int, cur, next []*core.FieldElement, out []*core.FieldElement) error {
	if len(cur) != NumColumns || len(next) != NumColumns {
		return fmt.Errorf("row width mismatch: expected %d, got %d and %d",
			NumColumns, len(cur), len(next))
	}
	if len(out) != a.NumTransitionConstraints() {
		return fmt.Errorf("result width mismatch: expected %d, got %d",
			a.NumTransitionConstraints(), len(out))
	}
	if step < 0 || step >= a.TraceLength()-1 {
		return fmt.Errorf("step %d outside trace of length %d", step, a.TraceLength())
	}

	field := a.params.Field()
	zero := field.Zero()
	for i := range out {
		out[i] = zero
	}

	round := step % CycleLength
	if round < a.params.Rounds() {
		// Mid-cycle: both halves of the round must meet at the same
		// mid-round state. The forward half is computed from the current
		// row, the backward half from the next row; their difference
		// vanishes exactly when the next row is the honest round output.
		fwd := a.params.HalfRoundForward(cur[MerkleCapCol:MerkleCapCol+laneWidth], round)
		bwd := a.params.HalfRoundBackward(next[MerkleCapCol:MerkleCapCol+laneWidth], round)
		for i := 0; i < laneWidth; i++ {
			out[a.merkleRoundIdx[i]] = bwd[i].Sub(fwd[i])
		}

		if step < a.params.Rounds() {
			fwd = a.params.HalfRoundForward(cur[NullifierCapCol:NullifierCapCol+laneWidth], round)
			bwd = a.params.HalfRoundBackward(next[NullifierCapCol:NullifierCapCol+laneWidth], round)
			for i := 0; i < laneWidth; i++ {
				out[a.nullifierRoundIdx[i]] = bwd[i].Sub(fwd[i])
			}
		}
		return nil
	}

	// Cycle boundary. The accumulated digest of the finished cycle sits in
	// the current row's rate-low half; the next cycle's init row must carry
	// it in the half selected by the level's index bit (bit 0: rate-low,
	// i.e. left merge operand). The sibling half stays a free witness.
	bit := next[IndexBitCol]
	one := field.One()
	for i := 0; i < a.params.DigestSize(); i++ {
		digest := cur[MerkleRateCol+i]
		left := next[MerkleRateCol+i].Sub(digest)
		right := next[MerkleSiblingCol+i].Sub(digest)
		out[a.handOffIdx[i]] = one.Sub(bit).Mul(left).Add(bit.Mul(right))
	}
	out[a.bitBooleanIdx] = bit.Square().Sub(bit)
	return nil
}

// CheckTrace evaluates every transition and boundary constraint against the
// trace. It returns nil only when all of them hold; any violation yields
// ErrUnsatisfied with no indication of which constraint failed.
func (a *Air) CheckTrace(trace *TraceTable, pub *PublicInputs) error {
	if trace == nil {
		return fmt.Errorf("trace is required")
	}
	if trace.Width() != a.TraceWidth() || trace.Length() != a.TraceLength() {
		return fmt.Errorf("trace geometry mismatch: expected %dx%d, got %dx%d",
			a.TraceLength(), a.TraceWidth(), trace.Length(), trace.Width())
	}

	values, equalities, err := a.Assertions(pub)
	if err != nil {
		return err
	}

	out := make([]*core.FieldElement, a.NumTransitionConstraints())
	for step := 0; step < trace.Length()-1; step++ {
		if err := a.EvaluateTransition(step, trace.Row(step), trace.Row(step+1), out); err != nil {
			return err
		}
		for _, v := range out {
			if !v.IsZero() {
				return ErrUnsatisfied
			}
		}
	}

	for _, assertion := range values {
		if !trace.Get(assertion.Row, assertion.Column).Equal(assertion.Value) {
			return ErrUnsatisfied
		}
	}
	for _, eq := range equalities {
		if !trace.Get(eq.Row, eq.ColumnA).Equal(trace.Get(eq.Row, eq.ColumnB)) {
			return ErrUnsatisfied
		}
	}
	return nil
}
