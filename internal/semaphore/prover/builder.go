// Package prover assembles Semaphore execution traces from private
// witnesses and turns them into proofs via a pluggable backend.
package prover

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sabrinahirani/semaphore-stark/internal/semaphore/air"
	"github.com/sabrinahirani/semaphore-stark/internal/semaphore/core"
)

var (
	// ErrWitnessLengthMismatch reports a Merkle path whose shape does not
	// match the tree depth the prover was built for.
	ErrWitnessLengthMismatch = errors.New("merkle path does not match tree depth")

	// ErrIndexOutOfRange reports a leaf index outside the tree
	ErrIndexOutOfRange = errors.New("leaf index out of range")

	// ErrConstraintViolation reports that a freshly built trace failed its
	// own constraint system. For a valid witness this cannot happen; when it
	// does it indicates a bug in the trace builder or the constraint
	// definitions, and proof generation must abort rather than hand an
	// unsound trace to the backend.
	ErrConstraintViolation = errors.New("generated trace violates the constraint system")
)

// SemaphoreProver builds execution traces for membership signals. It is
// pure: the same witness always produces the same trace, and no state is
// shared between signaling instances.
type SemaphoreProver struct {
	params *core.RescueParams
	system *air.Air
	log    zerolog.Logger
}

// NewSemaphoreProver creates a prover for an access-set tree of the given depth
func NewSemaphoreProver(params *core.RescueParams, depth int) (*SemaphoreProver, error) {
	system, err := air.New(params, depth)
	if err != nil {
		return nil, fmt.Errorf("failed to build constraint system: %w", err)
	}
	return &SemaphoreProver{
		params: params,
		system: system,
		log:    zerolog.Nop(),
	}, nil
}

// WithLogger returns a copy of the prover that logs build timings
func (p *SemaphoreProver) WithLogger(log zerolog.Logger) *SemaphoreProver {
	clone := *p
	clone.log = log
	return &clone
}

// Air returns the constraint system the prover builds traces for
func (p *SemaphoreProver) Air() *air.Air {
	return p.system
}

// ComputeNullifier derives the nullifier for a private key and topic hash:
// the rate output of one permutation over (key, topic hash) with the
// nullifier capacity constant. Deterministic in its inputs.
func (p *SemaphoreProver) ComputeNullifier(privKey, topicHash []*core.FieldElement) ([]*core.FieldElement, error) {
	inputs := make([]*core.FieldElement, 0, 2*p.params.DigestSize())
	inputs = append(inputs, privKey...)
	inputs = append(inputs, topicHash...)
	return p.params.HashElements(inputs)
}

// BuildTrace lays out the full execution trace for one signal:
//
//   - cycle 0 of the Merkle lane hashes the private key into the membership
//     leaf while the nullifier lane hashes (private key, topic hash) into
//     the nullifier;
//   - each following cycle merges the accumulated digest with one path
//     sibling, ordered by the level's index bit.
//
// The witness is validated before any row is written, and the finished
// trace is checked against the constraint system before it is returned.
func (p *SemaphoreProver) BuildTrace(
	privKey []*core.FieldElement,
	path *core.MerklePath,
	topicHash []*core.FieldElement,
) (*air.TraceTable, *air.PublicInputs, error) {
	start := time.Now()
	digestSize := p.params.DigestSize()
	depth := p.system.Depth()

	if len(privKey) != digestSize {
		return nil, nil, fmt.Errorf("%w: private key has %d elements, expected %d",
			ErrWitnessLengthMismatch, len(privKey), digestSize)
	}
	if len(topicHash) != digestSize {
		return nil, nil, fmt.Errorf("%w: topic hash has %d elements, expected %d",
			ErrWitnessLengthMismatch, len(topicHash), digestSize)
	}
	if path == nil || len(path.Siblings) != depth {
		return nil, nil, fmt.Errorf("%w: expected %d siblings", ErrWitnessLengthMismatch, depth)
	}
	for level, sibling := range path.Siblings {
		if len(sibling) != digestSize {
			return nil, nil, fmt.Errorf("%w: sibling %d has %d elements, expected %d",
				ErrWitnessLengthMismatch, level, len(sibling), digestSize)
		}
	}
	if path.Index < 0 || path.Index >= 1<<depth {
		return nil, nil, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, path.Index, 1<<depth)
	}

	field := p.params.Field()
	trace, err := air.NewTraceTable(field, p.system.TraceWidth(), p.system.TraceLength())
	if err != nil {
		return nil, nil, err
	}

	// Cycle 0: leaf derivation and nullifier, side by side.
	merkleState := p.assembleState(p.system.LeafHashCapacity(), privKey, zeroElements(field, digestSize))
	nullifierState := p.assembleState(p.system.NullifierCapacity(), privKey, topicHash)
	trace.SetRange(0, air.MerkleCapCol, merkleState)
	trace.SetRange(0, air.NullifierCapCol, nullifierState)
	for round := 0; round < p.params.Rounds(); round++ {
		merkleState = p.params.ApplyRound(merkleState, round)
		nullifierState = p.params.ApplyRound(nullifierState, round)
		trace.SetRange(round+1, air.MerkleCapCol, merkleState)
		trace.SetRange(round+1, air.NullifierCapCol, nullifierState)
	}

	capWidth := p.params.CapacityWidth()
	nullifier := core.CloneElements(nullifierState[capWidth : capWidth+digestSize])
	digest := core.CloneElements(merkleState[capWidth : capWidth+digestSize])

	// Merge cycles: one per tree level, nullifier lane left at zero.
	mergeCap := p.system.MerkleMergeCapacity()
	for level := 0; level < depth; level++ {
		bit := (path.Index >> level) & 1
		bitElement := field.NewElementFromInt64(int64(bit))
		sibling := path.Siblings[level]

		if bit == 0 {
			merkleState = p.assembleState(mergeCap, digest, sibling)
		} else {
			merkleState = p.assembleState(mergeCap, sibling, digest)
		}

		baseRow := (level + 1) * air.CycleLength
		trace.SetRange(baseRow, air.MerkleCapCol, merkleState)
		trace.Set(baseRow, air.IndexBitCol, bitElement)
		for round := 0; round < p.params.Rounds(); round++ {
			merkleState = p.params.ApplyRound(merkleState, round)
			trace.SetRange(baseRow+round+1, air.MerkleCapCol, merkleState)
			trace.Set(baseRow+round+1, air.IndexBitCol, bitElement)
		}
		digest = core.CloneElements(merkleState[capWidth : capWidth+digestSize])
	}

	pub := &air.PublicInputs{
		Root:      digest,
		TopicHash: core.CloneElements(topicHash),
		Nullifier: nullifier,
	}

	// A valid witness always yields a satisfying trace; a violation here is
	// an AIR bug and the proof attempt must abort.
	if err := p.system.CheckTrace(trace, pub); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	}

	p.log.Debug().
		Int("rows", trace.Length()).
		Int("columns", trace.Width()).
		Dur("elapsed", time.Since(start)).
		Msg("execution trace built")

	return trace, pub, nil
}

func (p *SemaphoreProver) assembleState(capacity, rateLow, rateHigh []*core.FieldElement) []*core.FieldElement {
	state := make([]*core.FieldElement, 0, p.params.Width())
	state = append(state, capacity...)
	state = append(state, rateLow...)
	state = append(state, rateHigh...)
	return state
}

func zeroElements(field *core.Field, n int) []*core.FieldElement {
	result := make([]*core.FieldElement, n)
	for i := range result {
		result[i] = field.Zero()
	}
	return result
}
