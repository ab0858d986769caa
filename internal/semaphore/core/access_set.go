package core

import (
	"errors"
	"fmt"
)

// ErrInvalidIndex is returned when a path is requested for an index outside
// the member list.
var ErrInvalidIndex = errors.New("member index out of range")

// AccessSet commits to a group of public keys as a Merkle tree of fixed
// depth. Every internal node is the Rescue merge of its two children, so the
// same permutation that proves membership inside the trace also builds the
// tree. The set is immutable once built; membership changes rebuild it.
type AccessSet struct {
	params *RescueParams
	depth  int
	count  int
	// levels[0] holds the padded leaves, levels[depth] the root
	levels [][][]*FieldElement
}

// MerklePath is the authentication path for one leaf: one sibling digest per
// level, ordered leaf to root, plus the leaf index whose bits select the
// operand order at each level (bit = 0 places the accumulated digest on the
// left).
type MerklePath struct {
	Siblings [][]*FieldElement
	Index    int
}

// NewAccessSet builds the Merkle tree over the given public keys. Keys are
// used as leaf digests directly (a public key is already a Rescue digest of
// the private key). The leaf layer is padded to 2^depth with zero digests.
func NewAccessSet(params *RescueParams, keys [][]*FieldElement, depth int) (*AccessSet, error) {
	if depth <= 0 {
		return nil, fmt.Errorf("tree depth must be positive, got %d", depth)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("cannot build an access set with no members")
	}
	capacity := 1 << depth
	if len(keys) > capacity {
		return nil, fmt.Errorf("too many members: %d exceeds tree capacity %d", len(keys), capacity)
	}

	leaves := make([][]*FieldElement, capacity)
	for i, key := range keys {
		if len(key) != params.DigestSize() {
			return nil, fmt.Errorf("public key %d has %d elements, expected %d",
				i, len(key), params.DigestSize())
		}
		leaves[i] = CloneElements(key)
	}
	dummy := zeroDigest(params)
	for i := len(keys); i < capacity; i++ {
		leaves[i] = dummy
	}

	levels := make([][][]*FieldElement, depth+1)
	levels[0] = leaves
	for level := 0; level < depth; level++ {
		below := levels[level]
		above := make([][]*FieldElement, len(below)/2)
		for i := range above {
			node, err := params.MergeDigests(below[2*i], below[2*i+1])
			if err != nil {
				return nil, fmt.Errorf("failed to hash level %d node %d: %w", level, i, err)
			}
			above[i] = node
		}
		levels[level+1] = above
	}

	return &AccessSet{
		params: params,
		depth:  depth,
		count:  len(keys),
		levels: levels,
	}, nil
}

// Root returns the Merkle root committing to the member set
func (s *AccessSet) Root() []*FieldElement {
	return CloneElements(s.levels[s.depth][0])
}

// Depth returns the tree depth
func (s *AccessSet) Depth() int {
	return s.depth
}

// Size returns the number of registered members (excluding padding)
func (s *AccessSet) Size() int {
	return s.count
}

// Leaf returns the leaf digest at the given index
func (s *AccessSet) Leaf(index int) ([]*FieldElement, error) {
	if index < 0 || index >= s.count {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidIndex, index, s.count)
	}
	return CloneElements(s.levels[0][index]), nil
}

// PathFor returns the authentication path for the member at the given index
func (s *AccessSet) PathFor(index int) (*MerklePath, error) {
	if index < 0 || index >= s.count {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidIndex, index, s.count)
	}

	siblings := make([][]*FieldElement, s.depth)
	pos := index
	for level := 0; level < s.depth; level++ {
		siblings[level] = CloneElements(s.levels[level][pos^1])
		pos >>= 1
	}

	return &MerklePath{Siblings: siblings, Index: index}, nil
}

// VerifyPath recomputes the root from a leaf and its path and compares it to
// the committed root. The bit convention must match the trace builder's:
// bit ℓ of the index is 0 when the accumulated digest is the left operand at
// level ℓ.
func (s *AccessSet) VerifyPath(leaf []*FieldElement, path *MerklePath) bool {
	if path == nil || len(path.Siblings) != s.depth {
		return false
	}
	if path.Index < 0 || path.Index >= 1<<s.depth {
		return false
	}

	current := leaf
	for level, sibling := range path.Siblings {
		var (
			node []*FieldElement
			err  error
		)
		if (path.Index>>level)&1 == 0 {
			node, err = s.params.MergeDigests(current, sibling)
		} else {
			node, err = s.params.MergeDigests(sibling, current)
		}
		if err != nil {
			return false
		}
		current = node
	}
	return ElementsEqual(current, s.levels[s.depth][0])
}

func zeroDigest(params *RescueParams) []*FieldElement {
	digest := make([]*FieldElement, params.DigestSize())
	for i := range digest {
		digest[i] = params.Field().Zero()
	}
	return digest
}
