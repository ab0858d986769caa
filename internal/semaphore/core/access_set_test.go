package core

import (
	"errors"
	"testing"
)

func testKeys(t *testing.T, params *RescueParams, n int) [][]*FieldElement {
	t.Helper()
	field := params.Field()
	keys := make([][]*FieldElement, n)
	for i := range keys {
		priv := make([]*FieldElement, params.DigestSize())
		for j := range priv {
			priv[j] = field.NewElementFromUint64(uint64(i*100 + j + 1))
		}
		key, err := params.HashElements(priv)
		if err != nil {
			t.Fatalf("failed to hash key %d: %v", i, err)
		}
		keys[i] = key
	}
	return keys
}

func TestNewAccessSet(t *testing.T) {
	params := defaultParams(t)
	keys := testKeys(t, params, 4)

	tests := []struct {
		name      string
		keys      [][]*FieldElement
		depth     int
		expectErr bool
	}{
		{name: "full tree", keys: keys, depth: 2, expectErr: false},
		{name: "partial tree", keys: keys[:3], depth: 3, expectErr: false},
		{name: "single member", keys: keys[:1], depth: 3, expectErr: false},
		{name: "no members", keys: nil, depth: 3, expectErr: true},
		{name: "zero depth", keys: keys, depth: 0, expectErr: true},
		{name: "over capacity", keys: keys, depth: 1, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAccessSet(params, tt.keys, tt.depth)
			if tt.expectErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}

	t.Run("undersized key", func(t *testing.T) {
		bad := [][]*FieldElement{keys[0][:2]}
		if _, err := NewAccessSet(params, bad, 3); err == nil {
			t.Error("expected error for undersized key")
		}
	})
}

func TestAccessSetRoot(t *testing.T) {
	params := defaultParams(t)
	keys := testKeys(t, params, 4)

	a, err := NewAccessSet(params, keys, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := NewAccessSet(params, keys, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ElementsEqual(a.Root(), b.Root()) {
		t.Error("the same member list should commit to the same root")
	}

	reordered := [][]*FieldElement{keys[1], keys[0], keys[2], keys[3]}
	c, err := NewAccessSet(params, reordered, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ElementsEqual(a.Root(), c.Root()) {
		t.Error("reordering members should change the root")
	}
}

func TestAccessSetAccessors(t *testing.T) {
	params := defaultParams(t)
	keys := testKeys(t, params, 3)

	set, err := NewAccessSet(params, keys, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if set.Depth() != 3 {
		t.Errorf("expected depth 3, got %d", set.Depth())
	}
	if set.Size() != 3 {
		t.Errorf("expected 3 members, got %d", set.Size())
	}

	leaf, err := set.Leaf(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ElementsEqual(leaf, keys[1]) {
		t.Error("leaf should match the registered key")
	}

	if _, err := set.Leaf(3); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("expected ErrInvalidIndex for a padding leaf, got %v", err)
	}
	if _, err := set.Leaf(-1); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("expected ErrInvalidIndex for a negative index, got %v", err)
	}
}

func TestPathForAndVerify(t *testing.T) {
	params := defaultParams(t)
	keys := testKeys(t, params, 5)

	set, err := NewAccessSet(params, keys, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range keys {
		path, err := set.PathFor(i)
		if err != nil {
			t.Fatalf("failed to build path for member %d: %v", i, err)
		}
		if len(path.Siblings) != set.Depth() {
			t.Fatalf("member %d: expected %d siblings, got %d", i, set.Depth(), len(path.Siblings))
		}
		if path.Index != i {
			t.Errorf("member %d: path carries index %d", i, path.Index)
		}
		if !set.VerifyPath(keys[i], path) {
			t.Errorf("member %d: honest path should verify", i)
		}
	}

	if _, err := set.PathFor(5); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("expected ErrInvalidIndex, got %v", err)
	}
}

func TestVerifyPathRejections(t *testing.T) {
	params := defaultParams(t)
	field := params.Field()
	keys := testKeys(t, params, 4)

	set, err := NewAccessSet(params, keys, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	path, err := set.PathFor(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("TamperedSibling", func(t *testing.T) {
		tampered := &MerklePath{Siblings: make([][]*FieldElement, len(path.Siblings)), Index: path.Index}
		for i, s := range path.Siblings {
			tampered.Siblings[i] = CloneElements(s)
		}
		tampered.Siblings[1][0] = tampered.Siblings[1][0].Add(field.One())
		if set.VerifyPath(keys[2], tampered) {
			t.Error("a tampered sibling should not verify")
		}
	})

	t.Run("WrongLeaf", func(t *testing.T) {
		if set.VerifyPath(keys[0], path) {
			t.Error("another member's leaf should not verify against this path")
		}
	})

	t.Run("WrongIndex", func(t *testing.T) {
		wrong := &MerklePath{Siblings: path.Siblings, Index: 3}
		if set.VerifyPath(keys[2], wrong) {
			t.Error("a wrong index should not verify")
		}
	})

	t.Run("NilPath", func(t *testing.T) {
		if set.VerifyPath(keys[2], nil) {
			t.Error("a nil path should not verify")
		}
	})

	t.Run("ShortPath", func(t *testing.T) {
		short := &MerklePath{Siblings: path.Siblings[:2], Index: path.Index}
		if set.VerifyPath(keys[2], short) {
			t.Error("a truncated path should not verify")
		}
	})
}
