package crypto

import (
	"testing"

	fr "github.com/consensys/gnark-crypto/ecc/bw6-761/fr"
)

func randomLeaf(t *testing.T) MerkleNode {
	t.Helper()
	e, err := RandomBase()
	if err != nil {
		t.Fatalf("random leaf: %v", err)
	}
	return MerkleNode(BaseFromElement(e))
}

func TestMerkleAppendPositions(t *testing.T) {
	tree := NewMerkleTree()
	a, b, c := randomLeaf(t), randomLeaf(t), randomLeaf(t)

	pos, err := tree.Append(a, b)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if pos[0] != 0 || pos[1] != 1 {
		t.Errorf("positions = %v, want [0 1]", pos)
	}

	pos, err = tree.Append(c)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if pos[0] != 2 {
		t.Errorf("position = %d, want 2", pos[0])
	}
	if tree.Size() != 3 {
		t.Errorf("size = %d, want 3", tree.Size())
	}
}

func TestMerkleRootChangesOnAppend(t *testing.T) {
	tree := NewMerkleTree()
	empty := tree.Root()

	if _, err := tree.Append(randomLeaf(t)); err != nil {
		t.Fatalf("append: %v", err)
	}
	one := tree.Root()
	if one == empty {
		t.Error("root unchanged after append")
	}

	if _, err := tree.Append(randomLeaf(t)); err != nil {
		t.Fatalf("append: %v", err)
	}
	two := tree.Root()
	if two == one {
		t.Error("root unchanged after second append")
	}
}

// verifyPath folds a leaf up the tree along its auth path. Bit i of the
// position says whether the ascending node is a right child at level i.
func verifyPath(leaf MerkleNode, pos uint64, path []MerkleNode) fr.Element {
	cur := leaf.Element()
	for i := range path {
		sib := path[i].Element()
		if (pos>>uint(i))&1 == 1 {
			cur = HashElements(sib, cur)
		} else {
			cur = HashElements(cur, sib)
		}
	}
	return cur
}

func TestMerkleAuthPath(t *testing.T) {
	tree := NewMerkleTree()
	leaves := make([]MerkleNode, 5)
	for i := range leaves {
		leaves[i] = randomLeaf(t)
	}
	if _, err := tree.Append(leaves...); err != nil {
		t.Fatalf("append: %v", err)
	}

	root := tree.Root().Element()
	for i := range leaves {
		path, err := tree.AuthPath(uint64(i))
		if err != nil {
			t.Fatalf("auth path %d: %v", i, err)
		}
		if len(path) != MerkleDepth {
			t.Fatalf("path length = %d, want %d", len(path), MerkleDepth)
		}
		got := verifyPath(leaves[i], uint64(i), path)
		if !got.Equal(&root) {
			t.Errorf("leaf %d path does not reach the root", i)
		}
	}

	if _, err := tree.AuthPath(uint64(len(leaves))); err == nil {
		t.Error("auth path for a missing leaf succeeded")
	}
}

func TestMerklePathStableUnderAppend(t *testing.T) {
	tree := NewMerkleTree()
	leaf := randomLeaf(t)
	if _, err := tree.Append(leaf); err != nil {
		t.Fatalf("append: %v", err)
	}
	oldRoot := tree.Root().Element()
	oldPath, err := tree.AuthPath(0)
	if err != nil {
		t.Fatalf("auth path: %v", err)
	}

	// New appends move the frontier but not the old leaf. The old path
	// still verifies against the old root, which stays in the root
	// history on-chain.
	if _, err := tree.Append(randomLeaf(t), randomLeaf(t)); err != nil {
		t.Fatalf("append: %v", err)
	}
	got := verifyPath(leaf, 0, oldPath)
	if !got.Equal(&oldRoot) {
		t.Error("old path no longer verifies against the old root")
	}

	// And a fresh path verifies against the new root.
	newRoot := tree.Root().Element()
	newPath, err := tree.AuthPath(0)
	if err != nil {
		t.Fatalf("auth path: %v", err)
	}
	got = verifyPath(leaf, 0, newPath)
	if !got.Equal(&newRoot) {
		t.Error("fresh path does not verify against the new root")
	}
}

func TestMerkleSerialization(t *testing.T) {
	tree := NewMerkleTree()
	if _, err := tree.Append(randomLeaf(t), randomLeaf(t), randomLeaf(t)); err != nil {
		t.Fatalf("append: %v", err)
	}

	data, err := tree.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	restored := NewMerkleTree()
	if err := restored.UnmarshalBinary(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if restored.Size() != tree.Size() {
		t.Errorf("restored size = %d, want %d", restored.Size(), tree.Size())
	}
	if restored.Root() != tree.Root() {
		t.Error("restored root differs")
	}
}
