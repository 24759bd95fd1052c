package crypto

import (
	fr "github.com/consensys/gnark-crypto/ecc/bw6-761/fr"
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// MerkleDepth is the fixed depth of every coin tree. Inclusion paths are
// positional: the circuit consumes exactly this many siblings.
const MerkleDepth = 16

// MerkleTree is an incremental append-only MiMC tree. Leaf positions are
// assigned at append time and never change; roots are recomputed over the
// stable leaf set.
type MerkleTree struct {
	leaves []fr.Element
	empty  [MerkleDepth + 1]fr.Element
}

// NewMerkleTree creates an empty tree.
func NewMerkleTree() *MerkleTree {
	t := &MerkleTree{}
	for i := 0; i < MerkleDepth; i++ {
		t.empty[i+1] = HashElements(t.empty[i], t.empty[i])
	}
	return t
}

// Size returns the number of appended leaves.
func (t *MerkleTree) Size() int { return len(t.leaves) }

// Append inserts leaves and returns their positions.
func (t *MerkleTree) Append(leaves ...MerkleNode) ([]uint64, error) {
	if len(t.leaves)+len(leaves) > 1<<MerkleDepth {
		return nil, errors.New("merkle tree is full")
	}
	positions := make([]uint64, len(leaves))
	for i, leaf := range leaves {
		positions[i] = uint64(len(t.leaves))
		t.leaves = append(t.leaves, leaf.Element())
	}
	return positions, nil
}

// level computes one tree level from the one below it.
func (t *MerkleTree) level(below []fr.Element, depth int) []fr.Element {
	n := (len(below) + 1) / 2
	out := make([]fr.Element, n)
	for i := 0; i < n; i++ {
		left := below[2*i]
		right := t.empty[depth]
		if 2*i+1 < len(below) {
			right = below[2*i+1]
		}
		out[i] = HashElements(left, right)
	}
	return out
}

// Root returns the current frontier root.
func (t *MerkleTree) Root() MerkleRoot {
	cur := append([]fr.Element(nil), t.leaves...)
	for d := 0; d < MerkleDepth; d++ {
		if len(cur) == 0 {
			cur = []fr.Element{t.empty[d]}
		}
		cur = t.level(cur, d)
	}
	return MerkleRoot(BaseFromElement(cur[0]))
}

// AuthPath returns the sibling path for a leaf position. The i-th bit of
// the returned position word says whether the ascending node is a right
// child at level i.
func (t *MerkleTree) AuthPath(pos uint64) ([]MerkleNode, error) {
	if pos >= uint64(len(t.leaves)) {
		return nil, errors.Errorf("merkle position %d out of range", pos)
	}
	path := make([]MerkleNode, MerkleDepth)
	cur := append([]fr.Element(nil), t.leaves...)
	idx := pos
	for d := 0; d < MerkleDepth; d++ {
		sibling := t.empty[d]
		if idx%2 == 0 {
			if int(idx+1) < len(cur) {
				sibling = cur[idx+1]
			}
		} else {
			sibling = cur[idx-1]
		}
		path[d] = MerkleNode(BaseFromElement(sibling))
		cur = t.level(cur, d)
		idx /= 2
	}
	return path, nil
}

type merkleTreeWire struct {
	Leaves []Base `cbor:"1,keyasint"`
}

// MarshalBinary serializes the tree for storage.
func (t *MerkleTree) MarshalBinary() ([]byte, error) {
	w := merkleTreeWire{Leaves: make([]Base, len(t.leaves))}
	for i := range t.leaves {
		w.Leaves[i] = BaseFromElement(t.leaves[i])
	}
	return cbor.Marshal(w)
}

// UnmarshalBinary restores a tree serialized with MarshalBinary.
func (t *MerkleTree) UnmarshalBinary(data []byte) error {
	var w merkleTreeWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return errors.Wrap(err, "decode merkle tree")
	}
	*t = *NewMerkleTree()
	t.leaves = make([]fr.Element, len(w.Leaves))
	for i := range w.Leaves {
		t.leaves[i] = w.Leaves[i].Element()
	}
	return nil
}
