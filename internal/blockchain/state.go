package blockchain

import (
	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"

	"github.com/deniseboyle690969/darkfi/internal/crypto"
)

// StateView is the read-only surface instruction checks run against.
type StateView interface {
	ContainsKey(cid crypto.ContractID, table string, key []byte) (bool, error)
	Get(cid crypto.ContractID, table string, key []byte) ([]byte, error)
}

// StateWriter is the mutation surface update application runs against.
// InsertUnique enforces the table's uniqueness constraint: a duplicate
// key is ErrKeyExists.
type StateWriter interface {
	StateView
	Set(cid crypto.ContractID, table string, key, value []byte) error
	InsertUnique(cid crypto.ContractID, table string, key, value []byte) error
}

// ContainsKey reports whether a per-contract table holds a key.
func (bc *Blockchain) ContainsKey(cid crypto.ContractID, table string, key []byte) (bool, error) {
	_, err := bc.Get(cid, table, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Get reads a per-contract table entry.
func (bc *Blockchain) Get(cid crypto.ContractID, table string, key []byte) ([]byte, error) {
	return get(bc.db, stateKey(cid, table, key))
}

// Overlay buffers state writes on top of a base view. Instruction checks
// for later transactions in a block read through the overlay, so earlier
// transactions' coin and nullifier insertions are already visible. The
// buffered writes commit as one atomic pebble batch.
type Overlay struct {
	base    StateView
	entries map[string][]byte
	order   []string
}

// NewOverlay creates an empty overlay over a base view.
func NewOverlay(base StateView) *Overlay {
	return &Overlay{base: base, entries: make(map[string][]byte)}
}

func overlayKey(cid crypto.ContractID, table string, key []byte) string {
	return string(stateKey(cid, table, key))
}

// ContainsKey checks buffered writes first, then the base view.
func (o *Overlay) ContainsKey(cid crypto.ContractID, table string, key []byte) (bool, error) {
	if _, ok := o.entries[overlayKey(cid, table, key)]; ok {
		return true, nil
	}
	return o.base.ContainsKey(cid, table, key)
}

// Get reads through buffered writes into the base view.
func (o *Overlay) Get(cid crypto.ContractID, table string, key []byte) ([]byte, error) {
	if v, ok := o.entries[overlayKey(cid, table, key)]; ok {
		return append([]byte{}, v...), nil
	}
	return o.base.Get(cid, table, key)
}

// Set buffers a write.
func (o *Overlay) Set(cid crypto.ContractID, table string, key, value []byte) error {
	k := overlayKey(cid, table, key)
	if _, ok := o.entries[k]; !ok {
		o.order = append(o.order, k)
	}
	o.entries[k] = append([]byte{}, value...)
	return nil
}

// InsertUnique buffers a write that must not already exist.
func (o *Overlay) InsertUnique(cid crypto.ContractID, table string, key, value []byte) error {
	exists, err := o.ContainsKey(cid, table, key)
	if err != nil {
		return err
	}
	if exists {
		return ErrKeyExists
	}
	return o.Set(cid, table, key, value)
}

// Commit flushes the buffered writes into the store as one batch.
func (o *Overlay) Commit(bc *Blockchain) error {
	batch := bc.db.NewBatch()
	for _, k := range o.order {
		if err := batch.Set([]byte(k), o.entries[k], nil); err != nil {
			_ = batch.Close()
			return errors.Wrap(err, "stage state write")
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return errors.Wrap(err, "commit state batch")
	}
	return nil
}

var _ StateWriter = (*Overlay)(nil)

// MerkleAppend appends leaves to a named contract tree and records every
// intermediate frontier root in the contract's root-history table.
func MerkleAppend(w StateWriter, cid crypto.ContractID, infoTable, treeName, rootsTable string, leaves []crypto.MerkleNode) error {
	tree := crypto.NewMerkleTree()
	raw, err := w.Get(cid, infoTable, []byte(treeName))
	if err != nil && !errors.Is(err, ErrKeyNotFound) {
		return err
	}
	if err == nil {
		if err := tree.UnmarshalBinary(raw); err != nil {
			return err
		}
	}

	for _, leaf := range leaves {
		if _, err := tree.Append(leaf); err != nil {
			return err
		}
		root := tree.Root()
		if err := w.Set(cid, rootsTable, root[:], []byte{}); err != nil {
			return err
		}
	}

	data, err := tree.MarshalBinary()
	if err != nil {
		return err
	}
	return w.Set(cid, infoTable, []byte(treeName), data)
}
