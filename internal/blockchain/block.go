// Package blockchain implements the durable, namespaced, append-only
// ledger state shared by all contracts, backed by pebble.
package blockchain

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"github.com/zeebo/blake3"

	"github.com/deniseboyle690969/darkfi/internal/tx"
)

// BlockHash identifies a block by its header digest.
type BlockHash [32]byte

// Header carries the consensus-facing metadata of a block.
type Header struct {
	Version   uint8     `cbor:"1,keyasint"`
	Previous  BlockHash `cbor:"2,keyasint"`
	Slot      uint64    `cbor:"3,keyasint"`
	Timestamp int64     `cbor:"4,keyasint"`
	TxRoot    [32]byte  `cbor:"5,keyasint"`
}

// Hash computes the header digest.
func (h *Header) Hash() (BlockHash, error) {
	data, err := cbor.Marshal(h)
	if err != nil {
		return BlockHash{}, errors.Wrap(err, "encode header")
	}
	return blake3.Sum256(data), nil
}

// Block is the stored body: the header hash plus the ordered transaction
// hashes. Full transactions live in their own table.
type Block struct {
	Header BlockHash   `cbor:"1,keyasint"`
	Txs    []tx.TxHash `cbor:"2,keyasint"`
}

// BlockInfo is a fully resolved block as it travels between peers: the
// header together with the complete transactions.
type BlockInfo struct {
	Header Header           `cbor:"1,keyasint"`
	Txs    []tx.Transaction `cbor:"2,keyasint"`
}

// Genesis builds the slot-zero block: no previous hash, the given
// timestamp, and whatever bootstrap transactions the deployment ships.
func Genesis(timestamp int64, txs []tx.Transaction) (*BlockInfo, error) {
	hashes := make([]tx.TxHash, len(txs))
	for i := range txs {
		h, err := txs[i].Hash()
		if err != nil {
			return nil, errors.Wrapf(err, "hash transaction %d", i)
		}
		hashes[i] = h
	}
	return &BlockInfo{
		Header: Header{
			Version:   1,
			Slot:      0,
			Timestamp: timestamp,
			TxRoot:    TxRoot(hashes),
		},
		Txs: txs,
	}, nil
}

// TxRoot hashes the ordered transaction hashes into the header's
// transaction root.
func TxRoot(hashes []tx.TxHash) [32]byte {
	h := blake3.New()
	for i := range hashes {
		_, _ = h.Write(hashes[i][:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
