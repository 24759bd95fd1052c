package blockchain

import (
	"encoding/binary"

	"github.com/cockroachdb/pebble"
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/deniseboyle690969/darkfi/internal/tx"
)

// Blockchain is the durable ledger store: headers, block bodies, the
// slot-ordering index, transactions and the namespaced per-contract
// state tables, all inside one pebble instance.
type Blockchain struct {
	db     *pebble.DB
	logger *zap.Logger
}

// Open opens (or creates) the store at the given path.
func Open(path string, logger *zap.Logger) (*Blockchain, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "open blockchain db")
	}
	return &Blockchain{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (bc *Blockchain) Close() error {
	return errors.Wrap(bc.db.Close(), "close blockchain db")
}

// AddBlocks inserts blocks and returns their header hashes. Each block's
// header, body, order entry and transactions are committed as one atomic
// batch: partial insertion is never observable. Re-inserting an
// already-known block is a no-op success.
func (bc *Blockchain) AddBlocks(blocks []*BlockInfo) ([]BlockHash, error) {
	hashes := make([]BlockHash, 0, len(blocks))

	for _, info := range blocks {
		hash, err := info.Header.Hash()
		if err != nil {
			return nil, err
		}

		known, err := bc.HasBlock(info)
		if err != nil {
			return nil, err
		}
		if known {
			bc.logger.Debug("skipping known block",
				zap.Uint64("slot", info.Header.Slot))
			hashes = append(hashes, hash)
			continue
		}

		batch := bc.db.NewIndexedBatch()
		if err := bc.stageBlock(batch, info, hash); err != nil {
			_ = batch.Close()
			return nil, err
		}
		if err := batch.Commit(pebble.Sync); err != nil {
			return nil, errors.Wrap(err, "commit block batch")
		}
		bc.logger.Info("appended block",
			zap.Uint64("slot", info.Header.Slot),
			zap.Int("txs", len(info.Txs)))
		hashes = append(hashes, hash)
	}

	return hashes, nil
}

// stageBlock writes one block's sub-table entries into a batch.
func (bc *Blockchain) stageBlock(batch *pebble.Batch, info *BlockInfo, hash BlockHash) error {
	headerData, err := cbor.Marshal(&info.Header)
	if err != nil {
		return errors.Wrap(err, "encode header")
	}
	if err := batch.Set(headerKey(hash), headerData, nil); err != nil {
		return errors.Wrap(err, "stage header")
	}

	txHashes := make([]tx.TxHash, 0, len(info.Txs))
	for i := range info.Txs {
		txHash, err := info.Txs[i].Hash()
		if err != nil {
			return err
		}
		txData, err := info.Txs[i].Encode()
		if err != nil {
			return err
		}
		if err := batch.Set(txKey(txHash), txData, nil); err != nil {
			return errors.Wrap(err, "stage transaction")
		}
		txHashes = append(txHashes, txHash)
	}

	body := Block{Header: hash, Txs: txHashes}
	bodyData, err := cbor.Marshal(&body)
	if err != nil {
		return errors.Wrap(err, "encode block body")
	}
	if err := batch.Set(blockKey(hash), bodyData, nil); err != nil {
		return errors.Wrap(err, "stage block body")
	}

	if err := batch.Set(orderKey(info.Header.Slot), hash[:], nil); err != nil {
		return errors.Wrap(err, "stage order entry")
	}
	return nil
}

// HasBlock reports whether the block is already fully stored at its slot.
func (bc *Blockchain) HasBlock(info *BlockInfo) (bool, error) {
	stored, err := get(bc.db, orderKey(info.Header.Slot))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	hash, err := info.Header.Hash()
	if err != nil {
		return false, err
	}
	var storedHash BlockHash
	copy(storedHash[:], stored)
	return storedHash == hash, nil
}

// GetBlocksByHash resolves full blocks. Fails if any of them is missing.
func (bc *Blockchain) GetBlocksByHash(hashes []BlockHash) ([]*BlockInfo, error) {
	out := make([]*BlockInfo, 0, len(hashes))
	for _, hash := range hashes {
		headerData, err := get(bc.db, headerKey(hash))
		if err != nil {
			if errors.Is(err, ErrKeyNotFound) {
				return nil, ErrBlockNotFound
			}
			return nil, err
		}
		var header Header
		if err := cbor.Unmarshal(headerData, &header); err != nil {
			return nil, errors.Wrap(err, "decode header")
		}

		bodyData, err := get(bc.db, blockKey(hash))
		if err != nil {
			if errors.Is(err, ErrKeyNotFound) {
				return nil, ErrBlockNotFound
			}
			return nil, err
		}
		var body Block
		if err := cbor.Unmarshal(bodyData, &body); err != nil {
			return nil, errors.Wrap(err, "decode block body")
		}

		info := &BlockInfo{Header: header, Txs: make([]tx.Transaction, 0, len(body.Txs))}
		for _, txHash := range body.Txs {
			txData, err := get(bc.db, txKey(txHash))
			if err != nil {
				return nil, err
			}
			t, err := tx.Decode(txData)
			if err != nil {
				return nil, err
			}
			info.Txs = append(info.Txs, *t)
		}
		out = append(out, info)
	}
	return out, nil
}

// GetBlocksBySlot resolves blocks by slot, skipping empty slots.
func (bc *Blockchain) GetBlocksBySlot(slots []uint64) ([]*BlockInfo, error) {
	hashes := make([]BlockHash, 0, len(slots))
	for _, slot := range slots {
		stored, err := get(bc.db, orderKey(slot))
		if err != nil {
			if errors.Is(err, ErrKeyNotFound) {
				continue
			}
			return nil, err
		}
		var hash BlockHash
		copy(hash[:], stored)
		hashes = append(hashes, hash)
	}
	return bc.GetBlocksByHash(hashes)
}

// GetBlocksAfter returns up to n blocks with slots strictly greater than
// the given slot, in slot order.
func (bc *Blockchain) GetBlocksAfter(slot uint64, n uint64) ([]*BlockInfo, error) {
	iter, err := bc.db.NewIter(&pebble.IterOptions{
		LowerBound: orderKey(slot + 1),
		UpperBound: append(append([]byte{}, prefixOrder...), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff),
	})
	if err != nil {
		return nil, errors.Wrap(err, "order iterator")
	}
	defer iter.Close()

	var hashes []BlockHash
	for ok := iter.First(); ok && uint64(len(hashes)) < n; ok = iter.Next() {
		var hash BlockHash
		copy(hash[:], iter.Value())
		hashes = append(hashes, hash)
	}
	return bc.GetBlocksByHash(hashes)
}

// Last returns the highest stored slot and its block hash.
func (bc *Blockchain) Last() (uint64, BlockHash, error) {
	iter, err := bc.db.NewIter(&pebble.IterOptions{
		LowerBound: orderKey(0),
		UpperBound: append(append([]byte{}, prefixOrder...), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff),
	})
	if err != nil {
		return 0, BlockHash{}, errors.Wrap(err, "order iterator")
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, BlockHash{}, ErrEmptyChain
	}
	key := iter.Key()
	slot := binary.BigEndian.Uint64(key[len(prefixOrder):])
	var hash BlockHash
	copy(hash[:], iter.Value())
	return slot, hash, nil
}
