package runtime

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/deniseboyle690969/darkfi/internal/blockchain"
	"github.com/deniseboyle690969/darkfi/internal/crypto"
	"github.com/deniseboyle690969/darkfi/internal/tx"
	"github.com/deniseboyle690969/darkfi/internal/zk"
)

// Validator owns the registered contracts and applies transactions and
// blocks against the canonical store.
type Validator struct {
	bc        *blockchain.Blockchain
	contracts map[crypto.ContractID]Contract
	logger    *zap.Logger
}

func NewValidator(bc *blockchain.Blockchain, logger *zap.Logger, contracts ...Contract) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := make(map[crypto.ContractID]Contract, len(contracts))
	for _, c := range contracts {
		m[c.ID()] = c
	}
	return &Validator{bc: bc, contracts: m, logger: logger}
}

// StateUpdate is one call's pending write set, tagged with the contract
// that must apply it.
type StateUpdate struct {
	Contract crypto.ContractID
	Data     []byte
}

// VerifyTransaction runs the read-only phases for every call, in call
// order, against the given snapshot. On success it returns the pending
// updates, one per call, in call order. Nothing is written.
func (v *Validator) VerifyTransaction(view blockchain.StateView, t *tx.Transaction) ([]StateUpdate, error) {
	if len(t.Calls) == 0 {
		return nil, ErrEmptyTransaction
	}
	if len(t.Proofs) != len(t.Calls) || len(t.Signatures) != len(t.Calls) {
		return nil, errors.Wrapf(ErrBundleMismatch, "%d calls, %d proof bundles, %d signature bundles",
			len(t.Calls), len(t.Proofs), len(t.Signatures))
	}

	txHash, err := t.Hash()
	if err != nil {
		return nil, errors.Wrap(err, "transaction hash")
	}

	metas := make([]*Metadata, len(t.Calls))
	for idx := range t.Calls {
		c, ok := v.contracts[t.Calls[idx].ContractID]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownContract, "call %d contract %s", idx, t.Calls[idx].ContractID)
		}
		md, err := c.Metadata(t.Calls, idx)
		if err != nil {
			return nil, errors.Wrapf(err, "metadata for call %d", idx)
		}
		metas[idx] = md
	}

	if err := v.verifyProofs(t, metas); err != nil {
		return nil, err
	}
	if err := verifySignatures(txHash, t, metas); err != nil {
		return nil, err
	}

	updates := make([]StateUpdate, len(t.Calls))
	for idx := range t.Calls {
		c := v.contracts[t.Calls[idx].ContractID]
		data, err := c.ProcessInstruction(view, t.Calls, idx)
		if err != nil {
			return nil, errors.Wrapf(err, "call %d", idx)
		}
		updates[idx] = StateUpdate{Contract: c.ID(), Data: data}
	}
	return updates, nil
}

// verifyProofs checks every proof in the transaction against its
// metadata. Calls are independent here, so the work fans out.
func (v *Validator) verifyProofs(t *tx.Transaction, metas []*Metadata) error {
	var wg sync.WaitGroup
	errs := make([]error, len(t.Calls))
	for idx := range t.Calls {
		md := metas[idx]
		if len(t.Proofs[idx]) != len(md.Proofs) {
			return errors.Wrapf(ErrProofCountMismatch, "call %d has %d proofs, metadata wants %d",
				idx, len(t.Proofs[idx]), len(md.Proofs))
		}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for i, req := range metas[idx].Proofs {
				if err := zk.Verify(req.Circuit, t.Proofs[idx][i], req.Public); err != nil {
					errs[idx] = errors.Wrapf(ErrProofVerifyFailed, "call %d proof %d (%s): %v",
						idx, i, req.Circuit, err)
					return
				}
			}
		}(idx)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func verifySignatures(txHash tx.TxHash, t *tx.Transaction, metas []*Metadata) error {
	for idx, md := range metas {
		if len(t.Signatures[idx]) != len(md.SignaturePublics) {
			return errors.Wrapf(ErrSigCountMismatch, "call %d has %d signatures, metadata wants %d",
				idx, len(t.Signatures[idx]), len(md.SignaturePublics))
		}
		for i, pub := range md.SignaturePublics {
			if err := crypto.VerifySignature(pub, txHash, t.Signatures[idx][i]); err != nil {
				return errors.Wrapf(ErrSignatureInvalid, "call %d signature %d: %v", idx, i, err)
			}
		}
	}
	return nil
}

// ApplyUpdates runs ProcessUpdate for each pending update, in order,
// against the given writer.
func (v *Validator) ApplyUpdates(w blockchain.StateWriter, updates []StateUpdate) error {
	for i, u := range updates {
		c, ok := v.contracts[u.Contract]
		if !ok {
			return errors.Wrapf(ErrUnknownContract, "update %d contract %s", i, u.Contract)
		}
		if err := c.ProcessUpdate(w, u.Data); err != nil {
			return errors.Wrapf(err, "applying update %d", i)
		}
	}
	return nil
}

// AddTransactions validates a batch against a fresh overlay and, when
// every transaction passes, commits the buffered writes atomically.
// Later transactions in the batch see the writes of earlier ones.
func (v *Validator) AddTransactions(txs []tx.Transaction) error {
	overlay := blockchain.NewOverlay(v.bc)
	for i := range txs {
		updates, err := v.VerifyTransaction(overlay, &txs[i])
		if err != nil {
			return errors.Wrapf(err, "transaction %d", i)
		}
		if err := v.ApplyUpdates(overlay, updates); err != nil {
			return errors.Wrapf(err, "transaction %d", i)
		}
	}
	return overlay.Commit(v.bc)
}

// AddBlock validates a block's transactions, persists the block itself
// and commits the resulting state writes. Blocks must arrive in slot
// order; a replay of the tip block is a no-op.
func (v *Validator) AddBlock(info *blockchain.BlockInfo) error {
	if lastSlot, _, err := v.bc.Last(); err == nil {
		if info.Header.Slot <= lastSlot {
			if has, herr := v.bc.HasBlock(info); herr == nil && has {
				v.logger.Debug("skipping known block", zap.Uint64("slot", info.Header.Slot))
				return nil
			}
			return errors.Wrapf(ErrBlockOutOfOrder, "slot %d, tip %d", info.Header.Slot, lastSlot)
		}
	} else if !errors.Is(err, blockchain.ErrEmptyChain) {
		return err
	}

	overlay := blockchain.NewOverlay(v.bc)
	for i := range info.Txs {
		updates, err := v.VerifyTransaction(overlay, &info.Txs[i])
		if err != nil {
			return errors.Wrapf(err, "block %d tx %d", info.Header.Slot, i)
		}
		if err := v.ApplyUpdates(overlay, updates); err != nil {
			return errors.Wrapf(err, "block %d tx %d", info.Header.Slot, i)
		}
	}

	if _, err := v.bc.AddBlocks([]*blockchain.BlockInfo{info}); err != nil {
		return err
	}
	if err := overlay.Commit(v.bc); err != nil {
		return err
	}
	v.logger.Info("applied block",
		zap.Uint64("slot", info.Header.Slot),
		zap.Int("txs", len(info.Txs)))
	return nil
}
