package runtime

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/deniseboyle690969/darkfi/internal/blockchain"
	"github.com/deniseboyle690969/darkfi/internal/crypto"
	"github.com/deniseboyle690969/darkfi/internal/tx"
)

// recordingContract accepts every call and records what was applied.
type recordingContract struct {
	id      crypto.ContractID
	applied [][]byte
}

func (c *recordingContract) ID() crypto.ContractID { return c.id }

func (c *recordingContract) Metadata(calls []tx.ContractCall, callIdx int) (*Metadata, error) {
	return &Metadata{}, nil
}

func (c *recordingContract) ProcessInstruction(view blockchain.StateView, calls []tx.ContractCall, callIdx int) ([]byte, error) {
	return calls[callIdx].Data, nil
}

func (c *recordingContract) ProcessUpdate(w blockchain.StateWriter, update []byte) error {
	c.applied = append(c.applied, update)
	return nil
}

func testValidator(t *testing.T) (*Validator, *recordingContract, *blockchain.Blockchain) {
	t.Helper()
	bc, err := blockchain.Open(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = bc.Close() })
	c := &recordingContract{id: crypto.MoneyContractID}
	return NewValidator(bc, zap.NewNop(), c), c, bc
}

func simpleTx(cid crypto.ContractID) tx.Transaction {
	return tx.Transaction{
		Calls:      []tx.ContractCall{{ContractID: cid, Data: []byte{0x00}}},
		Proofs:     [][][]byte{nil},
		Signatures: [][][]byte{nil},
	}
}

func TestVerifyTransactionShape(t *testing.T) {
	v, _, bc := testValidator(t)

	empty := tx.Transaction{}
	if _, err := v.VerifyTransaction(bc, &empty); !errors.Is(err, ErrEmptyTransaction) {
		t.Errorf("empty tx = %v, want ErrEmptyTransaction", err)
	}

	lopsided := simpleTx(crypto.MoneyContractID)
	lopsided.Proofs = nil
	if _, err := v.VerifyTransaction(bc, &lopsided); !errors.Is(err, ErrBundleMismatch) {
		t.Errorf("missing proof bundles = %v, want ErrBundleMismatch", err)
	}

	unknown := simpleTx(crypto.DAOContractID)
	if _, err := v.VerifyTransaction(bc, &unknown); !errors.Is(err, ErrUnknownContract) {
		t.Errorf("unknown contract = %v, want ErrUnknownContract", err)
	}
}

func TestVerifyThenApply(t *testing.T) {
	v, c, bc := testValidator(t)

	txn := simpleTx(crypto.MoneyContractID)
	updates, err := v.VerifyTransaction(bc, &txn)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(updates) != 1 || updates[0].Contract != crypto.MoneyContractID {
		t.Fatalf("updates = %+v, want one money update", updates)
	}
	// Verification is read-only.
	if len(c.applied) != 0 {
		t.Fatal("verification applied an update")
	}

	overlay := blockchain.NewOverlay(bc)
	if err := v.ApplyUpdates(overlay, updates); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(c.applied) != 1 {
		t.Fatalf("applied %d updates, want 1", len(c.applied))
	}
}

func TestAddBlockOrdering(t *testing.T) {
	v, _, _ := testValidator(t)

	base := time.Now().Unix()
	block := func(slot uint64) *blockchain.BlockInfo {
		return &blockchain.BlockInfo{
			Header: blockchain.Header{
				Version:   1,
				Slot:      slot,
				Timestamp: base,
			},
		}
	}

	if err := v.AddBlock(block(0)); err != nil {
		t.Fatalf("genesis block: %v", err)
	}
	if err := v.AddBlock(block(1)); err != nil {
		t.Fatalf("next block: %v", err)
	}

	// Replaying the tip is a no-op.
	if err := v.AddBlock(block(1)); err != nil {
		t.Errorf("tip replay = %v, want nil", err)
	}

	// A different block at an old slot is rejected.
	old := block(0)
	old.Header.Timestamp++
	if err := v.AddBlock(old); !errors.Is(err, ErrBlockOutOfOrder) {
		t.Errorf("stale block = %v, want ErrBlockOutOfOrder", err)
	}

	// Skipping ahead is allowed; only regression is an error.
	if err := v.AddBlock(block(5)); err != nil {
		t.Errorf("future slot = %v, want nil", err)
	}
}
