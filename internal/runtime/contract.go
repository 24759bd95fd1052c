// Package runtime drives the per-call validation/state-transition
// pipeline: metadata extraction, instruction validation against a store
// snapshot, and atomic update application.
package runtime

import (
	"github.com/pkg/errors"

	"github.com/deniseboyle690969/darkfi/internal/blockchain"
	"github.com/deniseboyle690969/darkfi/internal/crypto"
	"github.com/deniseboyle690969/darkfi/internal/tx"
	"github.com/deniseboyle690969/darkfi/internal/zk"
)

// Metadata is what proof and signature verification need for one call.
// It is derived from call data alone, never from ledger state.
type Metadata struct {
	// Proofs lists, in proof-bundle order, the circuit each proof must
	// satisfy and its public inputs.
	Proofs []zk.ProofRequest
	// SignaturePublics lists, in signature-bundle order, the public keys
	// the call's signatures must verify under.
	SignaturePublics [][]byte
}

// Contract is one deployed contract's three-phase entrypoint set.
//
// Metadata and ProcessInstruction must not mutate anything;
// ProcessUpdate must not validate anything. The pipeline always runs the
// phases in this order and never skips one.
type Contract interface {
	ID() crypto.ContractID
	Metadata(calls []tx.ContractCall, callIdx int) (*Metadata, error)
	ProcessInstruction(view blockchain.StateView, calls []tx.ContractCall, callIdx int) ([]byte, error)
	ProcessUpdate(w blockchain.StateWriter, update []byte) error
}

// CallAt is the bounds-checked accessor for cross-call references
// (spend hooks, previous/next call lookups).
func CallAt(calls []tx.ContractCall, idx int) (*tx.ContractCall, error) {
	if idx < 0 || idx >= len(calls) {
		return nil, errors.Wrapf(ErrCallIndexOutOfBounds, "call index %d of %d", idx, len(calls))
	}
	return &calls[idx], nil
}
