package tx

import (
	"github.com/pkg/errors"

	"github.com/deniseboyle690969/darkfi/internal/crypto"
)

// PartialCall is one call's worth of builder output: the encoded call,
// its proof bundle, and the keys that must sign the final transaction.
type PartialCall struct {
	Call   ContractCall
	Proofs [][]byte
	Keys   []*crypto.SigningKey
}

// Assemble combines partial calls into a signed transaction. Call order
// is preserved; cross-call checks are index-relative, so the caller
// lays out companions adjacently before assembling.
func Assemble(parts ...PartialCall) (*Transaction, error) {
	if len(parts) == 0 {
		return nil, errors.New("no calls to assemble")
	}
	t := &Transaction{}
	for i := range parts {
		t.Calls = append(t.Calls, parts[i].Call)
		t.Proofs = append(t.Proofs, parts[i].Proofs)
	}
	for i := range parts {
		if err := t.SignCall(i, parts[i].Keys); err != nil {
			return nil, errors.Wrapf(err, "sign call %d", i)
		}
	}
	return t, nil
}
