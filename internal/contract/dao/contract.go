package dao

import (
	fr "github.com/consensys/gnark-crypto/ecc/bw6-761/fr"
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/deniseboyle690969/darkfi/internal/blockchain"
	"github.com/deniseboyle690969/darkfi/internal/contract/money"
	"github.com/deniseboyle690969/darkfi/internal/crypto"
	"github.com/deniseboyle690969/darkfi/internal/runtime"
	"github.com/deniseboyle690969/darkfi/internal/tx"
	"github.com/deniseboyle690969/darkfi/internal/zk"
)

type Contract struct{}

func New() *Contract { return &Contract{} }

func (c *Contract) ID() crypto.ContractID { return crypto.DAOContractID }

func (c *Contract) Metadata(calls []tx.ContractCall, callIdx int) (*runtime.Metadata, error) {
	call, err := runtime.CallAt(calls, callIdx)
	if err != nil {
		return nil, err
	}
	fn, err := call.Function()
	if err != nil {
		return nil, err
	}
	raw, err := call.Params()
	if err != nil {
		return nil, err
	}

	switch fn {
	case FuncMint:
		var p MintParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return nil, errors.Wrap(err, "decode dao mint params")
		}
		return &runtime.Metadata{
			Proofs: []zk.ProofRequest{{
				Circuit: zk.DaoMintCircuit,
				Public:  []fr.Element{p.Bulla.Element()},
			}},
			SignaturePublics: [][]byte{p.SignaturePublic},
		}, nil

	case FuncPropose:
		var p ProposeParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return nil, errors.Wrap(err, "decode propose params")
		}
		tc, err := crypto.PointFromBytes(p.TokenCommit)
		if err != nil {
			return nil, err
		}
		tcx, tcy := crypto.PointCoords(&tc)
		return &runtime.Metadata{
			Proofs: []zk.ProofRequest{{
				Circuit: zk.DaoProposeCircuit,
				Public:  []fr.Element{p.ProposalBulla.Element(), p.DaoRoot.Element(), tcx, tcy},
			}},
		}, nil

	case FuncVote:
		var p VoteParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return nil, errors.Wrap(err, "decode vote params")
		}
		md := &runtime.Metadata{}
		for i := range p.Inputs {
			req, err := money.BurnRequest(&p.Inputs[i])
			if err != nil {
				return nil, err
			}
			md.Proofs = append(md.Proofs, req)
			md.SignaturePublics = append(md.SignaturePublics, p.Inputs[i].SignaturePublic)
		}
		yes, err := crypto.PointFromBytes(p.YesCommit)
		if err != nil {
			return nil, err
		}
		all, err := crypto.PointFromBytes(p.AllCommit)
		if err != nil {
			return nil, err
		}
		tc, err := crypto.PointFromBytes(p.TokenCommit)
		if err != nil {
			return nil, err
		}
		yx, yy := crypto.PointCoords(&yes)
		ax, ay := crypto.PointCoords(&all)
		tcx, tcy := crypto.PointCoords(&tc)
		md.Proofs = append(md.Proofs, zk.ProofRequest{
			Circuit: zk.DaoVoteCircuit,
			Public:  []fr.Element{p.ProposalBulla.Element(), yx, yy, ax, ay, tcx, tcy},
		})
		return md, nil

	case FuncExec:
		// Execution is checked natively against the revealed totals;
		// there is no exec circuit.
		var p ExecParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return nil, errors.Wrap(err, "decode exec params")
		}
		return &runtime.Metadata{}, nil
	}
	return nil, errors.Wrapf(ErrInvalidFunction, "0x%02x", fn)
}

func (c *Contract) ProcessInstruction(view blockchain.StateView, calls []tx.ContractCall, callIdx int) ([]byte, error) {
	call, err := runtime.CallAt(calls, callIdx)
	if err != nil {
		return nil, err
	}
	fn, err := call.Function()
	if err != nil {
		return nil, err
	}
	raw, err := call.Params()
	if err != nil {
		return nil, err
	}

	switch fn {
	case FuncMint:
		var p MintParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return nil, errors.Wrap(err, "decode dao mint params")
		}
		return mintInstruction(&p)
	case FuncPropose:
		var p ProposeParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return nil, errors.Wrap(err, "decode propose params")
		}
		return proposeInstruction(view, &p)
	case FuncVote:
		var p VoteParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return nil, errors.Wrap(err, "decode vote params")
		}
		return voteInstruction(view, &p)
	case FuncExec:
		var p ExecParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return nil, errors.Wrap(err, "decode exec params")
		}
		return execInstruction(view, &p, calls, callIdx)
	}
	return nil, errors.Wrapf(ErrInvalidFunction, "0x%02x", fn)
}

func (c *Contract) ProcessUpdate(w blockchain.StateWriter, update []byte) error {
	if len(update) == 0 {
		return errors.New("empty update")
	}
	fn, raw := update[0], update[1:]
	switch fn {
	case FuncMint:
		var u MintUpdate
		if err := cbor.Unmarshal(raw, &u); err != nil {
			return errors.Wrap(err, "decode dao mint update")
		}
		return applyMint(w, &u)
	case FuncPropose:
		var u ProposeUpdate
		if err := cbor.Unmarshal(raw, &u); err != nil {
			return errors.Wrap(err, "decode propose update")
		}
		return applyPropose(w, &u)
	case FuncVote:
		var u VoteUpdate
		if err := cbor.Unmarshal(raw, &u); err != nil {
			return errors.Wrap(err, "decode vote update")
		}
		return applyVote(w, &u)
	case FuncExec:
		var u ExecUpdate
		if err := cbor.Unmarshal(raw, &u); err != nil {
			return errors.Wrap(err, "decode exec update")
		}
		return applyExec(w, &u)
	}
	return errors.Wrapf(ErrInvalidFunction, "update 0x%02x", fn)
}

func encodeUpdate(fn byte, u interface{}) ([]byte, error) {
	enc, err := cbor.Marshal(u)
	if err != nil {
		return nil, errors.Wrap(err, "encode update")
	}
	return append([]byte{fn}, enc...), nil
}
