package money

import (
	fr "github.com/consensys/gnark-crypto/ecc/bw6-761/fr"
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/deniseboyle690969/darkfi/internal/blockchain"
	"github.com/deniseboyle690969/darkfi/internal/crypto"
	"github.com/deniseboyle690969/darkfi/internal/runtime"
	"github.com/deniseboyle690969/darkfi/internal/tx"
	"github.com/deniseboyle690969/darkfi/internal/zk"
)

type Contract struct{}

func New() *Contract { return &Contract{} }

func (c *Contract) ID() crypto.ContractID { return crypto.MoneyContractID }

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
	case FuncTransfer, FuncOtcSwap:
		var p TransferParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return nil, errors.Wrap(err, "decode transfer params")
		}
		return transferMetadata(&p)

	case FuncMint:
		var p MintParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return nil, errors.Wrap(err, "decode mint params")
		}
		auth, err := crypto.PointFromCoords(p.AuthorityX, p.AuthorityY)
		if err != nil {
			return nil, err
		}
		mintReq, err := MintRequest(&p.Output)
		if err != nil {
			return nil, err
		}
		return &runtime.Metadata{
			Proofs: []zk.ProofRequest{
				{
					Circuit: zk.TokenMintCircuit,
					Public:  []fr.Element{p.AuthorityX.Element(), p.AuthorityY.Element(), crypto.TokenDigest(&auth)},
				},
				mintReq,
			},
			SignaturePublics: [][]byte{p.SignaturePublic},
		}, nil

	case FuncFreeze:
		var p FreezeParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return nil, errors.Wrap(err, "decode freeze params")
		}
		auth, err := crypto.PointFromCoords(p.AuthorityX, p.AuthorityY)
		if err != nil {
			return nil, err
		}
		return &runtime.Metadata{
			Proofs: []zk.ProofRequest{{
				Circuit: zk.TokenFreezeCircuit,
				Public:  []fr.Element{p.AuthorityX.Element(), p.AuthorityY.Element(), crypto.TokenDigest(&auth)},
			}},
			SignaturePublics: [][]byte{p.SignaturePublic},
		}, nil

	case FuncStake:
		var p StakeParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return nil, errors.Wrap(err, "decode stake params")
		}
		req, err := BurnRequest(&p.Input)
		if err != nil {
			return nil, err
		}
		return &runtime.Metadata{
			Proofs:           []zk.ProofRequest{req},
			SignaturePublics: [][]byte{p.Input.SignaturePublic},
		}, nil

	case FuncUnstake:
		var p UnstakeParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return nil, errors.Wrap(err, "decode unstake params")
		}
		burnReq, err := BurnRequest(&p.Input)
		if err != nil {
			return nil, err
		}
		mintReq, err := MintRequest(&p.Output)
		if err != nil {
			return nil, err
		}
		return &runtime.Metadata{
			Proofs:           []zk.ProofRequest{burnReq, mintReq},
			SignaturePublics: [][]byte{p.Input.SignaturePublic},
		}, nil
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
	case FuncTransfer:
		var p TransferParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return nil, errors.Wrap(err, "decode transfer params")
		}
		return transferInstruction(view, &p, calls, callIdx, false)
	case FuncOtcSwap:
		var p TransferParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return nil, errors.Wrap(err, "decode swap params")
		}
		return transferInstruction(view, &p, calls, callIdx, true)
	case FuncMint:
		var p MintParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return nil, errors.Wrap(err, "decode mint params")
		}
		return mintInstruction(view, &p)
	case FuncFreeze:
		var p FreezeParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return nil, errors.Wrap(err, "decode freeze params")
		}
		return freezeInstruction(view, &p)
	case FuncStake:
		var p StakeParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return nil, errors.Wrap(err, "decode stake params")
		}
		return stakeInstruction(view, &p, calls, callIdx)
	case FuncUnstake:
		var p UnstakeParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return nil, errors.Wrap(err, "decode unstake params")
		}
		return unstakeInstruction(view, &p, calls, callIdx)
	}
	return nil, errors.Wrapf(ErrInvalidFunction, "0x%02x", fn)
}

func (c *Contract) ProcessUpdate(w blockchain.StateWriter, update []byte) error {
	if len(update) == 0 {
		return errors.New("empty update")
	}
	fn, raw := update[0], update[1:]
	switch fn {
	case FuncTransfer, FuncOtcSwap:
		var u TransferUpdate
		if err := cbor.Unmarshal(raw, &u); err != nil {
			return errors.Wrap(err, "decode transfer update")
		}
		return applyTransfer(w, &u)
	case FuncMint:
		var u MintUpdate
		if err := cbor.Unmarshal(raw, &u); err != nil {
			return errors.Wrap(err, "decode mint update")
		}
		return applyMint(w, &u)
	case FuncFreeze:
		var u FreezeUpdate
		if err := cbor.Unmarshal(raw, &u); err != nil {
			return errors.Wrap(err, "decode freeze update")
		}
		return applyFreeze(w, &u)
	case FuncStake:
		var u StakeUpdate
		if err := cbor.Unmarshal(raw, &u); err != nil {
			return errors.Wrap(err, "decode stake update")
		}
		return applyStake(w, &u)
	case FuncUnstake:
		var u UnstakeUpdate
		if err := cbor.Unmarshal(raw, &u); err != nil {
			return errors.Wrap(err, "decode unstake update")
		}
		return applyUnstake(w, &u)
	}
	return errors.Wrapf(ErrInvalidFunction, "update 0x%02x", fn)
}

// encodeUpdate prefixes the payload with the function byte so
// ProcessUpdate can dispatch without re-reading the call.
func encodeUpdate(fn byte, u interface{}) ([]byte, error) {
	enc, err := cbor.Marshal(u)
	if err != nil {
		return nil, errors.Wrap(err, "encode update")
	}
	return append([]byte{fn}, enc...), nil
}

// BurnRequest builds the proof obligation for an anonymous input.
func BurnRequest(in *Input) (zk.ProofRequest, error) {
	vc, err := commitPoint(in.ValueCommit)
	if err != nil {
		return zk.ProofRequest{}, err
	}
	tc, err := commitPoint(in.TokenCommit)
	if err != nil {
		return zk.ProofRequest{}, err
	}
	vx, vy := crypto.PointCoords(&vc)
	tcx, tcy := crypto.PointCoords(&tc)
	return zk.ProofRequest{
		Circuit: zk.BurnCircuit,
		Public: []fr.Element{
			in.Nullifier.Element(), in.MerkleRoot.Element(),
			vx, vy, tcx, tcy,
			in.SpendHook.Element(), in.UserDataEnc.Element(),
		},
	}, nil
}

// MintRequest builds the proof obligation for a fresh output.
func MintRequest(out *Output) (zk.ProofRequest, error) {
	vc, err := commitPoint(out.ValueCommit)
	if err != nil {
		return zk.ProofRequest{}, err
	}
	tc, err := commitPoint(out.TokenCommit)
	if err != nil {
		return zk.ProofRequest{}, err
	}
	vx, vy := crypto.PointCoords(&vc)
	tcx, tcy := crypto.PointCoords(&tc)
	return zk.ProofRequest{
		Circuit: zk.MintCircuit,
		Public:  []fr.Element{out.Coin.Element(), vx, vy, tcx, tcy},
	}, nil
}

func transferMetadata(p *TransferParams) (*runtime.Metadata, error) {
	md := &runtime.Metadata{}
	for i := range p.ClearInputs {
		md.SignaturePublics = append(md.SignaturePublics, p.ClearInputs[i].SignaturePublic)
	}
	for i := range p.Inputs {
		req, err := BurnRequest(&p.Inputs[i])
		if err != nil {
			return nil, err
		}
		md.Proofs = append(md.Proofs, req)
		md.SignaturePublics = append(md.SignaturePublics, p.Inputs[i].SignaturePublic)
	}
	for i := range p.Outputs {
		req, err := MintRequest(&p.Outputs[i])
		if err != nil {
			return nil, err
		}
		md.Proofs = append(md.Proofs, req)
	}
	return md, nil
}
