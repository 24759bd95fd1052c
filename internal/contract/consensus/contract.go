package consensus

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

func (c *Contract) ID() crypto.ContractID { return crypto.ConsensusContractID }

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
	case FuncStake:
		var p StakeParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return nil, errors.Wrap(err, "decode stake params")
		}
		mintReq, err := money.MintRequest(&p.Output)
		if err != nil {
			return nil, err
		}
		return &runtime.Metadata{
			Proofs:           []zk.ProofRequest{mintReq},
			SignaturePublics: [][]byte{p.Input.SignaturePublic},
		}, nil

	case FuncUnstake:
		var p UnstakeParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return nil, errors.Wrap(err, "decode unstake params")
		}
		burnReq, err := money.BurnRequest(&p.Input)
		if err != nil {
			return nil, err
		}
		return &runtime.Metadata{
			Proofs:           []zk.ProofRequest{burnReq},
			SignaturePublics: [][]byte{p.Input.SignaturePublic},
		}, nil

	case FuncReward:
		var p RewardParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return nil, errors.Wrap(err, "decode reward params")
		}
		burnReq, err := money.BurnRequest(&p.Input)
		if err != nil {
			return nil, err
		}
		mintReq, err := money.MintRequest(&p.Output)
		if err != nil {
			return nil, err
		}
		rewardReq, err := rewardRequest(&p)
		if err != nil {
			return nil, err
		}
		return &runtime.Metadata{
			Proofs:           []zk.ProofRequest{burnReq, rewardReq, mintReq},
			SignaturePublics: [][]byte{p.Input.SignaturePublic},
		}, nil
	}
	return nil, errors.Wrapf(ErrInvalidFunction, "0x%02x", fn)
}

// rewardRequest binds the old and new value commitments to the fixed
// reward relation.
func rewardRequest(p *RewardParams) (zk.ProofRequest, error) {
	vc, err := crypto.PointFromBytes(p.Input.ValueCommit)
	if err != nil {
		return zk.ProofRequest{}, err
	}
	nvc, err := crypto.PointFromBytes(p.Output.ValueCommit)
	if err != nil {
		return zk.ProofRequest{}, err
	}
	vcx, vcy := crypto.PointCoords(&vc)
	nvcx, nvcy := crypto.PointCoords(&nvc)
	return zk.ProofRequest{
		Circuit: zk.RewardCircuit,
		Public:  []fr.Element{vcx, vcy, nvcx, nvcy},
	}, nil
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
	case FuncReward:
		var p RewardParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return nil, errors.Wrap(err, "decode reward params")
		}
		return rewardInstruction(view, &p)
	}
	return nil, errors.Wrapf(ErrInvalidFunction, "0x%02x", fn)
}

func (c *Contract) ProcessUpdate(w blockchain.StateWriter, update []byte) error {
	if len(update) == 0 {
		return errors.New("empty update")
	}
	fn, raw := update[0], update[1:]
	switch fn {
	case FuncStake:
		var u StakeUpdate
		if err := cbor.Unmarshal(raw, &u); err != nil {
			return errors.Wrap(err, "decode stake update")
		}
		return insertConsensusCoin(w, u.Coin)
	case FuncUnstake:
		var u UnstakeUpdate
		if err := cbor.Unmarshal(raw, &u); err != nil {
			return errors.Wrap(err, "decode unstake update")
		}
		return insertConsensusNullifier(w, u.Nullifier)
	case FuncReward:
		var u RewardUpdate
		if err := cbor.Unmarshal(raw, &u); err != nil {
			return errors.Wrap(err, "decode reward update")
		}
		if err := insertConsensusNullifier(w, u.Nullifier); err != nil {
			return err
		}
		return insertConsensusCoin(w, u.Coin)
	}
	return errors.Wrapf(ErrInvalidFunction, "update 0x%02x", fn)
}

func insertConsensusCoin(w blockchain.StateWriter, coin crypto.Coin) error {
	cid := crypto.ConsensusContractID
	if err := w.InsertUnique(cid, money.ConsensusTableCoins, coin[:], []byte{}); err != nil {
		if errors.Is(err, blockchain.ErrKeyExists) {
			return errors.Wrapf(ErrDuplicateCoin, "%s", coin)
		}
		return err
	}
	return blockchain.MerkleAppend(w, cid, money.ConsensusTableInfo, money.KeyConsensusCoinTree,
		money.ConsensusTableCoinRoots, []crypto.MerkleNode{crypto.MerkleNode(coin)})
}

func insertConsensusNullifier(w blockchain.StateWriter, n crypto.Nullifier) error {
	cid := crypto.ConsensusContractID
	if err := w.InsertUnique(cid, money.ConsensusTableNullifiers, n[:], []byte{}); err != nil {
		if errors.Is(err, blockchain.ErrKeyExists) {
			return errors.Wrapf(ErrDuplicateNullifier, "%s", n)
		}
		return err
	}
	return nil
}

func encodeUpdate(fn byte, u interface{}) ([]byte, error) {
	enc, err := cbor.Marshal(u)
	if err != nil {
		return nil, errors.Wrap(err, "encode update")
	}
	return append([]byte{fn}, enc...), nil
}
