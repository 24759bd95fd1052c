package dao

import (
	"math/bits"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	blsfr "github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/deniseboyle690969/darkfi/internal/blockchain"
	"github.com/deniseboyle690969/darkfi/internal/contract/money"
	"github.com/deniseboyle690969/darkfi/internal/crypto"
	"github.com/deniseboyle690969/darkfi/internal/tx"
)

// mintInstruction has no state preconditions. Bulla uniqueness is
// probabilistic through the blind; a collision surfaces as a
// duplicate-key error at update time.
func mintInstruction(p *MintParams) ([]byte, error) {
	return encodeUpdate(FuncMint, &MintUpdate{Bulla: p.Bulla})
}

func applyMint(w blockchain.StateWriter, u *MintUpdate) error {
	cid := crypto.DAOContractID
	if err := w.InsertUnique(cid, TableBullas, u.Bulla[:], []byte{}); err != nil {
		return err
	}
	return blockchain.MerkleAppend(w, cid, TableInfo, KeyDaoTree, TableRoots,
		[]crypto.MerkleNode{crypto.MerkleNode(u.Bulla)})
}

func proposeInstruction(view blockchain.StateView, p *ProposeParams) ([]byte, error) {
	cid := crypto.DAOContractID

	ok, err := view.ContainsKey(cid, TableRoots, p.DaoRoot[:])
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(ErrDaoRootNotFound, "root %s", p.DaoRoot)
	}

	exists, err := view.ContainsKey(cid, TableProposals, p.ProposalBulla[:])
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.Wrapf(ErrProposalExists, "bulla %s", p.ProposalBulla)
	}

	return encodeUpdate(FuncPropose, &ProposeUpdate{ProposalBulla: p.ProposalBulla})
}

func applyPropose(w blockchain.StateWriter, u *ProposeUpdate) error {
	cid := crypto.DAOContractID
	state := ProposalState{YesCommit: identityCommit(), AllCommit: identityCommit()}
	enc, err := cbor.Marshal(&state)
	if err != nil {
		return errors.Wrap(err, "encode proposal state")
	}
	if err := w.InsertUnique(cid, TableProposals, u.ProposalBulla[:], enc); err != nil {
		if errors.Is(err, blockchain.ErrKeyExists) {
			return errors.Wrapf(ErrProposalExists, "bulla %s", u.ProposalBulla)
		}
		return err
	}
	return nil
}

// voteInstruction checks the ballot against the snapshot: the proposal
// is open, no governance coin votes twice, every input commits to the
// same governance token, and the weight commitments sum to the inputs.
// The coins themselves are not spent.
func voteInstruction(view blockchain.StateView, p *VoteParams) ([]byte, error) {
	cid := crypto.DAOContractID

	state, err := loadProposal(view, p.ProposalBulla)
	if err != nil {
		return nil, err
	}
	if state.Executed {
		return nil, errors.Wrapf(ErrProposalExecuted, "bulla %s", p.ProposalBulla)
	}

	if len(p.Inputs) == 0 {
		return nil, errors.New("dao: vote has no inputs")
	}

	inputSum := make([]bls12377.G1Affine, 0, len(p.Inputs))
	seen := make(map[crypto.Nullifier]struct{}, len(p.Inputs))
	for i := range p.Inputs {
		in := &p.Inputs[i]

		ok, err := view.ContainsKey(crypto.MoneyContractID, money.TableCoinRoots, in.MerkleRoot[:])
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.Wrapf(ErrMerkleRootNotFound, "input %d root %s", i, in.MerkleRoot)
		}

		if in.TokenCommit != p.TokenCommit {
			return nil, errors.Wrapf(ErrTokenMismatch, "input %d", i)
		}

		if _, dup := seen[in.Nullifier]; dup {
			return nil, errors.Wrapf(ErrDoubleVote, "input %d", i)
		}
		seen[in.Nullifier] = struct{}{}
		voted, err := view.ContainsKey(cid, TableVotes, voteKey(p.ProposalBulla, in.Nullifier))
		if err != nil {
			return nil, err
		}
		if voted {
			return nil, errors.Wrapf(ErrDoubleVote, "input %d nullifier %s", i, in.Nullifier)
		}

		vc, err := crypto.PointFromBytes(in.ValueCommit)
		if err != nil {
			return nil, err
		}
		inputSum = append(inputSum, vc)
	}

	// The all-vote commitment must be exactly the sum of the input
	// value commitments; the builder arranges the blinds accordingly.
	all, err := crypto.PointFromBytes(p.AllCommit)
	if err != nil {
		return nil, err
	}
	sum := crypto.SumPoints(inputSum)
	if !sum.Equal(&all) {
		return nil, ErrVoteCommitMismatch
	}

	update := VoteUpdate{
		ProposalBulla: p.ProposalBulla,
		YesCommit:     p.YesCommit,
		AllCommit:     p.AllCommit,
	}
	for i := range p.Inputs {
		update.Nullifiers = append(update.Nullifiers, p.Inputs[i].Nullifier)
	}
	return encodeUpdate(FuncVote, &update)
}

func applyVote(w blockchain.StateWriter, u *VoteUpdate) error {
	cid := crypto.DAOContractID

	for _, n := range u.Nullifiers {
		if err := w.InsertUnique(cid, TableVotes, voteKey(u.ProposalBulla, n), []byte{}); err != nil {
			if errors.Is(err, blockchain.ErrKeyExists) {
				return errors.Wrapf(ErrDoubleVote, "nullifier %s", n)
			}
			return err
		}
	}

	state, err := loadProposal(w, u.ProposalBulla)
	if err != nil {
		return err
	}

	yes, err := addCommits(state.YesCommit, u.YesCommit)
	if err != nil {
		return err
	}
	all, err := addCommits(state.AllCommit, u.AllCommit)
	if err != nil {
		return err
	}
	state.YesCommit, state.AllCommit = yes, all

	return storeProposal(w, u.ProposalBulla, state)
}

// execInstruction settles a proposal: the revealed totals must open the
// accumulated commitments, clear the quorum and approval thresholds, and
// the previous call must be the money transfer paying the proposal from
// DAO-hooked treasury coins.
func execInstruction(view blockchain.StateView, p *ExecParams, calls []tx.ContractCall, callIdx int) ([]byte, error) {
	daoBulla := p.Dao.Bulla()
	proposalBulla := p.Proposal.Bulla(p.Dao.GovToken, daoBulla)

	state, err := loadProposal(view, proposalBulla)
	if err != nil {
		return nil, err
	}
	if state.Executed {
		return nil, errors.Wrapf(ErrProposalExecuted, "bulla %s", proposalBulla)
	}

	var yesBlind, allBlind blsfr.Element
	yesBlind.SetBytes(p.YesBlind[:])
	allBlind.SetBytes(p.AllBlind[:])
	yes := crypto.ValueCommit(p.YesValue, yesBlind)
	all := crypto.ValueCommit(p.AllValue, allBlind)
	if crypto.PointBytes(&yes) != state.YesCommit || crypto.PointBytes(&all) != state.AllCommit {
		return nil, ErrVoteTotalsMismatch
	}

	if p.AllValue < p.Dao.Quorum {
		return nil, errors.Wrapf(ErrQuorumNotReached, "%d of %d", p.AllValue, p.Dao.Quorum)
	}
	// yes*base >= quot*all in 128-bit arithmetic.
	yHi, yLo := bits.Mul64(p.YesValue, p.Dao.ApprovalBase)
	aHi, aLo := bits.Mul64(p.Dao.ApprovalQuot, p.AllValue)
	if yHi < aHi || (yHi == aHi && yLo < aLo) {
		return nil, ErrApprovalNotReached
	}

	if err := checkTreasuryTransfer(p, proposalBulla, calls, callIdx); err != nil {
		return nil, err
	}

	return encodeUpdate(FuncExec, &ExecUpdate{ProposalBulla: proposalBulla})
}

// checkTreasuryTransfer validates the companion money transfer at the
// previous index: all treasury inputs are DAO-hooked and the first
// output is exactly the coin the proposal promised.
func checkTreasuryTransfer(p *ExecParams, proposalBulla crypto.Bulla, calls []tx.ContractCall, callIdx int) error {
	prev := callIdx - 1
	if prev < 0 {
		return ErrCallOutOfBounds
	}
	call := &calls[prev]
	if call.ContractID != crypto.MoneyContractID {
		return errors.Wrap(ErrExecCallMismatch, "previous call is not the money contract")
	}
	fn, err := call.Function()
	if err != nil {
		return err
	}
	if fn != money.FuncTransfer {
		return errors.Wrapf(ErrExecCallMismatch, "previous call function 0x%02x", fn)
	}
	raw, err := call.Params()
	if err != nil {
		return err
	}
	var transfer money.TransferParams
	if err := cbor.Unmarshal(raw, &transfer); err != nil {
		return errors.Wrap(err, "decode companion transfer params")
	}

	for i := range transfer.Inputs {
		if transfer.Inputs[i].SpendHook != crypto.Base(crypto.DAOContractID) {
			return errors.Wrapf(ErrSpendHookMismatch, "input %d", i)
		}
	}

	dest, err := crypto.PointFromCoords(p.Proposal.DestX, p.Proposal.DestY)
	if err != nil {
		return err
	}
	var zero crypto.Base
	expected := crypto.CoinCommit(&dest, p.Proposal.Amount, p.Dao.GovToken,
		p.Proposal.Serial.Element(), zero.Element(), zero.Element(), p.CoinBlind.Element())
	if len(transfer.Outputs) == 0 || transfer.Outputs[0].Coin != expected {
		return errors.Wrapf(ErrExecPaymentMismatch, "proposal %s", proposalBulla)
	}
	return nil
}

func applyExec(w blockchain.StateWriter, u *ExecUpdate) error {
	state, err := loadProposal(w, u.ProposalBulla)
	if err != nil {
		return err
	}
	state.Executed = true
	return storeProposal(w, u.ProposalBulla, state)
}

func loadProposal(view blockchain.StateView, bulla crypto.Bulla) (*ProposalState, error) {
	raw, err := view.Get(crypto.DAOContractID, TableProposals, bulla[:])
	if err != nil {
		if errors.Is(err, blockchain.ErrKeyNotFound) {
			return nil, errors.Wrapf(ErrProposalNotFound, "bulla %s", bulla)
		}
		return nil, err
	}
	var state ProposalState
	if err := cbor.Unmarshal(raw, &state); err != nil {
		return nil, errors.Wrap(err, "decode proposal state")
	}
	return &state, nil
}

func storeProposal(w blockchain.StateWriter, bulla crypto.Bulla, state *ProposalState) error {
	enc, err := cbor.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "encode proposal state")
	}
	return w.Set(crypto.DAOContractID, TableProposals, bulla[:], enc)
}

// addCommits folds a new vote commitment into the running tally.
func addCommits(acc, add [48]byte) ([48]byte, error) {
	a, err := crypto.PointFromBytes(acc)
	if err != nil {
		return [48]byte{}, err
	}
	b, err := crypto.PointFromBytes(add)
	if err != nil {
		return [48]byte{}, err
	}
	sum := crypto.AddPoints(&a, &b)
	return crypto.PointBytes(&sum), nil
}
