package money

import (
	"github.com/pkg/errors"

	"github.com/deniseboyle690969/darkfi/internal/blockchain"
	"github.com/deniseboyle690969/darkfi/internal/crypto"
)

// mintInstruction validates new supply. The amount is public; the
// commitments in the output must open to the declared value and token
// under the revealed blinds, and the token must derive from the
// authority key the proof speaks for.
func mintInstruction(view blockchain.StateView, p *MintParams) ([]byte, error) {
	cid := crypto.MoneyContractID

	auth, err := crypto.PointFromCoords(p.AuthorityX, p.AuthorityY)
	if err != nil {
		return nil, err
	}
	if crypto.DeriveTokenID(&auth) != p.Token {
		return nil, ErrTokenIDMismatch
	}

	frozen, err := view.ContainsKey(cid, TableTokenFreezes, p.Token[:])
	if err != nil {
		return nil, err
	}
	if frozen {
		return nil, errors.Wrapf(ErrTokenFrozen, "token %x", p.Token[:8])
	}

	vc := crypto.ValueCommit(p.Value, blindScalar(p.ValueBlind))
	if crypto.PointBytes(&vc) != p.Output.ValueCommit {
		return nil, ErrValueMismatch
	}
	tc := crypto.TokenCommit(p.Token, blindScalar(p.TokenBlind))
	if crypto.PointBytes(&tc) != p.Output.TokenCommit {
		return nil, ErrTokenMismatch
	}

	exists, err := view.ContainsKey(cid, TableCoins, p.Output.Coin[:])
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.Wrapf(ErrDuplicateCoin, "coin %s", p.Output.Coin)
	}

	return encodeUpdate(FuncMint, &MintUpdate{Coin: p.Output.Coin})
}

func applyMint(w blockchain.StateWriter, u *MintUpdate) error {
	cid := crypto.MoneyContractID
	if err := w.InsertUnique(cid, TableCoins, u.Coin[:], []byte{}); err != nil {
		if errors.Is(err, blockchain.ErrKeyExists) {
			return errors.Wrapf(ErrDuplicateCoin, "%s", u.Coin)
		}
		return err
	}
	return blockchain.MerkleAppend(w, cid, TableInfo, KeyCoinTree, TableCoinRoots,
		[]crypto.MerkleNode{crypto.MerkleNode(u.Coin)})
}

// freezeInstruction disables further minting of the authority's token.
// The transition is one-way; there is no unfreeze function.
func freezeInstruction(view blockchain.StateView, p *FreezeParams) ([]byte, error) {
	cid := crypto.MoneyContractID

	auth, err := crypto.PointFromCoords(p.AuthorityX, p.AuthorityY)
	if err != nil {
		return nil, err
	}
	token := crypto.DeriveTokenID(&auth)

	frozen, err := view.ContainsKey(cid, TableTokenFreezes, token[:])
	if err != nil {
		return nil, err
	}
	if frozen {
		return nil, errors.Wrapf(ErrTokenAlreadyFrozen, "token %x", token[:8])
	}

	return encodeUpdate(FuncFreeze, &FreezeUpdate{Token: token})
}

func applyFreeze(w blockchain.StateWriter, u *FreezeUpdate) error {
	cid := crypto.MoneyContractID
	if err := w.InsertUnique(cid, TableTokenFreezes, u.Token[:], []byte{}); err != nil {
		if errors.Is(err, blockchain.ErrKeyExists) {
			return errors.Wrapf(ErrTokenAlreadyFrozen, "token %x", u.Token[:8])
		}
		return err
	}
	return nil
}
