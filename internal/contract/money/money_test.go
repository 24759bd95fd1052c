package money_test

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/deniseboyle690969/darkfi/internal/blockchain"
	"github.com/deniseboyle690969/darkfi/internal/contract/consensus"
	"github.com/deniseboyle690969/darkfi/internal/contract/dao"
	"github.com/deniseboyle690969/darkfi/internal/contract/money"
	"github.com/deniseboyle690969/darkfi/internal/crypto"
	"github.com/deniseboyle690969/darkfi/internal/runtime"
	"github.com/deniseboyle690969/darkfi/internal/tx"
)

func newTestChain(t *testing.T) (*blockchain.Blockchain, *runtime.Validator) {
	t.Helper()
	bc, err := blockchain.Open(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("open blockchain: %v", err)
	}
	t.Cleanup(func() { bc.Close() })
	v := runtime.NewValidator(bc, zap.NewNop(), money.New(), consensus.New(), dao.New())
	return bc, v
}

func submit(t *testing.T, v *runtime.Validator, parts ...tx.PartialCall) error {
	t.Helper()
	txn, err := tx.Assemble(parts...)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return v.AddTransactions([]tx.Transaction{*txn})
}

func transferOutputs(t *testing.T, partial *tx.PartialCall) []money.Output {
	t.Helper()
	raw, err := partial.Call.Params()
	if err != nil {
		t.Fatalf("call params: %v", err)
	}
	var p money.TransferParams
	if err := cbor.Unmarshal(raw, &p); err != nil {
		t.Fatalf("decode transfer params: %v", err)
	}
	return p.Outputs
}

// appendCoins mirrors the on-chain tree append for accepted outputs.
func appendCoins(t *testing.T, tree *crypto.MerkleTree, outs []money.Output) []uint64 {
	t.Helper()
	leaves := make([]crypto.MerkleNode, len(outs))
	for i := range outs {
		leaves[i] = crypto.MerkleNode(outs[i].Coin)
	}
	positions, err := tree.Append(leaves...)
	if err != nil {
		t.Fatalf("append coins: %v", err)
	}
	return positions
}

func recoverCoin(t *testing.T, out *money.Output, kp *crypto.Keypair, pos uint64) money.OwnCoin {
	t.Helper()
	note, ok := crypto.DecryptNote(&out.Note, kp.Secret)
	if !ok {
		t.Fatal("recipient cannot decrypt own note")
	}
	return money.OwnCoin{Note: *note, Coin: out.Coin, Secret: kp.Secret, LeafPosition: pos}
}

// airdrop funds a recipient through a clear-input transfer and returns
// the spendable coin.
func airdrop(t *testing.T, v *runtime.Validator, tree *crypto.MerkleTree, value uint64, token crypto.TokenID, kp *crypto.Keypair, spendHook crypto.Base) money.OwnCoin {
	t.Helper()
	faucet, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("faucet key: %v", err)
	}
	b := &money.TransferCallBuilder{
		Clear:   []money.ClearSpend{{Value: value, Token: token, Key: faucet}},
		Outputs: []money.TransferOutput{{Value: value, Token: token, Recipient: kp.Public, SpendHook: spendHook}},
		Tree:    tree,
	}
	partial, _, err := b.Build()
	if err != nil {
		t.Fatalf("build airdrop: %v", err)
	}
	if err := submit(t, v, *partial); err != nil {
		t.Fatalf("submit airdrop: %v", err)
	}
	outs := transferOutputs(t, partial)
	positions := appendCoins(t, tree, outs)
	return recoverCoin(t, &outs[0], kp, positions[0])
}

func TestTransferLifecycle(t *testing.T) {
	_, v := newTestChain(t)
	tree := crypto.NewMerkleTree()

	alice, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("alice keypair: %v", err)
	}
	bob, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("bob keypair: %v", err)
	}

	var aliceCoin, bobCoin money.OwnCoin

	t.Run("clear input airdrop", func(t *testing.T) {
		aliceCoin = airdrop(t, v, tree, 100, crypto.NativeTokenID, alice, crypto.Base{})
		if aliceCoin.Note.Value != 100 {
			t.Errorf("airdrop value = %d, want 100", aliceCoin.Note.Value)
		}
		if aliceCoin.Note.Token != crypto.NativeTokenID {
			t.Error("airdrop token is not the native token")
		}
	})

	t.Run("hidden transfer with change", func(t *testing.T) {
		b := &money.TransferCallBuilder{
			Coins: []money.OwnCoin{aliceCoin},
			Outputs: []money.TransferOutput{
				{Value: 60, Token: crypto.NativeTokenID, Recipient: bob.Public},
				{Value: 40, Token: crypto.NativeTokenID, Recipient: alice.Public},
			},
			Tree: tree,
		}
		partial, notes, err := b.Build()
		if err != nil {
			t.Fatalf("build transfer: %v", err)
		}
		if len(notes) != 2 {
			t.Fatalf("got %d notes, want 2", len(notes))
		}
		if err := submit(t, v, *partial); err != nil {
			t.Fatalf("submit transfer: %v", err)
		}

		outs := transferOutputs(t, partial)
		positions := appendCoins(t, tree, outs)
		bobCoin = recoverCoin(t, &outs[0], bob, positions[0])
		if bobCoin.Note.Value != 60 {
			t.Errorf("bob received %d, want 60", bobCoin.Note.Value)
		}
		change := recoverCoin(t, &outs[1], alice, positions[1])
		if change.Note.Value != 40 {
			t.Errorf("change is %d, want 40", change.Note.Value)
		}
	})

	t.Run("double spend rejected", func(t *testing.T) {
		// The nullifier is deterministic in the coin secret and serial,
		// so a second spend of the same coin collides on chain.
		b := &money.TransferCallBuilder{
			Coins:   []money.OwnCoin{aliceCoin},
			Outputs: []money.TransferOutput{{Value: 100, Token: crypto.NativeTokenID, Recipient: alice.Public}},
			Tree:    tree,
		}
		partial, _, err := b.Build()
		if err != nil {
			t.Fatalf("build double spend: %v", err)
		}
		err = submit(t, v, *partial)
		if !errors.Is(err, money.ErrDuplicateNullifier) {
			t.Fatalf("double spend error = %v, want ErrDuplicateNullifier", err)
		}
	})

	t.Run("unbalanced amounts rejected by builder", func(t *testing.T) {
		b := &money.TransferCallBuilder{
			Coins:   []money.OwnCoin{bobCoin},
			Outputs: []money.TransferOutput{{Value: 61, Token: crypto.NativeTokenID, Recipient: alice.Public}},
			Tree:    tree,
		}
		if _, _, err := b.Build(); err == nil {
			t.Fatal("builder accepted mismatched input and output totals")
		}
	})
}

func TestOtcSwap(t *testing.T) {
	_, v := newTestChain(t)
	tree := crypto.NewMerkleTree()

	alice, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("alice keypair: %v", err)
	}
	bob, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("bob keypair: %v", err)
	}

	tokenB := crypto.TokenID{0xb0, 0x0b}
	aliceCoin := airdrop(t, v, tree, 100, crypto.NativeTokenID, alice, crypto.Base{})
	bobCoin := airdrop(t, v, tree, 50, tokenB, bob, crypto.Base{})

	b := &money.SwapCallBuilder{
		Halves: [2]money.SwapHalf{
			{Coin: aliceCoin, Recipient: bob.Public},
			{Coin: bobCoin, Recipient: alice.Public},
		},
		Tree: tree,
	}
	partial, _, err := b.Build()
	if err != nil {
		t.Fatalf("build swap: %v", err)
	}
	if err := submit(t, v, *partial); err != nil {
		t.Fatalf("submit swap: %v", err)
	}

	outs := transferOutputs(t, partial)
	positions := appendCoins(t, tree, outs)

	bobGot := recoverCoin(t, &outs[0], bob, positions[0])
	if bobGot.Note.Value != 100 || bobGot.Note.Token != crypto.NativeTokenID {
		t.Errorf("bob got %d of %x, want 100 native", bobGot.Note.Value, bobGot.Note.Token[:4])
	}
	aliceGot := recoverCoin(t, &outs[1], alice, positions[1])
	if aliceGot.Note.Value != 50 || aliceGot.Note.Token != tokenB {
		t.Errorf("alice got %d, want 50 of the swapped token", aliceGot.Note.Value)
	}

	// Replaying either half is a double spend.
	partial2, _, err := b.Build()
	if err != nil {
		t.Fatalf("rebuild swap: %v", err)
	}
	if err := submit(t, v, *partial2); !errors.Is(err, money.ErrDuplicateNullifier) {
		t.Fatalf("swap replay error = %v, want ErrDuplicateNullifier", err)
	}
}

func TestTokenMintAndFreeze(t *testing.T) {
	_, v := newTestChain(t)

	authority, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("authority keypair: %v", err)
	}
	holder, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("holder keypair: %v", err)
	}
	signer, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("signer key: %v", err)
	}
	token := crypto.DeriveTokenID(&authority.Public)

	t.Run("mint new supply", func(t *testing.T) {
		b := &money.MintCallBuilder{Authority: authority, Value: 500, Recipient: holder.Public, Signer: signer}
		partial, note, err := b.Build()
		if err != nil {
			t.Fatalf("build mint: %v", err)
		}
		if err := submit(t, v, *partial); err != nil {
			t.Fatalf("submit mint: %v", err)
		}
		if note.Value != 500 || note.Token != token {
			t.Errorf("minted note is %d of %x, want 500 of the derived token", note.Value, note.Token[:4])
		}
	})

	t.Run("freeze stops mints", func(t *testing.T) {
		fb := &money.FreezeCallBuilder{Authority: authority, Signer: signer}
		partial, err := fb.Build()
		if err != nil {
			t.Fatalf("build freeze: %v", err)
		}
		if err := submit(t, v, *partial); err != nil {
			t.Fatalf("submit freeze: %v", err)
		}

		mb := &money.MintCallBuilder{Authority: authority, Value: 1, Recipient: holder.Public, Signer: signer}
		mp, _, err := mb.Build()
		if err != nil {
			t.Fatalf("build post-freeze mint: %v", err)
		}
		if err := submit(t, v, *mp); !errors.Is(err, money.ErrTokenFrozen) {
			t.Fatalf("post-freeze mint error = %v, want ErrTokenFrozen", err)
		}
	})

	t.Run("double freeze rejected", func(t *testing.T) {
		fb := &money.FreezeCallBuilder{Authority: authority, Signer: signer}
		partial, err := fb.Build()
		if err != nil {
			t.Fatalf("build freeze: %v", err)
		}
		if err := submit(t, v, *partial); !errors.Is(err, money.ErrTokenAlreadyFrozen) {
			t.Fatalf("double freeze error = %v, want ErrTokenAlreadyFrozen", err)
		}
	})
}

func TestSpendHookRequiresCompanion(t *testing.T) {
	_, v := newTestChain(t)
	tree := crypto.NewMerkleTree()

	owner, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("owner keypair: %v", err)
	}

	hooked := airdrop(t, v, tree, 10, crypto.NativeTokenID, owner,
		crypto.Base(crypto.DAOContractID))

	// Spending a hooked coin without the hooked contract at the next
	// call index must fail shape validation.
	b := &money.TransferCallBuilder{
		Coins:   []money.OwnCoin{hooked},
		Outputs: []money.TransferOutput{{Value: 10, Token: crypto.NativeTokenID, Recipient: owner.Public}},
		Tree:    tree,
	}
	partial, _, err := b.Build()
	if err != nil {
		t.Fatalf("build hooked spend: %v", err)
	}
	if err := submit(t, v, *partial); !errors.Is(err, money.ErrSpendHookOutOfBounds) {
		t.Fatalf("hooked spend error = %v, want ErrSpendHookOutOfBounds", err)
	}
}
