package consensus_test

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/deniseboyle690969/darkfi/internal/blockchain"
	"github.com/deniseboyle690969/darkfi/internal/contract/consensus"
	"github.com/deniseboyle690969/darkfi/internal/contract/money"
	"github.com/deniseboyle690969/darkfi/internal/crypto"
	"github.com/deniseboyle690969/darkfi/internal/runtime"
	"github.com/deniseboyle690969/darkfi/internal/tx"
	"github.com/deniseboyle690969/darkfi/internal/zk"
)

func newTestChain(t *testing.T) *runtime.Validator {
	t.Helper()
	bc, err := blockchain.Open(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("open blockchain: %v", err)
	}
	t.Cleanup(func() { bc.Close() })
	return runtime.NewValidator(bc, zap.NewNop(), money.New(), consensus.New())
}

func submit(t *testing.T, v *runtime.Validator, parts ...tx.PartialCall) error {
	t.Helper()
	txn, err := tx.Assemble(parts...)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return v.AddTransactions([]tx.Transaction{*txn})
}

func outputCoin(t *testing.T, partial *tx.PartialCall) money.Output {
	t.Helper()
	raw, err := partial.Call.Params()
	if err != nil {
		t.Fatalf("call params: %v", err)
	}
	// Stake, unstake and reward params all carry the fresh output at the
	// same cbor key.
	var p struct {
		Output money.Output `cbor:"2,keyasint"`
	}
	if err := cbor.Unmarshal(raw, &p); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	return p.Output
}

func fundNative(t *testing.T, v *runtime.Validator, tree *crypto.MerkleTree, value uint64, kp *crypto.Keypair) money.OwnCoin {
	t.Helper()
	faucet, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("faucet key: %v", err)
	}
	b := &money.TransferCallBuilder{
		Clear:   []money.ClearSpend{{Value: value, Token: crypto.NativeTokenID, Key: faucet}},
		Outputs: []money.TransferOutput{{Value: value, Token: crypto.NativeTokenID, Recipient: kp.Public}},
		Tree:    tree,
	}
	partial, _, err := b.Build()
	if err != nil {
		t.Fatalf("build funding transfer: %v", err)
	}
	if err := submit(t, v, *partial); err != nil {
		t.Fatalf("submit funding transfer: %v", err)
	}

	raw, err := partial.Call.Params()
	if err != nil {
		t.Fatalf("call params: %v", err)
	}
	var p money.TransferParams
	if err := cbor.Unmarshal(raw, &p); err != nil {
		t.Fatalf("decode transfer params: %v", err)
	}
	positions, err := tree.Append(crypto.MerkleNode(p.Outputs[0].Coin))
	if err != nil {
		t.Fatalf("append coin: %v", err)
	}
	note, ok := crypto.DecryptNote(&p.Outputs[0].Note, kp.Secret)
	if !ok {
		t.Fatal("cannot decrypt funding note")
	}
	return money.OwnCoin{Note: *note, Coin: p.Outputs[0].Coin, Secret: kp.Secret, LeafPosition: positions[0]}
}

func TestStakingLifecycle(t *testing.T) {
	v := newTestChain(t)
	moneyTree := crypto.NewMerkleTree()
	consTree := crypto.NewMerkleTree()

	alice, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("keypair: %v", err)
	}
	coin := fundNative(t, v, moneyTree, 100, alice)

	var staked, rewarded money.OwnCoin

	t.Run("stake", func(t *testing.T) {
		sres, err := (&money.StakeCallBuilder{Coin: coin, Tree: moneyTree}).Build()
		if err != nil {
			t.Fatalf("build money stake: %v", err)
		}
		cpartial, note, err := (&consensus.StakeCallBuilder{Stake: sres, Recipient: alice.Public}).Build()
		if err != nil {
			t.Fatalf("build consensus stake: %v", err)
		}
		if err := submit(t, v, sres.Partial, *cpartial); err != nil {
			t.Fatalf("submit stake: %v", err)
		}
		if note.SpendHook != crypto.Base(crypto.ConsensusContractID) {
			t.Error("staked coin is not hooked to the consensus contract")
		}

		out := outputCoin(t, cpartial)
		positions, err := consTree.Append(crypto.MerkleNode(out.Coin))
		if err != nil {
			t.Fatalf("append staked coin: %v", err)
		}
		staked = money.OwnCoin{Note: *note, Coin: out.Coin, Secret: alice.Secret, LeafPosition: positions[0]}
	})

	t.Run("stake replay rejected", func(t *testing.T) {
		sres, err := (&money.StakeCallBuilder{Coin: coin, Tree: moneyTree}).Build()
		if err != nil {
			t.Fatalf("rebuild money stake: %v", err)
		}
		cpartial, _, err := (&consensus.StakeCallBuilder{Stake: sres, Recipient: alice.Public}).Build()
		if err != nil {
			t.Fatalf("rebuild consensus stake: %v", err)
		}
		if err := submit(t, v, sres.Partial, *cpartial); !errors.Is(err, money.ErrDuplicateNullifier) {
			t.Fatalf("stake replay error = %v, want ErrDuplicateNullifier", err)
		}
	})

	t.Run("reward", func(t *testing.T) {
		partial, note, err := (&consensus.RewardCallBuilder{
			Coin: staked, Tree: consTree, Recipient: alice.Public,
		}).Build()
		if err != nil {
			t.Fatalf("build reward: %v", err)
		}
		if err := submit(t, v, *partial); err != nil {
			t.Fatalf("submit reward: %v", err)
		}
		if note.Value != 100+zk.StakeReward {
			t.Errorf("rewarded value = %d, want %d", note.Value, 100+zk.StakeReward)
		}

		out := outputCoin(t, partial)
		positions, err := consTree.Append(crypto.MerkleNode(out.Coin))
		if err != nil {
			t.Fatalf("append rewarded coin: %v", err)
		}
		rewarded = money.OwnCoin{Note: *note, Coin: out.Coin, Secret: alice.Secret, LeafPosition: positions[0]}
	})

	t.Run("unstake", func(t *testing.T) {
		ures, err := (&consensus.UnstakeCallBuilder{Coin: rewarded, Tree: consTree}).Build()
		if err != nil {
			t.Fatalf("build consensus unstake: %v", err)
		}
		mpartial, note, err := (&money.UnstakeCallBuilder{
			Input:      ures.Input,
			Value:      ures.Value,
			ValueBlind: ures.ValueBlind,
			BurnProof:  ures.BurnProof,
			Key:        ures.Key,
			Recipient:  alice.Public,
		}).Build()
		if err != nil {
			t.Fatalf("build money unstake: %v", err)
		}
		if err := submit(t, v, ures.Partial, *mpartial); err != nil {
			t.Fatalf("submit unstake: %v", err)
		}
		if note.Value != 100+zk.StakeReward {
			t.Errorf("unstaked value = %d, want %d", note.Value, 100+zk.StakeReward)
		}
		if note.Token != crypto.NativeTokenID {
			t.Error("unstaked coin is not the native token")
		}
		if note.SpendHook != (crypto.Base{}) {
			t.Error("unstaked coin still carries a spend hook")
		}
	})

	t.Run("unstake replay rejected", func(t *testing.T) {
		ures, err := (&consensus.UnstakeCallBuilder{Coin: rewarded, Tree: consTree}).Build()
		if err != nil {
			t.Fatalf("rebuild consensus unstake: %v", err)
		}
		mpartial, _, err := (&money.UnstakeCallBuilder{
			Input:      ures.Input,
			Value:      ures.Value,
			ValueBlind: ures.ValueBlind,
			BurnProof:  ures.BurnProof,
			Key:        ures.Key,
			Recipient:  alice.Public,
		}).Build()
		if err != nil {
			t.Fatalf("rebuild money unstake: %v", err)
		}
		if err := submit(t, v, ures.Partial, *mpartial); !errors.Is(err, consensus.ErrDuplicateNullifier) {
			t.Fatalf("unstake replay error = %v, want ErrDuplicateNullifier", err)
		}
	})
}

func TestStakeRequiresNativeToken(t *testing.T) {
	tree := crypto.NewMerkleTree()
	kp, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("keypair: %v", err)
	}
	coin := money.OwnCoin{
		Note:   crypto.Note{Value: 5, Token: crypto.TokenID{0x01}},
		Secret: kp.Secret,
	}
	if _, err := (&money.StakeCallBuilder{Coin: coin, Tree: tree}).Build(); !errors.Is(err, money.ErrNonNativeToken) {
		t.Fatalf("stake of non-native token error = %v, want ErrNonNativeToken", err)
	}
}

func TestRewardRequiresConsensusHook(t *testing.T) {
	tree := crypto.NewMerkleTree()
	kp, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("keypair: %v", err)
	}
	coin := money.OwnCoin{
		Note:   crypto.Note{Value: 5, Token: crypto.NativeTokenID},
		Secret: kp.Secret,
	}
	if _, _, err := (&consensus.RewardCallBuilder{Coin: coin, Tree: tree, Recipient: kp.Public}).Build(); !errors.Is(err, consensus.ErrSpendHookMismatch) {
		t.Fatalf("reward of unhooked coin error = %v, want ErrSpendHookMismatch", err)
	}
}
