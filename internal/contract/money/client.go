package money

import (
	"math/big"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	blsfr "github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	fr "github.com/consensys/gnark-crypto/ecc/bw6-761/fr"
	"github.com/consensys/gnark/std/algebra/native/sw_bls12377"
	"github.com/pkg/errors"

	"github.com/deniseboyle690969/darkfi/internal/crypto"
	"github.com/deniseboyle690969/darkfi/internal/tx"
	"github.com/deniseboyle690969/darkfi/internal/zk"
)

// OwnCoin is a decrypted note plus everything needed to spend it: the
// owner secret and the coin's fixed position in the tree. Leaf positions
// are assigned once at append time and never recomputed.
type OwnCoin struct {
	Note         crypto.Note
	Coin         crypto.Coin
	Secret       blsfr.Element
	LeafPosition uint64
}

// ClearSpend reveals value and token in plaintext, e.g. a faucet drip.
type ClearSpend struct {
	Value uint64
	Token crypto.TokenID
	Key   *crypto.SigningKey
}

// TransferOutput describes one recipient of a transfer under build.
// Serial and CoinBlind are normally drawn fresh; setting them pins the
// coin to an externally agreed commitment, e.g. a payment a governance
// proposal promised in advance.
type TransferOutput struct {
	Value     uint64
	Token     crypto.TokenID
	Recipient bls12377.G1Affine
	SpendHook crypto.Base
	UserData  crypto.Base
	Serial    *crypto.Base
	CoinBlind *crypto.Base
	Memo      []byte
}

// TransferCallBuilder assembles one Transfer call: witnesses, proofs,
// params and signing keys. Builders are pure value producers; nothing
// touches the ledger until the assembled transaction is submitted.
type TransferCallBuilder struct {
	Clear   []ClearSpend
	Coins   []OwnCoin
	Outputs []TransferOutput
	Tree    *crypto.MerkleTree
}

// Build fails fast and locally on inconsistent amounts or a missing
// merkle path, before any proving work starts.
func (b *TransferCallBuilder) Build() (*tx.PartialCall, []crypto.Note, error) {
	if len(b.Clear) == 0 && len(b.Coins) == 0 {
		return nil, nil, errors.New("transfer needs at least one input")
	}
	if len(b.Outputs) == 0 {
		return nil, nil, errors.New("transfer needs at least one output")
	}

	var inSum, outSum uint64
	for i := range b.Clear {
		inSum += b.Clear[i].Value
	}
	for i := range b.Coins {
		inSum += b.Coins[i].Note.Value
	}
	for i := range b.Outputs {
		outSum += b.Outputs[i].Value
	}
	if inSum != outSum {
		return nil, nil, errors.Errorf("inputs total %d, outputs total %d", inSum, outSum)
	}

	// One token blind for the whole call; the instruction check relies
	// on the token commitments being pairwise equal.
	tokenBlind, err := crypto.RandomBlind()
	if err != nil {
		return nil, nil, err
	}

	params := TransferParams{}
	var proofs [][]byte
	var keys []*crypto.SigningKey
	var blindSum blsfr.Element

	for i := range b.Clear {
		cs := &b.Clear[i]
		vb, err := crypto.RandomBlind()
		if err != nil {
			return nil, nil, err
		}
		blindSum.Add(&blindSum, &vb)
		params.ClearInputs = append(params.ClearInputs, ClearInput{
			Value:           cs.Value,
			Token:           cs.Token,
			ValueBlind:      scalarBytes(vb),
			TokenBlind:      scalarBytes(tokenBlind),
			SignaturePublic: cs.Key.PublicBytes(),
		})
		keys = append(keys, cs.Key)
	}

	for i := range b.Coins {
		vb, err := crypto.RandomBlind()
		if err != nil {
			return nil, nil, err
		}
		blindSum.Add(&blindSum, &vb)
		in, proof, key, err := BuildInput(&b.Coins[i], vb, tokenBlind, b.Tree)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "input %d", i)
		}
		params.Inputs = append(params.Inputs, *in)
		proofs = append(proofs, proof)
		keys = append(keys, key)
	}

	var notes []crypto.Note
	for i := range b.Outputs {
		var vb blsfr.Element
		if i == len(b.Outputs)-1 {
			// Remainder blind: the telescoping sum of input and output
			// blinds must vanish for conservation to hold.
			vb = blindSum
		} else {
			r, err := crypto.RandomBlind()
			if err != nil {
				return nil, nil, err
			}
			blindSum.Sub(&blindSum, &r)
			vb = r
		}
		out, note, proof, err := BuildOutput(&b.Outputs[i], vb, tokenBlind)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "output %d", i)
		}
		params.Outputs = append(params.Outputs, *out)
		proofs = append(proofs, proof)
		notes = append(notes, *note)
	}

	data, err := tx.EncodeCall(FuncTransfer, &params)
	if err != nil {
		return nil, nil, err
	}
	return &tx.PartialCall{
		Call:   tx.ContractCall{ContractID: crypto.MoneyContractID, Data: data},
		Proofs: proofs,
		Keys:   keys,
	}, notes, nil
}

// SwapHalf is one side of an atomic swap: a coin given away and the
// counterparty receiving its value.
type SwapHalf struct {
	Coin      OwnCoin
	Recipient bls12377.G1Affine
}

// SwapCallBuilder assembles an OtcSwap call. Each half keeps its own
// value and token blinds, shared between that half's input and output so
// the commitments match exactly.
type SwapCallBuilder struct {
	Halves [2]SwapHalf
	Tree   *crypto.MerkleTree
}

func (b *SwapCallBuilder) Build() (*tx.PartialCall, []crypto.Note, error) {
	params := TransferParams{}
	var proofs [][]byte
	var keys []*crypto.SigningKey
	var mintProofs [][]byte
	var notes []crypto.Note

	for i := range b.Halves {
		h := &b.Halves[i]
		vb, err := crypto.RandomBlind()
		if err != nil {
			return nil, nil, err
		}
		tb, err := crypto.RandomBlind()
		if err != nil {
			return nil, nil, err
		}
		in, burnProof, key, err := BuildInput(&h.Coin, vb, tb, b.Tree)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "swap half %d", i)
		}
		spec := TransferOutput{
			Value:     h.Coin.Note.Value,
			Token:     h.Coin.Note.Token,
			Recipient: h.Recipient,
		}
		out, note, mintProof, err := BuildOutput(&spec, vb, tb)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "swap half %d", i)
		}
		params.Inputs = append(params.Inputs, *in)
		params.Outputs = append(params.Outputs, *out)
		proofs = append(proofs, burnProof)
		mintProofs = append(mintProofs, mintProof)
		keys = append(keys, key)
		notes = append(notes, *note)
	}
	proofs = append(proofs, mintProofs...)

	data, err := tx.EncodeCall(FuncOtcSwap, &params)
	if err != nil {
		return nil, nil, err
	}
	return &tx.PartialCall{
		Call:   tx.ContractCall{ContractID: crypto.MoneyContractID, Data: data},
		Proofs: proofs,
		Keys:   keys,
	}, notes, nil
}

// MintCallBuilder mints new public supply of the authority's token to a
// hidden recipient.
type MintCallBuilder struct {
	Authority *crypto.Keypair
	Value     uint64
	Recipient bls12377.G1Affine
	Signer    *crypto.SigningKey
}

func (b *MintCallBuilder) Build() (*tx.PartialCall, *crypto.Note, error) {
	token := crypto.DeriveTokenID(&b.Authority.Public)
	vb, err := crypto.RandomBlind()
	if err != nil {
		return nil, nil, err
	}
	tb, err := crypto.RandomBlind()
	if err != nil {
		return nil, nil, err
	}

	spec := TransferOutput{Value: b.Value, Token: token, Recipient: b.Recipient}
	out, note, mintProof, err := BuildOutput(&spec, vb, tb)
	if err != nil {
		return nil, nil, err
	}

	ax, ay := crypto.PublicCoords(&b.Authority.Public)
	tokenProof, err := zk.Prove(zk.TokenMintCircuit, &zk.TokenMintProof{
		AuthorityX:  bi(ax),
		AuthorityY:  bi(ay),
		TokenDigest: bi(crypto.TokenDigest(&b.Authority.Public)),
		Secret:      sbi(b.Authority.Secret),
	})
	if err != nil {
		return nil, nil, err
	}

	params := MintParams{
		AuthorityX:      crypto.BaseFromElement(ax),
		AuthorityY:      crypto.BaseFromElement(ay),
		Token:           token,
		Value:           b.Value,
		ValueBlind:      scalarBytes(vb),
		TokenBlind:      scalarBytes(tb),
		Output:          *out,
		SignaturePublic: b.Signer.PublicBytes(),
	}
	data, err := tx.EncodeCall(FuncMint, &params)
	if err != nil {
		return nil, nil, err
	}
	return &tx.PartialCall{
		Call:   tx.ContractCall{ContractID: crypto.MoneyContractID, Data: data},
		Proofs: [][]byte{tokenProof, mintProof},
		Keys:   []*crypto.SigningKey{b.Signer},
	}, note, nil
}

// FreezeCallBuilder permanently freezes the authority's token.
type FreezeCallBuilder struct {
	Authority *crypto.Keypair
	Signer    *crypto.SigningKey
}

func (b *FreezeCallBuilder) Build() (*tx.PartialCall, error) {
	ax, ay := crypto.PublicCoords(&b.Authority.Public)
	proof, err := zk.Prove(zk.TokenFreezeCircuit, &zk.TokenMintProof{
		AuthorityX:  bi(ax),
		AuthorityY:  bi(ay),
		TokenDigest: bi(crypto.TokenDigest(&b.Authority.Public)),
		Secret:      sbi(b.Authority.Secret),
	})
	if err != nil {
		return nil, err
	}
	params := FreezeParams{
		AuthorityX:      crypto.BaseFromElement(ax),
		AuthorityY:      crypto.BaseFromElement(ay),
		SignaturePublic: b.Signer.PublicBytes(),
	}
	data, err := tx.EncodeCall(FuncFreeze, &params)
	if err != nil {
		return nil, err
	}
	return &tx.PartialCall{
		Call:   tx.ContractCall{ContractID: crypto.MoneyContractID, Data: data},
		Proofs: [][]byte{proof},
		Keys:   []*crypto.SigningKey{b.Signer},
	}, nil
}

// StakeResult carries what the consensus side of a stake needs to
// mirror the money call: the exact input, the hidden value and the
// blind behind its value commitment.
type StakeResult struct {
	Partial    tx.PartialCall
	Input      Input
	Value      uint64
	ValueBlind [32]byte
	Key        *crypto.SigningKey
}

// StakeCallBuilder burns a native coin on the money side. The caller
// pairs the result with a consensus stake call at the next index.
type StakeCallBuilder struct {
	Coin OwnCoin
	Tree *crypto.MerkleTree
}

func (b *StakeCallBuilder) Build() (*StakeResult, error) {
	if b.Coin.Note.Token != crypto.NativeTokenID {
		return nil, ErrNonNativeToken
	}
	vb, err := crypto.RandomBlind()
	if err != nil {
		return nil, err
	}
	tb, err := crypto.RandomBlind()
	if err != nil {
		return nil, err
	}
	in, proof, key, err := BuildInput(&b.Coin, vb, tb, b.Tree)
	if err != nil {
		return nil, err
	}
	params := StakeParams{TokenBlind: scalarBytes(tb), Input: *in}
	data, err := tx.EncodeCall(FuncStake, &params)
	if err != nil {
		return nil, err
	}
	return &StakeResult{
		Partial: tx.PartialCall{
			Call:   tx.ContractCall{ContractID: crypto.MoneyContractID, Data: data},
			Proofs: [][]byte{proof},
			Keys:   []*crypto.SigningKey{key},
		},
		Input:      *in,
		Value:      b.Coin.Note.Value,
		ValueBlind: scalarBytes(vb),
		Key:        key,
	}, nil
}

// UnstakeCallBuilder is the money side of unstaking. Input, value,
// blind, burn proof and signing key are mirrored from the consensus
// unstake builder; the output recreates the coin in the money set under
// the same value commitment.
type UnstakeCallBuilder struct {
	Input      Input
	Value      uint64
	ValueBlind [32]byte
	BurnProof  []byte
	Key        *crypto.SigningKey
	Recipient  bls12377.G1Affine
}

func (b *UnstakeCallBuilder) Build() (*tx.PartialCall, *crypto.Note, error) {
	tb, err := crypto.RandomBlind()
	if err != nil {
		return nil, nil, err
	}
	var vb blsfr.Element
	vb.SetBytes(b.ValueBlind[:])

	spec := TransferOutput{Value: b.Value, Token: crypto.NativeTokenID, Recipient: b.Recipient}
	out, note, mintProof, err := BuildOutput(&spec, vb, tb)
	if err != nil {
		return nil, nil, err
	}

	params := UnstakeParams{TokenBlind: scalarBytes(tb), Input: b.Input, Output: *out}
	data, err := tx.EncodeCall(FuncUnstake, &params)
	if err != nil {
		return nil, nil, err
	}
	return &tx.PartialCall{
		Call:   tx.ContractCall{ContractID: crypto.MoneyContractID, Data: data},
		Proofs: [][]byte{b.BurnProof, mintProof},
		Keys:   []*crypto.SigningKey{b.Key},
	}, note, nil
}

// BuildInput spends an own coin under a fresh signing key, producing
// the input struct and its burn proof.
func BuildInput(coin *OwnCoin, valueBlind, tokenBlind blsfr.Element, tree *crypto.MerkleTree) (*Input, []byte, *crypto.SigningKey, error) {
	note := &coin.Note
	serial := note.Serial.Element()
	nullifier := crypto.NullifierFor(coin.Secret, serial)
	root := tree.Root()

	path, err := tree.AuthPath(coin.LeafPosition)
	if err != nil {
		return nil, nil, nil, err
	}

	vc := crypto.ValueCommit(note.Value, valueBlind)
	tc := crypto.TokenCommit(note.Token, tokenBlind)

	userDataBlind, err := crypto.RandomBase()
	if err != nil {
		return nil, nil, nil, err
	}
	userDataEnc := crypto.HashElements(note.UserData.Element(), userDataBlind)

	vcx, vcy := crypto.PointCoords(&vc)
	tcx, tcy := crypto.PointCoords(&tc)

	assignment := &zk.BurnProof{
		Nullifier:     bi(nullifier.Element()),
		MerkleRoot:    bi(root.Element()),
		ValueCommit:   sw_bls12377.G1Affine{X: bi(vcx), Y: bi(vcy)},
		TokenCommit:   sw_bls12377.G1Affine{X: bi(tcx), Y: bi(tcy)},
		SpendHook:     bi(note.SpendHook.Element()),
		UserDataEnc:   bi(userDataEnc),
		Secret:        sbi(coin.Secret),
		Serial:        bi(serial),
		Value:         note.Value,
		Token:         sbi(note.Token.Scalar()),
		UserData:      bi(note.UserData.Element()),
		UserDataBlind: bi(userDataBlind),
		CoinBlind:     bi(note.CoinBlind.Element()),
		ValueBlind:    sbi(valueBlind),
		TokenBlind:    sbi(tokenBlind),
	}
	for i := 0; i < crypto.MerkleDepth; i++ {
		assignment.Path[i] = bi(path[i].Element())
		assignment.PathBits[i] = (coin.LeafPosition >> uint(i)) & 1
	}

	proof, err := zk.Prove(zk.BurnCircuit, assignment)
	if err != nil {
		return nil, nil, nil, err
	}

	key, err := crypto.GenerateSigningKey()
	if err != nil {
		return nil, nil, nil, err
	}

	in := &Input{
		ValueCommit:     crypto.PointBytes(&vc),
		TokenCommit:     crypto.PointBytes(&tc),
		Nullifier:       nullifier,
		MerkleRoot:      root,
		SpendHook:       note.SpendHook,
		UserDataEnc:     crypto.BaseFromElement(userDataEnc),
		SignaturePublic: key.PublicBytes(),
	}
	return in, proof, key, nil
}

// BuildOutput creates a fresh coin for the recipient, seals its note
// and proves well-formedness.
func BuildOutput(spec *TransferOutput, valueBlind, tokenBlind blsfr.Element) (*Output, *crypto.Note, []byte, error) {
	var serial, coinBlind fr.Element
	if spec.Serial != nil {
		serial = spec.Serial.Element()
	} else {
		var err error
		if serial, err = crypto.RandomBase(); err != nil {
			return nil, nil, nil, err
		}
	}
	if spec.CoinBlind != nil {
		coinBlind = spec.CoinBlind.Element()
	} else {
		var err error
		if coinBlind, err = crypto.RandomBase(); err != nil {
			return nil, nil, nil, err
		}
	}

	note := &crypto.Note{
		Serial:     crypto.BaseFromElement(serial),
		Value:      spec.Value,
		Token:      spec.Token,
		SpendHook:  spec.SpendHook,
		UserData:   spec.UserData,
		CoinBlind:  crypto.BaseFromElement(coinBlind),
		ValueBlind: scalarBytes(valueBlind),
		TokenBlind: scalarBytes(tokenBlind),
		Memo:       spec.Memo,
	}

	coin := crypto.CoinCommit(&spec.Recipient, spec.Value, spec.Token,
		serial, spec.SpendHook.Element(), spec.UserData.Element(), coinBlind)
	vc := crypto.ValueCommit(spec.Value, valueBlind)
	tc := crypto.TokenCommit(spec.Token, tokenBlind)

	pkx, pky := crypto.PublicCoords(&spec.Recipient)
	vcx, vcy := crypto.PointCoords(&vc)
	tcx, tcy := crypto.PointCoords(&tc)

	proof, err := zk.Prove(zk.MintCircuit, &zk.MintProof{
		Coin:        bi(coin.Element()),
		ValueCommit: sw_bls12377.G1Affine{X: bi(vcx), Y: bi(vcy)},
		TokenCommit: sw_bls12377.G1Affine{X: bi(tcx), Y: bi(tcy)},
		PkX:         bi(pkx),
		PkY:         bi(pky),
		Value:       spec.Value,
		Token:       sbi(spec.Token.Scalar()),
		Serial:      bi(serial),
		SpendHook:   bi(spec.SpendHook.Element()),
		UserData:    bi(spec.UserData.Element()),
		CoinBlind:   bi(coinBlind),
		ValueBlind:  sbi(valueBlind),
		TokenBlind:  sbi(tokenBlind),
	})
	if err != nil {
		return nil, nil, nil, err
	}

	enc, err := crypto.EncryptNote(note, &spec.Recipient)
	if err != nil {
		return nil, nil, nil, err
	}

	out := &Output{
		ValueCommit: crypto.PointBytes(&vc),
		TokenCommit: crypto.PointBytes(&tc),
		Coin:        coin,
		Note:        *enc,
	}
	return out, note, proof, nil
}

func bi(e fr.Element) *big.Int { return e.BigInt(new(big.Int)) }

func sbi(e blsfr.Element) *big.Int { return e.BigInt(new(big.Int)) }

func scalarBytes(e blsfr.Element) [32]byte {
	var out [32]byte
	copy(out[:], e.Marshal())
	return out
}
