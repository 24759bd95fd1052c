package tx

import (
	"testing"

	"github.com/deniseboyle690969/darkfi/internal/crypto"
)

func TestEncodeCall(t *testing.T) {
	type params struct {
		Value uint64 `cbor:"1,keyasint"`
	}
	data, err := EncodeCall(0x02, &params{Value: 7})
	if err != nil {
		t.Fatalf("encode call: %v", err)
	}

	call := ContractCall{ContractID: crypto.MoneyContractID, Data: data}
	fn, err := call.Function()
	if err != nil {
		t.Fatalf("function: %v", err)
	}
	if fn != 0x02 {
		t.Errorf("function = %#x, want 0x02", fn)
	}
	if _, err := call.Params(); err != nil {
		t.Errorf("params: %v", err)
	}

	empty := ContractCall{}
	if _, err := empty.Function(); err == nil {
		t.Error("empty call data yielded a function byte")
	}
}

func TestHashStableUnderSigning(t *testing.T) {
	tr := Transaction{
		Calls:  []ContractCall{{ContractID: crypto.MoneyContractID, Data: []byte{0x00, 0x01}}},
		Proofs: [][][]byte{{[]byte("proof")}},
	}
	before, err := tr.Hash()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	key, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	if err := tr.SignCall(0, []*crypto.SigningKey{key}); err != nil {
		t.Fatalf("sign call: %v", err)
	}

	after, err := tr.Hash()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if before != after {
		t.Error("signing changed the transaction digest")
	}
	if len(tr.Signatures) != 1 || len(tr.Signatures[0]) != 1 {
		t.Fatalf("signature bundles = %v, want one bundle of one", tr.Signatures)
	}
	if err := crypto.VerifySignature(key.PublicBytes(), before, tr.Signatures[0][0]); err != nil {
		t.Errorf("call signature does not verify: %v", err)
	}

	if err := tr.SignCall(3, nil); err == nil {
		t.Error("signing an out-of-bounds call succeeded")
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	tr := Transaction{
		Calls: []ContractCall{
			{ContractID: crypto.MoneyContractID, Data: []byte{0x00, 0xa1}},
			{ContractID: crypto.DAOContractID, Data: []byte{0x03, 0xa2}},
		},
		Proofs:     [][][]byte{{[]byte("p0")}, nil},
		Signatures: [][][]byte{nil, {[]byte("s1")}},
	}
	data, err := tr.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	h1, err := tr.Hash()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h2, err := got.Hash()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h1 != h2 {
		t.Error("round trip changed the transaction digest")
	}
	if len(got.Calls) != 2 || got.Calls[1].ContractID != crypto.DAOContractID {
		t.Error("round trip lost call structure")
	}
}

func TestAssemble(t *testing.T) {
	k1, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	k2, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	tr, err := Assemble(
		PartialCall{
			Call:   ContractCall{ContractID: crypto.MoneyContractID, Data: []byte{0x00}},
			Proofs: [][]byte{[]byte("burn"), []byte("mint")},
			Keys:   []*crypto.SigningKey{k1},
		},
		PartialCall{
			Call: ContractCall{ContractID: crypto.ConsensusContractID, Data: []byte{0x01}},
			Keys: []*crypto.SigningKey{k2},
		},
	)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	if len(tr.Calls) != 2 || len(tr.Proofs) != 2 || len(tr.Signatures) != 2 {
		t.Fatalf("bundle counts = %d/%d/%d, want 2/2/2",
			len(tr.Calls), len(tr.Proofs), len(tr.Signatures))
	}
	if len(tr.Proofs[0]) != 2 || len(tr.Proofs[1]) != 0 {
		t.Error("proof bundles misaligned")
	}

	digest, err := tr.Hash()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := crypto.VerifySignature(k1.PublicBytes(), digest, tr.Signatures[0][0]); err != nil {
		t.Errorf("first call signature: %v", err)
	}
	if err := crypto.VerifySignature(k2.PublicBytes(), digest, tr.Signatures[1][0]); err != nil {
		t.Errorf("second call signature: %v", err)
	}
}
