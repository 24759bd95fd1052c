package crypto

import (
	"bytes"
	"testing"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
)

func TestHashElements(t *testing.T) {
	a, err := RandomBase()
	if err != nil {
		t.Fatalf("random element: %v", err)
	}
	b, err := RandomBase()
	if err != nil {
		t.Fatalf("random element: %v", err)
	}

	h1 := HashElements(a, b)
	h2 := HashElements(a, b)
	if !h1.Equal(&h2) {
		t.Error("hash is not deterministic")
	}

	h3 := HashElements(b, a)
	if h1.Equal(&h3) {
		t.Error("hash ignores input order")
	}
}

func TestNullifierDeterminism(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	serial, err := RandomBase()
	if err != nil {
		t.Fatalf("random serial: %v", err)
	}

	n1 := NullifierFor(kp.Secret, serial)
	n2 := NullifierFor(kp.Secret, serial)
	if n1 != n2 {
		t.Error("nullifier is not deterministic")
	}

	other, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	n3 := NullifierFor(other.Secret, serial)
	if n1 == n3 {
		t.Error("different secrets produced the same nullifier")
	}

	serial2, err := RandomBase()
	if err != nil {
		t.Fatalf("random serial: %v", err)
	}
	n4 := NullifierFor(kp.Secret, serial2)
	if n1 == n4 {
		t.Error("different serials produced the same nullifier")
	}
}

func TestCoinCommitBindsAllFields(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	serial, _ := RandomBase()
	blind, _ := RandomBase()
	hook, _ := RandomBase()
	userData, _ := RandomBase()

	c1 := CoinCommit(&kp.Public, 100, NativeTokenID, serial, hook, userData, blind)
	c2 := CoinCommit(&kp.Public, 100, NativeTokenID, serial, hook, userData, blind)
	if c1 != c2 {
		t.Error("coin commitment is not deterministic")
	}

	c3 := CoinCommit(&kp.Public, 101, NativeTokenID, serial, hook, userData, blind)
	if c1 == c3 {
		t.Error("value does not affect the coin commitment")
	}

	other, _ := GenerateKeypair()
	c4 := CoinCommit(&other.Public, 100, NativeTokenID, serial, hook, userData, blind)
	if c1 == c4 {
		t.Error("owner key does not affect the coin commitment")
	}
}

func TestPedersenHomomorphism(t *testing.T) {
	b1, _ := RandomBlind()
	b2, _ := RandomBlind()

	// The output blind is the sum of the input blinds, so the
	// commitments must balance without revealing the values.
	outBlind := b1
	outBlind.Add(&outBlind, &b2)

	in1 := ValueCommit(60, b1)
	in2 := ValueCommit(40, b2)
	out := ValueCommit(100, outBlind)

	if !CommitmentsBalance(
		[]bls12377.G1Affine{in1, in2},
		[]bls12377.G1Affine{out},
	) {
		t.Error("balanced commitments do not sum")
	}

	bad := ValueCommit(99, outBlind)
	if CommitmentsBalance(
		[]bls12377.G1Affine{in1, in2},
		[]bls12377.G1Affine{bad},
	) {
		t.Error("unbalanced commitments sum")
	}
}

func TestTokenCommitEquality(t *testing.T) {
	blind, _ := RandomBlind()
	tc1 := TokenCommit(NativeTokenID, blind)
	tc2 := TokenCommit(NativeTokenID, blind)
	if !tc1.Equal(&tc2) {
		t.Error("token commitments with the same blind differ")
	}

	other, _ := RandomBlind()
	tc3 := TokenCommit(NativeTokenID, other)
	if tc1.Equal(&tc3) {
		t.Error("token commitments with different blinds collide")
	}
}

func TestPointRoundTrips(t *testing.T) {
	blind, _ := RandomBlind()
	p := ValueCommit(42, blind)

	raw := PointBytes(&p)
	back, err := PointFromBytes(raw)
	if err != nil {
		t.Fatalf("decode point: %v", err)
	}
	if !p.Equal(&back) {
		t.Error("compressed round trip changed the point")
	}

	x, y := PointCoords(&p)
	fromCoords, err := PointFromCoords(BaseFromElement(x), BaseFromElement(y))
	if err != nil {
		t.Fatalf("decode coords: %v", err)
	}
	if !p.Equal(&fromCoords) {
		t.Error("coordinate round trip changed the point")
	}
}

func TestDeriveTokenID(t *testing.T) {
	authority, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	t1 := DeriveTokenID(&authority.Public)
	t2 := DeriveTokenID(&authority.Public)
	if t1 != t2 {
		t.Error("token derivation is not deterministic")
	}

	other, _ := GenerateKeypair()
	t3 := DeriveTokenID(&other.Public)
	if t1 == t3 {
		t.Error("different authorities derived the same token")
	}
	if t1 == NativeTokenID {
		t.Error("derived token collides with the native token")
	}
}

func TestNoteEncryption(t *testing.T) {
	recipient, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	serial, _ := RandomBase()
	coinBlind, _ := RandomBase()
	note := &Note{
		Serial:    BaseFromElement(serial),
		Value:     1234,
		Token:     NativeTokenID,
		CoinBlind: BaseFromElement(coinBlind),
		Memo:      []byte("payment"),
	}

	enc, err := EncryptNote(note, &recipient.Public)
	if err != nil {
		t.Fatalf("encrypt note: %v", err)
	}

	got, ok := DecryptNote(enc, recipient.Secret)
	if !ok {
		t.Fatal("recipient cannot decrypt own note")
	}
	if got.Value != note.Value || got.Serial != note.Serial || got.Token != note.Token {
		t.Error("decrypted note fields differ")
	}
	if !bytes.Equal(got.Memo, note.Memo) {
		t.Error("decrypted memo differs")
	}

	stranger, _ := GenerateKeypair()
	if _, ok := DecryptNote(enc, stranger.Secret); ok {
		t.Error("stranger decrypted the note")
	}

	// Ciphertext tampering must not open.
	enc.Ciphertext[0] ^= 0x01
	if _, ok := DecryptNote(enc, recipient.Secret); ok {
		t.Error("tampered note decrypted")
	}
}

func TestSealBytes(t *testing.T) {
	recipient, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	payload := []byte("arbitrary sealed payload")

	enc, err := SealBytes(payload, &recipient.Public)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	got, ok := OpenBytes(enc, recipient.Secret)
	if !ok {
		t.Fatal("recipient cannot open payload")
	}
	if !bytes.Equal(got, payload) {
		t.Error("opened payload differs")
	}
}

func TestSignatures(t *testing.T) {
	key, err := GenerateSigningKey()
	if err != nil {
		t.Fatalf("generate signing key: %v", err)
	}
	var digest [32]byte
	copy(digest[:], []byte("transaction digest under test..."))

	sig, err := key.Sign(digest)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := VerifySignature(key.PublicBytes(), digest, sig); err != nil {
		t.Errorf("valid signature rejected: %v", err)
	}

	var tampered [32]byte
	copy(tampered[:], digest[:])
	tampered[0] ^= 0x01
	if err := VerifySignature(key.PublicBytes(), tampered, sig); err == nil {
		t.Error("signature verified against a different digest")
	}

	other, _ := GenerateSigningKey()
	if err := VerifySignature(other.PublicBytes(), digest, sig); err == nil {
		t.Error("signature verified under a different key")
	}
}

func TestContractIDs(t *testing.T) {
	ids := map[string]ContractID{
		"money":     MoneyContractID,
		"consensus": ConsensusContractID,
		"dao":       DAOContractID,
	}
	seen := map[ContractID]string{}
	for name, id := range ids {
		if prev, dup := seen[id]; dup {
			t.Errorf("contract ids for %s and %s collide", name, prev)
		}
		seen[id] = name
		if id != ContractIDFromName(name) {
			t.Errorf("contract id for %s is not stable", name)
		}
	}
}
