package crypto

import (
	"crypto/rand"
	"math/big"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	blsfr "github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/chacha20poly1305"
)

// Note is the plaintext form of a confidential output. The recipient owns
// it once decrypted; everything the ledger sees is derived from it.
type Note struct {
	Serial     Base     `cbor:"1,keyasint"`
	Value      uint64   `cbor:"2,keyasint"`
	Token      TokenID  `cbor:"3,keyasint"`
	SpendHook  Base     `cbor:"4,keyasint"`
	UserData   Base     `cbor:"5,keyasint"`
	CoinBlind  Base     `cbor:"6,keyasint"`
	ValueBlind [32]byte `cbor:"7,keyasint"`
	TokenBlind [32]byte `cbor:"8,keyasint"`
	Memo       []byte   `cbor:"9,keyasint,omitempty"`
}

// ValueBlindScalar decodes the value blind.
func (n *Note) ValueBlindScalar() blsfr.Element {
	var s blsfr.Element
	s.SetBytes(n.ValueBlind[:])
	return s
}

// TokenBlindScalar decodes the token blind.
func (n *Note) TokenBlindScalar() blsfr.Element {
	var s blsfr.Element
	s.SetBytes(n.TokenBlind[:])
	return s
}

// EncryptedNote is a note sealed for its recipient. It travels on-chain;
// only the holder of the matching secret key can open it.
type EncryptedNote struct {
	Ephemeral  [48]byte `cbor:"1,keyasint"`
	Nonce      [24]byte `cbor:"2,keyasint"`
	Ciphertext []byte   `cbor:"3,keyasint"`
}

// noteKey derives the AEAD key from a DH shared point.
func noteKey(shared *bls12377.G1Affine) [32]byte {
	raw := shared.Bytes()
	return blake3.Sum256(raw[:])
}

// EncryptNote seals a note under the recipient's public key using an
// ephemeral DH exchange and XChaCha20-Poly1305.
func EncryptNote(note *Note, recipient *bls12377.G1Affine) (*EncryptedNote, error) {
	plaintext, err := cbor.Marshal(note)
	if err != nil {
		return nil, errors.Wrap(err, "encode note")
	}
	return SealBytes(plaintext, recipient)
}

// SealBytes seals an arbitrary payload for a recipient. Governance uses
// it for proposal and ballot blobs that are not coin notes.
func SealBytes(plaintext []byte, recipient *bls12377.G1Affine) (*EncryptedNote, error) {
	var esk blsfr.Element
	if _, err := esk.SetRandom(); err != nil {
		return nil, errors.Wrap(err, "ephemeral key")
	}
	var epk, shared bls12377.G1Affine
	epk.ScalarMultiplication(&g1Gen, esk.BigInt(new(big.Int)))
	shared.ScalarMultiplication(recipient, esk.BigInt(new(big.Int)))

	key := noteKey(&shared)
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, errors.Wrap(err, "aead init")
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, errors.Wrap(err, "nonce")
	}

	return &EncryptedNote{
		Ephemeral:  epk.Bytes(),
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce[:], plaintext, nil),
	}, nil
}

// DecryptNote attempts to open a sealed note. ok=false means the note is
// simply not addressed to this key; it is the normal outcome when
// scanning the ledger, not evidence of tampering.
func DecryptNote(enc *EncryptedNote, secret blsfr.Element) (note *Note, ok bool) {
	plaintext, ok := OpenBytes(enc, secret)
	if !ok {
		return nil, false
	}
	var n Note
	if err := cbor.Unmarshal(plaintext, &n); err != nil {
		return nil, false
	}
	return &n, true
}

// OpenBytes attempts to open a sealed payload. ok=false means it is not
// addressed to this key.
func OpenBytes(enc *EncryptedNote, secret blsfr.Element) ([]byte, bool) {
	var epk bls12377.G1Affine
	if _, err := epk.SetBytes(enc.Ephemeral[:]); err != nil {
		return nil, false
	}
	var shared bls12377.G1Affine
	shared.ScalarMultiplication(&epk, secret.BigInt(new(big.Int)))

	key := noteKey(&shared)
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, false
	}
	plaintext, err := aead.Open(nil, enc.Nonce[:], enc.Ciphertext, nil)
	if err != nil {
		return nil, false
	}
	return plaintext, true
}
