package crypto

import (
	"crypto/rand"
	"math/big"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	blsfr "github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	blsmimc "github.com/consensys/gnark-crypto/ecc/bls12-377/fr/mimc"
	"github.com/consensys/gnark-crypto/ecc/bls12-377/twistededwards/eddsa"
	fr "github.com/consensys/gnark-crypto/ecc/bw6-761/fr"
	"github.com/pkg/errors"
)

// Keypair is a note-ownership keypair. The public key is a BLS12-377 G1
// point whose coordinates are bound into the coin commitment; the secret
// scalar is what nullifiers are derived from.
type Keypair struct {
	Secret blsfr.Element
	Public bls12377.G1Affine
}

// GenerateKeypair draws a fresh ownership keypair.
func GenerateKeypair() (*Keypair, error) {
	var sk blsfr.Element
	if _, err := sk.SetRandom(); err != nil {
		return nil, errors.Wrap(err, "generate keypair")
	}
	return KeypairFromSecret(sk), nil
}

// KeypairFromSecret rederives the full keypair from a secret scalar.
func KeypairFromSecret(sk blsfr.Element) *Keypair {
	var pk bls12377.G1Affine
	pk.ScalarMultiplication(&g1Gen, sk.BigInt(new(big.Int)))
	return &Keypair{Secret: sk, Public: pk}
}

// PublicCoords returns the affine coordinates of a public key as base
// field elements, the form in which they enter hash commitments.
func PublicCoords(pk *bls12377.G1Affine) (fr.Element, fr.Element) {
	var x, y fr.Element
	x.SetBytes(pk.X.Marshal())
	y.SetBytes(pk.Y.Marshal())
	return x, y
}

// ScalarToBase embeds a BLS12-377 scalar into the base field. The scalar
// field is strictly smaller, so this needs no reduction.
func ScalarToBase(s blsfr.Element) fr.Element {
	var e fr.Element
	e.SetBytes(s.Marshal())
	return e
}

// ReduceToScalar maps a base field element into the scalar field.
func ReduceToScalar(e fr.Element) blsfr.Element {
	var s blsfr.Element
	s.SetBytes(e.Marshal())
	return s
}

// NullifierFor derives the deterministic nullifier for a (secret, serial)
// pair. Publishing it marks the coin spent.
func NullifierFor(secret blsfr.Element, serial fr.Element) Nullifier {
	nf := HashElements(ScalarToBase(secret), serial)
	return Nullifier(BaseFromElement(nf))
}

// CoinCommit computes the coin bulla binding the owner key and the note's
// public-affecting fields.
func CoinCommit(pk *bls12377.G1Affine, value uint64, token TokenID, serial, spendHook, userData, coinBlind fr.Element) Coin {
	x, y := PublicCoords(pk)
	var v fr.Element
	v.SetUint64(value)
	c := HashElements(x, y, v, token.Base(), serial, spendHook, userData, coinBlind)
	return Coin(BaseFromElement(c))
}

// Scalar returns the token id as a commitment scalar.
func (t TokenID) Scalar() blsfr.Element {
	var s blsfr.Element
	s.SetBytes(t[:])
	return s
}

// Base embeds the token id into the base field for hashing.
func (t TokenID) Base() fr.Element {
	var e fr.Element
	e.SetBytes(t[:])
	return e
}

// TokenDigest is the unreduced mint-authority digest a token id is
// derived from. It is what the token mint circuit exposes publicly.
func TokenDigest(authority *bls12377.G1Affine) fr.Element {
	x, y := PublicCoords(authority)
	return HashElements(x, y)
}

// DeriveTokenID reduces the authority digest into a token id. Only the
// holder of the authority secret can prove the derivation.
func DeriveTokenID(authority *bls12377.G1Affine) TokenID {
	s := ReduceToScalar(TokenDigest(authority))
	var t TokenID
	copy(t[:], s.Marshal())
	return t
}

// NativeTokenID is the ledger's native staking token.
var NativeTokenID = func() TokenID {
	s := ReduceToScalar(HashToBase([]byte("darkfi:native-token:DRK")))
	var t TokenID
	copy(t[:], s.Marshal())
	return t
}()

// SigningKey wraps an EdDSA key over the BLS12-377 twisted Edwards curve,
// used for per-call transaction signatures.
type SigningKey struct {
	priv *eddsa.PrivateKey
}

// GenerateSigningKey draws a fresh signing key.
func GenerateSigningKey() (*SigningKey, error) {
	priv, err := eddsa.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "generate signing key")
	}
	return &SigningKey{priv: priv}, nil
}

// PublicBytes returns the compressed public key.
func (k *SigningKey) PublicBytes() []byte {
	return k.priv.PublicKey.Bytes()
}

// Sign signs a 32-byte digest. The digest is canonicalized into the
// scalar field first so the MiMC transcript is well-formed.
func (k *SigningKey) Sign(digest [32]byte) ([]byte, error) {
	var e blsfr.Element
	e.SetBytes(digest[:])
	sig, err := k.priv.Sign(e.Marshal(), blsmimc.NewMiMC())
	if err != nil {
		return nil, errors.Wrap(err, "sign digest")
	}
	return sig, nil
}

// VerifySignature checks an EdDSA signature over a 32-byte digest.
func VerifySignature(pub []byte, digest [32]byte, sig []byte) error {
	var pk eddsa.PublicKey
	if _, err := pk.SetBytes(pub); err != nil {
		return errors.Wrap(err, "decode signature public key")
	}
	var e blsfr.Element
	e.SetBytes(digest[:])
	ok, err := pk.Verify(sig, e.Marshal(), blsmimc.NewMiMC())
	if err != nil {
		return errors.Wrap(err, "verify signature")
	}
	if !ok {
		return errors.New("signature does not verify")
	}
	return nil
}
