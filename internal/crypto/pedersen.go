package crypto

import (
	"math/big"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	blsfr "github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	fr "github.com/consensys/gnark-crypto/ecc/bw6-761/fr"
	"github.com/pkg/errors"
)

// Pedersen commitments hide values and token ids behind BLS12-377 G1
// points: Commit(v, b) = v*G + b*H. G is the canonical group generator;
// H is derived by hash-to-curve so its discrete log is unknown.
var (
	g1Gen       bls12377.G1Affine
	g1BlindBase bls12377.G1Affine
)

func init() {
	_, _, g1Gen, _ = bls12377.Generators()
	h, err := bls12377.HashToG1([]byte("darkfi:pedersen:blind"), []byte("DARKFI_PEDERSEN_V1"))
	if err != nil {
		panic(err)
	}
	g1BlindBase = h
}

// PedersenGenerators exposes (G, H) for circuit construction.
func PedersenGenerators() (bls12377.G1Affine, bls12377.G1Affine) {
	return g1Gen, g1BlindBase
}

// RandomBlind draws a fresh blinding scalar.
func RandomBlind() (blsfr.Element, error) {
	var b blsfr.Element
	if _, err := b.SetRandom(); err != nil {
		return b, errors.Wrap(err, "random blind")
	}
	return b, nil
}

// PedersenCommit commits to an arbitrary scalar.
func PedersenCommit(value, blind blsfr.Element) bls12377.G1Affine {
	var vg, bh bls12377.G1Affine
	vg.ScalarMultiplication(&g1Gen, value.BigInt(new(big.Int)))
	bh.ScalarMultiplication(&g1BlindBase, blind.BigInt(new(big.Int)))
	return AddPoints(&vg, &bh)
}

// ValueCommit commits to a 64-bit value.
func ValueCommit(value uint64, blind blsfr.Element) bls12377.G1Affine {
	var v blsfr.Element
	v.SetUint64(value)
	return PedersenCommit(v, blind)
}

// TokenCommit commits to a token id.
func TokenCommit(token TokenID, blind blsfr.Element) bls12377.G1Affine {
	return PedersenCommit(token.Scalar(), blind)
}

// AddPoints adds two affine points.
func AddPoints(a, b *bls12377.G1Affine) bls12377.G1Affine {
	var acc bls12377.G1Jac
	acc.FromAffine(a)
	acc.AddMixed(b)
	var out bls12377.G1Affine
	out.FromJacobian(&acc)
	return out
}

// SumPoints folds a list of points. An empty sum is the identity.
func SumPoints(points []bls12377.G1Affine) bls12377.G1Affine {
	var acc bls12377.G1Jac
	for i := range points {
		acc.AddMixed(&points[i])
	}
	var out bls12377.G1Affine
	out.FromJacobian(&acc)
	return out
}

// CommitmentsBalance checks the homomorphic conservation identity:
// the sum of input commitments equals the sum of output commitments.
// Plaintext totals never enter this check.
func CommitmentsBalance(inputs, outputs []bls12377.G1Affine) bool {
	in := SumPoints(inputs)
	out := SumPoints(outputs)
	return in.Equal(&out)
}

// PointCoords returns affine coordinates as base field elements, the
// representation used in public-input vectors.
func PointCoords(p *bls12377.G1Affine) (fr.Element, fr.Element) {
	return PublicCoords(p)
}

// PointBytes serializes a point in compressed form.
func PointBytes(p *bls12377.G1Affine) [48]byte {
	return p.Bytes()
}

// PointFromBytes decodes a compressed point.
func PointFromBytes(b [48]byte) (bls12377.G1Affine, error) {
	var p bls12377.G1Affine
	if _, err := p.SetBytes(b[:]); err != nil {
		return p, errors.Wrap(err, "decode commitment point")
	}
	return p, nil
}

// PointFromCoords rebuilds an affine point from serialized coordinates.
func PointFromCoords(x, y Base) (bls12377.G1Affine, error) {
	var p bls12377.G1Affine
	if err := p.X.SetBytesCanonical(x[:]); err != nil {
		return p, errors.Wrap(err, "decode point x")
	}
	if err := p.Y.SetBytesCanonical(y[:]); err != nil {
		return p, errors.Wrap(err, "decode point y")
	}
	if !p.IsOnCurve() {
		return p, errors.New("point not on curve")
	}
	return p, nil
}
