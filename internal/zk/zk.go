// Package zk wraps the Groth16 proof system behind named circuits. Each
// contract function declares which circuits its proofs must satisfy and
// supplies the public-input vector in the circuit's fixed positional
// order; a transposed or missing element yields a non-verifying proof,
// not a decode error.
package zk

import (
	"bytes"
	"math/big"
	"os"
	"path/filepath"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	fr "github.com/consensys/gnark-crypto/ecc/bw6-761/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/std/algebra/native/sw_bls12377"
	"github.com/pkg/errors"
)

// Circuit namespaces.
const (
	MintCircuit        = "Mint_V1"
	BurnCircuit        = "Burn_V1"
	TokenMintCircuit   = "TokenMint_V1"
	TokenFreezeCircuit = "TokenFreeze_V1"
	DaoMintCircuit     = "DaoMint_V1"
	DaoProposeCircuit  = "DaoPropose_V1"
	DaoVoteCircuit     = "DaoVote_V1"
	RewardCircuit      = "Reward_V1"
)

// ProofRequest pairs a circuit namespace with the public inputs a proof
// must verify against.
type ProofRequest struct {
	Circuit string
	Public  []fr.Element
}

type circuitEntry struct {
	template func() frontend.Circuit
	public   func([]fr.Element) (frontend.Circuit, error)
}

var registry = map[string]circuitEntry{
	MintCircuit:        {template: func() frontend.Circuit { return &MintProof{} }, public: mintPublic},
	BurnCircuit:        {template: func() frontend.Circuit { return &BurnProof{} }, public: burnPublic},
	TokenMintCircuit:   {template: func() frontend.Circuit { return &TokenMintProof{} }, public: tokenMintPublic},
	TokenFreezeCircuit: {template: func() frontend.Circuit { return &TokenMintProof{} }, public: tokenMintPublic},
	DaoMintCircuit:     {template: func() frontend.Circuit { return &DaoMintProof{} }, public: daoMintPublic},
	DaoProposeCircuit:  {template: func() frontend.Circuit { return &DaoProposeProof{} }, public: daoProposePublic},
	DaoVoteCircuit:     {template: func() frontend.Circuit { return &DaoVoteProof{} }, public: daoVotePublic},
	RewardCircuit:      {template: func() frontend.Circuit { return &RewardProof{} }, public: rewardPublic},
}

type circuitKeys struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
}

var (
	keysMu    sync.Mutex
	keysCache = map[string]*circuitKeys{}
	// KeyDir, when set, persists generated keys across processes.
	KeyDir string
)

// keys compiles and sets up (or loads) the keys for a named circuit,
// caching the result. Proving and verifying keys are read-only after
// construction and safe to share across concurrent provers/verifiers.
func keys(name string) (*circuitKeys, error) {
	keysMu.Lock()
	defer keysMu.Unlock()
	if k, ok := keysCache[name]; ok {
		return k, nil
	}

	entry, ok := registry[name]
	if !ok {
		return nil, errors.Errorf("unknown circuit %q", name)
	}

	ccs, err := frontend.Compile(ecc.BW6_761.ScalarField(), r1cs.NewBuilder, entry.template())
	if err != nil {
		return nil, errors.Wrapf(err, "compile circuit %q", name)
	}

	var pk groth16.ProvingKey
	var vk groth16.VerifyingKey
	if KeyDir != "" {
		pk, vk, err = loadKeys(name)
		if err == nil {
			k := &circuitKeys{ccs: ccs, pk: pk, vk: vk}
			keysCache[name] = k
			return k, nil
		}
	}

	pk, vk, err = groth16.Setup(ccs)
	if err != nil {
		return nil, errors.Wrapf(err, "setup circuit %q", name)
	}
	if KeyDir != "" {
		if err := saveKeys(name, pk, vk); err != nil {
			return nil, err
		}
	}
	k := &circuitKeys{ccs: ccs, pk: pk, vk: vk}
	keysCache[name] = k
	return k, nil
}

func loadKeys(name string) (groth16.ProvingKey, groth16.VerifyingKey, error) {
	pkFile, err := os.Open(filepath.Join(KeyDir, name+".pk"))
	if err != nil {
		return nil, nil, err
	}
	defer pkFile.Close()
	pk := groth16.NewProvingKey(ecc.BW6_761)
	if _, err := pk.ReadFrom(pkFile); err != nil {
		return nil, nil, err
	}
	vkFile, err := os.Open(filepath.Join(KeyDir, name+".vk"))
	if err != nil {
		return nil, nil, err
	}
	defer vkFile.Close()
	vk := groth16.NewVerifyingKey(ecc.BW6_761)
	if _, err := vk.ReadFrom(vkFile); err != nil {
		return nil, nil, err
	}
	return pk, vk, nil
}

func saveKeys(name string, pk groth16.ProvingKey, vk groth16.VerifyingKey) error {
	pkFile, err := os.Create(filepath.Join(KeyDir, name+".pk"))
	if err != nil {
		return errors.Wrap(err, "save proving key")
	}
	defer pkFile.Close()
	if _, err := pk.WriteTo(pkFile); err != nil {
		return errors.Wrap(err, "save proving key")
	}
	vkFile, err := os.Create(filepath.Join(KeyDir, name+".vk"))
	if err != nil {
		return errors.Wrap(err, "save verifying key")
	}
	defer vkFile.Close()
	if _, err := vk.WriteTo(vkFile); err != nil {
		return errors.Wrap(err, "save verifying key")
	}
	return nil
}

// Prove produces a serialized Groth16 proof for a full witness
// assignment of the named circuit.
func Prove(name string, assignment frontend.Circuit) ([]byte, error) {
	k, err := keys(name)
	if err != nil {
		return nil, err
	}
	w, err := frontend.NewWitness(assignment, ecc.BW6_761.ScalarField())
	if err != nil {
		return nil, errors.Wrapf(err, "witness for %q", name)
	}
	proof, err := groth16.Prove(k.ccs, k.pk, w)
	if err != nil {
		return nil, errors.Wrapf(err, "prove %q", name)
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "serialize proof")
	}
	return buf.Bytes(), nil
}

// Verify checks a serialized proof against a positional public-input
// vector for the named circuit.
func Verify(name string, proofBytes []byte, public []fr.Element) error {
	k, err := keys(name)
	if err != nil {
		return err
	}
	entry := registry[name]
	assignment, err := entry.public(public)
	if err != nil {
		return err
	}
	w, err := frontend.NewWitness(assignment, ecc.BW6_761.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return errors.Wrapf(err, "public witness for %q", name)
	}
	proof := groth16.NewProof(ecc.BW6_761)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return errors.Wrap(err, "deserialize proof")
	}
	if err := groth16.Verify(proof, k.vk, w); err != nil {
		return errors.Wrapf(err, "verify %q", name)
	}
	return nil
}

// fv lifts a field element into a witness value.
func fv(e fr.Element) frontend.Variable {
	return e.BigInt(new(big.Int))
}

// g1Constant embeds a native point as circuit constants.
func g1Constant(p bls12377.G1Affine) sw_bls12377.G1Affine {
	return sw_bls12377.G1Affine{
		X: p.X.BigInt(new(big.Int)),
		Y: p.Y.BigInt(new(big.Int)),
	}
}

// g1Public builds a point assignment from two vector slots.
func g1Public(x, y fr.Element) sw_bls12377.G1Affine {
	return sw_bls12377.G1Affine{X: fv(x), Y: fv(y)}
}

func wantLen(name string, public []fr.Element, n int) error {
	if len(public) != n {
		return errors.Errorf("%s: want %d public inputs, got %d", name, n, len(public))
	}
	return nil
}
