package crypto

import (
	fr "github.com/consensys/gnark-crypto/ecc/bw6-761/fr"
	"github.com/consensys/gnark-crypto/ecc/bw6-761/fr/mimc"
	"github.com/zeebo/blake3"
)

// HashElements hashes field elements with MiMC. Every input is written as
// a canonical full-width block so the digest matches the in-circuit MiMC
// gadget fed the same elements in the same order.
func HashElements(elems ...fr.Element) fr.Element {
	h := mimc.NewMiMC()
	for i := range elems {
		// Marshal always yields a reduced, block-sized representation.
		if _, err := h.Write(elems[i].Marshal()); err != nil {
			panic(err)
		}
	}
	var out fr.Element
	out.SetBytes(h.Sum(nil))
	return out
}

// RandomBase draws a uniform base field element, used for serials,
// coin blinds and user-data blinds.
func RandomBase() (fr.Element, error) {
	var e fr.Element
	if _, err := e.SetRandom(); err != nil {
		return e, err
	}
	return e, nil
}

// HashToBase maps arbitrary bytes into the base field via blake3.
func HashToBase(data []byte) fr.Element {
	digest := blake3.Sum256(data)
	var e fr.Element
	e.SetBytes(digest[:])
	return e
}

// ContractIDFromName derives a deterministic contract id from a
// human-readable deployment name.
func ContractIDFromName(name string) ContractID {
	e := HashToBase([]byte("darkfi:contract-id:" + name))
	return ContractID(BaseFromElement(e))
}

// Well-known contract ids.
var (
	MoneyContractID     = ContractIDFromName("money")
	ConsensusContractID = ContractIDFromName("consensus")
	DAOContractID       = ContractIDFromName("dao")
)
