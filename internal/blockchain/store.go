package blockchain

import (
	"encoding/binary"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"

	"github.com/deniseboyle690969/darkfi/internal/crypto"
)

// Sentinel errors surfaced by the store. ErrKeyExists is the uniqueness
// constraint violation the pipeline interprets as a duplicate coin or
// nullifier.
var (
	ErrKeyNotFound   = errors.New("key not found")
	ErrKeyExists     = errors.New("key already exists")
	ErrBlockNotFound = errors.New("block not found")
	ErrEmptyChain    = errors.New("chain has no blocks")
)

// Key prefixes. One keyspace per logical tree, like the sled trees of the
// reference layout.
var (
	prefixHeader = []byte("hdr/")
	prefixBlock  = []byte("blk/")
	prefixOrder  = []byte("ord/")
	prefixTx     = []byte("txn/")
	prefixState  = []byte("st/")
)

func headerKey(h BlockHash) []byte { return append(append([]byte{}, prefixHeader...), h[:]...) }
func blockKey(h BlockHash) []byte  { return append(append([]byte{}, prefixBlock...), h[:]...) }
func txKey(h [32]byte) []byte      { return append(append([]byte{}, prefixTx...), h[:]...) }

func orderKey(slot uint64) []byte {
	k := append([]byte{}, prefixOrder...)
	var be [8]byte
	binary.BigEndian.PutUint64(be[:], slot)
	return append(k, be[:]...)
}

// stateKey namespaces a per-contract table entry.
func stateKey(cid crypto.ContractID, table string, key []byte) []byte {
	k := append([]byte{}, prefixState...)
	k = append(k, cid[:]...)
	k = append(k, '/')
	k = append(k, table...)
	k = append(k, '/')
	return append(k, key...)
}

// get reads a key from pebble, translating pebble.ErrNotFound.
func get(reader pebble.Reader, key []byte) ([]byte, error) {
	val, closer, err := reader.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, errors.Wrap(err, "store get")
	}
	out := append([]byte{}, val...)
	if err := closer.Close(); err != nil {
		return nil, errors.Wrap(err, "store get close")
	}
	return out, nil
}
