// Package p2p implements the gossip layer between ledger nodes: a small
// HTTP transport carrying a typed message envelope with CBOR payloads.
package p2p

import (
	"encoding/json"
)

// Message types understood by a node.
const (
	MsgTx    = "tx"
	MsgBlock = "block"
	MsgPing  = "ping"
)

// Message is the generic envelope for anything sent over the network.
// The payload is opaque at this layer; the type tag decides how it is
// decoded.
type Message struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	SenderID string          `json:"senderId"`
}

// TxPayload carries one CBOR-encoded transaction.
type TxPayload struct {
	Tx []byte `json:"tx"`
}

// BlockPayload carries one CBOR-encoded resolved block.
type BlockPayload struct {
	Block []byte `json:"block"`
}

// PingPayload announces a node to a peer.
type PingPayload struct {
	Address string `json:"address"`
}
