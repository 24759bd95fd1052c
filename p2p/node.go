package p2p

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"go.uber.org/zap"

	"github.com/deniseboyle690969/darkfi/internal/blockchain"
	"github.com/deniseboyle690969/darkfi/internal/tx"
)

// Ledger is what a node needs from the validation layer: transactions
// and blocks arriving from peers are handed here.
type Ledger interface {
	AddTransactions(txs []tx.Transaction) error
	AddBlock(info *blockchain.BlockInfo) error
}

// Node is one gossip participant. It serves /message over HTTP and
// relays transactions and blocks to its peer directory.
type Node struct {
	ID      string
	Address string

	mu      sync.RWMutex
	peers   map[string]string // peer ID to address
	ledger  Ledger
	logger  *zap.Logger
	limiter *PeerRateLimiter
	server  *http.Server
	mux     *http.ServeMux
	wg      sync.WaitGroup
	client  *http.Client
}

// NewNode creates a node with the given peer directory. Incoming
// messages are applied to the ledger.
func NewNode(id, address string, peers map[string]string, ledger Ledger, logger *zap.Logger) *Node {
	if peers == nil {
		peers = make(map[string]string)
	}
	n := &Node{
		ID:      id,
		Address: address,
		peers:   peers,
		ledger:  ledger,
		logger:  logger,
		limiter: NewPeerRateLimiter(100, 10, time.Second),
		mux:     http.NewServeMux(),
		client:  &http.Client{Timeout: 5 * time.Second},
	}
	n.mux.HandleFunc("/message", n.messageHandler)
	return n
}

// SetRateLimit replaces the per-peer rate limiter parameters. Call it
// before Start; buckets already handed out keep the old settings.
func (n *Node) SetRateLimit(burst, refill int, period time.Duration) {
	n.limiter = NewPeerRateLimiter(burst, refill, period)
}

// Handle registers an extra HTTP handler on the node's listener, for
// endpoints like health and metrics.
func (n *Node) Handle(pattern string, handler http.Handler) {
	n.mux.Handle(pattern, handler)
}

// AddPeer adds or updates a peer in the directory.
func (n *Node) AddPeer(id, address string) {
	n.mu.Lock()
	n.peers[id] = address
	n.mu.Unlock()
}

// Peers returns a copy of the peer directory.
func (n *Node) Peers() map[string]string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make(map[string]string, len(n.peers))
	for id, addr := range n.peers {
		out[id] = addr
	}
	return out
}

func (n *Node) messageHandler(w http.ResponseWriter, r *http.Request) {
	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if !n.limiter.Allow(msg.SenderID) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
		n.logger.Warn("peer rate limited", zap.String("peer", msg.SenderID))
		return
	}

	n.logger.Debug("message received",
		zap.String("type", msg.Type),
		zap.String("peer", msg.SenderID))

	switch msg.Type {
	case MsgTx:
		var payload TxPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			http.Error(w, "bad tx payload", http.StatusBadRequest)
			return
		}
		var t tx.Transaction
		if err := cbor.Unmarshal(payload.Tx, &t); err != nil {
			http.Error(w, "bad tx encoding", http.StatusBadRequest)
			return
		}
		if err := n.ledger.AddTransactions([]tx.Transaction{t}); err != nil {
			n.logger.Warn("transaction rejected",
				zap.String("peer", msg.SenderID), zap.Error(err))
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}

	case MsgBlock:
		var payload BlockPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			http.Error(w, "bad block payload", http.StatusBadRequest)
			return
		}
		var info blockchain.BlockInfo
		if err := cbor.Unmarshal(payload.Block, &info); err != nil {
			http.Error(w, "bad block encoding", http.StatusBadRequest)
			return
		}
		if err := n.ledger.AddBlock(&info); err != nil {
			n.logger.Warn("block rejected",
				zap.String("peer", msg.SenderID), zap.Error(err))
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}

	case MsgPing:
		var payload PingPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			http.Error(w, "bad ping payload", http.StatusBadRequest)
			return
		}
		if payload.Address != "" {
			n.AddPeer(msg.SenderID, payload.Address)
		}

	default:
		n.logger.Debug("unknown message type", zap.String("type", msg.Type))
	}

	w.WriteHeader(http.StatusOK)
}

// Start begins serving on the node's address. It signals on ready once
// the listener is accepting connections.
func (n *Node) Start(ready chan<- struct{}) error {
	listener, err := net.Listen("tcp", n.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", n.Address, err)
	}
	n.Address = listener.Addr().String()

	n.server = &http.Server{Handler: n.mux}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.logger.Info("node listening", zap.String("address", n.Address))
		if ready != nil {
			ready <- struct{}{}
		}
		if err := n.server.Serve(listener); err != http.ErrServerClosed {
			n.logger.Error("server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown stops the server and waits for the serve goroutine.
func (n *Node) Shutdown(ctx context.Context) error {
	if n.server == nil {
		return nil
	}
	err := n.server.Shutdown(ctx)
	n.wg.Wait()
	return err
}

// BroadcastTx relays a transaction to every peer.
func (n *Node) BroadcastTx(t *tx.Transaction) error {
	data, err := cbor.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}
	return n.broadcast(MsgTx, TxPayload{Tx: data})
}

// BroadcastBlock relays a resolved block to every peer.
func (n *Node) BroadcastBlock(info *blockchain.BlockInfo) error {
	data, err := cbor.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode block: %w", err)
	}
	return n.broadcast(MsgBlock, BlockPayload{Block: data})
}

// Ping announces this node to every peer so they learn its address.
func (n *Node) Ping() error {
	return n.broadcast(MsgPing, PingPayload{Address: n.Address})
}

func (n *Node) broadcast(msgType string, payload interface{}) error {
	var firstErr error
	for id, addr := range n.Peers() {
		if err := n.send(addr, msgType, payload); err != nil {
			n.logger.Warn("broadcast failed",
				zap.String("peer", id), zap.String("type", msgType), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// SendMessage sends one message to a named peer.
func (n *Node) SendMessage(targetID, msgType string, payload interface{}) error {
	n.mu.RLock()
	addr, ok := n.peers[targetID]
	n.mu.RUnlock()
	if !ok {
		return fmt.Errorf("peer %q not found in directory", targetID)
	}
	return n.send(addr, msgType, payload)
}

func (n *Node) send(addr, msgType string, payload interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	msg := Message{Type: msgType, Payload: payloadBytes, SenderID: n.ID}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, "http://"+addr+"/message", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("peer returned %s", resp.Status)
	}
	return nil
}
