package p2p

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/deniseboyle690969/darkfi/internal/blockchain"
	"github.com/deniseboyle690969/darkfi/internal/crypto"
	"github.com/deniseboyle690969/darkfi/internal/tx"
)

// fakeLedger records whatever arrives from peers.
type fakeLedger struct {
	mu     sync.Mutex
	txs    []tx.Transaction
	blocks []*blockchain.BlockInfo
}

func (f *fakeLedger) AddTransactions(txs []tx.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs = append(f.txs, txs...)
	return nil
}

func (f *fakeLedger) AddBlock(info *blockchain.BlockInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocks = append(f.blocks, info)
	return nil
}

func (f *fakeLedger) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.txs), len(f.blocks)
}

func startNode(t *testing.T, id string, ledger Ledger) *Node {
	t.Helper()
	n := NewNode(id, "127.0.0.1:0", nil, ledger, zap.NewNop())
	ready := make(chan struct{}, 1)
	if err := n.Start(ready); err != nil {
		t.Fatalf("start %s: %v", id, err)
	}
	<-ready
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = n.Shutdown(ctx)
	})
	return n
}

func TestBroadcastTxAndBlock(t *testing.T) {
	ledgerA := &fakeLedger{}
	ledgerB := &fakeLedger{}
	a := startNode(t, "a", ledgerA)
	b := startNode(t, "b", ledgerB)
	a.AddPeer("b", b.Address)

	txn := &tx.Transaction{
		Calls:      []tx.ContractCall{{ContractID: crypto.MoneyContractID, Data: []byte{0x00}}},
		Proofs:     [][][]byte{nil},
		Signatures: [][][]byte{nil},
	}
	if err := a.BroadcastTx(txn); err != nil {
		t.Fatalf("broadcast tx: %v", err)
	}

	info := &blockchain.BlockInfo{
		Header: blockchain.Header{Version: 1, Slot: 3},
	}
	if err := a.BroadcastBlock(info); err != nil {
		t.Fatalf("broadcast block: %v", err)
	}

	gotTxs, gotBlocks := ledgerB.counts()
	if gotTxs != 1 {
		t.Errorf("peer received %d txs, want 1", gotTxs)
	}
	if gotBlocks != 1 {
		t.Errorf("peer received %d blocks, want 1", gotBlocks)
	}
	ledgerB.mu.Lock()
	if len(ledgerB.blocks) == 1 && ledgerB.blocks[0].Header.Slot != 3 {
		t.Errorf("block slot = %d, want 3", ledgerB.blocks[0].Header.Slot)
	}
	ledgerB.mu.Unlock()

	// Nothing should have flowed back to the sender.
	if n, _ := ledgerA.counts(); n != 0 {
		t.Errorf("sender ledger received %d txs", n)
	}
}

func TestPingRegistersPeer(t *testing.T) {
	a := startNode(t, "a", &fakeLedger{})
	b := startNode(t, "b", &fakeLedger{})
	a.AddPeer("b", b.Address)

	if _, ok := b.Peers()["a"]; ok {
		t.Fatal("b already knows a")
	}
	if err := a.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if addr, ok := b.Peers()["a"]; !ok || addr != a.Address {
		t.Errorf("b's directory for a = %q, want %q", addr, a.Address)
	}
}

func TestSendToUnknownPeer(t *testing.T) {
	a := startNode(t, "a", &fakeLedger{})
	if err := a.SendMessage("ghost", MsgPing, PingPayload{}); err == nil {
		t.Error("sending to an unknown peer succeeded")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3, 1, time.Hour)
	for i := 0; i < 3; i++ {
		if !rl.Allow() {
			t.Fatalf("request %d denied within burst", i)
		}
	}
	if rl.Allow() {
		t.Error("request allowed past the burst")
	}
	rl.Reset()
	if !rl.Allow() {
		t.Error("request denied after reset")
	}

	prl := NewPeerRateLimiter(1, 1, time.Hour)
	if !prl.Allow("x") {
		t.Error("first request for x denied")
	}
	if prl.Allow("x") {
		t.Error("second request for x allowed")
	}
	// Buckets are per peer.
	if !prl.Allow("y") {
		t.Error("first request for y denied")
	}
}
