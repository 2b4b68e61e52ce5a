package network

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/libp2p/go-libp2p-core/crypto"
	"github.com/libp2p/go-libp2p-core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/paidswarm/go-piece-exchange/exchange"
	exchangeimpl "github.com/paidswarm/go-piece-exchange/exchange/impl"
	"github.com/paidswarm/go-piece-exchange/exchange/machine"
	"github.com/paidswarm/go-piece-exchange/paymentchannel"
	"github.com/paidswarm/go-piece-exchange/wire"
)

// pipeBuffer is one direction of an in-memory duplex link. Unlike net.Pipe
// it buffers writes, the way a real transport does, so both ends can
// announce before either starts reading.
type pipeBuffer struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    bytes.Buffer
	closed bool
}

func newPipeBuffer() *pipeBuffer {
	b := &pipeBuffer{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *pipeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, io.ErrClosedPipe
	}
	n, err := b.buf.Write(p)
	b.cond.Broadcast()
	return n, err
}

func (b *pipeBuffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.buf.Len() == 0 && !b.closed {
		b.cond.Wait()
	}
	if b.buf.Len() == 0 {
		return 0, io.EOF
	}
	return b.buf.Read(p)
}

func (b *pipeBuffer) close() {
	b.mu.Lock()
	b.closed = true
	b.cond.Broadcast()
	b.mu.Unlock()
}

type duplexConn struct {
	in  *pipeBuffer
	out *pipeBuffer
}

func (c *duplexConn) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c *duplexConn) Write(p []byte) (int, error) { return c.out.Write(p) }

func (c *duplexConn) Close() error {
	c.in.close()
	c.out.close()
	return nil
}

// fakeNetwork links ExchangeNetwork instances in memory.
type fakeNetwork struct {
	id       peer.ID
	delegate ExchangeReceiver
	peers    map[peer.ID]*fakeNetwork

	mu        sync.Mutex
	protected map[peer.ID]int
}

func newFakeNetwork(id peer.ID) *fakeNetwork {
	return &fakeNetwork{
		id:        id,
		peers:     make(map[peer.ID]*fakeNetwork),
		protected: make(map[peer.ID]int),
	}
}

func link(a *fakeNetwork, b *fakeNetwork) {
	a.peers[b.id] = b
	b.peers[a.id] = a
}

func (n *fakeNetwork) NewExchangeStream(ctx context.Context, p peer.ID) (ExchangeStream, error) {
	other, ok := n.peers[p]
	if !ok || other.delegate == nil {
		return nil, xerrors.Errorf("peer %s is not reachable", p)
	}

	toOther := newPipeBuffer()
	toSelf := newPipeBuffer()
	local := newExchangeStream(p, &duplexConn{in: toSelf, out: toOther})
	remote := newExchangeStream(n.id, &duplexConn{in: toOther, out: toSelf})

	other.delegate.HandleExchangeStream(remote)
	return local, nil
}

func (n *fakeNetwork) SetDelegate(r ExchangeReceiver) error {
	n.delegate = r
	return nil
}

func (n *fakeNetwork) StopHandlingRequests() error {
	n.delegate = nil
	return nil
}

func (n *fakeNetwork) ID() peer.ID { return n.id }

func (n *fakeNetwork) AddAddrs(peer.ID, []ma.Multiaddr) {}

func (n *fakeNetwork) ProtectPeer(p peer.ID) {
	n.mu.Lock()
	n.protected[p]++
	n.mu.Unlock()
}

func (n *fakeNetwork) UnprotectPeer(p peer.ID) {
	n.mu.Lock()
	n.protected[p]--
	n.mu.Unlock()
}

func sellingCallbacks(t *testing.T) exchange.SellingCallbacks[peer.ID] {
	return exchange.SellingCallbacks[peer.ID]{
		RemovedConnection: func(peer.ID, exchange.DisconnectCause) {},
		GenerateKeyPairs: func(n int) ([]crypto.PrivKey, error) {
			keys := make([]crypto.PrivKey, n)
			for i := range keys {
				priv, _, err := crypto.GenerateKeyPair(crypto.Secp256k1, 256)
				require.NoError(t, err)
				keys[i] = priv
			}
			return keys, nil
		},
		GenerateFinalAddresses: func(n int) ([]address.Address, error) {
			addrs := make([]address.Address, n)
			for i := range addrs {
				addrs[i] = address.TestAddress2
			}
			return addrs, nil
		},
		LoadPieceForBuyer:    func(peer.ID, int) {},
		ClaimLastPayment:     func(peer.ID, *paymentchannel.Payee) {},
		AnchorAnnounced:      func(peer.ID, abi.TokenAmount, wire.OutPoint, []byte, address.Address) {},
		ReceivedValidPayment: func(peer.ID, uint64, abi.TokenAmount) {},
	}
}

func announcedMode(host *SessionHost, session *exchangeimpl.Session[peer.ID], p peer.ID) machine.ModeAnnounced {
	var mode machine.ModeAnnounced
	host.Locked(func() {
		if cs, ok := session.Status().Connections[p]; ok {
			mode = cs.AnnouncedModeAndTerms.Mode
		}
	})
	return mode
}

func TestSessionHostBridgesTwoSessions(t *testing.T) {
	sellerID := peer.ID("12D3-seller")
	observerID := peer.ID("12D3-observer")

	sellerNet := newFakeNetwork(sellerID)
	observerNet := newFakeNetwork(observerID)
	link(sellerNet, observerNet)

	terms := wire.SellerTerms{
		MinPrice:      abi.NewTokenAmount(10),
		MinLock:       5,
		MaxSellers:    4,
		SettlementFee: abi.NewTokenAmount(1),
	}

	sellerSession := exchangeimpl.NewSession[peer.ID]()
	require.NoError(t, sellerSession.ToSellMode(sellingCallbacks(t), terms, 100))
	require.NoError(t, sellerSession.Start())

	observerSession := exchangeimpl.NewSession[peer.ID]()
	require.NoError(t, observerSession.ToObserveMode(exchange.ObservingCallbacks[peer.ID]{
		RemovedConnection: func(peer.ID, exchange.DisconnectCause) {},
	}))
	require.NoError(t, observerSession.Start())

	sellerHost := NewSessionHost(sellerNet, sellerSession)
	require.NoError(t, sellerHost.Start())
	observerHost := NewSessionHost(observerNet, observerSession)
	require.NoError(t, observerHost.Start())

	require.NoError(t, observerHost.Connect(context.Background(), sellerID))

	// each side learns the other's announcement through the wire
	require.Eventually(t, func() bool {
		return announcedMode(observerHost, observerSession, sellerID) == machine.ModeSell
	}, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return announcedMode(sellerHost, sellerSession, observerID) == machine.ModeObserve
	}, time.Second, 10*time.Millisecond)

	observerHost.Locked(func() {
		status := observerSession.Status().Connections[sellerID]
		assert.True(t, status.AnnouncedModeAndTerms.SellerTerms.Equals(terms))
	})

	// both ends protected their peer while the stream is up
	assert.Equal(t, 1, sellerNet.protectedCount(observerID))
	assert.Equal(t, 1, observerNet.protectedCount(sellerID))

	// a second stream for the same peer is refused
	require.Error(t, observerHost.Connect(context.Background(), sellerID))

	// tearing one host down drains the other side's connection too
	require.NoError(t, observerHost.Stop())
	require.Eventually(t, func() bool {
		var connections int
		sellerHost.Locked(func() {
			connections = len(sellerSession.Status().Connections)
		})
		return connections == 0
	}, time.Second, 10*time.Millisecond)

	// the observer's own read loop detaches as its stream drains
	require.Eventually(t, func() bool {
		var connections int
		observerHost.Locked(func() {
			connections = len(observerSession.Status().Connections)
		})
		return connections == 0 && observerNet.protectedCount(sellerID) == 0
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, sellerHost.Stop())
}

func (n *fakeNetwork) protectedCount(p peer.ID) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.protected[p]
}
