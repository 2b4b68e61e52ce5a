package network

import (
	"context"
	"sync"

	"github.com/libp2p/go-libp2p-core/peer"
	"golang.org/x/xerrors"

	"github.com/paidswarm/go-piece-exchange/exchange"
	"github.com/paidswarm/go-piece-exchange/wire"
)

// ConnectedSession is the slice of the session surface the host adapter
// drives: one connection per remote peer, keyed by peer ID.
type ConnectedSession interface {
	AddConnection(id peer.ID, send exchange.SendMessage) (int, error)
	RemoveConnection(id peer.ID) error
	ProcessMessageOnConnection(id peer.ID, msg wire.Message) error
	Tick()
}

// SessionHost bridges an ExchangeNetwork into a session: every stream
// becomes a session connection whose outbound slot writes to the stream,
// and whose inbound messages are pumped into the session.
//
// The session core is single threaded, so the host funnels every stream's
// read loop through one lock. Application code that needs to call the
// session directly (mode changes, status, lifecycle) must do so through
// Locked; Tick is pre-wrapped. Session callbacks fire while the lock is
// held, so they must not call back into the host.
type SessionHost struct {
	network ExchangeNetwork
	session ConnectedSession

	lk      sync.Mutex
	streams map[peer.ID]ExchangeStream
}

// NewSessionHost creates a host bridging the given network into the given
// session.
func NewSessionHost(network ExchangeNetwork, session ConnectedSession) *SessionHost {
	return &SessionHost{
		network: network,
		session: session,
		streams: make(map[peer.ID]ExchangeStream),
	}
}

// Start begins accepting inbound exchange streams.
func (h *SessionHost) Start() error {
	return h.network.SetDelegate(h)
}

// Stop stops accepting inbound streams and closes every open one. Each
// read loop then detaches its session connection as it drains.
func (h *SessionHost) Stop() error {
	err := h.network.StopHandlingRequests()

	h.lk.Lock()
	streams := make([]ExchangeStream, 0, len(h.streams))
	for _, s := range h.streams {
		streams = append(streams, s)
	}
	h.lk.Unlock()

	for _, s := range streams {
		_ = s.Close()
	}
	return err
}

// Connect dials a peer and attaches the stream as a session connection.
func (h *SessionHost) Connect(ctx context.Context, p peer.ID) error {
	s, err := h.network.NewExchangeStream(ctx, p)
	if err != nil {
		return err
	}
	if err := h.attach(s); err != nil {
		_ = s.Close()
		return err
	}
	return nil
}

// HandleExchangeStream attaches an inbound stream.
func (h *SessionHost) HandleExchangeStream(s ExchangeStream) {
	if err := h.attach(s); err != nil {
		log.Warnf("attaching exchange stream from %s: %s", s.RemotePeer(), err)
		_ = s.Close()
	}
}

// Tick drives the session's timers under the host's lock.
func (h *SessionHost) Tick() {
	h.lk.Lock()
	defer h.lk.Unlock()
	h.session.Tick()
}

// Locked runs f under the lock that serializes session entry points. Use it
// for every direct session call made while the host is running.
func (h *SessionHost) Locked(f func()) {
	h.lk.Lock()
	defer h.lk.Unlock()
	f()
}

func (h *SessionHost) attach(s ExchangeStream) error {
	p := s.RemotePeer()

	h.lk.Lock()
	if _, ok := h.streams[p]; ok {
		h.lk.Unlock()
		return xerrors.Errorf("peer %s already has an exchange stream", p)
	}

	_, err := h.session.AddConnection(p, func(msg wire.Message) {
		if err := s.WriteMessage(msg); err != nil {
			log.Warnf("writing %s to %s: %s", msg.Type(), p, err)
		}
	})
	if err != nil {
		h.lk.Unlock()
		return err
	}
	h.streams[p] = s
	h.lk.Unlock()

	h.network.ProtectPeer(p)
	go h.readLoop(p, s)
	return nil
}

func (h *SessionHost) readLoop(p peer.ID, s ExchangeStream) {
	for {
		msg, err := s.ReadMessage()
		if err != nil {
			h.detach(p, s)
			return
		}

		h.lk.Lock()
		err = h.session.ProcessMessageOnConnection(p, msg)
		h.lk.Unlock()
		if err != nil {
			// the session no longer knows this connection; the machine
			// dropped it
			h.detach(p, s)
			return
		}
	}
}

// detach tears one stream down and removes its session connection, unless
// another stream already took the peer's slot.
func (h *SessionHost) detach(p peer.ID, s ExchangeStream) {
	h.lk.Lock()
	if h.streams[p] == s {
		delete(h.streams, p)
		// the session may have dropped the connection already
		_ = h.session.RemoveConnection(p)
	}
	h.lk.Unlock()

	h.network.UnprotectPeer(p)
	_ = s.Close()
}
