package network

import (
	"context"

	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p-core/peer"
	"github.com/libp2p/go-libp2p-core/protocol"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/paidswarm/go-piece-exchange/wire"
)

// BaseProtocolID is the prefix of every per-torrent exchange protocol.
const BaseProtocolID = protocol.ID("/paidswarm/piece-exchange/1.0.0")

// ExchangeProtocolID derives the protocol ID for one torrent.
func ExchangeProtocolID(torrent cid.Cid) protocol.ID {
	return BaseProtocolID + protocol.ID("/"+torrent.String())
}

// ExchangeStream is a bidirectional message stream with one peer for one
// torrent.
type ExchangeStream interface {
	ReadMessage() (wire.Message, error)
	WriteMessage(wire.Message) error
	RemotePeer() peer.ID
	Close() error
}

// ExchangeReceiver is implemented by whoever accepts inbound exchange
// streams, typically the host bridging them into a session.
type ExchangeReceiver interface {
	HandleExchangeStream(ExchangeStream)
}

// ExchangeNetwork is the transport surface the host uses to carry session
// messages. The session core itself never touches it; SessionHost bridges
// inbound messages into the session and session sends back out through a
// stream.
type ExchangeNetwork interface {
	// NewExchangeStream opens an outbound stream to the given peer
	NewExchangeStream(ctx context.Context, id peer.ID) (ExchangeStream, error)

	// SetDelegate registers the receiver for inbound streams
	SetDelegate(ExchangeReceiver) error

	// StopHandlingRequests unregisters the receiver
	StopHandlingRequests() error

	// ID returns the local peer id
	ID() peer.ID

	// AddAddrs adds addresses for a peer to the peerstore
	AddAddrs(p peer.ID, addrs []ma.Multiaddr)

	// ProtectPeer marks a peer's connection as worth preserving while it
	// holds an exchange stream
	ProtectPeer(p peer.ID)

	// UnprotectPeer releases the mark
	UnprotectPeer(p peer.ID)
}
