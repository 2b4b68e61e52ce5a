package network

import (
	"context"
	"time"

	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
	"github.com/jpillora/backoff"
	"github.com/libp2p/go-libp2p-core/host"
	"github.com/libp2p/go-libp2p-core/network"
	"github.com/libp2p/go-libp2p-core/peer"
	"github.com/libp2p/go-libp2p-core/protocol"
	ma "github.com/multiformats/go-multiaddr"
	"golang.org/x/xerrors"
)

var log = logging.Logger("exchange_network")

// Dial policy. Sellers are plentiful and invitations are cheap, so a peer
// that cannot be reached within a few quick, jittered retries is not worth
// holding a contract slot for.
const (
	defaultDialAttempts   = 8
	defaultDialBackoffMin = 500 * time.Millisecond
	defaultDialBackoffMax = time.Minute
)

// contractTagWeight is the connection manager weight given to peers with an
// exchange stream. It sits below consensus-critical tags a host application
// may use, but high enough that a paying or paid peer is not the first
// connection pruned.
const contractTagWeight = 75

// peerAddressTTL is how long addresses learned out of band (tracker,
// resolver) are kept for redialing a torrent's peers.
const peerAddressTTL = 2 * time.Hour

// Option is an option for configuring the libp2p exchange network
type Option func(*libp2pExchangeNetwork)

// DialParameters changes how persistently outbound streams are dialed.
func DialParameters(attempts int, minBackoff time.Duration, maxBackoff time.Duration) Option {
	return func(impl *libp2pExchangeNetwork) {
		impl.dialAttempts = attempts
		impl.dialBackoffMin = minBackoff
		impl.dialBackoffMax = maxBackoff
	}
}

// WithProtocolID pins the exact protocol ID to listen and dial on, instead
// of deriving it from the torrent.
func WithProtocolID(proto protocol.ID) Option {
	return func(impl *libp2pExchangeNetwork) {
		impl.protocol = proto
	}
}

// NewFromLibp2pHost builds the exchange network for one torrent on top of a
// libp2p host. All streams run on the torrent's own protocol ID, so a host
// can serve many torrents from one libp2p node.
func NewFromLibp2pHost(h host.Host, torrent cid.Cid, options ...Option) ExchangeNetwork {
	impl := &libp2pExchangeNetwork{
		host:           h,
		protocol:       ExchangeProtocolID(torrent),
		dialAttempts:   defaultDialAttempts,
		dialBackoffMin: defaultDialBackoffMin,
		dialBackoffMax: defaultDialBackoffMax,
	}
	for _, option := range options {
		option(impl)
	}
	return impl
}

type libp2pExchangeNetwork struct {
	host     host.Host
	protocol protocol.ID

	// inbound streams are forwarded to the receiver
	receiver ExchangeReceiver

	dialAttempts   int
	dialBackoffMin time.Duration
	dialBackoffMax time.Duration
}

func (n *libp2pExchangeNetwork) NewExchangeStream(ctx context.Context, p peer.ID) (ExchangeStream, error) {
	retry := backoff.Backoff{
		Min:    n.dialBackoffMin,
		Max:    n.dialBackoffMax,
		Jitter: true,
	}

	var lastErr error
	for attempt := 1; attempt <= n.dialAttempts; attempt++ {
		if attempt > 1 {
			wait := time.NewTimer(retry.Duration())
			select {
			case <-ctx.Done():
				wait.Stop()
				return nil, ctx.Err()
			case <-wait.C:
			}
		}

		var s network.Stream
		s, lastErr = n.host.NewStream(ctx, p, n.protocol)
		if lastErr == nil {
			return newExchangeStream(p, s), nil
		}
		log.Debugf("dialing %s on %s, attempt %d: %s", p, n.protocol, attempt, lastErr)
	}
	return nil, xerrors.Errorf("no stream to %s after %d attempts: %w", p, n.dialAttempts, lastErr)
}

func (n *libp2pExchangeNetwork) SetDelegate(r ExchangeReceiver) error {
	n.receiver = r
	n.host.SetStreamHandler(n.protocol, func(s network.Stream) {
		receiver := n.receiver
		if receiver == nil {
			log.Warnf("dropping exchange stream from %s: no receiver", s.Conn().RemotePeer())
			_ = s.Reset()
			return
		}
		receiver.HandleExchangeStream(newExchangeStream(s.Conn().RemotePeer(), s))
	})
	return nil
}

func (n *libp2pExchangeNetwork) StopHandlingRequests() error {
	n.receiver = nil
	n.host.RemoveStreamHandler(n.protocol)
	return nil
}

func (n *libp2pExchangeNetwork) ID() peer.ID {
	return n.host.ID()
}

func (n *libp2pExchangeNetwork) AddAddrs(p peer.ID, addrs []ma.Multiaddr) {
	if len(addrs) == 0 {
		return
	}
	n.host.Peerstore().AddAddrs(p, addrs, peerAddressTTL)
}

// ProtectPeer weights the peer's connection on the connection manager for
// as long as it holds an exchange stream for this torrent.
func (n *libp2pExchangeNetwork) ProtectPeer(p peer.ID) {
	n.host.ConnManager().TagPeer(p, string(n.protocol), contractTagWeight)
}

// UnprotectPeer releases the weight once the stream is gone.
func (n *libp2pExchangeNetwork) UnprotectPeer(p peer.ID) {
	n.host.ConnManager().UntagPeer(p, string(n.protocol))
}
