package exchange

import (
	"time"

	"github.com/paidswarm/go-piece-exchange/paymentchannel"
	"github.com/paidswarm/go-piece-exchange/wire"
)

// Session multiplexes the connections of one torrent, each carrying an
// independent instance of the buy/sell/observe protocol backed by a
// unidirectional payment channel.
//
// A session is single threaded and not safe for concurrent use: the host
// must serialize every entry point, including inbound messages and Tick. No
// entry point suspends; each runs to completion synchronously, invoking
// client callbacks along the way.
//
// The connection identity type is an opaque client chosen key; it only needs
// to be comparable and cheap to copy.
type Session[ID comparable] interface {
	// AddConnection creates a connection in the current mode. The machine's
	// first emitted message is the local mode and terms announcement.
	// Returns the number of connections after the add.
	AddConnection(id ID, send SendMessage) (int, error)

	// RemoveConnection removes a connection on the client's initiative, with
	// cause Client.
	RemoveConnection(id ID) error

	// ProcessMessageOnConnection feeds one inbound message to a connection's
	// machine.
	ProcessMessageOnConnection(id ID, msg wire.Message) error

	// Tick drives the session's time based checks. The host calls it on a
	// coarse cadence; there are no internal timers.
	Tick()

	// Start makes a stopped or paused session fully operational.
	Start() error

	// Stop removes every connection with cause Client and clears mode
	// bookkeeping.
	Stop() error

	// Pause keeps connections but suppresses piece requests and new
	// invitations.
	Pause() error

	// ToObserveMode switches the session to observing.
	ToObserveMode(callbacks ObservingCallbacks[ID]) error

	// ToSellMode switches the session to selling with the given terms.
	ToSellMode(callbacks SellingCallbacks[ID], terms wire.SellerTerms, maxPieceIndex uint64) error

	// ToBuyMode switches the session to buying with the given terms and
	// piece table.
	ToBuyMode(callbacks BuyingCallbacks[ID], terms wire.BuyerTerms,
		information []PieceInformation, pick PickNextPiece[ID],
		maxTimeToServicePiece time.Duration) error

	// StartDownloading hands the session the funded contract and, per
	// invited seller, the output anchoring its channel. It either fully
	// succeeds, creating the sellers and entering Downloading, or fails
	// atomically.
	StartDownloading(contract *paymentchannel.Contract, peers map[ID]StartDownloadInformation) error

	// PieceLoaded answers a LoadPieceForBuyer callback with the piece data.
	// Answers need not arrive in request order.
	PieceLoaded(id ID, data []byte, pieceIndex int) error

	// PieceDownloaded marks a piece downloaded through an out of band
	// source.
	PieceDownloaded(pieceIndex int) error

	// UpdateBuyerTerms renegotiates buying terms. Existing sellers are
	// compensated and dropped; funds in the old contract stay locked until
	// the host settles them.
	UpdateBuyerTerms(terms wire.BuyerTerms) error

	// UpdateSellerTerms renegotiates selling terms.
	UpdateSellerTerms(terms wire.SellerTerms) error

	// Status returns a snapshot of the session. Safe to call from
	// callbacks.
	Status() SessionStatus[ID]

	// SubscribeToEvents registers a subscriber for session notifications.
	SubscribeToEvents(subscriber SessionSubscriber[ID]) Unsubscribe
}
