package exchange

import (
	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/libp2p/go-libp2p-core/crypto"

	"github.com/paidswarm/go-piece-exchange/paymentchannel"
	"github.com/paidswarm/go-piece-exchange/wire"
)

// All client callbacks are invoked synchronously from within a session entry
// point. Clients must not re-enter the session with a mutating call from a
// callback; read-only status calls are fine.

// SendMessage is the per-connection transport output slot.
type SendMessage func(wire.Message)

// RemovedConnection notifies the client that a connection was removed and
// why.
type RemovedConnection[ID comparable] func(id ID, cause DisconnectCause)

// FullPieceArrived hands a delivered piece to the client for validation and
// storage. The returned verdict decides between payment and disconnect, so
// it must be produced synchronously.
type FullPieceArrived[ID comparable] func(id ID, data []byte, pieceIndex int) bool

// SentPayment notifies the client that a payment went out on a connection.
type SentPayment[ID comparable] func(id ID, price abi.TokenAmount, numberOfPayments uint64, amountPaid abi.TokenAmount, pieceIndex int)

// AllSellersGone notifies the client that every seller is gone and the
// session went back to sending invitations.
type AllSellersGone func()

// LoadPieceForBuyer asks the client to read a piece for upload; the client
// answers through Session.PieceLoaded, not necessarily in request order.
type LoadPieceForBuyer[ID comparable] func(id ID, pieceIndex int)

// ClaimLastPayment hands the client the payee of a closing connection with
// at least one valid payment, so it can broadcast a settlement.
type ClaimLastPayment[ID comparable] func(id ID, payee *paymentchannel.Payee)

// AnchorAnnounced notifies the client of the contract anchoring a selling
// connection's channel.
type AnchorAnnounced[ID comparable] func(id ID, value abi.TokenAmount, anchor wire.OutPoint, contractPk []byte, finalAddress address.Address)

// ReceivedValidPayment notifies the client of a registered payment on a
// selling connection.
type ReceivedValidPayment[ID comparable] func(id ID, paymentNumber uint64, amountPaid abi.TokenAmount)

// GenerateKeyPairs asks the client's wallet for n fresh contract key pairs.
type GenerateKeyPairs func(n int) ([]crypto.PrivKey, error)

// GenerateFinalAddresses asks the client's wallet for n fresh settlement
// destinations.
type GenerateFinalAddresses func(n int) ([]address.Address, error)

// PickNextPiece chooses the next unassigned piece to download. Tie breaking
// is entirely the host's policy; the session only guarantees it never offers
// the same piece to two sellers.
type PickNextPiece[ID comparable] func(pieces []PieceStatus[ID]) (int, bool)

// NextUnassignedPiece is the trivial PickNextPiece: lowest index first.
func NextUnassignedPiece[ID comparable](pieces []PieceStatus[ID]) (int, bool) {
	for _, p := range pieces {
		if p.State == PieceStateUnassigned {
			return p.Index, true
		}
	}
	return 0, false
}

// ObservingCallbacks is the client surface of an observing session.
type ObservingCallbacks[ID comparable] struct {
	RemovedConnection RemovedConnection[ID]
}

// BuyingCallbacks is the client surface of a buying session.
type BuyingCallbacks[ID comparable] struct {
	RemovedConnection RemovedConnection[ID]
	FullPieceArrived  FullPieceArrived[ID]
	SentPayment       SentPayment[ID]
	AllSellersGone    AllSellersGone
}

// SellingCallbacks is the client surface of a selling session.
type SellingCallbacks[ID comparable] struct {
	RemovedConnection      RemovedConnection[ID]
	GenerateKeyPairs       GenerateKeyPairs
	GenerateFinalAddresses GenerateFinalAddresses
	LoadPieceForBuyer      LoadPieceForBuyer[ID]
	ClaimLastPayment       ClaimLastPayment[ID]
	AnchorAnnounced        AnchorAnnounced[ID]
	ReceivedValidPayment   ReceivedValidPayment[ID]
}
