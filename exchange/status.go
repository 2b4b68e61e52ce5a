package exchange

import (
	"time"

	"github.com/filecoin-project/go-state-types/abi"

	"github.com/paidswarm/go-piece-exchange/exchange/machine"
	"github.com/paidswarm/go-piece-exchange/wire"
)

// Status snapshots are plain values; mutating them has no effect on the
// session.

// ConnectionStatus is a snapshot of one connection's machine.
type ConnectionStatus[ID comparable] struct {
	Connection ID

	// State is the innermost active machine state
	State machine.State

	// AnnouncedModeAndTerms is the peer's latest announcement
	AnnouncedModeAndTerms machine.AnnouncedModeAndTerms

	// PaymentsMade / AmountPaid describe the payor side, when buying
	PaymentsMade uint64
	AmountPaid   abi.TokenAmount

	// PaymentsReceived / AmountReceived describe the payee side, when
	// selling
	PaymentsReceived uint64
	AmountReceived   abi.TokenAmount

	// SpeedTestLatency is how long the peer took to deliver the test
	// payload; valid only when SpeedTestCompleted
	SpeedTestCompleted bool
	SpeedTestLatency   time.Duration
}

// PieceStatus is a snapshot of one piece in a buying session.
type PieceStatus[ID comparable] struct {
	Index int
	State PieceState

	// AssignedTo is meaningful only when State is PieceStateAssigned
	AssignedTo ID

	Size uint64
}

// SellerStatus is a snapshot of one seller record in a buying session.
type SellerStatus[ID comparable] struct {
	Connection ID

	PiecesAwaitingArrival    []int
	PiecesAwaitingValidation int
}

// BuyingStatus is the buying mode part of a session snapshot.
type BuyingStatus[ID comparable] struct {
	State   BuyingState
	Terms   wire.BuyerTerms
	Sellers map[ID]SellerStatus[ID]
	Pieces  []PieceStatus[ID]
}

// SellingStatus is the selling mode part of a session snapshot.
type SellingStatus struct {
	Terms wire.SellerTerms
}

// SessionStatus is a full session snapshot.
type SessionStatus[ID comparable] struct {
	Mode  SessionMode
	State SessionState

	Connections map[ID]ConnectionStatus[ID]

	// Buying is set in buying mode
	Buying *BuyingStatus[ID]

	// Selling is set in selling mode
	Selling *SellingStatus
}
