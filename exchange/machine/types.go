package machine

import (
	"fmt"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"

	"github.com/paidswarm/go-piece-exchange/wire"
)

// ModeAnnounced is the mode a peer has announced on a connection.
type ModeAnnounced uint64

const (
	// ModeNone means the peer has not announced any mode yet
	ModeNone ModeAnnounced = iota

	// ModeObserve means the peer announced observe mode
	ModeObserve

	// ModeBuy means the peer announced buy mode
	ModeBuy

	// ModeSell means the peer announced sell mode
	ModeSell
)

// ModesAnnounced maps announced modes to human readable names
var ModesAnnounced = map[ModeAnnounced]string{
	ModeNone:    "None",
	ModeObserve: "Observe",
	ModeBuy:     "Buy",
	ModeSell:    "Sell",
}

func (m ModeAnnounced) String() string {
	if s, ok := ModesAnnounced[m]; ok {
		return s
	}
	return fmt.Sprintf("ModeAnnounced(%d)", uint64(m))
}

// AnnouncedModeAndTerms is the most recent mode announcement from the peer,
// updated every time the peer re-announces.
type AnnouncedModeAndTerms struct {
	Mode ModeAnnounced

	// BuyerTerms is set when Mode is ModeBuy
	BuyerTerms wire.BuyerTerms

	// SellerTerms and SellerTermsIndex are set when Mode is ModeSell
	SellerTerms      wire.SellerTerms
	SellerTermsIndex uint64
}

// State identifies the innermost active state of a connection machine.
type State uint64

const (
	// StateChooseMode is the initial state, before the hosting session has
	// picked a mode for the connection
	StateChooseMode State = iota

	// StateObserving is the single observe mode state
	StateObserving

	// Buy mode states

	// StateReadyForInvitation means a seller with agreeable terms may be
	// invited or speed tested
	StateReadyForInvitation

	// StateTestingSellerSpeed means a speed test payload has been requested
	// and not yet delivered
	StateTestingSellerSpeed

	// StateInvitedSeller means a contract invitation is outstanding
	StateInvitedSeller

	// StatePreparingContract means the seller joined and the buyer is
	// assembling the funding transaction
	StatePreparingContract

	// StateWaitingForPiece means the contract is live and no request is
	// outstanding
	StateWaitingForPiece

	// StateWaitingForFullPiece means at least one piece request is
	// outstanding
	StateWaitingForFullPiece

	// StateWaitingForPieceValidation means a piece has arrived and its
	// validation verdict decides the next transition
	StateWaitingForPieceValidation

	// Sell mode states

	// StateReadyForBuyerInvitation means the seller is announcing terms and
	// waiting for a contract invitation
	StateReadyForBuyerInvitation

	// StateInvited means a contract invitation has been received and the
	// hosting session has not yet joined
	StateInvited

	// StateWaitingForContractReady means the join was sent and the contract
	// announcement is pending
	StateWaitingForContractReady

	// StateReadyForPieceRequest means the contract is live and the seller is
	// idle
	StateReadyForPieceRequest

	// StateLoadingPiece means at least one piece request is being serviced
	StateLoadingPiece
)

// StateNames maps machine states to human readable names
var StateNames = map[State]string{
	StateChooseMode:                "ChooseMode",
	StateObserving:                 "Observing",
	StateReadyForInvitation:        "ReadyForInvitation",
	StateTestingSellerSpeed:        "TestingSellerSpeed",
	StateInvitedSeller:             "InvitedSeller",
	StatePreparingContract:         "PreparingContract",
	StateWaitingForPiece:           "Downloading.WaitingForPiece",
	StateWaitingForFullPiece:       "Downloading.WaitingForFullPiece",
	StateWaitingForPieceValidation: "Downloading.WaitingForPieceValidation",
	StateReadyForBuyerInvitation:   "ReadyForBuyerInvitation",
	StateInvited:                   "Invited",
	StateWaitingForContractReady:   "WaitingForContractReady",
	StateReadyForPieceRequest:      "ReadyForPieceRequest",
	StateLoadingPiece:              "LoadingPiece",
}

func (s State) String() string {
	if name, ok := StateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", uint64(s))
}

// EventHandlers groups every callback a machine can raise towards its hosting
// session. All handlers must be non-nil.
type EventHandlers struct {
	// Send emits an outbound message for the transport
	Send func(wire.Message)

	// PeerAnnouncedModeAndTerms fires on every peer mode announcement
	PeerAnnouncedModeAndTerms func(AnnouncedModeAndTerms)

	// InvitedToOutdatedContract fires when an invitation references a stale
	// seller terms revision; the invitation is ignored
	InvitedToOutdatedContract func()

	// InvitedToJoinContract fires when a buyer invites this seller
	InvitedToJoinContract func()

	// ContractIsReady fires when the buyer announces the prepared contract
	ContractIsReady func(value abi.TokenAmount, anchor wire.OutPoint, contractPk []byte, finalAddress address.Address)

	// PieceRequested fires when the buyer requests a piece within bounds
	PieceRequested func(pieceIndex uint64)

	// InvalidPieceRequested fires when the buyer requests a piece beyond the
	// maximum piece index
	InvalidPieceRequested func()

	// PeerInterruptedPayment fires when the buyer re-announces a mode while
	// a contract is live; deliveries may or may not be unpaid
	PeerInterruptedPayment func()

	// ValidPayment fires when a payment signature validates; the payee
	// counter has already advanced
	ValidPayment func(signature []byte)

	// InvalidPayment fires when a payment signature does not validate
	InvalidPayment func(signature []byte)

	// SellerJoined fires when an invited seller accepts
	SellerJoined func()

	// SellerInterruptedContract fires when the seller re-announces a mode or
	// terms while a contract is live
	SellerInterruptedContract func()

	// ReceivedFullPiece fires when a requested piece arrives
	ReceivedFullPiece func(data []byte)

	// RemoteMessageOverflow fires when the peer sends a message that is out
	// of contract for the current state
	RemoteMessageOverflow func()

	// SellerCompletedSpeedTest fires when the speed test payload arrives;
	// success reflects whether it had the expected size
	SellerCompletedSpeedTest func(success bool)

	// BuyerRequestedSpeedTest fires when a buyer requests a pre-contract
	// speed test payload; the machine delivers the payload itself
	BuyerRequestedSpeedTest func(payloadSize uint64)
}
