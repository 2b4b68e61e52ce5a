package exchange

import (
	"fmt"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/libp2p/go-libp2p-core/crypto"

	"github.com/paidswarm/go-piece-exchange/wire"
)

// SessionMode is the role a session plays for its torrent.
type SessionMode uint64

const (
	// SessionModeNotSet means no mode has been picked yet; a session cannot
	// host connections until one is
	SessionModeNotSet SessionMode = iota

	// SessionModeObserving accepts connections and only announces its mode
	SessionModeObserving

	// SessionModeBuying invites sellers, funds a contract and downloads
	SessionModeBuying

	// SessionModeSelling joins contracts and uploads for payment
	SessionModeSelling
)

// SessionModes maps session modes to human readable names
var SessionModes = map[SessionMode]string{
	SessionModeNotSet:    "NotSet",
	SessionModeObserving: "Observing",
	SessionModeBuying:    "Buying",
	SessionModeSelling:   "Selling",
}

func (m SessionMode) String() string {
	if s, ok := SessionModes[m]; ok {
		return s
	}
	return fmt.Sprintf("SessionMode(%d)", uint64(m))
}

// SessionState is the lifecycle state of a session. A stopped session has no
// connections.
type SessionState uint64

const (
	// SessionStateStopped is the initial state
	SessionStateStopped SessionState = iota

	// SessionStateStarted is fully operational
	SessionStateStarted

	// SessionStatePaused keeps connections but suppresses piece requests and
	// new invitations; payments for already delivered pieces are honored
	SessionStatePaused
)

// SessionStates maps session states to human readable names
var SessionStates = map[SessionState]string{
	SessionStateStopped: "Stopped",
	SessionStateStarted: "Started",
	SessionStatePaused:  "Paused",
}

func (s SessionState) String() string {
	if name, ok := SessionStates[s]; ok {
		return name
	}
	return fmt.Sprintf("SessionState(%d)", uint64(s))
}

// BuyingState is the phase of a buying session.
type BuyingState uint64

const (
	// BuyingStateSendingInvitations is the initial phase: collecting sellers
	BuyingStateSendingInvitations BuyingState = iota

	// BuyingStateDownloading means a contract is live and pieces are flowing
	BuyingStateDownloading

	// BuyingStateDownloadCompleted means no pieces are missing
	BuyingStateDownloadCompleted
)

// BuyingStates maps buying states to human readable names
var BuyingStates = map[BuyingState]string{
	BuyingStateSendingInvitations: "SendingInvitations",
	BuyingStateDownloading:        "Downloading",
	BuyingStateDownloadCompleted:  "DownloadCompleted",
}

func (s BuyingState) String() string {
	if name, ok := BuyingStates[s]; ok {
		return name
	}
	return fmt.Sprintf("BuyingState(%d)", uint64(s))
}

// PieceState is the buyer side lifecycle of a single piece.
type PieceState uint64

const (
	// PieceStateUnassigned means no seller is servicing the piece
	PieceStateUnassigned PieceState = iota

	// PieceStateAssigned means the piece sits in some seller's request queue
	PieceStateAssigned

	// PieceStateBeingValidated means the piece arrived and the client is
	// validating it
	PieceStateBeingValidated

	// PieceStateDownloaded means the piece is done
	PieceStateDownloaded
)

// PieceStates maps piece states to human readable names
var PieceStates = map[PieceState]string{
	PieceStateUnassigned:     "Unassigned",
	PieceStateAssigned:       "Assigned",
	PieceStateBeingValidated: "BeingValidated",
	PieceStateDownloaded:     "Downloaded",
}

func (s PieceState) String() string {
	if name, ok := PieceStates[s]; ok {
		return name
	}
	return fmt.Sprintf("PieceState(%d)", uint64(s))
}

// DisconnectCause is why a connection was removed, surfaced to the client on
// every removal.
type DisconnectCause uint64

const (
	// DisconnectCauseClient means the client asked for the removal
	DisconnectCauseClient DisconnectCause = iota

	// DisconnectCauseSellerHasInterruptedContract means the seller
	// re-announced terms or mode while a contract was live
	DisconnectCauseSellerHasInterruptedContract

	// DisconnectCauseSellerSentInvalidPiece means a delivered piece failed
	// validation
	DisconnectCauseSellerSentInvalidPiece

	// DisconnectCauseSellerServicingPieceHasTimedOut means the seller took
	// too long to deliver the piece at the front of its queue
	DisconnectCauseSellerServicingPieceHasTimedOut

	// DisconnectCauseSellerMessageOverflow means a selling peer sent a
	// message out of contract
	DisconnectCauseSellerMessageOverflow

	// DisconnectCauseSellerFailedSpeedTest means the seller failed, or was
	// too slow on, the pre-contract speed test
	DisconnectCauseSellerFailedSpeedTest

	// DisconnectCauseBuyerSentInvalidPayment means a payment signature did
	// not validate
	DisconnectCauseBuyerSentInvalidPayment

	// DisconnectCauseBuyerMessageOverflow means a buying peer sent a message
	// out of contract
	DisconnectCauseBuyerMessageOverflow

	// DisconnectCauseBuyerInterruptedPayment means the buyer re-announced a
	// mode while a contract was live, whether or not deliveries were unpaid
	DisconnectCauseBuyerInterruptedPayment
)

// DisconnectCauses maps disconnect causes to human readable names
var DisconnectCauses = map[DisconnectCause]string{
	DisconnectCauseClient:                          "Client",
	DisconnectCauseSellerHasInterruptedContract:    "SellerHasInterruptedContract",
	DisconnectCauseSellerSentInvalidPiece:          "SellerSentInvalidPiece",
	DisconnectCauseSellerServicingPieceHasTimedOut: "SellerServicingPieceHasTimedOut",
	DisconnectCauseSellerMessageOverflow:           "SellerMessageOverflow",
	DisconnectCauseSellerFailedSpeedTest:           "SellerFailedSpeedTest",
	DisconnectCauseBuyerSentInvalidPayment:         "BuyerSentInvalidPayment",
	DisconnectCauseBuyerMessageOverflow:            "BuyerMessageOverflow",
	DisconnectCauseBuyerInterruptedPayment:         "BuyerInterruptedPayment",
}

func (c DisconnectCause) String() string {
	if name, ok := DisconnectCauses[c]; ok {
		return name
	}
	return fmt.Sprintf("DisconnectCause(%d)", uint64(c))
}

// PeerNotReadyCause is the per-peer reason StartDownloading could not
// proceed.
type PeerNotReadyCause uint64

const (
	// PeerNotReadyConnectionGone means the connection no longer exists
	PeerNotReadyConnectionGone PeerNotReadyCause = iota

	// PeerNotReadyNotInPreparingContract means the machine is not in the
	// PreparingContract state
	PeerNotReadyNotInPreparingContract

	// PeerNotReadyTermsExpired means the peer has re-announced terms since
	// the contract was committed
	PeerNotReadyTermsExpired
)

// PeerNotReadyCauses maps causes to human readable names
var PeerNotReadyCauses = map[PeerNotReadyCause]string{
	PeerNotReadyConnectionGone:         "ConnectionGone",
	PeerNotReadyNotInPreparingContract: "NotInPreparingContract",
	PeerNotReadyTermsExpired:           "TermsExpired",
}

func (c PeerNotReadyCause) String() string {
	if name, ok := PeerNotReadyCauses[c]; ok {
		return name
	}
	return fmt.Sprintf("PeerNotReadyCause(%d)", uint64(c))
}

// PieceInformation describes one torrent piece at session creation.
type PieceInformation struct {
	// Size is the byte length of the piece
	Size uint64

	// Downloaded marks pieces that were already present
	Downloaded bool
}

// StartDownloadInformation is what StartDownloading needs per invited seller:
// which contract output anchors its channel and the buyer side keys for it.
type StartDownloadInformation struct {
	// SellerTerms are the announced terms the contract was committed against
	SellerTerms wire.SellerTerms

	// Index is the seller's output index in the funding transaction
	Index uint64

	// Value is the amount locked in that output
	Value abi.TokenAmount

	// ContractKey is the buyer's contract key pair for this channel
	ContractKey crypto.PrivKey

	// FinalAddress is where the buyer's refund pays out
	FinalAddress address.Address
}
