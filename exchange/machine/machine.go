package machine

import (
	"fmt"

	"github.com/paidswarm/go-piece-exchange/paymentchannel"
	"github.com/paidswarm/go-piece-exchange/wire"
)

// DefaultMaxSpeedTestPayloadSize bounds the speed test payload a seller is
// willing to deliver. Requests beyond it are treated as message overflow.
const DefaultMaxSpeedTestPayloadSize = 2000000

// Machine is the wire protocol state machine for a single connection. It is
// a hierarchical chart with three top level modes under which the states of
// types.go are ordered. The hosting session feeds it inbound messages through
// Process and local decisions through the event methods; the machine reports
// back exclusively through its EventHandlers.
//
// The machine is not safe for concurrent use. Every entry runs to completion
// synchronously, so handlers fire from within the call that triggered them.
// Handlers that drop the connection as a side effect must Halt the machine;
// a halted machine ignores all further events and emits nothing.
//
// Session driven events called in a state they are not legal in are bugs in
// the hosting session and panic. Peer driven messages that are out of
// contract never panic; they raise RemoteMessageOverflow.
type Machine struct {
	handlers EventHandlers

	state  State
	halted bool

	localMode        ModeAnnounced
	buyerTerms       wire.BuyerTerms
	sellerTerms      wire.SellerTerms
	sellerTermsIndex uint64
	maxPieceIndex    uint64

	peer AnnouncedModeAndTerms

	buyer  buyerState
	seller sellerState

	maxSpeedTestPayloadSize uint64
}

// New creates a machine in ChooseMode. The hosting session must pick a mode
// with one of the *ModeStarted events before anything else; the mode entry
// emits the local announcement.
func New(handlers EventHandlers) *Machine {
	return &Machine{
		handlers:                handlers,
		state:                   StateChooseMode,
		maxSpeedTestPayloadSize: DefaultMaxSpeedTestPayloadSize,
	}
}

// State returns the innermost active state.
func (m *Machine) State() State { return m.state }

// Halted returns whether the machine has been dropped by its session.
func (m *Machine) Halted() bool { return m.halted }

// Halt permanently silences the machine. Called by the session when the
// connection is removed, possibly from within one of the machine's own
// handlers.
func (m *Machine) Halt() { m.halted = true }

// AnnouncedModeAndTermsFromPeer returns the peer's latest announcement.
func (m *Machine) AnnouncedModeAndTermsFromPeer() AnnouncedModeAndTerms { return m.peer }

// Payor returns the buyer side channel, or nil before a contract is
// prepared.
func (m *Machine) Payor() *paymentchannel.Payor { return m.buyer.payor }

// Payee returns the seller side channel, or nil before a contract is
// announced.
func (m *Machine) Payee() *paymentchannel.Payee { return m.seller.payee }

// SetMaxSpeedTestPayloadSize adjusts the largest speed test payload this
// machine will deliver when selling.
func (m *Machine) SetMaxSpeedTestPayloadSize(size uint64) { m.maxSpeedTestPayloadSize = size }

// ObserveModeStarted switches the connection to observe mode and announces
// it.
func (m *Machine) ObserveModeStarted() {
	if m.halted {
		return
	}
	m.enterMode(ModeObserve, StateObserving)
	m.send(&wire.Observe{})
}

// BuyModeStarted switches the connection to buy mode with the given terms
// and announces it.
func (m *Machine) BuyModeStarted(terms wire.BuyerTerms) {
	if m.halted {
		return
	}
	m.buyerTerms = terms
	m.enterMode(ModeBuy, StateReadyForInvitation)
	m.send(&wire.Buy{Terms: terms})
}

// SellModeStarted switches the connection to sell mode with the given terms
// and announces them under a fresh revision.
func (m *Machine) SellModeStarted(terms wire.SellerTerms, maxPieceIndex uint64) {
	if m.halted {
		return
	}
	m.sellerTerms = terms
	m.maxPieceIndex = maxPieceIndex
	m.sellerTermsIndex++
	m.enterMode(ModeSell, StateReadyForBuyerInvitation)
	m.send(&wire.Sell{Terms: terms, Index: m.sellerTermsIndex})
}

// UpdateBuyerTerms renegotiates the local buyer terms. Any contract in
// progress is abandoned and the machine returns to ReadyForInvitation.
func (m *Machine) UpdateBuyerTerms(terms wire.BuyerTerms) {
	m.mustBeLocal(ModeBuy, "UpdateBuyerTerms")
	m.BuyModeStarted(terms)
}

// UpdateSellerTerms renegotiates the local seller terms under a fresh
// revision. Any contract in progress is abandoned.
func (m *Machine) UpdateSellerTerms(terms wire.SellerTerms) {
	m.mustBeLocal(ModeSell, "UpdateSellerTerms")
	m.SellModeStarted(terms, m.maxPieceIndex)
}

// Process feeds one inbound wire message to the machine.
func (m *Machine) Process(msg wire.Message) {
	if m.halted {
		return
	}
	switch msg := msg.(type) {
	case *wire.Observe:
		m.peerAnnounced(AnnouncedModeAndTerms{Mode: ModeObserve})
	case *wire.Buy:
		m.peerAnnounced(AnnouncedModeAndTerms{Mode: ModeBuy, BuyerTerms: msg.Terms})
	case *wire.Sell:
		m.peerAnnounced(AnnouncedModeAndTerms{Mode: ModeSell, SellerTerms: msg.Terms, SellerTermsIndex: msg.Index})
	case *wire.JoinContract:
		m.recvJoinContract(msg)
	case *wire.JoiningContract:
		m.recvJoiningContract(msg)
	case *wire.Ready:
		m.recvReady(msg)
	case *wire.RequestFullPiece:
		m.recvRequestFullPiece(msg)
	case *wire.FullPiece:
		m.recvFullPiece(msg)
	case *wire.Payment:
		m.recvPayment(msg)
	case *wire.Speed:
		m.recvSpeed(msg)
	default:
		m.handlers.RemoteMessageOverflow()
	}
}

// peerAnnounced handles a mode announcement from the peer. Announcements are
// legal in every state; what they do depends on how far the current contract
// has progressed.
func (m *Machine) peerAnnounced(a AnnouncedModeAndTerms) {
	m.peer = a

	switch m.state {
	case StateWaitingForPiece, StateWaitingForFullPiece, StateWaitingForPieceValidation:
		// the seller walked away from a live contract
		m.resetToModeEntry()
		m.handlers.SellerInterruptedContract()

	case StateInvitedSeller:
		// invitation no longer applies, session re-evaluates
		m.resetToModeEntry()
		m.handlers.PeerAnnouncedModeAndTerms(a)

	case StateReadyForPieceRequest, StateLoadingPiece:
		// the buyer walked away while deliveries may be unpaid
		m.resetToModeEntry()
		m.handlers.PeerInterruptedPayment()

	case StateInvited, StateWaitingForContractReady:
		m.resetToModeEntry()
		m.handlers.PeerAnnouncedModeAndTerms(a)

	default:
		m.handlers.PeerAnnouncedModeAndTerms(a)
	}
}

func (m *Machine) enterMode(mode ModeAnnounced, entry State) {
	m.localMode = mode
	m.state = entry
	m.buyer = buyerState{}
	m.seller = sellerState{}
}

// resetToModeEntry drops all channel state and returns to the entry state of
// the current local mode.
func (m *Machine) resetToModeEntry() {
	switch m.localMode {
	case ModeBuy:
		m.state = StateReadyForInvitation
	case ModeSell:
		m.state = StateReadyForBuyerInvitation
	case ModeObserve:
		m.state = StateObserving
	default:
		m.state = StateChooseMode
	}
	m.buyer = buyerState{}
	m.seller = sellerState{}
}

func (m *Machine) send(msg wire.Message) {
	if m.halted {
		return
	}
	m.handlers.Send(msg)
}

func (m *Machine) mustBeIn(s State, event string) {
	if m.state != s {
		panic(fmt.Sprintf("protocol machine: %s in state %s", event, m.state))
	}
}

func (m *Machine) mustBeLocal(mode ModeAnnounced, event string) {
	if m.localMode != mode {
		panic(fmt.Sprintf("protocol machine: %s in local mode %s", event, m.localMode))
	}
}
