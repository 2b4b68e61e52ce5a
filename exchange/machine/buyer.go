package machine

import (
	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/libp2p/go-libp2p-core/crypto"
	"golang.org/x/xerrors"

	"github.com/paidswarm/go-piece-exchange/paymentchannel"
	"github.com/paidswarm/go-piece-exchange/wire"
)

// buyerState is the buy mode half of the machine, reset whenever the mode is
// re-entered or a contract breaks.
type buyerState struct {
	payor *paymentchannel.Payor

	// joiningContract is the seller's join message, kept until the contract
	// is prepared against it
	joiningContract *wire.JoiningContract

	// invitedIndex is the seller terms revision the invitation referenced
	invitedIndex uint64

	// outstandingRequests counts piece requests sent and not yet answered
	outstandingRequests int

	// speedTestExpectedSize is the payload size a pending speed test must
	// deliver
	speedTestExpectedSize uint64
}

// InviteSeller invites the peer to join the buyer's contract against the
// seller terms revision it last announced.
func (m *Machine) InviteSeller() {
	if m.halted {
		return
	}
	m.mustBeLocal(ModeBuy, "InviteSeller")
	m.mustBeIn(StateReadyForInvitation, "InviteSeller")

	m.buyer.invitedIndex = m.peer.SellerTermsIndex
	m.state = StateInvitedSeller
	m.send(&wire.JoinContract{Index: m.buyer.invitedIndex})
}

// TestSellerSpeed requests a synthetic payload of the given size from the
// peer, before any contract is formed.
func (m *Machine) TestSellerSpeed(payloadSize uint64) {
	if m.halted {
		return
	}
	m.mustBeLocal(ModeBuy, "TestSellerSpeed")
	m.mustBeIn(StateReadyForInvitation, "TestSellerSpeed")

	m.buyer.speedTestExpectedSize = payloadSize
	m.state = StateTestingSellerSpeed
	m.send(&wire.Speed{PayloadSize: payloadSize})
}

// ContractPrepared announces the funding commitment to a joined seller and
// opens the buyer side of the channel.
func (m *Machine) ContractPrepared(value abi.TokenAmount, anchor wire.OutPoint, contractKey crypto.PrivKey, finalAddress address.Address) error {
	if m.halted {
		return nil
	}
	m.mustBeLocal(ModeBuy, "ContractPrepared")
	m.mustBeIn(StatePreparingContract, "ContractPrepared")

	joining := m.buyer.joiningContract

	payor, err := paymentchannel.NewPayor(m.peer.SellerTerms, value, anchor,
		contractKey, finalAddress, joining.ContractPk, joining.FinalAddress)
	if err != nil {
		return xerrors.Errorf("opening payment channel: %w", err)
	}

	contractPk, err := crypto.MarshalPublicKey(contractKey.GetPublic())
	if err != nil {
		return xerrors.Errorf("marshaling contract key: %w", err)
	}

	m.buyer.payor = payor
	m.state = StateWaitingForPiece
	m.send(&wire.Ready{
		Value:        value,
		Anchor:       anchor,
		ContractPk:   contractPk,
		FinalAddress: finalAddress,
	})
	return nil
}

// RequestPiece requests the piece with the given index. Requests may be
// pipelined: further requests are legal while earlier ones are outstanding.
func (m *Machine) RequestPiece(pieceIndex uint64) {
	if m.halted {
		return
	}
	m.mustBeLocal(ModeBuy, "RequestPiece")
	switch m.state {
	case StateWaitingForPiece, StateWaitingForFullPiece, StateWaitingForPieceValidation:
	default:
		panic("protocol machine: RequestPiece in state " + m.state.String())
	}

	m.buyer.outstandingRequests++
	if m.state == StateWaitingForPiece {
		m.state = StateWaitingForFullPiece
	}
	m.send(&wire.RequestFullPiece{PieceIndex: pieceIndex})
}

// SendPayment pays for the next piece. Normally that is the piece just
// validated, but a compensating session may also pay ahead for pieces that
// are still in flight, so every downloading sub-state accepts it. The payor
// counter advances and the settlement signature goes out.
func (m *Machine) SendPayment() error {
	if m.halted {
		return nil
	}
	m.mustBeLocal(ModeBuy, "SendPayment")
	switch m.state {
	case StateWaitingForPiece, StateWaitingForFullPiece, StateWaitingForPieceValidation:
	default:
		panic("protocol machine: SendPayment in state " + m.state.String())
	}

	sig, err := m.buyer.payor.MakePayment()
	if err != nil {
		return xerrors.Errorf("making payment: %w", err)
	}

	if m.buyer.outstandingRequests > 0 {
		m.state = StateWaitingForFullPiece
	} else {
		m.state = StateWaitingForPiece
	}
	m.send(&wire.Payment{Signature: sig})
	return nil
}

// InvalidPieceReceived records that the piece being validated was bad. The
// machine halts; the session drops the connection.
func (m *Machine) InvalidPieceReceived() {
	if m.halted {
		return
	}
	m.mustBeLocal(ModeBuy, "InvalidPieceReceived")
	m.mustBeIn(StateWaitingForPieceValidation, "InvalidPieceReceived")
	m.halted = true
}

func (m *Machine) recvJoiningContract(msg *wire.JoiningContract) {
	if m.state != StateInvitedSeller {
		m.handlers.RemoteMessageOverflow()
		return
	}
	m.buyer.joiningContract = msg
	m.state = StatePreparingContract
	m.handlers.SellerJoined()
}

func (m *Machine) recvFullPiece(msg *wire.FullPiece) {
	switch m.state {
	case StateTestingSellerSpeed:
		success := uint64(len(msg.Data)) == m.buyer.speedTestExpectedSize
		m.buyer.speedTestExpectedSize = 0
		m.state = StateReadyForInvitation
		m.handlers.SellerCompletedSpeedTest(success)

	case StateWaitingForFullPiece:
		m.buyer.outstandingRequests--
		m.state = StateWaitingForPieceValidation
		m.handlers.ReceivedFullPiece(msg.Data)

	default:
		m.handlers.RemoteMessageOverflow()
	}
}
