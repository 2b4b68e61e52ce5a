package machine

import (
	"github.com/filecoin-project/go-address"
	"github.com/libp2p/go-libp2p-core/crypto"
	"golang.org/x/xerrors"

	"github.com/paidswarm/go-piece-exchange/paymentchannel"
	"github.com/paidswarm/go-piece-exchange/wire"
)

// sellerState is the sell mode half of the machine, reset whenever the mode
// is re-entered or a contract breaks.
type sellerState struct {
	payee *paymentchannel.Payee

	// joinKey and joinFinalAddress were sent in JoiningContract and are
	// needed to open the payee side once the contract is announced
	joinKey          crypto.PrivKey
	joinFinalAddress address.Address
}

// Join accepts a pending contract invitation with the given contract key and
// settlement destination.
func (m *Machine) Join(contractKey crypto.PrivKey, finalAddress address.Address) error {
	if m.halted {
		return nil
	}
	m.mustBeLocal(ModeSell, "Join")
	m.mustBeIn(StateInvited, "Join")

	contractPk, err := crypto.MarshalPublicKey(contractKey.GetPublic())
	if err != nil {
		return xerrors.Errorf("marshaling contract key: %w", err)
	}

	m.seller.joinKey = contractKey
	m.seller.joinFinalAddress = finalAddress
	m.state = StateWaitingForContractReady
	m.send(&wire.JoiningContract{
		ContractPk:   contractPk,
		FinalAddress: finalAddress,
	})
	return nil
}

// SendPiece delivers loaded piece data to the buyer. Deliveries go out in
// request order; the hosting session's pipeline enforces that.
func (m *Machine) SendPiece(data []byte) {
	if m.halted {
		return
	}
	m.mustBeLocal(ModeSell, "SendPiece")
	switch m.state {
	case StateReadyForPieceRequest, StateLoadingPiece:
	default:
		panic("protocol machine: SendPiece in state " + m.state.String())
	}

	m.state = StateReadyForPieceRequest
	m.send(&wire.FullPiece{Data: data})
}

func (m *Machine) recvJoinContract(msg *wire.JoinContract) {
	if m.localMode != ModeSell || m.state != StateReadyForBuyerInvitation {
		m.handlers.RemoteMessageOverflow()
		return
	}
	if msg.Index != m.sellerTermsIndex {
		// invitation against terms we no longer announce
		m.handlers.InvitedToOutdatedContract()
		return
	}
	m.state = StateInvited
	m.handlers.InvitedToJoinContract()
}

func (m *Machine) recvReady(msg *wire.Ready) {
	if m.state != StateWaitingForContractReady {
		m.handlers.RemoteMessageOverflow()
		return
	}

	payee, err := paymentchannel.NewPayee(m.sellerTerms, msg.Value, msg.Anchor,
		m.seller.joinKey, m.seller.joinFinalAddress, msg.ContractPk, msg.FinalAddress)
	if err != nil {
		m.handlers.RemoteMessageOverflow()
		return
	}

	m.seller.payee = payee
	m.state = StateReadyForPieceRequest
	m.handlers.ContractIsReady(msg.Value, msg.Anchor, msg.ContractPk, msg.FinalAddress)
}

func (m *Machine) recvRequestFullPiece(msg *wire.RequestFullPiece) {
	switch m.state {
	case StateReadyForPieceRequest, StateLoadingPiece:
	default:
		m.handlers.RemoteMessageOverflow()
		return
	}

	if msg.PieceIndex > m.maxPieceIndex {
		m.handlers.InvalidPieceRequested()
		return
	}

	m.state = StateLoadingPiece
	m.handlers.PieceRequested(msg.PieceIndex)
}

func (m *Machine) recvPayment(msg *wire.Payment) {
	switch m.state {
	case StateReadyForPieceRequest, StateLoadingPiece:
	default:
		m.handlers.RemoteMessageOverflow()
		return
	}

	ok, err := m.seller.payee.RegisterPayment(msg.Signature)
	if err != nil || !ok {
		m.handlers.InvalidPayment(msg.Signature)
		return
	}
	m.handlers.ValidPayment(msg.Signature)
}

func (m *Machine) recvSpeed(msg *wire.Speed) {
	if m.localMode != ModeSell || m.state != StateReadyForBuyerInvitation {
		m.handlers.RemoteMessageOverflow()
		return
	}
	if msg.PayloadSize > m.maxSpeedTestPayloadSize {
		m.handlers.RemoteMessageOverflow()
		return
	}

	m.handlers.BuyerRequestedSpeedTest(msg.PayloadSize)

	// deterministic payload of the declared size
	m.send(&wire.FullPiece{Data: make([]byte, msg.PayloadSize)})
}
