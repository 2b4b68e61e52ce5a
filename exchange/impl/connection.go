package exchangeimpl

import (
	"time"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"

	"github.com/paidswarm/go-piece-exchange/exchange"
	"github.com/paidswarm/go-piece-exchange/exchange/machine"
	"github.com/paidswarm/go-piece-exchange/wire"
)

// connection is one peer of the session: its protocol machine, its seller
// side delivery pipeline, and its speed test bookkeeping.
type connection[ID comparable] struct {
	id       ID
	machine  *machine.Machine
	pipeline *pieceDeliveryPipeline

	// speed test bookkeeping; zero values mean not started / not completed
	speedTestStartedAt   time.Time
	speedTestCompletedAt time.Time
}

func (c *connection[ID]) hasStartedSpeedTest() bool {
	return !c.speedTestStartedAt.IsZero()
}

func (c *connection[ID]) hasCompletedSpeedTest() bool {
	return !c.speedTestCompletedAt.IsZero()
}

func (c *connection[ID]) speedTestLatency() time.Duration {
	return c.speedTestCompletedAt.Sub(c.speedTestStartedAt)
}

// createConnection wires a fresh machine to the session's event dispatch.
// Every machine handler closes over the connection id and forwards to the
// mode that is active when the event fires, not when the connection was
// created.
func (s *Session[ID]) createConnection(id ID, send exchange.SendMessage) *connection[ID] {
	c := &connection[ID]{id: id, pipeline: newPieceDeliveryPipeline()}
	c.machine = machine.New(machine.EventHandlers{
		Send: func(msg wire.Message) {
			send(msg)
		},
		PeerAnnouncedModeAndTerms: func(a machine.AnnouncedModeAndTerms) {
			s.peerAnnouncedModeAndTerms(id, a)
		},
		InvitedToOutdatedContract: func() {
			log.Debugf("connection %v: invitation against outdated terms ignored", id)
		},
		InvitedToJoinContract: func() {
			if s.selling != nil {
				s.selling.invitedToJoinContract(id)
			}
		},
		ContractIsReady: func(value abi.TokenAmount, anchor wire.OutPoint, contractPk []byte, finalAddress address.Address) {
			if s.selling != nil {
				s.selling.contractIsReady(id, value, anchor, contractPk, finalAddress)
			}
		},
		PieceRequested: func(pieceIndex uint64) {
			if s.selling != nil {
				s.selling.pieceRequested(id, int(pieceIndex))
			}
		},
		InvalidPieceRequested: func() {
			if s.selling != nil {
				s.selling.invalidPieceRequested(id)
			}
		},
		PeerInterruptedPayment: func() {
			if s.selling != nil {
				s.selling.paymentInterrupted(id)
			}
		},
		ValidPayment: func(signature []byte) {
			if s.selling != nil {
				s.selling.receivedValidPayment(id, signature)
			}
		},
		InvalidPayment: func(signature []byte) {
			if s.selling != nil {
				s.selling.receivedInvalidPayment(id, signature)
			}
		},
		SellerJoined: func() {
			if s.buying != nil {
				s.buying.sellerHasJoined(id)
			}
		},
		SellerInterruptedContract: func() {
			if s.buying != nil {
				s.buying.sellerHasInterruptedContract(id)
			}
		},
		ReceivedFullPiece: func(data []byte) {
			if s.buying != nil {
				s.buying.receivedFullPiece(id, data)
			}
		},
		RemoteMessageOverflow: func() {
			s.remoteMessageOverflow(id)
		},
		SellerCompletedSpeedTest: func(success bool) {
			if s.buying != nil {
				s.buying.sellerCompletedSpeedTest(id, success)
			}
		},
		BuyerRequestedSpeedTest: func(payloadSize uint64) {
			log.Infof("connection %v: buyer requested speed test payload of %d bytes", id, payloadSize)
		},
	})
	c.machine.SetMaxSpeedTestPayloadSize(s.policy.MaxPayloadSize)
	return c
}
