package machine_test

import (
	"testing"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/libp2p/go-libp2p-core/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paidswarm/go-piece-exchange/exchange/machine"
	"github.com/paidswarm/go-piece-exchange/paymentchannel"
	"github.com/paidswarm/go-piece-exchange/wire"
)

var buyerTerms = wire.BuyerTerms{
	MaxPrice:         abi.NewTokenAmount(20),
	MaxLock:          10,
	MinSellers:       2,
	MaxSettlementFee: abi.NewTokenAmount(5),
}

var sellerTerms = wire.SellerTerms{
	MinPrice:      abi.NewTokenAmount(10),
	MinLock:       5,
	MaxSellers:    4,
	SettlementFee: abi.NewTokenAmount(1),
}

// machineSpy records every handler invocation and outbound message.
type machineSpy struct {
	sent []wire.Message

	announced             []machine.AnnouncedModeAndTerms
	outdatedInvites       int
	invitationsToJoin     int
	contractReadyCount    int
	contractReadyValue    abi.TokenAmount
	pieceRequests         []uint64
	invalidPieceRequests  int
	interruptedPayments   int
	validPayments         [][]byte
	invalidPayments       [][]byte
	sellerJoinedCount     int
	sellerInterruptions   int
	fullPieces            [][]byte
	overflows             int
	speedTestResults      []bool
	speedTestRequestSizes []uint64
}

func (s *machineSpy) handlers() machine.EventHandlers {
	return machine.EventHandlers{
		Send: func(msg wire.Message) { s.sent = append(s.sent, msg) },
		PeerAnnouncedModeAndTerms: func(a machine.AnnouncedModeAndTerms) {
			s.announced = append(s.announced, a)
		},
		InvitedToOutdatedContract: func() { s.outdatedInvites++ },
		InvitedToJoinContract:     func() { s.invitationsToJoin++ },
		ContractIsReady: func(value abi.TokenAmount, anchor wire.OutPoint, contractPk []byte, finalAddress address.Address) {
			s.contractReadyCount++
			s.contractReadyValue = value
		},
		PieceRequested:            func(pieceIndex uint64) { s.pieceRequests = append(s.pieceRequests, pieceIndex) },
		InvalidPieceRequested:     func() { s.invalidPieceRequests++ },
		PeerInterruptedPayment:    func() { s.interruptedPayments++ },
		ValidPayment:              func(sig []byte) { s.validPayments = append(s.validPayments, sig) },
		InvalidPayment:            func(sig []byte) { s.invalidPayments = append(s.invalidPayments, sig) },
		SellerJoined:              func() { s.sellerJoinedCount++ },
		SellerInterruptedContract: func() { s.sellerInterruptions++ },
		ReceivedFullPiece:         func(data []byte) { s.fullPieces = append(s.fullPieces, data) },
		RemoteMessageOverflow:     func() { s.overflows++ },
		SellerCompletedSpeedTest:  func(success bool) { s.speedTestResults = append(s.speedTestResults, success) },
		BuyerRequestedSpeedTest: func(payloadSize uint64) {
			s.speedTestRequestSizes = append(s.speedTestRequestSizes, payloadSize)
		},
	}
}

func (s *machineSpy) lastSent(t *testing.T) wire.Message {
	require.NotEmpty(t, s.sent)
	return s.sent[len(s.sent)-1]
}

func generateKey(t *testing.T) crypto.PrivKey {
	priv, _, err := crypto.GenerateKeyPair(crypto.Secp256k1, 256)
	require.NoError(t, err)
	return priv
}

func marshalPub(t *testing.T, key crypto.PrivKey) []byte {
	pk, err := crypto.MarshalPublicKey(key.GetPublic())
	require.NoError(t, err)
	return pk
}

func TestObserveMode(t *testing.T) {
	spy := &machineSpy{}
	m := machine.New(spy.handlers())

	m.ObserveModeStarted()
	assert.Equal(t, machine.StateObserving, m.State())
	assert.Equal(t, &wire.Observe{}, spy.lastSent(t))

	m.Process(&wire.Sell{Terms: sellerTerms, Index: 1})
	require.Len(t, spy.announced, 1)
	assert.Equal(t, machine.ModeSell, spy.announced[0].Mode)
	assert.True(t, spy.announced[0].SellerTerms.Equals(sellerTerms))

	// pieces are out of contract when observing
	m.Process(&wire.RequestFullPiece{PieceIndex: 0})
	assert.Equal(t, 1, spy.overflows)
}

// takeBuyerToDownloading drives a buy mode machine to WaitingForPiece.
func takeBuyerToDownloading(t *testing.T, m *machine.Machine, spy *machineSpy) crypto.PrivKey {
	m.BuyModeStarted(buyerTerms)
	assert.Equal(t, &wire.Buy{Terms: buyerTerms}, spy.lastSent(t))

	m.Process(&wire.Sell{Terms: sellerTerms, Index: 1})

	m.InviteSeller()
	assert.Equal(t, machine.StateInvitedSeller, m.State())
	assert.Equal(t, &wire.JoinContract{Index: 1}, spy.lastSent(t))

	sellerKey := generateKey(t)
	m.Process(&wire.JoiningContract{
		ContractPk:   marshalPub(t, sellerKey),
		FinalAddress: address.TestAddress2,
	})
	assert.Equal(t, 1, spy.sellerJoinedCount)
	assert.Equal(t, machine.StatePreparingContract, m.State())

	buyerKey := generateKey(t)
	anchor := wire.OutPoint{TxID: wire.TxID{7}, Index: 0}
	require.NoError(t, m.ContractPrepared(abi.NewTokenAmount(40), anchor, buyerKey, address.TestAddress))
	assert.Equal(t, machine.StateWaitingForPiece, m.State())
	require.NotNil(t, m.Payor())

	ready, ok := spy.lastSent(t).(*wire.Ready)
	require.True(t, ok)
	assert.Equal(t, anchor, ready.Anchor)

	return sellerKey
}

func TestBuyHappyPath(t *testing.T) {
	spy := &machineSpy{}
	m := machine.New(spy.handlers())
	takeBuyerToDownloading(t, m, spy)

	m.RequestPiece(0)
	assert.Equal(t, machine.StateWaitingForFullPiece, m.State())
	assert.Equal(t, &wire.RequestFullPiece{PieceIndex: 0}, spy.lastSent(t))

	// requests may be pipelined
	m.RequestPiece(1)

	m.Process(&wire.FullPiece{Data: []byte("first")})
	assert.Equal(t, machine.StateWaitingForPieceValidation, m.State())
	require.Len(t, spy.fullPieces, 1)

	require.NoError(t, m.SendPayment())
	assert.Equal(t, machine.StateWaitingForFullPiece, m.State())
	_, isPayment := spy.lastSent(t).(*wire.Payment)
	assert.True(t, isPayment)
	assert.Equal(t, uint64(1), m.Payor().NumberOfPaymentsMade())

	m.Process(&wire.FullPiece{Data: []byte("second")})
	require.NoError(t, m.SendPayment())
	assert.Equal(t, machine.StateWaitingForPiece, m.State())
	assert.Equal(t, uint64(2), m.Payor().NumberOfPaymentsMade())
}

func TestSellerInterruptsLiveContract(t *testing.T) {
	spy := &machineSpy{}
	m := machine.New(spy.handlers())
	takeBuyerToDownloading(t, m, spy)

	m.RequestPiece(0)

	newTerms := sellerTerms
	newTerms.MinPrice = abi.NewTokenAmount(15)
	m.Process(&wire.Sell{Terms: newTerms, Index: 2})

	assert.Equal(t, 1, spy.sellerInterruptions)
	assert.Equal(t, machine.StateReadyForInvitation, m.State())
	assert.Nil(t, m.Payor())
}

func TestBuyerSpeedTest(t *testing.T) {
	spy := &machineSpy{}
	m := machine.New(spy.handlers())
	m.BuyModeStarted(buyerTerms)
	m.Process(&wire.Sell{Terms: sellerTerms, Index: 1})

	m.TestSellerSpeed(500)
	assert.Equal(t, machine.StateTestingSellerSpeed, m.State())
	assert.Equal(t, &wire.Speed{PayloadSize: 500}, spy.lastSent(t))

	m.Process(&wire.FullPiece{Data: make([]byte, 500)})
	assert.Equal(t, []bool{true}, spy.speedTestResults)
	assert.Equal(t, machine.StateReadyForInvitation, m.State())

	// a short payload fails the test
	m.TestSellerSpeed(500)
	m.Process(&wire.FullPiece{Data: make([]byte, 499)})
	assert.Equal(t, []bool{true, false}, spy.speedTestResults)
}

func TestSellHappyPath(t *testing.T) {
	spy := &machineSpy{}
	m := machine.New(spy.handlers())

	m.SellModeStarted(sellerTerms, 100)
	assert.Equal(t, machine.StateReadyForBuyerInvitation, m.State())
	assert.Equal(t, &wire.Sell{Terms: sellerTerms, Index: 1}, spy.lastSent(t))

	m.Process(&wire.Buy{Terms: buyerTerms})
	require.Len(t, spy.announced, 1)

	// an invitation referencing stale terms is ignored
	m.Process(&wire.JoinContract{Index: 7})
	assert.Equal(t, 1, spy.outdatedInvites)
	assert.Equal(t, machine.StateReadyForBuyerInvitation, m.State())

	m.Process(&wire.JoinContract{Index: 1})
	assert.Equal(t, 1, spy.invitationsToJoin)
	assert.Equal(t, machine.StateInvited, m.State())

	sellerKey := generateKey(t)
	require.NoError(t, m.Join(sellerKey, address.TestAddress2))
	assert.Equal(t, machine.StateWaitingForContractReady, m.State())
	joining, ok := spy.lastSent(t).(*wire.JoiningContract)
	require.True(t, ok)

	buyerKey := generateKey(t)
	anchor := wire.OutPoint{TxID: wire.TxID{9}, Index: 2}
	m.Process(&wire.Ready{
		Value:        abi.NewTokenAmount(40),
		Anchor:       anchor,
		ContractPk:   marshalPub(t, buyerKey),
		FinalAddress: address.TestAddress,
	})
	assert.Equal(t, 1, spy.contractReadyCount)
	assert.Equal(t, machine.StateReadyForPieceRequest, m.State())
	require.NotNil(t, m.Payee())

	m.Process(&wire.RequestFullPiece{PieceIndex: 5})
	assert.Equal(t, []uint64{5}, spy.pieceRequests)
	assert.Equal(t, machine.StateLoadingPiece, m.State())

	m.SendPiece([]byte("piece five"))
	assert.Equal(t, &wire.FullPiece{Data: []byte("piece five")}, spy.lastSent(t))

	// a valid payment from the matching payor registers
	payor, err := paymentchannel.NewPayor(sellerTerms, abi.NewTokenAmount(40), anchor,
		buyerKey, address.TestAddress, joining.ContractPk, joining.FinalAddress)
	require.NoError(t, err)
	sig, err := payor.MakePayment()
	require.NoError(t, err)

	m.Process(&wire.Payment{Signature: sig})
	require.Len(t, spy.validPayments, 1)
	assert.Equal(t, uint64(1), m.Payee().NumberOfPaymentsMade())

	// garbage does not
	m.Process(&wire.Payment{Signature: []byte("bogus")})
	require.Len(t, spy.invalidPayments, 1)
	assert.Equal(t, uint64(1), m.Payee().NumberOfPaymentsMade())

	// requests beyond the maximum piece index are invalid
	m.Process(&wire.RequestFullPiece{PieceIndex: 101})
	assert.Equal(t, 1, spy.invalidPieceRequests)
}

func TestSellerSpeedTestResponder(t *testing.T) {
	spy := &machineSpy{}
	m := machine.New(spy.handlers())
	m.SellModeStarted(sellerTerms, 100)
	m.SetMaxSpeedTestPayloadSize(1000)

	m.Process(&wire.Speed{PayloadSize: 1000})
	assert.Equal(t, []uint64{1000}, spy.speedTestRequestSizes)
	payload, ok := spy.lastSent(t).(*wire.FullPiece)
	require.True(t, ok)
	assert.Len(t, payload.Data, 1000)

	// one byte over the limit is rejected
	m.Process(&wire.Speed{PayloadSize: 1001})
	assert.Equal(t, 1, spy.overflows)
	require.Len(t, spy.speedTestRequestSizes, 1)
}

func TestBuyerInterruptsPayment(t *testing.T) {
	spy := &machineSpy{}
	m := machine.New(spy.handlers())
	m.SellModeStarted(sellerTerms, 100)

	m.Process(&wire.JoinContract{Index: 1})
	sellerKey := generateKey(t)
	require.NoError(t, m.Join(sellerKey, address.TestAddress2))
	m.Process(&wire.Ready{
		Value:        abi.NewTokenAmount(40),
		Anchor:       wire.OutPoint{},
		ContractPk:   marshalPub(t, generateKey(t)),
		FinalAddress: address.TestAddress,
	})
	require.Equal(t, machine.StateReadyForPieceRequest, m.State())

	// buyer re-announces mid contract
	m.Process(&wire.Buy{Terms: buyerTerms})
	assert.Equal(t, 1, spy.interruptedPayments)
	assert.Equal(t, machine.StateReadyForBuyerInvitation, m.State())
}

func TestUpdateSellerTermsBumpsRevision(t *testing.T) {
	spy := &machineSpy{}
	m := machine.New(spy.handlers())
	m.SellModeStarted(sellerTerms, 100)

	newTerms := sellerTerms
	newTerms.MinPrice = abi.NewTokenAmount(12)
	m.UpdateSellerTerms(newTerms)

	assert.Equal(t, &wire.Sell{Terms: newTerms, Index: 2}, spy.lastSent(t))
	assert.Equal(t, machine.StateReadyForBuyerInvitation, m.State())
}

func TestHaltedMachineIsInert(t *testing.T) {
	spy := &machineSpy{}
	m := machine.New(spy.handlers())
	m.ObserveModeStarted()
	sentBefore := len(spy.sent)

	m.Halt()
	m.Process(&wire.Sell{Terms: sellerTerms, Index: 1})
	m.ObserveModeStarted()

	assert.Len(t, spy.sent, sentBefore)
	assert.Empty(t, spy.announced)
}
