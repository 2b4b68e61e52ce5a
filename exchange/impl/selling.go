package exchangeimpl

import (
	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"

	"github.com/paidswarm/go-piece-exchange/exchange"
	"github.com/paidswarm/go-piece-exchange/wire"
)

// selling is the sell mode of a session: it joins contracts on invitation
// and runs each connection's delivery pipeline, bounded by outstanding
// unpaid deliveries and the preload budget.
type selling[ID comparable] struct {
	session *Session[ID]

	cb exchange.SellingCallbacks[ID]

	terms         wire.SellerTerms
	maxPieceIndex uint64
}

func newSelling[ID comparable](session *Session[ID], cb exchange.SellingCallbacks[ID],
	terms wire.SellerTerms, maxPieceIndex uint64) *selling[ID] {
	return &selling[ID]{
		session:       session,
		cb:            cb,
		terms:         terms,
		maxPieceIndex: maxPieceIndex,
	}
}

// start resumes pipeline progression for requests that queued up while
// paused.
func (s *selling[ID]) start() {
	for _, c := range s.session.connections {
		s.tryToSendPieces(c)
		s.tryToLoadPieces(c)
	}
}

// stop removes every connection, claiming last payments on the way out.
func (s *selling[ID]) stop() {
	for _, id := range s.session.connectionIDs() {
		s.removeConnection(id, exchange.DisconnectCauseClient)
	}
}

// tick drives pipeline progression for connections whose loads answered
// while nothing else was happening.
func (s *selling[ID]) tick() {
	if s.session.state != exchange.SessionStateStarted {
		return
	}
	for _, c := range s.session.connections {
		s.tryToSendPieces(c)
		s.tryToLoadPieces(c)
	}
}

// invitedToJoinContract answers a contract invitation with freshly
// generated keys, when the session is operational.
func (s *selling[ID]) invitedToJoinContract(id ID) {
	if s.session.state != exchange.SessionStateStarted {
		log.Debugf("ignoring contract invitation from %v while not started", id)
		return
	}
	c, ok := s.session.connections[id]
	if !ok {
		return
	}

	keys, err := s.cb.GenerateKeyPairs(1)
	if err != nil {
		log.Errorf("generating contract key for %v: %s", id, err)
		return
	}
	addrs, err := s.cb.GenerateFinalAddresses(1)
	if err != nil {
		log.Errorf("generating final address for %v: %s", id, err)
		return
	}

	if err := c.machine.Join(keys[0], addrs[0]); err != nil {
		log.Errorf("joining contract on %v: %s", id, err)
	}
}

// contractIsReady binds the pipeline to the channel capacity and surfaces
// the anchor to the client.
func (s *selling[ID]) contractIsReady(id ID, value abi.TokenAmount, anchor wire.OutPoint, contractPk []byte, finalAddress address.Address) {
	c, ok := s.session.connections[id]
	if !ok {
		return
	}

	c.pipeline = newPieceDeliveryPipeline()
	c.pipeline.setCapacity(int(c.machine.Payee().MaxNumberOfPayments()))

	log.Infof("contract on %v anchored at %s with value %s", id, anchor, value)
	s.cb.AnchorAnnounced(id, value, anchor, contractPk, finalAddress)
}

// pieceRequested queues an incoming piece request and drives loading.
func (s *selling[ID]) pieceRequested(id ID, pieceIndex int) {
	c, ok := s.session.connections[id]
	if !ok {
		return
	}

	if !c.pipeline.add(pieceIndex) {
		log.Warnf("request for piece %d from %v exceeds the channel's payment capacity, ignored", pieceIndex, id)
		return
	}
	s.tryToLoadPieces(c)
}

// invalidPieceRequested drops a buyer that requested beyond the maximum
// piece index.
func (s *selling[ID]) invalidPieceRequested(id ID) {
	log.Warnf("connection %v requested a piece beyond the maximum index", id)
	s.removeConnection(id, exchange.DisconnectCauseBuyerMessageOverflow)
}

// pieceLoaded is the client's answer to LoadPieceForBuyer. Answers may
// arrive in any order; deliveries still go out in request order.
func (s *selling[ID]) pieceLoaded(id ID, data []byte, pieceIndex int) error {
	c, ok := s.session.connections[id]
	if !ok {
		return exchange.ConnectionDoesNotExistError[ID]{ID: id}
	}

	c.pipeline.dataReady(pieceIndex, data)
	s.tryToSendPieces(c)
	return nil
}

// receivedValidPayment settles the front of the pipeline and keeps it
// moving. Payments are honored even while paused.
func (s *selling[ID]) receivedValidPayment(id ID, signature []byte) {
	c, ok := s.session.connections[id]
	if !ok {
		return
	}

	payee := c.machine.Payee()
	s.cb.ReceivedValidPayment(id, payee.NumberOfPaymentsMade(), payee.AmountPaid())

	c.pipeline.paymentReceived()
	s.tryToSendPieces(c)
	s.tryToLoadPieces(c)
}

// receivedInvalidPayment drops the buyer.
func (s *selling[ID]) receivedInvalidPayment(id ID, signature []byte) {
	log.Warnf("invalid payment signature from %v", id)
	s.removeConnection(id, exchange.DisconnectCauseBuyerSentInvalidPayment)
}

// paymentInterrupted drops a buyer that walked away from unpaid
// deliveries.
func (s *selling[ID]) paymentInterrupted(id ID) {
	s.removeConnection(id, exchange.DisconnectCauseBuyerInterruptedPayment)
}

// updateTerms renegotiates selling terms on every connection.
func (s *selling[ID]) updateTerms(terms wire.SellerTerms) {
	s.terms = terms
	for _, c := range s.session.connections {
		c.machine.UpdateSellerTerms(terms)
	}
}

// tryToLoadPieces asks the client to load the next pieces the pipeline is
// willing to service.
func (s *selling[ID]) tryToLoadPieces(c *connection[ID]) {
	if s.session.state != exchange.SessionStateStarted {
		return
	}
	window := s.session.maxOutstandingPayments + s.session.maxPiecesToPreload
	for _, index := range c.pipeline.nextBatchToLoad(window - 1) {
		s.cb.LoadPieceForBuyer(c.id, index)
	}
}

// tryToSendPieces delivers every loaded piece the unpaid window allows.
func (s *selling[ID]) tryToSendPieces(c *connection[ID]) {
	if s.session.state != exchange.SessionStateStarted {
		return
	}
	for _, data := range c.pipeline.nextBatchToSend(s.session.maxOutstandingPayments - 1) {
		c.machine.SendPiece(data)
	}
}

// removeConnection prepares a connection for removal, claiming the last
// payment if any arrived.
func (s *selling[ID]) removeConnection(id ID, cause exchange.DisconnectCause) {
	c, ok := s.session.connections[id]
	if !ok {
		return
	}

	s.tryToClaimLastPayment(c)

	s.session.destroyConnection(id)
	s.cb.RemovedConnection(id, cause)
	s.session.notifyRemoved(id, cause)
}

// tryToClaimLastPayment hands the payee to the client when at least one
// payment was registered, so a settlement can be broadcast.
func (s *selling[ID]) tryToClaimLastPayment(c *connection[ID]) {
	payee := c.machine.Payee()
	if payee == nil || payee.NumberOfPaymentsMade() == 0 {
		return
	}
	s.cb.ClaimLastPayment(c.id, payee)
}

func (s *selling[ID]) status() *exchange.SellingStatus {
	return &exchange.SellingStatus{Terms: s.terms}
}
