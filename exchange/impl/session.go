package exchangeimpl

import (
	"errors"
	"time"

	"github.com/hannahhoward/go-pubsub"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"

	"github.com/paidswarm/go-piece-exchange/exchange"
	"github.com/paidswarm/go-piece-exchange/exchange/machine"
	"github.com/paidswarm/go-piece-exchange/paymentchannel"
	"github.com/paidswarm/go-piece-exchange/wire"
)

var log = logging.Logger("exchangesession")

const (
	defaultMaxConcurrentRequests  = 4
	defaultMaxOutstandingPayments = 4
	defaultMaxPiecesToPreload     = 2
)

// Option configures a session at construction.
type Option[ID comparable] func(*Session[ID])

// WithClock injects the time source the session's two timers poll. Tests
// use it to drive timeouts deterministically.
func WithClock[ID comparable](now func() time.Time) Option[ID] {
	return func(s *Session[ID]) {
		s.now = now
	}
}

// WithSpeedTestPolicy replaces the default speed test policy.
func WithSpeedTestPolicy[ID comparable](policy exchange.SpeedTestPolicy) Option[ID] {
	return func(s *Session[ID]) {
		s.policy = policy
	}
}

// WithMaxConcurrentRequests bounds piece requests in flight per seller.
func WithMaxConcurrentRequests[ID comparable](max int) Option[ID] {
	return func(s *Session[ID]) {
		s.maxConcurrentRequests = max
	}
}

// WithPipelineLimits bounds the seller side delivery pipeline: how many
// deliveries may be unpaid, and how many further pieces to preload.
func WithPipelineLimits[ID comparable](maxOutstandingPayments int, maxPiecesToPreload int) Option[ID] {
	return func(s *Session[ID]) {
		s.maxOutstandingPayments = maxOutstandingPayments
		s.maxPiecesToPreload = maxPiecesToPreload
	}
}

// Session is the production implementation of the exchange.Session
// interface. See that interface for the threading contract: the host
// serializes all entry points and every call runs to completion
// synchronously.
type Session[ID comparable] struct {
	mode  exchange.SessionMode
	state exchange.SessionState

	connections map[ID]*connection[ID]

	observing *observing[ID]
	buying    *buying[ID]
	selling   *selling[ID]

	policy                 exchange.SpeedTestPolicy
	maxConcurrentRequests  int
	maxOutstandingPayments int
	maxPiecesToPreload     int

	now func() time.Time

	subscribers *pubsub.PubSub
}

var _ exchange.Session[int] = (*Session[int])(nil)

func notificationDispatcher[ID comparable](evt pubsub.Event, subscriberFn pubsub.SubscriberFn) error {
	n, ok := evt.(exchange.SessionNotification[ID])
	if !ok {
		return errors.New("wrong type of event")
	}
	cb, ok := subscriberFn.(exchange.SessionSubscriber[ID])
	if !ok {
		return errors.New("wrong type of subscriber")
	}
	cb(n)
	return nil
}

// NewSession creates a stopped session with no mode. Pick a mode with one
// of the To*Mode calls before adding connections.
func NewSession[ID comparable](opts ...Option[ID]) *Session[ID] {
	s := &Session[ID]{
		mode:                   exchange.SessionModeNotSet,
		state:                  exchange.SessionStateStopped,
		connections:            make(map[ID]*connection[ID]),
		policy:                 exchange.DefaultSpeedTestPolicy(),
		maxConcurrentRequests:  defaultMaxConcurrentRequests,
		maxOutstandingPayments: defaultMaxOutstandingPayments,
		maxPiecesToPreload:     defaultMaxPiecesToPreload,
		now:                    time.Now,
		subscribers:            pubsub.New(notificationDispatcher[ID]),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddConnection creates a connection in the current mode and announces the
// local mode and terms on it.
func (s *Session[ID]) AddConnection(id ID, send exchange.SendMessage) (int, error) {
	if s.mode == exchange.SessionModeNotSet {
		return 0, exchange.ErrStateIncompatibleOperation
	}
	if s.state == exchange.SessionStateStopped {
		return 0, exchange.ErrStateIncompatibleOperation
	}
	if _, ok := s.connections[id]; ok {
		return 0, exchange.ConnectionAlreadyExistsError[ID]{ID: id}
	}

	c := s.createConnection(id, send)
	s.connections[id] = c

	switch s.mode {
	case exchange.SessionModeObserving:
		c.machine.ObserveModeStarted()
	case exchange.SessionModeBuying:
		c.machine.BuyModeStarted(s.buying.terms)
	case exchange.SessionModeSelling:
		c.machine.SellModeStarted(s.selling.terms, s.selling.maxPieceIndex)
	}

	log.Infof("added connection %v (%d total)", id, len(s.connections))
	s.publish(exchange.SessionNotification[ID]{Event: exchange.SessionEventConnectionAdded, Connection: &id})
	return len(s.connections), nil
}

// RemoveConnection removes a connection on the client's initiative.
func (s *Session[ID]) RemoveConnection(id ID) error {
	if s.state == exchange.SessionStateStopped {
		return exchange.ErrStateIncompatibleOperation
	}
	if _, ok := s.connections[id]; !ok {
		return exchange.ConnectionDoesNotExistError[ID]{ID: id}
	}

	s.removeConnection(id, exchange.DisconnectCauseClient)
	return nil
}

// ProcessMessageOnConnection feeds an inbound message to a connection's
// machine. The machine may drop the connection as a side effect.
func (s *Session[ID]) ProcessMessageOnConnection(id ID, msg wire.Message) error {
	c, ok := s.connections[id]
	if !ok {
		return exchange.ConnectionDoesNotExistError[ID]{ID: id}
	}
	c.machine.Process(msg)
	return nil
}

// Tick drives the session's time based checks.
func (s *Session[ID]) Tick() {
	if s.buying != nil {
		s.buying.tick()
	}
	if s.selling != nil {
		s.selling.tick()
	}
}

// Start makes the session fully operational.
func (s *Session[ID]) Start() error {
	if s.state == exchange.SessionStateStarted {
		return exchange.ErrStateIncompatibleOperation
	}
	if s.mode == exchange.SessionModeNotSet {
		return exchange.ErrStateIncompatibleOperation
	}

	s.state = exchange.SessionStateStarted
	if s.buying != nil {
		s.buying.start()
	}
	if s.selling != nil {
		s.selling.start()
	}

	s.publish(exchange.SessionNotification[ID]{Event: exchange.SessionEventStateChanged})
	return nil
}

// Stop removes every connection with cause Client and clears mode
// bookkeeping.
func (s *Session[ID]) Stop() error {
	if s.state == exchange.SessionStateStopped {
		return exchange.ErrStateIncompatibleOperation
	}

	switch s.mode {
	case exchange.SessionModeObserving:
		s.observing.stop()
	case exchange.SessionModeBuying:
		s.buying.stop()
	case exchange.SessionModeSelling:
		s.selling.stop()
	}

	s.state = exchange.SessionStateStopped
	s.publish(exchange.SessionNotification[ID]{Event: exchange.SessionEventStateChanged})
	return nil
}

// Pause keeps connections but suppresses piece requests and new
// invitations.
func (s *Session[ID]) Pause() error {
	if s.state != exchange.SessionStateStarted {
		return exchange.ErrStateIncompatibleOperation
	}
	s.state = exchange.SessionStatePaused
	s.publish(exchange.SessionNotification[ID]{Event: exchange.SessionEventStateChanged})
	return nil
}

// ToObserveMode switches the session to observing.
func (s *Session[ID]) ToObserveMode(callbacks exchange.ObservingCallbacks[ID]) error {
	if s.mode == exchange.SessionModeObserving {
		return exchange.ErrModeIncompatibleOperation
	}
	s.leaveMode()

	s.observing = newObserving(s, callbacks)
	s.mode = exchange.SessionModeObserving

	for _, c := range s.connections {
		c.machine.ObserveModeStarted()
	}
	s.publish(exchange.SessionNotification[ID]{Event: exchange.SessionEventModeChanged})
	return nil
}

// ToSellMode switches the session to selling with the given terms.
func (s *Session[ID]) ToSellMode(callbacks exchange.SellingCallbacks[ID], terms wire.SellerTerms, maxPieceIndex uint64) error {
	if s.mode == exchange.SessionModeSelling {
		return exchange.ErrModeIncompatibleOperation
	}
	s.leaveMode()

	s.selling = newSelling(s, callbacks, terms, maxPieceIndex)
	s.mode = exchange.SessionModeSelling

	for _, c := range s.connections {
		c.pipeline = newPieceDeliveryPipeline()
		c.machine.SellModeStarted(terms, maxPieceIndex)
	}
	s.publish(exchange.SessionNotification[ID]{Event: exchange.SessionEventModeChanged})
	return nil
}

// ToBuyMode switches the session to buying with the given terms and piece
// table.
func (s *Session[ID]) ToBuyMode(callbacks exchange.BuyingCallbacks[ID], terms wire.BuyerTerms,
	information []exchange.PieceInformation, pick exchange.PickNextPiece[ID],
	maxTimeToServicePiece time.Duration) error {

	if s.mode == exchange.SessionModeBuying {
		return exchange.ErrModeIncompatibleOperation
	}
	if pick == nil {
		return xerrors.New("a piece picking method is required in buy mode")
	}
	s.leaveMode()

	s.buying = newBuying(s, callbacks, terms, information, pick, maxTimeToServicePiece)
	s.mode = exchange.SessionModeBuying

	for _, c := range s.connections {
		c.machine.BuyModeStarted(terms)
	}
	if s.state == exchange.SessionStateStarted {
		s.buying.start()
	}
	s.publish(exchange.SessionNotification[ID]{Event: exchange.SessionEventModeChanged})
	return nil
}

// leaveMode gives the active mode a chance to compensate peers before it is
// replaced.
func (s *Session[ID]) leaveMode() {
	if s.buying != nil {
		s.buying.leavingState()
	}
	s.observing = nil
	s.buying = nil
	s.selling = nil
}

// StartDownloading hands the session the funded contract.
func (s *Session[ID]) StartDownloading(contract *paymentchannel.Contract, peers map[ID]exchange.StartDownloadInformation) error {
	if s.mode != exchange.SessionModeBuying {
		return exchange.ErrModeIncompatibleOperation
	}
	return s.buying.startDownloading(contract, peers)
}

// PieceLoaded answers a LoadPieceForBuyer callback.
func (s *Session[ID]) PieceLoaded(id ID, data []byte, pieceIndex int) error {
	if s.mode != exchange.SessionModeSelling {
		return exchange.ErrModeIncompatibleOperation
	}
	return s.selling.pieceLoaded(id, data, pieceIndex)
}

// PieceDownloaded marks a piece downloaded through an out of band source.
func (s *Session[ID]) PieceDownloaded(pieceIndex int) error {
	if s.mode != exchange.SessionModeBuying {
		return exchange.ErrModeIncompatibleOperation
	}
	return s.buying.pieceDownloaded(pieceIndex)
}

// UpdateBuyerTerms renegotiates buying terms.
func (s *Session[ID]) UpdateBuyerTerms(terms wire.BuyerTerms) error {
	if s.mode != exchange.SessionModeBuying {
		return exchange.ErrModeIncompatibleOperation
	}
	s.buying.updateTerms(terms)
	return nil
}

// UpdateSellerTerms renegotiates selling terms.
func (s *Session[ID]) UpdateSellerTerms(terms wire.SellerTerms) error {
	if s.mode != exchange.SessionModeSelling {
		return exchange.ErrModeIncompatibleOperation
	}
	s.selling.updateTerms(terms)
	return nil
}

// Status returns a snapshot of the session.
func (s *Session[ID]) Status() exchange.SessionStatus[ID] {
	status := exchange.SessionStatus[ID]{
		Mode:        s.mode,
		State:       s.state,
		Connections: make(map[ID]exchange.ConnectionStatus[ID], len(s.connections)),
	}
	for id, c := range s.connections {
		cs := exchange.ConnectionStatus[ID]{
			Connection:            id,
			State:                 c.machine.State(),
			AnnouncedModeAndTerms: c.machine.AnnouncedModeAndTermsFromPeer(),
		}
		if payor := c.machine.Payor(); payor != nil {
			cs.PaymentsMade = payor.NumberOfPaymentsMade()
			cs.AmountPaid = payor.AmountPaid()
		}
		if payee := c.machine.Payee(); payee != nil {
			cs.PaymentsReceived = payee.NumberOfPaymentsMade()
			cs.AmountReceived = payee.AmountPaid()
		}
		if c.hasCompletedSpeedTest() {
			cs.SpeedTestCompleted = true
			cs.SpeedTestLatency = c.speedTestLatency()
		}
		status.Connections[id] = cs
	}
	if s.buying != nil {
		status.Buying = s.buying.status()
	}
	if s.selling != nil {
		status.Selling = s.selling.status()
	}
	return status
}

// SubscribeToEvents registers a subscriber for session notifications.
func (s *Session[ID]) SubscribeToEvents(subscriber exchange.SessionSubscriber[ID]) exchange.Unsubscribe {
	return exchange.Unsubscribe(s.subscribers.Subscribe(subscriber))
}

func (s *Session[ID]) publish(n exchange.SessionNotification[ID]) {
	_ = s.subscribers.Publish(n)
}

// peerAnnouncedModeAndTerms forwards a peer announcement to the active
// mode.
func (s *Session[ID]) peerAnnouncedModeAndTerms(id ID, a machine.AnnouncedModeAndTerms) {
	log.Debugf("connection %v announced %s", id, a.Mode)
	if s.buying != nil {
		s.buying.peerAnnouncedModeAndTerms(id, a)
	}
}

// remoteMessageOverflow removes a connection that sent a message out of
// contract. The cause depends on which side the peer was playing.
func (s *Session[ID]) remoteMessageOverflow(id ID) {
	log.Errorf("message overflow from connection %v", id)
	switch s.mode {
	case exchange.SessionModeBuying:
		s.buying.removeConnection(id, exchange.DisconnectCauseSellerMessageOverflow)
	case exchange.SessionModeSelling:
		s.selling.removeConnection(id, exchange.DisconnectCauseBuyerMessageOverflow)
	case exchange.SessionModeObserving:
		cause := exchange.DisconnectCauseBuyerMessageOverflow
		if c, ok := s.connections[id]; ok &&
			c.machine.AnnouncedModeAndTermsFromPeer().Mode == machine.ModeSell {
			cause = exchange.DisconnectCauseSellerMessageOverflow
		}
		s.observing.removeConnection(id, cause)
	}
}

// removeConnection routes a removal through the active mode so it can clean
// up first.
func (s *Session[ID]) removeConnection(id ID, cause exchange.DisconnectCause) {
	switch s.mode {
	case exchange.SessionModeObserving:
		s.observing.removeConnection(id, cause)
	case exchange.SessionModeBuying:
		s.buying.removeConnection(id, cause)
	case exchange.SessionModeSelling:
		s.selling.removeConnection(id, cause)
	}
}

// connectionIDs snapshots the connection keys, for removal loops that
// mutate the map.
func (s *Session[ID]) connectionIDs() []ID {
	ids := make([]ID, 0, len(s.connections))
	for id := range s.connections {
		ids = append(ids, id)
	}
	return ids
}

// destroyConnection halts the machine and drops the connection from the
// session map. Mode cleanup has already happened.
func (s *Session[ID]) destroyConnection(id ID) {
	c, ok := s.connections[id]
	if !ok {
		return
	}
	c.machine.Halt()
	delete(s.connections, id)
}

// notifyRemoved publishes the removal after the mode's client callback.
func (s *Session[ID]) notifyRemoved(id ID, cause exchange.DisconnectCause) {
	log.Infof("removed connection %v: %s", id, cause)
	s.publish(exchange.SessionNotification[ID]{
		Event:      exchange.SessionEventConnectionRemoved,
		Connection: &id,
		Cause:      cause,
	})
}
