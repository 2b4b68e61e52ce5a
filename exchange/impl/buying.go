package exchangeimpl

import (
	"time"

	"golang.org/x/xerrors"

	"github.com/paidswarm/go-piece-exchange/exchange"
	"github.com/paidswarm/go-piece-exchange/exchange/machine"
	"github.com/paidswarm/go-piece-exchange/paymentchannel"
	"github.com/paidswarm/go-piece-exchange/wire"
)

// buying is the buy mode of a session: it drives invitations, contract
// preparation and the download itself, and owns the piece table and the
// seller records.
type buying[ID comparable] struct {
	session *Session[ID]

	cb exchange.BuyingCallbacks[ID]

	state exchange.BuyingState

	terms wire.BuyerTerms

	// sellers maps connection ids to seller records. Gone sellers stay in
	// the map until every seller is gone and the table resets.
	sellers map[ID]*seller[ID]

	pieces []piece[ID]

	// numberOfMissingPieces counts pieces not yet downloaded; zero means
	// the download completed
	numberOfMissingPieces int

	pick exchange.PickNextPiece[ID]

	maxTimeToServicePiece time.Duration

	lastStartOfSendingInvitations time.Time
}

func newBuying[ID comparable](session *Session[ID], cb exchange.BuyingCallbacks[ID],
	terms wire.BuyerTerms, information []exchange.PieceInformation,
	pick exchange.PickNextPiece[ID], maxTimeToServicePiece time.Duration) *buying[ID] {

	b := &buying[ID]{
		session:               session,
		cb:                    cb,
		state:                 exchange.BuyingStateSendingInvitations,
		terms:                 terms,
		sellers:               make(map[ID]*seller[ID]),
		pieces:                make([]piece[ID], 0, len(information)),
		pick:                  pick,
		maxTimeToServicePiece: maxTimeToServicePiece,
	}

	for i, inf := range information {
		p := piece[ID]{index: i, size: inf.Size, state: exchange.PieceStateUnassigned}
		if inf.Downloaded {
			p.state = exchange.PieceStateDownloaded
		} else {
			b.numberOfMissingPieces++
		}
		b.pieces = append(b.pieces, p)
	}
	return b
}

// start notes the invitation phase start time and, if still collecting
// sellers, runs an invitation pass over peers that announced before the
// session started.
func (b *buying[ID]) start() {
	b.lastStartOfSendingInvitations = b.session.now()
	if b.state == exchange.BuyingStateSendingInvitations {
		b.sendInvitations()
	}
}

// stop compensates and drops all sellers and removes every connection.
func (b *buying[ID]) stop() {
	b.politeSellerCompensation()
	b.sellers = make(map[ID]*seller[ID])

	for _, id := range b.session.connectionIDs() {
		b.removeConnection(id, exchange.DisconnectCauseClient)
	}

	for i := range b.pieces {
		if b.pieces[i].state == exchange.PieceStateAssigned {
			b.pieces[i].deAssign()
		}
	}

	// an interrupted download restarts from invitations; a completed one
	// stays completed
	if b.state == exchange.BuyingStateDownloading {
		b.state = exchange.BuyingStateSendingInvitations
	}
}

// leavingState compensates sellers before the mode is replaced.
func (b *buying[ID]) leavingState() {
	b.politeSellerCompensation()
}

// peerAnnouncedModeAndTerms may (re)invite a seller with agreeable terms.
func (b *buying[ID]) peerAnnouncedModeAndTerms(id ID, a machine.AnnouncedModeAndTerms) {
	if b.session.state != exchange.SessionStateStarted ||
		b.state != exchange.BuyingStateSendingInvitations {
		return
	}
	c, ok := b.session.connections[id]
	if !ok {
		return
	}
	b.maybeInviteSeller(c, a)
}

// maybeInviteSeller invites a seller whose announced terms satisfy ours,
// first sending it through a speed test when the policy requires one.
func (b *buying[ID]) maybeInviteSeller(c *connection[ID], a machine.AnnouncedModeAndTerms) {
	if a.Mode != machine.ModeSell || !b.terms.SatisfiedBy(a.SellerTerms) {
		return
	}
	// an invitation or speed test may already be in progress
	if c.machine.State() != machine.StateReadyForInvitation {
		return
	}

	policy := b.session.policy
	if policy.Enabled && !c.hasCompletedSpeedTest() {
		if c.hasStartedSpeedTest() {
			// test already in flight
			return
		}
		c.speedTestStartedAt = b.session.now()
		c.machine.TestSellerSpeed(policy.PayloadSize)
		return
	}

	c.machine.InviteSeller()
	log.Infof("invited seller %v", c.id)
}

// sendInvitations runs an invitation pass over every connection.
func (b *buying[ID]) sendInvitations() {
	for _, c := range b.session.connections {
		b.maybeInviteSeller(c, c.machine.AnnouncedModeAndTermsFromPeer())
	}
}

// sellerCompletedSpeedTest handles the speed test verdict for a seller.
func (b *buying[ID]) sellerCompletedSpeedTest(id ID, success bool) {
	c, ok := b.session.connections[id]
	if !ok {
		return
	}

	if !success {
		b.removeConnection(id, exchange.DisconnectCauseSellerFailedSpeedTest)
		return
	}

	c.speedTestCompletedAt = b.session.now()

	policy := b.session.policy
	if policy.DisconnectIfSlow && c.speedTestLatency() > policy.MaxTimeToRespond {
		log.Infof("seller %v delivered the test payload too slowly (%s)", id, c.speedTestLatency())
		b.removeConnection(id, exchange.DisconnectCauseSellerFailedSpeedTest)
		return
	}

	if b.session.state == exchange.SessionStateStarted &&
		b.state == exchange.BuyingStateSendingInvitations {
		b.maybeInviteSeller(c, c.machine.AnnouncedModeAndTermsFromPeer())
	}
}

func (b *buying[ID]) sellerHasJoined(id ID) {
	log.Debugf("seller %v joined the contract", id)
}

// sellerHasInterruptedContract drops a seller that re-announced while a
// contract was live.
func (b *buying[ID]) sellerHasInterruptedContract(id ID) {
	b.removeConnection(id, exchange.DisconnectCauseSellerHasInterruptedContract)
}

// startDownloading validates every listed peer against the committed terms
// and, only if all are ready, creates the sellers and enters Downloading.
func (b *buying[ID]) startDownloading(contract *paymentchannel.Contract, peers map[ID]exchange.StartDownloadInformation) error {
	if b.state != exchange.BuyingStateSendingInvitations {
		return exchange.ErrNoLongerSendingInvitations
	}

	notReady := make(map[ID]exchange.PeerNotReadyCause)
	for id, inf := range peers {
		c, ok := b.session.connections[id]
		switch {
		case !ok:
			notReady[id] = exchange.PeerNotReadyConnectionGone
		case c.machine.State() != machine.StatePreparingContract:
			notReady[id] = exchange.PeerNotReadyNotInPreparingContract
		case !c.machine.AnnouncedModeAndTermsFromPeer().SellerTerms.Equals(inf.SellerTerms):
			notReady[id] = exchange.PeerNotReadyTermsExpired
		}
	}
	if len(notReady) > 0 {
		return exchange.PeersNotAllReadyToStartDownloadError[ID]{Causes: notReady}
	}

	txid, err := contract.TxID()
	if err != nil {
		return xerrors.Errorf("deriving contract txid: %w", err)
	}

	// all peers verified ready; state changes before the first piece is
	// assigned
	b.state = exchange.BuyingStateDownloading

	for id, inf := range peers {
		c := b.session.connections[id]
		s := newSeller(c, b.session.now)
		b.sellers[id] = s

		anchor := wire.OutPoint{TxID: txid, Index: inf.Index}
		if err := c.machine.ContractPrepared(inf.Value, anchor, inf.ContractKey, inf.FinalAddress); err != nil {
			log.Errorf("announcing contract to %v: %s", id, err)
			b.removeConnection(id, exchange.DisconnectCauseSellerMessageOverflow)
			continue
		}

		b.tryToAssignAndRequestPieces(s)
	}

	log.Infof("started downloading from %d sellers", len(peers))
	b.session.publish(exchange.SessionNotification[ID]{Event: exchange.SessionEventStartedDownloading})
	return nil
}

// tryToAssignAndRequestPieces tops the seller's request queue up to the
// concurrency bound, as long as the picker finds unassigned pieces.
func (b *buying[ID]) tryToAssignAndRequestPieces(s *seller[ID]) int {
	if b.session.state != exchange.SessionStateStarted ||
		b.state != exchange.BuyingStateDownloading || s.isGone() {
		return 0
	}

	newRequests := 0
	for len(s.piecesAwaitingArrival) < b.session.maxConcurrentRequests {
		index, ok := b.pick(b.pieceStatuses())
		if !ok {
			break
		}
		if index < 0 || index >= len(b.pieces) ||
			b.pieces[index].state != exchange.PieceStateUnassigned {
			log.Errorf("piece picker returned piece %d which is not unassigned", index)
			break
		}

		b.pieces[index].assigned(s.connection.id)
		s.requestPiece(index)
		newRequests++
	}
	return newRequests
}

// receivedFullPiece hands an arrived piece to the client for validation and
// settles the verdict.
func (b *buying[ID]) receivedFullPiece(id ID, data []byte) {
	s, ok := b.sellers[id]
	if !ok || s.isGone() {
		log.Errorf("piece arrived on connection %v which is not a live seller", id)
		return
	}

	index := s.fullPieceArrived()
	b.pieces[index].arrived()

	if b.cb.FullPieceArrived(id, data, index) {
		b.validPieceReceived(s, index)
	} else {
		b.invalidPieceReceived(s, index)
	}
}

// validPieceReceived pays for a validated piece and keeps the seller busy.
func (b *buying[ID]) validPieceReceived(s *seller[ID], index int) {
	id := s.connection.id

	s.pieceWasValid()

	payor := s.connection.machine.Payor()
	b.cb.SentPayment(id, payor.Price(), payor.NumberOfPaymentsMade(), payor.AmountPaid(), index)

	b.markDownloaded(index)

	if b.state == exchange.BuyingStateDownloading {
		b.tryToAssignAndRequestPieces(s)
	}
}

// invalidPieceReceived drops the offending seller and frees the piece for
// reassignment.
func (b *buying[ID]) invalidPieceReceived(s *seller[ID], index int) {
	log.Warnf("piece %d from %v failed validation", index, s.connection.id)

	b.pieces[index].deAssign()
	s.pieceWasInvalid()
	b.removeConnection(s.connection.id, exchange.DisconnectCauseSellerSentInvalidPiece)
}

// markDownloaded transitions a piece to Downloaded once, tracking the
// missing count and download completion.
func (b *buying[ID]) markDownloaded(index int) {
	if b.pieces[index].state == exchange.PieceStateDownloaded {
		return
	}
	b.pieces[index].downloaded()
	b.numberOfMissingPieces--

	if b.numberOfMissingPieces == 0 {
		b.state = exchange.BuyingStateDownloadCompleted
		log.Infof("download completed")
		b.session.publish(exchange.SessionNotification[ID]{Event: exchange.SessionEventDownloadCompleted})
	}
}

// pieceDownloaded records a piece obtained through an out of band source.
func (b *buying[ID]) pieceDownloaded(index int) error {
	if index < 0 || index >= len(b.pieces) {
		return xerrors.Errorf("piece %d is out of range", index)
	}
	b.markDownloaded(index)
	return nil
}

// updateTerms renegotiates buying terms: compensate current sellers, drop
// them and start over collecting sellers under the new terms. Funds in the
// old contract stay locked until the host settles them.
func (b *buying[ID]) updateTerms(terms wire.BuyerTerms) {
	if b.state == exchange.BuyingStateDownloading {
		b.politeSellerCompensation()
	}

	for _, c := range b.session.connections {
		c.machine.UpdateBuyerTerms(terms)
	}
	b.terms = terms

	if b.state == exchange.BuyingStateDownloadCompleted {
		return
	}

	b.state = exchange.BuyingStateSendingInvitations
	b.sellers = make(map[ID]*seller[ID])
	for i := range b.pieces {
		if b.pieces[i].state == exchange.PieceStateAssigned {
			b.pieces[i].deAssign()
		}
	}

	if b.session.state == exchange.SessionStateStarted {
		b.sendInvitations()
	}
}

// tick runs the two timers: the speed test response deadline and the
// per-seller servicing timeout, plus the assignment retry for idle sellers.
func (b *buying[ID]) tick() {
	if b.session.state != exchange.SessionStateStarted {
		return
	}

	policy := b.session.policy
	if policy.Enabled && policy.DisconnectIfSlow {
		var timedOut []ID
		now := b.session.now()
		for id, c := range b.session.connections {
			if c.hasStartedSpeedTest() && !c.hasCompletedSpeedTest() &&
				now.Sub(c.speedTestStartedAt) > policy.MaxTimeToRespond {
				timedOut = append(timedOut, id)
			}
		}
		for _, id := range timedOut {
			log.Infof("seller %v did not answer the speed test in time", id)
			b.removeConnection(id, exchange.DisconnectCauseSellerFailedSpeedTest)
		}
	}

	if b.state != exchange.BuyingStateDownloading {
		return
	}

	var timedOut []ID
	for id, s := range b.sellers {
		if s.isGone() {
			continue
		}
		if s.servicingPieceHasTimedOut(b.maxTimeToServicePiece) {
			timedOut = append(timedOut, id)
		}
	}
	for _, id := range timedOut {
		b.removeConnection(id, exchange.DisconnectCauseSellerServicingPieceHasTimedOut)
	}

	// a seller may have gone idle while no piece was unassigned; pieces can
	// have been freed up since
	for _, s := range b.sellers {
		if !s.isGone() && len(s.piecesAwaitingArrival) == 0 {
			b.tryToAssignAndRequestPieces(s)
		}
	}

	b.resetIfAllSellersGone()
}

// removeConnection prepares a connection for removal: the seller record is
// retired, the machine destroyed, the client notified, and the seller table
// reset if this was the last one.
func (b *buying[ID]) removeConnection(id ID, cause exchange.DisconnectCause) {
	if s, ok := b.sellers[id]; ok && !s.isGone() {
		// a reconnect of the same peer can leave a gone record behind; only
		// a live one is retired here
		b.removeSeller(s)
	}

	b.session.destroyConnection(id)
	b.cb.RemovedConnection(id, cause)
	b.session.notifyRemoved(id, cause)

	if b.state == exchange.BuyingStateDownloading &&
		b.session.state == exchange.SessionStateStarted {
		b.resetIfAllSellersGone()
	}
}

// removeSeller retires a seller record and unassigns its pieces.
func (b *buying[ID]) removeSeller(s *seller[ID]) {
	id := s.connection.id
	for i := range b.pieces {
		if b.pieces[i].state == exchange.PieceStateAssigned && b.pieces[i].assignedTo == id {
			b.pieces[i].deAssign()
		}
	}
	s.removed()
}

// resetIfAllSellersGone returns to collecting sellers once the last one is
// gone.
func (b *buying[ID]) resetIfAllSellersGone() {
	if b.state != exchange.BuyingStateDownloading || len(b.sellers) == 0 {
		return
	}
	for _, s := range b.sellers {
		if !s.isGone() {
			return
		}
	}

	log.Infof("all sellers are gone")
	b.cb.AllSellersGone()
	b.session.publish(exchange.SessionNotification[ID]{Event: exchange.SessionEventAllSellersGone})

	b.state = exchange.BuyingStateSendingInvitations
	b.sellers = make(map[ID]*seller[ID])

	if b.session.state == exchange.SessionStateStarted {
		b.sendInvitations()
	}
}

// politeSellerCompensation pays every seller that might be owed for partial
// work before it is dropped: in-flight pieces are treated as arrived and
// validated, causing payments to flow. The receiver may reject payments for
// pieces it never delivered; this is a best effort gesture. A drained
// seller has nothing left to compensate, so running twice is harmless.
func (b *buying[ID]) politeSellerCompensation() {
	for _, s := range b.sellers {
		if s.isGone() || !s.isPossiblyOwedPayment() {
			continue
		}
		for len(s.piecesAwaitingArrival) > 0 {
			s.fullPieceArrived()
		}
		for s.numberOfPiecesAwaitingValidation > 0 {
			s.pieceWasValid()
		}
	}
}

func (b *buying[ID]) pieceStatuses() []exchange.PieceStatus[ID] {
	statuses := make([]exchange.PieceStatus[ID], 0, len(b.pieces))
	for i := range b.pieces {
		statuses = append(statuses, b.pieces[i].status())
	}
	return statuses
}

func (b *buying[ID]) status() *exchange.BuyingStatus[ID] {
	sellers := make(map[ID]exchange.SellerStatus[ID])
	for id, s := range b.sellers {
		if s.isGone() {
			continue
		}
		sellers[id] = s.status()
	}
	return &exchange.BuyingStatus[ID]{
		State:   b.state,
		Terms:   b.terms,
		Sellers: sellers,
		Pieces:  b.pieceStatuses(),
	}
}
