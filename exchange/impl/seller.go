package exchangeimpl

import (
	"time"

	"github.com/paidswarm/go-piece-exchange/exchange"
)

// servicingGracePeriod is how long a seller is shielded from the servicing
// timeout after it starts working on an empty queue.
const servicingGracePeriod = 10 * time.Second

// seller is the buyer side record of a connection a contract was opened
// with. Once the connection goes away the record is retained but inert.
type seller[ID comparable] struct {
	// connection is nil once the seller is gone
	connection *connection[ID]

	// piecesAwaitingArrival holds piece indexes in the order they were
	// requested
	piecesAwaitingArrival []int

	numberOfPiecesAwaitingValidation int

	// servicingStartedAt is when the seller last started servicing an empty
	// queue; frontPieceExpectedAt is the earliest the piece at the front of
	// the queue can be expected, re-armed on every arrival that leaves
	// pieces queued
	servicingStartedAt   time.Time
	frontPieceExpectedAt time.Time

	now func() time.Time
}

func newSeller[ID comparable](c *connection[ID], now func() time.Time) *seller[ID] {
	return &seller[ID]{connection: c, now: now}
}

func (s *seller[ID]) isGone() bool {
	return s.connection == nil
}

// requestPiece queues a piece request with the peer and returns the number
// of requests now in flight.
func (s *seller[ID]) requestPiece(pieceIndex int) int {
	if s.isGone() {
		panic("cannot request pieces from a disconnected seller")
	}

	if len(s.piecesAwaitingArrival) == 0 {
		now := s.now()
		s.servicingStartedAt = now
		s.frontPieceExpectedAt = now
	}
	s.piecesAwaitingArrival = append(s.piecesAwaitingArrival, pieceIndex)

	s.connection.machine.RequestPiece(uint64(pieceIndex))

	return len(s.piecesAwaitingArrival)
}

// fullPieceArrived pops the front of the queue and returns the piece index
// the arrival corresponds to. Pieces arrive in the order they were
// requested.
func (s *seller[ID]) fullPieceArrived() int {
	if len(s.piecesAwaitingArrival) == 0 {
		panic("seller is not expecting a piece")
	}

	index := s.piecesAwaitingArrival[0]
	s.piecesAwaitingArrival = s.piecesAwaitingArrival[1:]
	s.numberOfPiecesAwaitingValidation++

	if len(s.piecesAwaitingArrival) > 0 {
		s.frontPieceExpectedAt = s.now()
	}
	return index
}

// removed marks the seller gone and drops its queues.
func (s *seller[ID]) removed() {
	s.connection = nil
	s.piecesAwaitingArrival = nil
	s.numberOfPiecesAwaitingValidation = 0
}

// pieceWasValid settles one validation: the payor counter advances and a
// payment goes out on the connection.
func (s *seller[ID]) pieceWasValid() {
	if s.numberOfPiecesAwaitingValidation == 0 {
		panic("seller is not expecting a piece validation result")
	}
	s.numberOfPiecesAwaitingValidation--

	if err := s.connection.machine.SendPayment(); err != nil {
		log.Errorf("sending payment to %v: %s", s.connection.id, err)
	}
}

// pieceWasInvalid settles one validation negatively. The machine halts; the
// caller removes the connection.
func (s *seller[ID]) pieceWasInvalid() {
	if s.numberOfPiecesAwaitingValidation == 0 {
		panic("seller is not expecting a piece validation result")
	}
	s.numberOfPiecesAwaitingValidation--

	s.connection.machine.InvalidPieceReceived()
}

// isPossiblyOwedPayment reports whether any pieces are in flight or awaiting
// a validation verdict.
func (s *seller[ID]) isPossiblyOwedPayment() bool {
	return len(s.piecesAwaitingArrival) > 0 || s.numberOfPiecesAwaitingValidation > 0
}

// servicingPieceHasTimedOut reports whether the piece at the front of the
// queue is overdue. A short grace window applies from when the seller
// started servicing.
func (s *seller[ID]) servicingPieceHasTimedOut(timeOutLimit time.Duration) bool {
	if len(s.piecesAwaitingArrival) == 0 {
		return false
	}

	now := s.now()
	if now.Sub(s.servicingStartedAt) < servicingGracePeriod {
		return false
	}
	return now.Sub(s.frontPieceExpectedAt) > timeOutLimit
}

func (s *seller[ID]) status() exchange.SellerStatus[ID] {
	queue := make([]int, len(s.piecesAwaitingArrival))
	copy(queue, s.piecesAwaitingArrival)
	return exchange.SellerStatus[ID]{
		Connection:               s.connection.id,
		PiecesAwaitingArrival:    queue,
		PiecesAwaitingValidation: s.numberOfPiecesAwaitingValidation,
	}
}
