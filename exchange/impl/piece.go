package exchangeimpl

import (
	"github.com/paidswarm/go-piece-exchange/exchange"
)

// piece is one entry of the buyer side piece table.
type piece[ID comparable] struct {
	index int
	size  uint64
	state exchange.PieceState

	// assignedTo is meaningful only while state is PieceStateAssigned
	assignedTo ID
}

func (p *piece[ID]) assigned(id ID) {
	p.state = exchange.PieceStateAssigned
	p.assignedTo = id
}

func (p *piece[ID]) deAssign() {
	var zero ID
	p.state = exchange.PieceStateUnassigned
	p.assignedTo = zero
}

func (p *piece[ID]) arrived() {
	p.state = exchange.PieceStateBeingValidated
}

func (p *piece[ID]) downloaded() {
	var zero ID
	p.state = exchange.PieceStateDownloaded
	p.assignedTo = zero
}

func (p *piece[ID]) status() exchange.PieceStatus[ID] {
	return exchange.PieceStatus[ID]{
		Index:      p.index,
		State:      p.state,
		AssignedTo: p.assignedTo,
		Size:       p.size,
	}
}
