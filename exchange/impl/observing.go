package exchangeimpl

import (
	"github.com/paidswarm/go-piece-exchange/exchange"
)

// observing is the passive mode: it announces observe on every connection
// and records what peers announce. No pieces, no payments.
type observing[ID comparable] struct {
	session *Session[ID]

	cb exchange.ObservingCallbacks[ID]
}

func newObserving[ID comparable](session *Session[ID], cb exchange.ObservingCallbacks[ID]) *observing[ID] {
	return &observing[ID]{session: session, cb: cb}
}

func (o *observing[ID]) stop() {
	for _, id := range o.session.connectionIDs() {
		o.removeConnection(id, exchange.DisconnectCauseClient)
	}
}

func (o *observing[ID]) removeConnection(id ID, cause exchange.DisconnectCause) {
	o.session.destroyConnection(id)
	o.cb.RemovedConnection(id, cause)
	o.session.notifyRemoved(id, cause)
}
