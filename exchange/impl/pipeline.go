package exchangeimpl

// deliveryStage is where a requested piece sits in the seller side pipeline.
type deliveryStage uint64

const (
	// stageNotRequested: request received, load not yet asked for
	stageNotRequested deliveryStage = iota

	// stageLoading: load requested from the client
	stageLoading

	// stageReadyToSend: data available, delivery pending
	stageReadyToSend

	// stageWaitingForPayment: delivered, payment pending
	stageWaitingForPayment
)

type deliveryPiece struct {
	index int
	stage deliveryStage
	data  []byte
}

// pieceDeliveryPipeline is the per-connection FIFO a seller stages piece
// deliveries through. Requests enter at the back; a payment pops the front.
// The same index may legitimately appear more than once.
type pieceDeliveryPipeline struct {
	pipeline []deliveryPiece

	// capacity caps the pipeline at the channel's maximum payment count;
	// requests beyond it are ignored. Zero means no contract yet.
	capacity int
}

func newPieceDeliveryPipeline() *pieceDeliveryPipeline {
	return &pieceDeliveryPipeline{}
}

// setCapacity binds the pipeline to the channel's maximum payment count.
func (p *pieceDeliveryPipeline) setCapacity(capacity int) {
	p.capacity = capacity
}

// add appends an incoming piece request. It reports whether the request was
// accepted; requests beyond capacity are not.
func (p *pieceDeliveryPipeline) add(index int) bool {
	if len(p.pipeline) >= p.capacity {
		return false
	}
	p.pipeline = append(p.pipeline, deliveryPiece{index: index, stage: stageNotRequested})
	return true
}

// dataReady fills every Loading entry with the given index and returns how
// many were filled. Zero matches is not an error: the load may have been
// answered late, after a polite payment already popped the entry.
func (p *pieceDeliveryPipeline) dataReady(index int, data []byte) int {
	updated := 0
	for i := range p.pipeline {
		if p.pipeline[i].index == index && p.pipeline[i].stage == stageLoading {
			p.pipeline[i].stage = stageReadyToSend
			p.pipeline[i].data = data
			updated++
		}
	}
	return updated
}

// paymentReceived pops the front entry whatever its stage. Buyers doing a
// polite compensation pay for pieces that were never sent, so an
// out-of-protocol payment just advances the queue; on an empty pipeline it
// has no effect.
func (p *pieceDeliveryPipeline) paymentReceived() {
	if len(p.pipeline) == 0 {
		return
	}
	p.pipeline[0] = deliveryPiece{}
	p.pipeline = p.pipeline[1:]
}

// nextBatchToLoad walks at most maxBeingServiced+1 entries from the front
// and advances every NotRequested one to Loading, returning their indices.
func (p *pieceDeliveryPipeline) nextBatchToLoad(maxBeingServiced int) []int {
	var indices []int
	for i := range p.pipeline {
		if i > maxBeingServiced {
			break
		}
		if p.pipeline[i].stage == stageNotRequested {
			p.pipeline[i].stage = stageLoading
			indices = append(indices, p.pipeline[i].index)
		}
	}
	return indices
}

// nextBatchToSend walks at most maxUnpaidFor+1 entries from the front,
// collecting the data of every ReadyToSend entry and advancing it to
// WaitingForPayment. Deliveries go out strictly in request order, so the
// walk stops at the first entry that is still NotRequested or Loading.
func (p *pieceDeliveryPipeline) nextBatchToSend(maxUnpaidFor int) [][]byte {
	var batch [][]byte
	for i := range p.pipeline {
		if i > maxUnpaidFor {
			break
		}
		switch p.pipeline[i].stage {
		case stageNotRequested, stageLoading:
			return batch
		case stageReadyToSend:
			batch = append(batch, p.pipeline[i].data)
			p.pipeline[i].stage = stageWaitingForPayment
			p.pipeline[i].data = nil
		}
	}
	return batch
}

func (p *pieceDeliveryPipeline) len() int {
	return len(p.pipeline)
}
