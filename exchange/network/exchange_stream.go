package network

import (
	"bufio"
	"io"

	"github.com/libp2p/go-libp2p-core/peer"

	cborutil "github.com/filecoin-project/go-cbor-util"

	"github.com/paidswarm/go-piece-exchange/wire"
)

type exchangeStream struct {
	p        peer.ID
	rw       io.ReadWriteCloser
	buffered *bufio.Reader
}

var _ ExchangeStream = (*exchangeStream)(nil)

func newExchangeStream(p peer.ID, rw io.ReadWriteCloser) *exchangeStream {
	return &exchangeStream{p: p, rw: rw, buffered: bufio.NewReaderSize(rw, 16)}
}

func (s *exchangeStream) ReadMessage() (wire.Message, error) {
	var env wire.Envelope
	if err := env.UnmarshalCBOR(s.buffered); err != nil {
		log.Warn(err)
		return nil, err
	}
	return env.Message, nil
}

func (s *exchangeStream) WriteMessage(msg wire.Message) error {
	return cborutil.WriteCborRPC(s.rw, &wire.Envelope{Message: msg})
}

func (s *exchangeStream) Close() error {
	return s.rw.Close()
}

func (s *exchangeStream) RemotePeer() peer.ID {
	return s.p
}
