package wire

import (
	"fmt"
	"io"

	cbg "github.com/whyrusleeping/cbor-gen"
	"golang.org/x/xerrors"
)

// Envelope wraps a protocol message together with its type tag, so that every
// message kind can be multiplexed over a single stream. On the wire it is the
// CBOR array [type, message].
type Envelope struct {
	Message Message
}

func (e *Envelope) MarshalCBOR(w io.Writer) error {
	if e.Message == nil {
		return xerrors.New("cannot marshal an envelope without a message")
	}

	scratch := make([]byte, 9)

	if _, err := w.Write([]byte{130}); err != nil {
		return err
	}
	if err := cbg.WriteMajorTypeHeaderBuf(scratch, w, cbg.MajUnsignedInt, uint64(e.Message.Type())); err != nil {
		return err
	}
	return e.Message.MarshalCBOR(w)
}

func (e *Envelope) UnmarshalCBOR(r io.Reader) error {
	*e = Envelope{}

	br := cbg.GetPeeker(r)
	scratch := make([]byte, 8)

	maj, extra, err := cbg.CborReadHeaderBuf(br, scratch)
	if err != nil {
		return err
	}
	if maj != cbg.MajArray {
		return fmt.Errorf("cbor input should be of type array")
	}
	if extra != 2 {
		return fmt.Errorf("cbor input had wrong number of fields")
	}

	maj, extra, err = cbg.CborReadHeaderBuf(br, scratch)
	if err != nil {
		return err
	}
	if maj != cbg.MajUnsignedInt {
		return fmt.Errorf("message type field was not an unsigned integer")
	}

	msg, err := NewMessage(MessageType(extra))
	if err != nil {
		return err
	}
	if err := msg.UnmarshalCBOR(br); err != nil {
		return xerrors.Errorf("unmarshaling %s message: %w", msg.Type(), err)
	}

	e.Message = msg
	return nil
}

// NewMessage returns an empty message of the given type, ready to be
// unmarshaled into.
func NewMessage(mt MessageType) (Message, error) {
	switch mt {
	case MessageTypeObserve:
		return new(Observe), nil
	case MessageTypeBuy:
		return new(Buy), nil
	case MessageTypeSell:
		return new(Sell), nil
	case MessageTypeJoinContract:
		return new(JoinContract), nil
	case MessageTypeJoiningContract:
		return new(JoiningContract), nil
	case MessageTypeReady:
		return new(Ready), nil
	case MessageTypeRequestFullPiece:
		return new(RequestFullPiece), nil
	case MessageTypeFullPiece:
		return new(FullPiece), nil
	case MessageTypePayment:
		return new(Payment), nil
	case MessageTypeSpeed:
		return new(Speed), nil
	default:
		return nil, xerrors.Errorf("unknown message type %d", mt)
	}
}
