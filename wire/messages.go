package wire

import (
	"fmt"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	cbg "github.com/whyrusleeping/cbor-gen"
)

// MessageType discriminates the messages of the exchange protocol on the wire.
type MessageType uint64

const (
	// MessageTypeObserve announces observe mode
	MessageTypeObserve MessageType = iota

	// MessageTypeBuy announces buy mode with buyer terms
	MessageTypeBuy

	// MessageTypeSell announces sell mode with seller terms
	MessageTypeSell

	// MessageTypeJoinContract invites a seller to join the buyer's contract
	MessageTypeJoinContract

	// MessageTypeJoiningContract accepts a contract invitation
	MessageTypeJoiningContract

	// MessageTypeReady announces a prepared contract to a joined seller
	MessageTypeReady

	// MessageTypeRequestFullPiece requests a single piece
	MessageTypeRequestFullPiece

	// MessageTypeFullPiece delivers a single piece
	MessageTypeFullPiece

	// MessageTypePayment carries a payment channel signature
	MessageTypePayment

	// MessageTypeSpeed requests a pre-contract speed test payload
	MessageTypeSpeed
)

// MessageTypes maps message types to human readable names
var MessageTypes = map[MessageType]string{
	MessageTypeObserve:          "Observe",
	MessageTypeBuy:              "Buy",
	MessageTypeSell:             "Sell",
	MessageTypeJoinContract:     "JoinContract",
	MessageTypeJoiningContract:  "JoiningContract",
	MessageTypeReady:            "Ready",
	MessageTypeRequestFullPiece: "RequestFullPiece",
	MessageTypeFullPiece:        "FullPiece",
	MessageTypePayment:          "Payment",
	MessageTypeSpeed:            "Speed",
}

func (mt MessageType) String() string {
	if s, ok := MessageTypes[mt]; ok {
		return s
	}
	return fmt.Sprintf("MessageType(%d)", uint64(mt))
}

// Message is a single message of the exchange protocol. All messages are
// CBOR tuple encoded and carried inside an Envelope on the wire.
type Message interface {
	cbg.CBORMarshaler
	cbg.CBORUnmarshaler
	Type() MessageType
}

// TxID is the transaction id of the contract funding transaction.
type TxID [32]byte

func (id TxID) String() string {
	return fmt.Sprintf("%x", id[:])
}

// OutPoint references one output of the contract funding transaction.
type OutPoint struct {
	TxID  TxID
	Index uint64
}

func (o OutPoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID, o.Index)
}

// Observe announces that the sender is neither buying nor selling.
type Observe struct{}

// Buy announces buy mode. Re-sending it renegotiates terms.
type Buy struct {
	Terms BuyerTerms
}

// Sell announces sell mode. Index is a revision counter for the announced
// terms, echoed back by a buyer in JoinContract so the seller can detect
// invitations against stale terms.
type Sell struct {
	Terms SellerTerms
	Index uint64
}

// JoinContract invites the receiving seller to join the sender's contract,
// against the seller terms revision the buyer last saw.
type JoinContract struct {
	Index uint64
}

// JoiningContract accepts a contract invitation. It carries the seller's
// contract public key and the address its settlement should pay out to.
type JoiningContract struct {
	ContractPk   []byte
	FinalAddress address.Address
}

// Ready announces the prepared contract to a joined seller: the anchor output
// that commits to this channel, its value, and the buyer side keys.
type Ready struct {
	Value        abi.TokenAmount
	Anchor       OutPoint
	ContractPk   []byte
	FinalAddress address.Address
}

// RequestFullPiece requests the piece with the given index.
type RequestFullPiece struct {
	PieceIndex uint64
}

// FullPiece delivers the data of a single piece. Responses arrive in the
// order pieces were requested.
type FullPiece struct {
	Data []byte
}

// Payment carries the payment channel signature for the next payment.
type Payment struct {
	Signature []byte
}

// Speed requests delivery of a synthetic payload of the given size, before
// any contract is formed.
type Speed struct {
	PayloadSize uint64
}

func (*Observe) Type() MessageType          { return MessageTypeObserve }
func (*Buy) Type() MessageType              { return MessageTypeBuy }
func (*Sell) Type() MessageType             { return MessageTypeSell }
func (*JoinContract) Type() MessageType     { return MessageTypeJoinContract }
func (*JoiningContract) Type() MessageType  { return MessageTypeJoiningContract }
func (*Ready) Type() MessageType            { return MessageTypeReady }
func (*RequestFullPiece) Type() MessageType { return MessageTypeRequestFullPiece }
func (*FullPiece) Type() MessageType        { return MessageTypeFullPiece }
func (*Payment) Type() MessageType          { return MessageTypePayment }
func (*Speed) Type() MessageType            { return MessageTypeSpeed }
