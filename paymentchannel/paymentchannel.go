package paymentchannel

import (
	"bytes"
	"crypto/sha256"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/libp2p/go-libp2p-core/crypto"
	cbg "github.com/whyrusleeping/cbor-gen"
	"golang.org/x/xerrors"

	"github.com/paidswarm/go-piece-exchange/wire"
)

// A channel is anchored in one output of the multi-commitment funding
// transaction. Each payment replaces the previous settlement: the payor signs
// a digest committing to the anchor, the cumulative amount owed to the payee,
// and the payment counter. Only the most recent signature is worth keeping.

func settlementDigest(anchor wire.OutPoint, payeeAmount abi.TokenAmount, paymentNumber uint64) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := anchor.MarshalCBOR(buf); err != nil {
		return nil, err
	}
	if err := payeeAmount.MarshalCBOR(buf); err != nil {
		return nil, err
	}
	if err := cbg.WriteMajorTypeHeader(buf, cbg.MajUnsignedInt, paymentNumber); err != nil {
		return nil, err
	}
	sum := sha256.Sum256(buf.Bytes())
	return sum[:], nil
}

// Payor is the buyer side of a unidirectional payment channel. It tracks the
// payment counter and produces the settlement signature for each payment.
type Payor struct {
	price         abi.TokenAmount
	funds         abi.TokenAmount
	settlementFee abi.TokenAmount
	lock          uint64
	anchor        wire.OutPoint

	numberOfPaymentsMade uint64

	contractKey  crypto.PrivKey
	finalAddress address.Address

	payeeContractPk   crypto.PubKey
	payeeFinalAddress address.Address
}

// NewPayor sets up the buyer side of a channel against the terms the seller
// joined with. payeeContractPk is the serialized public key the seller sent
// when joining.
func NewPayor(terms wire.SellerTerms, value abi.TokenAmount, anchor wire.OutPoint,
	contractKey crypto.PrivKey, finalAddress address.Address,
	payeeContractPk []byte, payeeFinalAddress address.Address) (*Payor, error) {

	pk, err := crypto.UnmarshalPublicKey(payeeContractPk)
	if err != nil {
		return nil, xerrors.Errorf("unmarshaling payee contract key: %w", err)
	}

	return &Payor{
		price:             terms.MinPrice,
		funds:             value,
		settlementFee:     terms.SettlementFee,
		lock:              terms.MinLock,
		anchor:            anchor,
		contractKey:       contractKey,
		finalAddress:      finalAddress,
		payeeContractPk:   pk,
		payeeFinalAddress: payeeFinalAddress,
	}, nil
}

// MakePayment increments the payment counter and signs the new settlement.
func (p *Payor) MakePayment() ([]byte, error) {
	p.numberOfPaymentsMade++

	digest, err := settlementDigest(p.anchor, p.AmountPaid(), p.numberOfPaymentsMade)
	if err != nil {
		return nil, err
	}
	sig, err := p.contractKey.Sign(digest)
	if err != nil {
		return nil, xerrors.Errorf("signing settlement: %w", err)
	}
	return sig, nil
}

// AmountPaid is the cumulative amount owed to the payee under the most
// recent payment.
func (p *Payor) AmountPaid() abi.TokenAmount {
	return big.Mul(p.price, abi.NewTokenAmount(int64(p.numberOfPaymentsMade)))
}

func (p *Payor) Price() abi.TokenAmount             { return p.price }
func (p *Payor) Funds() abi.TokenAmount             { return p.funds }
func (p *Payor) SettlementFee() abi.TokenAmount     { return p.settlementFee }
func (p *Payor) Lock() uint64                       { return p.lock }
func (p *Payor) Anchor() wire.OutPoint              { return p.anchor }
func (p *Payor) NumberOfPaymentsMade() uint64       { return p.numberOfPaymentsMade }
func (p *Payor) FinalAddress() address.Address      { return p.finalAddress }
func (p *Payor) PayeeFinalAddress() address.Address { return p.payeeFinalAddress }

// Payee is the seller side of a unidirectional payment channel. It validates
// incoming settlement signatures and retains the most recent valid one, which
// is what a settlement transaction is ultimately built from.
type Payee struct {
	price         abi.TokenAmount
	funds         abi.TokenAmount
	settlementFee abi.TokenAmount
	lock          uint64
	anchor        wire.OutPoint

	numberOfPaymentsMade uint64

	contractKey  crypto.PrivKey
	finalAddress address.Address

	payorContractPk   crypto.PubKey
	payorFinalAddress address.Address

	lastValidSignature []byte
}

// NewPayee sets up the seller side of a channel from the contract
// announcement. payorContractPk is the serialized public key carried in the
// Ready message.
func NewPayee(terms wire.SellerTerms, value abi.TokenAmount, anchor wire.OutPoint,
	contractKey crypto.PrivKey, finalAddress address.Address,
	payorContractPk []byte, payorFinalAddress address.Address) (*Payee, error) {

	pk, err := crypto.UnmarshalPublicKey(payorContractPk)
	if err != nil {
		return nil, xerrors.Errorf("unmarshaling payor contract key: %w", err)
	}

	return &Payee{
		price:             terms.MinPrice,
		funds:             value,
		settlementFee:     terms.SettlementFee,
		lock:              terms.MinLock,
		anchor:            anchor,
		contractKey:       contractKey,
		finalAddress:      finalAddress,
		payorContractPk:   pk,
		payorFinalAddress: payorFinalAddress,
	}, nil
}

// RegisterPayment validates the settlement signature for the next payment.
// On success the payment counter advances and the signature is retained.
func (p *Payee) RegisterPayment(sig []byte) (bool, error) {
	amount := big.Mul(p.price, abi.NewTokenAmount(int64(p.numberOfPaymentsMade+1)))

	digest, err := settlementDigest(p.anchor, amount, p.numberOfPaymentsMade+1)
	if err != nil {
		return false, err
	}
	ok, err := p.payorContractPk.Verify(digest, sig)
	if err != nil {
		return false, xerrors.Errorf("verifying settlement signature: %w", err)
	}
	if !ok {
		return false, nil
	}

	p.numberOfPaymentsMade++
	p.lastValidSignature = sig
	return true, nil
}

// MaxNumberOfPayments is how many payments the channel value covers at the
// agreed price. It bounds how many unpaid deliveries a seller will stage.
func (p *Payee) MaxNumberOfPayments() uint64 {
	if p.price.NilOrZero() {
		return 0
	}
	return big.Div(p.funds, p.price).Uint64()
}

// AmountPaid is the cumulative amount covered by the last valid payment.
func (p *Payee) AmountPaid() abi.TokenAmount {
	return big.Mul(p.price, abi.NewTokenAmount(int64(p.numberOfPaymentsMade)))
}

func (p *Payee) Price() abi.TokenAmount             { return p.price }
func (p *Payee) Funds() abi.TokenAmount             { return p.funds }
func (p *Payee) SettlementFee() abi.TokenAmount     { return p.settlementFee }
func (p *Payee) Lock() uint64                       { return p.lock }
func (p *Payee) Anchor() wire.OutPoint              { return p.anchor }
func (p *Payee) NumberOfPaymentsMade() uint64       { return p.numberOfPaymentsMade }
func (p *Payee) FinalAddress() address.Address      { return p.finalAddress }
func (p *Payee) PayorFinalAddress() address.Address { return p.payorFinalAddress }

// LastValidSignature is the most recent settlement signature registered, or
// nil when no payment has arrived yet.
func (p *Payee) LastValidSignature() []byte { return p.lastValidSignature }
