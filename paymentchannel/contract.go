package paymentchannel

import (
	"bytes"
	"crypto/sha256"
	"io"

	"github.com/filecoin-project/go-state-types/abi"
	"github.com/libp2p/go-libp2p-core/crypto"
	cbg "github.com/whyrusleeping/cbor-gen"
	"golang.org/x/xerrors"

	"github.com/paidswarm/go-piece-exchange/wire"
)

// Commitment is one output of the contract funding transaction: the value
// locked for a single buyer-seller channel and the keys that control it.
type Commitment struct {
	Value           abi.TokenAmount
	PayorContractPk []byte
	PayeeContractPk []byte
	Lock            uint64
}

// NewCommitment builds a commitment from the two contract keys.
func NewCommitment(value abi.TokenAmount, payorKey crypto.PrivKey, payeeContractPk []byte, lock uint64) (Commitment, error) {
	pk, err := crypto.MarshalPublicKey(payorKey.GetPublic())
	if err != nil {
		return Commitment{}, xerrors.Errorf("marshaling payor contract key: %w", err)
	}
	return Commitment{
		Value:           value,
		PayorContractPk: pk,
		PayeeContractPk: payeeContractPk,
		Lock:            lock,
	}, nil
}

func (c *Commitment) marshalCBOR(w io.Writer) error {
	if _, err := w.Write([]byte{132}); err != nil {
		return err
	}
	if err := c.Value.MarshalCBOR(w); err != nil {
		return err
	}
	if err := cbg.WriteMajorTypeHeader(w, cbg.MajByteString, uint64(len(c.PayorContractPk))); err != nil {
		return err
	}
	if _, err := w.Write(c.PayorContractPk); err != nil {
		return err
	}
	if err := cbg.WriteMajorTypeHeader(w, cbg.MajByteString, uint64(len(c.PayeeContractPk))); err != nil {
		return err
	}
	if _, err := w.Write(c.PayeeContractPk); err != nil {
		return err
	}
	return cbg.WriteMajorTypeHeader(w, cbg.MajUnsignedInt, c.Lock)
}

// Contract is the layout of the multi-output funding transaction a buyer
// commits to: one commitment per seller, in output order. Construction and
// signing of the actual transaction is the host's business; the session only
// needs the layout to derive each channel's anchor.
type Contract struct {
	commitments []Commitment
}

// AddCommitment appends a commitment and returns its output index.
func (c *Contract) AddCommitment(commitment Commitment) uint64 {
	c.commitments = append(c.commitments, commitment)
	return uint64(len(c.commitments) - 1)
}

// Commitments returns the outputs in order.
func (c *Contract) Commitments() []Commitment {
	return c.commitments
}

// TxID is the identifier of the funding transaction, derived from the
// serialized commitment layout.
func (c *Contract) TxID() (wire.TxID, error) {
	buf := new(bytes.Buffer)
	if err := cbg.WriteMajorTypeHeader(buf, cbg.MajArray, uint64(len(c.commitments))); err != nil {
		return wire.TxID{}, err
	}
	for i := range c.commitments {
		if err := c.commitments[i].marshalCBOR(buf); err != nil {
			return wire.TxID{}, err
		}
	}
	return sha256.Sum256(buf.Bytes()), nil
}

// Anchor returns the outpoint of the output with the given index.
func (c *Contract) Anchor(index uint64) (wire.OutPoint, error) {
	if index >= uint64(len(c.commitments)) {
		return wire.OutPoint{}, xerrors.Errorf("contract has no output %d", index)
	}
	txid, err := c.TxID()
	if err != nil {
		return wire.OutPoint{}, err
	}
	return wire.OutPoint{TxID: txid, Index: index}, nil
}
