package wire

import (
	"github.com/filecoin-project/go-state-types/abi"
)

//go:generate cbor-gen-for BuyerTerms SellerTerms Observe Buy Sell JoinContract JoiningContract Ready RequestFullPiece FullPiece Payment Speed OutPoint

// BuyerTerms are the terms a buyer announces to every peer: the worst
// contract it is still willing to fund.
type BuyerTerms struct {
	// MaxPrice is the most the buyer will pay for a single piece
	MaxPrice abi.TokenAmount

	// MaxLock is the longest refund lock, in relative time units, the buyer
	// will accept on a contract output
	MaxLock uint64

	// MinSellers is the smallest number of contract outputs the buyer will
	// open a contract for
	MinSellers uint64

	// MaxSettlementFee is the most the buyer will contribute towards the fee
	// of a seller settlement transaction
	MaxSettlementFee abi.TokenAmount
}

// SellerTerms are the terms a seller announces to every peer: the worst
// contract it is still willing to join.
type SellerTerms struct {
	// MinPrice is the least the seller will accept per piece
	MinPrice abi.TokenAmount

	// MinLock is the shortest refund lock, in relative time units, the seller
	// requires on its contract output
	MinLock uint64

	// MaxSellers is the largest number of outputs the seller will share a
	// contract with
	MaxSellers uint64

	// SettlementFee is the fee the seller requires for its settlement
	// transaction
	SettlementFee abi.TokenAmount
}

// SatisfiedBy returns whether a seller announcing the given terms is
// acceptable under the buyer terms t.
func (t BuyerTerms) SatisfiedBy(s SellerTerms) bool {
	return s.MinPrice.LessThanEqual(t.MaxPrice) &&
		s.MinLock <= t.MaxLock &&
		s.SettlementFee.LessThanEqual(t.MaxSettlementFee) &&
		s.MaxSellers >= t.MinSellers
}

// Equals compares two seller terms field by field.
func (s SellerTerms) Equals(o SellerTerms) bool {
	return s.MinPrice.Equals(o.MinPrice) &&
		s.MinLock == o.MinLock &&
		s.MaxSellers == o.MaxSellers &&
		s.SettlementFee.Equals(o.SettlementFee)
}

// Equals compares two buyer terms field by field.
func (t BuyerTerms) Equals(o BuyerTerms) bool {
	return t.MaxPrice.Equals(o.MaxPrice) &&
		t.MaxLock == o.MaxLock &&
		t.MinSellers == o.MinSellers &&
		t.MaxSettlementFee.Equals(o.MaxSettlementFee)
}
