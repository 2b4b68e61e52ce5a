package wire_test

import (
	"bytes"
	"testing"

	"github.com/filecoin-project/go-state-types/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paidswarm/go-piece-exchange/wire"
)

func TestBuyerTermsSatisfiedBy(t *testing.T) {
	buyer := wire.BuyerTerms{
		MaxPrice:         abi.NewTokenAmount(20),
		MaxLock:          10,
		MinSellers:       2,
		MaxSettlementFee: abi.NewTokenAmount(5),
	}
	agreeable := wire.SellerTerms{
		MinPrice:      abi.NewTokenAmount(10),
		MinLock:       5,
		MaxSellers:    4,
		SettlementFee: abi.NewTokenAmount(1),
	}

	testCases := map[string]struct {
		seller    func(wire.SellerTerms) wire.SellerTerms
		satisfied bool
	}{
		"agreeable terms": {
			seller:    func(s wire.SellerTerms) wire.SellerTerms { return s },
			satisfied: true,
		},
		"price at the limit": {
			seller: func(s wire.SellerTerms) wire.SellerTerms {
				s.MinPrice = abi.NewTokenAmount(20)
				return s
			},
			satisfied: true,
		},
		"price too high": {
			seller: func(s wire.SellerTerms) wire.SellerTerms {
				s.MinPrice = abi.NewTokenAmount(21)
				return s
			},
			satisfied: false,
		},
		"lock at the limit": {
			seller: func(s wire.SellerTerms) wire.SellerTerms {
				s.MinLock = 10
				return s
			},
			satisfied: true,
		},
		"lock too long": {
			seller: func(s wire.SellerTerms) wire.SellerTerms {
				s.MinLock = 11
				return s
			},
			satisfied: false,
		},
		"fee too high": {
			seller: func(s wire.SellerTerms) wire.SellerTerms {
				s.SettlementFee = abi.NewTokenAmount(6)
				return s
			},
			satisfied: false,
		},
		"seller output count at the minimum": {
			seller: func(s wire.SellerTerms) wire.SellerTerms {
				s.MaxSellers = 2
				return s
			},
			satisfied: true,
		},
		"seller output count too low": {
			seller: func(s wire.SellerTerms) wire.SellerTerms {
				s.MaxSellers = 1
				return s
			},
			satisfied: false,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.satisfied, buyer.SatisfiedBy(tc.seller(agreeable)))
		})
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	messages := []wire.Message{
		&wire.Observe{},
		&wire.Sell{
			Terms: wire.SellerTerms{
				MinPrice:      abi.NewTokenAmount(10),
				MinLock:       5,
				MaxSellers:    4,
				SettlementFee: abi.NewTokenAmount(1),
			},
			Index: 3,
		},
		&wire.RequestFullPiece{PieceIndex: 7},
		&wire.FullPiece{Data: []byte("piece data")},
		&wire.Payment{Signature: []byte{1, 2, 3}},
		&wire.Speed{PayloadSize: 500000},
	}

	for _, msg := range messages {
		t.Run(msg.Type().String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, (&wire.Envelope{Message: msg}).MarshalCBOR(&buf))

			var out wire.Envelope
			require.NoError(t, out.UnmarshalCBOR(&buf))
			require.Equal(t, msg.Type(), out.Message.Type())
			assert.Equal(t, msg, out.Message)
		})
	}
}

func TestEnvelopeRejectsUnknownMessageType(t *testing.T) {
	// array(2), type 200, empty array payload
	var buf bytes.Buffer
	buf.Write([]byte{130, 24, 200, 128})

	var out wire.Envelope
	require.Error(t, out.UnmarshalCBOR(&buf))
}
