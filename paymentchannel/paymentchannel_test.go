package paymentchannel_test

import (
	"testing"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/libp2p/go-libp2p-core/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paidswarm/go-piece-exchange/paymentchannel"
	"github.com/paidswarm/go-piece-exchange/wire"
)

var testTerms = wire.SellerTerms{
	MinPrice:      abi.NewTokenAmount(10),
	MinLock:       5,
	MaxSellers:    4,
	SettlementFee: abi.NewTokenAmount(1),
}

func generateKey(t *testing.T) crypto.PrivKey {
	priv, _, err := crypto.GenerateKeyPair(crypto.Secp256k1, 256)
	require.NoError(t, err)
	return priv
}

func marshalPub(t *testing.T, key crypto.PrivKey) []byte {
	pk, err := crypto.MarshalPublicKey(key.GetPublic())
	require.NoError(t, err)
	return pk
}

func setupChannel(t *testing.T, value abi.TokenAmount) (*paymentchannel.Payor, *paymentchannel.Payee) {
	payorKey := generateKey(t)
	payeeKey := generateKey(t)

	anchor := wire.OutPoint{TxID: wire.TxID{1, 2, 3}, Index: 0}

	payor, err := paymentchannel.NewPayor(testTerms, value, anchor,
		payorKey, address.TestAddress, marshalPub(t, payeeKey), address.TestAddress2)
	require.NoError(t, err)

	payee, err := paymentchannel.NewPayee(testTerms, value, anchor,
		payeeKey, address.TestAddress2, marshalPub(t, payorKey), address.TestAddress)
	require.NoError(t, err)

	return payor, payee
}

func TestPaymentSequence(t *testing.T) {
	payor, payee := setupChannel(t, abi.NewTokenAmount(100))

	for i := uint64(1); i <= 3; i++ {
		sig, err := payor.MakePayment()
		require.NoError(t, err)

		ok, err := payee.RegisterPayment(sig)
		require.NoError(t, err)
		require.True(t, ok)

		assert.Equal(t, i, payor.NumberOfPaymentsMade())
		assert.Equal(t, i, payee.NumberOfPaymentsMade())
		assert.True(t, payor.AmountPaid().Equals(payee.AmountPaid()))
		assert.Equal(t, sig, payee.LastValidSignature())
	}

	assert.True(t, payee.AmountPaid().Equals(abi.NewTokenAmount(30)))
}

func TestReplayedPaymentRejected(t *testing.T) {
	payor, payee := setupChannel(t, abi.NewTokenAmount(100))

	sig, err := payor.MakePayment()
	require.NoError(t, err)

	ok, err := payee.RegisterPayment(sig)
	require.NoError(t, err)
	require.True(t, ok)

	// the same settlement does not cover payment number two
	ok, err = payee.RegisterPayment(sig)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, uint64(1), payee.NumberOfPaymentsMade())
}

func TestPaymentFromWrongKeyRejected(t *testing.T) {
	_, payee := setupChannel(t, abi.NewTokenAmount(100))

	intruderKey := generateKey(t)
	intruder, err := paymentchannel.NewPayor(testTerms, abi.NewTokenAmount(100),
		payee.Anchor(), intruderKey, address.TestAddress,
		marshalPub(t, generateKey(t)), address.TestAddress2)
	require.NoError(t, err)

	sig, err := intruder.MakePayment()
	require.NoError(t, err)

	ok, err := payee.RegisterPayment(sig)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, uint64(0), payee.NumberOfPaymentsMade())
	assert.Nil(t, payee.LastValidSignature())
}

func TestMaxNumberOfPayments(t *testing.T) {
	_, payee := setupChannel(t, abi.NewTokenAmount(45))
	assert.Equal(t, uint64(4), payee.MaxNumberOfPayments())
}

func TestContractAnchors(t *testing.T) {
	buyerKey := generateKey(t)
	sellerKey := generateKey(t)

	commitment, err := paymentchannel.NewCommitment(abi.NewTokenAmount(40),
		buyerKey, marshalPub(t, sellerKey), testTerms.MinLock)
	require.NoError(t, err)

	var contract paymentchannel.Contract
	index := contract.AddCommitment(commitment)
	assert.Equal(t, uint64(0), index)

	txid, err := contract.TxID()
	require.NoError(t, err)
	assert.NotEqual(t, wire.TxID{}, txid)

	anchor, err := contract.Anchor(0)
	require.NoError(t, err)
	assert.Equal(t, wire.OutPoint{TxID: txid, Index: 0}, anchor)

	_, err = contract.Anchor(1)
	assert.Error(t, err)
}
