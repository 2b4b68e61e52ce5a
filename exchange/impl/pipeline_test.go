package exchangeimpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineBackPressure(t *testing.T) {
	p := newPieceDeliveryPipeline()
	p.setCapacity(100)

	for i := 0; i < 10; i++ {
		require.True(t, p.add(i))
	}

	// the load window covers the first maxOutstanding+maxPreload entries
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, p.nextBatchToLoad(5))

	// nothing new to load inside the window
	assert.Empty(t, p.nextBatchToLoad(5))

	for i := 0; i < 6; i++ {
		assert.Equal(t, 1, p.dataReady(i, []byte{byte(i)}))
	}

	// sends are bounded by the unpaid window
	batch := p.nextBatchToSend(3)
	require.Len(t, batch, 4)
	assert.Equal(t, [][]byte{{0}, {1}, {2}, {3}}, batch)
	assert.Empty(t, p.nextBatchToSend(3))

	// a payment pops the front: one more entry enters each window
	p.paymentReceived()
	assert.Equal(t, []int{6}, p.nextBatchToLoad(5))
	assert.Equal(t, [][]byte{{4}}, p.nextBatchToSend(3))
}

func TestPipelineSendsInRequestOrder(t *testing.T) {
	p := newPieceDeliveryPipeline()
	p.setCapacity(100)

	p.add(0)
	p.add(1)
	p.add(2)
	require.Equal(t, []int{0, 1, 2}, p.nextBatchToLoad(5))

	// data for a later request does not unblock the front
	p.dataReady(2, []byte{2})
	assert.Empty(t, p.nextBatchToSend(3))

	p.dataReady(0, []byte{0})
	assert.Equal(t, [][]byte{{0}}, p.nextBatchToSend(3))

	p.dataReady(1, []byte{1})
	assert.Equal(t, [][]byte{{1}, {2}}, p.nextBatchToSend(3))
}

func TestPipelineDuplicateIndex(t *testing.T) {
	p := newPieceDeliveryPipeline()
	p.setCapacity(100)

	p.add(4)
	p.add(4)
	require.Equal(t, []int{4, 4}, p.nextBatchToLoad(5))

	// one load answer fills every matching entry
	assert.Equal(t, 2, p.dataReady(4, []byte{4}))
	assert.Equal(t, [][]byte{{4}, {4}}, p.nextBatchToSend(3))
}

func TestPipelineLateDataIsHarmless(t *testing.T) {
	p := newPieceDeliveryPipeline()
	p.setCapacity(100)

	p.add(0)
	require.Equal(t, []int{0}, p.nextBatchToLoad(5))

	// a polite payment pops the entry before its data arrives
	p.paymentReceived()
	assert.Equal(t, 0, p.dataReady(0, []byte{0}))
	assert.Equal(t, 0, p.len())

	// and paying an empty pipeline has no effect
	p.paymentReceived()
}

func TestPipelineCapacity(t *testing.T) {
	p := newPieceDeliveryPipeline()
	p.setCapacity(2)

	assert.True(t, p.add(0))
	assert.True(t, p.add(1))
	assert.False(t, p.add(2))

	p.paymentReceived()
	assert.True(t, p.add(2))
}
