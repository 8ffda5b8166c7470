package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomiq-chain/atomiq/errors"
)

func TestWaitResolvesOnMatchingEvent(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub.ID)

	go func() {
		time.Sleep(10 * time.Millisecond)
		bus.Publish(&BlockCommittedEvent{Height: 3, TxIDs: []uint64{7, 8}, Timestamp: 1700000000000})
	}()

	event, err := sub.WaitForTransaction(8, time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), event.Height)
}

func TestWaitSkipsUnrelatedEvents(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub.ID)

	go func() {
		bus.Publish(&BlockCommittedEvent{Height: 1, TxIDs: []uint64{1}})
		bus.Publish(&BlockCommittedEvent{Height: 2, TxIDs: []uint64{2}})
		bus.Publish(&BlockCommittedEvent{Height: 3, TxIDs: []uint64{3}})
	}()

	event, err := sub.WaitForTransaction(3, time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), event.Height)
}

func TestWaitTimesOut(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub.ID)

	_, err := sub.WaitForTransaction(1, 20*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeTimeout))
}

func TestSubscribeBeforePublishNeverMisses(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub.ID)

	// publish lands before the wait starts; the buffered channel holds it
	bus.Publish(&BlockCommittedEvent{Height: 9, TxIDs: []uint64{42}})

	event, err := sub.WaitForTransaction(42, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), event.Height)
}

func TestCloseWakesWaiters(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe()

	done := make(chan error, 1)
	go func() {
		_, err := sub.WaitForTransaction(1, time.Second)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	bus.Close()

	err := <-done
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeEventChannelClosed))
}

func TestPublishDropsWhenSubscriberBufferFull(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub.ID)

	// must not block even though nobody is reading
	for i := 0; i < 200; i++ {
		bus.Publish(&BlockCommittedEvent{Height: uint64(i), TxIDs: []uint64{uint64(i)}})
	}
	assert.Equal(t, 1, bus.GetTotalSubscriptions())
}

func TestUnsubscribeTwice(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe()

	assert.True(t, bus.Unsubscribe(sub.ID))
	assert.False(t, bus.Unsubscribe(sub.ID))
}
