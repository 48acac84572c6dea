package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublishReachesMatchingSubscribers(t *testing.T) {
	bus := NewBus(zap.NewNop())

	sales, cancelSales := bus.Subscribe(TopicSalesChanged, 1)
	defer cancelSales()
	products, cancelProducts := bus.Subscribe(TopicProductsChanged, 1)
	defer cancelProducts()

	bus.Publish(TopicSalesChanged)

	select {
	case evt := <-sales:
		assert.Equal(t, TopicSalesChanged, evt.Topic)
	default:
		t.Fatal("sales subscriber did not receive the event")
	}

	select {
	case <-products:
		t.Fatal("products subscriber received an event for another topic")
	default:
	}
}

func TestPublishNeverBlocksOnSaturatedSubscriber(t *testing.T) {
	bus := NewBus(zap.NewNop())

	ch, cancel := bus.Subscribe(TopicSalesChanged, 1)
	defer cancel()

	// Second publish finds the buffer full and must drop, not block.
	bus.Publish(TopicSalesChanged)
	bus.Publish(TopicSalesChanged)

	require.Len(t, ch, 1)
	<-ch
	require.Empty(t, ch)
}

func TestCancelStopsDelivery(t *testing.T) {
	bus := NewBus(zap.NewNop())

	ch, cancel := bus.Subscribe(TopicSalesChanged, 1)
	cancel()

	// Channel is closed on cancel; publish after cancel is a no-op.
	bus.Publish(TopicSalesChanged)
	_, open := <-ch
	assert.False(t, open)

	// Double cancel is safe.
	cancel()
}
