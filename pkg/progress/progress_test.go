package progress

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_DeliversToAllSubscribers(t *testing.T) {
	b := New()
	var mu sync.Mutex
	var got1, got2 []Event

	b.Subscribe(func(e Event) { mu.Lock(); got1 = append(got1, e); mu.Unlock() })
	b.Subscribe(func(e Event) { mu.Lock(); got2 = append(got2, e); mu.Unlock() })

	b.Info("constraint", "scanning", nil)

	require.Len(t, got1, 1)
	require.Len(t, got2, 1)
	assert.Equal(t, "constraint", got1[0].Phase)
	assert.Equal(t, LevelInfo, got1[0].Level)
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	b := New()
	var count int
	unsubscribe := b.Subscribe(func(e Event) { count++ })

	b.Info("p", "one", nil)
	unsubscribe()
	b.Info("p", "two", nil)

	assert.Equal(t, 1, count)
}

func TestPublish_PanickingHandlerDoesNotStopOthers(t *testing.T) {
	b := New()
	var secondCalled bool

	b.Subscribe(func(e Event) { panic("boom") })
	b.Subscribe(func(e Event) { secondCalled = true })

	assert.NotPanics(t, func() { b.Info("p", "msg", nil) })
	assert.True(t, secondCalled)
}

func TestWarnAndError_SetLevel(t *testing.T) {
	b := New()
	var events []Event
	b.Subscribe(func(e Event) { events = append(events, e) })

	b.Warn("p", "w", nil)
	b.Error("p", "e", nil)

	require.Len(t, events, 2)
	assert.Equal(t, LevelWarn, events[0].Level)
	assert.Equal(t, LevelError, events[1].Level)
}
