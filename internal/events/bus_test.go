package events

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_EmitDeliversToSubscribers(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var got []*Event
	bus.Subscribe(PriceUpdated, func(e *Event) { got = append(got, e) })
	bus.Subscribe(BackupCompleted, func(e *Event) { t.Fatal("wrong type delivered") })

	bus.Emit("reconciliation", &PriceUpdatedData{HoldingID: "h1", Symbol: "TCS", OldPrice: 3000, NewPrice: 3300})

	require.Len(t, got, 1)
	assert.Equal(t, PriceUpdated, got[0].Type)
	assert.Equal(t, "reconciliation", got[0].Module)
	assert.False(t, got[0].Timestamp.IsZero())

	data, ok := got[0].Data.(*PriceUpdatedData)
	require.True(t, ok)
	assert.Equal(t, 3300.0, data.NewPrice)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	calls := 0
	unsubscribe := bus.Subscribe(PriceUpdated, func(e *Event) { calls++ })
	other := bus.Subscribe(PriceUpdated, func(e *Event) {})
	assert.Equal(t, 2, bus.SubscriberCount(PriceUpdated))

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 1, bus.SubscriberCount(PriceUpdated))

	bus.Emit("test", &PriceUpdatedData{})
	assert.Equal(t, 0, calls)

	other()
	assert.Equal(t, 0, bus.SubscriberCount(PriceUpdated))
}

func TestBus_ConcurrentEmitAndSubscribe(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var mu sync.Mutex
	received := 0
	bus.Subscribe(ReconciliationCompleted, func(e *Event) {
		mu.Lock()
		received++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			bus.Emit("test", &ReconciliationCompletedData{})
		}()
		go func() {
			defer wg.Done()
			unsub := bus.Subscribe(ReconciliationCompleted, func(e *Event) {})
			unsub()
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, received)
}

func TestEvent_JSONShape(t *testing.T) {
	event := Event{
		Type:   PriceUpdated,
		Module: "reconciliation",
		Data:   &PriceUpdatedData{HoldingID: "h1", UserID: "u1", Symbol: "INFY", OldPrice: 1400, NewPrice: 1450},
	}

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "PRICE_UPDATED", decoded["type"])

	data := decoded["data"].(map[string]interface{})
	assert.Equal(t, "INFY", data["symbol"])
	assert.Equal(t, 1450.0, data["new_price"])
}

func TestEventData_Types(t *testing.T) {
	assert.Equal(t, PriceUpdated, (&PriceUpdatedData{}).EventType())
	assert.Equal(t, ReconciliationCompleted, (&ReconciliationCompletedData{}).EventType())
	assert.Equal(t, RebalanceChecked, (&RebalanceCheckedData{}).EventType())
	assert.Equal(t, BackupCompleted, (&BackupCompletedData{}).EventType())
	assert.Equal(t, ErrorOccurred, (&ErrorEventData{}).EventType())
	assert.Len(t, AllTypes, 5)
}
