package broadcast

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSubscriber records everything it receives. failing makes every Send
// return an error, simulating a dead connection.
type fakeSubscriber struct {
	mu       sync.Mutex
	payloads [][]byte
	failing  bool
}

func (f *fakeSubscriber) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("connection gone")
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakeSubscriber) received() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var events []Event
	for _, p := range f.payloads {
		var ev Event
		if err := json.Unmarshal(p, &ev); err == nil {
			events = append(events, ev)
		}
	}
	return events
}

func TestHubPublishReachesOnlyTargetRole(t *testing.T) {
	hub := NewHub(nil, nil)
	kitchen := &fakeSubscriber{}
	drinks := &fakeSubscriber{}
	hub.Subscribe("kitchen", kitchen)
	hub.Subscribe("drinks", drinks)

	hub.Publish("kitchen", Event{Type: EventOrderCreated, OrderID: 42, Message: "new order"})

	events := kitchen.received()
	require.Len(t, events, 1)
	assert.Equal(t, EventOrderCreated, events[0].Type)
	assert.Equal(t, 42, events[0].OrderID)
	assert.Empty(t, drinks.received())
}

func TestHubPublishToAllStations(t *testing.T) {
	hub := NewHub([]string{"kitchen", "grill"}, nil)
	kitchen := &fakeSubscriber{}
	grill := &fakeSubscriber{}
	dispatch := &fakeSubscriber{}
	hub.Subscribe("kitchen", kitchen)
	hub.Subscribe("grill", grill)
	hub.Subscribe(RoleDispatch, dispatch)

	hub.PublishToAllStations(Event{Type: EventSystemReset})

	assert.Len(t, kitchen.received(), 1)
	assert.Len(t, grill.received(), 1)
	assert.Empty(t, dispatch.received(), "dispatch is not a station role")
}

func TestHubUnsubscribeIsIdempotent(t *testing.T) {
	hub := NewHub(nil, nil)
	sub := &fakeSubscriber{}
	hub.Subscribe("kitchen", sub)

	hub.Unsubscribe("kitchen", sub)
	hub.Unsubscribe("kitchen", sub)
	hub.Unsubscribe("never-subscribed", sub)

	hub.Publish("kitchen", Event{Type: EventOrderCreated})
	assert.Empty(t, sub.received())
	assert.Equal(t, 0, hub.SubscriberCount("kitchen"))
}

func TestHubDropsDeadSubscribers(t *testing.T) {
	hub := NewHub(nil, nil)
	dead := &fakeSubscriber{failing: true}
	alive := &fakeSubscriber{}
	hub.Subscribe("kitchen", dead)
	hub.Subscribe("kitchen", alive)

	hub.Publish("kitchen", Event{Type: EventOrderCreated, OrderID: 1})
	assert.Equal(t, 1, hub.SubscriberCount("kitchen"), "failed send should evict the subscriber")

	hub.Publish("kitchen", Event{Type: EventOrderReady, OrderID: 1})
	assert.Len(t, alive.received(), 2)
}

func TestHubConcurrentPublishAndSubscribe(t *testing.T) {
	hub := NewHub(nil, nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub := &fakeSubscriber{}
			hub.Subscribe("kitchen", sub)
			hub.Unsubscribe("kitchen", sub)
		}()
		go func() {
			defer wg.Done()
			hub.Publish("kitchen", Event{Type: EventOrderCreated})
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, hub.SubscriberCount("kitchen"))
}
