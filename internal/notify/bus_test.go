package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishToHandler(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var mu sync.Mutex
	var received []Event
	done := make(chan struct{}, 1)

	sub := bus.Subscribe(nil, func(e Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
		done <- struct{}{}
	})
	require.NotNil(t, sub)

	ev := NewEvent(EventPortStarted)
	ev.Port = 3000
	ev.ProcessName = "node"
	bus.Publish(ev)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler never fired")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, EventPortStarted, received[0].Type())
	assert.Equal(t, uint16(3000), received[0].Port)
}

func TestBus_PublishToChannel(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	sub := bus.SubscribeChannel(nil, 4)
	require.NotNil(t, sub)

	bus.Publish(NewEvent(EventSnapshotUpdated))

	select {
	case ev := <-sub.Channel:
		assert.Equal(t, EventSnapshotUpdated, ev.Type())
	case <-time.After(time.Second):
		t.Fatal("no event on channel")
	}
}

func TestBus_FilterByType(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	sub := bus.SubscribeChannel(FilterByType(EventPortStopped), 4)

	bus.Publish(NewEvent(EventPortStarted))
	bus.Publish(NewEvent(EventPortStopped))

	select {
	case ev := <-sub.Channel:
		assert.Equal(t, EventPortStopped, ev.Type())
	case <-time.After(time.Second):
		t.Fatal("no event on channel")
	}
	assert.Empty(t, sub.Channel)
}

func TestBus_FilterByPortAndCombine(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	filter := CombineFilters(FilterByType(EventPortStarted), FilterByPort(5432))
	sub := bus.SubscribeChannel(filter, 4)

	started := NewEvent(EventPortStarted)
	started.Port = 3000
	bus.Publish(started)

	stopped := NewEvent(EventPortStopped)
	stopped.Port = 5432
	bus.Publish(stopped)

	match := NewEvent(EventPortStarted)
	match.Port = 5432
	bus.Publish(match)

	select {
	case ev := <-sub.Channel:
		assert.Equal(t, uint16(5432), ev.Port)
		assert.Equal(t, EventPortStarted, ev.Type())
	case <-time.After(time.Second):
		t.Fatal("no event on channel")
	}
	assert.Empty(t, sub.Channel)
}

func TestBus_FullChannelDropsInsteadOfBlocking(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	sub := bus.SubscribeChannel(nil, 1)
	bus.Publish(NewEvent(EventSnapshotUpdated))
	bus.Publish(NewEvent(EventSnapshotUpdated)) // must not block

	metrics := bus.Metrics()
	assert.Equal(t, int64(2), metrics.EventsPublished)
	assert.Equal(t, int64(1), metrics.EventsDropped)
	assert.Len(t, sub.Channel, 1)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	sub := bus.SubscribeChannel(nil, 4)
	bus.Unsubscribe(sub)
	assert.True(t, sub.IsClosed())

	bus.Publish(NewEvent(EventSnapshotUpdated))
	assert.Equal(t, 0, bus.Metrics().ActiveSubscriptions)
}

func TestBus_CloseClosesSubscriptions(t *testing.T) {
	bus := NewBus()
	sub := bus.SubscribeChannel(nil, 4)

	bus.Close()
	assert.True(t, sub.IsClosed())
	assert.Nil(t, bus.SubscribeChannel(nil, 1))

	// Publishing after close is a no-op, not a panic.
	bus.Publish(NewEvent(EventSnapshotUpdated))
}

func TestBus_PublishDuringSubscriptionClose(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	// Publishers racing against direct subscription closes must never
	// panic with a send on a closed channel.
	for i := 0; i < 50; i++ {
		sub := bus.SubscribeChannel(nil, 1)
		require.NotNil(t, sub)

		var wg sync.WaitGroup
		start := make(chan struct{})
		for p := 0; p < 4; p++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				bus.Publish(NewEvent(EventSnapshotUpdated))
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			sub.Close()
		}()

		close(start)
		wg.Wait()
		assert.True(t, sub.IsClosed())
	}
}

func TestBusNotifier_PublishesEvents(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	sub := bus.SubscribeChannel(nil, 8)

	n := NewBusNotifier(bus)
	n.NotifyPortStarted(3000, "node")
	n.NotifyPortStopped(3000)
	n.Notify("hello", "world")

	types := make([]EventType, 0, 3)
	for i := 0; i < 3; i++ {
		select {
		case ev := <-sub.Channel:
			types = append(types, ev.Type())
		case <-time.After(time.Second):
			t.Fatal("missing event")
		}
	}
	assert.Equal(t, []EventType{EventPortStarted, EventPortStopped, EventNotice}, types)
}

func TestEvent_String(t *testing.T) {
	ev := NewEvent(EventPortStarted)
	ev.Port = 8080
	ev.ProcessName = "nginx"
	assert.Equal(t, "port 8080 started (nginx)", ev.String())

	stop := NewEvent(EventPortStopped)
	stop.Port = 8080
	assert.Equal(t, "port 8080 stopped", stop.String())
}
