// Copyright 2024 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/blinklabs-io/microchain/event"
)

const testEvtType event.EventType = "test.event"

func TestEventBusMultipleSubscribers(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, sub1Ch := eb.Subscribe(testEvtType)
	_, sub2Ch := eb.Subscribe(testEvtType)
	_, otherCh := eb.Subscribe("other.event")
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 999))
	for _, ch := range []<-chan event.Event{sub1Ch, sub2Ch} {
		select {
		case evt, ok := <-ch:
			require.True(t, ok, "event channel closed unexpectedly")
			assert.Equal(t, 999, evt.Data)
			assert.Equal(t, testEvtType, evt.Type)
		case <-time.After(1 * time.Second):
			t.Fatal("timeout waiting for event")
		}
	}
	assert.Empty(t, otherCh)
}

func TestEventBusUnsubscribe(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	subId, subCh := eb.Subscribe(testEvtType)
	eb.Unsubscribe(testEvtType, subId)
	// Unsubscribing twice is harmless
	eb.Unsubscribe(testEvtType, subId)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 1))
	_, ok := <-subCh
	assert.False(t, ok, "channel should be closed after Unsubscribe")
}

func TestEventBusPublishDoesNotBlock(t *testing.T) {
	reg := prometheus.NewRegistry()
	eb := event.NewEventBus(reg, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(testEvtType)
	total := event.EventQueueSize + 5
	done := make(chan struct{})
	go func() {
		for i := range total {
			eb.Publish(testEvtType, event.NewEvent(testEvtType, i))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Len(t, subCh, event.EventQueueSize)
	count, err := testutil.GatherAndCount(reg, "microchain_event_dropped_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEventBusStop(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	_, subCh := eb.Subscribe(testEvtType)
	received := make(chan struct{}, 1)
	eb.SubscribeFunc(testEvtType, func(evt event.Event) {
		received <- struct{}{}
	})
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "before"))
	select {
	case <-received:
	case <-time.After(1 * time.Second):
		t.Fatal("SubscribeFunc did not receive event before Stop")
	}
	eb.Stop()
	// Drain the buffered event, then the channel must be closed
	<-subCh
	_, ok := <-subCh
	assert.False(t, ok)
	// The bus is still usable
	_, newCh := eb.Subscribe(testEvtType)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "new"))
	evt := <-newCh
	assert.Equal(t, "new", evt.Data)
	eb.Stop()
}

func TestSubscribeFuncPanicRecovery(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	var received atomic.Int32
	eb.SubscribeFunc(testEvtType, func(evt event.Event) {
		if received.Add(1) == 1 {
			panic("intentional test panic")
		}
	})
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "panic"))
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "after-panic"))
	require.Eventually(
		t,
		func() bool { return received.Load() >= 2 },
		2*time.Second,
		10*time.Millisecond,
		"handler should continue processing events after a panic",
	)
	eb.Stop()
}
