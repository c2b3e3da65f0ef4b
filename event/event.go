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

// Package event is a small in-process publish/subscribe bus. Publishing never
// blocks: a subscriber whose queue is full misses the event.
package event

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const EventQueueSize = 100

type EventType string

type EventSubscriberId int

type EventHandlerFunc func(Event)

type Event struct {
	Timestamp time.Time
	Data      any
	Type      EventType
}

func NewEvent(eventType EventType, eventData any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      eventData,
	}
}

type subscriber struct {
	ch chan Event
}

type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType]map[EventSubscriberId]*subscriber
	lastSubId   EventSubscriberId
	handlerWg   sync.WaitGroup
	metrics     *eventMetrics
	logger      *slog.Logger
}

// NewEventBus creates a new EventBus. A nil registry disables metrics.
func NewEventBus(
	promRegistry prometheus.Registerer,
	logger *slog.Logger,
) *EventBus {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e := &EventBus{
		subscribers: make(map[EventType]map[EventSubscriberId]*subscriber),
		logger:      logger,
	}
	if promRegistry != nil {
		e.metrics = newEventMetrics(promRegistry)
	}
	return e
}

// Subscribe allows a consumer to receive events of a particular type via a channel
func (e *EventBus) Subscribe(
	eventType EventType,
) (EventSubscriberId, <-chan Event) {
	sub := &subscriber{ch: make(chan Event, EventQueueSize)}
	subId := e.add(eventType, sub)
	return subId, sub.ch
}

// SubscribeFunc allows a consumer to receive events of a particular type via a
// callback function. The callback runs on its own goroutine, which exits when
// the subscription ends.
func (e *EventBus) SubscribeFunc(
	eventType EventType,
	handlerFunc EventHandlerFunc,
) EventSubscriberId {
	sub := &subscriber{ch: make(chan Event, EventQueueSize)}
	e.handlerWg.Add(1)
	go func() {
		defer e.handlerWg.Done()
		for evt := range sub.ch {
			e.runHandler(handlerFunc, evt)
		}
	}()
	return e.add(eventType, sub)
}

// runHandler keeps a panicking handler from taking down its subscription
func (e *EventBus) runHandler(handlerFunc EventHandlerFunc, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error(
				"event handler panic",
				"component", "event",
				"type", evt.Type,
				"panic", r,
			)
		}
	}()
	handlerFunc(evt)
}

func (e *EventBus) add(eventType EventType, sub *subscriber) EventSubscriberId {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSubId++
	if _, ok := e.subscribers[eventType]; !ok {
		e.subscribers[eventType] = make(map[EventSubscriberId]*subscriber)
	}
	e.subscribers[eventType][e.lastSubId] = sub
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType)).Inc()
	}
	return e.lastSubId
}

// Unsubscribe stops delivery of events for a particular type for an existing
// subscriber and closes its channel
func (e *EventBus) Unsubscribe(eventType EventType, subId EventSubscriberId) {
	e.mu.Lock()
	defer e.mu.Unlock()
	evtTypeSubs, ok := e.subscribers[eventType]
	if !ok {
		return
	}
	sub, ok := evtTypeSubs[subId]
	if !ok {
		return
	}
	delete(evtTypeSubs, subId)
	if len(evtTypeSubs) == 0 {
		delete(e.subscribers, eventType)
	}
	close(sub.ch)
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType)).Dec()
	}
}

// Publish sends an event to all subscribers of its type
func (e *EventBus) Publish(eventType EventType, evt Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for subId, sub := range e.subscribers[eventType] {
		select {
		case sub.ch <- evt:
		default:
			e.logger.Debug(
				"dropped event for slow subscriber",
				"component", "event",
				"type", eventType,
				"subscriber", subId,
			)
			if e.metrics != nil {
				e.metrics.dropped.WithLabelValues(string(eventType)).Inc()
			}
		}
	}
	if e.metrics != nil {
		e.metrics.eventsTotal.WithLabelValues(string(eventType)).Inc()
	}
}

// Stop closes every subscription and waits for callback goroutines to return.
// The bus can still be used afterward.
func (e *EventBus) Stop() {
	e.mu.Lock()
	subs := e.subscribers
	e.subscribers = make(map[EventType]map[EventSubscriberId]*subscriber)
	for _, evtTypeSubs := range subs {
		for _, sub := range evtTypeSubs {
			close(sub.ch)
		}
	}
	if e.metrics != nil {
		e.metrics.subscribers.Reset()
	}
	e.mu.Unlock()
	e.handlerWg.Wait()
}
