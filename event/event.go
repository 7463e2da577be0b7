// Copyright 2026 Blink Labs Software
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

package event

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	EventQueueSize      = 64
	AsyncQueueSize      = 1000
	AsyncWorkerPoolSize = 4
)

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

// Subscriber receives events from the bus. Close must be idempotent.
type Subscriber interface {
	Deliver(Event) error
	Close()
}

type asyncEvent struct {
	eventType EventType
	event     Event
}

// EventBus fans events out to subscribers by type. Publish delivers in the
// caller's goroutine and never blocks on a slow channel subscriber.
type EventBus struct {
	Logger      *slog.Logger
	metrics     *eventMetrics
	mu          sync.RWMutex
	subscribers map[EventType]map[EventSubscriberId]Subscriber
	lastSubId   EventSubscriberId

	// Handler goroutines started by SubscribeFunc
	handlerWg sync.WaitGroup

	stopMu         sync.RWMutex
	stopped        bool
	workersRunning bool
	asyncQueue     chan asyncEvent
	asyncWg        sync.WaitGroup
	stopCh         chan struct{}
	stopOpMu       sync.Mutex
}

func NewEventBus(
	promRegistry prometheus.Registerer,
	logger *slog.Logger,
) *EventBus {
	e := &EventBus{
		subscribers: make(map[EventType]map[EventSubscriberId]Subscriber),
		Logger:      logger,
	}
	if promRegistry != nil {
		e.metrics = &eventMetrics{}
		e.metrics.init(promRegistry)
	}
	return e
}

// startWorkers starts the async worker pool. The caller holds stopMu.
func (e *EventBus) startWorkers() {
	e.asyncQueue = make(chan asyncEvent, AsyncQueueSize)
	e.stopCh = make(chan struct{})
	for range AsyncWorkerPoolSize {
		e.asyncWg.Add(1)
		go e.asyncWorker(e.asyncQueue, e.stopCh)
	}
	e.workersRunning = true
}

func (e *EventBus) asyncWorker(queue <-chan asyncEvent, stopCh <-chan struct{}) {
	defer e.asyncWg.Done()
	for {
		select {
		case <-stopCh:
			return
		case ae := <-queue:
			e.Publish(ae.eventType, ae.event)
		}
	}
}

func (e *EventBus) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// channelSubscriber delivers into a buffered channel and drops events when
// the buffer is full
type channelSubscriber struct {
	ch      chan Event
	metrics *eventMetrics
	mu      sync.RWMutex
	closed  bool
}

func newChannelSubscriber(buffer int, metrics *eventMetrics) *channelSubscriber {
	return &channelSubscriber{
		ch:      make(chan Event, buffer),
		metrics: metrics,
	}
}

func (c *channelSubscriber) Deliver(evt Event) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil
	}
	select {
	case c.ch <- evt:
	default:
		if c.metrics != nil {
			c.metrics.dropped.WithLabelValues(string(evt.Type)).Inc()
		}
	}
	return nil
}

func (c *channelSubscriber) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}

func (e *EventBus) addSubscriber(eventType EventType, sub Subscriber) EventSubscriberId {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSubId++
	subId := e.lastSubId
	if _, ok := e.subscribers[eventType]; !ok {
		e.subscribers[eventType] = make(map[EventSubscriberId]Subscriber)
	}
	e.subscribers[eventType][subId] = sub
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType)).Inc()
	}
	return subId
}

// Subscribe returns a channel receiving events of the given type. The
// channel is closed by Unsubscribe or Stop.
func (e *EventBus) Subscribe(eventType EventType) (EventSubscriberId, <-chan Event) {
	sub := newChannelSubscriber(EventQueueSize, e.metrics)
	return e.addSubscriber(eventType, sub), sub.ch
}

// SubscribeFunc runs handlerFunc for each event of the given type in a
// dedicated goroutine. It returns 0 when the bus is stopping.
func (e *EventBus) SubscribeFunc(
	eventType EventType,
	handlerFunc EventHandlerFunc,
) EventSubscriberId {
	e.stopMu.RLock()
	defer e.stopMu.RUnlock()
	if e.stopped {
		return 0
	}
	subId, evtCh := e.Subscribe(eventType)
	e.handlerWg.Add(1)
	go func() {
		defer e.handlerWg.Done()
		for evt := range evtCh {
			handlerFunc(evt)
		}
	}()
	return subId
}

// RegisterSubscriber adds a custom subscriber and returns its id
func (e *EventBus) RegisterSubscriber(eventType EventType, sub Subscriber) EventSubscriberId {
	return e.addSubscriber(eventType, sub)
}

func (e *EventBus) Unsubscribe(eventType EventType, subId EventSubscriberId) {
	e.mu.Lock()
	var sub Subscriber
	if evtTypeSubs, ok := e.subscribers[eventType]; ok {
		sub = evtTypeSubs[subId]
		delete(evtTypeSubs, subId)
		if len(evtTypeSubs) == 0 {
			delete(e.subscribers, eventType)
		}
	}
	e.mu.Unlock()
	if sub == nil {
		return
	}
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType)).Dec()
	}
	sub.Close()
}

// Publish delivers an event to every subscriber of its type. A subscriber
// whose delivery fails is unregistered.
func (e *EventBus) Publish(eventType EventType, evt Event) {
	e.mu.RLock()
	subs := make(map[EventSubscriberId]Subscriber, len(e.subscribers[eventType]))
	for id, sub := range e.subscribers[eventType] {
		subs[id] = sub
	}
	e.mu.RUnlock()
	for id, sub := range subs {
		if err := deliver(sub, evt); err != nil {
			e.logger().Debug(
				"event delivery error",
				"type", eventType,
				"error", err,
			)
			if e.metrics != nil {
				e.metrics.deliveryErrors.WithLabelValues(string(eventType)).Inc()
			}
			e.Unsubscribe(eventType, id)
		}
	}
	if e.metrics != nil {
		e.metrics.eventsTotal.WithLabelValues(string(eventType)).Inc()
	}
}

func deliver(sub Subscriber, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber deliver panic: %v", r)
		}
	}()
	return sub.Deliver(evt)
}

// PublishAsync queues an event for delivery by the worker pool, starting the
// pool on first use. It returns false when the bus is stopping or the queue
// is full.
func (e *EventBus) PublishAsync(eventType EventType, evt Event) bool {
	e.stopMu.Lock()
	defer e.stopMu.Unlock()
	if e.stopped {
		return false
	}
	if !e.workersRunning {
		e.startWorkers()
	}
	select {
	case e.asyncQueue <- asyncEvent{eventType: eventType, event: evt}:
		return true
	default:
		e.logger().Warn(
			"async event queue full, dropping event",
			"type", eventType,
		)
		if e.metrics != nil {
			e.metrics.dropped.WithLabelValues(string(eventType)).Inc()
		}
		return false
	}
}

// Stop halts the worker pool and closes every subscriber, then waits for
// SubscribeFunc handlers to return. The bus can be used again afterwards.
func (e *EventBus) Stop() {
	e.stopOpMu.Lock()
	defer e.stopOpMu.Unlock()

	e.stopMu.Lock()
	e.stopped = true
	if e.workersRunning {
		close(e.stopCh)
		e.workersRunning = false
	}
	e.stopMu.Unlock()
	e.asyncWg.Wait()

	e.mu.Lock()
	subs := e.subscribers
	e.subscribers = make(map[EventType]map[EventSubscriberId]Subscriber)
	e.mu.Unlock()
	for _, evtTypeSubs := range subs {
		for _, sub := range evtTypeSubs {
			sub.Close()
		}
	}
	e.handlerWg.Wait()
	if e.metrics != nil {
		e.metrics.subscribers.Reset()
	}

	e.stopMu.Lock()
	e.stopped = false
	e.stopMu.Unlock()
}
