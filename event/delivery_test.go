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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSubscriber struct {
	closed bool
	panics bool
}

func (m *mockSubscriber) Deliver(Event) error {
	if m.panics {
		panic("boom")
	}
	return errors.New("deliver failed")
}

func (m *mockSubscriber) Close() {
	m.closed = true
}

func TestDeliverFailureUnregisters(t *testing.T) {
	for _, panics := range []bool{false, true} {
		eb := NewEventBus(nil, nil)
		sub := &mockSubscriber{panics: panics}
		subId := eb.RegisterSubscriber("test.fail", sub)
		require.NotZero(t, subId)
		eb.Publish("test.fail", NewEvent("test.fail", "x"))
		eb.mu.RLock()
		_, exists := eb.subscribers["test.fail"][subId]
		eb.mu.RUnlock()
		assert.False(t, exists, "subscriber not removed after deliver failure")
		assert.True(t, sub.closed, "subscriber not closed after deliver failure")
		eb.Stop()
	}
}

func TestChannelSubscriberDropsWhenFull(t *testing.T) {
	const bufferSize = 5
	sub := newChannelSubscriber(bufferSize, nil)
	for i := range bufferSize {
		require.NoError(t, sub.Deliver(NewEvent("test", i)))
	}
	done := make(chan error, 1)
	go func() {
		done <- sub.Deliver(NewEvent("test", "overflow"))
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Deliver blocked on a full buffer")
	}
	for i := range bufferSize {
		evt := <-sub.ch
		assert.Equal(t, i, evt.Data)
	}
	select {
	case evt := <-sub.ch:
		t.Fatalf("unexpected extra event: %v", evt)
	default:
	}
}

func TestChannelSubscriberDeliverAfterClose(t *testing.T) {
	sub := newChannelSubscriber(5, nil)
	sub.Close()
	sub.Close()
	require.NoError(t, sub.Deliver(NewEvent("test", "after-close")))
}
