/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_relay/internal/events"
)

func TestStopBackgroundWorkersUnsubscribes(t *testing.T) {
	s := &Server{
		logger: zerolog.Nop(),
		bus:    events.NewBus(),
	}
	s.startBackgroundWorkers()

	if len(s.bgSubs) == 0 {
		t.Fatal("expected bus subscriptions after start")
	}
	subs := make([]events.Subscriber, len(s.bgSubs))
	for i, bs := range s.bgSubs {
		subs[i] = bs.sub
	}

	s.bus.Publish(events.EventStreamStart, events.Payload{"station_id": "s1"})

	done := make(chan struct{})
	go func() {
		s.stopBackgroundWorkers()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stopBackgroundWorkers did not return")
	}

	if s.bgSubs != nil {
		t.Fatalf("expected subscriptions to be cleared, got %d", len(s.bgSubs))
	}
	// A closed channel may still hold buffered payloads; drain until the
	// receive reports closed.
	for i, sub := range subs {
		deadline := time.After(time.Second)
		for closed := false; !closed; {
			select {
			case _, ok := <-sub:
				closed = !ok
			case <-deadline:
				t.Fatalf("subscriber %d not closed after stop", i)
			}
		}
	}
}
