package orchestrator

import (
	"log"
	"sync/atomic"

	"github.com/tessellate-ai/maestro/internal/blackboard"
)

// EventStream forwards blackboard events to a host over a buffered
// channel. The blackboard invokes listeners under its lock, so delivery
// never blocks: when the buffer is full the event is dropped and counted.
type EventStream struct {
	board   *blackboard.Blackboard
	ch      chan blackboard.Event
	sub     int
	dropped int64
}

// NewEventStream subscribes to the blackboard with the given buffer size.
func NewEventStream(board *blackboard.Blackboard, buffer int) *EventStream {
	if buffer <= 0 {
		buffer = 256
	}
	s := &EventStream{
		board: board,
		ch:    make(chan blackboard.Event, buffer),
	}
	s.sub = board.On(func(ev blackboard.Event) {
		select {
		case s.ch <- ev:
		default:
			if n := atomic.AddInt64(&s.dropped, 1); n%100 == 1 {
				log.Printf("[orchestrator] event buffer full, dropped %d events", n)
			}
		}
	})
	return s
}

// Events returns the receive side of the stream.
func (s *EventStream) Events() <-chan blackboard.Event {
	return s.ch
}

// Dropped returns how many events were discarded due to a full buffer.
func (s *EventStream) Dropped() int64 {
	return atomic.LoadInt64(&s.dropped)
}

// Close unsubscribes and closes the channel. No events are delivered
// after Close returns.
func (s *EventStream) Close() {
	s.board.Off(s.sub)
	close(s.ch)
}
