package realtime

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// EventSource feeds external events into a Runner.
type EventSource[E any] interface {
	Events() <-chan E
}

// ChannelSource is an EventSource backed by a caller-owned channel.
type ChannelSource[E any] struct {
	ch <-chan E
}

// NewChannelSource wraps ch. Closing ch detaches the source.
func NewChannelSource[E any](ch <-chan E) *ChannelSource[E] {
	return &ChannelSource[E]{ch: ch}
}

func (s *ChannelSource[E]) Events() <-chan E { return s.ch }

// TickerSource emits the same event every period until stopped.
type TickerSource[E any] struct {
	ch     chan E
	ticker *clock.Ticker
	stop   chan struct{}
	once   sync.Once
}

// NewTickerSource starts emitting ev every d on clk. A nil clk is the wall
// clock.
func NewTickerSource[E any](clk clock.Clock, d time.Duration, ev E) *TickerSource[E] {
	if clk == nil {
		clk = clock.New()
	}
	s := &TickerSource[E]{
		ch:     make(chan E, 10),
		ticker: clk.Ticker(d),
		stop:   make(chan struct{}),
	}
	go s.run(ev)
	return s
}

func (s *TickerSource[E]) run(ev E) {
	defer close(s.ch)
	for {
		select {
		case <-s.stop:
			return
		case <-s.ticker.C:
			select {
			case s.ch <- ev:
			default:
			}
		}
	}
}

func (s *TickerSource[E]) Events() <-chan E { return s.ch }

// Stop stops the ticker and closes the event channel. Later calls do nothing.
func (s *TickerSource[E]) Stop() {
	s.once.Do(func() {
		s.ticker.Stop()
		close(s.stop)
	})
}
