// Package notify relays accepted scores to connected observers.
//
// Publishing is decoupled from delivery: Publish only drops the event into a
// bounded inbox and returns immediately, and a single dispatch goroutine fans
// it out to subscribers. A full inbox or a slow subscriber loses events; the
// submitting request is never blocked or failed by the relay.
//
// Delivery is publish-to-others: a subscriber never receives events carrying
// its own identity.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// DefaultBuffer is the inbox and per-subscriber channel capacity.
const DefaultBuffer = 256

// Event is one accepted score.
type Event struct {
	Identity string    `json:"name"`
	Score    float64   `json:"score"`
	At       time.Time `json:"at"`
}

var (
	eventsPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "leaderboard_events_published_total",
		Help: "Score events accepted into the broadcast inbox.",
	})
	eventsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leaderboard_events_dropped_total",
		Help: "Score events dropped before delivery.",
	}, []string{"reason"})
	subscribersGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "leaderboard_event_subscribers",
		Help: "Currently connected event subscribers.",
	})
)

func init() {
	prometheus.MustRegister(eventsPublished, eventsDropped, subscribersGauge)
}

type subscriber struct {
	identity string
	ch       chan Event
}

// Broadcaster fans events out to subscribers. It is safe for concurrent use.
type Broadcaster struct {
	inbox  chan Event
	buffer int

	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	closed bool

	wg   sync.WaitGroup
	once sync.Once
	done chan struct{}
}

// NewBroadcaster returns a Broadcaster whose inbox and subscriber channels
// hold buffer events. Call Start before publishing.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broadcaster{
		inbox:  make(chan Event, buffer),
		buffer: buffer,
		subs:   make(map[*subscriber]struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the dispatch loop. It returns when the loop is running; the
// loop exits on ctx cancellation or Stop.
func (b *Broadcaster) Start(ctx context.Context) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-b.done:
				return
			case e := <-b.inbox:
				b.dispatch(e)
			}
		}
	}()
}

// Stop ends the dispatch loop and closes every subscriber channel.
func (b *Broadcaster) Stop() {
	b.once.Do(func() {
		close(b.done)
		b.wg.Wait()

		b.mu.Lock()
		b.closed = true
		for s := range b.subs {
			close(s.ch)
			delete(b.subs, s)
		}
		b.mu.Unlock()
		subscribersGauge.Set(0)
	})
}

// Publish enqueues e without blocking. It reports false when the inbox is
// full or the broadcaster is stopped.
func (b *Broadcaster) Publish(e Event) bool {
	select {
	case <-b.done:
		eventsDropped.WithLabelValues("stopped").Inc()
		return false
	default:
	}
	select {
	case b.inbox <- e:
		eventsPublished.Inc()
		return true
	default:
		eventsDropped.WithLabelValues("inbox_full").Inc()
		return false
	}
}

// Subscribe registers an observer identified by identity. The returned
// cancel func unregisters it and closes the channel; it is safe to call more
// than once. On a stopped broadcaster the channel is returned closed.
func (b *Broadcaster) Subscribe(identity string) (<-chan Event, func()) {
	s := &subscriber{identity: identity, ch: make(chan Event, b.buffer)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(s.ch)
		return s.ch, func() {}
	}
	b.subs[s] = struct{}{}
	n := len(b.subs)
	b.mu.Unlock()
	subscribersGauge.Set(float64(n))

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.subs[s]; ok {
				delete(b.subs, s)
				close(s.ch)
			}
			n := len(b.subs)
			b.mu.Unlock()
			subscribersGauge.Set(float64(n))
		})
	}
}

// Subscribers returns the number of registered observers.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Broadcaster) dispatch(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		if s.identity == e.Identity {
			continue
		}
		select {
		case s.ch <- e:
		default:
			eventsDropped.WithLabelValues("slow_subscriber").Inc()
			log.Debug().Str("subscriber", s.identity).Msg("score event dropped for slow subscriber")
		}
	}
}
