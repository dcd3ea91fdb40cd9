// Package sse implements a Server-Sent Events broker for calendar change
// notifications.
package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// Event kinds understood by PublishPipelineEvent. The strings match the
// notify kinds the event service emits.
const (
	KindUpdated   = "calendar.updated"
	KindPublished = "calendar.published"
)

// subscriberBuffer bounds how far a slow client may fall behind before it
// starts missing frames.
const subscriberBuffer = 64

// keepaliveEvery spaces out comment frames that keep idle connections from
// being reaped by proxies.
const keepaliveEvery = 25 * time.Second

// Event is one server-sent event: Type becomes the SSE event name and Data
// is JSON-encoded into the data line.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type change struct {
	kind   string
	detail string
}

// Broker fans calendar pipeline events out to connected SSE clients.
//
// All mutable state (the subscriber set and the throttle clock) is owned by
// a single loop goroutine; exported methods talk to it over channels and are
// safe for concurrent use. A subscriber that stops draining its channel
// misses frames instead of stalling the loop.
type Broker struct {
	throttle time.Duration

	joinCh   chan chan []byte
	leaveCh  chan chan []byte
	eventCh  chan Event
	changeCh chan change
	countCh  chan chan int

	quit   chan struct{}
	done   chan struct{}
	closed atomic.Bool
}

// NewBroker starts the broker loop. throttle caps how often
// calendar.updated frames go out; zero or negative selects two seconds.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}

	b := &Broker{
		throttle: throttle,
		joinCh:   make(chan chan []byte),
		leaveCh:  make(chan chan []byte),
		eventCh:  make(chan Event, 256),
		changeCh: make(chan change, 256),
		countCh:  make(chan chan int),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.done)

	subs := make(map[chan []byte]struct{})
	var seq uint64
	var lastUpdate time.Time

	offer := func(ch chan []byte, frame []byte) {
		select {
		case ch <- frame:
		default:
			// Subscriber is not draining; drop rather than block the loop.
		}
	}

	send := func(ev Event) {
		payload, err := json.Marshal(ev.Data)
		if err != nil {
			return
		}
		seq++
		frame := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, ev.Type, payload))
		for ch := range subs {
			offer(ch, frame)
		}
	}

	keepalive := time.NewTicker(keepaliveEvery)
	defer keepalive.Stop()

	for {
		select {
		case <-b.quit:
			for ch := range subs {
				close(ch)
			}
			return

		case ch := <-b.joinCh:
			subs[ch] = struct{}{}

		case ch := <-b.leaveCh:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}

		case ev := <-b.eventCh:
			send(ev)

		case c := <-b.changeCh:
			switch c.kind {
			case KindPublished:
				send(Event{Type: KindPublished, Data: map[string]string{"url": c.detail}})

			case KindUpdated:
				// Subscribers refetch the event list on this signal, so a
				// burst of uploads collapses into one notification.
				if now := time.Now(); now.Sub(lastUpdate) >= b.throttle {
					lastUpdate = now
					send(Event{Type: KindUpdated, Data: map[string]string{"detail": c.detail}})
				}
			}

		case <-keepalive.C:
			for ch := range subs {
				offer(ch, []byte(": ping\n\n"))
			}

		case reply := <-b.countCh:
			reply <- len(subs)
		}
	}
}

// Close stops the loop and closes every subscriber channel. Safe to call
// more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.quit)
	}
	<-b.done
}

// Subscribe registers a client. The returned channel carries ready-to-write
// SSE frames and is closed by Unsubscribe or broker shutdown.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, subscriberBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.joinCh <- ch:
	case <-b.done:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client registered with Subscribe.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.leaveCh <- ch:
	case <-b.done:
	}
}

// ClientCount reports how many subscribers are connected.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	reply := make(chan int, 1)
	select {
	case b.countCh <- reply:
	case <-b.done:
		return 0
	}

	select {
	case n := <-reply:
		return n
	case <-b.done:
		return 0
	}
}

// Publish broadcasts an arbitrary event to all subscribers.
func (b *Broker) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.eventCh <- ev:
	case <-b.done:
	}
}

// PublishPipelineEvent reports a calendar pipeline change. Update kinds are
// throttled, published kinds always go out. The signature matches the event
// service's notify callback.
func (b *Broker) PublishPipelineEvent(kind, detail string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- change{kind: kind, detail: detail}:
	case <-b.done:
	}
}

// ServeHTTP streams broker frames to one client (GET /api/stream).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "connection does not support streaming", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	// Ask clients to back off a little before reconnecting.
	_, _ = io.WriteString(w, "retry: 3000\n\n")
	flusher.Flush()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	for {
		select {
		case <-r.Context().Done():
			return
		case frame, open := <-sub:
			if !open {
				return
			}
			_, _ = w.Write(frame)
			flusher.Flush()
		}
	}
}
