// Package sse pushes rebuild notifications to open pages over Server-Sent
// Events. Pages served in dev mode subscribe and reload on site.rebuilt.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Event types.
const (
	EventRebuilt = "site.rebuilt"
	EventFailed  = "site.failed"
)

const (
	// clientBuffer is how many frames a slow page may fall behind before
	// frames are dropped for it.
	clientBuffer = 16
	// retryMillis is the reconnect delay browsers use while serve restarts.
	retryMillis = 1000
)

// Event is one notification sent to every open page.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// frame encodes the event as an SSE frame carrying id seq.
func (e Event) frame(seq uint64) ([]byte, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, e.Type, payload)), nil
}

// pages is the subscriber set. Only the broker loop touches it.
type pages struct {
	clients map[chan []byte]struct{}
	seq     uint64
}

func (p *pages) broadcast(e Event) {
	p.seq++
	msg, err := e.frame(p.seq)
	if err != nil {
		return
	}
	for ch := range p.clients {
		select {
		case ch <- msg:
		default:
			// Full queue: that page reloads on the next rebuild.
		}
	}
}

// Broker fans rebuild events out to subscribed pages. Subscriber state lives
// in one goroutine and every method hands it an operation to apply.
type Broker struct {
	ops  chan func(*pages)
	quit chan struct{}
	done chan struct{}
	once sync.Once
}

// NewBroker starts a broker. Close stops it.
func NewBroker() *Broker {
	b := &Broker{
		ops:  make(chan func(*pages)),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.done)
	p := &pages{clients: make(map[chan []byte]struct{})}
	for {
		select {
		case op := <-b.ops:
			op(p)
		case <-b.quit:
			for ch := range p.clients {
				close(ch)
			}
			return
		}
	}
}

// apply runs op on the loop. It reports false once the broker is closed.
func (b *Broker) apply(op func(*pages)) bool {
	select {
	case b.ops <- op:
		return true
	case <-b.done:
		return false
	}
}

// Close disconnects every page and stops the loop. It is safe to call twice.
func (b *Broker) Close() {
	b.once.Do(func() { close(b.quit) })
	<-b.done
}

// Subscribe registers a page. The returned channel is closed on Unsubscribe
// or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if !b.apply(func(p *pages) { p.clients[ch] = struct{}{} }) {
		close(ch)
	}
	return ch
}

// Unsubscribe drops a page and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.apply(func(p *pages) {
		if _, ok := p.clients[ch]; ok {
			delete(p.clients, ch)
			close(ch)
		}
	})
}

// ClientCount returns the number of subscribed pages.
func (b *Broker) ClientCount() int {
	n := make(chan int, 1)
	if !b.apply(func(p *pages) { n <- len(p.clients) }) {
		return 0
	}
	return <-n
}

// Publish numbers the event and queues it for every page.
func (b *Broker) Publish(e Event) {
	b.apply(func(p *pages) { p.broadcast(e) })
}

// RebuildFinished announces the outcome of a rebuild. Pages reload on
// site.rebuilt and ignore site.failed, so a broken edit keeps the last good
// page on screen.
func (b *Broker) RebuildFinished(d time.Duration, err error) {
	if err != nil {
		b.Publish(Event{Type: EventFailed, Data: map[string]string{"error": err.Error()}})
		return
	}
	b.Publish(Event{Type: EventRebuilt, Data: map[string]int64{"duration_ms": d.Milliseconds()}})
}

// EventThrottled is a no-op; pages only care about finished rebuilds.
func (b *Broker) EventThrottled() {}

// ServeHTTP streams events to one page until it disconnects or the broker
// closes.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", retryMillis)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, open := <-ch:
			if !open {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
