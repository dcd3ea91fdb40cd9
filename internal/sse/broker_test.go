package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func recvFrame(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case frame, ok := <-ch:
		if !ok {
			t.Fatal("subscriber channel closed while waiting for a frame")
		}
		return string(frame)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
	}
	return ""
}

func expectNoFrame(t *testing.T, ch chan []byte) {
	t.Helper()
	select {
	case frame := <-ch:
		t.Fatalf("unexpected frame %q", frame)
	case <-time.After(100 * time.Millisecond):
	}
}

func waitForClients(t *testing.T, b *Broker, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for b.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("client count never reached %d", want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(0)
	defer b.Close()

	if n := b.ClientCount(); n != 0 {
		t.Fatalf("fresh broker reports %d clients", n)
	}

	ch := b.Subscribe()
	if n := b.ClientCount(); n != 1 {
		t.Fatalf("after subscribe: %d clients, want 1", n)
	}

	b.Unsubscribe(ch)
	if n := b.ClientCount(); n != 0 {
		t.Fatalf("after unsubscribe: %d clients, want 0", n)
	}
	if _, open := <-ch; open {
		t.Error("unsubscribed channel should be closed")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(0)
	defer b.Close()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "demo", Data: map[string]string{"k": "v"}})

	frame := recvFrame(t, ch)
	for _, want := range []string{"id: 1\n", "event: demo\n", `data: {"k":"v"}`} {
		if !strings.Contains(frame, want) {
			t.Errorf("frame %q missing %q", frame, want)
		}
	}
}

func TestFrameSequenceAdvances(t *testing.T) {
	b := NewBroker(0)
	defer b.Close()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "first", Data: nil})
	b.Publish(Event{Type: "second", Data: nil})

	if frame := recvFrame(t, ch); !strings.HasPrefix(frame, "id: 1\n") {
		t.Errorf("first frame = %q, want id 1", frame)
	}
	if frame := recvFrame(t, ch); !strings.HasPrefix(frame, "id: 2\n") {
		t.Errorf("second frame = %q, want id 2", frame)
	}
}

func TestPipelineEvent_UpdateThrottle(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishPipelineEvent(KindUpdated, "2 created, 0 updated")
	first := recvFrame(t, ch)
	if !strings.Contains(first, "event: calendar.updated\n") {
		t.Fatalf("frame %q is not an update", first)
	}

	// A second update inside the throttle interval is swallowed.
	b.PublishPipelineEvent(KindUpdated, "1 created, 0 updated")
	expectNoFrame(t, ch)

	// Published frames bypass the throttle entirely.
	b.PublishPipelineEvent(KindPublished, "https://gist.example/raw")
	pub := recvFrame(t, ch)
	if !strings.Contains(pub, "event: calendar.published\n") {
		t.Fatalf("frame %q is not a publish", pub)
	}
	if !strings.Contains(pub, "https://gist.example/raw") {
		t.Errorf("publish frame %q missing the raw url", pub)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(0)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(rec, req)
		close(done)
	}()

	waitForClients(t, b, 1)

	b.Publish(Event{Type: "demo", Data: map[string]string{"k": "v"}})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "retry: 3000\n\n") {
		t.Errorf("body %q missing reconnect hint", body)
	}
	if !strings.Contains(body, "event: demo") || !strings.Contains(body, `data: {"k":"v"}`) {
		t.Errorf("body %q missing published frame", body)
	}

	waitForClients(t, b, 0)
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Never drain; well past the buffer the broker must keep moving
	// instead of blocking its loop.
	for i := 0; i < subscriberBuffer+16; i++ {
		b.Publish(Event{Type: "flood", Data: nil})
	}

	if n := b.ClientCount(); n != 1 {
		t.Fatalf("broker loop wedged, client count = %d", n)
	}

	received := 0
drain:
	for {
		select {
		case <-ch:
			received++
		default:
			break drain
		}
	}
	if received > subscriberBuffer {
		t.Errorf("received %d frames, buffer should cap at %d", received, subscriberBuffer)
	}
}

func TestClose_DisconnectsAndIsIdempotent(t *testing.T) {
	b := NewBroker(0)

	ch := b.Subscribe()
	waitForClients(t, b, 1)

	b.Close()
	b.Close()

	select {
	case _, open := <-ch:
		if open {
			t.Fatal("subscriber channel should be closed after Close")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}

	if n := b.ClientCount(); n != 0 {
		t.Errorf("closed broker reports %d clients", n)
	}

	// All no-ops after close.
	b.Publish(Event{Type: "demo", Data: nil})
	b.PublishPipelineEvent(KindUpdated, "late")
	if _, open := <-b.Subscribe(); open {
		t.Error("subscribing after close should yield a closed channel")
	}
}
