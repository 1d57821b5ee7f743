package eventviewer

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"
)

type fakeClient struct {
	mu     sync.Mutex
	events []Event
	err    error
	closed bool
}

func (c *fakeClient) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, v.(Event))
	return nil
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeClient) received() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func (c *fakeClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeReader replays messages, then blocks until ctx is done.
type fakeReader struct {
	mu       sync.Mutex
	messages []kafka.Message
	errs     []error
	closed   bool
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		r.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(r.messages) > 0 {
		msg := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestDecodeEvent(t *testing.T) {
	ev, err := decodeEvent(kafka.Message{
		Topic: "meeting.tickets.generated",
		Key:   []byte("run-1"),
		Value: []byte(`{"eventType":"meeting.tickets.generated","runId":"run-1","count":2,"timestamp":1700000000000}`),
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.EventType != "meeting.tickets.generated" || ev.RunID != "run-1" || ev.Timestamp != 1700000000000 {
		t.Errorf("unexpected envelope %+v", ev)
	}
	if !strings.Contains(string(ev.Payload), `"count":2`) {
		t.Errorf("expected raw payload, got %s", ev.Payload)
	}
}

func TestDecodeEvent_FallsBackToKeyAndHeader(t *testing.T) {
	ev, err := decodeEvent(kafka.Message{
		Key:     []byte("run-9"),
		Headers: []kafka.Header{{Key: "eventType", Value: []byte("meeting.transcript.completed")}},
		Value:   []byte(`{"duration":12.5}`),
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.RunID != "run-9" {
		t.Errorf("expected run id from key, got %q", ev.RunID)
	}
	if ev.EventType != "meeting.transcript.completed" {
		t.Errorf("expected event type from header, got %q", ev.EventType)
	}
}

func TestDecodeEvent_InvalidJSON(t *testing.T) {
	if _, err := decodeEvent(kafka.Message{Value: []byte("not json")}); err == nil {
		t.Fatal("expected error for invalid payload")
	}
}

func TestHub_BroadcastAndDropFailingClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	good := &fakeClient{}
	bad := &fakeClient{err: errors.New("broken pipe")}
	hub.Register(good)
	hub.Register(bad)
	waitFor(t, "registration", func() bool { return hub.Count() == 2 })

	if err := hub.Publish(ctx, Event{RunID: "run-1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	waitFor(t, "delivery", func() bool { return len(good.received()) == 1 })
	waitFor(t, "failing client removal", func() bool { return hub.Count() == 1 })
	if !bad.isClosed() {
		t.Error("expected failing client to be closed")
	}
	if good.received()[0].RunID != "run-1" {
		t.Errorf("expected run-1, got %+v", good.received()[0])
	}
}

func TestHub_UnregisterAndShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	a, b := &fakeClient{}, &fakeClient{}
	hub.Register(a)
	hub.Register(b)
	hub.Unregister(a)
	waitFor(t, "unregister", a.isClosed)

	cancel()
	<-stopped

	if !b.isClosed() {
		t.Error("expected remaining client closed on shutdown")
	}
	if n := hub.Count(); n != 0 {
		t.Errorf("expected 0 clients after shutdown, got %d", n)
	}

	late := &fakeClient{}
	hub.Register(late)
	if !late.isClosed() {
		t.Error("expected late client to be closed")
	}
	hub.Unregister(late)
	if err := hub.Publish(context.Background(), Event{}); !errors.Is(err, ErrHubClosed) && err != nil {
		t.Errorf("expected nil or ErrHubClosed, got %v", err)
	}
}

func TestConsume_PublishesAndSkipsBadMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)
	client := &fakeClient{}
	hub.Register(client)

	reader := &fakeReader{
		errs: []error{errors.New("broker not available")},
		messages: []kafka.Message{
			{Value: []byte("garbage")},
			{Key: []byte("run-1"), Value: []byte(`{"eventType":"meeting.transcript.completed","runId":"run-1"}`)},
		},
	}

	done := make(chan struct{})
	go func() {
		Consume(ctx, hub, reader, "meeting.transcript.completed", time.Millisecond)
		close(done)
	}()

	waitFor(t, "event delivery", func() bool { return len(client.received()) == 1 })
	got := client.received()[0]
	if got.Topic != "meeting.transcript.completed" {
		t.Errorf("expected topic filled from consumer, got %q", got.Topic)
	}
	if got.RunID != "run-1" {
		t.Errorf("expected run-1, got %q", got.RunID)
	}

	cancel()
	<-done
	reader.mu.Lock()
	defer reader.mu.Unlock()
	if !reader.closed {
		t.Error("expected reader closed after consume returns")
	}
}

func TestHandler_WebSocketStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(Handler(hub))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitFor(t, "registration", func() bool { return hub.Count() == 1 })
	if err := hub.Publish(ctx, Event{EventType: "meeting.tickets.generated", RunID: "run-7"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.RunID != "run-7" || got.EventType != "meeting.tickets.generated" {
		t.Errorf("unexpected event %+v", got)
	}

	conn.Close()
	waitFor(t, "unregister", func() bool { return hub.Count() == 0 })
}

func TestHandler_ServesIndex(t *testing.T) {
	srv := httptest.NewServer(Handler(NewHub()))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}
