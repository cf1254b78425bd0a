package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{
		gate: make(chan struct{}),
	}
}

func (s *gateSink) Emit(context.Context, Event) {
	<-s.gate
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{}, nil)
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	if d.Emit(context.Background(), Event{}) {
		t.Fatal("nil dispatcher must not accept events")
	}
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestDispatcherDeliversInOrder(t *testing.T) {
	sink := NewChannelSink(4)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink, nil)
	defer d.Close()

	for _, typ := range []string{"a", "b", "c"} {
		if !d.Emit(context.Background(), Event{EventType: typ}) {
			t.Fatalf("emit %s rejected", typ)
		}
	}
	for _, want := range []string{"a", "b", "c"} {
		select {
		case ev := <-sink.Events():
			if ev.EventType != want {
				t.Fatalf("got %s, want %s", ev.EventType, want)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestDispatcherDropIfFullLogs(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink, zap.New(core))

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "token_sign"})
	}
	close(sink.gate)
	d.Close()

	dropped := d.Dropped()
	if dropped == 0 {
		t.Fatal("expected drops with a blocked sink")
	}
	// first, second, fourth and eighth drop are logged
	want := 0
	for n := uint64(1); n <= dropped; n++ {
		if n&(n-1) == 0 {
			want++
		}
	}
	if got := logs.FilterMessage("audit queue full, dropping events").Len(); got != want {
		t.Fatalf("expected %d drop warnings, got %d", want, got)
	}
}

func TestDispatcherBlocksUntilSpace(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: false}, sink, nil)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	// one event held by the sink, one buffered
	d.Emit(context.Background(), Event{})
	d.Emit(context.Background(), Event{})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	if d.Emit(ctx, Event{}) {
		t.Fatal("expected blocked emit to give up on context deadline")
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatal("expected emit to block until the deadline")
	}
	if d.Dropped() != 0 {
		t.Fatal("blocking mode must not count drops")
	}
}

func TestDispatcherCloseIdempotentAndEmitAfterCloseSafe(t *testing.T) {
	sink := NewChannelSink(4)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4, DropIfFull: true}, sink, nil)

	d.Emit(context.Background(), Event{EventType: "before"})
	d.Close()
	d.Close()

	if d.Emit(context.Background(), Event{EventType: "after"}) {
		t.Fatal("emit after close must be rejected")
	}
	select {
	case ev := <-sink.Events():
		if ev.EventType != "before" {
			t.Fatalf("unexpected event %s", ev.EventType)
		}
	default:
		t.Fatal("buffered event must be delivered on close")
	}
}

func TestDispatcherCloseReleasesBlockedEmit(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink, nil)

	// one event held by the sink, one queued
	d.Emit(context.Background(), Event{})
	d.Emit(context.Background(), Event{})

	result := make(chan bool, 1)
	go func() { result <- d.Emit(context.Background(), Event{}) }()

	closed := make(chan struct{})
	go func() {
		d.Close()
		close(closed)
	}()

	select {
	case accepted := <-result:
		if accepted {
			t.Fatal("emit racing Close must not be accepted")
		}
	case <-time.After(time.Second):
		t.Fatal("blocked emit was not released by Close")
	}

	close(sink.gate)
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return after the sink drained")
	}
}

func TestJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{EventType: "token_verify", Algorithm: "RS256", Success: false, Error: "expired"})
	sink.Emit(context.Background(), Event{EventType: "token_sign", Success: true})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var first map[string]any
	if err := json.Unmarshal(lines[0], &first); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if first["event_type"] != "token_verify" || first["alg"] != "RS256" || first["error"] != "expired" {
		t.Fatalf("unexpected fields %v", first)
	}
	if _, ok := first["kid"]; ok {
		t.Fatal("empty kid must be omitted")
	}
}

func TestZapSinkLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewZapSink(zap.New(core))

	sink.Emit(context.Background(), Event{EventType: "token_sign", Success: true, TokenID: "j1"})
	sink.Emit(context.Background(), Event{EventType: "token_verify", Success: false, Error: "revoked"})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel || entries[0].LoggerName != "audit" {
		t.Fatalf("unexpected success entry %+v", entries[0])
	}
	if entries[0].ContextMap()["jti"] != "j1" {
		t.Fatalf("jti field missing: %v", entries[0].ContextMap())
	}
	if entries[1].Level != zapcore.WarnLevel || entries[1].ContextMap()["error"] != "revoked" {
		t.Fatalf("unexpected failure entry %+v", entries[1])
	}
}

func TestJSONWriterSinkConcurrent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink.Emit(context.Background(), Event{EventType: "token_sign"})
		}()
	}
	wg.Wait()

	if n := bytes.Count(buf.Bytes(), []byte("\n")); n != 16 {
		t.Fatalf("expected 16 lines, got %d", n)
	}
}
