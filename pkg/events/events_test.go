package events

import (
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wehubfusion/Daedalus/pkg/search"
)

type leafState struct {
	label string
	depth int
}

func (s leafState) Successors() []search.State { return nil }
func (s leafState) IsSolution() bool           { return true }
func (s leafState) Depth() int                 { return s.depth }
func (s leafState) String() string             { return s.label }

type fakeConn struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func TestZapSinkLogsEvents(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	hook := ZapSink(zap.New(core))

	hook(search.Event{Kind: search.EventExpand, State: leafState{label: "a1"}, Depth: 3})
	hook(search.Event{Kind: search.EventSolution, State: leafState{label: "a2"}, Depth: 4})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Level != zap.DebugLevel {
		t.Fatalf("expected expand at debug level, got %s", entries[0].Level)
	}
	if entries[1].Level != zap.InfoLevel {
		t.Fatalf("expected solution at info level, got %s", entries[1].Level)
	}
	fields := entries[1].ContextMap()
	if fields["kind"] != "solution" || fields["state"] != "a2" {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

func TestPublisherSendsJSONEvents(t *testing.T) {
	conn := &fakeConn{}
	pub, err := NewPublisher(conn, "search.events", zap.NewNop())
	if err != nil {
		t.Fatalf("NewPublisher failed: %v", err)
	}

	hook := pub.Hook()
	hook(search.Event{
		Kind:  search.EventSolution,
		State: leafState{label: "q8", depth: 8},
		Depth: 8,
		Stats: search.Stats{NodesExpanded: 42, SolutionsFound: 1},
	})

	if len(conn.payloads) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(conn.payloads))
	}
	if conn.subjects[0] != "search.events" {
		t.Fatalf("unexpected subject %q", conn.subjects[0])
	}

	var got wireEvent
	if err := json.Unmarshal(conn.payloads[0], &got); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if got.Kind != "solution" || got.State != "q8" || got.Depth != 8 {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if got.Stats.NodesExpanded != 42 {
		t.Fatalf("expected stats in payload, got %+v", got.Stats)
	}
}

func TestPublisherSwallowsPublishErrors(t *testing.T) {
	conn := &fakeConn{err: errors.New("connection lost")}
	pub, err := NewPublisher(conn, "search.events", zap.NewNop())
	if err != nil {
		t.Fatalf("NewPublisher failed: %v", err)
	}

	// Must not panic or block the search.
	pub.Hook()(search.Event{Kind: search.EventExpand, State: leafState{label: "x"}})
}

func TestPublisherValidation(t *testing.T) {
	if _, err := NewPublisher(nil, "subject", zap.NewNop()); err == nil {
		t.Fatal("expected error for nil connection")
	}
	if _, err := NewPublisher(&fakeConn{}, "", zap.NewNop()); err == nil {
		t.Fatal("expected error for empty subject")
	}
}

func TestFanoutInvokesAllHooks(t *testing.T) {
	var first, second int
	hook := Fanout(
		func(search.Event) { first++ },
		nil,
		func(search.Event) { second++ },
	)
	hook(search.Event{Kind: search.EventExpand})
	hook(search.Event{Kind: search.EventPrune})

	if first != 2 || second != 2 {
		t.Fatalf("expected both hooks invoked twice, got %d/%d", first, second)
	}
}
