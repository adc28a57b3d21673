package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/wehubfusion/Daedalus/pkg/concurrency"
	serrors "github.com/wehubfusion/Daedalus/pkg/errors"
	"github.com/wehubfusion/Daedalus/pkg/problems"
	"github.com/wehubfusion/Daedalus/pkg/script"
	"github.com/wehubfusion/Daedalus/pkg/storage"
)

func newTestService(t *testing.T, store *storage.ResultStore) *Service {
	t.Helper()
	return &Service{
		registry: problems.DefaultRegistry(),
		scripts:  script.Config{},
		store:    store,
		limiter:  concurrency.NewLimiter(2),
		logger:   zap.NewNop(),
		tracer:   otel.Tracer("daedalus/runner-test"),
		env:      concurrency.LoadConfig(),
	}
}

type fakeBlobClient struct {
	blobs map[string][]byte
}

func (f *fakeBlobClient) Upload(_ context.Context, blobPath string, data []byte, _ map[string]string) (string, error) {
	if f.blobs == nil {
		f.blobs = make(map[string][]byte)
	}
	f.blobs[blobPath] = data
	return "https://blobs.local/" + blobPath, nil
}

func (f *fakeBlobClient) Download(_ context.Context, reference string) ([]byte, error) {
	data, ok := f.blobs[reference]
	if !ok {
		return nil, fmt.Errorf("blob not found: %s", reference)
	}
	return data, nil
}

func TestExecuteRegisteredProblem(t *testing.T) {
	s := newTestService(t, nil)

	resp := s.Execute(context.Background(), SearchRequest{
		RequestID: "req-1",
		Problem:   "nqueens",
		Params:    json.RawMessage(`{"size": 4}`),
	})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if resp.RequestID != "req-1" || resp.RunID == "" {
		t.Fatalf("unexpected response identity: %+v", resp)
	}
	if len(resp.Solutions) != 2 {
		t.Fatalf("expected 2 solutions, got %d", len(resp.Solutions))
	}
	if resp.Solutions[0] != "1,3,0,2" || resp.Solutions[1] != "2,0,3,1" {
		t.Fatalf("unexpected solutions: %v", resp.Solutions)
	}
	if !resp.Completed || resp.Stats == nil || resp.Stats.SolutionsFound != 2 {
		t.Fatalf("unexpected result metadata: %+v", resp)
	}
}

func TestExecuteInlineScriptProblem(t *testing.T) {
	s := newTestService(t, nil)

	resp := s.Execute(context.Background(), SearchRequest{
		RequestID: "req-2",
		Problem:   "binary",
		Script: `
function successors(state) {
	if (state.length >= 2) return [];
	return [state + "a", state + "b"];
}
function isSolution(state) {
	return state.length === 2;
}
`,
		Initial: json.RawMessage(`""`),
	})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if len(resp.Solutions) != 4 {
		t.Fatalf("expected 4 solutions, got %d: %v", len(resp.Solutions), resp.Solutions)
	}
}

func TestExecuteUnknownProblem(t *testing.T) {
	s := newTestService(t, nil)

	resp := s.Execute(context.Background(), SearchRequest{RequestID: "req-3", Problem: "sudoku"})

	if resp.Error == nil {
		t.Fatal("expected an error for an unknown problem")
	}
	if resp.Error.Code != "PROBLEM_NOT_FOUND" {
		t.Fatalf("expected PROBLEM_NOT_FOUND, got %q", resp.Error.Code)
	}
}

func TestExecuteInvalidScript(t *testing.T) {
	s := newTestService(t, nil)

	resp := s.Execute(context.Background(), SearchRequest{
		RequestID: "req-4",
		Problem:   "broken",
		Script:    "function successors(s) { return []; }",
	})

	if resp.Error == nil {
		t.Fatal("expected an error when isSolution is missing")
	}
}

func TestExecuteStoresResult(t *testing.T) {
	blob := &fakeBlobClient{}
	store, err := storage.NewResultStore(blob, zap.NewNop())
	if err != nil {
		t.Fatalf("NewResultStore failed: %v", err)
	}
	s := newTestService(t, store)

	resp := s.Execute(context.Background(), SearchRequest{
		RequestID: "req-5",
		Problem:   "nqueens",
		Params:    json.RawMessage(`{"size": 5}`),
		Store:     true,
	})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if resp.ResultURL == "" {
		t.Fatal("expected a result URL")
	}
	loaded, err := store.Load(context.Background(), "nqueens", resp.RunID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Solutions) != 10 {
		t.Fatalf("expected 10 persisted solutions, got %d", len(loaded.Solutions))
	}
}

func TestExecuteHonorsSearchOptions(t *testing.T) {
	s := newTestService(t, nil)

	resp := s.Execute(context.Background(), SearchRequest{
		RequestID: "req-6",
		Problem:   "nqueens",
		Params:    json.RawMessage(`{"size": 6}`),
		Options:   SearchOptions{EarlyStop: true, Engine: "iterative"},
	})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if len(resp.Solutions) != 1 {
		t.Fatalf("expected a single early-stop solution, got %d", len(resp.Solutions))
	}
}

func TestErrorInfoPreservesCodes(t *testing.T) {
	coded := serrors.NewError("WORKER_FAILED", "worker 3 panicked", serrors.ErrWorkerFailed)
	info := errorInfo(coded)
	if info.Code != "WORKER_FAILED" || info.Message != "worker 3 panicked" {
		t.Fatalf("unexpected error info: %+v", info)
	}

	info = errorInfo(fmt.Errorf("plain failure"))
	if info.Code != "SEARCH_FAILED" {
		t.Fatalf("expected generic code, got %q", info.Code)
	}
}

func TestSearchOptionsToConfig(t *testing.T) {
	cfg := SearchOptions{MaxDepth: 5, Dedupe: true}.toConfig(concurrency.EngineModeIterative, zap.NewNop())
	if cfg.MaxDepth != 5 || !cfg.DedupeStates {
		t.Fatalf("options not mapped: %+v", cfg)
	}
	if cfg.Engine != "iterative" {
		t.Fatalf("expected environment default engine, got %q", cfg.Engine)
	}

	cfg = SearchOptions{Engine: "recursive"}.toConfig(concurrency.EngineModeIterative, zap.NewNop())
	if cfg.Engine != "recursive" {
		t.Fatalf("expected explicit engine to win, got %q", cfg.Engine)
	}
}

func TestNewServiceRequiresConnection(t *testing.T) {
	if _, err := NewService(nil, Options{}); err == nil {
		t.Fatal("expected error for nil connection")
	}
}
