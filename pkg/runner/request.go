package runner

import (
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/wehubfusion/Daedalus/pkg/concurrency"
	serrors "github.com/wehubfusion/Daedalus/pkg/errors"
	"github.com/wehubfusion/Daedalus/pkg/search"
)

// SearchRequest is the JSON message the service accepts on its request
// subject. A request names either a registered problem (Problem +
// Params) or carries an inline script problem (Problem + Script +
// Initial).
type SearchRequest struct {
	// RequestID correlates the response with the request.
	RequestID string `json:"request_id"`

	// Problem is the registered problem name, or a label for an inline
	// script problem.
	Problem string `json:"problem"`

	// Params configures a registered problem's root state.
	Params json.RawMessage `json:"params,omitempty"`

	// Script is inline JavaScript source defining the problem. When set,
	// Params is ignored and Initial supplies the root state value.
	Script string `json:"script,omitempty"`

	// Initial is the JSON state value an inline script problem starts
	// from.
	Initial json.RawMessage `json:"initial,omitempty"`

	// Options tune the search run.
	Options SearchOptions `json:"options"`

	// Workers overrides the worker-pool size; 0 uses the environment
	// default.
	Workers int `json:"workers,omitempty"`

	// Store persists the result to blob storage when the service has a
	// result store configured.
	Store bool `json:"store,omitempty"`
}

// SearchOptions mirrors the engine configuration on the wire.
type SearchOptions struct {
	MaxDepth      int    `json:"max_depth,omitempty"`
	MaxIterations int    `json:"max_iterations,omitempty"`
	MaxSolutions  int    `json:"max_solutions,omitempty"`
	EarlyStop     bool   `json:"early_stop,omitempty"`
	Dedupe        bool   `json:"dedupe,omitempty"`
	Engine        string `json:"engine,omitempty"`
	FanOutDepth   int    `json:"fan_out_depth,omitempty"`

	// TimeoutMs bounds the wall-clock time of the run; 0 means no
	// timeout.
	TimeoutMs int64 `json:"timeout_ms,omitempty"`
}

// toConfig translates wire options to an engine configuration, falling
// back to the environment's default engine when none is named.
func (o SearchOptions) toConfig(defaultEngine concurrency.EngineMode, logger *zap.Logger) search.Config {
	engine := search.Engine(o.Engine)
	if engine == "" {
		engine = search.Engine(defaultEngine)
	}
	return search.Config{
		MaxDepth:      o.MaxDepth,
		MaxIterations: o.MaxIterations,
		MaxSolutions:  o.MaxSolutions,
		EarlyStop:     o.EarlyStop,
		DedupeStates:  o.Dedupe,
		Engine:        engine,
		FanOutDepth:   o.FanOutDepth,
		Logger:        logger,
	}
}

// SearchResponse is the JSON message returned for every request.
type SearchResponse struct {
	RequestID string        `json:"request_id"`
	Problem   string        `json:"problem"`
	RunID     string        `json:"run_id,omitempty"`
	Solutions []string      `json:"solutions,omitempty"`
	Stats     *search.Stats `json:"stats,omitempty"`
	Completed bool          `json:"completed"`
	ResultURL string        `json:"result_url,omitempty"`
	Error     *ErrorInfo    `json:"error,omitempty"`
}

// ErrorInfo carries a coded failure over the wire.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorInfo converts an error into its wire form, preserving the code
// of coded errors.
func errorInfo(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	var coded *serrors.Error
	if errors.As(err, &coded) {
		return &ErrorInfo{Code: coded.Code, Message: coded.Message}
	}
	return &ErrorInfo{Code: "SEARCH_FAILED", Message: err.Error()}
}
