// Package runner exposes the search engine as a NATS service: requests
// arrive as JSON on a queue-group subscription, searches run under a
// concurrency limiter, and responses are published to the reply
// subject.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	internaltracing "github.com/wehubfusion/Daedalus/internal/tracing"
	"github.com/wehubfusion/Daedalus/pkg/concurrency"
	serrors "github.com/wehubfusion/Daedalus/pkg/errors"
	"github.com/wehubfusion/Daedalus/pkg/problems"
	"github.com/wehubfusion/Daedalus/pkg/script"
	"github.com/wehubfusion/Daedalus/pkg/search"
	"github.com/wehubfusion/Daedalus/pkg/storage"
)

// Options configures a search service.
type Options struct {
	// Subject is the request subject. Defaults to "search.request".
	Subject string

	// Queue is the queue group name, so multiple service instances share
	// the request load. Defaults to "daedalus-search".
	Queue string

	// Registry resolves problem names. Defaults to the built-in
	// registry.
	Registry *problems.Registry

	// ScriptConfig tunes inline script problems.
	ScriptConfig script.Config

	// Store, when set, lets requests persist their results.
	Store *storage.ResultStore

	// MaxConcurrent bounds concurrent searches; 0 uses the environment
	// default.
	MaxConcurrent int

	// SentryDSN enables error capture when non-empty.
	SentryDSN string

	// Tracing, when set, initializes OpenTelemetry with an OTLP
	// exporter.
	Tracing *TracingConfig

	// Logger receives service log lines. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Service handles search requests from NATS.
type Service struct {
	conn     *nats.Conn
	subject  string
	queue    string
	registry *problems.Registry
	scripts  script.Config
	store    *storage.ResultStore
	limiter  *concurrency.Limiter
	logger   *zap.Logger
	tracer   trace.Tracer
	env      *concurrency.Config
	sentryOn bool

	sub             *nats.Subscription
	tracingShutdown func(context.Context) error
}

// NewService creates a search service over an established NATS
// connection.
func NewService(conn *nats.Conn, opts Options) (*Service, error) {
	if conn == nil || !conn.IsConnected() {
		return nil, serrors.ErrNotConnected
	}
	if opts.Subject == "" {
		opts.Subject = "search.request"
	}
	if opts.Queue == "" {
		opts.Queue = "daedalus-search"
	}
	if opts.Registry == nil {
		opts.Registry = problems.DefaultRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	env := concurrency.LoadConfig()
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = env.MaxConcurrent
	}

	s := &Service{
		conn:     conn,
		subject:  opts.Subject,
		queue:    opts.Queue,
		registry: opts.Registry,
		scripts:  opts.ScriptConfig,
		store:    opts.Store,
		limiter:  concurrency.NewLimiter(maxConcurrent),
		logger:   opts.Logger,
		tracer:   otel.Tracer("daedalus/runner"),
		env:      env,
	}

	if opts.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: opts.SentryDSN}); err != nil {
			opts.Logger.Warn("Failed to initialize Sentry, continuing without error capture", zap.Error(err))
		} else {
			s.sentryOn = true
		}
	}

	if opts.Tracing != nil {
		shutdown, err := internaltracing.SetupTracing(context.Background(), opts.Tracing.toInternalConfig(), opts.Logger)
		if err != nil {
			opts.Logger.Warn("Failed to setup tracing, continuing without tracing", zap.Error(err))
		} else {
			s.tracingShutdown = shutdown
		}
	}

	opts.Logger.Info("Search service configured",
		zap.String("subject", s.subject),
		zap.String("queue", s.queue),
		zap.Int("maxConcurrent", maxConcurrent),
		zap.Strings("problems", s.registry.RegisteredNames()))

	return s, nil
}

// Start subscribes to the request subject. Each request is handled on
// its own goroutine; the limiter bounds how many searches actually run
// at once.
func (s *Service) Start() error {
	sub, err := s.conn.QueueSubscribe(s.subject, s.queue, func(msg *nats.Msg) {
		go s.handle(msg)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.subject, err)
	}
	s.sub = sub
	s.logger.Info("Search service started", zap.String("subject", s.subject), zap.String("queue", s.queue))
	return nil
}

// Close unsubscribes and flushes error capture and tracing.
func (s *Service) Close() error {
	if s.sub != nil {
		if err := s.sub.Drain(); err != nil {
			s.logger.Error("Error draining subscription", zap.Error(err))
		}
	}
	if s.sentryOn {
		sentry.Flush(2 * time.Second)
	}
	if s.tracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.tracingShutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) handle(msg *nats.Msg) {
	var req SearchRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.logger.Error("Failed to decode search request", zap.Error(err))
		s.respond(msg, SearchResponse{Error: &ErrorInfo{Code: "BAD_REQUEST", Message: err.Error()}})
		return
	}

	resp := s.Execute(context.Background(), req)
	s.respond(msg, resp)
}

func (s *Service) respond(msg *nats.Msg, resp SearchResponse) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("Failed to encode search response", zap.Error(err))
		return
	}
	if err := msg.Respond(data); err != nil {
		s.logger.Error("Failed to publish search response", zap.Error(err))
	}
}

// Execute runs one search request end to end and never panics: limiter
// rejection, invalid requests, and engine failures all come back as a
// coded error in the response.
func (s *Service) Execute(ctx context.Context, req SearchRequest) SearchResponse {
	resp := SearchResponse{RequestID: req.RequestID, Problem: req.Problem}

	ctx, span := s.tracer.Start(ctx, "runner.execute",
		trace.WithAttributes(
			attribute.String("request.id", req.RequestID),
			attribute.String("request.problem", req.Problem),
		))
	defer span.End()

	start := time.Now()
	err := s.limiter.GoSync(ctx, func() error {
		result, runErr := s.runSearch(ctx, req)
		if runErr != nil {
			return runErr
		}
		stats := result.Stats
		resp.RunID = result.RunID
		resp.Solutions = result.SolutionStrings()
		resp.Stats = &stats
		resp.Completed = result.Completed

		if req.Store && s.store != nil {
			url, storeErr := s.store.Save(ctx, req.Problem, result)
			if storeErr != nil {
				s.logger.Error("Failed to persist result",
					zap.String("requestID", req.RequestID),
					zap.Error(storeErr))
			} else {
				resp.ResultURL = url
			}
		}
		return nil
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.captureError(err, req)
		s.logger.Error("Search request failed",
			zap.String("requestID", req.RequestID),
			zap.String("problem", req.Problem),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		resp.Error = errorInfo(err)
		return resp
	}

	span.SetStatus(codes.Ok, "Search completed")
	span.SetAttributes(
		attribute.Int("search.solutions", len(resp.Solutions)),
		attribute.Bool("search.completed", resp.Completed),
	)
	s.logger.Info("Search request completed",
		zap.String("requestID", req.RequestID),
		zap.String("problem", req.Problem),
		zap.String("runID", resp.RunID),
		zap.Int("solutions", len(resp.Solutions)),
		zap.Duration("elapsed", time.Since(start)))
	return resp
}

// runSearch builds the root state and runs the parallel engine,
// converting state-contract panics from the fan-out layers into errors.
func (s *Service) runSearch(ctx context.Context, req SearchRequest) (result *search.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = serrors.NewError("WORKER_FAILED",
				fmt.Sprintf("search panicked: %v", rec), serrors.ErrWorkerFailed)
		}
	}()

	root, cleanup, err := s.buildRoot(req)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	if req.Options.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.Options.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	cfg := req.Options.toConfig(s.env.DefaultEngine, s.logger)
	return search.ParallelSearch(ctx, root, cfg, req.Workers)
}

func (s *Service) buildRoot(req SearchRequest) (search.State, func(), error) {
	if req.Script != "" {
		name := req.Problem
		if name == "" {
			name = "inline"
		}
		problem, err := script.NewProblem(name, req.Script, s.scripts, s.logger)
		if err != nil {
			return nil, nil, err
		}
		var initial interface{}
		if len(req.Initial) > 0 {
			if err := json.Unmarshal(req.Initial, &initial); err != nil {
				problem.Close()
				return nil, nil, fmt.Errorf("invalid initial state: %w", err)
			}
		}
		root, err := problem.Root(initial)
		if err != nil {
			problem.Close()
			return nil, nil, err
		}
		return root, problem.Close, nil
	}

	root, err := s.registry.Root(req.Problem, req.Params)
	if err != nil {
		return nil, nil, err
	}
	return root, nil, nil
}

func (s *Service) captureError(err error, req SearchRequest) {
	if !s.sentryOn {
		return
	}
	// Capacity rejections are back-pressure, not defects.
	if errors.Is(err, serrors.ErrLimiterBusy) {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("problem", req.Problem)
		scope.SetTag("request_id", req.RequestID)
		sentry.CaptureException(err)
	})
}
