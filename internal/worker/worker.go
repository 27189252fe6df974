// Package worker runs the indexing and retrieval core on its own goroutine.
// Callers talk to it only through protocol messages; the index registry
// and the response cache are private to the worker loop.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"docrag/internal/answer"
	"docrag/internal/cache"
	"docrag/internal/chunker"
	"docrag/internal/domain"
	"docrag/internal/indexer"
	"docrag/internal/indexstore"
	"docrag/internal/indexstore/memory"
	"docrag/internal/protocol"
)

var (
	// ErrTerminated is returned when posting to a stopped worker.
	ErrTerminated = errors.New("worker terminated")
	// ErrFatal marks failures after which the worker cannot continue.
	ErrFatal = errors.New("fatal worker error")
)

const defaultQueueSize = 64

// Config holds the settings applied at construction and by init messages.
type Config struct {
	EmbeddingModel  string
	QAModel         string
	GenerationModel string
	EnableCache     bool
	MaxCacheSize    int64
	CacheTTL        time.Duration
	QueueSize       int
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		EnableCache:  true,
		MaxCacheSize: cache.DefaultMaxBytes,
		CacheTTL:     cache.DefaultTTL,
		QueueSize:    defaultQueueSize,
	}
}

type handler func(ctx context.Context, req protocol.Request) (protocol.Response, error)

// Worker is a single-goroutine actor serving protocol requests in arrival
// order.
type Worker struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	inbox     chan protocol.Request
	outbox    chan protocol.Response
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	state     atomic.Int32

	store     indexstore.Storage
	builder   *indexer.Builder
	assembler *answer.Assembler
	cache     *cache.Manager
	handlers  map[protocol.Type]handler

	stats metrics
}

// Option configures a Worker.
type Option func(*Worker)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(w *Worker) { w.cfg = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithClock overrides time.Now for the worker and its cache.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
	}
}

// WithAssembler replaces the answer assembler, e.g. to plug extension
// stages.
func WithAssembler(a *answer.Assembler) Option {
	return func(w *Worker) {
		if a != nil {
			w.assembler = a
		}
	}
}

// New creates a worker. Call Start to begin serving.
func New(opts ...Option) *Worker {
	w := &Worker{
		cfg:    DefaultConfig(),
		logger: slog.Default(),
		now:    time.Now,
		done:   make(chan struct{}),
		store:  memory.NewStorage(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.cfg.QueueSize <= 0 {
		w.cfg.QueueSize = defaultQueueSize
	}
	w.inbox = make(chan protocol.Request, w.cfg.QueueSize)
	w.outbox = make(chan protocol.Response, w.cfg.QueueSize)
	w.builder = indexer.New(chunker.New(nil), w.store, indexer.WithClock(w.now))
	if w.assembler == nil {
		w.assembler = answer.New(answer.WithLogger(w.logger))
	}
	w.cache = w.newCache()
	w.handlers = map[protocol.Type]handler{
		protocol.TypeInit:       w.handleInit,
		protocol.TypeBuildIndex: w.handleBuildIndex,
		protocol.TypeQuery:      w.handleQuery,
		protocol.TypeGetMetrics: w.handleGetMetrics,
		protocol.TypeClearCache: w.handleClearCache,
	}
	return w
}

func (w *Worker) newCache() *cache.Manager {
	return cache.New(
		cache.WithEnabled(w.cfg.EnableCache),
		cache.WithMaxBytes(w.cfg.MaxCacheSize),
		cache.WithTTL(w.cfg.CacheTTL),
		cache.WithClock(w.now),
	)
}

// State returns the current lifecycle state.
func (w *Worker) State() State { return State(w.state.Load()) }

func (w *Worker) setState(s State) {
	if w.State() == StateTerminated {
		return
	}
	w.state.Store(int32(s))
}

// Start launches the worker loop. It returns immediately; the loop stops
// when ctx is cancelled or Terminate is called.
func (w *Worker) Start(ctx context.Context) {
	w.startOnce.Do(func() { go w.loop(ctx) })
}

// Post queues a request. It blocks while the inbox is full and gives up
// when ctx is done or the worker has terminated.
func (w *Worker) Post(ctx context.Context, req protocol.Request) error {
	select {
	case <-w.done:
		return ErrTerminated
	default:
	}
	select {
	case w.inbox <- req:
		return nil
	case <-w.done:
		return ErrTerminated
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Responses delivers responses in completion order. It is closed when the
// worker loop exits.
func (w *Worker) Responses() <-chan protocol.Response { return w.outbox }

// Terminate stops the worker. Queued requests are dropped.
func (w *Worker) Terminate() {
	w.stopOnce.Do(func() {
		w.state.Store(int32(StateTerminated))
		close(w.done)
	})
}

// Done is closed when the worker terminates.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) loop(ctx context.Context) {
	var current protocol.Request
	defer close(w.outbox)
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker crashed", "type", current.Type, "id", current.ID, "panic", r)
			w.emit(protocol.NewErrorResponse(current.ID, protocol.ErrorPayload{
				Error:       fmt.Sprintf("worker crashed: %v", r),
				Kind:        domain.KindWorkerFault,
				Context:     string(current.Type),
				Recoverable: false,
			}))
			w.Terminate()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.Terminate()
			return
		case <-w.done:
			return
		case req := <-w.inbox:
			current = req
			resp := w.handle(ctx, req)
			w.emit(resp)
			if resp.Error != nil && !resp.Error.Recoverable {
				w.Terminate()
				return
			}
		}
	}
}

func (w *Worker) emit(resp protocol.Response) {
	select {
	case w.outbox <- resp:
	case <-w.done:
	}
}

// handle runs one request. Panics and errors become error responses.
func (w *Worker) handle(ctx context.Context, req protocol.Request) (resp protocol.Response) {
	start := w.now()
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("request failed", "type", req.Type, "id", req.ID, "panic", r)
			resp = protocol.NewErrorResponse(req.ID, protocol.ErrorPayload{
				Error:       fmt.Sprintf("internal error: %v", r),
				Kind:        domain.KindWorkerFault,
				Context:     string(req.Type),
				Recoverable: true,
			})
		}
		if w.State() != StateUninitialized {
			w.setState(StateReady)
		}
		w.logger.Debug("handled request", "type", req.Type, "id", req.ID, "response", resp.Type, "duration", w.now().Sub(start))
	}()

	h, ok := w.handlers[req.Type]
	if !ok {
		return protocol.NewErrorResponse(req.ID, protocol.ErrorPayload{
			Error:       fmt.Sprintf("unknown message type %q", req.Type),
			Kind:        domain.KindUnsupported,
			Context:     string(req.Type),
			Recoverable: true,
		})
	}
	if req.Type != protocol.TypeInit && w.State() == StateUninitialized {
		return protocol.NewErrorResponse(req.ID, protocol.ErrorPayload{
			Error:       "worker not initialized",
			Kind:        domain.KindWorkerFault,
			Context:     string(req.Type),
			Recoverable: true,
		})
	}
	resp, err := h(ctx, req)
	if err != nil {
		return errorResponse(req, err)
	}
	return resp
}

func errorResponse(req protocol.Request, err error) protocol.Response {
	payload := protocol.ErrorPayload{
		Error:       err.Error(),
		Kind:        domain.KindWorkerFault,
		Context:     string(req.Type),
		Recoverable: true,
	}
	var de *domain.Error
	if errors.As(err, &de) {
		payload.Kind = de.Kind
		payload.Recoverable = de.Recoverable
		if de.Context != "" {
			payload.Context = de.Context
		}
	}
	if errors.Is(err, ErrFatal) {
		payload.Recoverable = false
	}
	return protocol.NewErrorResponse(req.ID, payload)
}
