// Package client is the caller side of the worker boundary. It correlates
// responses to requests, enforces the per-request timeout and validates
// input before anything is sent.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"docrag/internal/domain"
	"docrag/internal/protocol"
)

const (
	DefaultTimeout    = 30 * time.Second
	MinTextLength     = 50
	MinQuestionLength = 3
)

// Transport carries requests to a worker and responses back.
// *worker.Worker satisfies it.
type Transport interface {
	Post(ctx context.Context, req protocol.Request) error
	Responses() <-chan protocol.Response
}

// Call is a request awaiting its response.
type Call struct {
	ID       string
	Type     protocol.Type
	Response protocol.Response
	Err      error
	Done     chan *Call
}

func (c *Call) settle() {
	c.Done <- c
}

// Client multiplexes concurrent requests over one Transport.
type Client struct {
	transport   Transport
	logger      *slog.Logger
	timeout     time.Duration
	minText     int
	minQuestion int

	mu      sync.Mutex
	pending map[string]*Call
	closed  bool
	done    chan struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets how long a typed call waits for its response.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMinLengths overrides the minimum text and question lengths.
func WithMinLengths(text, question int) Option {
	return func(c *Client) {
		if text > 0 {
			c.minText = text
		}
		if question > 0 {
			c.minQuestion = question
		}
	}
}

// New creates a client and starts dispatching responses from t.
func New(t Transport, opts ...Option) *Client {
	c := &Client{
		transport:   t,
		logger:      slog.Default(),
		timeout:     DefaultTimeout,
		minText:     MinTextLength,
		minQuestion: MinQuestionLength,
		pending:     make(map[string]*Call),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.dispatch()
	return c
}

func (c *Client) dispatch() {
	defer close(c.done)
	for resp := range c.transport.Responses() {
		c.mu.Lock()
		call, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()
		if !ok {
			c.logger.Debug("dropping response for unknown request", "id", resp.ID, "type", resp.Type)
			continue
		}
		call.Response = resp
		if resp.Error != nil {
			call.Err = resp.Error.ToError()
		}
		call.settle()
	}

	c.mu.Lock()
	c.closed = true
	pending := c.pending
	c.pending = make(map[string]*Call)
	c.mu.Unlock()
	for _, call := range pending {
		call.Err = &domain.Error{
			Kind:    domain.KindWorkerFault,
			Message: "worker terminated before responding",
			Context: string(call.Type),
		}
		call.settle()
	}
}

// Go sends a request and returns its pending call. It waits only while the
// worker's queue is full, and no longer than ctx allows; a post that gives
// up settles the call with the context error. The call is delivered on its
// Done channel once the response arrives or the transport fails.
func (c *Client) Go(ctx context.Context, typ protocol.Type, payload any) *Call {
	call := &Call{ID: uuid.NewString(), Type: typ, Done: make(chan *Call, 1)}
	req, err := protocol.NewRequest(call.ID, typ, payload)
	if err != nil {
		call.Err = err
		call.settle()
		return call
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		call.Err = &domain.Error{Kind: domain.KindWorkerFault, Message: "worker terminated", Context: string(typ)}
		call.settle()
		return call
	}
	c.pending[call.ID] = call
	c.mu.Unlock()

	if err := c.transport.Post(ctx, req); err != nil {
		if c.forget(call.ID) {
			if ctx.Err() != nil {
				call.Err = err
			} else {
				call.Err = &domain.Error{Kind: domain.KindWorkerFault, Message: "post request", Context: string(typ), Err: err}
			}
			call.settle()
		}
	}
	return call
}

// forget drops a pending call. It reports whether the call was still pending.
func (c *Client) forget(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[id]; !ok {
		return false
	}
	delete(c.pending, id)
	return true
}

// Pending is the number of calls awaiting a response.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Do sends a request and waits for the response, decoding its payload into
// out. The timeout covers queueing as well as waiting. The wait ends on
// timeout or ctx cancellation; the worker is not told and its eventual
// response is ignored.
func (c *Client) Do(ctx context.Context, typ protocol.Type, payload, out any) error {
	wctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	call := c.Go(wctx, typ, payload)

	select {
	case <-call.Done:
	case <-wctx.Done():
		if c.forget(call.ID) {
			return c.abandoned(ctx, call)
		}
		<-call.Done
	}
	if call.Err != nil {
		if wctx.Err() != nil && isContextErr(call.Err) {
			return c.abandoned(ctx, call)
		}
		return call.Err
	}
	if out == nil {
		return nil
	}
	if err := protocol.Decode(call.Response.Payload, out); err != nil {
		return fmt.Errorf("decode %s: %w", call.Response.Type, err)
	}
	return nil
}

// abandoned reports why Do stopped waiting for call: the caller's context
// ended, or the request timed out.
func (c *Client) abandoned(ctx context.Context, call *Call) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.logger.Warn("request timed out", "type", call.Type, "id", call.ID, "timeout", c.timeout)
	return &domain.Error{
		Kind:        domain.KindTimeout,
		Message:     fmt.Sprintf("%s timed out after %s", call.Type, c.timeout),
		Context:     string(call.Type),
		Recoverable: true,
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// Init configures the worker. It must succeed before other calls.
func (c *Client) Init(ctx context.Context, cfg *protocol.InitConfig) (protocol.WorkerReady, error) {
	var out protocol.WorkerReady
	err := c.Do(ctx, protocol.TypeInit, protocol.InitPayload{Config: cfg}, &out)
	return out, err
}

// BuildIndex indexes text under id. Text shorter than the minimum length is
// rejected without contacting the worker.
func (c *Client) BuildIndex(ctx context.Context, id, text string, opts *domain.BuildOptions) (protocol.IndexReady, error) {
	var out protocol.IndexReady
	if n := utf8.RuneCountInString(strings.TrimSpace(text)); n < c.minText {
		return out, domain.NewValidationError(fmt.Sprintf("text too short: %d characters, need at least %d", n, c.minText))
	}
	err := c.Do(ctx, protocol.TypeBuildIndex, protocol.BuildIndexPayload{ID: id, Text: text, Options: opts}, &out)
	return out, err
}

// Query asks a question against an index.
func (c *Client) Query(ctx context.Context, indexID, question string, opts *domain.QueryOptions) (domain.QueryResponse, error) {
	var out domain.QueryResponse
	if indexID == "" {
		return out, domain.NewValidationError("index id is required")
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(question)); n < c.minQuestion {
		return out, domain.NewValidationError(fmt.Sprintf("question too short: %d characters, need at least %d", n, c.minQuestion))
	}
	err := c.Do(ctx, protocol.TypeQuery, protocol.QueryPayload{IndexID: indexID, Question: question, Options: opts}, &out)
	return out, err
}

// Metrics returns a snapshot of worker activity.
func (c *Client) Metrics(ctx context.Context) (domain.Metrics, error) {
	var out domain.Metrics
	err := c.Do(ctx, protocol.TypeGetMetrics, nil, &out)
	return out, err
}

// ClearCache drops cached answers for indexID, or the whole cache and every
// index when indexID is empty.
func (c *Client) ClearCache(ctx context.Context, indexID string) error {
	return c.Do(ctx, protocol.TypeClearCache, protocol.ClearCachePayload{IndexID: indexID}, nil)
}

// Closed is closed once the transport's response stream ends.
func (c *Client) Closed() <-chan struct{} { return c.done }
