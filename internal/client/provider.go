package client

import (
	"context"
	"log/slog"
	"sync"

	"docrag/internal/protocol"
	"docrag/internal/worker"
)

// Provider owns one worker and the client talking to it. The worker is
// started and initialized on first use and terminated by Close.
type Provider struct {
	workerOpts []worker.Option
	clientOpts []Option
	initCfg    *protocol.InitConfig
	logger     *slog.Logger

	mu     sync.Mutex
	worker *worker.Worker
	client *Client
	ready  protocol.WorkerReady
	cancel context.CancelFunc
}

// ProviderConfig describes how a Provider builds its worker and client.
type ProviderConfig struct {
	Init   *protocol.InitConfig
	Worker []worker.Option
	Client []Option
	Logger *slog.Logger
}

// NewProvider returns a provider. Nothing is started until Client is called.
func NewProvider(cfg ProviderConfig) *Provider {
	p := &Provider{
		workerOpts: cfg.Worker,
		clientOpts: cfg.Client,
		initCfg:    cfg.Init,
		logger:     cfg.Logger,
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Client returns the initialized client, starting the worker if needed. A
// terminated worker is replaced.
func (p *Provider) Client(ctx context.Context) (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		select {
		case <-p.worker.Done():
			p.logger.Warn("worker terminated, starting a new one")
			p.stopLocked()
		default:
			return p.client, nil
		}
	}

	w := worker.New(p.workerOpts...)
	wctx, cancel := context.WithCancel(context.Background())
	w.Start(wctx)
	c := New(w, p.clientOpts...)
	ready, err := c.Init(ctx, p.initCfg)
	if err != nil {
		cancel()
		w.Terminate()
		return nil, err
	}
	p.worker, p.client, p.ready, p.cancel = w, c, ready, cancel
	p.logger.Debug("worker started", "capabilities", ready.Capabilities)
	return c, nil
}

// Ready returns the init reply of the current worker.
func (p *Provider) Ready() protocol.WorkerReady {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

// Close terminates the worker. The provider can be reused afterwards.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Provider) stopLocked() {
	if p.worker == nil {
		return
	}
	p.cancel()
	p.worker.Terminate()
	p.worker, p.client, p.cancel = nil, nil, nil
	p.ready = protocol.WorkerReady{}
}
