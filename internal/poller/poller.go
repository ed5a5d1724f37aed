package poller

import (
	"context"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"launchScope/internal/curve"
	"launchScope/internal/model"
)

// State is the poller's connection state, tracked independently of
// price freshness.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// Direction reports how the current sample compares to the previous.
type Direction string

const (
	DirectionUp        Direction = "up"
	DirectionDown      Direction = "down"
	DirectionUnchanged Direction = "unchanged"
)

// CurveSource fetches live curve data for one market.
type CurveSource interface {
	CurveParameters(ctx context.Context) (model.CurveParams, error)
	CurveState(ctx context.Context) (model.CurveState, error)
}

// Config holds the poller's policy values.
type Config struct {
	Interval       time.Duration // normal polling period
	RetryDelay     time.Duration // short delay between bounded retries
	MaxRetries     int           // consecutive failures before Disconnected
	StaleThreshold time.Duration // must exceed Interval
	FetchTimeout   time.Duration // budget for one fetch cycle, defaults to Interval
}

const (
	defaultInterval       = 10 * time.Second
	defaultRetryDelay     = 2 * time.Second
	defaultMaxRetries     = 3
	defaultStaleThreshold = 30 * time.Second
)

func (c *Config) validate() error {
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = defaultRetryDelay
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.StaleThreshold <= 0 {
		c.StaleThreshold = defaultStaleThreshold
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = c.Interval
	}
	if c.StaleThreshold <= c.Interval {
		return &model.ConfigurationError{Field: "stale-threshold", Reason: "must exceed the polling interval"}
	}
	if c.RetryDelay >= c.Interval {
		return &model.ConfigurationError{Field: "retry-delay", Reason: "must be shorter than the polling interval"}
	}
	return nil
}

// Poller periodically recomputes a market's price from live chain
// state. One poll cycle runs at a time; a tick arriving while a fetch
// is in flight is dropped.
type Poller struct {
	cfg    Config
	source CurveSource
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	state     State
	current   *model.PriceSample
	previous  *model.PriceSample
	maxSupply *big.Int
	migrated  bool
	retries   int
	lastErr   error

	refreshCh chan struct{}
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// New builds a Poller. It starts Disconnected with no sample until
// Start is called.
func New(cfg Config, source CurveSource, logger *zap.Logger) (*Poller, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		cfg:       cfg,
		source:    source,
		logger:    logger,
		now:       time.Now,
		state:     StateDisconnected,
		refreshCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}, nil
}

// Start launches the polling loop: one immediate fetch, then ticks at
// the configured interval.
func (p *Poller) Start(ctx context.Context) {
	p.wg.Add(1)
	go p.run(ctx)
}

// Stop tears the poller down. No fetch fires after Stop returns, and
// the result of a fetch in flight at teardown is discarded.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
}

// RefreshNow requests an out-of-band fetch, independent of the
// schedule. It resets the retry counter. Duplicate requests while one
// is pending coalesce.
func (p *Poller) RefreshNow() {
	select {
	case p.refreshCh <- struct{}{}:
	default:
	}
}

func (p *Poller) run(ctx context.Context) {
	defer p.wg.Done()

	p.pollOnce(ctx)
	timer := time.NewTimer(p.nextDelay())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-p.refreshCh:
			p.resetRetries()
			p.pollOnce(ctx)
		case <-timer.C:
			p.pollOnce(ctx)
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(p.nextDelay())
	}
}

// pollOnce runs one fetch cycle and applies the state transition. The
// cycle carries its own deadline so a hung RPC surfaces as a failed
// poll instead of freezing the loop.
func (p *Poller) pollOnce(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	defer cancel()

	params, err := p.source.CurveParameters(fetchCtx)
	if err != nil {
		p.fail(err)
		return
	}
	state, err := p.source.CurveState(fetchCtx)
	if err != nil {
		p.fail(err)
		return
	}

	sample := model.PriceSample{
		Price:      curve.Price(params, state.TokensSold),
		TokensSold: state.TokensSold,
		ObservedAt: p.now(),
	}

	p.mu.Lock()
	select {
	case <-p.stopCh:
		// stopped while the fetch was in flight
		p.mu.Unlock()
		return
	default:
	}
	if ctx.Err() != nil {
		p.mu.Unlock()
		return
	}

	wasConnected := p.state == StateConnected
	p.previous = p.current
	p.current = &sample
	p.maxSupply = state.MaxSupply
	p.migrated = state.Migrated
	p.state = StateConnected
	p.retries = 0
	p.lastErr = nil
	p.mu.Unlock()

	if !wasConnected {
		p.logger.Info("price feed connected")
	}
	p.logger.Debug("price sample", zap.String("price", sample.Price.String()))
}

func (p *Poller) fail(err error) {
	p.mu.Lock()
	p.retries++
	p.lastErr = err
	if p.retries >= p.cfg.MaxRetries {
		p.state = StateDisconnected
	} else {
		p.state = StateReconnecting
	}
	state := p.state
	attempt := p.retries
	p.mu.Unlock()

	p.logger.Warn("price fetch failed",
		zap.Int("attempt", attempt),
		zap.String("state", string(state)),
		zap.Error(err))
}

func (p *Poller) resetRetries() {
	p.mu.Lock()
	p.retries = 0
	p.mu.Unlock()
}

// nextDelay picks the short retry delay while reconnecting and the
// normal interval otherwise. Disconnected pollers wait out the full
// interval: the bounded retries are exhausted.
func (p *Poller) nextDelay() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateReconnecting {
		return p.cfg.RetryDelay
	}
	return p.cfg.Interval
}
