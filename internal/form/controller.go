// Package form implements the request lifecycle behind the analysis form:
// it turns one submit action into exactly one request and maps the outcome
// onto exactly one of the Succeeded or Failed states.
package form

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dyike/StockAnalyzer/internal/analysis"
)

type Credential = analysis.Credential

var (
	ErrMissingInput = errors.New("api key and stock are required")
	ErrInFlight     = errors.New("an analysis is already in progress")
)

// Analyzer is the remote collaborator. *analysis.Client satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (string, error)
}

type Option func(*Controller)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout bounds each request. Zero waits for as long as the caller's
// context allows.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Controller owns the form state. Observers registered with Subscribe see
// every transition in order; they must not call Begin or Submit themselves.
type Controller struct {
	mu       sync.Mutex
	notifyMu sync.Mutex

	analyzer   Analyzer
	credential Credential
	ticker     string
	state      State
	seq        uint64

	observers  map[int]func(State)
	observerID int

	timeout time.Duration
	logger  *zap.Logger
}

func New(analyzer Analyzer, opts ...Option) *Controller {
	c := &Controller{
		analyzer:  analyzer,
		state:     Idle(),
		observers: make(map[int]func(State)),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) SetCredential(credential Credential) {
	c.mu.Lock()
	c.credential = credential
	c.mu.Unlock()
}

func (c *Controller) SetTicker(ticker string) {
	c.mu.Lock()
	c.ticker = ticker
	c.mu.Unlock()
}

func (c *Controller) Credential() Credential {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.credential
}

func (c *Controller) Ticker() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticker
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CanSubmit reports whether the submit control should be enabled.
func (c *Controller) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.state.Busy() && c.inputsPresent()
}

// Subscribe registers fn for state transitions and returns a function that
// removes it.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	id := c.observerID
	c.observerID++
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Begin moves the form to InFlight and hands back the submission to run.
// Nothing is dispatched when it returns an error.
func (c *Controller) Begin() (*Submission, error) {
	c.mu.Lock()
	if c.state.Busy() {
		c.mu.Unlock()
		return nil, ErrInFlight
	}
	if !c.inputsPresent() {
		c.mu.Unlock()
		return nil, ErrMissingInput
	}

	c.seq++
	sub := &Submission{
		id:       c.seq,
		request:  analysis.Request{APIKey: c.credential, Stock: c.ticker},
		analyzer: c.analyzer,
		timeout:  c.timeout,
		started:  time.Now(),
	}
	c.logger.Info("analysis submitted",
		zap.Uint64("submission", sub.id),
		zap.String("stock", sub.request.Stock))

	c.transitionAndUnlock(InFlight())
	return sub, nil
}

// Resolve applies the outcome of sub. Outcomes of a submission that is no
// longer the active one are dropped and the current state is returned.
func (c *Controller) Resolve(sub *Submission, out Outcome) State {
	c.mu.Lock()
	if sub == nil || sub.id != c.seq || !c.state.Busy() {
		current := c.state
		c.mu.Unlock()
		return current
	}

	var next State
	fields := []zap.Field{
		zap.Uint64("submission", sub.id),
		zap.String("stock", sub.request.Stock),
		zap.Duration("elapsed", time.Since(sub.started)),
	}
	if out.Err != nil {
		next = Failed(analysis.Message(out.Err))
		c.logger.Warn("analysis failed", append(fields, zap.Error(out.Err))...)
	} else {
		next = Succeeded(out.Analysis)
		c.logger.Info("analysis succeeded", fields...)
	}

	c.transitionAndUnlock(next)
	return next
}

// Submit runs a whole submission synchronously. The returned error is only
// set when the submission could not start; request failures end up in the
// Failed state instead.
func (c *Controller) Submit(ctx context.Context) (State, error) {
	sub, err := c.Begin()
	if err != nil {
		return c.State(), err
	}
	return c.Resolve(sub, sub.Run(ctx)), nil
}

// transitionAndUnlock must be called with c.mu held. notifyMu is taken
// before mu is released so observers see transitions in order.
func (c *Controller) transitionAndUnlock(next State) {
	c.state = next
	observers := make([]func(State), 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.notifyMu.Lock()
	c.mu.Unlock()

	defer c.notifyMu.Unlock()
	for _, fn := range observers {
		fn(next)
	}
}

func (c *Controller) inputsPresent() bool {
	return !c.credential.Empty() && strings.TrimSpace(c.ticker) != ""
}

// Submission is one dispatched request.
type Submission struct {
	id       uint64
	request  analysis.Request
	analyzer Analyzer
	timeout  time.Duration
	started  time.Time
}

type Outcome struct {
	Analysis string
	Err      error
}

// Run performs the request. It is the only blocking step of a submission.
func (s *Submission) Run(ctx context.Context) Outcome {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	text, err := s.analyzer.Analyze(ctx, s.request)
	if err != nil {
		return Outcome{Err: err}
	}
	return Outcome{Analysis: text}
}
