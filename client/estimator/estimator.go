// Package estimator debounces audience filter edits into count requests and
// keeps the estimate of the most recently issued request.
package estimator

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/amirphl/mailpiece/app/dto"
	"github.com/amirphl/mailpiece/models"
)

// DefaultDebounce is the quiet period after the last edit before a count is requested
const DefaultDebounce = 800 * time.Millisecond

// Counter issues the remote count request
type Counter interface {
	CountAudience(ctx context.Context, filters models.AudienceFilters) (*dto.AudienceCountResponse, error)
}

// AdminChecker resolves the admin claim of the current session
type AdminChecker interface {
	CheckAdmin(ctx context.Context) (bool, error)
}

// Session carries claims resolved once when the session starts
type Session struct {
	IsAdmin bool
}

// NewSession asks checker for the admin claim. A failed check yields a non-admin session.
func NewSession(ctx context.Context, checker AdminChecker) (Session, error) {
	isAdmin, err := checker.CheckAdmin(ctx)
	if err != nil {
		return Session{}, err
	}
	return Session{IsAdmin: isAdmin}, nil
}

// Estimate is the count response for one issued request
type Estimate struct {
	Seq                uint64
	Filters            models.AudienceFilters
	Count              int64
	UserCostPerContact float64
	UserCharge         float64
	Margin             *float64
	Quality            Quality
}

// View is an estimate ready for display
type View struct {
	Count          string
	CostPerContact string
	Charge         string
	Quality        Quality
	Margin         string
	ShowMargin     bool
}

// View formats the estimate. The margin only survives for admin sessions.
func (e *Estimate) View(s Session) View {
	v := View{
		Count:          FormatCount(e.Count),
		CostPerContact: FormatCurrency(e.UserCostPerContact),
		Charge:         FormatCurrency(e.UserCharge),
		Quality:        e.Quality,
	}
	if s.IsAdmin && e.Margin != nil {
		v.Margin = FormatCurrency(*e.Margin)
		v.ShowMargin = true
	}
	return v
}

// Option configures an Estimator
type Option func(*Estimator)

// WithDebounce overrides DefaultDebounce
func WithDebounce(d time.Duration) Option {
	return func(e *Estimator) { e.debounce = d }
}

// WithLogger sets the logger used for swallowed count errors
func WithLogger(l *log.Logger) Option {
	return func(e *Estimator) { e.logger = l }
}

// WithOnChange registers a callback run after every change of the current estimate.
// A nil estimate means no data. Callbacks run in order with the estimator locked,
// so they must not call back into the Estimator.
func WithOnChange(fn func(*Estimate)) Option {
	return func(e *Estimator) { e.onChange = fn }
}

// Estimator owns one debounce timer and at most one in-flight count request
type Estimator struct {
	counter  Counter
	debounce time.Duration
	logger   *log.Logger
	onChange func(*Estimate)

	mu       sync.Mutex
	latest   models.AudienceFilters
	timer    *time.Timer
	timerGen uint64
	seq      uint64
	cancel   context.CancelFunc
	current  *Estimate
	closed   bool
	inflight sync.WaitGroup
}

// New creates an estimator that counts through counter
func New(counter Counter, opts ...Option) *Estimator {
	e := &Estimator{
		counter:  counter,
		debounce: DefaultDebounce,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Update records the latest criteria and re-arms the debounce timer.
// Empty criteria cancel pending work and clear the estimate immediately.
func (e *Estimator) Update(filters models.AudienceFilters) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.latest = filters
	e.timerGen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}

	if filters.IsEmpty() {
		e.supersede()
		if e.current != nil {
			e.current = nil
			e.notify(nil)
		}
		e.mu.Unlock()
		return
	}

	gen := e.timerGen
	e.timer = time.AfterFunc(e.debounce, func() { e.fire(gen) })
	e.mu.Unlock()
}

// Current returns a copy of the estimate of the latest issued request, or nil
func (e *Estimator) Current() *Estimate {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return nil
	}
	cp := *e.current
	return &cp
}

// Close stops the timer, cancels the in-flight request and waits for it to return
func (e *Estimator) Close() {
	e.mu.Lock()
	e.closed = true
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.supersede()
	e.mu.Unlock()

	e.inflight.Wait()
}

// supersede invalidates the in-flight request. Callers hold mu.
func (e *Estimator) supersede() {
	e.seq++
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func (e *Estimator) fire(gen uint64) {
	e.mu.Lock()
	if e.closed || gen != e.timerGen {
		e.mu.Unlock()
		return
	}
	e.timer = nil
	filters := e.latest

	e.supersede()
	seq := e.seq
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.inflight.Add(1)
	e.mu.Unlock()

	defer e.inflight.Done()
	defer cancel()

	resp, err := e.counter.CountAudience(ctx, filters)

	e.mu.Lock()
	if seq != e.seq {
		// a newer request was issued or the criteria were cleared
		e.mu.Unlock()
		return
	}
	e.cancel = nil

	var next *Estimate
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			e.logger.Printf("audience count failed: %v", err)
		}
	} else {
		next = &Estimate{
			Seq:                seq,
			Filters:            filters,
			Count:              resp.Count,
			UserCostPerContact: resp.UserCostPerContact,
			UserCharge:         resp.UserCharge,
			Margin:             resp.Margin,
			Quality:            Classify(resp.Count),
		}
	}
	e.current = next
	e.notify(next)
	e.mu.Unlock()
}

// notify runs the change callback. Callers hold mu.
func (e *Estimator) notify(est *Estimate) {
	if e.onChange == nil {
		return
	}
	if est != nil {
		cp := *est
		est = &cp
	}
	e.onChange(est)
}
