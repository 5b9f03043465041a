// Package purchase drives the audience purchase modal: confirm, processing,
// then success or error, with a single retry edge back to confirm.
package purchase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amirphl/mailpiece/app/dto"
	"github.com/amirphl/mailpiece/models"
)

// Stage is the modal's position in the purchase sequence
type Stage string

const (
	StageConfirm    Stage = "confirm"
	StageProcessing Stage = "processing"
	StageSuccess    Stage = "success"
	StageError      Stage = "error"
)

var (
	ErrNotOpen             = errors.New("purchase modal is not open")
	ErrPurchaseInFlight    = errors.New("a purchase is already in progress")
	ErrInsufficientBalance = errors.New("credit balance is lower than the total cost")
	ErrBalanceUnknown      = errors.New("credit balance has not been loaded")
	ErrInvalidStage        = errors.New("action not allowed in the current stage")
)

// API is the remote surface the modal needs
type API interface {
	Credits(ctx context.Context) (*dto.CreditBalanceResponse, error)
	PurchaseAudience(ctx context.Context, filters models.AudienceFilters, maxContacts int) (*dto.PurchaseAudienceResponse, error)
}

// Quote is what the user is about to buy
type Quote struct {
	Filters     models.AudienceFilters
	MaxContacts int
	TotalCost   float64
}

// Snapshot is a copy of the modal state
type Snapshot struct {
	Open         bool
	Stage        Stage
	Progress     int
	Balance      float64
	BalanceKnown bool
	Quote        Quote
	Result       *dto.PurchaseAudienceResponse
	Err          error
}

// progressStep raises the cosmetic progress value and then pauses
type progressStep struct {
	progress int
	pause    time.Duration
}

// The purchase call is made right before the step at callAt
var (
	defaultSteps = []progressStep{
		{progress: 10, pause: 400 * time.Millisecond},
		{progress: 30, pause: 600 * time.Millisecond},
		{progress: 75, pause: 500 * time.Millisecond},
		{progress: 90, pause: 300 * time.Millisecond},
	}
	callAt = 2
)

// Option configures a Modal
type Option func(*Modal)

// WithPauses overrides the artificial delays between progress steps
func WithPauses(d time.Duration) Option {
	return func(m *Modal) {
		for i := range m.steps {
			m.steps[i].pause = d
		}
	}
}

// WithOnChange registers a callback run on every state change.
// It runs with the modal locked and must not call back into the Modal.
func WithOnChange(fn func(Snapshot)) Option {
	return func(m *Modal) { m.onChange = fn }
}

// Modal owns the purchase stage. At most one purchase is in flight per modal.
type Modal struct {
	api      API
	steps    []progressStep
	onChange func(Snapshot)

	mu       sync.Mutex
	open     bool
	stage    Stage
	progress int
	balance  *float64
	quote    Quote
	result   *dto.PurchaseAudienceResponse
	err      error
	inFlight bool
	gen      uint64
	cancel   context.CancelFunc
}

// NewModal creates a closed modal
func NewModal(api API, opts ...Option) *Modal {
	m := &Modal{
		api:   api,
		steps: append([]progressStep(nil), defaultSteps...),
		stage: StageConfirm,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open shows the modal for quote and fetches the balance once
func (m *Modal) Open(ctx context.Context, quote Quote) error {
	m.mu.Lock()
	m.resetLocked()
	m.open = true
	m.quote = quote
	gen := m.gen
	m.changed()
	m.mu.Unlock()

	balance, err := m.api.Credits(ctx)
	if err != nil {
		return fmt.Errorf("failed to load credit balance: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen == m.gen {
		m.balance = &balance.Balance
		m.changed()
	}
	return nil
}

// CanConfirm reports whether the confirm action is enabled. A balance equal to
// the total cost is enough. This is a UX guard; the server checks again.
func (m *Modal) CanConfirm() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.confirmErrLocked() == nil
}

// Confirm runs the purchase and blocks until it lands in success or error
func (m *Modal) Confirm(ctx context.Context) error {
	m.mu.Lock()
	if err := m.confirmErrLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.stage = StageProcessing
	m.progress = 0
	m.inFlight = true
	m.cancel = cancel
	gen := m.gen
	quote := m.quote
	m.changed()
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight = false
		m.mu.Unlock()
	}()

	var (
		result  *dto.PurchaseAudienceResponse
		callErr error
	)
	for i, step := range m.steps {
		if i == callAt {
			result, callErr = m.api.PurchaseAudience(ctx, quote.Filters, quote.MaxContacts)
			if callErr != nil {
				break
			}
		}
		if !m.advance(gen, step.progress) {
			return ErrNotOpen
		}
		if err := pause(ctx, step.pause); err != nil {
			// once the purchase went through the remaining pauses are skipped
			if result == nil {
				callErr = err
			}
			break
		}
	}

	if callErr != nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		if gen != m.gen {
			return ErrNotOpen
		}
		m.stage = StageError
		m.err = callErr
		m.changed()
		return callErr
	}

	// refresh the balance to reflect the server-side deduction
	var refreshed *float64
	if balance, err := m.api.Credits(ctx); err == nil {
		refreshed = &balance.Balance
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return ErrNotOpen
	}
	m.stage = StageSuccess
	m.progress = 100
	m.result = result
	m.balance = refreshed
	m.changed()
	return nil
}

// Retry returns from error to confirm with the original quote intact
func (m *Modal) Retry() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.open {
		return ErrNotOpen
	}
	if m.stage != StageError {
		return ErrInvalidStage
	}
	m.stage = StageConfirm
	m.progress = 0
	m.err = nil
	m.changed()
	return nil
}

// Close hides the modal and resets every field. A running purchase is cancelled
// and its outcome is dropped.
func (m *Modal) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
	m.changed()
}

// Snapshot returns a copy of the current state
func (m *Modal) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// RecipientListID returns the purchased list after a successful purchase
func (m *Modal) RecipientListID() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stage != StageSuccess || m.result == nil {
		return "", false
	}
	return m.result.RecipientListID, true
}

func (m *Modal) confirmErrLocked() error {
	switch {
	case !m.open:
		return ErrNotOpen
	case m.inFlight || m.stage == StageProcessing:
		return ErrPurchaseInFlight
	case m.stage != StageConfirm:
		return ErrInvalidStage
	case m.balance == nil:
		return ErrBalanceUnknown
	case *m.balance < m.quote.TotalCost:
		return ErrInsufficientBalance
	}
	return nil
}

// advance raises progress if the modal still belongs to generation gen
func (m *Modal) advance(gen uint64, progress int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return false
	}
	if progress > m.progress {
		m.progress = progress
		m.changed()
	}
	return true
}

func (m *Modal) resetLocked() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.gen++
	m.open = false
	m.stage = StageConfirm
	m.progress = 0
	m.balance = nil
	m.quote = Quote{}
	m.result = nil
	m.err = nil
}

func (m *Modal) snapshotLocked() Snapshot {
	s := Snapshot{
		Open:     m.open,
		Stage:    m.stage,
		Progress: m.progress,
		Quote:    m.quote,
		Err:      m.err,
	}
	if m.balance != nil {
		s.Balance = *m.balance
		s.BalanceKnown = true
	}
	if m.result != nil {
		r := *m.result
		s.Result = &r
	}
	return s
}

func (m *Modal) changed() {
	if m.onChange != nil {
		m.onChange(m.snapshotLocked())
	}
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
