package estimator

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/amirphl/mailpiece/app/dto"
	"github.com/amirphl/mailpiece/models"
	"github.com/amirphl/mailpiece/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countCall struct {
	ctx     context.Context
	filters models.AudienceFilters
	reply   chan countReply
}

type countReply struct {
	resp *dto.AudienceCountResponse
	err  error
}

// fakeCounter blocks every call until the test replies. It ignores cancellation
// so late replies can be delivered after a call was superseded.
type fakeCounter struct {
	calls chan *countCall
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{calls: make(chan *countCall, 16)}
}

func (f *fakeCounter) CountAudience(ctx context.Context, filters models.AudienceFilters) (*dto.AudienceCountResponse, error) {
	call := &countCall{ctx: ctx, filters: filters, reply: make(chan countReply, 1)}
	f.calls <- call
	r := <-call.reply
	return r.resp, r.err
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting")
	}
	var zero T
	return zero
}

func assertNoCall(t *testing.T, counter *fakeCounter, wait time.Duration) {
	t.Helper()
	select {
	case call := <-counter.calls:
		t.Fatalf("unexpected count request for %+v", call.filters)
	case <-time.After(wait):
	}
}

func countOf(n int64) countReply {
	return countReply{resp: &dto.AudienceCountResponse{Count: n}}
}

func TestEstimator_DebouncesToLatestFilters(t *testing.T) {
	counter := newFakeCounter()
	est := New(counter, WithDebounce(30*time.Millisecond))
	defer est.Close()

	for _, state := range []string{"CA", "OR", "WA", "NV"} {
		est.Update(models.AudienceFilters{State: state})
	}

	call := receive(t, counter.calls)
	assert.Equal(t, "NV", call.filters.State)
	call.reply <- countOf(5000)

	assertNoCall(t, counter, 100*time.Millisecond)
}

func TestEstimator_StaleResponseIsDiscarded(t *testing.T) {
	counter := newFakeCounter()
	changes := make(chan *Estimate, 8)
	est := New(counter, WithDebounce(time.Millisecond), WithOnChange(func(e *Estimate) { changes <- e }))

	est.Update(models.AudienceFilters{State: "CA"})
	first := receive(t, counter.calls)

	est.Update(models.AudienceFilters{State: "CA", City: "Fresno"})
	second := receive(t, counter.calls)
	assert.ErrorIs(t, first.ctx.Err(), context.Canceled, "superseded request is cancelled")

	second.reply <- countOf(2000)
	got := receive(t, changes)
	require.NotNil(t, got)
	assert.Equal(t, int64(2000), got.Count)
	assert.Equal(t, "Fresno", got.Filters.City)

	// the older request resolves last and must not win
	first.reply <- countOf(90000)
	est.Close()

	assert.Empty(t, changes)
	require.NotNil(t, est.Current())
	assert.Equal(t, int64(2000), est.Current().Count)
	assert.Greater(t, est.Current().Seq, uint64(1))
}

func TestEstimator_EmptyFiltersClearWithoutRequest(t *testing.T) {
	counter := newFakeCounter()
	changes := make(chan *Estimate, 8)
	est := New(counter, WithDebounce(5*time.Millisecond), WithOnChange(func(e *Estimate) { changes <- e }))
	defer est.Close()

	est.Update(models.AudienceFilters{State: "CA"})
	receive(t, counter.calls).reply <- countOf(45000)
	require.NotNil(t, receive(t, changes))

	est.Update(models.AudienceFilters{})
	assert.Nil(t, receive(t, changes))
	assert.Nil(t, est.Current())
	assertNoCall(t, counter, 50*time.Millisecond)

	// a pending edit is dropped when the criteria are emptied before the timer fires
	slow := New(counter, WithDebounce(20*time.Millisecond))
	defer slow.Close()
	slow.Update(models.AudienceFilters{State: "OR"})
	slow.Update(models.AudienceFilters{})
	assertNoCall(t, counter, 80*time.Millisecond)
}

func TestEstimator_ClearingCancelsInFlight(t *testing.T) {
	counter := newFakeCounter()
	est := New(counter, WithDebounce(time.Millisecond))

	est.Update(models.AudienceFilters{State: "CA"})
	call := receive(t, counter.calls)

	est.Update(models.AudienceFilters{})
	assert.ErrorIs(t, call.ctx.Err(), context.Canceled)

	call.reply <- countOf(45000)
	est.Close()
	assert.Nil(t, est.Current())
}

func TestEstimator_ErrorsCollapseToNoData(t *testing.T) {
	counter := newFakeCounter()
	var logs bytes.Buffer
	changes := make(chan *Estimate, 8)
	est := New(counter,
		WithDebounce(time.Millisecond),
		WithLogger(log.New(&logs, "", 0)),
		WithOnChange(func(e *Estimate) { changes <- e }),
	)

	est.Update(models.AudienceFilters{State: "CA"})
	receive(t, counter.calls).reply <- countOf(45000)
	require.NotNil(t, receive(t, changes))

	est.Update(models.AudienceFilters{State: "CA", Homeowner: utils.ToPtr(true)})
	receive(t, counter.calls).reply <- countReply{err: errors.New("502 bad gateway")}
	assert.Nil(t, receive(t, changes))

	est.Close()
	assert.Nil(t, est.Current())
	assert.Contains(t, logs.String(), "502 bad gateway")
}

func TestEstimator_UpdateAfterCloseIsIgnored(t *testing.T) {
	counter := newFakeCounter()
	est := New(counter, WithDebounce(time.Millisecond))
	est.Close()

	est.Update(models.AudienceFilters{State: "CA"})
	assertNoCall(t, counter, 30*time.Millisecond)
}

type fakeAdminChecker struct {
	isAdmin bool
	err     error
	calls   int
}

func (f *fakeAdminChecker) CheckAdmin(context.Context) (bool, error) {
	f.calls++
	return f.isAdmin, f.err
}

func TestNewSession(t *testing.T) {
	checker := &fakeAdminChecker{isAdmin: true}
	s, err := NewSession(context.Background(), checker)
	require.NoError(t, err)
	assert.True(t, s.IsAdmin)
	assert.Equal(t, 1, checker.calls)

	s, err = NewSession(context.Background(), &fakeAdminChecker{isAdmin: true, err: errors.New("401")})
	assert.Error(t, err)
	assert.False(t, s.IsAdmin)
}

func TestEstimate_RendersMockedCount(t *testing.T) {
	counter := newFakeCounter()
	changes := make(chan *Estimate, 1)
	est := New(counter, WithDebounce(time.Millisecond), WithOnChange(func(e *Estimate) { changes <- e }))
	defer est.Close()

	est.Update(models.AudienceFilters{State: "CA", AgeMin: utils.ToPtr(35), AgeMax: utils.ToPtr(65)})
	call := receive(t, counter.calls)
	assert.Equal(t, 35, *call.filters.AgeMin)
	call.reply <- countReply{resp: &dto.AudienceCountResponse{
		Count: 45000, UserCostPerContact: 0.12, UserCharge: 5400, Margin: utils.ToPtr(1200.0),
	}}

	got := receive(t, changes)
	require.NotNil(t, got)

	customer := got.View(Session{})
	assert.Equal(t, "45.0K", customer.Count)
	assert.Equal(t, "$5,400.00", customer.Charge)
	assert.Equal(t, "$0.12", customer.CostPerContact)
	assert.Equal(t, QualityGood, customer.Quality)
	assert.False(t, customer.ShowMargin)
	assert.Empty(t, customer.Margin)

	admin := got.View(Session{IsAdmin: true})
	assert.True(t, admin.ShowMargin)
	assert.Equal(t, "$1,200.00", admin.Margin)
}
