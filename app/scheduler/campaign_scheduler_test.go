package scheduler

import (
	"bytes"
	"context"
	"log"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/mailpiece/app/services"
	"github.com/amirphl/mailpiece/models"
	"github.com/amirphl/mailpiece/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCampaignRepo struct {
	repository.CampaignRepository

	mu        sync.Mutex
	campaigns map[uint]*models.Campaign
	// steal makes TransitionStatus lose the race for this id
	steal map[uint]bool
}

func (r *memCampaignRepo) ByFilter(_ context.Context, f models.CampaignFilter, _ string, limit, _ int) ([]*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Campaign
	for _, c := range r.campaigns {
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		if f.ScheduledBefore != nil && (c.ScheduledAt == nil || c.ScheduledAt.After(*f.ScheduledBefore)) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(*out[j].ScheduledAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memCampaignRepo) TransitionStatus(_ context.Context, id uint, from, to models.CampaignStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.campaigns[id]
	if r.steal[id] {
		c.Status = models.CampaignStatusCancelled
		return false, nil
	}
	if c == nil || c.Status != from {
		return false, nil
	}
	c.Status = to
	return true, nil
}

func (r *memCampaignRepo) status(id uint) models.CampaignStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.campaigns[id].Status
}

var now = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func campaign(id uint, status models.CampaignStatus, scheduledAt time.Time) *models.Campaign {
	return &models.Campaign{ID: id, UUID: uuid.New(), CustomerID: 7, Status: status, ScheduledAt: &scheduledAt}
}

func newTestScheduler(repo *memCampaignRepo, pub services.EventPublisher, batch int) (*CampaignScheduler, *bytes.Buffer) {
	var buf bytes.Buffer
	s := NewCampaignScheduler(repo, pub, log.New(&buf, "", 0), time.Hour, batch)
	s.now = func() time.Time { return now }
	return s, &buf
}

func TestCampaignScheduler_RunOnce(t *testing.T) {
	repo := &memCampaignRepo{campaigns: map[uint]*models.Campaign{
		1: campaign(1, models.CampaignStatusScheduled, now.Add(-2*time.Hour)),
		2: campaign(2, models.CampaignStatusScheduled, now),
		3: campaign(3, models.CampaignStatusScheduled, now.Add(time.Minute)),
		4: campaign(4, models.CampaignStatusDraft, now.Add(-time.Hour)),
		5: campaign(5, models.CampaignStatusCancelled, now.Add(-time.Hour)),
	}}
	pub := &services.RecordingEventPublisher{}
	s, logs := newTestScheduler(repo, pub, 10)

	moved := s.runOnce(context.Background())
	assert.Equal(t, 2, moved)

	assert.Equal(t, models.CampaignStatusInProduction, repo.status(1))
	assert.Equal(t, models.CampaignStatusInProduction, repo.status(2))
	assert.Equal(t, models.CampaignStatusScheduled, repo.status(3), "future campaigns wait")
	assert.Equal(t, models.CampaignStatusDraft, repo.status(4))
	assert.Equal(t, models.CampaignStatusCancelled, repo.status(5))

	events := pub.Events()
	require.Len(t, events, 2)
	assert.Equal(t, services.EventCampaignProduction, events[0].Type)
	assert.Equal(t, uint(7), events[0].CustomerID)
	assert.Equal(t, repo.campaigns[1].UUID.String(), events[0].Payload["campaign_id"])
	assert.Contains(t, logs.String(), "moved 2 campaigns")

	assert.Zero(t, s.runOnce(context.Background()), "second run finds nothing")
}

func TestCampaignScheduler_DrainsInBatches(t *testing.T) {
	repo := &memCampaignRepo{campaigns: map[uint]*models.Campaign{}}
	for i := uint(1); i <= 7; i++ {
		repo.campaigns[i] = campaign(i, models.CampaignStatusScheduled, now.Add(-time.Duration(i)*time.Minute))
	}
	s, _ := newTestScheduler(repo, services.NewNoopEventPublisher(), 3)

	assert.Equal(t, 7, s.runOnce(context.Background()))
	for i := uint(1); i <= 7; i++ {
		assert.Equal(t, models.CampaignStatusInProduction, repo.status(i))
	}
}

func TestCampaignScheduler_LostRaceIsSkipped(t *testing.T) {
	repo := &memCampaignRepo{
		campaigns: map[uint]*models.Campaign{
			1: campaign(1, models.CampaignStatusScheduled, now.Add(-time.Hour)),
			2: campaign(2, models.CampaignStatusScheduled, now.Add(-time.Minute)),
		},
		steal: map[uint]bool{1: true},
	}
	pub := &services.RecordingEventPublisher{}
	s, _ := newTestScheduler(repo, pub, 10)

	assert.Equal(t, 1, s.runOnce(context.Background()))
	assert.Equal(t, models.CampaignStatusCancelled, repo.status(1))
	assert.Equal(t, models.CampaignStatusInProduction, repo.status(2))
	assert.Len(t, pub.Events(), 1)
}

func TestCampaignScheduler_StartStop(t *testing.T) {
	repo := &memCampaignRepo{campaigns: map[uint]*models.Campaign{
		1: campaign(1, models.CampaignStatusScheduled, now.Add(-time.Hour)),
	}}
	s, _ := newTestScheduler(repo, services.NewNoopEventPublisher(), 10)

	stop := s.Start(context.Background())
	assert.Eventually(t, func() bool {
		return repo.status(1) == models.CampaignStatusInProduction
	}, time.Second, 5*time.Millisecond)
	stop()
}
