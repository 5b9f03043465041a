// Package scheduler runs background jobs against the campaign store
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/amirphl/mailpiece/app/services"
	"github.com/amirphl/mailpiece/models"
	"github.com/amirphl/mailpiece/repository"
	"github.com/amirphl/mailpiece/utils"
)

// CampaignScheduler periodically hands scheduled campaigns whose date has
// passed to production
type CampaignScheduler struct {
	campaignRepo repository.CampaignRepository
	publisher    services.EventPublisher
	logger       *log.Logger
	interval     time.Duration
	batchSize    int
	now          func() time.Time
}

func NewCampaignScheduler(
	campaignRepo repository.CampaignRepository,
	publisher services.EventPublisher,
	logger *log.Logger,
	interval time.Duration,
	batchSize int,
) *CampaignScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if logger == nil {
		logger = log.New(log.Writer(), "scheduler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
	}
	return &CampaignScheduler{
		campaignRepo: campaignRepo,
		publisher:    publisher,
		logger:       logger,
		interval:     interval,
		batchSize:    batchSize,
		now:          utils.UTCNow,
	}
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *CampaignScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// runOnce promotes due campaigns batch by batch and returns how many it moved
func (s *CampaignScheduler) runOnce(ctx context.Context) int {
	moved := 0
	for ctx.Err() == nil {
		n, more := s.runBatch(ctx)
		moved += n
		if !more {
			break
		}
	}
	if moved > 0 {
		s.logger.Printf("scheduler: moved %d campaigns to production", moved)
	}
	return moved
}

// runBatch reports whether a full batch was seen, meaning more may be due
func (s *CampaignScheduler) runBatch(ctx context.Context) (int, bool) {
	now := s.now()
	status := models.CampaignStatusScheduled
	due, err := s.campaignRepo.ByFilter(ctx, models.CampaignFilter{
		Status:          &status,
		ScheduledBefore: &now,
	}, "scheduled_at ASC, id ASC", s.batchSize, 0)
	if err != nil {
		s.logger.Printf("scheduler: list due campaigns failed: %v", err)
		return 0, false
	}

	moved := 0
	for _, c := range due {
		if !c.CanTransitionTo(models.CampaignStatusInProduction) {
			continue
		}
		ok, err := s.campaignRepo.TransitionStatus(ctx, c.ID, models.CampaignStatusScheduled, models.CampaignStatusInProduction)
		if err != nil {
			s.logger.Printf("scheduler: campaign id=%d: %v", c.ID, err)
			// Stop here so a failing row is not re-listed forever in this run
			return moved, false
		}
		if !ok {
			// Changed by someone else since it was listed
			continue
		}
		moved++

		event := services.NewEvent(services.EventCampaignProduction, c.CustomerID, map[string]any{
			"campaign_id":  c.UUID.String(),
			"status":       models.CampaignStatusInProduction.String(),
			"scheduled_at": c.ScheduledAt,
		})
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Printf("scheduler: publish for campaign id=%d failed: %v", c.ID, err)
		}
	}
	return moved, len(due) == s.batchSize && moved > 0
}
