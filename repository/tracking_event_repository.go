package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/mailpiece/models"
	"gorm.io/gorm"
)

// campaignPerformanceQuery counts recipients, visits and conversions per campaign.
// Append a WHERE clause on c.id to narrow it.
const campaignPerformanceQuery = `
SELECT
	c.id AS campaign_id,
	(SELECT COUNT(*) FROM contacts ct WHERE ct.recipient_list_id = c.recipient_list_id) AS recipients,
	(SELECT COUNT(*) FROM tracking_events te WHERE te.campaign_id = c.id AND te.type = 'visit') AS visits,
	(SELECT COUNT(*) FROM tracking_events te WHERE te.campaign_id = c.id AND te.type = 'conversion') AS conversions
FROM campaigns c`

// TrackingEventRepositoryImpl implements TrackingEventRepository interface
type TrackingEventRepositoryImpl struct {
	*BaseRepository[models.TrackingEvent, models.TrackingEventFilter]
}

// NewTrackingEventRepository creates a new tracking event repository
func NewTrackingEventRepository(db *gorm.DB) TrackingEventRepository {
	return &TrackingEventRepositoryImpl{
		BaseRepository: NewBaseRepository[models.TrackingEvent, models.TrackingEventFilter](db),
	}
}

// CountByFilter returns the number of events matching the filter
func (r *TrackingEventRepositoryImpl) CountByFilter(ctx context.Context, filter models.TrackingEventFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	if err := r.applyFilter(db.Model(&models.TrackingEvent{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CampaignPerformance aggregates events for one campaign. Returns nil when the campaign does not exist.
func (r *TrackingEventRepositoryImpl) CampaignPerformance(ctx context.Context, campaignID uint) (*models.CampaignPerformance, error) {
	db := r.getDB(ctx)

	var rows []*models.CampaignPerformance
	err := db.Raw(campaignPerformanceQuery+" WHERE c.id = ?", campaignID).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate campaign performance: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	rows[0].ConversionRate = conversionRate(rows[0].Conversions, rows[0].Recipients)
	return rows[0], nil
}

// AllCampaignPerformance aggregates events for every campaign that has recipients
func (r *TrackingEventRepositoryImpl) AllCampaignPerformance(ctx context.Context) ([]*models.CampaignPerformance, error) {
	db := r.getDB(ctx)

	var rows []*models.CampaignPerformance
	if err := db.Raw(campaignPerformanceQuery + " ORDER BY c.id").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate campaign performance: %w", err)
	}

	out := rows[:0]
	for _, row := range rows {
		if row.Recipients == 0 {
			continue
		}
		row.ConversionRate = conversionRate(row.Conversions, row.Recipients)
		out = append(out, row)
	}
	return out, nil
}

func (r *TrackingEventRepositoryImpl) applyFilter(query *gorm.DB, filter models.TrackingEventFilter) *gorm.DB {
	if filter.TrackingID != nil {
		query = query.Where("tracking_id = ?", *filter.TrackingID)
	}
	if filter.CampaignID != nil {
		query = query.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// conversionRate returns conversions as a percentage of recipients
func conversionRate(conversions, recipients int64) float64 {
	if recipients == 0 {
		return 0
	}
	return float64(conversions) / float64(recipients) * 100
}
