package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/amirphl/mailpiece/app/dto"
	"github.com/amirphl/mailpiece/app/services"
	"github.com/amirphl/mailpiece/models"
	"github.com/amirphl/mailpiece/repository"
	"github.com/amirphl/mailpiece/utils"
	"github.com/google/uuid"
)

// TrackingFlow records microsite visits and conversions and reports campaign performance
type TrackingFlow interface {
	RecordVisit(ctx context.Context, req *dto.RecordVisitRequest) (*dto.MicrositeResponse, error)
	RecordConversion(ctx context.Context, req *dto.RecordConversionRequest) (*dto.RecordConversionResponse, error)
	GetPerformance(ctx context.Context, customerID uint, campaignID string) (*dto.CampaignPerformanceResponse, error)
}

// TrackingFlowImpl implements TrackingFlow
type TrackingFlowImpl struct {
	contactRepo       repository.ContactRepository
	recipientListRepo repository.RecipientListRepository
	campaignRepo      repository.CampaignRepository
	trackingRepo      repository.TrackingEventRepository
	auditRepo         repository.AuditLogRepository
	publisher         services.EventPublisher
	micrositeBaseURL  string
}

// NewTrackingFlow creates a tracking flow
func NewTrackingFlow(
	contactRepo repository.ContactRepository,
	recipientListRepo repository.RecipientListRepository,
	campaignRepo repository.CampaignRepository,
	trackingRepo repository.TrackingEventRepository,
	auditRepo repository.AuditLogRepository,
	publisher services.EventPublisher,
	micrositeBaseURL string,
) TrackingFlow {
	return &TrackingFlowImpl{
		contactRepo:       contactRepo,
		recipientListRepo: recipientListRepo,
		campaignRepo:      campaignRepo,
		trackingRepo:      trackingRepo,
		auditRepo:         auditRepo,
		publisher:         publisher,
		micrositeBaseURL:  strings.TrimRight(micrositeBaseURL, "/"),
	}
}

// RecordVisit stores a visit and returns the personalized microsite payload
func (s *TrackingFlowImpl) RecordVisit(ctx context.Context, req *dto.RecordVisitRequest) (*dto.MicrositeResponse, error) {
	contact, campaign, err := s.resolve(ctx, req.TrackingID)
	if err != nil {
		return nil, NewBusinessError("TRACKING_LOOKUP_FAILED", "Failed to resolve tracking id", err)
	}

	event := &models.TrackingEvent{
		TrackingID: contact.TrackingID,
		Type:       models.TrackingEventVisit,
		IPAddress:  optionalString(req.IPAddress),
		UserAgent:  optionalString(req.UserAgent),
	}
	if campaign != nil {
		event.CampaignID = &campaign.ID
	}
	if err := s.trackingRepo.Save(ctx, event); err != nil {
		return nil, NewBusinessError("TRACKING_EVENT_SAVE_FAILED", "Failed to record visit", err)
	}
	trackingEventsTotal.WithLabelValues(string(models.TrackingEventVisit)).Inc()

	resp := &dto.MicrositeResponse{
		TrackingID:   contact.TrackingID,
		FirstName:    contact.FirstName,
		City:         contact.City,
		State:        contact.State,
		MicrositeURL: s.micrositeBaseURL + "/" + contact.TrackingID,
	}
	if campaign != nil {
		resp.CampaignID = campaign.UUID.String()
		resp.CampaignName = campaign.Name
	}
	return resp, nil
}

// RecordConversion attributes a conversion to the recipient behind the tracking id
func (s *TrackingFlowImpl) RecordConversion(ctx context.Context, req *dto.RecordConversionRequest) (*dto.RecordConversionResponse, error) {
	contact, campaign, err := s.resolve(ctx, req.TrackingID)
	if err != nil {
		return nil, NewBusinessError("TRACKING_LOOKUP_FAILED", "Failed to resolve tracking id", err)
	}

	conversionType := strings.TrimSpace(req.ConversionType)
	event := &models.TrackingEvent{
		TrackingID:     contact.TrackingID,
		Type:           models.TrackingEventConversion,
		ConversionType: &conversionType,
		IPAddress:      optionalString(req.IPAddress),
		UserAgent:      optionalString(req.UserAgent),
		CreatedAt:      utils.UTCNow(),
	}
	if len(req.Metadata) > 0 {
		raw, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, NewBusinessError("INVALID_METADATA", "Conversion metadata is not serializable", err)
		}
		event.Metadata = raw
	}
	if campaign != nil {
		event.CampaignID = &campaign.ID
	}
	if err := s.trackingRepo.Save(ctx, event); err != nil {
		return nil, NewBusinessError("TRACKING_EVENT_SAVE_FAILED", "Failed to record conversion", err)
	}
	trackingEventsTotal.WithLabelValues(string(models.TrackingEventConversion)).Inc()

	resp := &dto.RecordConversionResponse{
		TrackingID: contact.TrackingID,
		RecordedAt: event.CreatedAt,
	}

	var ownerID uint
	if campaign != nil {
		resp.CampaignID = campaign.UUID.String()
		ownerID = campaign.CustomerID
	} else if list, err := s.recipientListRepo.ByID(ctx, contact.RecipientListID); err == nil && list != nil {
		ownerID = list.CustomerID
	}

	if ownerID != 0 {
		owner := &models.Customer{ID: ownerID}
		metadata := NewClientMetadata(req.IPAddress, req.UserAgent)
		_ = createAuditLog(ctx, s.auditRepo, owner, models.AuditActionConversionRecorded,
			fmt.Sprintf("Conversion %q recorded for %s", conversionType, contact.TrackingID), true, nil, metadata)

		published := services.NewEvent(services.EventConversionRecorded, ownerID, map[string]any{
			"tracking_id":     contact.TrackingID,
			"campaign_id":     resp.CampaignID,
			"conversion_type": conversionType,
		})
		if err := s.publisher.Publish(ctx, published); err != nil {
			log.Printf("failed to publish %s event: %v", published.Type, err)
		}
	}

	return resp, nil
}

// GetPerformance reports visits, conversions and the percentile rank of the conversion rate
func (s *TrackingFlowImpl) GetPerformance(ctx context.Context, customerID uint, campaignID string) (*dto.CampaignPerformanceResponse, error) {
	if _, err := uuid.Parse(campaignID); err != nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}
	campaign, err := s.campaignRepo.ByUUID(ctx, campaignID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}
	if campaign.CustomerID != customerID {
		return nil, NewBusinessError("CAMPAIGN_ACCESS_DENIED", "Access denied to campaign", ErrCampaignAccessDenied)
	}

	perf, err := s.trackingRepo.CampaignPerformance(ctx, campaign.ID)
	if err != nil {
		return nil, NewBusinessError("PERFORMANCE_LOOKUP_FAILED", "Failed to load campaign performance", err)
	}
	if perf == nil {
		perf = &models.CampaignPerformance{CampaignID: campaign.ID}
	}

	all, err := s.trackingRepo.AllCampaignPerformance(ctx)
	if err != nil {
		return nil, NewBusinessError("PERFORMANCE_LOOKUP_FAILED", "Failed to load campaign performance", err)
	}
	rank, compared := PercentileRank(perf, all)

	return &dto.CampaignPerformanceResponse{
		CampaignID:        campaign.UUID.String(),
		Recipients:        perf.Recipients,
		Visits:            perf.Visits,
		Conversions:       perf.Conversions,
		ConversionRate:    perf.ConversionRate,
		PercentileRank:    rank,
		CampaignsCompared: compared,
	}, nil
}

// PercentileRank is the share of other campaigns with a lower conversion rate, ties counting half.
// A campaign without peers ranks 100. The second result is the number of peers compared.
func PercentileRank(target *models.CampaignPerformance, all []*models.CampaignPerformance) (float64, int) {
	var below, equal float64
	peers := 0
	for _, p := range all {
		if p == nil || p.CampaignID == target.CampaignID || p.Recipients == 0 {
			continue
		}
		peers++
		switch {
		case p.ConversionRate < target.ConversionRate:
			below++
		case p.ConversionRate == target.ConversionRate:
			equal++
		}
	}
	if peers == 0 {
		return 100, 0
	}
	rank := 100 * (below + equal/2) / float64(peers)
	return float64(int(rank*10+0.5)) / 10, peers
}

// resolve finds the contact and the newest live campaign mailing its list
func (s *TrackingFlowImpl) resolve(ctx context.Context, trackingID string) (*models.Contact, *models.Campaign, error) {
	contact, err := s.contactRepo.ByTrackingID(ctx, strings.ToLower(strings.TrimSpace(trackingID)))
	if err != nil {
		return nil, nil, err
	}
	if contact == nil {
		return nil, nil, ErrTrackingIDNotFound
	}

	campaigns, err := s.campaignRepo.ByRecipientListID(ctx, contact.RecipientListID)
	if err != nil {
		return nil, nil, err
	}
	for _, c := range campaigns {
		if c.Status != models.CampaignStatusCancelled {
			return contact, c, nil
		}
	}
	return contact, nil, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
