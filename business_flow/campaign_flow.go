// Package businessflow contains the core business logic and use cases for campaign workflows
package businessflow

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/amirphl/mailpiece/app/dto"
	"github.com/amirphl/mailpiece/app/services"
	"github.com/amirphl/mailpiece/models"
	"github.com/amirphl/mailpiece/repository"
	"github.com/amirphl/mailpiece/utils"
	"github.com/google/uuid"
)

// CampaignFlow handles the campaign business logic
type CampaignFlow interface {
	CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignResponse, error)
	UpdateCampaign(ctx context.Context, req *dto.UpdateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignResponse, error)
	GetCampaign(ctx context.Context, req *dto.GetCampaignRequest) (*dto.CampaignResponse, error)
	ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error)
}

// CampaignFlowImpl implements the campaign business flow
type CampaignFlowImpl struct {
	campaignRepo       repository.CampaignRepository
	customerRepo       repository.CustomerRepository
	designTemplateRepo repository.DesignTemplateRepository
	recipientListRepo  repository.RecipientListRepository
	auditRepo          repository.AuditLogRepository
	transactor         repository.Transactor
	publisher          services.EventPublisher
}

// NewCampaignFlow creates a new campaign flow instance
func NewCampaignFlow(
	campaignRepo repository.CampaignRepository,
	customerRepo repository.CustomerRepository,
	designTemplateRepo repository.DesignTemplateRepository,
	recipientListRepo repository.RecipientListRepository,
	auditRepo repository.AuditLogRepository,
	transactor repository.Transactor,
	publisher services.EventPublisher,
) CampaignFlow {
	return &CampaignFlowImpl{
		campaignRepo:       campaignRepo,
		customerRepo:       customerRepo,
		designTemplateRepo: designTemplateRepo,
		recipientListRepo:  recipientListRepo,
		auditRepo:          auditRepo,
		transactor:         transactor,
		publisher:          publisher,
	}
}

// CreateCampaign handles the complete campaign creation process
func (s *CampaignFlowImpl) CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignResponse, error) {
	// Validate business rules
	if err := s.validateCreateCampaignRequest(req); err != nil {
		return nil, NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Campaign validation failed", err)
	}

	customer, err := getCustomer(ctx, s.customerRepo, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CUSTOMER_LOOKUP_FAILED", "Failed to lookup customer", err)
	}

	template, err := s.ownedTemplate(ctx, req.DesignTemplateID, customer.ID)
	if err != nil {
		return nil, NewBusinessError("DESIGN_TEMPLATE_NOT_FOUND", "Design template not found", err)
	}
	list, err := s.ownedRecipientList(ctx, req.RecipientListID, customer.ID)
	if err != nil {
		return nil, NewBusinessError("RECIPIENT_LIST_NOT_FOUND", "Recipient list not found", err)
	}

	campaign := &models.Campaign{
		CustomerID:       customer.ID,
		Name:             strings.TrimSpace(req.Name),
		DesignTemplateID: template.ID,
		RecipientListID:  list.ID,
		VariableMappings: models.VariableMappings(req.VariableMappings),
		Status:           models.CampaignStatusDraft,
		ScheduledAt:      utils.TimeToUTCPtr(req.ScheduledAt),
	}
	if campaign.VariableMappings == nil {
		campaign.VariableMappings = models.VariableMappings{}
	}
	// Launching with a date schedules the campaign straight away.
	if campaign.ScheduledAt != nil {
		campaign.Status = models.CampaignStatusScheduled
	}

	err = s.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.campaignRepo.Save(txCtx, campaign)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Campaign creation failed: %s", err.Error())
		_ = createAuditLog(ctx, s.auditRepo, &customer, models.AuditActionCampaignCreationFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CAMPAIGN_CREATION_FAILED", "Campaign creation failed", err)
	}

	// Log successful creation
	msg := fmt.Sprintf("Campaign created successfully: %s", campaign.UUID.String())
	_ = createAuditLog(ctx, s.auditRepo, &customer, models.AuditActionCampaignCreated, msg, true, nil, metadata)
	campaignStatusChangesTotal.WithLabelValues(campaign.Status.String()).Inc()
	s.publish(ctx, services.EventCampaignCreated, campaign)

	campaign.DesignTemplate = template
	campaign.RecipientList = list
	resp := toCampaignResponse(campaign)
	return &resp, nil
}

// UpdateCampaign patches a campaign. Content edits need an editable status; status changes follow the lifecycle.
func (s *CampaignFlowImpl) UpdateCampaign(ctx context.Context, req *dto.UpdateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignResponse, error) {
	// Validate business rules
	if err := s.validateUpdateCampaignRequest(req); err != nil {
		return nil, NewBusinessError("CAMPAIGN_UPDATE_VALIDATION_FAILED", "Campaign update validation failed", err)
	}

	customer, err := getCustomer(ctx, s.customerRepo, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CUSTOMER_LOOKUP_FAILED", "Failed to lookup customer", err)
	}

	var campaign *models.Campaign
	err = s.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		campaign, err = s.ownedCampaign(txCtx, req.UUID, customer.ID)
		if err != nil {
			return err
		}
		if err := s.applyUpdate(txCtx, campaign, req, customer.ID); err != nil {
			return err
		}
		return s.campaignRepo.Update(txCtx, campaign)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Campaign update failed: %s", err.Error())
		_ = createAuditLog(ctx, s.auditRepo, &customer, models.AuditActionCampaignUpdateFailed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("CAMPAIGN_UPDATE_FAILED", "Campaign update failed", err)
	}

	msg := fmt.Sprintf("Campaign updated successfully: %s", campaign.UUID.String())
	_ = createAuditLog(ctx, s.auditRepo, &customer, models.AuditActionCampaignUpdated, msg, true, nil, metadata)
	if req.Status != nil {
		campaignStatusChangesTotal.WithLabelValues(campaign.Status.String()).Inc()
	}
	s.publish(ctx, services.EventCampaignUpdated, campaign)

	// Reload for the related UUIDs
	fresh, err := s.campaignRepo.ByID(ctx, campaign.ID)
	if err == nil && fresh != nil {
		campaign = fresh
	}
	resp := toCampaignResponse(campaign)
	return &resp, nil
}

func (s *CampaignFlowImpl) applyUpdate(ctx context.Context, campaign *models.Campaign, req *dto.UpdateCampaignRequest, customerID uint) error {
	contentChanged := req.Name != nil || req.DesignTemplateID != nil || req.RecipientListID != nil ||
		req.VariableMappings != nil || req.ScheduledAt != nil
	if contentChanged && !campaign.IsEditable() {
		return ErrCampaignUpdateNotAllowed
	}

	if req.Name != nil {
		campaign.Name = strings.TrimSpace(*req.Name)
	}
	if req.DesignTemplateID != nil {
		template, err := s.ownedTemplate(ctx, *req.DesignTemplateID, customerID)
		if err != nil {
			return err
		}
		campaign.DesignTemplateID = template.ID
	}
	if req.RecipientListID != nil {
		list, err := s.ownedRecipientList(ctx, *req.RecipientListID, customerID)
		if err != nil {
			return err
		}
		campaign.RecipientListID = list.ID
	}
	if req.VariableMappings != nil {
		campaign.VariableMappings = models.VariableMappings(req.VariableMappings)
	}
	if req.ScheduledAt != nil {
		campaign.ScheduledAt = utils.TimeToUTCPtr(req.ScheduledAt)
	}

	if req.Status != nil {
		next := models.CampaignStatus(*req.Status)
		if next != campaign.Status {
			if !campaign.CanTransitionTo(next) {
				return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, campaign.Status, next)
			}
			if next == models.CampaignStatusScheduled {
				if campaign.ScheduledAt == nil {
					return ErrScheduleTimeRequired
				}
				if !campaign.ScheduledAt.After(utils.UTCNow()) {
					return ErrScheduleTimeTooSoon
				}
			}
			campaign.Status = next
		}
	}
	return nil
}

// GetCampaign returns one of the customer's campaigns
func (s *CampaignFlowImpl) GetCampaign(ctx context.Context, req *dto.GetCampaignRequest) (*dto.CampaignResponse, error) {
	campaign, err := s.ownedCampaign(ctx, req.UUID, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	resp := toCampaignResponse(campaign)
	return &resp, nil
}

// ListCampaigns pages through the customer's campaigns
func (s *CampaignFlowImpl) ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error) {
	page, limit, offset := normalizePage(req.Page, req.Limit)

	filter := models.CampaignFilter{CustomerID: &req.CustomerID}
	if req.Status != nil {
		status := models.CampaignStatus(*req.Status)
		filter.Status = &status
	}

	orderBy := "created_at DESC"
	if req.OrderBy == "oldest" {
		orderBy = "created_at ASC"
	}

	total, err := s.campaignRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LIST_CAMPAIGNS_FAILED", "Failed to list campaigns", err)
	}
	rows, err := s.campaignRepo.ByFilter(ctx, filter, orderBy, limit, offset)
	if err != nil {
		return nil, NewBusinessError("LIST_CAMPAIGNS_FAILED", "Failed to list campaigns", err)
	}

	items := make([]dto.CampaignResponse, 0, len(rows))
	for _, c := range rows {
		items = append(items, toCampaignResponse(c))
	}
	return &dto.ListCampaignsResponse{
		Items:      items,
		Pagination: dto.NewPaginationInfo(total, page, limit),
	}, nil
}

func (s *CampaignFlowImpl) validateCreateCampaignRequest(req *dto.CreateCampaignRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return ErrCampaignNameRequired
	}
	if req.ScheduledAt != nil && !req.ScheduledAt.After(utils.UTCNow()) {
		return ErrScheduleTimeTooSoon
	}
	return validateVariableMappings(req.VariableMappings)
}

func (s *CampaignFlowImpl) validateUpdateCampaignRequest(req *dto.UpdateCampaignRequest) error {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return ErrCampaignNameRequired
	}
	if req.ScheduledAt != nil && !req.ScheduledAt.After(utils.UTCNow()) {
		return ErrScheduleTimeTooSoon
	}
	if req.Status != nil && !models.CampaignStatus(*req.Status).Valid() {
		return ErrInvalidStatusTransition
	}
	return validateVariableMappings(req.VariableMappings)
}

// validateVariableMappings requires every canvas tag to map onto a known contact field
func validateVariableMappings(mappings map[string]string) error {
	fields := (&models.Contact{}).MergeFields()
	for tag, field := range mappings {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("%w: empty tag", ErrInvalidVariableMapping)
		}
		if _, ok := fields[field]; !ok {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidVariableMapping, tag, field)
		}
	}
	return nil
}

func (s *CampaignFlowImpl) ownedCampaign(ctx context.Context, id string, customerID uint) (*models.Campaign, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrCampaignNotFound
	}
	campaign, err := s.campaignRepo.ByUUID(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}
	if campaign.CustomerID != customerID {
		return nil, ErrCampaignAccessDenied
	}
	return campaign, nil
}

func (s *CampaignFlowImpl) ownedTemplate(ctx context.Context, id string, customerID uint) (*models.DesignTemplate, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrDesignTemplateNotFound
	}
	template, err := s.designTemplateRepo.ByUUID(ctx, id)
	if err != nil {
		return nil, err
	}
	if template == nil || template.CustomerID != customerID {
		return nil, ErrDesignTemplateNotFound
	}
	return template, nil
}

func (s *CampaignFlowImpl) ownedRecipientList(ctx context.Context, id string, customerID uint) (*models.RecipientList, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrRecipientListNotFound
	}
	list, err := s.recipientListRepo.ByUUID(ctx, id)
	if err != nil {
		return nil, err
	}
	if list == nil || list.CustomerID != customerID {
		return nil, ErrRecipientListNotFound
	}
	return list, nil
}

func (s *CampaignFlowImpl) publish(ctx context.Context, eventType string, campaign *models.Campaign) {
	event := services.NewEvent(eventType, campaign.CustomerID, map[string]any{
		"campaign_id": campaign.UUID.String(),
		"status":      campaign.Status.String(),
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Printf("failed to publish %s event: %v", eventType, err)
	}
}

func toCampaignResponse(c *models.Campaign) dto.CampaignResponse {
	resp := dto.CampaignResponse{
		ID:               c.UUID.String(),
		Name:             c.Name,
		Status:           c.Status.String(),
		StatusLabel:      c.GetStatusDisplayName(),
		VariableMappings: map[string]string(c.VariableMappings),
		ScheduledAt:      c.ScheduledAt,
		CreatedAt:        c.CreatedAt.UTC().Truncate(time.Second),
		UpdatedAt:        c.UpdatedAt,
	}
	if resp.VariableMappings == nil {
		resp.VariableMappings = map[string]string{}
	}
	if c.DesignTemplate != nil {
		resp.DesignTemplateID = c.DesignTemplate.UUID.String()
	}
	if c.RecipientList != nil {
		resp.RecipientListID = c.RecipientList.UUID.String()
		resp.RecipientCount = c.RecipientList.ContactCount
	}
	return resp
}
