package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/amirphl/mailpiece/app/dto"
	"github.com/amirphl/mailpiece/models"
	"github.com/amirphl/mailpiece/repository"
	"github.com/google/uuid"
)

// DesignTemplateFlow persists and fetches postcard designs
type DesignTemplateFlow interface {
	SaveTemplate(ctx context.Context, req *dto.SaveDesignTemplateRequest, metadata *ClientMetadata) (*dto.DesignTemplateResponse, error)
	GetTemplate(ctx context.Context, customerID uint, id string) (*dto.DesignTemplateResponse, error)
	ListTemplates(ctx context.Context, req *dto.ListDesignTemplatesRequest) (*dto.ListDesignTemplatesResponse, error)
}

// DesignTemplateFlowImpl implements DesignTemplateFlow
type DesignTemplateFlowImpl struct {
	designTemplateRepo repository.DesignTemplateRepository
	customerRepo       repository.CustomerRepository
	auditRepo          repository.AuditLogRepository
}

// NewDesignTemplateFlow creates a new design template flow
func NewDesignTemplateFlow(
	designTemplateRepo repository.DesignTemplateRepository,
	customerRepo repository.CustomerRepository,
	auditRepo repository.AuditLogRepository,
) DesignTemplateFlow {
	return &DesignTemplateFlowImpl{
		designTemplateRepo: designTemplateRepo,
		customerRepo:       customerRepo,
		auditRepo:          auditRepo,
	}
}

// SaveTemplate creates a template, or overwrites the caller's template when req.ID is set
func (s *DesignTemplateFlowImpl) SaveTemplate(ctx context.Context, req *dto.SaveDesignTemplateRequest, metadata *ClientMetadata) (*dto.DesignTemplateResponse, error) {
	if !json.Valid(req.CanvasJSON) {
		return nil, NewBusinessError("INVALID_CANVAS_JSON", "Canvas payload is not valid JSON", ErrInvalidCanvasJSON)
	}

	customer, err := getCustomer(ctx, s.customerRepo, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CUSTOMER_LOOKUP_FAILED", "Failed to lookup customer", err)
	}

	template, err := s.save(ctx, customer.ID, req)
	if err != nil {
		_ = createAuditLog(ctx, s.auditRepo, &customer, models.AuditActionDesignTemplateSaveFail,
			"Design template save failed", false, errMessage("Design template save failed: %s", err), metadata)
		if IsDesignTemplateNotFound(err) {
			return nil, NewBusinessError("DESIGN_TEMPLATE_NOT_FOUND", "Design template not found", err)
		}
		return nil, NewBusinessError("DESIGN_TEMPLATE_SAVE_FAILED", "Failed to save design template", err)
	}

	_ = createAuditLog(ctx, s.auditRepo, &customer, models.AuditActionDesignTemplateSaved,
		fmt.Sprintf("Design template saved: %s", template.UUID), true, nil, metadata)

	resp := toDesignTemplateResponse(template, true)
	return &resp, nil
}

func (s *DesignTemplateFlowImpl) save(ctx context.Context, customerID uint, req *dto.SaveDesignTemplateRequest) (*models.DesignTemplate, error) {
	name := strings.TrimSpace(req.Name)

	if req.ID == nil {
		template := &models.DesignTemplate{
			CustomerID: customerID,
			Name:       name,
			Width:      req.Width,
			Height:     req.Height,
			CanvasJSON: req.CanvasJSON,
			PreviewURL: req.PreviewURL,
		}
		if err := s.designTemplateRepo.Save(ctx, template); err != nil {
			return nil, err
		}
		return template, nil
	}

	template, err := s.owned(ctx, customerID, *req.ID)
	if err != nil {
		return nil, err
	}
	template.Name = name
	template.Width = req.Width
	template.Height = req.Height
	template.CanvasJSON = req.CanvasJSON
	template.PreviewURL = req.PreviewURL
	if err := s.designTemplateRepo.Update(ctx, template); err != nil {
		return nil, err
	}
	return template, nil
}

// GetTemplate returns one of the caller's templates with its canvas
func (s *DesignTemplateFlowImpl) GetTemplate(ctx context.Context, customerID uint, id string) (*dto.DesignTemplateResponse, error) {
	template, err := s.owned(ctx, customerID, id)
	if err != nil {
		return nil, NewBusinessError("DESIGN_TEMPLATE_LOOKUP_FAILED", "Failed to lookup design template", err)
	}
	resp := toDesignTemplateResponse(template, true)
	return &resp, nil
}

// ListTemplates pages through the caller's templates without canvas bodies
func (s *DesignTemplateFlowImpl) ListTemplates(ctx context.Context, req *dto.ListDesignTemplatesRequest) (*dto.ListDesignTemplatesResponse, error) {
	page, limit, offset := normalizePage(req.Page, req.Limit)
	filter := models.DesignTemplateFilter{CustomerID: &req.CustomerID}

	total, err := s.designTemplateRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LIST_DESIGN_TEMPLATES_FAILED", "Failed to list design templates", err)
	}
	rows, err := s.designTemplateRepo.ByFilter(ctx, filter, "created_at DESC", limit, offset)
	if err != nil {
		return nil, NewBusinessError("LIST_DESIGN_TEMPLATES_FAILED", "Failed to list design templates", err)
	}

	items := make([]dto.DesignTemplateResponse, 0, len(rows))
	for _, t := range rows {
		items = append(items, toDesignTemplateResponse(t, false))
	}
	return &dto.ListDesignTemplatesResponse{
		Items:      items,
		Pagination: dto.NewPaginationInfo(total, page, limit),
	}, nil
}

func (s *DesignTemplateFlowImpl) owned(ctx context.Context, customerID uint, id string) (*models.DesignTemplate, error) {
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

func toDesignTemplateResponse(t *models.DesignTemplate, withCanvas bool) dto.DesignTemplateResponse {
	resp := dto.DesignTemplateResponse{
		ID:         t.UUID.String(),
		Name:       t.Name,
		Width:      t.Width,
		Height:     t.Height,
		PreviewURL: t.PreviewURL,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
	if withCanvas {
		resp.CanvasJSON = t.CanvasJSON
	}
	return resp
}
