package businessflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/mailpiece/app/dto"
	"github.com/amirphl/mailpiece/models"
	"github.com/amirphl/mailpiece/repository"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const (
	xlsxContentType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportPageSize      = 1000
	recipientsSheetName = "Recipients"
)

// RecipientListFlow reads and exports purchased recipient lists
type RecipientListFlow interface {
	GetRecipientList(ctx context.Context, req *dto.GetRecipientListRequest) (*dto.RecipientListResponse, error)
	ExportRecipientList(ctx context.Context, customerID uint, id string, metadata *ClientMetadata) (*dto.RecipientListExport, error)
}

// RecipientListFlowImpl implements RecipientListFlow
type RecipientListFlowImpl struct {
	recipientListRepo repository.RecipientListRepository
	contactRepo       repository.ContactRepository
	customerRepo      repository.CustomerRepository
	auditRepo         repository.AuditLogRepository
}

// NewRecipientListFlow creates a recipient list flow
func NewRecipientListFlow(
	recipientListRepo repository.RecipientListRepository,
	contactRepo repository.ContactRepository,
	customerRepo repository.CustomerRepository,
	auditRepo repository.AuditLogRepository,
) RecipientListFlow {
	return &RecipientListFlowImpl{
		recipientListRepo: recipientListRepo,
		contactRepo:       contactRepo,
		customerRepo:      customerRepo,
		auditRepo:         auditRepo,
	}
}

// GetRecipientList returns the list and one page of contacts
func (s *RecipientListFlowImpl) GetRecipientList(ctx context.Context, req *dto.GetRecipientListRequest) (*dto.RecipientListResponse, error) {
	list, err := s.owned(ctx, req.CustomerID, req.UUID)
	if err != nil {
		return nil, NewBusinessError("RECIPIENT_LIST_LOOKUP_FAILED", "Failed to lookup recipient list", err)
	}

	page, limit, offset := normalizePage(req.Page, req.Limit)
	total, err := s.contactRepo.CountByRecipientList(ctx, list.ID)
	if err != nil {
		return nil, NewBusinessError("RECIPIENT_LIST_LOOKUP_FAILED", "Failed to count contacts", err)
	}
	contacts, err := s.contactRepo.ListByRecipientList(ctx, list.ID, limit, offset)
	if err != nil {
		return nil, NewBusinessError("RECIPIENT_LIST_LOOKUP_FAILED", "Failed to list contacts", err)
	}

	items := make([]dto.ContactResponse, 0, len(contacts))
	for _, c := range contacts {
		items = append(items, toContactResponse(c))
	}

	return &dto.RecipientListResponse{
		ID:           list.UUID.String(),
		Name:         list.Name,
		Source:       string(list.Source),
		Filters:      list.Filters,
		ContactCount: list.ContactCount,
		IsMockData:   list.IsMockData,
		CreatedAt:    list.CreatedAt,
		Contacts:     items,
		Pagination:   dto.NewPaginationInfo(total, page, limit),
	}, nil
}

// ExportRecipientList renders every contact of the list into an XLSX workbook
func (s *RecipientListFlowImpl) ExportRecipientList(ctx context.Context, customerID uint, id string, metadata *ClientMetadata) (*dto.RecipientListExport, error) {
	customer, err := getCustomer(ctx, s.customerRepo, customerID)
	if err != nil {
		return nil, NewBusinessError("CUSTOMER_LOOKUP_FAILED", "Failed to lookup customer", err)
	}

	list, err := s.owned(ctx, customerID, id)
	if err != nil {
		return nil, NewBusinessError("RECIPIENT_LIST_LOOKUP_FAILED", "Failed to lookup recipient list", err)
	}

	data, err := s.renderWorkbook(ctx, list)
	if err != nil {
		_ = createAuditLog(ctx, s.auditRepo, &customer, models.AuditActionRecipientListExportFail,
			"Recipient list export failed", false, errMessage("Recipient list export failed: %s", err), metadata)
		return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	_ = createAuditLog(ctx, s.auditRepo, &customer, models.AuditActionRecipientListExported,
		fmt.Sprintf("Recipient list exported: %s", list.UUID), true, nil, metadata)

	return &dto.RecipientListExport{
		FileName:    fmt.Sprintf("recipients_%s.xlsx", list.UUID),
		ContentType: xlsxContentType,
		Data:        data,
	}, nil
}

func (s *RecipientListFlowImpl) renderWorkbook(ctx context.Context, list *models.RecipientList) ([]byte, error) {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), recipientsSheetName); err != nil {
		return nil, err
	}

	header := []string{"tracking_id", "first_name", "last_name", "address_line1", "address_line2", "city", "state", "zip", "phone", "interests", "created_at"}
	if err := xl.SetSheetRow(recipientsSheetName, "A1", &header); err != nil {
		return nil, err
	}

	row := 2
	for offset := 0; ; offset += exportPageSize {
		contacts, err := s.contactRepo.ListByRecipientList(ctx, list.ID, exportPageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, c := range contacts {
			record := []string{
				c.TrackingID,
				c.FirstName,
				c.LastName,
				c.AddressLine1,
				c.AddressLine2,
				c.City,
				c.State,
				c.Zip,
				c.Phone,
				strings.Join(c.Interests, ", "),
				c.CreatedAt.UTC().Format(time.RFC3339),
			}
			cellRef, _ := excelize.CoordinatesToCellName(1, row)
			if err := xl.SetSheetRow(recipientsSheetName, cellRef, &record); err != nil {
				return nil, err
			}
			row++
		}
		if len(contacts) < exportPageSize {
			break
		}
	}

	// A summary sheet keeps the filter snapshot next to the data.
	if _, err := xl.NewSheet("Summary"); err != nil {
		return nil, err
	}
	summary := [][]any{
		{"list_id", list.UUID.String()},
		{"name", list.Name},
		{"source", string(list.Source)},
		{"contacts", row - 2},
		{"is_mock_data", list.IsMockData},
		{"filters_hash", list.Filters.Hash()},
		{"created_at", list.CreatedAt.UTC().Format(time.RFC3339)},
	}
	for i, line := range summary {
		cellRef, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := xl.SetSheetRow("Summary", cellRef, &line); err != nil {
			return nil, err
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *RecipientListFlowImpl) owned(ctx context.Context, customerID uint, id string) (*models.RecipientList, error) {
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

func toContactResponse(c *models.Contact) dto.ContactResponse {
	return dto.ContactResponse{
		TrackingID:   c.TrackingID,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		AddressLine1: c.AddressLine1,
		AddressLine2: c.AddressLine2,
		City:         c.City,
		State:        c.State,
		Zip:          c.Zip,
		Phone:        c.Phone,
	}
}
