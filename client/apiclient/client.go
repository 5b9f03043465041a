// Package apiclient is a typed HTTP client for the mailpiece REST API
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/mailpiece/app/dto"
	"github.com/amirphl/mailpiece/models"
)

const defaultTimeout = 30 * time.Second

// APIError is returned for any non-2xx response or an envelope with success=false
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error: status %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsCode reports whether err is an APIError carrying the given envelope code
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// envelope mirrors dto.APIResponse with raw payloads
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

// Client calls the API on behalf of one bearer token
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	templates  *FileTemplateStore
	sessions   *SessionStore
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer token sent with every request
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTemplateFallback keeps design templates in store when the API cannot save them
func WithTemplateFallback(store *FileTemplateStore) Option {
	return func(c *Client) { c.templates = store }
}

// WithSessionStore sets the store used for canvas round trips
func WithSessionStore(store *SessionStore) Option {
	return func(c *Client) { c.sessions = store }
}

// New creates a client for the API rooted at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		sessions:   NewSessionStore(30 * time.Minute),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sessions returns the store holding canvas round-trip results
func (c *Client) Sessions() *SessionStore { return c.sessions }

// CountAudience estimates the audience size and cost for filters
func (c *Client) CountAudience(ctx context.Context, filters models.AudienceFilters) (*dto.AudienceCountResponse, error) {
	var out dto.AudienceCountResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/audience/count", filters, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PurchaseAudience buys up to maxContacts contacts matching filters
func (c *Client) PurchaseAudience(ctx context.Context, filters models.AudienceFilters, maxContacts int) (*dto.PurchaseAudienceResponse, error) {
	body := dto.PurchaseAudienceRequest{Filters: filters, MaxContacts: maxContacts}
	var out dto.PurchaseAudienceResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/audience/purchase", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveAudience stores a named filter set
func (c *Client) SaveAudience(ctx context.Context, name string, filters models.AudienceFilters) (*dto.SavedAudienceResponse, error) {
	var out dto.SavedAudienceResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/audience/save", dto.SaveAudienceRequest{Name: name, Filters: filters}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSavedAudiences returns one page of saved filter sets
func (c *Client) ListSavedAudiences(ctx context.Context, page, limit int) (*dto.ListSavedAudiencesResponse, error) {
	var out dto.ListSavedAudiencesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/audience/saved"+pageQuery(page, limit, nil), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Credits returns the organization credit balance
func (c *Client) Credits(ctx context.Context) (*dto.CreditBalanceResponse, error) {
	var out dto.CreditBalanceResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/organization/credits", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreditHistory returns one page of balance changes, newest first
func (c *Client) CreditHistory(ctx context.Context, page, limit int) (*dto.CreditHistoryResponse, error) {
	var out dto.CreditHistoryResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/organization/credits/history"+pageQuery(page, limit, nil), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckAdmin reports the admin claim of the client's token
func (c *Client) CheckAdmin(ctx context.Context) (bool, error) {
	var out dto.CheckAdminResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/check-admin", nil, &out); err != nil {
		return false, err
	}
	return out.IsAdmin, nil
}

// CreateCampaign submits a new campaign
func (c *Client) CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest) (*dto.CampaignResponse, error) {
	var out dto.CampaignResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/campaigns", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCampaign patches a campaign
func (c *Client) UpdateCampaign(ctx context.Context, id string, req *dto.UpdateCampaignRequest) (*dto.CampaignResponse, error) {
	var out dto.CampaignResponse
	if err := c.doJSON(ctx, http.MethodPatch, "/api/campaigns/"+url.PathEscape(id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCampaign fetches one campaign
func (c *Client) GetCampaign(ctx context.Context, id string) (*dto.CampaignResponse, error) {
	var out dto.CampaignResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/campaigns/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCampaigns returns one page of campaigns. An empty status lists all.
func (c *Client) ListCampaigns(ctx context.Context, page, limit int, status string) (*dto.ListCampaignsResponse, error) {
	extra := url.Values{}
	if status != "" {
		extra.Set("status", status)
	}
	var out dto.ListCampaignsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/campaigns"+pageQuery(page, limit, extra), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CampaignPerformance returns attribution stats for a campaign
func (c *Client) CampaignPerformance(ctx context.Context, id string) (*dto.CampaignPerformanceResponse, error) {
	var out dto.CampaignPerformanceResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/campaigns/"+url.PathEscape(id)+"/performance", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDesignTemplate fetches one template
func (c *Client) GetDesignTemplate(ctx context.Context, id string) (*dto.DesignTemplateResponse, error) {
	var out dto.DesignTemplateResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/design-templates/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDesignTemplates returns one page of templates
func (c *Client) ListDesignTemplates(ctx context.Context, page, limit int) (*dto.ListDesignTemplatesResponse, error) {
	var out dto.ListDesignTemplatesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/design-templates"+pageQuery(page, limit, nil), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCanvasSession parks payload on the server and remembers it locally
func (c *Client) CreateCanvasSession(ctx context.Context, payload json.RawMessage) (*dto.CreateCanvasSessionResponse, error) {
	var out dto.CreateCanvasSessionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/canvas-session/create", dto.CreateCanvasSessionRequest{Payload: payload}, &out); err != nil {
		return nil, err
	}
	c.sessions.Put(out.SessionID, payload)
	return &out, nil
}

// GetCanvasSession returns a parked payload, preferring the local copy
func (c *Client) GetCanvasSession(ctx context.Context, sessionID string) (json.RawMessage, error) {
	if payload, ok := c.sessions.Get(sessionID); ok {
		return payload, nil
	}

	var out dto.CanvasSessionResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/canvas-session/"+url.PathEscape(sessionID), nil, &out); err != nil {
		return nil, err
	}
	c.sessions.Put(sessionID, out.Payload)
	return out.Payload, nil
}

// GetRecipientList returns a list with one page of contacts
func (c *Client) GetRecipientList(ctx context.Context, id string, page, limit int) (*dto.RecipientListResponse, error) {
	var out dto.RecipientListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/recipient-lists/"+url.PathEscape(id)+pageQuery(page, limit, nil), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportRecipientList downloads the list workbook
func (c *Client) ExportRecipientList(ctx context.Context, id string) (*dto.RecipientListExport, error) {
	resp, err := c.send(ctx, http.MethodGet, "/api/recipient-lists/"+url.PathEscape(id)+"/export", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}
	export := &dto.RecipientListExport{ContentType: resp.Header.Get("Content-Type"), Data: data}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		export.FileName = params["filename"]
	}
	return export, nil
}

// Visit records a scan of a tracking code
func (c *Client) Visit(ctx context.Context, trackingID string) (*dto.MicrositeResponse, error) {
	var out dto.MicrositeResponse
	if err := c.doJSON(ctx, http.MethodGet, "/t/"+url.PathEscape(trackingID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RecordConversion attributes a conversion to a tracking id
func (c *Client) RecordConversion(ctx context.Context, req *dto.RecordConversionRequest) (*dto.RecordConversionResponse, error) {
	var out dto.RecordConversionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/tracking/conversions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.StatusCode >= 300 || !env.Success {
		return envelopeError(resp.StatusCode, env)
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return envelopeError(resp.StatusCode, env)
}

func envelopeError(status int, env envelope) *APIError {
	apiErr := &APIError{StatusCode: status, Message: env.Message}
	if env.Error != nil {
		apiErr.Code = env.Error.Code
	}
	return apiErr
}

func pageQuery(page, limit int, extra url.Values) string {
	q := url.Values{}
	for k, v := range extra {
		q[k] = v
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}
