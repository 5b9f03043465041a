package services

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"strings"

	"github.com/amirphl/mailpiece/config"
	"github.com/amirphl/mailpiece/models"
	"golang.org/x/time/rate"
)

// ErrProviderUnavailable is returned when the contact data provider cannot serve a request
var ErrProviderUnavailable = errors.New("contact provider unavailable")

// ProviderContact is one record returned by the contact data provider
type ProviderContact struct {
	FirstName    string   `json:"firstName"`
	LastName     string   `json:"lastName"`
	AddressLine1 string   `json:"addressLine1"`
	AddressLine2 string   `json:"addressLine2,omitempty"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	Zip          string   `json:"zip"`
	Phone        string   `json:"phone,omitempty"`
	Interests    []string `json:"interests,omitempty"`
}

// ContactBatch is the result of a contact fetch
type ContactBatch struct {
	Contacts []ProviderContact
	IsMock   bool
}

// ContactProvider counts and sells contacts matching audience filters
type ContactProvider interface {
	Name() string
	Count(ctx context.Context, filters models.AudienceFilters) (int64, error)
	FetchContacts(ctx context.Context, filters models.AudienceFilters, limit int) (*ContactBatch, error)
}

// NewContactProvider selects the provider named in the configuration
func NewContactProvider(cfg *config.ProviderConfig) (ContactProvider, error) {
	switch cfg.Name {
	case "mock":
		return NewMockContactProvider(), nil
	case "http":
		return NewHTTPContactProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown contact provider %q", cfg.Name)
	}
}

// HTTPContactProvider talks to a remote contact data API
type HTTPContactProvider struct {
	config  *config.ProviderConfig
	client  *http.Client
	limiter *rate.Limiter
}

type providerCountRequest struct {
	Filters models.AudienceFilters `json:"filters"`
}

type providerCountResponse struct {
	Count int64 `json:"count"`
}

type providerContactsRequest struct {
	Filters models.AudienceFilters `json:"filters"`
	Limit   int                    `json:"limit"`
}

type providerContactsResponse struct {
	Contacts []ProviderContact `json:"contacts"`
}

// NewHTTPContactProvider creates a rate limited HTTP provider client
func NewHTTPContactProvider(cfg *config.ProviderConfig) *HTTPContactProvider {
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &HTTPContactProvider{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), burst),
	}
}

// Name returns the provider name
func (p *HTTPContactProvider) Name() string { return "http" }

// Count asks the provider how many contacts match the filters
func (p *HTTPContactProvider) Count(ctx context.Context, filters models.AudienceFilters) (int64, error) {
	var resp providerCountResponse
	if err := p.post(ctx, "/v1/audience/count", providerCountRequest{Filters: filters}, &resp); err != nil {
		return 0, err
	}
	if resp.Count < 0 {
		return 0, fmt.Errorf("%w: negative count %d", ErrProviderUnavailable, resp.Count)
	}
	return resp.Count, nil
}

// FetchContacts buys up to limit contacts. It never substitutes generated data.
func (p *HTTPContactProvider) FetchContacts(ctx context.Context, filters models.AudienceFilters, limit int) (*ContactBatch, error) {
	var resp providerContactsResponse
	if err := p.post(ctx, "/v1/audience/contacts", providerContactsRequest{Filters: filters, Limit: limit}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Contacts) > limit {
		resp.Contacts = resp.Contacts[:limit]
	}
	return &ContactBatch{Contacts: resp.Contacts}, nil
}

func (p *HTTPContactProvider) post(ctx context.Context, path string, body, out any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("contact provider rate limit wait: %w", err)
	}

	requestBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal provider request: %w", err)
	}

	url := strings.TrimRight(p.config.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(requestBody))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrProviderUnavailable, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode provider response: %w", err)
	}
	return nil
}

// MockContactProvider returns deterministic synthetic data derived from the filters.
// Every batch it returns is flagged as mock data.
type MockContactProvider struct{}

// NewMockContactProvider creates a mock provider
func NewMockContactProvider() *MockContactProvider {
	return &MockContactProvider{}
}

// Name returns the provider name
func (p *MockContactProvider) Name() string { return "mock" }

const (
	mockAdultPopulation = 250_000_000
	mockContactsPerZip  = 12_000
	mockStates          = 50
	mockCitiesPerState  = 40
	mockAgeSpan         = 120 - 18 + 1
	mockIncomeCeiling   = 500_000
)

// Count estimates the audience size by narrowing a national population per criterion
func (p *MockContactProvider) Count(ctx context.Context, filters models.AudienceFilters) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f := filters.Normalized()

	size := float64(mockAdultPopulation)
	switch {
	case len(f.ZipCodes) > 0:
		size = float64(len(f.ZipCodes) * mockContactsPerZip)
	case f.City != "":
		size /= mockStates * mockCitiesPerState
	case f.State != "":
		size /= mockStates
	}

	if f.AgeMin != nil || f.AgeMax != nil {
		lo, hi := 18, 120
		if f.AgeMin != nil {
			lo = *f.AgeMin
		}
		if f.AgeMax != nil {
			hi = *f.AgeMax
		}
		size *= float64(hi-lo+1) / mockAgeSpan
	}
	if f.IncomeMin != nil || f.IncomeMax != nil {
		lo, hi := 0, mockIncomeCeiling
		if f.IncomeMin != nil {
			lo = min(*f.IncomeMin, mockIncomeCeiling)
		}
		if f.IncomeMax != nil {
			hi = min(*f.IncomeMax, mockIncomeCeiling)
		}
		size *= math.Max(float64(hi-lo), 1) / mockIncomeCeiling
	}
	if f.Homeowner != nil {
		if *f.Homeowner {
			size *= 0.65
		} else {
			size *= 0.35
		}
	}
	for range f.Interests {
		size *= 0.3
	}
	for range f.Behaviors {
		size *= 0.4
	}

	// +/-5% jitter keyed on the filters so equal filters give equal counts
	rng := mockRand(f)
	size *= 0.95 + rng.Float64()*0.1

	return int64(math.Round(size)), nil
}

// FetchContacts generates up to limit synthetic contacts consistent with the filters
func (p *MockContactProvider) FetchContacts(ctx context.Context, filters models.AudienceFilters, limit int) (*ContactBatch, error) {
	count, err := p.Count(ctx, filters)
	if err != nil {
		return nil, err
	}
	n := int(min(int64(limit), count))
	if n < 0 {
		n = 0
	}

	f := filters.Normalized()
	rng := mockRand(f)
	contacts := make([]ProviderContact, 0, n)
	for i := 0; i < n; i++ {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		contacts = append(contacts, mockContact(rng, f))
	}
	return &ContactBatch{Contacts: contacts, IsMock: true}, nil
}

var (
	mockFirstNames = []string{"James", "Mary", "Robert", "Patricia", "John", "Jennifer", "Michael", "Linda", "David", "Elizabeth", "William", "Barbara", "Richard", "Susan", "Joseph", "Jessica", "Thomas", "Sarah", "Carlos", "Maria"}
	mockLastNames  = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Rodriguez", "Martinez", "Hernandez", "Lopez", "Gonzalez", "Wilson", "Anderson", "Thomas", "Taylor", "Moore", "Jackson", "Martin"}
	mockStreets    = []string{"Main St", "Oak Ave", "Pine St", "Maple Dr", "Cedar Ln", "Elm St", "Washington Blvd", "Lake Rd", "Hill St", "Park Ave"}
	mockCities     = map[string][]string{
		"CA": {"Los Angeles", "San Diego", "San Jose", "Sacramento", "Fresno"},
		"TX": {"Houston", "Austin", "Dallas", "San Antonio"},
		"NY": {"New York", "Buffalo", "Rochester", "Albany"},
		"FL": {"Miami", "Orlando", "Tampa", "Jacksonville"},
	}
	mockStateCodes = []string{"CA", "TX", "NY", "FL"}
	mockInterests  = []string{"travel", "fitness", "cooking", "gardening", "golf", "pets", "technology", "home improvement"}
)

func mockRand(f models.AudienceFilters) *rand.Rand {
	sum, _ := hex.DecodeString(f.Hash())
	var seed [2]uint64
	if len(sum) >= 16 {
		seed[0] = binary.BigEndian.Uint64(sum[:8])
		seed[1] = binary.BigEndian.Uint64(sum[8:16])
	}
	return rand.New(rand.NewPCG(seed[0], seed[1]))
}

func mockContact(rng *rand.Rand, f models.AudienceFilters) ProviderContact {
	state := f.State
	if state == "" {
		state = mockStateCodes[rng.IntN(len(mockStateCodes))]
	}
	city := f.City
	if city == "" {
		cities, ok := mockCities[state]
		if !ok {
			cities = []string{"Springfield", "Franklin", "Greenville"}
		}
		city = cities[rng.IntN(len(cities))]
	}
	zip := fmt.Sprintf("%05d", 10000+rng.IntN(89999))
	if len(f.ZipCodes) > 0 {
		zip = f.ZipCodes[rng.IntN(len(f.ZipCodes))]
	}

	interests := f.Interests
	if len(interests) == 0 {
		interests = []string{mockInterests[rng.IntN(len(mockInterests))]}
	}

	contact := ProviderContact{
		FirstName:    mockFirstNames[rng.IntN(len(mockFirstNames))],
		LastName:     mockLastNames[rng.IntN(len(mockLastNames))],
		AddressLine1: fmt.Sprintf("%d %s", 100+rng.IntN(9900), mockStreets[rng.IntN(len(mockStreets))]),
		City:         city,
		State:        state,
		Zip:          zip,
		Phone:        fmt.Sprintf("(%03d) %03d-%04d", 200+rng.IntN(799), 200+rng.IntN(799), rng.IntN(10000)),
		Interests:    append([]string(nil), interests...),
	}
	if rng.IntN(5) == 0 {
		contact.AddressLine2 = fmt.Sprintf("Apt %d", 1+rng.IntN(40))
	}
	return contact
}
