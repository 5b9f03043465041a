package models

import (
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/crypto/blake2b"
)

var (
	ErrAgeRangeInvalid    = errors.New("ageMin must not exceed ageMax")
	ErrAgeOutOfBounds     = errors.New("age must be between 18 and 120")
	ErrIncomeRangeInvalid = errors.New("incomeMin must not exceed incomeMax")
	ErrIncomeNegative     = errors.New("income must not be negative")
)

// AudienceFilters is the flat bag of optional audience criteria.
// Unset fields do not constrain the audience.
type AudienceFilters struct {
	// Geography
	State    string   `json:"state,omitempty"`
	City     string   `json:"city,omitempty"`
	ZipCodes []string `json:"zipCodes,omitempty"`

	// Demographics
	AgeMin *int `json:"ageMin,omitempty"`
	AgeMax *int `json:"ageMax,omitempty"`

	// Financial
	IncomeMin *int  `json:"incomeMin,omitempty"`
	IncomeMax *int  `json:"incomeMax,omitempty"`
	Homeowner *bool `json:"homeowner,omitempty"`

	// Lifestyle
	Interests []string `json:"interests,omitempty"`
	Behaviors []string `json:"behaviors,omitempty"`
}

// IsEmpty reports whether no criterion is set
func (f AudienceFilters) IsEmpty() bool {
	return strings.TrimSpace(f.State) == "" &&
		strings.TrimSpace(f.City) == "" &&
		len(f.ZipCodes) == 0 &&
		f.AgeMin == nil && f.AgeMax == nil &&
		f.IncomeMin == nil && f.IncomeMax == nil &&
		f.Homeowner == nil &&
		len(f.Interests) == 0 &&
		len(f.Behaviors) == 0
}

// Validate checks range consistency of the numeric criteria
func (f AudienceFilters) Validate() error {
	for _, age := range []*int{f.AgeMin, f.AgeMax} {
		if age != nil && (*age < 18 || *age > 120) {
			return ErrAgeOutOfBounds
		}
	}
	if f.AgeMin != nil && f.AgeMax != nil && *f.AgeMin > *f.AgeMax {
		return ErrAgeRangeInvalid
	}
	for _, income := range []*int{f.IncomeMin, f.IncomeMax} {
		if income != nil && *income < 0 {
			return ErrIncomeNegative
		}
	}
	if f.IncomeMin != nil && f.IncomeMax != nil && *f.IncomeMin > *f.IncomeMax {
		return ErrIncomeRangeInvalid
	}
	return nil
}

// Normalized returns a copy with trimmed, upper-cased state, trimmed city and
// sorted, de-duplicated list criteria. The receiver is left untouched.
func (f AudienceFilters) Normalized() AudienceFilters {
	out := f
	out.State = strings.ToUpper(strings.TrimSpace(f.State))
	out.City = strings.TrimSpace(f.City)
	out.ZipCodes = normalizeList(f.ZipCodes, false)
	out.Interests = normalizeList(f.Interests, true)
	out.Behaviors = normalizeList(f.Behaviors, true)
	return out
}

// Hash returns a stable hex digest of the normalized criteria, used as the
// key for cached counts and saved-audience lookups.
func (f AudienceFilters) Hash() string {
	// Struct field order makes the encoding canonical once normalized.
	data, _ := json.Marshal(f.Normalized())
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Value implements the driver.Valuer interface for AudienceFilters
func (f AudienceFilters) Value() (driver.Value, error) {
	return json.Marshal(f)
}

// Scan implements the sql.Scanner interface for AudienceFilters
func (f *AudienceFilters) Scan(value any) error {
	if value == nil {
		*f = AudienceFilters{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into AudienceFilters", value)
	}

	return json.Unmarshal(bytes, f)
}

func normalizeList(in []string, lower bool) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if lower {
			s = strings.ToLower(s)
		}
		if s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
