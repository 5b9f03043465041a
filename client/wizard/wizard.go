// Package wizard drives campaign creation as a pure state machine:
// template, audience, variable mapping, review. Every transition returns a new
// State and never mutates or aliases its input.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/amirphl/mailpiece/app/dto"
	"github.com/amirphl/mailpiece/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Step is a wizard page, numbered from 1
type Step int

const (
	StepTemplate Step = iota + 1
	StepAudience
	StepMapping
	StepReview
)

func (s Step) String() string {
	switch s {
	case StepTemplate:
		return "template"
	case StepAudience:
		return "audience"
	case StepMapping:
		return "mapping"
	case StepReview:
		return "review"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

var (
	ErrWrongStep       = errors.New("input does not belong to the current step")
	ErrInvalidTemplate = errors.New("a valid design template must be selected")
	ErrInvalidAudience = errors.New("a valid recipient list must be selected")
	ErrUnmappedTag     = errors.New("every template tag must be mapped")
	ErrUnknownField    = errors.New("mapping refers to an unknown contact field")
	ErrInvalidName     = errors.New("campaign name must be 1 to 160 characters")
	ErrScheduleInPast  = errors.New("schedule date must be in the future")
	ErrNotReviewed     = errors.New("wizard has not reached the review step")
)

// State is everything collected so far
type State struct {
	Step             Step
	Name             string
	DesignTemplateID string
	// TemplateTags are the merge tags the chosen template uses
	TemplateTags     []string
	RecipientListID  string
	VariableMappings map[string]string
	ScheduledAt      *time.Time
}

// Start returns the state of a fresh wizard
func Start() State {
	return State{Step: StepTemplate}
}

func (s State) clone() State {
	cp := s
	cp.TemplateTags = slices.Clone(s.TemplateTags)
	cp.VariableMappings = maps.Clone(s.VariableMappings)
	if s.ScheduledAt != nil {
		t := *s.ScheduledAt
		cp.ScheduledAt = &t
	}
	return cp
}

// Input is what one step submits
type Input interface {
	step() Step
	apply(State) (State, error)
}

// TemplateSelected picks the design template
type TemplateSelected struct {
	TemplateID string
	Tags       []string
}

func (TemplateSelected) step() Step { return StepTemplate }

func (in TemplateSelected) apply(s State) (State, error) {
	if _, err := uuid.Parse(in.TemplateID); err != nil {
		return s, ErrInvalidTemplate
	}
	if in.TemplateID != s.DesignTemplateID {
		s.VariableMappings = nil
	}
	s.DesignTemplateID = in.TemplateID
	s.TemplateTags = slices.Compact(slices.Sorted(slices.Values(in.Tags)))
	return s, nil
}

// AudienceSelected picks the purchased recipient list
type AudienceSelected struct {
	RecipientListID string
}

func (AudienceSelected) step() Step { return StepAudience }

func (in AudienceSelected) apply(s State) (State, error) {
	if _, err := uuid.Parse(in.RecipientListID); err != nil {
		return s, ErrInvalidAudience
	}
	s.RecipientListID = in.RecipientListID
	return s, nil
}

// MappingsSet maps template tags onto contact fields
type MappingsSet struct {
	Mappings map[string]string
}

func (MappingsSet) step() Step { return StepMapping }

func (in MappingsSet) apply(s State) (State, error) {
	fields := (&models.Contact{}).MergeFields()
	for tag, field := range in.Mappings {
		if strings.TrimSpace(tag) == "" {
			return s, fmt.Errorf("%w: empty tag", ErrUnmappedTag)
		}
		if _, ok := fields[field]; !ok {
			return s, fmt.Errorf("%w: %s -> %s", ErrUnknownField, tag, field)
		}
	}
	for _, tag := range s.TemplateTags {
		if _, ok := in.Mappings[tag]; !ok {
			return s, fmt.Errorf("%w: %s", ErrUnmappedTag, tag)
		}
	}
	s.VariableMappings = maps.Clone(in.Mappings)
	return s, nil
}

// Details edits the campaign name and schedule on the review page.
// Review is the last step so this input keeps the wizard where it is.
type Details struct {
	Name        string
	ScheduledAt *time.Time
	Now         time.Time
}

func (Details) step() Step { return StepReview }

func (in Details) apply(s State) (State, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || len([]rune(name)) > 160 {
		return s, ErrInvalidName
	}
	if in.ScheduledAt != nil && !in.ScheduledAt.After(in.Now) {
		return s, ErrScheduleInPast
	}
	s.Name = name
	s.ScheduledAt = nil
	if in.ScheduledAt != nil {
		t := in.ScheduledAt.UTC()
		s.ScheduledAt = &t
	}
	return s, nil
}

// Reduce applies in to s. A valid input for the current step advances the
// wizard by exactly one step; on error the returned state equals s.
func Reduce(s State, in Input) (State, error) {
	if in == nil || in.step() != s.Step {
		return s.clone(), ErrWrongStep
	}

	next, err := in.apply(s.clone())
	if err != nil {
		return s.clone(), err
	}
	if next.Step < StepReview {
		next.Step++
	}
	return next, nil
}

// GoTo moves back to an earlier step keeping all data. Any target not strictly
// before the current step leaves the state unchanged.
func GoTo(s State, target Step) State {
	out := s.clone()
	if target >= StepTemplate && target < s.Step {
		out.Step = target
	}
	return out
}

var validate = validator.New()

// Request assembles the single create call sent from the review step
func Request(s State) (*dto.CreateCampaignRequest, error) {
	if s.Step != StepReview {
		return nil, ErrNotReviewed
	}
	if s.Name == "" {
		return nil, ErrInvalidName
	}

	req := &dto.CreateCampaignRequest{
		Name:             s.Name,
		DesignTemplateID: s.DesignTemplateID,
		RecipientListID:  s.RecipientListID,
		VariableMappings: maps.Clone(s.VariableMappings),
	}
	if s.ScheduledAt != nil {
		t := *s.ScheduledAt
		req.ScheduledAt = &t
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid campaign request: %w", err)
	}
	return req, nil
}

// CampaignCreator is the slice of the API client Launch needs
type CampaignCreator interface {
	CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest) (*dto.CampaignResponse, error)
}

// Launch submits the wizard. Nothing is persisted before this call.
func Launch(ctx context.Context, api CampaignCreator, s State) (*dto.CampaignResponse, error) {
	req, err := Request(s)
	if err != nil {
		return nil, err
	}
	resp, err := api.CreateCampaign(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}
	return resp, nil
}
