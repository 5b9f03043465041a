package wizard

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/mailpiece/app/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	templateID = "6f1d3c1e-9a43-4b8e-8f7e-1f0c2a9d4b11"
	listID     = "0b8f6b7a-2d7c-4c55-9a0e-5d7e3c1f2a22"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func reviewed(t *testing.T) State {
	t.Helper()
	s := Start()
	inputs := []Input{
		TemplateSelected{TemplateID: templateID, Tags: []string{"customer-name", "customer-address", "customer-name"}},
		AudienceSelected{RecipientListID: listID},
		MappingsSet{Mappings: map[string]string{"customer-name": "full_name", "customer-address": "full_address"}},
	}
	for _, in := range inputs {
		var err error
		s, err = Reduce(s, in)
		require.NoError(t, err)
	}
	require.Equal(t, StepReview, s.Step)
	return s
}

func TestReduce_AdvancesOneStep(t *testing.T) {
	s := Start()
	assert.Equal(t, StepTemplate, s.Step)

	s, err := Reduce(s, TemplateSelected{TemplateID: templateID, Tags: []string{"customer-name", "customer-name"}})
	require.NoError(t, err)
	assert.Equal(t, StepAudience, s.Step)
	assert.Equal(t, []string{"customer-name"}, s.TemplateTags)

	s, err = Reduce(s, AudienceSelected{RecipientListID: listID})
	require.NoError(t, err)
	assert.Equal(t, StepMapping, s.Step)

	s, err = Reduce(s, MappingsSet{Mappings: map[string]string{"customer-name": "first_name"}})
	require.NoError(t, err)
	assert.Equal(t, StepReview, s.Step)

	s, err = Reduce(s, Details{Name: "  Spring promo  ", Now: now})
	require.NoError(t, err)
	assert.Equal(t, StepReview, s.Step)
	assert.Equal(t, "Spring promo", s.Name)
}

func TestReduce_RejectsInputForOtherStep(t *testing.T) {
	s := Start()
	out, err := Reduce(s, AudienceSelected{RecipientListID: listID})
	assert.ErrorIs(t, err, ErrWrongStep)
	assert.Equal(t, s, out)

	_, err = Reduce(s, nil)
	assert.ErrorIs(t, err, ErrWrongStep)
}

func TestReduce_Validation(t *testing.T) {
	tests := []struct {
		name  string
		state State
		input Input
		want  error
	}{
		{"template id", Start(), TemplateSelected{TemplateID: "tpl-1"}, ErrInvalidTemplate},
		{"list id", State{Step: StepAudience}, AudienceSelected{}, ErrInvalidAudience},
		{"unknown field", State{Step: StepMapping}, MappingsSet{Mappings: map[string]string{"customer-name": "nickname"}}, ErrUnknownField},
		{"unmapped tag", State{Step: StepMapping, TemplateTags: []string{"customer-name"}}, MappingsSet{Mappings: map[string]string{}}, ErrUnmappedTag},
		{"blank name", State{Step: StepReview}, Details{Name: "  ", Now: now}, ErrInvalidName},
		{"past schedule", State{Step: StepReview}, Details{Name: "x", ScheduledAt: &now, Now: now}, ErrScheduleInPast},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Reduce(tt.state, tt.input)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.state.Step, out.Step)
		})
	}
}

func TestReduce_DoesNotAlias(t *testing.T) {
	s := reviewed(t)
	mappings := map[string]string{"customer-name": "first_name", "customer-address": "full_address"}

	back := GoTo(s, StepMapping)
	next, err := Reduce(back, MappingsSet{Mappings: mappings})
	require.NoError(t, err)

	mappings["customer-name"] = "last_name"
	next.VariableMappings["customer-address"] = "city"
	next.TemplateTags[0] = "changed"

	assert.Equal(t, "full_name", s.VariableMappings["customer-name"])
	assert.Equal(t, "full_address", back.VariableMappings["customer-address"])
	assert.Equal(t, "first_name", next.VariableMappings["customer-name"])
	assert.Equal(t, "customer-address", back.TemplateTags[0])
}

func TestReduce_NewTemplateClearsMappings(t *testing.T) {
	s := GoTo(reviewed(t), StepTemplate)

	same, err := Reduce(s, TemplateSelected{TemplateID: templateID, Tags: []string{"customer-name", "customer-address"}})
	require.NoError(t, err)
	assert.Len(t, same.VariableMappings, 2)

	other, err := Reduce(s, TemplateSelected{TemplateID: "2a1b7e0c-3c5d-4e6f-8a9b-0c1d2e3f4a5b"})
	require.NoError(t, err)
	assert.Nil(t, other.VariableMappings)
	assert.Equal(t, listID, other.RecipientListID)
}

func TestGoTo(t *testing.T) {
	s := reviewed(t)

	tests := []struct {
		target Step
		want   Step
	}{
		{StepTemplate, StepTemplate},
		{StepAudience, StepAudience},
		{StepMapping, StepMapping},
		{StepReview, StepReview},
		{Step(5), StepReview},
		{Step(0), StepReview},
	}
	for _, tt := range tests {
		t.Run(tt.target.String(), func(t *testing.T) {
			out := GoTo(s, tt.target)
			assert.Equal(t, tt.want, out.Step)
			assert.Equal(t, s.VariableMappings, out.VariableMappings)
			assert.Equal(t, listID, out.RecipientListID)
		})
	}

	mid := GoTo(s, StepAudience)
	assert.Equal(t, StepAudience, GoTo(mid, StepMapping).Step, "forward jumps are ignored")
	assert.Equal(t, StepAudience, GoTo(mid, StepAudience).Step)
}

func TestRequest(t *testing.T) {
	_, err := Request(Start())
	assert.ErrorIs(t, err, ErrNotReviewed)

	s := reviewed(t)
	_, err = Request(s)
	assert.ErrorIs(t, err, ErrInvalidName)

	when := now.Add(72 * time.Hour)
	s, err = Reduce(s, Details{Name: "Spring promo", ScheduledAt: &when, Now: now})
	require.NoError(t, err)

	req, err := Request(s)
	require.NoError(t, err)
	assert.Equal(t, "Spring promo", req.Name)
	assert.Equal(t, templateID, req.DesignTemplateID)
	assert.Equal(t, listID, req.RecipientListID)
	assert.Equal(t, map[string]string{"customer-name": "full_name", "customer-address": "full_address"}, req.VariableMappings)
	require.NotNil(t, req.ScheduledAt)
	assert.True(t, when.Equal(*req.ScheduledAt))
}

type fakeCreator struct {
	got *dto.CreateCampaignRequest
	err error
}

func (f *fakeCreator) CreateCampaign(_ context.Context, req *dto.CreateCampaignRequest) (*dto.CampaignResponse, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &dto.CampaignResponse{ID: "c-1", Name: req.Name, Status: "draft"}, nil
}

func TestLaunch(t *testing.T) {
	s, err := Reduce(reviewed(t), Details{Name: "Spring promo", Now: now})
	require.NoError(t, err)

	api := &fakeCreator{}
	resp, err := Launch(context.Background(), api, s)
	require.NoError(t, err)
	assert.Equal(t, "c-1", resp.ID)
	assert.Equal(t, "Spring promo", api.got.Name)

	api = &fakeCreator{err: assert.AnError}
	_, err = Launch(context.Background(), api, s)
	assert.ErrorIs(t, err, assert.AnError)

	api = &fakeCreator{}
	_, err = Launch(context.Background(), api, GoTo(s, StepMapping))
	assert.ErrorIs(t, err, ErrNotReviewed)
	assert.Nil(t, api.got)
}
