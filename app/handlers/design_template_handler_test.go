package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/amirphl/mailpiece/app/dto"
	businessflow "github.com/amirphl/mailpiece/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDesignTemplateFlow struct {
	saveReq *dto.SaveDesignTemplateRequest
	listReq *dto.ListDesignTemplatesRequest
	getID   string
	err     error
}

func (f *fakeDesignTemplateFlow) SaveTemplate(_ context.Context, req *dto.SaveDesignTemplateRequest, _ *businessflow.ClientMetadata) (*dto.DesignTemplateResponse, error) {
	f.saveReq = req
	if f.err != nil {
		return nil, f.err
	}
	id := "0d9b8f3e-0b39-4f7c-9a62-5d4f7c1e2a10"
	if req.ID != nil {
		id = *req.ID
	}
	return &dto.DesignTemplateResponse{ID: id, Name: req.Name, Width: req.Width, Height: req.Height, CanvasJSON: req.CanvasJSON, CreatedAt: time.Now()}, nil
}

func (f *fakeDesignTemplateFlow) GetTemplate(_ context.Context, customerID uint, id string) (*dto.DesignTemplateResponse, error) {
	f.getID = id
	if f.err != nil {
		return nil, f.err
	}
	return &dto.DesignTemplateResponse{ID: id, Name: "Spring sale", Width: 600, Height: 400, CanvasJSON: json.RawMessage(`{"objects":[]}`)}, nil
}

func (f *fakeDesignTemplateFlow) ListTemplates(_ context.Context, req *dto.ListDesignTemplatesRequest) (*dto.ListDesignTemplatesResponse, error) {
	f.listReq = req
	return &dto.ListDesignTemplatesResponse{
		Items:      []dto.DesignTemplateResponse{{ID: "t-1", Name: "Spring sale"}, {ID: "t-2", Name: "Open house"}},
		Pagination: dto.NewPaginationInfo(2, req.Page, req.Limit),
	}, nil
}

func designTemplateApp(flow *fakeDesignTemplateFlow, s *session) *fiber.App {
	h := NewDesignTemplateHandler(flow)
	app := newTestApp(s)
	app.Post("/api/design-templates", h.SaveTemplate)
	app.Get("/api/design-templates", h.ListTemplates)
	app.Get("/api/design-templates/:id", h.GetTemplate)
	return app
}

func TestDesignTemplateHandler_Save(t *testing.T) {
	valid := map[string]any{
		"name":       "Spring sale",
		"width":      600,
		"height":     400,
		"canvasJson": map[string]any{"objects": []any{}},
	}

	t.Run("creates for the caller", func(t *testing.T) {
		flow := &fakeDesignTemplateFlow{}
		resp, envelope := doJSON(t, designTemplateApp(flow, &session{customerID: 8}), http.MethodPost, "/api/design-templates", valid)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		require.NotNil(t, flow.saveReq)
		assert.Equal(t, uint(8), flow.saveReq.CustomerID)
		assert.Nil(t, flow.saveReq.ID)
		assert.JSONEq(t, `{"objects":[]}`, string(flow.saveReq.CanvasJSON))

		data := dataMap(t, envelope)
		assert.Equal(t, "Spring sale", data["name"])
		assert.Equal(t, float64(600), data["width"])
	})

	t.Run("updates in place", func(t *testing.T) {
		flow := &fakeDesignTemplateFlow{}
		body := map[string]any{"id": "5b1c1f64-6c02-4a5e-8d0b-0c7a3f1f9e21"}
		for k, v := range valid {
			body[k] = v
		}
		resp, envelope := doJSON(t, designTemplateApp(flow, &session{customerID: 8}), http.MethodPost, "/api/design-templates", body)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "5b1c1f64-6c02-4a5e-8d0b-0c7a3f1f9e21", dataMap(t, envelope)["id"])
	})

	t.Run("validation", func(t *testing.T) {
		flow := &fakeDesignTemplateFlow{}
		resp, envelope := doJSON(t, designTemplateApp(flow, &session{customerID: 8}), http.MethodPost, "/api/design-templates", map[string]any{"name": "No size"})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, envelope))
		assert.Nil(t, flow.saveReq)
	})

	t.Run("unknown template id", func(t *testing.T) {
		flow := &fakeDesignTemplateFlow{err: businessflow.ErrDesignTemplateNotFound}
		body := map[string]any{"id": "5b1c1f64-6c02-4a5e-8d0b-0c7a3f1f9e21"}
		for k, v := range valid {
			body[k] = v
		}
		resp, envelope := doJSON(t, designTemplateApp(flow, &session{customerID: 8}), http.MethodPost, "/api/design-templates", body)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "DESIGN_TEMPLATE_NOT_FOUND", errorCode(t, envelope))
	})

	t.Run("unauthenticated", func(t *testing.T) {
		resp, _ := doJSON(t, designTemplateApp(&fakeDesignTemplateFlow{}, nil), http.MethodPost, "/api/design-templates", valid)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}

func TestDesignTemplateHandler_GetAndList(t *testing.T) {
	flow := &fakeDesignTemplateFlow{}
	app := designTemplateApp(flow, &session{customerID: 8})

	resp, envelope := doJSON(t, app, http.MethodGet, "/api/design-templates/t-9", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "t-9", flow.getID)
	assert.Equal(t, map[string]any{"objects": []any{}}, dataMap(t, envelope)["canvasJson"])

	resp, envelope = doJSON(t, app, http.MethodGet, "/api/design-templates?page=2&limit=1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NotNil(t, flow.listReq)
	assert.Equal(t, 2, flow.listReq.Page)
	assert.Equal(t, 1, flow.listReq.Limit)
	assert.Len(t, dataMap(t, envelope)["items"], 2)

	flow.err = businessflow.ErrDesignTemplateNotFound
	resp, envelope = doJSON(t, app, http.MethodGet, "/api/design-templates/missing", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "DESIGN_TEMPLATE_NOT_FOUND", errorCode(t, envelope))
}
