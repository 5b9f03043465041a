package handlers

import (
	"net/http"
	"strings"
	"testing"

	businessflow "github.com/amirphl/mailpiece/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validTrackingID = "0123456789abcdef0123456789abcdef"

func trackingApp(flow *fakeTrackingFlow) *fiber.App {
	h := NewTrackingHandler(flow)
	app := newTestApp(nil)
	app.Get("/t/:trackingId", h.Visit)
	app.Post("/api/tracking/conversions", h.RecordConversion)
	return app
}

func TestTrackingHandler_Visit(t *testing.T) {
	t.Run("records without a session", func(t *testing.T) {
		flow := &fakeTrackingFlow{}
		resp, envelope := doJSON(t, trackingApp(flow), http.MethodGet, "/t/"+validTrackingID, nil)

		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "Ada", dataMap(t, envelope)["firstName"])
		assert.Equal(t, validTrackingID, flow.visitReq.TrackingID)
	})

	t.Run("malformed ids never reach the flow", func(t *testing.T) {
		for _, id := range []string{"short", strings.Repeat("z", 32), validTrackingID + "00"} {
			flow := &fakeTrackingFlow{}
			resp, envelope := doJSON(t, trackingApp(flow), http.MethodGet, "/t/"+id, nil)

			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, id)
			assert.Equal(t, "INVALID_TRACKING_ID", errorCode(t, envelope))
			assert.Nil(t, flow.visitReq)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		flow := &fakeTrackingFlow{err: businessflow.NewBusinessError("TRACKING_LOOKUP_FAILED", "lookup", businessflow.ErrTrackingIDNotFound)}
		resp, envelope := doJSON(t, trackingApp(flow), http.MethodGet, "/t/"+validTrackingID, nil)

		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "TRACKING_ID_NOT_FOUND", errorCode(t, envelope))
	})
}

func TestTrackingHandler_RecordConversion(t *testing.T) {
	flow := &fakeTrackingFlow{}
	resp, _ := doJSON(t, trackingApp(flow), http.MethodPost, "/api/tracking/conversions", map[string]any{
		"trackingId":     validTrackingID,
		"conversionType": "form_submission",
		"metadata":       map[string]any{"plan": "pro"},
	})

	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "form_submission", flow.conversionReq.ConversionType)
	assert.Equal(t, "pro", flow.conversionReq.Metadata["plan"])

	resp, _ = doJSON(t, trackingApp(&fakeTrackingFlow{}), http.MethodPost, "/api/tracking/conversions", map[string]any{"trackingId": validTrackingID})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
