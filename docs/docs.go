// Package docs registers the OpenAPI document served at /api/swagger.json.
// Regenerate with: swag init -g main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/api/health": {"get": {"tags": ["Health"], "summary": "Health check", "responses": {"200": {"description": "Service is healthy"}}}},
        "/api/auth/check-admin": {"get": {"tags": ["Auth"], "summary": "Check admin", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Admin flag"}}}},
        "/api/audience/count": {"post": {"tags": ["Audience"], "summary": "Count audience", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Audience counted"}, "400": {"description": "Invalid filters"}, "502": {"description": "Contact provider unavailable"}}}},
        "/api/audience/purchase": {"post": {"tags": ["Audience"], "summary": "Purchase audience", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Audience purchased"}, "402": {"description": "Insufficient credits"}, "422": {"description": "No contacts available"}}}},
        "/api/audience/save": {"post": {"tags": ["Audience"], "summary": "Save audience", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Audience saved"}}}},
        "/api/audience/saved": {"get": {"tags": ["Audience"], "summary": "List saved audiences", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Saved audiences"}}}},
        "/api/organization/credits": {"get": {"tags": ["Credits"], "summary": "Get credit balance", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Credit balance"}}}},
        "/api/organization/credits/history": {"get": {"tags": ["Credits"], "summary": "Credit history", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Credit history"}}}},
        "/api/organization/credits/deposit": {"post": {"tags": ["Credits"], "summary": "Deposit credits (admin)", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Credits deposited"}, "403": {"description": "Admin privileges required"}}}},
        "/api/campaigns": {
            "get": {"tags": ["Campaigns"], "summary": "List Campaigns", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Campaigns"}}},
            "post": {"tags": ["Campaigns"], "summary": "Create Campaign", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Campaign created successfully"}}}
        },
        "/api/campaigns/{id}": {
            "get": {"tags": ["Campaigns"], "summary": "Get Campaign", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Campaign"}, "404": {"description": "Campaign not found"}}},
            "patch": {"tags": ["Campaigns"], "summary": "Update Campaign", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Campaign updated successfully"}, "409": {"description": "Update not allowed in current status"}}}
        },
        "/api/campaigns/{id}/performance": {"get": {"tags": ["Campaigns"], "summary": "Campaign performance", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Performance"}}}},
        "/api/design-templates": {
            "get": {"tags": ["Design Templates"], "summary": "List design templates", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Templates"}}},
            "post": {"tags": ["Design Templates"], "summary": "Save design template", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Template saved"}}}
        },
        "/api/design-templates/{id}": {"get": {"tags": ["Design Templates"], "summary": "Get design template", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Template"}}}},
        "/api/canvas-session/create": {"post": {"tags": ["Canvas Sessions"], "summary": "Create canvas session", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Session created"}, "413": {"description": "Payload too large"}}}},
        "/api/canvas-session/{id}": {"get": {"tags": ["Canvas Sessions"], "summary": "Get canvas session", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Session"}, "404": {"description": "Session not found or expired"}}}},
        "/api/recipient-lists/{id}": {"get": {"tags": ["Recipient Lists"], "summary": "Get recipient list", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Recipient list"}}}},
        "/api/recipient-lists/{id}/export": {"get": {"tags": ["Recipient Lists"], "summary": "Export recipient list", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "XLSX workbook"}}}},
        "/api/tracking/conversions": {"post": {"tags": ["Tracking"], "summary": "Record conversion", "responses": {"201": {"description": "Conversion recorded"}}}},
        "/t/{trackingId}": {"get": {"tags": ["Tracking"], "summary": "Record visit", "responses": {"200": {"description": "Visit recorded"}, "404": {"description": "Unknown tracking id"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Mailpiece API",
	Description:      "Direct-mail campaign platform: audience purchase, postcard design, campaigns and attribution.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
