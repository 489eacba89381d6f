package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Care Reminder API",
        "description": "Household care reminders: generation, prioritisation and completion.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [
        {"BearerAuth": []}
    ],
    "tags": [
        {"name": "CareEvents", "description": "Care event lifecycle"},
        {"name": "CareRuns", "description": "On-demand generation and priority adjustment"},
        {"name": "Feeding", "description": "Feeding schedules"},
        {"name": "Progress", "description": "Points and levels"},
        {"name": "Reports", "description": "Care history exports"},
        {"name": "Observability", "description": "Health checks and metrics"}
    ],
    "paths": {
        "/care-events": {
            "get": {
                "tags": ["CareEvents"],
                "summary": "List open care events",
                "parameters": [
                    {"name": "subject_id", "in": "query", "type": "string"},
                    {"name": "event_type", "in": "query", "type": "string", "enum": ["medication", "feeding", "checkup", "vaccination", "public_health_alert", "lifecycle_milestone", "custom"]},
                    {"name": "status", "in": "query", "type": "string", "description": "Comma separated: pending,active"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid filter", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["CareEvents"],
                "summary": "Create a custom reminder",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCustomEventRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/care-events/{id}": {
            "get": {
                "tags": ["CareEvents"],
                "summary": "Get a care event",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/care-events/{id}/activate": {
            "post": {
                "tags": ["CareEvents"],
                "summary": "Acknowledge a pending event",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not pending", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/care-events/{id}/cancel": {
            "post": {
                "tags": ["CareEvents"],
                "summary": "Dismiss an open event",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already resolved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/care-events/{id}/complete": {
            "post": {
                "tags": ["CareEvents"],
                "summary": "Complete an event",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/CompleteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already resolved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/care-runs/generate": {
            "post": {
                "tags": ["CareRuns"],
                "summary": "Generate care events for the caller",
                "responses": {
                    "200": {"description": "Generation report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Household unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/care-runs/adjust": {
            "post": {
                "tags": ["CareRuns"],
                "summary": "Re-prioritise the caller's pending events",
                "responses": {
                    "200": {"description": "Adjustment report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Store unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/feeding-schedules": {
            "get": {
                "tags": ["Feeding"],
                "summary": "List active feeding schedules",
                "parameters": [{"name": "subject_id", "in": "query", "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/feeding-schedules/{id}/feedings": {
            "post": {
                "tags": ["Feeding"],
                "summary": "Record a feeding",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": false, "schema": {"type": "object", "properties": {"fed_at": {"type": "string", "format": "date-time"}}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Feeding time rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/progress": {
            "get": {
                "tags": ["Progress"],
                "summary": "Cumulative points, experience and level",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/care-history": {
            "get": {
                "tags": ["Reports"],
                "summary": "Export care history",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "from", "in": "query", "required": true, "type": "string"},
                    {"name": "to", "in": "query", "required": true, "type": "string"},
                    {"name": "subject_id", "in": "query", "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Rendered report", "schema": {"type": "file"}},
                    "400": {"description": "Invalid range or format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateCustomEventRequest": {
            "type": "object",
            "required": ["title", "scheduled_time"],
            "properties": {
                "subject_id": {"type": "string"},
                "title": {"type": "string", "maxLength": 200},
                "notes": {"type": "string", "maxLength": 2000},
                "scheduled_time": {"type": "string", "format": "date-time"},
                "priority": {"type": "string", "enum": ["low", "normal", "high", "urgent"]}
            }
        },
        "CompleteRequest": {
            "type": "object",
            "properties": {
                "points": {"type": "integer", "minimum": 0},
                "experience": {"type": "integer", "minimum": 0}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
