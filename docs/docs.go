// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/server/main.go -o docs
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
    "paths": {
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.HealthResponse"}}
                }
            }
        },
        "/healthz/db": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Database health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.DBHealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/models.DBHealthResponse"}}
                }
            }
        },
        "/healthz/index": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Vector index health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.DBHealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/models.DBHealthResponse"}}
                }
            }
        },
        "/api/users/{userID}/ingest": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["ingest"],
                "summary": "Ingest sent messages",
                "parameters": [
                    {"type": "string", "description": "User ID", "name": "userID", "in": "path", "required": true},
                    {"description": "Messages to ingest", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.IngestRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.IngestResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/models.IngestResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/api/users/{userID}/examples/select": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["examples"],
                "summary": "Select style examples",
                "parameters": [
                    {"type": "string", "description": "User ID", "name": "userID", "in": "path", "required": true},
                    {"description": "Incoming message", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.SelectExamplesRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.ExampleSelectionResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/api/examples/{id}/usage": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["examples"],
                "summary": "Update example usage",
                "parameters": [
                    {"type": "string", "description": "Example ID", "name": "id", "in": "path", "required": true},
                    {"description": "Usage counters", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.UsageUpdateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.UsageStats"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/api/users/{userID}/patterns": {
            "get": {
                "produces": ["application/json"],
                "tags": ["patterns"],
                "summary": "List writing profiles",
                "parameters": [
                    {"type": "string", "description": "User ID", "name": "userID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.StoredProfile"}}}
                }
            }
        },
        "/api/users/{userID}/patterns/analyze": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["patterns"],
                "summary": "Analyze writing patterns",
                "parameters": [
                    {"type": "string", "description": "User ID", "name": "userID", "in": "path", "required": true},
                    {"description": "Relationship category", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/models.AnalyzePatternsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.StoredProfile"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/api/users/{userID}/patterns/{prefType}/{target}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["patterns"],
                "summary": "Get a writing profile",
                "parameters": [
                    {"type": "string", "description": "User ID", "name": "userID", "in": "path", "required": true},
                    {"type": "string", "description": "aggregate or category", "name": "prefType", "in": "path", "required": true},
                    {"type": "string", "description": "Profile target", "name": "target", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.StoredProfile"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/api/users/{userID}": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Purge user data",
                "parameters": [
                    {"type": "string", "description": "User ID", "name": "userID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/usage.PurgeResult"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/api/users/{userID}/account": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Register mailbox account",
                "parameters": [
                    {"type": "string", "description": "User ID", "name": "userID", "in": "path", "required": true},
                    {"description": "Mailbox account", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.AccountRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "501": {"description": "Not Implemented", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/api/users/{userID}/relationships": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Set contact relationship",
                "parameters": [
                    {"type": "string", "description": "User ID", "name": "userID", "in": "path", "required": true},
                    {"description": "Relationship override", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.RelationshipRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.RelationshipClassification"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/api/analytics/summary": {
            "get": {
                "produces": ["application/json"],
                "tags": ["analytics"],
                "summary": "Get analytics summary",
                "parameters": [
                    {"type": "string", "default": "yesterday", "description": "Time period (today, yesterday, last_7_days, last_30_days)", "name": "period", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.AnalyticsResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/models.AnalyticsResponse"}}
                }
            }
        }
    },
    "definitions": {
        "models.HealthResponse": {
            "type": "object",
            "properties": {"status": {"type": "string"}, "timestamp": {"type": "string"}, "version": {"type": "string"}}
        },
        "models.DBHealthResponse": {
            "type": "object",
            "properties": {"status": {"type": "string"}, "timestamp": {"type": "string"}, "connected": {"type": "boolean"}, "latency": {"type": "integer"}, "error": {"type": "string"}}
        },
        "models.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}, "details": {"type": "string"}}
        },
        "models.IngestRequest": {
            "type": "object",
            "properties": {
                "messages": {"type": "array", "items": {"type": "object", "properties": {"raw": {"type": "string"}, "relationship": {"$ref": "#/definitions/models.RelationshipClassification"}}}}
            }
        },
        "models.IngestResponse": {
            "type": "object",
            "properties": {"processed": {"type": "integer"}, "errors": {"type": "integer"}, "duration_ms": {"type": "integer"}, "relationship_distribution": {"type": "object", "additionalProperties": {"type": "integer"}}, "aborted": {"type": "boolean"}, "error": {"type": "string"}}
        },
        "models.SelectExamplesRequest": {
            "type": "object",
            "properties": {"incoming_text": {"type": "string"}, "recipient_email": {"type": "string"}, "subject": {"type": "string"}, "desired_count": {"type": "integer"}}
        },
        "models.ExampleSelectionResult": {
            "type": "object",
            "properties": {
                "relationship": {"$ref": "#/definitions/models.RelationshipClassification"},
                "examples": {"type": "array", "items": {"type": "object", "properties": {"id": {"type": "string"}, "text": {"type": "string"}, "score": {"type": "number"}, "direct": {"type": "boolean"}, "metadata": {"type": "object"}}}},
                "stats": {"type": "object", "properties": {"total_candidates": {"type": "integer"}, "relationship_matches": {"type": "integer"}, "direct_correspondence": {"type": "integer"}}}
            }
        },
        "models.UsageUpdateRequest": {
            "type": "object",
            "properties": {"used_count": {"type": "integer"}, "edit_count": {"type": "integer"}, "rating": {"type": "number"}}
        },
        "models.UsageStats": {
            "type": "object",
            "properties": {"frequency_score": {"type": "number"}, "edit_count": {"type": "integer"}, "rating": {"type": "number"}, "used_count": {"type": "integer"}}
        },
        "models.AnalyzePatternsRequest": {
            "type": "object",
            "properties": {"relationship_type": {"type": "string"}}
        },
        "models.StoredProfile": {
            "type": "object",
            "properties": {"user_id": {"type": "string"}, "preference_type": {"type": "string"}, "target_identifier": {"type": "string"}, "patterns": {"type": "object"}, "emails_analyzed": {"type": "integer"}, "batch_count": {"type": "integer"}, "updated_at": {"type": "string"}}
        },
        "models.AccountRequest": {
            "type": "object",
            "properties": {"email": {"type": "string"}, "host": {"type": "string"}, "port": {"type": "integer"}, "username": {"type": "string"}, "password": {"type": "string"}}
        },
        "models.RelationshipRequest": {
            "type": "object",
            "properties": {"recipient_email": {"type": "string"}, "relationship_type": {"type": "string"}}
        },
        "models.RelationshipClassification": {
            "type": "object",
            "properties": {"type": {"type": "string"}, "confidence": {"type": "number"}, "detection_method": {"type": "string"}}
        },
        "models.AnalyticsResponse": {
            "type": "object",
            "properties": {"success": {"type": "boolean"}, "summary": {"type": "object"}, "error": {"type": "string"}}
        },
        "usage.PurgeResult": {
            "type": "object",
            "properties": {"user_id": {"type": "string"}, "profiles_deleted": {"type": "integer"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Tonelearn API",
	Description:      "Learns a user's writing tone from sent mail and serves style examples and writing profiles.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
