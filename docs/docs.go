// Package docs registers the OpenAPI document served at /swagger.
// Regenerate with: swag init -g cmd/server/main.go
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
        "/v1/attendance/checkin": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["attendance"],
                "summary": "Opens attendance sessions",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"type": "array", "items": {"$ref": "#/definitions/dto.CheckInRequest"}}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/dto.CheckInSuccess"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ResultError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ResultError"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/apierror.APIError"}}
                }
            }
        },
        "/v1/attendance/checkout": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["attendance"],
                "summary": "Closes attendance sessions",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"type": "array", "items": {"$ref": "#/definitions/dto.CheckOutRequest"}}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/dto.CheckOutSuccess"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ResultError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ResultError"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/apierror.APIError"}}
                }
            }
        },
        "/v1/attendance/active": {
            "get": {
                "produces": ["application/json"],
                "tags": ["attendance"],
                "summary": "Lists open attendance sessions",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/dto.ActiveSessionResponse"}}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/apierror.APIError"}}
                }
            }
        },
        "/v1/roster": {
            "get": {
                "produces": ["application/json"],
                "tags": ["roster"],
                "summary": "Lists the roster, most recently active first",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/dto.PersonResponse"}}}
                }
            }
        },
        "/v1/roster/import": {
            "post": {
                "consumes": ["text/csv"],
                "produces": ["application/json"],
                "tags": ["roster"],
                "summary": "Upserts roster entries from CSV",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.RosterImportResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/apierror.APIError"}}
                }
            }
        }
    },
    "definitions": {
        "apierror.APIError": {"type": "object", "properties": {"detail": {"type": "string"}}},
        "dto.LookupKey": {"type": "object", "properties": {"external_id": {"type": "integer"}, "biometric_token": {"type": "string"}}},
        "dto.CheckInRequest": {"type": "object", "properties": {"external_id": {"type": "integer"}, "biometric_token": {"type": "string"}, "check_in_at": {"type": "string", "format": "date-time"}}},
        "dto.CheckOutRequest": {"type": "object", "properties": {"external_id": {"type": "integer"}, "biometric_token": {"type": "string"}, "check_out_at": {"type": "string", "format": "date-time"}}},
        "dto.CheckInSuccess": {"type": "object", "properties": {"status": {"type": "string"}, "message": {"type": "string"}, "person_external_id": {"type": "integer"}, "display_name": {"type": "string"}, "check_in_at": {"type": "string"}, "method": {"type": "string"}}},
        "dto.CheckOutSuccess": {"type": "object", "properties": {"status": {"type": "string"}, "message": {"type": "string"}, "person_external_id": {"type": "integer"}, "display_name": {"type": "string"}, "check_in_at": {"type": "string"}, "check_out_at": {"type": "string"}, "duration": {"type": "string"}, "method": {"type": "string"}, "last_activity_at": {"type": "string"}}},
        "dto.SessionContext": {"type": "object", "properties": {"session_id": {"type": "integer"}, "check_in_at": {"type": "string"}, "method": {"type": "string"}}},
        "dto.ResultError": {"type": "object", "properties": {"status": {"type": "string"}, "code": {"type": "string"}, "message": {"type": "string"}, "lookup_key": {"$ref": "#/definitions/dto.LookupKey"}, "session": {"$ref": "#/definitions/dto.SessionContext"}}},
        "dto.ActiveSessionResponse": {"type": "object", "properties": {"session_id": {"type": "integer"}, "external_id": {"type": "integer"}, "display_name": {"type": "string"}, "check_in_at": {"type": "string"}, "method": {"type": "string"}}},
        "dto.PersonResponse": {"type": "object", "properties": {"person_key": {"type": "integer"}, "external_id": {"type": "integer"}, "display_name": {"type": "string"}, "biometric_token": {"type": "string"}, "last_activity_at": {"type": "string"}}},
        "dto.RosterImportError": {"type": "object", "properties": {"line": {"type": "integer"}, "message": {"type": "string"}}},
        "dto.RosterImportResponse": {"type": "object", "properties": {"created": {"type": "integer"}, "updated": {"type": "integer"}, "errors": {"type": "array", "items": {"$ref": "#/definitions/dto.RosterImportError"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "UCS Attendance API",
	Description:      "Check-in / check-out tracking against a person roster.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
