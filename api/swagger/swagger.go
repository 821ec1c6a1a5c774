package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "LMS Stats API",
        "description": "Course completion statistics service backing the progress dashboard",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Statistics", "description": "Completion statistics, cache-first"},
        {"name": "Authentication", "description": "Dashboard login"}
    ],
    "paths": {
        "/stats/global": {
            "get": {
                "tags": ["Statistics"],
                "summary": "Global completion statistics",
                "parameters": [
                    {"name": "courseIds", "in": "query", "type": "string", "description": "Comma-separated course ids"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/GlobalStats"}},
                    "500": {"description": "Aggregation or cache failure", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/stats/courses": {
            "get": {
                "tags": ["Statistics"],
                "summary": "Per-course completion statistics",
                "parameters": [
                    {"name": "courseIds", "in": "query", "type": "string", "description": "Comma-separated course ids"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/CourseStats"}}},
                    "500": {"description": "Aggregation or cache failure", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/stats/last-updated": {
            "get": {
                "tags": ["Statistics"],
                "summary": "When the global statistics were last cached",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/LastUpdated"}}
                }
            }
        },
        "/stats/refresh": {
            "post": {
                "tags": ["Statistics"],
                "summary": "Recompute statistics and overwrite the cache",
                "description": "Walks every visible course on the LMS. Can take minutes on large sites.",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/RefreshResult"}},
                    "500": {"description": "Aggregation or cache failure", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/stats/export": {
            "get": {
                "tags": ["Statistics"],
                "summary": "Export per-course statistics as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "courseIds", "in": "query", "type": "string", "description": "Comma-separated course ids"}
                ],
                "responses": {
                    "200": {"description": "Document"},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate dashboard user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/LoginResponse"}},
                    "400": {"description": "Missing fields", "schema": {"$ref": "#/definitions/LoginError"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/LoginError"}}
                }
            }
        }
    },
    "definitions": {
        "GlobalStats": {
            "type": "object",
            "properties": {
                "approved": {"type": "integer"},
                "not_approved": {"type": "integer"},
                "in_progress": {"type": "integer"},
                "not_started": {"type": "integer"},
                "total": {"type": "integer"},
                "cachedAt": {"type": "string", "format": "date-time"}
            }
        },
        "CourseStats": {
            "type": "object",
            "properties": {
                "courseid": {"type": "integer"},
                "coursename": {"type": "string"},
                "approved": {"type": "integer"},
                "not_approved": {"type": "integer"},
                "in_progress": {"type": "integer"},
                "not_started": {"type": "integer"}
            }
        },
        "LastUpdated": {
            "type": "object",
            "properties": {
                "lastUpdated": {"type": "string", "format": "date-time", "x-nullable": true}
            }
        },
        "RefreshResult": {
            "type": "object",
            "properties": {
                "global": {"$ref": "#/definitions/GlobalStats"},
                "courses": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/CourseStats"}
                },
                "updatedAt": {"type": "string", "format": "date-time"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["username", "password"]
        },
        "LoginResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "user": {"type": "string"},
                "role": {"type": "string"},
                "token": {"type": "string"}
            }
        },
        "LoginError": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "error": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "details": {"type": "string"}
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
