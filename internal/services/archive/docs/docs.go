// Package docs holds the OpenAPI document served by swaggerkit
// keep it in step with the swag annotations on the archive handlers
package docs

import "github.com/swaggo/swag/v2"

const docTemplate = `{
    "openapi": "3.0.3",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "paths": {
        "/archive/posts/query": {
            "post": {
                "tags": ["Archive"],
                "summary": "Stored posts for identities over a date range",
                "description": "Read only. Never contacts the content source.",
                "operationId": "archiveQuery",
                "requestBody": {
                    "required": true,
                    "content": {"application/json": {"schema": {"$ref": "#/components/schemas/domain.RangeInput"}}}
                },
                "responses": {
                    "200": {
                        "description": "ok",
                        "content": {"application/json": {"schema": {"type": "array", "items": {"$ref": "#/components/schemas/domain.Post"}}}}
                    },
                    "422": {
                        "description": "invalid range or identity",
                        "content": {"application/json": {"schema": {"$ref": "#/components/schemas/ErrorResponse"}}}
                    }
                }
            }
        },
        "/archive/posts/ensure": {
            "post": {
                "tags": ["Archive"],
                "summary": "Fetch missing days then return stored posts",
                "description": "Gaps that fail are reported in failures; covered days are still returned.",
                "operationId": "archiveEnsure",
                "requestBody": {
                    "required": true,
                    "content": {"application/json": {"schema": {"$ref": "#/components/schemas/domain.RangeInput"}}}
                },
                "responses": {
                    "200": {
                        "description": "ok",
                        "content": {"application/json": {"schema": {"$ref": "#/components/schemas/domain.EnsureResp"}}}
                    },
                    "503": {
                        "description": "no content source configured",
                        "content": {"application/json": {"schema": {"$ref": "#/components/schemas/ErrorResponse"}}}
                    }
                }
            }
        },
        "/archive/coverage/plan": {
            "post": {
                "tags": ["Archive"],
                "summary": "Preview the gaps an ensure call would fetch",
                "operationId": "archivePlan",
                "requestBody": {
                    "required": true,
                    "content": {"application/json": {"schema": {"$ref": "#/components/schemas/domain.PlanInput"}}}
                },
                "responses": {
                    "200": {
                        "description": "ok",
                        "content": {"application/json": {"schema": {"$ref": "#/components/schemas/domain.PlanResp"}}}
                    }
                }
            }
        },
        "/archive/coverage/{identity}": {
            "get": {
                "tags": ["Archive"],
                "summary": "Covered intervals of one identity",
                "operationId": "archiveCoverage",
                "parameters": [
                    {"name": "identity", "in": "path", "required": true, "description": "Identity or profile url", "schema": {"type": "string"}}
                ],
                "responses": {
                    "200": {
                        "description": "ok",
                        "content": {"application/json": {"schema": {"$ref": "#/components/schemas/domain.CoverageResp"}}}
                    }
                }
            }
        },
        "/meta/health": {
            "get": {
                "tags": ["Meta"],
                "summary": "Health check",
                "operationId": "metaHealth",
                "responses": {"200": {"description": "ok"}}
            }
        },
        "/meta/ready": {
            "get": {
                "tags": ["Meta"],
                "summary": "Readiness probe with dependency checks",
                "operationId": "metaReady",
                "responses": {"200": {"description": "ok"}}
            }
        },
        "/meta/version": {
            "get": {
                "tags": ["Meta"],
                "summary": "Build and version info",
                "operationId": "metaVersion",
                "responses": {"200": {"description": "ok"}}
            }
        }
    },
    "components": {
        "schemas": {
            "interval.Interval": {
                "type": "object",
                "properties": {
                    "start": {"type": "string", "format": "date", "example": "2024-01-01"},
                    "end": {"type": "string", "format": "date", "example": "2024-01-31"}
                }
            },
            "domain.RangeInput": {
                "type": "object",
                "required": ["identities", "start", "end"],
                "properties": {
                    "identities": {"type": "array", "minItems": 1, "maxItems": 100, "items": {"type": "string"}, "example": ["jack"]},
                    "start": {"type": "string", "format": "date", "example": "2024-01-01"},
                    "end": {"type": "string", "format": "date", "example": "2024-01-31"}
                }
            },
            "domain.PlanInput": {
                "type": "object",
                "required": ["identity", "start", "end"],
                "properties": {
                    "identity": {"type": "string", "example": "jack"},
                    "start": {"type": "string", "format": "date", "example": "2024-01-01"},
                    "end": {"type": "string", "format": "date", "example": "2024-01-31"}
                }
            },
            "domain.Post": {
                "type": "object",
                "properties": {
                    "identity": {"type": "string"},
                    "post_id": {"type": "string"},
                    "publish_time": {"type": "string", "format": "date-time"},
                    "text": {"type": "string"},
                    "like_count": {"type": "integer", "format": "int64"},
                    "repost_count": {"type": "integer", "format": "int64"},
                    "reply_count": {"type": "integer", "format": "int64"},
                    "quote_count": {"type": "integer", "format": "int64"},
                    "view_count": {"type": "integer", "format": "int64"},
                    "url": {"type": "string"},
                    "language": {"type": "string"},
                    "author_follower_count_at_fetch": {"type": "integer", "format": "int64"},
                    "fetched_at": {"type": "string", "format": "date-time"}
                }
            },
            "domain.PartialFailure": {
                "type": "object",
                "properties": {
                    "identity": {"type": "string"},
                    "interval": {"$ref": "#/components/schemas/interval.Interval"},
                    "kind": {"type": "string", "enum": ["transient", "auth", "notfound", "storage", "skipped"]},
                    "reason": {"type": "string"}
                }
            },
            "domain.EnsureResp": {
                "type": "object",
                "properties": {
                    "posts": {"type": "array", "items": {"$ref": "#/components/schemas/domain.Post"}},
                    "failures": {"type": "array", "items": {"$ref": "#/components/schemas/domain.PartialFailure"}}
                }
            },
            "domain.PlanResp": {
                "type": "object",
                "properties": {
                    "identity": {"type": "string"},
                    "gaps": {"type": "array", "items": {"$ref": "#/components/schemas/interval.Interval"}}
                }
            },
            "domain.CoverageResp": {
                "type": "object",
                "properties": {
                    "identity": {"type": "string"},
                    "covered": {"type": "array", "items": {"$ref": "#/components/schemas/interval.Interval"}},
                    "days": {"type": "integer"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Title:            "feedvault API",
	Description:      "Coverage aware post archive: query stored posts and fill missing days from the content source",
	InfoInstanceName: "api",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
