package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "TutorBid API",
        "description": "Scheduling and negotiation engine for instructor bookings",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Availability", "description": "Instructor availability windows and derived slots"},
        {"name": "Slots", "description": "Bookable time slots"},
        {"name": "Requests", "description": "Booking request lifecycle"},
        {"name": "Price Rules", "description": "Per session-type bid pricing"},
        {"name": "Stats", "description": "Earnings and utilization projection"},
        {"name": "Export", "description": "Availability CSV exchange and PDF report"},
        {"name": "Payments", "description": "Payment provider callbacks"}
    ],
    "paths": {
        "/availability": {
            "get": {
                "tags": ["Availability"],
                "summary": "List the caller's availability windows",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Availability"],
                "summary": "Create an availability window",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAvailabilityRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Schedule conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/availability/{id}": {
            "get": {
                "tags": ["Availability"],
                "summary": "Get an availability window",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Availability"],
                "summary": "Update an availability window",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateAvailabilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Availability"],
                "summary": "Delete an availability window and its slots",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/availability/{id}/slots": {
            "get": {
                "tags": ["Availability"],
                "summary": "List slots derived from a window",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/availability/export": {
            "get": {
                "tags": ["Export"],
                "summary": "Export the caller's availability as CSV",
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "CSV content"}
                }
            }
        },
        "/availability/import": {
            "post": {
                "tags": ["Export"],
                "summary": "Import availability windows from CSV",
                "consumes": ["text/csv"],
                "responses": {
                    "200": {"description": "Import report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/slots/{id}": {
            "get": {
                "tags": ["Slots"],
                "summary": "Get a slot with its derived status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/slots/{id}/block": {
            "post": {
                "tags": ["Slots"],
                "summary": "Block a slot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/BlockSlotRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/slots/{id}/unblock": {
            "post": {
                "tags": ["Slots"],
                "summary": "Unblock a slot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests": {
            "get": {
                "tags": ["Requests"],
                "summary": "List booking requests for the caller's slots",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Requests"],
                "summary": "Submit a bid on a slot",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitBidRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Bid outside the allowed price range", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}/accept": {
            "post": {
                "tags": ["Requests"],
                "summary": "Accept a pending request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Capacity exhausted or invalid transition", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}/reject": {
            "post": {
                "tags": ["Requests"],
                "summary": "Reject a pending request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}/withdraw": {
            "post": {
                "tags": ["Requests"],
                "summary": "Withdraw the caller's pending request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}/release": {
            "post": {
                "tags": ["Requests"],
                "summary": "Release the capacity held by a failed or expired payment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/requests/bulk": {
            "post": {
                "tags": ["Requests"],
                "summary": "Accept or reject several requests at once",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkUpdateRequest"}}
                ],
                "responses": {
                    "200": {"description": "Per-request outcomes", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/price-rules": {
            "get": {
                "tags": ["Price Rules"],
                "summary": "List the caller's price rules",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Price Rules"],
                "summary": "Create or replace a price rule",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpsertPriceRuleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/price-rules/evaluate": {
            "post": {
                "tags": ["Price Rules"],
                "summary": "Preview the outcome of a hypothetical bid",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EvaluateBidRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/stats/overview": {
            "get": {
                "tags": ["Stats"],
                "summary": "Session statistics for the caller",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/stats/utilization": {
            "get": {
                "tags": ["Stats"],
                "summary": "Per-window slot utilization for the caller",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/stats/report.pdf": {
            "get": {
                "tags": ["Export"],
                "summary": "Render the caller's earnings and utilization report",
                "produces": ["application/pdf"],
                "responses": {
                    "200": {"description": "PDF content"}
                }
            }
        },
        "/payments/callback": {
            "post": {
                "tags": ["Payments"],
                "summary": "Payment provider webhook",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PaymentCallbackRequest"}}
                ],
                "responses": {
                    "200": {"description": "Processed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Request is not awaiting payment", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateAvailabilityRequest": {
            "type": "object",
            "properties": {
                "date": {"type": "string", "example": "2024-06-10"},
                "start_time": {"type": "string", "example": "09:00"},
                "end_time": {"type": "string", "example": "17:00"},
                "slot_duration_minutes": {"type": "integer"},
                "buffer_minutes": {"type": "integer"},
                "max_bookings_per_slot": {"type": "integer"},
                "min_advance_hours": {"type": "integer"},
                "max_advance_hours": {"type": "integer"},
                "title": {"type": "string"},
                "notes": {"type": "string"}
            },
            "required": ["date", "start_time", "end_time", "slot_duration_minutes", "max_bookings_per_slot", "min_advance_hours"]
        },
        "UpdateAvailabilityRequest": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "slot_duration_minutes": {"type": "integer"},
                "buffer_minutes": {"type": "integer"},
                "max_bookings_per_slot": {"type": "integer"},
                "min_advance_hours": {"type": "integer"},
                "max_advance_hours": {"type": "integer"},
                "title": {"type": "string"},
                "notes": {"type": "string"},
                "is_active": {"type": "boolean"}
            }
        },
        "BlockSlotRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
            }
        },
        "SubmitBidRequest": {
            "type": "object",
            "properties": {
                "slot_id": {"type": "string"},
                "session_type": {"type": "string"},
                "offered_price": {"type": "integer", "description": "Bid amount in cents"},
                "message": {"type": "string"}
            },
            "required": ["slot_id", "session_type", "offered_price"]
        },
        "BulkUpdateRequest": {
            "type": "object",
            "properties": {
                "request_ids": {"type": "array", "items": {"type": "string"}},
                "target_status": {"type": "string", "enum": ["accepted", "rejected"]}
            },
            "required": ["request_ids", "target_status"]
        },
        "UpsertPriceRuleRequest": {
            "type": "object",
            "properties": {
                "session_type": {"type": "string"},
                "base_price": {"type": "integer"},
                "min_bid_price": {"type": "integer"},
                "max_bid_price": {"type": "integer"},
                "auto_accept_threshold": {"type": "integer"},
                "lead_time_cutoff_hours": {"type": "integer"}
            },
            "required": ["session_type", "base_price", "min_bid_price", "max_bid_price", "auto_accept_threshold"]
        },
        "EvaluateBidRequest": {
            "type": "object",
            "properties": {
                "session_type": {"type": "string"},
                "offered_price": {"type": "integer"},
                "hours_until_session": {"type": "number"}
            },
            "required": ["session_type", "offered_price"]
        },
        "PaymentCallbackRequest": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "outcome": {"type": "string", "enum": ["paid", "failed", "expired"]},
                "reference": {"type": "string"}
            },
            "required": ["request_id", "outcome"]
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
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
