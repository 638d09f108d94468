package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "LMS Grading API",
        "description": "Answer evaluation, submission grading and performance reporting.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Session and token management"},
        {"name": "Assignments", "description": "Assignment authoring and lookup"},
        {"name": "Submissions", "description": "Student submissions and grading"},
        {"name": "Performance", "description": "Aggregated student performance"},
        {"name": "Exports", "description": "Asynchronous roster and score exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with email and password",
                "responses": {
                    "200": {"description": "Token pair issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "responses": {
                    "200": {"description": "New token pair"},
                    "401": {"description": "Expired or revoked token"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Revoke the current refresh token",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "Revoked"}}
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current account profile",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Profile"}}
            }
        },
        "/assignments": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Create an assignment with its questions",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Invalid question set"}
                }
            },
            "get": {
                "tags": ["Assignments"],
                "summary": "List assignments",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Paginated list"}}
            }
        },
        "/assignments/{id}": {
            "get": {
                "tags": ["Assignments"],
                "summary": "Fetch an assignment",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Assignment"},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Assignments"],
                "summary": "Replace an assignment's questions",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Updated"},
                    "403": {"description": "Not the owning teacher"}
                }
            }
        },
        "/assignments/{id}/submissions": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Submit answers for an assignment",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Submission accepted and auto graded"},
                    "422": {"description": "Student not enrolled"}
                }
            },
            "get": {
                "tags": ["Submissions"],
                "summary": "List submissions for an assignment",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Submissions"}}
            }
        },
        "/submissions/{id}": {
            "get": {
                "tags": ["Submissions"],
                "summary": "Fetch a submission",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Submission"},
                    "403": {"description": "Not the owner"}
                }
            }
        },
        "/submissions/{id}/grade": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Commit manual scores and finalize grading",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Graded"},
                    "409": {"description": "Concurrent status change"},
                    "422": {"description": "Essay scores missing"}
                }
            }
        },
        "/submissions/{id}/return": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Return a graded submission for revision",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Returned"},
                    "409": {"description": "Not in a returnable state"}
                }
            }
        },
        "/students/{id}/performance": {
            "get": {
                "tags": ["Performance"],
                "summary": "Aggregated performance summary for a student",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Summary"}}
            }
        },
        "/performance": {
            "get": {
                "tags": ["Performance"],
                "summary": "Per-student performance across the teacher's courses",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Roster rows"}}
            }
        },
        "/performance/export": {
            "get": {
                "tags": ["Performance"],
                "summary": "Download the roster as CSV or PDF",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "File download"},
                    "400": {"description": "Unsupported format"}
                }
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue an asynchronous export job",
                "security": [{"BearerAuth": []}],
                "responses": {"202": {"description": "Job accepted"}}
            }
        },
        "/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export job status",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Status with result URL when finished"},
                    "404": {"description": "Unknown job"}
                }
            }
        },
        "/export/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a finished export via signed token",
                "responses": {
                    "200": {"description": "File download"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "pageSize": {"type": "integer"},
                "totalCount": {"type": "integer"}
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
