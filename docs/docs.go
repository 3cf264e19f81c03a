// Package docs registers the Swagger document of the box pipeline API.
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
        "/process": {
            "post": {
                "description": "Computes surface area and capacity of one box and embeds its image, given either an image URL or an uploaded image file.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["boxes"],
                "summary": "Process one box",
                "parameters": [
                    {"type": "number", "description": "Box height", "name": "height", "in": "formData", "required": true},
                    {"type": "number", "description": "Box width", "name": "weight", "in": "formData", "required": true},
                    {"type": "number", "description": "Box breadth", "name": "breadth", "in": "formData", "required": true},
                    {"type": "string", "description": "Image URL", "name": "image_url", "in": "formData"},
                    {"type": "file", "description": "Image file (png, jpg, jpeg, gif)", "name": "image_file", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.ProcessResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/batch/upload": {
            "post": {
                "description": "Runs every row of the uploaded table through the pipeline and writes the CSV and Markdown reports to the job's output directory.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["boxes"],
                "summary": "Process a CSV of boxes",
                "parameters": [
                    {"type": "file", "description": "CSV with image_id, image_url, height, weight, breadth", "name": "csv_file", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.BatchResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/api/v1/jobs": {
            "get": {
                "description": "Get every registered job, newest first",
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "List jobs",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.Job"}}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/api/v1/jobs/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Get job",
                "parameters": [{"type": "string", "description": "Job ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Job"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/api/v1/jobs/{id}/errors": {
            "get": {
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Get job errors",
                "parameters": [{"type": "string", "description": "Job ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.JobError"}}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/api/v1/download/{jobID}/{filename}": {
            "get": {
                "description": "Download a generated report of a job",
                "produces": ["application/octet-stream"],
                "tags": ["files"],
                "summary": "Download file",
                "parameters": [
                    {"type": "string", "description": "Job ID", "name": "jobID", "in": "path", "required": true},
                    {"type": "string", "description": "File name", "name": "filename", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "File download", "schema": {"type": "file"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handler.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "handler.ProcessResponse": {
            "type": "object",
            "properties": {
                "job_id": {"type": "string"},
                "result": {"$ref": "#/definitions/model.EnrichedRecord"}
            }
        },
        "handler.BatchResponse": {
            "type": "object",
            "properties": {
                "job_id": {"type": "string"},
                "results": {"type": "array", "items": {"$ref": "#/definitions/model.EnrichedRecord"}},
                "processing_times": {"type": "array", "items": {"type": "number"}},
                "statistics": {"$ref": "#/definitions/model.TimingStatistics"},
                "files": {"type": "array", "items": {"$ref": "#/definitions/utils.OutputFile"}}
            }
        },
        "model.EnrichedRecord": {
            "type": "object",
            "properties": {
                "image_id": {"type": "string"},
                "image_url": {"type": "string"},
                "height": {"type": "number"},
                "weight": {"type": "number"},
                "breadth": {"type": "number"},
                "surface_area": {"type": "number"},
                "capacity": {"type": "number"},
                "processing_time": {"type": "number"},
                "image_base64": {"type": "string"}
            }
        },
        "model.TimingStatistics": {
            "type": "object",
            "properties": {
                "count": {"type": "integer"},
                "average": {"type": "number"},
                "median": {"type": "number"},
                "min": {"type": "number"},
                "max": {"type": "number"},
                "std_dev": {"type": "number"},
                "p90": {"type": "number"},
                "p99": {"type": "number"}
            }
        },
        "model.Job": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "source": {"type": "string"},
                "status": {"type": "string"},
                "record_count": {"type": "integer"},
                "files": {"type": "array", "items": {"type": "string"}},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "model.JobError": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "job_id": {"type": "string"},
                "message": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "utils.OutputFile": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "type": {"type": "string"},
                "size": {"type": "integer"},
                "download_url": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Box Pipeline API",
	Description:      "Computes box surface area and capacity, embeds box images and reports processing times.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
