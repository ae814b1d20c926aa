// Package docs holds the swagger document served at /swagger.
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
        "/conversation": {
            "get": {
                "produces": ["text/html"],
                "summary": "Conversation page",
                "parameters": [
                    {"type": "integer", "description": "first participant", "name": "user_a", "in": "query"},
                    {"type": "integer", "description": "second participant", "name": "user_b", "in": "query"}
                ],
                "responses": {"200": {"description": "HTML page", "schema": {"type": "string"}}}
            }
        },
        "/api/v1/conversation": {
            "get": {
                "produces": ["application/json"],
                "summary": "Conversation as JSON",
                "parameters": [
                    {"type": "integer", "description": "first participant", "name": "user_a", "in": "query"},
                    {"type": "integer", "description": "second participant", "name": "user_b", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/users": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Create a user",
                "parameters": [
                    {"description": "user", "name": "user", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.NewUser"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.User"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/api/v1/messages": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Send a message",
                "parameters": [
                    {"description": "message", "name": "message", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.NewMessage"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Message"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/api/v1/messages/{id}": {
            "get": {
                "produces": ["application/json"],
                "summary": "Get a message",
                "parameters": [{"type": "integer", "description": "message id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Message"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            },
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Edit a message",
                "parameters": [
                    {"type": "integer", "description": "message id", "name": "id", "in": "path", "required": true},
                    {"description": "new content", "name": "edit", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.EditMessageRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Message"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            },
            "delete": {
                "summary": "Delete a message",
                "parameters": [
                    {"type": "integer", "description": "message id", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "acting user", "name": "X-User-ID", "in": "header", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/api/v1/messages/{id}/history": {
            "get": {
                "produces": ["application/json"],
                "summary": "Edit history of a message, newest first",
                "parameters": [{"type": "integer", "description": "message id", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}}
            }
        },
        "/api/v1/users/{id}/notifications": {
            "get": {
                "produces": ["application/json"],
                "summary": "Notifications of a user, newest first",
                "parameters": [
                    {"type": "integer", "description": "user id", "name": "id", "in": "path", "required": true},
                    {"type": "boolean", "description": "only unread", "name": "unread", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/users/{id}/notifications/{nid}/read": {
            "post": {
                "summary": "Mark a notification read",
                "parameters": [
                    {"type": "integer", "description": "user id", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "notification id", "name": "nid", "in": "path", "required": true}
                ],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}}
            }
        },
        "/api/v1/dispatcher/start": {"post": {"summary": "Start the notification dispatcher", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/dispatcher/stop": {"post": {"summary": "Stop the notification dispatcher", "responses": {"200": {"description": "OK"}}}}
    },
    "definitions": {
        "api.ErrorResponse": {"type": "object", "properties": {"error": {"type": "string"}}},
        "api.EditMessageRequest": {
            "type": "object",
            "required": ["content", "editor_id"],
            "properties": {"content": {"type": "string"}, "editor_id": {"type": "integer"}}
        },
        "service.NewUser": {
            "type": "object",
            "required": ["password", "username"],
            "properties": {"password": {"type": "string"}, "username": {"type": "string"}}
        },
        "service.NewMessage": {
            "type": "object",
            "required": ["content", "receiver_id", "sender_id"],
            "properties": {
                "content": {"type": "string"},
                "parent_id": {"type": "integer"},
                "receiver_id": {"type": "integer"},
                "sender_id": {"type": "integer"}
            }
        },
        "models.User": {
            "type": "object",
            "properties": {"id": {"type": "integer"}, "username": {"type": "string"}, "created_at": {"type": "string"}}
        },
        "models.Message": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "sender_id": {"type": "integer"},
                "receiver_id": {"type": "integer"},
                "parent_id": {"type": "integer"},
                "content": {"type": "string"},
                "edited": {"type": "boolean"},
                "created_at": {"type": "string"},
                "edited_at": {"type": "string"}
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
	Title:            "Messaging API",
	Description:      "Direct messages, notifications and edit history.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
