// Package docs registers the OpenAPI description served under /swagger.
// Regenerate with `swag init -g cmd/main.go` after changing handler annotations.
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
        "/health": {"get": {"tags": ["health"], "summary": "Health check", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}},
        "/api/v1/auth/register": {"post": {"tags": ["auth"], "summary": "Sign up", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}}},
        "/api/v1/auth/login": {"post": {"tags": ["auth"], "summary": "Log in", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/api/v1/public/menu": {"get": {"tags": ["menu"], "summary": "List active menu items", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
        "/api/v1/public/menu/{id}": {"get": {"tags": ["menu"], "summary": "Get a menu item", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/v1/public/menu/{id}/reviews": {"get": {"tags": ["reviews"], "summary": "List visible reviews of an item", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
        "/api/v1/public/categories": {"get": {"tags": ["menu"], "summary": "List categories", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
        "/api/v1/public/cart": {
            "get": {"tags": ["cart"], "summary": "View cart", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["cart"], "summary": "Clear cart", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/public/cart/items": {"post": {"tags": ["cart"], "summary": "Add to cart", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/v1/public/payments/{method}/callback": {"post": {"tags": ["payments"], "summary": "Gateway callback", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}, "422": {"description": "Unprocessable Entity"}}}},
        "/api/v1/protected/me": {"get": {"security": [{"BearerAuth": []}], "tags": ["auth"], "summary": "Current user", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
        "/api/v1/protected/dashboard": {"get": {"security": [{"BearerAuth": []}], "tags": ["dashboard"], "summary": "Role dashboard", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
        "/api/v1/protected/checkout": {"post": {"security": [{"BearerAuth": []}], "tags": ["orders"], "summary": "Check out the cart", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"201": {"description": "Created"}, "303": {"description": "See Other"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}, "422": {"description": "Unprocessable Entity"}}}},
        "/api/v1/protected/orders": {"get": {"security": [{"BearerAuth": []}], "tags": ["orders"], "summary": "List orders", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
        "/api/v1/protected/orders/{id}": {"get": {"security": [{"BearerAuth": []}], "tags": ["orders"], "summary": "Get order", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/v1/protected/orders/{id}/status": {"get": {"security": [{"BearerAuth": []}], "tags": ["orders"], "summary": "Poll order status", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/v1/protected/orders/{id}/cancel": {"post": {"security": [{"BearerAuth": []}], "tags": ["orders"], "summary": "Cancel own order", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/api/v1/protected/orders/{id}/pay": {"post": {"security": [{"BearerAuth": []}], "tags": ["payments"], "summary": "Open a gateway session", "responses": {"303": {"description": "See Other"}, "404": {"description": "Not Found"}}}},
        "/api/v1/protected/orders/{id}/pay/card": {"post": {"security": [{"BearerAuth": []}], "tags": ["payments"], "summary": "Pay with the mock card", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/api/v1/operations/orders/{id}/accept": {"post": {"security": [{"BearerAuth": []}], "tags": ["operations"], "summary": "Accept an order", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "409": {"description": "Conflict"}}}},
        "/api/v1/operations/orders/{id}/complete": {"post": {"security": [{"BearerAuth": []}], "tags": ["operations"], "summary": "Complete a paid order", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/api/v1/manage/menu": {"post": {"security": [{"BearerAuth": []}], "tags": ["menu"], "summary": "Create a menu item", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"201": {"description": "Created"}, "403": {"description": "Forbidden"}}}},
        "/api/v1/admin/users": {"get": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "List users", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}}},
        "/api/v1/admin/ratings/rebuild": {"post": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Recompute every cached rating", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}}
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Campus Canteen API",
	Description:      "Menu, cart, checkout, payments and order tracking for a campus canteen",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
