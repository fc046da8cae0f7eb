package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the catalog service.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRouter) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>catalog - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "catalog", "version": "v1.0.0" },
  "components": {
    "schemas": {
      "Payload": {"type":"object","required":["title","author","body","link","tags"],"properties":{"title":{"type":"string"},"author":{"type":"string"},"year":{"type":"string"},"body":{"type":"string"},"link":{"type":"string"},"tags":{"type":"array","items":{"type":"string"}}}},
      "Error": {"type":"object","properties":{"message":{"type":"string"},"code":{"type":"integer"}}}
    },
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } }
  },
  "paths": {
    "/api/create": {
      "post": {
        "summary": "Create a document; the catalog assigns the next sequential id",
        "security": [{"bearer": []}],
        "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/Payload"} }, "application/x-www-form-urlencoded": { "schema": {"$ref":"#/components/schemas/Payload"} } } },
        "responses": { "200": { "description": "created, body carries id" }, "400": { "description": "invalid document" }, "500": { "description": "index unavailable" } }
      }
    },
    "/api/document/{id}": {
      "get": { "summary": "Fetch one document", "parameters": [{"name":"id","in":"path","required":true,"schema":{"type":"string"}}], "responses": { "200": { "description": "search hit envelope" }, "404": { "description": "not found" } } },
      "put": { "summary": "Replace every editable field of a document", "security": [{"bearer": []}], "parameters": [{"name":"id","in":"path","required":true,"schema":{"type":"string"}}], "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/Payload"} } } }, "responses": { "200": { "description": "updated" }, "400": { "description": "invalid document" }, "404": { "description": "not found" } } },
      "delete": { "summary": "Delete a document", "security": [{"bearer": []}], "parameters": [{"name":"id","in":"path","required":true,"schema":{"type":"string"}}], "responses": { "200": { "description": "deleted" }, "404": { "description": "not found" } } }
    },
    "/api/search/{type}": {
      "post": {
        "summary": "Full-text search over title, author, body or tags",
        "parameters": [
          {"name":"type","in":"path","required":true,"schema":{"type":"string","enum":["title","author","body","tags"]}},
          {"name":"view","in":"query","required":false,"schema":{"type":"string","enum":["display"]}}
        ],
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","additionalProperties":{"type":"string"}} } } },
        "responses": { "200": { "description": "engine-shaped search result" }, "400": { "description": "invalid search type" } }
      }
    },
    "/api/documents": {
      "get": { "summary": "Most recent documents, newest first", "parameters": [{"name":"limit","in":"query","schema":{"type":"integer","default":10,"maximum":1000}}], "responses": { "200": { "description": "engine-shaped result" } } }
    },
    "/api/export": {
      "post": { "summary": "Write a JSON snapshot of the catalog to object storage", "security": [{"bearer": []}], "responses": { "200": { "description": "object key and presigned URL" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "text exposition" } } } }
  }
}`
