// Package swaggerkit serves the Swagger UI and the OpenAPI document behind it
package swaggerkit

import (
	"encoding/json"
	"net/http"
	"strings"

	httpSwagger "github.com/swaggo/http-swagger"

	phttp "feedvault/internal/platform/net/http"
	docs "feedvault/internal/services/archive/docs"
)

// docReader is swapped in tests
var docReader = func() string { return docs.SwaggerInfo.ReadDoc() }

// Mount serves the UI at /api/docs/ and the document at /api/docs/doc.json
func Mount(r phttp.Router, enabled bool) {
	if !enabled {
		return
	}
	r.Get("/api/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/docs/", http.StatusPermanentRedirect)
	})
	r.Get("/api/docs/doc.json", serveDoc)
	r.Handle("/api/docs/*", httpSwagger.Handler(
		httpSwagger.InstanceName(docs.SwaggerInfo.InstanceName()),
		httpSwagger.URL("/api/docs/doc.json"),
	))
}

func serveDoc(w http.ResponseWriter, _ *http.Request) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(docReader()), &doc); err != nil {
		http.Error(w, "openapi document unreadable", http.StatusInternalServerError)
		return
	}
	normalize(doc, "/api/v1")
	w.Header().Set("Cache-Control", "no-store")
	phttp.JSON(w, http.StatusOK, doc)
}

// normalize pins the document to OAS 3.0.3, which the UI renders, and fills in
// the error envelope every operation can answer with
func normalize(doc map[string]any, base string) {
	delete(doc, "swagger")
	if v, _ := doc["openapi"].(string); !strings.HasPrefix(v, "3.0") {
		doc["openapi"] = "3.0.3"
	}
	if _, ok := doc["servers"]; !ok {
		doc["servers"] = []any{map[string]any{"url": base}}
	}

	schemas := child(child(doc, "components"), "schemas")
	if _, ok := schemas["ErrorResponse"]; !ok {
		str := map[string]any{"type": "string"}
		num := map[string]any{"type": "integer"}
		schemas["ErrorResponse"] = map[string]any{
			"type":     "object",
			"required": []any{"status_code", "status"},
			"properties": map[string]any{
				"status_code": num,
				"status":      str,
				"code":        num,
				"error":       str,
				"field":       str,
				"request_id":  str,
			},
		}
	}

	paths, _ := doc["paths"].(map[string]any)
	for _, p := range paths {
		ops, _ := p.(map[string]any)
		for _, op := range ops {
			op, ok := op.(map[string]any)
			if !ok {
				continue
			}
			resps := child(op, "responses")
			for code, desc := range map[string]string{"400": "Bad Request", "500": "Internal Server Error"} {
				if _, ok := resps[code]; !ok {
					resps[code] = errorResponse(desc)
				}
			}
		}
	}
}

func errorResponse(desc string) map[string]any {
	return map[string]any{
		"description": desc,
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"$ref": "#/components/schemas/ErrorResponse"},
			},
		},
	}
}

// child returns m[key] as an object, creating it when absent
func child(m map[string]any, key string) map[string]any {
	c, ok := m[key].(map[string]any)
	if !ok {
		c = map[string]any{}
		m[key] = c
	}
	return c
}
