package api

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"socialdash/internal/models"

	"gopkg.in/yaml.v3"
)

const openAPIPath = apiPrefix + "/openapi.yaml"

//go:embed openapi/openapi.yaml
var openAPISpec []byte

var (
	openAPIETag = func() string {
		sum := sha256.Sum256(openAPISpec)
		return `"` + hex.EncodeToString(sum[:8]) + `"`
	}()

	openAPIJSONOnce sync.Once
	openAPIJSON     []byte
	openAPIJSONErr  error
)

// openAPIAsJSON renders the embedded document as JSON for clients that ask
// for it. The conversion runs once.
func openAPIAsJSON() ([]byte, error) {
	openAPIJSONOnce.Do(func() {
		var doc map[string]any
		if err := yaml.Unmarshal(openAPISpec, &doc); err != nil {
			openAPIJSONErr = fmt.Errorf("parse openapi document: %w", err)
			return
		}
		openAPIJSON, openAPIJSONErr = json.Marshal(doc)
	})
	return openAPIJSON, openAPIJSONErr
}

func wantsJSON(r *http.Request) bool {
	if r.URL.Query().Get("format") == "json" {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "yaml")
}

func setDocCaching(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("ETag", openAPIETag)
	w.Header().Add("Vary", "Accept")
}

// ServeOpenAPISpec serves the API description as YAML, or as JSON when the
// client asks for it. A matching If-None-Match gets 304.
func (h *Handlers) ServeOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	setDocCaching(w)
	if r.Header.Get("If-None-Match") == openAPIETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if wantsJSON(r) {
		body, err := openAPIAsJSON()
		if err != nil {
			h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "Failed to render API document")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPISpec)
}

// persistAuthorization keeps a pasted bearer token across page reloads.
var swaggerUIPage = []byte(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>socialdash API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '` + openAPIPath + `',
      dom_id: '#swagger-ui',
      persistAuthorization: true,
      tryItOutEnabled: true,
      displayRequestDuration: true
    });
  </script>
</body>
</html>`)

func (h *Handlers) ServeSwaggerUI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(swaggerUIPage)
}
