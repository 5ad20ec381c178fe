// Package swagger serves the OpenAPI document, as YAML and JSON, and a
// Swagger UI page pointing at it.
package swagger

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openAPIYAML []byte

// Document is the parsed form of the embedded OpenAPI document.
type Document struct {
	Info struct {
		Title   string `yaml:"title"`
		Version string `yaml:"version"`
	} `yaml:"info"`
	raw map[string]any
}

// Load parses the embedded document.
func Load() (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(openAPIYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse openapi: %w", err)
	}
	if err := yaml.Unmarshal(openAPIYAML, &doc.raw); err != nil {
		return nil, fmt.Errorf("parse openapi: %w", err)
	}
	return &doc, nil
}

// JSON renders the document as JSON.
func (d *Document) JSON() ([]byte, error) {
	return json.Marshal(d.raw)
}

var page = template.Must(template.New("ui").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{{.Title}} {{.Version}}</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css">
  <style>body { margin: 0; } .swagger-ui .topbar { display: none; }</style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: {{.SpecURL}},
      dom_id: "#swagger-ui",
      deepLinking: true,
      docExpansion: "list",
      filter: true
    });
  </script>
</body>
</html>
`))

// Handler serves the UI at prefix+"/", the document at prefix+"/openapi.yaml"
// and prefix+"/openapi.json". It strips prefix itself, so it can be mounted
// on a catch-all route.
func Handler(prefix string) (http.Handler, error) {
	doc, err := Load()
	if err != nil {
		return nil, err
	}
	asJSON, err := doc.JSON()
	if err != nil {
		return nil, fmt.Errorf("render openapi json: %w", err)
	}
	prefix = strings.TrimRight(prefix, "/")
	view := struct {
		Title, Version, SpecURL string
	}{doc.Info.Title, doc.Info.Version, prefix + "/openapi.json"}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimPrefix(r.URL.Path, prefix) {
		case "/openapi.yaml":
			w.Header().Set("Content-Type", "application/yaml")
			_, _ = w.Write(openAPIYAML)
		case "/openapi.json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(asJSON)
		case "", "/":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_ = page.Execute(w, view)
		default:
			http.NotFound(w, r)
		}
	}), nil
}
