package docs

import (
	"bytes"
	"fmt"
	"html/template"
)

// Frontend is a browser UI rendering the OpenAPI document.
type Frontend string

const (
	Scalar    Frontend = "Scalar"
	SwaggerUI Frontend = "SwaggerUI"
	RapiDoc   Frontend = "RapiDoc"
	ReDoc     Frontend = "ReDoc"
)

var frontendPages = map[Frontend]*template.Template{
	Scalar: page(Scalar, `<script id="api-reference" data-url="{{.SpecURL}}"></script>
<script src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"></script>`),
	SwaggerUI: page(SwaggerUI, `<link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
<script>window.onload = () => { window.ui = SwaggerUIBundle({ url: "{{.SpecURL}}", dom_id: "#swagger-ui" }); };</script>`),
	RapiDoc: page(RapiDoc, `<script type="module" src="https://unpkg.com/rapidoc/dist/rapidoc-min.js"></script>
<rapi-doc spec-url="{{.SpecURL}}" render-style="read"></rapi-doc>`),
	ReDoc: page(ReDoc, `<redoc spec-url="{{.SpecURL}}"></redoc>
<script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>`),
}

func page(f Frontend, body string) *template.Template {
	return template.Must(template.New(string(f)).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<meta name="description" content="{{.Description}}">
</head>
<body>
` + body + `
</body>
</html>
`))
}

// ParseFrontend maps oapi_frontend_type onto a Frontend. The names are
// case-sensitive.
func ParseFrontend(s string) (Frontend, bool) {
	f := Frontend(s)
	_, ok := frontendPages[f]
	return f, ok
}

// Title returns the page title for an API named name.
func (f Frontend) Title(name string) string {
	return fmt.Sprintf("%s - API @ %s", name, f)
}

// Render returns the HTML page loading the document at specURL.
func (f Frontend) Render(name, specURL string) ([]byte, error) {
	tmpl, ok := frontendPages[f]
	if !ok {
		return nil, fmt.Errorf("unknown documentation frontend %q", string(f))
	}
	var buf bytes.Buffer
	err := tmpl.Execute(&buf, struct {
		Title       string
		Description string
		SpecURL     string
	}{f.Title(name), name + " - API", specURL})
	return buf.Bytes(), err
}
