package docs

import (
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// OpenAPIVersion is the version of the generated documents.
const OpenAPIVersion = "3.0.3"

// BearerScheme is the name of the security scheme every document declares.
const BearerScheme = "bearer"

// Route is one application route to document.
type Route struct {
	Method string
	// Path uses gin syntax (":id", "*rest").
	Path        string
	OperationID string
	Summary     string
	// Secured marks the operation as requiring the bearer scheme.
	Secured bool
}

var ginParam = regexp.MustCompile(`[:*]([A-Za-z0-9_]+)`)

// NewDocument describes routes under the given title and version. Operation
// ids are made unique, so one handler may serve several routes.
func NewDocument(title, version string, routes []Route) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: OpenAPIVersion,
		Info: &openapi3.Info{
			Title:       title,
			Version:     version,
			Description: title + " - API",
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			SecuritySchemes: openapi3.SecuritySchemes{
				BearerScheme: &openapi3.SecuritySchemeRef{Value: &openapi3.SecurityScheme{
					Type:         "http",
					Scheme:       "bearer",
					BearerFormat: "JSON",
				}},
			},
		},
	}

	sorted := append([]Route(nil), routes...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	seen := make(map[string]int)
	for _, r := range sorted {
		path, params := openAPIPath(r.Path)

		op := openapi3.NewOperation()
		op.OperationID = uniqueID(seen, r.OperationID)
		op.Summary = r.Summary
		for _, p := range params {
			op.AddParameter(p)
		}
		op.Responses = openapi3.NewResponses()
		op.Responses.Set("default", &openapi3.ResponseRef{
			Value: openapi3.NewResponse().WithDescription(http.StatusText(http.StatusOK)),
		})
		if r.Secured {
			op.Security = openapi3.NewSecurityRequirements().
				With(openapi3.NewSecurityRequirement().Authenticate(BearerScheme))
		}
		doc.AddOperation(path, strings.ToUpper(r.Method), op)
	}
	return doc
}

func uniqueID(seen map[string]int, id string) string {
	if id == "" {
		return ""
	}
	seen[id]++
	if n := seen[id]; n > 1 {
		return id + "_" + strconv.Itoa(n)
	}
	return id
}

// openAPIPath converts a gin path to OpenAPI template syntax and returns its
// path parameters.
func openAPIPath(ginPath string) (string, []*openapi3.Parameter) {
	var params []*openapi3.Parameter
	for _, m := range ginParam.FindAllStringSubmatch(ginPath, -1) {
		params = append(params, openapi3.NewPathParameter(m[1]).WithSchema(openapi3.NewStringSchema()))
	}
	return ginParam.ReplaceAllString(ginPath, "{$1}"), params
}
