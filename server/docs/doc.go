// Package docs serves API documentation: an OpenAPI document describing
// the application routes and one of the browser front-ends Scalar,
// SwaggerUI, RapiDoc or ReDoc.
package docs
