package openapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

type RouteBuilder struct {
	openapi   *OpenAPI
	method    string
	path      string
	operation *openapi3.Operation
}

// extractPathParams declares every :name segment as a required string
// parameter; PathParam refines it.
func (rb *RouteBuilder) extractPathParams() {
	for _, part := range strings.Split(rb.path, "/") {
		if name, ok := strings.CutPrefix(part, ":"); ok {
			rb.param(name).Required = true
		}
	}
}

func (rb *RouteBuilder) param(name string) *openapi3.Parameter {
	for _, p := range rb.operation.Parameters {
		if p.Value != nil && p.Value.Name == name && p.Value.In == openapi3.ParameterInPath {
			return p.Value
		}
	}

	p := openapi3.NewPathParameter(name).WithSchema(openapi3.NewStringSchema())
	rb.operation.Parameters = append(rb.operation.Parameters, &openapi3.ParameterRef{Value: p})
	return p
}

func (rb *RouteBuilder) Summary(summary string) *RouteBuilder {
	rb.operation.Summary = summary
	return rb
}

func (rb *RouteBuilder) Description(description string) *RouteBuilder {
	rb.operation.Description = description
	return rb
}

func (rb *RouteBuilder) Tags(tags ...string) *RouteBuilder {
	rb.operation.Tags = append(rb.operation.Tags, tags...)
	return rb
}

// PathParam documents a path parameter holding a 64-bit Telegram id.
func (rb *RouteBuilder) PathParam(name, description string) *RouteBuilder {
	p := rb.param(name)
	p.Description = description
	p.Schema = openapi3.NewInt64Schema().NewRef()
	return rb
}

// TokenParam documents a path parameter holding an opaque token.
func (rb *RouteBuilder) TokenParam(name, description string) *RouteBuilder {
	p := rb.param(name)
	p.Description = description
	p.Schema = openapi3.NewUUIDSchema().NewRef()
	return rb
}

func (rb *RouteBuilder) Body(example any, description string) *RouteBuilder {
	rb.operation.RequestBody = &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().
			WithDescription(description).
			WithRequired(true).
			WithJSONSchemaRef(schemaOf(example)),
	}
	return rb
}

func (rb *RouteBuilder) Response(statusCode int, example any, description string) *RouteBuilder {
	resp := openapi3.NewResponse().WithDescription(description)
	if example != nil {
		resp = resp.WithJSONSchemaRef(schemaOf(example))
	}
	rb.operation.Responses.Set(strconv.Itoa(statusCode), &openapi3.ResponseRef{Value: resp})
	return rb
}

// Errors documents the given statuses with the shared error envelope.
func (rb *RouteBuilder) Errors(statusCodes ...int) *RouteBuilder {
	for _, code := range statusCodes {
		rb.Response(code, ErrorBody{}, http.StatusText(code))
	}
	return rb
}

func (rb *RouteBuilder) Secured() *RouteBuilder {
	rb.operation.Security = openapi3.NewSecurityRequirements().
		With(openapi3.NewSecurityRequirement().Authenticate(bearerScheme))
	return rb
}

func (rb *RouteBuilder) Build() {
	rb.openapi.addOperation(rb.method, rb.path, rb.operation)
}

// ErrorBody is the JSON envelope every failed request answers with.
type ErrorBody struct {
	Error string `json:"error"`
}
