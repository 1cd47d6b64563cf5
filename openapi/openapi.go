// Package openapi builds the OpenAPI 3 description of the bot's HTTP API
// alongside route registration.
package openapi

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
	"gopkg.in/yaml.v3"
)

const bearerScheme = "bearer"

type OpenAPI struct {
	mu   sync.RWMutex
	spec *openapi3.T
}

func New(title, version string) *OpenAPI {
	return &OpenAPI{
		spec: &openapi3.T{
			OpenAPI: "3.0.3",
			Info: &openapi3.Info{
				Title:   title,
				Version: version,
			},
			Paths: openapi3.NewPaths(),
			Components: &openapi3.Components{
				SecuritySchemes: openapi3.SecuritySchemes{
					bearerScheme: &openapi3.SecuritySchemeRef{
						Value: &openapi3.SecurityScheme{
							Type:         "http",
							Scheme:       "bearer",
							BearerFormat: "JWT",
							Description:  "HS256 token whose subject is the Telegram user id of the caller",
						},
					},
				},
			},
		},
	}
}

func (o *OpenAPI) Description(desc string) *OpenAPI {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.spec.Info.Description = desc
	return o
}

func (o *OpenAPI) Server(url, description string) *OpenAPI {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.spec.Servers = append(o.spec.Servers, &openapi3.Server{URL: url, Description: description})
	return o
}

func (o *OpenAPI) Spec() *openapi3.T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.spec
}

func (o *OpenAPI) JSON() ([]byte, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return json.MarshalIndent(o.spec, "", "  ")
}

func (o *OpenAPI) YAML() ([]byte, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	intermediate, err := o.spec.MarshalYAML()
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(intermediate)
}

func (o *OpenAPI) JSONHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		data, err := o.JSON()
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to render API description")
		}
		return c.JSONBlob(http.StatusOK, data)
	}
}

func (o *OpenAPI) YAMLHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		data, err := o.YAML()
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to render API description")
		}
		return c.Blob(http.StatusOK, "application/yaml", data)
	}
}

// Document starts describing the operation served at an echo-style path.
func (o *OpenAPI) Document(method, path string) *RouteBuilder {
	rb := &RouteBuilder{
		openapi:   o,
		method:    strings.ToUpper(method),
		path:      path,
		operation: &openapi3.Operation{Responses: openapi3.NewResponses()},
	}
	rb.extractPathParams()
	return rb
}

func (o *OpenAPI) addOperation(method, path string, op *openapi3.Operation) {
	o.mu.Lock()
	defer o.mu.Unlock()

	path = echoPathToOpenAPI(path)
	item := o.spec.Paths.Find(path)
	if item == nil {
		item = &openapi3.PathItem{}
		o.spec.Paths.Set(path, item)
	}
	item.SetOperation(method, op)
}

func echoPathToOpenAPI(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if name, ok := strings.CutPrefix(part, ":"); ok {
			parts[i] = "{" + name + "}"
		}
	}
	return strings.Join(parts, "/")
}

// schemaOf derives an inline schema from an example value using its json
// tags. Fields tagged `json:"-"` are left out.
func schemaOf(example any) *openapi3.SchemaRef {
	if example == nil {
		return openapi3.NewObjectSchema().NewRef()
	}
	return schemaFromType(reflect.TypeOf(example), map[reflect.Type]bool{})
}

func schemaFromType(t reflect.Type, visiting map[reflect.Type]bool) *openapi3.SchemaRef {
	if t.Kind() == reflect.Pointer {
		ref := schemaFromType(t.Elem(), visiting)
		ref.Value.Nullable = true
		return ref
	}

	switch t.Kind() {
	case reflect.String:
		return openapi3.NewStringSchema().NewRef()
	case reflect.Bool:
		return openapi3.NewBoolSchema().NewRef()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return openapi3.NewInt32Schema().NewRef()
	case reflect.Int64:
		if t.PkgPath() == "time" && t.Name() == "Duration" {
			return openapi3.NewInt64Schema().WithDescription("nanoseconds").NewRef()
		}
		return openapi3.NewInt64Schema().NewRef()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return openapi3.NewIntegerSchema().WithMin(0).NewRef()
	case reflect.Float32, reflect.Float64:
		return openapi3.NewFloat64Schema().NewRef()
	case reflect.Slice, reflect.Array:
		return openapi3.NewArraySchema().WithItems(schemaFromType(t.Elem(), visiting).Value).NewRef()
	case reflect.Map:
		return openapi3.NewObjectSchema().WithAdditionalProperties(schemaFromType(t.Elem(), visiting).Value).NewRef()
	case reflect.Struct:
		return structSchema(t, visiting)
	default:
		return openapi3.NewObjectSchema().NewRef()
	}
}

func structSchema(t reflect.Type, visiting map[reflect.Type]bool) *openapi3.SchemaRef {
	if t.PkgPath() == "time" && t.Name() == "Time" {
		return openapi3.NewDateTimeSchema().NewRef()
	}
	if visiting[t] {
		return openapi3.NewObjectSchema().NewRef()
	}
	visiting[t] = true
	defer delete(visiting, t)

	schema := openapi3.NewObjectSchema()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}

		if field.Anonymous && tag == "" {
			embedded := schemaFromType(field.Type, visiting).Value
			for name, prop := range embedded.Properties {
				schema.WithPropertyRef(name, prop)
			}
			schema.Required = append(schema.Required, embedded.Required...)
			continue
		}

		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = field.Name
		}

		prop := schemaFromType(field.Type, visiting)
		if doc := field.Tag.Get("doc"); doc != "" {
			prop.Value.Description = doc
		}
		schema.WithPropertyRef(name, prop)

		if !strings.Contains(opts, "omitempty") && field.Type.Kind() != reflect.Pointer {
			schema.Required = append(schema.Required, name)
		}
	}
	return schema.NewRef()
}
