package openapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Record struct {
	UpdatedAt time.Time `json:"updated_at"`
}

type sampleBody struct {
	Record
	ID       int64         `json:"id"`
	Name     string        `json:"name,omitempty" doc:"Display name"`
	Limit    *int          `json:"limit"`
	Cadence  time.Duration `json:"cadence"`
	Tags     []string      `json:"tags"`
	Internal string        `json:"-"`
	hidden   bool
}

func TestEchoPathToOpenAPI(t *testing.T) {
	assert.Equal(t, "/groups/{id}/users/{uid}", echoPathToOpenAPI("/groups/:id/users/:uid"))
	assert.Equal(t, "/healthz", echoPathToOpenAPI("/healthz"))
}

func TestSchemaOf(t *testing.T) {
	schema := schemaOf(sampleBody{}).Value

	require.Contains(t, schema.Properties, "id")
	assert.True(t, schema.Properties["id"].Value.Type.Is(openapi3.TypeInteger))
	assert.Equal(t, "int64", schema.Properties["id"].Value.Format)

	assert.Equal(t, "Display name", schema.Properties["name"].Value.Description)
	assert.True(t, schema.Properties["limit"].Value.Nullable)
	assert.Equal(t, "nanoseconds", schema.Properties["cadence"].Value.Description)
	assert.True(t, schema.Properties["tags"].Value.Type.Is(openapi3.TypeArray))
	assert.Equal(t, "date-time", schema.Properties["updated_at"].Value.Format)

	assert.NotContains(t, schema.Properties, "Internal")
	assert.NotContains(t, schema.Properties, "hidden")

	assert.ElementsMatch(t, []string{"updated_at", "id", "cadence", "tags"}, schema.Required)
}

func TestSchemaOf_Slice(t *testing.T) {
	schema := schemaOf([]sampleBody{}).Value
	require.True(t, schema.Type.Is(openapi3.TypeArray))
	assert.Contains(t, schema.Items.Value.Properties, "id")
}

func TestDocument(t *testing.T) {
	doc := New("Bot", "1.0.0").Description("codes")

	doc.Document(http.MethodPost, "/api/v1/admin/groups/:id/users/:uid/block").
		Summary("Block").
		Tags("attempts").
		PathParam("id", "Group chat id").
		Secured().
		Response(http.StatusOK, sampleBody{}, "Blocked").
		Errors(http.StatusForbidden).
		Build()
	doc.Document(http.MethodDelete, "/api/v1/admin/confirmations/:token").
		TokenParam("token", "Confirmation token").
		Response(http.StatusNoContent, nil, "Cancelled").
		Build()

	spec := doc.Spec()
	assert.Equal(t, "codes", spec.Info.Description)

	item := spec.Paths.Find("/api/v1/admin/groups/{id}/users/{uid}/block")
	require.NotNil(t, item)
	op := item.Post
	require.NotNil(t, op)
	assert.Equal(t, "Block", op.Summary)
	assert.Equal(t, []string{"attempts"}, op.Tags)
	require.NotNil(t, op.Security)
	assert.Contains(t, (*op.Security)[0], bearerScheme)

	require.Len(t, op.Parameters, 2)
	id := op.Parameters.GetByInAndName(openapi3.ParameterInPath, "id")
	require.NotNil(t, id)
	assert.True(t, id.Required)
	assert.Equal(t, "int64", id.Schema.Value.Format)
	uid := op.Parameters.GetByInAndName(openapi3.ParameterInPath, "uid")
	require.NotNil(t, uid)
	assert.True(t, uid.Schema.Value.Type.Is(openapi3.TypeString))

	require.NotNil(t, op.Responses.Value("200"))
	forbidden := op.Responses.Value("403")
	require.NotNil(t, forbidden)
	assert.Contains(t, forbidden.Value.Content.Get("application/json").Schema.Value.Properties, "error")

	cancel := spec.Paths.Find("/api/v1/admin/confirmations/{token}").Delete
	require.NotNil(t, cancel)
	assert.Equal(t, "uuid", cancel.Parameters.GetByInAndName(openapi3.ParameterInPath, "token").Schema.Value.Format)
	assert.Nil(t, cancel.Responses.Value("204").Value.Content)
}

func TestHandlers(t *testing.T) {
	doc := New("Bot", "1.0.0").Server("https://bot.example.org", "production")
	doc.Document(http.MethodGet, "/healthz").Response(http.StatusNoContent, nil, "Healthy").Build()

	e := echo.New()
	e.GET("/openapi.json", doc.JSONHandler())
	e.GET("/openapi.yaml", doc.YAMLHandler())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
	assert.Contains(t, rec.Body.String(), `"/healthz"`)
	assert.Contains(t, rec.Body.String(), "https://bot.example.org")

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Body.String(), "/healthz:")
	assert.Contains(t, rec.Body.String(), "bearerFormat: JWT")
}
