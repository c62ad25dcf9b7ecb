package openapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type credentials struct {
	Username string `json:"username" example:"alice"`
	Password string `json:"password"`
	Remember bool   `json:"remember,omitempty"`
}

type node struct {
	Name     string  `json:"name"`
	Children []*node `json:"children,omitempty"`
}

type Audited struct {
	CreatedAt time.Time `json:"createdAt"`
}

type account struct {
	Audited
	ID     string            `json:"id"`
	Roles  []string          `json:"roles"`
	Labels map[string]string `json:"labels,omitempty"`
	secret string
	Hidden string `json:"-"`
}

func TestDoc_Operation(t *testing.T) {
	doc := New("edgeguard", "test").BearerAuth("jwt")

	doc.Operation(http.MethodPost, "/auth/login").
		Summary("Log in").
		Tags("auth").
		Body(credentials{}, "creds").
		Response(http.StatusOK, account{}, "ok").
		Response(http.StatusUnauthorized, nil, "denied").
		Build()

	doc.Operation(http.MethodGet, "/users/:id").Secured().Response(http.StatusOK, account{}, "ok").Build()

	spec := doc.Spec()
	login := spec.Paths.Find("/auth/login")
	require.NotNil(t, login)
	require.NotNil(t, login.Post)
	assert.Equal(t, "Log in", login.Post.Summary)
	assert.Equal(t, "#/components/schemas/credentials", login.Post.RequestBody.Value.Content.Get("application/json").Schema.Ref)
	assert.NotNil(t, login.Post.Responses.Value("401"))

	user := spec.Paths.Find("/users/{id}")
	require.NotNil(t, user)
	require.Len(t, user.Get.Parameters, 1)
	assert.Equal(t, "id", user.Get.Parameters[0].Value.Name)
	assert.Equal(t, "path", user.Get.Parameters[0].Value.In)
	require.NotNil(t, user.Get.Security)
	assert.Contains(t, (*user.Get.Security)[0], BearerScheme)
}

func TestSchemaGeneration(t *testing.T) {
	doc := New("edgeguard", "test")
	doc.Operation(http.MethodGet, "/accounts").Response(http.StatusOK, account{}, "ok").Build()
	doc.Operation(http.MethodGet, "/tree").Response(http.StatusOK, node{}, "ok").Build()
	doc.Operation(http.MethodPost, "/login").Body(&credentials{}, "creds").Build()

	schemas := doc.Spec().Components.Schemas

	acct := schemas["account"].Value
	require.NotNil(t, acct)
	assert.Contains(t, acct.Properties, "createdAt", "embedded fields are flattened")
	assert.Equal(t, "date-time", acct.Properties["createdAt"].Value.Format)
	assert.NotContains(t, acct.Properties, "secret")
	assert.NotContains(t, acct.Properties, "Hidden")
	assert.True(t, acct.Properties["roles"].Value.Type.Is("array"))
	assert.True(t, acct.Properties["labels"].Value.Type.Is("object"))
	assert.ElementsMatch(t, []string{"createdAt", "id", "roles"}, acct.Required)

	creds := schemas["credentials"].Value
	assert.Equal(t, "alice", creds.Properties["username"].Value.Example)
	assert.NotContains(t, creds.Required, "remember")

	require.Contains(t, schemas, "node", "self-referencing types terminate")
}

func TestDoc_Handlers(t *testing.T) {
	doc := New("edgeguard", "1.2.3")
	doc.Operation(http.MethodGet, "/auth/health").Response(http.StatusOK, nil, "up").Build()

	e := echo.New()
	doc.Register(e.Group("/docs"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs/openapi.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var asJSON map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &asJSON))
	assert.Equal(t, "3.0.3", asJSON["openapi"])
	assert.Contains(t, asJSON["paths"], "/auth/health")

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs/openapi.yaml", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get(echo.HeaderContentType))

	var asYAML map[string]any
	require.NoError(t, yaml.Unmarshal(rec.Body.Bytes(), &asYAML))
	assert.Equal(t, "1.2.3", asYAML["info"].(map[string]any)["version"])
}
