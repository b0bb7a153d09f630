package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsodeh/sabi/internal/core/domain"
	"github.com/jsodeh/sabi/internal/core/guidance"
	"github.com/jsodeh/sabi/internal/core/recommend"
	"github.com/jsodeh/sabi/internal/shell/adapter"
	"github.com/jsodeh/sabi/internal/shell/catalog"
	"github.com/jsodeh/sabi/internal/shell/store"
	"github.com/jsodeh/sabi/internal/shell/workflow"
)

// =============================================================================
// Test Helpers
// =============================================================================

// okProbe reports every post-deploy measurement as healthy.
type okProbe struct{}

func (okProbe) check(id string) domain.ValidationCheck {
	return domain.ValidationCheck{ID: id, Name: id, Score: 95}
}

func (p okProbe) TestConnectivity(ctx context.Context, url string) (domain.ValidationCheck, error) {
	return p.check("connectivity"), nil
}

func (p okProbe) TestSSL(ctx context.Context, url string) (domain.ValidationCheck, error) {
	return p.check("ssl"), nil
}

func (p okProbe) TestPerformance(ctx context.Context, url string) (domain.ValidationCheck, error) {
	return p.check("performance"), nil
}

func (p okProbe) TestSEO(ctx context.Context, url string) (domain.ValidationCheck, error) {
	return p.check("seo"), nil
}

func (p okProbe) TestFunctionality(ctx context.Context, url string, kind domain.ProjectKind) (domain.ValidationCheck, error) {
	return p.check("functionality"), nil
}

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cat, err := catalog.Load("")
	require.NoError(t, err)

	history, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { history.Close() })

	opts := workflow.Options{ExecutionTimeout: time.Minute, RetryDelay: time.Millisecond}
	engine := workflow.NewEngine(workflow.NewMemoryRegistry(), cat,
		adapter.NewSimulated(nil), okProbe{}, workflow.NewBus(nil), history, opts, nil)

	handler := NewHandler(engine, cat, history, nil)
	srv := httptest.NewServer(handler.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, srv *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func validProject() ProjectRequest {
	return ProjectRequest{
		ID:        "proj_1",
		Name:      "my-cool-site",
		Kind:      "static",
		SourceURL: "https://github.com/acme/my-cool-site",
	}
}

// =============================================================================
// Health
// =============================================================================

func TestHandler_Health(t *testing.T) {
	srv := setupTestServer(t)

	resp := doRequest(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[HealthResponse](t, resp)
	assert.Equal(t, "healthy", body.Status)
}

func TestHandler_Ready(t *testing.T) {
	srv := setupTestServer(t)

	resp := doRequest(t, srv, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[ReadyResponse](t, resp)
	assert.Equal(t, "ready", body.Status)
	assert.Equal(t, "ok", body.Checks["catalog"])
}

// =============================================================================
// Validation
// =============================================================================

func TestHandler_ValidateProject(t *testing.T) {
	srv := setupTestServer(t)

	resp := doRequest(t, srv, http.MethodPost, "/api/v1/projects/validate", validProject())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decode[domain.DeploymentValidation](t, resp)
	assert.True(t, result.IsValid)
	assert.NotEmpty(t, result.Checks)
}

func TestHandler_ValidateProjectNotReady(t *testing.T) {
	srv := setupTestServer(t)

	project := validProject()
	project.Name = ""
	project.SourceURL = "not a url"

	resp := doRequest(t, srv, http.MethodPost, "/api/v1/projects/validate", project)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decode[domain.DeploymentValidation](t, resp)
	assert.False(t, result.IsValid)
	assert.NotEmpty(t, result.Recommendations)
}

func TestHandler_ValidateProjectBadJSON(t *testing.T) {
	srv := setupTestServer(t)

	resp, err := srv.Client().Post(srv.URL+"/api/v1/projects/validate", "application/json",
		bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// Platforms
// =============================================================================

func TestHandler_ListPlatforms(t *testing.T) {
	srv := setupTestServer(t)

	resp := doRequest(t, srv, http.MethodGet, "/api/v1/platforms", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[PlatformListResponse](t, resp)
	assert.Equal(t, body.Total, len(body.Platforms))
	assert.GreaterOrEqual(t, body.Total, 4)
}

func TestHandler_ListPlatformsByKind(t *testing.T) {
	srv := setupTestServer(t)

	resp := doRequest(t, srv, http.MethodGet, "/api/v1/platforms?kind=node", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[PlatformListResponse](t, resp)
	for _, p := range body.Platforms {
		assert.True(t, p.SupportsKind(domain.KindNode), "platform %s", p.ID)
	}
}

func TestHandler_ListPlatformsUnknownKind(t *testing.T) {
	srv := setupTestServer(t)

	resp := doRequest(t, srv, http.MethodGet, "/api/v1/platforms?kind=cobol", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_Recommend(t *testing.T) {
	srv := setupTestServer(t)

	req := RecommendRequest{
		Project:     validProject(),
		Preferences: recommend.Preferences{PreferFree: true, PreferEasySetup: true},
	}
	resp := doRequest(t, srv, http.MethodPost, "/api/v1/platforms/recommend", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rec := decode[recommend.Recommendation](t, resp)
	assert.NotEmpty(t, rec.Platform.ID)
	assert.NotEmpty(t, rec.Reasons)
	assert.True(t, rec.Platform.SupportsKind(domain.KindStatic))
}

func TestHandler_RecommendUnknownKind(t *testing.T) {
	srv := setupTestServer(t)

	req := RecommendRequest{Project: ProjectRequest{Name: "x", Kind: "cobol"}}
	resp := doRequest(t, srv, http.MethodPost, "/api/v1/platforms/recommend", req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_Guidance(t *testing.T) {
	srv := setupTestServer(t)

	resp := doRequest(t, srv, http.MethodPost, "/api/v1/platforms/netlify/guidance", validProject())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	guide := decode[guidance.Guide](t, resp)
	assert.Equal(t, "netlify", guide.PlatformID)
	assert.NotEmpty(t, guide.Instructions)
}

func TestHandler_GuidanceUnknownPlatform(t *testing.T) {
	srv := setupTestServer(t)

	resp := doRequest(t, srv, http.MethodPost, "/api/v1/platforms/nope/guidance", validProject())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_GuidanceIncompatibleKind(t *testing.T) {
	srv := setupTestServer(t)

	project := validProject()
	project.Kind = "node"
	resp := doRequest(t, srv, http.MethodPost, "/api/v1/platforms/github-pages/guidance", project)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

// =============================================================================
// Workflows
// =============================================================================

func createWorkflow(t *testing.T, srv *httptest.Server) *domain.DeploymentWorkflow {
	t.Helper()
	req := CreateWorkflowRequest{Project: validProject(), Platform: "netlify"}
	resp := doRequest(t, srv, http.MethodPost, "/api/v1/workflows", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	wf := decode[*domain.DeploymentWorkflow](t, resp)
	require.NotEmpty(t, wf.ID)
	return wf
}

func TestHandler_WorkflowLifecycle(t *testing.T) {
	srv := setupTestServer(t)

	wf := createWorkflow(t, srv)
	assert.Equal(t, domain.StatusPending, wf.Status)
	assert.Len(t, wf.Steps, 6)

	resp := doRequest(t, srv, http.MethodPost, "/api/v1/workflows/"+wf.ID+"/execute?wait=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	final := decode[*domain.DeploymentWorkflow](t, resp)
	assert.Equal(t, domain.StatusCompleted, final.Status)
	assert.NotEmpty(t, final.DeploymentURL)

	resp = doRequest(t, srv, http.MethodGet, "/api/v1/workflows/"+wf.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[*domain.DeploymentWorkflow](t, resp)
	assert.Equal(t, domain.StatusCompleted, got.Status)

	resp = doRequest(t, srv, http.MethodGet, "/api/v1/workflows", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[WorkflowListResponse](t, resp)
	assert.Equal(t, 1, list.Total)
}

func TestHandler_CreateWorkflowUnknownPlatform(t *testing.T) {
	srv := setupTestServer(t)

	req := CreateWorkflowRequest{Project: validProject(), Platform: "nope"}
	resp := doRequest(t, srv, http.MethodPost, "/api/v1/workflows", req)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_CreateWorkflowIncompatiblePlatform(t *testing.T) {
	srv := setupTestServer(t)

	project := validProject()
	project.Kind = "node"
	req := CreateWorkflowRequest{Project: project, Platform: "github-pages"}
	resp := doRequest(t, srv, http.MethodPost, "/api/v1/workflows", req)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestHandler_GetWorkflowNotFound(t *testing.T) {
	srv := setupTestServer(t)

	resp := doRequest(t, srv, http.MethodGet, "/api/v1/workflows/wf_missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_ExecuteFinishedWorkflowRejected(t *testing.T) {
	srv := setupTestServer(t)
	wf := createWorkflow(t, srv)

	resp := doRequest(t, srv, http.MethodPost, "/api/v1/workflows/"+wf.ID+"/execute?wait=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodPost, "/api/v1/workflows/"+wf.ID+"/execute?wait=true", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHandler_CancelWorkflow(t *testing.T) {
	srv := setupTestServer(t)
	wf := createWorkflow(t, srv)

	resp := doRequest(t, srv, http.MethodPost, "/api/v1/workflows/"+wf.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[*domain.DeploymentWorkflow](t, resp)
	assert.Equal(t, domain.StatusCancelled, got.Status)

	// A finished workflow cannot be cancelled twice.
	resp = doRequest(t, srv, http.MethodPost, "/api/v1/workflows/"+wf.ID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

// =============================================================================
// History
// =============================================================================

func TestHandler_History(t *testing.T) {
	srv := setupTestServer(t)
	wf := createWorkflow(t, srv)

	resp := doRequest(t, srv, http.MethodPost, "/api/v1/workflows/"+wf.ID+"/execute?wait=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodGet, "/api/v1/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[HistoryListResponse](t, resp)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, wf.ID, list.Workflows[0].ID)

	resp = doRequest(t, srv, http.MethodGet, "/api/v1/history/"+wf.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[*domain.DeploymentWorkflow](t, resp)
	assert.Equal(t, domain.StatusCompleted, got.Status)

	resp = doRequest(t, srv, http.MethodGet, "/api/v1/history?project_id=proj_other", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	empty := decode[HistoryListResponse](t, resp)
	assert.Zero(t, empty.Total)
}

func TestHandler_HistoryNotFound(t *testing.T) {
	srv := setupTestServer(t)

	resp := doRequest(t, srv, http.MethodGet, "/api/v1/history/wf_missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
