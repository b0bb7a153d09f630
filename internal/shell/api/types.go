package api

import (
	"github.com/jsodeh/sabi/internal/core/domain"
	"github.com/jsodeh/sabi/internal/core/recommend"
)

// =============================================================================
// Request Types
// =============================================================================

// ProjectRequest describes a project in API requests.
type ProjectRequest struct {
	ID        string                 `json:"id,omitempty"`
	Name      string                 `json:"name"`
	Kind      string                 `json:"kind"`
	SourceURL string                 `json:"source_url,omitempty"`
	Options   *ProjectOptionsRequest `json:"options,omitempty"`
}

// ProjectOptionsRequest carries optional project settings. SSL is a pointer
// so an omitted value falls back to the default instead of false.
type ProjectOptionsRequest struct {
	BuildCommand string            `json:"build_command,omitempty"`
	OutputDir    string            `json:"output_dir,omitempty"`
	CustomDomain string            `json:"custom_domain,omitempty"`
	EnvVars      map[string]string `json:"env_vars,omitempty"`
	SSL          *bool             `json:"ssl,omitempty"`
}

// toDomain converts the request to a domain config, applying defaults.
func (p ProjectRequest) toDomain() domain.ProjectConfig {
	cfg := domain.ProjectConfig{
		ID:        p.ID,
		Name:      p.Name,
		Kind:      domain.ProjectKind(p.Kind),
		SourceURL: p.SourceURL,
		Options:   domain.DefaultProjectOptions(),
	}
	if p.Options != nil {
		cfg.Options.BuildCommand = p.Options.BuildCommand
		cfg.Options.OutputDir = p.Options.OutputDir
		cfg.Options.CustomDomain = p.Options.CustomDomain
		cfg.Options.EnvVars = p.Options.EnvVars
		if p.Options.SSL != nil {
			cfg.Options.SSL = *p.Options.SSL
		}
	}
	return cfg
}

// RecommendRequest is the request body for a platform recommendation.
type RecommendRequest struct {
	Project     ProjectRequest        `json:"project"`
	Preferences recommend.Preferences `json:"preferences"`
}

// CreateWorkflowRequest is the request body for creating a workflow.
type CreateWorkflowRequest struct {
	Project  ProjectRequest `json:"project"`
	Platform string         `json:"platform"`
}

// =============================================================================
// Response Types
// =============================================================================

// HealthResponse is the health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the readiness check response.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ErrorResponse is the error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// PlatformListResponse wraps the platform catalog listing.
type PlatformListResponse struct {
	Platforms []domain.PlatformCapabilities `json:"platforms"`
	Total     int                           `json:"total"`
}

// WorkflowListResponse wraps a workflow listing.
type WorkflowListResponse struct {
	Workflows []*domain.DeploymentWorkflow `json:"workflows"`
	Total     int                          `json:"total"`
}

// HistoryListResponse wraps an archived workflow listing.
type HistoryListResponse struct {
	Workflows []domain.DeploymentWorkflow `json:"workflows"`
	Total     int                         `json:"total"`
}
