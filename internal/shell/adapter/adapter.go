// Package adapter implements hosting platform clients.
// This is part of the Imperative Shell - it handles I/O with platform APIs.
// The workflow engine only sees the PlatformAdapter interface and treats
// every failure as retryable up to the step's budget.
package adapter

import (
	"context"

	"github.com/jsodeh/sabi/internal/core/domain"
)

// DeployResult contains the URLs produced by a deployment.
type DeployResult struct {
	DeploymentURL string
	PreviewURL    string
}

// PlatformAdapter performs the real interactions with a hosting platform.
type PlatformAdapter interface {
	// Authenticate verifies credentials against the platform.
	Authenticate(ctx context.Context, platformID string) error

	// Provision creates the project on the platform and returns the
	// platform-side project identifier.
	Provision(ctx context.Context, platformID string, cfg domain.ProjectConfig) (string, error)

	// Deploy builds and uploads the application.
	Deploy(ctx context.Context, platformID, platformProjectID string, cfg domain.ProjectConfig) (*DeployResult, error)

	// ConfigureProduction applies domains, SSL and environment settings.
	ConfigureProduction(ctx context.Context, platformID, platformProjectID string, cfg domain.ProjectConfig) error
}
