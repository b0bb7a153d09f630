package store

import (
	"context"

	"github.com/jsodeh/sabi/internal/core/domain"
)

// =============================================================================
// Store Interface
// =============================================================================

// Store defines the persistence interface for deployment workflow history.
// The engine saves a workflow once it reaches a terminal state; saving the
// same ID again replaces the stored record.
type Store interface {
	SaveWorkflow(ctx context.Context, wf *domain.DeploymentWorkflow) error
	GetWorkflow(ctx context.Context, id string) (*domain.DeploymentWorkflow, error)
	ListWorkflows(ctx context.Context, opts ListOptions) ([]domain.DeploymentWorkflow, error)
	ListWorkflowsByProject(ctx context.Context, projectID string, opts ListOptions) ([]domain.DeploymentWorkflow, error)
	DeleteWorkflow(ctx context.Context, id string) error
	Close() error
}

// ListOptions controls pagination for list operations.
type ListOptions struct {
	Limit  int
	Offset int
}

// DefaultListOptions returns default list options.
func DefaultListOptions() ListOptions {
	return ListOptions{Limit: 100, Offset: 0}
}

// Normalize ensures list options have valid values.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = 100
	}
	if o.Limit > 1000 {
		o.Limit = 1000
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
