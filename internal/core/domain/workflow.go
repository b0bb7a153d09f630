package domain

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Status
// =============================================================================

// Status is the lifecycle state shared by workflows and steps.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// validTransitions defines the allowed state transitions.
// A failed step returning to pending is the retry path; the engine
// bounds it by the step's MaxRetries.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusFailed, StatusCancelled},
	StatusFailed:     {StatusPending},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// ValidTransition checks whether a status transition is allowed.
func ValidTransition(from, to Status) error {
	allowed, exists := validTransitions[from]
	if !exists {
		return ErrInvalidTransition
	}
	for _, s := range allowed {
		if s == to {
			return nil
		}
	}
	return ErrInvalidTransition
}

// IsTerminal reports whether no further transitions are permitted.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// =============================================================================
// Deployment Step
// =============================================================================

// StepID identifies one of the fixed workflow steps.
type StepID string

const (
	StepValidate  StepID = "validate"
	StepAuth      StepID = "authenticate"
	StepProvision StepID = "provision"
	StepDeploy    StepID = "deploy"
	StepConfigure StepID = "configure-production"
	StepVerify    StepID = "verify"
)

// DeploymentStep is one unit of work in a workflow.
// Steps are created when the workflow is built and mutated only by the
// engine while it executes.
type DeploymentStep struct {
	ID          StepID     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Logs        []string   `json:"logs,omitempty"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	// DurationSeconds is max(1, elapsed) once the step finishes.
	DurationSeconds int64  `json:"duration_seconds,omitempty"`
	Error           string `json:"error,omitempty"`
}

// Start transitions the step to in_progress and records the start time.
func (s *DeploymentStep) Start(now time.Time) error {
	if err := ValidTransition(s.Status, StatusInProgress); err != nil {
		return err
	}
	s.Status = StatusInProgress
	s.StartedAt = &now
	return nil
}

// Complete transitions the step to completed and records duration.
func (s *DeploymentStep) Complete(now time.Time) error {
	if err := ValidTransition(s.Status, StatusCompleted); err != nil {
		return err
	}
	s.Status = StatusCompleted
	s.EndedAt = &now
	s.DurationSeconds = s.elapsedSeconds(now)
	return nil
}

// Fail transitions the step to failed with an error message.
func (s *DeploymentStep) Fail(now time.Time, errMsg string) error {
	if err := ValidTransition(s.Status, StatusFailed); err != nil {
		return err
	}
	s.Status = StatusFailed
	s.EndedAt = &now
	s.DurationSeconds = s.elapsedSeconds(now)
	s.Error = errMsg
	return nil
}

// Cancel marks an in-flight or pending step cancelled.
func (s *DeploymentStep) Cancel(now time.Time) error {
	if err := ValidTransition(s.Status, StatusCancelled); err != nil {
		return err
	}
	s.Status = StatusCancelled
	s.EndedAt = &now
	return nil
}

// Retry moves a failed step back to pending and consumes one retry.
// Returns ErrRetriesExhausted once the budget is spent.
func (s *DeploymentStep) Retry() error {
	if s.RetryCount >= s.MaxRetries {
		return ErrRetriesExhausted
	}
	if err := ValidTransition(s.Status, StatusPending); err != nil {
		return err
	}
	s.Status = StatusPending
	s.RetryCount++
	s.EndedAt = nil
	s.Error = ""
	return nil
}

// AppendLog appends one line to the step's ordered log.
func (s *DeploymentStep) AppendLog(line string) {
	s.Logs = append(s.Logs, line)
}

func (s *DeploymentStep) elapsedSeconds(now time.Time) int64 {
	if s.StartedAt == nil {
		return 1
	}
	secs := int64(now.Sub(*s.StartedAt) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Clone returns a deep copy of the step.
func (s *DeploymentStep) Clone() *DeploymentStep {
	c := *s
	if s.Logs != nil {
		c.Logs = append([]string(nil), s.Logs...)
	}
	if s.StartedAt != nil {
		t := *s.StartedAt
		c.StartedAt = &t
	}
	if s.EndedAt != nil {
		t := *s.EndedAt
		c.EndedAt = &t
	}
	return &c
}

// =============================================================================
// Deployment Workflow
// =============================================================================

// DeploymentWorkflow drives one project through the fixed deployment plan.
// The step list is fixed at creation and never reordered.
type DeploymentWorkflow struct {
	ID        string            `json:"id"`
	ProjectID string            `json:"project_id"`
	Project   ProjectConfig     `json:"project"`
	Platform  string            `json:"platform"`
	Steps     []*DeploymentStep `json:"steps"`
	Status    Status            `json:"status"`

	// PlatformProjectID is the provisioned project identifier, set by the
	// provision step and consumed by the steps after it.
	PlatformProjectID string `json:"platform_project_id,omitempty"`
	DeploymentURL     string `json:"deployment_url,omitempty"`
	PreviewURL        string `json:"preview_url,omitempty"`

	Logs            []string   `json:"logs,omitempty"`
	Error           string     `json:"error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds int64      `json:"duration_seconds,omitempty"`
}

// stepPlan is the fixed six-step deployment plan. Retry budgets follow the
// cost of redoing the step: deploys get the largest budget, validation the
// smallest.
var stepPlan = []DeploymentStep{
	{ID: StepValidate, Title: "Validate Configuration", Description: "Check the project configuration is ready to deploy", MaxRetries: 1},
	{ID: StepAuth, Title: "Authenticate Platform", Description: "Authenticate with the hosting platform", MaxRetries: 2},
	{ID: StepProvision, Title: "Provision Project", Description: "Create the project on the hosting platform", MaxRetries: 2},
	{ID: StepDeploy, Title: "Deploy Application", Description: "Build and upload the application", MaxRetries: 3},
	{ID: StepConfigure, Title: "Configure Production Settings", Description: "Apply domains, SSL and environment settings", MaxRetries: 2},
	{ID: StepVerify, Title: "Verify Deployment", Description: "Probe the live deployment for health and quality", MaxRetries: 2},
}

// NewWorkflow builds a pending workflow for the given project and platform.
// It fails with ErrInvalidConfig if the project kind is not recognized.
func NewWorkflow(project ProjectConfig, platform string) (*DeploymentWorkflow, error) {
	if !KnownKind(project.Kind) {
		return nil, ErrInvalidConfig
	}

	steps := make([]*DeploymentStep, 0, len(stepPlan))
	for _, tmpl := range stepPlan {
		step := tmpl
		step.Status = StatusPending
		steps = append(steps, &step)
	}

	return &DeploymentWorkflow{
		ID:        "wf_" + uuid.New().String()[:8],
		ProjectID: project.ID,
		Project:   project,
		Platform:  platform,
		Steps:     steps,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Transition attempts to move the workflow to a new status.
func (w *DeploymentWorkflow) Transition(to Status) error {
	if err := ValidTransition(w.Status, to); err != nil {
		return err
	}
	w.Status = to
	now := time.Now().UTC()
	switch to {
	case StatusInProgress:
		w.StartedAt = &now
	case StatusCompleted, StatusFailed, StatusCancelled:
		w.EndedAt = &now
		if w.StartedAt != nil {
			secs := int64(now.Sub(*w.StartedAt) / time.Second)
			if secs < 1 {
				secs = 1
			}
			w.DurationSeconds = secs
		}
	}
	return nil
}

// Step returns the step with the given id, or nil.
func (w *DeploymentWorkflow) Step(id StepID) *DeploymentStep {
	for _, s := range w.Steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// AppendLog appends one line to the workflow-level log.
func (w *DeploymentWorkflow) AppendLog(line string) {
	w.Logs = append(w.Logs, line)
}

// Clone returns a deep copy of the workflow, safe to hand to callers.
func (w *DeploymentWorkflow) Clone() *DeploymentWorkflow {
	c := *w
	c.Steps = make([]*DeploymentStep, 0, len(w.Steps))
	for _, s := range w.Steps {
		c.Steps = append(c.Steps, s.Clone())
	}
	if w.Logs != nil {
		c.Logs = append([]string(nil), w.Logs...)
	}
	if w.StartedAt != nil {
		t := *w.StartedAt
		c.StartedAt = &t
	}
	if w.EndedAt != nil {
		t := *w.EndedAt
		c.EndedAt = &t
	}
	if w.Project.Options.EnvVars != nil {
		env := make(map[string]string, len(w.Project.Options.EnvVars))
		for k, v := range w.Project.Options.EnvVars {
			env[k] = v
		}
		c.Project.Options.EnvVars = env
	}
	return &c
}
