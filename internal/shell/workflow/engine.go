// Package workflow drives deployment workflows through the fixed six-step
// plan. The engine owns all workflow mutation: callers only ever see deep
// snapshots taken from the registry.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jsodeh/sabi/internal/core/domain"
	"github.com/jsodeh/sabi/internal/core/validation"
	"github.com/jsodeh/sabi/internal/shell/adapter"
	"github.com/jsodeh/sabi/internal/shell/catalog"
)

// =============================================================================
// Engine
// =============================================================================

// Options tunes engine timing. Zero values select the defaults.
type Options struct {
	// ExecutionTimeout caps one Execute call end to end. Default: 30 minutes.
	ExecutionTimeout time.Duration
	// RetryDelay is the backoff unit between step attempts; the wait before
	// attempt n+1 is RetryDelay * n. Default: 2 seconds.
	RetryDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.ExecutionTimeout == 0 {
		o.ExecutionTimeout = 30 * time.Minute
	}
	if o.RetryDelay == 0 {
		o.RetryDelay = 2 * time.Second
	}
	return o
}

// Archiver persists finished workflows. The engine treats archiving as
// best effort: a failed save is logged, never surfaced to the caller.
type Archiver interface {
	SaveWorkflow(ctx context.Context, wf *domain.DeploymentWorkflow) error
}

// Engine creates and executes deployment workflows.
type Engine struct {
	registry Registry
	catalog  *catalog.Catalog
	adapter  adapter.PlatformAdapter
	probe    validation.Probe
	bus      *Bus
	archiver Archiver
	opts     Options
	logger   *slog.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewEngine wires an engine. archiver may be nil to disable history.
func NewEngine(registry Registry, cat *catalog.Catalog, ad adapter.PlatformAdapter, probe validation.Probe, bus *Bus, archiver Archiver, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		registry: registry,
		catalog:  cat,
		adapter:  ad,
		probe:    probe,
		bus:      bus,
		archiver: archiver,
		opts:     opts.withDefaults(),
		logger:   logger.With("component", "workflow_engine"),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Create registers a new pending workflow for the project on the given
// platform. The platform must exist in the catalog and support the
// project's kind.
func (e *Engine) Create(ctx context.Context, project domain.ProjectConfig, platformID string) (*domain.DeploymentWorkflow, error) {
	platform, err := e.catalog.Get(platformID)
	if err != nil {
		return nil, err
	}
	if !platform.SupportsKind(project.Kind) {
		return nil, fmt.Errorf("platform %s does not support %s projects: %w",
			platformID, project.Kind, domain.ErrNoCompatiblePlatform)
	}

	wf, err := domain.NewWorkflow(project, platformID)
	if err != nil {
		return nil, err
	}
	if err := e.registry.Put(wf); err != nil {
		return nil, err
	}

	e.logger.Info("workflow created", "workflow_id", wf.ID, "project", project.Name, "platform", platformID)
	e.publish(EventWorkflowCreated, wf.ID, "")
	return wf.Clone(), nil
}

// GetStatus returns a snapshot of the workflow.
func (e *Engine) GetStatus(id string) (*domain.DeploymentWorkflow, error) {
	return e.registry.Snapshot(id)
}

// ListWorkflows returns snapshots of all registered workflows, newest first.
func (e *Engine) ListWorkflows() []*domain.DeploymentWorkflow {
	return e.registry.List()
}

// Execute runs a pending workflow to a terminal state and returns the final
// snapshot. It blocks; run it in a goroutine for asynchronous execution.
func (e *Engine) Execute(ctx context.Context, id string) (*domain.DeploymentWorkflow, error) {
	err := e.registry.Update(id, func(wf *domain.DeploymentWorkflow) error {
		return wf.Transition(domain.StatusInProgress)
	})
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, e.opts.ExecutionTimeout)
	e.mu.Lock()
	e.cancels[id] = cancel
	e.mu.Unlock()
	defer func() {
		cancel()
		e.mu.Lock()
		delete(e.cancels, id)
		e.mu.Unlock()
	}()

	e.logger.Info("workflow started", "workflow_id", id)
	e.publish(EventWorkflowStarted, id, "")

	var execErr error
	for _, stepID := range []domain.StepID{
		domain.StepValidate,
		domain.StepAuth,
		domain.StepProvision,
		domain.StepDeploy,
		domain.StepConfigure,
		domain.StepVerify,
	} {
		if execErr = e.runStep(runCtx, id, stepID); execErr != nil {
			break
		}
	}

	return e.finish(ctx, id, runCtx, execErr)
}

// finish moves the workflow to its terminal state and archives it.
// ctx is the caller's context; runCtx tells cancellation from timeout apart.
func (e *Engine) finish(ctx context.Context, id string, runCtx context.Context, execErr error) (*domain.DeploymentWorkflow, error) {
	err := e.registry.Update(id, func(wf *domain.DeploymentWorkflow) error {
		if wf.Status.IsTerminal() {
			// Cancel already finalized the workflow.
			return nil
		}
		if execErr == nil {
			return wf.Transition(domain.StatusCompleted)
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			execErr = fmt.Errorf("%w after %s", domain.ErrWorkflowTimeout, e.opts.ExecutionTimeout)
		}
		wf.Error = execErr.Error()
		return wf.Transition(domain.StatusFailed)
	})
	if err != nil {
		return nil, err
	}

	snap, err := e.registry.Snapshot(id)
	if err != nil {
		return nil, err
	}

	switch snap.Status {
	case domain.StatusCompleted:
		e.logger.Info("workflow completed", "workflow_id", id, "url", snap.DeploymentURL, "duration_s", snap.DurationSeconds)
		e.publish(EventWorkflowCompleted, id, "")
	case domain.StatusFailed:
		e.logger.Warn("workflow failed", "workflow_id", id, "error", snap.Error)
		e.publish(EventWorkflowFailed, id, "")
	}

	e.archive(ctx, snap)

	if snap.Status == domain.StatusFailed {
		return snap, execErr
	}
	return snap, nil
}

// Cancel stops a workflow. In-flight step actions are interrupted through
// their context; the workflow and its unfinished steps move to cancelled.
func (e *Engine) Cancel(ctx context.Context, id string) error {
	err := e.registry.Update(id, func(wf *domain.DeploymentWorkflow) error {
		if wf.Status.IsTerminal() {
			return fmt.Errorf("workflow %s is already %s: %w", id, wf.Status, domain.ErrInvalidTransition)
		}
		now := time.Now().UTC()
		for _, step := range wf.Steps {
			if !step.Status.IsTerminal() {
				_ = step.Cancel(now)
			}
		}
		return wf.Transition(domain.StatusCancelled)
	})
	if err != nil {
		return err
	}

	e.mu.Lock()
	cancel := e.cancels[id]
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	e.logger.Info("workflow cancelled", "workflow_id", id)
	e.publish(EventWorkflowCancelled, id, "")

	if snap, snapErr := e.registry.Snapshot(id); snapErr == nil {
		e.archive(ctx, snap)
	}
	return nil
}

func (e *Engine) archive(ctx context.Context, wf *domain.DeploymentWorkflow) {
	if e.archiver == nil {
		return
	}
	// Archive with a fresh deadline so a cancelled run still gets recorded.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := e.archiver.SaveWorkflow(saveCtx, wf); err != nil {
		e.logger.Error("failed to archive workflow", "workflow_id", wf.ID, "error", err)
	}
}

// =============================================================================
// Step Execution
// =============================================================================

// runStep drives one step through its attempt loop with linear backoff.
func (e *Engine) runStep(ctx context.Context, id string, stepID domain.StepID) error {
	for attempt := 1; ; attempt++ {
		err := e.registry.Update(id, func(wf *domain.DeploymentWorkflow) error {
			step := wf.Step(stepID)
			if step == nil {
				return fmt.Errorf("workflow %s has no step %s", id, stepID)
			}
			if err := step.Start(time.Now().UTC()); err != nil {
				return err
			}
			step.AppendLog(fmt.Sprintf("attempt %d of %d", attempt, step.MaxRetries+1))
			wf.AppendLog(fmt.Sprintf("%s: attempt %d of %d", stepID, attempt, step.MaxRetries+1))
			return nil
		})
		if err != nil {
			// The workflow was cancelled between steps.
			if errors.Is(err, domain.ErrInvalidTransition) && ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		e.publish(EventStepStarted, id, stepID)

		actErr := e.stepAction(ctx, id, stepID)
		if actErr == nil {
			err := e.registry.Update(id, func(wf *domain.DeploymentWorkflow) error {
				if err := wf.Step(stepID).Complete(time.Now().UTC()); err != nil {
					return err
				}
				wf.AppendLog(fmt.Sprintf("%s: completed", stepID))
				return nil
			})
			if err != nil {
				return err
			}
			e.publish(EventStepCompleted, id, stepID)
			return nil
		}

		stepErr := &domain.StepActionError{Step: stepID, Attempt: attempt, Err: actErr}
		var exhausted bool
		err = e.registry.Update(id, func(wf *domain.DeploymentWorkflow) error {
			step := wf.Step(stepID)
			if step.Status.IsTerminal() {
				// Cancel finalized the step while the action was failing.
				return nil
			}
			if err := step.Fail(time.Now().UTC(), stepErr.Error()); err != nil {
				return err
			}
			wf.AppendLog(fmt.Sprintf("%s: attempt %d failed: %v", stepID, attempt, actErr))
			if retryErr := step.Retry(); retryErr != nil {
				exhausted = true
				wf.AppendLog(fmt.Sprintf("%s: retries exhausted after %d attempts", stepID, attempt))
			}
			return nil
		})
		if err != nil {
			return err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if exhausted {
			// Published only here, so the step snapshot on a failure
			// event is terminal rather than pending-for-retry.
			e.publish(EventStepFailed, id, stepID)
			e.logger.Warn("step retries exhausted", "workflow_id", id, "step", stepID, "attempts", attempt)
			return errors.Join(domain.ErrRetriesExhausted, stepErr)
		}

		delay := e.opts.RetryDelay * time.Duration(attempt)
		e.logger.Info("retrying step", "workflow_id", id, "step", stepID, "attempt", attempt, "delay", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// stepAction dispatches the work behind one step.
func (e *Engine) stepAction(ctx context.Context, id string, stepID domain.StepID) error {
	snap, err := e.registry.Snapshot(id)
	if err != nil {
		return err
	}

	switch stepID {
	case domain.StepValidate:
		return e.actValidate(id, snap)
	case domain.StepAuth:
		return e.adapter.Authenticate(ctx, snap.Platform)
	case domain.StepProvision:
		return e.actProvision(ctx, id, snap)
	case domain.StepDeploy:
		return e.actDeploy(ctx, id, snap)
	case domain.StepConfigure:
		return e.adapter.ConfigureProduction(ctx, snap.Platform, snap.PlatformProjectID, snap.Project)
	case domain.StepVerify:
		return e.actVerify(ctx, id, snap)
	default:
		return fmt.Errorf("unknown step %s", stepID)
	}
}

func (e *Engine) actValidate(id string, snap *domain.DeploymentWorkflow) error {
	result := validation.ValidateReadiness(snap.Project)
	_ = e.registry.Update(id, func(wf *domain.DeploymentWorkflow) error {
		step := wf.Step(domain.StepValidate)
		step.AppendLog(fmt.Sprintf("readiness score %d/100", result.Score))
		for _, rec := range result.Recommendations {
			step.AppendLog("recommendation: " + rec)
		}
		return nil
	})
	if !result.IsValid {
		return fmt.Errorf("configuration is not ready to deploy (score %d/100): %w",
			result.Score, domain.ErrInvalidConfig)
	}
	return nil
}

func (e *Engine) actProvision(ctx context.Context, id string, snap *domain.DeploymentWorkflow) error {
	platformProjectID, err := e.adapter.Provision(ctx, snap.Platform, snap.Project)
	if err != nil {
		return err
	}
	return e.registry.Update(id, func(wf *domain.DeploymentWorkflow) error {
		wf.PlatformProjectID = platformProjectID
		wf.Step(domain.StepProvision).AppendLog("provisioned platform project " + platformProjectID)
		wf.AppendLog("provisioned platform project " + platformProjectID)
		return nil
	})
}

func (e *Engine) actDeploy(ctx context.Context, id string, snap *domain.DeploymentWorkflow) error {
	result, err := e.adapter.Deploy(ctx, snap.Platform, snap.PlatformProjectID, snap.Project)
	if err != nil {
		return err
	}
	return e.registry.Update(id, func(wf *domain.DeploymentWorkflow) error {
		wf.DeploymentURL = result.DeploymentURL
		wf.PreviewURL = result.PreviewURL
		wf.Step(domain.StepDeploy).AppendLog("deployed to " + result.DeploymentURL)
		wf.AppendLog("deployed to " + result.DeploymentURL)
		return nil
	})
}

func (e *Engine) actVerify(ctx context.Context, id string, snap *domain.DeploymentWorkflow) error {
	if snap.DeploymentURL == "" {
		return errors.New("no deployment URL to verify")
	}
	result := validation.ValidatePostDeploy(ctx, e.probe, snap.DeploymentURL, snap.Project)
	_ = e.registry.Update(id, func(wf *domain.DeploymentWorkflow) error {
		step := wf.Step(domain.StepVerify)
		step.AppendLog(fmt.Sprintf("post-deploy score %d/100", result.Score))
		for _, check := range result.Checks {
			step.AppendLog(fmt.Sprintf("%s: %s (%d)", check.ID, check.Status, check.Score))
		}
		return nil
	})
	if !result.IsValid {
		return fmt.Errorf("deployment verification failed with score %d/100", result.Score)
	}
	return nil
}

// publish emits an event carrying fresh snapshots of the workflow and,
// when stepID is non-empty, the step.
func (e *Engine) publish(typ EventType, id string, stepID domain.StepID) {
	if e.bus == nil {
		return
	}
	evt := Event{Type: typ, WorkflowID: id, Timestamp: time.Now().UTC()}
	if snap, err := e.registry.Snapshot(id); err == nil {
		evt.Workflow = snap
		if stepID != "" {
			evt.Step = snap.Step(stepID)
		}
	}
	e.bus.Publish(evt)
}
