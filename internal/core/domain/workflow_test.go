package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProject() ProjectConfig {
	return ProjectConfig{
		ID:      "proj_123",
		Name:    "My Portfolio",
		Kind:    KindStatic,
		Options: DefaultProjectOptions(),
	}
}

// =============================================================================
// Workflow Creation Tests
// =============================================================================

func TestNewWorkflow_ValidProject(t *testing.T) {
	wf, err := NewWorkflow(validProject(), "netlify")
	require.NoError(t, err)

	assert.NotEmpty(t, wf.ID)
	assert.Equal(t, "proj_123", wf.ProjectID)
	assert.Equal(t, "netlify", wf.Platform)
	assert.Equal(t, StatusPending, wf.Status)
	assert.NotZero(t, wf.CreatedAt)
}

func TestNewWorkflow_UnknownKind(t *testing.T) {
	project := validProject()
	project.Kind = "cobol-cgi"

	_, err := NewWorkflow(project, "netlify")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewWorkflow_FixedSixStepPlan(t *testing.T) {
	wf, err := NewWorkflow(validProject(), "netlify")
	require.NoError(t, err)

	require.Len(t, wf.Steps, 6)
	order := []StepID{StepValidate, StepAuth, StepProvision, StepDeploy, StepConfigure, StepVerify}
	for i, id := range order {
		assert.Equal(t, id, wf.Steps[i].ID)
		assert.Equal(t, StatusPending, wf.Steps[i].Status)
	}
}

func TestNewWorkflow_RetryBudgets(t *testing.T) {
	wf, err := NewWorkflow(validProject(), "vercel")
	require.NoError(t, err)

	assert.Equal(t, 1, wf.Step(StepValidate).MaxRetries)
	assert.Equal(t, 3, wf.Step(StepDeploy).MaxRetries)
	assert.Equal(t, 2, wf.Step(StepConfigure).MaxRetries)
}

func TestNewWorkflow_StepsAreIndependentCopies(t *testing.T) {
	wf1, err := NewWorkflow(validProject(), "netlify")
	require.NoError(t, err)
	wf2, err := NewWorkflow(validProject(), "netlify")
	require.NoError(t, err)

	wf1.Steps[0].AppendLog("only on wf1")
	assert.Empty(t, wf2.Steps[0].Logs)
}

// =============================================================================
// Status Transition Tests
// =============================================================================

func TestValidTransition_Allowed(t *testing.T) {
	assert.NoError(t, ValidTransition(StatusPending, StatusInProgress))
	assert.NoError(t, ValidTransition(StatusInProgress, StatusCompleted))
	assert.NoError(t, ValidTransition(StatusInProgress, StatusFailed))
	assert.NoError(t, ValidTransition(StatusInProgress, StatusCancelled))
	assert.NoError(t, ValidTransition(StatusFailed, StatusPending))
}

func TestValidTransition_TerminalStatesAreFinal(t *testing.T) {
	for _, terminal := range []Status{StatusCompleted, StatusCancelled} {
		for _, to := range []Status{StatusPending, StatusInProgress, StatusCompleted, StatusFailed, StatusCancelled} {
			assert.ErrorIs(t, ValidTransition(terminal, to), ErrInvalidTransition)
		}
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusInProgress.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
}

// =============================================================================
// Step Lifecycle Tests
// =============================================================================

func TestStep_CompleteRecordsMinimumOneSecond(t *testing.T) {
	step := &DeploymentStep{ID: StepDeploy, Status: StatusPending, MaxRetries: 3}
	now := time.Now()

	require.NoError(t, step.Start(now))
	require.NoError(t, step.Complete(now.Add(50*time.Millisecond)))

	assert.Equal(t, StatusCompleted, step.Status)
	assert.Equal(t, int64(1), step.DurationSeconds)
}

func TestStep_CompleteRecordsElapsedSeconds(t *testing.T) {
	step := &DeploymentStep{ID: StepDeploy, Status: StatusPending, MaxRetries: 3}
	now := time.Now()

	require.NoError(t, step.Start(now))
	require.NoError(t, step.Complete(now.Add(5*time.Second)))

	assert.Equal(t, int64(5), step.DurationSeconds)
}

func TestStep_RetryConsumesBudget(t *testing.T) {
	step := &DeploymentStep{ID: StepAuth, Status: StatusPending, MaxRetries: 2}
	now := time.Now()

	for attempt := 0; attempt < 2; attempt++ {
		require.NoError(t, step.Start(now))
		require.NoError(t, step.Fail(now, "boom"))
		require.NoError(t, step.Retry())
		assert.Equal(t, StatusPending, step.Status)
		assert.Empty(t, step.Error)
	}

	require.NoError(t, step.Start(now))
	require.NoError(t, step.Fail(now, "boom"))
	assert.ErrorIs(t, step.Retry(), ErrRetriesExhausted)
	assert.Equal(t, 2, step.RetryCount)
	assert.LessOrEqual(t, step.RetryCount, step.MaxRetries)
}

func TestStep_CannotRetryFromCompleted(t *testing.T) {
	step := &DeploymentStep{ID: StepVerify, Status: StatusPending, MaxRetries: 2}
	now := time.Now()

	require.NoError(t, step.Start(now))
	require.NoError(t, step.Complete(now))
	assert.ErrorIs(t, step.Retry(), ErrInvalidTransition)
}

// =============================================================================
// Workflow Transition Tests
// =============================================================================

func TestWorkflow_TransitionRecordsTimestamps(t *testing.T) {
	wf, err := NewWorkflow(validProject(), "netlify")
	require.NoError(t, err)

	require.NoError(t, wf.Transition(StatusInProgress))
	assert.NotNil(t, wf.StartedAt)

	require.NoError(t, wf.Transition(StatusCompleted))
	assert.NotNil(t, wf.EndedAt)
	assert.GreaterOrEqual(t, wf.DurationSeconds, int64(1))
}

func TestWorkflow_InvalidTransition(t *testing.T) {
	wf, err := NewWorkflow(validProject(), "netlify")
	require.NoError(t, err)

	assert.ErrorIs(t, wf.Transition(StatusCompleted), ErrInvalidTransition)
}

// =============================================================================
// Clone Tests
// =============================================================================

func TestWorkflow_CloneIsDeep(t *testing.T) {
	project := validProject()
	project.Options.EnvVars = map[string]string{"API_URL": "https://api.example.com"}
	wf, err := NewWorkflow(project, "netlify")
	require.NoError(t, err)
	wf.AppendLog("created")

	clone := wf.Clone()
	clone.Steps[0].AppendLog("mutated clone")
	clone.AppendLog("clone only")
	clone.Project.Options.EnvVars["API_URL"] = "changed"

	assert.Empty(t, wf.Steps[0].Logs)
	assert.Len(t, wf.Logs, 1)
	assert.Equal(t, "https://api.example.com", wf.Project.Options.EnvVars["API_URL"])
}

// =============================================================================
// Aggregate Validation Tests
// =============================================================================

func TestAggregateValidation_Empty(t *testing.T) {
	v := AggregateValidation(nil)
	assert.True(t, v.IsValid)
	assert.Equal(t, 0, v.Score)
}

func TestAggregateValidation_MeanAndValidity(t *testing.T) {
	v := AggregateValidation([]ValidationCheck{
		{ID: "a", Status: CheckPassed, Score: 100},
		{ID: "b", Status: CheckWarning, Score: 60, Suggestion: "fix b"},
		{ID: "c", Status: CheckFailed, Score: 20, Suggestion: "fix c"},
	})

	assert.False(t, v.IsValid)
	assert.Equal(t, 60, v.Score)
	assert.Equal(t, []string{"fix b", "fix c"}, v.Recommendations)
}

func TestAggregateValidation_ValidIffNoFailure(t *testing.T) {
	v := AggregateValidation([]ValidationCheck{
		{ID: "a", Status: CheckPassed, Score: 100},
		{ID: "b", Status: CheckWarning, Score: 55},
	})
	assert.True(t, v.IsValid)
}

// =============================================================================
// Project Helpers Tests
// =============================================================================

func TestWellFormedDomain(t *testing.T) {
	assert.True(t, WellFormedDomain("example.com"))
	assert.True(t, WellFormedDomain("blog.my-site.co.uk"))
	assert.False(t, WellFormedDomain("localhost"))
	assert.False(t, WellFormedDomain("https://example.com"))
	assert.False(t, WellFormedDomain("bad domain.com"))
	assert.False(t, WellFormedDomain("-leading.example.com"))
}

func TestWellFormedURL(t *testing.T) {
	assert.True(t, WellFormedURL("https://github.com/user/repo"))
	assert.False(t, WellFormedURL("github.com/user/repo"))
	assert.False(t, WellFormedURL("ftp://example.com"))
}

func TestRequiresBuild(t *testing.T) {
	assert.False(t, RequiresBuild(KindStatic))
	assert.True(t, RequiresBuild(KindReact))
	assert.True(t, RequiresBuild(KindNode))
}
