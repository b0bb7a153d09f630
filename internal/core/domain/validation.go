package domain

// =============================================================================
// Validation Results
// =============================================================================

// CheckStatus is the verdict of one validation rule group.
type CheckStatus string

const (
	CheckPassed  CheckStatus = "passed"
	CheckWarning CheckStatus = "warning"
	CheckFailed  CheckStatus = "failed"
)

// ValidationCheck is the result of one rule group. Produced fresh on each
// validation call and never mutated afterwards.
type ValidationCheck struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Status      CheckStatus `json:"status"`
	Score       int         `json:"score"`
	Message     string      `json:"message"`
	Suggestion  string      `json:"suggestion,omitempty"`
}

// DeploymentValidation aggregates the checks of one validation pass.
type DeploymentValidation struct {
	// IsValid is true iff no check failed.
	IsValid bool `json:"is_valid"`

	Checks []ValidationCheck `json:"checks"`

	// Score is the arithmetic mean of check scores, 0 when there are none.
	Score int `json:"score"`

	Recommendations []string `json:"recommendations,omitempty"`
}

// AggregateValidation builds a DeploymentValidation from individual checks.
// Recommendations are drawn from the suggestions of non-passed checks.
func AggregateValidation(checks []ValidationCheck) DeploymentValidation {
	v := DeploymentValidation{
		IsValid: true,
		Checks:  checks,
	}

	if len(checks) == 0 {
		return v
	}

	total := 0
	for _, c := range checks {
		total += c.Score
		if c.Status == CheckFailed {
			v.IsValid = false
		}
		if c.Status != CheckPassed && c.Suggestion != "" {
			v.Recommendations = append(v.Recommendations, c.Suggestion)
		}
	}
	v.Score = total / len(checks)

	return v
}
