package validation

import (
	"github.com/jsodeh/sabi/internal/core/domain"
)

// ValidateReadiness scores a project configuration against every readiness
// category. The result is deterministic: identical configurations always
// yield identical checks.
func ValidateReadiness(cfg domain.ProjectConfig) domain.DeploymentValidation {
	checks := make([]domain.ValidationCheck, 0, len(readinessCategories))
	for _, cat := range readinessCategories {
		checks = append(checks, cat.evaluate(cfg))
	}
	return domain.AggregateValidation(checks)
}
