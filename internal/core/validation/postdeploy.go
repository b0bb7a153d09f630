package validation

import (
	"context"

	"github.com/jsodeh/sabi/internal/core/domain"
)

// =============================================================================
// Probe Collaborator
// =============================================================================

// Probe inspects a live deployed URL for health and quality signals.
// Implementations live in the shell; each method returns one check with a
// 0-100 score, or an error when the measurement itself could not run.
type Probe interface {
	TestConnectivity(ctx context.Context, url string) (domain.ValidationCheck, error)
	TestSSL(ctx context.Context, url string) (domain.ValidationCheck, error)
	TestPerformance(ctx context.Context, url string) (domain.ValidationCheck, error)
	TestSEO(ctx context.Context, url string) (domain.ValidationCheck, error)
	TestFunctionality(ctx context.Context, url string, kind domain.ProjectKind) (domain.ValidationCheck, error)
}

// postDeployThresholds maps probe check ids to the same per-category
// threshold pairs the readiness table uses.
var postDeployThresholds = map[string]struct{ passAt, warnAt int }{
	"connectivity":  {80, 50},
	"ssl":           {80, 50},
	"performance":   {80, 0},
	"seo":           {70, 40},
	"functionality": {80, 50},
}

// ValidatePostDeploy probes a live URL and aggregates the results exactly
// like ValidateReadiness: probe scores are re-statused through the category
// threshold table, and a probe that cannot run at all becomes a failed
// check with score 0.
func ValidatePostDeploy(ctx context.Context, probe Probe, url string, cfg domain.ProjectConfig) domain.DeploymentValidation {
	type measurement struct {
		id   string
		name string
		run  func(context.Context) (domain.ValidationCheck, error)
	}

	measurements := []measurement{
		{"connectivity", "Connectivity", func(ctx context.Context) (domain.ValidationCheck, error) {
			return probe.TestConnectivity(ctx, url)
		}},
		{"ssl", "TLS / HTTPS", func(ctx context.Context) (domain.ValidationCheck, error) {
			return probe.TestSSL(ctx, url)
		}},
		{"performance", "Performance", func(ctx context.Context) (domain.ValidationCheck, error) {
			return probe.TestPerformance(ctx, url)
		}},
		{"seo", "SEO", func(ctx context.Context) (domain.ValidationCheck, error) {
			return probe.TestSEO(ctx, url)
		}},
		{"functionality", "Functionality", func(ctx context.Context) (domain.ValidationCheck, error) {
			return probe.TestFunctionality(ctx, url, cfg.Kind)
		}},
	}

	checks := make([]domain.ValidationCheck, 0, len(measurements))
	for _, m := range measurements {
		check, err := m.run(ctx)
		if err != nil {
			check = domain.ValidationCheck{
				ID:      m.id,
				Name:    m.name,
				Score:   0,
				Message: "probe failed: " + err.Error(),
			}
		}
		if check.ID == "" {
			check.ID = m.id
		}
		if check.Name == "" {
			check.Name = m.name
		}
		check.Status = postDeployStatus(m.id, check.Score)
		checks = append(checks, check)
	}

	return domain.AggregateValidation(checks)
}

func postDeployStatus(id string, score int) domain.CheckStatus {
	t, ok := postDeployThresholds[id]
	if !ok {
		t = struct{ passAt, warnAt int }{80, 50}
	}
	switch {
	case score >= t.passAt:
		return domain.CheckPassed
	case score >= t.warnAt:
		return domain.CheckWarning
	default:
		return domain.CheckFailed
	}
}
