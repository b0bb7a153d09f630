package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jsodeh/sabi/internal/core/domain"
)

// =============================================================================
// Rule Table Types
// =============================================================================

// rule is one independent deduction within a category. Violated returns a
// message per violation; Deduct applies per violation up to Cap.
type rule struct {
	id         string
	deduct     int
	cap        int // 0 means no cap
	suggestion string
	violated   func(cfg domain.ProjectConfig) []string
}

// category is one rule group producing a single ValidationCheck.
// Thresholds differ per category and are preserved as observed in the
// deployment guidance this engine was distilled from; normalizing them
// would silently change pass/fail outcomes.
type category struct {
	id          string
	name        string
	description string
	baseline    int
	passAt      int
	warnAt      int // a score below warnAt is a failure; warnAt 0 never fails
	rules       []rule
}

// evaluate runs the category's rules and produces its check.
func (c category) evaluate(cfg domain.ProjectConfig) domain.ValidationCheck {
	score := c.baseline
	var messages []string
	suggestion := ""

	for _, r := range c.rules {
		violations := r.violated(cfg)
		if len(violations) == 0 {
			continue
		}
		deduction := r.deduct * len(violations)
		if r.cap > 0 && deduction > r.cap {
			deduction = r.cap
		}
		score -= deduction
		messages = append(messages, violations...)
		if suggestion == "" {
			suggestion = r.suggestion
		}
	}

	if score < 0 {
		score = 0
	}

	message := "all checks passed"
	if len(messages) > 0 {
		message = strings.Join(messages, "; ")
	}

	return domain.ValidationCheck{
		ID:          c.id,
		Name:        c.name,
		Description: c.description,
		Status:      c.statusFor(score),
		Score:       score,
		Message:     message,
		Suggestion:  suggestion,
	}
}

func (c category) statusFor(score int) domain.CheckStatus {
	switch {
	case score >= c.passAt:
		return domain.CheckPassed
	case score >= c.warnAt:
		return domain.CheckWarning
	default:
		return domain.CheckFailed
	}
}

// =============================================================================
// Rule Predicates
// =============================================================================

var envKeyPattern = regexp.MustCompile(`^[A-Z_][A-Z0-9_]*$`)

// secretKeyHints mark env var names that should carry strong values.
var secretKeyHints = []string{"secret", "password", "token", "key"}

func secretLikeKey(key string) bool {
	lower := strings.ToLower(key)
	for _, hint := range secretKeyHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

func single(violated bool, message string) []string {
	if !violated {
		return nil
	}
	return []string{message}
}

// =============================================================================
// Readiness Categories
// =============================================================================

// readinessCategories is the declarative rule table for ValidateReadiness.
// Order is the order checks appear in the result.
var readinessCategories = []category{
	{
		id:          "project-config",
		name:        "Project Configuration",
		description: "Correctness of the basic project settings",
		baseline:    100,
		passAt:      80,
		warnAt:      50,
		rules: []rule{
			{
				id: "name-empty", deduct: 40,
				suggestion: "give the project a descriptive name",
				violated: func(cfg domain.ProjectConfig) []string {
					return single(strings.TrimSpace(cfg.Name) == "", "project name is empty")
				},
			},
			{
				id: "name-short", deduct: 25,
				suggestion: "use a project name of at least 3 characters",
				violated: func(cfg domain.ProjectConfig) []string {
					name := strings.TrimSpace(cfg.Name)
					return single(name != "" && len(name) < 3, "project name is shorter than 3 characters")
				},
			},
			{
				id: "kind-unknown", deduct: 40,
				suggestion: "set the project kind to one of: static, react, vue, nextjs, node",
				violated: func(cfg domain.ProjectConfig) []string {
					return single(!domain.KnownKind(cfg.Kind), fmt.Sprintf("unknown project kind %q", cfg.Kind))
				},
			},
			{
				id: "source-url", deduct: 15,
				suggestion: "use an absolute http(s) URL for the project source",
				violated: func(cfg domain.ProjectConfig) []string {
					return single(cfg.SourceURL != "" && !domain.WellFormedURL(cfg.SourceURL), "source URL is not a well-formed http(s) URL")
				},
			},
			{
				id: "custom-domain", deduct: 20,
				suggestion: "use a bare hostname like www.example.com for the custom domain",
				violated: func(cfg domain.ProjectConfig) []string {
					d := cfg.Options.CustomDomain
					return single(d != "" && !domain.WellFormedDomain(d), "custom domain is not a well-formed hostname")
				},
			},
		},
	},
	{
		id:          "build-settings",
		name:        "Build Settings",
		description: "Build command, output directory and environment variables",
		baseline:    90,
		passAt:      80,
		warnAt:      50,
		rules: []rule{
			{
				id: "build-command", deduct: 30,
				suggestion: "set a build command, e.g. \"npm run build\"",
				violated: func(cfg domain.ProjectConfig) []string {
					return single(domain.RequiresBuild(cfg.Kind) && cfg.Options.BuildCommand == "",
						fmt.Sprintf("%s projects need a build command", cfg.Kind))
				},
			},
			{
				id: "output-dir", deduct: 15,
				suggestion: "set the build output directory, e.g. \"dist\"",
				violated: func(cfg domain.ProjectConfig) []string {
					return single(domain.RequiresBuild(cfg.Kind) && cfg.Options.OutputDir == "",
						"no build output directory configured")
				},
			},
			{
				id: "env-keys", deduct: 10, cap: 30,
				suggestion: "rename environment variables to UPPER_SNAKE_CASE",
				violated: func(cfg domain.ProjectConfig) []string {
					var bad []string
					for key := range cfg.Options.EnvVars {
						if !envKeyPattern.MatchString(key) {
							bad = append(bad, fmt.Sprintf("environment variable %q is not UPPER_SNAKE_CASE", key))
						}
					}
					return bad
				},
			},
		},
	},
	{
		id:          "security",
		name:        "Security",
		description: "Transport security and secret hygiene",
		baseline:    100,
		passAt:      80,
		warnAt:      50,
		rules: []rule{
			{
				id: "ssl", deduct: 30,
				suggestion: "enable SSL so the site is served over HTTPS",
				violated: func(cfg domain.ProjectConfig) []string {
					return single(!cfg.Options.SSL, "SSL is disabled")
				},
			},
			{
				id: "weak-secrets", deduct: 20, cap: 60,
				suggestion: "use secrets of at least 8 characters",
				violated: func(cfg domain.ProjectConfig) []string {
					var weak []string
					for key, value := range cfg.Options.EnvVars {
						if secretLikeKey(key) && len(value) < 8 {
							weak = append(weak, fmt.Sprintf("value of %q looks like a secret but is shorter than 8 characters", key))
						}
					}
					return weak
				},
			},
		},
	},
	{
		id:          "performance",
		name:        "Performance",
		description: "Kind-specific optimization hints",
		baseline:    80,
		passAt:      80,
		warnAt:      0, // hints only, never a failure
		rules: []rule{
			{
				id: "spa-output", deduct: 10,
				suggestion: "build a production bundle before deploying",
				violated: func(cfg domain.ProjectConfig) []string {
					spa := cfg.Kind == domain.KindReact || cfg.Kind == domain.KindVue
					return single(spa && cfg.Options.OutputDir == "", "no production bundle directory configured")
				},
			},
			{
				id: "node-env", deduct: 10,
				suggestion: "set NODE_ENV=production for node projects",
				violated: func(cfg domain.ProjectConfig) []string {
					if cfg.Kind != domain.KindNode {
						return nil
					}
					return single(cfg.Options.EnvVars["NODE_ENV"] != "production", "NODE_ENV is not set to production")
				},
			},
		},
	},
	{
		id:          "seo",
		name:        "SEO",
		description: "Search visibility prerequisites",
		baseline:    100,
		passAt:      70,
		warnAt:      40,
		rules: []rule{
			{
				id: "custom-domain", deduct: 20,
				suggestion: "attach a custom domain to improve search ranking",
				violated: func(cfg domain.ProjectConfig) []string {
					return single(cfg.Options.CustomDomain == "", "no custom domain configured")
				},
			},
			{
				id: "https", deduct: 15,
				suggestion: "enable SSL; search engines rank HTTPS sites higher",
				violated: func(cfg domain.ProjectConfig) []string {
					return single(!cfg.Options.SSL, "site will not be served over HTTPS")
				},
			},
		},
	},
	{
		id:          "accessibility",
		name:        "Accessibility",
		description: "Static accessibility baseline",
		baseline:    80,
		passAt:      80,
		warnAt:      50,
		rules:       nil, // baseline only until the probe can inspect markup
	},
}
