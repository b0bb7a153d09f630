// Package recommend provides the pure platform recommendation algorithm.
// This is part of the Functional Core - all functions are pure with no I/O.
package recommend

import (
	"sort"

	"github.com/jsodeh/sabi/internal/core/domain"
)

// =============================================================================
// Preferences
// =============================================================================

// Expertise describes how experienced the user is with deployments.
type Expertise string

const (
	ExpertiseBeginner     Expertise = "beginner"
	ExpertiseIntermediate Expertise = "intermediate"
	ExpertiseAdvanced     Expertise = "advanced"
)

// Preferences guide platform scoring. The zero value expresses no
// preference at all.
type Preferences struct {
	// PreferFree favors platforms with a free pricing tier.
	PreferFree bool `json:"prefer_free"`

	// PreferEasySetup favors platforms with easy first-time setup.
	PreferEasySetup bool `json:"prefer_easy_setup"`

	// RequireCustomDomain demands the custom-domain feature. A platform
	// lacking it takes a hard penalty that outweighs every soft bonus.
	RequireCustomDomain bool `json:"require_custom_domain"`

	// RequireSSL demands the ssl feature, with the same hard-penalty rule.
	RequireSSL bool `json:"require_ssl"`

	// Expertise matches setup complexity to the user: beginners are steered
	// to easy platforms, advanced users get credit for complex ones.
	Expertise Expertise `json:"expertise,omitempty"`
}

// Scoring weights. The hard penalties are sized so that a platform missing
// a required feature always loses to one that has it, no matter how many
// soft bonuses it collects.
const (
	bonusFreeTier     = 30
	bonusEasySetup    = 25
	bonusFeature      = 20
	bonusBeginnerEasy = 20
	bonusAdvanced     = 10
	penaltyNoDomain   = -50
	penaltyNoSSL      = -40
)

// =============================================================================
// Recommendation Result
// =============================================================================

// Recommendation is the scored winner plus the reasons behind the score.
type Recommendation struct {
	Platform domain.PlatformCapabilities `json:"platform"`
	Score    int                         `json:"score"`
	Reasons  []string                    `json:"reasons,omitempty"`
}

// =============================================================================
// Algorithm
// =============================================================================

// ListCompatible filters the catalog to platforms supporting the project's
// kind, sorted by ascending setup complexity. The sort is stable, so
// platforms of equal complexity keep catalog order.
func ListCompatible(catalog []domain.PlatformCapabilities, cfg domain.ProjectConfig) []domain.PlatformCapabilities {
	compatible := make([]domain.PlatformCapabilities, 0, len(catalog))
	for _, p := range catalog {
		if p.SupportsKind(cfg.Kind) {
			compatible = append(compatible, p)
		}
	}
	sort.SliceStable(compatible, func(i, j int) bool {
		return domain.ComplexityRank(compatible[i].Complexity) < domain.ComplexityRank(compatible[j].Complexity)
	})
	return compatible
}

// Recommend scores every compatible platform additively and returns the
// highest scorer. Ties go to the platform appearing earlier in the catalog.
// Returns ErrNoCompatiblePlatform when nothing supports the project kind.
func Recommend(catalog []domain.PlatformCapabilities, cfg domain.ProjectConfig, prefs Preferences) (*Recommendation, error) {
	var best *Recommendation
	found := false

	for _, p := range catalog {
		if !p.SupportsKind(cfg.Kind) {
			continue
		}
		found = true

		score, reasons := scorePlatform(p, prefs)
		if best == nil || score > best.Score {
			best = &Recommendation{Platform: p, Score: score, Reasons: reasons}
		}
	}

	if !found {
		return nil, domain.ErrNoCompatiblePlatform
	}
	return best, nil
}

func scorePlatform(p domain.PlatformCapabilities, prefs Preferences) (int, []string) {
	score := 0
	var reasons []string

	if prefs.PreferFree && p.Pricing == domain.PricingFree {
		score += bonusFreeTier
		reasons = append(reasons, "free pricing tier")
	}
	if prefs.PreferEasySetup && p.Complexity == domain.SetupEasy {
		score += bonusEasySetup
		reasons = append(reasons, "easy setup")
	}

	if prefs.RequireCustomDomain {
		if p.FeatureAvailable(domain.FeatureCustomDomain) {
			score += bonusFeature
			reasons = append(reasons, "supports custom domains")
		} else {
			score += penaltyNoDomain
			reasons = append(reasons, "missing required custom domain support")
		}
	}
	if prefs.RequireSSL {
		if p.FeatureAvailable(domain.FeatureSSL) {
			score += bonusFeature
			reasons = append(reasons, "supports SSL")
		} else {
			score += penaltyNoSSL
			reasons = append(reasons, "missing required SSL support")
		}
	}

	switch prefs.Expertise {
	case ExpertiseBeginner:
		if p.Complexity == domain.SetupEasy {
			score += bonusBeginnerEasy
			reasons = append(reasons, "easy setup suits beginners")
		}
	case ExpertiseAdvanced:
		// Advanced users often want the control a complex platform offers.
		if p.Complexity == domain.SetupComplex {
			score += bonusAdvanced
			reasons = append(reasons, "complex setup offers more control")
		}
	}

	return score, reasons
}
