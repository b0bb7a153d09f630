package domain

// =============================================================================
// Platform Capabilities
// =============================================================================

// PricingTier describes how a platform charges.
type PricingTier string

const (
	PricingFree       PricingTier = "free"
	PricingPaidTiered PricingTier = "paid-tiered"
)

// SetupComplexity describes how much work first-time setup takes.
type SetupComplexity string

const (
	SetupEasy    SetupComplexity = "easy"
	SetupMedium  SetupComplexity = "medium"
	SetupComplex SetupComplexity = "complex"
)

// ComplexityRank orders setup complexity for sorting: easy < medium < complex.
func ComplexityRank(c SetupComplexity) int {
	switch c {
	case SetupEasy:
		return 0
	case SetupMedium:
		return 1
	case SetupComplex:
		return 2
	default:
		return 3
	}
}

// Well-known feature names used by the recommender and guidance.
const (
	FeatureCustomDomain = "custom-domain"
	FeatureSSL          = "ssl"
	FeatureCDN          = "cdn"
	FeatureServerless   = "serverless-functions"
	FeatureForms        = "form-handling"
)

// Feature is a named platform capability.
type Feature struct {
	Name             string `json:"name" yaml:"name"`
	Available        bool   `json:"available" yaml:"available"`
	RequiresPaidPlan bool   `json:"requires_paid_plan,omitempty" yaml:"requires_paid_plan,omitempty"`
}

// PlatformCapabilities describes one hosting platform.
// Entries are immutable once loaded into the catalog.
type PlatformCapabilities struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Kinds       []ProjectKind   `json:"kinds" yaml:"kinds"`
	Features    []Feature       `json:"features" yaml:"features"`
	Limitations []string        `json:"limitations,omitempty" yaml:"limitations,omitempty"`
	Pricing     PricingTier     `json:"pricing" yaml:"pricing"`
	Complexity  SetupComplexity `json:"complexity" yaml:"complexity"`
}

// SupportsKind reports whether the platform can host the given project kind.
func (p PlatformCapabilities) SupportsKind(kind ProjectKind) bool {
	for _, k := range p.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// FeatureAvailable reports whether a named feature exists and is available.
func (p PlatformCapabilities) FeatureAvailable(name string) bool {
	for _, f := range p.Features {
		if f.Name == name {
			return f.Available
		}
	}
	return false
}
