package validation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsodeh/sabi/internal/core/domain"
)

// stubProbe returns canned scores; errs forces a measurement error per id.
type stubProbe struct {
	scores map[string]int
	errs   map[string]error
}

func (p *stubProbe) check(id string) (domain.ValidationCheck, error) {
	if err := p.errs[id]; err != nil {
		return domain.ValidationCheck{}, err
	}
	return domain.ValidationCheck{ID: id, Score: p.scores[id], Message: "ok"}, nil
}

func (p *stubProbe) TestConnectivity(ctx context.Context, url string) (domain.ValidationCheck, error) {
	return p.check("connectivity")
}

func (p *stubProbe) TestSSL(ctx context.Context, url string) (domain.ValidationCheck, error) {
	return p.check("ssl")
}

func (p *stubProbe) TestPerformance(ctx context.Context, url string) (domain.ValidationCheck, error) {
	return p.check("performance")
}

func (p *stubProbe) TestSEO(ctx context.Context, url string) (domain.ValidationCheck, error) {
	return p.check("seo")
}

func (p *stubProbe) TestFunctionality(ctx context.Context, url string, kind domain.ProjectKind) (domain.ValidationCheck, error) {
	return p.check("functionality")
}

// =============================================================================
// Post-Deploy Tests
// =============================================================================

func TestValidatePostDeploy_AllHealthy(t *testing.T) {
	probe := &stubProbe{scores: map[string]int{
		"connectivity": 100, "ssl": 95, "performance": 88, "seo": 85, "functionality": 90,
	}}

	v := ValidatePostDeploy(context.Background(), probe, "https://app.example.com", readyProject())

	require.Len(t, v.Checks, 5)
	assert.True(t, v.IsValid)
	for _, c := range v.Checks {
		assert.Equal(t, domain.CheckPassed, c.Status, "check %s", c.ID)
	}
}

func TestValidatePostDeploy_ThresholdsPerCategory(t *testing.T) {
	probe := &stubProbe{scores: map[string]int{
		"connectivity": 60,
		"ssl":          40,
		"performance":  10, // performance never fails
		"seo":          72, // seo passes at 70
		"functionality": 85,
	}}

	v := ValidatePostDeploy(context.Background(), probe, "https://app.example.com", readyProject())

	assert.Equal(t, domain.CheckWarning, checkByID(t, v, "connectivity").Status)
	assert.Equal(t, domain.CheckFailed, checkByID(t, v, "ssl").Status)
	assert.Equal(t, domain.CheckWarning, checkByID(t, v, "performance").Status)
	assert.Equal(t, domain.CheckPassed, checkByID(t, v, "seo").Status)
	assert.False(t, v.IsValid)
}

func TestValidatePostDeploy_ProbeErrorBecomesFailedCheck(t *testing.T) {
	probe := &stubProbe{
		scores: map[string]int{"ssl": 90, "performance": 85, "seo": 80, "functionality": 90},
		errs:   map[string]error{"connectivity": errors.New("connection refused")},
	}

	v := ValidatePostDeploy(context.Background(), probe, "https://app.example.com", readyProject())

	conn := checkByID(t, v, "connectivity")
	assert.Equal(t, domain.CheckFailed, conn.Status)
	assert.Equal(t, 0, conn.Score)
	assert.Contains(t, conn.Message, "connection refused")
	assert.False(t, v.IsValid)
}

func TestValidatePostDeploy_ScoreIsMean(t *testing.T) {
	probe := &stubProbe{scores: map[string]int{
		"connectivity": 100, "ssl": 100, "performance": 100, "seo": 100, "functionality": 50,
	}}

	v := ValidatePostDeploy(context.Background(), probe, "https://app.example.com", readyProject())
	assert.Equal(t, 90, v.Score)
}
