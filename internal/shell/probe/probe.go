// Package probe inspects live deployed URLs for health and quality signals.
// This is part of the Imperative Shell; the scoring thresholds live in the
// validation package, the measurements live here.
package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jsodeh/sabi/internal/core/domain"
)

// maxBodyBytes bounds how much of a page the probe reads for sniffing.
const maxBodyBytes = 256 * 1024

// Config configures the HTTP probe.
type Config struct {
	// Timeout is the per-measurement request timeout. Default: 15 seconds.
	Timeout time.Duration
}

// DefaultConfig returns the default probe configuration.
func DefaultConfig() Config {
	return Config{Timeout: 15 * time.Second}
}

// HTTPProbe implements validation.Probe with plain HTTP requests.
type HTTPProbe struct {
	client *http.Client
	logger *slog.Logger
}

// NewHTTPProbe creates an HTTP probe.
func NewHTTPProbe(cfg Config, logger *slog.Logger) *HTTPProbe {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPProbe{
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With("component", "http_probe"),
	}
}

// fetch performs one GET and returns the response plus a bounded body.
func (p *HTTPProbe) fetch(ctx context.Context, url string) (*http.Response, []byte, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("build request: %w", err)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	elapsed := time.Since(start)
	if err != nil {
		return resp, nil, elapsed, err
	}
	return resp, body, elapsed, nil
}

// TestConnectivity checks that the URL answers at all.
func (p *HTTPProbe) TestConnectivity(ctx context.Context, url string) (domain.ValidationCheck, error) {
	check := domain.ValidationCheck{
		ID:          "connectivity",
		Name:        "Connectivity",
		Description: "The deployment responds to HTTP requests",
	}

	resp, _, _, err := p.fetch(ctx, url)
	if err != nil {
		return domain.ValidationCheck{}, err
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		check.Score = 100
		check.Message = fmt.Sprintf("responded with %d", resp.StatusCode)
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		check.Score = 80
		check.Message = fmt.Sprintf("responded with redirect %d", resp.StatusCode)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		check.Score = 40
		check.Message = fmt.Sprintf("responded with client error %d", resp.StatusCode)
		check.Suggestion = "check the publish directory contains an index page"
	default:
		check.Score = 10
		check.Message = fmt.Sprintf("responded with server error %d", resp.StatusCode)
		check.Suggestion = "check the platform's deploy logs for runtime errors"
	}
	return check, nil
}

// TestSSL checks the URL is served over HTTPS with a healthy certificate.
func (p *HTTPProbe) TestSSL(ctx context.Context, url string) (domain.ValidationCheck, error) {
	check := domain.ValidationCheck{
		ID:          "ssl",
		Name:        "TLS / HTTPS",
		Description: "The deployment is served over HTTPS",
	}

	if !strings.HasPrefix(url, "https://") {
		check.Score = 0
		check.Message = "deployment is not served over HTTPS"
		check.Suggestion = "enable SSL on the platform"
		return check, nil
	}

	resp, _, _, err := p.fetch(ctx, url)
	if err != nil {
		return domain.ValidationCheck{}, err
	}

	if resp.TLS == nil {
		check.Score = 20
		check.Message = "connection was not negotiated over TLS"
		return check, nil
	}

	check.Score = 100
	check.Message = "TLS handshake succeeded"
	if len(resp.TLS.PeerCertificates) > 0 {
		expiry := resp.TLS.PeerCertificates[0].NotAfter
		if until := time.Until(expiry); until < 14*24*time.Hour {
			check.Score = 70
			check.Message = fmt.Sprintf("certificate expires soon (%s)", expiry.Format("2006-01-02"))
			check.Suggestion = "renew the certificate or confirm auto-renewal is enabled"
		}
	}
	return check, nil
}

// TestPerformance derives a synthetic score from response latency.
// It stands in for a full Lighthouse-style measurement.
func (p *HTTPProbe) TestPerformance(ctx context.Context, url string) (domain.ValidationCheck, error) {
	check := domain.ValidationCheck{
		ID:          "performance",
		Name:        "Performance",
		Description: "Synthetic latency-based performance score",
	}

	_, _, elapsed, err := p.fetch(ctx, url)
	if err != nil {
		return domain.ValidationCheck{}, err
	}

	switch {
	case elapsed < 200*time.Millisecond:
		check.Score = 95
	case elapsed < 500*time.Millisecond:
		check.Score = 85
	case elapsed < time.Second:
		check.Score = 70
	case elapsed < 2*time.Second:
		check.Score = 50
	default:
		check.Score = 30
	}
	check.Message = fmt.Sprintf("first response in %dms", elapsed.Milliseconds())
	if check.Score < 80 {
		check.Suggestion = "enable the platform CDN and compress large assets"
	}
	return check, nil
}

// TestSEO sniffs the page for basic search visibility markers.
func (p *HTTPProbe) TestSEO(ctx context.Context, url string) (domain.ValidationCheck, error) {
	check := domain.ValidationCheck{
		ID:          "seo",
		Name:        "SEO",
		Description: "Basic search visibility markers",
	}

	_, body, _, err := p.fetch(ctx, url)
	if err != nil {
		return domain.ValidationCheck{}, err
	}

	page := strings.ToLower(string(body))
	score := 100
	var problems []string

	if !strings.Contains(page, "<title>") {
		score -= 25
		problems = append(problems, "missing <title> tag")
	}
	if !strings.Contains(page, `name="description"`) {
		score -= 20
		problems = append(problems, "missing meta description")
	}
	if !strings.HasPrefix(url, "https://") {
		score -= 15
		problems = append(problems, "not served over HTTPS")
	}

	check.Score = score
	if len(problems) == 0 {
		check.Message = "basic SEO markers present"
	} else {
		check.Message = strings.Join(problems, "; ")
		check.Suggestion = "add a title tag and meta description to the page head"
	}
	return check, nil
}

// TestFunctionality runs a kind-specific smoke check against the page.
func (p *HTTPProbe) TestFunctionality(ctx context.Context, url string, kind domain.ProjectKind) (domain.ValidationCheck, error) {
	check := domain.ValidationCheck{
		ID:          "functionality",
		Name:        "Functionality",
		Description: "Kind-specific smoke check",
	}

	resp, body, _, err := p.fetch(ctx, url)
	if err != nil {
		return domain.ValidationCheck{}, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		check.Score = 20
		check.Message = fmt.Sprintf("page returned %d", resp.StatusCode)
		return check, nil
	}

	page := strings.ToLower(string(body))
	switch kind {
	case domain.KindReact, domain.KindVue, domain.KindNextJS:
		// SPA bundles mount into a root element and load at least one script.
		if strings.Contains(page, "<script") {
			check.Score = 100
			check.Message = "application bundle is present"
		} else {
			check.Score = 60
			check.Message = "no script tags found; the app bundle may not have deployed"
			check.Suggestion = "confirm the build output directory matches the platform setting"
		}
	case domain.KindNode:
		check.Score = 100
		check.Message = "server responded successfully"
	default:
		if strings.Contains(page, "<html") {
			check.Score = 100
			check.Message = "page serves HTML content"
		} else {
			check.Score = 70
			check.Message = "response does not look like an HTML page"
		}
	}
	return check, nil
}
