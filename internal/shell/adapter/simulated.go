package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jsodeh/sabi/internal/core/domain"
)

// Simulated is a deterministic in-process adapter used for local
// development and tests. It produces stable URLs and exposes failure
// injection so retry behavior can be exercised without a real platform.
type Simulated struct {
	logger  *slog.Logger
	latency time.Duration

	mu       sync.Mutex
	failures map[string]int // remaining failures per action name
	calls    map[string]int
}

// SimulatedOption configures a Simulated adapter.
type SimulatedOption func(*Simulated)

// WithLatency makes every action take d before returning.
func WithLatency(d time.Duration) SimulatedOption {
	return func(s *Simulated) { s.latency = d }
}

// WithFailures makes the named action fail count times before succeeding.
// Action names: authenticate, provision, deploy, configure.
func WithFailures(action string, count int) SimulatedOption {
	return func(s *Simulated) { s.failures[action] = count }
}

// NewSimulated creates a simulated adapter.
func NewSimulated(logger *slog.Logger, opts ...SimulatedOption) *Simulated {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Simulated{
		logger:   logger.With("component", "simulated_adapter"),
		failures: make(map[string]int),
		calls:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Calls reports how many times the named action ran.
func (s *Simulated) Calls(action string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[action]
}

func (s *Simulated) act(ctx context.Context, action string) error {
	if s.latency > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.latency):
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[action]++
	if s.failures[action] > 0 {
		s.failures[action]--
		return fmt.Errorf("simulated %s failure", action)
	}
	return nil
}

func (s *Simulated) Authenticate(ctx context.Context, platformID string) error {
	if err := s.act(ctx, "authenticate"); err != nil {
		return err
	}
	s.logger.Debug("authenticated", "platform", platformID)
	return nil
}

func (s *Simulated) Provision(ctx context.Context, platformID string, cfg domain.ProjectConfig) (string, error) {
	if err := s.act(ctx, "provision"); err != nil {
		return "", err
	}
	id := "sim_" + uuid.New().String()[:8]
	s.logger.Debug("provisioned", "platform", platformID, "platform_project_id", id)
	return id, nil
}

func (s *Simulated) Deploy(ctx context.Context, platformID, platformProjectID string, cfg domain.ProjectConfig) (*DeployResult, error) {
	if err := s.act(ctx, "deploy"); err != nil {
		return nil, err
	}
	slug := slugify(cfg.Name)
	return &DeployResult{
		DeploymentURL: fmt.Sprintf("https://%s.%s.example.app", slug, platformID),
		PreviewURL:    fmt.Sprintf("https://preview-%s.%s.example.app", slug, platformID),
	}, nil
}

func (s *Simulated) ConfigureProduction(ctx context.Context, platformID, platformProjectID string, cfg domain.ProjectConfig) error {
	if err := s.act(ctx, "configure"); err != nil {
		return err
	}
	s.logger.Debug("production configured",
		"platform", platformID,
		"custom_domain", cfg.Options.CustomDomain,
		"ssl", cfg.Options.SSL,
	)
	return nil
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	lastDash := true
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		out = "site"
	}
	return out
}
