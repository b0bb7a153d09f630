package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/digitalocean/godo"

	"github.com/jsodeh/sabi/internal/core/domain"
)

// DigitalOcean implements PlatformAdapter against the App Platform API.
// It only reacts to the "digitalocean-apps" catalog entry; other platform
// ids are rejected so a misconfigured engine fails loudly.
type DigitalOcean struct {
	client *godo.Client
	logger *slog.Logger
}

// PlatformDigitalOceanApps is the catalog id this adapter serves.
const PlatformDigitalOceanApps = "digitalocean-apps"

// ErrUnsupportedPlatform is returned when an adapter is asked to act on a
// platform it does not implement.
var ErrUnsupportedPlatform = errors.New("platform not supported by this adapter")

// NewDigitalOcean creates an App Platform adapter.
func NewDigitalOcean(apiToken string, logger *slog.Logger) *DigitalOcean {
	if logger == nil {
		logger = slog.Default()
	}
	return &DigitalOcean{
		client: godo.NewFromToken(apiToken),
		logger: logger.With("adapter", "digitalocean"),
	}
}

// Authenticate verifies the API token by fetching the account.
func (d *DigitalOcean) Authenticate(ctx context.Context, platformID string) error {
	if platformID != PlatformDigitalOceanApps {
		return fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platformID)
	}
	account, _, err := d.client.Account.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to authenticate with DigitalOcean: %w", err)
	}
	d.logger.Info("authenticated", "account_status", account.Status)
	return nil
}

// Provision creates the App Platform app and returns its id.
func (d *DigitalOcean) Provision(ctx context.Context, platformID string, cfg domain.ProjectConfig) (string, error) {
	if platformID != PlatformDigitalOceanApps {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platformID)
	}

	app, _, err := d.client.Apps.Create(ctx, &godo.AppCreateRequest{
		Spec: d.appSpec(cfg),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create app: %w", err)
	}

	d.logger.Info("app provisioned", "app_id", app.ID, "project", cfg.Name)
	return app.ID, nil
}

// Deploy triggers a deployment and waits for it to go live.
func (d *DigitalOcean) Deploy(ctx context.Context, platformID, platformProjectID string, cfg domain.ProjectConfig) (*DeployResult, error) {
	if platformID != PlatformDigitalOceanApps {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platformID)
	}

	deployment, _, err := d.client.Apps.CreateDeployment(ctx, platformProjectID, &godo.DeploymentCreateRequest{
		ForceBuild: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create deployment: %w", err)
	}

	if err := d.waitForDeployment(ctx, platformProjectID, deployment.ID); err != nil {
		return nil, err
	}

	app, _, err := d.client.Apps.Get(ctx, platformProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch app after deploy: %w", err)
	}

	liveURL := app.LiveURL
	if liveURL == "" {
		liveURL = "https://" + app.DefaultIngress
	}

	d.logger.Info("deployment live", "app_id", app.ID, "url", liveURL)
	return &DeployResult{
		DeploymentURL: liveURL,
		PreviewURL:    liveURL,
	}, nil
}

func (d *DigitalOcean) waitForDeployment(ctx context.Context, appID, deploymentID string) error {
	for i := 0; i < 60; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}

		deployment, _, err := d.client.Apps.GetDeployment(ctx, appID, deploymentID)
		if err != nil {
			continue
		}

		switch deployment.Phase {
		case godo.DeploymentPhase_Active:
			return nil
		case godo.DeploymentPhase_Error, godo.DeploymentPhase_Canceled:
			return fmt.Errorf("deployment entered phase %s", deployment.Phase)
		}
	}
	return errors.New("timed out waiting for deployment to go live")
}

// ConfigureProduction attaches the custom domain to the app spec.
func (d *DigitalOcean) ConfigureProduction(ctx context.Context, platformID, platformProjectID string, cfg domain.ProjectConfig) error {
	if platformID != PlatformDigitalOceanApps {
		return fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platformID)
	}

	// App Platform issues certificates automatically for attached domains,
	// so the SSL flag needs no separate call.
	if cfg.Options.CustomDomain == "" {
		return nil
	}

	app, _, err := d.client.Apps.Get(ctx, platformProjectID)
	if err != nil {
		return fmt.Errorf("failed to fetch app: %w", err)
	}

	spec := app.Spec
	if spec == nil {
		spec = d.appSpec(cfg)
	}
	spec.Domains = append(spec.Domains, &godo.AppDomainSpec{
		Domain: cfg.Options.CustomDomain,
		Type:   godo.AppDomainSpecType_Primary,
	})

	if _, _, err := d.client.Apps.Update(ctx, platformProjectID, &godo.AppUpdateRequest{Spec: spec}); err != nil {
		return fmt.Errorf("failed to attach domain: %w", err)
	}

	d.logger.Info("custom domain attached", "app_id", platformProjectID, "domain", cfg.Options.CustomDomain)
	return nil
}

// appSpec maps a project configuration onto an App Platform spec.
// Static-style kinds become static sites; node projects become services.
func (d *DigitalOcean) appSpec(cfg domain.ProjectConfig) *godo.AppSpec {
	envs := make([]*godo.AppVariableDefinition, 0, len(cfg.Options.EnvVars))
	for key, value := range cfg.Options.EnvVars {
		envs = append(envs, &godo.AppVariableDefinition{
			Key:   key,
			Value: value,
			Scope: godo.AppVariableScope_RunAndBuildTime,
		})
	}

	git := &godo.GitSourceSpec{
		RepoCloneURL: cfg.SourceURL,
		Branch:       "main",
	}

	spec := &godo.AppSpec{Name: slugify(cfg.Name)}

	if cfg.Kind == domain.KindNode {
		spec.Services = []*godo.AppServiceSpec{{
			Name:         "web",
			Git:          git,
			BuildCommand: cfg.Options.BuildCommand,
			RunCommand:   "npm start",
			Envs:         envs,
			HTTPPort:     8080,
		}}
		return spec
	}

	spec.StaticSites = []*godo.AppStaticSiteSpec{{
		Name:         "site",
		Git:          git,
		BuildCommand: cfg.Options.BuildCommand,
		OutputDir:    cfg.Options.OutputDir,
		Envs:         envs,
	}}
	return spec
}
