// Package guidance renders human-readable deployment instructions.
// Guides are a pure function of (platform, project config) and are consumed
// by UI layers, never by the workflow engine.
package guidance

import (
	"fmt"

	"github.com/jsodeh/sabi/internal/core/domain"
)

// Instruction is one numbered step in a guide.
type Instruction struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// Guide is a full set of instructions for deploying one project to one
// platform.
type Guide struct {
	PlatformID   string        `json:"platform_id"`
	PlatformName string        `json:"platform_name"`
	Instructions []Instruction `json:"instructions"`
	Notes        []string      `json:"notes,omitempty"`
}

// Generate builds the step-by-step guide for deploying the project to the
// given platform.
func Generate(platform domain.PlatformCapabilities, cfg domain.ProjectConfig) Guide {
	g := Guide{
		PlatformID:   platform.ID,
		PlatformName: platform.Name,
	}

	g.add("Create an account", fmt.Sprintf("Sign up for %s and verify your email address.", platform.Name))

	if cfg.SourceURL != "" {
		g.add("Connect your repository", fmt.Sprintf("Link %s so the platform can pull your code on every push.", cfg.SourceURL))
	} else {
		g.add("Prepare your project files", "Gather the files you want to publish into a single folder.")
	}

	if domain.RequiresBuild(cfg.Kind) {
		build := cfg.Options.BuildCommand
		if build == "" {
			build = "npm run build"
		}
		g.add("Configure the build", fmt.Sprintf("Set the build command to %q.", build))
		if out := cfg.Options.OutputDir; out != "" {
			g.add("Set the output directory", fmt.Sprintf("Point the platform at %q, where the build writes its artifacts.", out))
		}
	} else {
		g.add("Choose the publish directory", "Select the folder containing your site's index.html.")
	}

	if len(cfg.Options.EnvVars) > 0 {
		g.add("Add environment variables", fmt.Sprintf("Create the %d environment variable(s) your project needs in the platform's settings.", len(cfg.Options.EnvVars)))
	}

	g.add("Deploy", fmt.Sprintf("Trigger the first deployment of %s and wait for it to finish.", cfg.Name))

	if cfg.Options.CustomDomain != "" {
		if platform.FeatureAvailable(domain.FeatureCustomDomain) {
			g.add("Attach your domain", fmt.Sprintf("Add %s in the platform's domain settings and update your DNS records as instructed.", cfg.Options.CustomDomain))
		} else {
			g.note(fmt.Sprintf("%s does not support custom domains; %s cannot be attached here.", platform.Name, cfg.Options.CustomDomain))
		}
	}

	if cfg.Options.SSL && platform.FeatureAvailable(domain.FeatureSSL) {
		g.add("Enable HTTPS", "Turn on SSL in the platform settings; certificates are usually issued automatically.")
	}

	g.add("Verify the deployment", "Open the deployment URL and confirm the site loads over HTTPS.")

	for _, limitation := range platform.Limitations {
		g.note(limitation)
	}

	return g
}

func (g *Guide) add(title, detail string) {
	g.Instructions = append(g.Instructions, Instruction{Title: title, Detail: detail})
}

func (g *Guide) note(text string) {
	g.Notes = append(g.Notes, text)
}
