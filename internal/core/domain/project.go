// Package domain contains the core entity types for Sabi.
// Everything here is pure data and pure functions - no I/O.
package domain

import (
	"net/url"
	"strings"
)

// =============================================================================
// Project Kinds
// =============================================================================

// ProjectKind identifies the type of web project being deployed.
type ProjectKind string

const (
	KindStatic ProjectKind = "static"
	KindReact  ProjectKind = "react"
	KindVue    ProjectKind = "vue"
	KindNextJS ProjectKind = "nextjs"
	KindNode   ProjectKind = "node"
)

// knownKinds is the set of project kinds Sabi can guide through a deployment.
var knownKinds = map[ProjectKind]bool{
	KindStatic: true,
	KindReact:  true,
	KindVue:    true,
	KindNextJS: true,
	KindNode:   true,
}

// KnownKind reports whether kind is a recognized project kind.
func KnownKind(kind ProjectKind) bool {
	return knownKinds[kind]
}

// KnownKinds returns all recognized project kinds in a stable order.
func KnownKinds() []ProjectKind {
	return []ProjectKind{KindStatic, KindReact, KindVue, KindNextJS, KindNode}
}

// RequiresBuild reports whether a project kind needs a build command
// before it can be deployed.
func RequiresBuild(kind ProjectKind) bool {
	switch kind {
	case KindReact, KindVue, KindNextJS, KindNode:
		return true
	default:
		return false
	}
}

// =============================================================================
// Project Configuration
// =============================================================================

// ProjectConfig is the caller-supplied description of a project.
// It is read-only to the engine - nothing in Sabi mutates it.
type ProjectConfig struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Kind      ProjectKind    `json:"kind"`
	SourceURL string         `json:"source_url,omitempty"`
	Options   ProjectOptions `json:"options"`
}

// ProjectOptions holds the optional knobs of a project configuration.
type ProjectOptions struct {
	// BuildCommand is the command that produces deployable output.
	// Required for react, vue, nextjs and node projects. Default: empty.
	BuildCommand string `json:"build_command,omitempty"`

	// OutputDir is the directory the build writes artifacts to.
	// Default: empty (platform default, e.g. "dist" or "build").
	OutputDir string `json:"output_dir,omitempty"`

	// CustomDomain is an optional domain to attach to the deployment.
	// Default: empty (the platform's generated subdomain is used).
	CustomDomain string `json:"custom_domain,omitempty"`

	// EnvVars are environment variables injected at build and run time.
	// Default: empty map.
	EnvVars map[string]string `json:"env_vars,omitempty"`

	// SSL enables HTTPS for the deployment. Default: true.
	SSL bool `json:"ssl"`
}

// DefaultProjectOptions returns the default option set for new projects.
func DefaultProjectOptions() ProjectOptions {
	return ProjectOptions{
		SSL: true,
	}
}

// =============================================================================
// Well-formedness Helpers
// =============================================================================

// WellFormedURL reports whether raw parses as an absolute http(s) URL.
func WellFormedURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// WellFormedDomain reports whether hostname looks like a registrable domain.
// It is a shape check, not a DNS lookup.
func WellFormedDomain(hostname string) bool {
	if hostname == "" || len(hostname) > 253 {
		return false
	}
	if strings.Contains(hostname, "://") || strings.ContainsAny(hostname, " /\\") {
		return false
	}
	labels := strings.Split(hostname, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if label == "" || len(label) > 63 {
			return false
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}
		for _, r := range label {
			if !isDomainRune(r) {
				return false
			}
		}
	}
	return true
}

func isDomainRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
		return true
	}
	return false
}
