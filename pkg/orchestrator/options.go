package orchestrator

import (
	"log/slog"
	"strings"

	"github.com/goliatone/go-pageview/pkg/render/template"
	"github.com/goliatone/go-pageview/pkg/resolver"
	"github.com/goliatone/go-pageview/pkg/scope"
)

const (
	// DefaultTemplateDir is used when no template directory is configured.
	DefaultTemplateDir = "views"
	// DefaultLayoutName is the name templates extend to reach the layout.
	DefaultLayoutName = "layout"
)

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithTemplateDir sets the directory templates are resolved from. Relative
// directories are resolved against the base path.
func WithTemplateDir(dir string) Option {
	return func(o *Orchestrator) {
		if trimmed := strings.TrimSpace(dir); trimmed != "" {
			o.templateDir = trimmed
		}
	}
}

// WithBasePath sets the path relative template directories are resolved
// against. Defaults to the working directory.
func WithBasePath(path string) Option {
	return func(o *Orchestrator) {
		o.basePath = strings.TrimSpace(path)
	}
}

// WithExtension overrides the template file extension.
func WithExtension(ext string) Option {
	return func(o *Orchestrator) {
		o.extension = strings.TrimSpace(ext)
	}
}

// WithLayoutName overrides the name the layout is registered under.
func WithLayoutName(name string) Option {
	return func(o *Orchestrator) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			o.layoutName = trimmed
		}
	}
}

// WithRenderer injects the rendering capability. When omitted the pongo2
// engine is built over the template directory.
func WithRenderer(renderer template.TemplateRenderer) Option {
	return func(o *Orchestrator) {
		o.renderer = renderer
	}
}

// WithResolver injects a preconfigured resolver. WithTemplateDir,
// WithExtension and WithFiles no longer affect resolution when set.
func WithResolver(r *resolver.Resolver) Option {
	return func(o *Orchestrator) {
		o.resolver = r
	}
}

// WithFiles injects the readability checker used by the default resolver.
func WithFiles(files resolver.Files) Option {
	return func(o *Orchestrator) {
		o.files = files
	}
}

// WithRuntimeGlobals seeds the lowest precedence scope layer.
func WithRuntimeGlobals(values map[string]any) Option {
	return func(o *Orchestrator) {
		if len(values) == 0 {
			return
		}
		o.runtime = scope.Merge(o.runtime, values)
	}
}

// WithContributors registers scope contributors. They run in registration
// order on every render and build on the runtime globals.
func WithContributors(contributors ...scope.Contributor) Option {
	return func(o *Orchestrator) {
		for _, c := range contributors {
			if c != nil {
				o.contributors = append(o.contributors, c)
			}
		}
	}
}

// WithGlobalParams sets the initial global-params layer.
func WithGlobalParams(params GlobalParams) Option {
	return func(o *Orchestrator) {
		o.initialParams = params
	}
}

// WithLogger sets the structured logger. Defaults to discarding output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}
