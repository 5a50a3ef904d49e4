// Package pageview resolves page templates, merges their variable scope and
// renders full documents or single blocks through pongo2.
//
// Most callers start from a config file:
//
//	site, err := pageview.LoadSite("pageview.yaml")
//	html, err := site.RenderDocumentToString(ctx, map[string]any{"page": page})
package pageview

import (
	"context"
	"fmt"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-pageview/pkg/config"
	"github.com/goliatone/go-pageview/pkg/orchestrator"
	"github.com/goliatone/go-pageview/pkg/render/template/gotemplate"
	"github.com/goliatone/go-pageview/pkg/scope"
)

// Scope aliases scope.Scope.
type Scope = scope.Scope

// Page aliases scope.Page, the page identity stored under "page".
type Page = scope.Page

// ParamsProvider aliases scope.ParamsProvider.
type ParamsProvider = scope.ParamsProvider

// Contributor aliases scope.Contributor.
type Contributor = scope.Contributor

// ParamsMap aliases orchestrator.ParamsMap for SetGlobalParams callers.
type ParamsMap = orchestrator.ParamsMap

// Site bundles an orchestrator with the pongo2 engine backing it.
type Site struct {
	*orchestrator.Orchestrator

	Engine *gotemplate.Engine
	Config config.Config
}

// NewSite builds the engine and orchestrator described by cfg. Extra options
// are applied after the ones derived from cfg.
func NewSite(cfg config.Config, options ...orchestrator.Option) (*Site, error) {
	engine, err := gotemplate.New(
		gotemplate.WithBaseDir(cfg.TemplatePath()),
		gotemplate.WithExtension(cfg.Extension),
		gotemplate.WithDebug(cfg.Debug),
	)
	if err != nil {
		return nil, &orchestrator.ConfigError{Field: "template dir", Err: err}
	}

	opts := append(cfg.Options(), orchestrator.WithRenderer(engine))
	opts = append(opts, options...)

	orch, err := orchestrator.New(cfg.Layout, opts...)
	if err != nil {
		return nil, err
	}

	return &Site{
		Orchestrator: orch,
		Engine:       engine,
		Config:       cfg,
	}, nil
}

// LoadSite loads a config file and builds the site it describes.
func LoadSite(path string, options ...orchestrator.Option) (*Site, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	site, err := NewSite(cfg, options...)
	if err != nil {
		return nil, fmt.Errorf("pageview: %s: %w", path, err)
	}
	return site, nil
}

// Watch invalidates compiled templates when files in the template directory
// change, until ctx is done.
func (s *Site) Watch(ctx context.Context, onChange ...func(path string)) error {
	return s.Engine.Watch(ctx, s.TemplateDir(), onChange...)
}

// WithTheme registers a contributor exposing the selected go-theme theme to
// every template under "theme".
func WithTheme(selector theme.ThemeSelector, cfg config.ThemeConfig) orchestrator.Option {
	return orchestrator.WithContributors(scope.ThemeContributor(selector, cfg.Name, cfg.Variant))
}
