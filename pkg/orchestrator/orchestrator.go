package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/goliatone/go-pageview/pkg/render/template"
	"github.com/goliatone/go-pageview/pkg/render/template/gotemplate"
	"github.com/goliatone/go-pageview/pkg/resolver"
	"github.com/goliatone/go-pageview/pkg/scope"
)

var templateNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidTemplateName reports whether name is a safe template identifier.
func ValidTemplateName(name string) bool {
	return templateNamePattern.MatchString(name)
}

// Orchestrator resolves templates, merges scopes and delegates rendering. It
// is safe for concurrent use; SetGlobalParams swaps the global layer
// atomically.
type Orchestrator struct {
	templateDir   string
	basePath      string
	extension     string
	layoutName    string
	layoutPath    string
	files         resolver.Files
	resolver      *resolver.Resolver
	renderer      template.TemplateRenderer
	runtime       scope.Scope
	contributors  []scope.Contributor
	initialParams GlobalParams
	logger        *slog.Logger

	mu           sync.RWMutex
	globalParams scope.Scope
	paramsErr    error
}

// New constructs an Orchestrator for the given layout file. A blank layout
// fails with ErrConfiguration. Relative layout paths are resolved against
// the template directory.
func New(layoutPath string, options ...Option) (*Orchestrator, error) {
	layoutPath = strings.TrimSpace(layoutPath)
	if layoutPath == "" {
		return nil, &ConfigError{Field: "layout"}
	}

	o := &Orchestrator{
		templateDir: DefaultTemplateDir,
		extension:   resolver.DefaultExtension,
		layoutName:  DefaultLayoutName,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}

	if o.resolver == nil {
		dir, err := o.resolveTemplateDir()
		if err != nil {
			return nil, err
		}
		o.resolver = resolver.New(dir,
			resolver.WithExtension(o.extension),
			resolver.WithFiles(o.files),
		)
	}
	o.templateDir = o.resolver.Dir()

	if !filepath.IsAbs(layoutPath) {
		layoutPath = filepath.Join(o.templateDir, layoutPath)
	}
	o.layoutPath = layoutPath

	if o.renderer == nil {
		engine, err := gotemplate.New(
			gotemplate.WithBaseDir(o.templateDir),
			gotemplate.WithExtension(o.resolver.Extension()),
		)
		if err != nil {
			return nil, &ConfigError{Field: "renderer", Err: err}
		}
		o.renderer = engine
	}

	if err := o.renderer.RegisterNamedTemplate(o.layoutName, o.layoutPath); err != nil {
		return nil, &ConfigError{Field: "layout", Err: err}
	}

	o.SetGlobalParams(o.initialParams)
	o.initialParams = nil

	return o, nil
}

func (o *Orchestrator) resolveTemplateDir() (string, error) {
	dir := o.templateDir
	if filepath.IsAbs(dir) {
		return dir, nil
	}

	base := o.basePath
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", &ConfigError{Field: "base path", Err: err}
		}
		base = wd
	}
	return filepath.Join(base, dir), nil
}

// TemplateDir returns the resolved template directory.
func (o *Orchestrator) TemplateDir() string {
	return o.templateDir
}

// LayoutPath returns the layout file injected into the renderer.
func (o *Orchestrator) LayoutPath() string {
	return o.layoutPath
}

// Resolver exposes the template resolver.
func (o *Orchestrator) Resolver() *resolver.Resolver {
	return o.resolver
}

// Exists reports whether templateName is valid and resolves to a file,
// letting callers decide whether to hand the page to another renderer.
func (o *Orchestrator) Exists(templateName string) bool {
	return ValidTemplateName(templateName) && o.resolver.Exists(templateName)
}

// Scope builds the merged scope a render with vars would see.
func (o *Orchestrator) Scope(ctx context.Context, vars map[string]any) (scope.Scope, error) {
	if err := o.begin(ctx); err != nil {
		return nil, err
	}
	return o.buildScope(ctx, vars)
}

// RenderDocument renders the page identified by vars["page"] and writes the
// result to w. Nothing is written when rendering fails.
func (o *Orchestrator) RenderDocument(ctx context.Context, vars map[string]any, w io.Writer) error {
	if w == nil {
		return errors.New("orchestrator: writer is required")
	}
	out, err := o.RenderDocumentToString(ctx, vars)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// RenderDocumentToString renders the page identified by vars["page"].
func (o *Orchestrator) RenderDocumentToString(ctx context.Context, vars map[string]any) (string, error) {
	if err := o.begin(ctx); err != nil {
		return "", err
	}

	name, ok := scope.TemplateNameOf(vars)
	if !ok {
		return "", &TemplateNameError{}
	}
	path, err := o.resolve(name)
	if err != nil {
		return "", err
	}

	data, err := o.buildScope(ctx, vars)
	if err != nil {
		return "", err
	}

	out, err := o.renderer.RenderFile(path, data)
	if err != nil {
		return "", fmt.Errorf("orchestrator: render %q: %w", name, err)
	}
	return out, nil
}

// RenderBlockFromFile renders one block of the template at filePath. The
// output is only returned, never written to a shared sink.
func (o *Orchestrator) RenderBlockFromFile(ctx context.Context, filePath string, vars map[string]any, block string) (string, error) {
	if err := o.begin(ctx); err != nil {
		return "", err
	}
	return o.renderBlockFromFile(ctx, filePath, vars, block)
}

// RenderBlock resolves templateName and renders one of its blocks.
func (o *Orchestrator) RenderBlock(ctx context.Context, templateName string, vars map[string]any, block string) (string, error) {
	if err := o.begin(ctx); err != nil {
		return "", err
	}
	path, err := o.resolve(templateName)
	if err != nil {
		return "", err
	}
	return o.renderBlockFromFile(ctx, path, vars, block)
}

// RenderBlocks renders each block in turn. The first failure aborts and no
// partial result is returned.
func (o *Orchestrator) RenderBlocks(ctx context.Context, templateName string, vars map[string]any, blocks ...string) (map[string]string, error) {
	out := make(map[string]string, len(blocks))
	for _, block := range blocks {
		rendered, err := o.RenderBlock(ctx, templateName, vars, block)
		if err != nil {
			return nil, err
		}
		out[block] = rendered
	}
	return out, nil
}

// RenderInline renders template source against the merged scope. A page in
// vars is optional; its params still apply when present.
func (o *Orchestrator) RenderInline(ctx context.Context, content string, vars map[string]any) (string, error) {
	if err := o.begin(ctx); err != nil {
		return "", err
	}
	data, err := o.buildScope(ctx, vars)
	if err != nil {
		return "", err
	}
	out, err := o.renderer.RenderString(content, data)
	if err != nil {
		return "", fmt.Errorf("orchestrator: render inline template: %w", err)
	}
	return out, nil
}

func (o *Orchestrator) renderBlockFromFile(ctx context.Context, filePath string, vars map[string]any, block string) (string, error) {
	block = strings.TrimSpace(block)
	if block == "" {
		return "", ErrInvalidBlockName
	}
	if !o.resolver.Readable(filePath) {
		return "", &UnreadableTemplateError{Path: filePath}
	}

	data, err := o.buildScope(ctx, vars)
	if err != nil {
		return "", err
	}

	o.logger.Debug("render block", "path", filePath, "block", block)
	out, err := o.renderer.RenderBlock(filePath, data, block)
	if err != nil {
		return "", fmt.Errorf("orchestrator: render block %q: %w", block, err)
	}
	return out, nil
}

func (o *Orchestrator) begin(ctx context.Context) error {
	if ctx == nil {
		return errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := o.globalLayer()
	return err
}

func (o *Orchestrator) resolve(name string) (string, error) {
	if !ValidTemplateName(name) {
		return "", &TemplateNameError{Name: name}
	}

	path, usedFallback, err := o.resolver.ResolveWithFallback(name)
	if err != nil {
		o.logger.Debug("template not found", "template", name, "dir", o.templateDir)
		return "", err
	}
	if usedFallback {
		o.logger.Debug("template resolved to fallback", "template", name, "fallback", o.resolver.Fallback(), "path", path)
	} else {
		o.logger.Debug("template resolved", "template", name, "path", path)
	}
	return path, nil
}

func (o *Orchestrator) buildScope(ctx context.Context, vars map[string]any) (scope.Scope, error) {
	runtime, err := scope.Apply(ctx, o.runtime, o.contributors...)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: build runtime scope: %w", err)
	}

	global, err := o.globalLayer()
	if err != nil {
		return nil, err
	}

	page, err := scope.PageParams(vars)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}

	return scope.Merge(runtime, global, vars, page), nil
}
