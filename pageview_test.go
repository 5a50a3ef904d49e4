package pageview_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-pageview"
	"github.com/goliatone/go-pageview/pkg/config"
	"github.com/goliatone/go-pageview/pkg/orchestrator"
	"github.com/goliatone/go-pageview/pkg/testsupport"
)

func writeSite(t *testing.T) string {
	t.Helper()
	return testsupport.WriteTemplates(t, map[string]string{
		"pageview.yaml": "template_dir: views\nglobals:\n  site: Acme\ntheme:\n  name: acme\n",
		"views/layouts/base.tpl": `<title>{% block title %}{{ site }}{% endblock %}</title>` +
			`<body style="color:{{ theme.tokens.brand }}">{% block content %}{% endblock %}</body>`,
		"views/about.tpl": `{% extends "layout" %}{% block title %}About{% endblock %}{% block content %}{{ body|markdown }}{% endblock %}`,
	})
}

func TestLoadSite_RendersWithTheme(t *testing.T) {
	dir := writeSite(t)
	selector := &stubSelector{selection: &theme.Selection{
		Theme: "acme",
		Manifest: &theme.Manifest{
			Name:   "acme",
			Tokens: map[string]string{"brand": "#123456"},
		},
	}}

	probe, err := config.Load(filepath.Join(dir, "pageview.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	site, err := pageview.LoadSite(filepath.Join(dir, "pageview.yaml"), pageview.WithTheme(selector, probe.Theme))
	if err != nil {
		t.Fatalf("load site: %v", err)
	}

	out, err := site.RenderDocumentToString(testsupport.Context(), map[string]any{
		"page": map[string]any{"template": "about"},
		"body": "**hi**",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	want := `<title>About</title><body style="color:#123456"><p><strong>hi</strong></p>` + "\n" + `</body>`
	if out != want {
		t.Fatalf("unexpected output\nwant: %q\ngot:  %q", want, out)
	}
	if site.Config.Theme.Name != "acme" {
		t.Fatalf("expected theme config to be kept, got %+v", site.Config.Theme)
	}
}

func TestLoadSite_Errors(t *testing.T) {
	if _, err := pageview.LoadSite(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for a missing config file")
	}

	dir := testsupport.WriteTemplates(t, map[string]string{
		"pageview.yaml": "template_dir: nowhere\n",
	})
	_, err := pageview.LoadSite(filepath.Join(dir, "pageview.yaml"))
	if !errors.Is(err, orchestrator.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestSite_WatchReloadsTemplates(t *testing.T) {
	dir := writeSite(t)
	site, err := pageview.LoadSite(filepath.Join(dir, "pageview.yaml"))
	if err != nil {
		t.Fatalf("load site: %v", err)
	}
	vars := map[string]any{"page": map[string]any{"template": "about"}, "body": "v1"}

	if _, err := site.RenderBlock(testsupport.Context(), "about", vars, "title"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 8)
	done := make(chan error, 1)
	go func() {
		done <- site.Watch(ctx, func(path string) {
			select {
			case changed <- path:
			default:
			}
		})
	}()

	page := filepath.Join(dir, "views", "about.tpl")
	updated := `{% extends "layout" %}{% block title %}About us{% endblock %}{% block content %}{% endblock %}`
	deadline := time.After(5 * time.Second)

wait:
	for {
		if err := os.WriteFile(page, []byte(updated), 0o644); err != nil {
			t.Fatalf("rewrite template: %v", err)
		}
		select {
		case <-changed:
			break wait
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatalf("no change notification")
		}
	}

	title, err := site.RenderBlock(testsupport.Context(), "about", vars, "title")
	if err != nil {
		t.Fatalf("render after change: %v", err)
	}
	if strings.TrimSpace(title) != "About us" {
		t.Fatalf("expected reloaded title, got %q", title)
	}

	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("watch: %v", err)
	}
}

type stubSelector struct {
	selection *theme.Selection
}

func (s *stubSelector) Select(string, string, ...theme.QueryOption) (*theme.Selection, error) {
	return s.selection, nil
}
