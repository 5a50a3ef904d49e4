package scope_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	theme "github.com/goliatone/go-theme"
	"pgregory.net/rapid"

	"github.com/goliatone/go-pageview/pkg/scope"
)

type articlePage struct {
	template string
	params   scope.Params
}

func (p articlePage) TemplateName() string          { return p.template }
func (p articlePage) TemplateParams() scope.Params { return p.params }

type plainPage struct{ name string }

func (p plainPage) TemplateName() string { return p.name }

func TestMerge_Precedence(t *testing.T) {
	runtime := scope.Scope{"a": 1, "b": 1}
	global := scope.Scope{"b": 2, "c": 2}
	vars := scope.Scope{"c": 3, "d": 3}
	page := scope.Scope{"d": 4}

	got := scope.Merge(runtime, global, vars, page)
	want := scope.Scope{"a": 1, "b": 2, "c": 3, "d": 4}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(scope.Scope{"a": 1, "b": 1}, runtime); diff != "" {
		t.Fatalf("merge mutated its input (-want +got):\n%s", diff)
	}
}

func TestMerge_IsShallow(t *testing.T) {
	low := scope.Scope{"site": map[string]any{"title": "Acme", "lang": "en"}}
	high := scope.Scope{"site": map[string]any{"title": "Override"}}

	got := scope.Merge(low, nil, high)
	want := scope.Scope{"site": map[string]any{"title": "Override"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("nested values must be replaced, not merged (-want +got):\n%s", diff)
	}
}

func TestMerge_HighestLayerWins(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		keys := rapid.SampledFrom([]string{"a", "b", "c", "d", "e"})
		layerCount := rapid.IntRange(1, 4).Draw(rt, "layers")

		layers := make([]scope.Scope, layerCount)
		for i := range layers {
			layers[i] = scope.Scope{}
			n := rapid.IntRange(0, 5).Draw(rt, "size")
			for j := 0; j < n; j++ {
				layers[i][keys.Draw(rt, "key")] = i
			}
		}

		merged := scope.Merge(layers...)
		for key, value := range merged {
			top := -1
			for i, layer := range layers {
				if _, ok := layer[key]; ok {
					top = i
				}
			}
			if value != top {
				rt.Fatalf("key %q resolved to layer %v, want %d", key, value, top)
			}
		}
	})
}

func TestApply_RunsContributorsInOrder(t *testing.T) {
	var calls []string
	first := func(_ context.Context, acc scope.Scope) (scope.Scope, error) {
		calls = append(calls, "first")
		out := acc.Clone()
		out["user"] = "guest"
		out["order"] = "first"
		return out, nil
	}
	second := func(_ context.Context, acc scope.Scope) (scope.Scope, error) {
		calls = append(calls, "second")
		out := acc.Clone()
		out["order"] = "second"
		return out, nil
	}

	got, err := scope.Apply(context.Background(), scope.Scope{"config": "x"}, first, nil, second, scope.Static(map[string]any{"site": "acme"}))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	want := scope.Scope{"config": "x", "user": "guest", "order": "second", "site": "acme"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("apply mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"first", "second"}, calls); diff != "" {
		t.Fatalf("call order mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	failing := func(context.Context, scope.Scope) (scope.Scope, error) { return nil, boom }
	called := false
	after := func(_ context.Context, acc scope.Scope) (scope.Scope, error) {
		called = true
		return acc, nil
	}

	_, err := scope.Apply(context.Background(), nil, failing, after)
	if !errors.Is(err, boom) {
		t.Fatalf("expected contributor error, got %v", err)
	}
	if called {
		t.Fatalf("contributors after a failure must not run")
	}
}

func TestTemplateNameOf(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]any
		want string
		ok   bool
	}{
		{name: "page interface", vars: map[string]any{"page": plainPage{name: "home"}}, want: "home", ok: true},
		{name: "map page", vars: map[string]any{"page": map[string]any{"template": "basic-page"}}, want: "basic-page", ok: true},
		{name: "padded name kept as given", vars: map[string]any{"page": plainPage{name: " home\n"}}, want: " home\n", ok: true},
		{name: "padded map name kept as given", vars: map[string]any{"page": map[string]any{"template": "home "}}, want: "home ", ok: true},
		{name: "empty name", vars: map[string]any{"page": plainPage{name: ""}}, ok: false},
		{name: "missing page", vars: map[string]any{"title": "x"}, ok: false},
		{name: "map without template", vars: map[string]any{"page": map[string]any{"id": 1}}, ok: false},
		{name: "unsupported value", vars: map[string]any{"page": 42}, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := scope.TemplateNameOf(tt.vars)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("TemplateNameOf() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestPageParams(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]any
		want scope.Scope
	}{
		{
			name: "provider with params",
			vars: map[string]any{"page": articlePage{template: "article", params: scope.ParamsOf(map[string]any{"hero": true})}},
			want: scope.Scope{"hero": true},
		},
		{
			name: "provider with NoParams",
			vars: map[string]any{"page": articlePage{template: "article", params: scope.NoParams()}},
			want: scope.Scope{},
		},
		{
			name: "page without accessor",
			vars: map[string]any{"page": plainPage{name: "home"}},
			want: scope.Scope{},
		},
		{
			name: "map page params",
			vars: map[string]any{"page": map[string]any{"template": "home", "params": map[string]any{"layout": "wide"}}},
			want: scope.Scope{"layout": "wide"},
		},
		{
			name: "map page without params",
			vars: map[string]any{"page": map[string]any{"template": "home"}},
			want: scope.Scope{},
		},
		{
			name: "no page",
			vars: map[string]any{"title": "x"},
			want: scope.Scope{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := scope.PageParams(tt.vars)
			if err != nil {
				t.Fatalf("page params: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("params mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPageParams_RejectsNonMappingParams(t *testing.T) {
	for _, raw := range []any{"hero=wide", []any{"hero", "wide"}, 42} {
		vars := map[string]any{"page": map[string]any{"template": "home", "params": raw}}

		if name, ok := scope.TemplateNameOf(vars); !ok || name != "home" {
			t.Fatalf("page identity should still resolve, got (%q, %v)", name, ok)
		}
		got, err := scope.PageParams(vars)
		if err == nil {
			t.Fatalf("params %v: expected error, got layer %v", raw, got)
		}
		if got != nil {
			t.Fatalf("params %v: expected no layer on error, got %v", raw, got)
		}
	}
}

func TestParamsFromValue(t *testing.T) {
	type heroParams struct {
		Title string `json:"title"`
		Count int    `json:"count"`
	}

	params, err := scope.ParamsFromValue(heroParams{Title: "Hello", Count: 2})
	if err != nil {
		t.Fatalf("params from struct: %v", err)
	}
	got, ok := params.Get()
	if !ok {
		t.Fatalf("expected params to be present")
	}
	if diff := cmp.Diff(map[string]any{"title": "Hello", "count": float64(2)}, got); diff != "" {
		t.Fatalf("params mismatch (-want +got):\n%s", diff)
	}

	if _, err := scope.ParamsFromValue([]string{"not", "a", "map"}); err == nil {
		t.Fatalf("expected error for non-mapping value")
	}

	empty, err := scope.ParamsFromValue(nil)
	if err != nil {
		t.Fatalf("params from nil: %v", err)
	}
	if _, ok := empty.Get(); ok {
		t.Fatalf("nil should convert to NoParams")
	}
}

func TestThemeContributor(t *testing.T) {
	manifest := &theme.Manifest{
		Name:    "acme",
		Version: "1.0.0",
		Tokens: map[string]string{
			"brand":  "#123456",
			"accent": "#ffffff",
		},
		Assets: theme.Assets{
			Prefix: "/assets/themes/acme",
			Files: map[string]string{
				"stylesheet": "theme.css",
			},
		},
		Variants: map[string]theme.Variant{
			"dark": {
				Tokens: map[string]string{
					"brand": "#654321",
				},
			},
		},
	}
	selector := &stubThemeSelector{selection: &theme.Selection{Theme: "acme", Variant: "dark", Manifest: manifest}}

	got, err := scope.Apply(context.Background(), scope.Scope{"site": "x"}, scope.ThemeContributor(selector, "acme", "dark"))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	want := scope.Scope{
		"site": "x",
		"theme": map[string]any{
			"name":    "acme",
			"variant": "dark",
			"version": "1.0.0",
			"tokens":  map[string]any{"brand": "#654321", "accent": "#ffffff"},
			"assets": map[string]any{
				"prefix": "/assets/themes/acme",
				"files":  map[string]any{"stylesheet": "theme.css"},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("theme scope mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"acme/dark"}, selector.calls); diff != "" {
		t.Fatalf("selector calls mismatch (-want +got):\n%s", diff)
	}
}

func TestThemeContributor_SelectorError(t *testing.T) {
	boom := errors.New("unknown theme")
	selector := &stubThemeSelector{err: boom}

	_, err := scope.Apply(context.Background(), nil, scope.ThemeContributor(selector, "missing", ""))
	if !errors.Is(err, boom) {
		t.Fatalf("expected selector error, got %v", err)
	}
}

type stubThemeSelector struct {
	selection *theme.Selection
	err       error
	calls     []string
}

func (s *stubThemeSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	s.calls = append(s.calls, name+"/"+variant)
	return s.selection, s.err
}
