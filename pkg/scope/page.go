package scope

import (
	"encoding/json"
	"fmt"
)

const (
	// PageKey is the scope key holding the page identity.
	PageKey = "page"
	// TemplateKey names the template entry on map-shaped pages.
	TemplateKey = "template"
	// ParamsKey names the params entry on map-shaped pages.
	ParamsKey = "params"
)

// Page exposes the template a page renders with.
type Page interface {
	TemplateName() string
}

// ParamsProvider is implemented by pages that carry template parameters.
// Those parameters form the highest precedence scope layer.
type ParamsProvider interface {
	TemplateParams() Params
}

// Params is either empty (NoParams) or a mapping of template parameters.
type Params struct {
	values map[string]any
	set    bool
}

// NoParams reports the absence of page parameters.
func NoParams() Params {
	return Params{}
}

// ParamsOf wraps a mapping. A nil mapping still counts as present but empty.
func ParamsOf(values map[string]any) Params {
	return Params{values: values, set: true}
}

// ParamsFromValue converts a struct or map into Params using its JSON
// representation. Nil converts to NoParams.
func ParamsFromValue(v any) (Params, error) {
	switch typed := v.(type) {
	case nil:
		return NoParams(), nil
	case Params:
		return typed, nil
	case map[string]any:
		return ParamsOf(typed), nil
	case Scope:
		return ParamsOf(typed), nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return Params{}, fmt.Errorf("scope: encode params: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return Params{}, fmt.Errorf("scope: params must convert to a mapping: %w", err)
	}
	return ParamsOf(out), nil
}

// Get returns the mapping and whether params were supplied.
func (p Params) Get() (map[string]any, bool) {
	return p.values, p.set
}

// Scope returns the params as a scope layer; NoParams yields an empty layer.
func (p Params) Scope() Scope {
	if !p.set {
		return Scope{}
	}
	return Scope(p.values).Clone()
}

type mapPage map[string]any

func (m mapPage) TemplateName() string {
	name, _ := m[TemplateKey].(string)
	return name
}

// params converts the "params" entry. Unlike ParamsProvider it can fail,
// since map pages come from decoded data.
func (m mapPage) params() (Params, error) {
	raw, ok := m[ParamsKey]
	if !ok {
		return NoParams(), nil
	}
	return ParamsFromValue(raw)
}

// PageFrom adapts v into a Page. Values implementing Page are returned as is;
// map-shaped pages must carry a string under "template".
func PageFrom(v any) (Page, bool) {
	switch typed := v.(type) {
	case nil:
		return nil, false
	case Page:
		return typed, true
	case map[string]any:
		if _, ok := typed[TemplateKey].(string); !ok {
			return nil, false
		}
		return mapPage(typed), true
	case Scope:
		return PageFrom(map[string]any(typed))
	}
	return nil, false
}

// TemplateNameOf extracts the template name of the page stored in vars. The
// name is returned as given; validating it is up to the caller.
func TemplateNameOf(vars map[string]any) (string, bool) {
	page, ok := PageFrom(vars[PageKey])
	if !ok {
		return "", false
	}
	name := page.TemplateName()
	return name, name != ""
}

// PageParams returns the highest precedence layer for the page stored in
// vars. Pages without params yield an empty layer. Map pages whose "params"
// entry is not a mapping fail.
func PageParams(vars map[string]any) (Scope, error) {
	page, ok := PageFrom(vars[PageKey])
	if !ok {
		return Scope{}, nil
	}

	switch typed := page.(type) {
	case mapPage:
		params, err := typed.params()
		if err != nil {
			return nil, fmt.Errorf("scope: page params: %w", err)
		}
		return params.Scope(), nil
	case ParamsProvider:
		return typed.TemplateParams().Scope(), nil
	}
	return Scope{}, nil
}
