package scope

import (
	"context"
	"errors"
	"fmt"

	theme "github.com/goliatone/go-theme"
)

// ThemeKey is the scope key populated by ThemeContributor.
const ThemeKey = "theme"

// ThemeContributor resolves a go-theme selection and exposes it to templates
// under "theme". Variant tokens and asset files override the base manifest.
func ThemeContributor(selector theme.ThemeSelector, name, variant string) Contributor {
	return func(_ context.Context, acc Scope) (Scope, error) {
		if selector == nil {
			return nil, errors.New("scope: theme selector is nil")
		}
		selection, err := selector.Select(name, variant)
		if err != nil {
			return nil, fmt.Errorf("scope: select theme %q: %w", name, err)
		}
		if selection == nil {
			return acc, nil
		}

		out := acc.Clone()
		out[ThemeKey] = themeData(selection)
		return out, nil
	}
}

func themeData(selection *theme.Selection) map[string]any {
	data := map[string]any{
		"name":    selection.Theme,
		"variant": selection.Variant,
	}

	tokens := map[string]any{}
	files := map[string]any{}
	prefix := ""

	if manifest := selection.Manifest; manifest != nil {
		data["version"] = manifest.Version
		for key, value := range manifest.Tokens {
			tokens[key] = value
		}
		for key, value := range manifest.Assets.Files {
			files[key] = value
		}
		prefix = manifest.Assets.Prefix

		if v, ok := manifest.Variants[selection.Variant]; ok {
			for key, value := range v.Tokens {
				tokens[key] = value
			}
			for key, value := range v.Assets.Files {
				files[key] = value
			}
			if v.Assets.Prefix != "" {
				prefix = v.Assets.Prefix
			}
		}
	}

	data["tokens"] = tokens
	data["assets"] = map[string]any{
		"prefix": prefix,
		"files":  files,
	}
	return data
}
