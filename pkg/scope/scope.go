// Package scope assembles the variable scope handed to templates. A scope is
// built from ordered layers where later layers overwrite earlier ones key by
// key; nested values are never merged.
package scope

import (
	"context"
	"fmt"
)

// Scope is the mapping of variable names to values visible to a template.
type Scope map[string]any

// Clone returns a shallow copy. Nil scopes clone to an empty scope.
func (s Scope) Clone() Scope {
	out := make(Scope, len(s))
	for key, value := range s {
		out[key] = value
	}
	return out
}

// Merge combines layers from lowest to highest precedence. Inputs are never
// mutated and nil layers are skipped.
func Merge(layers ...Scope) Scope {
	size := 0
	for _, layer := range layers {
		size += len(layer)
	}

	out := make(Scope, size)
	for _, layer := range layers {
		for key, value := range layer {
			out[key] = value
		}
	}
	return out
}

// Contributor augments the accumulated scope. Contributors registered on an
// orchestrator run in order and build the lowest precedence layer.
type Contributor func(ctx context.Context, acc Scope) (Scope, error)

// Apply runs contributors in order starting from a copy of base.
func Apply(ctx context.Context, base Scope, contributors ...Contributor) (Scope, error) {
	acc := base.Clone()
	for i, contribute := range contributors {
		if contribute == nil {
			continue
		}
		next, err := contribute(ctx, acc)
		if err != nil {
			return nil, fmt.Errorf("scope: contributor %d: %w", i, err)
		}
		if next != nil {
			acc = next
		}
	}
	return acc, nil
}

// Static returns a contributor that overlays values onto the accumulated
// scope.
func Static(values map[string]any) Contributor {
	snapshot := Scope(values).Clone()
	return func(_ context.Context, acc Scope) (Scope, error) {
		return Merge(acc, snapshot), nil
	}
}
