package orchestrator

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-pageview/pkg/resolver"
)

var (
	// ErrConfiguration reports an orchestrator that cannot be constructed.
	ErrConfiguration = errors.New("orchestrator: configuration error")
	// ErrInvalidTemplateName reports a missing template name or one outside
	// [A-Za-z0-9_-].
	ErrInvalidTemplateName = errors.New("orchestrator: invalid template name")
	// ErrTemplateNotFound is re-exported from the resolver for convenience.
	ErrTemplateNotFound = resolver.ErrTemplateNotFound
	// ErrUnreadableTemplate reports a template file that cannot be read.
	ErrUnreadableTemplate = errors.New("orchestrator: unreadable template")
	// ErrInvalidBlockName reports an empty block name.
	ErrInvalidBlockName = errors.New("orchestrator: block name is required")
	// ErrNotImplemented reports global params sourced from a file.
	ErrNotImplemented = errors.New("orchestrator: not implemented")
)

// ConfigError describes the setting that prevented construction.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("orchestrator: %s is required", e.Field)
	}
	return fmt.Sprintf("orchestrator: configure %s: %v", e.Field, e.Err)
}

// Unwrap exposes both ErrConfiguration and the underlying cause.
func (e *ConfigError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConfiguration}
	}
	return []error{ErrConfiguration, e.Err}
}

// TemplateNameError carries the rejected template name.
type TemplateNameError struct {
	Name string
}

func (e *TemplateNameError) Error() string {
	if e.Name == "" {
		return "orchestrator: page template name is missing"
	}
	return fmt.Sprintf("orchestrator: invalid template name %q", e.Name)
}

func (e *TemplateNameError) Unwrap() error {
	return ErrInvalidTemplateName
}

// UnreadableTemplateError carries the template path that could not be read.
type UnreadableTemplateError struct {
	Path string
}

func (e *UnreadableTemplateError) Error() string {
	return fmt.Sprintf("orchestrator: template %q is not readable", e.Path)
}

func (e *UnreadableTemplateError) Unwrap() error {
	return ErrUnreadableTemplate
}
