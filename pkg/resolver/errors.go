package resolver

import (
	"errors"
	"fmt"
)

// ErrTemplateNotFound reports that neither the named template nor the
// fallback template is readable.
var ErrTemplateNotFound = errors.New("resolver: template not found")

// NotFoundError carries the template name that failed to resolve together
// with the candidates that were checked.
type NotFoundError struct {
	Name       string
	Candidates []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resolver: template %q not found (checked %v)", e.Name, e.Candidates)
}

// Unwrap lets errors.Is match ErrTemplateNotFound.
func (e *NotFoundError) Unwrap() error {
	return ErrTemplateNotFound
}
