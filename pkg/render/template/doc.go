// Package template defines the rendering capability consumed by the
// orchestrator. The gotemplate subpackage provides the pongo2-backed
// implementation.
package template
