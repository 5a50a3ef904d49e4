package template

import (
	"io"
)

// TemplateRenderer is the rendering capability the orchestrator delegates to.
// Implementations compile and execute template files; paths handed to
// RenderFile and RenderBlock are already resolved file paths.
type TemplateRenderer interface {
	// RenderFile executes the whole template, following its inheritance chain.
	RenderFile(path string, data any, out ...io.Writer) (string, error)
	// RenderBlock executes only the named block of the template. The block
	// still sees the template's parents (block.Super, inherited context).
	RenderBlock(path string, data any, block string) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
	// RegisterNamedTemplate makes path reachable under name, so templates can
	// write {% extends "layout" %} without knowing where the layout lives.
	RegisterNamedTemplate(name, path string) error
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	GlobalContext(data any) error
}
