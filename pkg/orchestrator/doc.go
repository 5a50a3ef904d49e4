// Package orchestrator turns a page identity plus caller variables into
// rendered output. It validates the template name, resolves the template file
// through pkg/resolver, merges the scope layers from pkg/scope and hands the
// result to a template.TemplateRenderer, either for the whole document or for
// a single block.
//
// Scope layers, lowest precedence first:
//
//	runtime globals + contributors -> global params -> call vars -> page params
//
// The layout file is injected into the renderer once, at construction, under
// a fixed name ("layout" unless overridden), so page templates extend it with
// {% extends "layout" %}.
package orchestrator
