// Package resolver maps logical template names onto template files inside a
// single directory. A name resolves to "<dir>/<name><ext>" when that file is
// readable and to "<dir>/default<ext>" otherwise.
//
// Names are expected to be validated by the caller; the orchestrator rejects
// anything outside [A-Za-z0-9_-] before it reaches the resolver.
package resolver
