package resolver

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// DefaultExtension matches the extension the pongo2 adapter expects.
	DefaultExtension = ".tpl"
	// DefaultFallback names the template used when no specific file exists.
	DefaultFallback = "default"
)

// Files abstracts the file-system checks the resolver performs so callers
// can substitute in-memory or instrumented implementations.
type Files interface {
	Readable(path string) bool
}

// OSFiles checks readability against the local file system.
type OSFiles struct{}

// Readable reports whether path is a regular file that can be opened for
// reading.
func (OSFiles) Readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithExtension overrides the template file extension. A missing leading dot
// is added.
func WithExtension(ext string) Option {
	return func(r *Resolver) {
		trimmed := strings.TrimSpace(ext)
		if trimmed == "" {
			return
		}
		if !strings.HasPrefix(trimmed, ".") {
			trimmed = "." + trimmed
		}
		r.ext = trimmed
	}
}

// WithFallback overrides the fallback template name.
func WithFallback(name string) Option {
	return func(r *Resolver) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			r.fallback = trimmed
		}
	}
}

// WithFiles injects the readability checker.
func WithFiles(files Files) Option {
	return func(r *Resolver) {
		if files != nil {
			r.files = files
		}
	}
}

// Resolver finds template files by name. It holds no mutable state and is
// safe for concurrent use.
type Resolver struct {
	dir      string
	ext      string
	fallback string
	files    Files
}

// New constructs a Resolver rooted at dir.
func New(dir string, options ...Option) *Resolver {
	r := &Resolver{
		dir:      filepath.Clean(dir),
		ext:      DefaultExtension,
		fallback: DefaultFallback,
		files:    OSFiles{},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r
}

// Dir returns the template directory.
func (r *Resolver) Dir() string {
	return r.dir
}

// Extension returns the template extension including the leading dot.
func (r *Resolver) Extension() string {
	return r.ext
}

// Fallback returns the fallback template name.
func (r *Resolver) Fallback() string {
	return r.fallback
}

// Readable reports whether path can be read through the configured Files.
func (r *Resolver) Readable(path string) bool {
	return r.files.Readable(path)
}

// Path builds the candidate path for name without checking it.
func (r *Resolver) Path(name string) string {
	return filepath.Join(r.dir, name+r.ext)
}

// Resolve returns the file for name, or the fallback file when the specific
// one is missing. A *NotFoundError is returned when neither is readable.
func (r *Resolver) Resolve(name string) (string, error) {
	path, _, err := r.lookup(name)
	return path, err
}

// ResolveWithFallback behaves like Resolve and also reports whether the
// fallback template was selected.
func (r *Resolver) ResolveWithFallback(name string) (string, bool, error) {
	return r.lookup(name)
}

// Exists applies the Resolve search and reports whether it would succeed.
func (r *Resolver) Exists(name string) bool {
	_, _, err := r.lookup(name)
	return err == nil
}

// List returns the template names available in the directory, sorted.
func (r *Resolver) List() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		filename := entry.Name()
		if !strings.HasSuffix(filename, r.ext) {
			continue
		}
		names = append(names, strings.TrimSuffix(filename, r.ext))
	}
	sort.Strings(names)
	return names, nil
}

func (r *Resolver) lookup(name string) (string, bool, error) {
	candidate := r.Path(name)
	if r.files.Readable(candidate) {
		return candidate, false, nil
	}

	fallback := r.Path(r.fallback)
	if r.files.Readable(fallback) {
		return fallback, true, nil
	}

	return "", false, &NotFoundError{
		Name:       name,
		Candidates: []string{candidate, fallback},
	}
}
