package gotemplate

import (
	"io"
	"sync"

	"github.com/flosch/pongo2/v6"
)

type nameTable struct {
	mu    sync.RWMutex
	paths map[string]string
}

func newNameTable() *nameTable {
	return &nameTable{paths: make(map[string]string)}
}

func (t *nameTable) set(name, path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paths[name] = path
}

func (t *nameTable) lookup(name string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	path, ok := t.paths[name]
	return path, ok
}

// namedLoader sits in front of a pongo2 loader and swaps registered names
// for their paths before the wrapped loader resolves them. Named paths are
// never relative to the including template: fs.FS loaders receive them as
// is, disk loaders resolve them against their base directory.
type namedLoader struct {
	names  *nameTable
	next   pongo2.TemplateLoader
	rooted bool
}

func (l *namedLoader) Abs(base, name string) string {
	if path, ok := l.names.lookup(name); ok {
		if l.rooted {
			return path
		}
		return l.next.Abs("", path)
	}
	return l.next.Abs(base, name)
}

func (l *namedLoader) Get(path string) (io.Reader, error) {
	return l.next.Get(path)
}
