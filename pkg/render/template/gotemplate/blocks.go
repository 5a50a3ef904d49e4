package gotemplate

import (
	"fmt"
	"io"
	"regexp"
)

var (
	// pongo2 accepts only a string literal as the extends argument.
	extendsPattern = regexp.MustCompile(`\{%-?\s*extends\s+(?:"([^"]+)"|'([^']+)')\s*-?%\}`)
	commentPattern = regexp.MustCompile(`(?s)\{#.*?#\}|\{%-?\s*comment\s*-?%\}.*?\{%-?\s*endcomment\s*-?%\}`)
)

const maxExtendsDepth = 16

// parentOf reports the template path extends, resolved the way pongo2
// resolves it (first loader, registered names included).
func (e *Engine) parentOf(path string) (string, bool, error) {
	for _, loader := range e.loaders {
		name := loader.Abs("", path)
		r, err := loader.Get(name)
		if err != nil {
			continue
		}
		src, err := io.ReadAll(r)
		if closer, ok := r.(io.Closer); ok {
			closer.Close()
		}
		if err != nil {
			return "", false, fmt.Errorf("gotemplate: read template %q: %w", path, err)
		}

		match := extendsPattern.FindSubmatch(commentPattern.ReplaceAll(src, nil))
		if match == nil {
			return "", false, nil
		}
		target := string(match[1])
		if target == "" {
			target = string(match[2])
		}
		return e.loaders[0].Abs(name, target), true, nil
	}
	return "", false, fmt.Errorf("gotemplate: read template %q: not found", path)
}
