// Package grammar holds the tree-sitter grammars bundled with semtok and
// decides which one applies to a document.
package grammar

import (
	"slices"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
)

// Bundled is a grammar compiled into the binary together with a default
// highlight query.
type Bundled struct {
	Name     string
	Globs    []string
	Language func() *sitter.Language
	Query    string
}

var bundled = map[string]Bundled{
	"javascript": {
		Name:     "javascript",
		Globs:    []string{"**/*.js", "**/*.mjs", "**/*.cjs", "**/*.jsx"},
		Language: javascript.GetLanguage,
		Query:    javascriptQuery,
	},
	"go": {
		Name:     "go",
		Globs:    []string{"**/*.go"},
		Language: golang.GetLanguage,
		Query:    goQuery,
	},
	"python": {
		Name:     "python",
		Globs:    []string{"**/*.py", "**/*.pyi"},
		Language: python.GetLanguage,
		Query:    pythonQuery,
	},
}

// Lookup returns the bundled grammar called name.
func Lookup(name string) (Bundled, bool) {
	b, ok := bundled[name]
	return b, ok
}

// Names lists the bundled grammars in a stable order.
func Names() []string {
	names := make([]string, 0, len(bundled))
	for name := range bundled {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
