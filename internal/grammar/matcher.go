package grammar

import (
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

var ErrBadPattern = errors.Base("bad grammar glob")

type rule struct {
	name string
	glob string
}

// Matcher maps document URIs to grammar names by glob. Rules are tried in
// the order they were added and the first match wins.
type Matcher struct {
	rules []rule
}

func NewMatcher() *Matcher {
	return &Matcher{}
}

// Add registers globs for the grammar called name.
func (m *Matcher) Add(name string, globs ...string) error {
	for _, g := range globs {
		if !doublestar.ValidatePattern(g) {
			return errors.WithDetails(ErrBadPattern, "grammar", name, "glob", g)
		}
		m.rules = append(m.rules, rule{name: name, glob: g})
	}
	return nil
}

// Match returns the grammar name for uri. uri may be a file:// URI or a
// plain path.
func (m *Matcher) Match(uri string) (string, bool) {
	p := uriPath(uri)
	for _, r := range m.rules {
		if ok, _ := doublestar.Match(r.glob, p); ok {
			return r.name, true
		}
	}
	return "", false
}

func uriPath(uri string) string {
	p := uri
	if u, err := url.Parse(uri); err == nil && u.Scheme != "" {
		p = u.Path
		if p == "" {
			p = u.Opaque
		}
	}
	return strings.TrimPrefix(p, "/")
}
