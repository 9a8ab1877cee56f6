// Package legend maps semantic token type and modifier names to the small
// integer codes used on the wire.
package legend

import (
	"gitlab.com/tozd/go/errors"
)

// NotInLegend is reserved for categories a grammar knows about but that are
// intentionally left out of the legend. It encodes outside the declared range.
const NotInLegend = "notInLegend"

var ErrDuplicateName = errors.Base("duplicate legend name")

// Legend is immutable once built and safe for concurrent use.
type Legend struct {
	typeNames     []string
	modifierNames []string
	types         map[string]uint32
	modifiers     map[string]uint32
}

// New builds a legend from ordered type and modifier names. The index of a
// name in its slice is its code. Type 0 is also the fallback for unknown
// types, so it should be a sensible default category.
func New(types []string, modifiers []string) (*Legend, error) {
	l := &Legend{
		typeNames:     append([]string(nil), types...),
		modifierNames: append([]string(nil), modifiers...),
		types:         make(map[string]uint32, len(types)),
		modifiers:     make(map[string]uint32, len(modifiers)),
	}
	if err := index(l.types, types); err != nil {
		return nil, errors.Errorf("token types: %w", err)
	}
	if err := index(l.modifiers, modifiers); err != nil {
		return nil, errors.Errorf("token modifiers: %w", err)
	}
	return l, nil
}

func index(m map[string]uint32, names []string) error {
	for i, name := range names {
		if _, ok := m[name]; ok {
			return errors.WithDetails(ErrDuplicateName, "name", name)
		}
		m[name] = uint32(i)
	}
	return nil
}

// Types returns a copy of the ordered token type names.
func (l *Legend) Types() []string {
	return append([]string(nil), l.typeNames...)
}

// Modifiers returns a copy of the ordered token modifier names.
func (l *Legend) Modifiers() []string {
	return append([]string(nil), l.modifierNames...)
}

func (l *Legend) HasType(name string) bool {
	_, ok := l.types[name]
	return ok
}

// LookupType returns the code for name. The boolean is false only when the
// name is unknown and the code is the fallback 0.
func (l *Legend) LookupType(name string) (uint32, bool) {
	if i, ok := l.types[name]; ok {
		return i, true
	}
	if name == NotInLegend {
		return uint32(len(l.typeNames)) + 2, true
	}
	return 0, false
}

// EncodeType returns the legend index of name, len(types)+2 for NotInLegend
// and 0 for everything else.
func (l *Legend) EncodeType(name string) uint32 {
	code, _ := l.LookupType(name)
	return code
}

// EncodeModifiers folds names into a bitmask. Unknown names contribute
// nothing; NotInLegend sets bit len(modifiers)+2.
func (l *Legend) EncodeModifiers(names []string) uint32 {
	var mask uint32
	for _, name := range names {
		if i, ok := l.modifiers[name]; ok {
			mask |= 1 << i
		} else if name == NotInLegend {
			mask |= 1 << (uint32(len(l.modifierNames)) + 2)
		}
	}
	return mask
}
