package symtab

import (
	"strings"
)

// PlatformClass selects the naming convention of the link target.
type PlatformClass string

const (
	// PlatformStandard covers linkers that resolve plain symbol names
	// (ELF, PE without C decoration).
	PlatformStandard PlatformClass = "standard"
	// PlatformApple covers Mach-O linkers, which expect every C symbol to
	// carry a leading underscore.
	PlatformApple PlatformClass = "apple"
)

// PlatformClasses lists every class a table must cover, in emission order.
var PlatformClasses = []PlatformClass{PlatformApple, PlatformStandard}

// RuleKind distinguishes the two renaming rule flavors.
type RuleKind int

const (
	// RulePrefix renames the canonical name to <tag>__<canonical>.
	RulePrefix RuleKind = iota
	// RuleAlias renames a legacy canonical name to a fixed internal name.
	// The target typically appears again as a prefix rule, so the alias
	// resolves to the prefixed symbol after one more round of macro
	// expansion at build time.
	RuleAlias
)

// Rule is one renaming rule: (canonical name) -> exported name per platform.
type Rule struct {
	Canonical string
	Kind      RuleKind
	// Target is the fixed internal name an alias rule maps to.
	// Empty for prefix rules.
	Target string
}

// Table is the complete renaming table for one library build.
//
// Rule order is preserved from the input and is part of the table identity:
// emission walks rules in order, so the same input always yields the same
// bytes.
type Table struct {
	// Library is the native library's base identifier, e.g. "ring_core".
	Library string
	// Version is the library version, e.g. "0.17.14". Dots and dashes are
	// mapped to underscores when forming the tag.
	Version string

	rules []Rule
}

// New builds a validated table. Alias rules are ordered before prefix rules,
// each group keeping its input order.
func New(library, version string, rules []Rule) (*Table, error) {
	t := &Table{Library: library, Version: version}
	for _, r := range rules {
		if r.Kind == RuleAlias {
			t.rules = append(t.rules, r)
		}
	}
	for _, r := range rules {
		if r.Kind == RulePrefix {
			t.rules = append(t.rules, r)
		}
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Rules returns the table's rules in emission order.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Len returns the number of rules.
func (t *Table) Len() int { return len(t.rules) }

// Tag returns the version-qualified prefix applied by prefix rules,
// e.g. ("ring_core", "0.17.14") -> "ring_core_0_17_14".
func (t *Table) Tag() string {
	return t.Library + "_" + sanitizeVersion(t.Version)
}

// ExportedName returns the linker-visible name a rule produces under the
// given platform class. Apple-class names carry a leading underscore on both
// sides of the rename.
func (t *Table) ExportedName(class PlatformClass, r Rule) string {
	var out string
	switch r.Kind {
	case RuleAlias:
		out = r.Target
	default:
		out = t.Tag() + "__" + r.Canonical
	}
	if class == PlatformApple {
		return "_" + out
	}
	return out
}

// SourceName returns the linker-visible form of the canonical name under the
// given platform class.
func (t *Table) SourceName(class PlatformClass, r Rule) string {
	if class == PlatformApple {
		return "_" + r.Canonical
	}
	return r.Canonical
}

// CanonicalNames returns every canonical name in emission order. The set is
// the same for every platform class; only the rendering differs.
func (t *Table) CanonicalNames() []string {
	out := make([]string, 0, len(t.rules))
	for _, r := range t.rules {
		out = append(out, r.Canonical)
	}
	return out
}

// Lookup returns the exported name for a canonical name under class.
// The second result is false when the table has no rule for the name;
// consumers must treat that as a build-time error, never a fallthrough.
func (t *Table) Lookup(class PlatformClass, canonical string) (string, bool) {
	for _, r := range t.rules {
		if r.Canonical == canonical {
			return t.ExportedName(class, r), true
		}
	}
	return "", false
}

func sanitizeVersion(v string) string {
	return strings.Map(func(c rune) rune {
		switch c {
		case '.', '-':
			return '_'
		default:
			return c
		}
	}, v)
}
