package symtab

import "fmt"

// validate enforces the table invariants:
//
//   - SYM-VAL-101: library name must be a valid C identifier
//   - SYM-VAL-102: version must be non-empty and [0-9A-Za-z._-]
//   - SYM-VAL-111: every canonical name must be a valid C identifier
//   - SYM-VAL-112: every alias target must be a valid C identifier
//   - SYM-VAL-121: no duplicate canonical names (the mapping is a function)
//   - SYM-VAL-122: no two rules may export the same name (injectivity)
//   - SYM-VAL-123: a rule must actually rename (canonical != exported)
//
// Injectivity is checked on the standard class only: the Apple rendering
// prepends one underscore to both sides of every rule, so it collides exactly
// when the standard rendering does.
func (t *Table) validate() error {
	if !isCIdentifier(t.Library) {
		return newError(KindValidation, "SYM-VAL-101", fmt.Sprintf("invalid library name %q", t.Library))
	}
	if !isVersion(t.Version) {
		return newError(KindValidation, "SYM-VAL-102", fmt.Sprintf("invalid library version %q", t.Version))
	}

	seenCanonical := make(map[string]struct{}, len(t.rules))
	seenExported := make(map[string]string, len(t.rules))
	for _, r := range t.rules {
		if !isCIdentifier(r.Canonical) {
			return newError(KindValidation, "SYM-VAL-111", fmt.Sprintf("invalid symbol name %q", r.Canonical))
		}
		if r.Kind == RuleAlias && !isCIdentifier(r.Target) {
			return newError(KindValidation, "SYM-VAL-112", fmt.Sprintf("invalid alias target %q for %q", r.Target, r.Canonical))
		}
		if _, dup := seenCanonical[r.Canonical]; dup {
			return newError(KindValidation, "SYM-VAL-121", fmt.Sprintf("duplicate symbol %q", r.Canonical))
		}
		seenCanonical[r.Canonical] = struct{}{}

		exported := t.ExportedName(PlatformStandard, r)
		if prev, dup := seenExported[exported]; dup {
			return newError(KindValidation, "SYM-VAL-122",
				fmt.Sprintf("symbols %q and %q both export %q", prev, r.Canonical, exported))
		}
		seenExported[exported] = r.Canonical

		if exported == r.Canonical {
			return newError(KindValidation, "SYM-VAL-123", fmt.Sprintf("rule for %q does not rename", r.Canonical))
		}
	}
	return nil
}

func isCIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func isVersion(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c == '.', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}
