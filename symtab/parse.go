package symtab

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseSymbolList reads renaming rules from a symbol list.
//
// The format is line-oriented:
//
//	# comment, stripped anywhere on a line
//	CRYPTO_memcmp                          # prefix rule
//	ecp_nistz256_mul_mont -> p256_mul_mont # alias rule
//
// Blank lines are ignored. Rule order is preserved.
func ParseSymbolList(r io.Reader) ([]Rule, error) {
	scanner := bufio.NewScanner(r)
	var rules []Rule
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if old, target, ok := strings.Cut(line, "->"); ok {
			old = strings.TrimSpace(old)
			target = strings.TrimSpace(target)
			if old == "" || target == "" {
				return nil, newError(KindParse, "SYM-PARSE-002",
					fmt.Sprintf("line %d: malformed alias rule %q", lineNo, scanner.Text()))
			}
			rules = append(rules, Rule{Canonical: old, Kind: RuleAlias, Target: target})
			continue
		}

		if strings.ContainsAny(line, " \t") {
			return nil, newError(KindParse, "SYM-PARSE-003",
				fmt.Sprintf("line %d: unexpected whitespace in symbol %q", lineNo, line))
		}
		rules = append(rules, Rule{Canonical: line, Kind: RulePrefix})
	}
	if err := scanner.Err(); err != nil {
		return nil, wrapError(KindParse, "SYM-PARSE-001", "reading symbol list", err)
	}
	return rules, nil
}

// LoadSymbolList reads a symbol list file and builds a validated table.
func LoadSymbolList(path, library, version string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapError(KindParse, "SYM-PARSE-001", "opening symbol list", err)
	}
	defer f.Close()
	rules, err := ParseSymbolList(f)
	if err != nil {
		return nil, err
	}
	return New(library, version, rules)
}

// PrefixRules wraps plain canonical names as prefix rules, preserving order.
func PrefixRules(names []string) []Rule {
	rules := make([]Rule, 0, len(names))
	for _, n := range names {
		rules = append(rules, Rule{Canonical: n, Kind: RulePrefix})
	}
	return rules
}
