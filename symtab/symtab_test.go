package symtab

import (
	"reflect"
	"strings"
	"testing"
)

func mustTable(t *testing.T, library, version string, rules []Rule) *Table {
	t.Helper()
	tab, err := New(library, version, rules)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tab
}

func TestExportedName_VersionPrefix(t *testing.T) {
	tab := mustTable(t, "ring_core", "0.17.14", []Rule{
		{Canonical: "CRYPTO_memcmp", Kind: RulePrefix},
	})

	r := tab.Rules()[0]
	if got := tab.ExportedName(PlatformStandard, r); got != "ring_core_0_17_14__CRYPTO_memcmp" {
		t.Fatalf("standard: got %q", got)
	}
	if got := tab.ExportedName(PlatformApple, r); got != "_ring_core_0_17_14__CRYPTO_memcmp" {
		t.Fatalf("apple: got %q", got)
	}
}

func TestExportedName_Alias(t *testing.T) {
	tab := mustTable(t, "ring_core", "0.17.14", []Rule{
		{Canonical: "ecp_nistz256_mul_mont", Kind: RuleAlias, Target: "p256_mul_mont"},
		{Canonical: "p256_mul_mont", Kind: RulePrefix},
	})

	rules := tab.Rules()
	if rules[0].Kind != RuleAlias {
		t.Fatalf("alias rules must come first, got %+v", rules[0])
	}
	if got := tab.ExportedName(PlatformStandard, rules[0]); got != "p256_mul_mont" {
		t.Fatalf("alias standard: got %q", got)
	}
	if got := tab.ExportedName(PlatformApple, rules[0]); got != "_p256_mul_mont" {
		t.Fatalf("alias apple: got %q", got)
	}
	// The alias target is itself prefixed, so the legacy name resolves to the
	// versioned symbol after a second macro expansion.
	if got, ok := tab.Lookup(PlatformStandard, "p256_mul_mont"); !ok || got != "ring_core_0_17_14__p256_mul_mont" {
		t.Fatalf("target lookup: got %q ok=%v", got, ok)
	}
}

func TestTag(t *testing.T) {
	for _, tc := range []struct {
		library, version, want string
	}{
		{"ring_core", "0.17.14", "ring_core_0_17_14"},
		{"ring_core", "1.0.0-rc1", "ring_core_1_0_0_rc1"},
		{"vendored", "2", "vendored_2"},
	} {
		tab := mustTable(t, tc.library, tc.version, nil)
		if got := tab.Tag(); got != tc.want {
			t.Errorf("Tag(%q, %q) = %q, want %q", tc.library, tc.version, got, tc.want)
		}
	}
}

func TestCanonicalSetIdenticalAcrossPlatforms(t *testing.T) {
	tab := mustTable(t, "ring_core", "0.17.14", []Rule{
		{Canonical: "ecp_nistz256_mul_mont", Kind: RuleAlias, Target: "p256_mul_mont"},
		{Canonical: "CRYPTO_memcmp", Kind: RulePrefix},
		{Canonical: "ChaCha20_ctr32", Kind: RulePrefix},
	})

	names := tab.CanonicalNames()
	for _, class := range PlatformClasses {
		for i, r := range tab.Rules() {
			if r.Canonical != names[i] {
				t.Fatalf("class %s: canonical order diverged", class)
			}
			src := tab.SourceName(class, r)
			if class == PlatformApple && !strings.HasPrefix(src, "_") {
				t.Fatalf("apple source name %q missing underscore", src)
			}
		}
	}
}

func TestLookupMissing(t *testing.T) {
	tab := mustTable(t, "ring_core", "0.17.14", []Rule{
		{Canonical: "CRYPTO_memcmp", Kind: RulePrefix},
	})
	if _, ok := tab.Lookup(PlatformStandard, "CRYPTO_poly1305_init"); ok {
		t.Fatal("expected missing mapping")
	}
}

func TestPrefixRulesFromNames(t *testing.T) {
	names := []string{"CRYPTO_memcmp", "ChaCha20_ctr32", "bn_mul_mont"}
	tab := mustTable(t, "ring_core", "0.17.14", PrefixRules(names))
	for _, n := range names {
		got, ok := tab.Lookup(PlatformStandard, n)
		if !ok {
			t.Fatalf("missing mapping for %q", n)
		}
		if want := "ring_core_0_17_14__" + n; got != want {
			t.Fatalf("Lookup(%q) = %q, want %q", n, got, want)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name    string
		library string
		version string
		rules   []Rule
		ruleID  string
	}{
		{
			name: "duplicate canonical", library: "ring_core", version: "0.17.14",
			rules: []Rule{
				{Canonical: "CRYPTO_memcmp", Kind: RulePrefix},
				{Canonical: "CRYPTO_memcmp", Kind: RulePrefix},
			},
			ruleID: "SYM-VAL-121",
		},
		{
			name: "exported collision", library: "ring_core", version: "0.17.14",
			rules: []Rule{
				{Canonical: "legacy_mul", Kind: RuleAlias, Target: "p256_mul_mont"},
				{Canonical: "old_mul", Kind: RuleAlias, Target: "p256_mul_mont"},
			},
			ruleID: "SYM-VAL-122",
		},
		{
			name: "self alias", library: "ring_core", version: "0.17.14",
			rules:  []Rule{{Canonical: "p256_mul_mont", Kind: RuleAlias, Target: "p256_mul_mont"}},
			ruleID: "SYM-VAL-123",
		},
		{
			name: "bad symbol", library: "ring_core", version: "0.17.14",
			rules:  []Rule{{Canonical: "not a symbol", Kind: RulePrefix}},
			ruleID: "SYM-VAL-111",
		},
		{
			name: "bad target", library: "ring_core", version: "0.17.14",
			rules:  []Rule{{Canonical: "legacy_mul", Kind: RuleAlias, Target: "1bad"}},
			ruleID: "SYM-VAL-112",
		},
		{name: "bad library", library: "ring-core", version: "0.17.14", ruleID: "SYM-VAL-101"},
		{name: "empty version", library: "ring_core", version: "", ruleID: "SYM-VAL-102"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.library, tc.version, tc.rules)
			if err == nil {
				t.Fatal("expected error")
			}
			if !IsKind(err, KindValidation) {
				t.Fatalf("expected Validation kind, got %v", err)
			}
			if got := RuleID(err); got != tc.ruleID {
				t.Fatalf("RuleID = %q, want %q", got, tc.ruleID)
			}
		})
	}
}

func TestParseSymbolList(t *testing.T) {
	input := strings.Join([]string{
		"# curated list",
		"",
		"CRYPTO_memcmp",
		"ChaCha20_ctr32  # hot loop",
		"ecp_nistz256_mul_mont -> p256_mul_mont",
		"  LIMBS_add_mod",
	}, "\n")

	rules, err := ParseSymbolList(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseSymbolList: %v", err)
	}
	want := []Rule{
		{Canonical: "CRYPTO_memcmp", Kind: RulePrefix},
		{Canonical: "ChaCha20_ctr32", Kind: RulePrefix},
		{Canonical: "ecp_nistz256_mul_mont", Kind: RuleAlias, Target: "p256_mul_mont"},
		{Canonical: "LIMBS_add_mod", Kind: RulePrefix},
	}
	if !reflect.DeepEqual(rules, want) {
		t.Fatalf("rules = %+v, want %+v", rules, want)
	}
}

func TestParseSymbolListRejects(t *testing.T) {
	for _, tc := range []struct {
		input  string
		ruleID string
	}{
		{"a ->", "SYM-PARSE-002"},
		{"-> b", "SYM-PARSE-002"},
		{"two symbols", "SYM-PARSE-003"},
	} {
		_, err := ParseSymbolList(strings.NewReader(tc.input))
		if err == nil {
			t.Fatalf("input %q: expected error", tc.input)
		}
		if got := RuleID(err); got != tc.ruleID {
			t.Fatalf("input %q: RuleID = %q, want %q", tc.input, got, tc.ruleID)
		}
	}
}
