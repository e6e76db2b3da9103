// Package manifest implements the canonical generation manifest: a strict,
// deterministic text record of one header-generation run, naming the library,
// its version tag, and the content identifier of every emitted file.
//
// Canonical bytes are the identity: Parse rejects any input that does not
// re-render byte-identically, and the manifest CID is computed over the
// canonical bytes.
package manifest

import (
	"bytes"
	"sort"
	"strings"
	"unicode/utf8"

	"xdao.co/symprefix/cidutil"
)

// SectionOrder defines the canonical order of manifest sections.
var SectionOrder = []string{"META", "LIBRARY", "OUTPUTS", "CRYPTO"}

const (
	Preamble  = "-----BEGIN SYMPREFIX MANIFEST-----"
	Postamble = "-----END SYMPREFIX MANIFEST-----"
)

// Manifest is a parsed, canonical generation manifest.
type Manifest struct {
	Sections map[string]Section
	Raw      []byte // canonical bytes
	Signed   []byte // bytes covered by the signature (BEGIN through end of OUTPUTS)
}

type Section struct {
	Name  string
	Pairs map[string]string // key-value pairs, sorted lexicographically
}

// Document is the in-memory representation for producing canonical manifests.
// Rendered bytes are always canonical (section order, key order, spacing).
type Document struct {
	Meta    map[string]string
	Library map[string]string
	Outputs map[string]string
	Crypto  map[string]string
}

// Render produces canonical manifest bytes from a Document.
func Render(doc Document) ([]byte, error) {
	sections := []struct {
		name  string
		pairs map[string]string
	}{
		{name: "META", pairs: doc.Meta},
		{name: "LIBRARY", pairs: doc.Library},
		{name: "OUTPUTS", pairs: doc.Outputs},
		{name: "CRYPTO", pairs: doc.Crypto},
	}

	var sb strings.Builder
	sb.WriteString(Preamble)
	sb.WriteString("\n")

	for i, sec := range sections {
		sb.WriteString(sec.name)
		sb.WriteString("\n")

		keys := make([]string, 0, len(sec.pairs))
		for k := range sec.pairs {
			if err := checkKey(k); err != nil {
				return nil, err
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := sec.pairs[k]
			if err := checkValue(v); err != nil {
				return nil, err
			}
			sb.WriteString(k)
			sb.WriteString(": ")
			sb.WriteString(v)
			sb.WriteString("\n")
		}

		if i != len(sections)-1 {
			sb.WriteString("\n")
		}
	}

	sb.WriteString(Postamble)
	return []byte(sb.String()), nil
}

// Parse parses a manifest and enforces the canonical serialization rules.
// Non-canonical inputs are rejected.
func Parse(data []byte) (*Manifest, error) {
	if !utf8.Valid(data) {
		return nil, newError(KindParse, "SPM-STR-001", "manifest must be valid UTF-8")
	}
	if bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		return nil, newError(KindParse, "SPM-STR-002", "BOM not allowed")
	}
	if bytes.Contains(data, []byte("\r")) {
		return nil, newError(KindParse, "SPM-STR-003", "CR line endings not allowed")
	}
	if len(data) > 0 && data[len(data)-1] == '\n' {
		return nil, newError(KindParse, "SPM-STR-004", "trailing newline not allowed")
	}

	lines := strings.Split(string(data), "\n")
	if len(lines) < 2 || lines[0] != Preamble {
		return nil, newError(KindParse, "SPM-STR-005", "missing manifest preamble")
	}
	if lines[len(lines)-1] != Postamble {
		return nil, newError(KindParse, "SPM-STR-006", "missing manifest postamble")
	}

	sections := make(map[string]Section)
	sectionIndex := -1
	var curr *Section

	for _, line := range lines[1 : len(lines)-1] {
		if len(line) > 0 && (line[len(line)-1] == ' ' || line[len(line)-1] == '\t') {
			return nil, newError(KindParse, "SPM-STR-007", "trailing whitespace forbidden")
		}

		if line == "" {
			if curr == nil {
				return nil, newError(KindCanonical, "SPM-CANON-001", "unexpected blank line")
			}
			curr = nil
			continue
		}

		if isSectionHeader(line) {
			if curr != nil {
				return nil, newError(KindCanonical, "SPM-CANON-002", "missing blank line between sections")
			}
			sectionIndex++
			if sectionIndex >= len(SectionOrder) || SectionOrder[sectionIndex] != line {
				return nil, newError(KindCanonical, "SPM-CANON-003", "sections missing or out of order")
			}
			sections[line] = Section{Name: line, Pairs: make(map[string]string)}
			sec := sections[line]
			curr = &sec
			continue
		}

		if curr == nil {
			return nil, newError(KindCanonical, "SPM-CANON-004", "content outside section")
		}
		key, val, ok := strings.Cut(line, ": ")
		if !ok {
			return nil, newError(KindParse, "SPM-STR-008", "invalid key-value formatting")
		}
		if err := checkKey(key); err != nil {
			return nil, err
		}
		if _, exists := curr.Pairs[key]; exists {
			return nil, newError(KindCanonical, "SPM-CANON-005", "duplicate key in section")
		}
		curr.Pairs[key] = val
	}

	if sectionIndex != len(SectionOrder)-1 {
		return nil, newError(KindCanonical, "SPM-CANON-003", "sections missing or out of order")
	}

	// Enforce full canonical byte identity by re-rendering. This catches key
	// ordering, blank-line placement, and spacing deviations in one step.
	doc := Document{
		Meta:    sections["META"].Pairs,
		Library: sections["LIBRARY"].Pairs,
		Outputs: sections["OUTPUTS"].Pairs,
		Crypto:  sections["CRYPTO"].Pairs,
	}
	canonical, err := Render(doc)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(data, canonical) {
		return nil, newError(KindCanonical, "SPM-CANON-006", "non-canonical manifest")
	}

	// Signed bytes run from BEGIN through the end of OUTPUTS, inclusive.
	// Render emits exactly one blank line between OUTPUTS and CRYPTO.
	marker := []byte("\nCRYPTO\n")
	idx := bytes.Index(canonical, marker)
	if idx < 0 {
		return nil, newError(KindInternal, "SPM-INTERNAL-001", "cannot determine signature scope")
	}
	signed := canonical[:idx+1]

	return &Manifest{Sections: sections, Raw: canonical, Signed: signed}, nil
}

// CID returns the CIDv1 (raw + sha2-256) of the canonical manifest bytes.
func (m *Manifest) CID() string {
	return cidutil.SumString(m.Raw)
}

// SignedBytes returns the byte range covered by the signature.
func (m *Manifest) SignedBytes() []byte { return m.Signed }

func (m *Manifest) pair(section, key string) string {
	if sec, ok := m.Sections[section]; ok {
		return sec.Pairs[key]
	}
	return ""
}

func (m *Manifest) LibraryName() string    { return m.pair("LIBRARY", "Name") }
func (m *Manifest) LibraryVersion() string { return m.pair("LIBRARY", "Version") }
func (m *Manifest) Tag() string            { return m.pair("LIBRARY", "Tag") }

// OutputCID returns the recorded CID for a generated file name, or "".
func (m *Manifest) OutputCID(name string) string { return m.pair("OUTPUTS", name) }

// OutputNames returns the generated file names in canonical (sorted) order.
func (m *Manifest) OutputNames() []string {
	sec, ok := m.Sections["OUTPUTS"]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(sec.Pairs))
	for k := range sec.Pairs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func isSectionHeader(line string) bool {
	for _, s := range SectionOrder {
		if line == s {
			return true
		}
	}
	return false
}

func checkKey(k string) error {
	if k == "" {
		return newError(KindRender, "SPM-KV-001", "empty key")
	}
	for i := 0; i < len(k); i++ {
		if k[i] > 127 || k[i] == '\n' || k[i] == '\r' {
			return newError(KindRender, "SPM-KV-002", "non-ASCII key")
		}
	}
	if strings.Contains(k, ": ") {
		return newError(KindRender, "SPM-KV-003", "key must not contain separator")
	}
	return nil
}

func checkValue(v string) error {
	if v == "" {
		return newError(KindRender, "SPM-KV-004", "empty value")
	}
	if strings.HasPrefix(v, " ") {
		return newError(KindRender, "SPM-KV-005", "value must not start with a space")
	}
	if strings.ContainsAny(v, "\n\r") {
		return newError(KindRender, "SPM-KV-006", "value must not contain newlines")
	}
	if strings.HasSuffix(v, " ") || strings.HasSuffix(v, "\t") {
		return newError(KindRender, "SPM-KV-007", "trailing whitespace forbidden")
	}
	return nil
}
