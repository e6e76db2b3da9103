// Package emit renders a symbol table to the headers consumed by the native
// library's build: a C header, an assembler header with the Apple underscore
// branch, and a NASM include handling win32 decoration.
//
// Rendering is deterministic: the same table always produces byte-identical
// output. The headers are erased during compilation; their only observable
// contract is the set of exported names the linker sees.
package emit

import (
	"strings"

	"xdao.co/symprefix/symtab"
)

// Canonical output file names. Downstream build files reference these
// directly; renaming any of them is a breaking change.
const (
	CHeaderName     = "prefix_symbols.h"
	ASMHeaderName   = "prefix_symbols_asm.h"
	NASMIncludeName = "prefix_symbols_nasm.inc"
)

// File is one rendered output.
type File struct {
	Name string
	Data []byte
}

// Headers renders every output for the table, in stable order.
func Headers(t *symtab.Table) ([]File, error) {
	if t == nil || t.Len() == 0 {
		return nil, errEmptyTable()
	}
	return []File{
		{Name: CHeaderName, Data: cHeader(t)},
		{Name: ASMHeaderName, Data: asmHeader(t)},
		{Name: NASMIncludeName, Data: nasmInclude(t)},
	}, nil
}

// cHeader emits plain #define pairs for C translation units. C symbols are
// not mangled, so a single branch covers every platform.
func cHeader(t *symtab.Table) []byte {
	var sb strings.Builder
	guard := t.Library + "_generated_PREFIX_SYMBOLS_H"
	sb.WriteString("#ifndef " + guard + "\n")
	sb.WriteString("#define " + guard + "\n")
	sb.WriteString("\n")
	for _, r := range t.Rules() {
		sb.WriteString("#define ")
		sb.WriteString(t.SourceName(symtab.PlatformStandard, r))
		sb.WriteString(" ")
		sb.WriteString(t.ExportedName(symtab.PlatformStandard, r))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString("#endif\n")
	return []byte(sb.String())
}

// asmHeader emits the platform-branched table for assembly sources. Mach-O
// linkers expect a leading underscore on every symbol, so the Apple branch
// mangles both sides of each rule.
func asmHeader(t *symtab.Table) []byte {
	var sb strings.Builder
	guard := t.Library + "_generated_PREFIX_SYMBOLS_ASM_H"
	sb.WriteString("#ifndef " + guard + "\n")
	sb.WriteString("#define " + guard + "\n")
	sb.WriteString("\n")
	sb.WriteString("#if defined(__APPLE__)\n")
	for _, r := range t.Rules() {
		sb.WriteString("#define ")
		sb.WriteString(t.SourceName(symtab.PlatformApple, r))
		sb.WriteString(" ")
		sb.WriteString(t.ExportedName(symtab.PlatformApple, r))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString("#else\n")
	for _, r := range t.Rules() {
		sb.WriteString("#define ")
		sb.WriteString(t.SourceName(symtab.PlatformStandard, r))
		sb.WriteString(" ")
		sb.WriteString(t.ExportedName(symtab.PlatformStandard, r))
		sb.WriteString("\n")
	}
	sb.WriteString("#endif\n")
	sb.WriteString("\n")
	sb.WriteString("#endif\n")
	return []byte(sb.String())
}

// nasmInclude emits the table in NASM syntax. 32-bit Windows decorates C
// symbols with a leading underscore, 64-bit does not.
func nasmInclude(t *symtab.Table) []byte {
	var sb strings.Builder
	sb.WriteString("%ifidn __OUTPUT_FORMAT__, win32\n")
	for _, r := range t.Rules() {
		sb.WriteString("%define ")
		sb.WriteString(t.SourceName(symtab.PlatformApple, r))
		sb.WriteString(" ")
		sb.WriteString(t.ExportedName(symtab.PlatformApple, r))
		sb.WriteString("\n")
	}
	sb.WriteString("%else\n")
	for _, r := range t.Rules() {
		sb.WriteString("%define ")
		sb.WriteString(t.SourceName(symtab.PlatformStandard, r))
		sb.WriteString(" ")
		sb.WriteString(t.ExportedName(symtab.PlatformStandard, r))
		sb.WriteString("\n")
	}
	sb.WriteString("%endif\n")
	return []byte(sb.String())
}
