package objscan

import "strings"

// skipSymbols are compiler- or runtime-provided names that end up in static
// archives but must never be renamed: they are meant to deduplicate against
// the system's copies.
var skipSymbols = map[string]struct{}{
	"__local_stdio_printf_options": {},
	"__local_stdio_scanf_options":  {},
	"_vscprintf":                   {},
	"_vscprintf_l":                 {},
	"_vsscanf_l":                   {},
	"_xmm":                         {},
	"sscanf":                       {},
	"vsnprintf":                    {},
	// sdallocx is weak and intended to merge with the allocator's copy.
	"sdallocx": {},
}

// DefaultFilter drops symbols that must keep their system-wide identity:
// known runtime helpers, C++ mangled names, PIC thunks, and debug artifacts.
func DefaultFilter(format Format) func(string) bool {
	return func(s string) bool {
		if _, skip := skipSymbols[s]; skip {
			return false
		}
		if isCXXMangled(s, format) {
			return false
		}
		if strings.HasPrefix(s, "__real@") ||
			strings.HasPrefix(s, "__x86.get_pc_thunk.") ||
			strings.HasPrefix(s, "DW.") {
			return false
		}
		return true
	}
}

func isCXXMangled(s string, format Format) bool {
	if format == FormatPE {
		return strings.HasPrefix(s, "?")
	}
	return strings.HasPrefix(s, "_Z")
}
