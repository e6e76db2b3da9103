// Package objscan derives the canonical symbol set of a native library by
// listing the defined, exported symbols of every object in its static
// archives. The result feeds symtab when no curated symbol list exists.
package objscan

import (
	"bytes"
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"fmt"
	"os"
	"sort"
	"strings"

	"xdao.co/symprefix/ar"
)

// Format names an object file format.
type Format string

const (
	FormatELF   Format = "elf"
	FormatMachO Format = "macho"
	FormatPE    Format = "pe"
)

// DefaultFormat maps a GOOS value to the object format its linker consumes.
// Unknown platforms return "", which Scan rejects; callers cross-compiling
// from such platforms must choose explicitly.
func DefaultFormat(goos string) Format {
	switch goos {
	case "linux":
		return FormatELF
	case "darwin":
		return FormatMachO
	case "windows":
		return FormatPE
	default:
		return ""
	}
}

// Options configures a scan.
type Options struct {
	Format Format
	// Keep filters extracted names; nil means DefaultFilter(Format).
	Keep func(string) bool
}

// Scan lists the defined exported symbols across the given archives,
// deduplicated and sorted.
func Scan(paths []string, opts Options) ([]string, error) {
	keep := opts.Keep
	if keep == nil {
		keep = DefaultFilter(opts.Format)
	}

	var symbols []string
	seen := make(map[string]struct{})
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		members, err := ar.Parse(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		for _, m := range members {
			names, err := ListDefined(m.Contents, opts.Format)
			if err != nil {
				return nil, fmt.Errorf("%s(%s): %w", path, m.Name, err)
			}
			for _, n := range names {
				if !keep(n) {
					continue
				}
				if _, dup := seen[n]; dup {
					continue
				}
				seen[n] = struct{}{}
				symbols = append(symbols, n)
			}
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// ListDefined lists the defined, exported symbols of one object file.
func ListDefined(contents []byte, format Format) ([]string, error) {
	switch format {
	case FormatELF:
		return listELF(contents)
	case FormatMachO:
		return listMachO(contents)
	case FormatPE:
		return listPE(contents)
	default:
		return nil, fmt.Errorf("unsupported object file format %q", format)
	}
}

func listELF(contents []byte) ([]string, error) {
	f, err := elf.NewFile(bytes.NewReader(contents))
	if err != nil {
		return nil, err
	}
	syms, err := f.Symbols()
	if err == elf.ErrNoSymbols {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, sym := range syms {
		if elf.ST_BIND(sym.Info) != elf.STB_LOCAL && sym.Section != elf.SHN_UNDEF {
			names = append(names, sym.Name)
		}
	}
	return names, nil
}

func listMachO(contents []byte) ([]string, error) {
	f, err := macho.NewFile(bytes.NewReader(contents))
	if err != nil {
		return nil, err
	}
	if f.Symtab == nil {
		return nil, nil
	}

	const (
		nExt  = 0x01
		nType = 0x0e
		nUndf = 0x00
	)
	var names []string
	for _, sym := range f.Symtab.Syms {
		if sym.Type&nExt == 0 || sym.Type&nType == nUndf {
			continue
		}
		// Mach-O symbols carry the platform underscore; strip it to get the
		// canonical name.
		name, ok := strings.CutPrefix(sym.Name, "_")
		if !ok {
			return nil, fmt.Errorf("unexpected Mach-O symbol without underscore: %q", sym.Name)
		}
		names = append(names, name)
	}
	return names, nil
}

func listPE(contents []byte) ([]string, error) {
	f, err := pe.NewFile(bytes.NewReader(contents))
	if err != nil {
		return nil, err
	}

	const imageSymClassExternal = 2
	isWin32 := f.Machine == pe.IMAGE_FILE_MACHINE_I386

	var names []string
	for _, sym := range f.Symbols {
		if sym.SectionNumber <= 0 || sym.StorageClass != imageSymClassExternal {
			continue
		}
		name := sym.Name
		// Win32 decorates cdecl symbols with a leading underscore.
		if isWin32 {
			name = strings.TrimPrefix(name, "_")
		}
		names = append(names, name)
	}
	return names, nil
}
