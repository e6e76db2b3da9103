// Package ar reads Unix static archives (.a), covering the GNU/SysV and BSD
// variants produced by the toolchains that build vendored native libraries.
package ar

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const magic = "!<arch>\n"

// Member is one file stored in an archive.
type Member struct {
	Name     string
	Contents []byte
}

// Parse reads an archive and returns its object members in archive order.
// Symbol-table and long-filename bookkeeping members are consumed internally
// and never returned.
func Parse(r io.Reader) ([]Member, error) {
	var got [len(magic)]byte
	if _, err := io.ReadFull(r, got[:]); err != nil {
		return nil, fmt.Errorf("ar: reading magic: %w", err)
	}
	if string(got[:]) != magic {
		return nil, errors.New("ar: not an archive file")
	}

	var members []Member
	var longNames []byte

	for {
		var header [60]byte
		if _, err := io.ReadFull(r, header[:]); err != nil {
			if err == io.EOF {
				return members, nil
			}
			return nil, fmt.Errorf("ar: reading member header: %w", err)
		}

		name := strings.TrimRight(string(header[:16]), " ")
		sizeField := strings.TrimRight(string(header[48:58]), "\x00 ")
		size, err := strconv.ParseUint(sizeField, 10, 63)
		if err != nil {
			return nil, fmt.Errorf("ar: bad member size %q: %w", sizeField, err)
		}

		// Member data is padded to an even length.
		stored := size + size%2
		contents := make([]byte, stored)
		if _, err := io.ReadFull(r, contents); err != nil {
			return nil, fmt.Errorf("ar: reading member %q: %w", name, err)
		}
		contents = contents[:size]

		switch {
		case name == "/":
			// GNU symbol table; linker-only.
			continue
		case name == "//":
			if longNames != nil {
				return nil, errors.New("ar: duplicate long-filename table")
			}
			longNames = contents
			continue
		case len(name) > 1 && name[0] == '/':
			name, err = resolveLongName(longNames, name[1:])
			if err != nil {
				return nil, err
			}
		default:
			// GNU terminates short names with '/'.
			name = strings.TrimRight(name, "/")
		}

		// BSD stores long names as "#1/N" with the real name prefixed to
		// the member data, possibly NUL-padded.
		if n, rest, ok := bsdName(name, contents); ok {
			name = n
			contents = rest
		}

		if name == "__.SYMDEF" || name == "__.SYMDEF SORTED" {
			continue
		}

		members = append(members, Member{Name: name, Contents: contents})
	}
}

func resolveLongName(table []byte, offsetField string) (string, error) {
	if table == nil {
		return "", errors.New("ar: long-filename reference before table")
	}
	offset, err := strconv.ParseUint(offsetField, 10, 63)
	if err != nil {
		return "", fmt.Errorf("ar: bad filename offset %q: %w", offsetField, err)
	}
	if offset > uint64(len(table)) {
		return "", errors.New("ar: filename offset out of bounds")
	}
	rest := table[offset:]
	// SysV/GNU terminate entries with '/', Windows tools with NUL.
	end := bytes.IndexAny(rest, "/\x00")
	if end < 0 {
		return "", errors.New("ar: unterminated filename in table")
	}
	return string(rest[:end]), nil
}

func bsdName(name string, contents []byte) (string, []byte, bool) {
	var n uint
	cnt, err := fmt.Sscanf(name, "#1/%d", &n)
	if err != nil || cnt != 1 || len(contents) < int(n) {
		return "", nil, false
	}
	real := contents[:n]
	if i := bytes.IndexByte(real, 0); i >= 0 {
		real = real[:i]
	}
	return string(real), contents[n:], true
}
