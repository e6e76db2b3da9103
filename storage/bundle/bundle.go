// Package bundle exports and imports cache contents as a deterministic TAR
// stream, optionally lz4-compressed, so generated artifacts move between
// build hosts without a shared cache daemon.
package bundle

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/pierrec/lz4/v4"

	"xdao.co/symprefix/cidutil"
	"xdao.co/symprefix/storage"
)

// FormatVersion is the current bundle index schema version.
const FormatVersion = 1

// ExportOptions controls bundle export behavior.
type ExportOptions struct {
	// Labels is optional, non-authoritative metadata mapping names
	// (e.g. "prefix_symbols_asm.h") to CIDs.
	Labels map[string]cid.Cid
	// IncludeIndex controls whether index.json is included.
	IncludeIndex bool
	// Compress wraps the TAR stream in an lz4 frame.
	Compress bool
}

type indexJSON struct {
	Version   int          `json:"version"`
	CIDCodec  string       `json:"cid_codec"`
	Multihash string       `json:"multihash"`
	Blocks    []indexBlock `json:"blocks"`
	Labels    []indexLabel `json:"labels,omitempty"`
}

type indexBlock struct {
	CID  string `json:"cid"`
	Size int    `json:"size"`
}

type indexLabel struct {
	Name string `json:"name"`
	CID  string `json:"cid"`
}

// Export writes a bundle containing the blocks for the given CIDs.
//
// The bundle bytes are deterministic for the same inputs: entry order is
// lexicographic, TAR headers are normalized, and lz4 compression runs with
// fixed parameters. All exported bytes are validated against their CIDs.
func Export(w io.Writer, cas storage.CAS, ids []cid.Cid, opts ExportOptions) error {
	if cas == nil {
		return fmt.Errorf("bundle: nil cache")
	}

	if opts.Compress {
		zw := lz4.NewWriter(w)
		if err := zw.Apply(lz4.ConcurrencyOption(1)); err != nil {
			return err
		}
		if err := exportTar(zw, cas, ids, opts); err != nil {
			_ = zw.Close()
			return err
		}
		return zw.Close()
	}
	return exportTar(w, cas, ids, opts)
}

func exportTar(w io.Writer, cas storage.CAS, ids []cid.Cid, opts ExportOptions) error {
	uniq := make(map[string]cid.Cid, len(ids))
	for _, id := range ids {
		if !id.Defined() {
			return storage.ErrInvalidCID
		}
		uniq[id.String()] = id
	}

	cidStrings := make([]string, 0, len(uniq))
	for s := range uniq {
		cidStrings = append(cidStrings, s)
	}
	sort.Strings(cidStrings)

	tw := tar.NewWriter(w)

	blocks := make([]indexBlock, 0, len(cidStrings))
	for _, s := range cidStrings {
		id := uniq[s]
		b, err := cas.Get(id)
		if err != nil {
			_ = tw.Close()
			return err
		}
		got, err := cidutil.Sum(b)
		if err != nil {
			_ = tw.Close()
			return err
		}
		if got != id {
			_ = tw.Close()
			return storage.ErrCIDMismatch
		}

		if err := writeFile(tw, "blocks/"+id.String(), b); err != nil {
			_ = tw.Close()
			return err
		}
		blocks = append(blocks, indexBlock{CID: id.String(), Size: len(b)})
	}

	if opts.IncludeIndex {
		idx := indexJSON{
			Version:   FormatVersion,
			CIDCodec:  "raw",
			Multihash: "sha2-256",
			Blocks:    blocks,
		}
		if len(opts.Labels) > 0 {
			keys := make([]string, 0, len(opts.Labels))
			for k := range opts.Labels {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if k == "" {
					_ = tw.Close()
					return fmt.Errorf("bundle: empty label key")
				}
				v := opts.Labels[k]
				if !v.Defined() {
					_ = tw.Close()
					return storage.ErrInvalidCID
				}
				idx.Labels = append(idx.Labels, indexLabel{Name: k, CID: v.String()})
			}
		}

		b, err := json.MarshalIndent(idx, "", "  ")
		if err != nil {
			_ = tw.Close()
			return err
		}
		b = append(b, '\n')
		if err := writeFile(tw, "index.json", b); err != nil {
			_ = tw.Close()
			return err
		}
	}

	return tw.Close()
}

// ImportOptions controls bundle import behavior.
type ImportOptions struct {
	// IgnoreUnknown controls whether unknown TAR entries are ignored.
	// Default (false) is fail-closed.
	IgnoreUnknown bool
}

// Import reads a bundle from r and imports every block into the cache.
// Compression is detected from the lz4 frame magic. Default behavior is
// fail-closed: unknown entries cause an error.
func Import(r io.Reader, cas storage.CAS) error {
	return ImportWithOptions(r, cas, ImportOptions{})
}

// ImportWithOptions reads a bundle from r and imports every block into cas,
// validating each block against both the entry path CID and the computed CID.
func ImportWithOptions(r io.Reader, cas storage.CAS, opts ImportOptions) error {
	if cas == nil {
		return fmt.Errorf("bundle: nil cache")
	}

	br, compressed, err := sniffLZ4(r)
	if err != nil {
		return err
	}
	if compressed {
		br = lz4.NewReader(br)
	}

	tr := tar.NewReader(br)
	seen := map[string]struct{}{}

	for {
		h, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		name := cleanTarPath(h.Name)
		if name == "" {
			return fmt.Errorf("bundle: invalid entry path: %q", h.Name)
		}

		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return fmt.Errorf("bundle: unexpected tar entry type: %v (%s)", h.Typeflag, name)
		}

		// Non-authoritative metadata.
		if name == "index.json" || strings.HasPrefix(name, "manifests/") {
			_, _ = io.Copy(io.Discard, tr)
			continue
		}

		if !strings.HasPrefix(name, "blocks/") {
			if opts.IgnoreUnknown {
				_, _ = io.Copy(io.Discard, tr)
				continue
			}
			return fmt.Errorf("bundle: unknown entry: %s", name)
		}

		id, derr := cid.Decode(strings.TrimPrefix(name, "blocks/"))
		if derr != nil || !id.Defined() {
			return storage.ErrInvalidCID
		}

		payload, rerr := io.ReadAll(tr)
		if rerr != nil {
			return rerr
		}
		got, herr := cidutil.Sum(payload)
		if herr != nil {
			return herr
		}
		if got != id {
			return storage.ErrCIDMismatch
		}

		if _, dup := seen[id.String()]; dup {
			return fmt.Errorf("bundle: duplicate block entry: %s", id)
		}
		seen[id.String()] = struct{}{}

		putID, perr := cas.Put(payload)
		if perr != nil {
			return perr
		}
		if putID != id {
			return storage.ErrCIDMismatch
		}
	}
}

// lz4FrameMagic is the little-endian frame magic 0x184D2204.
var lz4FrameMagic = []byte{0x04, 0x22, 0x4D, 0x18}

func sniffLZ4(r io.Reader) (io.Reader, bool, error) {
	head := make([]byte, 4)
	n, err := io.ReadFull(r, head)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return bytes.NewReader(head[:n]), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	joined := io.MultiReader(bytes.NewReader(head), r)
	return joined, bytes.Equal(head, lz4FrameMagic), nil
}

func writeFile(tw *tar.Writer, name string, b []byte) error {
	// Normalized header: zero times, fixed mode and ownership, so the same
	// inputs always produce the same bytes.
	h := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(b)),
		Typeflag: tar.TypeReg,
		Format:   tar.FormatUSTAR,
	}
	if err := tw.WriteHeader(h); err != nil {
		return err
	}
	_, err := tw.Write(b)
	return err
}

func cleanTarPath(p string) string {
	p = strings.TrimPrefix(p, "./")
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "..") {
		return ""
	}
	return p
}
