package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/ipfs/go-cid"

	"xdao.co/symprefix/cidutil"
	"xdao.co/symprefix/emit"
	"xdao.co/symprefix/keys"
	"xdao.co/symprefix/manifest"
	"xdao.co/symprefix/objscan"
	"xdao.co/symprefix/storage"
	"xdao.co/symprefix/storage/bundle"
	"xdao.co/symprefix/storage/cachegrpc"
	"xdao.co/symprefix/storage/localfs"
	"xdao.co/symprefix/symtab"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "gen":
		return cmdGen(args[1:], out, errOut)
	case "check":
		return cmdCheck(args[1:], out, errOut)
	case "symbols":
		return cmdSymbols(args[1:], out, errOut)
	case "manifest":
		return cmdManifest(args[1:], out, errOut)
	case "cache":
		return cmdCache(args[1:], out, errOut)
	case "bundle":
		return cmdBundle(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "xdao-symprefix: symbol-prefix header generation toolkit")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  xdao-symprefix gen --symbols <file> --library <name> --version <v> --out <dir> [--manifest <file>] [--seed-hex <64hex>] [--hash-alg sha256|sha512|sha3-256]")
	fmt.Fprintln(w, "  xdao-symprefix check --symbols <file> --library <name> --version <v> --out <dir>")
	fmt.Fprintln(w, "  xdao-symprefix symbols [--format elf|macho|pe] [--out FILE] ARCHIVE [ARCHIVE ...]")
	fmt.Fprintln(w, "  xdao-symprefix manifest cid <file>")
	fmt.Fprintln(w, "  xdao-symprefix manifest verify <file>")
	fmt.Fprintln(w, "  xdao-symprefix cache put (--dir <root> | --remote <addr>) <file>")
	fmt.Fprintln(w, "  xdao-symprefix cache get (--dir <root> | --remote <addr>) <CID>")
	fmt.Fprintln(w, "  xdao-symprefix bundle export --dir <root> --out <file> [--lz4] [CID ...]")
	fmt.Fprintln(w, "  xdao-symprefix bundle import --dir <root> <file>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - gen writes prefix_symbols.h, prefix_symbols_asm.h, prefix_symbols_nasm.inc")
	fmt.Fprintln(w, "  - --seed-hex must be 32 bytes (64 hex chars) ed25519 seed; the manifest purpose-scoped key is derived from it")
	fmt.Fprintln(w, "  - check exits non-zero when outputs on disk drift from the symbol list")
	fmt.Fprintln(w, "  - symbols scans .a archives and prints one canonical name per line")
	fmt.Fprintln(w, "  - cache get writes the artifact bytes to stdout")
	fmt.Fprintln(w, "  - bundle export with no CIDs exports the whole cache")
}

func loadTable(fs *flag.FlagSet, errOut io.Writer, symbols, library, version string) (*symtab.Table, bool) {
	if symbols == "" || library == "" || version == "" {
		fmt.Fprintln(errOut, "--symbols, --library, and --version are required")
		fs.Usage()
		return nil, false
	}
	tab, err := symtab.LoadSymbolList(symbols, library, version)
	if err != nil {
		fmt.Fprintf(errOut, "symbol list: %v\n", err)
		return nil, false
	}
	return tab, true
}

func cmdGen(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("gen", flag.ContinueOnError)
	fs.SetOutput(errOut)
	symbols := fs.String("symbols", "", "symbol list file")
	library := fs.String("library", "", "library base name, e.g. ring_core")
	version := fs.String("version", "", "library version, e.g. 0.17.14")
	outDir := fs.String("out", ".", "output directory")
	manifestPath := fs.String("manifest", "", "write a signed generation manifest to this path")
	seedHex := fs.String("seed-hex", "", "ed25519 root seed (64 hex chars) for manifest signing")
	hashAlg := fs.String("hash-alg", "sha256", "manifest digest algorithm")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	tab, ok := loadTable(fs, errOut, *symbols, *library, *version)
	if !ok {
		return 2
	}

	files, err := emit.Headers(tab)
	if err != nil {
		fmt.Fprintf(errOut, "render: %v\n", err)
		return 1
	}
	if err := emit.WriteFiles(*outDir, files); err != nil {
		fmt.Fprintf(errOut, "write outputs: %v\n", err)
		return 1
	}
	for _, f := range files {
		fmt.Fprintf(out, "%s %s\n", cidutil.SumString(f.Data), filepath.Join(*outDir, f.Name))
	}

	if *manifestPath == "" {
		return 0
	}
	if *seedHex == "" {
		fmt.Fprintln(errOut, "--manifest requires --seed-hex")
		return 2
	}
	rootSeed, err := hex.DecodeString(*seedHex)
	if err != nil || len(rootSeed) != ed25519.SeedSize {
		fmt.Fprintln(errOut, "--seed-hex must be 64 hex chars (32 bytes)")
		return 2
	}
	seed, err := keys.DeriveSigningSeed(rootSeed, tab.Library)
	if err != nil {
		fmt.Fprintf(errOut, "derive signing seed: %v\n", err)
		return 1
	}

	doc, err := manifest.Build(tab, files)
	if err != nil {
		fmt.Fprintf(errOut, "manifest: %v\n", err)
		return 1
	}
	signed, err := manifest.SignEd25519(doc, *hashAlg, ed25519.NewKeyFromSeed(seed))
	if err != nil {
		fmt.Fprintf(errOut, "sign manifest: %v\n", err)
		return 1
	}
	if err := os.WriteFile(*manifestPath, signed, 0o644); err != nil {
		fmt.Fprintf(errOut, "write manifest: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "%s %s\n", cidutil.SumString(signed), *manifestPath)
	return 0
}

func cmdCheck(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(errOut)
	symbols := fs.String("symbols", "", "symbol list file")
	library := fs.String("library", "", "library base name")
	version := fs.String("version", "", "library version")
	outDir := fs.String("out", ".", "directory holding generated outputs")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	tab, ok := loadTable(fs, errOut, *symbols, *library, *version)
	if !ok {
		return 2
	}
	if err := emit.Check(*outDir, tab); err != nil {
		fmt.Fprintf(errOut, "check: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, "ok")
	return 0
}

func cmdSymbols(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("symbols", flag.ContinueOnError)
	fs.SetOutput(errOut)
	format := fs.String("format", string(objscan.DefaultFormat(runtime.GOOS)), "object file format (elf, macho, pe)")
	outPath := fs.String("out", "-", "file to write the symbol list")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(errOut, "usage: xdao-symprefix symbols [--format FORMAT] [--out FILE] ARCHIVE [ARCHIVE ...]")
		return 2
	}

	names, err := objscan.Scan(fs.Args(), objscan.Options{Format: objscan.Format(*format)})
	if err != nil {
		fmt.Fprintf(errOut, "scan: %v\n", err)
		return 1
	}

	w := out
	if *outPath != "-" {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintf(errOut, "create %s: %v\n", *outPath, err)
			return 1
		}
		defer f.Close()
		w = f
	}
	for _, n := range names {
		fmt.Fprintln(w, n)
	}
	return 0
}

func cmdManifest(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: xdao-symprefix manifest <cid|verify> <file>")
		return 2
	}
	sub, rest := args[0], args[1:]
	if len(rest) != 1 {
		fmt.Fprintf(errOut, "usage: xdao-symprefix manifest %s <file>\n", sub)
		return 2
	}
	b, err := os.ReadFile(rest[0])
	if err != nil {
		fmt.Fprintf(errOut, "read manifest: %v\n", err)
		return 1
	}
	m, err := manifest.Parse(b)
	if err != nil {
		fmt.Fprintf(errOut, "invalid manifest: %v\n", err)
		return 1
	}

	switch sub {
	case "cid":
		fmt.Fprintln(out, m.CID())
		return 0
	case "verify":
		if err := manifest.ValidateCore(m); err != nil {
			fmt.Fprintf(errOut, "invalid manifest: %v\n", err)
			return 1
		}
		if err := m.Verify(); err != nil {
			fmt.Fprintf(errOut, "verification failed: %v\n", err)
			return 1
		}
		fmt.Fprintf(out, "ok %s (%s %s)\n", m.CID(), m.LibraryName(), m.LibraryVersion())
		return 0
	default:
		fmt.Fprintf(errOut, "unknown manifest subcommand: %s\n", sub)
		return 2
	}
}

func openCache(dir, remote string, errOut io.Writer) (storage.CAS, func(), bool) {
	switch {
	case dir != "" && remote != "":
		fmt.Fprintln(errOut, "--dir and --remote are mutually exclusive")
		return nil, nil, false
	case dir != "":
		c, err := localfs.New(dir)
		if err != nil {
			fmt.Fprintf(errOut, "open cache: %v\n", err)
			return nil, nil, false
		}
		return c, func() {}, true
	case remote != "":
		c, err := cachegrpc.Dial(remote, cachegrpc.DialOptions{})
		if err != nil {
			fmt.Fprintf(errOut, "dial cache: %v\n", err)
			return nil, nil, false
		}
		return c, func() { _ = c.Close() }, true
	default:
		fmt.Fprintln(errOut, "one of --dir or --remote is required")
		return nil, nil, false
	}
}

func cmdCache(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: xdao-symprefix cache <put|get|has> ...")
		return 2
	}
	sub := args[0]
	fs := flag.NewFlagSet("cache "+sub, flag.ContinueOnError)
	fs.SetOutput(errOut)
	dir := fs.String("dir", "", "local cache root")
	remote := fs.String("remote", "", "cache daemon address")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(errOut, "usage: xdao-symprefix cache %s (--dir <root> | --remote <addr>) <arg>\n", sub)
		return 2
	}

	cache, closeFn, ok := openCache(*dir, *remote, errOut)
	if !ok {
		return 2
	}
	defer closeFn()

	switch sub {
	case "put":
		b, err := os.ReadFile(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(errOut, "read: %v\n", err)
			return 1
		}
		id, err := cache.Put(b)
		if err != nil {
			fmt.Fprintf(errOut, "put: %v\n", err)
			return 1
		}
		fmt.Fprintln(out, id.String())
		return 0
	case "get":
		id, err := cid.Decode(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(errOut, "invalid CID: %v\n", err)
			return 2
		}
		b, err := cache.Get(id)
		if err != nil {
			fmt.Fprintf(errOut, "get: %v\n", err)
			return 1
		}
		_, _ = out.Write(b)
		return 0
	case "has":
		id, err := cid.Decode(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(errOut, "invalid CID: %v\n", err)
			return 2
		}
		if !cache.Has(id) {
			return 1
		}
		fmt.Fprintln(out, "true")
		return 0
	default:
		fmt.Fprintf(errOut, "unknown cache subcommand: %s\n", sub)
		return 2
	}
}

func cmdBundle(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: xdao-symprefix bundle <export|import> ...")
		return 2
	}
	sub := args[0]
	fs := flag.NewFlagSet("bundle "+sub, flag.ContinueOnError)
	fs.SetOutput(errOut)
	dir := fs.String("dir", "", "local cache root")
	outPath := fs.String("out", "", "bundle output path (export)")
	compress := fs.Bool("lz4", false, "lz4-compress the bundle (export)")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if *dir == "" {
		fmt.Fprintln(errOut, "--dir is required")
		return 2
	}
	cache, err := localfs.New(*dir)
	if err != nil {
		fmt.Fprintf(errOut, "open cache: %v\n", err)
		return 1
	}

	switch sub {
	case "export":
		if *outPath == "" {
			fmt.Fprintln(errOut, "--out is required")
			return 2
		}
		var ids []cid.Cid
		if fs.NArg() == 0 {
			ids, err = cache.List()
			if err != nil {
				fmt.Fprintf(errOut, "list cache: %v\n", err)
				return 1
			}
		} else {
			for _, arg := range fs.Args() {
				id, derr := cid.Decode(arg)
				if derr != nil {
					fmt.Fprintf(errOut, "invalid CID %q: %v\n", arg, derr)
					return 2
				}
				ids = append(ids, id)
			}
		}
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintf(errOut, "create %s: %v\n", *outPath, err)
			return 1
		}
		defer f.Close()
		if err := bundle.Export(f, cache, ids, bundle.ExportOptions{IncludeIndex: true, Compress: *compress}); err != nil {
			fmt.Fprintf(errOut, "export: %v\n", err)
			return 1
		}
		fmt.Fprintf(out, "exported %d blocks to %s\n", len(ids), *outPath)
		return 0
	case "import":
		if fs.NArg() != 1 {
			fmt.Fprintln(errOut, "usage: xdao-symprefix bundle import --dir <root> <file>")
			return 2
		}
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(errOut, "open bundle: %v\n", err)
			return 1
		}
		defer f.Close()
		if err := bundle.Import(f, cache); err != nil {
			fmt.Fprintf(errOut, "import: %v\n", err)
			return 1
		}
		fmt.Fprintln(out, "ok")
		return 0
	default:
		fmt.Fprintf(errOut, "unknown bundle subcommand: %s\n", sub)
		return 2
	}
}
