package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const symbolList = `# curated canonical names
ecp_nistz256_mul_mont -> p256_mul_mont
CRYPTO_memcmp
ChaCha20_ctr32
p256_mul_mont
`

func writeSymbolList(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "symbols.txt")
	if err := os.WriteFile(path, []byte(symbolList), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestGenCheckManifestFlow(t *testing.T) {
	symbols := writeSymbolList(t)
	outDir := t.TempDir()
	manifestPath := filepath.Join(outDir, "generation.spm")
	seedHex := strings.Repeat("ab", 32)

	code, stdout, stderr := runCLI(t,
		"gen",
		"--symbols", symbols,
		"--library", "ring_core",
		"--version", "0.17.14",
		"--out", outDir,
		"--manifest", manifestPath,
		"--seed-hex", seedHex,
	)
	if code != 0 {
		t.Fatalf("gen exited %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "prefix_symbols_asm.h") {
		t.Fatalf("gen output missing asm header: %s", stdout)
	}

	asm, err := os.ReadFile(filepath.Join(outDir, "prefix_symbols_asm.h"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	for _, want := range []string{
		"#define _CRYPTO_memcmp _ring_core_0_17_14__CRYPTO_memcmp\n",
		"#define CRYPTO_memcmp ring_core_0_17_14__CRYPTO_memcmp\n",
		"#define ecp_nistz256_mul_mont p256_mul_mont\n",
	} {
		if !strings.Contains(string(asm), want) {
			t.Errorf("asm header missing %q", want)
		}
	}

	code, _, stderr = runCLI(t,
		"check",
		"--symbols", symbols,
		"--library", "ring_core",
		"--version", "0.17.14",
		"--out", outDir,
	)
	if code != 0 {
		t.Fatalf("check exited %d: %s", code, stderr)
	}

	code, stdout, stderr = runCLI(t, "manifest", "verify", manifestPath)
	if code != 0 {
		t.Fatalf("manifest verify exited %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "ring_core 0.17.14") {
		t.Fatalf("unexpected verify output: %s", stdout)
	}

	// Drift one output and confirm check fails.
	if err := os.WriteFile(filepath.Join(outDir, "prefix_symbols.h"), []byte("// drift\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	code, _, _ = runCLI(t,
		"check",
		"--symbols", symbols,
		"--library", "ring_core",
		"--version", "0.17.14",
		"--out", outDir,
	)
	if code == 0 {
		t.Fatal("check must fail on drifted outputs")
	}
}

func TestCacheFlow(t *testing.T) {
	dir := t.TempDir()
	payload := filepath.Join(dir, "artifact.h")
	if err := os.WriteFile(payload, []byte("#define a b\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cacheDir := filepath.Join(dir, "cache")
	code, stdout, stderr := runCLI(t, "cache", "put", "--dir", cacheDir, payload)
	if code != 0 {
		t.Fatalf("cache put exited %d: %s", code, stderr)
	}
	id := strings.TrimSpace(stdout)

	code, stdout, stderr = runCLI(t, "cache", "get", "--dir", cacheDir, id)
	if code != 0 {
		t.Fatalf("cache get exited %d: %s", code, stderr)
	}
	if stdout != "#define a b\n" {
		t.Fatalf("cache get returned %q", stdout)
	}

	bundlePath := filepath.Join(dir, "artifacts.tar.lz4")
	code, _, stderr = runCLI(t, "bundle", "export", "--dir", cacheDir, "--out", bundlePath, "--lz4")
	if code != 0 {
		t.Fatalf("bundle export exited %d: %s", code, stderr)
	}

	otherDir := filepath.Join(dir, "cache2")
	code, _, stderr = runCLI(t, "bundle", "import", "--dir", otherDir, bundlePath)
	if code != 0 {
		t.Fatalf("bundle import exited %d: %s", code, stderr)
	}
	code, stdout, _ = runCLI(t, "cache", "get", "--dir", otherDir, id)
	if code != 0 || stdout != "#define a b\n" {
		t.Fatalf("imported cache missing artifact (code=%d, out=%q)", code, stdout)
	}
}

func TestUnknownCommand(t *testing.T) {
	code, _, stderr := runCLI(t, "frobnicate")
	if code != 2 {
		t.Fatalf("exit code %d", code)
	}
	if !strings.Contains(stderr, "unknown command") {
		t.Fatalf("stderr: %s", stderr)
	}
}
