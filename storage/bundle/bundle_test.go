package bundle

import (
	"archive/tar"
	"bytes"
	"errors"
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/symprefix/storage"
	"xdao.co/symprefix/storage/localfs"
)

func seedCache(t *testing.T) (*localfs.Cache, []cid.Cid) {
	t.Helper()
	cache, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New: %v", err)
	}
	var ids []cid.Cid
	for _, payload := range []string{
		"#define CRYPTO_memcmp ring_core_0_17_14__CRYPTO_memcmp\n",
		"%define CRYPTO_memcmp ring_core_0_17_14__CRYPTO_memcmp\n",
	} {
		id, err := cache.Put([]byte(payload))
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		ids = append(ids, id)
	}
	return cache, ids
}

func TestExportDeterministic(t *testing.T) {
	cache, ids := seedCache(t)

	render := func(compress bool) []byte {
		var buf bytes.Buffer
		err := Export(&buf, cache, ids, ExportOptions{IncludeIndex: true, Compress: compress})
		if err != nil {
			t.Fatalf("Export: %v", err)
		}
		return buf.Bytes()
	}

	if !bytes.Equal(render(false), render(false)) {
		t.Fatal("plain export not deterministic")
	}
	if !bytes.Equal(render(true), render(true)) {
		t.Fatal("compressed export not deterministic")
	}

	// Reversed input order must not change the bytes.
	var buf bytes.Buffer
	rev := []cid.Cid{ids[1], ids[0]}
	if err := Export(&buf, cache, rev, ExportOptions{IncludeIndex: true}); err != nil {
		t.Fatalf("Export reversed: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), render(false)) {
		t.Fatal("export depends on input order")
	}
}

func TestRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		src, ids := seedCache(t)

		var buf bytes.Buffer
		if err := Export(&buf, src, ids, ExportOptions{IncludeIndex: true, Compress: compress}); err != nil {
			t.Fatalf("Export(compress=%v): %v", compress, err)
		}

		dst, err := localfs.New(t.TempDir())
		if err != nil {
			t.Fatalf("localfs.New: %v", err)
		}
		if err := Import(&buf, dst); err != nil {
			t.Fatalf("Import(compress=%v): %v", compress, err)
		}

		for _, id := range ids {
			want, err := src.Get(id)
			if err != nil {
				t.Fatalf("src.Get: %v", err)
			}
			got, err := dst.Get(id)
			if err != nil {
				t.Fatalf("dst.Get(compress=%v): %v", compress, err)
			}
			if !bytes.Equal(got, want) {
				t.Fatalf("block %s corrupted in transit", id)
			}
		}
	}
}

func TestImportRejectsUnknownEntry(t *testing.T) {
	src, ids := seedCache(t)
	payload, err := src.Get(ids[0])
	if err != nil {
		t.Fatalf("src.Get: %v", err)
	}

	// Hand-build a bundle with a foreign entry alongside one valid block.
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := writeFile(tw, "attack/readme.txt", []byte("not a block")); err != nil {
		t.Fatalf("writeFile: %v", err)
	}
	if err := writeFile(tw, "blocks/"+ids[0].String(), payload); err != nil {
		t.Fatalf("writeFile: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	raw := buf.Bytes()

	dst, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New: %v", err)
	}
	if err := Import(bytes.NewReader(raw), dst); err == nil {
		t.Fatal("expected import failure for unknown entry")
	}
	if err := ImportWithOptions(bytes.NewReader(raw), dst, ImportOptions{IgnoreUnknown: true}); err != nil {
		t.Fatalf("ImportWithOptions: %v", err)
	}
	if !dst.Has(ids[0]) {
		t.Fatal("valid block not imported")
	}
}

func TestImportRejectsMislabeledBlock(t *testing.T) {
	src, ids := seedCache(t)
	payload, err := src.Get(ids[0])
	if err != nil {
		t.Fatalf("src.Get: %v", err)
	}

	// Store the block's bytes under a different block's CID.
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := writeFile(tw, "blocks/"+ids[1].String(), payload); err != nil {
		t.Fatalf("writeFile: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}

	dst, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New: %v", err)
	}
	if err := Import(&buf, dst); !errors.Is(err, storage.ErrCIDMismatch) {
		t.Fatalf("expected ErrCIDMismatch, got %v", err)
	}
}
