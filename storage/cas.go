// Package storage defines the content-addressed artifact cache shared by the
// CLI and the cache daemon. Generated headers and manifests are immutable and
// keyed strictly by CID, so any backend that honors the contract can serve a
// build farm.
package storage

import "github.com/ipfs/go-cid"

// CAS is a minimal content-addressable store.
//
// Contract:
//   - Put MUST be idempotent.
//   - Stored objects MUST be immutable.
//   - CIDs MUST be derived from the bytes written.
//   - Get MUST return ErrNotFound when the CID is absent.
type CAS interface {
	Put(bytes []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}

// Lister is implemented by backends that can enumerate their contents,
// e.g. for bundle export.
type Lister interface {
	List() ([]cid.Cid, error)
}
