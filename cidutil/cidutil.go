// Package cidutil computes the content identifiers used throughout this repo.
//
// All artifacts (generated headers, manifests, bundles) are identified by a
// CIDv1 with the "raw" multicodec over a sha2-256 multihash of the exact bytes.
package cidutil

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Sum returns the CIDv1 (raw + sha2-256) for data.
func Sum(data []byte) (cid.Cid, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// SumString returns the CIDv1 string for data, or "" if hashing fails.
// multihash.Sum with SHA2_256 and default length does not fail in practice.
func SumString(data []byte) string {
	id, err := Sum(data)
	if err != nil {
		return ""
	}
	return id.String()
}
