// Package keys provides the signing helpers used to attest generation
// manifests.
//
// Stable:
//   - Pure, deterministic primitives for issuer-key formatting, digest
//     selection, and purpose-scoped seed derivation.
//
// Experimental:
//   - Post-quantum (dilithium3) signing; the manifest format carries the
//     algorithm name, so rotating schemes does not break parsing.
package keys
