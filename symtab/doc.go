// Package symtab models the symbol-renaming table applied to a vendored native
// library so that multiple statically linked copies of the library do not
// produce duplicate-symbol link errors.
//
// A table maps each canonical symbol name to exactly one exported name per
// platform class. Two rule kinds exist:
//
//   - prefix rules rename a canonical name to a version-qualified form,
//     e.g. CRYPTO_memcmp -> ring_core_0_17_14__CRYPTO_memcmp;
//   - alias rules rename a legacy assembly entry point to a fixed internal
//     name, e.g. ecp_nistz256_mul_mont -> p256_mul_mont.
//
// The mapping is static, total, and injective within each platform class.
// Violations are reported as structured errors at table construction time;
// nothing in this package has a runtime failure mode beyond that.
package symtab
