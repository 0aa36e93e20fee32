// Package kdf defines the vocabulary, models and contracts for building the mechanism parameters of the
// NIST SP 800-108 counter-mode key derivation function, as consumed by a PKCS#11 token interface.
//
// The package is pure data: the PRF data segment catalog, the PrfDataParam carrier, the native struct
// layout rules (CK_ULONG width, pointer width, packing) and the contracts for the native memory service
// and the token-side derive call. The native parameter block itself lives in the cryptography
// infrastructure package.
package kdf
