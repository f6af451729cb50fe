// Package ir provides the runtime argument values handed to the dispatcher.
//
// This package contains value types only; it imports nothing internal so
// every layer can depend on it.
//
// Key design constraints:
//   - Value is sealed: Null, Bool, Number and String are the only variants
//   - Numbers carry their integrality, computed once at construction
//   - Text is decoded only at the boundary (DecodeArgs); the dispatcher
//     never parses
//   - Canonical JSON (RFC 8785 ordering, NFC strings) is the only encoding
//     used for audit digests
package ir
