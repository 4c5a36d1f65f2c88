// Package privacy provides the secret-redaction primitives used across gitzen.
//
// Raw secret material enters the system exactly once, at the ingestion
// boundary, where it is reduced to a SHA-256 digest. Every outbound path
// (API responses, log records, error messages) passes through the redaction
// and sanitization functions in this package as a last line of defense.
//
// All functions here are pure and safe for concurrent use; compiled rule
// sets are immutable after construction.
package privacy
