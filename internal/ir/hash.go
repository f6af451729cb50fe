package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed digests.
// Version suffix enables future algorithm migration.
const (
	DomainDispatch = "aiir/dispatch/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// AuditDigest identifies an accepted dispatch by content: the same op,
// procedure and arguments always produce the same digest. Request ids and
// timestamps are excluded so replays of one request collapse to one digest.
func AuditDigest(opID, procID uint32, args []Value) (string, error) {
	if args == nil {
		args = []Value{}
	}
	obj := map[string]any{
		"op_id":   opID,
		"proc_id": procID,
		"args":    args,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("AuditDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDispatch, canonical), nil
}

// MustAuditDigest is like AuditDigest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustAuditDigest(opID, procID uint32, args []Value) string {
	d, err := AuditDigest(opID, procID, args)
	if err != nil {
		panic(err)
	}
	return d
}
