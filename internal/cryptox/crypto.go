// Package cryptox provides the hashing primitives behind the audit trail's
// tamper evidence and the content fingerprints of selected files.
package cryptox

import (
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// DigestSize is the length in bytes of every digest returned here.
const DigestSize = blake2b.Size256

// ChainDigest links payload to the digest of the previous link. The first
// link of a chain passes a nil prev. The length prefix keeps (prev, payload)
// boundaries unambiguous.
func ChainDigest(prev, payload []byte) []byte {
	h, _ := blake2b.New256(nil)

	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(prev)))
	h.Write(n[:])
	h.Write(prev)
	h.Write(payload)

	return h.Sum(nil)
}

// VerifyLink reports whether digest is the ChainDigest of (prev, payload).
func VerifyLink(prev, payload, digest []byte) bool {
	return subtle.ConstantTimeCompare(ChainDigest(prev, payload), digest) == 1
}

// Fingerprint returns the hex blake2b-256 digest of data.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
