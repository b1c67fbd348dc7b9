// Package hashing implements content-addressing for VCS objects: framing a
// typed payload into the on-disk header form and hashing that framed form.
package hashing

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"cellvcs/internal/errors"
)

// Size is the raw byte length of a Hash.
const Size = sha1.Size // 20

// Hash is a content hash, always rendered as 40 lowercase hex characters.
type Hash [Size]byte

// Zero reports whether h is the zero hash (used as a sentinel for "no hash").
func (h Hash) Zero() bool {
	return h == Hash{}
}

// String renders h as lowercase hex.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// ParseHash decodes a 40-character lowercase hex string into a Hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	if len(s) != Size*2 {
		return h, fmt.Errorf("hashing: invalid hash length %d, want %d", len(s), Size*2)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("hashing: invalid hash encoding: %w", err)
	}
	copy(h[:], b)
	return h, nil
}

// FrameAndHash builds the on-disk header "<type> <len>\0<payload>" and
// returns both the framed bytes and their hash. objType must be non-empty.
func FrameAndHash(objType string, payload []byte) ([]byte, Hash, error) {
	if objType == "" {
		return nil, Hash{}, errors.InvalidInput("hashing: empty object type")
	}

	header := fmt.Sprintf("%s %d\x00", objType, len(payload))
	framed := make([]byte, 0, len(header)+len(payload))
	framed = append(framed, header...)
	framed = append(framed, payload...)

	sum := sha1.Sum(framed)
	return framed, Hash(sum), nil
}
