package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Fingerprint hashes subject, sender address and received time truncated to
// the second. Each part is length-prefixed so that no two distinct triples
// can produce the same byte stream.
func Fingerprint(subject, sender string, receivedAt time.Time) string {
	h := sha256.New()
	parts := []string{
		strings.TrimSpace(subject),
		strings.ToLower(strings.TrimSpace(sender)),
		strconv.FormatInt(receivedAt.Unix(), 10),
	}
	var prefix [binary.MaxVarintLen64]byte
	for _, p := range parts {
		n := binary.PutUvarint(prefix[:], uint64(len(p)))
		h.Write(prefix[:n])
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
