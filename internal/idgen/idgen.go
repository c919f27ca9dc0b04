// Package idgen generates short, content-derived hex identifiers for
// Intents and Events. Adapted from the teacher's base36 issue-hash scheme
// (internal/idgen/hash.go): a stable content hash over the fields that
// make an entity unique, salted with a nonce to resolve collisions,
// retargeted here to the ~12-char hex IDs spec §3 calls for.
package idgen

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultLength is the default ID length in hex characters.
const DefaultLength = 12

// IntentID derives a content-addressed Intent ID from its defining fields.
// nonce should be incremented by the caller on a collision retry.
func IntentID(source, target, createdBy string, createdAt time.Time, nonce int) string {
	content := fmt.Sprintf("intent|%s|%s|%s|%d|%d", source, target, createdBy, createdAt.UnixNano(), nonce)
	return hashHex(content, DefaultLength)
}

// EventID derives a content-addressed Event ID. Events carry a monotonic
// sequence number from the store in addition to the nonce, so that
// two events appended in the same nanosecond still get distinct IDs.
func EventID(traceID string, seq int64, nonce int) string {
	content := fmt.Sprintf("event|%s|%d|%d", traceID, seq, nonce)
	return hashHex(content, DefaultLength)
}

// ReviewID derives a content-addressed ReviewTask ID.
func ReviewID(intentID, reason string, requestedAt time.Time, nonce int) string {
	content := fmt.Sprintf("review|%s|%s|%d|%d", intentID, reason, requestedAt.UnixNano(), nonce)
	return hashHex(content, DefaultLength)
}

// TraceID generates a fresh trace ID shared by every event one validate()
// invocation emits (spec §4.9). Unlike Intent/Event/ReviewTask IDs, a trace
// ID has no content to hash against — it names one transient pipeline run,
// not a stored entity — so it's a random UUIDv4 rather than a content hash.
func TraceID() string {
	return uuid.New().String()
}

func hashHex(content string, length int) string {
	sum := sha256.Sum256([]byte(content))
	enc := hex.EncodeToString(sum[:])
	if length > len(enc) {
		length = len(enc)
	}
	return enc[:length]
}
