package model

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RefPrefix namespaces every correlation ref this service hands to the
// payment gateway.
const RefPrefix = "LIK"

const ulidLen = 26 // ulid.EncodedSize

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewReference builds the gateway-facing correlation ref for an order:
// RefPrefix + orderID + "-" + ULID. The ULID carries a millisecond
// timestamp and monotonic entropy, so two refs are distinct even for the
// same order in the same millisecond. The separator plus the fixed-length
// ULID suffix keep the orderID recoverable no matter what characters it
// contains.
func NewReference(orderID string) string {
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	entropyMu.Unlock()
	return RefPrefix + orderID + "-" + id.String()
}

// OrderIDFromReference extracts the orderID embedded in a ref. The
// authoritative ref -> orderID resolution is the Correlation Store's
// reverse mapping; this exists as a sanity check for logs and forged-ref
// triage. Returns "" when the ref does not have the expected shape.
func OrderIDFromReference(ref string) string {
	if !strings.HasPrefix(ref, RefPrefix) {
		return ""
	}
	rest := ref[len(RefPrefix):]
	// orderID is everything before the fixed-length ULID and its separator.
	if len(rest) < ulidLen+2 || rest[len(rest)-ulidLen-1] != '-' {
		return ""
	}
	if _, err := ulid.ParseStrict(rest[len(rest)-ulidLen:]); err != nil {
		return ""
	}
	return rest[:len(rest)-ulidLen-1]
}
