// Package callctx carries the per-call execution context: who is
// calling, when, and how much native currency is attached. The gateway
// fills it from transport metadata; the ledger never reaches around it.
package callctx

import (
	"strconv"
	"strings"
	"time"
)

// Call is the execution context for one ledger operation.
type Call struct {
	Caller string    // caller address as supplied by the transport
	Coins  uint64    // attached payment in minor units
	Now    time.Time // call timestamp
}

// CallerLower returns the caller address normalized for use as a storage
// key component. Storage and retrieval must agree on this end to end.
func (c Call) CallerLower() string {
	return strings.ToLower(c.Caller)
}

// TimestampString returns the call timestamp in the stored wire form,
// milliseconds since epoch.
func (c Call) TimestampString() string {
	return strconv.FormatInt(c.Now.UnixMilli(), 10)
}
