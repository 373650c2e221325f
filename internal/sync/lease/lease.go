// Package lease grants at-most-one in-flight sync per application.
//
// A lease is acquired before a sync attempt starts and released when the
// attempt completes or fails. The TTL bounds how long a crashed holder can
// block the next attempt. Release is token-checked so a holder whose lease
// expired and was re-acquired cannot free the new holder's lease.
package lease

import "errors"

// ErrLeaseLost is returned by Release when the lease is no longer held under
// the given token: it expired and may have been re-acquired. The sync attempt
// already ran; callers log the loss rather than failing the attempt.
var ErrLeaseLost = errors.New("sync lease lost")
