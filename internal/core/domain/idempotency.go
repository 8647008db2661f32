package domain

import "strconv"

// BuildCheckoutReplayKey scopes a client Idempotency-Key to the buyer and
// family so two users cannot collide on the same header value.
func BuildCheckoutReplayKey(family ProductFamily, userID int64, clientKey string) string {
	return string(family) + ":" + strconv.FormatInt(userID, 10) + ":" + clientKey
}
