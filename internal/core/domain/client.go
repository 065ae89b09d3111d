package domain

import "time"

// Client represents an account holder.
//
// Blocked is a denormalized cache maintained by the block coordinator: it is
// kept equal to the OR of the client's account block flags and must never be
// treated as the source of truth for "is this client blocked" reads. Use
// EffectivelyBlocked for that.
type Client struct {
	ClientID  string    `json:"clientID"` // Primary Key (UUID)
	FullName  string    `json:"fullName"`
	JobTitle  string    `json:"jobTitle"` // Nullable
	Blocked   bool      `json:"blocked"`
	CreatedAt time.Time `json:"createdAt"`
}

// EffectivelyBlocked reports whether the client is blocked, either explicitly
// or through any of the given accounts. The accounts slice must contain the
// client's registered accounts; the function never queries for them itself.
func EffectivelyBlocked(client Client, accounts []Account) bool {
	if client.Blocked {
		return true
	}
	for _, account := range accounts {
		if account.Blocked {
			return true
		}
	}
	return false
}
