package types

import "time"

// Account lifecycle event types.
const (
	EventAccountRegistered = "account.registered"
	EventAccountApproved   = "account.approved"
	EventAccountUpdated    = "account.updated"
	EventAccountDeleted    = "account.deleted"
)

// AccountEvent is published on the broker whenever an account changes state.
type AccountEvent struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`

	// Type is one of the EventAccount* constants.
	Type string `json:"type"`

	AccountID  int64  `json:"accountId"`
	ExternalID string `json:"keycloakId"`
	Email      string `json:"email"`

	// OccurredAt is when the change was committed locally.
	OccurredAt time.Time `json:"occurredAt"`
}
