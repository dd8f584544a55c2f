// Package domain defines the auth event published to the event stream and OTel logs.
package domain

import (
	"encoding/json"
	"time"
)

// Event types.
const (
	TypeOTPRequested = "otp_requested"
	TypeOTPThrottled = "otp_throttled"
	TypeOTPVerified  = "otp_verified"
	TypeOTPFailed    = "otp_failed"
	TypeGRPCRequest  = "grpc_request"
)

// Event is one auth or request event. It is serialized as JSON on the wire; emails are never
// included.
type Event struct {
	ID        string          `json:"id"`
	OrgID     string          `json:"orgId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	EventType string          `json:"eventType"`
	Source    string          `json:"source"`
	Outcome   string          `json:"outcome,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
