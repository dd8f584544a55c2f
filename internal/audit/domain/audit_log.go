package domain

import "time"

// Entry is one audit record. Metadata is a JSON object or empty.
type Entry struct {
	ID        string
	OrgID     string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}

// Login actions written by the OTP flow.
const (
	ActionLoginCodeRequested = "login_code_requested"
	ActionLoginCodeThrottled = "login_code_throttled"
	ActionLoginSuccess       = "login_success"
	ActionLoginFailure       = "login_failure"
)

// ResourceAuth is the resource for login events.
const ResourceAuth = "authentication"
