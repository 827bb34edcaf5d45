// Package audit emits security-relevant lifecycle events (best-effort) to a
// Kafka topic; a worker drains the topic into Loki.
package audit

import "time"

// Event types recorded by the session lifecycle.
const (
	EventRegister       = "register"
	EventLogin          = "login"
	EventLoginFailure   = "login_failure"
	EventRotate         = "rotate"
	EventRevoke         = "revoke"
	EventRevokeAll      = "revoke_all"
	EventBreachDetected = "breach_detected"
	EventAccountDeleted = "account_deleted"
)

// Event is a single security event. SubjectID and SessionID may be empty
// (e.g. login_failure for an unknown email).
type Event struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subjectId,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
	EventType string    `json:"eventType"`
	Source    string    `json:"source"`
	IP        string    `json:"ip,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
