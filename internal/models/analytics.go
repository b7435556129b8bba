package models

import "time"

// MaxEventNameLength ограничивает длину имени события.
const MaxEventNameLength = 64

// AnalyticsEvent - событие аналитики воронки.
type AnalyticsEvent struct {
	SessionID  string    `json:"session_id"`
	EventName  string    `json:"event_name"`
	Source     string    `json:"source"`
	OccurredAt time.Time `json:"occurred_at"`
}
