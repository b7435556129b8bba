package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus - статус сессии вводного квиза.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
)

// DefaultSessionNode - узел, с которого начинается сессия, если клиент его не указал.
const DefaultSessionNode = "quiz_intro"

// Session - учет прохождения вводного квиза.
type Session struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	NodeID        string        `db:"node_id" json:"nodeId"`
	CurrentStepID string        `db:"current_step_id" json:"currentStepId"`
	Score         int           `db:"score" json:"score"`
	Status        SessionStatus `db:"status" json:"status"`
	CreatedAt     time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updatedAt"`
}

// SessionAction - переход квиза от шага к шагу.
type SessionAction struct {
	ActionID   string
	ScoreDelta int
	NextStepID string
}
