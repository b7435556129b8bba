package handler

import "sats-terminal/internal/models"

type syncUserRequest struct {
	Token string `json:"token"`
}

type syncUserResponse struct {
	Level                int    `json:"level"`
	XP                   int    `json:"xp"`
	CurrentModuleID      string `json:"currentModuleId"`
	CurrentStepIndex     int    `json:"currentStepIndex"`
	TotalSats            int    `json:"totalSats"`
	IndependenceProgress int    `json:"independenceProgress"`
}

func newSyncUserResponse(u *models.User) syncUserResponse {
	return syncUserResponse{
		Level:                u.Level,
		XP:                   u.XP,
		CurrentModuleID:      u.CurrentModuleID,
		CurrentStepIndex:     u.CurrentStepIndex,
		TotalSats:            u.TotalSats,
		IndependenceProgress: u.IndependenceProgress,
	}
}

type saveProgressRequest struct {
	Token                string `json:"token"`
	CurrentModuleID      string `json:"currentModuleId"`
	CurrentStepIndex     int    `json:"currentStepIndex"`
	TotalSats            int    `json:"totalSats"`
	IndependenceProgress int    `json:"independenceProgress"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type grantSkillRequest struct {
	Token    string `json:"token"`
	SkillKey string `json:"skillKey"`
}

type grantSkillResponse struct {
	Granted bool              `json:"granted"`
	Skill   *models.UserSkill `json:"skill,omitempty"`
}

type createSessionRequest struct {
	NodeID string `json:"nodeId"`
}

type sessionActionRequest struct {
	ActionID   string `json:"actionId"`
	ScoreDelta int    `json:"scoreDelta"`
	NextStepID string `json:"nextStepId"`
}

type trackRequest struct {
	SessionID string `json:"session_id"`
	EventName string `json:"event_name"`
	Source    string `json:"source"`
}
