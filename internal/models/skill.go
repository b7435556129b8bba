package models

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// MaxSkillKeyLength ограничивает длину ключа навыка.
const MaxSkillKeyLength = 64

var skillKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// UserSkill - выданный пользователю навык. Один ключ выдается не более одного раза.
type UserSkill struct {
	UserID    uuid.UUID `db:"user_id" json:"-"`
	SkillKey  string    `db:"skill_key" json:"skillKey"`
	GrantedAt time.Time `db:"granted_at" json:"grantedAt"`
}

// ValidSkillKey проверяет формат ключа (UPPER_SNAKE).
func ValidSkillKey(key string) bool {
	return len(key) <= MaxSkillKeyLength && skillKeyPattern.MatchString(key)
}
