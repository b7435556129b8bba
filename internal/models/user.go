package models

import (
	"time"

	"github.com/google/uuid"
)

// Модули, которые клиент сообщает в зеркале прогресса.
const (
	ModuleTerminal = "freedom_terminal"
	ModuleWallet   = "wallet_setup"
)

// MaxIndependenceProgress - верхняя граница шкалы независимости.
const MaxIndependenceProgress = 100

// User - запись пользователя, найденная (или лениво созданная) по токену устройства.
type User struct {
	ID                   uuid.UUID `db:"id" json:"id"`
	Token                string    `db:"token" json:"-"`
	Level                int       `db:"level" json:"level"`
	XP                   int       `db:"xp" json:"xp"`
	CurrentModuleID      string    `db:"current_module_id" json:"currentModuleId"`
	CurrentStepIndex     int       `db:"current_step_index" json:"currentStepIndex"`
	TotalSats            int       `db:"total_sats" json:"totalSats"`
	IndependenceProgress int       `db:"independence_progress" json:"independenceProgress"`
	CreatedAt            time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time `db:"updated_at" json:"updatedAt"`
}

// ProgressUpdate - сокращенное зеркало клиентского прогресса.
// Последняя запись побеждает, согласование между устройствами не выполняется.
type ProgressUpdate struct {
	Token                string
	CurrentModuleID      string
	CurrentStepIndex     int
	TotalSats            int
	IndependenceProgress int
}

// LevelForXP вычисляет уровень по накопленному опыту.
// Порог уровня n: 100*n + 25*n*(n-1).
func LevelForXP(xp int) int {
	if xp <= 0 {
		return 1
	}
	level := 1
	for level < 100 {
		next := 100*level + (50*level*(level-1))/2
		if xp < next {
			break
		}
		level++
	}
	return level
}
