package repository

import (
	"context"

	"sats-terminal/internal/models"

	"github.com/google/uuid"
)

// UserRepository хранит пользователей, идентифицированных токеном устройства.
type UserRepository interface {
	// GetOrCreate возвращает пользователя по токену, создавая его при первом обращении.
	GetOrCreate(ctx context.Context, token string) (user *models.User, created bool, err error)
	// UpsertProgress перезаписывает зеркало прогресса (last write wins).
	UpsertProgress(ctx context.Context, update models.ProgressUpdate, level, xp int) (*models.User, error)
}

// SkillRepository хранит выданные навыки.
type SkillRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.UserSkill, error)
	// Grant выдает навык. granted=false, если навык уже был выдан ранее.
	Grant(ctx context.Context, userID uuid.UUID, skillKey string) (skill *models.UserSkill, granted bool, err error)
}

// SessionRepository хранит сессии вводного квиза.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	// ApplyAction атомарно применяет переход и пишет его в историю.
	ApplyAction(ctx context.Context, id uuid.UUID, action models.SessionAction) (*models.Session, error)
}

// AnalyticsRepository хранит события аналитики.
type AnalyticsRepository interface {
	Insert(ctx context.Context, event models.AnalyticsEvent) error
}

// TrackDeduplicator отсекает повторы одного события в коротком окне (двойные нажатия).
type TrackDeduplicator interface {
	// FirstSeen возвращает true, если событие не встречалось в текущем окне.
	FirstSeen(ctx context.Context, event models.AnalyticsEvent) (bool, error)
}
