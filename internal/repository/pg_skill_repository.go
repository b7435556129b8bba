package repository

import (
	"context"
	"errors"
	"fmt"

	"sats-terminal/internal/database"
	"sats-terminal/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var _ SkillRepository = (*pgSkillRepository)(nil)

type pgSkillRepository struct {
	db     database.DBTX
	logger *zap.Logger
}

// NewPgSkillRepository создает репозиторий навыков.
func NewPgSkillRepository(db database.DBTX, logger *zap.Logger) SkillRepository {
	return &pgSkillRepository{
		db:     db,
		logger: logger.Named("PgSkillRepo"),
	}
}

const listSkillsQuery = `
SELECT user_id, skill_key, granted_at
FROM user_skills
WHERE user_id = $1
ORDER BY granted_at, skill_key`

const grantSkillQuery = `
INSERT INTO user_skills (user_id, skill_key)
VALUES ($1, $2)
ON CONFLICT (user_id, skill_key) DO NOTHING
RETURNING user_id, skill_key, granted_at`

const getSkillQuery = `
SELECT user_id, skill_key, granted_at
FROM user_skills
WHERE user_id = $1 AND skill_key = $2`

func (r *pgSkillRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.UserSkill, error) {
	skills := make([]models.UserSkill, 0)
	if err := pgxscan.Select(ctx, r.db, &skills, listSkillsQuery, userID); err != nil {
		r.logger.Error("Failed to list skills", zap.Stringer("userID", userID), zap.Error(err))
		return nil, err
	}
	return skills, nil
}

func (r *pgSkillRepository) Grant(ctx context.Context, userID uuid.UUID, skillKey string) (*models.UserSkill, bool, error) {
	logFields := []zap.Field{zap.Stringer("userID", userID), zap.String("skillKey", skillKey)}

	skill := &models.UserSkill{}
	err := pgxscan.Get(ctx, r.db, skill, grantSkillQuery, userID, skillKey)
	if err == nil {
		r.logger.Info("Skill granted", logFields...)
		return skill, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("Failed to grant skill", append(logFields, zap.Error(err))...)
		return nil, false, err
	}

	// ON CONFLICT DO NOTHING не возвращает строку: навык уже есть
	if err := pgxscan.Get(ctx, r.db, skill, getSkillQuery, userID, skillKey); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, fmt.Errorf("skill %s vanished after conflict: %w", skillKey, models.ErrNotFound)
		}
		r.logger.Error("Failed to load existing skill", append(logFields, zap.Error(err))...)
		return nil, false, err
	}
	r.logger.Debug("Skill already granted", logFields...)
	return skill, false, nil
}
