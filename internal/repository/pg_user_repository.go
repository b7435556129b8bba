package repository

import (
	"context"
	"errors"

	"sats-terminal/internal/database"
	"sats-terminal/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var _ UserRepository = (*pgUserRepository)(nil)

type pgUserRepository struct {
	db     database.DBTX
	logger *zap.Logger
}

// NewPgUserRepository создает репозиторий пользователей.
func NewPgUserRepository(db database.DBTX, logger *zap.Logger) UserRepository {
	return &pgUserRepository{
		db:     db,
		logger: logger.Named("PgUserRepo"),
	}
}

const userColumns = `id, token, level, xp, current_module_id, current_step_index, total_sats, independence_progress, created_at, updated_at`

// xmax = 0 только у строки, вставленной этим же запросом.
const getOrCreateUserQuery = `
INSERT INTO users (id, token)
VALUES ($1, $2)
ON CONFLICT (token) DO UPDATE SET token = EXCLUDED.token
RETURNING ` + userColumns + `, (xmax = 0) AS inserted`

const upsertProgressQuery = `
INSERT INTO users (id, token, level, xp, current_module_id, current_step_index, total_sats, independence_progress)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (token) DO UPDATE SET
    level = EXCLUDED.level,
    xp = EXCLUDED.xp,
    current_module_id = EXCLUDED.current_module_id,
    current_step_index = EXCLUDED.current_step_index,
    total_sats = EXCLUDED.total_sats,
    independence_progress = EXCLUDED.independence_progress,
    updated_at = NOW()
RETURNING ` + userColumns

type userRow struct {
	models.User
	Inserted bool `db:"inserted"`
}

func (r *pgUserRepository) GetOrCreate(ctx context.Context, token string) (*models.User, bool, error) {
	var row userRow
	if err := pgxscan.Get(ctx, r.db, &row, getOrCreateUserQuery, uuid.New(), token); err != nil {
		r.logger.Error("Failed to get or create user", zap.Error(err))
		return nil, false, err
	}
	if row.Inserted {
		r.logger.Info("User created", zap.Stringer("userID", row.ID))
	}
	return &row.User, row.Inserted, nil
}

func (r *pgUserRepository) UpsertProgress(ctx context.Context, update models.ProgressUpdate, level, xp int) (*models.User, error) {
	logFields := []zap.Field{
		zap.String("module", update.CurrentModuleID),
		zap.Int("step", update.CurrentStepIndex),
		zap.Int("sats", update.TotalSats),
		zap.Int("progress", update.IndependenceProgress),
	}
	user := &models.User{}
	err := pgxscan.Get(ctx, r.db, user, upsertProgressQuery,
		uuid.New(), update.Token, level, xp,
		update.CurrentModuleID, update.CurrentStepIndex, update.TotalSats, update.IndependenceProgress,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to upsert progress", append(logFields, zap.Error(err))...)
		return nil, err
	}
	r.logger.Debug("Progress saved", append(logFields, zap.Stringer("userID", user.ID))...)
	return user, nil
}
