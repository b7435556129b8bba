package repository

import (
	"context"
	"errors"
	"fmt"

	"sats-terminal/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// TxDB - пул, умеющий открывать транзакции.
type TxDB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

var _ SessionRepository = (*pgSessionRepository)(nil)

type pgSessionRepository struct {
	db     TxDB
	logger *zap.Logger
}

// NewPgSessionRepository создает репозиторий сессий квиза.
func NewPgSessionRepository(db TxDB, logger *zap.Logger) SessionRepository {
	return &pgSessionRepository{
		db:     db,
		logger: logger.Named("PgSessionRepo"),
	}
}

const sessionColumns = `id, node_id, current_step_id, score, status, created_at, updated_at`

const createSessionQuery = `
INSERT INTO sessions (id, node_id, current_step_id, score, status)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at, updated_at`

const getSessionQuery = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

const lockSessionQuery = getSessionQuery + ` FOR UPDATE`

const updateSessionQuery = `
UPDATE sessions
SET current_step_id = $2, score = $3, status = $4, updated_at = NOW()
WHERE id = $1
RETURNING ` + sessionColumns

const insertSessionActionQuery = `
INSERT INTO session_actions (session_id, action_id, score_delta, from_step_id, next_step_id)
VALUES ($1, $2, $3, $4, $5)`

func (r *pgSessionRepository) Create(ctx context.Context, session *models.Session) error {
	err := r.db.QueryRow(ctx, createSessionQuery,
		session.ID, session.NodeID, session.CurrentStepID, session.Score, session.Status,
	).Scan(&session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create session", zap.Stringer("sessionID", session.ID), zap.Error(err))
		return err
	}
	return nil
}

func (r *pgSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	session := &models.Session{}
	if err := pgxscan.Get(ctx, r.db, session, getSessionQuery, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrSessionNotFound
		}
		r.logger.Error("Failed to get session", zap.Stringer("sessionID", id), zap.Error(err))
		return nil, err
	}
	return session, nil
}

func (r *pgSessionRepository) ApplyAction(ctx context.Context, id uuid.UUID, action models.SessionAction) (session *models.Session, err error) {
	logFields := []zap.Field{zap.Stringer("sessionID", id), zap.String("actionID", action.ActionID)}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				r.logger.Error("Failed to rollback session action", append(logFields, zap.Error(rbErr))...)
			}
		}
	}()

	current := &models.Session{}
	if err = pgxscan.Get(ctx, tx, current, lockSessionQuery, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrSessionNotFound
		}
		return nil, err
	}
	if current.Status == models.SessionStatusCompleted {
		err = models.ErrSessionCompleted
		return nil, err
	}

	status := models.SessionStatusActive
	nextStep := action.NextStepID
	if nextStep == "" {
		status = models.SessionStatusCompleted
		nextStep = current.CurrentStepID
	}

	session = &models.Session{}
	if err = pgxscan.Get(ctx, tx, session, updateSessionQuery, id, nextStep, current.Score+action.ScoreDelta, status); err != nil {
		r.logger.Error("Failed to update session", append(logFields, zap.Error(err))...)
		return nil, err
	}
	if _, err = tx.Exec(ctx, insertSessionActionQuery, id, action.ActionID, action.ScoreDelta, current.CurrentStepID, action.NextStepID); err != nil {
		r.logger.Error("Failed to record session action", append(logFields, zap.Error(err))...)
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit session action: %w", err)
	}
	r.logger.Debug("Session action applied", append(logFields, zap.String("status", string(session.Status)))...)
	return session, nil
}
