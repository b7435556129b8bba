package bridge

import (
	"context"
	"time"

	"github.com/google/uuid"

	"sats-terminal/internal/models"
	"sats-terminal/internal/state"
)

// Store is the local key-value storage.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// UserProgress is what the backend remembers about a device token.
type UserProgress struct {
	Level                int
	XP                   int
	CurrentModuleID      string
	CurrentStepIndex     int
	TotalSats            int
	IndependenceProgress int
}

// TrackEvent is one analytics event.
type TrackEvent struct {
	SessionID string
	EventName string
	Source    string
}

// Backend is the remote progress mirror.
type Backend interface {
	SyncUser(ctx context.Context, token string) (*UserProgress, error)
	SaveProgress(ctx context.Context, token string, summary state.Summary) error
	GrantSkill(ctx context.Context, token, skillKey string) (granted bool, err error)
	Track(ctx context.Context, event TrackEvent) error
	ListSkills(ctx context.Context, token string) ([]models.UserSkill, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID() string
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type uuidGenerator struct{}

func (uuidGenerator) NewID() string { return uuid.NewString() }
