package bridge

import (
	"context"

	"go.uber.org/zap"

	"sats-terminal/internal/state"
)

// ResumeSource says where the starting state came from.
type ResumeSource string

const (
	ResumeFresh   ResumeSource = "fresh"
	ResumeWallet  ResumeSource = "wallet"
	ResumeBlock   ResumeSource = "block"
	ResumeBackend ResumeSource = "backend"
)

// Resume is the outcome of startup resolution. Snapshot is nil for a
// fresh start.
type Resume struct {
	Source   ResumeSource
	Snapshot *state.Snapshot
}

// Resolve picks the starting state: the local wallet snapshot, then a local
// block snapshot past block 0, then the backend summary (seeded into local
// storage), then a fresh start.
func (b *Bridge) Resolve(ctx context.Context) Resume {
	if snap := b.LoadWallet(); snap != nil {
		b.logger.Info("Resuming wallet flow", zap.String("step", snap.WalletStepID))
		return Resume{Source: ResumeWallet, Snapshot: snap}
	}

	local := b.LoadLocal()
	if local != nil && local.BlockIndex > 0 {
		b.logger.Info("Resuming block", zap.Int("block", local.BlockIndex))
		return Resume{Source: ResumeBlock, Snapshot: local}
	}
	if local != nil || b.backend == nil {
		return Resume{Source: ResumeFresh}
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	remote, err := b.backend.SyncUser(ctx, b.DeviceToken())
	if err != nil {
		b.logger.Warn("Backend sync failed, starting fresh", zap.Error(err))
		return Resume{Source: ResumeFresh}
	}
	if remote == nil || remote.IndependenceProgress <= 0 {
		return Resume{Source: ResumeFresh}
	}

	snap := b.fromRemote(remote)
	b.Save(*snap)
	b.logger.Info("Seeded local state from backend",
		zap.String("module", remote.CurrentModuleID),
		zap.Int("step", remote.CurrentStepIndex),
	)
	return Resume{Source: ResumeBackend, Snapshot: snap}
}

func (b *Bridge) fromRemote(remote *UserProgress) *state.Snapshot {
	last := max(len(b.sc.Blocks)-1, 0)
	snap := &state.Snapshot{
		BlockIndex:  min(max(remote.CurrentStepIndex, 0), last),
		RewardTotal: state.ClampReward(remote.TotalSats),
		Progress:    state.ClampProgress(remote.IndependenceProgress),
		SavedAt:     b.clock.Now(),
	}
	if remote.CurrentModuleID == state.ModuleWallet {
		if step, ok := b.sc.WalletStepAt(remote.CurrentStepIndex); ok {
			snap.WalletMode = true
			snap.WalletStepID = step.ID
			snap.BlockIndex = last
		}
	}
	return snap
}
