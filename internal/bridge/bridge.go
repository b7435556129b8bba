// Package bridge persists the progression state locally and mirrors a
// reduced summary to the backend on a best-effort basis.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"sats-terminal/internal/script"
	"sats-terminal/internal/state"
)

// Keys of the local store.
const (
	KeyDeviceToken      = "device_token"
	KeyWalletSnapshot   = "wallet_snapshot"
	KeyProgressSnapshot = "progress_snapshot"
	KeyTranscript       = "transcript"
	KeySatsClaimed      = "sats_claimed"
	KeyLanguage         = "ui_language"
)

// TrackSource tags analytics events sent from the terminal.
const TrackSource = "terminal"

const defaultCallTimeout = 5 * time.Second

// Options tune a Bridge. Zero values pick defaults.
type Options struct {
	Clock       Clock
	IDs         IDGenerator
	CallTimeout time.Duration
}

// Bridge is the single writer of the local store. Storage and network
// failures are logged and never returned to the engine. Store access
// happens on the caller's goroutine; only backend calls run in the
// background.
type Bridge struct {
	store   Store
	backend Backend
	sc      *script.Script
	clock   Clock
	ids     IDGenerator
	timeout time.Duration
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	tokenMu sync.Mutex
	token   string
}

// New creates a bridge. backend may be nil when running offline.
func New(ctx context.Context, store Store, backend Backend, sc *script.Script, logger *zap.Logger, opts Options) *Bridge {
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	if opts.IDs == nil {
		opts.IDs = uuidGenerator{}
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Bridge{
		store:   store,
		backend: backend,
		sc:      sc,
		clock:   opts.Clock,
		ids:     opts.IDs,
		timeout: opts.CallTimeout,
		logger:  logger.Named("bridge"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Close cancels in-flight backend calls and waits for them to return.
func (b *Bridge) Close() {
	b.cancel()
	b.wg.Wait()
}

// DeviceToken returns the stable per-device token, creating it on first use.
func (b *Bridge) DeviceToken() string {
	b.tokenMu.Lock()
	defer b.tokenMu.Unlock()
	if b.token != "" {
		return b.token
	}
	if v, ok, err := b.store.Get(b.ctx, KeyDeviceToken); err == nil && ok && v != "" {
		b.token = v
		return v
	}
	b.token = b.ids.NewID()
	b.set(KeyDeviceToken, b.token)
	b.logger.Info("Device token created")
	return b.token
}

// Save writes the block snapshot and the transcript. In wallet mode the
// wallet snapshot is written as well.
func (b *Bridge) Save(snap state.Snapshot) {
	if snap.SavedAt.IsZero() {
		snap.SavedAt = b.clock.Now()
	}
	b.setJSON(KeyProgressSnapshot, snap)
	b.setJSON(KeyTranscript, transcript(snap.Messages))
	if snap.WalletMode {
		b.setJSON(KeyWalletSnapshot, snap)
	}
}

// SaveWallet writes the wallet snapshot right away so a deep-link round
// trip can resume at the current step.
func (b *Bridge) SaveWallet(snap state.Snapshot) {
	if snap.SavedAt.IsZero() {
		snap.SavedAt = b.clock.Now()
	}
	b.setJSON(KeyWalletSnapshot, snap)
}

// LoadLocal returns the block snapshot with its transcript, or nil.
func (b *Bridge) LoadLocal() *state.Snapshot {
	return b.load(KeyProgressSnapshot)
}

// LoadWallet returns the wallet snapshot with its transcript, or nil.
func (b *Bridge) LoadWallet() *state.Snapshot {
	snap := b.load(KeyWalletSnapshot)
	if snap == nil || !snap.WalletMode {
		return nil
	}
	return snap
}

func (b *Bridge) load(key string) *state.Snapshot {
	var snap state.Snapshot
	if !b.getJSON(key, &snap) {
		return nil
	}
	// an empty transcript loads as nil, the same as a fresh engine
	var msgs transcript
	if b.getJSON(KeyTranscript, &msgs) && len(msgs) > 0 {
		snap.Messages = msgs
	}
	return &snap
}

// ClearTranscript drops the persisted transcript. The wallet snapshot goes
// with it: a cleared transcript means the run starts over.
func (b *Bridge) ClearTranscript() {
	b.del(KeyTranscript)
	b.del(KeyWalletSnapshot)
}

func (b *Bridge) MarkSatsClaimed() {
	b.set(KeySatsClaimed, "true")
}

func (b *Bridge) SatsClaimed() bool {
	v, ok, err := b.store.Get(b.ctx, KeySatsClaimed)
	return err == nil && ok && v == "true"
}

func (b *Bridge) ResetClaim() {
	b.del(KeySatsClaimed)
}

// Language returns the stored UI language or "".
func (b *Bridge) Language() string {
	v, ok, err := b.store.Get(b.ctx, KeyLanguage)
	if err != nil || !ok {
		return ""
	}
	return v
}

func (b *Bridge) SetLanguage(lang string) {
	b.set(KeyLanguage, lang)
}

// Mirror sends the reduced summary to the backend in the background.
func (b *Bridge) Mirror(summary state.Summary) {
	token := b.DeviceToken()
	b.spawn("save_progress", func(ctx context.Context) error {
		return b.backend.SaveProgress(ctx, token, summary)
	})
}

// GrantSkill grants a skill in the background. An already owned skill is
// not an error.
func (b *Bridge) GrantSkill(key string) {
	token := b.DeviceToken()
	b.spawn("grant_skill", func(ctx context.Context) error {
		granted, err := b.backend.GrantSkill(ctx, token, key)
		if err != nil {
			return err
		}
		b.logger.Debug("Skill grant mirrored", zap.String("skillKey", key), zap.Bool("granted", granted))
		return nil
	})
}

// EarnedSkills lists the skill keys the backend holds for this device.
// It blocks for at most the call timeout and returns nil when offline or
// on failure.
func (b *Bridge) EarnedSkills(ctx context.Context) []string {
	if b.backend == nil {
		return nil
	}
	token := b.DeviceToken()
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	skills, err := b.backend.ListSkills(ctx, token)
	if err != nil {
		b.logger.Warn("Failed to list skills", zap.Error(err))
		return nil
	}
	keys := make([]string, 0, len(skills))
	for _, s := range skills {
		keys = append(keys, s.SkillKey)
	}
	return keys
}

// Track sends an analytics event in the background.
func (b *Bridge) Track(event string) {
	ev := TrackEvent{SessionID: b.DeviceToken(), EventName: event, Source: TrackSource}
	b.spawn("track", func(ctx context.Context) error {
		return b.backend.Track(ctx, ev)
	})
}

func (b *Bridge) spawn(op string, call func(ctx context.Context) error) {
	if b.backend == nil || b.ctx.Err() != nil {
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(b.ctx, b.timeout)
		defer cancel()
		if err := call(ctx); err != nil && !errors.Is(err, context.Canceled) {
			b.logger.Warn("Backend mirror failed", zap.String("op", op), zap.Error(err))
		}
	}()
}

func (b *Bridge) set(key, value string) {
	if err := b.store.Set(b.ctx, key, value); err != nil {
		b.logger.Warn("Failed to write local state", zap.String("key", key), zap.Error(err))
	}
}

func (b *Bridge) del(key string) {
	if err := b.store.Delete(b.ctx, key); err != nil {
		b.logger.Warn("Failed to delete local state", zap.String("key", key), zap.Error(err))
	}
}

func (b *Bridge) setJSON(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		b.logger.Error("Failed to encode local state", zap.String("key", key), zap.Error(err))
		return
	}
	b.set(key, string(data))
}

// getJSON reports false on a missing key, a read error or malformed JSON.
func (b *Bridge) getJSON(key string, v any) bool {
	raw, ok, err := b.store.Get(b.ctx, key)
	if err != nil {
		b.logger.Warn("Failed to read local state", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		b.logger.Warn("Malformed local state ignored", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// transcript keeps an empty transcript encoded as [] rather than null.
type transcript []state.Message

func (t transcript) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]state.Message(t))
}
