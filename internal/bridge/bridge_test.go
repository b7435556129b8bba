package bridge_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"sats-terminal/internal/bridge"
	bridgeMocks "sats-terminal/internal/bridge/mocks"
	"sats-terminal/internal/kvstore"
	"sats-terminal/internal/models"
	"sats-terminal/internal/script"
	"sats-terminal/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fixedClock struct{}

func (fixedClock) Now() time.Time { return fixedNow }

type seqIDs struct{ n int }

func (s *seqIDs) NewID() string {
	s.n++
	return "device-" + string(rune('0'+s.n))
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk gone")
}
func (brokenStore) Set(context.Context, string, string) error { return errors.New("disk gone") }
func (brokenStore) Delete(context.Context, string) error      { return errors.New("disk gone") }

func loadScript(t *testing.T) *script.Script {
	t.Helper()
	sc, err := script.Load("en")
	require.NoError(t, err)
	return sc
}

func newBridge(t *testing.T, store bridge.Store, backend bridge.Backend) *bridge.Bridge {
	t.Helper()
	b := bridge.New(context.Background(), store, backend, loadScript(t), zap.NewNop(), bridge.Options{
		Clock: fixedClock{},
		IDs:   &seqIDs{},
	})
	t.Cleanup(b.Close)
	return b
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	store := kvstore.NewMemory()
	b := newBridge(t, store, nil)

	snap := state.Snapshot{
		BlockIndex:  3,
		RewardTotal: 400,
		Progress:    44,
		Messages: []state.Message{
			{Text: "Bitcoin has a fixed supply", Sender: state.SenderVoice},
			{Text: "Fixed supply. Got it.", Sender: state.SenderUser},
		},
		SavedAt: fixedNow,
	}
	b.Save(snap)

	got := b.LoadLocal()
	require.NotNil(t, got)
	assert.Equal(t, snap, *got)
	assert.Nil(t, b.LoadWallet(), "block snapshot outside wallet mode writes no wallet snapshot")
}

func TestSaveLoad_EmptyTranscriptRoundTrip(t *testing.T) {
	b := newBridge(t, kvstore.NewMemory(), nil)

	snap := state.Snapshot{BlockIndex: 1, RewardTotal: 100, Progress: 21, SavedAt: fixedNow}
	b.Save(snap)
	got := b.LoadLocal()
	require.NotNil(t, got)
	assert.Equal(t, snap, *got)

	wallet := state.Snapshot{BlockIndex: 7, WalletMode: true, WalletStepID: "step_1", RewardTotal: 1000, Progress: 100, SavedAt: fixedNow}
	b.Save(wallet)
	gotWallet := b.LoadWallet()
	require.NotNil(t, gotWallet)
	assert.Equal(t, wallet, *gotWallet)
}

func TestSave_WalletModeWritesBothSnapshots(t *testing.T) {
	b := newBridge(t, kvstore.NewMemory(), nil)

	snap := state.Snapshot{BlockIndex: 7, WalletMode: true, WalletStepID: "step_3", RewardTotal: 1000, Progress: 100}
	b.Save(snap)

	wallet := b.LoadWallet()
	require.NotNil(t, wallet)
	assert.Equal(t, "step_3", wallet.WalletStepID)
	assert.Equal(t, fixedNow, wallet.SavedAt)
	assert.Empty(t, wallet.Messages)

	local := b.LoadLocal()
	require.NotNil(t, local)
	assert.True(t, local.WalletMode)
}

func TestLoad_MalformedJSONIsNil(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	require.NoError(t, store.Set(ctx, bridge.KeyProgressSnapshot, "{not json"))
	require.NoError(t, store.Set(ctx, bridge.KeyWalletSnapshot, `{"walletMode":false}`))

	b := newBridge(t, store, nil)
	assert.Nil(t, b.LoadLocal())
	assert.Nil(t, b.LoadWallet())
}

func TestStorageFailuresAreSwallowed(t *testing.T) {
	b := newBridge(t, brokenStore{}, nil)

	assert.NotPanics(t, func() {
		b.Save(state.Snapshot{BlockIndex: 1})
		b.SaveWallet(state.Snapshot{WalletMode: true})
		b.ClearTranscript()
		b.MarkSatsClaimed()
	})
	assert.Nil(t, b.LoadLocal())
	assert.False(t, b.SatsClaimed())
	assert.NotEmpty(t, b.DeviceToken())
}

func TestDeviceToken_CreatedOnce(t *testing.T) {
	store := kvstore.NewMemory()
	first := newBridge(t, store, nil).DeviceToken()

	other := bridge.New(context.Background(), store, nil, loadScript(t), zap.NewNop(), bridge.Options{IDs: &seqIDs{n: 5}})
	defer other.Close()
	second := other.DeviceToken()

	assert.Equal(t, "device-1", first)
	assert.Equal(t, first, second)
}

func TestClaimAndTranscript(t *testing.T) {
	b := newBridge(t, kvstore.NewMemory(), nil)

	assert.False(t, b.SatsClaimed())
	b.MarkSatsClaimed()
	b.MarkSatsClaimed()
	assert.True(t, b.SatsClaimed())
	b.ResetClaim()
	assert.False(t, b.SatsClaimed())

	b.Save(state.Snapshot{BlockIndex: 7, WalletMode: true, WalletStepID: "step_2", Messages: []state.Message{{Text: "hi", Sender: state.SenderUser}}})
	b.ClearTranscript()
	assert.Nil(t, b.LoadWallet())
	local := b.LoadLocal()
	require.NotNil(t, local)
	assert.Empty(t, local.Messages)

	b.SetLanguage("ru")
	assert.Equal(t, "ru", b.Language())
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("Wallet snapshot wins", func(t *testing.T) {
		backend := new(bridgeMocks.Backend)
		b := newBridge(t, kvstore.NewMemory(), backend)
		b.Save(state.Snapshot{BlockIndex: 5, Progress: 67})
		b.SaveWallet(state.Snapshot{BlockIndex: 7, WalletMode: true, WalletStepID: "step_3", RewardTotal: 1000, Progress: 100})

		r := b.Resolve(ctx)
		assert.Equal(t, bridge.ResumeWallet, r.Source)
		require.NotNil(t, r.Snapshot)
		assert.Equal(t, "step_3", r.Snapshot.WalletStepID)
		backend.AssertNotCalled(t, "SyncUser", mock.Anything, mock.Anything)
	})

	t.Run("Block snapshot past the first block", func(t *testing.T) {
		backend := new(bridgeMocks.Backend)
		b := newBridge(t, kvstore.NewMemory(), backend)
		b.Save(state.Snapshot{BlockIndex: 2, RewardTotal: 250, Progress: 32})

		r := b.Resolve(ctx)
		assert.Equal(t, bridge.ResumeBlock, r.Source)
		assert.Equal(t, 2, r.Snapshot.BlockIndex)
		backend.AssertNotCalled(t, "SyncUser", mock.Anything, mock.Anything)
	})

	t.Run("Local snapshot at block zero starts fresh without the backend", func(t *testing.T) {
		backend := new(bridgeMocks.Backend)
		b := newBridge(t, kvstore.NewMemory(), backend)
		b.Save(state.Snapshot{BlockIndex: 0})

		r := b.Resolve(ctx)
		assert.Equal(t, bridge.ResumeFresh, r.Source)
		assert.Nil(t, r.Snapshot)
		backend.AssertNotCalled(t, "SyncUser", mock.Anything, mock.Anything)
	})

	t.Run("Backend progress seeds local storage", func(t *testing.T) {
		backend := new(bridgeMocks.Backend)
		b := newBridge(t, kvstore.NewMemory(), backend)
		backend.On("SyncUser", mock.Anything, "device-1").Return(&bridge.UserProgress{
			CurrentModuleID:      state.ModuleTerminal,
			CurrentStepIndex:     4,
			TotalSats:            600,
			IndependenceProgress: 55,
		}, nil).Once()

		r := b.Resolve(ctx)
		assert.Equal(t, bridge.ResumeBackend, r.Source)
		require.NotNil(t, r.Snapshot)
		assert.Equal(t, 4, r.Snapshot.BlockIndex)
		assert.Equal(t, 600, r.Snapshot.RewardTotal)
		assert.Equal(t, 55, r.Snapshot.Progress)

		local := b.LoadLocal()
		require.NotNil(t, local)
		assert.Equal(t, 4, local.BlockIndex)
		backend.AssertExpectations(t)
	})

	t.Run("Backend wallet progress maps to the step", func(t *testing.T) {
		backend := new(bridgeMocks.Backend)
		b := newBridge(t, kvstore.NewMemory(), backend)
		backend.On("SyncUser", mock.Anything, "device-1").Return(&bridge.UserProgress{
			CurrentModuleID:      state.ModuleWallet,
			CurrentStepIndex:     1,
			TotalSats:            5000,
			IndependenceProgress: 100,
		}, nil).Once()

		r := b.Resolve(ctx)
		require.NotNil(t, r.Snapshot)
		assert.True(t, r.Snapshot.WalletMode)
		assert.Equal(t, "step_2", r.Snapshot.WalletStepID)
		assert.Equal(t, 7, r.Snapshot.BlockIndex)
		assert.Equal(t, state.MaxReward, r.Snapshot.RewardTotal)
		assert.NotNil(t, b.LoadWallet())
	})

	t.Run("Backend failure or zero progress starts fresh", func(t *testing.T) {
		for _, tc := range []struct {
			progress *bridge.UserProgress
			err      error
		}{
			{nil, errors.New("connection refused")},
			{&bridge.UserProgress{IndependenceProgress: 0}, nil},
		} {
			backend := new(bridgeMocks.Backend)
			b := newBridge(t, kvstore.NewMemory(), backend)
			backend.On("SyncUser", mock.Anything, "device-1").Return(tc.progress, tc.err).Once()

			r := b.Resolve(ctx)
			assert.Equal(t, bridge.ResumeFresh, r.Source)
			assert.Nil(t, r.Snapshot)
			assert.Nil(t, b.LoadLocal())
		}
	})
}

func TestMirrorSkillTrack_RunInBackground(t *testing.T) {
	backend := new(bridgeMocks.Backend)
	b := bridge.New(context.Background(), kvstore.NewMemory(), backend, loadScript(t), zap.NewNop(), bridge.Options{
		Clock: fixedClock{},
		IDs:   &seqIDs{},
	})

	summary := state.Summary{ModuleID: state.ModuleTerminal, StepIndex: 1, RewardTotal: 100, Progress: 21}
	backend.On("SaveProgress", mock.Anything, "device-1", summary).Return(errors.New("offline")).Once()
	backend.On("GrantSkill", mock.Anything, "device-1", "WILL_TO_FREEDOM").Return(false, nil).Once()
	backend.On("Track", mock.Anything, bridge.TrackEvent{
		SessionID: "device-1",
		EventName: "wallet_flow_started",
		Source:    bridge.TrackSource,
	}).Return(nil).Once()

	b.Mirror(summary)
	b.GrantSkill("WILL_TO_FREEDOM")
	b.Track("wallet_flow_started")
	b.Close()

	backend.AssertExpectations(t)

	b.Mirror(summary)
	backend.AssertNumberOfCalls(t, "SaveProgress", 1)
}

func TestEarnedSkills(t *testing.T) {
	ctx := context.Background()

	t.Run("Lists keys", func(t *testing.T) {
		backend := new(bridgeMocks.Backend)
		b := newBridge(t, kvstore.NewMemory(), backend)
		backend.On("ListSkills", mock.Anything, "device-1").Return([]models.UserSkill{
			{SkillKey: "WILL_TO_FREEDOM", GrantedAt: fixedNow},
			{SkillKey: "SCARCITY", GrantedAt: fixedNow},
		}, nil).Once()

		assert.Equal(t, []string{"WILL_TO_FREEDOM", "SCARCITY"}, b.EarnedSkills(ctx))
		backend.AssertExpectations(t)
	})

	t.Run("Failure is nil", func(t *testing.T) {
		backend := new(bridgeMocks.Backend)
		b := newBridge(t, kvstore.NewMemory(), backend)
		backend.On("ListSkills", mock.Anything, "device-1").Return(nil, errors.New("offline")).Once()

		assert.Nil(t, b.EarnedSkills(ctx))
	})

	t.Run("Offline", func(t *testing.T) {
		b := newBridge(t, kvstore.NewMemory(), nil)
		assert.Nil(t, b.EarnedSkills(ctx))
	})
}
