package progression

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sats-terminal/internal/deeplink"
	"sats-terminal/internal/script"
	"sats-terminal/internal/state"
)

type fakePersister struct {
	saves       []state.Snapshot
	walletSaves []state.Snapshot
	mirrors     []state.Summary
	cleared     int
	claimed     int
	resets      int
}

func (f *fakePersister) Save(s state.Snapshot)       { f.saves = append(f.saves, s) }
func (f *fakePersister) SaveWallet(s state.Snapshot) { f.walletSaves = append(f.walletSaves, s) }
func (f *fakePersister) ClearTranscript()            { f.cleared++ }
func (f *fakePersister) MarkSatsClaimed()            { f.claimed++ }
func (f *fakePersister) ResetClaim()                 { f.resets++ }
func (f *fakePersister) Mirror(s state.Summary)      { f.mirrors = append(f.mirrors, s) }

func (f *fakePersister) walletLoads(id string) int {
	n := 0
	for _, s := range f.walletSaves {
		if s.WalletStepID == id {
			n++
		}
	}
	return n
}

type fakeSkills struct{ keys []string }

func (f *fakeSkills) GrantSkill(key string) { f.keys = append(f.keys, key) }

type fakeTracker struct{ events []string }

func (f *fakeTracker) Track(event string) { f.events = append(f.events, event) }

type fakeNavigator struct {
	opened []string
	err    error
}

func (f *fakeNavigator) Open(uri string) error {
	f.opened = append(f.opened, uri)
	return f.err
}

type zeroRand struct{}

func (zeroRand) IntN(int) int { return 0 }

type harness struct {
	t           *testing.T
	e           *Engine
	now         time.Time
	persister   *fakePersister
	skills      *fakeSkills
	tracker     *fakeTracker
	navigator   *fakeNavigator
	exits       int
	completions int
}

func testConfig() Config {
	return Config{
		TypeInterval:   time.Millisecond,
		StepDelay:      900 * time.Millisecond,
		NoticeDuration: 2 * time.Second,
		ReturnDebounce: 500 * time.Millisecond,
		ReturnTimeout:  30 * time.Second,
	}
}

func newHarness(t *testing.T, rnd Rand) *harness {
	t.Helper()
	sc, err := script.Load("en")
	require.NoError(t, err)

	h := &harness{
		t:         t,
		now:       time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		persister: &fakePersister{},
		skills:    &fakeSkills{},
		tracker:   &fakeTracker{},
		navigator: &fakeNavigator{},
	}
	h.e = New(sc, testConfig(), Deps{
		Persister:   h.persister,
		Skills:      h.skills,
		Tracker:     h.tracker,
		Navigator:   h.navigator,
		Rand:        rnd,
		OnExit:      func() { h.exits++ },
		OnCompleted: func() { h.completions++ },
	})
	return h
}

// settle ticks until the engine accepts input again. The deep-link wait is
// left alone so tests can drive it explicitly.
func (h *harness) settle() {
	for i := 0; i < 10000 && h.e.Locked() && h.e.State().Phase != PhaseAwaitingReturn; i++ {
		h.now = h.now.Add(50 * time.Millisecond)
		h.e.Tick(h.now)
	}
}

func (h *harness) selectOption(i int) {
	h.t.Helper()
	require.True(h.t, h.e.SelectOption(i, h.now), "option %d rejected in phase %s", i, h.e.State().Phase)
	h.settle()
}

func (h *harness) selectButton(i int) {
	h.t.Helper()
	require.True(h.t, h.e.SelectWalletButton(i, h.now), "button %d rejected in phase %s", i, h.e.State().Phase)
	h.settle()
}

// forwardIndex returns the choice that moves the script forward.
func forwardIndex(t *testing.T, choices []script.Option) int {
	t.Helper()
	for i, o := range choices {
		switch o.(type) {
		case script.NextBlockOption, script.StartWalletOption, script.ContinueOption:
			return i
		}
	}
	require.FailNow(t, "no forward option")
	return -1
}

// driveTo plays forward until block i shows its terminal options.
func (h *harness) driveTo(i int) {
	h.t.Helper()
	for range 100 {
		v := h.e.State()
		if v.BlockIndex == i && v.Phase == PhaseWaitingOptions {
			return
		}
		h.selectOption(forwardIndex(h.t, h.e.Choices()))
	}
	require.FailNow(h.t, "block not reached", "block %d", i)
}

func labels[T interface{ Label() string }](items []T) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Label())
	}
	return out
}

func TestEngine_FirstBlockScenario(t *testing.T) {
	h := newHarness(t, nil)
	h.e.Start(nil, h.now)
	assert.Equal(t, PhaseTypingSpeech, h.e.State().Phase)
	assert.False(t, h.e.SelectOption(0, h.now), "input is ignored while typing")

	h.settle()
	v := h.e.State()
	require.Equal(t, PhaseWaitingOptions, v.Phase)
	require.Equal(t, 0, v.BlockIndex)

	require.True(t, h.e.SelectOption(0, h.now))
	v = h.e.State()
	assert.Equal(t, 100, v.RewardTotal)
	assert.Equal(t, 21, v.Progress)
	assert.Equal(t, []string{"WILL_TO_FREEDOM"}, h.skills.keys)
	assert.Equal(t, PhaseTransition, v.Phase)
	assert.Equal(t, state.Message{Text: "Yes, show me.", Sender: state.SenderUser}, v.Messages[len(v.Messages)-1])

	notice, ok := h.e.Notice(h.now)
	require.True(t, ok)
	assert.Equal(t, Notice{Amount: 100, Total: 100, Until: h.now.Add(2 * time.Second)}, notice)

	assert.False(t, h.e.SelectOption(0, h.now), "second tap while the transition is pending")

	h.e.Tick(h.now.Add(899 * time.Millisecond))
	assert.Equal(t, 0, h.e.State().BlockIndex)
	h.e.Tick(h.now.Add(900 * time.Millisecond))
	v = h.e.State()
	assert.Equal(t, 1, v.BlockIndex)
	assert.Equal(t, PhaseTypingSpeech, v.Phase)

	require.NotEmpty(t, h.persister.mirrors)
	assert.Equal(t, state.Summary{
		ModuleID:    state.ModuleTerminal,
		StepIndex:   1,
		RewardTotal: 100,
		Progress:    21,
	}, h.persister.mirrors[len(h.persister.mirrors)-1])
}

func TestEngine_IntermediateAnswersAreEquivalent(t *testing.T) {
	run := func(answer int) (state.Message, []string) {
		h := newHarness(t, nil)
		h.e.Start(nil, h.now)
		h.settle()
		h.selectOption(0)
		require.Equal(t, PhaseWaitingIntermediate, h.e.State().Phase)
		require.Equal(t, 1, h.e.State().BlockIndex)

		h.selectOption(answer)
		v := h.e.State()
		require.Equal(t, PhaseWaitingOptions, v.Phase)
		return v.Messages[len(v.Messages)-1], labels(h.e.Choices())
	}

	firstMsg, firstChoices := run(0)
	secondMsg, secondChoices := run(1)
	assert.Equal(t, firstMsg, secondMsg)
	assert.Equal(t, firstChoices, secondChoices)
}

func TestEngine_FullPlaythroughIsMonotonic(t *testing.T) {
	h := newHarness(t, nil)
	h.e.Start(nil, h.now)
	h.settle()

	prevProgress, prevReward := 0, 0
	for range 100 {
		if h.e.State().WalletMode {
			break
		}
		h.selectOption(forwardIndex(t, h.e.Choices()))

		v := h.e.State()
		assert.GreaterOrEqual(t, v.Progress, prevProgress)
		assert.GreaterOrEqual(t, v.RewardTotal, prevReward)
		assert.LessOrEqual(t, v.RewardTotal, state.MaxReward)
		prevProgress, prevReward = v.Progress, v.RewardTotal
	}

	v := h.e.State()
	require.True(t, v.WalletMode)
	assert.Equal(t, script.FirstWalletStep, v.WalletStepID)
	assert.Equal(t, 100, v.Progress)
	assert.Equal(t, state.MaxReward, v.RewardTotal)
	assert.Len(t, h.skills.keys, 8)
	assert.Equal(t, "WALLET_CREATOR", h.skills.keys[7])
	assert.Equal(t, []string{EventWalletFlowStarted}, h.tracker.events)
	assert.Equal(t, 1, h.persister.walletLoads("step_1"))
}

func TestEngine_RestartResetsExactly(t *testing.T) {
	h := newHarness(t, nil)
	h.e.Start(nil, h.now)
	h.settle()
	h.driveTo(4)

	choices := h.e.Choices()
	restart := -1
	for i, o := range choices {
		if _, ok := o.(script.RestartOption); ok {
			restart = i
		}
	}
	require.NotEqual(t, -1, restart)
	require.True(t, h.e.SelectOption(restart, h.now))
	require.Equal(t, PhaseTypingConditional, h.e.State().Phase)

	for i := 0; i < 1000 && h.e.State().Phase == PhaseTypingConditional; i++ {
		h.now = h.now.Add(10 * time.Millisecond)
		h.e.Tick(h.now)
	}

	v := h.e.State()
	assert.Equal(t, 0, v.BlockIndex)
	assert.Equal(t, state.RestartReward, v.RewardTotal)
	assert.Equal(t, state.RestartProgress, v.Progress)
	assert.Empty(t, v.Messages)
	assert.False(t, v.WalletMode)
	assert.Equal(t, PhaseTypingSpeech, v.Phase)
	assert.Equal(t, 1, h.persister.cleared)
	assert.Equal(t, 1, h.persister.resets)

	last := h.persister.saves[len(h.persister.saves)-1]
	assert.Equal(t, state.RestartReward, last.RewardTotal)
	assert.Empty(t, last.Messages)
}

func TestEngine_GoBackExits(t *testing.T) {
	h := newHarness(t, nil)
	h.e.Start(nil, h.now)
	h.settle()

	h.selectOption(1)

	v := h.e.State()
	assert.Equal(t, PhaseExited, v.Phase)
	assert.Equal(t, 1, h.exits)
	assert.Equal(t, 0, v.RewardTotal)
	assert.Equal(t, state.SenderVoice, v.Messages[len(v.Messages)-1].Sender)
	assert.Empty(t, h.e.Choices())
}

func TestEngine_ConditionalFollowUps(t *testing.T) {
	h := newHarness(t, nil)
	h.e.Start(nil, h.now)
	h.settle()
	h.driveTo(5)

	h.selectOption(0)
	v := h.e.State()
	require.Equal(t, PhaseWaitingConditionalOptions, v.Phase)
	assert.Equal(t, []string{"I will keep them safe.", "That scares me. Take me back."}, labels(h.e.Choices()))

	h.selectOption(0)
	v = h.e.State()
	assert.Equal(t, 6, v.BlockIndex)
	assert.Equal(t, 78, v.Progress)
}

func TestEngine_WalletNextButton(t *testing.T) {
	h := newHarness(t, nil)
	h.e.Start(nil, h.now)
	h.settle()
	h.driveTo(7)
	h.selectOption(0)

	require.Equal(t, PhaseWaitingWalletButton, h.e.State().Phase)
	step1 := labels(h.e.Buttons())
	require.Len(t, step1, 2)

	h.selectButton(0)
	assert.Equal(t, []string{"https://phoenix.acinq.co"}, h.navigator.opened)
	assert.Equal(t, "step_1", h.e.State().WalletStepID)
	assert.False(t, h.e.Locked())

	require.True(t, h.e.SelectWalletButton(1, h.now))
	v := h.e.State()
	assert.Equal(t, state.Message{Text: "I already downloaded it", Sender: state.SenderUser}, v.Messages[len(v.Messages)-1])
	assert.Empty(t, h.e.Buttons())
	assert.False(t, h.e.SelectWalletButton(1, h.now))

	h.settle()
	v = h.e.State()
	assert.Equal(t, "step_2", v.WalletStepID)
	assert.Equal(t, PhaseWaitingWalletButton, v.Phase)
	for _, l := range labels(h.e.Buttons()) {
		assert.NotContains(t, step1, l)
	}
	assert.Equal(t, 1, h.persister.walletLoads("step_1"))
	assert.Equal(t, 1, h.persister.walletLoads("step_2"))
}

func (h *harness) driveToClaim() {
	h.t.Helper()
	h.e.Start(nil, h.now)
	h.settle()
	h.driveTo(7)
	h.selectOption(0)
	h.selectButton(1)
	h.selectButton(0)
	require.Equal(h.t, "step_3", h.e.State().WalletStepID)
	require.Equal(h.t, PhaseWaitingWalletButton, h.e.State().Phase)
}

func TestEngine_DeeplinkResumesOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.driveToClaim()

	require.True(t, h.e.SelectWalletButton(0, h.now))
	assert.Equal(t, PhaseAwaitingReturn, h.e.State().Phase)
	assert.Equal(t, 1, h.persister.claimed)
	require.NotEmpty(t, h.navigator.opened)
	assert.Contains(t, h.navigator.opened[len(h.navigator.opened)-1], "lightning:")
	assert.True(t, h.e.Locked())

	base := h.now
	h.e.Foreground(deeplink.Visible, base.Add(2*time.Second))
	h.e.Foreground(deeplink.Focus, base.Add(2*time.Second+600*time.Millisecond))
	h.e.Tick(base.Add(time.Minute))
	h.e.Tick(base.Add(2 * time.Minute))

	assert.Equal(t, 1, h.persister.walletLoads("step_4"))
	v := h.e.State()
	assert.Equal(t, "step_4", v.WalletStepID)
	assert.Equal(t, PhaseCompleted, v.Phase)
	assert.True(t, v.FlowCompleted)
	assert.Equal(t, 1, h.completions)
}

func TestEngine_DeeplinkFallbackAfterNavigationFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.navigator.err = errors.New("no handler")
	h.driveToClaim()

	require.True(t, h.e.SelectWalletButton(0, h.now))
	base := h.now

	h.e.Tick(base.Add(29 * time.Second))
	assert.Equal(t, "step_3", h.e.State().WalletStepID)
	h.e.Tick(base.Add(30 * time.Second))
	assert.Equal(t, "step_4", h.e.State().WalletStepID)
	assert.Equal(t, 1, h.persister.walletLoads("step_4"))
}

func TestEngine_WisdomNeverRepeats(t *testing.T) {
	for name, rnd := range map[string]Rand{
		"zero": zeroRand{},
		"pcg":  rand.New(rand.NewPCG(1, 2)),
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, rnd)
			assert.False(t, h.e.SubmitText("hello", h.now), "free text before completion")

			h.e.Start(&state.Snapshot{
				WalletMode:   true,
				WalletStepID: "step_4",
				BlockIndex:   7,
				RewardTotal:  1000,
				Progress:     100,
			}, h.now)
			h.settle()
			require.True(t, h.e.State().FlowCompleted)

			prev := ""
			for range 20 {
				require.True(t, h.e.SubmitText("gm", h.now))
				h.settle()
				msgs := h.e.State().Messages
				reply := msgs[len(msgs)-1]
				require.Equal(t, state.SenderVoice, reply.Sender)
				assert.Equal(t, state.Message{Text: "gm", Sender: state.SenderUser}, msgs[len(msgs)-2])
				assert.NotEqual(t, prev, reply.Text)
				prev = reply.Text
			}
			assert.False(t, h.e.SubmitText("   ", h.now))
		})
	}
}

func TestEngine_ResumeDoesNotRepeatLine(t *testing.T) {
	h := newHarness(t, nil)
	sc, _ := script.Load("en")
	transcript := []state.Message{
		{Text: "Fixed supply. Got it.", Sender: state.SenderUser},
		{Text: sc.Blocks[2].Text, Sender: state.SenderVoice},
	}

	h.e.Start(&state.Snapshot{BlockIndex: 2, RewardTotal: 250, Progress: 32, Messages: transcript}, h.now)

	v := h.e.State()
	assert.Equal(t, PhaseWaitingOptions, v.Phase)
	assert.Equal(t, 2, v.BlockIndex)
	assert.Equal(t, 250, v.RewardTotal)
	assert.Equal(t, 32, v.Progress)
	assert.Equal(t, transcript, v.Messages)
	assert.Equal(t, labels(sc.Blocks[2].Options), labels(h.e.Choices()))
}

func TestEngine_ResumeWalletStep(t *testing.T) {
	h := newHarness(t, nil)
	h.e.Start(&state.Snapshot{WalletMode: true, WalletStepID: "step_2", BlockIndex: 7, RewardTotal: 1000, Progress: 100}, h.now)
	h.settle()

	v := h.e.State()
	assert.True(t, v.WalletMode)
	assert.Equal(t, "step_2", v.WalletStepID)
	assert.Equal(t, PhaseWaitingWalletButton, v.Phase)
	assert.Len(t, v.Messages, 1)
}

func TestEngine_OutOfRangeIsNoop(t *testing.T) {
	h := newHarness(t, nil)
	h.e.Start(nil, h.now)
	h.settle()
	before := h.e.State()

	h.e.StartBlock(99, false, h.now)
	h.e.StartBlock(-1, false, h.now)
	h.e.StartWalletStep("step_99", h.now)
	assert.False(t, h.e.SelectOption(42, h.now))
	assert.False(t, h.e.SelectWalletButton(0, h.now))

	assert.Equal(t, before, h.e.State())
}

func TestEngine_StopTearsDown(t *testing.T) {
	h := newHarness(t, nil)
	h.e.Start(nil, h.now)
	h.e.Stop()

	h.e.Tick(h.now.Add(time.Hour))
	assert.Empty(t, h.e.State().Messages)
	assert.True(t, h.e.Locked())
}

func optionIndex[T script.Option](t *testing.T, choices []script.Option) int {
	t.Helper()
	for i, o := range choices {
		if _, ok := o.(T); ok {
			return i
		}
	}
	require.FailNow(t, "option kind not offered")
	return -1
}

func TestEngine_SaveAfterCompletionPointsAtNextBlock(t *testing.T) {
	h := newHarness(t, nil)
	h.e.Start(nil, h.now)
	h.settle()

	require.True(t, h.e.SelectOption(optionIndex[script.NextBlockOption](t, h.e.Choices()), h.now))
	require.Equal(t, PhaseTransition, h.e.State().Phase)
	assert.Equal(t, 0, h.e.State().BlockIndex)

	last := h.persister.saves[len(h.persister.saves)-1]
	assert.Equal(t, 1, last.BlockIndex)
	assert.Equal(t, 100, last.RewardTotal)
	assert.Equal(t, 21, last.Progress)
}

func TestEngine_ResumeDuringTransitionKeepsReward(t *testing.T) {
	h := newHarness(t, nil)
	h.e.Start(nil, h.now)
	h.settle()
	h.driveTo(2)

	require.True(t, h.e.SelectOption(optionIndex[script.NextBlockOption](t, h.e.Choices()), h.now))
	require.Equal(t, PhaseTransition, h.e.State().Phase)
	h.e.Stop()

	saved := h.persister.saves[len(h.persister.saves)-1]
	require.Equal(t, 3, saved.BlockIndex)
	require.Equal(t, 400, saved.RewardTotal)

	resumed := newHarness(t, nil)
	resumed.e.Start(&saved, resumed.now)
	resumed.settle()
	v := resumed.e.State()
	assert.Equal(t, 3, v.BlockIndex)
	assert.Equal(t, 400, v.RewardTotal)
	assert.Equal(t, 44, v.Progress)

	resumed.driveTo(4)
	v = resumed.e.State()
	assert.Equal(t, 600, v.RewardTotal)
	assert.Equal(t, []string{"SATS_STACKER"}, resumed.skills.keys)
}

func TestEngine_ResumeAfterContinuation(t *testing.T) {
	h := newHarness(t, nil)
	sc, _ := script.Load("en")
	block := sc.Blocks[3]
	override := block.Intermediate.Options[0].(script.ContinueOption).Continuation
	require.NotEmpty(t, override)

	for name, text := range map[string]string{
		"shared":   block.Continuation,
		"override": override,
	} {
		t.Run(name, func(t *testing.T) {
			transcript := []state.Message{
				{Text: block.Text, Sender: state.SenderVoice},
				{Text: block.Intermediate.Text, Sender: state.SenderVoice},
				{Text: "Like a cent?", Sender: state.SenderUser},
				{Text: text, Sender: state.SenderVoice},
			}
			h.e.Start(&state.Snapshot{BlockIndex: 3, RewardTotal: 400, Progress: 44, Messages: transcript}, h.now)

			v := h.e.State()
			assert.Equal(t, PhaseWaitingOptions, v.Phase)
			assert.Equal(t, transcript, v.Messages)
			assert.Equal(t, labels(block.Options), labels(h.e.Choices()))
		})
	}
}

func TestEngine_ResumeAfterConditionalText(t *testing.T) {
	h := newHarness(t, nil)
	sc, _ := script.Load("en")
	block := sc.Blocks[5]
	cond := block.Options[0].(script.ConditionalOption)
	transcript := []state.Message{
		{Text: block.Text, Sender: state.SenderVoice},
		{Text: cond.Text, Sender: state.SenderUser},
		{Text: cond.ConditionalText, Sender: state.SenderVoice},
	}

	h.e.Start(&state.Snapshot{BlockIndex: 5, RewardTotal: 750, Progress: 67, Messages: transcript}, h.now)

	v := h.e.State()
	assert.Equal(t, PhaseWaitingConditionalOptions, v.Phase)
	assert.Equal(t, transcript, v.Messages)
	assert.Equal(t, labels(cond.FollowUps), labels(h.e.Choices()))
}
