// Package progression drives the terminal dialogue: scripted blocks, the
// wallet setup chain, rewards and resume.
package progression

import (
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"sats-terminal/internal/deeplink"
	"sats-terminal/internal/script"
	"sats-terminal/internal/state"
	"sats-terminal/internal/typewriter"
)

// Phase tells the UI which affordance is valid right now.
type Phase string

const (
	PhaseIdle                      Phase = "idle"
	PhaseTypingSpeech              Phase = "typing_speech"
	PhaseWaitingIntermediate       Phase = "waiting_intermediate"
	PhaseTypingSpeechContinued     Phase = "typing_speech_continued"
	PhaseWaitingOptions            Phase = "waiting_options"
	PhaseTypingConditional         Phase = "typing_conditional"
	PhaseWaitingConditionalOptions Phase = "waiting_conditional_options"
	PhaseTransition                Phase = "transition"
	PhaseWalletTyping              Phase = "wallet_typing"
	PhaseWaitingWalletButton       Phase = "waiting_wallet_button"
	PhaseAwaitingReturn            Phase = "awaiting_return"
	PhaseCompleted                 Phase = "completed"
	PhaseExited                    Phase = "exited"
)

// EventWalletFlowStarted is tracked when the user enters the wallet chain.
const EventWalletFlowStarted = "wallet_flow_started"

// maxStepsPerTick bounds how many chained completions one Tick may process.
const maxStepsPerTick = 64

// Config holds the pacing of the dialogue.
type Config struct {
	TypeInterval   time.Duration
	StepDelay      time.Duration
	NoticeDuration time.Duration
	ReturnDebounce time.Duration
	ReturnTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		TypeInterval:   25 * time.Millisecond,
		StepDelay:      900 * time.Millisecond,
		NoticeDuration: 2500 * time.Millisecond,
		ReturnDebounce: 600 * time.Millisecond,
		ReturnTimeout:  45 * time.Second,
	}
}

// Deps are the collaborators injected into the engine. Nil ports are
// replaced by no-ops.
type Deps struct {
	Persister Persister
	Skills    SkillGranter
	Tracker   Tracker
	Navigator Navigator
	Rand      Rand
	Logger    *zap.Logger

	// OnExit fires when a go-back option leaves the terminal.
	OnExit func()
	// OnCompleted fires once the script is exhausted.
	OnCompleted func()
}

// Notice is the transient reward notification.
type Notice struct {
	Amount int
	Total  int
	Until  time.Time
}

// View is a read-only copy of the engine state for rendering.
type View struct {
	Phase         Phase
	BlockIndex    int
	WalletMode    bool
	WalletStepID  string
	RewardTotal   int
	Progress      int
	Messages      []state.Message
	FlowCompleted bool
	Locked        bool
}

type transition struct {
	label string
	due   time.Time
	run   func(now time.Time)
}

// Engine owns the progression state. It is not safe for concurrent use:
// the host calls it from a single UI loop and drives time through Tick.
type Engine struct {
	sc     *script.Script
	cfg    Config
	deps   Deps
	logger *zap.Logger

	tw       *typewriter.Typewriter
	detector *deeplink.Detector

	phase         Phase
	blockIndex    int
	walletMode    bool
	walletStepID  string
	reward        int
	progress      int
	messages      []state.Message
	choices       []script.Option
	buttons       []script.Button
	flowCompleted bool
	lastWisdom    int
	// blockDone is set once the current block's reward is applied; saves
	// then point at the following block.
	blockDone bool

	pending *transition
	notice  *Notice
	now     time.Time
	stopped bool
}

func New(sc *script.Script, cfg Config, deps Deps) *Engine {
	if deps.Persister == nil {
		deps.Persister = nopPersister{}
	}
	if deps.Skills == nil {
		deps.Skills = nopSkills{}
	}
	if deps.Tracker == nil {
		deps.Tracker = nopTracker{}
	}
	if deps.Navigator == nil {
		deps.Navigator = nopNavigator{}
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	e := &Engine{
		sc:         sc,
		cfg:        cfg,
		deps:       deps,
		logger:     deps.Logger.Named("progression"),
		detector:   deeplink.NewDetector(cfg.ReturnDebounce, cfg.ReturnTimeout),
		phase:      PhaseIdle,
		lastWisdom: -1,
	}
	e.tw = typewriter.New(cfg.TypeInterval, e.appendMessage)
	return e
}

// Start begins a fresh session (nil snapshot) or resumes a saved one.
func (e *Engine) Start(snap *state.Snapshot, now time.Time) {
	e.now = now
	e.reset()
	if snap == nil {
		e.StartBlock(0, false, now)
		return
	}

	e.reward = state.ClampReward(snap.RewardTotal)
	e.progress = state.ClampProgress(snap.Progress)
	e.blockIndex = snap.BlockIndex
	e.messages = append([]state.Message(nil), snap.Messages...)

	if snap.WalletMode {
		id := snap.WalletStepID
		if _, ok := e.sc.WalletStep(id); !ok {
			id = script.FirstWalletStep
		}
		e.walletMode = true
		e.resumeWalletStep(id, now)
		return
	}
	e.resumeBlock(snap.BlockIndex, now)
}

// reset returns to the zero state without touching storage.
func (e *Engine) reset() {
	e.tw.Stop()
	e.detector.Disarm()
	e.pending = nil
	e.notice = nil
	e.stopped = false
	e.phase = PhaseIdle
	e.blockIndex = 0
	e.walletMode = false
	e.walletStepID = ""
	e.reward, e.progress = 0, 0
	e.messages = nil
	e.choices = nil
	e.buttons = nil
	e.flowCompleted = false
	e.lastWisdom = -1
	e.blockDone = false
}

// Tick advances text playback, the pending transition and the deep-link
// wait. Completions that chain within the same instant run in one call.
func (e *Engine) Tick(now time.Time) {
	if e.stopped {
		return
	}
	e.now = now
	for range maxStepsPerTick {
		progressed := e.tw.Advance(now)

		if t := e.pending; t != nil && !now.Before(t.due) {
			e.pending = nil
			e.logger.Debug("Running transition", zap.String("transition", t.label))
			t.run(now)
			progressed = true
		}

		if target, ok := e.detector.Tick(now); ok {
			e.logger.Info("User returned from wallet", zap.String("target", target))
			e.StartWalletStep(target, now)
			progressed = true
		}

		if !progressed {
			break
		}
	}
	if e.notice != nil && !now.Before(e.notice.Until) {
		e.notice = nil
	}
}

// Stop tears the engine down. No message, callback or transition runs
// after it.
func (e *Engine) Stop() {
	e.stopped = true
	e.tw.Stop()
	e.detector.Disarm()
	e.pending = nil
}

// Locked reports whether input is currently ignored.
func (e *Engine) Locked() bool {
	return e.stopped || e.tw.Active() || e.pending != nil || e.detector.Armed()
}

func (e *Engine) State() View {
	return View{
		Phase:         e.phase,
		BlockIndex:    e.blockIndex,
		WalletMode:    e.walletMode,
		WalletStepID:  e.walletStepID,
		RewardTotal:   e.reward,
		Progress:      e.progress,
		Messages:      append([]state.Message(nil), e.messages...),
		FlowCompleted: e.flowCompleted,
		Locked:        e.Locked(),
	}
}

// Choices are the options currently selectable by index.
func (e *Engine) Choices() []script.Option {
	if e.Locked() {
		return nil
	}
	return e.choices
}

// Buttons are the wallet step buttons currently selectable by index.
func (e *Engine) Buttons() []script.Button {
	if e.Locked() || e.phase != PhaseWaitingWalletButton {
		return nil
	}
	return e.buttons
}

// Typing returns the partially revealed line, if any.
func (e *Engine) Typing(now time.Time) (string, state.Sender, bool) {
	return e.tw.Visible(now)
}

// Notice returns the reward notification while it is still showing.
func (e *Engine) Notice(now time.Time) (Notice, bool) {
	if e.notice == nil || !now.Before(e.notice.Until) {
		return Notice{}, false
	}
	return *e.notice, true
}

// Foreground feeds a visibility or focus change to the deep-link wait.
func (e *Engine) Foreground(ev deeplink.Event, now time.Time) {
	if e.stopped {
		return
	}
	e.detector.Signal(ev, now)
	e.Tick(now)
}

func (e *Engine) play(text string, now time.Time, instant bool, then func(now time.Time)) {
	e.tw.Play(text, state.SenderVoice, now, instant, then)
}

func (e *Engine) schedule(label string, now time.Time, delay time.Duration, run func(now time.Time)) {
	e.pending = &transition{label: label, due: now.Add(delay), run: run}
}

func (e *Engine) appendMessage(m state.Message) {
	e.messages = append(e.messages, m)
	e.persist()
}

func (e *Engine) echo(text string) {
	e.appendMessage(state.Message{Text: text, Sender: state.SenderUser})
}

func (e *Engine) snapshot() state.Snapshot {
	return state.Snapshot{
		BlockIndex:   e.savedBlockIndex(),
		WalletMode:   e.walletMode,
		WalletStepID: e.walletStepID,
		RewardTotal:  e.reward,
		Progress:     e.progress,
		Messages:     append([]state.Message(nil), e.messages...),
		SavedAt:      e.now,
	}
}

func (e *Engine) savedBlockIndex() int {
	if !e.blockDone {
		return e.blockIndex
	}
	return min(e.blockIndex+1, len(e.sc.Blocks)-1)
}

func (e *Engine) persist() {
	e.deps.Persister.Save(e.snapshot())
}

func (e *Engine) lastMessage() (state.Message, bool) {
	if len(e.messages) == 0 {
		return state.Message{}, false
	}
	return e.messages[len(e.messages)-1], true
}

func (e *Engine) finishFlow() {
	e.phase = PhaseCompleted
	e.choices = nil
	e.buttons = nil
	if e.flowCompleted {
		return
	}
	e.flowCompleted = true
	e.logger.Info("Flow completed",
		zap.Int("reward_total", e.reward),
		zap.Int("progress", e.progress),
	)
	if e.deps.OnCompleted != nil {
		e.deps.OnCompleted()
	}
}

type nopPersister struct{}

func (nopPersister) Save(state.Snapshot)       {}
func (nopPersister) SaveWallet(state.Snapshot) {}
func (nopPersister) ClearTranscript()          {}
func (nopPersister) MarkSatsClaimed()          {}
func (nopPersister) ResetClaim()               {}
func (nopPersister) Mirror(state.Summary)      {}

type nopSkills struct{}

func (nopSkills) GrantSkill(string) {}

type nopTracker struct{}

func (nopTracker) Track(string) {}

type nopNavigator struct{}

func (nopNavigator) Open(string) error { return nil }
