// Package funnel switches between the intro quiz, the terminal and the
// claim screen.
package funnel

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sats-terminal/internal/deeplink"
	"sats-terminal/internal/models"
	"sats-terminal/internal/progression"
	"sats-terminal/internal/script"
	"sats-terminal/internal/state"
)

type Phase string

const (
	PhaseQuiz     Phase = "quiz"
	PhaseTerminal Phase = "terminal"
	PhaseClaim    Phase = "claim"
)

const (
	defaultErrorWindow = 1200 * time.Millisecond
	defaultShakeWindow = 420 * time.Millisecond
	shakeFrame         = 60 * time.Millisecond
)

// Sessions is the quiz bookkeeping backend.
type Sessions interface {
	CreateSession(ctx context.Context, nodeID string) (*models.Session, error)
	SessionAction(ctx context.Context, id uuid.UUID, action models.SessionAction) (*models.Session, error)
}

// Options wire the funnel. Sessions, Resume, Claimed and EarnedSkills may
// be nil.
type Options struct {
	Quiz         []Question
	ErrorWindow  time.Duration
	ShakeWindow  time.Duration
	Sessions     Sessions
	// Resume supplies the snapshot used when the terminal is entered
	// again after a go-back.
	Resume       func() *state.Snapshot
	Claimed      func() bool
	// EarnedSkills is called off the UI loop when the claim screen opens.
	EarnedSkills func(ctx context.Context) []string
	Logger       *zap.Logger
}

// QuizView is the current quiz question for rendering.
type QuizView struct {
	Index    int
	Total    int
	Question Question
	Error    bool
	Shake    int
}

// Funnel is driven from the UI loop, like the engine it owns.
type Funnel struct {
	engine *progression.Engine
	opts   Options
	logger *zap.Logger
	worker *worker

	phase      Phase
	quizIndex  int
	score      int
	errorUntil time.Time
	shakeFrom  time.Time
	shakeUntil time.Time

	// accessed only from worker jobs
	sessionID uuid.UUID

	skillsMu sync.Mutex
	skills   []string
}

// New builds the funnel and its engine. The engine's exit and completion
// callbacks are owned by the funnel.
func New(ctx context.Context, sc *script.Script, cfg progression.Config, deps progression.Deps, opts Options) *Funnel {
	if len(opts.Quiz) == 0 {
		opts.Quiz = DefaultQuiz
	}
	if opts.ErrorWindow <= 0 {
		opts.ErrorWindow = defaultErrorWindow
	}
	if opts.ShakeWindow <= 0 {
		opts.ShakeWindow = defaultShakeWindow
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	logger := opts.Logger.Named("funnel")

	f := &Funnel{
		opts:   opts,
		logger: logger,
		worker: newWorker(ctx, 16, logger),
	}
	deps.OnExit = f.onExit
	deps.OnCompleted = f.onCompleted
	if deps.Logger == nil {
		deps.Logger = opts.Logger
	}
	f.engine = progression.New(sc, cfg, deps)
	return f
}

// Start enters the terminal directly when a snapshot is resumed, otherwise
// begins with the quiz.
func (f *Funnel) Start(resume *state.Snapshot, now time.Time) {
	if resume != nil {
		f.enterTerminal(resume, now)
		return
	}
	f.startQuiz()
}

func (f *Funnel) Phase() Phase { return f.phase }

func (f *Funnel) Engine() *progression.Engine { return f.engine }

func (f *Funnel) Tick(now time.Time) {
	if f.phase != PhaseQuiz {
		f.engine.Tick(now)
	}
}

func (f *Funnel) Close() {
	f.engine.Stop()
	f.worker.close()
}

// --- Quiz --- //

func (f *Funnel) startQuiz() {
	f.phase = PhaseQuiz
	f.quizIndex = 0
	f.score = 0
	f.errorUntil = time.Time{}
	f.shakeUntil = time.Time{}
	f.logger.Info("Quiz started")

	if f.opts.Sessions == nil {
		return
	}
	sessions := f.opts.Sessions
	f.worker.submit(func(ctx context.Context) {
		session, err := sessions.CreateSession(ctx, models.DefaultSessionNode)
		if err != nil {
			f.sessionID = uuid.Nil
			f.logger.Debug("Quiz session not created", zap.Error(err))
			return
		}
		f.sessionID = session.ID
	})
}

// Quiz returns the current question. ok is false outside the quiz.
func (f *Funnel) Quiz(now time.Time) (QuizView, bool) {
	if f.phase != PhaseQuiz || f.quizIndex >= len(f.opts.Quiz) {
		return QuizView{}, false
	}
	return QuizView{
		Index:    f.quizIndex,
		Total:    len(f.opts.Quiz),
		Question: f.opts.Quiz[f.quizIndex],
		Error:    now.Before(f.errorUntil),
		Shake:    f.shakeOffset(now),
	}, true
}

func (f *Funnel) shakeOffset(now time.Time) int {
	if !now.Before(f.shakeUntil) {
		return 0
	}
	frame := int(now.Sub(f.shakeFrom) / shakeFrame)
	return shakePattern[min(frame, len(shakePattern)-1)]
}

// Answer submits answer i to the current question. A wrong answer shows
// the error cue and keeps the question; nothing is recorded for it.
func (f *Funnel) Answer(i int, now time.Time) bool {
	if f.phase != PhaseQuiz || f.quizIndex >= len(f.opts.Quiz) {
		return false
	}
	q := f.opts.Quiz[f.quizIndex]
	if i < 0 || i >= len(q.Answers) || now.Before(f.shakeUntil) {
		return false
	}

	if i != q.Correct {
		f.errorUntil = now.Add(f.opts.ErrorWindow)
		f.shakeFrom = now
		f.shakeUntil = now.Add(f.opts.ShakeWindow)
		return true
	}

	f.errorUntil = time.Time{}
	f.score += q.Score
	f.quizIndex++
	next := ""
	if f.quizIndex < len(f.opts.Quiz) {
		next = f.opts.Quiz[f.quizIndex].ID
	}
	f.recordAction(models.SessionAction{ActionID: q.ID, ScoreDelta: q.Score, NextStepID: next})

	if next == "" {
		f.logger.Info("Quiz passed", zap.Int("score", f.score))
		f.enterTerminal(f.resumeSnapshot(), now)
	}
	return true
}

func (f *Funnel) recordAction(action models.SessionAction) {
	if f.opts.Sessions == nil {
		return
	}
	sessions := f.opts.Sessions
	f.worker.submit(func(ctx context.Context) {
		if f.sessionID == uuid.Nil {
			return
		}
		if _, err := sessions.SessionAction(ctx, f.sessionID, action); err != nil {
			f.logger.Debug("Quiz action not recorded", zap.String("action", action.ActionID), zap.Error(err))
		}
	})
}

// --- Terminal and claim --- //

func (f *Funnel) resumeSnapshot() *state.Snapshot {
	if f.opts.Resume == nil {
		return nil
	}
	return f.opts.Resume()
}

func (f *Funnel) enterTerminal(resume *state.Snapshot, now time.Time) {
	f.phase = PhaseTerminal
	f.engine.Start(resume, now)
}

func (f *Funnel) onExit() {
	f.logger.Info("Terminal exited, back to quiz")
	f.startQuiz()
}

func (f *Funnel) onCompleted() {
	if f.opts.Claimed != nil && f.opts.Claimed() {
		f.phase = PhaseClaim
		f.loadSkills()
	}
}

func (f *Funnel) loadSkills() {
	if f.opts.EarnedSkills == nil {
		return
	}
	earned := f.opts.EarnedSkills
	f.worker.submit(func(ctx context.Context) {
		keys := earned(ctx)
		f.skillsMu.Lock()
		f.skills = keys
		f.skillsMu.Unlock()
	})
}

// ClaimSkills are the skill keys shown on the claim screen. Empty until the
// backend answers.
func (f *Funnel) ClaimSkills() []string {
	f.skillsMu.Lock()
	defer f.skillsMu.Unlock()
	return append([]string(nil), f.skills...)
}

// BackToTerminal leaves the claim screen for free-text chat.
func (f *Funnel) BackToTerminal() bool {
	if f.phase != PhaseClaim {
		return false
	}
	f.phase = PhaseTerminal
	return true
}

func (f *Funnel) SelectOption(i int, now time.Time) bool {
	return f.phase == PhaseTerminal && f.engine.SelectOption(i, now)
}

func (f *Funnel) SelectWalletButton(i int, now time.Time) bool {
	return f.phase == PhaseTerminal && f.engine.SelectWalletButton(i, now)
}

func (f *Funnel) SubmitText(text string, now time.Time) bool {
	return f.phase == PhaseTerminal && f.engine.SubmitText(text, now)
}

// Foreground forwards focus and visibility changes to the engine.
func (f *Funnel) Foreground(ev deeplink.Event, now time.Time) {
	if f.phase == PhaseQuiz {
		return
	}
	f.engine.Foreground(ev, now)
}
