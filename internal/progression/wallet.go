package progression

import (
	"time"

	"go.uber.org/zap"

	"sats-terminal/internal/script"
	"sats-terminal/internal/state"
)

// StartWalletStep loads a wallet step. An unknown id is a no-op.
func (e *Engine) StartWalletStep(id string, now time.Time) {
	if e.stopped {
		return
	}
	step, ok := e.sc.WalletStep(id)
	if !ok {
		e.logger.Warn("Unknown wallet step", zap.String("step", id))
		return
	}
	e.now = now
	e.enterWalletStep(step)
	e.deps.Persister.SaveWallet(e.snapshot())
	e.mirrorWallet()

	e.play(step.Text, now, false, func(time.Time) { e.exposeButtons(step) })
}

// resumeWalletStep skips replaying the instruction when the transcript
// already ends with it.
func (e *Engine) resumeWalletStep(id string, now time.Time) {
	step, _ := e.sc.WalletStep(id)
	last, _ := e.lastMessage()
	if last.Sender != state.SenderVoice || last.Text != step.Text {
		e.StartWalletStep(id, now)
		return
	}
	e.enterWalletStep(step)
	e.exposeButtons(step)
}

func (e *Engine) enterWalletStep(step script.WalletStep) {
	e.walletMode = true
	e.walletStepID = step.ID
	e.choices = nil
	e.buttons = nil
	e.phase = PhaseWalletTyping
}

func (e *Engine) exposeButtons(step script.WalletStep) {
	if step.Terminal() {
		e.finishFlow()
		return
	}
	e.phase = PhaseWaitingWalletButton
	e.buttons = step.Buttons
}

func (e *Engine) mirrorWallet() {
	e.deps.Persister.Mirror(state.Summary{
		ModuleID:    state.ModuleWallet,
		StepIndex:   e.sc.WalletStepIndex(e.walletStepID),
		RewardTotal: e.reward,
		Progress:    e.progress,
	})
}

// SelectWalletButton presses button i of the current step.
func (e *Engine) SelectWalletButton(i int, now time.Time) bool {
	if e.Locked() || e.phase != PhaseWaitingWalletButton || i < 0 || i >= len(e.buttons) {
		return false
	}
	e.now = now

	switch b := e.buttons[i].(type) {
	case script.ExternalButton:
		if err := e.deps.Navigator.Open(b.URL); err != nil {
			e.logger.Warn("Failed to open external link", zap.String("url", b.URL), zap.Error(err))
		}

	case script.NextButton:
		e.echo(b.Text)
		e.buttons = nil
		e.phase = PhaseTransition
		target := b.Target
		e.schedule("wallet_next", now, e.cfg.StepDelay, func(now time.Time) {
			e.StartWalletStep(target, now)
		})

	case script.DeeplinkButton:
		e.echo(b.Text)
		e.deps.Persister.MarkSatsClaimed()
		if err := e.deps.Navigator.Open(b.URI); err != nil {
			// the fallback deadline still resumes the chain
			e.logger.Warn("Failed to hand off payment uri", zap.Error(err))
		}
		if b.Target == "" {
			break
		}
		e.buttons = nil
		e.phase = PhaseAwaitingReturn
		e.detector.Arm(b.Target, now)
	}
	return true
}
