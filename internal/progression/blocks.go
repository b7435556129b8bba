package progression

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"sats-terminal/internal/script"
	"sats-terminal/internal/state"
)

// StartBlock plays block i and then exposes its question. An index outside
// the script is a no-op.
func (e *Engine) StartBlock(i int, skip bool, now time.Time) {
	block, ok := e.sc.Block(i)
	if !ok || e.stopped {
		return
	}
	e.now = now
	e.blockIndex = i
	e.blockDone = false
	e.walletMode = false
	e.walletStepID = ""
	e.choices = nil
	e.phase = PhaseTypingSpeech

	e.play(block.Text, now, skip, func(now time.Time) {
		e.afterBlockText(block, now, skip)
	})
}

func (e *Engine) afterBlockText(block script.Block, now time.Time, skip bool) {
	if block.Intermediate == nil {
		e.enterOptions(block)
		return
	}
	e.play(block.Intermediate.Text, now, skip, func(time.Time) {
		e.enterIntermediate(block)
	})
}

func (e *Engine) enterIntermediate(block script.Block) {
	e.phase = PhaseWaitingIntermediate
	e.choices = block.Intermediate.Options
}

func (e *Engine) enterOptions(block script.Block) {
	e.phase = PhaseWaitingOptions
	e.choices = block.Options
}

// resumeBlock restores a saved block position without repeating a line
// that is already the tail of the transcript.
func (e *Engine) resumeBlock(i int, now time.Time) {
	block, ok := e.sc.Block(i)
	if !ok {
		e.StartBlock(0, false, now)
		return
	}
	last, _ := e.lastMessage()
	if last.Sender != state.SenderVoice || last.Text == "" {
		e.StartBlock(i, false, now)
		return
	}
	e.blockIndex = i
	switch {
	case last.Text == block.Text:
		e.phase = PhaseTypingSpeech
		e.afterBlockText(block, now, false)
	case block.Intermediate != nil && last.Text == block.Intermediate.Text:
		e.enterIntermediate(block)
	case isContinuation(block, last.Text):
		e.enterOptions(block)
	default:
		if o, ok := findConditional(block, last.Text); ok {
			e.enterConditional(block, o)
			return
		}
		e.StartBlock(i, false, now)
	}
}

// isContinuation reports whether text is the block continuation or an
// answer-specific override of it.
func isContinuation(block script.Block, text string) bool {
	if block.Continuation == text {
		return true
	}
	for _, opts := range blockOptionSets(block) {
		for _, opt := range opts {
			if o, ok := opt.(script.ContinueOption); ok && o.Continuation == text {
				return true
			}
		}
	}
	return false
}

func findConditional(block script.Block, text string) (script.ConditionalOption, bool) {
	for _, opts := range blockOptionSets(block) {
		for _, opt := range opts {
			if o, ok := opt.(script.ConditionalOption); ok && o.ConditionalText == text {
				return o, true
			}
		}
	}
	return script.ConditionalOption{}, false
}

func blockOptionSets(block script.Block) [][]script.Option {
	sets := [][]script.Option{block.Options}
	if block.Intermediate != nil {
		sets = append(sets, block.Intermediate.Options)
	}
	return sets
}

func (e *Engine) awaitingOption() bool {
	switch e.phase {
	case PhaseWaitingIntermediate, PhaseWaitingOptions, PhaseWaitingConditionalOptions:
		return true
	default:
		return false
	}
}

// SelectOption picks choice i of the current question. It reports whether
// the input was accepted; input while locked is ignored.
func (e *Engine) SelectOption(i int, now time.Time) bool {
	if e.Locked() || !e.awaitingOption() || i < 0 || i >= len(e.choices) {
		return false
	}
	block, ok := e.sc.Block(e.blockIndex)
	if !ok {
		return false
	}
	e.now = now
	opt := e.choices[i]
	e.choices = nil
	e.echo(opt.Label())

	switch o := opt.(type) {
	case script.ContinueOption:
		text := o.Continuation
		if text == "" {
			text = block.Continuation
		}
		if text == "" {
			e.enterOptions(block)
			break
		}
		e.phase = PhaseTypingSpeechContinued
		e.play(text, now, false, func(time.Time) { e.enterOptions(block) })

	case script.NextBlockOption:
		e.afterConditional(o.ConditionalText, now, func(now time.Time) {
			e.completeBlock(block, now)
			e.advance(block, now)
		})

	case script.GoBackOption:
		e.afterConditional(o.ConditionalText, now, e.exit)

	case script.RestartOption:
		e.afterConditional(o.ConditionalText, now, e.restart)

	case script.ConditionalOption:
		e.phase = PhaseTypingConditional
		e.play(o.ConditionalText, now, false, func(time.Time) {
			e.enterConditional(block, o)
		})

	case script.StartWalletOption:
		e.deps.Tracker.Track(EventWalletFlowStarted)
		e.completeBlock(block, now)
		e.walletMode = true
		e.StartWalletStep(script.FirstWalletStep, now)
	}
	return true
}

func (e *Engine) enterConditional(block script.Block, o script.ConditionalOption) {
	if len(o.FollowUps) == 0 {
		e.enterOptions(block)
		return
	}
	e.phase = PhaseWaitingConditionalOptions
	e.choices = o.FollowUps
}

func (e *Engine) afterConditional(text string, now time.Time, then func(now time.Time)) {
	if text == "" {
		then(now)
		return
	}
	e.phase = PhaseTypingConditional
	e.play(text, now, false, then)
}

// completeBlock applies reward, progress and skill in that order, then
// persists and mirrors. From here on saves resume at the following block.
func (e *Engine) completeBlock(block script.Block, now time.Time) {
	e.now = now
	before := e.reward
	e.reward = state.ClampReward(e.reward + block.Reward)
	if gained := e.reward - before; gained > 0 {
		e.notice = &Notice{Amount: gained, Total: e.reward, Until: now.Add(e.cfg.NoticeDuration)}
	}
	e.progress = state.ClampProgress(max(e.progress, block.ProgressTarget))
	e.blockDone = true
	if block.Skill != "" {
		e.deps.Skills.GrantSkill(block.Skill)
	}

	e.logger.Info("Block completed",
		zap.Int("block", block.Index),
		zap.Int("reward_total", e.reward),
		zap.Int("progress", e.progress),
	)

	e.persist()
	e.deps.Persister.Mirror(state.Summary{
		ModuleID:    state.ModuleTerminal,
		StepIndex:   e.savedBlockIndex(),
		RewardTotal: e.reward,
		Progress:    e.progress,
	})
}

func (e *Engine) advance(block script.Block, now time.Time) {
	e.phase = PhaseTransition
	if e.sc.LastBlock(block.Index) {
		e.finishFlow()
		return
	}
	next := block.Index + 1
	e.schedule("next_block", now, e.cfg.StepDelay, func(now time.Time) {
		e.StartBlock(next, false, now)
	})
}

func (e *Engine) exit(time.Time) {
	e.phase = PhaseExited
	e.choices = nil
	if e.deps.OnExit != nil {
		e.deps.OnExit()
	}
}

// restart rewinds to block 0 with the restart reward and progress and an
// empty transcript.
func (e *Engine) restart(now time.Time) {
	e.now = now
	e.reward = state.RestartReward
	e.progress = state.RestartProgress
	e.messages = nil
	e.flowCompleted = false
	e.lastWisdom = -1
	e.notice = nil
	e.deps.Persister.ClearTranscript()
	e.deps.Persister.ResetClaim()
	e.logger.Info("Progress restarted")

	e.StartBlock(0, false, now)
	e.persist()
}

// SubmitText answers free text with a wisdom line once the flow is
// complete. Two consecutive answers never repeat.
func (e *Engine) SubmitText(text string, now time.Time) bool {
	text = strings.TrimSpace(text)
	if !e.flowCompleted || e.Locked() || text == "" || len(e.sc.Wisdom) == 0 {
		return false
	}
	e.now = now
	e.echo(text)
	e.play(e.sc.Wisdom[e.pickWisdom()], now, false, nil)
	return true
}

func (e *Engine) pickWisdom() int {
	n := len(e.sc.Wisdom)
	if n == 1 {
		e.lastWisdom = 0
		return 0
	}
	var idx int
	if e.lastWisdom < 0 {
		idx = e.deps.Rand.IntN(n)
	} else {
		idx = e.deps.Rand.IntN(n - 1)
		if idx >= e.lastWisdom {
			idx++
		}
	}
	e.lastWisdom = idx
	return idx
}
