// Package script is the fixed dialogue: ordered blocks, the linear wallet
// setup chain and the wisdom pool used after the flow completes.
package script

// FirstWalletStep is where the wallet flow always begins.
const FirstWalletStep = "step_1"

// Question is an intermediate prompt shown after a block's main text.
type Question struct {
	Text    string
	Options []Option
}

// Block is one unit of scripted dialogue.
type Block struct {
	Index          int
	Title          string
	Text           string
	Intermediate   *Question
	Continuation   string
	Options        []Option
	Reward         int
	ProgressTarget int
	Skill          string
}

// WalletStep is one instruction of the wallet setup chain.
// A step without buttons terminates the chain.
type WalletStep struct {
	ID      string
	Text    string
	Buttons []Button
}

// Terminal reports whether the step ends the wallet flow.
func (w WalletStep) Terminal() bool { return len(w.Buttons) == 0 }

// Script is the immutable dialogue content.
type Script struct {
	Blocks []Block
	Wallet []WalletStep
	Wisdom []string

	stepIndex map[string]int
}

// Block returns the block at index i. Out of range yields false.
func (s *Script) Block(i int) (Block, bool) {
	if i < 0 || i >= len(s.Blocks) {
		return Block{}, false
	}
	return s.Blocks[i], true
}

// WalletStep looks a step up by id.
func (s *Script) WalletStep(id string) (WalletStep, bool) {
	i, ok := s.stepIndex[id]
	if !ok {
		return WalletStep{}, false
	}
	return s.Wallet[i], true
}

// WalletStepIndex returns the ordinal of a step, or -1.
func (s *Script) WalletStepIndex(id string) int {
	if i, ok := s.stepIndex[id]; ok {
		return i
	}
	return -1
}

// LastBlock reports whether i is the final block.
func (s *Script) LastBlock(i int) bool {
	return i == len(s.Blocks)-1
}

func (s *Script) index() {
	s.stepIndex = make(map[string]int, len(s.Wallet))
	for i, step := range s.Wallet {
		s.stepIndex[step.ID] = i
	}
}

// WalletStepAt returns the step at ordinal i of the chain.
func (s *Script) WalletStepAt(i int) (WalletStep, bool) {
	if i < 0 || i >= len(s.Wallet) {
		return WalletStep{}, false
	}
	return s.Wallet[i], true
}
