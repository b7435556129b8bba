package script

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidScript wraps every validation failure.
var ErrInvalidScript = errors.New("invalid script")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidScript, fmt.Sprintf(format, args...))
}

// Validate checks the structural invariants the engine relies on.
func (s *Script) Validate() error {
	if len(s.Blocks) == 0 {
		return invalid("no blocks")
	}
	prev := 0
	for i, b := range s.Blocks {
		if b.Index != i {
			return invalid("block %d has index %d", i, b.Index)
		}
		if b.Text == "" {
			return invalid("block %d has no text", i)
		}
		if len(b.Options) == 0 {
			return invalid("block %d has no options", i)
		}
		if b.Reward < 0 {
			return invalid("block %d has negative reward", i)
		}
		if b.ProgressTarget < prev || b.ProgressTarget > 100 {
			return invalid("block %d progress target %d breaks monotonic 0..100", i, b.ProgressTarget)
		}
		prev = b.ProgressTarget
		if b.Intermediate != nil && len(b.Intermediate.Options) == 0 {
			return invalid("block %d intermediate question has no options", i)
		}
	}
	if len(s.Wisdom) == 0 {
		return invalid("empty wisdom pool")
	}
	if len(s.Wallet) > 0 {
		return s.validateWallet()
	}
	for _, b := range s.Blocks {
		for _, o := range b.Options {
			if _, ok := o.(StartWalletOption); ok {
				return invalid("block %d starts a wallet flow that does not exist", b.Index)
			}
		}
	}
	return nil
}

// validateWallet: the chain starts at FirstWalletStep, each step points at
// the next one and exactly one terminal step ends it.
func (s *Script) validateWallet() error {
	if _, ok := s.stepIndex[FirstWalletStep]; !ok {
		return invalid("wallet flow has no %s", FirstWalletStep)
	}
	if len(s.stepIndex) != len(s.Wallet) {
		return invalid("duplicate wallet step ids")
	}

	visited := make(map[string]bool, len(s.Wallet))
	id := FirstWalletStep
	for {
		if visited[id] {
			return invalid("wallet flow cycles at %s", id)
		}
		visited[id] = true
		step := s.Wallet[s.stepIndex[id]]
		if step.Terminal() {
			break
		}

		next := ""
		for _, b := range step.Buttons {
			var target string
			switch btn := b.(type) {
			case NextButton:
				target = btn.Target
				if target == "" {
					return invalid("next button on %s has no target", id)
				}
			case DeeplinkButton:
				target = btn.Target
				if !strings.HasPrefix(strings.ToLower(btn.URI), "lightning:") {
					return invalid("deeplink on %s is not a lightning: URI", id)
				}
			case ExternalButton:
				if u, err := url.Parse(btn.URL); err != nil || u.Scheme == "" {
					return invalid("external button on %s has bad url %q", id, btn.URL)
				}
			}
			if target == "" {
				continue
			}
			if _, ok := s.stepIndex[target]; !ok {
				return invalid("step %s points at unknown step %s", id, target)
			}
			if next != "" && next != target {
				return invalid("step %s branches to %s and %s", id, next, target)
			}
			next = target
		}
		if next == "" {
			return invalid("step %s has buttons but no way forward", id)
		}
		id = next
	}
	if len(visited) != len(s.Wallet) {
		return invalid("wallet steps unreachable from %s", FirstWalletStep)
	}
	return nil
}
