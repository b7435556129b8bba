package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedEnglish(t *testing.T) {
	s, err := Load("en")
	require.NoError(t, err)

	require.Len(t, s.Blocks, 8)
	first := s.Blocks[0]
	assert.Equal(t, 100, first.Reward)
	assert.Equal(t, 21, first.ProgressTarget)
	assert.Equal(t, "WILL_TO_FREEDOM", first.Skill)
	assert.IsType(t, NextBlockOption{}, first.Options[0])

	last := s.Blocks[7]
	assert.Equal(t, "create_wallet", last.Title)
	assert.Equal(t, 100, last.ProgressTarget)
	assert.IsType(t, StartWalletOption{}, last.Options[0])

	total := 0
	for _, b := range s.Blocks {
		total += b.Reward
	}
	assert.Greater(t, total, 1000, "block rewards are expected to exceed the clamp")
}

func TestLoad_UnknownLanguageFallsBack(t *testing.T) {
	s, err := Load("xx")
	require.NoError(t, err)
	assert.Len(t, s.Blocks, 8)
}

func TestWalletChain(t *testing.T) {
	s, err := Load("en")
	require.NoError(t, err)

	step1, ok := s.WalletStep(FirstWalletStep)
	require.True(t, ok)
	require.Len(t, step1.Buttons, 2)
	assert.IsType(t, ExternalButton{}, step1.Buttons[0])
	next, ok := step1.Buttons[1].(NextButton)
	require.True(t, ok)
	assert.Equal(t, "I already downloaded it", next.Text)
	assert.Equal(t, "step_2", next.Target)

	step3, ok := s.WalletStep("step_3")
	require.True(t, ok)
	deeplink, ok := step3.Buttons[0].(DeeplinkButton)
	require.True(t, ok)
	assert.Contains(t, deeplink.URI, "lightning:")

	step4, ok := s.WalletStep("step_4")
	require.True(t, ok)
	assert.True(t, step4.Terminal())
	assert.Equal(t, 3, s.WalletStepIndex("step_4"))
	assert.Equal(t, -1, s.WalletStepIndex("nope"))
}

func TestLookupsOutOfRange(t *testing.T) {
	s, err := Load("en")
	require.NoError(t, err)

	_, ok := s.Block(-1)
	assert.False(t, ok)
	_, ok = s.Block(len(s.Blocks))
	assert.False(t, ok)
	_, ok = s.WalletStep("step_99")
	assert.False(t, ok)
}

func TestIntermediateAnswersShareContinuation(t *testing.T) {
	s, err := Load("en")
	require.NoError(t, err)

	b := s.Blocks[1]
	require.NotNil(t, b.Intermediate)
	require.Len(t, b.Intermediate.Options, 2)
	for _, o := range b.Intermediate.Options {
		c, ok := o.(ContinueOption)
		require.True(t, ok)
		assert.Empty(t, c.Continuation)
	}
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown action": `
blocks:
  - text: a
    options: [{action: fly, text: x}]
wisdom: [w]`,
		"conditional without text": `
blocks:
  - text: a
    options: [{action: conditional, text: x}]
wisdom: [w]`,
		"decreasing progress": `
blocks:
  - {text: a, progress: 50, options: [{action: next_block, text: x}]}
  - {text: b, progress: 40, options: [{action: next_block, text: x}]}
wisdom: [w]`,
		"empty wisdom": `
blocks:
  - {text: a, options: [{action: next_block, text: x}]}`,
		"dangling wallet target": `
blocks:
  - {text: a, options: [{action: start_wallet, text: x}]}
wallet:
  - id: step_1
    text: go
    buttons: [{kind: next, text: n, target: step_9}]
wisdom: [w]`,
		"wallet cycle": `
blocks:
  - {text: a, options: [{action: start_wallet, text: x}]}
wallet:
  - {id: step_1, text: a, buttons: [{kind: next, text: n, target: step_2}]}
  - {id: step_2, text: b, buttons: [{kind: next, text: n, target: step_1}]}
wisdom: [w]`,
		"start wallet without wallet": `
blocks:
  - {text: a, options: [{action: start_wallet, text: x}]}
wisdom: [w]`,
		"deeplink without lightning scheme": `
blocks:
  - {text: a, options: [{action: start_wallet, text: x}]}
wallet:
  - {id: step_1, text: a, buttons: [{kind: deeplink, text: d, uri: "https://x", target: step_2}]}
  - {id: step_2, text: b}
wisdom: [w]`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}
