package script

// Option is a user-selectable branch. Each action is its own type and
// carries only the fields that action uses.
type Option interface {
	Label() string
	option()
}

// ContinueOption plays a continuation, then shows the block's options.
// An empty Continuation falls back to the block's continuation text.
type ContinueOption struct {
	Text         string
	Continuation string
}

// NextBlockOption completes the block and moves on.
type NextBlockOption struct {
	Text            string
	ConditionalText string
}

// GoBackOption leaves the terminal.
type GoBackOption struct {
	Text            string
	ConditionalText string
}

// RestartOption rewinds to block 0 with the restart reward and progress.
type RestartOption struct {
	Text            string
	ConditionalText string
}

// ConditionalOption plays extra text, then offers FollowUps (or the block's
// options again when there are none).
type ConditionalOption struct {
	Text            string
	ConditionalText string
	FollowUps       []Option
}

// StartWalletOption completes the block and enters the wallet flow.
type StartWalletOption struct {
	Text string
}

func (o ContinueOption) Label() string    { return o.Text }
func (o NextBlockOption) Label() string   { return o.Text }
func (o GoBackOption) Label() string      { return o.Text }
func (o RestartOption) Label() string     { return o.Text }
func (o ConditionalOption) Label() string { return o.Text }
func (o StartWalletOption) Label() string { return o.Text }

func (ContinueOption) option()    {}
func (NextBlockOption) option()   {}
func (GoBackOption) option()      {}
func (RestartOption) option()     {}
func (ConditionalOption) option() {}
func (StartWalletOption) option() {}

// Button is a wallet step action.
type Button interface {
	Label() string
	button()
}

// NextButton advances to Target after the pacing delay.
type NextButton struct {
	Text   string
	Target string
}

// ExternalButton opens URL and stays on the step.
type ExternalButton struct {
	Text string
	URL  string
}

// DeeplinkButton hands a lightning: URI to the wallet app and, when Target
// is set, resumes there once the user comes back.
type DeeplinkButton struct {
	Text   string
	URI    string
	Target string
}

func (b NextButton) Label() string     { return b.Text }
func (b ExternalButton) Label() string { return b.Text }
func (b DeeplinkButton) Label() string { return b.Text }

func (NextButton) button()     {}
func (ExternalButton) button() {}
func (DeeplinkButton) button() {}
