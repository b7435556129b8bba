// Package state holds the progression types shared by the engine, the
// typewriter and the persistence bridge.
package state

import "time"

// Sender identifies who produced a transcript line.
type Sender string

const (
	SenderVoice  Sender = "voice"
	SenderUser   Sender = "user"
	SenderSystem Sender = "system"
)

// Message is one completed transcript line.
type Message struct {
	Text   string `json:"text"`
	Sender Sender `json:"sender"`
}

// Module ids reported in the backend mirror.
const (
	ModuleTerminal = "freedom_terminal"
	ModuleWallet   = "wallet_setup"
)

const (
	MaxReward   = 1000
	MaxProgress = 100

	// Values applied by the restart option. A fresh session starts at zero.
	RestartReward   = 200
	RestartProgress = 20
)

// Snapshot is the persisted subset of the progression state.
type Snapshot struct {
	BlockIndex   int       `json:"blockIndex"`
	WalletMode   bool      `json:"walletMode"`
	WalletStepID string    `json:"walletStepId,omitempty"`
	RewardTotal  int       `json:"rewardTotal"`
	Progress     int       `json:"progress"`
	Messages     []Message `json:"-"`
	SavedAt      time.Time `json:"savedAt"`
}

// Summary is the reduced progress mirror sent to the backend.
type Summary struct {
	ModuleID    string
	StepIndex   int
	RewardTotal int
	Progress    int
}

// ClampReward keeps a reward total within [0, MaxReward].
func ClampReward(v int) int {
	return min(max(v, 0), MaxReward)
}

// ClampProgress keeps a progress value within [0, MaxProgress].
func ClampProgress(v int) int {
	return min(max(v, 0), MaxProgress)
}
