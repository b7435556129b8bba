package progression

import "sats-terminal/internal/state"

// Persister is the only way the engine touches storage.
type Persister interface {
	Save(snap state.Snapshot)
	SaveWallet(snap state.Snapshot)
	ClearTranscript()
	MarkSatsClaimed()
	ResetClaim()
	Mirror(summary state.Summary)
}

// SkillGranter grants achievement keys. Repeated grants are no-ops on the
// receiving side.
type SkillGranter interface {
	GrantSkill(key string)
}

type Tracker interface {
	Track(event string)
}

// Navigator hands a URL or payment URI to the outside world.
type Navigator interface {
	Open(uri string) error
}

// Rand picks wisdom lines. *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}
