package counter

// Keys used in the shared store.
const (
	CounterKey  = "counter"
	SettingsKey = "settings"
)

// Backend is the shared key-value store both processes read and write.
// A write that returns nil must be visible to a subsequent read from any
// process. Implemented by storage.SQLite, storage.Memory and the macOS
// defaults backend in the config package.
type Backend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}

// Refresher asks every observer of the store to re-read it. It carries no
// payload.
type Refresher interface {
	NotifyRefreshNeeded()
}

// FeedbackKind identifies a cosmetic feedback channel.
type FeedbackKind string

const (
	FeedbackHaptic FeedbackKind = "haptic"
	FeedbackSound  FeedbackKind = "sound"
)

// Feedback plays cosmetic feedback after a user-initiated change. Best effort.
type Feedback interface {
	NotifyFeedback(kind FeedbackKind)
}

type nopRefresher struct{}

func (nopRefresher) NotifyRefreshNeeded() {}

type nopFeedback struct{}

func (nopFeedback) NotifyFeedback(FeedbackKind) {}
