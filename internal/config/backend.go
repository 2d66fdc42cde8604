package config

// ConfigBackend abstracts platform-specific key/value storage.
// macOS uses UserDefaults (via `defaults` CLI), other platforms a TOML file.
// The same method set serves as the shared counter store (counter.Backend).
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}
