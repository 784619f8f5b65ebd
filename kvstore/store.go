// Package kvstore is the durable client-side key/value state: credentials,
// profile snapshot and user preferences survive restarts through it.
package kvstore

// Store is a flat string key/value store.
type Store interface {
	// Get returns the value and whether the key exists.
	Get(key string) (string, bool, error)

	// Set creates or replaces the value for key.
	Set(key, value string) error

	// Delete removes the keys. Missing keys are not an error.
	Delete(keys ...string) error
}
