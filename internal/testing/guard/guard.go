// Package guard flips the process into test mode when imported for side effects, so
// binaries under test skip dialing Redis and the invoice API.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		setDefault("WORKLIST_TEST_MODE", "1")
		setDefault("SESSION_SECRET", "test-session-secret")
		setDefault("CSRF_SECRET", "test-csrf-secret")
	})
}

func setDefault(key, value string) {
	if os.Getenv(key) == "" {
		_ = os.Setenv(key, value)
	}
}
