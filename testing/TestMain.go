// Package testing forces test-safe configuration for every package that
// imports it: the in-memory ledger store and no external Redis.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("LEDGER_TEST_MODE", "1")
		_ = os.Setenv("LEDGER_STORE", "memory")
		_ = os.Unsetenv("REDIS_ADDR")
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
