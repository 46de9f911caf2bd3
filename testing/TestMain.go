package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

// ensureTestMode keeps imported packages from reaching real infrastructure.
func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("LOTLEDGER_TEST_MODE", "1")
		if os.Getenv("INVOICE_PROVIDER_URL") == "" {
			_ = os.Setenv("INVOICE_PROVIDER_URL", "http://127.0.0.1:0")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
