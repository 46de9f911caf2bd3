package app

import (
	"os"
	"strconv"
	"sync"
	"sync/atomic"
)

// TestModeEnv makes cmd/lotledger and cmd/worker exit before dialing
// Postgres, Redis or the e-invoice provider. The testing package sets it.
const TestModeEnv = "LOTLEDGER_TEST_MODE"

var testMode struct {
	once sync.Once
	on   atomic.Bool
}

// InTestMode reports whether TestModeEnv was set to a true value when first
// checked or at the last RefreshTestMode.
func InTestMode() bool {
	testMode.once.Do(func() { RefreshTestMode() })
	return testMode.on.Load()
}

// RefreshTestMode re-reads TestModeEnv. Unparseable values count as false.
func RefreshTestMode() bool {
	on, err := strconv.ParseBool(os.Getenv(TestModeEnv))
	on = on && err == nil
	testMode.on.Store(on)
	return on
}
