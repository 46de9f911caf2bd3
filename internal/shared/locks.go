package shared

import "fmt"

// ReconcileLockKey builds the redis key that serialises reconciliation passes.
func ReconcileLockKey(pass string) string {
	return fmt.Sprintf("ledger:reconcile:%s:lock", pass)
}
