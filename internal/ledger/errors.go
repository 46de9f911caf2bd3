package ledger

import "fmt"

// StepError reports which step of a multi-location sequence failed.
type StepError struct {
	Index int
	Step  Step
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("ledger: step %d (warehouse %s, lot %s, delta %d): %v",
		e.Index, e.Step.WarehouseID, e.Step.LotID, e.Step.Delta, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
