package source

import "fmt"

// TransientError marks a transport failure that survived the retry
// budget. It aborts the run; the ledger and prior snapshots stay
// untouched.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}
