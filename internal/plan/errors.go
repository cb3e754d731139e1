package plan

import (
	"errors"
	"fmt"
)

// ErrNoValidCandidates is returned when every oracle candidate was discarded
// by filtering. The run aborts and nothing is persisted.
var ErrNoValidCandidates = errors.New("no valid insertion candidates after filtering")

// OracleError marks a failed or malformed external AI call. Stage is the
// oracle operation that failed (transcribe, describe, propose).
type OracleError struct {
	Stage string
	Err   error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("oracle %s failed: %v", e.Stage, e.Err)
}

func (e *OracleError) Unwrap() error {
	return e.Err
}
