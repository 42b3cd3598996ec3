package domain

import (
	"errors"
	"fmt"
)

// Op names the pipeline operation an error originated from.
type Op string

const (
	OpExtract    Op = "extract"
	OpConcat     Op = "concat"
	OpProbe      Op = "probe"
	OpNormalize  Op = "normalize"
	OpSynthesize Op = "synthesize"
	OpClone      Op = "clone"
	OpSilence    Op = "silence"
	OpFetch      Op = "fetch"
	OpTranscribe Op = "transcribe"
	OpTranslate  Op = "translate"
)

// ErrProbeTimeout is reported when the prober gives up waiting on the
// probing process.
var ErrProbeTimeout = errors.New("probe timed out")

// StageError is a pipeline failure tagged with the operation that
// produced it. Callers decide fatality from the Op, not the message.
type StageError struct {
	Op     Op
	Reason string
	Err    error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Fail builds a StageError.
func Fail(op Op, reason string, err error) *StageError {
	return &StageError{Op: op, Reason: reason, Err: err}
}

// OpOf extracts the operation tag from an error chain, or "" if the
// error did not come from a pipeline stage.
func OpOf(err error) Op {
	var se *StageError
	if errors.As(err, &se) {
		return se.Op
	}
	return ""
}
