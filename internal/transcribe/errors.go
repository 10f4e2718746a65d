package transcribe

import "fmt"

// Stage identifies where in the pipeline a request failed, so the HTTP layer
// can map failures onto distinct responses.
type Stage string

const (
	StageFetch      Stage = "fetch"
	StageDecode     Stage = "decode"
	StageTranscribe Stage = "transcribe"
)

// Error wraps a pipeline failure with the stage it occurred in.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(stage Stage, err error) *Error {
	return &Error{Stage: stage, Err: err}
}
