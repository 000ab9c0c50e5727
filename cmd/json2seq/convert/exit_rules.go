package convert

import (
	"context"
	"errors"

	"github.com/flarebyte/json2seq/internal/stage"
)

const (
	exitCodeSuccess     = 0
	exitCodeError       = 1
	exitCodeConverting  = 2
	exitCodeInterrupted = 130
)

type runExitError struct {
	code int
	err  error
}

func (e runExitError) Error() string { return e.err.Error() }
func (e runExitError) ExitCode() int { return e.code }
func (e runExitError) Unwrap() error { return e.err }

var errInterrupted = errors.New("interrupted")

// exitCode maps a run error to the process status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitCodeSuccess
	case stage.IsConverting(err):
		return exitCodeConverting
	case errors.Is(err, context.Canceled):
		return exitCodeInterrupted
	}
	return exitCodeError
}

// evaluateRunExit attaches the exit code to err.
func evaluateRunExit(err error) error {
	if err == nil {
		return nil
	}
	code := exitCode(err)
	if code == exitCodeInterrupted {
		err = errInterrupted
	}
	return runExitError{code: code, err: err}
}
