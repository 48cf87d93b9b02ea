package scenario

import (
	"errors"
	"fmt"

	"clitest/internal/harness"
)

// ErrUnexpectedSuccess is returned when a step expected a non-zero exit code but got 0.
var ErrUnexpectedSuccess = errors.New("unexpected success")

// UnexpectedSuccessError reports a command that should have failed.
type UnexpectedSuccessError struct {
	Command harness.Command
	Stdout  string
}

func (e *UnexpectedSuccessError) Error() string {
	return fmt.Sprintf("command %q was expected to fail but exited with code 0", e.Command.String())
}

func (e *UnexpectedSuccessError) Is(target error) bool { return target == ErrUnexpectedSuccess }

// Check applies the expectation to a result: exit status first, then stdout contains and
// not-contains, then stderr contains and not-contains. The first failing check is returned.
func (e Expectation) Check(res *harness.ExecutionResult) error {
	if e.WantSuccess() {
		if err := res.AssertSuccess(); err != nil {
			return err
		}
	} else if res.Success() {
		return &UnexpectedSuccessError{Command: res.Command(), Stdout: res.Stdout()}
	}

	if err := res.OutContainsNormalizedMany(e.StdoutContains...); err != nil {
		return err
	}
	if err := res.OutNotContains(e.StdoutNotContains...); err != nil {
		return err
	}
	if err := res.OutErrContainsNormalizedMany(e.StderrContains...); err != nil {
		return err
	}
	return res.OutErrNotContains(e.StderrNotContains...)
}
