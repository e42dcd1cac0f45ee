// SPDX-License-Identifier: Apache-2.0

// Package exit maps errors to POSIX process exit codes.
package exit

import (
	"fmt"
	"os"

	"github.com/joomcode/errorx"

	"github.com/docshift/docshift/pkg/migrate"
)

type Code int

func (ec Code) String() string {
	return fmt.Sprintf("%d", ec)
}

func (ec Code) Int() int {
	return int(ec)
}

func (ec Code) TerminateProcess() {
	os.Exit(int(ec))
}

// POSIX standard exit code definitions.
const (
	NormalTermination  Code = 0
	GeneralError       Code = 1
	UsageError         Code = 64
	DataFormatError    Code = 65
	MissingInputError  Code = 66
	ServiceUnavailable Code = 69
	TemporaryFailure   Code = 75
	ConfigurationError Code = 78
)

// FromError maps an error to the exit code the process should terminate
// with. Lock contention maps to TemporaryFailure so supervisors treat it as
// retryable.
func FromError(err error) Code {
	switch {
	case err == nil:
		return NormalTermination
	case errorx.IsOfType(err, migrate.ValidationError):
		return DataFormatError
	case errorx.IsOfType(err, migrate.LockContentionError):
		return TemporaryFailure
	case errorx.IsOfType(err, migrate.ConfigurationError):
		return ConfigurationError
	case errorx.IsOfType(err, errorx.IllegalArgument):
		return UsageError
	case errorx.HasTrait(err, errorx.NotFound()):
		return MissingInputError
	default:
		return GeneralError
	}
}
