// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"github.com/joomcode/errorx"

	"github.com/docshift/docshift/pkg/version"
)

var (
	ErrNamespace = errorx.NewNamespace("migrate")

	// ValidationError covers malformed versions, steps missing up/down
	// functions, use of the reserved zero version and duplicate registrations.
	ValidationError = ErrNamespace.NewType("validation")

	// NotFoundError is raised when a requested version is not registered.
	NotFoundError = ErrNamespace.NewType("not_found", errorx.NotFound())

	// DirectionError is raised when the target lies on the wrong side of the
	// current version for the requested direction.
	DirectionError = ErrNamespace.NewType("direction")

	// ConfigurationError is raised when the engine is used before a store and
	// connection have been configured.
	ConfigurationError = ErrNamespace.NewType("configuration")

	// TimeoutError is raised when a step exceeds the configured step timeout.
	TimeoutError = ErrNamespace.NewType("timeout", errorx.Timeout())

	// StepExecutionError wraps a failure inside a step's own up or down
	// function, annotated with the source and destination versions.
	StepExecutionError = ErrNamespace.NewType("step_execution")

	// LockContentionError is raised when the migration lock is already held
	// by another run. See DESIGN.md for the rationale of surfacing contention
	// as an error instead of a silent no-op.
	LockContentionError = ErrNamespace.NewType("lock_contention")

	fromVersionProperty = errorx.RegisterPrintableProperty("fromVersion")
	toVersionProperty   = errorx.RegisterPrintableProperty("toVersion")
)

func newStepExecutionError(cause error, from, to version.Version) *errorx.Error {
	return StepExecutionError.Wrap(cause, "migration step from %s to %s failed", from, to).
		WithProperty(fromVersionProperty, from.String()).
		WithProperty(toVersionProperty, to.String())
}
