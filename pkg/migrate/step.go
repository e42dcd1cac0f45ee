// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/docshift/docshift/pkg/store"
	"github.com/docshift/docshift/pkg/version"
)

// StepFunc is one direction of a migration step. It receives the shared
// connection handle and the engine logger. A step wanting transactional
// atomicity must start its own transaction or session on the handle; the
// engine never wraps step execution in one.
type StepFunc func(ctx context.Context, conn store.Conn, logger *zerolog.Logger) error

// Step is an immutable registered migration: a version paired with a forward
// and a backward transform. Invariants are enforced once at construction;
// there is nothing to mutate afterwards.
type Step struct {
	version version.Version
	name    string
	up      StepFunc
	down    StepFunc
}

// NewStep builds a migration step. The version must be strictly greater than
// the reserved zero version and both transforms must be present; violations
// fail with ValidationError. name is optional display text.
func NewStep(v version.Version, name string, up, down StepFunc) (Step, error) {
	if up == nil {
		return Step{}, ValidationError.New("step %q at version %s has no up function", name, v)
	}
	if down == nil {
		return Step{}, ValidationError.New("step %q at version %s has no down function", name, v)
	}
	if v.IsZero() {
		return Step{}, ValidationError.New("version %s is reserved for the pristine state", v)
	}

	return Step{version: v, name: name, up: up, down: down}, nil
}

// MustStep is a NewStep that panics on error, for static migration tables.
func MustStep(v version.Version, name string, up, down StepFunc) Step {
	s, err := NewStep(v, name, up, down)
	if err != nil {
		panic(err)
	}
	return s
}

// Version returns the step's version.
func (s Step) Version() version.Version { return s.version }

// Name returns the optional display name.
func (s Step) Name() string { return s.name }

// valid reports whether the step was built through NewStep. A zero Step
// value fails this check.
func (s Step) valid() bool {
	return s.up != nil && s.down != nil
}

func nopStepFunc(context.Context, store.Conn, *zerolog.Logger) error { return nil }

// zeroStep is the synthetic pristine step pinned at registry index 0.
func zeroStep(enc version.Encoding) Step {
	return Step{
		version: version.Zero(enc),
		name:    "pristine",
		up:      nopStepFunc,
		down:    nopStepFunc,
	}
}
