// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"sort"
	"sync"

	"github.com/docshift/docshift/pkg/version"
)

// registry holds the registered steps sorted ascending by version. Index 0 is
// always the synthetic zero step representing the pristine state.
//
// Duplicate versions are rejected at add time. The upstream behaviour this
// replaces sorted duplicates and silently resolved paths through whichever
// entry sorted first; rejecting them outright closes that latent bug class.
type registry struct {
	mu    sync.RWMutex
	enc   version.Encoding
	steps []Step
}

func newRegistry(enc version.Encoding) *registry {
	return &registry{
		enc:   enc,
		steps: []Step{zeroStep(enc)},
	}
}

// add validates the step, appends it and re-sorts. Registries stay small
// (tens to low hundreds of entries), so the re-sort cost is irrelevant.
func (r *registry) add(s Step) error {
	if !s.valid() {
		return ValidationError.New("step at version %s was not built with NewStep", s.version)
	}
	if s.version.IsZero() {
		return ValidationError.New("version %s is reserved for the pristine state", s.version)
	}
	if s.version.Encoding() != r.enc {
		return ValidationError.New("step version %s uses encoding %s, registry uses %s",
			s.version, s.version.Encoding(), r.enc)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.steps {
		if existing.version.Equal(s.version) {
			return ValidationError.New("a step at version %s is already registered", s.version)
		}
	}

	r.steps = append(r.steps, s)
	sort.Slice(r.steps, func(i, j int) bool {
		return r.steps[i].version.Less(r.steps[j].version)
	})

	return nil
}

// list returns a copy of the registered steps in ascending version order,
// excluding the synthetic zero step.
func (r *registry) list() []Step {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Step, len(r.steps)-1)
	copy(out, r.steps[1:])
	return out
}

// snapshot returns a copy of the full sorted sequence including the zero
// step, for use by the run loop.
func (r *registry) snapshot() []Step {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Step, len(r.steps))
	copy(out, r.steps)
	return out
}

// reset drops everything except the synthetic zero step.
func (r *registry) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.steps = []Step{zeroStep(r.enc)}
}

// empty reports whether no real steps are registered.
func (r *registry) empty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.steps) == 1
}

// latest returns the highest registered version; the zero version when the
// registry is empty.
func (r *registry) latest() version.Version {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.steps[len(r.steps)-1].version
}

// findIndex returns the position of the exact version in the sorted sequence.
// This is deliberately exact-match: callers must request a version that was
// registered, or zero.
func (r *registry) findIndex(v version.Version) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i, s := range r.steps {
		if s.version.Equal(v) {
			return i, nil
		}
	}

	return 0, NotFoundError.New("version %s is not registered", v)
}
