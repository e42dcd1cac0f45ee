// SPDX-License-Identifier: Apache-2.0

// Package migrate implements the migration execution engine: an ordered step
// registry, version path resolution over it, a cooperative advisory lock in
// the control record and a serial run loop that durably persists progress
// after every step.
//
// # Usage
//
//	st, err := mongostore.Open(ctx, mongostore.Options{
//	    URL:            "mongodb://localhost:27017",
//	    Database:       "app",
//	    InitialVersion: "0",
//	})
//	m := migrate.New(
//	    migrate.WithEncoding(version.EncodingSequence),
//	    migrate.WithStore(st),
//	    migrate.WithConn(st.Conn()),
//	    migrate.WithLogger(&logger),
//	)
//	_ = m.Add(migrate.MustStep(version.MustParse(version.EncodingSequence, "1"),
//	    "create users index", upFn, downFn))
//	err = m.Up(ctx, version.Latest)
//
// # Failure semantics
//
// Steps run strictly serially. Progress is persisted to the control record
// after each individual step, so a failure (or crash) loses at most the step
// that was in flight: the record is left at the last successfully completed
// version and a retry resumes from there. The lock is always released, on
// success and failure paths alike.
package migrate

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joomcode/errorx"
	"github.com/rs/zerolog"

	"github.com/docshift/docshift/pkg/store"
	"github.com/docshift/docshift/pkg/version"
)

type direction int

const (
	directionUp direction = iota
	directionDown
)

func (d direction) String() string {
	if d == directionDown {
		return "down"
	}
	return "up"
}

// Migrator drives a document database between registered migration versions.
// A single Migrator serializes its own runs; cross-process mutual exclusion
// comes from the control record lock.
type Migrator struct {
	mu sync.Mutex

	enc         version.Encoding
	reg         *registry
	store       store.Store
	conn        store.Conn
	logger      *zerolog.Logger
	stepTimeout time.Duration
	logIfLatest bool

	// instanceID identifies this engine in the control record's lockedBy
	// field while it holds the lock.
	instanceID string
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithEncoding selects the version encoding. Default: EncodingSemVer.
// The encoding is fixed for the lifetime of the Migrator.
func WithEncoding(enc version.Encoding) Option {
	return func(m *Migrator) { m.enc = enc }
}

// WithStore sets the control record store.
func WithStore(s store.Store) Option {
	return func(m *Migrator) { m.store = s }
}

// WithConn sets the connection handle passed to every step.
func WithConn(c store.Conn) Option {
	return func(m *Migrator) { m.conn = c }
}

// WithLogger sets the logger used by the engine and handed to steps.
func WithLogger(logger *zerolog.Logger) Option {
	return func(m *Migrator) { m.logger = logger }
}

// WithStepTimeout bounds each individual step invocation. Zero (the default)
// means unbounded. Exceeding the timeout fails the step, and thus the run,
// with TimeoutError; no cancellation is forced onto the step body beyond the
// context deadline it receives.
func WithStepTimeout(d time.Duration) Option {
	return func(m *Migrator) { m.stepTimeout = d }
}

// WithLogIfLatest controls whether an "already at version" no-op run logs a
// line. Default: true.
func WithLogIfLatest(log bool) Option {
	return func(m *Migrator) { m.logIfLatest = log }
}

// New creates a Migrator with the given options. Callers needing a shared
// instance share the returned object explicitly; there is no process-wide
// default.
func New(opts ...Option) *Migrator {
	nop := zerolog.Nop()
	m := &Migrator{
		enc:         version.EncodingSemVer,
		logger:      &nop,
		logIfLatest: true,
		instanceID:  uuid.NewString(),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.reg = newRegistry(m.enc)
	return m
}

// Add registers a migration step. Steps may be registered in any order; the
// registry keeps them sorted ascending by version. A second step at an
// already-used version fails with ValidationError.
func (m *Migrator) Add(s Step) error {
	if err := m.reg.add(s); err != nil {
		return err
	}

	m.logger.Debug().
		Str("version", s.Version().String()).
		Str("name", s.Name()).
		Msg("Registered migration step")

	return nil
}

// Encoding returns the version encoding this migrator was built with.
func (m *Migrator) Encoding() version.Encoding {
	return m.enc
}

// Migrations returns the registered steps in ascending version order,
// excluding the synthetic zero step. The slice is a copy.
func (m *Migrator) Migrations() []Step {
	return m.reg.list()
}

// Version returns the currently applied version from the control record,
// creating the record at zero if it does not exist yet.
func (m *Migrator) Version(ctx context.Context) (version.Version, error) {
	if m.store == nil {
		return version.Version{}, ConfigurationError.New("no control record store configured")
	}

	rec, err := m.store.Get(ctx)
	if err != nil {
		return version.Version{}, err
	}

	cur, err := version.Parse(m.enc, rec.Version)
	if err != nil {
		return version.Version{}, ValidationError.Wrap(err, "control record holds malformed version %q", rec.Version)
	}

	return cur, nil
}

// Up migrates forward to target, which is either a version string or
// version.Latest. The target must be at or above the current version.
func (m *Migrator) Up(ctx context.Context, target string) error {
	return m.run(ctx, directionUp, target)
}

// Down migrates backward to target, which must be a registered version or
// the zero version, at or below the current version.
func (m *Migrator) Down(ctx context.Context, target string) error {
	return m.run(ctx, directionDown, target)
}

// Reset drops all registered steps and deletes the control record together
// with the rest of its collection. Test and development teardown only.
func (m *Migrator) Reset(ctx context.Context) error {
	if m.store == nil {
		return ConfigurationError.New("no control record store configured")
	}

	m.reg.reset()
	return m.store.Reset(ctx)
}

// Close releases the external connection. force requests an immediate
// teardown without draining in-flight operations.
func (m *Migrator) Close(ctx context.Context, force bool) error {
	if m.conn == nil {
		return nil
	}
	return m.conn.Close(ctx, force)
}

// run is the shared up/down state machine: resolve the target, acquire the
// lock, walk the step sequence persisting progress after every step, release
// the lock. Validation and configuration failures are surfaced before the
// lock is touched or any state is mutated.
func (m *Migrator) run(ctx context.Context, dir direction, target string) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store == nil || m.conn == nil {
		return ConfigurationError.New("migrator is not configured with a store and connection")
	}

	var targetV version.Version
	if dir == directionUp && target == version.Latest {
		targetV = m.reg.latest()
	} else {
		var perr error
		targetV, perr = version.Parse(m.enc, target)
		if perr != nil {
			return ValidationError.Wrap(perr, "invalid target version %q", target)
		}
	}

	if m.reg.empty() {
		m.logger.Warn().Msg("no pending migrations: registry is empty")
		return nil
	}

	// Ensure the control record exists before the conditional lock update;
	// acquisition never upserts, so it needs a record to match against.
	if _, err := m.store.Get(ctx); err != nil {
		return err
	}

	acquired, err := m.store.AcquireLock(ctx, m.instanceID)
	if err != nil {
		return err
	}
	if !acquired {
		return LockContentionError.New("migration lock is held by another run")
	}

	defer func() {
		if rerr := m.store.ReleaseLock(ctx); rerr != nil {
			m.logger.Error().Err(rerr).Msg("failed to release migration lock")
			if err == nil {
				err = rerr
			}
		}
	}()

	// Fresh read under the lock; the record is never cached across calls.
	rec, err := m.store.Get(ctx)
	if err != nil {
		return err
	}

	current, err := version.Parse(m.enc, rec.Version)
	if err != nil {
		return ValidationError.Wrap(err, "control record holds malformed version %q", rec.Version)
	}

	if current.Equal(targetV) {
		if m.logIfLatest {
			m.logger.Info().
				Str("version", current.String()).
				Msg("already at version, nothing to migrate")
		}
		return nil
	}

	startIdx, err := m.reg.findIndex(current)
	if err != nil {
		return err
	}
	endIdx, err := m.reg.findIndex(targetV)
	if err != nil {
		return err
	}

	if dir == directionUp && current.Compare(targetV) > 0 {
		return DirectionError.New("cannot migrate up from %s to lower version %s", current, targetV)
	}
	if dir == directionDown && current.Compare(targetV) < 0 {
		return DirectionError.New("cannot migrate down from %s to higher version %s", current, targetV)
	}

	m.logger.Info().
		Str("direction", dir.String()).
		Str("from", current.String()).
		Str("to", targetV.String()).
		Msg("Migrating")

	if err := m.step(ctx, dir, startIdx, endIdx); err != nil {
		return err
	}

	m.logger.Info().Str("version", targetV.String()).Msg("finished migrating")
	return nil
}

// step walks the sorted sequence one transition at a time. After each
// successful transition the control record is advanced (lock kept held) so a
// failure or crash loses at most the in-flight step. On the first failure it
// stops immediately; already-persisted progress is never rolled back.
func (m *Migrator) step(ctx context.Context, dir direction, startIdx, endIdx int) error {
	steps := m.reg.snapshot()

	next := func(i int) (from, dest Step) {
		if dir == directionUp {
			return steps[i], steps[i+1]
		}
		return steps[i], steps[i-1]
	}

	for i := startIdx; i != endIdx; {
		from, dest := next(i)

		fn := dest.up
		executing := dest
		if dir == directionDown {
			// Moving down from version X executes X's own down transform.
			fn = from.down
			executing = from
		}

		m.logger.Debug().
			Str("direction", dir.String()).
			Str("from", from.Version().String()).
			Str("to", dest.Version().String()).
			Str("name", executing.Name()).
			Msg("Executing migration step")

		if serr := m.invoke(ctx, executing, fn); serr != nil {
			m.logger.Error().
				Err(serr).
				Str("from", from.Version().String()).
				Str("to", dest.Version().String()).
				Msg("Migration step failed")

			if errorx.IsOfType(serr, TimeoutError) {
				return serr
			}
			return newStepExecutionError(serr, from.Version(), dest.Version())
		}

		if _, perr := m.store.Set(ctx, dest.Version().String(), true); perr != nil {
			return perr
		}

		m.logger.Info().
			Str("version", dest.Version().String()).
			Str("name", executing.Name()).
			Msg("Applied migration step")

		if dir == directionUp {
			i++
		} else {
			i--
		}
	}

	return nil
}

// invoke runs one step function, bounded by the configured step timeout. The
// step body receives a context carrying the deadline; whether it honours it
// is its own responsibility. On expiry the engine abandons the invocation
// and fails the run regardless.
func (m *Migrator) invoke(ctx context.Context, s Step, fn StepFunc) error {
	if m.stepTimeout <= 0 {
		return fn(ctx, m.conn, m.logger)
	}

	tctx, cancel := context.WithTimeout(ctx, m.stepTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(tctx, m.conn, m.logger)
	}()

	select {
	case err := <-done:
		return err
	case <-tctx.Done():
		if tctx.Err() == context.DeadlineExceeded {
			return TimeoutError.New("step %q at version %s exceeded timeout %s",
				s.Name(), s.Version(), m.stepTimeout)
		}
		return tctx.Err()
	}
}
