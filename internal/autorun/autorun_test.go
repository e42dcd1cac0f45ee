// SPDX-License-Identifier: Apache-2.0

package autorun

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docshift/docshift/pkg/migrate"
	"github.com/docshift/docshift/pkg/store"
	"github.com/docshift/docshift/pkg/store/memstore"
	"github.com/docshift/docshift/pkg/version"
)

// callRecorder captures the order of step invocations.
type callRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *callRecorder) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *callRecorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

// newTestMigrator builds a sequence-encoded migrator over an in-memory store
// with recording steps at versions 1..3.
func newTestMigrator(t *testing.T) (*migrate.Migrator, *callRecorder) {
	t.Helper()

	logger := zerolog.Nop()
	m := migrate.New(
		migrate.WithEncoding(version.EncodingSequence),
		migrate.WithStore(memstore.New("0")),
		migrate.WithConn(memstore.Conn{}),
		migrate.WithLogger(&logger),
	)

	rec := &callRecorder{}
	for _, vs := range []string{"1", "2", "3"} {
		vs := vs
		v, err := version.Parse(version.EncodingSequence, vs)
		require.NoError(t, err)

		s, err := migrate.NewStep(v, "step-"+vs,
			func(context.Context, store.Conn, *zerolog.Logger) error {
				rec.record("up:" + vs)
				return nil
			},
			func(context.Context, store.Conn, *zerolog.Logger) error {
				rec.record("down:" + vs)
				return nil
			})
		require.NoError(t, err)
		require.NoError(t, m.Add(s))
	}

	return m, rec
}

func TestRun_NoTargetIsNoOp(t *testing.T) {
	m, rec := newTestMigrator(t)

	ran, err := Run(context.Background(), m)
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Empty(t, rec.list())
}

func TestRun_MigratesToTarget(t *testing.T) {
	t.Setenv(EnvTarget, "2")

	m, rec := newTestMigrator(t)

	ran, err := Run(context.Background(), m)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, []string{"up:1", "up:2"}, rec.list())

	cur, err := m.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2", cur.String())
}

func TestRun_MigratesToLatest(t *testing.T) {
	t.Setenv(EnvTarget, version.Latest)

	m, rec := newTestMigrator(t)

	ran, err := Run(context.Background(), m)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, []string{"up:1", "up:2", "up:3"}, rec.list())
}

func TestRun_AlreadyAtTargetWithoutRerun(t *testing.T) {
	t.Setenv(EnvTarget, "3")

	m, rec := newTestMigrator(t)
	require.NoError(t, m.Up(context.Background(), "3"))
	before := len(rec.list())

	ran, err := Run(context.Background(), m)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Len(t, rec.list(), before, "no steps run when already at target")
}

func TestRun_RerunReappliesTargetStep(t *testing.T) {
	t.Setenv(EnvTarget, "3")
	t.Setenv(EnvRerun, "true")

	m, rec := newTestMigrator(t)
	require.NoError(t, m.Up(context.Background(), "3"))

	ran, err := Run(context.Background(), m)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, []string{"up:1", "up:2", "up:3", "down:3", "up:3"}, rec.list())

	cur, err := m.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3", cur.String())
}

func TestRun_RerunBelowTargetJustMigratesUp(t *testing.T) {
	t.Setenv(EnvTarget, "3")
	t.Setenv(EnvRerun, "true")

	m, rec := newTestMigrator(t)
	require.NoError(t, m.Up(context.Background(), "1"))

	ran, err := Run(context.Background(), m)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, []string{"up:1", "up:2", "up:3"}, rec.list())
}

func TestRun_RerunFirstStepRollsBackToZero(t *testing.T) {
	t.Setenv(EnvTarget, "1")
	t.Setenv(EnvRerun, "true")

	m, rec := newTestMigrator(t)
	require.NoError(t, m.Up(context.Background(), "1"))

	ran, err := Run(context.Background(), m)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, []string{"up:1", "down:1", "up:1"}, rec.list())
}

func TestRun_InvalidTarget(t *testing.T) {
	t.Setenv(EnvTarget, "not-a-version")

	m, _ := newTestMigrator(t)

	ran, err := Run(context.Background(), m)
	require.Error(t, err)
	assert.True(t, ran)
}
