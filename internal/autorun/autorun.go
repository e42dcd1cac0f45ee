// SPDX-License-Identifier: Apache-2.0

// Package autorun triggers a migration run from environment variables at
// process start. Services that embed the engine call Run once during boot;
// without DOCSHIFT_MIGRATE_TARGET set it is a no-op, so the same binary works
// in deployments that migrate out of band.
package autorun

import (
	"context"

	"github.com/spf13/viper"

	"github.com/docshift/docshift/pkg/migrate"
	"github.com/docshift/docshift/pkg/version"
)

// Environment variables read by Run.
const (
	// EnvTarget names the version to migrate up to, or "latest".
	EnvTarget = "DOCSHIFT_MIGRATE_TARGET"
	// EnvRerun, when truthy and the store is already at the target, rolls the
	// target step back and applies it again.
	EnvRerun = "DOCSHIFT_MIGRATE_RERUN"
)

// Run migrates m up to the version named by DOCSHIFT_MIGRATE_TARGET. It
// returns whether a run was attempted: (false, nil) means the variable was
// unset and nothing was done.
//
// With DOCSHIFT_MIGRATE_RERUN set, a store already at the target is first
// migrated down one registered version so the target step executes again.
func Run(ctx context.Context, m *migrate.Migrator) (bool, error) {
	v := viper.New()
	if err := v.BindEnv("target", EnvTarget); err != nil {
		return false, err
	}
	if err := v.BindEnv("rerun", EnvRerun); err != nil {
		return false, err
	}

	target := v.GetString("target")
	if target == "" {
		return false, nil
	}

	if v.GetBool("rerun") {
		if err := rollbackIfAtTarget(ctx, m, target); err != nil {
			return true, err
		}
	}

	return true, m.Up(ctx, target)
}

// rollbackIfAtTarget migrates down to the version preceding target when the
// control record already sits at target, so the following Up re-executes the
// target step. Any other current version is left alone.
func rollbackIfAtTarget(ctx context.Context, m *migrate.Migrator, target string) error {
	targetV, err := resolveTarget(m, target)
	if err != nil {
		return err
	}

	current, err := m.Version(ctx)
	if err != nil {
		return err
	}
	if !current.Equal(targetV) {
		return nil
	}

	prev := version.Zero(m.Encoding())
	for _, s := range m.Migrations() {
		if s.Version().Compare(targetV) >= 0 {
			break
		}
		prev = s.Version()
	}

	return m.Down(ctx, prev.String())
}

func resolveTarget(m *migrate.Migrator, target string) (version.Version, error) {
	if target == version.Latest {
		steps := m.Migrations()
		if len(steps) == 0 {
			return version.Zero(m.Encoding()), nil
		}
		return steps[len(steps)-1].Version(), nil
	}
	return version.Parse(m.Encoding(), target)
}
