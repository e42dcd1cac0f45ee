// SPDX-License-Identifier: Apache-2.0

package fsx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathExists(t *testing.T) {
	t.Run("existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "f")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

		fi, exists, err := PathExists(path)
		require.NoError(t, err)
		assert.True(t, exists)
		assert.False(t, fi.IsDir())
	})

	t.Run("missing path", func(t *testing.T) {
		_, exists, err := PathExists(filepath.Join(t.TempDir(), "absent"))
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestEnsureDirectory(t *testing.T) {
	t.Run("creates nested directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "a", "b", "c")
		require.NoError(t, EnsureDirectory(path, 0o750))
		assert.DirExists(t, path)
	})

	t.Run("idempotent on existing directory", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, EnsureDirectory(dir, 0o750))
	})

	t.Run("rejects existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "f")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
		require.Error(t, EnsureDirectory(path, 0o750))
	})
}
