// SPDX-License-Identifier: Apache-2.0

// Package fsx holds small filesystem helpers shared by the file-backed store
// and the rolling log writer.
package fsx

import (
	"os"

	"github.com/pkg/errors"
)

// PathExists determines if the path exists. It does not follow symlinks.
func PathExists(path string) (os.FileInfo, bool, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "failed to stat %s", path)
	}

	return fi, true, nil
}

// EnsureDirectory creates the directory at path, parents included. An
// existing directory is left alone; an existing non-directory is an error.
func EnsureDirectory(path string, perm os.FileMode) error {
	fi, exists, err := PathExists(path)
	if err != nil {
		return err
	}

	if exists {
		if !fi.IsDir() {
			return errors.Errorf("path %s exists and is not a directory", path)
		}
		return nil
	}

	if err := os.MkdirAll(path, perm); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", path)
	}

	return nil
}
