// SPDX-License-Identifier: Apache-2.0

package store

import "github.com/joomcode/errorx"

var (
	ErrNamespace = errorx.NewNamespace("store")

	// StorageError wraps failures of the underlying database driver.
	StorageError = ErrNamespace.NewType("storage")

	// NotAcknowledgedError is raised when a write completes without the store
	// acknowledging it, so the control record state is unknown.
	NotAcknowledgedError = ErrNamespace.NewType("not_acknowledged")
)
