// SPDX-License-Identifier: Apache-2.0

package config

import "github.com/joomcode/errorx"

var (
	ErrNamespace  = errorx.NewNamespace("config")
	NotFoundError = ErrNamespace.NewType("not_found", errorx.NotFound())
	InvalidError  = ErrNamespace.NewType("invalid")
)
