// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/docshift/docshift/cmd/docshift/commands"
	"github.com/docshift/docshift/pkg/exit"
)

func main() {
	traceId := uuid.NewString()
	ctx := context.WithValue(context.Background(), "traceId", traceId)
	if err := commands.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		exit.FromError(err).TerminateProcess()
	}
}
