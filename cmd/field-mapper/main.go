// Package main provides the CLI entrypoint for field-mapper.
//
// field-mapper resolves loosely structured source data onto a
// manufacturer's enrollment form:
//   - resolve maps a JSON payload onto a template and reports validation
//   - score prints the similarity of two field names
//   - rules check validates a manufacturer rules file
//   - audit lists the audit trail and learned mappings of a template
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
