package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"hearingcap/internal/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "hearingcap: %v\n", err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps command errors to process status: 2 for bad input or
// configuration, 130 for an interrupted command, 1 otherwise.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return 130
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrConfiguration):
		return 2
	default:
		return 1
	}
}
