// Package main is the entry point for the flowline CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/relicta-tech/flowline/internal/cli"
)

// Version information set by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// shutdownTimeout is the maximum time to wait for graceful shutdown.
const shutdownTimeout = 30 * time.Second

func main() {
	ctx := context.Background()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	cli.SetVersionInfo(version, commit, date)

	code := run(ctx, sigChan, cli.ExecuteContext, func() {}, os.Stderr, os.Exit)
	os.Exit(code)
}

// run drives the CLI under signal handling and returns the exit code.
// A first signal cancels the context; a second one, or exceeding the
// shutdown timeout, forces exit through exitFn.
func run(
	ctx context.Context,
	sigChan <-chan os.Signal,
	execute func(context.Context) error,
	cleanup func(),
	stderr io.Writer,
	exitFn func(int),
) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	defer close(done)

	if sigChan != nil {
		go func() {
			select {
			case sig := <-sigChan:
				fmt.Fprintf(stderr, "\nReceived signal %v, initiating graceful shutdown...\n", sig)
				cancel()
			case <-done:
				return
			}

			shutdownTimer := time.NewTimer(shutdownTimeout)
			defer shutdownTimer.Stop()

			select {
			case <-done:
			case <-shutdownTimer.C:
				fmt.Fprintf(stderr, "\nShutdown timeout (%v) exceeded, forcing exit\n", shutdownTimeout)
				exitFn(1)
			case sig := <-sigChan:
				fmt.Fprintf(stderr, "\nReceived second signal %v, forcing exit\n", sig)
				exitFn(1)
			}
		}()
	}

	var exitCode int
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := execute(ctx); err != nil {
			if ctx.Err() != nil {
				fmt.Fprintln(stderr, "Operation canceled")
				exitCode = 130
				return
			}
			// Errors are printed here because cobra runs with SilenceErrors.
			fmt.Fprintf(stderr, "Error: %v\n", err)
			exitCode = 1
		}
	}()
	wg.Wait()

	cleanup()
	return exitCode
}
