// Package run is the entry point of keystone binaries: it sets up logging
// from the command line and runs the task until it finishes or a signal
// arrives.
package run

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ridge/keystone/tlog"
	"github.com/ridge/parallel"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var (
	logFormat = pflag.String("log-format", os.Getenv("KEYSTONE_LOG_FORMAT"), "Log format (json|text)")
	logColor  = pflag.String("log-color", "auto", "Colored text logs (yes|no|auto)")
	verbose   = pflag.BoolP("verbose", "v", false, "Log at debug level")
)

// WithExitCode can be implemented by errors to choose the exit code of the
// process. Other errors exit with 1.
type WithExitCode interface {
	ExitCode() int
}

// ExitCode wraps an error with an exit code
func ExitCode(code int, err error) error {
	return exitError{code: code, err: err}
}

type exitError struct {
	code int
	err  error
}

func (e exitError) Error() string { return e.err.Error() }
func (e exitError) Unwrap() error { return e.err }
func (e exitError) ExitCode() int { return e.code }

// Tool runs the task of a command line program and exits. The command line
// must have been parsed with pflag.Parse.
//
// The task context carries a logger configured by --log-format, --log-color
// and --verbose. It is canceled on SIGINT, SIGTERM or SIGHUP.
//
// Tool exits with 0 if the task returns nil or is interrupted by a signal,
// with the code of a WithExitCode error, and with 1 otherwise.
//
//	func main() {
//	    pflag.Parse()
//	    run.Tool(func(ctx context.Context) error {
//	        return explain(ctx, pflag.Args())
//	    })
//	}
func Tool(task func(ctx context.Context) error) {
	config, err := loggerConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	ctx := tlog.WithLogger(context.Background(), tlog.New(config))
	os.Exit(exitCode(ctx, Task(ctx, task)))
}

// Task runs task until it finishes or a signal arrives
func Task(ctx context.Context, task func(ctx context.Context) error) error {
	return parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		spawn("main", parallel.Exit, task)
		spawn("signals", parallel.Exit, handleSignals)
		return nil
	})
}

func exitCode(ctx context.Context, err error) int {
	if err == nil || errors.Is(err, context.Canceled) {
		return 0
	}
	tlog.Get(ctx).Error("Failed", zap.Error(err))
	var wec WithExitCode
	if errors.As(err, &wec) {
		return wec.ExitCode()
	}
	return 1
}

func loggerConfig() (tlog.Config, error) {
	format, err := tlog.ParseFormat(*logFormat)
	if err != nil {
		return tlog.Config{}, err
	}
	color, err := tlog.ParseColor(*logColor)
	if err != nil {
		return tlog.Config{}, err
	}
	return tlog.Config{Format: format, Color: color, Verbose: *verbose}, nil
}
