// Package isolatetest lets a test binary double as a harvest worker process.
//
// A package that spawns workers in its tests calls ServeIfHelper from
// TestMain and passes Command() to the executor under test:
//
//	func TestMain(m *testing.M) {
//		isolatetest.ServeIfHelper()
//		os.Exit(m.Run())
//	}
package isolatetest

import (
	"context"
	"fmt"
	"os"

	"github.com/JakeFAU/topic-harvester/internal/harvest"
	"github.com/JakeFAU/topic-harvester/internal/harvest/harvesttest"
	"github.com/JakeFAU/topic-harvester/internal/isolate"
	"github.com/JakeFAU/topic-harvester/internal/pool"
	"github.com/JakeFAU/topic-harvester/internal/sanitize"
	"github.com/JakeFAU/topic-harvester/internal/storage"
)

const (
	helperEnv = "HARVESTER_HELPER_WORKER"

	// CrashIdentifier makes the helper exit without answering.
	CrashIdentifier = "crash"
	// CrashExitCode is the status the helper exits with on CrashIdentifier.
	CrashExitCode = 3
)

// Command re-executes the current test binary as a worker.
func Command() isolate.Command {
	return isolate.Command{
		Path: os.Args[0],
		Env:  append(os.Environ(), helperEnv+"=1"),
	}
}

// ServeIfHelper serves tasks on stdin/stdout and exits when the process was
// started by Command. Otherwise it returns immediately.
func ServeIfHelper() {
	if os.Getenv(helperEnv) != "1" {
		return
	}

	src := harvesttest.Batch()
	locations := isolate.NewLocationHandler(func(ctx context.Context, location string) (*harvest.Pipeline, func() error, error) {
		store, err := storage.Open(ctx, location)
		if err != nil {
			return nil, nil, err
		}
		p := harvest.NewPipeline(
			harvest.NewProcessor(src, nil),
			harvest.NewResultSink(store, sanitize.Filename),
			nil,
		)
		return p, store.Close, nil
	}, nil)

	h := isolate.HandlerFunc(func(ctx context.Context, task pool.Task) harvest.Result {
		if task.Identifier == CrashIdentifier {
			fmt.Fprintln(os.Stderr, "helper worker crashing on purpose")
			os.Exit(CrashExitCode)
		}
		return locations.Handle(ctx, task)
	})

	code := 0
	if err := isolate.Serve(context.Background(), os.Stdin, os.Stdout, h); err != nil {
		fmt.Fprintln(os.Stderr, err)
		code = 1
	}
	if err := locations.Close(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		code = 1
	}
	os.Exit(code)
}
