package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/topic-harvester/internal/harvest"
	"github.com/JakeFAU/topic-harvester/internal/isolate"
)

// newWorkerCmd creates the hidden 'worker' subcommand run by the procs
// strategy in each child process.
func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "worker",
		Short:  "Serve harvest tasks over stdin/stdout",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE:   runWorkerCommand,
	}
}

func runWorkerCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	defer appInstance.Close()
	logger := appInstance.Logger().Named("worker").With(zap.Int("pid", os.Getpid()))

	handler := isolate.NewLocationHandler(func(ctx context.Context, location string) (*harvest.Pipeline, func() error, error) {
		pipeline, store, err := appInstance.OpenPipeline(ctx, location)
		if err != nil {
			return nil, nil, err
		}
		return pipeline, store.Close, nil
	}, logger)
	defer func() {
		if cerr := handler.Close(); cerr != nil {
			logger.Warn("Failed to close output locations", zap.Error(cerr))
		}
	}()

	logger.Debug("Worker ready")
	if err := isolate.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), handler); err != nil {
		return fmt.Errorf("serve tasks: %w", err)
	}
	logger.Debug("Worker input closed")
	return nil
}
