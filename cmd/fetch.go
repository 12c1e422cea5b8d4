package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/topic-harvester/internal/config"
	"github.com/JakeFAU/topic-harvester/internal/isolate"
	"github.com/JakeFAU/topic-harvester/internal/progress"
	"github.com/JakeFAU/topic-harvester/internal/progress/sinks"
	"github.com/JakeFAU/topic-harvester/internal/strategy"
)

// Worker process launch settings. Variables so tests can re-execute the test
// binary instead of the real executable.
var (
	workerExecutable = os.Executable
	workerEnv        []string
)

// newFetchCmd creates the 'fetch' subcommand.
func newFetchCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Search Wikipedia and save reference links for related pages",
		Args:  cobra.NoArgs,
		RunE:  runFetchCommand,
	}

	f := cmd.Flags()
	f.String("term", "", "search term (prompted if omitted)")
	f.String("mode", string(strategy.ModeSequential), "execution mode: seq, threads or procs")
	f.Int("max", 10, "max number of related pages to process")
	f.Int("workers", 0, "worker count for threads/procs (0 picks a default)")
	f.String("outdir", "wiki_dl", "output directory, memory://, or gs://bucket/prefix")
	f.String("metrics-file", "", "write Prometheus metrics in text format to this path after the run")

	bindFlags(v, f, map[string]string{
		"run.term":         "term",
		"run.mode":         "mode",
		"run.max_results":  "max",
		"run.workers":      "workers",
		"run.output_dir":   "outdir",
		"run.metrics_file": "metrics-file",
	})
	return cmd
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %q: %v", name, err))
		}
	}
}

func runFetchCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	defer appInstance.Close()
	ctx := cmd.Context()
	cfg := appInstance.Config()
	logger := appInstance.Logger()
	out := cmd.OutOrStdout()

	term := cfg.Run.Term
	if strings.TrimSpace(term) == "" {
		if term, err = promptTerm(cmd.InOrStdin(), out); err != nil {
			return err
		}
	}
	term = config.CoerceTerm(term)

	pipeline, store, err := appInstance.OpenPipeline(ctx, cfg.Run.OutputDir)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Warn("Failed to close output location", zap.Error(cerr))
		}
	}()

	fmt.Fprintf(out, "Searching Wikipedia for related pages to: '%s'\n", term)
	titles, err := appInstance.Source().Search(ctx, term, cfg.Run.MaxResults)
	if err != nil {
		return fmt.Errorf("search %q: %w", term, err)
	}
	if len(titles) == 0 {
		fmt.Fprintln(out, "No related pages found. Nothing to do.")
		return nil
	}

	mode := cfg.Mode()
	reg := prometheus.NewRegistry()
	promSink, err := sinks.NewPrometheusSink(reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	hub := progress.NewHub(progress.Config{Logger: logger},
		sinks.NewConsoleSink(out),
		sinks.NewLogSink(logger.Named("progress")),
		promSink,
	)
	defer func() {
		if cerr := hub.Close(context.Background()); cerr != nil {
			logger.Warn("Failed to close progress hub", zap.Error(cerr))
		}
	}()
	run := progress.NewRun(hub, string(mode))

	opts := strategy.Options{
		Mode:     mode,
		Workers:  cfg.Run.Workers,
		Location: store.Location,
		Pipeline: pipeline,
		Reporter: run,
		Logger:   logger,
	}
	if mode == strategy.ModeProcs {
		if opts.Worker, err = workerCommand(cmd); err != nil {
			return err
		}
	}
	runner, err := strategy.New(opts)
	if err != nil {
		return fmt.Errorf("init strategy: %w", err)
	}

	run.Start(term, store.Location, len(titles), runner.Workers())
	tally := runner.Run(ctx, titles)
	elapsed := run.Finish(tally)
	logger.Debug("Fetch command finished.", zap.String("run_id", run.ID().String()), zap.Duration("elapsed", elapsed))

	if cfg.Run.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(cfg.Run.MetricsFile, reg); err != nil {
			return fmt.Errorf("write metrics file: %w", err)
		}
	}
	return nil
}

// promptTerm asks for a search term on in. EOF yields an empty term.
func promptTerm(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter a search term: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read search term: %w", err)
	}
	return line, nil
}

// workerCommand re-invokes this executable as a hidden worker, passing the
// same config file along.
func workerCommand(cmd *cobra.Command) (isolate.Command, error) {
	exe, err := workerExecutable()
	if err != nil {
		return isolate.Command{}, fmt.Errorf("locate executable: %w", err)
	}
	args := []string{"worker"}
	if f := cmd.Flag("config"); f != nil && f.Value.String() != "" {
		args = append(args, "--config", f.Value.String())
	}
	return isolate.Command{
		Path:   exe,
		Args:   args,
		Env:    workerEnv,
		Stderr: cmd.ErrOrStderr(),
	}, nil
}
