package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ishanwen-byte/seqevolve-go/internal/constants"
	"github.com/ishanwen-byte/seqevolve-go/internal/types"
	"github.com/ishanwen-byte/seqevolve-go/pkg/config"
	"github.com/ishanwen-byte/seqevolve-go/pkg/engine"
	"github.com/ishanwen-byte/seqevolve-go/pkg/gene"
	"github.com/ishanwen-byte/seqevolve-go/pkg/report"
	"github.com/ishanwen-byte/seqevolve-go/pkg/sink"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, context.Canceled) {
			os.Exit(constants.ExitInterrupt)
		}
		os.Exit(constants.ExitError)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "seqevolve",
		Short:         constants.Description,
		Version:       constants.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newRunCmd(), newInitConfigCmd(), newVariantsCmd())
	return rootCmd
}

func newRunCmd() *cobra.Command {
	var (
		configPath  string
		metricsAddr string
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evolve a gene sequence against the configured oracle",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager := config.NewManager()
			if configPath != "" {
				if err := manager.Load(configPath); err != nil {
					return err
				}
			} else if err := manager.ApplyEnv(); err != nil {
				return err
			}
			cfg := manager.GetConfig()
			if verbose {
				cfg.Output.Verbose = true
			}
			if metricsAddr != "" {
				cfg.Output.MetricsAddr = metricsAddr
			}
			return run(cmd.Context(), cmd.OutOrStdout(), *cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML or TOML config file")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging and a full run report")
	return cmd
}

func run(ctx context.Context, out io.Writer, cfg types.Config) error {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	if cfg.Output.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if addr := cfg.Output.MetricsAddr; addr != "" {
		server := &http.Server{Addr: addr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithError(err).Warn("Metrics server stopped")
			}
		}()
		defer server.Close()
		logger.WithField("addr", addr).Info("Serving metrics")
	}

	s, err := sink.New(ctx, cfg.Sink)
	if err != nil {
		return fmt.Errorf("failed to open sink: %w", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close sink")
		}
	}()

	e, err := engine.New(cfg, nil, s)
	if err != nil {
		return err
	}
	defer e.Close()
	e.SetLogger(logger)

	result, err := e.Run(ctx)
	if err != nil {
		return fmt.Errorf("evolution failed: %w", err)
	}

	if cfg.Output.Verbose {
		report.Write(out, e.Summary(result))
	} else {
		fmt.Fprintf(out, "fitness: %g\n", result.Fitness)
	}
	fmt.Fprint(out, report.Sequence(result.Values))
	fmt.Fprintln(out, result.Rendered)
	return nil
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func newInitConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write the default configuration to a YAML or TOML file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "seqevolve.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.CreateDefaultConfig(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
}

func newVariantsCmd() *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "variants [tag]",
		Short: "List gene variants, or the alphabet of one variant",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, tag := range gene.Tags() {
					fmt.Fprintln(out, tag)
				}
				return nil
			}

			v, err := gene.New(gene.Tag(args[0]), gene.Options{IntRangeSize: size})
			if err != nil {
				return err
			}
			enumerable, ok := v.(gene.Enumerable)
			if !ok {
				fmt.Fprintf(out, "%s draws random values\n", v.Tag())
				return nil
			}
			fmt.Fprintln(out, strings.Join(enumerable.Values(), "\n"))
			return nil
		},
	}

	cmd.Flags().IntVar(&size, "int-range-size", constants.DefaultIntRangeSize, "alphabet size of the int-range variant")
	return cmd
}
