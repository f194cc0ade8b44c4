package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"invoice-reconciliation/internal/config"
	"invoice-reconciliation/internal/domain"
	"invoice-reconciliation/internal/engine"
	"invoice-reconciliation/internal/gateway"
	"invoice-reconciliation/internal/usecase"
)

// app is shared by every command: the loaded configuration and the process
// wide logger and tracer shutdown hook.
type app struct {
	configFile   string
	logLevel     string
	logFormat    string
	otlpEndpoint string
	otlpInsecure bool

	cnf      *config.Configuration
	logger   *logrus.Logger
	shutdown func(context.Context) error
}

func (a *app) preRun(cmd *cobra.Command, _ []string) error {
	cnf, err := config.Load(a.configFile)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	// flags override file and environment
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cnf.LogLevel = a.logLevel
	}
	if flags.Changed("log-format") {
		cnf.LogFormat = a.logFormat
	}
	if flags.Changed("otlp-endpoint") {
		cnf.OTLPEndpoint = a.otlpEndpoint
	}
	if err := cnf.Validate(); err != nil {
		return fmt.Errorf("error applying flags: %w", err)
	}

	a.cnf = cnf
	a.logger = cnf.NewLogger()
	a.logger.SetOutput(cmd.ErrOrStderr())

	a.shutdown, err = setupTracing(cmd.Context(), cnf.OTLPEndpoint, a.otlpInsecure)
	if err != nil {
		return fmt.Errorf("error setting up tracing: %w", err)
	}
	return nil
}

func (a *app) postRun(cmd *cobra.Command, _ []string) error {
	if a.shutdown == nil {
		return nil
	}
	return a.shutdown(cmd.Context())
}

// newUseCase wires the repositories and the engine with opts as the request
// defaults.
func (a *app) newUseCase(opts domain.Options) *usecase.ReconciliationUseCase {
	return usecase.NewReconciliationUseCase(
		gateway.NewCSVInvoiceRepository(),
		gateway.NewYAMLBatchRepository(),
		engine.New(engine.WithLogger(a.logger)),
		opts,
		usecase.WithLogger(a.logger),
	)
}

func writeJSON(w io.Writer, v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to generate JSON report: %w", err)
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

// NewCLI builds the reconciler command tree.
func NewCLI() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:                "reconciler",
		Short:              "Match a payment against the open invoices it settles",
		SilenceUsage:       true,
		PersistentPreRunE:  a.preRun,
		PersistentPostRunE: a.postRun,
	}

	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "JSON configuration file (optional)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", config.DefaultLogLevel, "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&a.logFormat, "log-format", config.DefaultLogFormat, "log format (text or json)")
	rootCmd.PersistentFlags().StringVar(&a.otlpEndpoint, "otlp-endpoint", "", "OTLP/HTTP collector host:port; tracing is off when empty")
	rootCmd.PersistentFlags().BoolVar(&a.otlpInsecure, "otlp-insecure", false, "send traces over plain HTTP")

	rootCmd.AddCommand(reconcileCommand(a))
	rootCmd.AddCommand(batchCommand(a))
	rootCmd.AddCommand(configCommand(a))
	return rootCmd
}

func main() {
	if err := NewCLI().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
