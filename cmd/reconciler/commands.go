package main

import (
	"time"

	"github.com/spf13/cobra"

	"invoice-reconciliation/internal/domain"
	"invoice-reconciliation/internal/usecase"
)

type reconcileFlags struct {
	payment     string
	invoices    string
	threshold   int
	maxNodes    int64
	timeout     time.Duration
	tieBreak    string
	tolerance   string
	maxResidual string
}

func reconcileCommand(a *app) *cobra.Command {
	f := &reconcileFlags{}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile one payment against an invoice file",
		RunE: func(cmd *cobra.Command, args []string) error {
			// per-request flags override the loaded configuration
			flags := cmd.Flags()
			if flags.Changed("threshold") {
				a.cnf.BacktrackingThreshold = f.threshold
			}
			if flags.Changed("max-nodes") {
				a.cnf.MaxNodes = f.maxNodes
			}
			if flags.Changed("timeout") {
				a.cnf.SearchTimeout = f.timeout
			}
			if flags.Changed("tie-break") {
				a.cnf.TieBreak = f.tieBreak
			}
			if flags.Changed("tolerance") {
				a.cnf.IngestionTolerance = f.tolerance
			}
			if flags.Changed("max-residual") {
				a.cnf.MaxResidual = f.maxResidual
			}

			opts, err := a.cnf.Options()
			if err != nil {
				return err
			}
			amount, err := domain.ParseAmount(f.payment, opts.IngestionTolerance)
			if err != nil {
				return err
			}

			report, err := a.newUseCase(opts).ReconcileFile(cmd.Context(), domain.Payment{Amount: amount}, f.invoices, usecase.Overrides{})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&f.payment, "payment", "", "payment amount, e.g. 100.00 (required)")
	cmd.Flags().StringVar(&f.invoices, "invoices", "", "invoice CSV file: ID;Customer;Supplier;Amount;Date (required)")
	cmd.Flags().IntVar(&f.threshold, "threshold", 0, "largest candidate count solved exactly")
	cmd.Flags().Int64Var(&f.maxNodes, "max-nodes", 0, "node budget of the exact search")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "time budget of the exact search")
	cmd.Flags().StringVar(&f.tieBreak, "tie-break", "", "fewest, oldest-first or newest-first")
	cmd.Flags().StringVar(&f.tolerance, "tolerance", "", "largest rounding accepted when reading amounts")
	cmd.Flags().StringVar(&f.maxResidual, "max-residual", "", "largest acceptable greedy residual")
	_ = cmd.MarkFlagRequired("payment")
	_ = cmd.MarkFlagRequired("invoices")
	return cmd
}

func batchCommand(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Reconcile every transfer listed in a YAML task file",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.cnf.Options()
			if err != nil {
				return err
			}
			batch, err := a.newUseCase(opts).ReconcileBatch(cmd.Context(), file)
			if err != nil {
				return err
			}
			a.logger.WithField("succeeded", batch.Succeeded).WithField("failed", batch.Failed).Info("batch completed")
			return writeJSON(cmd.OutOrStdout(), batch)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "YAML task file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func configCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), a.cnf)
		},
	}
}
