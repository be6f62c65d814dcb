package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fatflowers/staypay/internal/app/service/ledger"
	"github.com/fatflowers/staypay/pkg/metrics"
)

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Append ledger rows for pending repair markers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, _ := cmd.Flags().GetInt("batch")
			var (
				svc *ledger.Service
				m   *metrics.Recorder
			)
			return withApp(cmd.Context(), func(ctx context.Context) error {
				res, err := svc.Sweep(ctx, batch)
				if err != nil {
					return err
				}
				m.LedgerRepairs(res.Resolved, res.Failed)
				return printJSON(cmd, res)
			}, &svc, &m)
		},
	}
	cmd.Flags().IntP("batch", "b", 50, "Maximum repair markers to process")
	return cmd
}
