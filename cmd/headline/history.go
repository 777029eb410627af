package main

import (
	"github.com/spf13/cobra"

	"github.com/entrhq/headline/pkg/history"
	"github.com/entrhq/headline/pkg/logging"
	"github.com/entrhq/headline/pkg/publish"
	"github.com/entrhq/headline/pkg/service"
)

func newHistoryCommand(a *app) *cobra.Command {
	var (
		kind   string
		failed bool
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded publish runs, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := history.Query{Kind: publish.Kind(kind), Failed: failed, Limit: limit}
			return a.withService(cmd.Context(), func(svc *service.Service, _ *logging.Logger) error {
				return printResponse(cmd.OutOrStdout(), svc.History(cmd.Context(), q))
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Filter by kind (article or micro_post)")
	cmd.Flags().BoolVar(&failed, "failed", false, "Only failed runs")
	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultLimit, "Maximum entries")
	return cmd
}
