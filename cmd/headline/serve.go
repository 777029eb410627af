package main

import (
	"github.com/spf13/cobra"

	"github.com/entrhq/headline/pkg/logging"
	"github.com/entrhq/headline/pkg/rpc"
	"github.com/entrhq/headline/pkg/server"
	"github.com/entrhq/headline/pkg/service"
)

func newServeCommand(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the publishing operations over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			return a.withService(cmd.Context(), func(svc *service.Service, logger *logging.Logger) error {
				registry := rpc.NewServiceRegistry(svc, rpc.WithMetrics(svc.Metrics()))
				logger.Infof("%d procedures registered", len(registry.Catalog()))
				return server.New(svc, registry, a.cfg.Server, logger.With("server")).Run(cmd.Context())
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}
