package main

import (
	"github.com/spf13/cobra"

	"github.com/entrhq/headline/pkg/logging"
	"github.com/entrhq/headline/pkg/service"
)

func newLoginCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in through a visible browser and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(cmd.Context(), func(svc *service.Service, _ *logging.Logger) error {
				cmd.PrintErrln("A browser window will open; log in there.")
				return printResponse(cmd.OutOrStdout(), svc.Login(cmd.Context()))
			})
		},
	}
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check whether the stored session is logged in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(cmd.Context(), func(svc *service.Service, _ *logging.Logger) error {
				return printResponse(cmd.OutOrStdout(), svc.CheckLoginStatus(cmd.Context()))
			})
		},
	}
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(cmd.Context(), func(svc *service.Service, _ *logging.Logger) error {
				return printResponse(cmd.OutOrStdout(), svc.Logout(cmd.Context()))
			})
		},
	}
}
