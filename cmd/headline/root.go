package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/entrhq/headline/pkg/config"
	"github.com/entrhq/headline/pkg/logging"
	"github.com/entrhq/headline/pkg/service"
)

// app carries the state shared by every command.
type app struct {
	configPath string
	verbose    bool
	cfg        *config.Config
}

func newRootCommand() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "headline",
		Short: "Publish to the Toutiao creator backend",
		Long: "headline drives the Toutiao creator backend in a browser to publish articles and micro-posts, " +
			"and exposes the same operations over HTTP with `headline serve`.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath(), "Path to the configuration file")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		newServeCommand(a),
		newLoginCommand(a),
		newStatusCommand(a),
		newLogoutCommand(a),
		newPublishCommand(a),
		newHistoryCommand(a),
		newConfigCommand(a),
	)
	return cmd
}

// setup loads the configuration and configures logging.
func (a *app) setup(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	logging.SetDirectory(cfg.Logging.Directory)
	level := cfg.Logging.Level
	if a.verbose {
		level = "debug"
	}
	if err := logging.SetLevel(level); err != nil {
		return err
	}

	a.cfg = cfg
	return nil
}

// withService opens the service for the duration of fn.
func (a *app) withService(ctx context.Context, fn func(svc *service.Service, logger *logging.Logger) error) error {
	logger := logging.MustLogger("headline")
	svc, err := service.Open(ctx, a.cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer func() {
		if cerr := svc.Close(); cerr != nil {
			logger.Warnf("shutdown: %v", cerr)
		}
	}()
	return fn(svc, logger)
}

// errFailed is returned after a failed response has been printed.
var errFailed = errors.New("operation failed")

// printResponse writes resp as indented JSON and reports a failed response
// as an error so the exit status reflects it.
func printResponse(w io.Writer, resp service.Response) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%w: %s", errFailed, resp.Message)
	}
	return nil
}

// readText returns value, or the whole of stdin when value is "-", or the
// named file when path is set.
func readText(cmd *cobra.Command, value, path string) (string, error) {
	switch {
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return strings.TrimSpace(string(data)), nil
	case value == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	default:
		return value, nil
	}
}
