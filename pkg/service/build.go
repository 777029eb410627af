package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/entrhq/headline/pkg/browser"
	"github.com/entrhq/headline/pkg/config"
	"github.com/entrhq/headline/pkg/history"
	"github.com/entrhq/headline/pkg/logging"
	"github.com/entrhq/headline/pkg/login"
	"github.com/entrhq/headline/pkg/media"
	"github.com/entrhq/headline/pkg/metrics"
	"github.com/entrhq/headline/pkg/platform"
	"github.com/entrhq/headline/pkg/publish"
	"github.com/entrhq/headline/pkg/session"
)

// Open builds the production service from cfg: file session store, HTTP
// probe, playwright launcher, workflow engine, platform client, image
// preparation, history ledger and metrics.
func Open(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Service, error) {
	if logger == nil {
		logger = logging.MustLogger("service")
	}

	store, err := session.NewFileStore(cfg.Session.CookiesFile, logger.With("session"))
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	probe := session.NewProbe(store, logger.With("probe"),
		session.WithHomepage(cfg.Session.Homepage),
		session.WithUserAgent(cfg.Browser.UserAgent))

	launcher := browser.NewPlaywrightLauncher(logger.With("browser"))
	flow, err := login.NewFlow(launcher, store, cfg.LoginOptions(), logger.With("login"))
	if err != nil {
		return nil, fmt.Errorf("login flow: %w", err)
	}

	m := metrics.New()
	engine := publish.NewEngine(launcher, store, cfg.EngineConfig(), m, logger.With("publish"))
	client := platform.NewClient(store, cfg.APIConfig(), nil, logger.With("platform"))
	resolver := media.NewResolver(cfg.Media.DownloadDir, logger.With("media"), media.WithUserAgent(cfg.Browser.UserAgent))

	var compressor Compressor
	maxBytes := int64(0)
	if cfg.Media.Compress {
		compressor = media.NewCompressor(logger.With("compress"))
		maxBytes = cfg.Media.MaxImageBytes
	}

	var guard PathGuard
	if len(cfg.Media.AllowedDirs) > 0 {
		g, err := media.NewGuard(append([]string{cfg.Media.DownloadDir}, cfg.Media.AllowedDirs...)...)
		if err != nil {
			return nil, fmt.Errorf("image guard: %w", err)
		}
		guard = g
	}

	var ledger *history.Ledger
	if cfg.History.Enabled {
		ledger, err = history.Open(ctx, cfg.History.Path)
		if err != nil {
			return nil, err
		}
	}

	deps := Deps{
		Store:      store,
		Probe:      probe,
		Login:      flow,
		Publisher:  engine,
		Platform:   client,
		Resolver:   resolver,
		Compressor: compressor,
		Guard:      guard,
		Metrics:    m,
		Options: Options{
			MaxConcurrent: cfg.Browser.MaxConcurrent,
			BatchSpacing:  cfg.Publish.BatchSpacing,
			MaxImageBytes: maxBytes,
			DownloadDir:   cfg.Media.DownloadDir,
		},
		Logger: logger,
		Close: func() error {
			var errs []error
			if err := launcher.Shutdown(); err != nil {
				errs = append(errs, fmt.Errorf("browser shutdown: %w", err))
			}
			if ledger != nil {
				if err := ledger.Close(); err != nil {
					errs = append(errs, fmt.Errorf("history close: %w", err))
				}
			}
			return errors.Join(errs...)
		},
	}
	if ledger != nil {
		deps.Ledger = ledger
	}

	logger.Infof("service initialized (session %s, max %d concurrent runs)", store.Path(), cfg.Browser.MaxConcurrent)
	return New(deps), nil
}
