package harvester

import (
	"context"
	"fmt"

	"github.com/Adda-Baaj/khobor-report/internal/assets"
	"github.com/Adda-Baaj/khobor-report/internal/config"
	"github.com/Adda-Baaj/khobor-report/internal/crawler"
	"github.com/Adda-Baaj/khobor-report/internal/ledger"
	"github.com/Adda-Baaj/khobor-report/internal/logger"
	"github.com/Adda-Baaj/khobor-report/internal/report"
	"github.com/Adda-Baaj/khobor-report/pkg/httpclient"
	"github.com/Adda-Baaj/khobor-report/pkg/publishers"
)

// Bootstrap wires the production collaborators for cfg. The returned cleanup closes what
// Bootstrap opened and must be called once the run is over.
func Bootstrap(ctx context.Context, cfg config.Config, log logger.Logger) (*Harvester, func(), error) {
	log = logger.Ensure(log)

	if err := cfg.EnsureOutputDir(); err != nil {
		return nil, nil, err
	}

	client := httpclient.NewRestyClientWithUserAgent(cfg.HTTPTimeout, cfg.UserAgent)
	site := crawler.DefaultSite()

	deps := Deps{
		Sessions: func(context.Context) (Session, error) {
			return crawler.NewSession(client, site, crawler.Options{
				WaitTimeout:  cfg.WaitTimeout,
				PollInterval: cfg.PollInterval,
			}, log), nil
		},
		Images: assets.NewResolver(client, cfg.OutputDir, log).
			WithHeaders(map[string]string{"Referer": cfg.SiteURL}),
		Report: report.NewWriter(log),
		Log:    log,
	}

	cleanup := func() {}

	if cfg.LedgerEnabled {
		l, err := ledger.Open(cfg.LedgerPath(), log)
		if err != nil {
			log.ErrorObj("run ledger unavailable", "ledger_error", map[string]any{"error": err.Error()})
		} else {
			deps.Ledger = l
			cleanup = func() {
				if err := l.Close(); err != nil {
					log.ErrorObj("close run ledger failed", "ledger_error", map[string]any{"error": err.Error()})
				}
			}
		}
	}

	if cfg.PublishersFile != "" {
		cfgs, err := publishers.LoadConfigs(cfg.PublishersFile)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("load publishers: %w", err)
		}
		pubs, err := publishers.DefaultRegistry().Build(ctx, cfgs, log)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("build publishers: %w", err)
		}
		deps.Publishers = pubs

		closeLedger := cleanup
		cleanup = func() {
			if err := publishers.CloseAll(pubs); err != nil {
				log.ErrorObj("close publishers failed", "publisher_close_error", map[string]any{"error": err.Error()})
			}
			closeLedger()
		}
	}

	return New(cfg, deps), cleanup, nil
}
