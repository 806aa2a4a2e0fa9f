// Package launcher boots the sale service: it resolves configuration,
// assembles the deployment and serves the HTTP surfaces until a
// termination signal arrives.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Fantom-foundation/lachesis-base/kvdb/memorydb"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"

	"github.com/TalentifyApp/go-talentify-sale/api"
	"github.com/TalentifyApp/go-talentify-sale/flags"
	"github.com/TalentifyApp/go-talentify-sale/integration"
	"github.com/TalentifyApp/go-talentify-sale/logger"
	"github.com/TalentifyApp/go-talentify-sale/metrics"
	"github.com/TalentifyApp/go-talentify-sale/sale/genesis"
)

var app = flags.NewApp()

func init() {
	app.Flags = appFlags()
	app.Action = saleMain
	app.Commands = []cli.Command{
		{
			Name:   "dumpconfig",
			Usage:  "Print the effective configuration as YAML",
			Flags:  appFlags(),
			Action: dumpConfig,
		},
	}
}

func appFlags() []cli.Flag {
	var all []cli.Flag
	all = append(all, flags.CommonFlags()...)
	all = append(all, flags.SaleFlags()...)
	all = append(all, flags.RuleFlags()...)
	return all
}

// Launch parses the command line and runs the sale service.
func Launch(args []string) error {
	return app.Run(args)
}

func saleMain(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	if err := configureLogging(cfg); err != nil {
		return err
	}
	if cfg.Metrics.Enabled {
		metrics.InitializePrometheusMetrics()
	}

	s, err := assembleSale(cfg)
	if err != nil {
		return err
	}
	return runSale(cfg, s)
}

func configureLogging(cfg Config) error {
	if err := logger.SetVerbosity(cfg.Logging.Verbosity); err != nil {
		return err
	}
	switch cfg.Logging.Format {
	case "", "text":
		logger.SetJSON(false)
		logger.SetColor(cfg.Logging.Color)
	case "json":
		logger.SetJSON(true)
	default:
		return fmt.Errorf("unknown log format %q, want text or json", cfg.Logging.Format)
	}
	return logger.SetDSN(cfg.Sentry.DSN)
}

// assembleSale builds the deployment the configuration describes. Fake
// presets additionally fund their deterministic contributor accounts.
func assembleSale(cfg Config) (*integration.Sale, error) {
	preset, err := integration.GetPresetByName(cfg.Sale.Preset)
	if err != nil {
		return nil, err
	}
	g, err := BuildGenesis(cfg.Sale)
	if err != nil {
		return nil, err
	}
	s, err := integration.Assemble(memorydb.New(), g)
	if err != nil {
		return nil, err
	}
	if preset.Fake {
		for i := 0; i < preset.FakeContributors; i++ {
			if err := s.Value.Mint(genesis.FakeContributor(i), preset.FakeFunds); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// runSale serves the campaign until a termination signal arrives.
func runSale(cfg Config, s *integration.Sale) error {
	log := logger.New("launcher")
	log.WithFields(logrus.Fields{
		"preset": cfg.Sale.Preset,
		"stage":  s.Campaign.Stage(),
		"rate":   s.Campaign.CurrentRate(),
	}).Info("Sale assembled")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)
		select {
		case <-sig:
			log.Info("Shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	group, gctx := errgroup.WithContext(ctx)

	var servers []*http.Server
	if cfg.HTTP.Enabled {
		root := mux.NewRouter()
		api.New(s.Campaign, s.Journal).Mount(root, "/sale")
		srv := &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Addr, cfg.HTTP.Port),
			Handler:      root,
			ReadTimeout:  time.Duration(cfg.HTTP.Timeout),
			WriteTimeout: time.Duration(cfg.HTTP.Timeout),
		}
		servers = append(servers, srv)
		group.Go(func() error {
			log.WithField("addr", srv.Addr).Info("Sale API listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	if cfg.Metrics.Enabled {
		handler := http.NewServeMux()
		handler.Handle("/metrics", metrics.HTTPHandler())
		srv := &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Metrics.Addr, cfg.Metrics.Port),
			Handler: handler,
		}
		servers = append(servers, srv)
		group.Go(func() error {
			log.WithField("addr", srv.Addr).Info("Metrics server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		for _, srv := range servers {
			_ = srv.Shutdown(shutdownCtx)
		}
		return nil
	})

	return group.Wait()
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}
