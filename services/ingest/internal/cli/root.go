package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/02loveslollipop/groundwater-hpi/internal/logger"
	"github.com/02loveslollipop/groundwater-hpi/internal/models"
	"github.com/02loveslollipop/groundwater-hpi/services/api/db"
	"github.com/02loveslollipop/groundwater-hpi/services/ingest/internal/config"
)

// sampleStore is the part of the sample store the CLI writes to.
type sampleStore interface {
	EnsureSchema(ctx context.Context) error
	ReplaceAllSamples(ctx context.Context, samples []models.Sample) (int, error)
	Close()
}

// app carries the dependencies shared by subcommands. Tests preset them.
type app struct {
	cfg        config.Config
	log        *zap.Logger
	httpClient *http.Client
	openStore  func(ctx context.Context, databaseURL string) (sampleStore, error)
	loaded     bool
}

func openPostgres(ctx context.Context, databaseURL string) (sampleStore, error) {
	store, err := db.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// NewRootCmd creates the groundwater-ingest root command.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{openStore: openPostgres})
}

func newRootCmd(a *app) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:           "groundwater-ingest",
		Short:         "Score groundwater lab exports",
		Long:          "groundwater-ingest normalizes lab exports (.csv or .xlsx) and computes HPI, MI, CD and a safety category per sample.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.setup(logLevel)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = a.log.Sync()
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	cmd.AddCommand(newScoreCmd(a))

	return cmd
}

func (a *app) setup(logLevel string) error {
	if !a.loaded {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		a.cfg = cfg
		a.loaded = true
	}
	if logLevel != "" {
		a.cfg.LogLevel = logLevel
	}
	if a.log == nil {
		lg, err := logger.New(a.cfg.LogLevel, a.cfg.LogFormat, "groundwater-ingest")
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		a.log = lg
	}
	if a.httpClient == nil {
		a.httpClient = &http.Client{Timeout: a.cfg.RequestTimeout}
	}
	if a.openStore == nil {
		a.openStore = openPostgres
	}
	return nil
}
