package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/02loveslollipop/groundwater-hpi/internal/ingest"
	"github.com/02loveslollipop/groundwater-hpi/internal/quality"
	"github.com/02loveslollipop/groundwater-hpi/services/ingest/internal/config"
)

type scoreOptions struct {
	source    string
	output    string
	xlsx      bool
	persist   bool
	workers   int
	chunkSize int
}

func newScoreCmd(a *app) *cobra.Command {
	var opts scoreOptions

	cmd := &cobra.Command{
		Use:   "score <file|url>",
		Short: "Score a lab export and write the results report",
		Long: `Reads a lab export from a local file or an http(s) URL, normalizes every row,
computes the pollution indices and writes the results report.

Rows without any HPI parameter are skipped, as are rows without coordinates
unless REQUIRE_COORDINATES=false. With --persist the scored samples replace the
contents of the sample store at DATABASE_URL.`,
		Example: `  # Score a CSV export
  groundwater-ingest score data/ground_water_quality_2022.csv -o results.csv

  # Score a remote workbook and write a workbook
  groundwater-ingest score https://example.org/exports/2023.xlsx --xlsx -o results.xlsx

  # Score and load into the API database
  groundwater-ingest score data/export.csv --persist`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.source = args[0]
			return a.runScore(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "results.csv", "results report path")
	cmd.Flags().BoolVar(&opts.xlsx, "xlsx", false, "write the report as an .xlsx workbook")
	cmd.Flags().BoolVar(&opts.persist, "persist", false, "replace the stored samples with the scored ones")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "scoring goroutines (0 = INGEST_WORKERS)")
	cmd.Flags().IntVar(&opts.chunkSize, "chunk-size", 0, "rows per work chunk (0 = INGEST_CHUNK_SIZE)")

	return cmd
}

func (a *app) runScore(ctx context.Context, opts scoreOptions) error {
	if opts.persist && a.cfg.DatabaseURL == "" {
		return config.ErrDatabaseURLRequired
	}

	name, data, err := a.readSource(ctx, opts.source)
	if err != nil {
		return err
	}

	rows, err := ingest.ReadRows(name, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	a.log.Info("export loaded", zap.String("source", opts.source), zap.Int("rows", len(rows)))

	standards, err := quality.LoadStandards(a.cfg.StandardsFile)
	if err != nil {
		return err
	}

	workers, chunkSize := a.cfg.Workers, a.cfg.ChunkSize
	if opts.workers > 0 {
		workers = opts.workers
	}
	if opts.chunkSize > 0 {
		chunkSize = opts.chunkSize
	}

	pipeline, err := ingest.NewPipeline(quality.DefaultNormalizer(), quality.NewCalculator(standards), ingest.Options{
		Workers:            workers,
		ChunkSize:          chunkSize,
		RequireCoordinates: a.cfg.RequireCoordinates,
		Logger:             a.log,
	})
	if err != nil {
		return err
	}

	report, err := pipeline.Run(ctx, rows)
	if err != nil {
		return err
	}

	if len(report.Samples) == 0 {
		a.log.Warn("no valid samples found",
			zap.Int("rows", report.Total),
			zap.Int("skipped", len(report.Skipped)))
		return nil
	}

	write := ingest.WriteResultsCSV
	if opts.xlsx {
		write = ingest.WriteResultsXLSX
	}
	output := reportPath(opts.output, opts.xlsx)
	if err := writeFile(output, func(w io.Writer) error { return write(w, report.Samples) }); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	a.log.Info("results written",
		zap.String("output", output),
		zap.Int("samples", len(report.Samples)),
		zap.Int("skipped", len(report.Skipped)))

	if !opts.persist {
		return nil
	}

	store, err := a.openStore(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect sample store: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	inserted, err := store.ReplaceAllSamples(ctx, report.Samples)
	if err != nil {
		return fmt.Errorf("replace samples: %w", err)
	}
	a.log.Info("samples persisted", zap.Int("inserted", inserted))
	return nil
}

func (a *app) readSource(ctx context.Context, source string) (string, []byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		data, err := ingest.FetchExport(ctx, a.httpClient, source)
		if err != nil {
			return "", nil, fmt.Errorf("fetch %s: %w", source, err)
		}
		return ingest.ExportName(source), data, nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return "", nil, err
	}
	return filepath.Base(source), data, nil
}

// reportPath swaps a .csv extension for .xlsx when a workbook is requested.
func reportPath(output string, xlsx bool) string {
	if xlsx && strings.EqualFold(filepath.Ext(output), ".csv") {
		return strings.TrimSuffix(output, filepath.Ext(output)) + ".xlsx"
	}
	return output
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
