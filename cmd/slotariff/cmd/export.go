package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bher20/slotariff/internal/export"
	"github.com/bher20/slotariff/internal/prices"
)

var (
	exportDate   string
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the hourly tariff sheet of a day as XLSX or PDF",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportDate, "date", "", "day as YYYY-MM-DD (default today)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "xlsx", "xlsx or pdf")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default tariff-<date>.<format>)")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	loc := cfg.Location()
	day := time.Now().In(loc)
	if exportDate != "" {
		if day, err = time.ParseInLocation("2006-01-02", exportDate, loc); err != nil {
			return fmt.Errorf("--date: %w", err)
		}
	}

	st, err := openStorage(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	table, err := prices.NewService(cfg.Supplier, cfg.Prices.Table(), st, log).Current(cmd.Context())
	if err != nil {
		return err
	}
	body, _, err := export.Render(exportFormat, export.Build(day, table))
	if err != nil {
		return err
	}

	path := exportOut
	if path == "" {
		path = fmt.Sprintf("tariff-%s.%s", day.Format("2006-01-02"), exportFormat)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return err
	}
	log.Info("export written", zap.String("path", path), zap.Int("bytes", len(body)))
	return nil
}
