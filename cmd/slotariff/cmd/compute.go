package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bher20/slotariff/internal/prices"
	"github.com/bher20/slotariff/internal/tariff"
)

var (
	computeAt   string
	computeJSON bool
	holidayYear int
)

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Print the tariff at an instant (default now)",
	RunE:  runCompute,
}

var holidaysCmd = &cobra.Command{
	Use:   "holidays",
	Short: "List the public holidays of a year as MM-DD",
	RunE: func(cmd *cobra.Command, _ []string) error {
		year := holidayYear
		if year == 0 {
			year = time.Now().Year()
		}
		for _, d := range tariff.HolidaysForYear(year) {
			fmt.Fprintln(cmd.OutOrStdout(), d)
		}
		return nil
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Print the four network block schedules",
	Run: func(cmd *cobra.Command, _ []string) {
		printSchedules(cmd.OutOrStdout())
	},
}

func init() {
	computeCmd.Flags().StringVar(&computeAt, "at", "", "RFC3339 timestamp (default now)")
	computeCmd.Flags().BoolVar(&computeJSON, "json", false, "print JSON instead of a table")
	holidaysCmd.Flags().IntVar(&holidayYear, "year", 0, "year (default current)")

	rootCmd.AddCommand(computeCmd, holidaysCmd, scheduleCmd)
}

func runCompute(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	at := time.Now()
	if computeAt != "" {
		if at, err = time.Parse(time.RFC3339, computeAt); err != nil {
			return fmt.Errorf("--at: %w", err)
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
	res := tariff.NewEngine(log).Compute(at.In(cfg.Location()), table)

	out := cmd.OutOrStdout()
	if computeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	writeResult(out, res)
	return nil
}

func writeResult(out io.Writer, r tariff.PricingResult) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintf(tw, "Time\t%s\n", r.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(tw, "Season\t%s\n", r.Season)
	fmt.Fprintf(tw, "Day type\t%s\n", r.DayType)
	fmt.Fprintf(tw, "Holiday\t%t\n", r.IsHoliday)
	fmt.Fprintf(tw, "Block\t%d (%s)\n", r.CurrentBlock, r.CurrentBlock.Description())
	fmt.Fprintf(tw, "Energy\t%s %s EUR/kWh\n", r.EnergyTariff.Code(), r.EnergyPrice)
	fmt.Fprintf(tw, "Network\t%s EUR/kWh\n", r.NetworkPrice)
	fmt.Fprintf(tw, "Contributions\t%s EUR/kWh\n", r.Contributions)
	fmt.Fprintf(tw, "Excise tax\t%s EUR/kWh\n", r.ExciseTax)
	fmt.Fprintf(tw, "Total\t%s EUR/kWh\n", r.TotalPrice)
	if r.MissingBlockPrice {
		fmt.Fprintf(tw, "Warning\tno price configured for block %d\n", r.CurrentBlock)
	}
}

func printSchedules(out io.Writer) {
	named := []struct {
		name string
		s    tariff.Schedule
	}{
		{"Weekday, higher season", tariff.WeekdayScheduleHigher},
		{"Weekday, lower season", tariff.WeekdayScheduleLower},
		{"Weekend/holiday, higher season", tariff.WeekendHolidayScheduleHigher},
		{"Weekend/holiday, lower season", tariff.WeekendHolidayScheduleLower},
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer tw.Flush()
	for i, n := range named {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintln(tw, n.name)
		for _, slot := range n.s {
			fmt.Fprintf(tw, "  %s-%s\tblock %d\n", slot.Start, slot.End, slot.Block)
		}
	}
}
