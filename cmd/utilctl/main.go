// Package main provides the utilctl CLI for running the report pipeline
// without the HTTP server: ingest a workbook, list stored weeks, export
// a stored week back to xlsx.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/warp/utilization-engine/ingest"
	"github.com/warp/utilization-engine/report"
	"github.com/warp/utilization-engine/store/sqlite"
	"github.com/warp/utilization-engine/workbook"
)

var (
	dbPath     string
	exportDate string
	exportOut  string
	leakage    bool
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "utilctl",
		Short: "Manage weekly consultant utilization reports",
		Long: `utilctl runs the utilization report pipeline from the command line:
ingest weekly workbooks, list the stored report weeks, and export a
stored week back to xlsx.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "utilization.db", "SQLite database path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	ingestCmd := &cobra.Command{
		Use:   "ingest [workbook.xlsx]",
		Short: "Ingest a weekly workbook and persist the report",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}

	datesCmd := &cobra.Command{
		Use:   "dates",
		Short: "List stored report dates, newest first",
		Args:  cobra.NoArgs,
		RunE:  runDates,
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export a stored report week to xlsx",
		Args:  cobra.NoArgs,
		RunE:  runExport,
	}
	exportCmd.Flags().StringVar(&exportDate, "date", "", "Report date (YYYY-MM-DD, required)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file path (default: utilization_<date>.xlsx)")
	exportCmd.Flags().BoolVar(&leakage, "leakage", false, "Export only open / shortfall records")
	_ = exportCmd.MarkFlagRequired("date")

	rootCmd.AddCommand(ingestCmd, datesCmd, exportCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()
}

func openStore() (*sqlite.Store, error) {
	store, err := sqlite.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", dbPath, err)
	}
	return store, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", inputPath)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	runner := ingest.NewRunner(store, newLogger())
	result, err := runner.Run(context.Background(), inputPath)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	open := 0
	for _, rec := range result.Records {
		if rec.Status == report.StatusOpen {
			open++
		}
	}
	fmt.Printf("Ingested %s: week %d, %d records, %d open cases\n",
		result.Week.Date.Format("2006-01-02"), result.Week.WeekIndex, len(result.Records), open)
	fmt.Printf("Org utilization: %s%%  Capable utilization: %s%%\n",
		result.OrgUtilization.StringFixed(2), result.CapableUtilization.StringFixed(2))
	return nil
}

func runDates(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	dates, err := store.ListDates(context.Background())
	if err != nil {
		return fmt.Errorf("list dates: %w", err)
	}
	if len(dates) == 0 {
		fmt.Println("No reports stored.")
		return nil
	}
	for _, d := range dates {
		fmt.Println(d.Format("2006-01-02"))
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	date, err := time.Parse("2006-01-02", exportDate)
	if err != nil {
		return fmt.Errorf("invalid date %q, want YYYY-MM-DD", exportDate)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	sheetName := "Utilization Report"
	records, err := store.ReportsForDate(ctx, date)
	if leakage {
		sheetName = "Utilization Leakage"
		records, err = store.LeakageForDate(ctx, date)
	}
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("no records for %s", exportDate)
	}

	f, err := workbook.WriteReport(sheetName, records)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()

	out := exportOut
	if out == "" {
		out = fmt.Sprintf("utilization_%s.xlsx", exportDate)
	}
	if err := f.SaveAs(out); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Printf("Wrote %d records to %s\n", len(records), out)
	return nil
}
