package commands

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/spreadindex/internal/marketdata"
	"github.com/wonny/spreadindex/pkg/database"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Copy CSV price files into PostgreSQL",
	Long: `Reads <DATA_DIR>/<ticker>.csv for every observable of the
strategy and upserts the bars into data.daily_prices.

Example:
  go run ./cmd/spreadindex import
  go run ./cmd/spreadindex import --from 2013-01-01 --to 2024-12-31 --dir ./prices`,
	RunE: runImport,
}

var (
	importFrom string
	importTo   string
	importDir  string
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importFrom, "from", "", "first date (default: strategy history start)")
	importCmd.Flags().StringVar(&importTo, "to", "", "last date (default: today)")
	importCmd.Flags().StringVar(&importDir, "dir", "", "CSV directory (default: DATA_DIR)")
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}

	from, err := parseDateFlag("from", importFrom)
	if err != nil {
		return err
	}
	if from.IsZero() {
		from = a.strategy.HistoryFrom()
	}
	to, err := parseDateFlag("to", importTo)
	if err != nil {
		return err
	}
	if to.IsZero() {
		to = time.Now()
	}
	dir := importDir
	if dir == "" {
		dir = a.cfg.DataDir
	}

	ctx := cmd.Context()
	db, err := database.New(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	stats, err := marketdata.Import(ctx, marketdata.NewCSVLoader(dir), marketdata.NewPostgresLoader(db.Pool), a.strategy.Observables, from, to)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printHeader(out, "Price import")
	tickers := make([]string, 0, len(stats))
	for t := range stats {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	for _, t := range tickers {
		printKeyValue(out, t, fmt.Sprintf("%d bars", stats[t]))
	}
	fmt.Fprintln(out, singleRule)
	printSuccess(out, fmt.Sprintf("Imported %d bars", stats.Total()))
	return nil
}
