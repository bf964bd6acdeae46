package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/spreadindex/internal/perfstats"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compute the index and print its performance",
	Long: `Computes the index from the base date through --to and prints
a performance table for the index and each underlying.

Flags:
  --to       last date to compute (YYYY-MM-DD, default: today)
  --period   stats column; repeatable (2023, YTD, MTD, All, 2020-01-01:2021-06-30, label=a:b)
  --xlsx     also write the table to an Excel workbook
  --persist  store the run and its levels in PostgreSQL

Example:
  go run ./cmd/spreadindex run
  go run ./cmd/spreadindex run --to 2024-12-31 --period All --period 2024
  go run ./cmd/spreadindex run --xlsx perf.xlsx --persist`,
	RunE: runIndex,
}

var (
	runTo      string
	runPeriods []string
	runXLSX    string
	runPersist bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runTo, "to", "", "last date to compute (YYYY-MM-DD, default: today)")
	runCmd.Flags().StringArrayVar(&runPeriods, "period", nil, "stats period (repeatable)")
	runCmd.Flags().StringVar(&runXLSX, "xlsx", "", "write the stats table to this .xlsx file")
	runCmd.Flags().BoolVar(&runPersist, "persist", false, "persist the run to PostgreSQL")
}

func parsePeriods(values []string) ([]perfstats.Period, error) {
	periods := make([]perfstats.Period, 0, len(values))
	for _, v := range values {
		p, err := perfstats.ParsePeriod(v)
		if err != nil {
			return nil, fmt.Errorf("invalid --period: %w", err)
		}
		periods = append(periods, p)
	}
	return periods, nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}

	end, err := parseDateFlag("to", runTo)
	if err != nil {
		return err
	}
	periods, err := parsePeriods(runPeriods)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	d, err := a.connect(ctx, runPersist)
	if err != nil {
		return err
	}
	defer d.Close()

	svc, err := a.newService(d, periods)
	if err != nil {
		return err
	}

	res, err := svc.Run(ctx, end)
	if err != nil {
		return fmt.Errorf("index run failed: %w", err)
	}

	out := cmd.OutOrStdout()
	printRunSummary(out, res)

	if len(res.QualityFailures) > 0 {
		printWarning(out, "Market data quality")
		printList(out, res.QualityFailures)
	}

	fmt.Fprintln(out)
	if err := res.Stats.Render(out); err != nil {
		return fmt.Errorf("render stats: %w", err)
	}

	if runXLSX != "" {
		if err := res.Stats.WriteXLSX(runXLSX); err != nil {
			return err
		}
		fmt.Fprintln(out)
		printSuccess(out, "Stats written to "+runXLSX)
	}

	return nil
}
