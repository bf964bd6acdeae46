package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wonny/spreadindex/internal/contracts"
)

// signalCmd represents the signal command
var signalCmd = &cobra.Command{
	Use:   "signal [name]",
	Short: "Compute the index and dump one signal",
	Long: `Runs the index through --to and prints a computed signal or a
market observable as a dated table.

Signals: AssetReturn, AssetVol, AssetCorrelation, TargetLeverage,
TargetUnits, fee, index_level. Vector signals need --component with an
underlying name; observables take --component as the field (Close, Open, ...).

Example:
  go run ./cmd/spreadindex signal TargetLeverage --from 2024-01-01
  go run ./cmd/spreadindex signal AssetVol --component TLT
  go run ./cmd/spreadindex signal SPX --component Close`,
	Args: cobra.ExactArgs(1),
	RunE: runSignal,
}

var (
	signalTo        string
	signalFrom      string
	signalComponent string
)

func init() {
	rootCmd.AddCommand(signalCmd)

	signalCmd.Flags().StringVar(&signalTo, "to", "", "last date to compute (YYYY-MM-DD, default: today)")
	signalCmd.Flags().StringVar(&signalFrom, "from", "", "first date to print (default: base date)")
	signalCmd.Flags().StringVar(&signalComponent, "component", "", "underlying of a vector signal or field of an observable")
}

func runSignal(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}

	end, err := parseDateFlag("to", signalTo)
	if err != nil {
		return err
	}
	from, err := parseDateFlag("from", signalFrom)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	d, err := a.connect(ctx, false)
	if err != nil {
		return err
	}
	defer d.Close()

	svc, err := a.newService(d, nil)
	if err != nil {
		return err
	}
	res, err := svc.Run(ctx, end)
	if err != nil {
		return fmt.Errorf("index run failed: %w", err)
	}

	if from.IsZero() {
		from = res.Summary.Start
	}
	series, err := res.Index.Series(args[0], from, res.Summary.End, signalComponent)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "date\t%s\n", args[0])
	for date, v := range series.All() {
		fmt.Fprintf(tw, "%s\t%.6f\n", date.Format(contracts.DateLayout), v)
	}
	return tw.Flush()
}
