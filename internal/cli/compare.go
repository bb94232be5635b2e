package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vinaykashyap1996/circonomit-sim/internal/api"
	"github.com/vinaykashyap1996/circonomit-sim/internal/report"
)

var compareJSONOut bool

var compareCmd = &cobra.Command{
	Use:   "compare [scenario...]",
	Short: "Run several scenarios side by side",
	Long: `Run one simulation per scenario, concurrently, and print the
results as one table with a column per scenario. Without arguments
every scenario in the catalog is compared.

Manual overrides and tuning flags apply to all runs alike.

Examples:
  costsim compare
  costsim compare Base EnergyPriceShock LocalSourcing
  costsim compare Base LocalSourcing --energy-cost 80 --json`,
	RunE: runCompare,
}

func init() {
	addOverrideFlags(compareCmd)
	addTuningFlags(compareCmd)
	compareCmd.Flags().BoolVar(&compareJSONOut, "json", false, "Output as JSON")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	solver, st, err := newSolver()
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	p, err := buildParams(cmd)
	if err != nil {
		return err
	}

	names := args
	if len(names) == 0 {
		names = solver.Catalog().Names()
	}

	outs, err := solver.Compare(names, p)
	if err != nil {
		return err
	}

	if compareJSONOut {
		results := make([]api.RunResult, len(outs))
		for i, out := range outs {
			results[i] = api.NewRunResult(solver.Model(), out)
		}
		return writeJSON(map[string]any{"results": results})
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	header := "ATTRIBUTE"
	for _, out := range outs {
		header += "\t" + out.Scenario
	}
	fmt.Fprintln(w, header)

	for _, row := range report.ModelRows(solver.Model(), outs[0].Context) {
		line := row.Label
		for _, out := range outs {
			line += "\t" + formatValue(out.Value(row.Attribute))
		}
		fmt.Fprintln(w, line)
	}

	statusLine := "status"
	iterLine := "iterations"
	for _, out := range outs {
		statusLine += "\t" + string(out.Status)
		iterLine += "\t" + strconv.Itoa(out.Iterations)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, statusLine)
	fmt.Fprintln(w, iterLine)

	return w.Flush()
}
