package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vinaykashyap1996/circonomit-sim/internal/api"
	"github.com/vinaykashyap1996/circonomit-sim/internal/report"
)

var runJSONOut bool

var runCmd = &cobra.Command{
	Use:   "run [scenario]",
	Short: "Run one scenario to its fixed point",
	Long: `Run the cost model under a scenario and print the resulting values.

The scenario defaults to Base. Manual overrides beat scenario values,
so a flag like --energy-cost pins that input no matter what the
scenario says.

Examples:
  costsim run                                  # base values
  costsim run EnergyPriceShock
  costsim run LocalSourcing --energy-cost 80
  costsim run --set production.materialCost=150 --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	addOverrideFlags(runCmd)
	addTuningFlags(runCmd)
	runCmd.Flags().BoolVar(&runJSONOut, "json", false, "Output as JSON")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
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
	if len(args) == 1 {
		p.Scenario = args[0]
	}

	out, err := solver.Simulate(p)
	if err != nil {
		return err
	}

	if runJSONOut {
		return writeJSON(api.NewRunResult(solver.Model(), out))
	}

	fmt.Printf("Scenario: %s\n", out.Scenario)
	fmt.Printf("Status:   %s after %d iteration(s), max delta %.6g\n",
		out.Status, out.Iterations, out.MaxDelta)
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ATTRIBUTE\tLABEL\tVALUE")
	for _, row := range report.ModelRows(solver.Model(), out.Context) {
		fmt.Fprintf(w, "%s\t%s\t%s\n", row.Attribute, row.Label, formatValue(row.Value))
	}
	return w.Flush()
}
