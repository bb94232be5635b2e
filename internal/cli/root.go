// Package cli implements the costsim command tree.
package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vinaykashyap1996/circonomit-sim/internal/engine"
	"github.com/vinaykashyap1996/circonomit-sim/internal/model"
	"github.com/vinaykashyap1996/circonomit-sim/internal/modeldef"
	"github.com/vinaykashyap1996/circonomit-sim/internal/persistence"
	"github.com/vinaykashyap1996/circonomit-sim/internal/scenario"
)

var (
	flagModelPath   string
	flagDBPath      string
	flagScenarioDir string
	flagVerbose     bool
)

// Override and tuning flags shared by run, compare and sweep.
var (
	flagSet           []string
	flagMaterialCost  float64
	flagEnergyCost    float64
	flagTransportCost float64
	flagMaxIterations int
	flagThreshold     float64
)

var rootCmd = &cobra.Command{
	Use:   "costsim",
	Short: "Simulate the production/logistics cost model",
	Long: `costsim runs what-if simulations over a cost model of coupled
production and logistics attributes.

Calculated attributes reference each other in cycles (CO2 cost feeds
disposal cost, which feeds back into CO2 cost), so every run relaxes
the model to a fixed point instead of evaluating it once. Scenarios
bundle input overrides; manual overrides stack on top of the scenario.

Examples:
  costsim run EnergyPriceShock
  costsim compare Base LocalSourcing --json
  costsim sweep materialCost --steps 30 --amplitude 25
  costsim serve --port 8080 --db data/costsim.db`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if flagVerbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})))
	},
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagModelPath, "model", "", "HCL model file (default: built-in model)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "SQLite scenario store")
	rootCmd.PersistentFlags().StringVar(&flagScenarioDir, "scenario-dir", "", "Directory of TOML scenario files")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging")
}

func requireSubcommand(cmd *cobra.Command, args []string) error {
	return cmd.Help()
}

// loadModel returns the built-in model, or the one named by --model.
func loadModel() (*model.Model, error) {
	if flagModelPath == "" {
		return model.Default(), nil
	}
	m, err := modeldef.Load(flagModelPath)
	if err != nil {
		return nil, fmt.Errorf("loading model: %w", err)
	}
	slog.Debug("model loaded", "path", flagModelPath, "blocks", len(m.Blocks()))
	return m, nil
}

// loadExtras reads --scenario-dir. Nil when the flag is unset.
func loadExtras() ([]*scenario.Scenario, error) {
	if flagScenarioDir == "" {
		return nil, nil
	}
	list, err := scenario.LoadDir(flagScenarioDir)
	if err != nil {
		return nil, err
	}
	slog.Debug("scenario files loaded", "dir", flagScenarioDir, "count", len(list))
	return list, nil
}

// openCatalog assembles the working catalog: builtin scenarios, then
// --scenario-dir files, then the --db store. The caller closes the returned
// store when non-nil.
func openCatalog() (*scenario.Catalog, *persistence.Store, error) {
	cat := scenario.Builtin()

	extras, err := loadExtras()
	if err != nil {
		return nil, nil, err
	}
	for _, sc := range extras {
		if err := cat.Put(sc); err != nil {
			return nil, nil, fmt.Errorf("scenario file %q: %w", sc.Name, err)
		}
	}

	var st *persistence.Store
	if flagDBPath != "" {
		st, err = persistence.Open(flagDBPath)
		if err != nil {
			return nil, nil, err
		}
		if err := st.MergeInto(cat); err != nil {
			st.Close()
			return nil, nil, err
		}
	}
	return cat, st, nil
}

// newSolver wires model and catalog for the simulation commands.
func newSolver() (*engine.Solver, *persistence.Store, error) {
	m, err := loadModel()
	if err != nil {
		return nil, nil, err
	}
	cat, st, err := openCatalog()
	if err != nil {
		return nil, nil, err
	}
	return engine.New(m, cat), st, nil
}

// addOverrideFlags registers the manual override flags: dedicated flags for
// the three editable inputs of the built-in model plus the generic --set.
func addOverrideFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&flagMaterialCost, "material-cost", 0, "Override production.materialCost")
	cmd.Flags().Float64Var(&flagEnergyCost, "energy-cost", 0, "Override production.energyCost")
	cmd.Flags().Float64Var(&flagTransportCost, "transport-cost", 0, "Override logistics.transportCost")
	cmd.Flags().StringArrayVar(&flagSet, "set", nil, "Override any input as block.attr=value (repeatable)")
}

func addTuningFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&flagMaxIterations, "max-iterations", engine.DefaultMaxIterations, "Relaxation pass cap")
	cmd.Flags().Float64Var(&flagThreshold, "threshold", engine.DefaultThreshold, "Convergence threshold")
}

// collectOverrides merges the dedicated input flags with --set pairs.
func collectOverrides(cmd *cobra.Command) (scenario.Overrides, error) {
	ov := scenario.Overrides{}
	add := func(blk model.BlockName, attr string, v float64) {
		if ov[blk] == nil {
			ov[blk] = make(map[string]float64)
		}
		ov[blk][attr] = v
	}

	if cmd.Flags().Changed("material-cost") {
		add(model.BlockProduction, model.AttrMaterialCost, flagMaterialCost)
	}
	if cmd.Flags().Changed("energy-cost") {
		add(model.BlockProduction, model.AttrEnergyCost, flagEnergyCost)
	}
	if cmd.Flags().Changed("transport-cost") {
		add(model.BlockLogistics, model.AttrTransportCost, flagTransportCost)
	}

	for _, kv := range flagSet {
		blk, attr, v, err := parseSet(kv)
		if err != nil {
			return nil, err
		}
		add(blk, attr, v)
	}

	if len(ov) == 0 {
		return nil, nil
	}
	return ov, nil
}

// parseSet splits one "block.attr=value" override.
func parseSet(s string) (model.BlockName, string, float64, error) {
	eq := strings.IndexByte(s, '=')
	if eq < 0 {
		return "", "", 0, fmt.Errorf("override %q: want block.attr=value", s)
	}
	key := s[:eq]
	dot := strings.IndexByte(key, '.')
	if dot < 0 {
		return "", "", 0, fmt.Errorf("override %q: want block.attr=value", s)
	}
	v, err := strconv.ParseFloat(s[eq+1:], 64)
	if err != nil {
		return "", "", 0, fmt.Errorf("override %q: bad number %q", s, s[eq+1:])
	}
	return model.BlockName(key[:dot]), key[dot+1:], v, nil
}

// buildParams assembles run parameters from the shared flags.
func buildParams(cmd *cobra.Command) (engine.Params, error) {
	p := engine.DefaultParams()
	p.MaxIterations = flagMaxIterations
	p.Threshold = flagThreshold
	ov, err := collectOverrides(cmd)
	if err != nil {
		return engine.Params{}, err
	}
	p.Overrides = ov
	return p, nil
}

// writeJSON prints v as indented JSON on stdout.
func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatValue renders a cost value for table output. Non-finite values
// print as-is rather than breaking the table.
func formatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return humanize.CommafWithDigits(v, 2)
}
