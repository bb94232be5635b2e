package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vinaykashyap1996/circonomit-sim/internal/model"
	"github.com/vinaykashyap1996/circonomit-sim/internal/persistence"
	"github.com/vinaykashyap1996/circonomit-sim/internal/scenario"
)

var (
	scenariosJSONOut  bool
	scenariosSaveDesc string
	scenariosSaveFile string
)

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "Manage the scenario catalog",
	Long: `Manage the scenario catalog.

The working catalog layers three sources: the builtin scenarios, TOML
files from --scenario-dir, and the --db store. Later layers shadow
earlier ones by name; Base is reserved and cannot be replaced.

Commands:
  costsim scenarios list            Show the catalog
  costsim scenarios save <name>     Store a scenario in the --db store
  costsim scenarios rm <name>       Remove a stored scenario
  costsim scenarios import <dir>    Store every TOML scenario in a directory`,
	RunE: requireSubcommand,
}

var scenariosListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the scenario catalog",
	Args:  cobra.NoArgs,
	RunE:  runScenariosList,
}

var scenariosSaveCmd = &cobra.Command{
	Use:   "save [name]",
	Short: "Store a scenario in the --db store",
	Long: `Store a named scenario. Overrides come from the override flags, or
from a TOML scenario file with --file. The scenario is validated
against the model before it is written.

Examples:
  costsim scenarios save CheapPower --energy-cost 30 --db data/costsim.db
  costsim scenarios save --file harbor-strike.toml --db data/costsim.db`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) > 1 {
			return fmt.Errorf("at most one scenario name")
		}
		if scenariosSaveFile == "" && len(args) != 1 {
			return fmt.Errorf("requires a scenario name (or --file)")
		}
		return nil
	},
	RunE: runScenariosSave,
}

var scenariosRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Remove a stored scenario",
	Args:  cobra.ExactArgs(1),
	RunE:  runScenariosRm,
}

var scenariosImportCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Store every TOML scenario file in a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runScenariosImport,
}

func init() {
	scenariosListCmd.Flags().BoolVar(&scenariosJSONOut, "json", false, "Output as JSON")

	addOverrideFlags(scenariosSaveCmd)
	scenariosSaveCmd.Flags().StringVar(&scenariosSaveDesc, "description", "", "Scenario description")
	scenariosSaveCmd.Flags().StringVar(&scenariosSaveFile, "file", "", "TOML scenario file to store")

	scenariosCmd.AddCommand(scenariosListCmd)
	scenariosCmd.AddCommand(scenariosSaveCmd)
	scenariosCmd.AddCommand(scenariosRmCmd)
	scenariosCmd.AddCommand(scenariosImportCmd)
	rootCmd.AddCommand(scenariosCmd)
}

type scenarioJSON struct {
	Name        string                        `json:"name"`
	Description string                        `json:"description,omitempty"`
	Overrides   map[string]map[string]float64 `json:"overrides,omitempty"`
}

func runScenariosList(cmd *cobra.Command, args []string) error {
	cat, st, err := openCatalog()
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	if scenariosJSONOut {
		list := make([]scenarioJSON, 0, len(cat.Names()))
		for _, sc := range cat.Scenarios() {
			list = append(list, scenarioJSON{
				Name:        sc.Name,
				Description: sc.Description,
				Overrides:   flattenOverrides(sc.Overrides),
			})
		}
		return writeJSON(map[string]any{"scenarios": list})
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION\tOVERRIDES")
	for _, sc := range cat.Scenarios() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", sc.Name, sc.Description, formatOverrides(sc.Overrides))
	}
	return w.Flush()
}

func runScenariosSave(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	var sc *scenario.Scenario
	if scenariosSaveFile != "" {
		sc, err = scenario.LoadFile(scenariosSaveFile)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			sc.Name = args[0]
		}
		if scenariosSaveDesc != "" {
			sc.Description = scenariosSaveDesc
		}
	} else {
		ov, err := collectOverrides(cmd)
		if err != nil {
			return err
		}
		if len(ov) == 0 {
			return fmt.Errorf("no overrides given; use the override flags or --file")
		}
		sc = &scenario.Scenario{Name: args[0], Description: scenariosSaveDesc, Overrides: ov}
	}

	if err := validateScenario(sc); err != nil {
		return err
	}
	if err := st.SaveScenario(sc); err != nil {
		return err
	}

	fmt.Printf("Saved scenario %s (%d override(s)).\n", sc.Name, countOverrides(sc.Overrides))
	return nil
}

func runScenariosRm(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	found, err := st.DeleteScenario(args[0])
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no stored scenario named %s", args[0])
	}
	fmt.Printf("Deleted scenario %s.\n", args[0])
	return nil
}

func runScenariosImport(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	list, err := scenario.LoadDir(args[0])
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No scenario files found.")
		return nil
	}

	for _, sc := range list {
		if err := validateScenario(sc); err != nil {
			return err
		}
	}
	if err := st.SaveScenarios(list); err != nil {
		return err
	}

	fmt.Printf("Imported %d scenario(s) from %s.\n", len(list), args[0])
	return nil
}

// openStore opens the --db store for the mutating scenario commands.
func openStore() (*persistence.Store, error) {
	if flagDBPath == "" {
		return nil, fmt.Errorf("this command needs a scenario store; pass --db")
	}
	return persistence.Open(flagDBPath)
}

// validateScenario checks that a scenario resolves against the model, so
// broken definitions never reach the store.
func validateScenario(sc *scenario.Scenario) error {
	m, err := loadModel()
	if err != nil {
		return err
	}
	probe := scenario.NewCatalog()
	if err := probe.Put(sc); err != nil {
		return err
	}
	if _, err := scenario.Resolve(m, probe, sc.Name, nil); err != nil {
		return err
	}
	return nil
}

func flattenOverrides(ov scenario.Overrides) map[string]map[string]float64 {
	if len(ov) == 0 {
		return nil
	}
	out := make(map[string]map[string]float64, len(ov))
	for blk, attrs := range ov {
		vals := make(map[string]float64, len(attrs))
		for k, v := range attrs {
			vals[k] = v
		}
		out[string(blk)] = vals
	}
	return out
}

// formatOverrides renders overrides as "block.attr=value" pairs in a stable
// order.
func formatOverrides(ov scenario.Overrides) string {
	if len(ov) == 0 {
		return "-"
	}
	blocks := make([]string, 0, len(ov))
	for blk := range ov {
		blocks = append(blocks, string(blk))
	}
	sort.Strings(blocks)

	var parts []string
	for _, blk := range blocks {
		attrs := ov[model.BlockName(blk)]
		names := make([]string, 0, len(attrs))
		for a := range attrs {
			names = append(names, a)
		}
		sort.Strings(names)
		for _, a := range names {
			parts = append(parts, fmt.Sprintf("%s.%s=%s", blk, a, formatValue(attrs[a])))
		}
	}
	return strings.Join(parts, ", ")
}

func countOverrides(ov scenario.Overrides) int {
	n := 0
	for _, attrs := range ov {
		n += len(attrs)
	}
	return n
}
