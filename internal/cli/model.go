package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vinaykashyap1996/circonomit-sim/internal/model"
)

var modelJSONOut bool

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Show the model's blocks and attributes",
	Long: `Show the blocks, attributes and baselines of the model that the
other commands simulate. Pass --model to inspect an HCL model file
instead of the built-in one.

Examples:
  costsim model
  costsim model --model factory.hcl --json`,
	Args: cobra.NoArgs,
	RunE: runModel,
}

func init() {
	modelCmd.Flags().BoolVar(&modelJSONOut, "json", false, "Output as JSON")
	rootCmd.AddCommand(modelCmd)
}

type modelAttrJSON struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Kind     string   `json:"kind"`
	Baseline *float64 `json:"baseline,omitempty"`
}

type modelBlockJSON struct {
	Name       string          `json:"name"`
	Attributes []modelAttrJSON `json:"attributes"`
}

func runModel(cmd *cobra.Command, args []string) error {
	m, err := loadModel()
	if err != nil {
		return err
	}

	if modelJSONOut {
		blocks := make([]modelBlockJSON, 0, len(m.Blocks()))
		for _, blk := range m.Blocks() {
			b := modelBlockJSON{Name: string(blk)}
			for _, name := range m.AttributeNames(blk) {
				a, _ := m.Attribute(name)
				ja := modelAttrJSON{Name: a.Name, Label: a.Label, Kind: a.Kind.String()}
				if a.Kind == model.KindInput {
					baseline := a.Baseline
					ja.Baseline = &baseline
				}
				b.Attributes = append(b.Attributes, ja)
			}
			blocks = append(blocks, b)
		}
		return writeJSON(map[string]any{"blocks": blocks})
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BLOCK\tATTRIBUTE\tKIND\tLABEL\tBASELINE")
	for _, blk := range m.Blocks() {
		for _, name := range m.AttributeNames(blk) {
			a, _ := m.Attribute(name)
			baseline := "-"
			if a.Kind == model.KindInput {
				baseline = formatValue(a.Baseline)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", blk, a.Name, a.Kind, a.Label, baseline)
		}
	}
	return w.Flush()
}
