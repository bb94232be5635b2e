package cli

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinaykashyap1996/circonomit-sim/internal/engine"
	"github.com/vinaykashyap1996/circonomit-sim/internal/model"
	"github.com/vinaykashyap1996/circonomit-sim/internal/scenario"
)

// newFlagCmd builds a throwaway command carrying the shared override and
// tuning flags. Registering the flags resets the package-level flag vars to
// their defaults, so tests do not leak state into each other.
func newFlagCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test", Run: func(*cobra.Command, []string) {}}
	addOverrideFlags(cmd)
	addTuningFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestParseSet(t *testing.T) {
	cases := []struct {
		in      string
		blk     model.BlockName
		attr    string
		value   float64
		wantErr string
	}{
		{in: "production.materialCost=135", blk: model.BlockProduction, attr: model.AttrMaterialCost, value: 135},
		{in: "logistics.transportCost=28.5", blk: model.BlockLogistics, attr: model.AttrTransportCost, value: 28.5},
		{in: "production.energyCost=-3", blk: model.BlockProduction, attr: model.AttrEnergyCost, value: -3},
		{in: "noequals", wantErr: "want block.attr=value"},
		{in: "nodot=5", wantErr: "want block.attr=value"},
		{in: "production.energyCost=abc", wantErr: "bad number"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			blk, attr, v, err := parseSet(tc.in)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.blk, blk)
			assert.Equal(t, tc.attr, attr)
			assert.Equal(t, tc.value, v)
		})
	}
}

func TestCollectOverridesEmpty(t *testing.T) {
	cmd := newFlagCmd(t)
	ov, err := collectOverrides(cmd)
	require.NoError(t, err)
	assert.Nil(t, ov)
}

func TestCollectOverridesDedicatedFlags(t *testing.T) {
	cmd := newFlagCmd(t, "--material-cost", "135", "--transport-cost", "28")
	ov, err := collectOverrides(cmd)
	require.NoError(t, err)
	assert.Equal(t, scenario.Overrides{
		model.BlockProduction: {model.AttrMaterialCost: 135},
		model.BlockLogistics:  {model.AttrTransportCost: 28},
	}, ov)
}

func TestCollectOverridesExplicitZero(t *testing.T) {
	// Setting a flag to zero is not the same as not setting it.
	cmd := newFlagCmd(t, "--energy-cost", "0")
	ov, err := collectOverrides(cmd)
	require.NoError(t, err)
	assert.Equal(t, scenario.Overrides{
		model.BlockProduction: {model.AttrEnergyCost: 0},
	}, ov)
}

func TestCollectOverridesSetWinsOverDedicated(t *testing.T) {
	cmd := newFlagCmd(t, "--energy-cost", "60", "--set", "production.energyCost=70")
	ov, err := collectOverrides(cmd)
	require.NoError(t, err)
	assert.Equal(t, 70.0, ov[model.BlockProduction][model.AttrEnergyCost])
}

func TestCollectOverridesBadSet(t *testing.T) {
	cmd := newFlagCmd(t, "--set", "garbage")
	_, err := collectOverrides(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want block.attr=value")
}

func TestBuildParams(t *testing.T) {
	cmd := newFlagCmd(t)
	p, err := buildParams(cmd)
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultMaxIterations, p.MaxIterations)
	assert.Equal(t, engine.DefaultThreshold, p.Threshold)
	assert.Nil(t, p.Overrides)

	cmd = newFlagCmd(t, "--max-iterations", "7", "--threshold", "0.5", "--set", "production.materialCost=90")
	p, err = buildParams(cmd)
	require.NoError(t, err)
	assert.Equal(t, 7, p.MaxIterations)
	assert.Equal(t, 0.5, p.Threshold)
	assert.Equal(t, 90.0, p.Overrides[model.BlockProduction][model.AttrMaterialCost])
}

func TestFormatValue(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{120, "120"},
		{1234.5, "1,234.5"},
		{-42.25, "-42.25"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "+Inf"},
		{math.Inf(-1), "-Inf"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, formatValue(tc.in), "formatValue(%v)", tc.in)
	}
}

func TestFormatOverrides(t *testing.T) {
	assert.Equal(t, "-", formatOverrides(nil))

	ov := scenario.Overrides{
		model.BlockProduction: {model.AttrMaterialCost: 135, model.AttrEnergyCost: 55},
		model.BlockLogistics:  {model.AttrTransportCost: 18},
	}
	// Blocks and attributes render in alphabetical order.
	assert.Equal(t,
		"logistics.transportCost=18, production.energyCost=55, production.materialCost=135",
		formatOverrides(ov))
}

func TestCommandRegistration(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "compare", "scenarios", "sweep", "serve", "model"} {
		assert.True(t, names[want], "missing command %q", want)
	}

	sub := make(map[string]bool)
	for _, c := range scenariosCmd.Commands() {
		sub[c.Name()] = true
	}
	for _, want := range []string{"list", "save", "rm", "import"} {
		assert.True(t, sub[want], "missing scenarios subcommand %q", want)
	}
}

func TestFlagDefaults(t *testing.T) {
	assert.Equal(t, "8080", serveCmd.Flags().Lookup("port").DefValue)
	assert.Equal(t, "20", sweepCmd.Flags().Lookup("steps").DefValue)
	assert.Equal(t, "10", sweepCmd.Flags().Lookup("amplitude").DefValue)
	assert.Equal(t, "100", runCmd.Flags().Lookup("max-iterations").DefValue)
	assert.Equal(t, "0.001", runCmd.Flags().Lookup("threshold").DefValue)
	assert.Equal(t, "", rootCmd.PersistentFlags().Lookup("model").DefValue)
	assert.Equal(t, "", rootCmd.PersistentFlags().Lookup("db").DefValue)
}

func TestOpenCatalogLayering(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "cheap_transport.toml")
	require.NoError(t, os.WriteFile(file, []byte(`
name = "CheapTransport"
description = "Rail contract"

[overrides.logistics]
transportCost = 12
`), 0o644))

	prevDir, prevDB := flagScenarioDir, flagDBPath
	flagScenarioDir = dir
	flagDBPath = filepath.Join(dir, "catalog.db")
	defer func() { flagScenarioDir, flagDBPath = prevDir, prevDB }()

	cat, st, err := openCatalog()
	require.NoError(t, err)
	require.NotNil(t, st)
	defer st.Close()

	names := cat.Names()
	assert.Contains(t, names, scenario.BaseName)
	assert.Contains(t, names, "CheapTransport")

	sc, ok := cat.Get("CheapTransport")
	require.True(t, ok)
	assert.Equal(t, 12.0, sc.Overrides[model.BlockLogistics][model.AttrTransportCost])
}

func TestValidateScenario(t *testing.T) {
	good := &scenario.Scenario{
		Name:      "CheapPower",
		Overrides: scenario.Overrides{model.BlockProduction: {model.AttrEnergyCost: 30}},
	}
	assert.NoError(t, validateScenario(good))

	cases := []struct {
		name string
		sc   *scenario.Scenario
	}{
		{"reserved name", &scenario.Scenario{Name: scenario.BaseName}},
		{"unknown attribute", &scenario.Scenario{
			Name:      "Bad",
			Overrides: scenario.Overrides{model.BlockProduction: {"laborCost": 1}},
		}},
		{"calculated attribute", &scenario.Scenario{
			Name:      "Bad",
			Overrides: scenario.Overrides{model.BlockProduction: {model.AttrCO2Cost: 1}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, validateScenario(tc.sc))
		})
	}
}
