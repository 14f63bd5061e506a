package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "symveil.dev/pkg/symveil/internal/model"
	"symveil.dev/pkg/symveil/internal/namegen"
)

func TestSeedHash(t *testing.T) {
	assert.Equal(t, int64(0), seedHash(""))
	assert.NotEqual(t, int64(0), seedHash("release-1.4"))
	assert.Equal(t, seedHash("abc"), seedHash("abc"))
	assert.NotEqual(t, seedHash("abc"), seedHash("abd"))
}

func TestParseKinds(t *testing.T) {
	kinds, err := parseKinds([]string{"class", "method"})
	require.NoError(t, err)
	assert.Equal(t, []m.SymbolKind{m.KindClass, m.KindMethod}, kinds)

	_, err = parseKinds([]string{"enum"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enum")
}

func TestBuildEngineConfig_FromViper(t *testing.T) {
	viper.Set(strategyConfigKey, "seeded")
	viper.Set(seedConfigKey, "build-42")
	viper.Set(prefixConfigKey, "xy")
	viper.Set(parallelConfigKey, 3)
	viper.Set(intensityConfigKey, 0.2)
	viper.Set(skipFontsConfigKey, true)
	t.Cleanup(func() {
		viper.Set(strategyConfigKey, defaultStrategy)
		viper.Set(seedConfigKey, "")
		viper.Set(prefixConfigKey, defaultPrefix)
		viper.Set(parallelConfigKey, defaultParallel)
		viper.Set(intensityConfigKey, defaultIntensity)
		viper.Set(skipFontsConfigKey, false)
	})

	cfg, err := buildEngineConfig([]string{"./App"})
	require.NoError(t, err)

	assert.Equal(t, []m.Path{"./App"}, cfg.Paths)
	assert.Equal(t, namegen.StrategySeeded, cfg.Strategy)
	assert.Equal(t, "build-42", cfg.Seed)
	assert.Equal(t, "xy", cfg.Prefix)
	assert.Equal(t, 3, cfg.Threads)
	assert.InDelta(t, 0.2, cfg.Resources.Intensity, 1e-9)
	assert.Equal(t, seedHash("build-42"), cfg.Resources.Seed)
	assert.True(t, cfg.Resources.Disabled[m.FamilyFont])
	assert.False(t, cfg.Resources.Disabled[m.FamilyImage])
}

func TestBuildEngineConfig_RejectsUnknownStrategy(t *testing.T) {
	viper.Set(strategyConfigKey, "entropy")
	t.Cleanup(func() { viper.Set(strategyConfigKey, defaultStrategy) })

	_, err := buildEngineConfig(nil)
	require.Error(t, err)
}

func TestRunCmd_DryRunWritesNothing(t *testing.T) {
	project := t.TempDir()
	output := filepath.Join(t.TempDir(), "out")

	src := "@interface SVGreeter : NSObject\n@end\n"
	require.NoError(t, os.WriteFile(filepath.Join(project, "Greeter.h"), []byte(src), 0o600))

	viper.Set(outputFlagName, output)
	viper.Set(strategyConfigKey, "seeded")
	viper.Set(seedConfigKey, "t1")
	viper.Set(statePathConfigKey, filepath.Join(t.TempDir(), "state.yaml"))
	t.Cleanup(func() {
		viper.Set(outputFlagName, defaultOutputDir)
		viper.Set(strategyConfigKey, defaultStrategy)
		viper.Set(seedConfigKey, "")
		viper.Set(statePathConfigKey, defaultStatePath)
	})

	cmd := baseRootCmd()
	cmd.AddCommand(newRunCmd())
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})

	t.Cleanup(func() { runDryRunFlag = false })

	cmd.SetArgs([]string{"run", "-n", project})
	err := cmd.Execute()
	require.NoError(t, err)

	assert.Contains(t, out.String(), "SVGreeter")
	assert.NoDirExists(t, output)
}
