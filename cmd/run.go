package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"symveil.dev/pkg/symveil/internal/controller"
	"symveil.dev/pkg/symveil/internal/engine"
	m "symveil.dev/pkg/symveil/internal/model"
	"symveil.dev/pkg/symveil/internal/namegen"
	"symveil.dev/pkg/symveil/internal/resource"
	"symveil.dev/pkg/symveil/internal/whitelist"
)

var (
	runParallelFlag  int
	runStrategyFlag  string
	runSeedFlag      string
	runPrefixFlag    string
	runKindsFlag     []string
	runResourceFlag  []string
	runIntensityFlag float64
	runDryRunFlag    bool
	runStrictFlag    bool
	runMappingFlag   string

	runSkipCatalogsFlag bool
	runSkipImagesFlag   bool
	runSkipAudioFlag    bool
	runSkipFontsFlag    bool
)

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Obfuscate sources and resources",
		Long:  runLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildEngineConfig(args)
			if err != nil {
				return err
			}

			return executeRun(cmd, cfg)
		},
	}

	configureRunFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func configureRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&runParallelFlag, parallelFlagName, "p", viper.GetInt(parallelConfigKey), "number of parallel workers (0 = all cores)")
	bindFlagToConfig(cmd.Flags().Lookup(parallelFlagName), parallelConfigKey)

	cmd.Flags().StringVarP(&runStrategyFlag, strategyFlagName, "s", viper.GetString(strategyConfigKey), "name generation strategy: random, seeded, prefixed, dictionary")
	bindFlagToConfig(cmd.Flags().Lookup(strategyFlagName), strategyConfigKey)

	cmd.Flags().StringVar(&runSeedFlag, seedFlagName, viper.GetString(seedConfigKey), "seed for deterministic generation (required by the seeded strategy)")
	bindFlagToConfig(cmd.Flags().Lookup(seedFlagName), seedConfigKey)

	cmd.Flags().StringVar(&runPrefixFlag, prefixFlagName, viper.GetString(prefixConfigKey), "identifier prefix for the prefixed strategy")
	bindFlagToConfig(cmd.Flags().Lookup(prefixFlagName), prefixConfigKey)

	cmd.Flags().StringSliceVar(&runKindsFlag, kindsFlagName, viper.GetStringSlice(kindsConfigKey), "restrict renaming to these symbol kinds (class,method,property,protocol,category)")
	bindFlagToConfig(cmd.Flags().Lookup(kindsFlagName), kindsConfigKey)

	cmd.Flags().StringSliceVarP(&runResourceFlag, resourcesFlagName, "r", viper.GetStringSlice(resourcePathsConfigKey), "resource roots (default: the source paths)")
	bindFlagToConfig(cmd.Flags().Lookup(resourcesFlagName), resourcePathsConfigKey)

	cmd.Flags().Float64Var(&runIntensityFlag, intensityFlagName, viper.GetFloat64(intensityConfigKey), "image perturbation intensity 0..1 (0 = default)")
	bindFlagToConfig(cmd.Flags().Lookup(intensityFlagName), intensityConfigKey)

	cmd.Flags().BoolVarP(&runDryRunFlag, dryRunFlagName, "n", false, "compute and preview every change without writing")

	cmd.Flags().BoolVar(&runStrictFlag, strictFlagName, viper.GetBool(strictConfigKey), "fail the run on any recoverable error")
	bindFlagToConfig(cmd.Flags().Lookup(strictFlagName), strictConfigKey)

	cmd.Flags().StringVar(&runMappingFlag, mappingFlagName, viper.GetString(priorMappingConfigKey), "previous mapping export to keep names stable across runs")
	bindFlagToConfig(cmd.Flags().Lookup(mappingFlagName), priorMappingConfigKey)

	cmd.Flags().BoolVar(&runSkipCatalogsFlag, skipCatalogsFlagName, viper.GetBool(skipCatalogsConfigKey), "leave asset catalogs untouched")
	bindFlagToConfig(cmd.Flags().Lookup(skipCatalogsFlagName), skipCatalogsConfigKey)

	cmd.Flags().BoolVar(&runSkipImagesFlag, skipImagesFlagName, viper.GetBool(skipImagesConfigKey), "leave raster images untouched")
	bindFlagToConfig(cmd.Flags().Lookup(skipImagesFlagName), skipImagesConfigKey)

	cmd.Flags().BoolVar(&runSkipAudioFlag, skipAudioFlagName, viper.GetBool(skipAudioConfigKey), "leave audio files untouched")
	bindFlagToConfig(cmd.Flags().Lookup(skipAudioFlagName), skipAudioConfigKey)

	cmd.Flags().BoolVar(&runSkipFontsFlag, skipFontsFlagName, viper.GetBool(skipFontsConfigKey), "leave fonts untouched")
	bindFlagToConfig(cmd.Flags().Lookup(skipFontsFlagName), skipFontsConfigKey)
}

// buildEngineConfig assembles the validated engine configuration from flags,
// config file and environment.
func buildEngineConfig(args []string) (engine.Config, error) {
	strategy, err := namegen.ParseStrategy(viper.GetString(strategyConfigKey))
	if err != nil {
		return engine.Config{}, err
	}

	kinds, err := parseKinds(viper.GetStringSlice(kindsConfigKey))
	if err != nil {
		return engine.Config{}, err
	}

	entries, err := whitelist.Load(m.Path(viper.GetString(whitelistPathConfigKey)))
	if err != nil {
		return engine.Config{}, fmt.Errorf("load whitelist: %w", err)
	}

	seed := viper.GetString(seedConfigKey)

	return engine.Config{
		Paths:            parsePaths(args),
		ResourcePaths:    parseResourcePaths(),
		Output:           m.Path(viper.GetString(outputFlagName)),
		Strategy:         strategy,
		Seed:             seed,
		Prefix:           viper.GetString(prefixConfigKey),
		Kinds:            kinds,
		Exclude:          viper.GetStringSlice(excludeConfigKey),
		WhitelistEntries: entries,
		Threads:          viper.GetInt(parallelConfigKey),
		DryRun:           runDryRunFlag,
		NoCache:          viper.GetBool(noCacheFlagName),
		Strict:           viper.GetBool(strictConfigKey),
		StatePath:        m.Path(viper.GetString(statePathConfigKey)),
		PriorMappingPath: m.Path(viper.GetString(priorMappingConfigKey)),
		Resources: resource.Options{
			Intensity:     viper.GetFloat64(intensityConfigKey),
			Seed:          seedHash(seed),
			Verify:        viper.GetBool(verifyConfigKey),
			AllowTrailing: viper.GetBool(allowTrailingConfigKey),
			Disabled:      disabledFamilies(),
		},
	}, nil
}

func disabledFamilies() map[m.ResourceFamily]bool {
	return map[m.ResourceFamily]bool{
		m.FamilyCatalog: viper.GetBool(skipCatalogsConfigKey),
		m.FamilyImage:   viper.GetBool(skipImagesConfigKey),
		m.FamilyAudio:   viper.GetBool(skipAudioConfigKey),
		m.FamilyFont:    viper.GetBool(skipFontsConfigKey),
	}
}

func parseKinds(raw []string) ([]m.SymbolKind, error) {
	kinds := make([]m.SymbolKind, 0, len(raw))

	for _, k := range raw {
		kind := m.SymbolKind(k)
		if !kind.Valid() {
			return nil, fmt.Errorf("unknown symbol kind %q", k)
		}

		kinds = append(kinds, kind)
	}

	return kinds, nil
}

// seedHash folds the textual seed into the int64 the resource mutators
// expect. An empty seed stays zero, which keeps random runs random.
func seedHash(seed string) int64 {
	var h int64
	for _, c := range seed {
		h = h*131 + int64(c)
	}

	return h
}

// executeRun drives the engine with the selected UI attached.
func executeRun(cmd *cobra.Command, cfg engine.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ui := selectUI(cmd)
	if cfg.DryRun {
		// diff previews interleave badly with a live progress display
		ui = controller.NewSimpleUI(cmd)
	}

	if err := ui.Start(ctx, controller.WithRunMode()); err != nil {
		return err
	}

	cfg.OnProgress = ui.Progress
	cfg.OnDiff = func(path m.Path, diff string) {
		ui.DisplayDiff(ctx, path, diff)
	}

	eng := engine.New(cfg, fsAdapter, mappingStore)

	report, runErr := eng.Run(ctx)

	if err := ui.DisplayReport(context.WithoutCancel(ctx), report); err != nil {
		ui.Close(ctx)

		return err
	}

	ui.Wait(ctx)
	ui.Close(ctx)

	if runErr != nil {
		return runErr
	}

	if report.Status == m.StatusFailed {
		return fmt.Errorf("run failed with %d error(s)", len(report.Errors))
	}

	return nil
}
