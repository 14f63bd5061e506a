// Package cmd provides the root command and CLI setup for symveil.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"symveil.dev/pkg/symveil/internal/adapter"
	"symveil.dev/pkg/symveil/internal/controller"
	m "symveil.dev/pkg/symveil/internal/model"
)

var fsAdapter adapter.SourceFSAdapter
var mappingStore adapter.MappingStore

// outputDirFlag is a root-level flag shared by commands that write the
// obfuscated tree.
var outputDirFlag string

// noCacheFlag disables incremental caching when set.
var noCacheFlag bool

// excludePatterns is a root-level flag that filters files for applicable
// commands.
var excludePatterns []string

// verboseFlag raises log verbosity to debug.
var verboseFlag bool

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	fsAdapter = adapter.NewLocalSourceFSAdapter()
	mappingStore = adapter.NewYAMLMappingStore()
}

const pathPatternsHelp = `Paths may be files or directories:
  - .              scan the current directory recursively
  - ./App ./Kit    scan multiple directories
  - App/Foo.swift  scan a single file`

const rootLongDescription = `Symveil rewrites Objective-C and Swift identifiers to meaningless names and
perturbs binary resources (asset catalogs, images, audio, fonts) so that two
builds of the same project share no recognizable fingerprint. Output is
written to a mirrored tree; sources are never modified in place.

` + pathPatternsHelp

const runLongDescription = `Obfuscate the given paths (default: current directory) into the output tree.

` + pathPatternsHelp

const listLongDescription = `List source files and the number of renameable symbols per kind.

` + pathPatternsHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "symveil",
		Short: "Source and resource obfuscation pipeline",
		Long:  rootLongDescription,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&outputDirFlag, outputFlagName, "o",
			viper.GetString(outputFlagName),
			"output directory for the obfuscated tree",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().BoolVar(&noCacheFlag, noCacheFlagName, viper.GetBool(noCacheFlagName), "disable cached incremental runs (re-scan everything)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(noCacheFlagName), noCacheFlagName)

	cmd.PersistentFlags().StringArrayVarP(&excludePatterns, excludeFlagName, "x", viper.GetStringSlice(excludeConfigKey), "exclude paths matching regex (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(excludeFlagName), excludeConfigKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values
// feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// selectUI picks the interactive display for a terminal and the plain one
// everywhere else.
func selectUI(cmd *cobra.Command) controller.UI {
	if controller.IsTTY() {
		return controller.NewTUI(os.Stdout)
	}

	return controller.NewSimpleUI(cmd)
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	configureLogger("", viper.GetBool(logVerboseKey))

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func parsePaths(args []string) []m.Path {
	if len(args) == 0 {
		return []m.Path{"."}
	}

	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}

func parseResourcePaths() []m.Path {
	raw := viper.GetStringSlice(resourcePathsConfigKey)
	paths := make([]m.Path, 0, len(raw))

	for _, p := range raw {
		paths = append(paths, m.Path(p))
	}

	return paths
}
