package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"symveil.dev/pkg/symveil/internal/controller"
	"symveil.dev/pkg/symveil/internal/engine"
	m "symveil.dev/pkg/symveil/internal/model"
	"symveil.dev/pkg/symveil/internal/whitelist"
)

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [paths...]",
		Short: "List source files and renameable symbol counts",
		Long:  listLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			entries, err := whitelist.Load(m.Path(viper.GetString(whitelistPathConfigKey)))
			if err != nil {
				return err
			}

			kinds, err := parseKinds(viper.GetStringSlice(kindsConfigKey))
			if err != nil {
				return err
			}

			eng := engine.New(engine.Config{
				Paths:            parsePaths(args),
				Exclude:          viper.GetStringSlice(excludeConfigKey),
				Kinds:            kinds,
				WhitelistEntries: entries,
				NoCache:          viper.GetBool(noCacheFlagName),
				StatePath:        m.Path(viper.GetString(statePathConfigKey)),
			}, fsAdapter, mappingStore)

			ui := selectUI(cmd)
			if err := ui.Start(ctx, controller.WithEstimateMode()); err != nil {
				return err
			}

			estimates, err := eng.Estimate(ctx)

			displayErr := ui.DisplayEstimation(ctx, estimateRows(estimates), err)

			ui.Wait(ctx)
			ui.Close(ctx)

			return displayErr
		},
	}

	return cmd
}

func estimateRows(estimates []engine.FileEstimate) []controller.EstimateRow {
	rows := make([]controller.EstimateRow, 0, len(estimates))
	for _, est := range estimates {
		rows = append(rows, controller.EstimateRow{Path: est.Path, Counts: est.Counts})
	}

	return rows
}

func init() {
	rootCmd.AddCommand(listCmd)
}
