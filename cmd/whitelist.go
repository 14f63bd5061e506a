package cmd

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	m "symveil.dev/pkg/symveil/internal/model"
	"symveil.dev/pkg/symveil/internal/whitelist"
)

var (
	whitelistKindFlag   string
	whitelistReasonFlag string
)

// whitelistCmd groups the whitelist management subcommands.
var whitelistCmd = newWhitelistCmd()

func newWhitelistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whitelist",
		Short: "Manage symbol names excluded from renaming",
		Long: `Manage the project whitelist. Whitelisted names survive obfuscation
untouched; patterns may use * and ? wildcards and optionally bind to a
single symbol kind.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newWhitelistAddCmd())
	cmd.AddCommand(newWhitelistListCmd())

	return cmd
}

func init() {
	rootCmd.AddCommand(whitelistCmd)
}

func newWhitelistAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a name or glob pattern to the whitelist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := m.SymbolKind(whitelistKindFlag)
			if whitelistKindFlag != "" && !kind.Valid() {
				return fmt.Errorf("unknown symbol kind %q", whitelistKindFlag)
			}

			path := m.Path(viper.GetString(whitelistPathConfigKey))

			entries, err := whitelist.Load(path)
			if err != nil {
				return err
			}

			for _, entry := range entries {
				if entry.Pattern == args[0] && entry.Kind == kind {
					cmd.Printf("%q is already whitelisted\n", args[0])

					return nil
				}
			}

			entries = append(entries, whitelist.Entry{
				Pattern: args[0],
				Kind:    kind,
				Reason:  whitelistReasonFlag,
			})

			if err := whitelist.Save(path, entries); err != nil {
				return err
			}

			cmd.Printf("added %q to %s\n", args[0], path)

			return nil
		},
	}

	cmd.Flags().StringVar(&whitelistKindFlag, "kind", "", "restrict the entry to one symbol kind (default: all kinds)")
	cmd.Flags().StringVar(&whitelistReasonFlag, "reason", "", "note explaining why the name is excluded")

	return cmd
}

func newWhitelistListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List user whitelist entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := m.Path(viper.GetString(whitelistPathConfigKey))

			entries, err := whitelist.Load(path)
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				cmd.Printf("no user whitelist entries in %s\n", path)

				return nil
			}

			cmd.Print(renderWhitelistTable(entries))

			return nil
		},
	}
}

func renderWhitelistTable(entries []whitelist.Entry) string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Pattern", "Kind", "Reason"})
	table.SetBorder(false)
	table.SetCenterSeparator("")

	for _, entry := range entries {
		kind := string(entry.Kind)
		if kind == "" {
			kind = "all"
		}

		table.Append([]string{entry.Pattern, kind, entry.Reason})
	}

	table.Render()

	return buf.String()
}
