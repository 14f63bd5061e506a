package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	m "symveil.dev/pkg/symveil/internal/model"
)

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view [mapping-file]",
		Short: "View a previously exported name mapping",
		Long: `Display the original-to-obfuscated name pairs from a mapping export,
defaulting to the export in the configured output directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := mappingExportPath(args)

			export, err := mappingStore.LoadMapping(path)
			if err != nil {
				return fmt.Errorf("load mapping %s: %w", path, err)
			}

			cmd.Printf("strategy: %s", export.Strategy)
			if export.Seed != "" {
				cmd.Printf("  seed: %s", export.Seed)
			}

			cmd.Printf("  generated: %s\n\n", export.GeneratedAt.Format(time.RFC3339))
			cmd.Print(renderMappingTable(export.Entries))

			return nil
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}

func mappingExportPath(args []string) m.Path {
	if len(args) == 1 {
		return m.Path(args[0])
	}

	return m.Path(filepath.Join(viper.GetString(outputFlagName), "symveil.mapping.yaml"))
}

func renderMappingTable(entries []m.MappingEntry) string {
	sorted := make([]m.MappingEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Kind != sorted[j].Kind {
			return sorted[i].Kind < sorted[j].Kind
		}

		return sorted[i].Original < sorted[j].Original
	})

	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Kind", "Original", "Obfuscated"})
	table.SetBorder(false)
	table.SetCenterSeparator("")

	for _, entry := range sorted {
		table.Append([]string{string(entry.Kind), entry.Original, entry.Obfuscated})
	}

	footer := []string{fmt.Sprintf("Total %d", len(sorted)), "", ""}
	table.SetFooter(footer)

	table.Render()

	return buf.String()
}
