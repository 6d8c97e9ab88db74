package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"devkit/internal/catalog"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known tools and categories",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
}

type listOutput struct {
	Tools      []catalog.Descriptor `json:"tools"`
	Categories map[string][]string  `json:"categories"`
}

func runList(cmd *cobra.Command, _ []string) error {
	_, cfg, err := loadSettings()
	if err != nil {
		return err
	}
	cat, err := catalog.Load(cfg.CatalogPaths(catalogFiles...), cfg.BuiltinCatalog)
	if err != nil {
		return err
	}

	categories := make(map[string][]string)
	for _, name := range cat.CategoryNames() {
		members, _ := cat.Category(name)
		categories[name] = members
	}

	if outputJSON {
		data, err := json.MarshalIndent(listOutput{Tools: cat.Descriptors(), Categories: categories}, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TOOL\tMETHOD\tCATEGORIES\tDESCRIPTION")
	for _, d := range cat.Descriptors() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Key(), d.Method, nonEmptyOrDash(strings.Join(d.Categories, ",")), nonEmptyOrDash(d.Description))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(categories) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	for _, name := range cat.CategoryNames() {
		fmt.Fprintf(out, "%s: %s\n", name, joinComma(categories[name]))
	}
	return nil
}

func nonEmptyOrDash(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return value
}
